package embedding

import (
	"EnterpriseAgent/backend/go/pkg/util"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Cache 保存文本对应的向量。实现需要并发安全。
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

// Cached 在 inner 前面加一层缓存。缓存读写失败只记日志，不影响向量化结果。
type Cached struct {
	inner Embedding
	cache Cache
	model string
	dim   int
}

// NewCached 创建带缓存的 Embedding。model 与 dim 参与缓存键，切换模型后旧向量不会被命中。
func NewCached(inner Embedding, cache Cache, model string, dim int) *Cached {
	return &Cached{inner: inner, cache: cache, model: model, dim: dim}
}

// CacheKey 返回 text 在给定模型和维度下的缓存键。
func CacheKey(model string, dim int, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + model + ":" + strconv.Itoa(dim) + ":" + hex.EncodeToString(sum[:])
}

// Embed 先查缓存，未命中时调用 inner 并回填。
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(c.model, c.dim, text)
	vec, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("读取向量缓存失败")
	}
	if ok {
		// 无效的缓存值当作未命中，并用新结果覆盖。
		bad := checkVector(vec, c.dim)
		if bad == nil {
			return vec, nil
		}
		logrus.WithError(bad).WithField("key", key).Warn("缓存中的向量无效，重新计算")
	}

	vec, err = c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, vec); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("写入向量缓存失败")
	}
	return vec, nil
}

// LRUCache 是进程内的向量缓存。
type LRUCache struct {
	lru *util.LRUCache[string, []float32]
}

// NewLRUCache 创建容量为 capacity、存活时间为 ttl 的进程内缓存。
func NewLRUCache(capacity int, ttl time.Duration) (*LRUCache, error) {
	lru, err := util.NewLRU[string, []float32](util.CacheConfig{Capacity: capacity, TTL: ttl})
	if err != nil {
		return nil, err
	}
	return &LRUCache{lru: lru}, nil
}

func (c *LRUCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	vec, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	// 调用方可能修改返回的切片，这里交出副本。
	return append([]float32(nil), vec...), true, nil
}

func (c *LRUCache) Set(_ context.Context, key string, vec []float32) error {
	c.lru.Put(key, append([]float32(nil), vec...))
	return nil
}

// RedisCache 把向量以小端 float32 序列存在 Redis 字符串中。
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache 创建基于 Redis 的缓存，ttl 为 0 表示不过期。
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	vec, err := decodeVector(raw)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, vec []float32) error {
	return c.client.Set(ctx, key, encodeVector(vec), c.ttl).Err()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, x := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("cached vector has %d bytes, not a multiple of 4", len(raw))
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return vec, nil
}
