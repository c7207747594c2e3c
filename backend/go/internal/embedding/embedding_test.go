package embedding

import (
	"EnterpriseAgent/backend/go/internal/config"
	"EnterpriseAgent/backend/go/internal/errs"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	calls int
	fn    func(ctx context.Context, text string) ([]float32, error)
}

func (f *fakeModel) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.fn(ctx, text)
}

func constant(vec ...float32) *fakeModel {
	return &fakeModel{fn: func(context.Context, string) ([]float32, error) {
		return append([]float32(nil), vec...), nil
	}}
}

func TestFixedPassesValidVectors(t *testing.T) {
	f := NewFixed(constant(1, 2, 3), 3, time.Second)

	vec, err := f.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vec)
	assert.Equal(t, 3, f.Dimension())
}

func TestFixedFailuresAreEmbeddingErrors(t *testing.T) {
	cases := map[string]Embedding{
		"wrong dimension": constant(1, 2),
		"nan":             constant(1, float32(math.NaN()), 3),
		"inf":             constant(1, float32(math.Inf(-1)), 3),
		"upstream": &fakeModel{fn: func(context.Context, string) ([]float32, error) {
			return nil, errors.New("connection reset")
		}},
		"timeout": &fakeModel{fn: func(ctx context.Context, _ string) ([]float32, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}},
	}
	for name, inner := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewFixed(inner, 3, 20*time.Millisecond).Embed(context.Background(), "x")
			assert.True(t, errors.Is(err, errs.ErrEmbedding), "got %v", err)
		})
	}
}

func TestCachedHitsSkipModel(t *testing.T) {
	cache, err := NewLRUCache(8, 0)
	require.NoError(t, err)
	model := constant(1, 2)
	c := NewCached(model, cache, "mini", 2)
	ctx := context.Background()

	first, err := c.Embed(ctx, "same text")
	require.NoError(t, err)
	first[0] = 99 // 修改返回值不应污染缓存

	second, err := c.Embed(ctx, "same text")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, second)
	assert.Equal(t, 1, model.calls)

	_, err = c.Embed(ctx, "other text")
	require.NoError(t, err)
	assert.Equal(t, 2, model.calls)
}

func TestCachedDoesNotStoreFailures(t *testing.T) {
	cache, err := NewLRUCache(8, 0)
	require.NoError(t, err)
	model := &fakeModel{fn: func(context.Context, string) ([]float32, error) {
		return nil, errors.New("down")
	}}
	c := NewCached(model, cache, "mini", 2)

	_, err = c.Embed(context.Background(), "q")
	require.Error(t, err)
	_, ok, _ := cache.Get(context.Background(), CacheKey("mini", 2, "q"))
	assert.False(t, ok)
}

func TestCachedRejectsCorruptEntries(t *testing.T) {
	ctx := context.Background()
	for name, stored := range map[string][]float32{
		"nan":       {float32(math.NaN()), 1},
		"inf":       {1, float32(math.Inf(1))},
		"truncated": {1},
	} {
		t.Run(name, func(t *testing.T) {
			cache, err := NewLRUCache(8, 0)
			require.NoError(t, err)
			key := CacheKey("mini", 2, "q")
			require.NoError(t, cache.Set(ctx, key, stored))

			model := constant(7, 8)
			vec, err := NewCached(model, cache, "mini", 2).Embed(ctx, "q")
			require.NoError(t, err)
			assert.Equal(t, []float32{7, 8}, vec)
			assert.Equal(t, 1, model.calls)

			fresh, ok, err := cache.Get(ctx, key)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []float32{7, 8}, fresh)
		})
	}
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]float32, bool, error) {
	return nil, false, errors.New("redis down")
}
func (brokenCache) Set(context.Context, string, []float32) error { return errors.New("redis down") }

func TestCachedToleratesCacheErrors(t *testing.T) {
	c := NewCached(constant(4, 5), brokenCache{}, "mini", 2)
	vec, err := c.Embed(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5}, vec)
}

func TestCacheKeyDependsOnModelAndDimension(t *testing.T) {
	k := CacheKey("a", 384, "text")
	assert.Equal(t, k, CacheKey("a", 384, "text"))
	assert.NotEqual(t, k, CacheKey("b", 384, "text"))
	assert.NotEqual(t, k, CacheKey("a", 768, "text"))
	assert.NotEqual(t, k, CacheKey("a", 384, "text2"))
}

func TestVectorCodecRoundTrip(t *testing.T) {
	vec := []float32{0, -1.5, 3.25e-8, float32(math.MaxFloat32)}
	got, err := decodeVector(encodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

// 需要本地 Redis，未设置 REDIS_ADDR 时跳过。
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx := context.Background()
	c := NewRedisCache(client, time.Minute)
	key := CacheKey("test", 2, t.Name())
	defer client.Del(ctx, key)

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, []float32{1, 2}))
	vec, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{1, 2}, vec)
}

func TestHuggingFaceEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/all-MiniLM-L6-v2", r.URL.Path)
		var body struct {
			Inputs []string `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"hello"}, body.Inputs)
		_, _ = w.Write([]byte(`[[0.5,-0.25,1]]`))
	}))
	defer srv.Close()

	m, err := NewHuggingFaceModel("key", "all-MiniLM-L6-v2", srv.URL)
	require.NoError(t, err)
	vec, err := m.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25, 1}, vec)
}

func TestNewBuildsGuardedChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[1,2]]`))
	}))
	defer srv.Close()

	cache, err := NewLRUCache(4, 0)
	require.NoError(t, err)
	e, err := New(context.Background(), config.EmbeddingConfig{
		Provider:  "huggingface",
		Model:     "m",
		BaseURL:   srv.URL,
		Dimension: 3,
		Timeout:   "1s",
	}, cache)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "x")
	assert.True(t, errors.Is(err, errs.ErrEmbedding), "2-dim vector must be rejected for dimension 3")

	_, err = New(context.Background(), config.EmbeddingConfig{Provider: "nope", Model: "m"}, nil)
	assert.Error(t, err)
}
