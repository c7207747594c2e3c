package embedding

import (
	"EnterpriseAgent/backend/go/internal/config"
	"context"
	"fmt"
	"time"
)

// NewEmdModel 根据指定的提供商、模型、API 密钥和基础 URL 创建一个裸的 Embedding 模型实例。
func NewEmdModel(ctx context.Context, provider ModelType, model, apiKey, baseURL string) (Embedding, error) {
	switch provider {
	case Google:
		return NewGoogleModel(ctx, apiKey, model)
	case OpenAI:
		return NewOpenAIModel(apiKey, model, baseURL)
	case HuggingFace:
		return NewHuggingFaceModel(apiKey, model, baseURL)
	case Ollama:
		return NewOllamaModel(model, baseURL)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// New 按配置组装完整的向量化链路: 模型 -> 维度校验与超时 -> 可选缓存。
// cache 为 nil 时不缓存。
func New(ctx context.Context, cfg config.EmbeddingConfig, cache Cache) (Embedding, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("no model configured for %s provider", cfg.Provider)
	}
	base, err := NewEmdModel(ctx, ModelType(cfg.Provider), cfg.Model, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	var e Embedding = NewFixed(base, cfg.Dimension, config.Duration(cfg.Timeout, 15*time.Second))
	if cache != nil {
		e = NewCached(e, cache, cfg.Model, cfg.Dimension)
	}
	return e, nil
}
