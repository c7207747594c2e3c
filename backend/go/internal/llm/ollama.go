package llm

import (
	"EnterpriseAgent/backend/go/internal/models"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	olla "github.com/ollama/ollama/api"
)

// Ollama 是一个用于 Ollama API 的 LLM 客户端。
type Ollama struct {
	client *olla.Client // Ollama 客户端实例。
	model  string       // 要使用的模型名称。
}

// NewOllama 创建一个新的 Ollama 客户端。
//
// 参数:
//
//	model: 要使用的模型名称。
//	baseURL: Ollama 服务的基准 URL。如果为空，则默认为 "http://localhost:11434"。
//
// 超时由调用方通过 ctx 控制，这里不再设置 http.Client 的超时。
func NewOllama(model, baseURL string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return &Ollama{client: olla.NewClient(parsedURL, http.DefaultClient), model: model}, nil
}

// GenerateContent 使用 Ollama API 生成内容。
func (o *Ollama) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	system, prompt := o.toOllamaPrompt(req)

	var result *olla.GenerateResponse
	stream := false
	err := o.client.Generate(ctx, &olla.GenerateRequest{
		Model:  o.model,
		System: system,
		Prompt: prompt,
		Stream: &stream, // 设置为非流式传输。
	}, func(resp olla.GenerateResponse) error {
		result = &resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with ollama: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("ollama returned no response")
	}

	return &models.GenerateContentResponse{
		Content: []models.Content{{
			Parts: []*models.Part{{Text: result.Response}},
			Role:  models.SpeakerModel,
		}},
		CreateTime:   result.CreatedAt,
		ModelVersion: result.Model,
	}, nil
}

// toOllamaPrompt 把系统提示和其余文本分别拼接。
func (o *Ollama) toOllamaPrompt(req *models.GenerateContentRequest) (string, string) {
	var system, prompt strings.Builder
	for _, content := range req.Content {
		sb := &prompt
		if content.Role == models.SpeakerSystem {
			sb = &system
		}
		for _, part := range content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return system.String(), prompt.String()
}
