package llm

import (
	"EnterpriseAgent/backend/go/internal/models"
	"context"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini 是一个实现了 LLM 接口的结构体，用于与 Gemini API 交互。
// 每次调用都是独立的单轮生成，不在请求之间保留会话历史。
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini 创建一个新的 Gemini 客户端。
func NewGemini(ctx context.Context, model, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: model}, nil
}

// GenerateContent 向 Gemini API 发送请求并返回响应。
func (g *Gemini) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	// GenerativeModel 带有可变字段，每次调用单独创建。
	gm := g.client.GenerativeModel(g.model)
	var parts []genai.Part
	for _, c := range req.Content {
		for _, p := range c.Parts {
			if c.Role == models.SpeakerSystem {
				gm.SystemInstruction = genai.NewUserContent(genai.Text(p.Text))
				continue
			}
			parts = append(parts, genai.Text(p.Text))
		}
	}

	resp, err := gm.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, err
	}
	return fromGenaiResponse(resp), nil
}

// Close 释放底层 gRPC 连接。
func (g *Gemini) Close() error {
	return g.client.Close()
}

// fromGenaiResponse 将 GenAI 响应中的文本片段转换为内部结构，非文本片段被忽略。
func fromGenaiResponse(resp *genai.GenerateContentResponse) *models.GenerateContentResponse {
	out := &models.GenerateContentResponse{}
	if resp == nil {
		return out
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		var parts []*models.Part
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				parts = append(parts, &models.Part{Text: string(t)})
			}
		}
		out.Content = append(out.Content, models.Content{Parts: parts, Role: models.SpeakerModel})
	}
	return out
}
