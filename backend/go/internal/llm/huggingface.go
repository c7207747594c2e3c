package llm

import (
	"EnterpriseAgent/backend/go/internal/models"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HuggingFace 是一个用于 Hugging Face Inference API 的 LLM 客户端。
type HuggingFace struct {
	client  *http.Client // HTTP 客户端实例。
	model   string       // 要使用的模型名称。
	apiKey  string       // Hugging Face API 密钥。
	baseURL string       // Hugging Face Inference API 的基准 URL。
}

// NewHuggingFace 创建一个新的 HuggingFace 客户端。
// baseURL 为空时默认为 "https://api-inference.huggingface.co/models/"。
func NewHuggingFace(model, apiKey, baseURL string) (*HuggingFace, error) {
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co/models/"
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &HuggingFace{
		client:  &http.Client{},
		model:   model,
		apiKey:  apiKey,
		baseURL: baseURL,
	}, nil
}

type hfGenerated struct {
	GeneratedText string `json:"generated_text"`
}

// GenerateContent 使用 Hugging Face Inference API 生成内容。
func (h *HuggingFace) GenerateContent(ctx context.Context, req *models.GenerateContentRequest) (*models.GenerateContentResponse, error) {
	jsonReq, err := json.Marshal(h.toHuggingFaceRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+h.model, bytes.NewReader(jsonReq))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("huggingface returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var hfResp []hfGenerated
	if err := json.NewDecoder(resp.Body).Decode(&hfResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(hfResp) == 0 {
		return nil, fmt.Errorf("no generated text returned")
	}

	var content []models.Content
	for _, item := range hfResp {
		content = append(content, models.Content{
			Parts: []*models.Part{{Text: item.GeneratedText}},
			Role:  models.SpeakerModel,
		})
	}
	return &models.GenerateContentResponse{Content: content, ModelVersion: h.model}, nil
}

// toHuggingFaceRequest 把所有文本拼接成 inputs，只返回新生成的部分。
func (h *HuggingFace) toHuggingFaceRequest(req *models.GenerateContentRequest) map[string]interface{} {
	var inputs []string
	for _, content := range req.Content {
		for _, part := range content.Parts {
			inputs = append(inputs, part.Text)
		}
	}

	return map[string]interface{}{
		"inputs":     strings.Join(inputs, "\n\n"),
		"parameters": map[string]interface{}{"return_full_text": false},
	}
}
