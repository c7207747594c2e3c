package models

import (
	"strings"
	"time"
)

// SpeakerRole 定义了消息发送者的角色。
type SpeakerRole string

const (
	SpeakerSystem SpeakerRole = "system" // 系统提示。
	SpeakerUser   SpeakerRole = "user"   // 用户角色。
	SpeakerModel  SpeakerRole = "model"  // 模型角色。
)

// Content 是单条消息，由若干文本片段组成。
type Content struct {
	Parts []*Part     `json:"parts,omitempty"`
	Role  SpeakerRole `json:"role,omitempty"`
}

// Part 是消息中的一个文本片段。
type Part struct {
	Text string `json:"text,omitempty"`
}

// GenerateContentRequest 定义了生成内容的请求结构。
type GenerateContentRequest struct {
	Content []Content `json:"content,omitempty"`
}

// GenerateContentResponse 定义了生成内容的响应结构。
type GenerateContentResponse struct {
	Content      []Content `json:"content,omitempty"`
	CreateTime   time.Time `json:"createTime,omitempty"`
	ResponseID   string    `json:"responseId,omitempty"`
	ModelVersion string    `json:"modelVersion,omitempty"`
}

// NewTextRequest 构造一个只有系统提示和用户问题的请求。system 为空时省略。
func NewTextRequest(system, question string) *GenerateContentRequest {
	req := &GenerateContentRequest{}
	if system != "" {
		req.Content = append(req.Content, Content{Role: SpeakerSystem, Parts: []*Part{{Text: system}}})
	}
	req.Content = append(req.Content, Content{Role: SpeakerUser, Parts: []*Part{{Text: question}}})
	return req
}

// Text 拼接第一条候选消息的全部文本片段。
func (r *GenerateContentResponse) Text() string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Content[0].Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}
