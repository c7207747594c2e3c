package llm

import (
	"EnterpriseAgent/backend/go/internal/errs"
	"EnterpriseAgent/backend/go/internal/models"
	"EnterpriseAgent/backend/go/pkg/circuitbreaker"
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultSystemPrompt 是每次生成附带的系统提示。
const DefaultSystemPrompt = "You are a helpful AI assistant."

// Generator 把 LLM 包装成 “问题 -> 回答” 的单次调用。
// 所有失败（包括超时和熔断）都以 errs.KindUpstream 返回。
type Generator struct {
	llm     LLM
	model   string
	system  string
	timeout time.Duration
	breaker circuitbreaker.CircuitBreaker
}

// NewGenerator 创建 Generator。timeout<=0 表示不额外设置超时，breaker 可以为 nil。
func NewGenerator(l LLM, model string, timeout time.Duration, breaker circuitbreaker.CircuitBreaker) *Generator {
	return &Generator{llm: l, model: model, system: DefaultSystemPrompt, timeout: timeout, breaker: breaker}
}

// Model 返回记录到问答记录中的模型名。
func (g *Generator) Model() string {
	return g.model
}

// Generate 针对 question 生成回答。
func (g *Generator) Generate(ctx context.Context, question string) (string, error) {
	const op = "llm.Generate"
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var answer string
	call := func() error {
		resp, err := g.llm.GenerateContent(ctx, models.NewTextRequest(g.system, question))
		if err != nil {
			return err
		}
		answer = strings.TrimSpace(resp.Text())
		if answer == "" {
			return errors.New("model returned an empty answer")
		}
		return nil
	}

	var err error
	if g.breaker != nil {
		err = g.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		return "", errs.E(errs.KindUpstream, op, err)
	}
	return answer, nil
}

// IgnoreCanceled 让熔断器忽略调用方主动取消的请求。
func IgnoreCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
