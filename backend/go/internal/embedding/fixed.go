package embedding

import (
	"EnterpriseAgent/backend/go/internal/errs"
	"context"
	"fmt"
	"math"
	"time"
)

// Fixed 保证下游拿到的向量恰好是 dim 维且分量有限。
// 模型失败、超时或返回了错误维度的向量都以 errs.KindEmbedding 返回。
type Fixed struct {
	inner   Embedding
	dim     int
	timeout time.Duration
}

// NewFixed 包装 inner。timeout<=0 表示不额外设置超时。
func NewFixed(inner Embedding, dim int, timeout time.Duration) *Fixed {
	return &Fixed{inner: inner, dim: dim, timeout: timeout}
}

// Dimension 返回向量维度。
func (f *Fixed) Dimension() int {
	return f.dim
}

// Embed 生成并校验向量。
func (f *Fixed) Embed(ctx context.Context, text string) ([]float32, error) {
	const op = "embedding.Embed"
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	vec, err := f.inner.Embed(ctx, text)
	if err != nil {
		return nil, errs.E(errs.KindEmbedding, op, err)
	}
	if err := checkVector(vec, f.dim); err != nil {
		return nil, errs.E(errs.KindEmbedding, op, err)
	}
	return vec, nil
}

// checkVector 要求 vec 恰好 dim 维且没有 NaN/Inf。
func checkVector(vec []float32, dim int) error {
	if len(vec) != dim {
		return fmt.Errorf("got %d dimensions, want %d", len(vec), dim)
	}
	for i, x := range vec {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("component %d is not finite", i)
		}
	}
	return nil
}
