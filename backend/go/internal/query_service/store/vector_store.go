package store

import (
	"EnterpriseAgent/backend/go/internal/errs"
	"EnterpriseAgent/backend/go/internal/models"
	"container/heap"
	"context"
	"fmt"
	"math"
	"slices"

	"gorm.io/gorm"
)

// Neighbor 是一次近邻查询的单个命中。
type Neighbor struct {
	RecordID uint64  `json:"id"`
	Distance float64 `json:"distance"`
}

// VectorIndex 保存定长向量并回答最近邻查询。
//
// 距离采用欧氏距离 (L2)。查询是对 vector_entries 的精确全表扫描，
// 分批读取并用大小为 k 的最大堆保留当前最好的 k 个结果；
// 结果按距离升序排列，距离相同时按记录 ID 升序。
type VectorIndex struct {
	db        *gorm.DB
	dim       int
	batchSize int
}

// NewVectorIndex 创建一个维度为 dim 的索引。
func NewVectorIndex(db *gorm.DB, dim int) *VectorIndex {
	return &VectorIndex{db: db, dim: dim, batchSize: 500}
}

// Dimension 返回索引的向量维度。
func (v *VectorIndex) Dimension() int {
	return v.dim
}

// CheckDimension 校验向量长度与分量取值。长度不符或含 NaN/Inf 都视为 dimension_mismatch。
func (v *VectorIndex) CheckDimension(op string, vec []float32) error {
	if len(vec) != v.dim {
		return errs.E(errs.KindDimensionMismatch, op, fmt.Errorf("want %d, got %d", v.dim, len(vec)))
	}
	for i, x := range vec {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return errs.E(errs.KindDimensionMismatch, op, fmt.Errorf("component %d is not finite", i))
		}
	}
	return nil
}

// Insert 在独立事务中写入一条向量。正常流程通过 Ledger.Append 与记录一起写入。
func (v *VectorIndex) Insert(ctx context.Context, recordID uint64, vec []float32) error {
	return v.insertTx(v.db.WithContext(ctx), recordID, vec)
}

func (v *VectorIndex) insertTx(tx *gorm.DB, recordID uint64, vec []float32) error {
	const op = "index.Insert"
	if err := v.CheckDimension(op, vec); err != nil {
		return err
	}
	entry := &models.VectorEntry{
		RecordID: recordID,
		Dim:      len(vec),
		Vector:   slices.Clone(vec),
	}
	if err := tx.Create(entry).Error; err != nil {
		return errs.E(errs.KindStore, op, err)
	}
	return nil
}

// Nearest 返回与 query 距离最近的至多 k 条记录。索引为空时返回空切片。
func (v *VectorIndex) Nearest(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	const op = "index.Nearest"
	if err := v.CheckDimension(op, query); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Neighbor{}, nil
	}

	top := make(neighborHeap, 0, k)
	var batch []models.VectorEntry
	var scanErr error
	res := v.db.WithContext(ctx).FindInBatches(&batch, v.batchSize, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			e := &batch[i]
			if len(e.Vector) != v.dim {
				scanErr = errs.E(errs.KindDimensionMismatch, op,
					fmt.Errorf("record %d stored with dimension %d", e.RecordID, len(e.Vector)))
				return scanErr
			}
			top.offer(Neighbor{RecordID: e.RecordID, Distance: l2(query, e.Vector)}, k)
		}
		return nil
	})
	if scanErr != nil {
		return nil, scanErr
	}
	if res.Error != nil {
		return nil, errs.E(errs.KindStore, op, res.Error)
	}

	out := []Neighbor(top)
	slices.SortFunc(out, compareNeighbors)
	return out, nil
}

// l2 计算欧氏距离，在 float64 上累加。
func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// compareNeighbors 定义结果顺序：距离升序，距离相同按 ID 升序。
func compareNeighbors(a, b Neighbor) int {
	switch {
	case a.Distance < b.Distance:
		return -1
	case a.Distance > b.Distance:
		return 1
	case a.RecordID < b.RecordID:
		return -1
	case a.RecordID > b.RecordID:
		return 1
	default:
		return 0
	}
}

// neighborHeap 是按 compareNeighbors 的最大堆，堆顶是当前最差的候选。
type neighborHeap []Neighbor

func (h neighborHeap) Len() int           { return len(h) }
func (h neighborHeap) Less(i, j int) bool { return compareNeighbors(h[i], h[j]) > 0 }
func (h neighborHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *neighborHeap) Push(x any) { *h = append(*h, x.(Neighbor)) }

func (h *neighborHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}

// offer 在堆未满时直接加入，否则仅当 n 优于堆顶时替换堆顶。
func (h *neighborHeap) offer(n Neighbor, k int) {
	if h.Len() < k {
		heap.Push(h, n)
		return
	}
	if compareNeighbors(n, (*h)[0]) < 0 {
		(*h)[0] = n
		heap.Fix(h, 0)
	}
}
