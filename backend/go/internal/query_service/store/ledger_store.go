package store

import (
	"EnterpriseAgent/backend/go/internal/errs"
	"EnterpriseAgent/backend/go/internal/models"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// LedgerStats 是账本的聚合统计。没有任何记录或没有耗时数据时，对应字段为 nil。
type LedgerStats struct {
	Count         int64      `json:"total_queries"`
	AvgResponseMs *float64   `json:"avg_response_ms"`
	MinResponseMs *float64   `json:"min_response_ms"`
	MaxResponseMs *float64   `json:"max_response_ms"`
	LatestAt      *time.Time `json:"latest_query_at"`
}

// Ledger 是问答记录的只追加账本。记录 ID 由数据库自增分配，不会复用。
type Ledger struct {
	db    *gorm.DB
	index *VectorIndex
}

// NewLedger 创建一个新的 Ledger 实例。index 用于在同一事务中写入记录的向量。
func NewLedger(db *gorm.DB, index *VectorIndex) *Ledger {
	return &Ledger{db: db, index: index}
}

// Append 追加一条记录并返回分配的 ID。
// 若 rec.Embedding 非空，记录与其向量在同一事务中提交，要么都写入要么都不写入。
func (l *Ledger) Append(ctx context.Context, rec *models.QueryRecord) (uint64, error) {
	const op = "ledger.Append"
	if rec.ID != 0 {
		return 0, errs.E(errs.KindInvalidArgument, op, errors.New("record already has an id"))
	}
	if rec.Embedding != nil {
		if err := l.index.CheckDimension(op, rec.Embedding); err != nil {
			return 0, err
		}
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return errs.E(errs.KindStore, op, err)
		}
		if rec.Embedding == nil {
			return nil
		}
		return l.index.insertTx(tx, rec.ID, rec.Embedding)
	})
	if err != nil {
		rec.ID = 0
		return 0, err
	}
	return rec.ID, nil
}

// ListForUser 按 ID 倒序返回用户的记录，最新的在前。limit<=0 表示不限制。
func (l *Ledger) ListForUser(ctx context.Context, userID uint, limit int) ([]models.QueryRecord, error) {
	q := l.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	records := []models.QueryRecord{}
	if err := q.Find(&records).Error; err != nil {
		return nil, errs.E(errs.KindStore, "ledger.ListForUser", err)
	}
	return records, nil
}

// GetByIDs 按 ID 批量读取记录。不存在的 ID 不会出现在结果中。
func (l *Ledger) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]models.QueryRecord, error) {
	out := make(map[uint64]models.QueryRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var records []models.QueryRecord
	if err := l.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, errs.E(errs.KindStore, "ledger.GetByIDs", err)
	}
	for _, r := range records {
		out[r.ID] = r
	}
	return out, nil
}

// Aggregate 返回记录数、耗时的平均/最小/最大值以及最新记录时间。
func (l *Ledger) Aggregate(ctx context.Context) (LedgerStats, error) {
	var stats LedgerStats
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		stats, err = aggregateTx(tx)
		return err
	}, snapshotOptions(l.db))
	if err != nil {
		return LedgerStats{}, errs.E(errs.KindStore, "ledger.Aggregate", err)
	}
	return stats, nil
}

// aggregateTx 在调用方提供的事务中完成聚合，供 Analytics 复用同一快照。
func aggregateTx(tx *gorm.DB) (LedgerStats, error) {
	var row struct {
		Count int64
		AvgMs *float64
		MinMs *float64
		MaxMs *float64
	}
	err := tx.Model(&models.QueryRecord{}).
		Select("COUNT(*) AS count, AVG(response_time_ms) AS avg_ms, MIN(response_time_ms) AS min_ms, MAX(response_time_ms) AS max_ms").
		Scan(&row).Error
	if err != nil {
		return LedgerStats{}, err
	}

	stats := LedgerStats{
		Count:         row.Count,
		AvgResponseMs: row.AvgMs,
		MinResponseMs: row.MinMs,
		MaxResponseMs: row.MaxMs,
	}
	if row.Count == 0 {
		return stats, nil
	}

	var latest []models.QueryRecord
	if err := tx.Select("id", "created_at").Order("created_at DESC, id DESC").Limit(1).Find(&latest).Error; err != nil {
		return LedgerStats{}, err
	}
	if len(latest) == 1 {
		at := latest[0].CreatedAt.UTC()
		stats.LatestAt = &at
	}
	return stats, nil
}
