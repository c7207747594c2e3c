package store

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// Store 聚合了查询服务用到的所有数据库组件，它们共享同一个 *gorm.DB。
type Store struct {
	DB        *gorm.DB
	Users     *Users
	Quota     *QuotaTracker
	Index     *VectorIndex
	Ledger    *Ledger
	Analytics *Analytics
}

// NewStore 创建一个新的 Store 实例。
// dailyLimit 为每日配额，dim 为向量维度。
func NewStore(db *gorm.DB, dailyLimit uint, dim int) *Store {
	index := NewVectorIndex(db, dim)
	return &Store{
		DB:        db,
		Users:     NewUsers(db),
		Quota:     NewQuotaTracker(db, dailyLimit),
		Index:     index,
		Ledger:    NewLedger(db, index),
		Analytics: NewAnalytics(db),
	}
}

// utcDay 返回 t 所在 UTC 自然日的起止时间 [start, end)。
func utcDay(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// snapshotOptions 返回只读快照事务的选项。
// MySQL 下使用 REPEATABLE READ，多条聚合语句看到同一快照；sqlite 的事务本身是串行的，使用默认选项。
func snapshotOptions(db *gorm.DB) *sql.TxOptions {
	if db.Dialector.Name() == "mysql" {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}
