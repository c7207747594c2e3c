package store

import (
	"EnterpriseAgent/backend/go/internal/errs"
	"EnterpriseAgent/backend/go/internal/models"
	"context"
	"time"

	"gorm.io/gorm"
)

// GlobalStats 是全局的只读汇总。
type GlobalStats struct {
	TotalUsers   int64 `json:"total_users"`
	TodayQueries int64 `json:"today_queries"`
	LedgerStats
}

// Dashboard 是管理面板需要的全部数据，在同一快照内计算。
type Dashboard struct {
	GlobalStats
	MostActiveUser *uint  `json:"most_active_user"`
	UsersAtLimit   []uint `json:"users_at_limit"`
}

// Analytics 基于账本和用户表计算只读汇总。
// 每个方法都在单个只读事务中完成，不会看到并发追加的中间状态。
type Analytics struct {
	db *gorm.DB
}

// NewAnalytics 创建一个新的 Analytics 实例。
func NewAnalytics(db *gorm.DB) *Analytics {
	return &Analytics{db: db}
}

func (a *Analytics) snapshot(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	if err := a.db.WithContext(ctx).Transaction(fn, snapshotOptions(a.db)); err != nil {
		return errs.E(errs.KindStore, op, err)
	}
	return nil
}

// GlobalStats 返回用户数、记录数、当日记录数与耗时统计。now 决定“当日”。
func (a *Analytics) GlobalStats(ctx context.Context, now time.Time) (GlobalStats, error) {
	var out GlobalStats
	err := a.snapshot(ctx, "analytics.GlobalStats", func(tx *gorm.DB) error {
		var err error
		out, err = globalStatsTx(tx, now)
		return err
	})
	return out, err
}

// MostActiveUser 返回记录数最多的用户；并列时取 ID 最小者，账本为空时返回 nil。
func (a *Analytics) MostActiveUser(ctx context.Context) (*uint, error) {
	var out *uint
	err := a.snapshot(ctx, "analytics.MostActiveUser", func(tx *gorm.DB) error {
		var err error
		out, err = mostActiveUserTx(tx)
		return err
	})
	return out, err
}

// UsersAtLimit 返回当日计数已达到 limit 的用户 ID，按 ID 升序。
// 计数停留在以前某天的用户不计入，他们的下一次请求会先清零。
func (a *Analytics) UsersAtLimit(ctx context.Context, limit uint, now time.Time) ([]uint, error) {
	var out []uint
	err := a.snapshot(ctx, "analytics.UsersAtLimit", func(tx *gorm.DB) error {
		var err error
		out, err = usersAtLimitTx(tx, limit, now)
		return err
	})
	return out, err
}

// Dashboard 在同一快照中计算 GlobalStats、MostActiveUser 与 UsersAtLimit。
func (a *Analytics) Dashboard(ctx context.Context, limit uint, now time.Time) (Dashboard, error) {
	var out Dashboard
	err := a.snapshot(ctx, "analytics.Dashboard", func(tx *gorm.DB) error {
		var err error
		if out.GlobalStats, err = globalStatsTx(tx, now); err != nil {
			return err
		}
		if out.MostActiveUser, err = mostActiveUserTx(tx); err != nil {
			return err
		}
		out.UsersAtLimit, err = usersAtLimitTx(tx, limit, now)
		return err
	})
	return out, err
}

func globalStatsTx(tx *gorm.DB, now time.Time) (GlobalStats, error) {
	var out GlobalStats
	if err := tx.Model(&models.User{}).Count(&out.TotalUsers).Error; err != nil {
		return out, err
	}
	ledger, err := aggregateTx(tx)
	if err != nil {
		return out, err
	}
	out.LedgerStats = ledger

	dayStart, dayEnd := utcDay(now)
	err = tx.Model(&models.QueryRecord{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Count(&out.TodayQueries).Error
	return out, err
}

func mostActiveUserTx(tx *gorm.DB) (*uint, error) {
	var rows []struct {
		UserID uint
		Total  int64
	}
	err := tx.Model(&models.QueryRecord{}).
		Select("user_id, COUNT(*) AS total").
		Group("user_id").
		Order("total DESC, user_id ASC").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	id := rows[0].UserID
	return &id, nil
}

func usersAtLimitTx(tx *gorm.DB, limit uint, now time.Time) ([]uint, error) {
	dayStart, dayEnd := utcDay(now)
	ids := []uint{}
	err := tx.Model(&models.User{}).
		Where("daily_requests >= ?", limit).
		Where("last_request_at >= ? AND last_request_at < ?", dayStart, dayEnd).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}
