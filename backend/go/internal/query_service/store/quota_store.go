package store

import (
	"EnterpriseAgent/backend/go/internal/errs"
	"EnterpriseAgent/backend/go/internal/models"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// QuotaDecision 是一次配额检查的结果。
type QuotaDecision struct {
	Allowed   bool
	Remaining uint // 仅在 Allowed 时有意义
}

// QuotaTracker 以用户行为单位维护每日请求计数。
// 计数保存在 users 表中，读-判-增在同一个事务里通过条件 UPDATE 完成，
// 同一用户的并发请求由行锁串行化，不同用户之间互不阻塞。
type QuotaTracker struct {
	db    *gorm.DB
	limit uint
}

// NewQuotaTracker 创建一个新的 QuotaTracker 实例。
func NewQuotaTracker(db *gorm.DB, limit uint) *QuotaTracker {
	return &QuotaTracker{db: db, limit: limit}
}

// Limit 返回每日配额。
func (q *QuotaTracker) Limit() uint {
	return q.limit
}

// TryConsume 尝试为 userID 消耗一个配额名额。
//
// 步骤:
//  1. LastRequestAt 为空或不在 now 所在的 UTC 自然日时，将 DailyRequests 清零并把 LastRequestAt 设为 now；
//  2. 仅当 DailyRequests < limit 时原子地递增 DailyRequests 与 TotalRequests；
//  3. 读取递增后的计数计算剩余名额。
//
// 拒绝时除第 1 步的清零外不做任何修改。存储故障返回 quota_unavailable，调用方必须按拒绝处理。
func (q *QuotaTracker) TryConsume(ctx context.Context, userID uint, now time.Time) (QuotaDecision, error) {
	const op = "quota.TryConsume"
	now = now.UTC()
	dayStart, dayEnd := utcDay(now)

	var decision QuotaDecision
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 跨日清零。UPDATE 同时取得该行的写锁，直到事务提交。
		err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Where("(last_request_at IS NULL OR last_request_at < ? OR last_request_at >= ?)", dayStart, dayEnd).
			Updates(map[string]interface{}{
				"daily_requests":  0,
				"last_request_at": now,
			}).Error
		if err != nil {
			return err
		}

		// 2. 条件递增，判断与递增是同一条语句。
		res := tx.Model(&models.User{}).
			Where("id = ? AND daily_requests < ?", userID, q.limit).
			Updates(map[string]interface{}{
				"daily_requests": gorm.Expr("daily_requests + ?", 1),
				"total_requests": gorm.Expr("total_requests + ?", 1),
			})
		if res.Error != nil {
			return res.Error
		}

		// 3. 读取当前计数，同时区分“用户不存在”和“已达上限”。
		var users []models.User
		if err := tx.Select("id", "daily_requests").Where("id = ?", userID).Limit(1).Find(&users).Error; err != nil {
			return err
		}
		if len(users) == 0 {
			return errs.E(errs.KindUserNotFound, op, nil)
		}

		if res.RowsAffected == 0 {
			decision = QuotaDecision{Allowed: false}
			return nil
		}
		var remaining uint
		if used := users[0].DailyRequests; used < q.limit {
			remaining = q.limit - used
		}
		decision = QuotaDecision{Allowed: true, Remaining: remaining}
		return nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			return QuotaDecision{}, err
		}
		return QuotaDecision{}, errs.E(errs.KindQuotaUnavailable, op, err)
	}
	return decision, nil
}
