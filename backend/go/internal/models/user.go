package models

import (
	"time"

	"gorm.io/gorm"
)

// User 代表系统中的一个用户账户。
// 账户本身由外部的注册/认证服务维护，这里只关心配额相关字段。
type User struct {
	gorm.Model

	Username string `gorm:"unique;not null;size:255"`

	// 配额字段。DailyRequests 只在 LastRequestAt 所在的自然日(UTC)内有效。
	DailyRequests uint       `gorm:"not null;default:0"`
	TotalRequests uint       `gorm:"not null;default:0"`
	LastRequestAt *time.Time `gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
