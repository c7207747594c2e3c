package store

import (
	"EnterpriseAgent/backend/go/internal/errs"
	"EnterpriseAgent/backend/go/internal/models"
	"context"
	"strings"

	"gorm.io/gorm"
)

// Users 提供最小化的用户读写。注册、密码与令牌由外部服务负责。
type Users struct {
	db *gorm.DB
}

// NewUsers 创建一个新的 Users 实例。
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// CreateUser 创建一个配额为零的新用户。
func (s *Users) CreateUser(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errs.E(errs.KindInvalidArgument, "users.CreateUser", nil)
	}
	user := &models.User{Username: username}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, errs.E(errs.KindStore, "users.CreateUser", err)
	}
	return user, nil
}

// GetUserByID 通过 ID 查找用户。
func (s *Users) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&users).Error; err != nil {
		return nil, errs.E(errs.KindStore, "users.GetUserByID", err)
	}
	if len(users) == 0 {
		return nil, errs.E(errs.KindUserNotFound, "users.GetUserByID", nil)
	}
	return &users[0], nil
}
