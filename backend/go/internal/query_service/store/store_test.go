package store

import (
	"EnterpriseAgent/backend/go/internal/config"
	"EnterpriseAgent/backend/go/internal/database/mysql"
	"EnterpriseAgent/backend/go/internal/models"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestStore 在临时目录中创建一个 sqlite 数据库并完成建表。连接池只有一个连接。
func newTestStore(t *testing.T, limit uint, dim int) *Store {
	t.Helper()
	return NewStore(openTestDB(t, filepath.Join(t.TempDir(), "store.db"), 1), limit, dim)
}

// newSharedStore 与 newTestStore 相同，但允许 conns 个连接同时访问同一个文件，
// 写锁冲突时由 busy_timeout 等待，事务之间真正交错执行。
func newSharedStore(t *testing.T, limit uint, dim, conns int) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "shared.db") + "?_pragma=busy_timeout(10000)"
	return NewStore(openTestDB(t, dsn, conns), limit, dim)
}

func openTestDB(t *testing.T, dsn string, conns int) *gorm.DB {
	t.Helper()
	db, err := mysql.Open(&config.MySQLConfig{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, mysql.AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func mustCreateUser(t *testing.T, s *Store, name string) *models.User {
	t.Helper()
	u, err := s.Users.CreateUser(context.Background(), name)
	require.NoError(t, err)
	return u
}

func mustGetUser(t *testing.T, s *Store, id uint) *models.User {
	t.Helper()
	u, err := s.Users.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func mustAppend(t *testing.T, s *Store, rec models.QueryRecord) uint64 {
	t.Helper()
	id, err := s.Ledger.Append(context.Background(), &rec)
	require.NoError(t, err)
	return id
}

func ms(v float64) *float64 { return &v }

var day1 = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
