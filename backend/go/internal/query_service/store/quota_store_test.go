package store

import (
	"EnterpriseAgent/backend/go/internal/errs"
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryConsumeCountsDownToDenial(t *testing.T) {
	s := newTestStore(t, 3, 4)
	u := mustCreateUser(t, s, "alice")
	ctx := context.Background()

	for _, want := range []uint{2, 1, 0} {
		d, err := s.Quota.TryConsume(ctx, u.ID, day1)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, want, d.Remaining)
	}

	d, err := s.Quota.TryConsume(ctx, u.ID, day1.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	got := mustGetUser(t, s, u.ID)
	assert.Equal(t, uint(3), got.DailyRequests, "denied attempt must not increment")
	assert.Equal(t, uint(3), got.TotalRequests)
	require.NotNil(t, got.LastRequestAt)
	assert.True(t, got.LastRequestAt.Equal(day1), "last request date is only moved on reset")
}

func TestTryConsumeResetsOnNewUTCDay(t *testing.T) {
	s := newTestStore(t, 2, 4)
	u := mustCreateUser(t, s, "bob")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.Quota.TryConsume(ctx, u.ID, day1)
		require.NoError(t, err)
	}
	d, err := s.Quota.TryConsume(ctx, u.ID, day1)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	// 23:59 同一天仍然拒绝。
	lateSameDay := time.Date(2026, 10, 17, 23, 59, 59, 0, time.UTC)
	d, err = s.Quota.TryConsume(ctx, u.ID, lateSameDay)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	// 非 UTC 时区传入的时间也按 UTC 自然日结算。
	shanghai := time.FixedZone("UTC+8", 8*3600)
	nextDay := time.Date(2026, 10, 18, 7, 0, 0, 0, shanghai) // 2026-10-17 23:00 UTC
	d, err = s.Quota.TryConsume(ctx, u.ID, nextDay)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	day2 := time.Date(2026, 10, 18, 0, 0, 1, 0, time.UTC)
	d, err = s.Quota.TryConsume(ctx, u.ID, day2)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, uint(1), d.Remaining)

	got := mustGetUser(t, s, u.ID)
	assert.Equal(t, uint(1), got.DailyRequests)
	assert.Equal(t, uint(3), got.TotalRequests)
	require.NotNil(t, got.LastRequestAt)
	assert.True(t, got.LastRequestAt.Equal(day2))
}

func TestTryConsumeDeniedAttemptStillCommitsReset(t *testing.T) {
	s := newTestStore(t, 0, 4)
	u := mustCreateUser(t, s, "carol")

	d, err := s.Quota.TryConsume(context.Background(), u.ID, day1)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	got := mustGetUser(t, s, u.ID)
	assert.Equal(t, uint(0), got.DailyRequests)
	assert.Equal(t, uint(0), got.TotalRequests)
	require.NotNil(t, got.LastRequestAt)
	assert.True(t, got.LastRequestAt.Equal(day1))
}

func TestTryConsumeUnknownUser(t *testing.T) {
	s := newTestStore(t, 5, 4)

	_, err := s.Quota.TryConsume(context.Background(), 999, day1)
	assert.True(t, errors.Is(err, errs.ErrUserNotFound))
}

func TestTryConsumeStoreUnavailable(t *testing.T) {
	s := newTestStore(t, 5, 4)
	u := mustCreateUser(t, s, "dave")
	sqlDB, err := s.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = s.Quota.TryConsume(context.Background(), u.ID, day1)
	assert.True(t, errors.Is(err, errs.ErrQuotaUnavailable))
}

// 单连接下事务被连接池串行化，这里只验证串行语义与剩余名额的分配；
// 多连接交错的情况见 TestTryConsumeContendedConnections。
func TestTryConsumeConcurrentNeverOverruns(t *testing.T) {
	const limit, callers = 20, 64
	s := newTestStore(t, limit, 4)
	u := mustCreateUser(t, s, "racer")
	other := mustCreateUser(t, s, "bystander")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		remaining []uint
		failures  []error
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			d, err := s.Quota.TryConsume(context.Background(), u.ID, day1)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			if d.Allowed {
				remaining = append(remaining, d.Remaining)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, failures)
	require.Len(t, remaining, limit)
	sort.Slice(remaining, func(i, j int) bool { return remaining[i] < remaining[j] })
	for i, r := range remaining {
		assert.Equal(t, uint(i), r, "each remaining value is handed out exactly once")
	}

	got := mustGetUser(t, s, u.ID)
	assert.Equal(t, uint(limit), got.DailyRequests)
	assert.Equal(t, uint(limit), got.TotalRequests)

	// 另一个用户的配额不受影响。
	d, err := s.Quota.TryConsume(context.Background(), other.ID, day1)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, uint(limit-1), d.Remaining)
}

func TestTryConsumeContendedConnections(t *testing.T) {
	const limit, callers, conns = 10, 48, 8
	s := newSharedStore(t, limit, 4, conns)
	u := mustCreateUser(t, s, "racer")
	yesterday := day1.Add(-24 * time.Hour)

	// 昨天用满的计数器，今天第一批并发请求同时触发清零。
	for i := 0; i < limit; i++ {
		_, err := s.Quota.TryConsume(context.Background(), u.ID, yesterday)
		require.NoError(t, err)
	}

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
		mu      sync.Mutex
		errList []error
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			d, err := s.Quota.TryConsume(context.Background(), u.ID, day1)
			if err != nil {
				mu.Lock()
				errList = append(errList, err)
				mu.Unlock()
				return
			}
			if d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, errList)
	assert.Equal(t, int32(limit), allowed.Load())
	got := mustGetUser(t, s, u.ID)
	assert.Equal(t, uint(limit), got.DailyRequests)
	assert.Equal(t, uint(2*limit), got.TotalRequests)
}
