package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdz-miniapp-backend/internal/features/user/models"
	"gdz-miniapp-backend/internal/features/user/repository"
)

// fakeStore — UsageStore в памяти с той же семантикой upsert, что и у
// SQL-бэкендов. Позволяет гонять квотные сценарии без базы.
type fakeStore struct {
	records map[int64]*models.UserRecord
	nowSec  func() float64
}

func newFakeStore(nowSec func() float64) *fakeStore {
	return &fakeStore{records: make(map[int64]*models.UserRecord), nowSec: nowSec}
}

func (f *fakeStore) GetOrCreate(_ context.Context, id int64, username, firstName string) (*models.UserRecord, error) {
	if rec, ok := f.records[id]; ok {
		if username != "" {
			rec.Username = username
		}
		if firstName != "" {
			rec.FirstName = firstName
		}
		cp := *rec
		return &cp, nil
	}
	rec := &models.UserRecord{
		TelegramID:  id,
		Username:    username,
		FirstName:   firstName,
		PeriodStart: f.nowSec(),
		CreatedAt:   f.nowSec(),
	}
	f.records[id] = rec
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, id int64, username, firstName string) error {
	rec, ok := f.records[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if username != "" {
		rec.Username = username
	}
	if firstName != "" {
		rec.FirstName = firstName
	}
	return nil
}

func (f *fakeStore) IncrementUsage(_ context.Context, id int64) error {
	rec, ok := f.records[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	rec.RequestsUsed++
	return nil
}

func (f *fakeStore) ResetUsage(_ context.Context, id int64, at time.Time) error {
	rec, ok := f.records[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	rec.RequestsUsed = 0
	rec.PeriodStart = float64(at.UnixMilli()) / 1000
	return nil
}

func (f *fakeStore) SetPro(_ context.Context, id int64, value bool) error {
	rec, ok := f.records[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	rec.IsPro = value
	return nil
}

func (f *fakeStore) SetBanned(_ context.Context, id int64, value bool) error {
	rec, ok := f.records[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	rec.IsBanned = value
	return nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]*models.UserRecord, error) {
	out := make([]*models.UserRecord, 0, len(f.records))
	for _, rec := range f.records {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

// testClock — подменяемое время для квотных сценариев.
type testClock struct {
	current time.Time
}

func (c *testClock) now() time.Time { return c.current }

func (c *testClock) nowSec() float64 { return float64(c.current.UnixMilli()) / 1000 }

func (c *testClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestService(freeLimit int) (*userService, *fakeStore, *testClock) {
	clock := &testClock{current: time.Unix(1710500000, 0)}
	store := newFakeStore(clock.nowSec)
	svc := NewUserService(store, freeLimit, 7*24*time.Hour).(*userService)
	svc.now = clock.now
	return svc, store, clock
}

func TestEvaluate_NewUserGetsFullQuota(t *testing.T) {
	svc, _, _ := newTestService(10)

	d, err := svc.Evaluate(context.Background(), 42, "rogue", "Андрей")
	require.NoError(t, err)

	assert.True(t, d.Allowed)
	assert.Equal(t, int64(10), d.Remaining)
	assert.Equal(t, models.ReasonFree, d.Reason)
}

func TestEvaluate_LimitExhaustion(t *testing.T) {
	svc, _, _ := newTestService(10)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		d, err := svc.Evaluate(ctx, 42, "", "")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "call %d should be allowed", i+1)
		assert.Equal(t, int64(10-i), d.Remaining)
		require.NoError(t, svc.RecordUsage(ctx, 42))
	}

	d, err := svc.Evaluate(ctx, 42, "", "")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(0), d.Remaining)
	assert.Equal(t, models.ReasonLimit, d.Reason)
}

func TestEvaluate_CooldownResetsQuota(t *testing.T) {
	svc, _, clock := newTestService(10)
	ctx := context.Background()

	// День 0: пользователь 42 выбирает лимит полностью
	for i := 0; i < 10; i++ {
		_, err := svc.Evaluate(ctx, 42, "", "")
		require.NoError(t, err)
		require.NoError(t, svc.RecordUsage(ctx, 42))
	}

	// День 1: всё ещё отказ
	clock.advance(24 * time.Hour)
	d, err := svc.Evaluate(ctx, 42, "", "")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, models.ReasonLimit, d.Reason)

	// День 8: окно вышло, квота восстановлена
	clock.advance(7 * 24 * time.Hour)
	d, err = svc.Evaluate(ctx, 42, "", "")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(10), d.Remaining)
	assert.Equal(t, models.ReasonFree, d.Reason)
}

func TestEvaluate_CooldownBoundary(t *testing.T) {
	svc, store, clock := newTestService(10)
	ctx := context.Background()

	_, err := svc.Evaluate(ctx, 42, "", "")
	require.NoError(t, err)
	require.NoError(t, svc.RecordUsage(ctx, 42))

	// За секунду до границы окна счётчик ещё действует
	clock.advance(7*24*time.Hour - time.Second)
	d, err := svc.Evaluate(ctx, 42, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(9), d.Remaining)
	assert.Equal(t, int64(1), store.records[42].RequestsUsed)

	// Ровно на границе период сбрасывается
	clock.advance(time.Second)
	d, err = svc.Evaluate(ctx, 42, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(10), d.Remaining)
	assert.Equal(t, int64(0), store.records[42].RequestsUsed)
}

func TestEvaluate_ProIsUnlimited(t *testing.T) {
	svc, store, _ := newTestService(10)
	ctx := context.Background()

	_, err := svc.Evaluate(ctx, 42, "", "")
	require.NoError(t, err)
	require.NoError(t, store.SetPro(ctx, 42, true))
	store.records[42].RequestsUsed = 1000

	d, err := svc.Evaluate(ctx, 42, "", "")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, models.RemainingUnlimited, d.Remaining)
	assert.Equal(t, models.ReasonPro, d.Reason)
}

func TestEvaluate_BanBeatsPro(t *testing.T) {
	svc, store, _ := newTestService(10)
	ctx := context.Background()

	_, err := svc.Evaluate(ctx, 42, "", "")
	require.NoError(t, err)
	require.NoError(t, store.SetPro(ctx, 42, true))
	require.NoError(t, store.SetBanned(ctx, 42, true))

	d, err := svc.Evaluate(ctx, 42, "", "")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(0), d.Remaining)
	assert.Equal(t, models.ReasonBanned, d.Reason)
}

func TestGetProfile(t *testing.T) {
	svc, _, _ := newTestService(10)
	ctx := context.Background()

	_, err := svc.Evaluate(ctx, 42, "rogue", "Андрей")
	require.NoError(t, err)
	require.NoError(t, svc.RecordUsage(ctx, 42))

	profile, err := svc.GetProfile(ctx, 42, "", "")
	require.NoError(t, err)

	assert.Equal(t, int64(42), profile.TelegramID)
	assert.Equal(t, "rogue", profile.Username)
	assert.Equal(t, int64(1), profile.RequestsUsed)
	assert.Equal(t, int64(9), profile.Remaining)
	assert.True(t, profile.Allowed)
	assert.Equal(t, models.ReasonFree, profile.Reason)
}

func TestGetProfile_ProRemainingUnlimited(t *testing.T) {
	svc, store, _ := newTestService(10)
	ctx := context.Background()

	_, err := svc.Evaluate(ctx, 42, "", "")
	require.NoError(t, err)
	require.NoError(t, store.SetPro(ctx, 42, true))

	profile, err := svc.GetProfile(ctx, 42, "", "")
	require.NoError(t, err)
	assert.Equal(t, "unlimited", profile.Remaining)
}

func TestAdminResetUsage(t *testing.T) {
	svc, store, clock := newTestService(10)
	ctx := context.Background()

	_, err := svc.Evaluate(ctx, 42, "", "")
	require.NoError(t, err)
	require.NoError(t, svc.RecordUsage(ctx, 42))
	require.NoError(t, svc.RecordUsage(ctx, 42))

	require.NoError(t, svc.ResetUsage(ctx, 42))

	rec := store.records[42]
	assert.Equal(t, int64(0), rec.RequestsUsed)
	assert.Equal(t, clock.nowSec(), rec.PeriodStart)
}
