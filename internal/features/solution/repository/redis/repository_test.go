package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdz-miniapp-backend/internal/features/solution/repository"
)

func newTestRepository(t *testing.T, ttl time.Duration) (*Repository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRepository(client, ttl), mr
}

func TestTake_SingleView(t *testing.T) {
	repo, _ := newTestRepository(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, "abc", "решение"))

	content, err := repo.Take(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "решение", content)

	// GETDEL удаляет ключ на первом же просмотре
	_, err = repo.Take(ctx, "abc")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPut_SetsTTL(t *testing.T) {
	repo, mr := newTestRepository(t, time.Hour)

	require.NoError(t, repo.Put(context.Background(), "abc", "решение"))

	assert.Equal(t, time.Hour, mr.TTL("solution:abc"))
}

func TestTake_ExpiredKey(t *testing.T) {
	repo, mr := newTestRepository(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, "abc", "решение"))
	mr.FastForward(time.Hour + time.Second)

	_, err := repo.Take(ctx, "abc")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTake_UnknownID(t *testing.T) {
	repo, _ := newTestRepository(t, time.Hour)

	_, err := repo.Take(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
