package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdz-miniapp-backend/internal/features/solution/repository"
	"gdz-miniapp-backend/internal/features/solution/repository/memory"
)

func newTestService(t *testing.T) SolutionService {
	t.Helper()
	store := memory.NewRepository(time.Hour, 100)
	t.Cleanup(store.Close)
	return NewSolutionService(store)
}

func TestCreate_ReturnsSolutionURL(t *testing.T) {
	svc := newTestService(t)

	url, err := svc.Create(context.Background(), "x = 5")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(url, "/solution/"))

	id := strings.TrimPrefix(url, "/solution/")
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "solution id should be a uuid")
}

func TestRenderPage_OneTimeView(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	url, err := svc.Create(ctx, "Ответ: 42\nПроверка: верно")
	require.NoError(t, err)
	id := strings.TrimPrefix(url, "/solution/")

	page, err := svc.RenderPage(ctx, id)
	require.NoError(t, err)

	assert.Contains(t, page, "Решение готово")
	assert.Contains(t, page, "Ответ: 42<br>Проверка: верно")

	// Повторный просмотр — страница уже забрана
	_, err = svc.RenderPage(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRenderPage_EscapesHTML(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	url, err := svc.Create(ctx, `<script>alert("x")</script>`)
	require.NoError(t, err)
	id := strings.TrimPrefix(url, "/solution/")

	page, err := svc.RenderPage(ctx, id)
	require.NoError(t, err)

	assert.NotContains(t, page, "<script>")
	assert.Contains(t, page, "&lt;script&gt;")
}

func TestRenderPage_UnknownID(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RenderPage(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
