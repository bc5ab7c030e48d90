package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authservice "gdz-miniapp-backend/internal/features/auth/service"
	"gdz-miniapp-backend/internal/features/solve/models"
	"gdz-miniapp-backend/internal/features/solve/service"
)

// fakeSolveService возвращает заранее заданный ответ либо ошибку и
// запоминает, с каким userID его вызвали.
type fakeSolveService struct {
	answer string
	err    error
	userID int64
	called bool
}

func (f *fakeSolveService) Solve(_ context.Context, _ *models.SolveRequest, userID int64) (string, error) {
	f.called = true
	f.userID = userID
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func newTestRouter(svc service.SolveService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api")
	// Open mode: заявленный telegram_id проходит как есть
	NewSolveHandler(svc).RegisterRoutes(api, authservice.NewAuthService(""))
	return router
}

func postSolve(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/solve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSolve_ReturnsAnswer(t *testing.T) {
	svc := &fakeSolveService{answer: "Ответ: 42"}
	router := newTestRouter(svc)

	w := postSolve(router, `{"text":"2+2*20","telegram_id":42}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.JSONEq(t, `{"answer":"Ответ: 42"}`, w.Body.String())
	assert.Equal(t, int64(42), svc.userID)
}

func TestSolve_InvalidBody(t *testing.T) {
	svc := &fakeSolveService{}
	router := newTestRouter(svc)

	w := postSolve(router, "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, svc.called)
}

func TestSolve_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "empty task", err: service.ErrEmptyTask, wantStatus: http.StatusBadRequest, wantBody: "Either text or image must be provided."},
		{name: "not configured", err: service.ErrProviderNotConfigured, wantStatus: http.StatusInternalServerError, wantBody: "AI provider is not configured."},
		{name: "banned", err: service.ErrBanned, wantStatus: http.StatusForbidden, wantBody: "Ваш аккаунт заблокирован."},
		{name: "limit", err: service.ErrLimitExceeded, wantStatus: http.StatusTooManyRequests, wantBody: "Лимит запросов исчерпан. Подождите 7 дней или оформите Pro-подписку."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&fakeSolveService{err: tt.err})

			w := postSolve(router, `{"text":"2+2","telegram_id":42}`)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}
