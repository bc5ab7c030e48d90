package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "gdz-miniapp-backend/internal/common/errors"
	"gdz-miniapp-backend/internal/common/middleware"
	authservice "gdz-miniapp-backend/internal/features/auth/service"
	"gdz-miniapp-backend/internal/features/solve/models"
	"gdz-miniapp-backend/internal/features/solve/service"
)

type SolveHandler struct {
	service service.SolveService
}

func NewSolveHandler(service service.SolveService) *SolveHandler {
	return &SolveHandler{
		service: service,
	}
}

func (h *SolveHandler) RegisterRoutes(router *gin.RouterGroup, auth authservice.AuthService) {
	router.POST("/solve", middleware.TelegramAuth(auth), h.solve)
}

// @Summary Solve a task
// @Description Runs the quota check, calls the AI provider and counts usage on success
// @Tags solve
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param request body models.SolveRequest true "Task text and/or photo"
// @Success 200 {object} models.SolveResponse "Solution"
// @Failure 400 {object} usermodels.ErrorResponse "Empty task"
// @Failure 401 {object} usermodels.ErrorResponse "Missing or invalid init data"
// @Failure 403 {object} usermodels.ErrorResponse "Banned or user ID mismatch"
// @Failure 429 {object} usermodels.ErrorResponse "Free limit exhausted"
// @Failure 502 {object} usermodels.ErrorResponse "AI provider failure"
// @Router /api/solve [post]
func (h *SolveHandler) solve(c *gin.Context) {
	var req models.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	claim := middleware.GetClaim(c)
	userID, err := claim.ResolveID(req.TelegramID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "User ID mismatch"})
		return
	}

	answer, err := h.service.Solve(c.Request.Context(), &req, userID)
	if err != nil {
		h.respondSolveError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SolveResponse{Answer: answer})
}

func (h *SolveHandler) respondSolveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyTask):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Either text or image must be provided."})
	case errors.Is(err, service.ErrProviderNotConfigured):
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "AI provider is not configured."})
	case errors.Is(err, service.ErrBanned):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Ваш аккаунт заблокирован."})
	case errors.Is(err, service.ErrLimitExceeded):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Лимит запросов исчерпан. Подождите 7 дней или оформите Pro-подписку."})
	case errors.Is(err, service.ErrProviderFailure):
		middleware.RespondError(c, apperrors.NewExternalAPIError("AI provider", err))
	default:
		// Отказ хранилища — это сбой сервиса, не отказ в квоте
		middleware.RespondError(c, apperrors.NewStoreError("solve", err))
	}
}
