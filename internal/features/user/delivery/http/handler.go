package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "gdz-miniapp-backend/internal/common/errors"
	"gdz-miniapp-backend/internal/common/middleware"
	authservice "gdz-miniapp-backend/internal/features/auth/service"
	"gdz-miniapp-backend/internal/features/user/repository"
	"gdz-miniapp-backend/internal/features/user/service"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup, auth authservice.AuthService, adminSecret string) {
	router.GET("/user", middleware.TelegramAuth(auth), h.getProfile)

	admin := router.Group("/admin")
	admin.Use(middleware.RequireAdminSecret(adminSecret))
	{
		admin.GET("/users", h.listUsers)
		admin.POST("/pro", h.setPro)
		admin.POST("/ban", h.setBanned)
		admin.POST("/reset", h.resetUsage)
	}
}

// @Summary Get user profile with quota state
// @Description Returns the user record together with the current allow/deny decision. Creates the record on first call.
// @Tags users
// @Produce json
// @Security TelegramInitData
// @Param telegram_id query int true "Telegram user ID"
// @Param username query string false "Telegram username"
// @Param first_name query string false "Telegram first name"
// @Success 200 {object} models.ProfileResponse "Profile with quota state"
// @Failure 400 {object} models.ErrorResponse "Invalid telegram_id"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid init data"
// @Failure 403 {object} models.ErrorResponse "User ID mismatch"
// @Failure 500 {object} models.ErrorResponse "Store failure"
// @Router /api/user [get]
func (h *UserHandler) getProfile(c *gin.Context) {
	declared, err := strconv.ParseInt(c.Query("telegram_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid telegram_id"})
		return
	}

	claim := middleware.GetClaim(c)
	id, err := claim.ResolveID(declared)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "User ID mismatch"})
		return
	}
	if id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid telegram_id"})
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), id, c.Query("username"), c.Query("first_name"))
	if err != nil {
		middleware.RespondError(c, apperrors.NewStoreError("get profile", err))
		return
	}

	c.JSON(http.StatusOK, profile)
}

// @Summary List all users
// @Description Returns every user record, newest first (admin only)
// @Tags admin
// @Produce json
// @Param secret query string true "Admin secret"
// @Success 200 {array} models.UserRecord
// @Failure 403 {object} models.ErrorResponse "Wrong secret"
// @Router /api/admin/users [get]
func (h *UserHandler) listUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		middleware.RespondError(c, apperrors.NewStoreError("list users", err))
		return
	}

	c.JSON(http.StatusOK, users)
}

// @Summary Grant or revoke Pro
// @Tags admin
// @Produce json
// @Param telegram_id query int true "Telegram user ID"
// @Param value query bool false "Pro flag" default(true)
// @Param secret query string true "Admin secret"
// @Success 200 {object} map[string]bool
// @Failure 403 {object} models.ErrorResponse "Wrong secret"
// @Router /api/admin/pro [post]
func (h *UserHandler) setPro(c *gin.Context) {
	h.setFlag(c, h.service.SetPro)
}

// @Summary Ban or unban a user
// @Tags admin
// @Produce json
// @Param telegram_id query int true "Telegram user ID"
// @Param value query bool false "Ban flag" default(true)
// @Param secret query string true "Admin secret"
// @Success 200 {object} map[string]bool
// @Failure 403 {object} models.ErrorResponse "Wrong secret"
// @Router /api/admin/ban [post]
func (h *UserHandler) setBanned(c *gin.Context) {
	h.setFlag(c, h.service.SetBanned)
}

// @Summary Reset usage counter
// @Description Zeroes requests_used and starts a new period
// @Tags admin
// @Produce json
// @Param telegram_id query int true "Telegram user ID"
// @Param secret query string true "Admin secret"
// @Success 200 {object} map[string]bool
// @Failure 403 {object} models.ErrorResponse "Wrong secret"
// @Router /api/admin/reset [post]
func (h *UserHandler) resetUsage(c *gin.Context) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	if err := h.service.ResetUsage(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		middleware.RespondError(c, apperrors.NewStoreError("reset usage", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *UserHandler) setFlag(c *gin.Context, set func(ctx context.Context, id int64, value bool) error) {
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	value := true
	if raw := c.Query("value"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid value"})
			return
		}
		value = parsed
	}

	if err := set(c.Request.Context(), id, value); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		middleware.RespondError(c, apperrors.NewStoreError("set flag", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Query("telegram_id"), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid telegram_id"})
		return 0, false
	}
	return id, true
}
