package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "gdz-miniapp-backend/internal/common/errors"
	"gdz-miniapp-backend/internal/common/middleware"
	authservice "gdz-miniapp-backend/internal/features/auth/service"
	"gdz-miniapp-backend/internal/features/solution/repository"
	"gdz-miniapp-backend/internal/features/solution/service"
)

type SolutionHandler struct {
	service service.SolutionService
}

func NewSolutionHandler(service service.SolutionService) *SolutionHandler {
	return &SolutionHandler{
		service: service,
	}
}

type createRequest struct {
	Answer string `json:"answer" binding:"required"`
}

type createResponse struct {
	URL string `json:"url"`
}

func (h *SolutionHandler) RegisterRoutes(router *gin.Engine, api *gin.RouterGroup, auth authservice.AuthService) {
	api.POST("/solution", middleware.TelegramAuth(auth), h.create)

	// Страница публичная: её секрет — сам одноразовый id
	router.GET("/solution/:id", h.view)
}

// @Summary Publish a one-time solution page
// @Tags solutions
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param request body createRequest true "Solution text"
// @Success 200 {object} createResponse "Relative page URL"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid init data"
// @Router /api/solution [post]
func (h *SolutionHandler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	url, err := h.service.Create(c.Request.Context(), req.Answer)
	if err != nil {
		middleware.RespondError(c, apperrors.NewStoreError("create solution", err))
		return
	}

	c.JSON(http.StatusOK, createResponse{URL: url})
}

// @Summary View a one-time solution page
// @Description Returns the HTML page exactly once; a second request is 404
// @Tags solutions
// @Produce html
// @Param id path string true "Solution ID"
// @Success 200 {string} string "HTML page"
// @Failure 404 {object} models.ErrorResponse "Already viewed or expired"
// @Router /solution/{id} [get]
func (h *SolutionHandler) view(c *gin.Context) {
	page, err := h.service.RenderPage(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Страница просмотрена или не существует"})
			return
		}
		middleware.RespondError(c, apperrors.NewStoreError("view solution", err))
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}
