package gameconfig

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/loyalty-backend/internal/server/middleware"
)

// Handler: /api/admin/games/*.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик экранов настроек.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetSpin: GET /api/admin/games/spin
func (h *Handler) GetSpin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "config": h.service.Spin(c.Request.Context())})
}

// UpdateSpin: PUT /api/admin/games/spin
func (h *Handler) UpdateSpin(c *gin.Context) {
	var body SpinConfig
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}
	saved, err := h.service.UpdateSpin(c.Request.Context(), middleware.CurrentUserID(c), &body)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "config": saved})
}

// GetBox: GET /api/admin/games/box
func (h *Handler) GetBox(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "config": h.service.Box(c.Request.Context())})
}

// UpdateBox: PUT /api/admin/games/box
func (h *Handler) UpdateBox(c *gin.Context) {
	var body BoxConfig
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}
	saved, err := h.service.UpdateBox(c.Request.Context(), middleware.CurrentUserID(c), &body)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "config": saved})
}
