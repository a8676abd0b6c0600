package spin

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/loyalty-backend/internal/server/middleware"
)

// Handler: /api/spin.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик спина.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type spinRequest struct {
	Mode string `json:"mode"`
}

// Spin: POST /api/spin {mode}
func (h *Handler) Spin(c *gin.Context) {
	var body spinRequest
	// пустое тело означает бесплатный спин
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}
	mode, err := ParseMode(body.Mode)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}

	res, err := h.service.Spin(c.Request.Context(), middleware.CurrentUserID(c), mode)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"outcome":      res.Outcome,
		"outcomeType":  res.OutcomeType,
		"prize":        res.Prize,
		"mysteryBoxes": res.MysteryBoxes,
		"totalCoins":   res.TotalCoins,
		"boxes":        res.Boxes,
		"spinTickets":  res.SpinTickets,
		"ticketUsed":   res.TicketUsed,
	})
}

// Status: GET /api/spin/status
func (h *Handler) Status(c *gin.Context) {
	st, err := h.service.Status(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": st})
}
