package box

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/loyalty-backend/internal/server/middleware"
)

// Handler: POST /api/box/open.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик боксов.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Open: POST /api/box/open
func (h *Handler) Open(c *gin.Context) {
	res, err := h.service.Open(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"card":        res.Card,
		"boxesLeft":   res.BoxesLeft,
		"rewardCoins": res.RewardCoins,
		"totalCoins":  res.TotalCoins,
	})
}
