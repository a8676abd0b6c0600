// Package economy: handlers.go обрабатывает запросы кошелька:
// GET /api/balance (баланс) и GET /api/transactions (история).
package economy

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/loyalty-backend/internal/server/middleware"
)

// Handler обрабатывает запросы экономики.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик экономики.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Balance: GET /api/balance
func (h *Handler) Balance(c *gin.Context) {
	u, err := h.service.GetUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"coins":       u.Coins,
		"boxes":       u.Boxes,
		"spinTickets": u.SpinTickets,
	})
}

// Transactions: GET /api/transactions?limit=50
// Новые записи сверху.
func (h *Handler) Transactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.service.History(c.Request.Context(), middleware.CurrentUserID(c), limit)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	if list == nil {
		list = []*Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": list})
}
