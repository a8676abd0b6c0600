package cards

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/loyalty-backend/internal/features/economy"
	"serotonyl.ru/loyalty-backend/internal/server/middleware"
)

// Handler: /api/cards, /api/box/burn, /api/box/fuse.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик карт.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List: GET /api/cards
func (h *Handler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	if list == nil {
		list = []*economy.Card{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cards": list})
}

type burnRequest struct {
	CardID int64 `json:"cardId" binding:"required"`
}

// Burn: POST /api/box/burn {cardId}
func (h *Handler) Burn(c *gin.Context) {
	var body burnRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}
	res, err := h.service.Burn(c.Request.Context(), middleware.CurrentUserID(c), body.CardID)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"added":      res.Added,
		"totalCoins": res.TotalCoins,
	})
}

type fuseRequest struct {
	Rarity economy.Rarity `json:"rarity" binding:"required"`
}

// Fuse: POST /api/box/fuse {rarity}
func (h *Handler) Fuse(c *gin.Context) {
	var body fuseRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}
	res, err := h.service.Fuse(c.Request.Context(), middleware.CurrentUserID(c), body.Rarity)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"fusedInto": gin.H{
			"id":     res.Card.ID,
			"cardId": res.Card.CatalogID,
			"name":   res.Card.Name,
			"rarity": res.Card.Rarity,
		},
		"consumed": res.Consumed,
	})
}
