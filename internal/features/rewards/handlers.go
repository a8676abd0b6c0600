package rewards

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/loyalty-backend/internal/features/economy"
	"serotonyl.ru/loyalty-backend/internal/server/middleware"
)

// Handler: /api/rewards и /api/admin/rewards.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик наград.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List: GET /api/rewards
func (h *Handler) List(c *gin.Context) {
	list, err := h.service.Available(c.Request.Context())
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	if list == nil {
		list = []*economy.Reward{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rewards": list})
}

type redeemRequest struct {
	RewardID int64 `json:"rewardId" binding:"required"`
}

// Redeem: POST /api/rewards/redeem {rewardId}
func (h *Handler) Redeem(c *gin.Context) {
	var body redeemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}
	res, err := h.service.Redeem(c.Request.Context(), middleware.CurrentUserID(c), body.RewardID)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}

	reward := gin.H{"id": res.Reward.ID, "title": res.Reward.Title, "type": res.Reward.Type}
	if res.Redemption.Code != "" {
		reward["code"] = res.Redemption.Code
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"coins":       res.Coins,
		"boxes":       res.Boxes,
		"spinTickets": res.SpinTickets,
		"reward":      reward,
	})
}

// History: GET /api/rewards/history
func (h *Handler) History(c *gin.Context) {
	list, err := h.service.History(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	if list == nil {
		list = []*economy.Redemption{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "history": list})
}

// AdminList: GET /api/admin/rewards
func (h *Handler) AdminList(c *gin.Context) {
	list, err := h.service.All(c.Request.Context())
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	if list == nil {
		list = []*economy.Reward{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rewards": list})
}

type rewardRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	PriceCoins  int64              `json:"priceCoins"`
	Type        economy.RewardType `json:"type"`
	Stock       *int64             `json:"stock"`
	Active      *bool              `json:"active"`
}

func (r rewardRequest) toReward() *economy.Reward {
	out := &economy.Reward{
		Title:       r.Title,
		Description: r.Description,
		PriceCoins:  r.PriceCoins,
		Type:        r.Type,
		Stock:       economy.UnlimitedStock,
		Active:      true,
	}
	if r.Stock != nil {
		out.Stock = *r.Stock
	}
	if r.Active != nil {
		out.Active = *r.Active
	}
	return out
}

// AdminCreate: POST /api/admin/rewards
func (h *Handler) AdminCreate(c *gin.Context) {
	var body rewardRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}
	created, err := h.service.Create(c.Request.Context(), middleware.CurrentUserID(c), body.toReward())
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "reward": created})
}

// AdminUpdate: PUT /api/admin/rewards/:id
func (h *Handler) AdminUpdate(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}
	var body rewardRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}
	r := body.toReward()
	r.ID = id
	updated, err := h.service.Update(c.Request.Context(), middleware.CurrentUserID(c), r)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reward": updated})
}

// AdminDelete: DELETE /api/admin/rewards/:id
func (h *Handler) AdminDelete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}
	if err := h.service.Delete(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
