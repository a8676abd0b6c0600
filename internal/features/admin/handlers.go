// Package admin: handlers.go обрабатывает /api/admin/*.
// Вход открыт, остальные маршруты за middleware.RequireAdmin.
package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/loyalty-backend/internal/features/economy"
	"serotonyl.ru/loyalty-backend/internal/server/middleware"
)

// Handler обрабатывает админ-запросы.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик админ-панели.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login: POST /api/admin/login
func (h *Handler) Login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}
	sess, err := h.service.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   sess.Token,
		"admin":   gin.H{"email": sess.Email, "role": sess.Role},
	})
}

// KPIs: GET /api/admin/kpis?range=30
func (h *Handler) KPIs(c *gin.Context) {
	days := queryInt(c, "range", DefaultKPIRange)
	data, err := h.service.KPIs(c.Request.Context(), days)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// Users: GET /api/admin/users?limit=&offset=
func (h *Handler) Users(c *gin.Context) {
	list, err := h.service.Users(c.Request.Context(), queryInt(c, "limit", 100), queryInt(c, "offset", 0))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": list})
}

type banRequest struct {
	Banned bool `json:"banned"`
}

// Ban: POST /api/admin/users/:id/ban {banned}
func (h *Handler) Ban(c *gin.Context) {
	userID, ok := paramID(c)
	if !ok {
		return
	}
	var body banRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}
	if err := h.service.SetBanned(c.Request.Context(), middleware.CurrentUserID(c), userID, body.Banned); err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "userId": userID, "banned": body.Banned})
}

type adjustRequest struct {
	Delta  int64  `json:"delta" binding:"required"`
	Reason string `json:"reason"`
}

// Adjust: POST /api/admin/users/:id/adjust {delta, reason}
func (h *Handler) Adjust(c *gin.Context) {
	userID, ok := paramID(c)
	if !ok {
		return
	}
	var body adjustRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}
	user, err := h.service.AdjustCoins(c.Request.Context(), middleware.CurrentUserID(c), userID, body.Delta, body.Reason)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// Transactions: GET /api/admin/transactions?userId=&source=&limit=
func (h *Handler) Transactions(c *gin.Context) {
	f := economy.LedgerFilter{
		UserID: int64(queryInt(c, "userId", 0)),
		Source: economy.Source(c.Query("source")),
		Limit:  queryInt(c, "limit", 100),
	}
	list, err := h.service.Transactions(c.Request.Context(), f)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	if list == nil {
		list = []*economy.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": list})
}

// ProductCards: GET /api/admin/product-cards
func (h *Handler) ProductCards(c *gin.Context) {
	list, err := h.service.ProductCards(c.Request.Context())
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	if list == nil {
		list = []*economy.ProductCard{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "productCards": list})
}

type productCardRequest struct {
	ProductID int64  `json:"productId" binding:"required"`
	CatalogID int    `json:"catalogId" binding:"required"`
	Title     string `json:"title"`
	Active    *bool  `json:"active"`
}

// SetProductCard: PUT /api/admin/product-cards {productId, catalogId, title, active}
func (h *Handler) SetProductCard(c *gin.Context) {
	var body productCardRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}
	p := &economy.ProductCard{
		ProductID: body.ProductID,
		CatalogID: body.CatalogID,
		Title:     body.Title,
		Active:    body.Active == nil || *body.Active,
	}
	if err := h.service.SetProductCard(c.Request.Context(), middleware.CurrentUserID(c), p); err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "productCard": p})
}

// Audit: GET /api/admin/audit?limit=
func (h *Handler) Audit(c *gin.Context) {
	list, err := h.service.Audit(c.Request.Context(), queryInt(c, "limit", 100))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	if list == nil {
		list = []*economy.AuditEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "audit": list})
}

// queryInt читает целый query-параметр; при ошибке возвращает def.
func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return 0, false
	}
	return id, true
}
