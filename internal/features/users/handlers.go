package users

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/loyalty-backend/internal/server/middleware"
)

// Handler: /api/auth/*
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик аутентификации.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register: POST /api/auth/register {email, password}
func (h *Handler) Register(c *gin.Context) {
	var body credentials
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}
	sess, err := h.service.Register(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": sess.Token, "user": sess.User})
}

// Login: POST /api/auth/login {email, password}
func (h *Handler) Login(c *gin.Context) {
	var body credentials
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.WriteError(c, middleware.ErrBadRequest)
		return
	}
	sess, err := h.service.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": sess.Token, "user": sess.User})
}

// Me: GET /api/auth/me
func (h *Handler) Me(c *gin.Context) {
	profile, err := h.service.Me(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": profile})
}
