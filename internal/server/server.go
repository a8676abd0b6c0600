// Package server собирает gin-движок: middleware, маршруты и жизненный цикл http.Server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/loyalty-backend/internal/features/admin"
	"serotonyl.ru/loyalty-backend/internal/features/box"
	"serotonyl.ru/loyalty-backend/internal/features/cards"
	"serotonyl.ru/loyalty-backend/internal/features/economy"
	"serotonyl.ru/loyalty-backend/internal/features/gameconfig"
	"serotonyl.ru/loyalty-backend/internal/features/rewards"
	"serotonyl.ru/loyalty-backend/internal/features/spin"
	"serotonyl.ru/loyalty-backend/internal/features/users"
	"serotonyl.ru/loyalty-backend/internal/features/webhook"
	"serotonyl.ru/loyalty-backend/internal/security"
	"serotonyl.ru/loyalty-backend/internal/server/middleware"
)

// Handlers: обработчики всех фич.
type Handlers struct {
	Users      *users.Handler
	Economy    *economy.Handler
	Spin       *spin.Handler
	Box        *box.Handler
	Cards      *cards.Handler
	Rewards    *rewards.Handler
	GameConfig *gameconfig.Handler
	Admin      *admin.Handler
	Webhook    *webhook.Handler
}

// Options: всё, что нужно движку помимо обработчиков.
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Production   bool

	UserIssuer  *security.Issuer
	AdminIssuer *security.Issuer
	Banned      middleware.BanChecker
	ActiveAdmin middleware.AdminChecker
	RateLimiter *middleware.RateLimiter
	// Health проверяет доступность хранилища для /health.
	Health func(ctx context.Context) error
}

// Server: HTTP-сервер API.
type Server struct {
	engine *gin.Engine
	http   *http.Server
}

// New собирает движок и регистрирует маршруты.
func New(opts Options, h Handlers) *Server {
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery(), middleware.RequestLogger())

	registerRoutes(engine, opts, h)

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:         opts.Addr,
			Handler:      engine,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		},
	}
}

// Handler отдаёт движок (для тестов через httptest).
func (s *Server) Handler() http.Handler {
	return s.engine
}

func registerRoutes(r *gin.Engine, opts Options, h Handlers) {
	r.GET("/health", health(opts.Health))

	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if opts.RateLimiter != nil {
		limit = opts.RateLimiter.Middleware()
	}

	api := r.Group("/api")

	// --- Публичные ---
	auth := api.Group("/auth", limit)
	auth.POST("/register", h.Users.Register)
	auth.POST("/login", h.Users.Login)

	api.POST("/webhooks/orders", h.Webhook.Orders)
	api.POST("/admin/login", limit, h.Admin.Login)

	// --- Пользователь ---
	authed := api.Group("", middleware.RequireAuth(opts.UserIssuer, opts.Banned), limit)
	authed.GET("/auth/me", h.Users.Me)

	authed.GET("/balance", h.Economy.Balance)
	authed.GET("/transactions", h.Economy.Transactions)

	authed.POST("/spin", h.Spin.Spin)
	authed.GET("/spin/status", h.Spin.Status)

	authed.GET("/cards", h.Cards.List)
	authed.POST("/box/open", h.Box.Open)
	authed.POST("/box/burn", h.Cards.Burn)
	authed.POST("/box/fuse", h.Cards.Fuse)

	authed.GET("/rewards", h.Rewards.List)
	authed.POST("/rewards/redeem", h.Rewards.Redeem)
	authed.GET("/rewards/history", h.Rewards.History)

	// --- Админ ---
	adm := api.Group("/admin", middleware.RequireAdmin(opts.AdminIssuer, opts.ActiveAdmin))
	adm.GET("/kpis", h.Admin.KPIs)
	adm.GET("/users", h.Admin.Users)
	adm.POST("/users/:id/ban", h.Admin.Ban)
	adm.POST("/users/:id/adjust", h.Admin.Adjust)
	adm.GET("/transactions", h.Admin.Transactions)
	adm.GET("/audit", h.Admin.Audit)

	adm.GET("/product-cards", h.Admin.ProductCards)
	adm.PUT("/product-cards", h.Admin.SetProductCard)

	adm.GET("/rewards", h.Rewards.AdminList)
	adm.POST("/rewards", h.Rewards.AdminCreate)
	adm.PUT("/rewards/:id", h.Rewards.AdminUpdate)
	adm.DELETE("/rewards/:id", h.Rewards.AdminDelete)

	adm.GET("/games/spin", h.GameConfig.GetSpin)
	adm.PUT("/games/spin", h.GameConfig.UpdateSpin)
	adm.GET("/games/box", h.GameConfig.GetBox)
	adm.PUT("/games/box", h.GameConfig.UpdateBox)
}

func health(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				log.WithError(err).Warn("Health-check: хранилище недоступно")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// Start запускает сервер в отдельной горутине.
// Ошибка ListenAndServe (кроме штатной остановки) отправляется в errCh.
func (s *Server) Start(errCh chan<- error) {
	go func() {
		log.WithField("addr", s.http.Addr).Info("HTTP-сервер запущен")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}()
}

// Shutdown дожидается завершения активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка остановки HTTP-сервера: %w", err)
	}
	log.Info("HTTP-сервер остановлен")
	return nil
}
