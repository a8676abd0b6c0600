// Package app инициализирует все компоненты приложения.
// app.go: точка сборки. Создаёт хранилище, сервисы, обработчики,
// HTTP-сервер и планировщик и собирает всё в один объект App.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/loyalty-backend/internal/common"
	"serotonyl.ru/loyalty-backend/internal/config"
	"serotonyl.ru/loyalty-backend/internal/db/postgres"
	"serotonyl.ru/loyalty-backend/internal/features/admin"
	"serotonyl.ru/loyalty-backend/internal/features/box"
	"serotonyl.ru/loyalty-backend/internal/features/cards"
	"serotonyl.ru/loyalty-backend/internal/features/economy"
	"serotonyl.ru/loyalty-backend/internal/features/gameconfig"
	"serotonyl.ru/loyalty-backend/internal/features/rewards"
	"serotonyl.ru/loyalty-backend/internal/features/spin"
	"serotonyl.ru/loyalty-backend/internal/features/users"
	"serotonyl.ru/loyalty-backend/internal/features/webhook"
	"serotonyl.ru/loyalty-backend/internal/jobs"
	"serotonyl.ru/loyalty-backend/internal/random"
	"serotonyl.ru/loyalty-backend/internal/security"
	"serotonyl.ru/loyalty-backend/internal/server"
	"serotonyl.ru/loyalty-backend/internal/server/middleware"
)

// App содержит все компоненты приложения.
type App struct {
	Server    *server.Server
	Scheduler *jobs.Scheduler
	Config    *gameconfig.CachedProvider
	DB        *pgxpool.Pool // nil при APP_STORAGE=memory

	limiter  *middleware.RateLimiter
	notifier *gameconfig.RedisNotifier
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен: компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	// === 1. Хранилище ===
	var (
		store economy.Store
		repo  gameconfig.Repository
	)
	switch cfg.AppStorage {
	case config.StorageMemory:
		log.Warn("Данные хранятся в памяти и пропадут при перезапуске")
		store = economy.NewMemoryStore()
		repo = gameconfig.NewMemoryRepository()
	default:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		if err := postgres.RunMigrations(ctx, pool, migrations); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка миграций: %w", err)
		}
		a.DB = pool
		store = economy.NewPostgresStore(pool)
		repo = gameconfig.NewPostgresRepository(pool)
	}

	// === 2. Настройки игр ===
	defaults, err := gameconfig.LoadDefaults(cfg.GameDefaultsFile)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка загрузки настроек игр: %w", err)
	}
	if cfg.SpinFreeCooldownHours > 0 {
		defaults.Spin.FreeCooldownHours = cfg.SpinFreeCooldownHours
	}
	if cfg.SpinPremiumCooldownHours > 0 {
		defaults.Spin.PremiumCooldownHours = cfg.SpinPremiumCooldownHours
	}

	provider := gameconfig.NewCachedProvider(repo, defaults)
	if err := provider.Refresh(ctx); err != nil {
		// работаем на значениях по умолчанию, крон перечитает позже
		log.WithError(err).Warn("Не удалось прочитать опубликованные настройки игр")
	}
	a.Config = provider

	var notifier gameconfig.Notifier = gameconfig.NopNotifier{}
	if cfg.RedisAddr != "" {
		rn, err := gameconfig.NewRedisNotifier(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisChannel)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.notifier = rn
		notifier = rn
		go rn.Listen(ctx, func(ctx context.Context, kind string) {
			if err := provider.Refresh(ctx); err != nil {
				log.WithError(err).WithField("kind", kind).Error("Ошибка обновления настроек по сигналу Redis")
			}
		})
	}

	// === 3. Безопасность ===
	userIssuer := security.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	adminIssuer := security.NewIssuer(cfg.AdminJWTSecret, cfg.AdminJWTTTL)

	if cfg.AdminEmail != "" && cfg.AdminPasswordHash != "" {
		if err := users.EnsureAdmin(ctx, store, cfg.AdminEmail, cfg.AdminPasswordHash); err != nil {
			a.Close()
			return nil, fmt.Errorf("ошибка создания админа: %w", err)
		}
	}

	// === 4. Сервисы ===
	src := random.NewCryptoSource()
	economyService := economy.NewService(store)
	usersService := users.NewService(store, userIssuer)
	spinService := spin.NewService(store, provider, src, nil)
	boxService := box.NewService(store, provider, src)
	cardsService := cards.NewService(store, src)
	rewardsService := rewards.NewService(store)
	gameconfigService := gameconfig.NewService(repo, provider, notifier, store)
	adminService := admin.NewService(store, economyService, adminIssuer)
	webhookService := webhook.NewService(store)

	if cfg.WebhookSkipVerify {
		log.Warn("Проверка подписи вебхука ОТКЛЮЧЕНА")
	}

	// === 5. Обработчики ===
	handlers := server.Handlers{
		Users:      users.NewHandler(usersService),
		Economy:    economy.NewHandler(economyService),
		Spin:       spin.NewHandler(spinService),
		Box:        box.NewHandler(boxService),
		Cards:      cards.NewHandler(cardsService),
		Rewards:    rewards.NewHandler(rewardsService),
		GameConfig: gameconfig.NewHandler(gameconfigService),
		Admin:      admin.NewHandler(adminService),
		Webhook:    webhook.NewHandler(webhookService, cfg.WebhookSecret, cfg.WebhookSkipVerify),
	}

	// === 6. HTTP-сервер ===
	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	var health func(ctx context.Context) error
	if a.DB != nil {
		health = a.DB.Ping
	}

	a.Server = server.New(server.Options{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		Production:   cfg.IsProduction(),
		UserIssuer:   userIssuer,
		AdminIssuer:  adminIssuer,
		Banned:       usersService.IsBanned,
		ActiveAdmin:  usersService.IsActiveAdmin,
		RateLimiter:  a.limiter,
		Health:       health,
	}, handlers)

	// === 7. Планировщик задач ===
	a.Scheduler = jobs.NewScheduler(common.LoadLocation(cfg.AppTimezone), provider, economyService)

	return a, nil
}

// Close освобождает ресурсы: лимитер, Redis и пул БД.
func (a *App) Close() {
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			log.WithError(err).Warn("Ошибка закрытия Redis")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
