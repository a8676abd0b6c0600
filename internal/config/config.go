// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Хранилища, поддерживаемые APP_STORAGE.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"loyalty"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"loyalty"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- HTTP ---
	HTTPAddr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	HTTPWriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
	HTTPShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`
	// postgres | memory (memory только для локальной разработки: данные живут до рестарта)
	AppStorage string `envconfig:"APP_STORAGE" default:"postgres"`

	// --- Logging ---
	// Если LOG_FILE задан, лог дублируется в файл с ротацией.
	LogFile       string `envconfig:"LOG_FILE"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"50"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"5"`
	LogMaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS" default:"30"`

	// --- Auth ---
	JWTSecret      string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL         time.Duration `envconfig:"JWT_TTL" default:"168h"`
	AdminJWTSecret string        `envconfig:"ADMIN_JWT_SECRET" required:"true"`
	AdminJWTTTL    time.Duration `envconfig:"ADMIN_JWT_TTL" default:"12h"`
	// Админ, которого создаём при старте. Хеш генерируется cmd/hashpass.
	AdminEmail        string `envconfig:"ADMIN_EMAIL"`
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	// --- Webhook ---
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
	// Только для разработки: принимать заказы без подписи.
	WebhookSkipVerify bool `envconfig:"WEBHOOK_SKIP_VERIFY" default:"false"`

	// --- Games ---
	// YAML с таблицами по умолчанию; пусто = встроенные значения.
	GameDefaultsFile string `envconfig:"GAME_DEFAULTS_FILE"`
	// Переопределяют кулдауны из таблиц по умолчанию (0 = не трогать).
	SpinFreeCooldownHours    float64       `envconfig:"SPIN_FREE_COOLDOWN_HOURS" default:"0"`
	SpinPremiumCooldownHours float64       `envconfig:"SPIN_PREMIUM_COOLDOWN_HOURS" default:"0"`
	ConfigRefreshInterval    time.Duration `envconfig:"CONFIG_REFRESH_INTERVAL" default:"1m"`
	// Ночная сверка журнала с балансами (cron-выражение).
	ReconcileSchedule string `envconfig:"RECONCILE_SCHEDULE" default:"0 4 * * *"`

	// --- Redis ---
	// Необязателен: без него изменения настроек игр доходят до других реплик
	// только через периодическое обновление.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisChannel  string `envconfig:"REDIS_CHANNEL" default:"loyalty:gameconfig"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"60"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsProduction: APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Validate проверяет взаимосвязанные настройки.
func (c *Config) Validate() error {
	switch c.AppStorage {
	case StoragePostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD обязателен для APP_STORAGE=postgres")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	case StorageMemory:
		if c.IsProduction() {
			return fmt.Errorf("APP_STORAGE=memory недопустим в production")
		}
	default:
		return fmt.Errorf("APP_STORAGE должен быть postgres или memory, получено %q", c.AppStorage)
	}

	if c.JWTSecret == "" || c.AdminJWTSecret == "" {
		return fmt.Errorf("JWT_SECRET и ADMIN_JWT_SECRET не могут быть пустыми")
	}
	if c.JWTSecret == c.AdminJWTSecret {
		return fmt.Errorf("JWT_SECRET и ADMIN_JWT_SECRET должны различаться")
	}
	if c.JWTTTL <= 0 || c.AdminJWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL и ADMIN_JWT_TTL должны быть > 0")
	}
	if (c.AdminEmail == "") != (c.AdminPasswordHash == "") {
		return fmt.Errorf("ADMIN_EMAIL и ADMIN_PASSWORD_HASH задаются вместе")
	}
	if c.AdminPasswordHash != "" && !strings.HasPrefix(c.AdminPasswordHash, "$argon2id$") {
		return fmt.Errorf("ADMIN_PASSWORD_HASH должен быть хешем Argon2id (см. cmd/hashpass)")
	}

	if c.WebhookSecret == "" && !c.WebhookSkipVerify {
		return fmt.Errorf("WEBHOOK_SECRET не задан (или включите WEBHOOK_SKIP_VERIFY для разработки)")
	}
	if c.WebhookSkipVerify && c.IsProduction() {
		return fmt.Errorf("WEBHOOK_SKIP_VERIFY недопустим в production")
	}

	if c.SpinFreeCooldownHours < 0 || c.SpinPremiumCooldownHours < 0 {
		return fmt.Errorf("кулдауны спина не могут быть отрицательными")
	}
	if c.ConfigRefreshInterval < time.Second {
		return fmt.Errorf("CONFIG_REFRESH_INTERVAL должен быть не меньше 1s")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS и RATE_LIMIT_WINDOW должны быть > 0")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	cfg.AppStorage = strings.ToLower(strings.TrimSpace(cfg.AppStorage))
	cfg.AdminEmail = strings.ToLower(strings.TrimSpace(cfg.AdminEmail))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
