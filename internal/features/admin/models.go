// Package admin реализует HTTP-админку: вход по паролю, KPI, управление
// пользователями, ручные корректировки, привязку товаров к картам и журнал аудита.
// models.go описывает структуры ответов и лимиты.
package admin

import (
	"time"

	"serotonyl.ru/loyalty-backend/internal/features/economy"
)

// Защита от перебора: не больше MaxFailedLogins неудач за LoginWindow.
const (
	MaxFailedLogins = 3
	LoginWindow     = time.Hour
)

// Диапазон KPI в днях.
const (
	DefaultKPIRange = 30
	MaxKPIRange     = 365
	latestTxLimit   = 10
)

// Действия в журнале аудита.
const (
	ActionUserBan       = "user.ban"
	ActionUserUnban     = "user.unban"
	ActionUserAdjust    = "user.adjust"
	ActionProductCard   = "product_card.update"
	ActionAdminLoggedIn = "admin.login"
)

// Session: токен админа.
type Session struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// KPIs: сводка для дашборда.
type KPIs struct {
	RangeDays int `json:"rangeDays"`
	*economy.Stats
	LatestTx []*economy.Entry `json:"latestTx"`
}
