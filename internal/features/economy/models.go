// Package economy управляет валютой «монеты» и всем, что на неё влияет.
// models.go описывает пользователя, карты, награды и служебные записи.
package economy

import "time"

// Role: роль пользователя.
type Role string

const (
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// Rarity: ступень лестницы редкости Common < Rare < Epic < Legendary.
type Rarity string

const (
	Common    Rarity = "Common"
	Rare      Rarity = "Rare"
	Epic      Rarity = "Epic"
	Legendary Rarity = "Legendary"
)

// User: изменяемый агрегат пользователя. Ключ: email (в нижнем регистре).
// Инвариант: Coins >= 0, любое изменение Coins/Boxes/SpinTickets
// сопровождается записью в ledger с тем же эффектом.
type User struct {
	ID                int64      `db:"id"`
	Email             string     `db:"email"`
	PasswordHash      string     `db:"password_hash"` // пусто у созданных вебхуком
	Role              Role       `db:"role"`
	Banned            bool       `db:"banned"`
	Coins             int64      `db:"coins"`
	Boxes             int64      `db:"boxes"`        // неоткрытые боксы
	SpinTickets       int64      `db:"spin_tickets"` // обход кулдауна премиум-спина
	SpinsUsed         int64      `db:"spins_used"`
	BoxesOpened       int64      `db:"boxes_opened"`
	LastFreeSpinAt    *time.Time `db:"last_free_spin_at"`
	LastPremiumSpinAt *time.Time `db:"last_premium_spin_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// Clone возвращает копию, чтобы снимок из хранилища не разделял указатели.
func (u *User) Clone() *User {
	c := *u
	if u.LastFreeSpinAt != nil {
		t := *u.LastFreeSpinAt
		c.LastFreeSpinAt = &t
	}
	if u.LastPremiumSpinAt != nil {
		t := *u.LastPremiumSpinAt
		c.LastPremiumSpinAt = &t
	}
	return &c
}

// CardOrigin: откуда взялась карта.
type CardOrigin string

const (
	OriginBox    CardOrigin = "box"
	OriginFusion CardOrigin = "fusion"
	OriginOrder  CardOrigin = "order"
)

// Card: карта пользователя. После создания не меняется,
// удаляется только сжиганием или как материал слияния.
type Card struct {
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"userId"`
	CatalogID   int        `db:"catalog_id" json:"cardId,omitempty"` // 0, если карты нет в каталоге
	Name        string     `db:"name" json:"name"`
	Rarity      Rarity     `db:"rarity" json:"rarity"`
	CoinsEarned int64      `db:"coins_earned" json:"coinsEarned"` // награда в момент выдачи
	Origin      CardOrigin `db:"origin" json:"origin"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

// RewardType: тип награды каталога.
type RewardType string

const (
	RewardCoupon     RewardType = "coupon"
	RewardMysteryBox RewardType = "mysteryBox"
	RewardSpinTicket RewardType = "spinTicket"
	RewardItem       RewardType = "item"
)

// Valid: известен ли тип.
func (t RewardType) Valid() bool {
	switch t {
	case RewardCoupon, RewardMysteryBox, RewardSpinTicket, RewardItem:
		return true
	}
	return false
}

// UnlimitedStock: значение Stock для наград без ограничения.
const UnlimitedStock int64 = -1

// Reward: позиция каталога наград, управляется админом.
type Reward struct {
	ID          int64      `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	PriceCoins  int64      `db:"price_coins" json:"priceCoins"`
	Type        RewardType `db:"type" json:"type"`
	Stock       int64      `db:"stock" json:"stock"` // -1 = без ограничения
	Active      bool       `db:"active" json:"active"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// InStock: можно ли выдать ещё одну штуку.
func (r *Reward) InStock() bool {
	return r.Stock == UnlimitedStock || r.Stock > 0
}

// RedemptionStatus: статус обмена.
type RedemptionStatus string

const (
	RedemptionCompleted RedemptionStatus = "completed"
	RedemptionPending   RedemptionStatus = "pending"
	RedemptionFailed    RedemptionStatus = "failed"
)

// Redemption: факт обмена монет на награду.
type Redemption struct {
	ID         int64            `db:"id" json:"id"`
	UserID     int64            `db:"user_id" json:"userId"`
	RewardID   int64            `db:"reward_id" json:"rewardId"`
	Title      string           `db:"title" json:"title"`
	Type       RewardType       `db:"type" json:"type"`
	CoinsSpent int64            `db:"coins_spent" json:"coinsSpent"`
	Code       string           `db:"code" json:"code,omitempty"` // код купона
	Status     RedemptionStatus `db:"status" json:"status"`
	CreatedAt  time.Time        `db:"created_at" json:"createdAt"`
}

// ProductCard: привязка товара магазина к карте каталога.
type ProductCard struct {
	ProductID int64     `db:"product_id" json:"productId"`
	CatalogID int       `db:"catalog_id" json:"catalogId"`
	Title     string    `db:"title" json:"title"`
	Active    bool      `db:"active" json:"active"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// AuditEntry: запись журнала действий админа.
type AuditEntry struct {
	ID        int64          `db:"id" json:"id"`
	AdminID   int64          `db:"admin_id" json:"adminId"`
	Action    string         `db:"action" json:"action"`
	Entity    string         `db:"entity" json:"entity"`
	EntityID  string         `db:"entity_id" json:"entityId"`
	Details   map[string]any `db:"details" json:"details,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// CardPulls: сколько раз выпадала карта (для KPI).
type CardPulls struct {
	Name  string `json:"name"`
	Pulls int64  `json:"pulls"`
}

// Stats: агрегаты для админских KPI.
type Stats struct {
	TotalUsers  int64       `json:"totalUsers"`
	TotalCoins  int64       `json:"totalCoins"`
	Spins       int64       `json:"spins"`
	BoxesOpened int64       `json:"boxesOpened"`
	Redemptions int64       `json:"redemptions"`
	TopCards    []CardPulls `json:"topCards"`
}
