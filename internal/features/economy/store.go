// Package economy: store.go описывает хранилище, через которое работают все движки.
// Реализации: PostgresStore (repository*.go) и MemoryStore (memory.go).
package economy

import (
	"context"
	"time"
)

// Tx: единица работы. Всё, что записано через Tx, применяется целиком
// или не применяется вовсе (ошибка из функции InTx откатывает изменения).
//
// LockUser/LockReward держат блокировку строки до конца единицы работы,
// поэтому два параллельных запроса одного пользователя не читают
// одинаковый баланс. Порядок блокировок всегда: пользователь, затем награда.
type Tx interface {
	LockUser(ctx context.Context, userID int64) (*User, error)
	LockUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, u *User) error
	SaveUser(ctx context.Context, u *User) error

	AppendLedger(ctx context.Context, e *Entry) error
	// LedgerTotals видит и записи, сделанные в этой же единице работы.
	LedgerTotals(ctx context.Context, userID int64) (coins, boxes, tickets int64, err error)

	InsertCard(ctx context.Context, c *Card) error
	FindCard(ctx context.Context, userID, cardID int64) (*Card, error)
	CardsByRarity(ctx context.Context, userID int64, rarity Rarity, limit int) ([]*Card, error)
	DeleteCards(ctx context.Context, userID int64, ids []int64) error

	LockReward(ctx context.Context, rewardID int64) (*Reward, error)
	SaveReward(ctx context.Context, r *Reward) error
	InsertRedemption(ctx context.Context, r *Redemption) error

	// ClaimOrder помечает заказ обработанным. false, если заказ уже был.
	ClaimOrder(ctx context.Context, orderID string, userID int64) (bool, error)
}

// LedgerFilter: выборка записей журнала.
type LedgerFilter struct {
	UserID int64 // 0: все пользователи
	Source Source
	Since  time.Time
	Limit  int
}

// Store: хранилище экономики.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	GetUser(ctx context.Context, userID int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*User, error)
	SetBanned(ctx context.Context, userID int64, banned bool) error

	ListCards(ctx context.Context, userID int64) ([]*Card, error)

	ListLedger(ctx context.Context, f LedgerFilter) ([]*Entry, error)
	// LedgerTotals: суммы дельт журнала по пользователю (coins, boxes, tickets).
	LedgerTotals(ctx context.Context, userID int64) (coins, boxes, tickets int64, err error)

	ListRewards(ctx context.Context, onlyAvailable bool) ([]*Reward, error)
	GetReward(ctx context.Context, rewardID int64) (*Reward, error)
	CreateReward(ctx context.Context, r *Reward) error
	UpdateReward(ctx context.Context, r *Reward) error
	DeleteReward(ctx context.Context, rewardID int64) error
	ListRedemptions(ctx context.Context, userID int64) ([]*Redemption, error)

	ProductCard(ctx context.Context, productID int64) (*ProductCard, error)
	ListProductCards(ctx context.Context) ([]*ProductCard, error)
	UpsertProductCard(ctx context.Context, p *ProductCard) error

	AppendAudit(ctx context.Context, a *AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]*AuditEntry, error)

	LogLoginAttempt(ctx context.Context, email string, success bool) error
	FailedLoginsSince(ctx context.Context, email string, since time.Time) (int, error)

	Stats(ctx context.Context, since time.Time) (*Stats, error)
}
