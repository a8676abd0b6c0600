// Package economytest: заготовки данных для тестов движков поверх MemoryStore.
package economytest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"serotonyl.ru/loyalty-backend/internal/features/economy"
)

var seq atomic.Int64

// NewUser создаёт пользователя; mutate задаёт стартовое состояние.
// Стартовый баланс записывается без журнала, это «initial» для сверки.
func NewUser(t *testing.T, store economy.Store, mutate func(u *economy.User)) *economy.User {
	t.Helper()

	u := &economy.User{Email: fmt.Sprintf("user%d@example.com", seq.Add(1)), Role: economy.RoleUser}
	err := store.InTx(context.Background(), func(ctx context.Context, tx economy.Tx) error {
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		if mutate != nil {
			mutate(u)
		}
		return tx.SaveUser(ctx, u)
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// GiveCards выдаёт пользователю n карт одной редкости.
func GiveCards(t *testing.T, store economy.Store, userID int64, rarity economy.Rarity, n int) []*economy.Card {
	t.Helper()

	out := make([]*economy.Card, 0, n)
	err := store.InTx(context.Background(), func(ctx context.Context, tx economy.Tx) error {
		for i := 0; i < n; i++ {
			c := &economy.Card{
				UserID: userID,
				Name:   fmt.Sprintf("%s #%d", rarity, i+1),
				Rarity: rarity,
				Origin: economy.OriginBox,
			}
			if err := tx.InsertCard(ctx, c); err != nil {
				return err
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed cards: %v", err)
	}
	return out
}

// NewReward добавляет награду в каталог.
func NewReward(t *testing.T, store economy.Store, r *economy.Reward) *economy.Reward {
	t.Helper()

	if r.Type == "" {
		r.Type = economy.RewardItem
	}
	if err := store.CreateReward(context.Background(), r); err != nil {
		t.Fatalf("seed reward: %v", err)
	}
	return r
}

// AssertLedgerMatches проверяет, что сумма дельт журнала равна изменению баланса
// относительно initial.
func AssertLedgerMatches(t *testing.T, store economy.Store, initial *economy.User) {
	t.Helper()

	ctx := context.Background()
	u, err := store.GetUser(ctx, initial.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	coins, boxes, tickets, err := store.LedgerTotals(ctx, initial.ID)
	if err != nil {
		t.Fatalf("ledger totals: %v", err)
	}
	if coins != u.Coins-initial.Coins {
		t.Fatalf("coins: ledger %d, balance delta %d", coins, u.Coins-initial.Coins)
	}
	if boxes != u.Boxes-initial.Boxes {
		t.Fatalf("boxes: ledger %d, balance delta %d", boxes, u.Boxes-initial.Boxes)
	}
	if tickets != u.SpinTickets-initial.SpinTickets {
		t.Fatalf("tickets: ledger %d, balance delta %d", tickets, u.SpinTickets-initial.SpinTickets)
	}
}
