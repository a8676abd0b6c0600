// Package economy: service.go: баланс, история операций, ручные корректировки
// и сверка журнала с балансами.
package economy

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/loyalty-backend/internal/common"
)

// Service управляет балансами и журналом.
type Service struct {
	store Store
}

// NewService создаёт сервис экономики.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetUser возвращает текущий снимок пользователя.
func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	return s.store.GetUser(ctx, userID)
}

// History возвращает последние операции пользователя, новые сверху.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListLedger(ctx, LedgerFilter{UserID: userID, Limit: limit})
}

// AllTransactions: журнал по всем пользователям (админка).
func (s *Service) AllTransactions(ctx context.Context, f LedgerFilter) ([]*Entry, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return s.store.ListLedger(ctx, f)
}

// AdjustCoins меняет баланс вручную (админка). Баланс не может уйти в минус.
func (s *Service) AdjustCoins(ctx context.Context, adminID, userID, delta int64, reason string) (*User, error) {
	if delta == 0 {
		return nil, common.ErrInvalidAmount
	}

	var out *User
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if u.Coins+delta < 0 {
			return fmt.Errorf("нужно %d, есть %d: %w", -delta, u.Coins, common.ErrInsufficientBalance)
		}
		u.Coins += delta
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
		if err := tx.AppendLedger(ctx, NewEntry(u.ID, delta, 0, 0, AdjustMeta{AdminID: adminID, Reason: reason})); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"admin_id": adminID,
		"user_id":  userID,
		"delta":    delta,
	}).Info("Баланс скорректирован: " + common.FormatCoins(delta))
	return out, nil
}

// Mismatch: расхождение журнала и баланса одного пользователя.
type Mismatch struct {
	UserID        int64 `json:"userId"`
	Coins         int64 `json:"coins"`
	LedgerCoins   int64 `json:"ledgerCoins"`
	Boxes         int64 `json:"boxes"`
	LedgerBoxes   int64 `json:"ledgerBoxes"`
	Tickets       int64 `json:"tickets"`
	LedgerTickets int64 `json:"ledgerTickets"`
}

// Reconcile сверяет суммы журнала с балансами всех пользователей.
// Пользователи создаются с нулевым балансом, поэтому сумма дельт
// должна совпадать с текущими значениями. Каждый пользователь проверяется
// под своей блокировкой, вместе с суммами журнала.
func (s *Service) Reconcile(ctx context.Context) ([]Mismatch, error) {
	start := time.Now()
	const page = 500

	var out []Mismatch
	checked := 0
	for offset := 0; ; offset += page {
		users, err := s.store.ListUsers(ctx, page, offset)
		if err != nil {
			return nil, err
		}
		for _, listed := range users {
			m, err := s.reconcileUser(ctx, listed.ID)
			if err != nil {
				return nil, err
			}
			checked++
			if m != nil {
				out = append(out, *m)
			}
		}
		if len(users) < page {
			break
		}
	}

	log.WithFields(log.Fields{
		"checked":    checked,
		"mismatches": len(out),
		"took":       time.Since(start).String(),
	}).Info("Сверка журнала завершена")
	return out, nil
}

func (s *Service) reconcileUser(ctx context.Context, userID int64) (*Mismatch, error) {
	var m *Mismatch
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		coins, boxes, tickets, err := tx.LedgerTotals(ctx, userID)
		if err != nil {
			return err
		}
		if coins != u.Coins || boxes != u.Boxes || tickets != u.SpinTickets {
			m = &Mismatch{
				UserID: u.ID,
				Coins:  u.Coins, LedgerCoins: coins,
				Boxes: u.Boxes, LedgerBoxes: boxes,
				Tickets: u.SpinTickets, LedgerTickets: tickets,
			}
		}
		return nil
	})
	return m, err
}
