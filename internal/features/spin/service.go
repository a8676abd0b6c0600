// Package spin: колесо удачи. Бесплатный и премиум-режим со своими кулдаунами,
// тикеты обходят кулдаун премиум-спина.
package spin

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/loyalty-backend/internal/common"
	"serotonyl.ru/loyalty-backend/internal/cooldown"
	"serotonyl.ru/loyalty-backend/internal/features/economy"
	"serotonyl.ru/loyalty-backend/internal/features/gameconfig"
	"serotonyl.ru/loyalty-backend/internal/random"
)

// Mode: режим спина.
type Mode string

const (
	ModeFree    Mode = "free"
	ModePremium Mode = "premium"
)

// ParseMode: пустая строка означает free.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeFree:
		return ModeFree, nil
	case ModePremium:
		return ModePremium, nil
	}
	return "", fmt.Errorf("mode=%q: %w", s, common.ErrInvalidMode)
}

// Result: итог спина.
type Result struct {
	Outcome      string
	OutcomeType  gameconfig.OutcomeType
	Prize        int64 // начисленные монеты
	MysteryBoxes int64 // выданные боксы
	ExtraSpins   int64 // выданные тикеты
	TotalCoins   int64
	Boxes        int64
	SpinTickets  int64
	TicketUsed   bool
}

// Status: доступность спинов для дашборда.
type Status struct {
	FreeAvailable        bool       `json:"freeAvailable"`
	FreeRemaining        int        `json:"freeRemainingMinutes"`
	NextFreeAt           *time.Time `json:"nextFreeAt"`
	PremiumAvailable     bool       `json:"premiumAvailable"`
	PremiumRemaining     int        `json:"premiumRemainingMinutes"`
	NextPremiumAt        *time.Time `json:"nextPremiumAt"`
	SpinTickets          int64      `json:"spinTickets"`
	SpinsUsed            int64      `json:"spinsUsed"`
	FreeCooldownHours    float64    `json:"freeCooldownHours"`
	PremiumCooldownHours float64    `json:"premiumCooldownHours"`
}

// Service: движок спина.
type Service struct {
	store    economy.Store
	provider gameconfig.Provider
	src      random.Source
	now      func() time.Time
}

// NewService создаёт движок. src == nil означает crypto/rand, now == nil означает time.Now.
func NewService(store economy.Store, provider gameconfig.Provider, src random.Source, now func() time.Time) *Service {
	if src == nil {
		src = random.NewCryptoSource()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, provider: provider, src: src, now: now}
}

// Spin крутит колесо для пользователя.
func (s *Service) Spin(ctx context.Context, userID int64, mode Mode) (*Result, error) {
	if mode != ModeFree && mode != ModePremium {
		return nil, fmt.Errorf("mode=%q: %w", mode, common.ErrInvalidMode)
	}
	cfg := s.provider.Spin(ctx)

	var res Result
	err := s.store.InTx(ctx, func(ctx context.Context, tx economy.Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		now := s.now()

		var ticketDelta int64
		if mode == ModePremium && u.SpinTickets > 0 {
			// тикет обходит кулдаун и не сдвигает lastPremiumSpinAt
			res.TicketUsed = true
			u.SpinTickets--
			ticketDelta--
		} else {
			last, hours := u.LastFreeSpinAt, cfg.FreeCooldownHours
			if mode == ModePremium {
				last, hours = u.LastPremiumSpinAt, cfg.PremiumCooldownHours
			}
			if d := cooldown.Check(now, last, hours); !d.Allowed {
				return &common.CooldownError{RemainingMinutes: d.RemainingMinutes}
			}
		}

		outcome, err := s.roll(cfg)
		if err != nil {
			return err
		}

		res.Outcome = outcome.Label
		res.OutcomeType = outcome.Type
		switch outcome.Type {
		case gameconfig.OutcomeCoins:
			res.Prize = outcome.Value
			u.Coins += res.Prize
		case gameconfig.OutcomeMysteryBox:
			res.MysteryBoxes = max(outcome.Value, 1)
			u.Boxes += res.MysteryBoxes
		case gameconfig.OutcomeExtraSpin:
			res.ExtraSpins = max(outcome.Value, 1)
			u.SpinTickets += res.ExtraSpins
			ticketDelta += res.ExtraSpins
		}

		if !res.TicketUsed {
			t := now
			if mode == ModeFree {
				u.LastFreeSpinAt = &t
			} else {
				u.LastPremiumSpinAt = &t
			}
		}
		u.SpinsUsed++
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}

		meta := economy.SpinMeta{
			Mode:        string(mode),
			Outcome:     outcome.Label,
			OutcomeType: string(outcome.Type),
			Value:       outcome.Value,
			TicketUsed:  res.TicketUsed,
			BoxGranted:  res.MysteryBoxes,
		}
		if err := tx.AppendLedger(ctx, economy.NewEntry(u.ID, res.Prize, res.MysteryBoxes, ticketDelta, meta)); err != nil {
			return err
		}

		res.TotalCoins, res.Boxes, res.SpinTickets = u.Coins, u.Boxes, u.SpinTickets
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":     userID,
		"mode":        mode,
		"outcome":     res.Outcome,
		"ticket_used": res.TicketUsed,
	}).Info("Спин выполнен")
	return &res, nil
}

// roll выбирает исход. Вырожденная таблица заменяется таблицей по умолчанию.
func (s *Service) roll(cfg *gameconfig.SpinConfig) (gameconfig.SpinWeight, error) {
	weight := func(w gameconfig.SpinWeight) float64 { return w.Weight }

	outcome, err := random.Pick(s.src, cfg.Weights, weight)
	if errors.Is(err, common.ErrConfig) {
		log.WithField("version", cfg.Version).Warn("Таблица спина вырождена, используем значения по умолчанию")
		outcome, err = random.Pick(s.src, s.provider.DefaultSpin().Weights, weight)
	}
	return outcome, err
}

// Status сообщает, когда снова доступны спины.
func (s *Service) Status(ctx context.Context, userID int64) (*Status, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	cfg := s.provider.Spin(ctx)
	now := s.now()

	free := cooldown.Check(now, u.LastFreeSpinAt, cfg.FreeCooldownHours)
	premium := cooldown.Check(now, u.LastPremiumSpinAt, cfg.PremiumCooldownHours)

	return &Status{
		FreeAvailable:        free.Allowed,
		FreeRemaining:        free.RemainingMinutes,
		NextFreeAt:           cooldown.NextAt(now, u.LastFreeSpinAt, cfg.FreeCooldownHours),
		PremiumAvailable:     premium.Allowed || u.SpinTickets > 0,
		PremiumRemaining:     premium.RemainingMinutes,
		NextPremiumAt:        cooldown.NextAt(now, u.LastPremiumSpinAt, cfg.PremiumCooldownHours),
		SpinTickets:          u.SpinTickets,
		SpinsUsed:            u.SpinsUsed,
		FreeCooldownHours:    cfg.FreeCooldownHours,
		PremiumCooldownHours: cfg.PremiumCooldownHours,
	}, nil
}
