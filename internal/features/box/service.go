// Package box открывает мистери-боксы: выбор редкости по пулам,
// карта из каталога, монеты за редкость.
package box

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/loyalty-backend/internal/common"
	"serotonyl.ru/loyalty-backend/internal/features/cards"
	"serotonyl.ru/loyalty-backend/internal/features/economy"
	"serotonyl.ru/loyalty-backend/internal/features/gameconfig"
	"serotonyl.ru/loyalty-backend/internal/random"
)

// Result: итог открытия бокса.
type Result struct {
	Card        *economy.Card
	BoxesLeft   int64
	RewardCoins int64
	TotalCoins  int64
}

// Service: движок открытия боксов.
type Service struct {
	store    economy.Store
	provider gameconfig.Provider
	src      random.Source
}

// NewService создаёт движок. src == nil означает crypto/rand.
func NewService(store economy.Store, provider gameconfig.Provider, src random.Source) *Service {
	if src == nil {
		src = random.NewCryptoSource()
	}
	return &Service{store: store, provider: provider, src: src}
}

// Open открывает один бокс пользователя.
func (s *Service) Open(ctx context.Context, userID int64) (*Result, error) {
	var res Result
	err := s.store.InTx(ctx, func(ctx context.Context, tx economy.Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		if u.Boxes <= 0 {
			return fmt.Errorf("user_id=%d: %w", userID, common.ErrNoInventory)
		}

		def, err := s.draw(ctx)
		if err != nil {
			return err
		}
		reward := cards.RarityValue[def.Rarity]

		card := &economy.Card{
			UserID:      u.ID,
			CatalogID:   def.ID,
			Name:        def.Name,
			Rarity:      def.Rarity,
			CoinsEarned: reward,
			Origin:      economy.OriginBox,
		}
		if err := tx.InsertCard(ctx, card); err != nil {
			return err
		}

		u.Boxes--
		u.BoxesOpened++
		u.Coins += reward
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}

		meta := economy.BoxOpenMeta{Rarity: def.Rarity, CardName: def.Name, CatalogID: def.ID, CardID: card.ID}
		if err := tx.AppendLedger(ctx, economy.NewEntry(u.ID, reward, -1, 0, meta)); err != nil {
			return err
		}

		res = Result{Card: card, BoxesLeft: u.Boxes, RewardCoins: reward, TotalCoins: u.Coins}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"rarity":  res.Card.Rarity,
		"card":    res.Card.Name,
		"left":    res.BoxesLeft,
	}).Info("Бокс открыт: " + common.FormatCoins(res.RewardCoins))
	return &res, nil
}

// draw выбирает редкость по активным пулам и карту внутри неё.
// Вырожденные пулы заменяются пулами по умолчанию.
func (s *Service) draw(ctx context.Context) (cards.CatalogCard, error) {
	cfg := s.provider.Box(ctx)
	pool, err := random.Pick(s.src, cfg.Pools, func(p gameconfig.RarityPool) float64 { return p.Weight })
	if errors.Is(err, common.ErrConfig) {
		log.WithField("version", cfg.Version).Warn("Пулы бокса вырождены, используем значения по умолчанию")
		pool, err = random.Pick(s.src, s.provider.DefaultBox().Pools, func(p gameconfig.RarityPool) float64 { return p.Weight })
	}
	if err != nil {
		return cards.CatalogCard{}, err
	}

	candidates := cards.Pool(pool.Rarity, pool.CardIDs)
	if len(candidates) == 0 {
		candidates = cards.Pool(pool.Rarity, nil)
	}
	if len(candidates) == 0 {
		return cards.CatalogCard{}, fmt.Errorf("в каталоге нет карт редкости %s: %w", pool.Rarity, common.ErrConfig)
	}
	return candidates[random.Index(s.src, len(candidates))], nil
}
