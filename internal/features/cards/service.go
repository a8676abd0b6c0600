package cards

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/loyalty-backend/internal/common"
	"serotonyl.ru/loyalty-backend/internal/features/economy"
	"serotonyl.ru/loyalty-backend/internal/random"
)

// FuseCost: сколько карт одной редкости уходит на слияние.
const FuseCost = 3

// Service: коллекция карт пользователя, сжигание и слияние.
type Service struct {
	store economy.Store
	src   random.Source
}

// NewService создаёт сервис карт. src == nil означает crypto/rand.
func NewService(store economy.Store, src random.Source) *Service {
	if src == nil {
		src = random.NewCryptoSource()
	}
	return &Service{store: store, src: src}
}

// List возвращает карты пользователя.
func (s *Service) List(ctx context.Context, userID int64) ([]*economy.Card, error) {
	return s.store.ListCards(ctx, userID)
}

// BurnResult: итог сжигания.
type BurnResult struct {
	Added      int64
	TotalCoins int64
	Card       *economy.Card
}

// Burn удаляет карту пользователя и начисляет монеты по её редкости.
func (s *Service) Burn(ctx context.Context, userID, cardID int64) (*BurnResult, error) {
	var res BurnResult
	err := s.store.InTx(ctx, func(ctx context.Context, tx economy.Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		card, err := tx.FindCard(ctx, userID, cardID)
		if err != nil {
			return err
		}

		value := RarityValue[card.Rarity]
		if err := tx.DeleteCards(ctx, userID, []int64{card.ID}); err != nil {
			return err
		}
		u.Coins += value
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
		meta := economy.BurnMeta{Rarity: card.Rarity, CardName: card.Name, CardID: card.ID}
		if err := tx.AppendLedger(ctx, economy.NewEntry(u.ID, value, 0, 0, meta)); err != nil {
			return err
		}

		res = BurnResult{Added: value, TotalCoins: u.Coins, Card: card}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"card_id": cardID,
		"rarity":  res.Card.Rarity,
	}).Info("Карта сожжена: " + common.FormatCoins(res.Added))
	return &res, nil
}

// FuseResult: итог слияния.
type FuseResult struct {
	Card     *economy.Card
	Consumed []int64
}

// Fuse забирает FuseCost карт редкости rarity и выдаёт одну карту следующей ступени.
// Монеты не меняются; в журнал пишется запись с нулевыми дельтами.
func (s *Service) Fuse(ctx context.Context, userID int64, rarity economy.Rarity) (*FuseResult, error) {
	next, ok := Next(rarity)
	if !ok {
		return nil, fmt.Errorf("rarity=%q: %w", rarity, common.ErrInvalidTier)
	}
	pool := Pool(next, nil)
	if len(pool) == 0 {
		return nil, fmt.Errorf("в каталоге нет карт редкости %s: %w", next, common.ErrInvalidTier)
	}

	var res FuseResult
	err := s.store.InTx(ctx, func(ctx context.Context, tx economy.Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}

		materials, err := tx.CardsByRarity(ctx, userID, rarity, FuseCost)
		if err != nil {
			return err
		}
		if len(materials) < FuseCost {
			return fmt.Errorf("есть %d из %d: %w", len(materials), FuseCost, common.ErrInsufficientMaterials)
		}

		ids := make([]int64, 0, FuseCost)
		for _, c := range materials[:FuseCost] {
			ids = append(ids, c.ID)
		}
		if err := tx.DeleteCards(ctx, userID, ids); err != nil {
			return err
		}

		def := pool[random.Index(s.src, len(pool))]
		card := &economy.Card{
			UserID:      u.ID,
			CatalogID:   def.ID,
			Name:        def.Name,
			Rarity:      def.Rarity,
			CoinsEarned: 0,
			Origin:      economy.OriginFusion,
		}
		if err := tx.InsertCard(ctx, card); err != nil {
			return err
		}

		meta := economy.FuseMeta{From: rarity, To: next, Consumed: ids, NewCardID: card.ID, CardName: card.Name}
		if err := tx.AppendLedger(ctx, economy.NewEntry(u.ID, 0, 0, 0, meta)); err != nil {
			return err
		}

		res = FuseResult{Card: card, Consumed: ids}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"from":    rarity,
		"to":      next,
		"card":    res.Card.Name,
	}).Info("Карты слиты")
	return &res, nil
}
