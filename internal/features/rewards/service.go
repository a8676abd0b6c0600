// Package rewards: каталог наград и обмен монет на награду.
package rewards

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/loyalty-backend/internal/common"
	"serotonyl.ru/loyalty-backend/internal/features/economy"
)

// RedeemResult: состояние пользователя после обмена.
type RedeemResult struct {
	Coins       int64
	Boxes       int64
	SpinTickets int64
	Reward      *economy.Reward
	Redemption  *economy.Redemption
}

// Service: каталог наград, обмен и админские правки каталога.
type Service struct {
	store economy.Store
}

// NewService создаёт сервис наград.
func NewService(store economy.Store) *Service {
	return &Service{store: store}
}

// Available: активные награды в наличии.
func (s *Service) Available(ctx context.Context) ([]*economy.Reward, error) {
	return s.store.ListRewards(ctx, true)
}

// Redeem списывает цену награды и применяет её эффект.
// Проверки идут до любых изменений: Unavailable, OutOfStock, InsufficientBalance.
func (s *Service) Redeem(ctx context.Context, userID, rewardID int64) (*RedeemResult, error) {
	var res RedeemResult
	err := s.store.InTx(ctx, func(ctx context.Context, tx economy.Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		reward, err := tx.LockReward(ctx, rewardID)
		if err != nil {
			return err
		}

		if !reward.Active {
			return fmt.Errorf("reward_id=%d: %w", rewardID, common.ErrUnavailable)
		}
		if !reward.InStock() {
			return fmt.Errorf("reward_id=%d: %w", rewardID, common.ErrOutOfStock)
		}
		if u.Coins < reward.PriceCoins {
			return fmt.Errorf("нужно %d, есть %d: %w", reward.PriceCoins, u.Coins, common.ErrInsufficientBalance)
		}

		u.Coins -= reward.PriceCoins
		var boxes, tickets int64
		switch reward.Type {
		case economy.RewardMysteryBox:
			boxes = 1
		case economy.RewardSpinTicket:
			tickets = 1
		}
		u.Boxes += boxes
		u.SpinTickets += tickets
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}

		if reward.Stock != economy.UnlimitedStock {
			reward.Stock--
			if err := tx.SaveReward(ctx, reward); err != nil {
				return err
			}
		}

		red := &economy.Redemption{
			UserID:     u.ID,
			RewardID:   reward.ID,
			Title:      reward.Title,
			Type:       reward.Type,
			CoinsSpent: reward.PriceCoins,
			Status:     economy.RedemptionCompleted,
		}
		if reward.Type == economy.RewardCoupon {
			red.Code = couponCode()
		}
		if err := tx.InsertRedemption(ctx, red); err != nil {
			return err
		}

		meta := economy.RedeemMeta{
			RewardID:     reward.ID,
			RedemptionID: red.ID,
			Title:        reward.Title,
			Type:         reward.Type,
			Price:        reward.PriceCoins,
		}
		if err := tx.AppendLedger(ctx, economy.NewEntry(u.ID, -reward.PriceCoins, boxes, tickets, meta)); err != nil {
			return err
		}

		res = RedeemResult{
			Coins:       u.Coins,
			Boxes:       u.Boxes,
			SpinTickets: u.SpinTickets,
			Reward:      reward,
			Redemption:  red,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":   userID,
		"reward_id": rewardID,
		"type":      res.Reward.Type,
	}).Info("Награда получена: " + common.FormatCoins(-res.Reward.PriceCoins))
	return &res, nil
}

// History: обмены пользователя, новые сверху.
func (s *Service) History(ctx context.Context, userID int64) ([]*economy.Redemption, error) {
	return s.store.ListRedemptions(ctx, userID)
}

func couponCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// --- Админка ---

// All: весь каталог, включая выключенные и закончившиеся.
func (s *Service) All(ctx context.Context) ([]*economy.Reward, error) {
	return s.store.ListRewards(ctx, false)
}

func validate(r *economy.Reward) error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return fmt.Errorf("%w: пустое название", common.ErrInvalidPayload)
	}
	if r.PriceCoins <= 0 {
		return fmt.Errorf("%w: цена должна быть больше нуля", common.ErrInvalidAmount)
	}
	if r.Type == "" {
		r.Type = economy.RewardItem
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: неизвестный тип %q", common.ErrInvalidPayload, r.Type)
	}
	if r.Stock < economy.UnlimitedStock {
		return fmt.Errorf("%w: остаток должен быть -1 или больше", common.ErrInvalidAmount)
	}
	return nil
}

// Create добавляет награду в каталог.
func (s *Service) Create(ctx context.Context, adminID int64, r *economy.Reward) (*economy.Reward, error) {
	if err := validate(r); err != nil {
		return nil, err
	}
	if err := s.store.CreateReward(ctx, r); err != nil {
		return nil, fmt.Errorf("ошибка создания награды: %w", err)
	}
	s.audit(ctx, adminID, "reward.create", r.ID, map[string]any{"title": r.Title, "price": r.PriceCoins})
	return r, nil
}

// Update заменяет поля награды.
func (s *Service) Update(ctx context.Context, adminID int64, r *economy.Reward) (*economy.Reward, error) {
	if err := validate(r); err != nil {
		return nil, err
	}
	if err := s.store.UpdateReward(ctx, r); err != nil {
		return nil, err
	}
	s.audit(ctx, adminID, "reward.update", r.ID, map[string]any{
		"title": r.Title, "price": r.PriceCoins, "stock": r.Stock, "active": r.Active,
	})
	return r, nil
}

// Delete удаляет награду. История обменов сохраняется.
func (s *Service) Delete(ctx context.Context, adminID, rewardID int64) error {
	if err := s.store.DeleteReward(ctx, rewardID); err != nil {
		return err
	}
	s.audit(ctx, adminID, "reward.delete", rewardID, nil)
	return nil
}

func (s *Service) audit(ctx context.Context, adminID int64, action string, rewardID int64, details map[string]any) {
	err := s.store.AppendAudit(ctx, &economy.AuditEntry{
		AdminID:  adminID,
		Action:   action,
		Entity:   "reward",
		EntityID: strconv.FormatInt(rewardID, 10),
		Details:  details,
	})
	if err != nil {
		log.WithError(err).WithField("action", action).Warn("Не удалось записать аудит")
	}
}
