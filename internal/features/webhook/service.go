package webhook

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/loyalty-backend/internal/common"
	"serotonyl.ru/loyalty-backend/internal/features/cards"
	"serotonyl.ru/loyalty-backend/internal/features/economy"
)

// Service превращает оплаченные заказы в монеты и карты.
type Service struct {
	store economy.Store
}

// NewService создаёт обработчик заказов.
func NewService(store economy.Store) *Service {
	return &Service{store: store}
}

// Process обрабатывает один заказ. Повторная доставка того же заказа
// возвращает OutcomeDuplicate и ничего не меняет.
func (s *Service) Process(ctx context.Context, order *Order) (*Result, error) {
	entry := log.WithFields(log.Fields{"order_id": order.ID, "status": order.Status})

	if order.Status != StatusCompleted {
		entry.Debug("Заказ не завершён, пропускаем")
		return &Result{Outcome: OutcomeIgnored, OrderID: string(order.ID)}, nil
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: нет id заказа", common.ErrInvalidPayload)
	}
	if len(order.ID) > MaxOrderIDLen {
		return nil, fmt.Errorf("%w: id заказа длиннее %d символов", common.ErrInvalidPayload, MaxOrderIDLen)
	}
	email := common.NormalizeEmail(order.Billing.Email)
	if email == "" {
		// гостевой заказ без email: начислять некому, повторная доставка не нужна
		entry.Warn("В заказе нет email покупателя, пропускаем")
		return &Result{Outcome: OutcomeIgnored, OrderID: string(order.ID)}, nil
	}
	if order.Total.IsNegative() {
		return nil, fmt.Errorf("%w: отрицательная сумма заказа", common.ErrInvalidAmount)
	}
	coins := order.Total.Floor().IntPart()

	mints := s.resolveCards(ctx, order.LineItems)

	res, err := s.apply(ctx, order, email, coins, mints)
	// два параллельных вебхука с новым email: второй увидит созданного пользователя
	if errors.Is(err, common.ErrEmailTaken) {
		res, err = s.apply(ctx, order, email, coins, mints)
	}
	if err != nil {
		return nil, err
	}

	entry.WithFields(log.Fields{
		"user_id":  res.UserID,
		"outcome":  res.Outcome,
		"cards":    len(res.CardsMinted),
		"new_user": res.NewUser,
	}).Info("Заказ обработан: " + common.FormatCoins(res.CoinsAdded))
	return res, nil
}

// resolveCards находит карты каталога для позиций заказа.
// Товары без активной привязки пропускаются.
func (s *Service) resolveCards(ctx context.Context, items []LineItem) []cards.CatalogCard {
	var out []cards.CatalogCard
	for _, item := range items {
		mapping, err := s.store.ProductCard(ctx, item.ProductID)
		if err != nil {
			if !common.IsNotFound(err) {
				log.WithError(err).WithField("product_id", item.ProductID).Warn("Ошибка чтения привязки товара")
			}
			continue
		}
		if !mapping.Active {
			continue
		}
		def, ok := cards.ByID(mapping.CatalogID)
		if !ok {
			log.WithFields(log.Fields{
				"product_id": item.ProductID,
				"catalog_id": mapping.CatalogID,
			}).Warn("Товар привязан к несуществующей карте")
			continue
		}
		out = append(out, def)
	}
	return out
}

func (s *Service) apply(ctx context.Context, order *Order, email string, coins int64, mints []cards.CatalogCard) (*Result, error) {
	res := &Result{OrderID: string(order.ID)}
	err := s.store.InTx(ctx, func(ctx context.Context, tx economy.Tx) error {
		u, err := tx.LockUserByEmail(ctx, email)
		if common.IsNotFound(err) {
			u = &economy.User{Email: email, Role: economy.RoleUser}
			if err := tx.CreateUser(ctx, u); err != nil {
				return err
			}
			res.NewUser = true
		} else if err != nil {
			return err
		}
		res.UserID = u.ID

		claimed, err := tx.ClaimOrder(ctx, string(order.ID), u.ID)
		if err != nil {
			return err
		}
		if !claimed {
			res.Outcome = OutcomeDuplicate
			return errDuplicate
		}

		for _, def := range mints {
			card := &economy.Card{
				UserID:    u.ID,
				CatalogID: def.ID,
				Name:      def.Name,
				Rarity:    def.Rarity,
				Origin:    economy.OriginOrder,
			}
			if err := tx.InsertCard(ctx, card); err != nil {
				return err
			}
			res.CardsMinted = append(res.CardsMinted, def.Name)
		}

		u.Coins += coins
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
		meta := economy.WebhookMeta{OrderID: string(order.ID), Total: order.Total.String(), CardsMinted: res.CardsMinted}
		if err := tx.AppendLedger(ctx, economy.NewEntry(u.ID, coins, 0, 0, meta)); err != nil {
			return err
		}

		res.Outcome = OutcomeProcessed
		res.CoinsAdded = coins
		return nil
	})
	if errors.Is(err, errDuplicate) {
		// дубликат откатывает транзакцию, в том числе создание пользователя
		dup := &Result{Outcome: OutcomeDuplicate, OrderID: string(order.ID)}
		if !res.NewUser {
			dup.UserID = res.UserID
		}
		return dup, nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

var errDuplicate = errors.New("заказ уже обработан")
