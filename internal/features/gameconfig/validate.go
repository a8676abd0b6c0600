package gameconfig

import (
	"fmt"

	"serotonyl.ru/loyalty-backend/internal/common"
	"serotonyl.ru/loyalty-backend/internal/features/cards"
	"serotonyl.ru/loyalty-backend/internal/features/economy"
)

// ValidateSpin проверяет таблицу спина перед сохранением.
func ValidateSpin(c *SpinConfig) error {
	if len(c.Weights) == 0 {
		return fmt.Errorf("%w: таблица пуста", common.ErrConfig)
	}
	total := 0.0
	for i, w := range c.Weights {
		if !w.Type.Valid() {
			return fmt.Errorf("%w: строка %d: неизвестный тип %q", common.ErrConfig, i, w.Type)
		}
		if w.Weight < 0 {
			return fmt.Errorf("%w: строка %d: отрицательный вес", common.ErrConfig, i)
		}
		if w.Value < 0 {
			return fmt.Errorf("%w: строка %d: отрицательное значение", common.ErrConfig, i)
		}
		total += w.Weight
	}
	if total <= 0 {
		return fmt.Errorf("%w: сумма весов равна нулю", common.ErrConfig)
	}
	if c.FreeCooldownHours <= 0 || c.PremiumCooldownHours <= 0 {
		return fmt.Errorf("%w: кулдаун должен быть больше нуля", common.ErrConfig)
	}
	return nil
}

// ValidateBox проверяет пулы бокса: известные редкости без повторов,
// положительная сумма весов, cardIds существуют и совпадают по редкости.
func ValidateBox(c *BoxConfig) error {
	if len(c.Pools) == 0 {
		return fmt.Errorf("%w: пулы не заданы", common.ErrConfig)
	}
	seen := make(map[economy.Rarity]bool, len(c.Pools))
	total := 0.0
	for _, p := range c.Pools {
		if !cards.ValidRarity(p.Rarity) {
			return fmt.Errorf("%w: неизвестная редкость %q", common.ErrConfig, p.Rarity)
		}
		if seen[p.Rarity] {
			return fmt.Errorf("%w: редкость %s указана дважды", common.ErrConfig, p.Rarity)
		}
		seen[p.Rarity] = true
		if p.Weight < 0 {
			return fmt.Errorf("%w: %s: отрицательный вес", common.ErrConfig, p.Rarity)
		}
		total += p.Weight
		for _, id := range p.CardIDs {
			card, ok := cards.ByID(id)
			if !ok {
				return fmt.Errorf("%w: %s: карты %d нет в каталоге", common.ErrConfig, p.Rarity, id)
			}
			if card.Rarity != p.Rarity {
				return fmt.Errorf("%w: карта %d имеет редкость %s, а не %s", common.ErrConfig, id, card.Rarity, p.Rarity)
			}
		}
	}
	if total <= 0 {
		return fmt.Errorf("%w: сумма весов равна нулю", common.ErrConfig)
	}
	return nil
}
