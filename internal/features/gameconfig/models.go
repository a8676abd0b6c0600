// Package gameconfig хранит настройки игр (таблица спина, пулы бокса),
// отдаёт активную версию движкам через Provider и версионирует правки админа.
package gameconfig

import (
	"time"

	"serotonyl.ru/loyalty-backend/internal/features/economy"
)

// OutcomeType: что даёт исход спина.
type OutcomeType string

const (
	OutcomeCoins      OutcomeType = "coins"
	OutcomeMysteryBox OutcomeType = "mystery_box"
	OutcomeExtraSpin  OutcomeType = "extra_spin"
	OutcomeNothing    OutcomeType = "nothing"
)

// Valid: известен ли тип исхода.
func (t OutcomeType) Valid() bool {
	switch t {
	case OutcomeCoins, OutcomeMysteryBox, OutcomeExtraSpin, OutcomeNothing:
		return true
	}
	return false
}

// SpinWeight: одна строка таблицы спина.
type SpinWeight struct {
	Label  string      `json:"label" yaml:"label"`
	Type   OutcomeType `json:"type" yaml:"type"`
	Value  int64       `json:"value" yaml:"value"`
	Weight float64     `json:"weight" yaml:"weight"`
}

// SpinConfig: версия настроек спина.
type SpinConfig struct {
	ID                   int64        `json:"id" yaml:"-"`
	Name                 string       `json:"name" yaml:"name"`
	Weights              []SpinWeight `json:"weights" yaml:"weights"`
	FreeCooldownHours    float64      `json:"freeCooldownHours" yaml:"freeCooldownHours"`
	PremiumCooldownHours float64      `json:"premiumCooldownHours" yaml:"premiumCooldownHours"`
	Version              int          `json:"version" yaml:"version"`
	IsPublished          bool         `json:"isPublished" yaml:"isPublished"`
	UpdatedAt            time.Time    `json:"updatedAt" yaml:"-"`
}

// Clone: копия без общих слайсов.
func (c *SpinConfig) Clone() *SpinConfig {
	cp := *c
	cp.Weights = append([]SpinWeight(nil), c.Weights...)
	return &cp
}

// RarityPool: вес редкости в боксе и, при необходимости, список карт каталога.
type RarityPool struct {
	Rarity  economy.Rarity `json:"rarity" yaml:"rarity"`
	Weight  float64        `json:"weight" yaml:"weight"`
	CardIDs []int          `json:"cardIds,omitempty" yaml:"cardIds"`
}

// BoxConfig: версия настроек бокса.
type BoxConfig struct {
	ID          int64        `json:"id" yaml:"-"`
	Name        string       `json:"name" yaml:"name"`
	Pools       []RarityPool `json:"pools" yaml:"pools"`
	Version     int          `json:"version" yaml:"version"`
	IsPublished bool         `json:"isPublished" yaml:"isPublished"`
	UpdatedAt   time.Time    `json:"updatedAt" yaml:"-"`
}

// Clone: копия без общих слайсов.
func (c *BoxConfig) Clone() *BoxConfig {
	cp := *c
	cp.Pools = make([]RarityPool, len(c.Pools))
	for i, p := range c.Pools {
		p.CardIDs = append([]int(nil), p.CardIDs...)
		cp.Pools[i] = p
	}
	return &cp
}
