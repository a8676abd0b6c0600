// Package cards: статический каталог карт, лестница редкостей,
// сжигание (burn) и слияние (fuse) карт пользователя.
package cards

import "serotonyl.ru/loyalty-backend/internal/features/economy"

// CatalogCard: определение карты в каталоге.
type CatalogCard struct {
	ID     int            `json:"id" yaml:"id"`
	Name   string         `json:"name" yaml:"name"`
	Rarity economy.Rarity `json:"rarity" yaml:"rarity"`
}

// Ladder: редкости по возрастанию.
var Ladder = []economy.Rarity{economy.Common, economy.Rare, economy.Epic, economy.Legendary}

// RarityValue: монеты за редкость. Столько же платится при открытии бокса и при сжигании.
var RarityValue = map[economy.Rarity]int64{
	economy.Common:    1,
	economy.Rare:      3,
	economy.Epic:      10,
	economy.Legendary: 25,
}

// Catalog: все карты, которые могут выпасть.
var Catalog = []CatalogCard{
	{1, "Mini Leaf Coin", economy.Common},
	{2, "Green Stack", economy.Common},
	{3, "Boost Drop", economy.Common},
	{4, "Sun Sprout", economy.Common},
	{5, "Leafy Charm", economy.Common},
	{6, "Coin Sprig", economy.Common},
	{7, "Happy Bud", economy.Common},
	{8, "Bloom Token", economy.Common},
	{9, "Seed Starter", economy.Common},
	{10, "Lucky Clover", economy.Common},
	{11, "Small Glow", economy.Common},
	{12, "Fresh Mint", economy.Common},
	{13, "Green Essence", economy.Common},
	{14, "Coin Sprout", economy.Common},
	{15, "Herb Spark", economy.Common},
	{16, "Leaf Drop", economy.Common},
	{17, "Tiny Bloom", economy.Common},
	{18, "Mini Shroom", economy.Common},
	{19, "Little Stone", economy.Common},
	{20, "Herbal Dust", economy.Common},

	{21, "Coin Storm", economy.Rare},
	{22, "Energy Boost", economy.Rare},
	{23, "Spin Token", economy.Rare},
	{24, "Grovi Gem", economy.Rare},
	{25, "Power Leaf", economy.Rare},
	{26, "Glow Dust", economy.Rare},
	{27, "Root Crystal", economy.Rare},
	{28, "Chroma Vine", economy.Rare},

	{29, "Leaf Wizard", economy.Epic},
	{30, "Chilltoad", economy.Epic},
	{31, "Time Sprout", economy.Epic},

	{32, "Grovi Spirit", economy.Legendary},
	{33, "Golden Guardian", economy.Legendary},
}

// ValidRarity: входит ли редкость в лестницу.
func ValidRarity(r economy.Rarity) bool {
	_, ok := RarityValue[r]
	return ok
}

// Next возвращает следующую ступень. false для Legendary и неизвестных значений.
func Next(r economy.Rarity) (economy.Rarity, bool) {
	for i, step := range Ladder {
		if step == r && i+1 < len(Ladder) {
			return Ladder[i+1], true
		}
	}
	return "", false
}

// Pool возвращает карты каталога заданной редкости.
// Если ids не пуст, пул ограничивается этими карточками (только нужной редкости).
func Pool(r economy.Rarity, ids []int) []CatalogCard {
	var allowed map[int]bool
	if len(ids) > 0 {
		allowed = make(map[int]bool, len(ids))
		for _, id := range ids {
			allowed[id] = true
		}
	}

	var out []CatalogCard
	for _, c := range Catalog {
		if c.Rarity != r {
			continue
		}
		if allowed != nil && !allowed[c.ID] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ByID ищет карту каталога.
func ByID(id int) (CatalogCard, bool) {
	for _, c := range Catalog {
		if c.ID == id {
			return c, true
		}
	}
	return CatalogCard{}, false
}
