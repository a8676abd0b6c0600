// Package economy: ledger.go описывает журнал операций.
// Журнал только дополняется: API для изменения или удаления записей нет.
package economy

import (
	"encoding/json"
	"fmt"
	"time"
)

// Source: источник записи, он же тег варианта Meta.
type Source string

const (
	SourceSpin    Source = "spin"
	SourceBoxOpen Source = "box-open"
	SourceBurn    Source = "burn"
	SourceFuse    Source = "fuse"
	SourceRedeem  Source = "redeem"
	SourceWebhook Source = "webhook"
	SourceAdjust  Source = "admin-adjust"
)

// Entry: одна запись журнала. Coins/Boxes/Tickets: знаковые дельты.
type Entry struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Coins     int64     `db:"coins"`
	Boxes     int64     `db:"boxes"`
	Tickets   int64     `db:"tickets"`
	Source    Source    `db:"source"`
	Meta      Meta      `db:"meta"`
	CreatedAt time.Time `db:"created_at"`
}

// Meta: типизированный контекст записи. У каждого источника свой вариант.
type Meta interface {
	Source() Source
}

// SpinMeta: результат спина.
type SpinMeta struct {
	Mode        string `json:"mode"`
	Outcome     string `json:"outcome"`
	OutcomeType string `json:"outcomeType"`
	Value       int64  `json:"value"`
	TicketUsed  bool   `json:"ticketUsed"`
	BoxGranted  int64  `json:"boxGranted,omitempty"`
}

// BoxOpenMeta: открытие бокса.
type BoxOpenMeta struct {
	Rarity    Rarity `json:"rarity"`
	CardName  string `json:"cardName"`
	CatalogID int    `json:"catalogId"`
	CardID    int64  `json:"cardId"`
}

// BurnMeta: сжигание карты.
type BurnMeta struct {
	Rarity   Rarity `json:"rarity"`
	CardName string `json:"cardName"`
	CardID   int64  `json:"cardId"`
}

// FuseMeta: слияние трёх карт в одну.
type FuseMeta struct {
	From      Rarity  `json:"from"`
	To        Rarity  `json:"to"`
	Consumed  []int64 `json:"consumed"`
	NewCardID int64   `json:"newCardId"`
	CardName  string  `json:"cardName"`
}

// RedeemMeta: обмен на награду.
type RedeemMeta struct {
	RewardID     int64      `json:"rewardId"`
	RedemptionID int64      `json:"redemptionId"`
	Title        string     `json:"title"`
	Type         RewardType `json:"type"`
	Price        int64      `json:"price"`
}

// WebhookMeta: начисление по заказу магазина.
type WebhookMeta struct {
	OrderID     string   `json:"orderId"`
	Total       string   `json:"total"`
	CardsMinted []string `json:"cardsMinted,omitempty"`
}

// AdjustMeta: ручная корректировка админом.
type AdjustMeta struct {
	AdminID int64  `json:"adminId"`
	Reason  string `json:"reason,omitempty"`
}

func (SpinMeta) Source() Source    { return SourceSpin }
func (BoxOpenMeta) Source() Source { return SourceBoxOpen }
func (BurnMeta) Source() Source    { return SourceBurn }
func (FuseMeta) Source() Source    { return SourceFuse }
func (RedeemMeta) Source() Source  { return SourceRedeem }
func (WebhookMeta) Source() Source { return SourceWebhook }
func (AdjustMeta) Source() Source  { return SourceAdjust }

// NewEntry собирает запись; Source всегда берётся из варианта Meta.
func NewEntry(userID, coins, boxes, tickets int64, meta Meta) *Entry {
	return &Entry{
		UserID:  userID,
		Coins:   coins,
		Boxes:   boxes,
		Tickets: tickets,
		Source:  meta.Source(),
		Meta:    meta,
	}
}

// EncodeMeta сериализует Meta для колонки JSONB.
func EncodeMeta(m Meta) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации meta (%s): %w", m.Source(), err)
	}
	return b, nil
}

// DecodeMeta восстанавливает вариант Meta по тегу source.
func DecodeMeta(source Source, raw []byte) (Meta, error) {
	var m Meta
	switch source {
	case SourceSpin:
		m = &SpinMeta{}
	case SourceBoxOpen:
		m = &BoxOpenMeta{}
	case SourceBurn:
		m = &BurnMeta{}
	case SourceFuse:
		m = &FuseMeta{}
	case SourceRedeem:
		m = &RedeemMeta{}
	case SourceWebhook:
		m = &WebhookMeta{}
	case SourceAdjust:
		m = &AdjustMeta{}
	default:
		return nil, fmt.Errorf("неизвестный источник записи: %q", source)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, m); err != nil {
			return nil, fmt.Errorf("ошибка разбора meta (%s): %w", source, err)
		}
	}
	return derefMeta(m), nil
}

// derefMeta возвращает значение, а не указатель, чтобы type switch
// по Meta работал одинаково для новых и прочитанных записей.
func derefMeta(m Meta) Meta {
	switch v := m.(type) {
	case *SpinMeta:
		return *v
	case *BoxOpenMeta:
		return *v
	case *BurnMeta:
		return *v
	case *FuseMeta:
		return *v
	case *RedeemMeta:
		return *v
	case *WebhookMeta:
		return *v
	case *AdjustMeta:
		return *v
	}
	return m
}

// entryJSON: представление записи в API.
type entryJSON struct {
	ID        int64     `json:"id"`
	Coins     int64     `json:"coins"`
	Boxes     int64     `json:"boxes,omitempty"`
	Tickets   int64     `json:"tickets,omitempty"`
	Source    Source    `json:"source"`
	Meta      Meta      `json:"meta"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// MarshalJSON отдаёт запись вместе с типизированной meta.
func (e *Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		ID: e.ID, Coins: e.Coins, Boxes: e.Boxes, Tickets: e.Tickets,
		Source: e.Source, Meta: e.Meta, UserID: e.UserID, CreatedAt: e.CreatedAt,
	})
}
