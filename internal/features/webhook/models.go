// Package webhook принимает заказы магазина (WooCommerce): начисляет монеты
// за сумму заказа и выдаёт карты за товары из таблицы product_cards.
package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// StatusCompleted: единственный статус, который начисляет монеты.
const StatusCompleted = "completed"

// OrderID принимает id заказа и числом, и строкой.
type OrderID string

// MaxOrderIDLen: длина колонки processed_orders.order_id.
const MaxOrderIDLen = 64

func (o *OrderID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*o = OrderID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("id заказа: %w", err)
	}
	*o = OrderID(strings.TrimSpace(s))
	return nil
}

// Billing: платёжные данные заказа.
type Billing struct {
	Email string `json:"email"`
}

// LineItem: позиция заказа.
type LineItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Order: тело вебхука order.completed / order.updated.
type Order struct {
	ID        OrderID         `json:"id"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	Billing   Billing         `json:"billing"`
	LineItems []LineItem      `json:"line_items"`
}

// Outcome: что сделал обработчик с заказом.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// Result: итог обработки заказа.
type Result struct {
	Outcome     Outcome  `json:"outcome"`
	OrderID     string   `json:"orderId"`
	UserID      int64    `json:"userId,omitempty"`
	CoinsAdded  int64    `json:"coinsAdded"`
	CardsMinted []string `json:"cardsMinted,omitempty"`
	NewUser     bool     `json:"newUser,omitempty"`
}
