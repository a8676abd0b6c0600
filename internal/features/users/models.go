// Package users управляет учётными записями покупателей:
// регистрацией, входом и профилем.
package users

import (
	"time"

	"serotonyl.ru/loyalty-backend/internal/features/economy"
)

// Profile: публичное представление пользователя.
// Хеш пароля и служебные поля наружу не отдаются.
type Profile struct {
	ID                int64        `json:"id"`
	Email             string       `json:"email"`
	Role              economy.Role `json:"role"`
	Banned            bool         `json:"banned"`
	Coins             int64        `json:"coins"`
	Boxes             int64        `json:"boxes"`
	SpinTickets       int64        `json:"spinTickets"`
	SpinsUsed         int64        `json:"spinsUsed"`
	BoxesOpened       int64        `json:"boxesOpened"`
	HasPassword       bool         `json:"hasPassword"`
	LastFreeSpinAt    *time.Time   `json:"lastFreeSpinAt,omitempty"`
	LastPremiumSpinAt *time.Time   `json:"lastPremiumSpinAt,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
}

// NewProfile строит Profile из снимка пользователя.
func NewProfile(u *economy.User) *Profile {
	return &Profile{
		ID:                u.ID,
		Email:             u.Email,
		Role:              u.Role,
		Banned:            u.Banned,
		Coins:             u.Coins,
		Boxes:             u.Boxes,
		SpinTickets:       u.SpinTickets,
		SpinsUsed:         u.SpinsUsed,
		BoxesOpened:       u.BoxesOpened,
		HasPassword:       u.PasswordHash != "",
		LastFreeSpinAt:    u.LastFreeSpinAt,
		LastPremiumSpinAt: u.LastPremiumSpinAt,
		CreatedAt:         u.CreatedAt,
	}
}

// Session: выданный токен вместе с профилем.
type Session struct {
	Token string   `json:"token"`
	User  *Profile `json:"user"`
}
