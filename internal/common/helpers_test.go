package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Fatalf("NormalizeEmail = %q, want %q", got, "alice@example.com")
	}
}

func TestPluralizeCoins(t *testing.T) {
	t.Parallel()
	cases := map[int64]string{
		0: "монет", 1: "монета", 2: "монеты", 5: "монет", 11: "монет",
		14: "монет", 21: "монета", 22: "монеты", 111: "монет", -3: "монеты",
	}
	for n, want := range cases {
		if got := PluralizeCoins(n); got != want {
			t.Fatalf("PluralizeCoins(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestFormatCoins(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   int64
		want string
	}{
		{0, "+0 монет"},
		{25, "+25 монет"},
		{-3, "-3 монеты"},
		{2350, "+2 350 монет"},
		{-1000001, "-1 000 001 монета"},
	}
	for _, tt := range tests {
		if got := FormatCoins(tt.in); got != tt.want {
			t.Fatalf("FormatCoins(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCooldownErrorUnwrap(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("spin: %w", &CooldownError{RemainingMinutes: 1380})
	if !errors.Is(err, ErrCooldown) {
		t.Fatalf("errors.Is(err, ErrCooldown) = false")
	}
	var cd *CooldownError
	if !errors.As(err, &cd) || cd.RemainingMinutes != 1380 {
		t.Fatalf("errors.As failed or wrong minutes: %+v", cd)
	}
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()
	for _, err := range []error{ErrUserNotFound, ErrCardNotFound, fmt.Errorf("x: %w", ErrRewardNotFound)} {
		if !IsNotFound(err) {
			t.Fatalf("IsNotFound(%v) = false", err)
		}
	}
	if IsNotFound(ErrOutOfStock) {
		t.Fatalf("IsNotFound(ErrOutOfStock) = true")
	}
}

func TestNotFoundErrorsUnwrapToErrNotFound(t *testing.T) {
	t.Parallel()
	for _, err := range []error{ErrUserNotFound, ErrCardNotFound, ErrRewardNotFound} {
		wrapped := fmt.Errorf("id=1: %w", err)
		if !errors.Is(wrapped, ErrNotFound) {
			t.Fatalf("errors.Is(%v, ErrNotFound) = false", err)
		}
		if !errors.Is(wrapped, err) {
			t.Fatalf("errors.Is(%v, itself) = false", err)
		}
	}
	if errors.Is(ErrUserNotFound, ErrCardNotFound) {
		t.Fatalf("ErrUserNotFound must not match ErrCardNotFound")
	}
	if ErrUserNotFound.Error() != "пользователь не найден" {
		t.Fatalf("message = %q", ErrUserNotFound.Error())
	}
}
