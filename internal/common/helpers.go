// Package common содержит общие утилиты, используемые во всём проекте:
// нормализация email, склонение «монет» для логов, работа с часовым поясом.
package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NormalizeEmail приводит email к каноническому виду (trim + lower).
// Email служит ключом пользователя, все входы проходят через эту функцию.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PluralizeCoins возвращает правильную форму слова «монета» для числа n.
//
//	PluralizeCoins(1)  → "монета"
//	PluralizeCoins(3)  → "монеты"
//	PluralizeCoins(11) → "монет"
func PluralizeCoins(n int64) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "монета"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "монеты"
	}
	return "монет"
}

// FormatCoins: FormatCoins(25) → "+25 монет", FormatCoins(-2350) → "-2 350 монет".
func FormatCoins(amount int64) string {
	if amount >= 0 {
		return fmt.Sprintf("+%s %s", FormatNumber(amount), PluralizeCoins(amount))
	}
	return fmt.Sprintf("%s %s", FormatNumber(amount), PluralizeCoins(amount))
}

// FormatNumber разделяет тысячи пробелами: FormatNumber(2350) → "2 350".
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return strconv.FormatInt(n, 10)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}

// LoadLocation загружает часовой пояс, при ошибке возвращает UTC+3 (Москва).
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}
