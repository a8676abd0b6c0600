// Package cooldown считает, можно ли повторить действие с ограничением по времени.
package cooldown

import (
	"math"
	"time"
)

// Decision: результат проверки. RemainingMinutes имеет смысл только при Allowed == false.
type Decision struct {
	Allowed          bool
	RemainingMinutes int
}

// Check разрешает действие, если прошлого действия не было или
// с него прошло не меньше cooldownHours часов (дробные часы допустимы).
//
//	Check(now, now-1h, 24)  → {false, 1380}
//	Check(now, now-25h, 24) → {true, 0}
func Check(now time.Time, last *time.Time, cooldownHours float64) Decision {
	if last == nil || cooldownHours <= 0 {
		return Decision{Allowed: true}
	}

	elapsed := now.Sub(*last).Hours()
	if elapsed >= cooldownHours {
		return Decision{Allowed: true}
	}

	remaining := int(math.Ceil((cooldownHours - elapsed) * 60))
	if remaining < 1 {
		remaining = 1
	}
	return Decision{Allowed: false, RemainingMinutes: remaining}
}

// NextAt возвращает момент, когда действие снова станет доступно.
// nil означает «доступно сейчас».
func NextAt(now time.Time, last *time.Time, cooldownHours float64) *time.Time {
	if Check(now, last, cooldownHours).Allowed {
		return nil
	}
	next := last.Add(time.Duration(cooldownHours * float64(time.Hour)))
	return &next
}
