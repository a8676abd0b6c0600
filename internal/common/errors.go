// Package common: errors.go объявляет доменные ошибки, общие для всех модулей.
// HTTP-слой сопоставляет их со статус-кодами в одном месте (middleware.WriteError),
// поэтому сервисы возвращают именно эти значения, обёрнутые через %w.
package common

import (
	"errors"
	"fmt"
)

// Ошибки поиска
var (
	// ErrNotFound: общий признак «не найдено»
	ErrNotFound = errors.New("не найдено")
	// ErrUserNotFound: пользователь не найден
	ErrUserNotFound error = &notFoundError{msg: "пользователь не найден"}
	// ErrCardNotFound: карта не найдена или принадлежит другому пользователю
	ErrCardNotFound error = &notFoundError{msg: "карта не найдена"}
	// ErrRewardNotFound: награда не найдена
	ErrRewardNotFound error = &notFoundError{msg: "награда не найдена"}
)

// notFoundError: конкретная ошибка поиска, errors.Is(err, ErrNotFound) для неё true.
type notFoundError struct {
	msg string
}

func (e *notFoundError) Error() string { return e.msg }

func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }

// Ошибки экономики (монеты, боксы, тикеты)
var (
	// ErrCooldown: действие ещё на кулдауне (см. CooldownError)
	ErrCooldown = errors.New("действие ещё недоступно")
	// ErrNoInventory: нет неоткрытых боксов
	ErrNoInventory = errors.New("нет неоткрытых боксов")
	// ErrOutOfStock: награда закончилась
	ErrOutOfStock = errors.New("награда закончилась")
	// ErrInsufficientBalance: недостаточно монет на счёте
	ErrInsufficientBalance = errors.New("недостаточно монет на счёте")
	// ErrUnavailable: награда выключена
	ErrUnavailable = errors.New("награда недоступна")
	// ErrInvalidAmount: некорректная сумма
	ErrInvalidAmount = errors.New("некорректная сумма")
	// ErrInvalidMode: неизвестный режим спина
	ErrInvalidMode = errors.New("режим должен быть free или premium")
)

// Ошибки карт
var (
	// ErrInsufficientMaterials: для слияния нужно 3 карты одной редкости
	ErrInsufficientMaterials = errors.New("для слияния нужно 3 карты одной редкости")
	// ErrInvalidTier: редкость неизвестна или уже максимальная
	ErrInvalidTier = errors.New("эту редкость нельзя улучшить")
)

// Ошибки конфигурации игр
var (
	// ErrConfig: вырожденная таблица весов (пустая или с нулевой суммой)
	ErrConfig = errors.New("некорректная таблица весов")
)

// Ошибки аутентификации
var (
	// ErrMissingCredentials: не передан email или пароль
	ErrMissingCredentials = errors.New("нужны email и пароль")
	// ErrEmailTaken: email уже зарегистрирован
	ErrEmailTaken = errors.New("email уже зарегистрирован")
	// ErrWrongPassword: неверный email или пароль
	ErrWrongPassword = errors.New("неверный email или пароль")
	// ErrTooManyAttempts: слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrUnauthorized: нет токена или он недействителен
	ErrUnauthorized = errors.New("требуется авторизация")
	// ErrForbidden: недостаточно прав
	ErrForbidden = errors.New("недостаточно прав")
	// ErrBanned: пользователь заблокирован
	ErrBanned = errors.New("аккаунт заблокирован")
)

// Ошибки вебхука
var (
	// ErrInvalidSignature: подпись вебхука не совпала
	ErrInvalidSignature = errors.New("неверная подпись вебхука")
	// ErrInvalidPayload: тело вебхука не разобрать
	ErrInvalidPayload = errors.New("некорректное тело заказа")
)

// CooldownError возвращается, когда спин ещё на кулдауне.
// errors.Is(err, ErrCooldown) == true.
type CooldownError struct {
	RemainingMinutes int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: осталось %d мин", ErrCooldown.Error(), e.RemainingMinutes)
}

func (e *CooldownError) Unwrap() error { return ErrCooldown }

// IsNotFound сообщает, относится ли ошибка к группе «не найдено».
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
