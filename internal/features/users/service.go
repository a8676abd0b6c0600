package users

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/loyalty-backend/internal/common"
	"serotonyl.ru/loyalty-backend/internal/features/economy"
	"serotonyl.ru/loyalty-backend/internal/security"
)

// Service регистрирует и аутентифицирует покупателей.
type Service struct {
	store  economy.Store
	issuer *security.Issuer
}

// NewService создаёт сервис пользователей.
// issuer подписывает пользовательские токены (не админские).
func NewService(store economy.Store, issuer *security.Issuer) *Service {
	return &Service{store: store, issuer: issuer}
}

// Register создаёт учётную запись или «забирает» запись, созданную вебхуком
// без пароля. Если пароль уже задан, возвращает ErrEmailTaken.
func (s *Service) Register(ctx context.Context, email, password string) (*Session, error) {
	email = common.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.ErrMissingCredentials
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}

	var user *economy.User
	claimed := false
	err = s.store.InTx(ctx, func(ctx context.Context, tx economy.Tx) error {
		u, err := tx.LockUserByEmail(ctx, email)
		switch {
		case err == nil:
			if u.PasswordHash != "" {
				return common.ErrEmailTaken
			}
			u.PasswordHash = hash
			if err := tx.SaveUser(ctx, u); err != nil {
				return err
			}
			claimed = true
			user = u
			return nil
		case common.IsNotFound(err):
			u = &economy.User{Email: email, PasswordHash: hash, Role: economy.RoleUser}
			if err := tx.CreateUser(ctx, u); err != nil {
				return err
			}
			user = u
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": user.ID,
		"email":   user.Email,
		"claimed": claimed,
	}).Info("Пользователь зарегистрирован")

	return s.session(user)
}

// Login проверяет пароль и выдаёт токен.
// Неизвестный email и неверный пароль неразличимы для клиента.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = common.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.ErrMissingCredentials
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if common.IsNotFound(err) {
			return nil, common.ErrWrongPassword
		}
		return nil, err
	}
	if !security.VerifyPassword(password, u.PasswordHash) {
		log.WithField("email", email).Info("Неудачная попытка входа")
		return nil, common.ErrWrongPassword
	}
	if u.Banned {
		return nil, common.ErrBanned
	}
	return s.session(u)
}

// Me возвращает профиль текущего пользователя.
func (s *Service) Me(ctx context.Context, userID int64) (*Profile, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewProfile(u), nil
}

// IsBanned используется middleware.RequireAuth.
func (s *Service) IsBanned(ctx context.Context, userID int64) (bool, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.Banned, nil
}

// IsActiveAdmin используется middleware.RequireAdmin: роль admin и нет бана.
func (s *Service) IsActiveAdmin(ctx context.Context, userID int64) (bool, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.Role == economy.RoleAdmin && !u.Banned, nil
}

func (s *Service) session(u *economy.User) (*Session, error) {
	token, err := s.issuer.Issue(u.ID, u.Email, string(u.Role))
	if err != nil {
		return nil, fmt.Errorf("ошибка выпуска токена: %w", err)
	}
	return &Session{Token: token, User: NewProfile(u)}, nil
}

// EnsureAdmin создаёт админа с заданным хешем или обновляет роль и хеш
// существующего пользователя. Вызывается при старте.
func EnsureAdmin(ctx context.Context, store economy.Store, email, passwordHash string) error {
	email = common.NormalizeEmail(email)
	if email == "" || passwordHash == "" {
		return errors.New("не задан email или хеш пароля админа")
	}

	created := false
	err := store.InTx(ctx, func(ctx context.Context, tx economy.Tx) error {
		u, err := tx.LockUserByEmail(ctx, email)
		if common.IsNotFound(err) {
			created = true
			return tx.CreateUser(ctx, &economy.User{Email: email, PasswordHash: passwordHash, Role: economy.RoleAdmin})
		}
		if err != nil {
			return err
		}
		if u.Role == economy.RoleAdmin && u.PasswordHash == passwordHash {
			return nil
		}
		u.Role = economy.RoleAdmin
		u.PasswordHash = passwordHash
		return tx.SaveUser(ctx, u)
	})
	if err != nil {
		return fmt.Errorf("ошибка создания админа %s: %w", email, err)
	}

	log.WithFields(log.Fields{"email": email, "created": created}).Info("Админ готов")
	return nil
}
