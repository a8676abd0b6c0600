// Package admin: service.go содержит аутентификацию админа (Argon2id + лимит
// попыток) и операции админки. Каждая запись пишется в admin_audit.
package admin

import (
	"context"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/loyalty-backend/internal/common"
	"serotonyl.ru/loyalty-backend/internal/features/cards"
	"serotonyl.ru/loyalty-backend/internal/features/economy"
	"serotonyl.ru/loyalty-backend/internal/features/users"
	"serotonyl.ru/loyalty-backend/internal/security"
)

// Service управляет админ-панелью.
type Service struct {
	store   economy.Store
	economy *economy.Service
	issuer  *security.Issuer
	now     func() time.Time
}

// NewService создаёт сервис админки. issuer подписывает админские токены
// отдельным секретом.
func NewService(store economy.Store, economySvc *economy.Service, issuer *security.Issuer) *Service {
	return &Service{
		store:   store,
		economy: economySvc,
		issuer:  issuer,
		now:     time.Now,
	}
}

// Login проверяет пароль администратора.
// Включает защиту от brute-force: 3 неудачные попытки = блокировка на 1 час.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = common.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.ErrMissingCredentials
	}

	attempts, err := s.store.FailedLoginsSince(ctx, email, s.now().Add(-LoginWindow))
	if err != nil {
		return nil, err
	}
	if attempts >= MaxFailedLogins {
		log.WithField("email", email).Warn("Вход в админку заблокирован: слишком много попыток")
		return nil, common.ErrTooManyAttempts
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil && !common.IsNotFound(err) {
		return nil, err
	}
	match := u != nil && u.Role == economy.RoleAdmin && !u.Banned &&
		security.VerifyPassword(password, u.PasswordHash)

	if err := s.store.LogLoginAttempt(ctx, email, match); err != nil {
		log.WithError(err).Error("Ошибка записи попытки входа")
	}
	if !match {
		return nil, common.ErrWrongPassword
	}

	token, err := s.issuer.Issue(u.ID, u.Email, string(economy.RoleAdmin))
	if err != nil {
		return nil, fmt.Errorf("ошибка выпуска токена: %w", err)
	}
	s.audit(ctx, u.ID, ActionAdminLoggedIn, "admin", u.ID, nil)

	log.WithField("admin_id", u.ID).Info("Админ вошёл в панель")
	return &Session{Token: token, Email: u.Email, Role: string(economy.RoleAdmin)}, nil
}

// KPIs собирает сводку за последние rangeDays дней.
func (s *Service) KPIs(ctx context.Context, rangeDays int) (*KPIs, error) {
	if rangeDays <= 0 {
		rangeDays = DefaultKPIRange
	}
	if rangeDays > MaxKPIRange {
		rangeDays = MaxKPIRange
	}

	stats, err := s.store.Stats(ctx, s.now().AddDate(0, 0, -rangeDays))
	if err != nil {
		return nil, err
	}
	if stats.TopCards == nil {
		stats.TopCards = []economy.CardPulls{}
	}
	latest, err := s.store.ListLedger(ctx, economy.LedgerFilter{Limit: latestTxLimit})
	if err != nil {
		return nil, err
	}
	if latest == nil {
		latest = []*economy.Entry{}
	}
	return &KPIs{RangeDays: rangeDays, Stats: stats, LatestTx: latest}, nil
}

// Users: страница пользователей.
func (s *Service) Users(ctx context.Context, limit, offset int) ([]*users.Profile, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.store.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*users.Profile, 0, len(list))
	for _, u := range list {
		out = append(out, users.NewProfile(u))
	}
	return out, nil
}

// SetBanned блокирует или разблокирует пользователя.
func (s *Service) SetBanned(ctx context.Context, adminID, userID int64, banned bool) error {
	if err := s.store.SetBanned(ctx, userID, banned); err != nil {
		return err
	}

	action := ActionUserUnban
	if banned {
		action = ActionUserBan
	}
	s.audit(ctx, adminID, action, "user", userID, nil)

	log.WithFields(log.Fields{
		"admin_id": adminID,
		"user_id":  userID,
		"banned":   banned,
	}).Info("Статус блокировки изменён")
	return nil
}

// AdjustCoins вручную меняет баланс (запись admin-adjust в журнале).
func (s *Service) AdjustCoins(ctx context.Context, adminID, userID, delta int64, reason string) (*users.Profile, error) {
	u, err := s.economy.AdjustCoins(ctx, adminID, userID, delta, reason)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, adminID, ActionUserAdjust, "user", userID, map[string]any{
		"delta":  delta,
		"reason": reason,
	})
	return users.NewProfile(u), nil
}

// Transactions: журнал по всем пользователям.
func (s *Service) Transactions(ctx context.Context, f economy.LedgerFilter) ([]*economy.Entry, error) {
	return s.economy.AllTransactions(ctx, f)
}

// ProductCards: текущая привязка товаров к картам.
func (s *Service) ProductCards(ctx context.Context) ([]*economy.ProductCard, error) {
	return s.store.ListProductCards(ctx)
}

// SetProductCard создаёт или меняет привязку товара к карте каталога.
func (s *Service) SetProductCard(ctx context.Context, adminID int64, p *economy.ProductCard) error {
	if p.ProductID <= 0 {
		return fmt.Errorf("product_id=%d: %w", p.ProductID, common.ErrInvalidPayload)
	}
	card, ok := cards.ByID(p.CatalogID)
	if !ok {
		return fmt.Errorf("карта каталога %d: %w", p.CatalogID, common.ErrCardNotFound)
	}
	if p.Title == "" {
		p.Title = card.Name
	}
	if err := s.store.UpsertProductCard(ctx, p); err != nil {
		return err
	}
	s.audit(ctx, adminID, ActionProductCard, "product_card", p.ProductID, map[string]any{
		"catalogId": p.CatalogID,
		"active":    p.Active,
	})
	return nil
}

// Audit: последние записи журнала действий.
func (s *Service) Audit(ctx context.Context, limit int) ([]*economy.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListAudit(ctx, limit)
}

// audit пишет запись аудита. Ошибка только логируется: действие уже выполнено.
func (s *Service) audit(ctx context.Context, adminID int64, action, entity string, entityID int64, details map[string]any) {
	err := s.store.AppendAudit(ctx, &economy.AuditEntry{
		AdminID:  adminID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Details:  details,
	})
	if err != nil {
		log.WithError(err).WithField("action", action).Error("Ошибка записи аудита")
	}
}
