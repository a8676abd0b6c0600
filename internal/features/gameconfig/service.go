package gameconfig

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/loyalty-backend/internal/features/economy"
)

const (
	KindSpin = "spin"
	KindBox  = "box"
)

// Auditor записывает действия админа.
type Auditor interface {
	AppendAudit(ctx context.Context, a *economy.AuditEntry) error
}

// Service: экраны настроек игр в админке.
type Service struct {
	repo     Repository
	provider *CachedProvider
	notifier Notifier
	audit    Auditor
}

// NewService создаёт сервис. notifier и audit могут быть nil.
func NewService(repo Repository, provider *CachedProvider, notifier Notifier, audit Auditor) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{repo: repo, provider: provider, notifier: notifier, audit: audit}
}

// Spin возвращает действующую таблицу спина.
func (s *Service) Spin(ctx context.Context) *SpinConfig {
	return s.provider.Spin(ctx)
}

// Box возвращает действующие пулы бокса.
func (s *Service) Box(ctx context.Context) *BoxConfig {
	return s.provider.Box(ctx)
}

// UpdateSpin проверяет и публикует новую версию таблицы спина.
func (s *Service) UpdateSpin(ctx context.Context, adminID int64, c *SpinConfig) (*SpinConfig, error) {
	if err := ValidateSpin(c); err != nil {
		return nil, err
	}
	if c.Name == "" {
		c.Name = "custom"
	}
	c.IsPublished = true
	if err := s.repo.SaveSpin(ctx, c); err != nil {
		return nil, fmt.Errorf("ошибка сохранения настроек спина: %w", err)
	}
	s.afterSave(ctx, adminID, KindSpin, c.Version)
	return c, nil
}

// UpdateBox проверяет и публикует новую версию пулов бокса.
func (s *Service) UpdateBox(ctx context.Context, adminID int64, c *BoxConfig) (*BoxConfig, error) {
	if err := ValidateBox(c); err != nil {
		return nil, err
	}
	if c.Name == "" {
		c.Name = "custom"
	}
	c.IsPublished = true
	if err := s.repo.SaveBox(ctx, c); err != nil {
		return nil, fmt.Errorf("ошибка сохранения настроек бокса: %w", err)
	}
	s.afterSave(ctx, adminID, KindBox, c.Version)
	return c, nil
}

// afterSave обновляет локальный кэш и уведомляет остальные экземпляры.
// Ошибки здесь не откатывают сохранение: крон всё равно подтянет версию.
func (s *Service) afterSave(ctx context.Context, adminID int64, kind string, version int) {
	entry := log.WithFields(log.Fields{"kind": kind, "version": version, "admin_id": adminID})
	if err := s.provider.Refresh(ctx); err != nil {
		entry.WithError(err).Warn("Не удалось обновить кэш настроек")
	}
	if err := s.notifier.Publish(ctx, kind); err != nil {
		entry.WithError(err).Warn("Не удалось разослать уведомление")
	}
	if s.audit != nil {
		err := s.audit.AppendAudit(ctx, &economy.AuditEntry{
			AdminID:  adminID,
			Action:   "config.publish",
			Entity:   kind + "_config",
			EntityID: strconv.Itoa(version),
		})
		if err != nil {
			entry.WithError(err).Warn("Не удалось записать аудит")
		}
	}
	entry.Info("Опубликована новая версия настроек")
}
