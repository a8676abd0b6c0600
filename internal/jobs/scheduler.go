// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: периодическое обновление настроек игр
// и ночную сверку журнала с балансами.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/loyalty-backend/internal/features/economy"
)

// ConfigRefresher перечитывает активные настройки игр.
type ConfigRefresher interface {
	Refresh(ctx context.Context) error
}

// Reconciler сверяет журнал с балансами.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]economy.Mismatch, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron       *cron.Cron
	loc        *time.Location
	refresher  ConfigRefresher
	reconciler Reconciler
}

// NewScheduler создаёт планировщик задач в заданном часовом поясе.
func NewScheduler(loc *time.Location, refresher ConfigRefresher, reconciler Reconciler) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		loc:        loc,
		refresher:  refresher,
		reconciler: reconciler,
	}
}

// Start регистрирует задачи и запускает cron.
// refreshEvery: как часто перечитывать настройки игр; reconcileSpec: cron-выражение сверки.
func (s *Scheduler) Start(ctx context.Context, refreshEvery time.Duration, reconcileSpec string) error {
	if s.refresher != nil {
		spec := fmt.Sprintf("@every %s", refreshEvery)
		if _, err := s.cron.AddFunc(spec, func() { s.refreshConfig(ctx) }); err != nil {
			return fmt.Errorf("ошибка регистрации обновления настроек (%s): %w", spec, err)
		}
	}

	if s.reconciler != nil {
		if _, err := s.cron.AddFunc(reconcileSpec, func() { s.reconcile(ctx) }); err != nil {
			return fmt.Errorf("ошибка регистрации сверки (%s): %w", reconcileSpec, err)
		}
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"refresh_every": refreshEvery.String(),
		"reconcile":     reconcileSpec,
	}).Infof("Планировщик задач запущен (%s)", s.loc)
	return nil
}

func (s *Scheduler) refreshConfig(ctx context.Context) {
	log.Debug("[CRON] Обновление настроек игр")
	if err := s.refresher.Refresh(ctx); err != nil {
		log.WithError(err).Error("[CRON] Ошибка обновления настроек игр")
	}
}

func (s *Scheduler) reconcile(ctx context.Context) {
	log.Info("[CRON] Сверка журнала с балансами")
	mismatches, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка сверки")
		return
	}
	for _, m := range mismatches {
		log.WithFields(log.Fields{
			"user_id":        m.UserID,
			"coins":          m.Coins,
			"ledger_coins":   m.LedgerCoins,
			"boxes":          m.Boxes,
			"ledger_boxes":   m.LedgerBoxes,
			"tickets":        m.Tickets,
			"ledger_tickets": m.LedgerTickets,
		}).Warn("[CRON] Баланс расходится с журналом")
	}
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
