// Package main: точка входа сервиса лояльности.
// Загружает конфигурацию, инициализирует приложение и запускает HTTP API.
// Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"serotonyl.ru/loyalty-backend/internal/app"
	"serotonyl.ru/loyalty-backend/internal/config"
)

func main() {
	setupLogging()

	log.Info("=== Сервис запускается ===")

	// Загружаем конфигурацию из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}

	level, err := log.ParseLevel(cfg.AppLogLevel)
	if err == nil {
		log.SetLevel(level)
	}
	if cfg.LogFile != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}))
	}
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	}

	// Контекст с отменой для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось инициализировать приложение")
	}
	defer application.Close()

	// Запускаем планировщик задач (cron)
	if err := application.Scheduler.Start(ctx, cfg.ConfigRefreshInterval, cfg.ReconcileSchedule); err != nil {
		log.WithError(err).Fatal("Не удалось запустить планировщик")
	}
	defer application.Scheduler.Stop()

	// Обрабатываем сигналы остановки (Ctrl+C, docker stop)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	application.Server.Start(serverErr)

	log.WithFields(log.Fields{
		"addr":    cfg.HTTPAddr,
		"storage": cfg.AppStorage,
		"env":     cfg.AppEnv,
	}).Info("=== Сервис готов к работе ===")

	select {
	case sig := <-quit:
		log.Infof("Получен сигнал %s, останавливаемся...", sig)
	case err := <-serverErr:
		log.WithError(err).Error("HTTP-сервер упал")
	}

	// Отменяем контекст: подписка Redis и задачи cron начнут завершаться
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer stop()
	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Сервер остановлен некорректно")
	}

	log.Info("=== Сервис остановлен ===")
}

// setupLogging настраивает формат логов до загрузки конфига.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
