package gameconfig

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Notifier сообщает другим экземплярам сервиса, что настройки изменились.
type Notifier interface {
	Publish(ctx context.Context, kind string) error
}

// NopNotifier используется, когда Redis не настроен.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, string) error { return nil }

// RedisNotifier рассылает событие через Redis pub/sub.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier подключается к Redis и проверяет соединение.
func NewRedisNotifier(ctx context.Context, addr, password, channel string) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis недоступен (%s): %w", addr, err)
	}
	log.WithFields(log.Fields{"addr": addr, "channel": channel}).Info("Подключение к Redis установлено")
	return &RedisNotifier{client: client, channel: channel}, nil
}

// Publish отправляет kind ("spin" или "box") в канал.
func (n *RedisNotifier) Publish(ctx context.Context, kind string) error {
	if err := n.client.Publish(ctx, n.channel, kind).Err(); err != nil {
		return fmt.Errorf("ошибка публикации в %s: %w", n.channel, err)
	}
	return nil
}

// Listen вызывает onChange на каждое сообщение канала, пока ctx не отменён.
func (n *RedisNotifier) Listen(ctx context.Context, onChange func(ctx context.Context, kind string)) {
	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			log.WithField("kind", msg.Payload).Debug("Получено уведомление об изменении настроек")
			onChange(ctx, msg.Payload)
		}
	}
}

// Close закрывает клиент Redis.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
