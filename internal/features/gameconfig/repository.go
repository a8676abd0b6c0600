package gameconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/loyalty-backend/internal/db/postgres"
)

// Repository хранит версии настроек. Latest* возвращают (nil, nil),
// если опубликованной версии ещё нет. Save* присваивают version = последняя+1.
type Repository interface {
	LatestSpin(ctx context.Context) (*SpinConfig, error)
	LatestBox(ctx context.Context) (*BoxConfig, error)
	SaveSpin(ctx context.Context, c *SpinConfig) error
	SaveBox(ctx context.Context, c *BoxConfig) error
}

// PostgresRepository: версии в таблицах spin_configs и box_configs.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository создаёт репозиторий настроек.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) LatestSpin(ctx context.Context) (*SpinConfig, error) {
	var c SpinConfig
	var weights []byte
	err := r.db.QueryRow(ctx, `
		SELECT id, name, weights, free_cooldown_hours, premium_cooldown_hours,
		       version, is_published, updated_at
		FROM spin_configs
		WHERE is_published = TRUE
		ORDER BY version DESC
		LIMIT 1`,
	).Scan(&c.ID, &c.Name, &weights, &c.FreeCooldownHours, &c.PremiumCooldownHours,
		&c.Version, &c.IsPublished, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения настроек спина: %w", err)
	}
	if err := json.Unmarshal(weights, &c.Weights); err != nil {
		return nil, fmt.Errorf("ошибка разбора весов спина (version=%d): %w", c.Version, err)
	}
	return &c, nil
}

func (r *PostgresRepository) LatestBox(ctx context.Context) (*BoxConfig, error) {
	var c BoxConfig
	var pools []byte
	err := r.db.QueryRow(ctx, `
		SELECT id, name, pools, version, is_published, updated_at
		FROM box_configs
		WHERE is_published = TRUE
		ORDER BY version DESC
		LIMIT 1`,
	).Scan(&c.ID, &c.Name, &pools, &c.Version, &c.IsPublished, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения настроек бокса: %w", err)
	}
	if err := json.Unmarshal(pools, &c.Pools); err != nil {
		return nil, fmt.Errorf("ошибка разбора пулов бокса (version=%d): %w", c.Version, err)
	}
	return &c, nil
}

// SaveSpin пишет новую версию. Таблица блокируется, чтобы две правки
// не получили один номер версии.
func (r *PostgresRepository) SaveSpin(ctx context.Context, c *SpinConfig) error {
	weights, err := json.Marshal(c.Weights)
	if err != nil {
		return fmt.Errorf("ошибка сериализации весов: %w", err)
	}
	return postgres.InTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE spin_configs IN EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("ошибка блокировки spin_configs: %w", err)
		}
		return tx.QueryRow(ctx, `
			INSERT INTO spin_configs (name, weights, free_cooldown_hours, premium_cooldown_hours, version, is_published)
			VALUES ($1, $2::jsonb, $3, $4,
			        (SELECT COALESCE(MAX(version), 0) + 1 FROM spin_configs), $5)
			RETURNING id, version, updated_at`,
			c.Name, string(weights), c.FreeCooldownHours, c.PremiumCooldownHours, c.IsPublished,
		).Scan(&c.ID, &c.Version, &c.UpdatedAt)
	})
}

func (r *PostgresRepository) SaveBox(ctx context.Context, c *BoxConfig) error {
	pools, err := json.Marshal(c.Pools)
	if err != nil {
		return fmt.Errorf("ошибка сериализации пулов: %w", err)
	}
	return postgres.InTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE box_configs IN EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("ошибка блокировки box_configs: %w", err)
		}
		return tx.QueryRow(ctx, `
			INSERT INTO box_configs (name, pools, version, is_published)
			VALUES ($1, $2::jsonb, (SELECT COALESCE(MAX(version), 0) + 1 FROM box_configs), $3)
			RETURNING id, version, updated_at`,
			c.Name, string(pools), c.IsPublished,
		).Scan(&c.ID, &c.Version, &c.UpdatedAt)
	})
}
