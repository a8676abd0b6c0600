package economy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/loyalty-backend/internal/common"
)

const rewardColumns = `id, title, description, price_coins, type, stock, active, created_at, updated_at`

func scanReward(row pgx.Row) (*Reward, error) {
	var rw Reward
	if err := row.Scan(&rw.ID, &rw.Title, &rw.Description, &rw.PriceCoins, &rw.Type,
		&rw.Stock, &rw.Active, &rw.CreatedAt, &rw.UpdatedAt); err != nil {
		return nil, err
	}
	return &rw, nil
}

func (t *pgTx) LockReward(ctx context.Context, rewardID int64) (*Reward, error) {
	rw, err := scanReward(t.tx.QueryRow(ctx,
		`SELECT `+rewardColumns+` FROM rewards WHERE id = $1 FOR UPDATE`, rewardID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("reward_id=%d: %w", rewardID, common.ErrRewardNotFound)
		}
		return nil, fmt.Errorf("ошибка блокировки награды (reward_id=%d): %w", rewardID, err)
	}
	return rw, nil
}

func (t *pgTx) SaveReward(ctx context.Context, rw *Reward) error {
	_, err := t.tx.Exec(ctx, `UPDATE rewards SET stock = $2, active = $3, updated_at = NOW() WHERE id = $1`,
		rw.ID, rw.Stock, rw.Active)
	if err != nil {
		return fmt.Errorf("ошибка сохранения награды (reward_id=%d): %w", rw.ID, err)
	}
	return nil
}

func (t *pgTx) InsertRedemption(ctx context.Context, rd *Redemption) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO redemptions (user_id, reward_id, title, type, coins_spent, code, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, rd.UserID, rd.RewardID, rd.Title, rd.Type, rd.CoinsSpent, rd.Code, rd.Status).Scan(&rd.ID, &rd.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи обмена: %w", err)
	}
	return nil
}

func (r *PostgresStore) ListRewards(ctx context.Context, onlyAvailable bool) ([]*Reward, error) {
	query := `SELECT ` + rewardColumns + ` FROM rewards`
	if onlyAvailable {
		query += ` WHERE active = TRUE AND (stock = -1 OR stock > 0)`
	}
	query += ` ORDER BY price_coins, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки наград: %w", err)
	}
	defer rows.Close()

	var out []*Reward
	for rows.Next() {
		rw, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования награды: %w", err)
		}
		out = append(out, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения наград: %w", err)
	}
	return out, nil
}

func (r *PostgresStore) GetReward(ctx context.Context, rewardID int64) (*Reward, error) {
	rw, err := scanReward(r.db.QueryRow(ctx, `SELECT `+rewardColumns+` FROM rewards WHERE id = $1`, rewardID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("reward_id=%d: %w", rewardID, common.ErrRewardNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения награды: %w", err)
	}
	return rw, nil
}

func (r *PostgresStore) CreateReward(ctx context.Context, rw *Reward) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO rewards (title, description, price_coins, type, stock, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, rw.Title, rw.Description, rw.PriceCoins, rw.Type, rw.Stock, rw.Active).Scan(&rw.ID, &rw.CreatedAt, &rw.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания награды: %w", err)
	}
	return nil
}

func (r *PostgresStore) UpdateReward(ctx context.Context, rw *Reward) error {
	err := r.db.QueryRow(ctx, `
		UPDATE rewards
		SET title = $2, description = $3, price_coins = $4, type = $5, stock = $6, active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, rw.ID, rw.Title, rw.Description, rw.PriceCoins, rw.Type, rw.Stock, rw.Active).Scan(&rw.CreatedAt, &rw.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("reward_id=%d: %w", rw.ID, common.ErrRewardNotFound)
		}
		return fmt.Errorf("ошибка обновления награды: %w", err)
	}
	return nil
}

func (r *PostgresStore) DeleteReward(ctx context.Context, rewardID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM rewards WHERE id = $1`, rewardID)
	if err != nil {
		return fmt.Errorf("ошибка удаления награды: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reward_id=%d: %w", rewardID, common.ErrRewardNotFound)
	}
	return nil
}

func (r *PostgresStore) ListRedemptions(ctx context.Context, userID int64) ([]*Redemption, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, reward_id, title, type, coins_spent, code, status, created_at
		FROM redemptions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки обменов: %w", err)
	}
	defer rows.Close()

	var out []*Redemption
	for rows.Next() {
		var rd Redemption
		if err := rows.Scan(&rd.ID, &rd.UserID, &rd.RewardID, &rd.Title, &rd.Type,
			&rd.CoinsSpent, &rd.Code, &rd.Status, &rd.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования обмена: %w", err)
		}
		out = append(out, &rd)
	}
	return out, rows.Err()
}

// --- Привязка товаров к картам ---

func (r *PostgresStore) ProductCard(ctx context.Context, productID int64) (*ProductCard, error) {
	var p ProductCard
	err := r.db.QueryRow(ctx, `
		SELECT product_id, catalog_id, title, active, updated_at FROM product_cards WHERE product_id = $1
	`, productID).Scan(&p.ProductID, &p.CatalogID, &p.Title, &p.Active, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product_id=%d: %w", productID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения привязки товара: %w", err)
	}
	return &p, nil
}

func (r *PostgresStore) ListProductCards(ctx context.Context) ([]*ProductCard, error) {
	rows, err := r.db.Query(ctx, `
		SELECT product_id, catalog_id, title, active, updated_at FROM product_cards ORDER BY product_id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки привязок товаров: %w", err)
	}
	defer rows.Close()

	var out []*ProductCard
	for rows.Next() {
		var p ProductCard
		if err := rows.Scan(&p.ProductID, &p.CatalogID, &p.Title, &p.Active, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования привязки: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *PostgresStore) UpsertProductCard(ctx context.Context, p *ProductCard) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO product_cards (product_id, catalog_id, title, active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id) DO UPDATE
		SET catalog_id = EXCLUDED.catalog_id, title = EXCLUDED.title, active = EXCLUDED.active, updated_at = NOW()
		RETURNING updated_at
	`, p.ProductID, p.CatalogID, p.Title, p.Active).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения привязки товара: %w", err)
	}
	return nil
}
