package economy

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"serotonyl.ru/loyalty-backend/internal/common"
)

const cardColumns = `id, user_id, catalog_id, name, rarity, coins_earned, origin, created_at`

func scanCards(rows pgx.Rows) ([]*Card, error) {
	defer rows.Close()
	var out []*Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.ID, &c.UserID, &c.CatalogID, &c.Name, &c.Rarity, &c.CoinsEarned, &c.Origin, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования карты: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения карт: %w", err)
	}
	return out, nil
}

func (t *pgTx) InsertCard(ctx context.Context, c *Card) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO cards (user_id, catalog_id, name, rarity, coins_earned, origin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, c.UserID, c.CatalogID, c.Name, c.Rarity, c.CoinsEarned, c.Origin).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания карты: %w", err)
	}
	return nil
}

func (t *pgTx) FindCard(ctx context.Context, userID, cardID int64) (*Card, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1 AND user_id = $2`, cardID, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска карты: %w", err)
	}
	cards, err := scanCards(rows)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("card_id=%d: %w", cardID, common.ErrCardNotFound)
	}
	return cards[0], nil
}

func (t *pgTx) CardsByRarity(ctx context.Context, userID int64, rarity Rarity, limit int) ([]*Card, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := t.tx.Query(ctx, `
		SELECT `+cardColumns+` FROM cards
		WHERE user_id = $1 AND rarity = $2
		ORDER BY id
		LIMIT $3
	`, userID, rarity, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки карт: %w", err)
	}
	return scanCards(rows)
}

func (t *pgTx) DeleteCards(ctx context.Context, userID int64, ids []int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM cards WHERE user_id = $1 AND id = ANY($2)`, userID, ids)
	if err != nil {
		return fmt.Errorf("ошибка удаления карт: %w", err)
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return fmt.Errorf("удалено %d из %d карт: %w", tag.RowsAffected(), len(ids), common.ErrCardNotFound)
	}
	return nil
}

func (r *PostgresStore) ListCards(ctx context.Context, userID int64) ([]*Card, error) {
	rows, err := r.db.Query(ctx, `SELECT `+cardColumns+` FROM cards WHERE user_id = $1 ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки карт: %w", err)
	}
	return scanCards(rows)
}
