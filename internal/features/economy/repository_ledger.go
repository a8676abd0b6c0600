package economy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

func (r *PostgresStore) ListLedger(ctx context.Context, f LedgerFilter) ([]*Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Source != "" {
		args = append(args, f.Source)
		where = append(where, fmt.Sprintf("source = $%d", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)

	query := `SELECT id, user_id, coins, boxes, tickets, source, meta, created_at FROM ledger`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки журнала: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var (
			e   Entry
			raw []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Coins, &e.Boxes, &e.Tickets, &e.Source, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи журнала: %w", err)
		}
		if e.Meta, err = DecodeMeta(e.Source, raw); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала: %w", err)
	}
	return out, nil
}

func (r *PostgresStore) LedgerTotals(ctx context.Context, userID int64) (int64, int64, int64, error) {
	return ledgerTotals(ctx, r.db, userID)
}

func (t *pgTx) LedgerTotals(ctx context.Context, userID int64) (int64, int64, int64, error) {
	return ledgerTotals(ctx, t.tx, userID)
}

// rowQuerier: общее у pgxpool.Pool и pgx.Tx.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func ledgerTotals(ctx context.Context, q rowQuerier, userID int64) (int64, int64, int64, error) {
	var coins, boxes, tickets int64
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(coins), 0), COALESCE(SUM(boxes), 0), COALESCE(SUM(tickets), 0)
		FROM ledger WHERE user_id = $1
	`, userID).Scan(&coins, &boxes, &tickets)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ошибка подсчёта журнала (user_id=%d): %w", userID, err)
	}
	return coins, boxes, tickets, nil
}

func (r *PostgresStore) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	st := &Stats{}
	err := r.db.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(coins), 0) FROM users`).Scan(&st.TotalUsers, &st.TotalCoins)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE source = 'spin'),
			COUNT(*) FILTER (WHERE source = 'box-open'),
			COUNT(*) FILTER (WHERE source = 'redeem')
		FROM ledger WHERE created_at >= $1
	`, since).Scan(&st.Spins, &st.BoxesOpened, &st.Redemptions)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта активности: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT name, COUNT(*) AS pulls FROM cards
		WHERE created_at >= $1
		GROUP BY name
		ORDER BY pulls DESC, name
		LIMIT 5
	`, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки топа карт: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cp CardPulls
		if err := rows.Scan(&cp.Name, &cp.Pulls); err != nil {
			return nil, fmt.Errorf("ошибка сканирования топа карт: %w", err)
		}
		st.TopCards = append(st.TopCards, cp)
	}
	return st, rows.Err()
}

func (r *PostgresStore) AppendAudit(ctx context.Context, a *AuditEntry) error {
	details, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("ошибка сериализации аудита: %w", err)
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO admin_audit (admin_id, action, entity, entity_id, details)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		RETURNING id, created_at
	`, a.AdminID, a.Action, a.Entity, a.EntityID, string(details)).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи аудита: %w", err)
	}
	return nil
}

func (r *PostgresStore) ListAudit(ctx context.Context, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, admin_id, action, entity, entity_id, details, created_at
		FROM admin_audit ORDER BY id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки аудита: %w", err)
	}
	defer rows.Close()

	var out []*AuditEntry
	for rows.Next() {
		var (
			a   AuditEntry
			raw []byte
		)
		if err := rows.Scan(&a.ID, &a.AdminID, &a.Action, &a.Entity, &a.EntityID, &raw, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования аудита: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &a.Details); err != nil {
				return nil, fmt.Errorf("ошибка разбора аудита: %w", err)
			}
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
