// Package economy: repository.go: реализация Store поверх PostgreSQL.
// Все изменения баланса идут внутри InTx: строка пользователя блокируется
// SELECT ... FOR UPDATE, запись в ledger делается в той же транзакции.
package economy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/loyalty-backend/internal/common"
	"serotonyl.ru/loyalty-backend/internal/db/postgres"
)

// PostgresStore: Store на pgxpool.
type PostgresStore struct {
	db *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore создаёт хранилище поверх готового пула.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// InTx открывает транзакцию, передаёт её в fn и фиксирует, если fn вернула nil.
func (r *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return postgres.InTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
}

// pgTx: Tx поверх pgx.Tx.
type pgTx struct {
	tx pgx.Tx
}

const userColumns = `id, email, password_hash, role, banned, coins, boxes, spin_tickets,
	spins_used, boxes_opened, last_free_spin_at, last_premium_spin_at, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Banned,
		&u.Coins, &u.Boxes, &u.SpinTickets, &u.SpinsUsed, &u.BoxesOpened,
		&u.LastFreeSpinAt, &u.LastPremiumSpinAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (t *pgTx) LockUser(ctx context.Context, userID int64) (*User, error) {
	u, err := scanUser(t.tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user_id=%d: %w", userID, common.ErrUserNotFound)
		}
		return nil, fmt.Errorf("ошибка блокировки пользователя (user_id=%d): %w", userID, err)
	}
	return u, nil
}

func (t *pgTx) LockUserByEmail(ctx context.Context, email string) (*User, error) {
	email = common.NormalizeEmail(email)
	u, err := scanUser(t.tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 FOR UPDATE`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("email=%s: %w", email, common.ErrUserNotFound)
		}
		return nil, fmt.Errorf("ошибка блокировки пользователя (email=%s): %w", email, err)
	}
	return u, nil
}

func (t *pgTx) CreateUser(ctx context.Context, u *User) error {
	u.Email = common.NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = RoleUser
	}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role, coins, boxes, spin_tickets)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, u.Email, u.PasswordHash, u.Role, u.Coins, u.Boxes, u.SpinTickets).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.ErrEmailTaken
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (t *pgTx) SaveUser(ctx context.Context, u *User) error {
	if u.Coins < 0 {
		return fmt.Errorf("user_id=%d: %w", u.ID, common.ErrInsufficientBalance)
	}
	_, err := t.tx.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, role = $3, banned = $4, coins = $5, boxes = $6, spin_tickets = $7,
		    spins_used = $8, boxes_opened = $9, last_free_spin_at = $10, last_premium_spin_at = $11,
		    updated_at = NOW()
		WHERE id = $1
	`, u.ID, u.PasswordHash, u.Role, u.Banned, u.Coins, u.Boxes, u.SpinTickets,
		u.SpinsUsed, u.BoxesOpened, u.LastFreeSpinAt, u.LastPremiumSpinAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения пользователя (user_id=%d): %w", u.ID, err)
	}
	return nil
}

func (t *pgTx) AppendLedger(ctx context.Context, e *Entry) error {
	meta, err := EncodeMeta(e.Meta)
	if err != nil {
		return err
	}
	err = t.tx.QueryRow(ctx, `
		INSERT INTO ledger (user_id, coins, boxes, tickets, source, meta)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		RETURNING id, created_at
	`, e.UserID, e.Coins, e.Boxes, e.Tickets, e.Source, string(meta)).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал: %w", err)
	}
	return nil
}

func (t *pgTx) ClaimOrder(ctx context.Context, orderID string, userID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO processed_orders (order_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (order_id) DO NOTHING
	`, orderID, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка отметки заказа %s: %w", orderID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// --- Пользователи вне транзакции ---

func (r *PostgresStore) GetUser(ctx context.Context, userID int64) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user_id=%d: %w", userID, common.ErrUserNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения пользователя (user_id=%d): %w", userID, err)
	}
	return u, nil
}

func (r *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	email = common.NormalizeEmail(email)
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("email=%s: %w", email, common.ErrUserNotFound)
		}
		return nil, fmt.Errorf("ошибка чтения пользователя (email=%s): %w", email, err)
	}
	return u, nil
}

func (r *PostgresStore) ListUsers(ctx context.Context, limit, offset int) ([]*User, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса пользователей: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

func (r *PostgresStore) SetBanned(ctx context.Context, userID int64, banned bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET banned = $2, updated_at = NOW() WHERE id = $1`, userID, banned)
	if err != nil {
		return fmt.Errorf("ошибка обновления бана: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user_id=%d: %w", userID, common.ErrUserNotFound)
	}
	return nil
}

// --- Попытки входа и аудит ---

func (r *PostgresStore) LogLoginAttempt(ctx context.Context, email string, success bool) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO admin_login_attempts (email, success) VALUES ($1, $2)
	`, common.NormalizeEmail(email), success)
	if err != nil {
		return fmt.Errorf("ошибка записи попытки входа: %w", err)
	}
	return nil
}

func (r *PostgresStore) FailedLoginsSince(ctx context.Context, email string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE email = $1 AND success = FALSE AND attempt_time >= $2
	`, common.NormalizeEmail(email), since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта попыток входа: %w", err)
	}
	return n, nil
}
