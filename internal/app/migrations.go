package app

import "serotonyl.ru/loyalty-backend/internal/db/postgres"

// migrations применяются по порядку при старте с APP_STORAGE=postgres.
// SQL встроен в код, чтобы бинарник разворачивался без отдельных файлов.
var migrations = []postgres.Migration{
	{Version: 1, Name: "users", SQL: migration001Users},
	{Version: 2, Name: "ledger", SQL: migration002Ledger},
	{Version: 3, Name: "cards", SQL: migration003Cards},
	{Version: 4, Name: "rewards", SQL: migration004Rewards},
	{Version: 5, Name: "game_configs", SQL: migration005GameConfigs},
	{Version: 6, Name: "admin", SQL: migration006Admin},
}

var migration001Users = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    email VARCHAR(320) UNIQUE NOT NULL,
    password_hash TEXT NOT NULL DEFAULT '',
    role VARCHAR(16) NOT NULL DEFAULT 'user',
    banned BOOLEAN NOT NULL DEFAULT FALSE,
    coins BIGINT NOT NULL DEFAULT 0 CHECK (coins >= 0),
    boxes BIGINT NOT NULL DEFAULT 0 CHECK (boxes >= 0),
    spin_tickets BIGINT NOT NULL DEFAULT 0 CHECK (spin_tickets >= 0),
    spins_used BIGINT NOT NULL DEFAULT 0,
    boxes_opened BIGINT NOT NULL DEFAULT 0,
    last_free_spin_at TIMESTAMPTZ,
    last_premium_spin_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
`

var migration002Ledger = `
CREATE TABLE IF NOT EXISTS ledger (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    coins BIGINT NOT NULL DEFAULT 0,
    boxes BIGINT NOT NULL DEFAULT 0,
    tickets BIGINT NOT NULL DEFAULT 0,
    source VARCHAR(32) NOT NULL,
    meta JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger(user_id, id DESC);
CREATE INDEX IF NOT EXISTS idx_ledger_source ON ledger(source, created_at);

CREATE TABLE IF NOT EXISTS processed_orders (
    order_id VARCHAR(64) PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var migration003Cards = `
CREATE TABLE IF NOT EXISTS cards (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    catalog_id INTEGER NOT NULL DEFAULT 0,
    name VARCHAR(255) NOT NULL,
    rarity VARCHAR(16) NOT NULL,
    coins_earned BIGINT NOT NULL DEFAULT 0,
    origin VARCHAR(16) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_cards_user_rarity ON cards(user_id, rarity, id);
CREATE INDEX IF NOT EXISTS idx_cards_created ON cards(created_at);

CREATE TABLE IF NOT EXISTS product_cards (
    product_id BIGINT PRIMARY KEY,
    catalog_id INTEGER NOT NULL,
    title VARCHAR(255) NOT NULL DEFAULT '',
    active BOOLEAN NOT NULL DEFAULT TRUE,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var migration004Rewards = `
CREATE TABLE IF NOT EXISTS rewards (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    price_coins BIGINT NOT NULL CHECK (price_coins > 0),
    type VARCHAR(32) NOT NULL,
    stock BIGINT NOT NULL DEFAULT -1 CHECK (stock >= -1),
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- reward_id без внешнего ключа: история обменов переживает удаление награды
CREATE TABLE IF NOT EXISTS redemptions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    reward_id BIGINT NOT NULL,
    title VARCHAR(255) NOT NULL,
    type VARCHAR(32) NOT NULL,
    coins_spent BIGINT NOT NULL,
    code VARCHAR(64) NOT NULL DEFAULT '',
    status VARCHAR(16) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_redemptions_user ON redemptions(user_id, id DESC);
`

var migration005GameConfigs = `
CREATE TABLE IF NOT EXISTS spin_configs (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL DEFAULT '',
    weights JSONB NOT NULL,
    free_cooldown_hours DOUBLE PRECISION NOT NULL,
    premium_cooldown_hours DOUBLE PRECISION NOT NULL,
    version INTEGER UNIQUE NOT NULL,
    is_published BOOLEAN NOT NULL DEFAULT TRUE,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS box_configs (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL DEFAULT '',
    pools JSONB NOT NULL,
    version INTEGER UNIQUE NOT NULL,
    is_published BOOLEAN NOT NULL DEFAULT TRUE,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var migration006Admin = `
CREATE TABLE IF NOT EXISTS admin_audit (
    id BIGSERIAL PRIMARY KEY,
    admin_id BIGINT NOT NULL,
    action VARCHAR(64) NOT NULL,
    entity VARCHAR(64) NOT NULL,
    entity_id VARCHAR(64) NOT NULL DEFAULT '',
    details JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    email VARCHAR(320) NOT NULL,
    success BOOLEAN NOT NULL,
    attempt_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_admin_login_attempts ON admin_login_attempts(email, attempt_time);
`
