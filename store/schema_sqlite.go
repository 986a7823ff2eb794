package store

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS stages (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS route_templates (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL UNIQUE,
    is_default  INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_route_templates_default ON route_templates(is_default) WHERE is_default = 1;

CREATE TABLE IF NOT EXISTS route_stages (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    template_id INTEGER NOT NULL REFERENCES route_templates(id) ON DELETE CASCADE,
    stage_id    INTEGER NOT NULL REFERENCES stages(id),
    position    INTEGER NOT NULL,
    UNIQUE(template_id, position),
    UNIQUE(template_id, stage_id)
);
CREATE INDEX IF NOT EXISTS idx_route_stages_stage ON route_stages(stage_id);

CREATE TABLE IF NOT EXISTS parts (
    part_id             TEXT PRIMARY KEY,
    product_designation TEXT NOT NULL,
    route_template_id   INTEGER REFERENCES route_templates(id),
    current_status      TEXT NOT NULL DEFAULT 'In Stock',
    date_added          TEXT NOT NULL,
    last_update         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_parts_product ON parts(product_designation);
CREATE INDEX IF NOT EXISTS idx_parts_route ON parts(route_template_id);

CREATE TABLE IF NOT EXISTS status_history (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    part_id       TEXT NOT NULL REFERENCES parts(part_id) ON DELETE CASCADE,
    status        TEXT NOT NULL,
    operator_name TEXT NOT NULL,
    created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_status_history_part ON status_history(part_id, created_at);

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user',
    permissions   TEXT NOT NULL DEFAULT '',
    created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    part_id     TEXT REFERENCES parts(part_id) ON DELETE CASCADE,
    user_id     INTEGER REFERENCES users(id) ON DELETE SET NULL,
    actor       TEXT NOT NULL DEFAULT '',
    action      TEXT NOT NULL,
    details     TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_part ON audit_log(part_id);
CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at);

CREATE TABLE IF NOT EXISTS outbox (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    topic       TEXT NOT NULL,
    payload     BLOB NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    part_id     TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL,
    sent_at     TEXT
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at);
`
