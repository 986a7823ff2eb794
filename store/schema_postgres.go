package store

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS stages (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS route_templates (
    id          BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    is_default  BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_route_templates_default ON route_templates(is_default) WHERE is_default;

CREATE TABLE IF NOT EXISTS route_stages (
    id          BIGSERIAL PRIMARY KEY,
    template_id BIGINT NOT NULL REFERENCES route_templates(id) ON DELETE CASCADE,
    stage_id    BIGINT NOT NULL REFERENCES stages(id),
    position    INTEGER NOT NULL,
    UNIQUE(template_id, position),
    UNIQUE(template_id, stage_id)
);
CREATE INDEX IF NOT EXISTS idx_route_stages_stage ON route_stages(stage_id);

CREATE TABLE IF NOT EXISTS parts (
    part_id             TEXT PRIMARY KEY,
    product_designation TEXT NOT NULL,
    route_template_id   BIGINT REFERENCES route_templates(id),
    current_status      TEXT NOT NULL DEFAULT 'In Stock',
    date_added          TIMESTAMPTZ NOT NULL,
    last_update         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_parts_product ON parts(product_designation);
CREATE INDEX IF NOT EXISTS idx_parts_route ON parts(route_template_id);

CREATE TABLE IF NOT EXISTS status_history (
    id            BIGSERIAL PRIMARY KEY,
    part_id       TEXT NOT NULL REFERENCES parts(part_id) ON DELETE CASCADE,
    status        TEXT NOT NULL,
    operator_name TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_status_history_part ON status_history(part_id, created_at);

CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user',
    permissions   TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
    id          BIGSERIAL PRIMARY KEY,
    part_id     TEXT REFERENCES parts(part_id) ON DELETE CASCADE,
    user_id     BIGINT REFERENCES users(id) ON DELETE SET NULL,
    actor       TEXT NOT NULL DEFAULT '',
    action      TEXT NOT NULL,
    details     TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_part ON audit_log(part_id);
CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at);

CREATE TABLE IF NOT EXISTS outbox (
    id          BIGSERIAL PRIMARY KEY,
    topic       TEXT NOT NULL,
    payload     BYTEA NOT NULL,
    msg_type    TEXT NOT NULL DEFAULT '',
    part_id     TEXT NOT NULL DEFAULT '',
    retries     INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL,
    sent_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at);
`
