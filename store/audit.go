package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type AuditEntry struct {
	ID        int64     `json:"id"`
	PartID    string    `json:"part_id,omitempty"`
	UserID    *int64    `json:"user_id,omitempty"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"timestamp"`
}

const auditSelectCols = `id, part_id, user_id, actor, action, details, created_at`

func scanAudit(row interface{ Scan(...any) error }) (*AuditEntry, error) {
	var e AuditEntry
	var partID sql.NullString
	var userID sql.NullInt64
	var createdAt any
	if err := row.Scan(&e.ID, &partID, &userID, &e.Actor, &e.Action, &e.Details, &createdAt); err != nil {
		return nil, translate(err)
	}
	e.PartID = partID.String
	e.UserID = int64Ptr(userID)
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

func scanAuditRows(rows *sql.Rows) ([]*AuditEntry, error) {
	var entries []*AuditEntry
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AppendAudit inserts e. An empty PartID stores a part-less entry.
func (q *Queries) AppendAudit(ctx context.Context, e *AuditEntry) error {
	err := q.run.QueryRowContext(ctx, q.Q(`INSERT INTO audit_log (part_id, user_id, actor, action, details, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		nullString(e.PartID), nullInt64(e.UserID), e.Actor, e.Action, e.Details, q.ts(e.CreatedAt)).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("append audit: %w", translate(err))
	}
	return nil
}

// ListAuditLog returns a page of the global audit log, newest first.
func (q *Queries) ListAuditLog(ctx context.Context, limit, offset int) ([]*AuditEntry, error) {
	rows, err := q.run.QueryContext(ctx, q.Q(`SELECT `+auditSelectCols+` FROM audit_log ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

func (q *Queries) CountAuditLog(ctx context.Context) (int, error) {
	var n int
	err := q.run.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&n)
	return n, translate(err)
}

func (q *Queries) ListPartAudit(ctx context.Context, partID string) ([]*AuditEntry, error) {
	rows, err := q.run.QueryContext(ctx, q.Q(`SELECT `+auditSelectCols+` FROM audit_log WHERE part_id=? ORDER BY created_at DESC, id DESC`), partID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	return scanAuditRows(rows)
}
