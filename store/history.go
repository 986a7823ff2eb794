package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type HistoryEntry struct {
	ID           int64     `json:"id"`
	PartID       string    `json:"part_id"`
	Status       string    `json:"status"`
	OperatorName string    `json:"operator_name"`
	CreatedAt    time.Time `json:"timestamp"`
}

const historySelectCols = `id, part_id, status, operator_name, created_at`

func scanHistory(row interface{ Scan(...any) error }) (*HistoryEntry, error) {
	var h HistoryEntry
	var createdAt any
	if err := row.Scan(&h.ID, &h.PartID, &h.Status, &h.OperatorName, &createdAt); err != nil {
		return nil, translate(err)
	}
	h.CreatedAt = parseTime(createdAt)
	return &h, nil
}

func (q *Queries) AppendHistory(ctx context.Context, h *HistoryEntry) error {
	err := q.run.QueryRowContext(ctx, q.Q(`INSERT INTO status_history (part_id, status, operator_name, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
		h.PartID, h.Status, h.OperatorName, q.ts(h.CreatedAt)).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("append history: %w", translate(err))
	}
	return nil
}

func (q *Queries) GetHistoryEntry(ctx context.Context, id int64) (*HistoryEntry, error) {
	return scanHistory(q.run.QueryRowContext(ctx, q.Q(`SELECT `+historySelectCols+` FROM status_history WHERE id=?`), id))
}

func (q *Queries) DeleteHistoryEntry(ctx context.Context, id int64) error {
	res, err := q.run.ExecContext(ctx, q.Q(`DELETE FROM status_history WHERE id=?`), id)
	if err != nil {
		return fmt.Errorf("delete history entry: %w", translate(err))
	}
	return requireAffected(res)
}

// ListPartHistory returns a part's status history, newest first.
func (q *Queries) ListPartHistory(ctx context.Context, partID string) ([]*HistoryEntry, error) {
	rows, err := q.run.QueryContext(ctx, q.Q(`SELECT `+historySelectCols+` FROM status_history WHERE part_id=? ORDER BY created_at DESC, id DESC`), partID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []*HistoryEntry
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// LatestHistory returns the most recent entry for the part, ties broken by
// the highest id. ErrNotFound when the part has no history.
func (q *Queries) LatestHistory(ctx context.Context, partID string) (*HistoryEntry, error) {
	return scanHistory(q.run.QueryRowContext(ctx, q.Q(`SELECT `+historySelectCols+` FROM status_history WHERE part_id=? ORDER BY created_at DESC, id DESC LIMIT 1`), partID))
}

// HistoryStatuses maps part id to the set of recorded statuses, restricted to
// one product unless designation is empty.
func (q *Queries) HistoryStatuses(ctx context.Context, designation string) (map[string][]string, error) {
	var rows *sql.Rows
	var err error
	if designation == "" {
		rows, err = q.run.QueryContext(ctx, `SELECT part_id, status FROM status_history ORDER BY id`)
	} else {
		rows, err = q.run.QueryContext(ctx, q.Q(`SELECT h.part_id, h.status FROM status_history h
			JOIN parts p ON p.part_id = h.part_id
			WHERE p.product_designation=? ORDER BY h.id`), designation)
	}
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := make(map[string][]string)
	for rows.Next() {
		var partID, status string
		if err := rows.Scan(&partID, &status); err != nil {
			return nil, err
		}
		out[partID] = append(out[partID], status)
	}
	return out, rows.Err()
}

type OperatorStat struct {
	Operator      string `json:"operator"`
	Confirmations int    `json:"confirmations"`
}

// OperatorStats counts stage confirmations per operator within [from, to).
// Zero bounds are open.
func (q *Queries) OperatorStats(ctx context.Context, from, to time.Time) ([]*OperatorStat, error) {
	query := `SELECT operator_name, COUNT(*) FROM status_history WHERE 1=1`
	var args []any
	if !from.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, q.ts(from))
	}
	if !to.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, q.ts(to))
	}
	query += ` GROUP BY operator_name ORDER BY COUNT(*) DESC, operator_name`
	rows, err := q.run.QueryContext(ctx, q.Q(query), args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []*OperatorStat
	for rows.Next() {
		var s OperatorStat
		if err := rows.Scan(&s.Operator, &s.Confirmations); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
