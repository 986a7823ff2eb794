package store

import (
	"context"
	"fmt"
	"time"
)

type Stage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

const stageSelectCols = `id, name, created_at`

func scanStage(row interface{ Scan(...any) error }) (*Stage, error) {
	var s Stage
	var createdAt any
	if err := row.Scan(&s.ID, &s.Name, &createdAt); err != nil {
		return nil, translate(err)
	}
	s.CreatedAt = parseTime(createdAt)
	return &s, nil
}

func scanStages(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]*Stage, error) {
	var stages []*Stage
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

func (q *Queries) CreateStage(ctx context.Context, name string, at time.Time) (*Stage, error) {
	s := &Stage{Name: name, CreatedAt: at.UTC()}
	err := q.run.QueryRowContext(ctx, q.Q(`INSERT INTO stages (name, created_at) VALUES (?, ?) RETURNING id`),
		name, q.ts(at)).Scan(&s.ID)
	if err != nil {
		return nil, fmt.Errorf("create stage: %w", translate(err))
	}
	return s, nil
}

func (q *Queries) GetStage(ctx context.Context, id int64) (*Stage, error) {
	row := q.run.QueryRowContext(ctx, q.Q(`SELECT `+stageSelectCols+` FROM stages WHERE id=?`), id)
	return scanStage(row)
}

func (q *Queries) ListStages(ctx context.Context) ([]*Stage, error) {
	rows, err := q.run.QueryContext(ctx, `SELECT `+stageSelectCols+` FROM stages ORDER BY name, id`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	return scanStages(rows)
}

// StageUsage returns how many route templates reference the stage.
func (q *Queries) StageUsage(ctx context.Context, id int64) (int, error) {
	var n int
	err := q.run.QueryRowContext(ctx, q.Q(`SELECT COUNT(*) FROM route_stages WHERE stage_id=?`), id).Scan(&n)
	return n, translate(err)
}

func (q *Queries) DeleteStage(ctx context.Context, id int64) error {
	res, err := q.run.ExecContext(ctx, q.Q(`DELETE FROM stages WHERE id=?`), id)
	if err != nil {
		return fmt.Errorf("delete stage: %w", translate(err))
	}
	return requireAffected(res)
}
