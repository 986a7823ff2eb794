package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// StatusInStock is the current_status of a part with no recorded stage.
const StatusInStock = "In Stock"

type Part struct {
	PartID             string    `json:"part_id"`
	ProductDesignation string    `json:"product_designation"`
	RouteTemplateID    *int64    `json:"route_template_id"`
	CurrentStatus      string    `json:"current_status"`
	DateAdded          time.Time `json:"date_added"`
	LastUpdate         time.Time `json:"last_update"`
}

const partSelectCols = `part_id, product_designation, route_template_id, current_status, date_added, last_update`

func scanPart(row interface{ Scan(...any) error }) (*Part, error) {
	var p Part
	var routeID sql.NullInt64
	var dateAdded, lastUpdate any
	if err := row.Scan(&p.PartID, &p.ProductDesignation, &routeID, &p.CurrentStatus, &dateAdded, &lastUpdate); err != nil {
		return nil, translate(err)
	}
	p.RouteTemplateID = int64Ptr(routeID)
	p.DateAdded = parseTime(dateAdded)
	p.LastUpdate = parseTime(lastUpdate)
	return &p, nil
}

func scanParts(rows *sql.Rows) ([]*Part, error) {
	var parts []*Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// CreatePart inserts p. An existing part id yields ErrDuplicateKey.
func (q *Queries) CreatePart(ctx context.Context, p *Part) error {
	if p.CurrentStatus == "" {
		p.CurrentStatus = StatusInStock
	}
	_, err := q.run.ExecContext(ctx, q.Q(`INSERT INTO parts (`+partSelectCols+`) VALUES (?, ?, ?, ?, ?, ?)`),
		p.PartID, p.ProductDesignation, nullInt64(p.RouteTemplateID), p.CurrentStatus, q.ts(p.DateAdded), q.ts(p.LastUpdate))
	if err != nil {
		return fmt.Errorf("create part: %w", translate(err))
	}
	return nil
}

func (q *Queries) GetPart(ctx context.Context, partID string) (*Part, error) {
	return scanPart(q.run.QueryRowContext(ctx, q.Q(`SELECT `+partSelectCols+` FROM parts WHERE part_id=?`), partID))
}

func (q *Queries) PartExists(ctx context.Context, partID string) (bool, error) {
	var n int
	err := q.run.QueryRowContext(ctx, q.Q(`SELECT COUNT(*) FROM parts WHERE part_id=?`), partID).Scan(&n)
	return n > 0, translate(err)
}

// ListParts returns parts of one product, or all parts when designation is empty.
func (q *Queries) ListParts(ctx context.Context, designation string) ([]*Part, error) {
	var rows *sql.Rows
	var err error
	if designation == "" {
		rows, err = q.run.QueryContext(ctx, `SELECT `+partSelectCols+` FROM parts ORDER BY product_designation, part_id`)
	} else {
		rows, err = q.run.QueryContext(ctx, q.Q(`SELECT `+partSelectCols+` FROM parts WHERE product_designation=? ORDER BY part_id`), designation)
	}
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	return scanParts(rows)
}

func (q *Queries) UpdatePartDesignation(ctx context.Context, partID, designation string, at time.Time) error {
	res, err := q.run.ExecContext(ctx, q.Q(`UPDATE parts SET product_designation=?, last_update=? WHERE part_id=?`),
		designation, q.ts(at), partID)
	if err != nil {
		return fmt.Errorf("update part designation: %w", translate(err))
	}
	return requireAffected(res)
}

func (q *Queries) SetPartStatus(ctx context.Context, partID, status string, at time.Time) error {
	res, err := q.run.ExecContext(ctx, q.Q(`UPDATE parts SET current_status=?, last_update=? WHERE part_id=?`),
		status, q.ts(at), partID)
	if err != nil {
		return fmt.Errorf("set part status: %w", translate(err))
	}
	return requireAffected(res)
}

// DeletePart removes the part together with its status history and audit rows.
func (q *Queries) DeletePart(ctx context.Context, partID string) error {
	if _, err := q.run.ExecContext(ctx, q.Q(`DELETE FROM status_history WHERE part_id=?`), partID); err != nil {
		return fmt.Errorf("delete part history: %w", translate(err))
	}
	if _, err := q.run.ExecContext(ctx, q.Q(`DELETE FROM audit_log WHERE part_id=?`), partID); err != nil {
		return fmt.Errorf("delete part audit: %w", translate(err))
	}
	res, err := q.run.ExecContext(ctx, q.Q(`DELETE FROM parts WHERE part_id=?`), partID)
	if err != nil {
		return fmt.Errorf("delete part: %w", translate(err))
	}
	return requireAffected(res)
}
