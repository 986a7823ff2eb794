package store

import (
	"context"
	"fmt"
	"time"
)

// defaultRouteLockKey identifies the advisory lock serialising default-route changes.
const defaultRouteLockKey = 0x70617274

type RouteTemplate struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	IsDefault bool          `json:"is_default"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Stages    []*RouteStage `json:"stages"`
}

// StageNames returns the stage names in route order.
func (t *RouteTemplate) StageNames() []string {
	names := make([]string, len(t.Stages))
	for i, rs := range t.Stages {
		names[i] = rs.StageName
	}
	return names
}

type RouteStage struct {
	ID         int64  `json:"id"`
	TemplateID int64  `json:"template_id"`
	StageID    int64  `json:"stage_id"`
	StageName  string `json:"stage_name"`
	Position   int    `json:"position"`
}

const routeSelectCols = `id, name, is_default, created_at, updated_at`

func scanRoute(row interface{ Scan(...any) error }) (*RouteTemplate, error) {
	var t RouteTemplate
	var createdAt, updatedAt any
	if err := row.Scan(&t.ID, &t.Name, &t.IsDefault, &createdAt, &updatedAt); err != nil {
		return nil, translate(err)
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

func (q *Queries) CreateRouteTemplate(ctx context.Context, name string, isDefault bool, at time.Time) (*RouteTemplate, error) {
	t := &RouteTemplate{Name: name, IsDefault: isDefault, CreatedAt: at.UTC(), UpdatedAt: at.UTC()}
	err := q.run.QueryRowContext(ctx, q.Q(`INSERT INTO route_templates (name, is_default, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING id`),
		name, isDefault, q.ts(at), q.ts(at)).Scan(&t.ID)
	if err != nil {
		return nil, fmt.Errorf("create route template: %w", translate(err))
	}
	return t, nil
}

func (q *Queries) UpdateRouteTemplate(ctx context.Context, id int64, name string, isDefault bool, at time.Time) error {
	res, err := q.run.ExecContext(ctx, q.Q(`UPDATE route_templates SET name=?, is_default=?, updated_at=? WHERE id=?`),
		name, isDefault, q.ts(at), id)
	if err != nil {
		return fmt.Errorf("update route template: %w", translate(err))
	}
	return requireAffected(res)
}

// LockRouteDefaults serialises default-flag changes for the rest of the
// transaction on backends with concurrent writers.
func (q *Queries) LockRouteDefaults(ctx context.Context) error {
	stmt := q.dialect.AdvisoryLock(defaultRouteLockKey)
	if stmt == "" {
		return nil
	}
	if _, err := q.run.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("lock route defaults: %w", translate(err))
	}
	return nil
}

// ClearDefaultRoutes unsets the default flag on every template except exceptID.
func (q *Queries) ClearDefaultRoutes(ctx context.Context, exceptID int64) error {
	_, err := q.run.ExecContext(ctx, q.Q(`UPDATE route_templates SET is_default=? WHERE is_default=? AND id<>?`),
		false, true, exceptID)
	if err != nil {
		return fmt.Errorf("clear default routes: %w", translate(err))
	}
	return nil
}

// ReplaceRouteStages discards the template's stage list and writes stageIDs
// with dense positions in the given order.
func (q *Queries) ReplaceRouteStages(ctx context.Context, templateID int64, stageIDs []int64) error {
	if _, err := q.run.ExecContext(ctx, q.Q(`DELETE FROM route_stages WHERE template_id=?`), templateID); err != nil {
		return fmt.Errorf("clear route stages: %w", translate(err))
	}
	for i, stageID := range stageIDs {
		_, err := q.run.ExecContext(ctx, q.Q(`INSERT INTO route_stages (template_id, stage_id, position) VALUES (?, ?, ?)`),
			templateID, stageID, i)
		if err != nil {
			return fmt.Errorf("insert route stage %d: %w", i, translate(err))
		}
	}
	return nil
}

func (q *Queries) GetRouteTemplate(ctx context.Context, id int64) (*RouteTemplate, error) {
	t, err := scanRoute(q.run.QueryRowContext(ctx, q.Q(`SELECT `+routeSelectCols+` FROM route_templates WHERE id=?`), id))
	if err != nil {
		return nil, err
	}
	if t.Stages, err = q.ListRouteStages(ctx, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

func (q *Queries) GetRouteTemplateByName(ctx context.Context, name string) (*RouteTemplate, error) {
	t, err := scanRoute(q.run.QueryRowContext(ctx, q.Q(`SELECT `+routeSelectCols+` FROM route_templates WHERE name=?`), name))
	if err != nil {
		return nil, err
	}
	if t.Stages, err = q.ListRouteStages(ctx, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

func (q *Queries) DefaultRouteTemplate(ctx context.Context) (*RouteTemplate, error) {
	t, err := scanRoute(q.run.QueryRowContext(ctx, q.Q(`SELECT `+routeSelectCols+` FROM route_templates WHERE is_default=? ORDER BY id LIMIT 1`), true))
	if err != nil {
		return nil, err
	}
	if t.Stages, err = q.ListRouteStages(ctx, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

func (q *Queries) ListRouteTemplates(ctx context.Context) ([]*RouteTemplate, error) {
	rows, err := q.run.QueryContext(ctx, `SELECT `+routeSelectCols+` FROM route_templates ORDER BY name, id`)
	if err != nil {
		return nil, translate(err)
	}
	var templates []*RouteTemplate
	for rows.Next() {
		t, err := scanRoute(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	stages, err := q.listAllRouteStages(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range templates {
		t.Stages = stages[t.ID]
	}
	return templates, nil
}

const routeStageSelect = `SELECT rs.id, rs.template_id, rs.stage_id, s.name, rs.position
FROM route_stages rs JOIN stages s ON s.id = rs.stage_id`

func scanRouteStage(row interface{ Scan(...any) error }) (*RouteStage, error) {
	var rs RouteStage
	if err := row.Scan(&rs.ID, &rs.TemplateID, &rs.StageID, &rs.StageName, &rs.Position); err != nil {
		return nil, translate(err)
	}
	return &rs, nil
}

func (q *Queries) ListRouteStages(ctx context.Context, templateID int64) ([]*RouteStage, error) {
	rows, err := q.run.QueryContext(ctx, q.Q(routeStageSelect+` WHERE rs.template_id=? ORDER BY rs.position`), templateID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var out []*RouteStage
	for rows.Next() {
		rs, err := scanRouteStage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

func (q *Queries) listAllRouteStages(ctx context.Context) (map[int64][]*RouteStage, error) {
	rows, err := q.run.QueryContext(ctx, routeStageSelect+` ORDER BY rs.template_id, rs.position`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := make(map[int64][]*RouteStage)
	for rows.Next() {
		rs, err := scanRouteStage(rows)
		if err != nil {
			return nil, err
		}
		out[rs.TemplateID] = append(out[rs.TemplateID], rs)
	}
	return out, rows.Err()
}

// RouteStageNames maps each template id to its stage names in route order.
func (q *Queries) RouteStageNames(ctx context.Context) (map[int64][]string, error) {
	all, err := q.listAllRouteStages(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64][]string, len(all))
	for id, stages := range all {
		names := make([]string, len(stages))
		for i, rs := range stages {
			names[i] = rs.StageName
		}
		out[id] = names
	}
	return out, nil
}

// RouteUsage returns how many parts are assigned to the template.
func (q *Queries) RouteUsage(ctx context.Context, id int64) (int, error) {
	var n int
	err := q.run.QueryRowContext(ctx, q.Q(`SELECT COUNT(*) FROM parts WHERE route_template_id=?`), id).Scan(&n)
	return n, translate(err)
}

// DeleteRouteTemplate removes the template and its stage rows.
func (q *Queries) DeleteRouteTemplate(ctx context.Context, id int64) error {
	if _, err := q.run.ExecContext(ctx, q.Q(`DELETE FROM route_stages WHERE template_id=?`), id); err != nil {
		return fmt.Errorf("delete route stages: %w", translate(err))
	}
	res, err := q.run.ExecContext(ctx, q.Q(`DELETE FROM route_templates WHERE id=?`), id)
	if err != nil {
		return fmt.Errorf("delete route template: %w", translate(err))
	}
	return requireAffected(res)
}
