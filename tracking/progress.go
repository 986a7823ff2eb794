package tracking

import (
	"context"
	"fmt"
	"sort"

	"parttracker/store"
)

// Progress is the completion of one part against its current route.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

func (p Progress) Percent() float64 { return percent(p.Completed, p.Total) }

// ProductProgress aggregates progress over all parts sharing a product designation.
type ProductProgress struct {
	Product         string `json:"product"`
	TotalParts      int    `json:"total_parts"`
	CompletedStages int    `json:"completed_stages"`
	PossibleStages  int    `json:"possible_stages"`
}

func (p ProductProgress) Percent() float64 { return percent(p.CompletedStages, p.PossibleStages) }

func percent(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(done) * 100 / float64(total)
}

// State is the lifecycle position of a part along its route.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateComplete   State = "complete"
)

func (p Progress) State() State {
	switch {
	case p.Completed == 0:
		return StateNotStarted
	case p.Completed >= p.Total:
		return StateComplete
	default:
		return StateInProgress
	}
}

// completedCount counts distinct history statuses that name a stage of the
// route. History recorded against stages since removed from the route is ignored.
func completedCount(history, route []string) int {
	inRoute := make(map[string]bool, len(route))
	for _, name := range route {
		inRoute[name] = true
	}
	seen := make(map[string]bool, len(history))
	n := 0
	for _, status := range history {
		if inRoute[status] && !seen[status] {
			seen[status] = true
			n++
		}
	}
	return n
}

func partProgress(p *store.Part, routes map[int64][]string, history map[string][]string) Progress {
	if p.RouteTemplateID == nil {
		return Progress{}
	}
	route := routes[*p.RouteTemplateID]
	return Progress{Completed: completedCount(history[p.PartID], route), Total: len(route)}
}

// computeProgress groups parts by product and sums their progress. The result
// is ordered by product designation.
func computeProgress(parts []*store.Part, routes map[int64][]string, history map[string][]string) []ProductProgress {
	byProduct := make(map[string]*ProductProgress)
	for _, p := range parts {
		agg, ok := byProduct[p.ProductDesignation]
		if !ok {
			agg = &ProductProgress{Product: p.ProductDesignation}
			byProduct[p.ProductDesignation] = agg
		}
		pp := partProgress(p, routes, history)
		agg.TotalParts++
		agg.CompletedStages += pp.Completed
		agg.PossibleStages += pp.Total
	}
	out := make([]ProductProgress, 0, len(byProduct))
	for _, agg := range byProduct {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product < out[j].Product })
	return out
}

type progressSnapshot struct {
	parts   []*store.Part
	routes  map[int64][]string
	history map[string][]string
}

func (s *Service) snapshot(ctx context.Context, designation string) (*progressSnapshot, error) {
	snap := &progressSnapshot{}
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if snap.parts, err = tx.ListParts(ctx, designation); err != nil {
			return err
		}
		if snap.routes, err = tx.RouteStageNames(ctx); err != nil {
			return err
		}
		snap.history, err = tx.HistoryStatuses(ctx, designation)
		return err
	})
	return snap, err
}

// PartProgress returns how many stages of the part's current route are completed.
func (s *Service) PartProgress(ctx context.Context, partID string) (Progress, error) {
	var prog Progress
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		p, err := tx.GetPart(ctx, partID)
		if err != nil {
			return fmt.Errorf("part %q: %w", partID, err)
		}
		if p.RouteTemplateID == nil {
			return nil
		}
		route, err := tx.ListRouteStages(ctx, *p.RouteTemplateID)
		if err != nil {
			return err
		}
		hist, err := tx.ListPartHistory(ctx, partID)
		if err != nil {
			return err
		}
		names := make([]string, len(route))
		for i, rs := range route {
			names[i] = rs.StageName
		}
		statuses := make([]string, len(hist))
		for i, h := range hist {
			statuses[i] = h.Status
		}
		prog = Progress{Completed: completedCount(statuses, names), Total: len(names)}
		return nil
	})
	return prog, wrapErr("part progress", err)
}

// ProductProgress aggregates progress for one product. ErrNotFound when no
// part carries the designation.
func (s *Service) ProductProgress(ctx context.Context, designation string) (ProductProgress, error) {
	snap, err := s.snapshot(ctx, designation)
	if err != nil {
		return ProductProgress{}, wrapErr("product progress", err)
	}
	if len(snap.parts) == 0 || designation == "" {
		return ProductProgress{}, wrapErr("product progress", fmt.Errorf("product %q: %w", designation, ErrNotFound))
	}
	return computeProgress(snap.parts, snap.routes, snap.history)[0], nil
}

// ListProductProgress returns the dashboard aggregation for every product.
func (s *Service) ListProductProgress(ctx context.Context) ([]ProductProgress, error) {
	snap, err := s.snapshot(ctx, "")
	if err != nil {
		return nil, wrapErr("list product progress", err)
	}
	return computeProgress(snap.parts, snap.routes, snap.history), nil
}

// PartRow is one line of a product drill-down.
type PartRow struct {
	*store.Part
	Progress Progress `json:"progress"`
	State    State    `json:"state"`
}

// ListPartsWithProgress returns every part of a product with its progress.
func (s *Service) ListPartsWithProgress(ctx context.Context, designation string) ([]PartRow, error) {
	snap, err := s.snapshot(ctx, designation)
	if err != nil {
		return nil, wrapErr("list parts with progress", err)
	}
	rows := make([]PartRow, len(snap.parts))
	for i, p := range snap.parts {
		pp := partProgress(p, snap.routes, snap.history)
		rows[i] = PartRow{Part: p, Progress: pp, State: pp.State()}
	}
	return rows, nil
}
