package tracking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"parttracker/store"
)

// routeAndHistory loads the part's route stage names (in order) and the set of
// stage names already recorded in its history.
func routeAndHistory(ctx context.Context, q *store.Queries, partID string) (*store.Part, []string, map[string]bool, error) {
	p, err := q.GetPart(ctx, partID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("part %q: %w", partID, err)
	}
	if p.RouteTemplateID == nil {
		return p, nil, nil, fmt.Errorf("part %q: %w", partID, ErrNoRouteAssigned)
	}
	stages, err := q.ListRouteStages(ctx, *p.RouteTemplateID)
	if err != nil {
		return nil, nil, nil, err
	}
	route := make([]string, len(stages))
	for i, rs := range stages {
		route[i] = rs.StageName
	}
	hist, err := q.ListPartHistory(ctx, partID)
	if err != nil {
		return nil, nil, nil, err
	}
	done := make(map[string]bool, len(hist))
	for _, h := range hist {
		done[h.Status] = true
	}
	return p, route, done, nil
}

// AvailableStages lists the stages of the part's route not yet completed, in route order.
func (s *Service) AvailableStages(ctx context.Context, partID string) ([]string, error) {
	var avail []string
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		_, route, done, err := routeAndHistory(ctx, tx.Queries, partID)
		if err != nil {
			return err
		}
		avail = make([]string, 0, len(route))
		for _, name := range route {
			if !done[name] {
				avail = append(avail, name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("available stages", err)
	}
	return avail, nil
}

// PartStatus is the scan view of a part.
type PartStatus struct {
	Part      *store.Part `json:"part"`
	Route     []string    `json:"route"`
	Available []string    `json:"available"`
	Progress  Progress    `json:"progress"`
	State     State       `json:"state"`
}

// Status returns the part with its route, remaining stages and derived state.
// A part without route is reported with an empty route.
func (s *Service) Status(ctx context.Context, partID string) (*PartStatus, error) {
	var st *PartStatus
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		p, route, done, err := routeAndHistory(ctx, tx.Queries, partID)
		if errors.Is(err, ErrNoRouteAssigned) {
			st = &PartStatus{Part: p, Route: []string{}, Available: []string{}, State: StateNotStarted}
			return nil
		}
		if err != nil {
			return err
		}
		st = &PartStatus{Part: p, Route: route, Available: make([]string, 0, len(route))}
		for _, name := range route {
			if done[name] {
				st.Progress.Completed++
			} else {
				st.Available = append(st.Available, name)
			}
		}
		st.Progress.Total = len(route)
		st.State = st.Progress.State()
		return nil
	})
	if err != nil {
		return nil, wrapErr("part status", err)
	}
	return st, nil
}

// ConfirmStage records completion of stageName for the part. Stages may be
// confirmed in any order but each at most once. The operator name falls back
// to the actor's username and then to the configured unknown-operator name.
func (s *Service) ConfirmStage(ctx context.Context, actor Actor, partID, stageName, operatorName string) (*store.HistoryEntry, error) {
	stageName = strings.TrimSpace(stageName)
	if stageName == "" {
		return nil, wrapErr("confirm stage", invalid("stage", "must not be empty"))
	}
	operator := strings.TrimSpace(operatorName)
	if operator == "" {
		operator = actor.Username
	}
	if operator == "" {
		operator = s.unknownOperator
	}

	var entry *store.HistoryEntry
	var product string
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		p, route, done, err := routeAndHistory(ctx, tx.Queries, partID)
		if err != nil {
			return err
		}
		product = p.ProductDesignation
		if !slices.Contains(route, stageName) {
			return fmt.Errorf("stage %q: %w", stageName, ErrInvalidStage)
		}
		if done[stageName] {
			return fmt.Errorf("stage %q: %w", stageName, ErrAlreadyCompleted)
		}
		now := s.now()
		entry = &store.HistoryEntry{PartID: partID, Status: stageName, OperatorName: operator, CreatedAt: now}
		if err := tx.AppendHistory(ctx, entry); err != nil {
			return err
		}
		return tx.SetPartStatus(ctx, partID, stageName, now)
	})
	if err != nil {
		return nil, wrapErr("confirm stage", err)
	}
	s.emitter.EmitStageConfirmed(partID, product, stageName, operator, entry.ID)
	return entry, nil
}

// CancelResult describes a removed history entry and the part's recomputed status.
type CancelResult struct {
	Entry     *store.HistoryEntry `json:"entry"`
	NewStatus string              `json:"new_status"`
}

// CancelStage deletes one history entry and resets the part's status to the
// latest remaining entry, or to "In Stock" when none remains.
func (s *Service) CancelStage(ctx context.Context, actor Actor, historyID int64) (*CancelResult, error) {
	res := &CancelResult{}
	var product string
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		entry, err := tx.GetHistoryEntry(ctx, historyID)
		if err != nil {
			return fmt.Errorf("history entry %d: %w", historyID, err)
		}
		res.Entry = entry
		p, err := tx.GetPart(ctx, entry.PartID)
		if err != nil {
			return err
		}
		product = p.ProductDesignation
		if err := tx.DeleteHistoryEntry(ctx, historyID); err != nil {
			return err
		}

		res.NewStatus = store.StatusInStock
		latest, err := tx.LatestHistory(ctx, entry.PartID)
		switch {
		case err == nil:
			res.NewStatus = latest.Status
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		if err := tx.SetPartStatus(ctx, entry.PartID, res.NewStatus, s.now()); err != nil {
			return err
		}
		return s.audit(ctx, tx.Queries, actor, entry.PartID, ActionStageCancelled,
			fmt.Sprintf("stage %q by %s at %s", entry.Status, entry.OperatorName, entry.CreatedAt.Format("2006-01-02 15:04:05")))
	})
	if err != nil {
		return nil, wrapErr("cancel stage", err)
	}
	s.emitter.EmitStageCancelled(res.Entry.PartID, product, res.Entry.Status, res.NewStatus, actor.name(), historyID)
	return res, nil
}
