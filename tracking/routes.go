package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"parttracker/store"
)

// RouteInput describes a route template to create or replace.
type RouteInput struct {
	Name      string  `json:"name"`
	IsDefault bool    `json:"is_default"`
	StageIDs  []int64 `json:"stage_ids"`
}

// Validate normalises the name and checks the stage list shape.
func (in *RouteInput) Validate() error {
	name, err := cleanName("name", in.Name)
	if err != nil {
		return err
	}
	in.Name = name
	if len(in.StageIDs) == 0 {
		return ErrEmptyRoute
	}
	seen := make(map[int64]bool, len(in.StageIDs))
	for _, id := range in.StageIDs {
		if seen[id] {
			return invalid("stage_ids", "stage %d listed more than once", id)
		}
		seen[id] = true
	}
	return nil
}

// CreateTemplate creates a route template with its ordered stages. When the
// template is default, every other template loses the flag in the same transaction.
func (s *Service) CreateTemplate(ctx context.Context, actor Actor, in RouteInput) (*store.RouteTemplate, error) {
	if err := in.Validate(); err != nil {
		return nil, wrapErr("create route", err)
	}

	var created *store.RouteTemplate
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		if err := checkRouteName(ctx, tx, in.Name, 0); err != nil {
			return err
		}
		if err := checkStagesExist(ctx, tx, in.StageIDs); err != nil {
			return err
		}
		if in.IsDefault {
			if err := clearDefaults(ctx, tx, 0); err != nil {
				return err
			}
		}
		t, err := tx.CreateRouteTemplate(ctx, in.Name, in.IsDefault, s.now())
		if err != nil {
			return routeWriteErr(in.Name, err)
		}
		if err := tx.ReplaceRouteStages(ctx, t.ID, in.StageIDs); err != nil {
			return err
		}
		if err := s.audit(ctx, tx.Queries, actor, "", ActionRouteCreated, routeDetails(in)); err != nil {
			return err
		}
		created, err = tx.GetRouteTemplate(ctx, t.ID)
		return err
	})
	if err != nil {
		return nil, wrapErr("create route", err)
	}
	s.emitter.EmitRouteChanged(created.ID, created.Name, "created")
	return created, nil
}

// UpdateTemplate renames the template, sets its default flag and replaces its
// stage list wholesale.
func (s *Service) UpdateTemplate(ctx context.Context, actor Actor, id int64, in RouteInput) (*store.RouteTemplate, error) {
	if err := in.Validate(); err != nil {
		return nil, wrapErr("update route", err)
	}

	var updated *store.RouteTemplate
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetRouteTemplate(ctx, id); err != nil {
			return fmt.Errorf("route %d: %w", id, err)
		}
		if err := checkRouteName(ctx, tx, in.Name, id); err != nil {
			return err
		}
		if err := checkStagesExist(ctx, tx, in.StageIDs); err != nil {
			return err
		}
		if in.IsDefault {
			if err := clearDefaults(ctx, tx, id); err != nil {
				return err
			}
		}
		if err := tx.UpdateRouteTemplate(ctx, id, in.Name, in.IsDefault, s.now()); err != nil {
			return routeWriteErr(in.Name, err)
		}
		if err := tx.ReplaceRouteStages(ctx, id, in.StageIDs); err != nil {
			return err
		}
		if err := s.audit(ctx, tx.Queries, actor, "", ActionRouteUpdated, routeDetails(in)); err != nil {
			return err
		}
		var err error
		updated, err = tx.GetRouteTemplate(ctx, id)
		return err
	})
	if err != nil {
		return nil, wrapErr("update route", err)
	}
	s.emitter.EmitRouteChanged(updated.ID, updated.Name, "updated")
	return updated, nil
}

// DeleteTemplate removes a template no part is assigned to.
func (s *Service) DeleteTemplate(ctx context.Context, actor Actor, id int64) error {
	var name string
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		t, err := tx.GetRouteTemplate(ctx, id)
		if err != nil {
			return fmt.Errorf("route %d: %w", id, err)
		}
		name = t.Name
		n, err := tx.RouteUsage(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("route %q assigned to %d part(s): %w", t.Name, n, ErrInUse)
		}
		if err := tx.DeleteRouteTemplate(ctx, id); err != nil {
			return err
		}
		return s.audit(ctx, tx.Queries, actor, "", ActionRouteDeleted, t.Name)
	})
	if err != nil {
		return wrapErr("delete route", err)
	}
	s.emitter.EmitRouteChanged(id, name, "deleted")
	return nil
}

func (s *Service) GetTemplate(ctx context.Context, id int64) (*store.RouteTemplate, error) {
	t, err := s.db.GetRouteTemplate(ctx, id)
	return t, wrapErr("get route", err)
}

func (s *Service) ListTemplates(ctx context.Context) ([]*store.RouteTemplate, error) {
	list, err := s.db.ListRouteTemplates(ctx)
	return list, wrapErr("list routes", err)
}

// DefaultTemplate returns the template marked default, or ErrNoDefaultRoute.
func (s *Service) DefaultTemplate(ctx context.Context) (*store.RouteTemplate, error) {
	t, err := s.db.DefaultRouteTemplate(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, wrapErr("default route", ErrNoDefaultRoute)
	}
	return t, wrapErr("default route", err)
}

func checkRouteName(ctx context.Context, tx *store.Tx, name string, selfID int64) error {
	existing, err := tx.GetRouteTemplateByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return fmt.Errorf("route %q: %w", name, ErrDuplicateName)
	}
	return nil
}

func checkStagesExist(ctx context.Context, tx *store.Tx, ids []int64) error {
	for _, id := range ids {
		if _, err := tx.GetStage(ctx, id); err != nil {
			return fmt.Errorf("stage %d: %w", id, err)
		}
	}
	return nil
}

func clearDefaults(ctx context.Context, tx *store.Tx, exceptID int64) error {
	if err := tx.LockRouteDefaults(ctx); err != nil {
		return err
	}
	return tx.ClearDefaultRoutes(ctx, exceptID)
}

// routeWriteErr maps a unique violation on insert/update to ErrDuplicateName.
func routeWriteErr(name string, err error) error {
	if errors.Is(err, store.ErrDuplicateKey) {
		return fmt.Errorf("route %q: %w", name, ErrDuplicateName)
	}
	return err
}

func routeDetails(in RouteInput) string {
	ids := make([]string, len(in.StageIDs))
	for i, id := range in.StageIDs {
		ids[i] = fmt.Sprint(id)
	}
	d := fmt.Sprintf("%s: stages [%s]", in.Name, strings.Join(ids, ", "))
	if in.IsDefault {
		d += " (default)"
	}
	return d
}
