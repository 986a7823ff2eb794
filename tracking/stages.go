package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"parttracker/store"
)

const maxNameLen = 100

// sameName compares names the way the stage dictionary does: Unicode case folded.
func sameName(a, b string) bool {
	fold := cases.Fold()
	return fold.String(a) == fold.String(b)
}

func cleanName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid(field, "must not be empty")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "", invalid(field, "must be at most %d characters", maxNameLen)
	}
	return name, nil
}

// AddStage registers a new stage name. Names are unique ignoring case.
func (s *Service) AddStage(ctx context.Context, actor Actor, name string) (*store.Stage, error) {
	name, err := cleanName("name", name)
	if err != nil {
		return nil, wrapErr("add stage", err)
	}

	var stage *store.Stage
	err = s.db.WithTx(ctx, func(tx *store.Tx) error {
		existing, err := tx.ListStages(ctx)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if sameName(e.Name, name) {
				return fmt.Errorf("stage %q: %w", e.Name, ErrDuplicateName)
			}
		}
		stage, err = tx.CreateStage(ctx, name, s.now())
		if errors.Is(err, store.ErrDuplicateKey) {
			return fmt.Errorf("stage %q: %w", name, ErrDuplicateName)
		}
		if err != nil {
			return err
		}
		return s.audit(ctx, tx.Queries, actor, "", ActionStageCreated, stage.Name)
	})
	if err != nil {
		return nil, wrapErr("add stage", err)
	}
	s.emitter.EmitStageDictionaryChanged(stage.ID, stage.Name, "created")
	return stage, nil
}

// DeleteStage removes a stage that no route template references.
func (s *Service) DeleteStage(ctx context.Context, actor Actor, id int64) error {
	var name string
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		stage, err := tx.GetStage(ctx, id)
		if err != nil {
			return err
		}
		name = stage.Name
		n, err := tx.StageUsage(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("stage %q used by %d route(s): %w", stage.Name, n, ErrInUse)
		}
		if err := tx.DeleteStage(ctx, id); err != nil {
			return err
		}
		return s.audit(ctx, tx.Queries, actor, "", ActionStageDeleted, stage.Name)
	})
	if err != nil {
		return wrapErr("delete stage", err)
	}
	s.emitter.EmitStageDictionaryChanged(id, name, "deleted")
	return nil
}

func (s *Service) GetStage(ctx context.Context, id int64) (*store.Stage, error) {
	stage, err := s.db.GetStage(ctx, id)
	return stage, wrapErr("get stage", err)
}

func (s *Service) ListStages(ctx context.Context) ([]*store.Stage, error) {
	stages, err := s.db.ListStages(ctx)
	return stages, wrapErr("list stages", err)
}
