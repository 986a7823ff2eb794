package tracking

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"parttracker/store"
)

// PartInput describes a part to create. A nil RouteTemplateID selects the
// default template.
type PartInput struct {
	PartID             string `json:"part_id"`
	ProductDesignation string `json:"product_designation"`
	RouteTemplateID    *int64 `json:"route_template_id"`

	// Line is the source file row reported in import errors. Zero means the
	// position in the batch.
	Line int `json:"-"`
}

// Validate trims the fields and checks that the part id can be used as a
// single URL path segment.
func (in *PartInput) Validate() error {
	in.PartID = strings.TrimSpace(in.PartID)
	in.ProductDesignation = strings.TrimSpace(in.ProductDesignation)
	if err := ValidatePartID(in.PartID); err != nil {
		return err
	}
	if in.ProductDesignation == "" {
		return invalid("product_designation", "must not be empty")
	}
	if utf8.RuneCountInString(in.ProductDesignation) > 255 {
		return invalid("product_designation", "must be at most 255 characters")
	}
	return nil
}

func ValidatePartID(id string) error {
	if id == "" {
		return invalid("part_id", "must not be empty")
	}
	if utf8.RuneCountInString(id) > maxNameLen {
		return invalid("part_id", "must be at most %d characters", maxNameLen)
	}
	for _, r := range id {
		if unicode.IsControl(r) || strings.ContainsRune(`/\?#%`, r) {
			return invalid("part_id", "contains forbidden character %q", r)
		}
	}
	return nil
}

// CreatePart registers a new part on its route template.
func (s *Service) CreatePart(ctx context.Context, actor Actor, in PartInput) (*store.Part, error) {
	if err := in.Validate(); err != nil {
		return nil, wrapErr("create part", err)
	}

	var part *store.Part
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		routeID, routeName, err := resolveRoute(ctx, tx.Queries, in.RouteTemplateID)
		if err != nil {
			return err
		}
		part, err = s.insertPart(ctx, tx, actor, in.PartID, in.ProductDesignation, routeID,
			ActionPartCreated, fmt.Sprintf("product %s, route %s", in.ProductDesignation, routeName))
		return err
	})
	if err != nil {
		return nil, wrapErr("create part", err)
	}
	s.emitter.EmitPartCreated(part.PartID, part.ProductDesignation, part.RouteTemplateID, actor.name())
	return part, nil
}

// resolveRoute returns the requested template, or the default one when id is
// nil. A missing default leaves the part unassigned.
func resolveRoute(ctx context.Context, q *store.Queries, id *int64) (*int64, string, error) {
	if id == nil {
		def, err := q.DefaultRouteTemplate(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return nil, "none", nil
		}
		if err != nil {
			return nil, "", err
		}
		return &def.ID, def.Name, nil
	}
	t, err := q.GetRouteTemplate(ctx, *id)
	if err != nil {
		return nil, "", fmt.Errorf("route %d: %w", *id, err)
	}
	return &t.ID, t.Name, nil
}

func (s *Service) insertPart(ctx context.Context, tx *store.Tx, actor Actor, partID, product string, routeID *int64, action, details string) (*store.Part, error) {
	exists, err := tx.PartExists(ctx, partID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("part %q: %w", partID, ErrDuplicateKey)
	}
	now := s.now()
	p := &store.Part{
		PartID:             partID,
		ProductDesignation: product,
		RouteTemplateID:    routeID,
		CurrentStatus:      store.StatusInStock,
		DateAdded:          now,
		LastUpdate:         now,
	}
	if err := tx.CreatePart(ctx, p); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, tx.Queries, actor, partID, action, details); err != nil {
		return nil, err
	}
	return p, nil
}

// ImportResult counts the outcome of a bulk import.
type ImportResult struct {
	Added   int           `json:"added"`
	Skipped int           `json:"skipped"`
	Invalid int           `json:"invalid"`
	Errors  []RowError    `json:"errors,omitempty"`
	Parts   []*store.Part `json:"-"`
}

type RowError struct {
	Row    int    `json:"row"`
	PartID string `json:"part_id"`
	Reason string `json:"reason"`
}

// Reject counts rows refused before they reached ImportParts as invalid.
func (r *ImportResult) Reject(errs ...RowError) {
	r.Invalid += len(errs)
	r.Errors = append(r.Errors, errs...)
	slices.SortStableFunc(r.Errors, func(a, b RowError) int { return cmp.Compare(a.Row, b.Row) })
}

// ImportParts creates parts row by row, each in its own transaction. Existing
// part ids are skipped and malformed rows counted as invalid. Rows without a
// route use the default template, which must then exist. A storage failure
// stops the import and returns the counts reached so far.
func (s *Service) ImportParts(ctx context.Context, actor Actor, source string, rows []PartInput) (*ImportResult, error) {
	res := &ImportResult{}

	var def *store.RouteTemplate
	for _, row := range rows {
		if row.RouteTemplateID == nil {
			t, err := s.db.DefaultRouteTemplate(ctx)
			if errors.Is(err, store.ErrNotFound) {
				return res, wrapErr("import parts", ErrNoDefaultRoute)
			}
			if err != nil {
				return res, wrapErr("import parts", err)
			}
			def = t
			break
		}
	}

	details := "imported"
	if source != "" {
		details = "imported from " + source
	}

	for i, row := range rows {
		rowNum := i + 1
		if row.Line > 0 {
			rowNum = row.Line
		}
		if err := row.Validate(); err != nil {
			res.Invalid++
			res.Errors = append(res.Errors, RowError{Row: rowNum, PartID: row.PartID, Reason: err.Error()})
			continue
		}
		routeID := row.RouteTemplateID
		if routeID == nil {
			routeID = &def.ID
		}

		var part *store.Part
		err := s.db.WithTx(ctx, func(tx *store.Tx) error {
			if row.RouteTemplateID != nil {
				if _, err := tx.GetRouteTemplate(ctx, *routeID); err != nil {
					return fmt.Errorf("route %d: %w", *routeID, err)
				}
			}
			var err error
			part, err = s.insertPart(ctx, tx, actor, row.PartID, row.ProductDesignation, routeID, ActionPartImported, details)
			return err
		})
		switch {
		case err == nil:
			res.Added++
			res.Parts = append(res.Parts, part)
		case errors.Is(err, store.ErrDuplicateKey):
			res.Skipped++
		case errors.Is(err, store.ErrNotFound):
			res.Invalid++
			res.Errors = append(res.Errors, RowError{Row: rowNum, PartID: row.PartID, Reason: err.Error()})
		default:
			return res, wrapErr("import parts", err)
		}
	}

	for _, p := range res.Parts {
		s.emitter.EmitPartCreated(p.PartID, p.ProductDesignation, p.RouteTemplateID, actor.name())
	}
	return res, nil
}

func (s *Service) GetPart(ctx context.Context, partID string) (*store.Part, error) {
	p, err := s.db.GetPart(ctx, partID)
	return p, wrapErr("get part", err)
}

// ListParts returns the parts of one product, or every part when designation is empty.
func (s *Service) ListParts(ctx context.Context, designation string) ([]*store.Part, error) {
	parts, err := s.db.ListParts(ctx, designation)
	return parts, wrapErr("list parts", err)
}

// UpdateDesignation moves a part to another product. It reports false when the
// designation is unchanged.
func (s *Service) UpdateDesignation(ctx context.Context, actor Actor, partID, designation string) (bool, error) {
	designation = strings.TrimSpace(designation)
	if designation == "" {
		return false, wrapErr("update part", invalid("product_designation", "must not be empty"))
	}

	var old string
	changed := false
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		p, err := tx.GetPart(ctx, partID)
		if err != nil {
			return fmt.Errorf("part %q: %w", partID, err)
		}
		old = p.ProductDesignation
		if old == designation {
			return nil
		}
		if err := tx.UpdatePartDesignation(ctx, partID, designation, s.now()); err != nil {
			return err
		}
		changed = true
		return s.audit(ctx, tx.Queries, actor, partID, ActionPartUpdated,
			fmt.Sprintf("product designation: %s -> %s", old, designation))
	})
	if err != nil {
		return false, wrapErr("update part", err)
	}
	if changed {
		s.emitter.EmitPartUpdated(partID, old, designation, actor.name())
	}
	return changed, nil
}

// DeletePart removes the part with its history and audit trail. The deletion
// itself is recorded as a part-less audit entry.
func (s *Service) DeletePart(ctx context.Context, actor Actor, partID string) error {
	var product string
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		p, err := tx.GetPart(ctx, partID)
		if err != nil {
			return fmt.Errorf("part %q: %w", partID, err)
		}
		product = p.ProductDesignation
		if err := tx.DeletePart(ctx, partID); err != nil {
			return err
		}
		return s.audit(ctx, tx.Queries, actor, "", ActionPartDeleted,
			fmt.Sprintf("part %s (product %s)", partID, product))
	})
	if err != nil {
		return wrapErr("delete part", err)
	}
	s.emitter.EmitPartDeleted(partID, product, actor.name())
	return nil
}

// RecordQRGenerated logs a QR code generation for the part. It reports true
// when an earlier generation is already on record.
func (s *Service) RecordQRGenerated(ctx context.Context, actor Actor, partID string) (bool, error) {
	regenerated := false
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetPart(ctx, partID); err != nil {
			return fmt.Errorf("part %q: %w", partID, err)
		}
		entries, err := tx.ListPartAudit(ctx, partID)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Action == ActionQRGenerated || e.Action == ActionQRRegenerated {
				regenerated = true
				break
			}
		}
		action := ActionQRGenerated
		if regenerated {
			action = ActionQRRegenerated
		}
		return s.audit(ctx, tx.Queries, actor, partID, action, "")
	})
	if err != nil {
		return false, wrapErr("record qr", err)
	}
	return regenerated, nil
}
