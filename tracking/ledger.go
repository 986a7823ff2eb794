package tracking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"parttracker/store"
)

const (
	KindStatus = "status"
	KindAudit  = "audit"

	DefaultAuditPageSize = 25
)

// LedgerEntry is one line of a part's merged history.
type LedgerEntry struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status,omitempty"`
	Operator  string    `json:"operator,omitempty"`
	Action    string    `json:"action,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// Record appends an audit entry. partID may be empty for actions not tied to a part.
func (s *Service) Record(ctx context.Context, actor Actor, action, details, partID string) error {
	if action == "" {
		return wrapErr("record audit", invalid("action", "must not be empty"))
	}
	err := s.audit(ctx, s.db.Queries, actor, partID, action, details)
	if errors.Is(err, store.ErrConstraint) {
		err = fmt.Errorf("part %q: %w", partID, ErrNotFound)
	}
	return wrapErr("record audit", err)
}

// History merges the part's status history and audit entries, newest first.
func (s *Service) History(ctx context.Context, partID string) ([]LedgerEntry, error) {
	var out []LedgerEntry
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		if _, err := tx.GetPart(ctx, partID); err != nil {
			return fmt.Errorf("part %q: %w", partID, err)
		}
		hist, err := tx.ListPartHistory(ctx, partID)
		if err != nil {
			return err
		}
		audit, err := tx.ListPartAudit(ctx, partID)
		if err != nil {
			return err
		}
		out = mergeLedger(hist, audit)
		return nil
	})
	if err != nil {
		return nil, wrapErr("part history", err)
	}
	return out, nil
}

func mergeLedger(hist []*store.HistoryEntry, audit []*store.AuditEntry) []LedgerEntry {
	out := make([]LedgerEntry, 0, len(hist)+len(audit))
	for _, h := range hist {
		out = append(out, LedgerEntry{Kind: KindStatus, ID: h.ID, Timestamp: h.CreatedAt, Status: h.Status, Operator: h.OperatorName})
	}
	for _, a := range audit {
		out = append(out, LedgerEntry{Kind: KindAudit, ID: a.ID, Timestamp: a.CreatedAt, Action: a.Action, Actor: a.Actor, Details: a.Details})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == KindAudit
		}
		return out[i].ID > out[j].ID
	})
	return out
}

type AuditPage struct {
	Entries []*store.AuditEntry `json:"entries"`
	Page    int                 `json:"page"`
	PerPage int                 `json:"per_page"`
	Total   int                 `json:"total"`
	Pages   int                 `json:"pages"`
}

// AuditLog returns one page of the global audit log, newest first. Pages are 1-based.
func (s *Service) AuditLog(ctx context.Context, page, perPage int) (*AuditPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultAuditPageSize
	}
	res := &AuditPage{Page: page, PerPage: perPage}
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if res.Total, err = tx.CountAuditLog(ctx); err != nil {
			return err
		}
		res.Entries, err = tx.ListAuditLog(ctx, perPage, (page-1)*perPage)
		return err
	})
	if err != nil {
		return nil, wrapErr("audit log", err)
	}
	res.Pages = (res.Total + perPage - 1) / perPage
	return res, nil
}

// OperatorPerformance counts stage confirmations per operator within
// [from, to). Zero times leave the window open on that side.
func (s *Service) OperatorPerformance(ctx context.Context, from, to time.Time) ([]*store.OperatorStat, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, wrapErr("operator performance", invalid("to", "must not be before from"))
	}
	stats, err := s.db.OperatorStats(ctx, from, to)
	return stats, wrapErr("operator performance", err)
}
