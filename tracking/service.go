package tracking

import (
	"context"
	"time"

	"parttracker/store"
)

// Audit actions.
const (
	ActionStageCreated   = "stage created"
	ActionStageDeleted   = "stage deleted"
	ActionRouteCreated   = "route created"
	ActionRouteUpdated   = "route updated"
	ActionRouteDeleted   = "route deleted"
	ActionPartCreated    = "part created"
	ActionPartImported   = "part imported"
	ActionPartUpdated    = "part updated"
	ActionPartDeleted    = "part deleted"
	ActionStageCancelled = "stage cancelled"
	ActionQRGenerated    = "qr generated"
	ActionQRRegenerated  = "qr regenerated"
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionUserCreated    = "user created"
	ActionUserUpdated    = "user updated"
	ActionUserDeleted    = "user deleted"
)

// Emitter receives notifications after a mutation has committed.
type Emitter interface {
	EmitPartCreated(partID, product string, routeTemplateID *int64, actor string)
	EmitPartUpdated(partID, oldProduct, newProduct, actor string)
	EmitPartDeleted(partID, product, actor string)
	EmitStageConfirmed(partID, product, stage, operator string, historyID int64)
	EmitStageCancelled(partID, product, stage, newStatus, actor string, historyID int64)
	EmitRouteChanged(templateID int64, name, action string)
	EmitStageDictionaryChanged(stageID int64, name, action string)
}

type nopEmitter struct{}

func (nopEmitter) EmitPartCreated(string, string, *int64, string)                   {}
func (nopEmitter) EmitPartUpdated(string, string, string, string)                   {}
func (nopEmitter) EmitPartDeleted(string, string, string)                           {}
func (nopEmitter) EmitStageConfirmed(string, string, string, string, int64)         {}
func (nopEmitter) EmitStageCancelled(string, string, string, string, string, int64) {}
func (nopEmitter) EmitRouteChanged(int64, string, string)                           {}
func (nopEmitter) EmitStageDictionaryChanged(int64, string, string)                 {}

// Service implements stage, route, part, transition and ledger operations.
// Every mutating call runs in a single store transaction.
type Service struct {
	db              *store.DB
	emitter         Emitter
	now             func() time.Time
	unknownOperator string
}

func NewService(db *store.DB, emitter Emitter) *Service {
	if emitter == nil {
		emitter = nopEmitter{}
	}
	return &Service{
		db:              db,
		emitter:         emitter,
		now:             func() time.Time { return time.Now().UTC() },
		unknownOperator: "unknown",
	}
}

// SetClock replaces the time source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetUnknownOperator sets the operator name recorded when no name or user is known.
func (s *Service) SetUnknownOperator(name string) {
	if name != "" {
		s.unknownOperator = name
	}
}

func (s *Service) DB() *store.DB { return s.db }

func (s *Service) audit(ctx context.Context, q *store.Queries, actor Actor, partID, action, details string) error {
	return q.AppendAudit(ctx, &store.AuditEntry{
		PartID:    partID,
		UserID:    actor.UserID,
		Actor:     actor.name(),
		Action:    action,
		Details:   details,
		CreatedAt: s.now(),
	})
}
