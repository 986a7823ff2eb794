package tracking

import (
	"context"
	"errors"
	"testing"

	"parttracker/store"
)

func TestScenarioConfirmOutOfOrderThenCancel(t *testing.T) {
	svc, em := testService(t)
	ctx := context.Background()
	rt := createRoute(t, svc, "T", false, addStages(t, svc, "A", "B", "C"))
	createPart(t, svc, "P", "Gear", rt.ID)

	avail, err := svc.AvailableStages(ctx, "P")
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if !equalStrings(avail, []string{"A", "B", "C"}) {
		t.Fatalf("available = %v, want [A B C]", avail)
	}

	entry, err := svc.ConfirmStage(ctx, admin, "P", "B", "ivan")
	if err != nil {
		t.Fatalf("confirm B: %v", err)
	}
	avail, _ = svc.AvailableStages(ctx, "P")
	if !equalStrings(avail, []string{"A", "C"}) {
		t.Errorf("available after B = %v, want [A C]", avail)
	}
	p, _ := svc.GetPart(ctx, "P")
	if p.CurrentStatus != "B" {
		t.Errorf("CurrentStatus = %q, want %q", p.CurrentStatus, "B")
	}
	if !p.LastUpdate.Equal(entry.CreatedAt) {
		t.Errorf("LastUpdate = %v, want %v", p.LastUpdate, entry.CreatedAt)
	}

	res, err := svc.CancelStage(ctx, admin, entry.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.NewStatus != store.StatusInStock {
		t.Errorf("NewStatus = %q, want %q", res.NewStatus, store.StatusInStock)
	}
	p, _ = svc.GetPart(ctx, "P")
	if p.CurrentStatus != store.StatusInStock {
		t.Errorf("CurrentStatus after cancel = %q, want %q", p.CurrentStatus, store.StatusInStock)
	}
	avail, _ = svc.AvailableStages(ctx, "P")
	if !equalStrings(avail, []string{"A", "B", "C"}) {
		t.Errorf("available after cancel = %v, want [A B C]", avail)
	}

	if !equalStrings(em.confirmed, []string{"P:B"}) || !equalStrings(em.cancelled, []string{"P:B"}) {
		t.Errorf("events confirmed=%v cancelled=%v", em.confirmed, em.cancelled)
	}

	hist, _ := svc.History(ctx, "P")
	if len(hist) == 0 || hist[0].Kind != KindAudit || hist[0].Action != ActionStageCancelled {
		t.Errorf("latest ledger entry = %+v, want stage cancelled audit", hist)
	}
}

func TestConfirmStageRejections(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	ids := addStages(t, svc, "A", "B", "Z")
	rt := createRoute(t, svc, "T", false, ids[:2])
	createPart(t, svc, "P", "Gear", rt.ID)

	if _, err := svc.ConfirmStage(ctx, admin, "P", "Z", ""); !errors.Is(err, ErrInvalidStage) {
		t.Errorf("stage outside route err = %v, want ErrInvalidStage", err)
	}
	if _, err := svc.ConfirmStage(ctx, admin, "P", "A", ""); err != nil {
		t.Fatalf("confirm A: %v", err)
	}
	_, err := svc.ConfirmStage(ctx, admin, "P", "A", "")
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("repeat err = %v, want ErrAlreadyCompleted", err)
	}
	if Kind(err) != "conflict" {
		t.Errorf("Kind = %q, want conflict", Kind(err))
	}
	if _, err := svc.ConfirmStage(ctx, admin, "missing", "A", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing part err = %v, want ErrNotFound", err)
	}

	hist, _ := svc.History(ctx, "P")
	statuses := 0
	for _, e := range hist {
		if e.Kind == KindStatus {
			statuses++
		}
	}
	if statuses != 1 {
		t.Errorf("status entries = %d, want 1 (rejections must not write)", statuses)
	}
}

func TestConfirmStageOperatorFallback(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	rt := createRoute(t, svc, "T", false, addStages(t, svc, "A", "B", "C"))
	createPart(t, svc, "P", "Gear", rt.ID)
	svc.SetUnknownOperator("nobody")

	e1, _ := svc.ConfirmStage(ctx, Actor{}, "P", "A", "  ")
	if e1.OperatorName != "nobody" {
		t.Errorf("anonymous operator = %q, want %q", e1.OperatorName, "nobody")
	}
	e2, _ := svc.ConfirmStage(ctx, Actor{Username: "olga"}, "P", "B", "")
	if e2.OperatorName != "olga" {
		t.Errorf("user fallback = %q, want %q", e2.OperatorName, "olga")
	}
	e3, _ := svc.ConfirmStage(ctx, Actor{Username: "olga"}, "P", "C", "ivan")
	if e3.OperatorName != "ivan" {
		t.Errorf("explicit operator = %q, want %q", e3.OperatorName, "ivan")
	}
}

func TestCancelRestoresLatestRemainingStatus(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	rt := createRoute(t, svc, "T", false, addStages(t, svc, "A", "B", "C"))
	createPart(t, svc, "P", "Gear", rt.ID)

	eA, _ := svc.ConfirmStage(ctx, admin, "P", "A", "")
	eC, _ := svc.ConfirmStage(ctx, admin, "P", "C", "")
	eB, _ := svc.ConfirmStage(ctx, admin, "P", "B", "")

	// Cancelling an older entry keeps the newest status.
	res, err := svc.CancelStage(ctx, admin, eC.ID)
	if err != nil {
		t.Fatalf("cancel C: %v", err)
	}
	if res.NewStatus != "B" {
		t.Errorf("after cancelling C status = %q, want B", res.NewStatus)
	}
	res, _ = svc.CancelStage(ctx, admin, eB.ID)
	if res.NewStatus != "A" {
		t.Errorf("after cancelling B status = %q, want A", res.NewStatus)
	}
	res, _ = svc.CancelStage(ctx, admin, eA.ID)
	if res.NewStatus != store.StatusInStock {
		t.Errorf("after cancelling A status = %q, want %q", res.NewStatus, store.StatusInStock)
	}

	if _, err := svc.CancelStage(ctx, admin, eA.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cancel twice err = %v, want ErrNotFound", err)
	}
}

func TestStatusStates(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	rt := createRoute(t, svc, "T", false, addStages(t, svc, "A", "B"))
	createPart(t, svc, "P", "Gear", rt.ID)
	svc.CreatePart(ctx, admin, PartInput{PartID: "Loose", ProductDesignation: "Gear"})

	st, err := svc.Status(ctx, "P")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.State != StateNotStarted {
		t.Errorf("State = %q, want %q", st.State, StateNotStarted)
	}
	svc.ConfirmStage(ctx, admin, "P", "B", "")
	st, _ = svc.Status(ctx, "P")
	if st.State != StateInProgress || st.Progress != (Progress{Completed: 1, Total: 2}) {
		t.Errorf("after B: state=%q progress=%+v", st.State, st.Progress)
	}
	if !equalStrings(st.Available, []string{"A"}) {
		t.Errorf("Available = %v, want [A]", st.Available)
	}
	svc.ConfirmStage(ctx, admin, "P", "A", "")
	st, _ = svc.Status(ctx, "P")
	if st.State != StateComplete {
		t.Errorf("State = %q, want %q", st.State, StateComplete)
	}

	st, err = svc.Status(ctx, "Loose")
	if err != nil {
		t.Fatalf("status of unrouted part: %v", err)
	}
	if len(st.Route) != 0 || st.State != StateNotStarted {
		t.Errorf("unrouted status = %+v", st)
	}
}
