// Package budget implements the process-wide Budget Tracker: a
// two-phase reserve/commit/release ledger consulted before every paid
// provider call.
package budget

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/productionorchestrator/orchestrator/internal/domain"
	"github.com/productionorchestrator/orchestrator/internal/orcherr"
)

type reservation struct {
	id        string
	runID     string
	pilotID   string
	assetID   string
	amountUSD float64
}

type runAccount struct {
	allocatedUSD float64
	committedUSD float64
	reservedUSD  float64
}

// Tracker is a process-wide singleton. Construct exactly once per
// process via New — there is deliberately no implicit module-load
// global, per the "avoid implicit module-load wiring" design note.
type Tracker struct {
	mu            sync.Mutex
	overheadFactor float64
	runs          map[string]*runAccount
	reservations  map[string]*reservation
	ledger        []domain.BudgetLedgerEntry
}

// New constructs a Tracker. overheadFactor bounds the invariant
// sum(committed)+sum(reserved) <= allocated*overheadFactor; pass 1.0 for
// no slack.
func New(overheadFactor float64) *Tracker {
	if overheadFactor <= 0 {
		overheadFactor = 1.0
	}
	return &Tracker{
		overheadFactor: overheadFactor,
		runs:           make(map[string]*runAccount),
		reservations:   make(map[string]*reservation),
	}
}

// Allocate registers a run's total allocated budget. Must be called
// before any Reserve for that run_id.
func (t *Tracker) Allocate(runID string, allocatedUSD float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs[runID] = &runAccount{allocatedUSD: allocatedUSD}
}

// Reserve attempts a reservation. Returns *orcherr.Error{Kind:
// OverBudget} when committed+reserved would exceed
// allocated*overheadFactor.
func (t *Tracker) Reserve(runID, pilotID string, amountUSD float64) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	acct, ok := t.runs[runID]
	if !ok {
		acct = &runAccount{}
		t.runs[runID] = acct
	}

	limit := acct.allocatedUSD * t.overheadFactor
	if acct.committedUSD+acct.reservedUSD+amountUSD > limit {
		return "", orcherr.New(orcherr.OverBudget, "budget.reserve", nil).
			WithDetail("run_id", runID).
			WithDetail("requested", amountUSD).
			WithDetail("remaining", limit-acct.committedUSD-acct.reservedUSD)
	}

	id := uuid.New().String()
	t.reservations[id] = &reservation{id: id, runID: runID, pilotID: pilotID, amountUSD: amountUSD}
	acct.reservedUSD += amountUSD

	t.ledger = append(t.ledger, domain.BudgetLedgerEntry{
		Timestamp: time.Now(), Category: "reserve", AmountUSD: amountUSD,
		RunID: runID, PilotID: pilotID,
	})
	return id, nil
}

// Commit finalizes a reservation at its actual cost, which may differ
// from the reserved amount (e.g. a provider that bills per-second after
// the fact). The delta is absorbed into reservedUSD->committedUSD.
func (t *Tracker) Commit(reservationID string, actualUSD float64, assetID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	res, ok := t.reservations[reservationID]
	if !ok {
		return orcherr.New(orcherr.InputInvalid, "budget.commit", nil).
			WithDetail("reservation_id", reservationID)
	}
	acct := t.runs[res.runID]
	acct.reservedUSD -= res.amountUSD
	acct.committedUSD += actualUSD
	delete(t.reservations, reservationID)

	t.ledger = append(t.ledger, domain.BudgetLedgerEntry{
		Timestamp: time.Now(), Category: "commit", AmountUSD: actualUSD,
		RunID: res.runID, PilotID: res.pilotID, AssetID: assetID,
	})
	return nil
}

// Release cancels a reservation without debiting anything, per the
// cancellation/timeout-triggers-release rule in §4.5/§5.
func (t *Tracker) Release(reservationID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	res, ok := t.reservations[reservationID]
	if !ok {
		return orcherr.New(orcherr.InputInvalid, "budget.release", nil).
			WithDetail("reservation_id", reservationID)
	}
	acct := t.runs[res.runID]
	acct.reservedUSD -= res.amountUSD
	delete(t.reservations, reservationID)

	t.ledger = append(t.ledger, domain.BudgetLedgerEntry{
		Timestamp: time.Now(), Category: "release", AmountUSD: res.amountUSD,
		RunID: res.runID, PilotID: res.pilotID,
	})
	return nil
}

// Remaining returns allocated*overheadFactor - committed - reserved.
func (t *Tracker) Remaining(runID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	acct, ok := t.runs[runID]
	if !ok {
		return 0
	}
	return acct.allocatedUSD*t.overheadFactor - acct.committedUSD - acct.reservedUSD
}

// Committed returns the total committed amount for a run (used to
// compute a pilot's actual_cost_usd and the run summary).
func (t *Tracker) Committed(runID string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	acct, ok := t.runs[runID]
	if !ok {
		return 0
	}
	return acct.committedUSD
}

// Ledger returns a copy of all ledger entries recorded so far (for the
// Run Journal and post-mortem reporting). Never returns the internal
// slice directly.
func (t *Tracker) Ledger() []domain.BudgetLedgerEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.BudgetLedgerEntry, len(t.ledger))
	copy(out, t.ledger)
	return out
}
