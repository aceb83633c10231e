package budget

import (
	"testing"

	"github.com/productionorchestrator/orchestrator/internal/orcherr"
)

func TestReserveExactRemainingSucceeds(t *testing.T) {
	tr := New(1.0)
	tr.Allocate("run1", 10.0)

	if _, err := tr.Reserve("run1", "", 10.0); err != nil {
		t.Fatalf("expected exact-remaining reservation to succeed, got %v", err)
	}
}

func TestReserveOverRemainingFailsOverBudget(t *testing.T) {
	tr := New(1.0)
	tr.Allocate("run1", 10.0)

	_, err := tr.Reserve("run1", "", 10.01)
	if err == nil {
		t.Fatal("expected OVER_BUDGET error")
	}
	if orcherr.KindOf(err) != orcherr.OverBudget {
		t.Errorf("expected OVER_BUDGET, got %v", orcherr.KindOf(err))
	}
}

func TestCommitMovesReservedToCommitted(t *testing.T) {
	tr := New(1.0)
	tr.Allocate("run1", 10.0)

	resID, err := tr.Reserve("run1", "pilotA", 5.0)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := tr.Commit(resID, 4.5, "asset1"); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if got := tr.Committed("run1"); got != 4.5 {
		t.Errorf("expected committed=4.5, got %v", got)
	}
	if got := tr.Remaining("run1"); got != 5.5 {
		t.Errorf("expected remaining=5.5, got %v", got)
	}
}

func TestReleaseRefundsReservation(t *testing.T) {
	tr := New(1.0)
	tr.Allocate("run1", 10.0)

	resID, err := tr.Reserve("run1", "pilotA", 5.0)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := tr.Release(resID); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if got := tr.Remaining("run1"); got != 10.0 {
		t.Errorf("expected remaining=10.0 after release, got %v", got)
	}
}

func TestInvariantHoldsAcrossConcurrentReservations(t *testing.T) {
	tr := New(1.0)
	tr.Allocate("run1", 100.0)

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			_, err := tr.Reserve("run1", "pilotA", 10.0)
			done <- err
		}()
	}

	successes := 0
	for i := 0; i < 20; i++ {
		if err := <-done; err == nil {
			successes++
		}
	}
	if successes != 10 {
		t.Errorf("expected exactly 10 reservations to succeed (100/10), got %d", successes)
	}
	if rem := tr.Remaining("run1"); rem != 0 {
		t.Errorf("expected remaining=0, got %v", rem)
	}
}
