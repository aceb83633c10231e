package learnings

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/productionorchestrator/orchestrator/internal/domain"
	"github.com/productionorchestrator/orchestrator/internal/orcherr"
)

// Approve applies a previously-queued promotion. This is the one
// explicit admin-only write path into the promotion approval queue;
// nothing in the scheduler/scene pipeline calls it automatically.
func Approve(ctx context.Context, store Store, queue *ApprovalQueue, approvalID string) (*domain.Learning, error) {
	pa, ok := queue.Take(approvalID)
	if !ok {
		return nil, orcherr.New(orcherr.InputInvalid, "learnings.approve", nil).WithDetail("approval_id", approvalID)
	}

	promoted := pa.Learning
	promoted.ID = uuid.New().String()
	promoted.Namespace = pa.ToNS.Build()
	promoted.PromotedFrom = pa.Learning.ID
	promoted.PromotionHistory = append(append([]domain.PromotionEntry{}, pa.Learning.PromotionHistory...), domain.PromotionEntry{
		FromNamespace: pa.FromNS.Build(), ToNamespace: pa.ToNS.Build(), PromotedAt: time.Now(),
	})
	promoted.CreatedAt = time.Now()
	promoted.UpdatedAt = promoted.CreatedAt

	if _, err := store.Create(ctx, promoted); err != nil {
		return nil, err
	}
	return &promoted, nil
}

// Reject discards a queued promotion without creating a new record.
func Reject(queue *ApprovalQueue, approvalID string) error {
	if _, ok := queue.Take(approvalID); !ok {
		return orcherr.New(orcherr.InputInvalid, "learnings.reject", nil).WithDetail("approval_id", approvalID)
	}
	return nil
}
