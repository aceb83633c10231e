package learnings

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/productionorchestrator/orchestrator/internal/domain"
)

// PromotionRule is one row of the (from_level -> to_level) table.
type PromotionRule struct {
	MinValidations   int
	MinConfidence    float64
	RequiresApproval bool
}

// PromotionTable is the closed (from, to) rule set, a level promotes to
// the next level up (SESSION->USER->ORG->PLATFORM).
var PromotionTable = map[[2]domain.NamespaceLevel]PromotionRule{
	{domain.LevelSession, domain.LevelUser}:     {MinValidations: 2, MinConfidence: 0.6, RequiresApproval: false},
	{domain.LevelUser, domain.LevelOrg}:         {MinValidations: 5, MinConfidence: 0.75, RequiresApproval: false},
	{domain.LevelOrg, domain.LevelPlatform}:     {MinValidations: 10, MinConfidence: 0.9, RequiresApproval: true},
}

func nextLevelUp(l domain.NamespaceLevel) (domain.NamespaceLevel, bool) {
	switch l {
	case domain.LevelSession:
		return domain.LevelUser, true
	case domain.LevelUser:
		return domain.LevelOrg, true
	case domain.LevelOrg:
		return domain.LevelPlatform, true
	default:
		return 0, false
	}
}

// PendingApproval is a queued promotion awaiting an admin decision —
// §9's explicit decision that approval is never automatic.
type PendingApproval struct {
	ID        string
	Learning  domain.Learning
	FromNS    domain.Namespace
	ToNS      domain.Namespace
	CreatedAt time.Time
}

// ApprovalQueue holds promotions that require approval. Approve/Reject
// are the only entry points — nothing in the automated pilot/scene path
// calls them.
type ApprovalQueue struct {
	mu      sync.Mutex
	pending map[string]PendingApproval
}

func NewApprovalQueue() *ApprovalQueue {
	return &ApprovalQueue{pending: map[string]PendingApproval{}}
}

func (q *ApprovalQueue) Enqueue(l domain.Learning, from, to domain.Namespace) PendingApproval {
	q.mu.Lock()
	defer q.mu.Unlock()
	pa := PendingApproval{ID: uuid.New().String(), Learning: l, FromNS: from, ToNS: to, CreatedAt: time.Now()}
	q.pending[pa.ID] = pa
	return pa
}

func (q *ApprovalQueue) PendingApprovals() []PendingApproval {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]PendingApproval, 0, len(q.pending))
	for _, pa := range q.pending {
		out = append(out, pa)
	}
	return out
}

func (q *ApprovalQueue) Take(id string) (PendingApproval, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pa, ok := q.pending[id]
	if ok {
		delete(q.pending, id)
	}
	return pa, ok
}

// MaybePromote attempts auto-promotion of one learning per §4.3. When
// the target rule requires approval, the promotion is queued instead of
// applied and (nil, nil) is returned; the queued PendingApproval is
// reachable through queue.PendingApprovals().
func MaybePromote(ctx context.Context, store Store, queue *ApprovalQueue, l domain.Learning) (*domain.Learning, error) {
	srcNS, err := domain.Parse(l.Namespace)
	if err != nil {
		return nil, err
	}
	toLevel, ok := nextLevelUp(srcNS.Level)
	if !ok {
		return nil, nil // already at PLATFORM, nothing higher to promote to
	}
	rule, ok := PromotionTable[[2]domain.NamespaceLevel{srcNS.Level, toLevel}]
	if !ok {
		return nil, nil
	}
	if l.Validations < rule.MinValidations || l.Confidence < rule.MinConfidence {
		return nil, nil
	}

	toNS := srcNS
	toNS.Level = toLevel
	switch toLevel {
	case domain.LevelOrg:
		toNS.ActorID, toNS.SessionID = "", ""
	case domain.LevelPlatform:
		toNS.OrgID, toNS.ActorID, toNS.SessionID = "", "", ""
	}

	if rule.RequiresApproval {
		queue.Enqueue(l, srcNS, toNS)
		return nil, nil
	}

	promoted := l
	promoted.ID = uuid.New().String()
	promoted.Namespace = toNS.Build()
	promoted.PromotedFrom = l.ID
	promoted.PromotionHistory = append(append([]domain.PromotionEntry{}, l.PromotionHistory...), domain.PromotionEntry{
		FromNamespace: srcNS.Build(), ToNamespace: toNS.Build(), PromotedAt: time.Now(),
	})
	promoted.CreatedAt = time.Now()
	promoted.UpdatedAt = promoted.CreatedAt

	if _, err := store.Create(ctx, promoted); err != nil {
		return nil, err
	}
	return &promoted, nil
}
