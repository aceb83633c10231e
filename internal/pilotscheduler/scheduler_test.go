package pilotscheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productionorchestrator/orchestrator/internal/budget"
	"github.com/productionorchestrator/orchestrator/internal/domain"
	"github.com/productionorchestrator/orchestrator/internal/jobqueue/inmemqueue"
	"github.com/productionorchestrator/orchestrator/internal/journal"
	"github.com/productionorchestrator/orchestrator/internal/learnings"
	"github.com/productionorchestrator/orchestrator/internal/learnings/localstore"
	"github.com/productionorchestrator/orchestrator/internal/providers"
	"github.com/productionorchestrator/orchestrator/internal/providers/mock"
	"github.com/productionorchestrator/orchestrator/internal/scenepipeline"
)

func newTestScheduler(t *testing.T, cfg Config) (*Scheduler, *journal.Manager) {
	t.Helper()
	registry := providers.New(mock.NewVideo(), mock.NewAudio(), mock.NewImage(), mock.NewMusic())
	tracker := budget.New(1.0)
	queue := inmemqueue.New(2)
	pipelineCfg := scenepipeline.Config{MaxParallelScenes: 2, PollMinInterval: time.Millisecond, PollMaxDuration: time.Second}
	pipeline := scenepipeline.New(registry, tracker, queue, nil, pipelineCfg)
	mgr := journal.NewManager(t.TempDir())
	return New(pipeline, tracker, mgr, HeuristicEvaluator{}, nil, cfg), mgr
}

func twoScenes(pilot domain.Pilot) []domain.Scene {
	return []domain.Scene{
		{ID: uuid.New(), PilotID: pilot.ID, Ordinal: 0, Title: "open", Description: "a logo reveal with bold typography", TargetDuration: 5},
		{ID: uuid.New(), PilotID: pilot.ID, Ordinal: 1, Title: "close", Description: "a fade to the product name", TargetDuration: 5},
	}
}

func TestSchedulerRunProducesTerminalStatusForEveryPilot(t *testing.T) {
	s, mgr := newTestScheduler(t, Config{MaxConcurrentPilots: 2})
	runID := "run-sched-1"
	_, err := mgr.Begin(context.Background(), runID, "a product launch trailer", 50, "NONE")
	require.NoError(t, err)

	brief := domain.Brief{Concept: "a product launch trailer", TargetDuration: 10, BudgetUSD: 50}
	result, err := s.Run(context.Background(), runID, brief, []domain.ProductionTier{domain.TierStatic, domain.TierAnimated}, twoScenes, "mock", learnings.RetrievalContext{}, nil)

	require.NoError(t, err)
	require.Len(t, result.Pilots, 2)
	for _, p := range result.Pilots {
		assert.True(t, p.Status.Terminal(), "expected terminal status, got %s", p.Status)
		assert.NotNil(t, p.CriticScore)
		assert.NotNil(t, p.AvgQAScore)
	}
	if result.Winner != nil {
		assert.Equal(t, domain.PilotApproved, result.Winner.Status)
	}

	rec, err := mgr.Get(context.Background(), runID)
	require.NoError(t, err)
	assert.Len(t, rec.Pilots, 2)
}

func TestSchedulerWithOneSlotBringsEveryPilotToTerminalStatus(t *testing.T) {
	s, mgr := newTestScheduler(t, Config{MaxConcurrentPilots: 1})
	runID := "run-sched-2"
	_, err := mgr.Begin(context.Background(), runID, "x", 50, "NONE")
	require.NoError(t, err)

	brief := domain.Brief{Concept: "x", TargetDuration: 10, BudgetUSD: 50}
	result, err := s.Run(context.Background(), runID, brief, []domain.ProductionTier{domain.TierStatic, domain.TierAnimated, domain.TierPhotorealistic}, twoScenes, "mock", learnings.RetrievalContext{}, nil)

	require.NoError(t, err)
	require.Len(t, result.Pilots, 3)
	for _, p := range result.Pilots {
		assert.True(t, p.Status.Terminal())
	}
}

func TestSchedulerEarlyTerminationCancelsRemainingPilots(t *testing.T) {
	s, mgr := newTestScheduler(t, Config{MaxConcurrentPilots: 1, EarlyTermination: true, EarlyTerminationThreshold: 0})
	runID := "run-sched-3"
	_, err := mgr.Begin(context.Background(), runID, "x", 50, "NONE")
	require.NoError(t, err)

	brief := domain.Brief{Concept: "x", TargetDuration: 10, BudgetUSD: 50}
	result, err := s.Run(context.Background(), runID, brief, []domain.ProductionTier{domain.TierStatic, domain.TierAnimated, domain.TierPhotorealistic}, twoScenes, "mock", learnings.RetrievalContext{}, nil)

	require.NoError(t, err)
	var cancelledCount int
	for _, p := range result.Pilots {
		if p.Status == domain.PilotCancelled {
			cancelledCount++
		}
	}
	// single concurrency means only one pilot ever starts before the
	// first completion; a zero score threshold guarantees that first
	// completion (whichever pilot wins the race) approves and triggers
	// termination of both remaining, not-yet-started pilots.
	assert.Equal(t, 2, cancelledCount)
	require.NotNil(t, result.Winner)
	assert.Equal(t, domain.PilotApproved, result.Winner.Status)
}

func TestSchedulerRecordsPilotOutcomesToLearningsStore(t *testing.T) {
	registry := providers.New(mock.NewVideo(), mock.NewAudio(), mock.NewImage(), mock.NewMusic())
	tracker := budget.New(1.0)
	queue := inmemqueue.New(2)
	pipeline := scenepipeline.New(registry, tracker, queue, nil, scenepipeline.Config{MaxParallelScenes: 2, PollMinInterval: time.Millisecond, PollMaxDuration: time.Second})
	mgr := journal.NewManager(t.TempDir())
	store, err := localstore.New(t.TempDir()+"/learnings.db", t.TempDir())
	require.NoError(t, err)

	s := New(pipeline, tracker, mgr, HeuristicEvaluator{}, store, Config{MaxConcurrentPilots: 2})
	runID := "run-sched-learnings"
	_, err = mgr.Begin(context.Background(), runID, "x", 50, "NONE")
	require.NoError(t, err)

	rc := learnings.RetrievalContext{OrgID: "acme", ActorID: "alice"}
	brief := domain.Brief{Concept: "x", TargetDuration: 10, BudgetUSD: 50}
	_, err = s.Run(context.Background(), runID, brief, []domain.ProductionTier{domain.TierStatic, domain.TierAnimated}, twoScenes, "mock", rc, nil)
	require.NoError(t, err)

	ns := domain.Namespace{Level: domain.LevelUser, OrgID: "acme", ActorID: "alice", Suffix: "providers/mock"}
	records, err := store.List(context.Background(), ns.Build(), 10, 0, nil)
	require.NoError(t, err)
	require.NotEmpty(t, records, "expected at least one learning recorded from pilot evaluation")
	for _, l := range records {
		assert.Equal(t, 1, l.Validations)
	}
}
