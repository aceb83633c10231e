// Package pilotscheduler turns a single Brief into several competing
// pilot plans, runs their Scene Pipelines with bounded parallelism,
// evaluates each against the Brief, and ranks them. Grounded on the
// teacher's internal/worker/worker.go queue-draining/admission loop
// (processQueue's "one more job admitted as a slot frees up" shape),
// generalized from a Redis-backed job queue to an in-process weighted
// semaphore bounding concurrently-running pilots.
package pilotscheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/productionorchestrator/orchestrator/internal/budget"
	"github.com/productionorchestrator/orchestrator/internal/domain"
	"github.com/productionorchestrator/orchestrator/internal/figuregraph"
	"github.com/productionorchestrator/orchestrator/internal/journal"
	"github.com/productionorchestrator/orchestrator/internal/learnings"
	"github.com/productionorchestrator/orchestrator/internal/scenepipeline"
	"github.com/productionorchestrator/orchestrator/internal/telemetry"
)

// Config bounds the scheduler's parallelism and reserve/termination
// policy.
type Config struct {
	MaxConcurrentPilots       int
	ReserveFraction           float64
	EarlyTermination          bool
	EarlyTerminationThreshold float64 // RankScore threshold; only consulted when EarlyTermination is true
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrentPilots <= 0 {
		c.MaxConcurrentPilots = 2
	}
	return c
}

// ScenesFunc supplies the scenes a pilot should produce — typically a
// scriptwriting step upstream of the Scene Pipeline that this package
// does not itself own.
type ScenesFunc func(pilot domain.Pilot) []domain.Scene

// Scheduler wires the shared singletons every pilot run consults.
type Scheduler struct {
	pipeline  *scenepipeline.Pipeline
	tracker   *budget.Tracker
	journal   *journal.Manager
	evaluator Evaluator
	store     learnings.Store
	cfg       Config
}

func New(pipeline *scenepipeline.Pipeline, tracker *budget.Tracker, mgr *journal.Manager, evaluator Evaluator, store learnings.Store, cfg Config) *Scheduler {
	if evaluator == nil {
		evaluator = HeuristicEvaluator{}
	}
	return &Scheduler{pipeline: pipeline, tracker: tracker, journal: mgr, evaluator: evaluator, store: store, cfg: cfg.withDefaults()}
}

// Result is the scheduler's output: every pilot (including rejected
// and cancelled ones, kept for audit) plus the winner, if any.
type Result struct {
	Pilots       []domain.Pilot
	Winner       *domain.Pilot
	SceneOutcome map[string][]scenepipeline.SceneOutcome // keyed by pilot ID string
}

// Run generates pilot plans for the given tiers, executes each pilot's
// Scene Pipeline with bounded parallelism, evaluates and ranks them,
// and returns the winner. On crash-resume, callers should first inspect
// the Run Journal's existing pilots[] for terminal statuses and pass
// only the remaining tiers back in — Run itself always starts a fresh
// generation, it does not merge with a prior partial run.
func (s *Scheduler) Run(ctx context.Context, runID string, brief domain.Brief, tiers []domain.ProductionTier, scenesFor ScenesFunc, providerID string, rc learnings.RetrievalContext, figures *figuregraph.Cache) (*Result, error) {
	pilots := GeneratePilots(runID, brief, tiers, s.cfg.ReserveFraction)
	reserveFraction := s.cfg.ReserveFraction
	if reserveFraction < 0 {
		reserveFraction = 0
	}
	if reserveFraction > 1 {
		reserveFraction = 1
	}
	s.tracker.Allocate(runID, brief.BudgetUSD*(1-reserveFraction))
	if s.journal != nil {
		for _, p := range pilots {
			_ = s.journal.AddPilot(ctx, runID, p)
		}
	}

	sem := semaphore.NewWeighted(int64(s.cfg.MaxConcurrentPilots))
	outcomesByPilot := make([][]scenepipeline.SceneOutcome, len(pilots))

	var mu sync.Mutex
	terminated := false
	cancels := make([]context.CancelFunc, len(pilots))

	var wg errgroup.Group
	for i := range pilots {
		i := i
		wg.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				s.cancelPilot(ctx, runID, &pilots[i], "cancelled before admission")
				return nil
			}
			defer sem.Release(1)

			mu.Lock()
			if terminated {
				mu.Unlock()
				s.cancelPilot(ctx, runID, &pilots[i], "cancelled: a higher-scoring pilot already cleared the early-termination threshold")
				return nil
			}
			pctx, cancel := context.WithCancel(ctx)
			cancels[i] = cancel
			mu.Unlock()
			defer cancel()

			s.runOnePilot(pctx, runID, brief, &pilots[i], scenesFor, providerID, rc, figures, &outcomesByPilot[i])

			if pctx.Err() != nil && ctx.Err() == nil {
				// individually cancelled by early termination above
				pilots[i].Status = domain.PilotCancelled
				pilots[i].RejectReason = "cancelled: early termination"
				if s.journal != nil {
					_ = s.journal.UpdatePilot(ctx, runID, pilots[i])
				}
				return nil
			}

			if s.cfg.EarlyTermination && pilots[i].Status == domain.PilotApproved && pilots[i].RankScore() >= s.cfg.EarlyTerminationThreshold {
				mu.Lock()
				terminated = true
				for j, c := range cancels {
					if j != i && c != nil {
						c()
					}
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = wg.Wait()

	outcomeMap := make(map[string][]scenepipeline.SceneOutcome, len(pilots))
	for i, p := range pilots {
		outcomeMap[p.ID.String()] = outcomesByPilot[i]
	}

	return &Result{Pilots: pilots, Winner: RankPilots(pilots), SceneOutcome: outcomeMap}, nil
}

func (s *Scheduler) cancelPilot(ctx context.Context, runID string, pilot *domain.Pilot, reason string) {
	pilot.Status = domain.PilotCancelled
	pilot.RejectReason = reason
	if s.journal != nil {
		_ = s.journal.UpdatePilot(ctx, runID, *pilot)
	}
}

func (s *Scheduler) runOnePilot(ctx context.Context, runID string, brief domain.Brief, pilot *domain.Pilot, scenesFor ScenesFunc, providerID string, rc learnings.RetrievalContext, figures *figuregraph.Cache, outcomesOut *[]scenepipeline.SceneOutcome) {
	log := telemetry.ForPilot(runID, pilot.ID.String())
	pilot.Status = domain.PilotRunning
	if s.journal != nil {
		_ = s.journal.UpdatePilot(ctx, runID, *pilot)
	}

	scenes := scenesFor(*pilot)
	profile := pilot.Tier.Profile()
	estCost := estimatedCostPerVariation(*pilot, brief)

	outcomes := s.pipeline.RunPilotScenes(ctx, runID, *pilot, scenes, providerID, pilot.VariationsPerScene, profile.PassThresholdScore, rc, figures, estCost)
	*outcomesOut = outcomes

	if s.journal != nil {
		for _, o := range outcomes {
			if o.Winner != nil {
				_ = s.journal.AddAsset(ctx, runID, *o.Winner)
			}
		}
	}

	if ctx.Err() != nil {
		return // cancelled mid-run; caller distinguishes early-termination vs outer cancellation
	}

	pilot.ActualCostUSD = sumActualCost(outcomes)
	eval := s.evaluator.Evaluate(ctx, brief, *pilot, outcomes)
	criticScore, avgQA := eval.CriticScore, eval.AvgQAScore
	pilot.CriticScore = &criticScore
	pilot.AvgQAScore = &avgQA
	approved := eval.Approved
	pilot.Approved = &approved
	pilot.Reasoning = eval.Reasoning

	now := time.Now()
	pilot.CompletedAt = &now
	if approved {
		pilot.Status = domain.PilotApproved
	} else {
		pilot.Status = domain.PilotRejected
		pilot.RejectReason = eval.Reasoning
	}

	if s.store != nil {
		s.recordOutcome(ctx, providerID, rc, *pilot, eval)
	}

	if s.journal != nil {
		_ = s.journal.UpdatePilot(ctx, runID, *pilot)
	}
	log.Info().Str("status", string(pilot.Status)).Float64("rank_score", pilot.RankScore()).Msg("pilot evaluated")
}

// recordOutcome writes the pilot's evaluation into the Learnings Store
// as a new record scoped to the narrowest namespace rc identifies, then
// validates it immediately against its own approval outcome, so the
// record's validation count/confidence is seeded from the pilot run that
// produced the learning, not left at zero. recordOutcome does not call
// learnings.MaybePromote, so no promotion is attempted here.
func (s *Scheduler) recordOutcome(ctx context.Context, providerID string, rc learnings.RetrievalContext, pilot domain.Pilot, eval Evaluation) {
	ns := writeNamespace(providerID, rc)
	content := fmt.Sprintf("tier=%s variations=%d avg_qa=%.1f critic=%.1f: %s",
		pilot.Tier, pilot.VariationsPerScene, eval.AvgQAScore, eval.CriticScore, eval.Reasoning)

	id, err := s.store.Create(ctx, domain.Learning{
		Namespace:     ns.Build(),
		Content:       content,
		TextForSearch: content,
		CreatedBy:     "pilot-scheduler",
		Tags:          []string{string(pilot.Tier), providerID},
	})
	if err != nil {
		return
	}
	_ = s.store.Validate(ctx, ns.Build(), id, eval.Approved)
}

// writeNamespace picks the narrowest namespace rc has enough identity to
// write to, per §4.3's access-control rules — session if a session is
// present, falling back through user/org to the shared platform bucket.
func writeNamespace(providerID string, rc learnings.RetrievalContext) domain.Namespace {
	suffix := "providers/" + providerID
	switch {
	case rc.OrgID != "" && rc.ActorID != "" && rc.SessionID != "":
		return domain.Namespace{Level: domain.LevelSession, OrgID: rc.OrgID, ActorID: rc.ActorID, SessionID: rc.SessionID, Suffix: suffix}
	case rc.OrgID != "" && rc.ActorID != "":
		return domain.Namespace{Level: domain.LevelUser, OrgID: rc.OrgID, ActorID: rc.ActorID, Suffix: suffix}
	case rc.OrgID != "":
		return domain.Namespace{Level: domain.LevelOrg, OrgID: rc.OrgID, Suffix: suffix}
	default:
		return domain.Namespace{Level: domain.LevelPlatform, Suffix: suffix}
	}
}

// sumActualCost totals the committed cost of every variation a pilot
// generated, not just the winners — every variation that reached a
// provider incurred a committed Budget Ledger entry.
func sumActualCost(outcomes []scenepipeline.SceneOutcome) float64 {
	var total float64
	for _, o := range outcomes {
		for _, v := range o.Variations {
			if v.Asset.ID != uuid.Nil {
				total += v.Asset.CostUSD
			}
		}
		if o.AudioAsset != nil {
			total += o.AudioAsset.CostUSD
		}
	}
	return total
}
