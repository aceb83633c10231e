package pilotscheduler

import (
	"context"
	"fmt"

	"github.com/productionorchestrator/orchestrator/internal/domain"
	"github.com/productionorchestrator/orchestrator/internal/scenepipeline"
)

// Evaluation is the evaluator's verdict on one completed pilot.
type Evaluation struct {
	CriticScore float64
	AvgQAScore  float64
	Approved    bool
	Reasoning   string
}

// Evaluator compares a pilot's Scene Pipeline outcomes against the
// Brief and the pilot's own promises, producing the critic/QA scores
// the Pilot Scheduler ranks on.
type Evaluator interface {
	Evaluate(ctx context.Context, brief domain.Brief, pilot domain.Pilot, outcomes []scenepipeline.SceneOutcome) Evaluation
}

// HeuristicEvaluator is the deterministic fallback critic: no LLM call,
// just the scene pipeline's own QA scores rolled up with a penalty for
// scenes that failed to clear their pass threshold. A real deployment
// would swap this for an LLM-backed critic that reads the Brief's
// concept text; the interface is the seam.
type HeuristicEvaluator struct{}

func (HeuristicEvaluator) Evaluate(ctx context.Context, brief domain.Brief, pilot domain.Pilot, outcomes []scenepipeline.SceneOutcome) Evaluation {
	if len(outcomes) == 0 {
		return Evaluation{Reasoning: "no scenes produced"}
	}

	var sumQA float64
	var wonCount, failedCount int
	for _, o := range outcomes {
		if o.Failed || o.WinnerScore == nil {
			failedCount++
			continue
		}
		wonCount++
		sumQA += o.WinnerScore.Overall
	}

	if wonCount == 0 {
		return Evaluation{Reasoning: "every scene failed to clear its pass threshold"}
	}

	avgQA := sumQA / float64(wonCount)
	failureRatio := float64(failedCount) / float64(len(outcomes))

	// The critic score mirrors avgQA but is discounted by the share of
	// scenes that had to be abandoned — a pilot that "passes" by
	// dropping a third of its scenes isn't a coherent production.
	critic := avgQA * (1 - failureRatio)

	threshold := pilot.Tier.Profile().PassThresholdScore
	approved := failureRatio < 0.5 && avgQA >= threshold

	reasoning := fmt.Sprintf("avg_qa=%.1f critic=%.1f failure_ratio=%.2f threshold=%.1f", avgQA, critic, failureRatio, threshold)
	if !approved {
		if failureRatio >= 0.5 {
			reasoning = "too many scenes failed: " + reasoning
		} else {
			reasoning = "average QA below tier threshold: " + reasoning
		}
	}

	return Evaluation{CriticScore: critic, AvgQAScore: avgQA, Approved: approved, Reasoning: reasoning}
}
