package pilotscheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/productionorchestrator/orchestrator/internal/domain"
	"github.com/productionorchestrator/orchestrator/internal/scenepipeline"
)

func outcomeWithScore(overall float64) scenepipeline.SceneOutcome {
	score := scenepipeline.QAScore{Overall: overall}
	return scenepipeline.SceneOutcome{WinnerScore: &score, Winner: &domain.MediaAsset{}}
}

func TestHeuristicEvaluatorApprovesAboveThreshold(t *testing.T) {
	pilot := domain.Pilot{Tier: domain.TierStatic} // threshold 40
	outcomes := []scenepipeline.SceneOutcome{outcomeWithScore(70), outcomeWithScore(80)}

	eval := HeuristicEvaluator{}.Evaluate(context.Background(), domain.Brief{}, pilot, outcomes)

	assert.True(t, eval.Approved)
	assert.InDelta(t, 75.0, eval.AvgQAScore, 0.001)
}

func TestHeuristicEvaluatorRejectsBelowThreshold(t *testing.T) {
	pilot := domain.Pilot{Tier: domain.TierPhotorealistic} // threshold 65
	outcomes := []scenepipeline.SceneOutcome{outcomeWithScore(40), outcomeWithScore(45)}

	eval := HeuristicEvaluator{}.Evaluate(context.Background(), domain.Brief{}, pilot, outcomes)

	assert.False(t, eval.Approved)
	assert.NotEmpty(t, eval.Reasoning)
}

func TestHeuristicEvaluatorRejectsWhenTooManyScenesFail(t *testing.T) {
	pilot := domain.Pilot{Tier: domain.TierStatic}
	outcomes := []scenepipeline.SceneOutcome{
		outcomeWithScore(90),
		{Failed: true},
		{Failed: true},
	}

	eval := HeuristicEvaluator{}.Evaluate(context.Background(), domain.Brief{}, pilot, outcomes)

	assert.False(t, eval.Approved)
}

func TestHeuristicEvaluatorNoScenesWon(t *testing.T) {
	pilot := domain.Pilot{Tier: domain.TierStatic}
	outcomes := []scenepipeline.SceneOutcome{{Failed: true}}

	eval := HeuristicEvaluator{}.Evaluate(context.Background(), domain.Brief{}, pilot, outcomes)

	assert.False(t, eval.Approved)
	assert.Equal(t, 0.0, eval.AvgQAScore)
}
