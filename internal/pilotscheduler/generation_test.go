package pilotscheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productionorchestrator/orchestrator/internal/domain"
)

func TestGeneratePilotsRespectsReserveFraction(t *testing.T) {
	brief := domain.Brief{Concept: "launch trailer", TargetDuration: 30, BudgetUSD: 100}
	pilots := GeneratePilots("run-1", brief, []domain.ProductionTier{domain.TierStatic, domain.TierAnimated, domain.TierPhotorealistic}, 0.2)

	require.Len(t, pilots, 3)
	var total float64
	for _, p := range pilots {
		assert.Equal(t, domain.PilotPlanned, p.Status)
		assert.Equal(t, "run-1", p.RunID)
		assert.Greater(t, p.AllocatedBudget, 0.0)
		total += p.AllocatedBudget
	}
	assert.LessOrEqual(t, total, brief.BudgetUSD*0.8+0.001)
}

func TestGeneratePilotsWeightsHigherTiersMoreBudget(t *testing.T) {
	brief := domain.Brief{Concept: "x", TargetDuration: 30, BudgetUSD: 100}
	pilots := GeneratePilots("run-2", brief, []domain.ProductionTier{domain.TierStatic, domain.TierPhotorealistic}, 0)

	var staticBudget, photoBudget float64
	for _, p := range pilots {
		switch p.Tier {
		case domain.TierStatic:
			staticBudget = p.AllocatedBudget
		case domain.TierPhotorealistic:
			photoBudget = p.AllocatedBudget
		}
	}
	assert.Greater(t, photoBudget, staticBudget)
}

func TestGeneratePilotsDefaultsTiersWhenNoneGiven(t *testing.T) {
	brief := domain.Brief{Concept: "x", TargetDuration: 10, BudgetUSD: 50}
	pilots := GeneratePilots("run-3", brief, nil, 0.1)
	assert.NotEmpty(t, pilots)
}
