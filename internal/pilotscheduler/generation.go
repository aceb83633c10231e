package pilotscheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/productionorchestrator/orchestrator/internal/domain"
)

// minTierWeight keeps a zero-cost tier (STATIC) from being starved out
// of the proportional split entirely — it still gets a thin allocation
// to cover incidental provider calls (e.g. a non-mock image provider).
const minTierWeight = 0.05

// GeneratePilots builds K pilot plans spanning tiers, per §4.6: budget
// allocation is proportional to each tier's estimated cost, constrained
// so the allocations never draw into the reserve.
func GeneratePilots(runID string, brief domain.Brief, tiers []domain.ProductionTier, reserveFraction float64) []domain.Pilot {
	if len(tiers) == 0 {
		tiers = []domain.ProductionTier{domain.TierStatic, domain.TierAnimated}
	}
	if reserveFraction < 0 {
		reserveFraction = 0
	}
	if reserveFraction > 1 {
		reserveFraction = 1
	}

	weights := make([]float64, len(tiers))
	var totalWeight float64
	for i, tier := range tiers {
		profile := tier.Profile()
		w := profile.CostPerSecondUSD * brief.TargetDuration * float64(profile.DefaultVariations)
		if w < minTierWeight {
			w = minTierWeight
		}
		weights[i] = w
		totalWeight += w
	}

	allocatable := brief.BudgetUSD * (1 - reserveFraction)
	now := time.Now()
	pilots := make([]domain.Pilot, len(tiers))
	for i, tier := range tiers {
		profile := tier.Profile()
		share := allocatable * weights[i] / totalWeight
		pilots[i] = domain.Pilot{
			ID:                 uuid.New(),
			RunID:              runID,
			Tier:               tier,
			AllocatedBudget:    share,
			TargetScenes:       profile.DefaultScenes,
			VariationsPerScene: profile.DefaultVariations,
			Status:             domain.PilotPlanned,
			CreatedAt:          now,
		}
	}
	return pilots
}

// estimatedCostPerVariation approximates the cost of one video
// variation for a pilot, used to size Budget Tracker reservations
// before any provider quote is available. The scene pipeline's own
// per-variation estimate (via the provider's EstimateCost) supersedes
// this once a real prompt and duration are known; this value only
// needs to be close enough to reserve a sane slice of the pilot's
// allocation.
func estimatedCostPerVariation(pilot domain.Pilot, brief domain.Brief) float64 {
	if pilot.TargetScenes <= 0 {
		return 0
	}
	sceneDuration := brief.TargetDuration / float64(pilot.TargetScenes)
	return pilot.Tier.Profile().CostPerSecondUSD * sceneDuration
}
