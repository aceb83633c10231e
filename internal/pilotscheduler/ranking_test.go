package pilotscheduler

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/productionorchestrator/orchestrator/internal/domain"
)

func scored(status domain.PilotStatus, critic, qa, cost float64) domain.Pilot {
	c, q := critic, qa
	return domain.Pilot{ID: uuid.New(), Status: status, CriticScore: &c, AvgQAScore: &q, ActualCostUSD: cost}
}

func TestRankPilotsApprovedOutranksRejected(t *testing.T) {
	low := scored(domain.PilotApproved, 10, 10, 1)
	high := scored(domain.PilotRejected, 99, 99, 1)
	winner := RankPilots([]domain.Pilot{low, high})
	assert.Equal(t, low.ID, winner.ID)
}

func TestRankPilotsHighestScoreWins(t *testing.T) {
	a := scored(domain.PilotApproved, 80, 80, 5)
	b := scored(domain.PilotApproved, 90, 90, 5)
	winner := RankPilots([]domain.Pilot{a, b})
	assert.Equal(t, b.ID, winner.ID)
}

func TestRankPilotsTiesBrokenByLowestCost(t *testing.T) {
	a := scored(domain.PilotApproved, 80, 80, 10)
	b := scored(domain.PilotApproved, 80, 80, 3)
	winner := RankPilots([]domain.Pilot{a, b})
	assert.Equal(t, b.ID, winner.ID)
}

func TestRankPilotsNilWhenNoneApproved(t *testing.T) {
	a := scored(domain.PilotRejected, 80, 80, 1)
	b := scored(domain.PilotCancelled, 90, 90, 1)
	winner := RankPilots([]domain.Pilot{a, b})
	assert.Nil(t, winner)
}
