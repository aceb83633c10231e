package pilotscheduler

import "github.com/productionorchestrator/orchestrator/internal/domain"

// RankPilots implements the §4.6 ranking key: approved pilots always
// outrank rejected/cancelled ones; among approved, highest
// 0.6*critic_score + 0.4*avg_qa, ties broken by lowest actual cost. It
// returns a pointer into pilots (not a copy) so callers can see the
// winner's final Status. Nil means no pilot was approved.
func RankPilots(pilots []domain.Pilot) *domain.Pilot {
	var winner *domain.Pilot
	for i := range pilots {
		p := &pilots[i]
		if p.Status != domain.PilotApproved {
			continue
		}
		if winner == nil {
			winner = p
			continue
		}
		if p.RankScore() > winner.RankScore() {
			winner = p
			continue
		}
		if p.RankScore() == winner.RankScore() && p.ActualCostUSD < winner.ActualCostUSD {
			winner = p
		}
	}
	return winner
}
