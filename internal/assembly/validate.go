package assembly

import (
	"fmt"

	"github.com/productionorchestrator/orchestrator/internal/domain"
)

// Validate enforces the §4.7 transition rule: a fade is only ever
// allowed as the very first decision's transition_in or the very last
// decision's transition_out. Any other fade is the "mid-video fade
// produces persistent black frames" pitfall and is rejected outright
// rather than silently downgraded.
func Validate(decisions []domain.EditDecision) error {
	last := len(decisions) - 1
	for i, d := range decisions {
		if d.TransitionIn == domain.TransitionFade && i != 0 {
			return fmt.Errorf("decision %d: fade transition_in only valid on the first decision", i)
		}
		if d.TransitionOut == domain.TransitionFade && i != last {
			return fmt.Errorf("decision %d: fade transition_out only valid on the last decision", i)
		}
		if d.InPoint < 0 || d.InPoint > d.OutPoint {
			return fmt.Errorf("decision %d: in_point %.3f must be within [0, out_point %.3f]", i, d.InPoint, d.OutPoint)
		}
	}
	return symmetricDissolves(decisions)
}

// symmetricDissolves enforces that a mid-video cross-dissolve is
// always a matched pair: decision i's transition_out and decision i+1's
// transition_in must agree, since a dissolve is a property of the
// boundary between two clips, not of one clip alone.
func symmetricDissolves(decisions []domain.EditDecision) error {
	for i := 0; i < len(decisions)-1; i++ {
		out := decisions[i].TransitionOut
		in := decisions[i+1].TransitionIn
		if out == domain.TransitionCrossDissolve || in == domain.TransitionCrossDissolve {
			if out != in {
				return fmt.Errorf("boundary %d->%d: cross_dissolve must be symmetric, got transition_out=%s transition_in=%s", i, i+1, out, in)
			}
		}
	}
	return nil
}
