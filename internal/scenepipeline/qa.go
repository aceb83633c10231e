package scenepipeline

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/productionorchestrator/orchestrator/internal/domain"
)

// QAVisualAnalysis is the vision-model hook's output, treated as a
// black box per §4.5 step 3 — this package never calls a real vision
// model itself, only scores whatever analysis it is handed.
type QAVisualAnalysis struct {
	VisualAccuracy    float64
	StyleConsistency  float64
	TechnicalQuality  float64
	NarrativeFit      float64
}

// VisionHook optionally supplies a QAVisualAnalysis for an asset. When
// nil, scoreAsset falls back to a deterministic heuristic derived from
// the asset's own metadata, keeping scoring a pure function either way.
type VisionHook func(ctx context.Context, asset domain.MediaAsset) (QAVisualAnalysis, error)

// QAScore is the four-axis breakdown plus the aggregate used for
// ranking, each axis 0-100.
type QAScore struct {
	VisualAccuracy   float64
	StyleConsistency float64
	TechnicalQuality float64
	NarrativeFit     float64
	Overall          float64
}

func (s QAScore) computeOverall() float64 {
	return (s.VisualAccuracy + s.StyleConsistency + s.TechnicalQuality + s.NarrativeFit) / 4
}

// scoreAsset scores one variation. With a VisionHook it scores the
// hook's analysis; otherwise it derives a deterministic score from the
// asset's metadata so that scoring never depends on wall-clock or
// randomness, and resumed runs reproduce identical scores.
func scoreAsset(ctx context.Context, asset domain.MediaAsset, hook VisionHook) (QAScore, error) {
	if hook != nil {
		analysis, err := hook(ctx, asset)
		if err != nil {
			return QAScore{}, err
		}
		s := QAScore{
			VisualAccuracy:   analysis.VisualAccuracy,
			StyleConsistency: analysis.StyleConsistency,
			TechnicalQuality: analysis.TechnicalQuality,
			NarrativeFit:     analysis.NarrativeFit,
		}
		s.Overall = s.computeOverall()
		return s, nil
	}
	return heuristicScore(asset), nil
}

// heuristicScore derives the four axes from asset metadata alone: a
// seeded hash spreads scores across a plausible range, then duration
// and resolution nudge technical quality, matching the spirit of the
// mock provider's own deterministic-seed idiom.
func heuristicScore(asset domain.MediaAsset) QAScore {
	h := sha256.Sum256([]byte(asset.ID.String()))
	base := func(offset int) float64 {
		v := binary.BigEndian.Uint16(h[offset : offset+2])
		return 55 + float64(v%40) // spread 55-94
	}
	s := QAScore{
		VisualAccuracy:   base(0),
		StyleConsistency: base(2),
		TechnicalQuality: base(4),
		NarrativeFit:     base(6),
	}
	if asset.DurationSec > 0 && asset.DurationSec < 1.0 {
		s.TechnicalQuality -= 20 // implausibly short clips score poorly
	}
	if w, h2, ok := assetDims(asset); ok && (w < 240 || h2 < 240) {
		s.TechnicalQuality -= 15
	}
	s.Overall = s.computeOverall()
	return s
}

func assetDims(asset domain.MediaAsset) (int, int, bool) {
	wRaw, wOK := asset.Metadata["width"]
	hRaw, hOK := asset.Metadata["height"]
	if !wOK || !hOK {
		return 0, 0, false
	}
	w, ok1 := toInt(wRaw)
	h, ok2 := toInt(hRaw)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return w, h, true
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
