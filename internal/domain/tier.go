package domain

// ProductionTier is a closed set of cost/quality tiers. Each tier
// carries a cost model and recommended defaults for scene count,
// variation count, and preferred video provider.
type ProductionTier string

const (
	TierStatic         ProductionTier = "STATIC"
	TierAnimated       ProductionTier = "ANIMATED"
	TierPhotorealistic ProductionTier = "PHOTOREALISTIC"
)

// TierProfile holds a tier's cost model and recommended defaults.
type TierProfile struct {
	CostPerSecondUSD        float64
	DefaultScenes           int
	DefaultVariations       int
	PreferredVideoProvider  string
	PassThresholdScore      float64 // QA pass threshold, 0-100
}

// TierProfiles is the closed lookup table for every ProductionTier.
var TierProfiles = map[ProductionTier]TierProfile{
	TierStatic: {
		CostPerSecondUSD:       0.00,
		DefaultScenes:          1,
		DefaultVariations:      1,
		PreferredVideoProvider: "mock",
		PassThresholdScore:     40,
	},
	TierAnimated: {
		CostPerSecondUSD:       0.35,
		DefaultScenes:          3,
		DefaultVariations:      2,
		PreferredVideoProvider: "xaivideo",
		PassThresholdScore:     55,
	},
	TierPhotorealistic: {
		CostPerSecondUSD:       0.90,
		DefaultScenes:          4,
		DefaultVariations:      3,
		PreferredVideoProvider: "xaivideo",
		PassThresholdScore:     65,
	},
}

// Profile returns the tier's profile, or the STATIC profile if the tier
// is unrecognized (callers should validate tiers at ingestion).
func (t ProductionTier) Profile() TierProfile {
	if p, ok := TierProfiles[t]; ok {
		return p
	}
	return TierProfiles[TierStatic]
}
