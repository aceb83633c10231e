// Package domain holds the orchestrator's entity types: Brief,
// ProductionTier, Pilot, Scene, MediaAsset, EditDecision/EditDecisionList,
// Learning, Namespace, and BudgetLedger entries.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SeedAssetRole describes what a Brief's seed asset is for.
type SeedAssetRole string

const (
	SeedAssetRoleStyleReference SeedAssetRole = "style_reference"
	SeedAssetRoleFigure         SeedAssetRole = "figure"
	SeedAssetRoleDocument       SeedAssetRole = "document"
)

// SeedAsset is an optional input attached to a Brief.
type SeedAsset struct {
	Path string        `json:"path"`
	Role SeedAssetRole `json:"role"`
}

// Brief is free-form concept text plus target duration and budget.
// Immutable after submission — callers must not mutate a Brief once it
// has been handed to the Pilot Scheduler.
type Brief struct {
	ID             uuid.UUID   `json:"id"`
	Concept        string      `json:"concept"`
	TargetDuration float64     `json:"target_duration_sec"`
	BudgetUSD      float64     `json:"budget_usd"`
	SeedAssets     []SeedAsset `json:"seed_assets,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Validate enforces the Brief's input invariants (INPUT_INVALID if
// violated).
func (b *Brief) Validate() error {
	if b.Concept == "" {
		return errInvalid("concept must not be empty")
	}
	if b.TargetDuration <= 0 {
		return errInvalid("target_duration_sec must be positive")
	}
	if b.BudgetUSD <= 0 {
		return errInvalid("budget_usd must be positive")
	}
	return nil
}
