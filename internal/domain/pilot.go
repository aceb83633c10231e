package domain

import (
	"time"

	"github.com/google/uuid"
)

// PilotStatus is a closed set. PLANNED -> RUNNING -> {APPROVED, REJECTED,
// CANCELLED}. Terminal statuses (everything but PLANNED/RUNNING) are
// final — no further mutation is permitted.
type PilotStatus string

const (
	PilotPlanned   PilotStatus = "PLANNED"
	PilotRunning   PilotStatus = "RUNNING"
	PilotApproved  PilotStatus = "APPROVED"
	PilotRejected  PilotStatus = "REJECTED"
	PilotCancelled PilotStatus = "CANCELLED"
)

func (s PilotStatus) Terminal() bool {
	switch s {
	case PilotApproved, PilotRejected, PilotCancelled:
		return true
	default:
		return false
	}
}

// Pilot is one competing production plan.
type Pilot struct {
	ID                uuid.UUID      `json:"id"`
	RunID             string         `json:"run_id"`
	Tier              ProductionTier `json:"tier"`
	AllocatedBudget   float64        `json:"allocated_budget_usd"`
	TargetScenes      int            `json:"target_scenes"`
	VariationsPerScene int           `json:"variations_per_scene"`
	Status            PilotStatus    `json:"status"`
	CriticScore        *float64      `json:"critic_score,omitempty"`
	AvgQAScore          *float64     `json:"avg_qa_score,omitempty"`
	Approved            *bool        `json:"approved,omitempty"`
	Reasoning            string      `json:"reasoning,omitempty"`
	RejectReason         string      `json:"reject_reason,omitempty"`
	ActualCostUSD        float64     `json:"actual_cost_usd"`
	CreatedAt            time.Time   `json:"created_at"`
	CompletedAt          *time.Time  `json:"completed_at,omitempty"`
}

// RankScore implements the §4.6 ranking key: 0.6*critic + 0.4*avg_qa.
// Callers must check Approved/Status before comparing across pilots —
// approved pilots always outrank rejected ones regardless of score.
func (p *Pilot) RankScore() float64 {
	var critic, qa float64
	if p.CriticScore != nil {
		critic = *p.CriticScore
	}
	if p.AvgQAScore != nil {
		qa = *p.AvgQAScore
	}
	return 0.6*critic + 0.4*qa
}

// Scene is one contiguous unit of generation within a pilot.
type Scene struct {
	ID              uuid.UUID `json:"id"`
	PilotID         uuid.UUID `json:"pilot_id"`
	Ordinal         int       `json:"ordinal"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	TargetDuration  float64   `json:"target_duration_sec"`
	VisualElements  []string  `json:"visual_elements,omitempty"`
	VoiceoverText   string    `json:"voiceover_text,omitempty"`
}

// MediaKind is a closed enum.
type MediaKind string

const (
	MediaVideo MediaKind = "VIDEO"
	MediaAudio MediaKind = "AUDIO"
	MediaImage MediaKind = "IMAGE"
	MediaMusic MediaKind = "MUSIC"
)

// MediaAsset is a generated artifact. Immutable after creation apart
// from QualityScore assignment.
type MediaAsset struct {
	ID           uuid.UUID  `json:"id"`
	Kind         MediaKind  `json:"kind"`
	SceneID      *uuid.UUID `json:"scene_id,omitempty"`
	LocalPath    string     `json:"local_path,omitempty"`
	RemoteURL    string     `json:"remote_url,omitempty"`
	DurationSec  float64    `json:"duration_sec"`
	CostUSD      float64    `json:"cost_usd"`
	ProviderName string     `json:"provider_name"`
	QualityScore *float64   `json:"quality_score,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
