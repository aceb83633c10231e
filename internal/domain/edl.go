package domain

// TransitionKind is the closed transition set EditDecisions may use.
// Fade transitions are only valid at the first/last decision of a
// candidate — see internal/assembly's validation rule, grounded on the
// pack's mid-video-black-frame pitfall.
type TransitionKind string

const (
	TransitionCut           TransitionKind = "cut"
	TransitionFade          TransitionKind = "fade"
	TransitionCrossDissolve TransitionKind = "cross_dissolve"
)

// TextPosition is a closed placement enum for overlay text.
type TextPosition string

const (
	TextPositionTop    TextPosition = "top"
	TextPositionCenter TextPosition = "center"
	TextPositionBottom TextPosition = "bottom"
)

// EditDecision is one clip placement within a candidate EDL.
type EditDecision struct {
	SceneID               string         `json:"scene_id"`
	SelectedVariation     int            `json:"selected_variation"`
	VideoURL              string         `json:"video_url"`
	AudioURL              string         `json:"audio_url,omitempty"`
	InPoint               float64        `json:"in_point"`
	OutPoint              float64        `json:"out_point"`
	TransitionIn          TransitionKind `json:"transition_in"`
	TransitionInDuration  float64        `json:"transition_in_duration"`
	TransitionOut         TransitionKind `json:"transition_out"`
	TransitionOutDuration float64        `json:"transition_out_duration"`
	StartTime             float64        `json:"start_time"`
	Duration              float64        `json:"duration"`
	TextOverlay           string         `json:"text_overlay,omitempty"`
	TextPosition          TextPosition   `json:"text_position,omitempty"`
	TextStyle             string         `json:"text_style,omitempty"`
	TextStartTime         *float64       `json:"text_start_time,omitempty"`
	TextDuration          *float64       `json:"text_duration,omitempty"`
	Notes                 string         `json:"notes,omitempty"`
}

// EditCandidate is one candidate EDL representing a distinct editorial
// style (e.g. "safe", "dynamic", "balanced").
type EditCandidate struct {
	CandidateID       string         `json:"candidate_id"`
	Name              string         `json:"name"`
	Style             string         `json:"style"`
	TotalDuration     float64        `json:"total_duration"`
	EstimatedQuality  float64        `json:"estimated_quality"`
	Description       string         `json:"description"`
	Decisions         []EditDecision `json:"decisions"`
	ContinuityIssues  []string       `json:"continuity_issues,omitempty"`
}

// EditDecisionList is the wire-format document §6 specifies.
type EditDecisionList struct {
	EDLID                  string          `json:"edl_id"`
	ProjectName            string          `json:"project_name"`
	TotalScenes            int             `json:"total_scenes"`
	RecommendedCandidateID string          `json:"recommended_candidate_id"`
	Candidates             []EditCandidate `json:"candidates"`
}

// AudioTrackType is a closed enum for EDL audio tracks.
type AudioTrackType string

const (
	AudioTrackVoiceover AudioTrackType = "VOICEOVER"
	AudioTrackMusic     AudioTrackType = "MUSIC"
	AudioTrackSFX       AudioTrackType = "SFX"
	AudioTrackAmbient   AudioTrackType = "AMBIENT"
)

// DefaultGainDB gives each audio track type's default gain in dB, per
// §4.7 ("per-type default gains").
var DefaultGainDB = map[AudioTrackType]float64{
	AudioTrackVoiceover: 0.0,
	AudioTrackMusic:     -18.0,
	AudioTrackSFX:       -6.0,
	AudioTrackAmbient:   -24.0,
}

// MusicDuckDB is how much MUSIC tracks duck under VOICEOVER when they
// overlap. It is a fixed package constant; no configuration setting
// changes it.
const MusicDuckDB = -12.0
