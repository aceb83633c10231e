// Package assembly builds an Edit Decision List from a winning pilot's
// scenes — the plan, not the render. Grounded on the teacher's
// internal/services/ffmpeg.go and subtitles.go vocabulary (motion
// effects, ASS subtitle styling, audio mixing gains), repurposed here
// as declarative planning data rather than anything that shells out.
// The actual render is internal/assembler's job.
package assembly

import (
	"fmt"
	"os"
	"sort"

	"github.com/productionorchestrator/orchestrator/internal/domain"
)

// SceneInput is one winning scene plus its audio, ready for placement.
type SceneInput struct {
	Scene          domain.Scene
	Winner         domain.MediaAsset // the chosen video variation
	VoiceoverAsset *domain.MediaAsset
	Overlay        *TextOverlay
}

// TextOverlay mirrors the teacher's ASS subtitle vocabulary as planning
// data — no burn-in happens here, this only describes what a renderer
// burning text in would need.
type TextOverlay struct {
	Text      string
	Position  domain.TextPosition
	Style     string
	StartTime *float64
	Duration  *float64
}

// AudioTrack is one mixable track handed to the external assembler
// alongside a chosen candidate, per the §6 render(edl, candidate_id,
// audio_tracks, run_id) contract — it is not part of the EDL wire
// format itself.
type AudioTrack struct {
	Type       domain.AudioTrackType
	AssetPath  string
	GainDB     float64
	StartSec   float64
	DurationSec float64
}

// Style is one editorial treatment the planner produces a candidate
// for. The closed default set mirrors spec.md's examples.
type Style string

const (
	StyleSafe     Style = "safe"
	StyleDynamic  Style = "dynamic"
	StyleBalanced Style = "balanced"
)

// Config bounds the planner's candidate generation.
type Config struct {
	Styles                []Style // defaults to [safe, dynamic, balanced] if empty
	CrossDissolveDuration float64 // seconds, default 0.5
	FadeDuration          float64 // seconds, default 0.75
}

func (c Config) withDefaults() Config {
	if len(c.Styles) == 0 {
		c.Styles = []Style{StyleSafe, StyleDynamic, StyleBalanced}
	}
	if c.CrossDissolveDuration <= 0 {
		c.CrossDissolveDuration = 0.5
	}
	if c.FadeDuration <= 0 {
		c.FadeDuration = 0.75
	}
	return c
}

// Planner builds candidate EDLs from a pilot's winning scenes.
type Planner struct {
	cfg Config
}

func New(cfg Config) *Planner {
	return &Planner{cfg: cfg.withDefaults()}
}

// Plan builds one EditDecisionList carrying one EditCandidate per
// configured style, all built from the same ordinal-sorted scene
// inputs. The first candidate with zero continuity issues (in
// configuration order) is marked recommended; if every candidate has
// issues, the first one is still marked recommended and the caller is
// expected to surface the issues.
func (p *Planner) Plan(edlID, projectName string, scenes []SceneInput) domain.EditDecisionList {
	sorted := make([]SceneInput, len(scenes))
	copy(sorted, scenes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Scene.Ordinal < sorted[j].Scene.Ordinal })

	candidates := make([]domain.EditCandidate, 0, len(p.cfg.Styles))
	for _, style := range p.cfg.Styles {
		candidates = append(candidates, p.buildCandidate(style, sorted))
	}

	recommended := candidates[0].CandidateID
	for _, c := range candidates {
		if len(c.ContinuityIssues) == 0 {
			recommended = c.CandidateID
			break
		}
	}

	return domain.EditDecisionList{
		EDLID:                  edlID,
		ProjectName:            projectName,
		TotalScenes:            len(sorted),
		RecommendedCandidateID: recommended,
		Candidates:             candidates,
	}
}

func (p *Planner) buildCandidate(style Style, scenes []SceneInput) domain.EditCandidate {
	candidateID := string(style)
	boundaries := p.buildBoundaries(style, len(scenes))
	decisions := make([]domain.EditDecision, len(scenes))
	var cursor float64
	var totalQuality float64

	for i, s := range scenes {
		d := p.buildDecision(s, i, len(scenes), boundaries, cursor)
		decisions[i] = d
		cursor += d.Duration
		if s.Winner.QualityScore != nil {
			totalQuality += *s.Winner.QualityScore
		}
	}

	if err := Validate(decisions); err != nil {
		// a planner-internal construction bug, not a user-facing input
		// error — decisions are built programmatically above, so this
		// only trips if buildDecision's own invariants regress.
		panic(err)
	}

	var avgQuality float64
	if len(scenes) > 0 {
		avgQuality = totalQuality / float64(len(scenes))
	}

	candidate := domain.EditCandidate{
		CandidateID:      candidateID,
		Name:             string(style),
		Style:            string(style),
		TotalDuration:    cursor,
		EstimatedQuality: avgQuality,
		Description:      styleDescription(style),
		Decisions:        decisions,
	}
	candidate.ContinuityIssues = checkContinuity(decisions)
	return candidate
}

// buildBoundaries decides the transition kind at each of the
// len-1 mid-video boundaries between consecutive clips, per style.
// Boundary transitions are always hard cuts or symmetric
// cross-dissolves — fades are reserved for the very first/last clip's
// outer edges and never appear here.
func (p *Planner) buildBoundaries(style Style, total int) []domain.TransitionKind {
	if total <= 1 {
		return nil
	}
	boundaries := make([]domain.TransitionKind, total-1)
	for i := range boundaries {
		switch style {
		case StyleDynamic:
			boundaries[i] = domain.TransitionCrossDissolve
		case StyleBalanced:
			if i%2 == 1 {
				boundaries[i] = domain.TransitionCrossDissolve
			} else {
				boundaries[i] = domain.TransitionCut
			}
		default: // StyleSafe and anything else
			boundaries[i] = domain.TransitionCut
		}
	}
	return boundaries
}

// boundaryDuration returns the configured duration for a boundary's
// transition kind.
func (p *Planner) boundaryDuration(kind domain.TransitionKind) float64 {
	if kind == domain.TransitionCrossDissolve {
		return p.cfg.CrossDissolveDuration
	}
	return 0
}

func (p *Planner) buildDecision(s SceneInput, index, total int, boundaries []domain.TransitionKind, startTime float64) domain.EditDecision {
	outPoint := s.Scene.TargetDuration
	if s.Winner.DurationSec > 0 && s.Winner.DurationSec < outPoint {
		outPoint = s.Winner.DurationSec
	}

	transitionIn := domain.TransitionCut
	transitionInDuration := 0.0
	transitionOut := domain.TransitionCut
	transitionOutDuration := 0.0

	// a single-clip candidate has nothing to fade from or into — it
	// keeps plain cuts on both edges rather than a fade with no
	// adjacent footage.
	if total > 1 {
		if index == 0 {
			transitionIn = domain.TransitionFade
			transitionInDuration = p.cfg.FadeDuration
		} else {
			transitionIn = boundaries[index-1]
			transitionInDuration = p.boundaryDuration(transitionIn)
		}

		if index == total-1 {
			transitionOut = domain.TransitionFade
			transitionOutDuration = p.cfg.FadeDuration
		} else {
			transitionOut = boundaries[index]
			transitionOutDuration = p.boundaryDuration(transitionOut)
		}
	}

	var audioURL string
	if s.VoiceoverAsset != nil {
		audioURL = s.VoiceoverAsset.LocalPath
		if audioURL == "" {
			audioURL = s.VoiceoverAsset.RemoteURL
		}
	}

	d := domain.EditDecision{
		SceneID:               s.Scene.ID.String(),
		SelectedVariation:     variationIndex(s.Winner),
		VideoURL:              videoURL(s.Winner),
		AudioURL:              audioURL,
		InPoint:               0,
		OutPoint:              outPoint,
		TransitionIn:          transitionIn,
		TransitionInDuration:  transitionInDuration,
		TransitionOut:         transitionOut,
		TransitionOutDuration: transitionOutDuration,
		StartTime:             startTime,
		Duration:              outPoint,
	}
	if s.Overlay != nil {
		d.TextOverlay = s.Overlay.Text
		d.TextPosition = s.Overlay.Position
		d.TextStyle = s.Overlay.Style
		d.TextStartTime = s.Overlay.StartTime
		d.TextDuration = s.Overlay.Duration
	}
	return d
}

func variationIndex(asset domain.MediaAsset) int {
	if asset.Metadata == nil {
		return 0
	}
	if v, ok := asset.Metadata["variation"]; ok {
		if vi, ok := v.(int); ok {
			return vi
		}
	}
	return 0
}

func videoURL(asset domain.MediaAsset) string {
	if asset.LocalPath != "" {
		return asset.LocalPath
	}
	return asset.RemoteURL
}

func styleDescription(style Style) string {
	switch style {
	case StyleSafe:
		return "hard cuts throughout, minimal risk of visible seams"
	case StyleDynamic:
		return "cross-dissolves between every mid-video clip"
	case StyleBalanced:
		return "alternating cuts and cross-dissolves"
	default:
		return ""
	}
}

// checkContinuity validates every referenced file exists, marking the
// candidate with continuity_issues rather than dropping it — per
// §4.7, missing files are surfaced, not silently skipped.
func checkContinuity(decisions []domain.EditDecision) []string {
	var issues []string
	for _, d := range decisions {
		if d.VideoURL == "" {
			issues = append(issues, fmt.Sprintf("scene %s: no video asset path", d.SceneID))
			continue
		}
		if _, err := os.Stat(d.VideoURL); err != nil {
			issues = append(issues, fmt.Sprintf("scene %s: video file missing: %s", d.SceneID, d.VideoURL))
		}
		if d.AudioURL != "" {
			if _, err := os.Stat(d.AudioURL); err != nil {
				issues = append(issues, fmt.Sprintf("scene %s: audio file missing: %s", d.SceneID, d.AudioURL))
			}
		}
	}
	return issues
}
