package assembly

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productionorchestrator/orchestrator/internal/domain"
)

func writeTempAsset(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("fake"), 0o644))
	return path
}

func sceneInputs(t *testing.T, n int) []SceneInput {
	t.Helper()
	inputs := make([]SceneInput, n)
	for i := 0; i < n; i++ {
		path := writeTempAsset(t, "clip.mp4")
		inputs[i] = SceneInput{
			Scene:  domain.Scene{ID: uuid.New(), Ordinal: i, TargetDuration: 5},
			Winner: domain.MediaAsset{LocalPath: path, DurationSec: 5},
		}
	}
	return inputs
}

func TestPlanProducesOneCandidatePerStyle(t *testing.T) {
	p := New(Config{})
	edl := p.Plan("edl-1", "demo", sceneInputs(t, 3))

	assert.Equal(t, 3, edl.TotalScenes)
	assert.Len(t, edl.Candidates, 3)
	assert.NotEmpty(t, edl.RecommendedCandidateID)
}

func TestPlanOnlyFirstAndLastCarryFades(t *testing.T) {
	p := New(Config{})
	edl := p.Plan("edl-2", "demo", sceneInputs(t, 4))

	for _, c := range edl.Candidates {
		require.NoError(t, Validate(c.Decisions))
		assert.Equal(t, domain.TransitionFade, c.Decisions[0].TransitionIn)
		last := len(c.Decisions) - 1
		assert.Equal(t, domain.TransitionFade, c.Decisions[last].TransitionOut)
		for i := 1; i < last; i++ {
			assert.NotEqual(t, domain.TransitionFade, c.Decisions[i].TransitionIn)
			assert.NotEqual(t, domain.TransitionFade, c.Decisions[i].TransitionOut)
		}
	}
}

func TestPlanDynamicStyleUsesSymmetricCrossDissolves(t *testing.T) {
	p := New(Config{})
	edl := p.Plan("edl-3", "demo", sceneInputs(t, 3))

	var dynamic *domain.EditCandidate
	for i := range edl.Candidates {
		if edl.Candidates[i].Style == string(StyleDynamic) {
			dynamic = &edl.Candidates[i]
		}
	}
	require.NotNil(t, dynamic)
	assert.Equal(t, domain.TransitionCrossDissolve, dynamic.Decisions[0].TransitionOut)
	assert.Equal(t, domain.TransitionCrossDissolve, dynamic.Decisions[1].TransitionIn)
}

func TestPlanMarksContinuityIssuesForMissingFiles(t *testing.T) {
	p := New(Config{})
	inputs := sceneInputs(t, 2)
	inputs[1].Winner.LocalPath = "/nonexistent/path/clip.mp4"

	edl := p.Plan("edl-4", "demo", inputs)
	for _, c := range edl.Candidates {
		assert.NotEmpty(t, c.ContinuityIssues)
	}
}

func TestClipsAreTrimmedToShorterOfSceneAndAssetDuration(t *testing.T) {
	p := New(Config{})
	inputs := sceneInputs(t, 1)
	inputs[0].Scene.TargetDuration = 8
	inputs[0].Winner.DurationSec = 5

	edl := p.Plan("edl-5", "demo", inputs)
	assert.Equal(t, 5.0, edl.Candidates[0].Decisions[0].OutPoint)
}

func TestValidateRejectsMidVideoFade(t *testing.T) {
	decisions := []domain.EditDecision{
		{SceneID: "a", OutPoint: 5, TransitionIn: domain.TransitionFade, TransitionOut: domain.TransitionCut},
		{SceneID: "b", OutPoint: 5, TransitionIn: domain.TransitionCut, TransitionOut: domain.TransitionFade},
		{SceneID: "c", OutPoint: 5, TransitionIn: domain.TransitionFade, TransitionOut: domain.TransitionFade},
	}
	err := Validate(decisions)
	assert.Error(t, err)
}

func TestBuildAudioTracksDucksMusicUnderVoiceover(t *testing.T) {
	candidate := domain.EditCandidate{
		TotalDuration: 10,
		Decisions: []domain.EditDecision{
			{AudioURL: "voice.mp3", StartTime: 0, Duration: 5},
		},
	}
	tracks := BuildAudioTracks(candidate, "music.mp3")
	require.Len(t, tracks, 2)

	var music AudioTrack
	for _, tr := range tracks {
		if tr.Type == domain.AudioTrackMusic {
			music = tr
		}
	}
	assert.InDelta(t, domain.DefaultGainDB[domain.AudioTrackMusic]+domain.MusicDuckDB, music.GainDB, 0.001)
}
