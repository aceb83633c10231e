package scenepipeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productionorchestrator/orchestrator/internal/budget"
	"github.com/productionorchestrator/orchestrator/internal/domain"
	"github.com/productionorchestrator/orchestrator/internal/jobqueue/inmemqueue"
	"github.com/productionorchestrator/orchestrator/internal/learnings"
	"github.com/productionorchestrator/orchestrator/internal/providers"
	"github.com/productionorchestrator/orchestrator/internal/providers/mock"
)

func newTestPipeline(t *testing.T) (*Pipeline, *budget.Tracker) {
	t.Helper()
	registry := providers.New(mock.NewVideo(), mock.NewAudio(), mock.NewImage(), mock.NewMusic())
	tracker := budget.New(1.0)
	queue := inmemqueue.New(2)
	cfg := Config{MaxParallelScenes: 2, PollMinInterval: time.Millisecond, PollMaxDuration: time.Second}
	return New(registry, tracker, queue, nil, cfg), tracker
}

func testScene(title, voiceover string) domain.Scene {
	return domain.Scene{ID: uuid.New(), Ordinal: 0, Title: title, Description: "a logo reveal with bold typography", TargetDuration: 5, VoiceoverText: voiceover}
}

func TestRunSceneSelectsAWinnerAboveThreshold(t *testing.T) {
	p, tracker := newTestPipeline(t)
	tracker.Allocate("run-1", 10.0)
	pilot := domain.Pilot{ID: uuid.New(), RunID: "run-1", Tier: domain.TierStatic}

	outcome := p.RunScene(context.Background(), "run-1", pilot, testScene("intro", ""), "mock", 2, 0, learnings.RetrievalContext{}, nil, 0)

	require.False(t, outcome.Failed)
	require.NotNil(t, outcome.Winner)
	assert.Len(t, outcome.Variations, 2)
	assert.Equal(t, domain.MediaVideo, outcome.Winner.Kind)
}

func TestRunSceneFailsWhenThresholdUnreachable(t *testing.T) {
	p, tracker := newTestPipeline(t)
	tracker.Allocate("run-2", 10.0)
	pilot := domain.Pilot{ID: uuid.New(), RunID: "run-2", Tier: domain.TierStatic}

	outcome := p.RunScene(context.Background(), "run-2", pilot, testScene("intro", ""), "mock", 1, 101, learnings.RetrievalContext{}, nil, 0)

	assert.True(t, outcome.Failed)
	assert.Nil(t, outcome.Winner)
	assert.NotEmpty(t, outcome.DeficitReason)
}

func TestRunSceneReleasesReservationOnOverBudget(t *testing.T) {
	p, tracker := newTestPipeline(t)
	tracker.Allocate("run-3", 0.0) // zero budget

	pilot := domain.Pilot{ID: uuid.New(), RunID: "run-3", Tier: domain.TierAnimated}
	outcome := p.RunScene(context.Background(), "run-3", pilot, testScene("intro", ""), "mock", 1, 0, learnings.RetrievalContext{}, nil, 5.0)

	assert.True(t, outcome.Failed)
	assert.Equal(t, 0.0, tracker.Remaining("run-3"))
}

func TestRunPilotScenesWithTwoSlotsCompletesAllThreeScenes(t *testing.T) {
	p, tracker := newTestPipeline(t)
	tracker.Allocate("run-4", 10.0)
	pilot := domain.Pilot{ID: uuid.New(), RunID: "run-4", Tier: domain.TierStatic}

	scenes := []domain.Scene{testScene("a", ""), testScene("b", ""), testScene("c", "")}
	outcomes := p.RunPilotScenes(context.Background(), "run-4", pilot, scenes, "mock", 1, 0, learnings.RetrievalContext{}, nil, 0)

	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.False(t, o.Failed)
	}
}

func TestRunSceneAudioSkipsWhenTierIsNone(t *testing.T) {
	p, tracker := newTestPipeline(t)
	tracker.Allocate("run-5", 10.0)
	pilot := domain.Pilot{ID: uuid.New(), RunID: "run-5"}

	asset, err := p.RunSceneAudio(context.Background(), "run-5", pilot, testScene("a", "hello there"), "mock", AudioNone, "", 0)
	require.NoError(t, err)
	assert.Nil(t, asset)
}

func TestRunSceneAudioProducesAssetForSimpleOverlay(t *testing.T) {
	p, tracker := newTestPipeline(t)
	tracker.Allocate("run-6", 10.0)
	pilot := domain.Pilot{ID: uuid.New(), RunID: "run-6"}

	asset, err := p.RunSceneAudio(context.Background(), "run-6", pilot, testScene("a", "hello there, friend"), "mock", AudioSimpleOverlay, "mock-voice-1", 0)
	require.NoError(t, err)
	require.NotNil(t, asset)
	assert.Equal(t, domain.MediaAudio, asset.Kind)
}
