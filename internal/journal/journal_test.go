package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginThenAdvanceUpdatesHeadInPlace(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir())

	rec, err := m.Begin(ctx, "run-1", "Logo reveal", 2.00, "NONE")
	require.NoError(t, err)
	assert.Equal(t, StageInitialized, rec.Head.CurrentStage)
	assert.Equal(t, 0, rec.Head.ProgressPercent)

	require.NoError(t, m.Advance(ctx, "run-1", StagePlanningPilots, map[string]any{"tiers": []string{"STATIC"}}))

	got, err := m.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StagePlanningPilots, got.Head.CurrentStage)
	assert.Equal(t, 15, got.Head.ProgressPercent)
	require.Len(t, got.Timeline, 2)
	assert.NotNil(t, got.Timeline[0].FinishedAt)
	assert.Nil(t, got.Timeline[1].FinishedAt)
}

func TestTimelineSequenceIsMonotonicWithNoGaps(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir())

	_, err := m.Begin(ctx, "run-2", "Product demo", 1.00, "MUSIC_ONLY")
	require.NoError(t, err)

	stages := []Stage{StageAnalyzingAssets, StagePlanningPilots, StageGeneratingScripts, StageGeneratingVideo}
	for _, s := range stages {
		require.NoError(t, m.Advance(ctx, "run-2", s, nil))
	}
	require.NoError(t, m.AddWarning(ctx, "run-2", "scene 2 fell back to mock provider"))

	got, err := m.Get(ctx, "run-2")
	require.NoError(t, err)

	lastSeq := 0
	for _, ev := range got.Timeline {
		assert.Equal(t, lastSeq+1, ev.Seq)
		lastSeq = ev.Seq
	}
	require.Len(t, got.Head.Warnings, 1)
	assert.Equal(t, lastSeq+1, got.Head.Warnings[0].Seq)
}

func TestCompleteWritesMetadataAndNeverDeletesArtifacts(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	m := NewManager(base)

	_, err := m.Begin(ctx, "run-3", "Logo reveal", 2.00, "NONE")
	require.NoError(t, err)
	require.NoError(t, m.Advance(ctx, "run-3", StageRendering, nil))
	require.NoError(t, m.Complete(ctx, "run-3", RunCompleted, map[string]string{"final": "renders/run-3/cand-1_final.mp4"}))

	got, err := m.Get(ctx, "run-3")
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, got.Head.Status)
	assert.Equal(t, StageCompleted, got.Head.CurrentStage)
	assert.Equal(t, 100, got.Head.ProgressPercent)
	assert.NotNil(t, got.Head.CompletedAt)

	_, err = m.readRecord("run-3")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "run-3", "metadata.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "run-3", "videos"))
	require.NoError(t, err)
}

func TestGetReportsCurrentStageOfInterruptedRun(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir())

	_, err := m.Begin(ctx, "run-4", "Logo reveal", 2.00, "NONE")
	require.NoError(t, err)
	require.NoError(t, m.Advance(ctx, "run-4", StageGeneratingVideo, nil))

	got, err := m.Get(ctx, "run-4")
	require.NoError(t, err)
	assert.Equal(t, StageGeneratingVideo, got.Head.CurrentStage)
	assert.Empty(t, got.Head.Assets)
}

func TestBeginTwiceRejected(t *testing.T) {
	ctx := context.Background()
	m := NewManager(t.TempDir())

	_, err := m.Begin(ctx, "run-5", "x", 1.0, "NONE")
	require.NoError(t, err)

	_, err = m.Begin(ctx, "run-5", "x", 1.0, "NONE")
	require.Error(t, err)
}
