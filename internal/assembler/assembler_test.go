package assembler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/productionorchestrator/orchestrator/internal/domain"
)

func TestCheckInstalledDoesNotPanicWithoutFfmpeg(t *testing.T) {
	a := New(t.TempDir())
	info := a.CheckInstalled(context.Background())
	// whether ffmpeg happens to be on PATH in the test environment is
	// not something this test controls — only that the call never
	// panics and reports a consistent shape.
	if !info.Installed {
		assert.Empty(t, info.Path)
	}
}

func TestRenderFailsForUnknownCandidate(t *testing.T) {
	a := New(t.TempDir())
	edl := domain.EditDecisionList{EDLID: "edl-1", Candidates: []domain.EditCandidate{{CandidateID: "safe"}}}

	result := a.Render(context.Background(), edl, "missing", nil, "run-1")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "missing")
}

func TestRenderRefusesCandidateWithContinuityIssues(t *testing.T) {
	a := New(t.TempDir())
	edl := domain.EditDecisionList{
		EDLID: "edl-2",
		Candidates: []domain.EditCandidate{
			{CandidateID: "safe", ContinuityIssues: []string{"scene a: video file missing: /nope.mp4"}},
		},
	}

	result := a.Render(context.Background(), edl, "safe", nil, "run-2")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "continuity")
}
