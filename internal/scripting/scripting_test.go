package scripting

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productionorchestrator/orchestrator/internal/domain"
)

func TestDeterministicWriterProducesContiguousOrdinals(t *testing.T) {
	brief := domain.Brief{Concept: "a dog learns to surf", TargetDuration: 30}
	pilot := domain.Pilot{ID: uuid.New(), TargetScenes: 4}

	scenes, err := DeterministicWriter{}.Write(context.Background(), brief, pilot)
	require.NoError(t, err)
	require.Len(t, scenes, 4)
	for i, s := range scenes {
		assert.Equal(t, i, s.Ordinal)
		assert.Equal(t, pilot.ID, s.PilotID)
		assert.InDelta(t, 7.5, s.TargetDuration, 0.001)
	}
}

func TestDeterministicWriterHandlesZeroScenes(t *testing.T) {
	brief := domain.Brief{Concept: "x", TargetDuration: 10}
	pilot := domain.Pilot{ID: uuid.New(), TargetScenes: 0}

	scenes, err := DeterministicWriter{}.Write(context.Background(), brief, pilot)
	require.NoError(t, err)
	require.Len(t, scenes, 1)
}
