package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productionorchestrator/orchestrator/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "learnings.db"), filepath.Join(dir, "memory"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, domain.Learning{
		Namespace:     "/org/acme/providers/luma",
		Content:       "prefer wide establishing shots for landscape briefs",
		TextForSearch: "prefer wide establishing shots for landscape briefs",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.Get(ctx, "/org/acme/providers/luma", id)
	require.NoError(t, err)
	assert.Equal(t, "prefer wide establishing shots for landscape briefs", got.Content)
}

func TestSearchRanksByWordOverlap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ns := "/platform/providers/luma"

	_, err := s.Create(ctx, domain.Learning{Namespace: ns, TextForSearch: "wide establishing landscape shots"})
	require.NoError(t, err)
	_, err = s.Create(ctx, domain.Learning{Namespace: ns, TextForSearch: "close up portrait lighting"})
	require.NoError(t, err)

	results, err := s.Search(ctx, []string{ns}, "wide landscape shots", 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Learning.TextForSearch, "landscape")
}

func TestDeleteNamespaceRemovesAllRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ns := "/org/acme/actor/alice/sessions/s1/providers/luma"

	_, err := s.Create(ctx, domain.Learning{Namespace: ns, TextForSearch: "x"})
	require.NoError(t, err)

	exists, err := s.NamespaceExists(ctx, ns)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.DeleteNamespace(ctx, ns))

	exists, err = s.NamespaceExists(ctx, ns)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestValidateAdjustsConfidence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ns := "/platform/providers/luma"

	id, err := s.Create(ctx, domain.Learning{Namespace: ns, TextForSearch: "x", Confidence: 0.5})
	require.NoError(t, err)

	require.NoError(t, s.Validate(ctx, ns, id, true))

	got, err := s.Get(ctx, ns, id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Validations)
	assert.InDelta(t, 0.6, got.Confidence, 1e-9)
}
