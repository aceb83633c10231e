package main

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productionorchestrator/orchestrator/internal/config"
	"github.com/productionorchestrator/orchestrator/internal/providers"
	"github.com/productionorchestrator/orchestrator/internal/providers/mock"
)

func TestRegisterProvidersWithNoCredentialsOnlyRegistersStubs(t *testing.T) {
	registry := providers.New(mock.NewVideo(), mock.NewAudio(), mock.NewImage(), mock.NewMusic())
	cfg := &config.Config{MaxRetries: 1}
	registerProviders(registry, cfg)

	name := registry.Video(t.Context(), "xaivideo", "")
	assert.NotNil(t, name)
	assert.Equal(t, "mock", registry.ActualProviders[providers.CapVideo])
}

func TestBuildProducesUsableResourcesWithDefaultConfig(t *testing.T) {
	cfg := &config.Config{
		MaxConcurrentPilots: 1,
		MaxParallelScenes:   1,
		OverheadFactor:      1.0,
		MemoryBasePath:      t.TempDir(),
	}
	res, err := build(cfg)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NotNil(t, res.pipeline)
	assert.NotNil(t, res.scheduler)
	assert.NotNil(t, res.planner)
	assert.NotNil(t, res.render)
}

func TestStatusMuxHealthEndpoint(t *testing.T) {
	cfg := &config.Config{MaxConcurrentPilots: 1, MaxParallelScenes: 1, OverheadFactor: 1.0, MemoryBasePath: t.TempDir()}
	res, err := build(cfg)
	require.NoError(t, err)

	server := httptest.NewServer(statusMux(res))
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}
