// Package mock implements deterministic stand-ins for every provider
// capability, substituted by the provider registry whenever a requested
// name is not registered or its credentials do not validate. The registry
// does not track provider failures, so a live provider that keeps failing
// is not replaced by a mock. Mock providers never debit real
// money and always produce schema-valid results with realistic
// durations and simulated costs.
package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/productionorchestrator/orchestrator/internal/providers"
)

const ProviderName = "mock"

func deterministicSeed(parts ...string) uint64 {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

// Video is a deterministic mock VideoProvider.
type Video struct{}

func NewVideo() *Video { return &Video{} }

func (Video) Capabilities() providers.Capabilities {
	return providers.Capabilities{
		Name: ProviderName, ImplementationKind: "IMPLEMENTED",
		TextToVideo: true, MinDurationSec: 1, MaxDurationSec: 60,
		AspectRatios: []string{"9:16", "16:9", "1:1"},
	}
}

func (Video) EstimateCost(context.Context, float64, providers.Options) (float64, error) {
	return 0, nil
}

func (Video) ValidateCredentials(context.Context) bool { return true }

func (Video) Generate(_ context.Context, prompt string, durationSec float64, _ string, _ providers.Options) (providers.GenerateOutcome, error) {
	seed := deterministicSeed(prompt, fmt.Sprintf("%f", durationSec))
	return providers.Succeeded(providers.MediaRef{
		URL:         fmt.Sprintf("mock://video/%d.mp4", seed),
		DurationSec: durationSec,
		Format:      "mp4",
	}), nil
}

func (Video) Poll(_ context.Context, job providers.JobHandle) (providers.GenerateOutcome, error) {
	return providers.Succeeded(providers.MediaRef{URL: fmt.Sprintf("mock://video/%s.mp4", job.ID), Format: "mp4"}), nil
}

func (Video) Download(_ context.Context, _ string, localPath string) (bool, error) {
	if err := writePlaceholder(localPath); err != nil {
		return false, err
	}
	return true, nil
}

// Audio is a deterministic mock AudioProvider.
type Audio struct{}

func NewAudio() *Audio { return &Audio{} }

func (Audio) Capabilities() providers.Capabilities {
	return providers.Capabilities{Name: ProviderName, ImplementationKind: "IMPLEMENTED"}
}

func (Audio) EstimateCost(context.Context, string, providers.Options) (float64, error) { return 0, nil }
func (Audio) ValidateCredentials(context.Context) bool                                 { return true }

func (Audio) Synthesize(_ context.Context, text, voiceID string, speed float64, _ providers.Options) (providers.GenerateOutcome, error) {
	words := len(text) / 5
	if words == 0 {
		words = 1
	}
	duration := float64(words) / (2.5 * speedOrDefault(speed))
	return providers.Succeeded(providers.MediaRef{
		Bytes: []byte("mock-audio:" + voiceID), DurationSec: duration, Format: "mp3",
	}), nil
}

func speedOrDefault(speed float64) float64 {
	if speed <= 0 {
		return 1.0
	}
	return speed
}

func (Audio) ListVoices(context.Context) ([]providers.Voice, error) {
	return []providers.Voice{{ID: "mock-voice-1", Name: "Mock Narrator"}}, nil
}

// Image is a deterministic mock ImageProvider.
type Image struct{}

func NewImage() *Image { return &Image{} }

func (Image) Capabilities() providers.Capabilities {
	return providers.Capabilities{Name: ProviderName, ImplementationKind: "IMPLEMENTED"}
}

func (Image) EstimateCost(context.Context, string, providers.Options) (float64, error) { return 0, nil }
func (Image) ValidateCredentials(context.Context) bool                                 { return true }

func (Image) Generate(_ context.Context, prompt string, _ string, _ providers.Options) (providers.GenerateOutcome, error) {
	seed := deterministicSeed(prompt)
	return providers.Succeeded(providers.MediaRef{
		URL: fmt.Sprintf("mock://image/%d.png", seed), Width: 1080, Height: 1920, Format: "png",
	}), nil
}

// Music is a deterministic mock MusicProvider.
type Music struct{}

func NewMusic() *Music { return &Music{} }

func (Music) Capabilities() providers.Capabilities {
	return providers.Capabilities{Name: ProviderName, ImplementationKind: "IMPLEMENTED"}
}

func (Music) EstimateCost(context.Context, float64, providers.Options) (float64, error) { return 0, nil }
func (Music) ValidateCredentials(context.Context) bool                                  { return true }

func (Music) Generate(_ context.Context, mood string, durationSec float64, _ int, _ providers.Options) (providers.GenerateOutcome, error) {
	seed := deterministicSeed(mood, fmt.Sprintf("%f", durationSec))
	return providers.Succeeded(providers.MediaRef{
		URL: fmt.Sprintf("mock://music/%d.mp3", seed), DurationSec: durationSec, Format: "mp3",
	}), nil
}

func writePlaceholder(localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(localPath, []byte("mock-media-placeholder"), 0o644)
}
