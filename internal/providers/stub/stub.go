// Package stub implements named STUB provider entries for back-ends the
// retrieved corpus names (mubert, suno, luma, runway, kling, pika,
// stability, dalle, wikimedia, google_tts, inworld) but never
// demonstrates a Go HTTP client for. Per §4.2, a stub must implement
// EstimateCost and ValidateCredentials but fails Generate with
// PROVIDER_PERMANENT ("NOT_IMPLEMENTED"), so the registry can name and
// attempt resolution of these providers without fabricating an
// ungrounded HTTP client.
package stub

import (
	"context"

	"github.com/productionorchestrator/orchestrator/internal/orcherr"
	"github.com/productionorchestrator/orchestrator/internal/providers"
)

func notImplemented(name, op string) error {
	return orcherr.New(orcherr.ProviderPermanent, op, nil).
		WithDetail("provider", name).WithDetail("reason", "NOT_IMPLEMENTED")
}

// Video is a STUB VideoProvider.
type Video struct{ Name string }

func NewVideo(name string) *Video { return &Video{Name: name} }

func (v *Video) Capabilities() providers.Capabilities {
	return providers.Capabilities{Name: v.Name, ImplementationKind: "STUB"}
}
func (v *Video) EstimateCost(context.Context, float64, providers.Options) (float64, error) {
	return 0, nil
}
func (v *Video) ValidateCredentials(context.Context) bool { return false }
func (v *Video) Generate(context.Context, string, float64, string, providers.Options) (providers.GenerateOutcome, error) {
	return providers.GenerateOutcome{}, notImplemented(v.Name, "stub.video.generate")
}
func (v *Video) Poll(context.Context, providers.JobHandle) (providers.GenerateOutcome, error) {
	return providers.GenerateOutcome{}, notImplemented(v.Name, "stub.video.poll")
}
func (v *Video) Download(context.Context, string, string) (bool, error) {
	return false, notImplemented(v.Name, "stub.video.download")
}

// Audio is a STUB AudioProvider.
type Audio struct{ Name string }

func NewAudio(name string) *Audio { return &Audio{Name: name} }

func (a *Audio) Capabilities() providers.Capabilities {
	return providers.Capabilities{Name: a.Name, ImplementationKind: "STUB"}
}
func (a *Audio) EstimateCost(context.Context, string, providers.Options) (float64, error) {
	return 0, nil
}
func (a *Audio) ValidateCredentials(context.Context) bool { return false }
func (a *Audio) Synthesize(context.Context, string, string, float64, providers.Options) (providers.GenerateOutcome, error) {
	return providers.GenerateOutcome{}, notImplemented(a.Name, "stub.audio.synthesize")
}
func (a *Audio) ListVoices(context.Context) ([]providers.Voice, error) { return nil, nil }

// Image is a STUB ImageProvider.
type Image struct{ Name string }

func NewImage(name string) *Image { return &Image{Name: name} }

func (i *Image) Capabilities() providers.Capabilities {
	return providers.Capabilities{Name: i.Name, ImplementationKind: "STUB"}
}
func (i *Image) EstimateCost(context.Context, string, providers.Options) (float64, error) {
	return 0, nil
}
func (i *Image) ValidateCredentials(context.Context) bool { return false }
func (i *Image) Generate(context.Context, string, string, providers.Options) (providers.GenerateOutcome, error) {
	return providers.GenerateOutcome{}, notImplemented(i.Name, "stub.image.generate")
}

// Music is a STUB MusicProvider.
type Music struct{ Name string }

func NewMusic(name string) *Music { return &Music{Name: name} }

func (m *Music) Capabilities() providers.Capabilities {
	return providers.Capabilities{Name: m.Name, ImplementationKind: "STUB"}
}
func (m *Music) EstimateCost(context.Context, float64, providers.Options) (float64, error) {
	return 0, nil
}
func (m *Music) ValidateCredentials(context.Context) bool { return false }
func (m *Music) Generate(context.Context, string, float64, int, providers.Options) (providers.GenerateOutcome, error) {
	return providers.GenerateOutcome{}, notImplemented(m.Name, "stub.music.generate")
}
