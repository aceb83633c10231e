package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Capability is a closed set of the four provider capability kinds.
type Capability string

const (
	CapVideo Capability = "video"
	CapAudio Capability = "audio"
	CapImage Capability = "image"
	CapMusic Capability = "music"
)

type cacheKey struct {
	capability Capability
	name       string
	credFP     string
}

// Factory builders construct a named live provider instance. They are
// given only the provider name; any API key is captured by the closure
// that builds the factory, and the registry never holds it.
type VideoFactory func(name string) VideoProvider
type AudioFactory func(name string) AudioProvider
type ImageFactory func(name string) ImageProvider
type MusicFactory func(name string) MusicProvider

// Registry caches one instance per (capability, provider-name,
// credential-fingerprint) and substitutes the mock provider for the
// same capability whenever ValidateCredentials fails, per §4.2's
// fallback rule. Construct exactly once per run via New.
type Registry struct {
	mu sync.Mutex

	videoFactories map[string]VideoFactory
	audioFactories map[string]AudioFactory
	imageFactories map[string]ImageFactory
	musicFactories map[string]MusicFactory

	videoCache map[cacheKey]VideoProvider
	audioCache map[cacheKey]AudioProvider
	imageCache map[cacheKey]ImageProvider
	musicCache map[cacheKey]MusicProvider

	mockVideo VideoProvider
	mockAudio AudioProvider
	mockImage ImageProvider
	mockMusic MusicProvider

	// ActualProviders records, per run, which provider name actually
	// served each capability (live name or "mock"), per the Run
	// Journal's actual_<capability>_provider requirement.
	ActualProviders map[Capability]string
}

func New(mockVideo VideoProvider, mockAudio AudioProvider, mockImage ImageProvider, mockMusic MusicProvider) *Registry {
	return &Registry{
		videoFactories:  map[string]VideoFactory{},
		audioFactories:  map[string]AudioFactory{},
		imageFactories:  map[string]ImageFactory{},
		musicFactories:  map[string]MusicFactory{},
		videoCache:      map[cacheKey]VideoProvider{},
		audioCache:      map[cacheKey]AudioProvider{},
		imageCache:      map[cacheKey]ImageProvider{},
		musicCache:      map[cacheKey]MusicProvider{},
		mockVideo:       mockVideo,
		mockAudio:       mockAudio,
		mockImage:       mockImage,
		mockMusic:       mockMusic,
		ActualProviders: map[Capability]string{},
	}
}

func (r *Registry) RegisterVideo(name string, f VideoFactory) { r.videoFactories[name] = f }
func (r *Registry) RegisterAudio(name string, f AudioFactory) { r.audioFactories[name] = f }
func (r *Registry) RegisterImage(name string, f ImageFactory) { r.imageFactories[name] = f }
func (r *Registry) RegisterMusic(name string, f MusicFactory) { r.musicFactories[name] = f }

func fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:8])
}

// Video resolves a named video provider, falling back to mock when
// credentials are missing/invalid.
func (r *Registry) Video(ctx context.Context, name, credSecret string) VideoProvider {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, ok := r.videoFactories[name]
	if !ok {
		r.ActualProviders[CapVideo] = "mock"
		return r.mockVideo
	}
	key := cacheKey{CapVideo, name, fingerprint(credSecret)}
	if p, ok := r.videoCache[key]; ok {
		return p
	}
	p := factory(name)
	if !p.ValidateCredentials(ctx) {
		r.ActualProviders[CapVideo] = "mock"
		return r.mockVideo
	}
	r.videoCache[key] = p
	r.ActualProviders[CapVideo] = name
	return p
}

func (r *Registry) Audio(ctx context.Context, name, credSecret string) AudioProvider {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, ok := r.audioFactories[name]
	if !ok {
		r.ActualProviders[CapAudio] = "mock"
		return r.mockAudio
	}
	key := cacheKey{CapAudio, name, fingerprint(credSecret)}
	if p, ok := r.audioCache[key]; ok {
		return p
	}
	p := factory(name)
	if !p.ValidateCredentials(ctx) {
		r.ActualProviders[CapAudio] = "mock"
		return r.mockAudio
	}
	r.audioCache[key] = p
	r.ActualProviders[CapAudio] = name
	return p
}

func (r *Registry) Image(ctx context.Context, name, credSecret string) ImageProvider {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, ok := r.imageFactories[name]
	if !ok {
		r.ActualProviders[CapImage] = "mock"
		return r.mockImage
	}
	key := cacheKey{CapImage, name, fingerprint(credSecret)}
	if p, ok := r.imageCache[key]; ok {
		return p
	}
	p := factory(name)
	if !p.ValidateCredentials(ctx) {
		r.ActualProviders[CapImage] = "mock"
		return r.mockImage
	}
	r.imageCache[key] = p
	r.ActualProviders[CapImage] = name
	return p
}

func (r *Registry) Music(ctx context.Context, name, credSecret string) MusicProvider {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, ok := r.musicFactories[name]
	if !ok {
		r.ActualProviders[CapMusic] = "mock"
		return r.mockMusic
	}
	key := cacheKey{CapMusic, name, fingerprint(credSecret)}
	if p, ok := r.musicCache[key]; ok {
		return p
	}
	p := factory(name)
	if !p.ValidateCredentials(ctx) {
		r.ActualProviders[CapMusic] = "mock"
		return r.mockMusic
	}
	r.musicCache[key] = p
	r.ActualProviders[CapMusic] = name
	return p
}
