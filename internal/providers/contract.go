// Package providers defines the four capability-typed provider
// contracts (video/audio/image/music) and the registry that caches
// instances and falls back to deterministic mocks.
package providers

import "context"

// JobState is the closed pollable-job state set from §6.
type JobState string

const (
	JobQueued    JobState = "QUEUED"
	JobRunning   JobState = "RUNNING"
	JobSucceeded JobState = "SUCCEEDED"
	JobFailed    JobState = "FAILED"
	JobCancelled JobState = "CANCELLED"
)

// JobHandle is an opaque id with a provider tag so the Job Supervisor
// can route polls without a global lookup, per the §9 design note.
type JobHandle struct {
	ID          string
	ProviderTag string
}

// OutcomeKind tags a GenerateOutcome variant.
type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeSucceeded
	OutcomeFailed
)

// MediaRef is what a succeeded outcome resolves to: a remote URL or
// inline bytes, never both populated by construction.
type MediaRef struct {
	URL         string
	Bytes       []byte
	DurationSec float64
	Width       int
	Height      int
	Format      string
	SampleRate  int
}

// GenerateOutcome replaces the source's duck-typed payloads with the
// tagged variant the design notes call for: Pending(JobHandle) |
// Succeeded(MediaRef) | Failed(Reason).
type GenerateOutcome struct {
	Kind   OutcomeKind
	Job    *JobHandle
	Media  *MediaRef
	Reason string
}

func Pending(job JobHandle) GenerateOutcome {
	return GenerateOutcome{Kind: OutcomePending, Job: &job}
}

func Succeeded(media MediaRef) GenerateOutcome {
	return GenerateOutcome{Kind: OutcomeSucceeded, Media: &media}
}

func Failed(reason string) GenerateOutcome {
	return GenerateOutcome{Kind: OutcomeFailed, Reason: reason}
}

// Capabilities is a provider's self-description, per §4.2.
type Capabilities struct {
	Name               string
	ImplementationKind string // "IMPLEMENTED" | "STUB"
	TextToVideo        bool
	ImageToVideo       bool
	MinDurationSec     float64
	MaxDurationSec     float64
	AspectRatios       []string
	RequiredInputs     []string
	OptionalInputs     []string
}

func (c Capabilities) IsStub() bool { return c.ImplementationKind == "STUB" }

// Options carries capability-specific generation knobs as a loosely
// typed bag, matching the source's `options` dict parameter — kept
// loose deliberately since each provider reads a different subset.
type Options map[string]any

// VideoProvider is the video capability contract.
type VideoProvider interface {
	Capabilities() Capabilities
	EstimateCost(ctx context.Context, durationSec float64, opts Options) (float64, error)
	ValidateCredentials(ctx context.Context) bool
	Generate(ctx context.Context, prompt string, durationSec float64, aspectRatio string, opts Options) (GenerateOutcome, error)
	Poll(ctx context.Context, job JobHandle) (GenerateOutcome, error)
	Download(ctx context.Context, url, localPath string) (bool, error)
}

// Voice describes a selectable TTS voice.
type Voice struct {
	ID   string
	Name string
	Tags []string
}

// AudioProvider is the audio capability contract.
type AudioProvider interface {
	Capabilities() Capabilities
	EstimateCost(ctx context.Context, text string, opts Options) (float64, error)
	ValidateCredentials(ctx context.Context) bool
	Synthesize(ctx context.Context, text, voiceID string, speed float64, opts Options) (GenerateOutcome, error)
	ListVoices(ctx context.Context) ([]Voice, error)
}

// ImageProvider is the image capability contract.
type ImageProvider interface {
	Capabilities() Capabilities
	EstimateCost(ctx context.Context, size string, opts Options) (float64, error)
	ValidateCredentials(ctx context.Context) bool
	Generate(ctx context.Context, prompt, size string, opts Options) (GenerateOutcome, error)
}

// MusicProvider is the music capability contract.
type MusicProvider interface {
	Capabilities() Capabilities
	EstimateCost(ctx context.Context, durationSec float64, opts Options) (float64, error)
	ValidateCredentials(ctx context.Context) bool
	Generate(ctx context.Context, mood string, durationSec float64, tempo int, opts Options) (GenerateOutcome, error)
}
