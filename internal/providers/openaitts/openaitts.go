// Package openaitts implements a live AudioProvider on top of OpenAI's
// speech endpoint via go-openai, the same client the teacher already
// uses in internal/services/openai.go for script planning and Whisper
// transcription — grounded here as a second capability use of the
// same dependency rather than a new HTTP client.
package openaitts

import (
	"bytes"
	"context"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/productionorchestrator/orchestrator/internal/orcherr"
	"github.com/productionorchestrator/orchestrator/internal/providers"
)

const ProviderName = "openaitts"

type Provider struct {
	client *openai.Client
}

func New(apiKey string) *Provider {
	return &Provider{client: openai.NewClient(apiKey)}
}

func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{Name: ProviderName, ImplementationKind: "IMPLEMENTED"}
}

func (p *Provider) EstimateCost(_ context.Context, text string, _ providers.Options) (float64, error) {
	const perCharUSD = 0.000015
	return float64(len(text)) * perCharUSD, nil
}

func (p *Provider) ValidateCredentials(context.Context) bool { return p.client != nil }

func (p *Provider) Synthesize(ctx context.Context, text, voiceID string, speed float64, _ providers.Options) (providers.GenerateOutcome, error) {
	if p.client == nil {
		return providers.GenerateOutcome{}, orcherr.New(orcherr.CredentialMissing, "openaitts.synthesize", nil)
	}
	voice := openai.VoiceAlloy
	if voiceID != "" {
		voice = openai.SpeechVoice(voiceID)
	}
	if speed <= 0 {
		speed = 1.0
	}

	resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.TTSModel1, Input: text, Voice: voice, Speed: speed,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return providers.GenerateOutcome{}, orcherr.New(orcherr.ProviderTransient, "openaitts.synthesize", err)
	}
	defer resp.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp); err != nil {
		return providers.GenerateOutcome{}, orcherr.New(orcherr.ProviderTransient, "openaitts.synthesize", err)
	}

	words := float64(len(text)) / 5.0
	duration := words / (2.5 * speed)
	return providers.Succeeded(providers.MediaRef{Bytes: buf.Bytes(), DurationSec: duration, Format: "mp3"}), nil
}

func (p *Provider) ListVoices(context.Context) ([]providers.Voice, error) {
	return []providers.Voice{
		{ID: string(openai.VoiceAlloy), Name: "Alloy"},
		{ID: string(openai.VoiceNova), Name: "Nova"},
	}, nil
}

// TranscribeForTimestamps wraps go-openai's Whisper word-timestamp
// transcription, grounded on the teacher's openai.go TranscribeAudio.
// Nothing in the module calls it; the Scene Pipeline's timestamp-sync
// step does not use it.
func (p *Provider) TranscribeForTimestamps(ctx context.Context, audio []byte, language string) ([]WordTimestamp, error) {
	req := openai.AudioRequest{
		Model:                  openai.Whisper1,
		Reader:                 bytes.NewReader(audio),
		FilePath:               "audio.mp3",
		Format:                 openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{openai.TranscriptionTimestampGranularityWord},
	}
	if language != "" {
		req.Language = language
	}

	resp, err := p.client.CreateTranscription(ctx, req)
	if err != nil {
		return nil, orcherr.New(orcherr.ProviderTransient, "openaitts.transcribe", err)
	}

	out := make([]WordTimestamp, 0, len(resp.Words))
	for _, w := range resp.Words {
		out = append(out, WordTimestamp{Word: w.Word, Start: w.Start, End: w.End})
	}
	return out, nil
}

// WordTimestamp is one word-level timing entry.
type WordTimestamp struct {
	Word  string
	Start float64
	End   float64
}
