// Package elevenlabs implements a live AudioProvider against the
// ElevenLabs text-to-speech API, grounded directly on the teacher's
// internal/services/elevenlabs.go (voice settings, output format,
// request/response shape) and corrected to a single 4-parameter
// Synthesize signature matching the AudioProvider contract (the
// teacher's TTSService interface/implementation arg-count mismatch is
// not carried forward).
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/productionorchestrator/orchestrator/internal/httpx"
	"github.com/productionorchestrator/orchestrator/internal/orcherr"
	"github.com/productionorchestrator/orchestrator/internal/providers"
)

const (
	ProviderName  = "elevenlabs"
	baseURL       = "https://api.elevenlabs.io"
	defaultModel  = "eleven_flash_v2_5"
	defaultVoice  = "pNInz6obpgDQGcFmaJgB"
	outputFormat  = "mp3_44100_128"
	wordsPerMinute = 150.0
)

type Provider struct {
	apiKey     string
	modelID    string
	client     *http.Client
	maxRetries int
}

func New(apiKey string, maxRetries int) *Provider {
	return &Provider{apiKey: apiKey, modelID: defaultModel, client: &http.Client{Timeout: 90 * time.Second}, maxRetries: maxRetries}
}

func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{Name: ProviderName, ImplementationKind: "IMPLEMENTED"}
}

func (p *Provider) EstimateCost(_ context.Context, text string, _ providers.Options) (float64, error) {
	const perCharUSD = 0.00003
	return float64(len(text)) * perCharUSD, nil
}

func (p *Provider) ValidateCredentials(context.Context) bool { return p.apiKey != "" }

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

type speechRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	Speed         *float64       `json:"speed,omitempty"`
}

func (p *Provider) Synthesize(ctx context.Context, text, voiceID string, speed float64, _ providers.Options) (providers.GenerateOutcome, error) {
	if p.apiKey == "" {
		return providers.GenerateOutcome{}, orcherr.New(orcherr.CredentialMissing, "elevenlabs.synthesize", nil)
	}
	if voiceID == "" {
		voiceID = defaultVoice
	}
	if speed <= 0 {
		speed = 0.85
	}

	reqBody := speechRequest{
		Text: text, ModelID: p.modelID, Speed: &speed,
		VoiceSettings: &voiceSettings{Stability: 0.60, SimilarityBoost: 0.80, Style: 0.35, UseSpeakerBoost: true},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return providers.GenerateOutcome{}, orcherr.New(orcherr.InputInvalid, "elevenlabs.synthesize", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", baseURL, voiceID, outputFormat)

	var audio []byte
	err = httpx.Do(ctx, p.maxRetries, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return orcherr.New(orcherr.ProviderPermanent, "elevenlabs.synthesize", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("xi-api-key", p.apiKey)

		resp, err := p.client.Do(req)
		if err != nil {
			return orcherr.New(httpx.ClassifyErr(err), "elevenlabs.synthesize", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return orcherr.New(httpx.ClassifyStatus(resp.StatusCode), "elevenlabs.synthesize", fmt.Errorf("status %d: %s", resp.StatusCode, body))
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return orcherr.New(orcherr.ProviderTransient, "elevenlabs.synthesize", err)
		}
		if len(data) == 0 {
			return orcherr.New(orcherr.ProviderPermanent, "elevenlabs.synthesize", fmt.Errorf("empty audio response"))
		}
		audio = data
		return nil
	})
	if err != nil {
		return providers.GenerateOutcome{}, err
	}

	words := float64(len(splitWords(text)))
	duration := words / wordsPerMinute * 60 / speed

	return providers.Succeeded(providers.MediaRef{Bytes: audio, DurationSec: duration, Format: "mp3"}), nil
}

func (p *Provider) ListVoices(ctx context.Context) ([]providers.Voice, error) {
	return []providers.Voice{{ID: defaultVoice, Name: "Default Narrator"}}, nil
}

func splitWords(text string) []string {
	var words []string
	var cur []rune
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			if len(cur) > 0 {
				words = append(words, string(cur))
				cur = nil
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		words = append(words, string(cur))
	}
	return words
}
