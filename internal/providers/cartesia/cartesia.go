// Package cartesia implements a live AudioProvider against the
// Cartesia TTS API, grounded directly on the teacher's
// internal/services/cartesia.go request/response shape (voice
// specifier mode+id, output format container/encoding/sample_rate,
// generation_config volume/speed/emotion).
package cartesia

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
	ProviderName  = "cartesia"
	apiVersion    = "2024-06-10"
	defaultVoice  = "a0e99841-438c-4a64-b679-ae501e7d6091"
	defaultModel  = "sonic-english"
	sampleRate    = 44100
)

type Provider struct {
	apiKey     string
	apiURL     string
	client     *http.Client
	maxRetries int
}

func New(apiKey, apiURL string, maxRetries int) *Provider {
	if apiURL == "" {
		apiURL = "https://api.cartesia.ai"
	}
	return &Provider{apiKey: apiKey, apiURL: apiURL, client: &http.Client{Timeout: 60 * time.Second}, maxRetries: maxRetries}
}

func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{Name: ProviderName, ImplementationKind: "IMPLEMENTED"}
}

func (p *Provider) EstimateCost(_ context.Context, text string, _ providers.Options) (float64, error) {
	const perCharUSD = 0.000015
	return float64(len(text)) * perCharUSD, nil
}

func (p *Provider) ValidateCredentials(context.Context) bool { return p.apiKey != "" }

type voiceSpecifier struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type outputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate"`
}

type generationConfig struct {
	Speed *float64 `json:"speed,omitempty"`
}

type speechRequest struct {
	ModelID      string           `json:"model_id"`
	Transcript   string           `json:"transcript"`
	Voice        voiceSpecifier   `json:"voice"`
	OutputFormat outputFormat     `json:"output_format"`
	Config       *generationConfig `json:"generation_config,omitempty"`
}

func (p *Provider) Synthesize(ctx context.Context, text, voiceID string, speed float64, _ providers.Options) (providers.GenerateOutcome, error) {
	if p.apiKey == "" {
		return providers.GenerateOutcome{}, orcherr.New(orcherr.CredentialMissing, "cartesia.synthesize", nil)
	}
	if voiceID == "" {
		voiceID = defaultVoice
	}
	var cfg *generationConfig
	if speed > 0 {
		cfg = &generationConfig{Speed: &speed}
	}

	reqBody := speechRequest{
		ModelID: defaultModel, Transcript: text, Voice: voiceSpecifier{Mode: "id", ID: voiceID},
		OutputFormat: outputFormat{Container: "mp3", SampleRate: sampleRate}, Config: cfg,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return providers.GenerateOutcome{}, orcherr.New(orcherr.InputInvalid, "cartesia.synthesize", err)
	}

	var audio []byte
	err = httpx.Do(ctx, p.maxRetries, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/tts/bytes", bytes.NewReader(payload))
		if err != nil {
			return orcherr.New(orcherr.ProviderPermanent, "cartesia.synthesize", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", p.apiKey)
		req.Header.Set("Cartesia-Version", apiVersion)

		resp, err := p.client.Do(req)
		if err != nil {
			return orcherr.New(httpx.ClassifyErr(err), "cartesia.synthesize", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return orcherr.New(httpx.ClassifyStatus(resp.StatusCode), "cartesia.synthesize", fmt.Errorf("status %d: %s", resp.StatusCode, body))
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return orcherr.New(orcherr.ProviderTransient, "cartesia.synthesize", err)
		}
		audio = data
		return nil
	})
	if err != nil {
		return providers.GenerateOutcome{}, err
	}

	words := float64(len(text)) / 5.0
	duration := words / 2.5
	return providers.Succeeded(providers.MediaRef{Bytes: audio, DurationSec: duration, Format: "mp3", SampleRate: sampleRate}), nil
}

func (p *Provider) ListVoices(context.Context) ([]providers.Voice, error) {
	return []providers.Voice{{ID: defaultVoice, Name: "Default"}}, nil
}
