// Package xaivideo implements a live VideoProvider against xAI's Grok
// Imagine Video API, grounded directly on the teacher's
// internal/services/xai_video.go submit/poll/download sequence,
// generalized from a bespoke clip-rendering helper into the
// VideoProvider contract.
package xaivideo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/productionorchestrator/orchestrator/internal/httpx"
	"github.com/productionorchestrator/orchestrator/internal/orcherr"
	"github.com/productionorchestrator/orchestrator/internal/providers"
)

const (
	baseURL     = "https://api.x.ai"
	videoModel  = "grok-imagine-video"
	minDuration = 1
	maxDuration = 15

	pollMinInterval  = 5 * time.Second
	pollMaxInterval  = 20 * time.Second
	pollBackoffRatio = 1.5
	pollMaxDuration  = 5 * time.Minute
)

const ProviderName = "xaivideo"

// Provider is a live xAI video provider.
type Provider struct {
	apiKey     string
	client     *http.Client
	maxRetries int
}

func New(apiKey string, maxRetries int) *Provider {
	return &Provider{
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 60 * time.Second},
		maxRetries: maxRetries,
	}
}

func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{
		Name: ProviderName, ImplementationKind: "IMPLEMENTED",
		TextToVideo: true, ImageToVideo: true,
		MinDurationSec: minDuration, MaxDurationSec: maxDuration,
		AspectRatios: []string{"9:16", "16:9", "1:1"},
		RequiredInputs: []string{"prompt"}, OptionalInputs: []string{"image_url"},
	}
}

// EstimateCost never issues a network call, per §4.2's contract rule.
func (p *Provider) EstimateCost(_ context.Context, durationSec float64, _ providers.Options) (float64, error) {
	const perSecondUSD = 0.35
	return durationSec * perSecondUSD, nil
}

func (p *Provider) ValidateCredentials(ctx context.Context) bool {
	return p.apiKey != ""
}

type generationRequest struct {
	Model    string  `json:"model"`
	Prompt   string  `json:"prompt"`
	Duration float64 `json:"duration_seconds,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
}

type videoOutput struct {
	URL string `json:"url"`
}

type generationResult struct {
	Status string       `json:"status,omitempty"` // present only while pending
	Video  *videoOutput `json:"video,omitempty"`   // present only on completion
}

type generationResponse struct {
	ID     string             `json:"id"`
	Result *generationResult  `json:"result,omitempty"`
}

// Generate submits a job; xAI's API always returns a job id even for
// very short prompts, so this provider never takes the synchronous
// fast-path some other providers use.
func (p *Provider) Generate(ctx context.Context, prompt string, durationSec float64, aspectRatio string, opts providers.Options) (providers.GenerateOutcome, error) {
	if p.apiKey == "" {
		return providers.GenerateOutcome{}, orcherr.New(orcherr.CredentialMissing, "xaivideo.generate", nil)
	}

	imageURL, _ := opts["image_url"].(string)
	reqBody := generationRequest{
		Model: videoModel, Prompt: buildPrompt(prompt, aspectRatio), Duration: durationSec, ImageURL: imageURL,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return providers.GenerateOutcome{}, orcherr.New(orcherr.InputInvalid, "xaivideo.generate", err)
	}

	var jobID string
	err = httpx.Do(ctx, p.maxRetries, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/video/generations", bytes.NewReader(payload))
		if err != nil {
			return orcherr.New(orcherr.ProviderPermanent, "xaivideo.submit", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey)

		resp, err := p.client.Do(req)
		if err != nil {
			return orcherr.New(httpx.ClassifyErr(err), "xaivideo.submit", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
			body, _ := io.ReadAll(resp.Body)
			return orcherr.New(httpx.ClassifyStatus(resp.StatusCode), "xaivideo.submit", fmt.Errorf("status %d: %s", resp.StatusCode, body))
		}

		var out generationResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return orcherr.New(orcherr.ProviderPermanent, "xaivideo.submit", err)
		}
		jobID = out.ID
		return nil
	})
	if err != nil {
		return providers.GenerateOutcome{}, err
	}

	return providers.Pending(providers.JobHandle{ID: jobID, ProviderTag: ProviderName}), nil
}

// Poll makes a single status request for job and reports it as
// succeeded, failed, or still pending. The bounded exponential-backoff
// policy from §4.2 lives in PollUntilDone.
func (p *Provider) Poll(ctx context.Context, job providers.JobHandle) (providers.GenerateOutcome, error) {
	resp, err := p.getResult(ctx, job.ID)
	if err != nil {
		return providers.GenerateOutcome{}, err
	}
	if resp.Result != nil && resp.Result.Video != nil && resp.Result.Video.URL != "" {
		return providers.Succeeded(providers.MediaRef{URL: resp.Result.Video.URL, Format: "mp4"}), nil
	}
	if resp.Result != nil && resp.Result.Status == "failed" {
		return providers.Failed("xai reported failed status"), nil
	}
	return providers.Pending(job), nil
}

func (p *Provider) getResult(ctx context.Context, jobID string) (*generationResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/video/generations/"+jobID, nil)
	if err != nil {
		return nil, orcherr.New(orcherr.ProviderPermanent, "xaivideo.poll", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, orcherr.New(httpx.ClassifyErr(err), "xaivideo.poll", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return nil, orcherr.New(httpx.ClassifyStatus(resp.StatusCode), "xaivideo.poll", fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var out generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, orcherr.New(orcherr.ProviderPermanent, "xaivideo.poll", err)
	}
	return &out, nil
}

// PollUntilDone polls an already-submitted job until it finishes, for
// callers that don't want to manage backoff themselves. It mirrors the teacher's pollForResult exactly: initial
// wait, then exponential backoff bounded at pollMaxInterval, hard
// deadline at pollMaxDuration.
func (p *Provider) PollUntilDone(ctx context.Context, job providers.JobHandle) (providers.GenerateOutcome, error) {
	deadline := time.Now().Add(pollMaxDuration)
	interval := pollMinInterval

	for {
		if time.Now().After(deadline) {
			return providers.Failed("TIMEOUT"), orcherr.New(orcherr.PollTimeout, "xaivideo.poll", nil)
		}
		select {
		case <-ctx.Done():
			return providers.GenerateOutcome{}, ctx.Err()
		case <-time.After(interval):
		}

		outcome, err := p.Poll(ctx, job)
		if err != nil {
			return providers.GenerateOutcome{}, err
		}
		if outcome.Kind != providers.OutcomePending {
			return outcome, nil
		}

		interval = time.Duration(float64(interval) * pollBackoffRatio)
		if interval > pollMaxInterval {
			interval = pollMaxInterval
		}
	}
}

func (p *Provider) Download(ctx context.Context, url, localPath string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, orcherr.New(orcherr.ProviderPermanent, "xaivideo.download", err)
	}
	downloadClient := &http.Client{Timeout: 120 * time.Second}
	resp, err := downloadClient.Do(req)
	if err != nil {
		return false, orcherr.New(httpx.ClassifyErr(err), "xaivideo.download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, orcherr.New(httpx.ClassifyStatus(resp.StatusCode), "xaivideo.download", fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return false, orcherr.New(orcherr.JournalIO, "xaivideo.download", err)
	}
	f, err := os.Create(localPath)
	if err != nil {
		return false, orcherr.New(orcherr.JournalIO, "xaivideo.download", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return false, orcherr.New(orcherr.JournalIO, "xaivideo.download", err)
	}
	return true, nil
}

func buildPrompt(prompt, aspectRatio string) string {
	if aspectRatio == "" {
		return prompt
	}
	return fmt.Sprintf("%s (aspect ratio %s)", prompt, aspectRatio)
}
