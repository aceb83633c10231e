// Package geminiimg implements a live ImageProvider against Gemini's
// generateContent endpoint, grounded on the teacher's
// internal/services/gemini.go (raw-HTTP request/response shape,
// inline-base64 image composition, style-reference injection).
package geminiimg

import (
	"bytes"
	"context"
	"encoding/base64"
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
	ProviderName = "geminiimg"
	endpointFmt  = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s"
	model        = "gemini-2.0-flash-exp"
)

type Provider struct {
	apiKey     string
	client     *http.Client
	maxRetries int
}

func New(apiKey string, maxRetries int) *Provider {
	return &Provider{apiKey: apiKey, client: &http.Client{Timeout: 90 * time.Second}, maxRetries: maxRetries}
}

func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{
		Name: ProviderName, ImplementationKind: "IMPLEMENTED",
		AspectRatios:   []string{"9:16", "16:9", "1:1"},
		RequiredInputs: []string{"prompt"}, OptionalInputs: []string{"style_reference_b64"},
	}
}

func (p *Provider) EstimateCost(context.Context, string, providers.Options) (float64, error) {
	const perImageUSD = 0.02
	return perImageUSD, nil
}

func (p *Provider) ValidateCredentials(context.Context) bool { return p.apiKey != "" }

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type candidate struct {
	Content content `json:"content"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

// Generate composes a style-reference-aware prompt (per composeImagePrompt
// in the grounding source) and POSTs it with any seed image as inline
// base64 data, exactly as gemini.go does.
func (p *Provider) Generate(ctx context.Context, prompt string, size string, opts providers.Options) (providers.GenerateOutcome, error) {
	if p.apiKey == "" {
		return providers.GenerateOutcome{}, orcherr.New(orcherr.CredentialMissing, "geminiimg.generate", nil)
	}

	parts := []part{{Text: composePrompt(prompt, size, opts)}}
	if styleRef, ok := opts["style_reference_b64"].(string); ok && styleRef != "" {
		parts = append(parts, part{InlineData: &inlineData{MimeType: "image/jpeg", Data: styleRef}})
	}

	reqBody := generateContentRequest{Contents: []content{{Parts: parts}}}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return providers.GenerateOutcome{}, orcherr.New(orcherr.InputInvalid, "geminiimg.generate", err)
	}

	url := fmt.Sprintf(endpointFmt, model, p.apiKey)

	var imageB64, mimeType string
	err = httpx.Do(ctx, p.maxRetries, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return orcherr.New(orcherr.ProviderPermanent, "geminiimg.generate", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return orcherr.New(httpx.ClassifyErr(err), "geminiimg.generate", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return orcherr.New(httpx.ClassifyStatus(resp.StatusCode), "geminiimg.generate", fmt.Errorf("status %d: %s", resp.StatusCode, body))
		}

		var out generateContentResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return orcherr.New(orcherr.ProviderPermanent, "geminiimg.generate", err)
		}
		if len(out.Candidates) == 0 {
			return orcherr.New(orcherr.ProviderPermanent, "geminiimg.generate", fmt.Errorf("no candidates returned"))
		}
		for _, part := range out.Candidates[0].Content.Parts {
			if part.InlineData != nil {
				imageB64 = part.InlineData.Data
				mimeType = part.InlineData.MimeType
				return nil
			}
		}
		return orcherr.New(orcherr.ProviderPermanent, "geminiimg.generate", fmt.Errorf("response contained no inline image data (text-only response)"))
	})
	if err != nil {
		return providers.GenerateOutcome{}, err
	}

	raw, err := base64.StdEncoding.DecodeString(imageB64)
	if err != nil {
		return providers.GenerateOutcome{}, orcherr.New(orcherr.ProviderPermanent, "geminiimg.decode", err)
	}
	format := "png"
	if mimeType == "image/jpeg" {
		format = "jpg"
	}
	w, h := sizeDims(size)
	return providers.Succeeded(providers.MediaRef{Bytes: raw, Width: w, Height: h, Format: format}), nil
}

func composePrompt(prompt, size string, opts providers.Options) string {
	var b bytes.Buffer
	if _, ok := opts["style_reference_b64"]; ok {
		b.WriteString("Match the visual style of the attached reference image. ")
	}
	if style, ok := opts["visual_style"].(string); ok && style != "" {
		fmt.Fprintf(&b, "Visual style: %s. ", style)
	}
	b.WriteString(prompt)
	if size != "" {
		fmt.Fprintf(&b, " Orientation/aspect ratio: %s.", size)
	}
	return b.String()
}

func sizeDims(size string) (int, int) {
	switch size {
	case "16:9":
		return 1920, 1080
	case "1:1":
		return 1080, 1080
	default:
		return 1080, 1920
	}
}
