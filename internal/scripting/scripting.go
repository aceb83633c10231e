// Package scripting generates a pilot's scene breakdown — the input the
// Scene Pipeline fans out over. Grounded on the teacher's
// internal/services/openai.go GeneratePlan: same structured-JSON chat
// completion shape (system prompt describes tone/duration/count,
// response forced into a JSON object, parsed into a typed plan), here
// producing domain.Scene lists instead of ClipPlan/VideoPlan.
package scripting

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/google/uuid"

	"github.com/productionorchestrator/orchestrator/internal/domain"
)

// sceneDraft mirrors the teacher's ClipPlan, narrowed to what a Scene
// needs.
type sceneDraft struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	VisualElements   []string `json:"visual_elements"`
	VoiceoverText    string   `json:"voiceover_text"`
	DurationSec      float64  `json:"duration_sec"`
}

type scriptResponse struct {
	Scenes []sceneDraft `json:"scenes"`
}

// Writer produces a pilot's scene list from its Brief and tier profile.
type Writer interface {
	Write(ctx context.Context, brief domain.Brief, pilot domain.Pilot) ([]domain.Scene, error)
}

// OpenAIWriter calls an OpenAI chat model for scene breakdown, exactly
// as the teacher's GeneratePlan does for clip breakdown.
type OpenAIWriter struct {
	client *openai.Client
	model  string
}

func NewOpenAIWriter(apiKey string) *OpenAIWriter {
	return &OpenAIWriter{client: openai.NewClient(apiKey), model: "gpt-5-mini"}
}

func (w *OpenAIWriter) Write(ctx context.Context, brief domain.Brief, pilot domain.Pilot) ([]domain.Scene, error) {
	systemPrompt := buildSystemPrompt(pilot)
	userPrompt := buildUserPrompt(brief, pilot)

	resp, err := w.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: w.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 1.0,
	})
	if err != nil {
		return nil, fmt.Errorf("openai scripting request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai scripting: no choices returned")
	}

	var parsed scriptResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("openai scripting: failed to parse scene list: %w", err)
	}
	if len(parsed.Scenes) == 0 {
		return nil, fmt.Errorf("openai scripting: plan has no scenes")
	}

	return toScenes(pilot.ID, parsed.Scenes), nil
}

func toScenes(pilotID uuid.UUID, drafts []sceneDraft) []domain.Scene {
	scenes := make([]domain.Scene, len(drafts))
	for i, d := range drafts {
		scenes[i] = domain.Scene{
			ID:             uuid.New(),
			PilotID:        pilotID,
			Ordinal:        i,
			Title:          d.Title,
			Description:    d.Description,
			TargetDuration: d.DurationSec,
			VisualElements: d.VisualElements,
			VoiceoverText:  d.VoiceoverText,
		}
	}
	return scenes
}

func buildSystemPrompt(pilot domain.Pilot) string {
	return fmt.Sprintf(
		"You are a video scene planner. Produce exactly %d contiguous scenes as a JSON object "+
			"with a top-level \"scenes\" array. Each scene has title, description, visual_elements "+
			"(array of short strings), voiceover_text, and duration_sec. Target production tier: %s.",
		pilot.TargetScenes, pilot.Tier,
	)
}

func buildUserPrompt(brief domain.Brief, pilot domain.Pilot) string {
	perScene := brief.TargetDuration / float64(maxInt(pilot.TargetScenes, 1))
	return fmt.Sprintf(
		"Concept: %s\nTotal target duration: %.1fs across %d scenes (~%.1fs each).",
		brief.Concept, brief.TargetDuration, pilot.TargetScenes, perScene,
	)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// DeterministicWriter is the mock fallback: it splits the Brief's target
// duration evenly across the pilot's target scene count with no live
// model call, the same role mock providers play for paid generation —
// schema-valid output with no vendor dependency.
type DeterministicWriter struct{}

func (DeterministicWriter) Write(ctx context.Context, brief domain.Brief, pilot domain.Pilot) ([]domain.Scene, error) {
	n := pilot.TargetScenes
	if n <= 0 {
		n = 1
	}
	perScene := brief.TargetDuration / float64(n)
	scenes := make([]domain.Scene, n)
	for i := 0; i < n; i++ {
		scenes[i] = domain.Scene{
			ID:             uuid.New(),
			PilotID:        pilot.ID,
			Ordinal:        i,
			Title:          fmt.Sprintf("%s — part %d", brief.Concept, i+1),
			Description:    brief.Concept,
			TargetDuration: perScene,
			VisualElements: []string{brief.Concept},
		}
	}
	return scenes, nil
}
