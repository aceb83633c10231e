package scenepipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/productionorchestrator/orchestrator/internal/domain"
	"github.com/productionorchestrator/orchestrator/internal/orcherr"
	"github.com/productionorchestrator/orchestrator/internal/providers"
)

// RunSceneAudio generates a scene's voiceover/music per §4.5 step 5,
// run concurrently with video generation by the caller (it shares
// nothing but the Budget Tracker with RunScene, so callers typically
// launch both in one errgroup). AudioTier gates whether anything is
// produced at all.
func (p *Pipeline) RunSceneAudio(ctx context.Context, runID string, pilot domain.Pilot, scene domain.Scene, audioProviderName string, tier AudioTier, voiceID string, estimatedCost float64) (*domain.MediaAsset, error) {
	if tier == AudioNone {
		return nil, nil
	}
	if !tier.NeedsVoiceover() {
		return nil, nil // MUSIC_ONLY is handled at the pilot/EDL level, not per-scene
	}
	if scene.VoiceoverText == "" {
		return nil, nil
	}

	provider := p.registry.Audio(ctx, audioProviderName, providerCredential(audioProviderName))

	reservationID, err := p.tracker.Reserve(runID, pilot.ID.String(), estimatedCost)
	if err != nil {
		return nil, err
	}

	outcome, err := provider.Synthesize(ctx, scene.VoiceoverText, voiceID, 1.0, providers.Options{})
	if err != nil {
		_ = p.tracker.Release(reservationID)
		return nil, err
	}
	if outcome.Kind == providers.OutcomeFailed {
		_ = p.tracker.Release(reservationID)
		return nil, orcherr.New(orcherr.ProviderPermanent, "scenepipeline.audio", nil).WithDetail("reason", outcome.Reason)
	}
	if outcome.Media == nil {
		_ = p.tracker.Release(reservationID)
		return nil, orcherr.New(orcherr.ProviderPermanent, "scenepipeline.audio", nil).WithDetail("reason", "no media returned")
	}

	ext := "mp3"
	if outcome.Media.Format != "" {
		ext = outcome.Media.Format
	}
	localPath := fmt.Sprintf("runs/%s/audio/%s_voiceover.%s", runID, scene.ID.String(), ext)
	if err := writeAudioBytes(localPath, outcome.Media.Bytes); err != nil {
		_ = p.tracker.Release(reservationID)
		return nil, err
	}

	if tier.NeedsTimestampSync(p.cfg.AudioSync) {
		if err := p.syncTimestamps(ctx, runID, scene, outcome.Media.Bytes); err != nil {
			// a timestamp sync error is ignored; the asset is kept
			// unchanged.
			_ = err
		}
	}

	asset := domain.MediaAsset{
		ID: uuid.New(), Kind: domain.MediaAudio, SceneID: &scene.ID,
		LocalPath: localPath, DurationSec: outcome.Media.DurationSec, CostUSD: estimatedCost,
		ProviderName: audioProviderName, CreatedAt: time.Now(),
		Metadata: map[string]any{"tier": string(tier)},
	}
	if err := p.tracker.Commit(reservationID, estimatedCost, asset.ID.String()); err != nil {
		return nil, err
	}
	return &asset, nil
}

// syncTimestamps is the step the TIME_SYNCED/strict-FULL_PRODUCTION path
// calls. It performs no transcription or alignment and always returns
// nil, so it never rejects or alters a scene's audio asset.
func (p *Pipeline) syncTimestamps(ctx context.Context, runID string, scene domain.Scene, audioBytes []byte) error {
	return nil
}

// RunPilotMusic generates the pilot-level music bed for MUSIC_ONLY and
// FULL_PRODUCTION tiers — one track per pilot, not per scene.
func (p *Pipeline) RunPilotMusic(ctx context.Context, runID string, pilot domain.Pilot, musicProviderName string, tier AudioTier, mood string, totalDuration float64, tempo int, estimatedCost float64) (*domain.MediaAsset, error) {
	if !tier.NeedsMusic() {
		return nil, nil
	}

	provider := p.registry.Music(ctx, musicProviderName, providerCredential(musicProviderName))

	reservationID, err := p.tracker.Reserve(runID, pilot.ID.String(), estimatedCost)
	if err != nil {
		return nil, err
	}

	outcome, err := provider.Generate(ctx, mood, totalDuration, tempo, providers.Options{})
	if err != nil {
		_ = p.tracker.Release(reservationID)
		return nil, err
	}
	if outcome.Kind == providers.OutcomeFailed || outcome.Media == nil {
		_ = p.tracker.Release(reservationID)
		reason := outcome.Reason
		if reason == "" {
			reason = "no media returned"
		}
		return nil, orcherr.New(orcherr.ProviderPermanent, "scenepipeline.music", nil).WithDetail("reason", reason)
	}

	localPath := fmt.Sprintf("runs/%s/audio/%s_music.mp3", runID, pilot.ID.String())
	if err := writeAudioBytes(localPath, outcome.Media.Bytes); err != nil {
		_ = p.tracker.Release(reservationID)
		return nil, err
	}

	asset := domain.MediaAsset{
		ID: uuid.New(), Kind: domain.MediaMusic,
		LocalPath: localPath, DurationSec: outcome.Media.DurationSec, CostUSD: estimatedCost,
		ProviderName: musicProviderName, CreatedAt: time.Now(),
	}
	if err := p.tracker.Commit(reservationID, estimatedCost, asset.ID.String()); err != nil {
		return nil, err
	}
	return &asset, nil
}
