// Package scenepipeline runs one pilot's Scene Pipeline: biased
// prompting, bounded-parallel per-scene fan-out across variations, QA
// scoring, winner selection, and parallel audio generation. Grounded on
// the teacher's internal/worker/worker.go dual-pipeline
// errgroup.WithContext + semaphore pattern (handleProcessClip) and
// internal/services/openai.go's prompt-building idiom, generalized from
// one fixed video+TTS call per clip to N video variations plus an
// audio tier ladder per scene.
package scenepipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/google/uuid"

	"github.com/productionorchestrator/orchestrator/internal/budget"
	"github.com/productionorchestrator/orchestrator/internal/domain"
	"github.com/productionorchestrator/orchestrator/internal/figuregraph"
	"github.com/productionorchestrator/orchestrator/internal/jobqueue"
	"github.com/productionorchestrator/orchestrator/internal/learnings"
	"github.com/productionorchestrator/orchestrator/internal/orcherr"
	"github.com/productionorchestrator/orchestrator/internal/providers"
	"github.com/productionorchestrator/orchestrator/internal/telemetry"
)

// Config bounds the pipeline's fan-out and polling behavior.
type Config struct {
	MaxParallelScenes int
	PollMinInterval   time.Duration
	PollMaxDuration   time.Duration
	MaxRetries        int
	AudioSync         AudioSyncConfig
	VisionHook        VisionHook // optional; nil uses the deterministic heuristic
}

// Pipeline wires the shared singletons every scene-level operation
// consults: the provider registry, the Budget Tracker, the job
// supervisor, and the Learnings Store.
type Pipeline struct {
	registry *providers.Registry
	tracker  *budget.Tracker
	queue    jobqueue.Queue
	store    learnings.Store
	cfg      Config
}

func New(registry *providers.Registry, tracker *budget.Tracker, queue jobqueue.Queue, store learnings.Store, cfg Config) *Pipeline {
	if cfg.MaxParallelScenes <= 0 {
		cfg.MaxParallelScenes = 1
	}
	return &Pipeline{registry: registry, tracker: tracker, queue: queue, store: store, cfg: cfg}
}

// VariationResult is one scored, downloaded candidate for a scene.
type VariationResult struct {
	Asset domain.MediaAsset
	Score QAScore
	Error string
}

// SceneOutcome is the Scene Pipeline's per-scene result: the winning
// asset (nil if the scene failed) plus every variation for audit.
type SceneOutcome struct {
	Scene        domain.Scene
	Winner       *domain.MediaAsset
	WinnerScore  *QAScore
	Variations   []VariationResult
	Failed       bool
	DeficitReason string
	AudioAsset   *domain.MediaAsset
}

// biasedPrompt builds the prologue-injected prompt from §4.5 step 1:
// provider-scoped learnings plus an optional figure-graph seed image.
func (p *Pipeline) biasedPrompt(ctx context.Context, providerID string, rc learnings.RetrievalContext, scene domain.Scene, figures *figuregraph.Cache) (string, string) {
	var b strings.Builder
	b.WriteString(scene.Description)
	if scene.VoiceoverText != "" {
		fmt.Fprintf(&b, " Narration: %s.", scene.VoiceoverText)
	}

	namespaces := learnings.ApplicableNamespaces(providerID, rc)
	var nsPaths []string
	for _, ns := range namespaces {
		nsPaths = append(nsPaths, ns.Build())
	}
	if p.store != nil && len(nsPaths) > 0 {
		results, err := p.store.Search(ctx, nsPaths, scene.Description, 5, nil)
		if err == nil && len(results) > 0 {
			b.WriteString(" Guidance:")
			for _, r := range results {
				fmt.Fprintf(&b, " %s", r.Learning.Content)
			}
		}
	}

	var seedImage string
	if figures != nil {
		if matches := figures.Match(scene.ID.String(), scene.VisualElements); len(matches) > 0 {
			best := matches[0].Figure
			fmt.Fprintf(&b, " Feature %s consistent with established appearance.", best.Name)
			seedImage = best.SeedImagePath
		}
	}
	return b.String(), seedImage
}

// generateVariation runs one reserve -> submit -> poll -> download ->
// commit/release cycle for a single video variation.
func (p *Pipeline) generateVariation(ctx context.Context, runID string, pilot domain.Pilot, scene domain.Scene, variationIdx int, providerName, prompt, aspectRatio string, estimatedCost float64) (domain.MediaAsset, error) {
	log := telemetry.ForScene(runID, pilot.ID.String(), scene.ID.String())
	provider := p.registry.Video(ctx, providerName, providerCredential(providerName))

	reservationID, err := p.tracker.Reserve(runID, pilot.ID.String(), estimatedCost)
	if err != nil {
		return domain.MediaAsset{}, err
	}

	outcome, err := provider.Generate(ctx, prompt, scene.TargetDuration, aspectRatio, providers.Options{"variation": variationIdx})
	if err != nil {
		_ = p.tracker.Release(reservationID)
		return domain.MediaAsset{}, err
	}

	media, err := p.awaitOutcome(ctx, provider, outcome)
	if err != nil {
		_ = p.tracker.Release(reservationID)
		return domain.MediaAsset{}, err
	}

	localPath := fmt.Sprintf("runs/%s/videos/%s_v%d.mp4", runID, scene.ID.String(), variationIdx)
	ok, err := provider.Download(ctx, media.URL, localPath)
	if err != nil || !ok {
		_ = p.tracker.Release(reservationID)
		if err == nil {
			err = orcherr.New(orcherr.ProviderTransient, "scenepipeline.download", nil)
		}
		return domain.MediaAsset{}, err
	}

	actualCost := estimatedCost
	asset := domain.MediaAsset{
		ID: uuid.New(), Kind: domain.MediaVideo, SceneID: &scene.ID,
		LocalPath: localPath, DurationSec: media.DurationSec, CostUSD: actualCost,
		ProviderName: providerName, CreatedAt: time.Now(),
		Metadata: map[string]any{"width": media.Width, "height": media.Height, "variation": variationIdx},
	}
	if err := p.tracker.Commit(reservationID, actualCost, asset.ID.String()); err != nil {
		return domain.MediaAsset{}, err
	}
	log.Debug().Str("asset_id", asset.ID.String()).Msg("scene variation downloaded")
	return asset, nil
}

// awaitOutcome resolves a GenerateOutcome to a MediaRef, driving an
// async job through the shared job supervisor when the provider
// returned Pending.
func (p *Pipeline) awaitOutcome(ctx context.Context, provider providers.VideoProvider, outcome providers.GenerateOutcome) (providers.MediaRef, error) {
	switch outcome.Kind {
	case providers.OutcomeSucceeded:
		return *outcome.Media, nil
	case providers.OutcomeFailed:
		return providers.MediaRef{}, orcherr.New(orcherr.ProviderPermanent, "scenepipeline.generate", nil).WithDetail("reason", outcome.Reason)
	case providers.OutcomePending:
		return p.pollJob(ctx, provider, *outcome.Job)
	default:
		return providers.MediaRef{}, orcherr.New(orcherr.ProviderPermanent, "scenepipeline.generate", nil).WithDetail("reason", "unknown outcome kind")
	}
}

func (p *Pipeline) pollJob(ctx context.Context, provider providers.VideoProvider, job providers.JobHandle) (providers.MediaRef, error) {
	deadline := time.Now().Add(p.cfg.PollMaxDuration)
	var finalOutcome providers.GenerateOutcome

	qjob := &jobqueue.Job{
		ID: job.ID, ProviderTag: job.ProviderTag, MinInterval: p.cfg.PollMinInterval,
		MaxInterval: p.cfg.PollMaxDuration, Deadline: deadline,
		Poll: func(ctx context.Context) (bool, error) {
			out, err := provider.Poll(ctx, job)
			if err != nil {
				return false, err
			}
			switch out.Kind {
			case providers.OutcomeSucceeded, providers.OutcomeFailed:
				finalOutcome = out
				return true, nil
			default:
				return false, nil
			}
		},
	}
	done := p.queue.Submit(qjob)
	if err := <-done; err != nil {
		return providers.MediaRef{}, err
	}

	if finalOutcome.Kind == providers.OutcomeFailed {
		return providers.MediaRef{}, orcherr.New(orcherr.ProviderPermanent, "scenepipeline.poll", nil).WithDetail("reason", finalOutcome.Reason)
	}
	if finalOutcome.Media == nil {
		return providers.MediaRef{}, orcherr.New(orcherr.ProviderPermanent, "scenepipeline.poll", nil).WithDetail("reason", "no media on success")
	}
	return *finalOutcome.Media, nil
}

func providerCredential(name string) string {
	return name // credential resolution/fingerprinting happens at the secrets layer; the registry only needs something stable to fingerprint
}

// RunScene executes the full per-scene pipeline: biased prompt, fan out
// variationsPerScene jobs, score, pick a winner above passThreshold.
func (p *Pipeline) RunScene(ctx context.Context, runID string, pilot domain.Pilot, scene domain.Scene, providerID string, variationsPerScene int, passThreshold float64, rc learnings.RetrievalContext, figures *figuregraph.Cache, estimatedCostPerVariation float64) SceneOutcome {
	prompt, _ := p.biasedPrompt(ctx, providerID, rc, scene, figures)

	results := make([]VariationResult, variationsPerScene)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < variationsPerScene; i++ {
		i := i
		g.Go(func() error {
			asset, err := p.generateVariation(gctx, runID, pilot, scene, i, providerID, prompt, "16:9", estimatedCostPerVariation)
			if err != nil {
				results[i] = VariationResult{Error: err.Error()}
				return nil // a failed variation doesn't abort the whole scene
			}
			score, scoreErr := scoreAsset(gctx, asset, p.cfg.VisionHook)
			if scoreErr != nil {
				results[i] = VariationResult{Asset: asset, Error: scoreErr.Error()}
				return nil
			}
			results[i] = VariationResult{Asset: asset, Score: score}
			return nil
		})
	}
	_ = g.Wait()

	outcome := SceneOutcome{Scene: scene, Variations: results}
	var best *VariationResult
	for i := range results {
		r := &results[i]
		if r.Error != "" || r.Score.Overall < passThreshold {
			continue
		}
		if best == nil || r.Score.Overall > best.Score.Overall ||
			(r.Score.Overall == best.Score.Overall && r.Asset.CostUSD < best.Asset.CostUSD) {
			best = r
		}
	}
	if best == nil {
		outcome.Failed = true
		outcome.DeficitReason = "no variation cleared the pass threshold"
		return outcome
	}
	outcome.Winner = &best.Asset
	outcome.WinnerScore = &best.Score
	return outcome
}

// RunPilotScenes runs every scene in a pilot with bounded parallelism
// (min(scene_count, max_parallel_scenes)), per §4.5 step 2.
func (p *Pipeline) RunPilotScenes(ctx context.Context, runID string, pilot domain.Pilot, scenes []domain.Scene, providerID string, variationsPerScene int, passThreshold float64, rc learnings.RetrievalContext, figures *figuregraph.Cache, estimatedCostPerVariation float64) []SceneOutcome {
	limit := p.cfg.MaxParallelScenes
	if limit > len(scenes) {
		limit = len(scenes)
	}
	if limit <= 0 {
		limit = 1
	}
	sem := semaphore.NewWeighted(int64(limit))
	outcomes := make([]SceneOutcome, len(scenes))

	var wg errgroup.Group
	for i, scene := range scenes {
		i, scene := i, scene
		wg.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				outcomes[i] = SceneOutcome{Scene: scene, Failed: true, DeficitReason: "cancelled before start"}
				return nil
			}
			defer sem.Release(1)
			outcomes[i] = p.RunScene(ctx, runID, pilot, scene, providerID, variationsPerScene, passThreshold, rc, figures, estimatedCostPerVariation)
			return nil
		})
	}
	_ = wg.Wait()
	return outcomes
}
