package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/productionorchestrator/orchestrator/internal/assembler"
	"github.com/productionorchestrator/orchestrator/internal/assembly"
	"github.com/productionorchestrator/orchestrator/internal/budget"
	"github.com/productionorchestrator/orchestrator/internal/config"
	"github.com/productionorchestrator/orchestrator/internal/domain"
	"github.com/productionorchestrator/orchestrator/internal/figuregraph"
	"github.com/productionorchestrator/orchestrator/internal/jobqueue"
	"github.com/productionorchestrator/orchestrator/internal/jobqueue/inmemqueue"
	"github.com/productionorchestrator/orchestrator/internal/jobqueue/redisqueue"
	"github.com/productionorchestrator/orchestrator/internal/journal"
	"github.com/productionorchestrator/orchestrator/internal/learnings"
	"github.com/productionorchestrator/orchestrator/internal/learnings/hostedstore"
	"github.com/productionorchestrator/orchestrator/internal/learnings/localstore"
	"github.com/productionorchestrator/orchestrator/internal/orcherr"
	"github.com/productionorchestrator/orchestrator/internal/pilotscheduler"
	"github.com/productionorchestrator/orchestrator/internal/providers"
	"github.com/productionorchestrator/orchestrator/internal/providers/cartesia"
	"github.com/productionorchestrator/orchestrator/internal/providers/elevenlabs"
	"github.com/productionorchestrator/orchestrator/internal/providers/geminiimg"
	"github.com/productionorchestrator/orchestrator/internal/providers/mock"
	"github.com/productionorchestrator/orchestrator/internal/providers/openaitts"
	"github.com/productionorchestrator/orchestrator/internal/providers/stub"
	"github.com/productionorchestrator/orchestrator/internal/providers/xaivideo"
	"github.com/productionorchestrator/orchestrator/internal/runregistry"
	"github.com/productionorchestrator/orchestrator/internal/scenepipeline"
	"github.com/productionorchestrator/orchestrator/internal/scripting"
	"github.com/productionorchestrator/orchestrator/internal/telemetry"
)

// resources holds every long-lived component wired up at startup, so a
// single run (or a resumed one) can reach all of them without threading
// a dozen separate parameters through every function.
type resources struct {
	cfg        *config.Config
	tracker    *budget.Tracker
	queue      jobqueue.Queue
	registry   *providers.Registry
	store      learnings.Store
	journalMgr *journal.Manager
	registryDB *runregistry.Registry // nil unless DATABASE_URL is set
	figures    *figuregraph.Cache
	pipeline   *scenepipeline.Pipeline
	scheduler  *pilotscheduler.Scheduler
	writer     scripting.Writer
	planner    *assembly.Planner
	render     *assembler.Assembler
}

func main() {
	concept := flag.String("concept", "", "brief concept text")
	targetDuration := flag.Float64("duration", 30, "target duration in seconds")
	budgetUSD := flag.Float64("budget", 5.0, "budget in USD")
	resumeRunID := flag.String("resume", "", "resume an existing run_id instead of starting a new one")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	telemetry.Configure(telemetry.Config{Level: cfg.LogLevel, Service: "orchestrator"})
	log := telemetry.ForRun("startup")

	res, err := build(cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to construct components")
		os.Exit(orcherr.KindOf(err).ExitCode())
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	queueCtx, queueCancel := context.WithCancel(rootCtx)
	go res.queue.Run(queueCtx)

	server := &http.Server{Addr: ":8081", Handler: statusMux(res)}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("status server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("status server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	runDone := make(chan error, 1)
	var runID string
	go func() {
		var runErr error
		runID, runErr = runOnce(rootCtx, res, *resumeRunID, *concept, *targetDuration, *budgetUSD)
		runDone <- runErr
	}()

	var exitCode int
	select {
	case <-quit:
		log.Info().Msg("shutdown signal received, cancelling run")
		rootCancel()
		<-runDone
		exitCode = orcherr.Cancelled.ExitCode()
	case runErr := <-runDone:
		if runErr != nil {
			log.Error().Err(runErr).Str("run_id", runID).Msg("run failed")
			exitCode = orcherr.KindOf(runErr).ExitCode()
		} else {
			log.Info().Str("run_id", runID).Msg("run completed")
		}
	}

	queueCancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("status server forced shutdown")
	}
	rootCancel()

	os.Exit(exitCode)
}

// build wires every component in the order the teacher's cmd/api/main.go
// follows: config, then storage/queue substrates, then the things that
// consume them, conditionally selecting live provider factories and
// back-ends from whichever credentials cfg actually carries.
func build(cfg *config.Config) (*resources, error) {
	tracker := budget.New(cfg.OverheadFactor)

	var queue jobqueue.Queue
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		q, err := redisqueue.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, orcherr.New(orcherr.JournalIO, "build.redisqueue", err)
		}
		queue = q
	} else {
		queue = inmemqueue.New(cfg.MaxParallelScenes * 2)
	}

	registry := providers.New(mock.NewVideo(), mock.NewAudio(), mock.NewImage(), mock.NewMusic())
	registerProviders(registry, cfg)

	var store learnings.Store
	if cfg.UsesHostedLearnings() {
		// AgentCore Memory's base URL is regional, not itself a
		// separately-configured secret — derived from AWS_REGION, the
		// one AWS-shaped variable the closed environment set carries.
		baseURL := fmt.Sprintf("https://bedrock-agentcore.%s.amazonaws.com", cfg.AWSRegion)
		store = hostedstore.New(baseURL, cfg.AgentCoreMemoryID, "", cfg.MaxRetries)
	} else {
		dbPath := filepath.Join(cfg.MemoryBasePath, "learnings.db")
		s, err := localstore.New(dbPath, cfg.MemoryBasePath)
		if err != nil {
			return nil, orcherr.New(orcherr.JournalIO, "build.localstore", err)
		}
		store = s
	}

	journalMgr := journal.NewManager(filepath.Join(cfg.MemoryBasePath, "runs"))

	var reg *runregistry.Registry
	if cfg.DatabaseURL != "" {
		r, err := runregistry.New(cfg.DatabaseURL)
		if err != nil {
			return nil, orcherr.New(orcherr.JournalIO, "build.runregistry", err)
		}
		if err := runregistry.Rebuild(context.Background(), r, journalMgr); err != nil {
			return nil, orcherr.New(orcherr.JournalIO, "build.runregistry.rebuild", err)
		}
		reg = r
	}

	// The figure knowledge graph is produced by the document-ingestion
	// pipeline (an external collaborator, §6) and simply read here if
	// present; a missing file is not an error (figuregraph.Load).
	graph, err := figuregraph.Load(filepath.Join(cfg.MemoryBasePath, "figures.json"))
	if err != nil {
		return nil, orcherr.New(orcherr.InputInvalid, "build.figuregraph", err)
	}
	figures := figuregraph.NewCache(graph)

	pipeline := scenepipeline.New(registry, tracker, queue, store, scenepipeline.Config{
		MaxParallelScenes: cfg.MaxParallelScenes,
		PollMinInterval:   time.Duration(cfg.PollMinInterval) * time.Second,
		PollMaxDuration:   time.Duration(cfg.PollMaxDuration) * time.Second,
		MaxRetries:        cfg.MaxRetries,
	})

	scheduler := pilotscheduler.New(pipeline, tracker, journalMgr, pilotscheduler.HeuristicEvaluator{}, store, pilotscheduler.Config{
		MaxConcurrentPilots:       cfg.MaxConcurrentPilots,
		ReserveFraction:           cfg.ReserveFraction,
		EarlyTermination:         true,
		EarlyTerminationThreshold: 80,
	})

	var writer scripting.Writer
	if cfg.OpenAIKey != "" {
		writer = scripting.NewOpenAIWriter(cfg.OpenAIKey)
	} else {
		writer = scripting.DeterministicWriter{}
	}

	return &resources{
		cfg:        cfg,
		tracker:    tracker,
		queue:      queue,
		registry:   registry,
		store:      store,
		journalMgr: journalMgr,
		registryDB: reg,
		figures:    figures,
		pipeline:   pipeline,
		scheduler:  scheduler,
		writer:     writer,
		planner:    assembly.New(assembly.Config{}),
		render:     assembler.New(filepath.Join(cfg.MemoryBasePath, "tmp")),
	}, nil
}

// stubVideoNames, stubImageNames, stubAudioNames, and stubMusicNames are
// the named vendors the retrieved corpus references but never
// demonstrates a Go HTTP client for. Each gets its own named STUB entry.
// A stub never validates credentials, so resolving one of these names
// through the registry yields the capability's mock provider; the stub's
// NOT_IMPLEMENTED result is only seen when it is called directly.
var (
	stubVideoNames = []string{"luma", "runway", "kling", "pika"}
	stubImageNames = []string{"stability", "dalle", "wikimedia"}
	stubAudioNames = []string{"google_tts", "inworld"}
	stubMusicNames = []string{"mubert", "suno"}
)

// registerProviders registers every live factory this process has
// credentials for, then a named STUB entry for every vendor the corpus
// names but supplies no Go client for — ValidateCredentials always
// fails on a stub, so the registry falls back to mock transparently
// once a caller actually tries to resolve one.
func registerProviders(registry *providers.Registry, cfg *config.Config) {
	if cfg.XAIAPIKey != "" {
		registry.RegisterVideo(xaivideo.ProviderName, func(string) providers.VideoProvider {
			return xaivideo.New(cfg.XAIAPIKey, cfg.MaxRetries)
		})
	}
	for _, name := range stubVideoNames {
		registry.RegisterVideo(name, func(name string) providers.VideoProvider { return stub.NewVideo(name) })
	}

	if cfg.GeminiAPIKey != "" {
		registry.RegisterImage(geminiimg.ProviderName, func(string) providers.ImageProvider {
			return geminiimg.New(cfg.GeminiAPIKey, cfg.MaxRetries)
		})
	}
	for _, name := range stubImageNames {
		registry.RegisterImage(name, func(name string) providers.ImageProvider { return stub.NewImage(name) })
	}

	if cfg.ElevenLabsKey != "" {
		registry.RegisterAudio(elevenlabs.ProviderName, func(string) providers.AudioProvider {
			return elevenlabs.New(cfg.ElevenLabsKey, cfg.MaxRetries)
		})
	}
	if cfg.CartesiaKey != "" {
		registry.RegisterAudio(cartesia.ProviderName, func(string) providers.AudioProvider {
			return cartesia.New(cfg.CartesiaKey, "https://api.cartesia.ai", cfg.MaxRetries)
		})
	}
	if cfg.OpenAIKey != "" {
		registry.RegisterAudio(openaitts.ProviderName, func(string) providers.AudioProvider {
			return openaitts.New(cfg.OpenAIKey)
		})
	}
	for _, name := range stubAudioNames {
		registry.RegisterAudio(name, func(name string) providers.AudioProvider { return stub.NewAudio(name) })
	}

	for _, name := range stubMusicNames {
		registry.RegisterMusic(name, func(name string) providers.MusicProvider { return stub.NewMusic(name) })
	}
}

// runOnce drives one Brief through the Pilot Scheduler, Assembly
// Planner, and external assembler, checkpointing every stage through
// the Run Journal. With --resume it reloads the run's concept and budget
// from the journal and runs the scheduler again for every tier: completed
// pilots are not skipped, and spend committed before the interruption is
// not counted against the budget.
func runOnce(ctx context.Context, res *resources, resumeRunID, concept string, targetDuration, budgetUSD float64) (string, error) {
	runID := resumeRunID
	var brief domain.Brief
	if runID == "" {
		runID = uuid.NewString()
		brief = domain.Brief{
			ID:             uuid.New(),
			Concept:        concept,
			TargetDuration: targetDuration,
			BudgetUSD:      budgetUSD,
			CreatedAt:      time.Now(),
		}
		if err := brief.Validate(); err != nil {
			return runID, orcherr.New(orcherr.InputInvalid, "runOnce.validate", err)
		}
		if _, err := res.journalMgr.Begin(ctx, runID, brief.Concept, brief.BudgetUSD, "SIMPLE_OVERLAY"); err != nil {
			return runID, orcherr.New(orcherr.JournalIO, "runOnce.begin", err)
		}
	} else {
		rec, err := res.journalMgr.Get(ctx, runID)
		if err != nil {
			return runID, orcherr.New(orcherr.JournalIO, "runOnce.resume", err)
		}
		brief = domain.Brief{ID: uuid.New(), Concept: rec.Head.Concept, TargetDuration: targetDuration, BudgetUSD: rec.Head.BudgetUSD, CreatedAt: rec.Head.CreatedAt}
	}

	log := telemetry.ForRun(runID)
	_ = res.journalMgr.Advance(ctx, runID, journal.StagePlanningPilots, nil)

	rc := learnings.RetrievalContext{OrgID: res.cfg.MemoryOrgID, ActorID: res.cfg.MemoryActorID, Role: learnings.RoleActor}

	scenesFor := func(pilot domain.Pilot) []domain.Scene {
		scenes, err := res.writer.Write(ctx, brief, pilot)
		if err != nil {
			log.Warn().Err(err).Str("pilot_id", pilot.ID.String()).Msg("scripting failed, pilot will have no scenes")
			return nil
		}
		return scenes
	}

	_ = res.journalMgr.Advance(ctx, runID, journal.StageGeneratingVideo, nil)
	// The scheduler resolves one video provider name for the whole run
	// rather than per-pilot-tier; xaivideo is the default tiers'
	// (ANIMATED, PHOTOREALISTIC) preferred provider per
	// domain.TierProfiles, and the registry itself falls back to mock
	// whenever credentials are missing or invalid.
	result, err := res.scheduler.Run(ctx, runID, brief, nil, scenesFor, xaivideo.ProviderName, rc, res.figures)
	if err != nil {
		_ = res.journalMgr.Advance(ctx, runID, journal.StageFailed, map[string]any{"error": err.Error()})
		_ = res.journalMgr.Complete(ctx, runID, journal.RunFailed, nil)
		return runID, orcherr.New(orcherr.ProviderPermanent, "runOnce.scheduler", err)
	}

	if result.Winner == nil {
		_ = res.journalMgr.Complete(ctx, runID, journal.RunFailed, nil)
		return runID, orcherr.New(orcherr.ProviderPermanent, "runOnce.no_winner", fmt.Errorf("no pilot was approved"))
	}

	_ = res.journalMgr.Advance(ctx, runID, journal.StageEditing, nil)
	edl, finalPaths := planAndRender(ctx, res, runID, brief, *result.Winner, result.SceneOutcome[result.Winner.ID.String()])

	_ = res.journalMgr.Advance(ctx, runID, journal.StageCompleted, map[string]any{"edl_id": edl.EDLID})
	if err := res.journalMgr.Complete(ctx, runID, journal.RunCompleted, finalPaths); err != nil {
		return runID, orcherr.New(orcherr.JournalIO, "runOnce.complete", err)
	}
	if res.registryDB != nil {
		if head, err := res.journalMgr.Get(ctx, runID); err == nil {
			_ = res.registryDB.Upsert(ctx, head.Head, res.tracker.Committed(runID))
		}
	}
	return runID, nil
}

// planAndRender builds the EDL for the winning pilot's scenes and, if a
// local ffmpeg/ffprobe installation is present, renders the recommended
// candidate. A missing ffmpeg is non-fatal — the run still completes
// with just the EDL, per §6.
func planAndRender(ctx context.Context, res *resources, runID string, brief domain.Brief, winner domain.Pilot, outcomes []scenepipeline.SceneOutcome) (domain.EditDecisionList, map[string]string) {
	inputs := make([]assembly.SceneInput, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Failed || o.Winner == nil {
			continue
		}
		inputs = append(inputs, assembly.SceneInput{Scene: o.Scene, Winner: *o.Winner})
	}

	edl := res.planner.Plan(runID, brief.Concept, inputs)
	finalPaths := map[string]string{}

	info := res.render.CheckInstalled(ctx)
	if !info.Installed {
		return edl, finalPaths
	}

	var candidate domain.EditCandidate
	for _, c := range edl.Candidates {
		if c.CandidateID == edl.RecommendedCandidateID {
			candidate = c
		}
	}
	tracks := assembly.BuildAudioTracks(candidate, "")
	result := res.render.Render(ctx, edl, edl.RecommendedCandidateID, tracks, runID)
	if result.Success {
		finalPaths["video"] = result.OutputPath
	}
	return edl, finalPaths
}

// statusMux is the minimal readiness surface the teacher's dashboard API
// is explicitly not — §1's "CLI surface and web dashboard" non-goals
// exclude project/clip CRUD, not a bare health check.
func statusMux(res *resources) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET"}}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","providers":%q}`, fmt.Sprintf("%v", res.registry.ActualProviders))
	})
	return r
}
