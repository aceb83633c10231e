// Package journal implements the per-run append-only Run Journal:
// stage tracking, pilot/asset/error/warning accumulation, and crash-safe
// resumption. Grounded on the teacher's internal/db/jobs.go status-set
// conventions, adapted from Postgres rows to fsync'd on-disk JSON per
// the on-disk layout contract (runs/{run_id}/memory.json plus
// metadata.json on completion) — no pack repo implements a file-based
// append log, so the persistence mechanics are stdlib encoding/json and
// os, while the locking/fsync discipline follows the teacher's
// storage.go care around durable writes.
package journal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/productionorchestrator/orchestrator/internal/domain"
	"github.com/productionorchestrator/orchestrator/internal/orcherr"
)

// Stage is the closed set a run moves through. Advance sets CurrentStage
// to whichever stage it is given and does not check their order; the
// --resume path in cmd/orchestrator advances back to PLANNING_PILOTS.
type Stage string

const (
	StageInitialized     Stage = "INITIALIZED"
	StageAnalyzingAssets Stage = "ANALYZING_ASSETS"
	StagePlanningPilots  Stage = "PLANNING_PILOTS"
	StageGeneratingScripts Stage = "GENERATING_SCRIPTS"
	StageGeneratingVideo Stage = "GENERATING_VIDEO"
	StageGeneratingAudio Stage = "GENERATING_AUDIO"
	StageEvaluating      Stage = "EVALUATING"
	StageEditing         Stage = "EDITING"
	StageRendering       Stage = "RENDERING"
	StageCompleted       Stage = "COMPLETED"
	StageFailed          Stage = "FAILED"
)

// progressPercent is the UI-facing progress mapping for each stage.
var progressPercent = map[Stage]int{
	StageInitialized:       0,
	StageAnalyzingAssets:   5,
	StagePlanningPilots:    15,
	StageGeneratingScripts: 25,
	StageGeneratingVideo:   45,
	StageGeneratingAudio:   65,
	StageEvaluating:        80,
	StageEditing:           90,
	StageRendering:         97,
	StageCompleted:         100,
	StageFailed:            100,
}

func (s Stage) ProgressPercent() int { return progressPercent[s] }

// RunStatus mirrors the head's coarse lifecycle, distinct from Stage.
type RunStatus string

const (
	RunActive    RunStatus = "ACTIVE"
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// StageEvent is one append-only timeline entry. Seq is monotonically
// increasing per run with no gaps, per the ordering guarantee readers
// rely on for a total order.
type StageEvent struct {
	Seq        int            `json:"seq"`
	Stage      Stage          `json:"stage"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// ErrorRecord carries enough detail to diagnose a terminal failure
// without re-running: stage, error kind, provider, last prompt, and a
// truncated provider payload excerpt.
type ErrorRecord struct {
	Seq       int       `json:"seq"`
	Stage     Stage     `json:"stage"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Provider  string    `json:"provider,omitempty"`
	Excerpt   string    `json:"excerpt,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WarningRecord is a non-fatal note appended to the run.
type WarningRecord struct {
	Seq       int       `json:"seq"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Head is the mutable-in-place summary of a run: current stage,
// progress, and accumulated pilots/assets/errors/warnings. Record's
// Timeline field holds the append-only history alongside it.
type Head struct {
	RunID           string               `json:"run_id"`
	Concept         string               `json:"concept"`
	BudgetUSD       float64              `json:"budget_usd"`
	AudioTier       string               `json:"audio_tier"`
	Status          RunStatus            `json:"status"`
	CurrentStage    Stage                `json:"current_stage"`
	ProgressPercent int                  `json:"progress_percent"`
	Pilots          []domain.Pilot       `json:"pilots"`
	Assets          []domain.MediaAsset  `json:"assets"`
	Errors          []ErrorRecord        `json:"errors"`
	Warnings        []WarningRecord      `json:"warnings"`
	FinalPaths      map[string]string    `json:"final_paths,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
}

// Record is the full on-disk shape of memory.json: head plus timeline.
type Record struct {
	Head     Head         `json:"head"`
	Timeline []StageEvent `json:"timeline"`
	nextSeq  int
}

// Manager owns every run's journal file, one per-run lock each, per the
// concurrency model's "per-run lock for Journal with fsync-before-ack."
type Manager struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(basePath string) *Manager {
	return &Manager{basePath: basePath, locks: map[string]*sync.Mutex{}}
}

func (m *Manager) lockFor(runID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[runID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[runID] = l
	}
	return l
}

func (m *Manager) runDir(runID string) string  { return filepath.Join(m.basePath, runID) }
func (m *Manager) memoryPath(runID string) string {
	return filepath.Join(m.runDir(runID), "memory.json")
}
func (m *Manager) metadataPath(runID string) string {
	return filepath.Join(m.runDir(runID), "metadata.json")
}

// ensureTree creates the sub-trees the on-disk layout contract
// requires, alongside the journal file itself.
func (m *Manager) ensureTree(runID string) error {
	for _, sub := range []string{"scenes", "videos", "audio", "edl", "renders"} {
		if err := os.MkdirAll(filepath.Join(m.runDir(runID), sub), 0o755); err != nil {
			return orcherr.New(orcherr.JournalIO, "journal.ensure_tree", err)
		}
	}
	return nil
}

// writeFsync marshals v to path, fsyncs the file, then the containing
// directory, before returning — a write is never acknowledged until
// both are durable.
func writeFsync(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return orcherr.New(orcherr.JournalIO, "journal.write", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return orcherr.New(orcherr.JournalIO, "journal.write", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return orcherr.New(orcherr.JournalIO, "journal.write", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return orcherr.New(orcherr.JournalIO, "journal.write", err)
	}
	if err := f.Close(); err != nil {
		return orcherr.New(orcherr.JournalIO, "journal.write", err)
	}
	dir, err := os.Open(filepath.Dir(path))
	if err != nil {
		return orcherr.New(orcherr.JournalIO, "journal.write", err)
	}
	defer dir.Close()
	_ = dir.Sync() // best-effort directory entry durability
	return nil
}

func (m *Manager) readRecord(runID string) (*Record, error) {
	data, err := os.ReadFile(m.memoryPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, orcherr.New(orcherr.InputInvalid, "journal.read", err).WithDetail("run_id", runID)
		}
		return nil, orcherr.New(orcherr.JournalIO, "journal.read", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, orcherr.New(orcherr.JournalIO, "journal.read", err)
	}
	for _, ev := range rec.Timeline {
		if ev.Seq > rec.nextSeq {
			rec.nextSeq = ev.Seq
		}
	}
	return &rec, nil
}

func (m *Manager) persist(runID string, rec *Record) error {
	rec.Head.UpdatedAt = time.Now()
	return writeFsync(m.memoryPath(runID), rec)
}

// Begin creates a new run journal at INITIALIZED, 0%. A run_id that
// already has a journal is rejected — resume via Get/Advance instead.
func (m *Manager) Begin(ctx context.Context, runID, concept string, budgetUSD float64, audioTier string) (*Record, error) {
	lock := m.lockFor(runID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(m.memoryPath(runID)); err == nil {
		return nil, orcherr.New(orcherr.InputInvalid, "journal.begin", nil).WithDetail("run_id", runID).WithDetail("reason", "already exists")
	}
	if err := m.ensureTree(runID); err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &Record{
		Head: Head{
			RunID: runID, Concept: concept, BudgetUSD: budgetUSD, AudioTier: audioTier,
			Status: RunActive, CurrentStage: StageInitialized, ProgressPercent: 0,
			CreatedAt: now, UpdatedAt: now,
		},
		Timeline: []StageEvent{{Seq: 1, Stage: StageInitialized, StartedAt: now}},
		nextSeq:  1,
	}
	if err := m.persist(runID, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Advance appends a StageEvent closing out the prior open stage (if
// any) and opens the new one, updating the head's current stage and
// progress percent in place.
func (m *Manager) Advance(ctx context.Context, runID string, stage Stage, details map[string]any) error {
	lock := m.lockFor(runID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := m.readRecord(runID)
	if err != nil {
		return err
	}

	now := time.Now()
	if n := len(rec.Timeline); n > 0 && rec.Timeline[n-1].FinishedAt == nil {
		rec.Timeline[n-1].FinishedAt = &now
	}
	rec.nextSeq++
	rec.Timeline = append(rec.Timeline, StageEvent{
		Seq: rec.nextSeq, Stage: stage, StartedAt: now, Details: details,
	})
	rec.Head.CurrentStage = stage
	rec.Head.ProgressPercent = stage.ProgressPercent()
	return m.persist(runID, rec)
}

func (m *Manager) AddPilot(ctx context.Context, runID string, pilot domain.Pilot) error {
	lock := m.lockFor(runID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := m.readRecord(runID)
	if err != nil {
		return err
	}
	rec.Head.Pilots = append(rec.Head.Pilots, pilot)
	return m.persist(runID, rec)
}

func (m *Manager) UpdatePilot(ctx context.Context, runID string, pilot domain.Pilot) error {
	lock := m.lockFor(runID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := m.readRecord(runID)
	if err != nil {
		return err
	}
	for i := range rec.Head.Pilots {
		if rec.Head.Pilots[i].ID == pilot.ID {
			rec.Head.Pilots[i] = pilot
			return m.persist(runID, rec)
		}
	}
	return orcherr.New(orcherr.InputInvalid, "journal.update_pilot", nil).WithDetail("pilot_id", pilot.ID.String())
}

func (m *Manager) AddAsset(ctx context.Context, runID string, asset domain.MediaAsset) error {
	lock := m.lockFor(runID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := m.readRecord(runID)
	if err != nil {
		return err
	}
	rec.Head.Assets = append(rec.Head.Assets, asset)
	return m.persist(runID, rec)
}

func (m *Manager) AddError(ctx context.Context, runID string, stage Stage, kind, message, provider, excerpt string) error {
	lock := m.lockFor(runID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := m.readRecord(runID)
	if err != nil {
		return err
	}
	rec.nextSeq++
	rec.Head.Errors = append(rec.Head.Errors, ErrorRecord{
		Seq: rec.nextSeq, Stage: stage, Kind: kind, Message: message,
		Provider: provider, Excerpt: excerpt, Timestamp: time.Now(),
	})
	return m.persist(runID, rec)
}

func (m *Manager) AddWarning(ctx context.Context, runID, message string) error {
	lock := m.lockFor(runID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := m.readRecord(runID)
	if err != nil {
		return err
	}
	rec.nextSeq++
	rec.Head.Warnings = append(rec.Head.Warnings, WarningRecord{Seq: rec.nextSeq, Message: message, Timestamp: time.Now()})
	return m.persist(runID, rec)
}

// Complete closes the run, writing the terminal stage and the
// metadata.json file the layout contract requires on completion.
// Partial artifacts are never deleted, win or lose.
func (m *Manager) Complete(ctx context.Context, runID string, status RunStatus, finalPaths map[string]string) error {
	lock := m.lockFor(runID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := m.readRecord(runID)
	if err != nil {
		return err
	}

	now := time.Now()
	if n := len(rec.Timeline); n > 0 && rec.Timeline[n-1].FinishedAt == nil {
		rec.Timeline[n-1].FinishedAt = &now
	}
	terminalStage := StageCompleted
	if status == RunFailed {
		terminalStage = StageFailed
	}
	rec.Head.Status = status
	rec.Head.CurrentStage = terminalStage
	rec.Head.ProgressPercent = terminalStage.ProgressPercent()
	rec.Head.FinalPaths = finalPaths
	rec.Head.CompletedAt = &now

	if err := m.persist(runID, rec); err != nil {
		return err
	}
	return writeFsync(m.metadataPath(runID), rec.Head)
}

// Get loads a run's journal as it stands for resumption: inspect
// CurrentStage, skip completed stages whose outputs are present on
// disk, and re-execute whatever the latest stage left incomplete. Get
// never re-debits the budget tracker; that decision belongs to the
// caller driving resumption, not to the journal itself.
func (m *Manager) Get(ctx context.Context, runID string) (*Record, error) {
	lock := m.lockFor(runID)
	lock.Lock()
	defer lock.Unlock()
	return m.readRecord(runID)
}

// List returns the heads of up to limit runs under the journal's base
// path (all of them when limit is 0 or less), most recently updated first.
func (m *Manager) List(ctx context.Context, limit int) ([]Head, error) {
	entries, err := os.ReadDir(m.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, orcherr.New(orcherr.JournalIO, "journal.list", err)
	}

	var heads []Head
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		rec, err := m.readRecord(e.Name())
		if err != nil {
			continue
		}
		heads = append(heads, rec.Head)
	}
	sortHeadsByUpdatedDesc(heads)
	if limit > 0 && len(heads) > limit {
		heads = heads[:limit]
	}
	return heads, nil
}

func sortHeadsByUpdatedDesc(heads []Head) {
	for i := 1; i < len(heads); i++ {
		for j := i; j > 0 && heads[j].UpdatedAt.After(heads[j-1].UpdatedAt); j-- {
			heads[j], heads[j-1] = heads[j-1], heads[j]
		}
	}
}

// Delete removes a run's entire on-disk tree, including partial
// artifacts. Callers invoke this explicitly for cleanup; nothing in the
// orchestrator's own run loop deletes a run directory.
func (m *Manager) Delete(ctx context.Context, runID string) error {
	lock := m.lockFor(runID)
	lock.Lock()
	defer lock.Unlock()
	if err := os.RemoveAll(m.runDir(runID)); err != nil {
		return orcherr.New(orcherr.JournalIO, "journal.delete", err)
	}
	return nil
}
