// Package localstore is the Learnings Store's local back-end: a
// modernc.org/sqlite database for durable concurrent access (grounded
// on aladin2907-overhuman's internal/memory/longterm.go sqlite-open +
// WAL-mode idiom), plus a JSON mirror per namespace under
// memory/{namespace-as-path}.json per §6's on-disk layout contract.
// Search uses pure Go word-overlap scoring (learnings.WordOverlapScore),
// not sqlite FTS5 — the spec reserves semantic scoring for the hosted
// back-end only.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"
	"github.com/productionorchestrator/orchestrator/internal/domain"
	"github.com/productionorchestrator/orchestrator/internal/learnings"
	"github.com/productionorchestrator/orchestrator/internal/orcherr"
)

type namespaceFile struct {
	Namespace   string           `json:"namespace"`
	UpdatedAt   time.Time        `json:"updated_at"`
	RecordCount int              `json:"record_count"`
	Records     []domain.Learning `json:"records"`
}

// Store is the local Learnings back-end. One instance per process.
// Each namespace gets its own in-process lock, per §5's "dedicated lock
// per namespace" requirement — fine-grained rather than one global
// mutex across every namespace.
type Store struct {
	db       *sql.DB
	basePath string

	nsLocksMu sync.Mutex
	nsLocks   map[string]*sync.Mutex
}

var _ learnings.Store = (*Store)(nil)

// New opens (creating if absent) the sqlite database at dbPath and
// ensures basePath exists for the JSON mirror tree.
func New(dbPath, basePath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, orcherr.New(orcherr.JournalIO, "localstore.new", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS learnings (
		id TEXT PRIMARY KEY,
		namespace TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`); err != nil {
		return nil, orcherr.New(orcherr.JournalIO, "localstore.new", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_learnings_namespace ON learnings(namespace)`); err != nil {
		return nil, orcherr.New(orcherr.JournalIO, "localstore.new", err)
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, orcherr.New(orcherr.JournalIO, "localstore.new", err)
	}
	return &Store{db: db, basePath: basePath, nsLocks: map[string]*sync.Mutex{}}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) lockFor(namespace string) *sync.Mutex {
	s.nsLocksMu.Lock()
	defer s.nsLocksMu.Unlock()
	l, ok := s.nsLocks[namespace]
	if !ok {
		l = &sync.Mutex{}
		s.nsLocks[namespace] = l
	}
	return l
}

func (s *Store) mirrorPath(namespace string) (string, error) {
	ns, err := domain.Parse(namespace)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, ns.Path()+".json"), nil
}

func (s *Store) Create(ctx context.Context, l domain.Learning) (string, error) {
	lock := s.lockFor(l.Namespace)
	lock.Lock()
	defer lock.Unlock()

	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	l.UpdatedAt = l.CreatedAt

	data, err := json.Marshal(l)
	if err != nil {
		return "", orcherr.New(orcherr.InputInvalid, "localstore.create", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO learnings (id, namespace, data, created_at) VALUES (?, ?, ?, ?)`,
		l.ID, l.Namespace, data, l.CreatedAt.Format(time.RFC3339Nano)); err != nil {
		return "", orcherr.New(orcherr.JournalIO, "localstore.create", err)
	}

	if err := s.writeMirror(l.Namespace); err != nil {
		return "", err
	}
	return l.ID, nil
}

func (s *Store) Get(ctx context.Context, namespace, id string) (domain.Learning, error) {
	return s.getLocked(ctx, namespace, id)
}

// getLocked reads one record. Safe to call either unlocked (Get) or
// with the namespace lock already held (Validate) — it takes no lock
// of its own, matching sqlite's own internal serialization.
func (s *Store) getLocked(ctx context.Context, namespace, id string) (domain.Learning, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM learnings WHERE namespace = ? AND id = ?`, namespace, id)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return domain.Learning{}, orcherr.New(orcherr.InputInvalid, "localstore.get", err)
		}
		return domain.Learning{}, orcherr.New(orcherr.JournalIO, "localstore.get", err)
	}
	var l domain.Learning
	if err := json.Unmarshal(data, &l); err != nil {
		return domain.Learning{}, orcherr.New(orcherr.JournalIO, "localstore.get", err)
	}
	return l, nil
}

func (s *Store) Update(ctx context.Context, l domain.Learning) error {
	lock := s.lockFor(l.Namespace)
	lock.Lock()
	defer lock.Unlock()
	return s.updateLocked(ctx, l)
}

// updateLocked writes one record. Callers must hold the namespace lock
// for l.Namespace before calling this.
func (s *Store) updateLocked(ctx context.Context, l domain.Learning) error {
	l.UpdatedAt = time.Now()
	data, err := json.Marshal(l)
	if err != nil {
		return orcherr.New(orcherr.InputInvalid, "localstore.update", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE learnings SET data = ? WHERE namespace = ? AND id = ?`, data, l.Namespace, l.ID)
	if err != nil {
		return orcherr.New(orcherr.JournalIO, "localstore.update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return orcherr.New(orcherr.InputInvalid, "localstore.update", nil).WithDetail("id", l.ID)
	}
	return s.writeMirror(l.Namespace)
}

func (s *Store) Delete(ctx context.Context, namespace, id string) error {
	lock := s.lockFor(namespace)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM learnings WHERE namespace = ? AND id = ?`, namespace, id); err != nil {
		return orcherr.New(orcherr.JournalIO, "localstore.delete", err)
	}
	return s.writeMirror(namespace)
}

func (s *Store) List(ctx context.Context, namespace string, limit, offset int, tags []string) ([]domain.Learning, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM learnings WHERE namespace = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		namespace, limit, offset)
	if err != nil {
		return nil, orcherr.New(orcherr.JournalIO, "localstore.list", err)
	}
	defer rows.Close()

	var out []domain.Learning
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, orcherr.New(orcherr.JournalIO, "localstore.list", err)
		}
		var l domain.Learning
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, orcherr.New(orcherr.JournalIO, "localstore.list", err)
		}
		if hasAnyTag(l.Tags, tags) {
			out = append(out, l)
		}
	}
	return out, nil
}

func hasAnyTag(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := map[string]bool{}
	for _, t := range have {
		set[t] = true
	}
	for _, t := range want {
		if set[t] {
			return true
		}
	}
	return false
}

func (s *Store) Search(ctx context.Context, namespaces []string, queryText string, topK int, tags []string) ([]domain.SearchResult, error) {
	var results []domain.SearchResult
	for _, ns := range namespaces {
		records, err := s.List(ctx, ns, 1000, 0, tags)
		if err != nil {
			continue
		}
		for _, l := range records {
			score := learnings.WordOverlapScore(queryText, l.TextForSearch)
			if score > 0 {
				results = append(results, domain.SearchResult{Learning: l, Score: score})
			}
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *Store) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM learnings WHERE namespace = ?`, namespace)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, orcherr.New(orcherr.JournalIO, "localstore.namespace_exists", err)
	}
	return n > 0, nil
}

func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	lock := s.lockFor(namespace)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM learnings WHERE namespace = ?`, namespace); err != nil {
		return orcherr.New(orcherr.JournalIO, "localstore.delete_namespace", err)
	}
	path, err := s.mirrorPath(namespace)
	if err == nil {
		_ = os.Remove(path)
	}
	return nil
}

// Validate holds the namespace lock across the whole read-modify-write
// so two concurrent Validate calls on the same record can't both read
// the pre-update Validations/Confidence and silently drop one increment.
func (s *Store) Validate(ctx context.Context, namespace, id string, success bool) error {
	lock := s.lockFor(namespace)
	lock.Lock()
	defer lock.Unlock()

	l, err := s.getLocked(ctx, namespace, id)
	if err != nil {
		return err
	}
	l.ApplyValidation(success, 0.1)
	return s.updateLocked(ctx, l)
}

// writeMirror rewrites the namespace's JSON mirror file, called with
// the namespace lock held.
func (s *Store) writeMirror(namespace string) error {
	rows, err := s.db.Query(`SELECT data FROM learnings WHERE namespace = ? ORDER BY created_at DESC`, namespace)
	if err != nil {
		return orcherr.New(orcherr.JournalIO, "localstore.mirror", err)
	}
	defer rows.Close()

	var records []domain.Learning
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return orcherr.New(orcherr.JournalIO, "localstore.mirror", err)
		}
		var l domain.Learning
		if err := json.Unmarshal(data, &l); err != nil {
			return orcherr.New(orcherr.JournalIO, "localstore.mirror", err)
		}
		records = append(records, l)
	}

	path, err := s.mirrorPath(namespace)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return orcherr.New(orcherr.JournalIO, "localstore.mirror", err)
	}

	mirror := namespaceFile{Namespace: namespace, UpdatedAt: time.Now(), RecordCount: len(records), Records: records}
	out, err := json.MarshalIndent(mirror, "", "  ")
	if err != nil {
		return orcherr.New(orcherr.JournalIO, "localstore.mirror", err)
	}
	return os.WriteFile(path, out, 0o644)
}
