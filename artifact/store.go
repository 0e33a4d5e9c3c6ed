// Package artifact manages NDJSON export files: streaming creation under
// opaque tg-export:// URIs, TTL-bounded reads, and a background sweeper that
// reclaims expired files without racing in-flight readers.
package artifact

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DronPascal/telegram-toolkit-mcp/internal/fsstore"
)

// URIScheme prefixes every artifact URI. The identifier after the scheme is
// opaque; no filesystem path ever leaks through it.
const URIScheme = "tg-export://"

const (
	defaultTTL       = 24 * time.Hour
	defaultReadGrace = time.Minute
)

// ErrExpired is returned for unknown URIs and for artifacts past their TTL.
// Both present identically to callers so URIs stay unguessable.
var ErrExpired = errors.New("artifact: expired or unknown")

// Metadata describes one artifact. Persisted as a JSON sidecar next to the
// NDJSON file so sweeps survive process restarts.
type Metadata struct {
	ID            string    `json:"id"`
	URI           string    `json:"uri"`
	Format        string    `json:"format"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	SizeBytes     int64     `json:"size_bytes"`
	MessageCount  int       `json:"message_count"`
	ChatCanonical int64     `json:"chat_canonical"`
	WindowHash    string    `json:"window_hash"`
}

type Config struct {
	Dir       string
	TTL       time.Duration
	ReadGrace time.Duration
}

// Store owns the artifact directory. Creation, reads and sweeps may run
// concurrently; uniqueness comes from random identifiers, reader safety from
// per-artifact reference counts.
type Store struct {
	dir    string
	ttl    time.Duration
	grace  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	readers map[string]int

	now func() time.Time
}

func NewStore(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("artifact: dir is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.ReadGrace <= 0 {
		cfg.ReadGrace = defaultReadGrace
	}
	if err := fsstore.EnsureDir(cfg.Dir, 0); err != nil {
		return nil, err
	}
	return &Store{
		dir:     cfg.Dir,
		ttl:     cfg.TTL,
		grace:   cfg.ReadGrace,
		logger:  logger,
		readers: make(map[string]int),
		now:     time.Now,
	}, nil
}

func newID() string {
	u := uuid.New()
	return "export-" + hex.EncodeToString(u[:8])
}

// ParseURI extracts the artifact id from an opaque URI.
func ParseURI(uri string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), URIScheme)
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, ".ndjson")
	if !ok || id == "" || strings.ContainsAny(id, "/\\.") {
		return "", false
	}
	return id, true
}

func (s *Store) dataPath(id string) string { return filepath.Join(s.dir, id+".ndjson") }
func (s *Store) metaPath(id string) string { return filepath.Join(s.dir, id+".meta.json") }

// Writer streams messages into a new artifact. Commit registers it; Abort
// removes all traces. Single writer per artifact.
type Writer struct {
	store *Store
	meta  Metadata
	nd    *fsstore.NDJSONWriter
	done  bool
}

// NewExport opens a streaming writer for one window materialization.
func (s *Store) NewExport(chatCanonical int64, windowHash string) (*Writer, error) {
	id := newID()
	nd, err := fsstore.NewNDJSONWriter(s.dataPath(id), fsstore.FileOptions{})
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return &Writer{
		store: s,
		nd:    nd,
		meta: Metadata{
			ID:            id,
			URI:           URIScheme + id + ".ndjson",
			Format:        "ndjson",
			CreatedAt:     now,
			ExpiresAt:     now.Add(s.ttl),
			ChatCanonical: chatCanonical,
			WindowHash:    windowHash,
		},
	}, nil
}

// Append writes one message as one NDJSON line.
func (w *Writer) Append(v any) error {
	return w.nd.Append(v)
}

// Count returns the number of lines written so far.
func (w *Writer) Count() int { return w.nd.Count() }

// Commit finishes the file and registers the artifact. The returned metadata
// carries the opaque URI. A successful read after Commit observes the
// complete file.
func (w *Writer) Commit() (Metadata, error) {
	if w.done {
		return Metadata{}, fmt.Errorf("artifact: writer already finished")
	}
	w.done = true
	w.meta.MessageCount = w.nd.Count()
	w.meta.SizeBytes = w.nd.Size()
	if err := w.nd.Commit(); err != nil {
		_ = w.nd.Abort()
		return Metadata{}, err
	}
	if err := fsstore.WriteJSONAtomic(w.store.metaPath(w.meta.ID), w.meta, fsstore.FileOptions{}); err != nil {
		_ = os.Remove(w.store.dataPath(w.meta.ID))
		return Metadata{}, err
	}
	w.store.logger.Info("artifact_created",
		"id", w.meta.ID,
		"messages", w.meta.MessageCount,
		"bytes", w.meta.SizeBytes,
		"expires_at", w.meta.ExpiresAt.Format(time.RFC3339))
	return w.meta, nil
}

// Abort discards the partial artifact; it is never registered.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	_ = w.nd.Abort()
}

// Open returns a streaming reader for the artifact behind uri. Unknown,
// malformed and expired URIs all yield ErrExpired. The returned ReadCloser
// must be closed; it holds a reference that keeps the sweeper away.
func (s *Store) Open(uri string) (io.ReadCloser, Metadata, error) {
	id, ok := ParseURI(uri)
	if !ok {
		return nil, Metadata{}, ErrExpired
	}
	meta, err := s.lookup(id)
	if err != nil {
		return nil, Metadata{}, err
	}

	s.mu.Lock()
	s.readers[id]++
	s.mu.Unlock()

	f, err := os.Open(s.dataPath(id))
	if err != nil {
		s.release(id)
		return nil, Metadata{}, ErrExpired
	}
	return &countedReader{f: f, store: s, id: id}, meta, nil
}

// Stat returns metadata for a live artifact without opening it.
func (s *Store) Stat(uri string) (Metadata, error) {
	id, ok := ParseURI(uri)
	if !ok {
		return Metadata{}, ErrExpired
	}
	return s.lookup(id)
}

func (s *Store) lookup(id string) (Metadata, error) {
	var meta Metadata
	found, err := fsstore.ReadJSON(s.metaPath(id), &meta)
	if err != nil || !found {
		return Metadata{}, ErrExpired
	}
	if s.now().After(meta.ExpiresAt) {
		return Metadata{}, ErrExpired
	}
	return meta, nil
}

// List returns metadata for all live artifacts.
func (s *Store) List() []Metadata {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var out []Metadata
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".meta.json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".meta.json")
		if meta, err := s.lookup(id); err == nil {
			out = append(out, meta)
		}
	}
	return out
}

func (s *Store) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readers[id] > 1 {
		s.readers[id]--
		return
	}
	delete(s.readers, id)
}

type countedReader struct {
	f     *os.File
	store *Store
	id    string
	once  sync.Once
}

func (r *countedReader) Read(p []byte) (int, error) { return r.f.Read(p) }

func (r *countedReader) Close() error {
	var err error
	r.once.Do(func() {
		err = r.f.Close()
		r.store.release(r.id)
	})
	return err
}

// Sweep removes expired artifacts, skipping any with active readers or
// inside the read grace period. Returns the number of artifacts removed.
func (s *Store) Sweep() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("artifact_sweep_failed", "error", err.Error())
		return 0
	}
	now := s.now()
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".meta.json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".meta.json")

		var meta Metadata
		found, err := fsstore.ReadJSON(s.metaPath(id), &meta)
		if err != nil || !found {
			continue
		}
		if now.Before(meta.ExpiresAt.Add(s.grace)) {
			continue
		}
		s.mu.Lock()
		busy := s.readers[id] > 0
		s.mu.Unlock()
		if busy {
			continue
		}
		if err := os.Remove(s.dataPath(id)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("artifact_sweep_remove_failed", "id", id, "error", err.Error())
			continue
		}
		_ = os.Remove(s.metaPath(id))
		removed++
		s.logger.Info("artifact_swept", "id", id)
	}
	return removed
}

// StartSweeper runs Sweep on interval until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}
