// Package persistence is the only authorized path to durable state: a
// debounced save façade over the world document file, plus a SQLite
// journal for world events and metadata.
package persistence

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/tinymud/internal/world"
)

// Stats counts façade activity for observability.
type Stats struct {
	Immediate uint64
	Debounced uint64
	Errors    uint64
}

// Saver coalesces world saves per path. Debounced requests within the
// window reschedule the pending write; immediate requests write now and
// drop any pending write for the same path. Save failures are logged and
// counted, never propagated.
type Saver struct {
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*pendingSave

	immediate atomic.Uint64
	debounced atomic.Uint64
	errors    atomic.Uint64
}

type pendingSave struct {
	timer *time.Timer
	raw   []byte
}

// NewSaver creates a façade with the given debounce window.
func NewSaver(debounce time.Duration) *Saver {
	return &Saver{
		debounce: debounce,
		pending:  map[string]*pendingSave{},
	}
}

// SaveWorld snapshots the world now (the caller holds the world lock) and
// either writes immediately or schedules a debounced write.
func (s *Saver) SaveWorld(w *world.World, path string, debounced bool) {
	raw, err := world.Encode(w)
	if err != nil {
		s.errors.Add(1)
		slog.Error("world snapshot failed", "path", path, "error", err)
		return
	}

	if !debounced {
		s.immediate.Add(1)
		s.cancelPending(path)
		s.write(path, raw)
		return
	}

	s.debounced.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[path]; ok {
		// Newer snapshot supersedes the queued one; push the deadline out.
		p.raw = raw
		p.timer.Reset(s.debounce)
		return
	}
	p := &pendingSave{raw: raw}
	p.timer = time.AfterFunc(s.debounce, func() { s.fire(path) })
	s.pending[path] = p
}

// FlushAll writes every pending snapshot now. Used on shutdown and at
// critical moments (account creation, logout, purge).
func (s *Saver) FlushAll() {
	s.mu.Lock()
	paths := make(map[string][]byte, len(s.pending))
	for path, p := range s.pending {
		p.timer.Stop()
		paths[path] = p.raw
		delete(s.pending, path)
	}
	s.mu.Unlock()

	for path, raw := range paths {
		s.write(path, raw)
	}
}

// Stats returns a snapshot of the façade counters.
func (s *Saver) Stats() Stats {
	return Stats{
		Immediate: s.immediate.Load(),
		Debounced: s.debounced.Load(),
		Errors:    s.errors.Load(),
	}
}

func (s *Saver) fire(path string) {
	s.mu.Lock()
	p, ok := s.pending[path]
	if !ok {
		s.mu.Unlock()
		return
	}
	raw := p.raw
	delete(s.pending, path)
	s.mu.Unlock()
	s.write(path, raw)
}

func (s *Saver) cancelPending(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[path]; ok {
		p.timer.Stop()
		delete(s.pending, path)
	}
}

func (s *Saver) write(path string, raw []byte) {
	if err := world.WriteAtomic(path, raw); err != nil {
		s.errors.Add(1)
		slog.Error("world save failed", "path", path, "error", err)
		return
	}
	slog.Debug("world saved", "path", path, "size", humanize.Bytes(uint64(len(raw))))
}
