// Package engine provides the world heartbeat: a single scheduler that
// fires the NPC autonomy pass at a fixed interval. Between ticks it holds
// no locks; the tick callback owns its own synchronization.
package engine

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Scheduler drives the periodic world tick.
type Scheduler struct {
	Interval time.Duration

	// OnTick runs one full world tick. It receives the monotonic tick
	// counter, which never resets while the process lives.
	OnTick func(tick uint64)

	tick    atomic.Uint64
	running atomic.Bool
	stop    chan struct{}
}

// New creates a scheduler. The interval must be positive.
func New(interval time.Duration, onTick func(uint64)) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		Interval: interval,
		OnTick:   onTick,
		stop:     make(chan struct{}),
	}
}

// Tick returns the current tick counter.
func (s *Scheduler) Tick() uint64 { return s.tick.Load() }

// Run starts the heartbeat and blocks until Stop is called. Each beat
// measures its own cost so a slow tick does not compound drift.
func (s *Scheduler) Run() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	slog.Info("world heartbeat started", "interval", s.Interval)

	for {
		start := time.Now()
		n := s.tick.Add(1)
		if s.OnTick != nil {
			s.OnTick(n)
		}
		elapsed := time.Since(start)
		if elapsed > s.Interval {
			slog.Warn("tick overran its interval", "tick", n, "elapsed", elapsed)
		}

		wait := s.Interval - elapsed
		if wait < 0 {
			wait = 0
		}
		select {
		case <-s.stop:
			s.running.Store(false)
			slog.Info("world heartbeat stopped", "tick", s.tick.Load())
			return
		case <-time.After(wait):
		}
	}
}

// Stop halts the heartbeat after the current beat completes.
func (s *Scheduler) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
}
