// Command mudserver runs the multiplayer text world over websockets.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/tinymud/internal/ai"
	"github.com/talgya/tinymud/internal/audit"
	"github.com/talgya/tinymud/internal/config"
	"github.com/talgya/tinymud/internal/engine"
	"github.com/talgya/tinymud/internal/persistence"
	"github.com/talgya/tinymud/internal/server"
	"github.com/talgya/tinymud/internal/world"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()

	// ── World state ───────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.StatePath), 0755)
	w, err := world.Load(cfg.StatePath)
	if err != nil {
		slog.Error("failed to load world", "path", cfg.StatePath, "error", err)
		os.Exit(1)
	}
	slog.Info("world loaded",
		"name", w.Name,
		"rooms", len(w.Rooms),
		"users", len(w.Users),
		"npcs", len(w.NPCSheets),
	)

	// Startup integrity pass: report, then repair what repairs safely.
	rep := audit.Run(w)
	if len(rep.Issues) > 0 {
		slog.Warn("world integrity issues found", "health", rep.Health, "issues", len(rep.Issues))
		for _, issue := range rep.Issues {
			slog.Warn("integrity", "issue", issue)
		}
		audit.Cleanup(w)
		after := audit.Run(w)
		slog.Info("cleanup complete", "health", after.Health, "remaining", len(after.Issues))
	} else {
		slog.Info("world integrity verified", "health", rep.Health)
	}

	// ── Journal ───────────────────────────────────────────────────────
	var journal *persistence.Journal
	os.MkdirAll(filepath.Dir(cfg.JournalPath), 0755)
	journal, err = persistence.OpenJournal(cfg.JournalPath)
	if err != nil {
		slog.Warn("journal unavailable, continuing without it", "path", cfg.JournalPath, "error", err)
		journal = nil
	} else {
		defer journal.Close()
	}

	// ── AI adapter ────────────────────────────────────────────────────
	var gen ai.Generator
	if client := ai.NewClient(cfg.AIAPIKey); client.Enabled() {
		gen = client
		slog.Info("AI features enabled")
	} else {
		slog.Warn("MUD_AI_API_KEY not set, NPC dialogue and generation use deterministic fallbacks")
	}
	adapter := ai.NewAdapter(gen, cfg.AITimeout, cfg.AIMaxResponseLength)

	// ── Dispatcher and transport ──────────────────────────────────────
	saver := persistence.NewSaver(cfg.SaveDebounce)
	d := server.NewDispatcher(w, cfg, saver, adapter)
	d.Journal = journal
	ws := server.NewWSServer(d)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("listening", "addr", addr, "endpoint", "/ws")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	// ── Heartbeat ─────────────────────────────────────────────────────
	var beat *engine.Scheduler
	if cfg.TickEnable {
		beat = engine.New(cfg.TickSeconds, func(tick uint64) {
			d.RunTick(tick, ws)
		})
		go beat.Run()
	} else {
		slog.Info("heartbeat disabled, NPCs act only when MUD_TICK_ENABLE is on")
	}

	// ── Shutdown ──────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	if beat != nil {
		beat.Stop()
	}
	httpServer.Close()
	d.Shutdown()
	slog.Info("world saved, goodbye")
}
