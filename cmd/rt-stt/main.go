// Command rt-stt is the real-time speech-to-text daemon entry point. It
// loads a YAML configuration, wires the Audio Source, VAD Segmenter,
// Utterance Queue, ASR Worker, and Broadcast Hub into a running pipeline via
// internal/supervisor, and exposes the control surface over a Unix domain
// socket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rt-stt/rt-stt/internal/asr"
	"github.com/rt-stt/rt-stt/internal/asr/mock"
	"github.com/rt-stt/rt-stt/internal/asr/native"
	"github.com/rt-stt/rt-stt/internal/audio"
	"github.com/rt-stt/rt-stt/internal/audio/generator"
	"github.com/rt-stt/rt-stt/internal/audio/replay"
	"github.com/rt-stt/rt-stt/internal/broadcast"
	"github.com/rt-stt/rt-stt/internal/config"
	"github.com/rt-stt/rt-stt/internal/control"
	"github.com/rt-stt/rt-stt/internal/health"
	"github.com/rt-stt/rt-stt/internal/observe"
	"github.com/rt-stt/rt-stt/internal/supervisor"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.StringVar(configPath, "c", "config.yaml", "shorthand for -config")
	socketOverride := flag.String("socket", "", "override ipc.socket_path from the config file")
	flag.StringVar(socketOverride, "s", "", "shorthand for -socket")
	replayFile := flag.String("replay", "", "replay a recorded WAV/Opus file instead of opening a live device")
	metricsAddr := flag.String("metrics-addr", "", "override server.metrics_addr from the config file")
	flag.Parse()

	// ── Load configuration ───────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "rt-stt: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "rt-stt: %v\n", err)
		}
		return 1
	}
	if *socketOverride != "" {
		cfg.IPC.SocketPath = *socketOverride
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}

	// ── Logger ───────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("rt-stt starting",
		"config", *configPath,
		"socket_path", cfg.IPC.SocketPath,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Observability ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownObserve, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "rt-stt"})
	if err != nil {
		slog.Error("failed to initialise observability providers", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownObserve(shutdownCtx); err != nil {
			slog.Warn("observability shutdown error", "err", err)
		}
	}()

	// ── Registry ──────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	asrBackend := "whisper-native"
	audioBackend := "generator"
	if *replayFile != "" {
		audioBackend = "replay"
		reg.RegisterAudio("replay", func(cfg config.AudioConfig) (audio.Device, error) {
			return replay.New(*replayFile, cfg)
		})
	}
	if cfg.STT.Model.Path == "" {
		slog.Warn("stt.model.path is empty; falling back to the mock ASR engine")
		asrBackend = "mock"
	}

	hub := broadcast.NewHub()
	snapshot := config.SnapshotFrom(cfg)

	sup, err := supervisor.New(snapshot, reg, asrBackend, audioBackend, hub)
	if err != nil {
		slog.Error("failed to initialise supervisor", "err", err)
		return 1
	}

	// ── Control surface ───────────────────────────────────────────────────────
	ctlServer := control.NewServer(cfg.IPC.SocketPath, hub, sup)

	// ── HTTP metrics/health server (optional) ────────────────────────────────
	var httpServer *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		healthHandler := health.New(health.Checker{
			Name: "supervisor",
			Check: func(context.Context) error {
				return nil
			},
		})
		healthHandler.Register(mux)
		httpServer = &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux}
		go func() {
			slog.Info("metrics/health server listening", "addr", cfg.Server.MetricsAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics/health server error", "err", err)
			}
		}()
	}

	printStartupSummary(cfg, asrBackend, audioBackend)

	// ── Run ───────────────────────────────────────────────────────────────────
	runErr := make(chan error, 1)
	go func() { runErr <- sup.Run(ctx) }()

	serveErr := make(chan error, 1)
	go func() { serveErr <- ctlServer.Serve(ctx) }()

	slog.Info("daemon ready")

	select {
	case err := <-runErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("pipeline run error", "err", err)
		}
	case err := <-serveErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("control server error", "err", err)
		}
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	_ = ctlServer.Close()

	if err := sup.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// registerBuiltinProviders wires the ASR engine and audio device factories
// that ship with the daemon into reg.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterASR("whisper-native", func(cfg config.ModelConfig) (asr.Engine, error) {
		return native.New(cfg)
	})
	reg.RegisterASR("mock", func(config.ModelConfig) (asr.Engine, error) {
		return &mock.Engine{}, nil
	})

	reg.RegisterAudio("generator", func(cfg config.AudioConfig) (audio.Device, error) {
		return generator.New(cfg)
	})
	// "replay" is registered in run() once the -replay flag's path is known.
}

func printStartupSummary(cfg *config.Config, asrBackend, audioBackend string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║           rt-stt — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printField("ASR backend", asrBackend)
	printField("Model path", cfg.STT.Model.Path)
	printField("Language", cfg.STT.Model.Language)
	printField("Audio backend", audioBackend)
	printField("Socket path", cfg.IPC.SocketPath)
	if cfg.Server.MetricsAddr != "" {
		printField("Metrics addr", cfg.Server.MetricsAddr)
	} else {
		printField("Metrics addr", "(disabled)")
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printField(name, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s: %-19s ║\n", name, value)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
