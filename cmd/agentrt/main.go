// Command agentrt runs one main-agent runtime: a model-backed,
// tool-dispatching, context-compacting agent loop with a websocket
// status stream and an optional Docker code-execution sandbox.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nstogner/agentrt/internal/logger/sqlite"
	"github.com/nstogner/agentrt/internal/model"
	"github.com/nstogner/agentrt/internal/model/gemini"
	"github.com/nstogner/agentrt/internal/runtime"
	"github.com/nstogner/agentrt/internal/sandbox"
	sandboxdocker "github.com/nstogner/agentrt/internal/sandbox/docker"
	"github.com/nstogner/agentrt/internal/transport/httpapi"
)

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("ignoring malformed integer", "key", key, "value", v)
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		slog.Warn("ignoring malformed float", "key", key, "value", v)
	}
	return fallback
}

func envInts(key string) []int {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			slog.Warn("ignoring malformed integer list", "key", key, "value", v)
			return nil
		}
		out = append(out, n)
	}
	return out
}

func main() {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		slog.Error("GEMINI_API_KEY environment variable not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir := os.Getenv("AGENTRT_DATA_DIR")
	if dataDir == "" {
		wd, _ := os.Getwd()
		dataDir = filepath.Join(wd, "data")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	sink, err := sqlite.New(filepath.Join(dataDir, "agentrt.db"))
	if err != nil {
		slog.Error("failed to initialize durable log sink", "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	modelName := os.Getenv("AGENTRT_MODEL")
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	newClient := func(name string) model.Client {
		c, err := gemini.New(ctx, apiKey, name)
		if err != nil {
			slog.Error("failed to initialize model client", "model", name, "error", err)
			os.Exit(1)
		}
		return model.WithRetry(c, model.DefaultClassify, model.DefaultRetryConfig)
	}
	client := newClient(modelName)
	var summarizerClient, workerClient model.Client
	if name := os.Getenv("AGENTRT_SUMMARIZER_MODEL"); name != "" && name != modelName {
		summarizerClient = newClient(name)
	}
	if name := os.Getenv("AGENTRT_WORKER_MODEL"); name != "" && name != modelName {
		workerClient = newClient(name)
	}

	var sbMgr *sandboxdocker.Manager
	if os.Getenv("AGENTRT_DISABLE_CODE_EXEC") == "" {
		codeTimeout := time.Duration(envInt("AGENTRT_CODE_TIMEOUT_SECONDS", 30)) * time.Second
		sbMgr, err = sandboxdocker.New(codeTimeout)
		if err != nil {
			slog.Warn("sandbox manager unavailable, code execution disabled", "error", err)
			sbMgr = nil
		}
	}
	var sandboxMgr sandbox.Manager
	if sbMgr != nil {
		defer sbMgr.Close()
		sandboxMgr = sbMgr
	}

	rt, err := runtime.New(runtime.Config{
		WorkspaceRoot:       filepath.Join(dataDir, "workspace"),
		BackupDir:           filepath.Join(dataDir, "backups"),
		MaxTurns:            envInt("AGENTRT_MAX_TURNS", 0),
		MaxContextTokens:    envInt("AGENTRT_MAX_CONTEXT_TOKENS", 128_000),
		CompactionThreshold: envFloat("AGENTRT_COMPACTION_THRESHOLD", 0.75),
		TournamentRoot:      filepath.Join(dataDir, "tournaments"),
		TournamentParallel:  envInt("AGENTRT_TOURNAMENT_PARALLEL", 4),
		TournamentStages:    envInts("AGENTRT_TOURNAMENT_STAGES"),
		TournamentDebates:   envInt("AGENTRT_TOURNAMENT_DEBATE_ROUNDS", 0),
		LogCapacity:         envInt("AGENTRT_LOG_CAPACITY", 2000),
		SummarizerClient:    summarizerClient,
		WorkerClient:        workerClient,
	}, client, sink, sandboxMgr)
	if err != nil {
		slog.Error("failed to wire runtime", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/status", httpapi.StatusHandler(rt.Bus))
	addr := os.Getenv("AGENTRT_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("status server failed", "error", err)
		}
	}()

	goal := os.Getenv("AGENTRT_GOAL")
	if goal != "" {
		if err := rt.Lifecycle.Start(ctx, goal); err != nil {
			slog.Error("failed to start agent", "error", err)
		}
	}

	<-ctx.Done()
	slog.Info("shutting down")
	rt.Shutdown(context.Background())
	srv.Close()
}
