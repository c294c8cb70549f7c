// Package runtime bundles one main agent's full set of collaborators
// (model client, tool registry, workspace, prompt queue, status bus,
// logger, lifecycle controller, tournament engine) into a single
// constructible value, so wiring lives in one place. A factory reset
// does not rebuild the Runtime; the lifecycle controller resets the
// existing core in place.
package runtime

import (
	"context"
	"fmt"

	"github.com/nstogner/agentrt/internal/agentcore"
	"github.com/nstogner/agentrt/internal/lifecycle"
	"github.com/nstogner/agentrt/internal/logger"
	"github.com/nstogner/agentrt/internal/model"
	"github.com/nstogner/agentrt/internal/promptqueue"
	"github.com/nstogner/agentrt/internal/sandbox"
	"github.com/nstogner/agentrt/internal/statusbus"
	"github.com/nstogner/agentrt/internal/tools"
	"github.com/nstogner/agentrt/internal/tools/builtin"
	"github.com/nstogner/agentrt/internal/tournament"
	"github.com/nstogner/agentrt/internal/workspace"
)

// Config configures one Runtime.
type Config struct {
	WorkspaceRoot       string
	BackupDir           string
	MaxTurns            int
	MaxContextTokens    int
	CompactionThreshold float64
	TournamentRoot      string
	TournamentParallel  int
	TournamentStages    []int
	TournamentDebates   int
	LogCapacity         int

	// SummarizerClient and WorkerClient, when non-nil, override the main
	// model client for context compaction and tournament workers.
	SummarizerClient model.Client
	WorkerClient     model.Client
}

// Runtime is the fully-wired set of collaborators for one MainAgent.
type Runtime struct {
	Config     Config
	Client     model.Client
	Registry   *tools.Registry
	Workspace  *workspace.FS
	Queue      *promptqueue.Queue
	Bus        *statusbus.Bus
	Log        *logger.Logger
	Core       *agentcore.AgentCore
	Lifecycle  *lifecycle.Controller
	Tournament *tournament.Engine
}

// New wires a Runtime. client should already carry retry behavior
// (model.WithRetry) if desired; sink may be nil to run without durable
// logging; sbMgr may be nil to skip sandboxed code execution.
func New(cfg Config, client model.Client, sink logger.Sink, sbMgr sandbox.Manager) (*Runtime, error) {
	fs, err := workspace.New(cfg.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}

	registry := tools.NewRegistry()
	if err := builtin.RegisterWorkspaceTools(registry, fs); err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}
	if err := builtin.RegisterCompleteTask(registry); err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}

	queue := promptqueue.New()
	bus := statusbus.New()
	log := logger.New(cfg.LogCapacity, sink)

	core := agentcore.New(agentcore.Config{
		MaxTurns:            cfg.MaxTurns,
		MaxContextTokens:    cfg.MaxContextTokens,
		CompactionThreshold: cfg.CompactionThreshold,
		ContinuousMode:      true,
		Summarizer:          cfg.SummarizerClient,
	}, client, registry, fs, queue, bus, log)

	if err := builtin.RegisterManageContext(registry, core.ContextManager()); err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}
	if sbMgr != nil {
		if err := builtin.RegisterExecuteCode(registry, sbMgr, "main"); err != nil {
			return nil, fmt.Errorf("runtime: %w", err)
		}
	}

	lc := lifecycle.New(core, fs, queue, log, cfg.BackupDir)

	workerClient := cfg.WorkerClient
	if workerClient == nil {
		workerClient = client
	}
	engine := tournament.New(cfg.TournamentRoot, workerFactory(cfg, workerClient, sbMgr, log), log, cfg.TournamentParallel)
	stages := cfg.TournamentStages
	if len(stages) == 0 {
		stages = []int{4, 2, 1}
	}
	if err := tournament.RegisterTool(registry, engine, stages, cfg.TournamentDebates); err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}

	return &Runtime{
		Config:     cfg,
		Client:     client,
		Registry:   registry,
		Workspace:  fs,
		Queue:      queue,
		Bus:        bus,
		Log:        log,
		Core:       core,
		Lifecycle:  lc,
		Tournament: engine,
	}, nil
}

// workerFactory builds the tournament.WorkerFactory used to spin up
// isolated worker AgentCores, each with its own workspace and a
// restricted tool set (workspace tools, complete_task, manage_context
// and, with a sandbox, run_code; the engine adds reveal). There is no
// run_tournament, so workers cannot recursively spawn tournaments.
func workerFactory(cfg Config, client model.Client, sbMgr sandbox.Manager, log *logger.Logger) tournament.WorkerFactory {
	return func(workspaceRoot string) (*agentcore.AgentCore, *tools.Registry, *workspace.FS, error) {
		fs, err := workspace.New(workspaceRoot)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("worker workspace: %w", err)
		}
		registry := tools.NewRegistry()
		if err := builtin.RegisterWorkspaceTools(registry, fs); err != nil {
			return nil, nil, nil, err
		}
		if err := builtin.RegisterCompleteTask(registry); err != nil {
			return nil, nil, nil, err
		}
		queue := promptqueue.New()
		bus := statusbus.New()
		core := agentcore.New(agentcore.Config{
			MaxTurns:            cfg.MaxTurns,
			MaxContextTokens:    cfg.MaxContextTokens,
			CompactionThreshold: cfg.CompactionThreshold,
		}, client, registry, fs, queue, bus, log)
		if err := builtin.RegisterManageContext(registry, core.ContextManager()); err != nil {
			return nil, nil, nil, err
		}
		if sbMgr != nil {
			if err := builtin.RegisterExecuteCode(registry, sbMgr, workspaceRoot); err != nil {
				return nil, nil, nil, err
			}
		}
		return core, registry, fs, nil
	}
}

// Shutdown stops the main agent and releases any held resources.
func (r *Runtime) Shutdown(ctx context.Context) {
	r.Lifecycle.Stop()
}
