// Package docker implements sandbox.Manager using Docker containers:
// one labeled container per agent, kept in sync by a reconciliation
// loop, with code execution via the Engine API's exec primitives
// (ContainerExecCreate/ContainerExecAttach/ContainerExecInspect).
package docker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/nstogner/agentrt/internal/sandbox"
)

const (
	// LabelManager identifies containers this system owns.
	LabelManager = "manager"
	// LabelManagerValue is the value of LabelManager.
	LabelManagerValue = "agentrt"
	// LabelAgentID identifies which agent a container belongs to.
	LabelAgentID = "agent-id"
	// SandboxImage is the default code-execution container image.
	SandboxImage = "agentrt-sandbox:latest"
	// ReconcileInterval is how often Run checks for drift.
	ReconcileInterval = 10 * time.Second
	// ExecTimeout bounds a single Exec call.
	ExecTimeout = 30 * time.Second
)

// Manager implements sandbox.Manager using the Docker Engine API.
type Manager struct {
	client      *client.Client
	image       string
	execTimeout time.Duration
}

var _ sandbox.Manager = (*Manager)(nil)

// New creates a Docker-backed sandbox Manager. execTimeout bounds each
// Exec call; zero or negative uses ExecTimeout.
func New(execTimeout time.Duration) (*Manager, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	if execTimeout <= 0 {
		execTimeout = ExecTimeout
	}
	return &Manager{client: cli, image: SandboxImage, execTimeout: execTimeout}, nil
}

// Run starts a reconciliation loop, ensuring every agent in lister has
// a running container and stopping orphans. Blocks until ctx is done.
func (m *Manager) Run(ctx context.Context, lister sandbox.Lister) error {
	slog.Info("sandbox manager reconciliation loop starting")

	if err := m.reconcile(ctx, lister); err != nil {
		slog.Error("initial sandbox reconciliation failed", "error", err)
	}

	ticker := time.NewTicker(ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sandbox manager reconciliation loop stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := m.reconcile(ctx, lister); err != nil {
				slog.Error("sandbox reconciliation failed", "error", err)
			}
		}
	}
}

func (m *Manager) reconcile(ctx context.Context, lister sandbox.Lister) error {
	ids, err := lister.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing agent IDs: %w", err)
	}

	allContainers, err := m.listAllManaged(ctx)
	if err != nil {
		return fmt.Errorf("listing managed containers: %w", err)
	}

	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	running := make(map[string]bool)
	for _, c := range allContainers {
		agentID := c.Labels[LabelAgentID]
		running[agentID] = true
		if !known[agentID] {
			slog.Info("stopping orphaned sandbox", "agentID", agentID)
			m.stop(ctx, agentID)
		}
	}

	for _, id := range ids {
		if !running[id] {
			slog.Info("starting sandbox for agent", "agentID", id)
			if _, err := m.createAndStart(ctx, id); err != nil {
				slog.Error("failed to start sandbox", "agentID", id, "error", err)
			}
		}
	}
	return nil
}

// Exec runs code as a shell command inside the agent's container,
// starting one on demand if it isn't already running.
func (m *Manager) Exec(ctx context.Context, agentID, code string) (*sandbox.Result, error) {
	execCtx, cancel := context.WithTimeout(ctx, m.execTimeout)
	defer cancel()

	containerID, err := m.ensureRunning(execCtx, agentID)
	if err != nil {
		return nil, fmt.Errorf("sandbox not available for agent %s: %w", agentID, err)
	}

	execResp, err := m.client.ContainerExecCreate(execCtx, containerID, types.ExecConfig{
		Cmd:          []string{"sh", "-c", code},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating exec: %w", err)
	}

	attach, err := m.client.ContainerExecAttach(execCtx, execResp.ID, types.ExecStartCheck{})
	if err != nil {
		return nil, fmt.Errorf("attaching to exec: %w", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return nil, fmt.Errorf("reading exec output: %w", err)
	}

	inspect, err := m.client.ContainerExecInspect(execCtx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("inspecting exec: %w", err)
	}

	return &sandbox.Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: inspect.ExitCode,
	}, nil
}

// Status reports the agent's sandbox container state.
func (m *Manager) Status(ctx context.Context, agentID string) (string, error) {
	containers, err := m.listFor(ctx, agentID)
	if err != nil {
		return "unknown", err
	}
	if len(containers) == 0 {
		return "stopped", nil
	}
	return containers[0].State, nil
}

// Close releases the Docker client's resources.
func (m *Manager) Close() error {
	return m.client.Close()
}

func (m *Manager) ensureRunning(ctx context.Context, agentID string) (string, error) {
	name := m.containerName(agentID)
	c, err := m.client.ContainerInspect(ctx, name)
	if err == nil && c.State.Running {
		return c.ID, nil
	}
	return m.createAndStart(ctx, agentID)
}

func (m *Manager) createAndStart(ctx context.Context, agentID string) (string, error) {
	if _, _, err := m.client.ImageInspectWithRaw(ctx, m.image); err != nil {
		return "", fmt.Errorf("sandbox image %q not found: %w", m.image, err)
	}

	cfg := &container.Config{
		Image: m.image,
		Cmd:   []string{"sleep", "infinity"},
		Labels: map[string]string{
			LabelManager: LabelManagerValue,
			LabelAgentID: agentID,
		},
	}
	hostCfg := &container.HostConfig{}

	name := m.containerName(agentID)
	resp, err := m.client.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("creating container: %w", err)
	}
	if err := m.client.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return "", fmt.Errorf("starting container: %w", err)
	}
	slog.Info("sandbox started", "agentID", agentID)
	return resp.ID, nil
}

func (m *Manager) stop(ctx context.Context, agentID string) {
	containers, err := m.listFor(ctx, agentID)
	if err != nil {
		slog.Warn("failed to list containers for stop", "agentID", agentID, "error", err)
		return
	}
	for _, c := range containers {
		timeout := 10
		if err := m.client.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout}); err != nil {
			slog.Warn("failed to stop container", "id", c.ID, "error", err)
		}
		if err := m.client.ContainerRemove(ctx, c.ID, types.ContainerRemoveOptions{Force: true}); err != nil {
			slog.Warn("failed to remove container", "id", c.ID, "error", err)
		}
	}
}

func (m *Manager) containerName(agentID string) string {
	return "agentrt-sandbox-" + agentID
}

func (m *Manager) listFor(ctx context.Context, agentID string) ([]types.Container, error) {
	return m.client.ContainerList(ctx, types.ContainerListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", LabelManager+"="+LabelManagerValue),
			filters.Arg("label", LabelAgentID+"="+agentID),
		),
	})
}

func (m *Manager) listAllManaged(ctx context.Context) ([]types.Container, error) {
	return m.client.ContainerList(ctx, types.ContainerListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", LabelManager+"="+LabelManagerValue)),
	})
}
