// Package lifecycle mediates external commands (Start/Stop/Restart/
// ForceCompact/FactoryReset) onto one AgentCore, serializing mutually
// exclusive commands under a single lock and implementing factory
// reset's optional backup-then-purge sequence.
package lifecycle

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nstogner/agentrt/internal/agentcore"
	"github.com/nstogner/agentrt/internal/domain"
	"github.com/nstogner/agentrt/internal/logger"
	"github.com/nstogner/agentrt/internal/promptqueue"
	"github.com/nstogner/agentrt/internal/workspace"
)

// Controller mediates commands onto one AgentCore.
type Controller struct {
	mu    sync.Mutex
	core  *agentcore.AgentCore
	fs    *workspace.FS
	queue *promptqueue.Queue
	log   *logger.Logger

	// backupDir is where FactoryReset writes its optional archive.
	backupDir string
}

// New creates a Controller mediating core.
func New(core *agentcore.AgentCore, fs *workspace.FS, queue *promptqueue.Queue, log *logger.Logger, backupDir string) *Controller {
	return &Controller{core: core, fs: fs, queue: queue, log: log, backupDir: backupDir}
}

// Start starts core with goal. Starting an already-running agent is a
// no-op returning nil.
func (c *Controller) Start(ctx context.Context, goal string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.core.State() == domain.StateRunning {
		return nil
	}
	return c.core.Start(ctx, goal)
}

// Stop stops core. Stopping an already-stopped/idle agent is a NoOp.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.core.State()
	if state == domain.StateStopped || state == domain.StateIdle {
		return
	}
	c.core.Stop()
}

// Restart is an atomic Stop+Start under the controller's lock, so no
// external Start/Stop can interleave with it. The goal is unchanged;
// prompt, if non-empty, is injected as a user message before the first
// new turn, and keepContext preserves the accumulated context instead
// of resetting it.
func (c *Controller) Restart(ctx context.Context, prompt string, keepContext bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.core.Restart(ctx, prompt, keepContext)
}

// EnqueuePrompt adds an operator prompt at the given priority; it is
// appended to the context at the agent's next turn boundary.
func (c *Controller) EnqueuePrompt(text string, priority domain.Priority) string {
	return c.queue.Enqueue(text, priority)
}

// RemovePrompt deletes a queued prompt that has not been drained yet.
func (c *Controller) RemovePrompt(id string) bool {
	return c.queue.Remove(id)
}

// Pause/Resume forward directly to core; they are already serialized by
// AgentCore's own mutex and state checks.
func (c *Controller) Pause() error  { return c.core.Pause() }
func (c *Controller) Resume() error { return c.core.Resume() }

// ForceCompact forwards to core.
func (c *Controller) ForceCompact(ctx context.Context) error {
	return c.core.ForceCompact(ctx)
}

// FactoryReset refuses without confirm, returning
// ErrFactoryResetWithoutConfirm. Otherwise it first stops the agent and
// resets it to idle for a fresh Start; then, when backup is true, it
// archives the workspace to backupDir as a timestamped zip; finally it
// clears the prompt queue and deletes all workspace files.
func (c *Controller) FactoryReset(ctx context.Context, confirm, backup bool) (backupPath string, err error) {
	if !confirm {
		return "", domain.ErrFactoryResetWithoutConfirm
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.core.Reset()

	if backup {
		backupPath, err = c.writeBackup()
		if err != nil {
			return "", fmt.Errorf("factory reset backup: %w", err)
		}
	}

	c.queue.Drain()

	paths, walkErr := c.fs.WalkAll()
	if walkErr != nil {
		return backupPath, fmt.Errorf("factory reset purge: %w", walkErr)
	}
	for _, path := range paths {
		if delErr := c.fs.Delete(path); delErr != nil {
			err = delErr
		}
	}
	if err != nil {
		return backupPath, fmt.Errorf("factory reset purge: %w", err)
	}

	c.log.Lifecycle(ctx, "factory reset complete")
	return backupPath, nil
}

// writeBackup archives every workspace file into a timestamped zip
// under backupDir.
func (c *Controller) writeBackup() (string, error) {
	if err := os.MkdirAll(c.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup dir: %w", err)
	}

	name := fmt.Sprintf("factory-reset-%s.zip", time.Now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(c.backupDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating backup archive: %w", err)
	}
	defer f.Close()

	paths, walkErr := c.fs.WalkAll()
	if walkErr != nil {
		return "", fmt.Errorf("listing workspace files: %w", walkErr)
	}

	zw := zip.NewWriter(f)
	for _, rel := range paths {
		data, readErr := c.fs.Read(rel)
		if readErr != nil {
			continue
		}
		w, createErr := zw.Create(rel)
		if createErr != nil {
			zw.Close()
			return "", fmt.Errorf("archiving %s: %w", rel, createErr)
		}
		if _, writeErr := io.Copy(w, bytes.NewReader(data)); writeErr != nil {
			zw.Close()
			return "", fmt.Errorf("writing %s to archive: %w", rel, writeErr)
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalizing backup archive: %w", err)
	}
	return path, nil
}
