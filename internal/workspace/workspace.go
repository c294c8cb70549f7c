// Package workspace provides a sandboxed per-agent filesystem rooted
// at an isolated directory. Every operation resolves its relative path
// under the root and rejects any resolution that escapes it, including
// escapes through symlinks or "..".
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nstogner/agentrt/internal/domain"
)

// FS is a WorkspaceFS rooted at Root. Every operation resolves its
// relative path under Root and rejects any resolution that escapes it.
type FS struct {
	Root string
}

// New creates the workspace root directory if needed and returns an FS
// rooted there.
func New(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace root: %w", err)
	}
	return &FS{Root: abs}, nil
}

// resolve computes the absolute path for rel and verifies it is
// contained within the workspace root. Symlinks are resolved (where the
// target exists) so a symlink planted inside the root cannot be used to
// escape it.
func (f *FS) resolve(rel string) (string, error) {
	joined := filepath.Join(f.Root, rel)
	cleaned := filepath.Clean(joined)

	if !withinRoot(f.Root, cleaned) {
		return "", fmt.Errorf("resolve %q: %w", rel, domain.ErrPathEscape)
	}

	if real, err := filepath.EvalSymlinks(cleaned); err == nil {
		if !withinRoot(f.Root, real) {
			return "", fmt.Errorf("resolve %q: %w", rel, domain.ErrPathEscape)
		}
	}
	return cleaned, nil
}

func withinRoot(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Exists reports whether rel exists under the workspace root.
func (f *FS) Exists(rel string) (bool, error) {
	abs, err := f.resolve(rel)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(abs)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %q: %w", rel, err)
	}
	return true, nil
}

// Read returns the contents of rel.
func (f *FS) Read(rel string) ([]byte, error) {
	abs, err := f.resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", rel, err)
	}
	return data, nil
}

// Write writes data to rel, creating missing parent directories and
// writing atomically via a temp file in the same directory followed by
// rename.
func (f *FS) Write(rel string, data []byte) error {
	abs, err := f.resolve(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write %q: creating parents: %w", rel, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %q: creating temp file: %w", rel, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %q: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write %q: %w", rel, err)
	}
	if err := os.Rename(tmpPath, abs); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write %q: renaming into place: %w", rel, err)
	}
	return nil
}

// List returns the entry names directly under rel (directories suffixed
// with "/").
func (f *FS) List(rel string) ([]string, error) {
	abs, err := f.resolve(rel)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", rel, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names, nil
}

// Delete removes rel (file or empty directory is not required; Delete
// recursively removes directories).
func (f *FS) Delete(rel string) error {
	abs, err := f.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("delete %q: %w", rel, err)
	}
	return nil
}

// WalkAll returns every regular file path (relative to Root) under the
// workspace, used by LifecycleController.FactoryReset to build a backup
// archive before purging.
func (f *FS) WalkAll() ([]string, error) {
	var files []string
	err := filepath.WalkDir(f.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.Root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking workspace: %w", err)
	}
	return files, nil
}
