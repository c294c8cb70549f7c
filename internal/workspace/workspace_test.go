package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nstogner/agentrt/internal/domain"
)

func newTestFS(t *testing.T) *FS {
	t.Helper()
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return fs
}

func TestWriteReadRoundTrip(t *testing.T) {
	fs := newTestFS(t)
	if err := fs.Write("a/b/c.txt", []byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := fs.Read("a/b/c.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q, want %q", data, "hello")
	}
}

func TestPathEscapeRejected(t *testing.T) {
	fs := newTestFS(t)
	cases := []string{
		"../escape.txt",
		"a/../../escape.txt",
		"/etc/passwd",
	}
	for _, rel := range cases {
		if _, err := fs.resolve(rel); !errors.Is(err, domain.ErrPathEscape) {
			t.Errorf("resolve(%q): got %v, want ErrPathEscape", rel, err)
		}
	}
}

func TestPathEscapeViaSymlink(t *testing.T) {
	fs := newTestFS(t)
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("nope"), 0o644); err != nil {
		t.Fatalf("seed outside file: %v", err)
	}
	link := filepath.Join(fs.Root, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if _, err := fs.Read("link/secret.txt"); !errors.Is(err, domain.ErrPathEscape) {
		t.Errorf("Read via symlink: got %v, want ErrPathEscape", err)
	}
}

func TestListDirectorySuffix(t *testing.T) {
	fs := newTestFS(t)
	if err := fs.Write("dir/file.txt", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	names, err := fs.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, n := range names {
		if n == "dir/" {
			found = true
		}
	}
	if !found {
		t.Errorf("List(%q) = %v, want entry %q", "", names, "dir/")
	}
}

func TestDeleteRemovesFile(t *testing.T) {
	fs := newTestFS(t)
	if err := fs.Write("gone.txt", []byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := fs.Delete("gone.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	exists, err := fs.Exists("gone.txt")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Errorf("file still exists after Delete")
	}
}

func TestWalkAllListsEveryFile(t *testing.T) {
	fs := newTestFS(t)
	want := []string{"a.txt", "sub/b.txt"}
	for _, rel := range want {
		if err := fs.Write(rel, []byte("x")); err != nil {
			t.Fatalf("Write(%q): %v", rel, err)
		}
	}
	got, err := fs.WalkAll()
	if err != nil {
		t.Fatalf("WalkAll: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("WalkAll() = %v, want %d entries", got, len(want))
	}
}
