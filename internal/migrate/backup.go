package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DirBackup is the default backup collaborator: it snapshots originals into
// a backup directory before any write and serves restores from it.
type DirBackup struct {
	dir string

	mu        sync.Mutex
	snapshots map[string]string // project path -> snapshot file
}

// NewDirBackup creates a backup store rooted at dir.
func NewDirBackup(dir string) *DirBackup {
	return &DirBackup{dir: dir, snapshots: make(map[string]string)}
}

// Snapshot persists the original content of path. The write phase proceeds
// only once this returns nil.
func (b *DirBackup) Snapshot(path string, original, updated []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dest := filepath.Join(b.dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating backup dir for %s: %w", path, err)
	}
	if err := os.WriteFile(dest, original, 0o644); err != nil {
		return fmt.Errorf("snapshotting %s: %w", path, err)
	}
	b.snapshots[normalizePath(path)] = dest
	return nil
}

// Restore returns the snapshotted original for path.
func (b *DirBackup) Restore(path string) ([]byte, error) {
	b.mu.Lock()
	dest, ok := b.snapshots[normalizePath(path)]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no snapshot for %s", path)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot for %s: %w", path, err)
	}
	return data, nil
}

func normalizePath(path string) string {
	return strings.TrimPrefix(filepath.ToSlash(path), "./")
}
