// Package source walks a project tree and yields the candidate source files
// for migration, honoring include and exclusion globs. Untouched files never
// enter the pipeline.
package source

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/migr8/migr8/internal/report"
)

// File is one entry of the source feed. Index records the original walk
// order so the final report can be re-sorted deterministically. Text is
// populated lazily by the pipeline worker that processes the file.
type File struct {
	Path  string // relative to the project root, forward slashes
	Index int
	Text  []byte
}

// Walk collects candidate files under root in deterministic walk order.
// Files larger than maxBytes are skipped with a warning rather than
// blocking the run. An unreadable root is fatal.
func Walk(root string, include, exclude []string, maxBytes int64) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, report.Fatal(fmt.Errorf("reading root %s: %w", root, err))
	}
	if !info.IsDir() {
		return nil, report.Fatalf("root %s is not a directory", root)
	}

	var files []File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if matchesGlobs(relPath, exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !matchesGlobs(relPath, include) {
			return nil
		}

		if maxBytes > 0 {
			if fi, err := d.Info(); err == nil && fi.Size() > maxBytes {
				log.Printf("[source] skipping %s: %d bytes exceeds limit of %d", relPath, fi.Size(), maxBytes)
				return nil
			}
		}

		files = append(files, File{Path: relPath, Index: len(files)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

// FromPairs builds a source feed from an already-filtered list of
// (path, rawText) pairs produced by an external source-index collaborator.
func FromPairs(paths []string, texts [][]byte) []File {
	files := make([]File, 0, len(paths))
	for i, p := range paths {
		var text []byte
		if i < len(texts) {
			text = texts[i]
		}
		files = append(files, File{Path: filepath.ToSlash(p), Index: i, Text: text})
	}
	return files
}

// Read loads a file's text relative to root, enforcing the size cap.
func Read(root string, f *File, maxBytes int64) error {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f.Path)))
	if err != nil {
		return err
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return fmt.Errorf("file %s: %d bytes exceeds limit of %d", f.Path, len(data), maxBytes)
	}
	f.Text = data
	return nil
}

// matchesGlobs checks whether a path matches any of the given patterns.
// Supports "dir/**" prefixes and "**/"-prefixed basename patterns in
// addition to standard path.Match globs.
func matchesGlobs(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		// Handle directory-only patterns
		if strings.HasSuffix(pattern, "/**") {
			dirPrefix := strings.TrimSuffix(pattern, "/**")
			if relPath == dirPrefix || strings.HasPrefix(relPath, dirPrefix+"/") {
				return true
			}
		}

		// Standard glob match
		matched, err := filepath.Match(pattern, relPath)
		if err == nil && matched {
			return true
		}

		// Also try matching just the filename for patterns like **/*.tsx
		if strings.HasPrefix(pattern, "**/") {
			subPattern := strings.TrimPrefix(pattern, "**/")
			matched, err = filepath.Match(subPattern, filepath.Base(relPath))
			if err == nil && matched {
				return true
			}
			matched, err = filepath.Match(subPattern, relPath)
			if err == nil && matched {
				return true
			}
		}
	}
	return false
}
