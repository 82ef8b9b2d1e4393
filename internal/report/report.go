// Package report accumulates per-file migration outcomes into a project-wide
// report. The accumulator is append-only and safe for concurrent use; the
// final report is re-sorted by original walk order before it is handed to
// downstream collaborators so diff review and rollback see deterministic
// ordering.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Status classifies the outcome of one file.
const (
	StatusApplied         = "applied"
	StatusUnchanged       = "unchanged"
	StatusSkipped         = "skipped"
	StatusErrored         = "errored"
	StatusNeedsAdjustment = "needs_adjustment"
)

// SiteDetail describes one component site for diagnostics. Details are
// optional richness: the batch coordinator sheds them under memory
// pressure without affecting correctness-relevant counts.
type SiteDetail struct {
	LocalName string `json:"local_name"`
	Package   string `json:"package,omitempty"`
	Exported  string `json:"exported,omitempty"`
	Line      int    `json:"line,omitempty"`
	Outcome   string `json:"outcome"` // "applied", "no_match", "unresolved", "deferred"
	RuleSet   string `json:"rule_set,omitempty"`
}

// FileResult is the outcome of one file's pipeline run.
type FileResult struct {
	Path       string       `json:"path"`
	Index      int          `json:"-"` // original walk order
	Status     string       `json:"status"`
	Applied    int          `json:"applied"`
	Skipped    int          `json:"skipped"`
	Unresolved int          `json:"unresolved"`
	Errors     []string     `json:"errors,omitempty"`
	Sites      []SiteDetail `json:"sites,omitempty"`
}

// Counts aggregates site outcomes across the whole run.
type Counts struct {
	Applied    int `json:"applied"`
	Skipped    int `json:"skipped"`
	Unresolved int `json:"unresolved"`
	Errored    int `json:"errored"`
}

// Stats summarizes the analyzed project.
type Stats struct {
	TotalFiles      int `json:"total_files"`
	AnalyzedFiles   int `json:"analyzed_files"`
	TotalComponents int `json:"total_components"`
}

// Project is the single source of truth for a run. It is handed to the
// backup collaborator before any write occurs.
type Project struct {
	mu      sync.Mutex
	files   []FileResult
	started time.Time

	RootPath string `json:"root_path"`
	DryRun   bool   `json:"dry_run"`
}

// NewProject creates an empty report for the given root.
func NewProject(rootPath string, dryRun bool) *Project {
	return &Project{RootPath: rootPath, DryRun: dryRun, started: time.Now()}
}

// Add appends a file result. Safe for concurrent use.
func (p *Project) Add(fr FileResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files = append(p.files, fr)
}

// ShedDetails drops per-site diagnostics from everything accumulated so
// far. Called by the backpressure controller; counts are preserved.
func (p *Project) ShedDetails() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.files {
		p.files[i].Sites = nil
	}
}

// SetStatus updates the recorded status of one file, e.g. when the review
// collaborator excludes it from the apply phase.
func (p *Project) SetStatus(path, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.files {
		if p.files[i].Path == path {
			p.files[i].Status = status
			return
		}
	}
}

// Files returns the results re-sorted by original walk order.
func (p *Project) Files() []FileResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]FileResult, len(p.files))
	copy(out, p.files)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Counts totals site outcomes across all files.
func (p *Project) Counts() Counts {
	p.mu.Lock()
	defer p.mu.Unlock()
	var c Counts
	for _, f := range p.files {
		c.Applied += f.Applied
		c.Skipped += f.Skipped
		c.Unresolved += f.Unresolved
		c.Errored += len(f.Errors)
	}
	return c
}

// Stats summarizes file-level outcomes.
func (p *Project) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Stats{TotalFiles: len(p.files)}
	for _, f := range p.files {
		if f.Status != StatusErrored {
			s.AnalyzedFiles++
		}
		if f.Sites != nil {
			s.TotalComponents += len(f.Sites)
		} else {
			// Details were shed; fall back to counted sites.
			s.TotalComponents += f.Applied + f.Skipped + f.Unresolved
		}
	}
	return s
}

// ErrorCount returns the number of files that ended in StatusErrored.
func (p *Project) ErrorCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, f := range p.files {
		if f.Status == StatusErrored {
			n++
		}
	}
	return n
}

// artifact is the on-disk JSON shape of a finished report.
type artifact struct {
	RootPath    string       `json:"root_path"`
	DryRun      bool         `json:"dry_run"`
	GeneratedAt string       `json:"generated_at"`
	Duration    string       `json:"duration"`
	Counts      Counts       `json:"counts"`
	Stats       Stats        `json:"stats"`
	Files       []FileResult `json:"files"`
}

// WriteArtifact writes the report as JSON into dir (created if needed).
func (p *Project) WriteArtifact(dir string) error {
	a := artifact{
		RootPath:    p.RootPath,
		DryRun:      p.DryRun,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Duration:    time.Since(p.started).String(),
		Counts:      p.Counts(),
		Stats:       p.Stats(),
		Files:       p.Files(),
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(dir, "report.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
