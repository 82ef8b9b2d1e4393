// Package migrate orchestrates a full run: walk, batch pipeline, review,
// backup-gated apply, and the report artifact. The backup and review
// collaborators are consumed through interfaces; the core never writes a
// file in dry-run mode and, in apply mode, only after the backup
// collaborator confirms a snapshot exists.
package migrate

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/migr8/migr8/internal/batch"
	"github.com/migr8/migr8/internal/cache"
	"github.com/migr8/migr8/internal/config"
	"github.com/migr8/migr8/internal/report"
	"github.com/migr8/migr8/internal/rules"
	"github.com/migr8/migr8/internal/source"
)

// Decision is the review collaborator's verdict on one candidate.
type Decision int

const (
	// Confirm accepts the rewrite for the apply phase.
	Confirm Decision = iota
	// NeedsAdjustment excludes the file from the apply phase but keeps it
	// in the report as a follow-up item.
	NeedsAdjustment
	// Stop cancels all remaining work.
	Stop
)

// Candidate is one file handed to the review collaborator.
type Candidate struct {
	Path     string
	Original []byte
	Updated  []byte
	RuleInfo []string
}

// Reviewer is the interactive-diff collaborator.
type Reviewer interface {
	Review(c Candidate) (Decision, error)
}

// AutoConfirm accepts every candidate. It is the default reviewer for
// non-interactive runs.
type AutoConfirm struct{}

func (AutoConfirm) Review(Candidate) (Decision, error) { return Confirm, nil }

// Backup snapshots originals before any write and restores them on
// rollback request.
type Backup interface {
	Snapshot(path string, original, updated []byte) error
	Restore(path string) ([]byte, error)
}

// Runner executes one migration run over a project.
type Runner struct {
	Config   *config.Config
	Sets     []*rules.RuleSet
	SetErrs  []error // malformed rule sets, reported but non-fatal
	Cache    *cache.Parse
	Backup   Backup
	Reviewer Reviewer
}

// Run performs the pipeline and, in apply mode, the backup-gated write
// phase. It always returns a complete report; only a FatalError aborts.
func (r *Runner) Run(ctx context.Context, applyMode bool) (*report.Project, error) {
	cfg := r.Config
	if r.Reviewer == nil {
		r.Reviewer = AutoConfirm{}
	}

	files, err := source.Walk(cfg.Root, cfg.Include, cfg.Exclude, cfg.MaxFileBytes)
	if err != nil {
		return nil, err
	}
	log.Printf("[migrate] found %d candidate files in %s", len(files), cfg.Root)

	coord := batch.New(cfg.Root, r.Sets, r.Cache, batch.Options{
		Concurrency:     cfg.Concurrency,
		MemoryCeilingMB: cfg.MemoryCeilingMB,
		FileTimeout:     cfg.FileTimeout(),
		MaxFileBytes:    cfg.MaxFileBytes,
		DryRun:          !applyMode,
	})

	proj, outcomes, _, err := coord.Run(ctx, files)
	if err != nil {
		return nil, err
	}

	for _, serr := range r.SetErrs {
		log.Printf("[migrate] skipped rule set: %v", serr)
	}

	// Deterministic hand-off order for diff review and rollback.
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })

	if applyMode {
		if err := r.applyPhase(ctx, proj, outcomes); err != nil {
			return proj, err
		}
	}

	if cfg.Output.Dir != "" {
		outDir := filepath.Join(cfg.Root, cfg.Output.Dir)
		if err := proj.WriteArtifact(outDir); err != nil {
			log.Printf("[migrate] warning: failed to write report artifact: %v", err)
		}
	}

	counts := proj.Counts()
	log.Printf("[migrate] run complete: %d applied, %d skipped, %d unresolved, %d errored",
		counts.Applied, counts.Skipped, counts.Unresolved, counts.Errored)
	return proj, nil
}

// applyPhase reviews each candidate and writes confirmed rewrites, gated on
// a successful backup snapshot.
func (r *Runner) applyPhase(ctx context.Context, proj *report.Project, outcomes []batch.Outcome) error {
	if r.Backup == nil {
		return report.Fatalf("apply mode requires a backup collaborator")
	}

	for i, o := range outcomes {
		if err := ctx.Err(); err != nil {
			return err
		}

		decision, err := r.Reviewer.Review(Candidate{
			Path:     o.Path,
			Original: o.Original,
			Updated:  o.Text,
			RuleInfo: o.RuleInfo,
		})
		if err != nil {
			return fmt.Errorf("review %s: %w", o.Path, err)
		}

		switch decision {
		case Stop:
			// The current and all unreviewed candidates are never written;
			// the report must not claim them applied.
			for _, rest := range outcomes[i:] {
				proj.SetStatus(rest.Path, report.StatusSkipped)
			}
			log.Printf("[migrate] review stopped the run at %s", o.Path)
			return nil
		case NeedsAdjustment:
			proj.SetStatus(o.Path, report.StatusNeedsAdjustment)
			continue
		}

		if err := r.Backup.Snapshot(o.Path, o.Original, o.Text); err != nil {
			proj.SetStatus(o.Path, report.StatusErrored)
			log.Printf("[migrate] backup failed for %s, file left untouched: %v", o.Path, err)
			continue
		}

		abs := filepath.Join(r.Config.Root, filepath.FromSlash(o.Path))
		if err := os.WriteFile(abs, o.Text, 0o644); err != nil {
			proj.SetStatus(o.Path, report.StatusErrored)
			log.Printf("[migrate] write failed for %s: %v", o.Path, err)
			continue
		}
		if r.Cache != nil {
			r.Cache.Invalidate(o.Path)
		}
	}
	return nil
}
