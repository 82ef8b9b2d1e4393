// Package batch schedules the per-file migration pipeline
// (parse → resolve → plan → apply) across a bounded worker pool with
// memory-aware backpressure. Each file's pipeline runs entirely within one
// worker, so no cross-file mutable state needs locking during
// transformation; the usage graph is assembled by a deterministic fan-in
// merge and the report accumulator is append-only.
package batch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/migr8/migr8/internal/apply"
	"github.com/migr8/migr8/internal/cache"
	"github.com/migr8/migr8/internal/graph"
	"github.com/migr8/migr8/internal/jsx"
	"github.com/migr8/migr8/internal/planner"
	"github.com/migr8/migr8/internal/report"
	"github.com/migr8/migr8/internal/rules"
	"github.com/migr8/migr8/internal/source"
)

// Options tunes the coordinator.
type Options struct {
	Concurrency     int
	MemoryCeilingMB int
	FileTimeout     time.Duration
	MaxFileBytes    int64
	DryRun          bool
}

// Outcome is one file's computed rewrite, kept in memory until the
// review/backup-gated apply phase decides its fate. Files without changes
// produce no outcome.
type Outcome struct {
	Path     string
	Index    int
	Original []byte
	Text     []byte
	Changed  []apply.Change
	RuleInfo []string
}

// Coordinator runs the pipeline for one project.
type Coordinator struct {
	root  string
	sets  []*rules.RuleSet
	cache *cache.Parse
	opts  Options

	sem      *semaphore.Weighted
	pressure *pressureController
}

// New creates a coordinator. cache may be nil.
func New(root string, sets []*rules.RuleSet, pc *cache.Parse, opts Options) *Coordinator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Coordinator{
		root:     root,
		sets:     sets,
		cache:    pc,
		opts:     opts,
		sem:      semaphore.NewWeighted(int64(opts.Concurrency)),
		pressure: newPressureController(opts.MemoryCeilingMB),
	}
}

// Run executes both pipeline phases and returns the aggregated report, the
// per-file outcomes, and the sealed usage graph. The run-level context is
// checked at each file boundary; cancellation aborts remaining scheduled
// work and is always safe because writes are deferred to the apply phase.
func (c *Coordinator) Run(ctx context.Context, files []source.File) (*report.Project, []Outcome, *graph.Graph, error) {
	proj := report.NewProject(c.root, c.opts.DryRun)
	g := graph.New(jsx.ParsePathAliases(c.root))

	texts, err := c.parsePhase(ctx, files, g, proj)
	if err != nil {
		return nil, nil, nil, err
	}
	g.Seal()

	outcomes, err := c.planPhase(ctx, files, g, texts, proj)
	if err != nil {
		return nil, nil, nil, err
	}
	return proj, outcomes, g, nil
}

// parsePhase fans out per-file parsing and merges the fragments into the
// graph. Returns the raw text of successfully parsed files keyed by path.
func (c *Coordinator) parsePhase(ctx context.Context, files []source.File, g *graph.Graph, proj *report.Project) (map[string][]byte, error) {
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		texts = make(map[string][]byte, len(files))
	)

	for i := range files {
		if err := ctx.Err(); err != nil {
			break
		}
		weight := c.pressure.weight(c.opts.Concurrency, proj)
		if err := c.sem.Acquire(ctx, weight); err != nil {
			break
		}

		f := files[i]
		wg.Add(1)
		go func(w int64) {
			defer c.sem.Release(w)
			defer wg.Done()

			if !jsx.IsSourceFile(f.Path) {
				return
			}
			if f.Text == nil {
				if err := source.Read(c.root, &f, c.opts.MaxFileBytes); err != nil {
					log.Printf("[batch] skipping %s: %v", f.Path, err)
					mu.Lock()
					g.AddError(f.Path, &report.ParseError{Path: f.Path, Err: err})
					mu.Unlock()
					proj.Add(report.FileResult{
						Path: f.Path, Index: f.Index,
						Status: report.StatusErrored,
						Errors: []string{(&report.ParseError{Path: f.Path, Err: err}).Error()},
					})
					return
				}
			}

			frag, err := c.parseCached(f.Path, f.Text)
			if err != nil {
				mu.Lock()
				g.AddError(f.Path, &report.ParseError{Path: f.Path, Err: err})
				mu.Unlock()
				proj.Add(report.FileResult{
					Path: f.Path, Index: f.Index,
					Status: report.StatusErrored,
					Errors: []string{(&report.ParseError{Path: f.Path, Err: err}).Error()},
				})
				return
			}

			mu.Lock()
			g.AddFragment(frag)
			texts[f.Path] = f.Text
			mu.Unlock()
		}(weight)
	}

	wg.Wait()
	return texts, nil
}

// planPhase resolves, plans, and computes the rewritten text per file.
func (c *Coordinator) planPhase(ctx context.Context, files []source.File, g *graph.Graph, texts map[string][]byte, proj *report.Project) ([]Outcome, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		outcomes []Outcome
	)

	for i := range files {
		if err := ctx.Err(); err != nil {
			break
		}
		f := files[i]
		if _, ok := texts[f.Path]; !ok {
			continue // parse failure already reported
		}
		weight := c.pressure.weight(c.opts.Concurrency, proj)
		if err := c.sem.Acquire(ctx, weight); err != nil {
			break
		}

		wg.Add(1)
		go func(w int64) {
			defer c.sem.Release(w)
			defer wg.Done()

			deadline := time.Now().Add(c.opts.FileTimeout)
			fr := c.processFile(g, f, texts[f.Path], deadline)
			if fr.outcome != nil {
				mu.Lock()
				outcomes = append(outcomes, *fr.outcome)
				mu.Unlock()
			}
			proj.Add(fr.result)
		}(weight)
	}

	wg.Wait()
	return outcomes, nil
}

type fileRun struct {
	result  report.FileResult
	outcome *Outcome
}

// processFile runs resolve → plan → apply for one file. All patches of the
// file's sites are spliced in a single pass; an inconsistent span leaves
// the file untouched and reported failed.
func (c *Coordinator) processFile(g *graph.Graph, f source.File, src []byte, deadline time.Time) fileRun {
	fr := fileRun{result: report.FileResult{Path: f.Path, Index: f.Index, Status: report.StatusUnchanged}}
	shedding := c.pressure.shedding()

	var patches []apply.Patch
	var ruleInfo []string
	var replaced []jsx.Span

	for _, resolved := range g.ResolveFile(f.Path) {
		if c.opts.FileTimeout > 0 && time.Now().After(deadline) {
			fr.result.Status = report.StatusErrored
			fr.result.Errors = append(fr.result.Errors, fmt.Sprintf("timeout processing %s", f.Path))
			return fr
		}

		detail := report.SiteDetail{
			LocalName: resolved.Site.LocalName,
			Package:   resolved.Package,
			Exported:  resolved.Exported,
			Line:      resolved.Site.Line,
		}

		if resolved.Unresolved {
			fr.result.Unresolved++
			detail.Outcome = "unresolved"
			log.Printf("[batch] %v", &report.ResolutionError{
				Path:      f.Path,
				LocalName: resolved.Site.LocalName,
				Reason:    resolved.Reason,
			})
			if !shedding {
				fr.result.Sites = append(fr.result.Sites, detail)
			}
			continue
		}

		// Sites inside an element already replaced this run ride along in
		// the replacement's {CHILDREN} text; a later run migrates them.
		if containedIn(replaced, resolved.Site.Span) {
			fr.result.Skipped++
			detail.Outcome = "deferred"
			if !shedding {
				fr.result.Sites = append(fr.result.Sites, detail)
			}
			continue
		}

		matched := false
		for _, rs := range c.sets {
			plan, ok := planner.Plan(&resolved, rs)
			if !ok {
				continue
			}
			sitePatches, err := apply.Patches(src, &resolved.Site, plan)
			if err != nil {
				fr.result.Status = report.StatusErrored
				fr.result.Errors = append(fr.result.Errors, (&report.ApplyError{Path: f.Path, Err: err}).Error())
				return fr
			}
			patches = append(patches, sitePatches...)
			ruleInfo = append(ruleInfo, rs.Name)
			fr.result.Applied++
			detail.Outcome = "applied"
			detail.RuleSet = rs.Name
			matched = true
			if plan.Terminal {
				replaced = append(replaced, resolved.Site.Span)
			}
			break
		}
		if !matched {
			fr.result.Skipped++
			detail.Outcome = "no_match"
		}
		if !shedding {
			fr.result.Sites = append(fr.result.Sites, detail)
		}
	}

	if len(patches) == 0 {
		return fr
	}

	res, err := apply.Splice(src, patches)
	if err != nil {
		fr.result.Status = report.StatusErrored
		fr.result.Applied = 0
		fr.result.Errors = append(fr.result.Errors, (&report.ApplyError{Path: f.Path, Err: err}).Error())
		return fr
	}

	fr.result.Status = report.StatusApplied
	fr.outcome = &Outcome{
		Path:     f.Path,
		Index:    f.Index,
		Original: src,
		Text:     res.Text,
		Changed:  res.Changed,
		RuleInfo: ruleInfo,
	}
	return fr
}

// containedIn reports whether span lies strictly inside one of the spans.
// Sites arrive outermost-first, so parents are recorded before children.
func containedIn(spans []jsx.Span, span jsx.Span) bool {
	for _, s := range spans {
		if span.Start >= s.Start && span.End <= s.End && span != s {
			return true
		}
	}
	return false
}

func (c *Coordinator) parseCached(path string, src []byte) (*jsx.Fragment, error) {
	if c.cache == nil {
		return jsx.Parse(src, path)
	}
	hash := jsx.ContentHash(src)
	if frag, ok := c.cache.Get(path, hash); ok {
		return frag, nil
	}
	frag, err := jsx.Parse(src, path)
	if err != nil {
		return nil, err
	}
	c.cache.Put(path, hash, frag)
	return frag, nil
}
