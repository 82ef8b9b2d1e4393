package graph

import (
	"context"
	"log"

	"github.com/migr8/migr8/internal/cache"
	"github.com/migr8/migr8/internal/jsx"
	"github.com/migr8/migr8/internal/report"
	"github.com/migr8/migr8/internal/source"
)

// BuildOptions configures a sequential graph build.
type BuildOptions struct {
	Include      []string
	Exclude      []string
	MaxFileBytes int64
	Cache        *cache.Parse // optional
}

// Build walks root, parses every candidate file, and returns the sealed
// usage graph. A single file's parse failure is recorded per file and does
// not abort the walk. The batch coordinator offers a parallel equivalent;
// this form serves one-shot queries.
func Build(ctx context.Context, root string, opts BuildOptions) (*Graph, error) {
	files, err := source.Walk(root, opts.Include, opts.Exclude, opts.MaxFileBytes)
	if err != nil {
		return nil, err
	}

	g := New(jsx.ParsePathAliases(root))
	for i := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		f := &files[i]
		if !jsx.IsSourceFile(f.Path) {
			continue
		}
		if err := source.Read(root, f, opts.MaxFileBytes); err != nil {
			log.Printf("[graph] skipping %s: %v", f.Path, err)
			g.AddError(f.Path, &report.ParseError{Path: f.Path, Err: err})
			continue
		}

		frag, err := parseCached(opts.Cache, f.Path, f.Text)
		if err != nil {
			g.AddError(f.Path, &report.ParseError{Path: f.Path, Err: err})
			continue
		}
		g.AddFragment(frag)
	}

	g.Seal()
	return g, nil
}

func parseCached(pc *cache.Parse, path string, src []byte) (*jsx.Fragment, error) {
	if pc == nil {
		return jsx.Parse(src, path)
	}
	hash := jsx.ContentHash(src)
	if frag, ok := pc.Get(path, hash); ok {
		return frag, nil
	}
	frag, err := jsx.Parse(src, path)
	if err != nil {
		return nil, err
	}
	pc.Put(path, hash, frag)
	return frag, nil
}
