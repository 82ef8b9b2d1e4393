// Package graph joins per-file import and usage fragments into a
// project-wide usage graph and resolves every component-instantiation site
// back to its originating package export, across aliases, namespace member
// access, and re-export chains.
package graph

import (
	"path"
	"sort"
	"strings"

	"github.com/migr8/migr8/internal/jsx"
)

// maxResolveDepth caps re-export chain traversal. Beyond the cap a site is
// marked unresolved rather than looping.
const maxResolveDepth = 32

// Resolved is a usage site joined with its canonical (package, export) pair.
// Unresolved sites are retained in the graph for reporting but are never
// matched against rules.
type Resolved struct {
	Site     jsx.Site
	Package  string
	Exported string

	// ImportKind is the binding kind of the site's import in its own file
	// ("named", "default", "namespace"). Empty for file-local components.
	ImportKind string

	Unresolved bool
	Reason     string
}

// Graph holds the merged per-file fragments of one project.
type Graph struct {
	fragments map[string]*jsx.Fragment
	modules   map[string]string // module path -> file path, first registration wins
	errors    map[string]error  // file path -> parse error
	aliases   []pathAlias       // tsconfig path aliases, longest prefix first
	sealed    bool
	order     []string
}

type pathAlias struct {
	prefix      string
	replacement string
}

// New creates an empty graph. aliases maps tsconfig path-alias prefixes to
// their replacements (may be nil). Overlapping prefixes match longest
// first, so iteration order of the input map never affects resolution.
func New(aliases map[string]string) *Graph {
	g := &Graph{
		fragments: make(map[string]*jsx.Fragment),
		modules:   make(map[string]string),
		errors:    make(map[string]error),
	}
	for prefix, replacement := range aliases {
		g.aliases = append(g.aliases, pathAlias{prefix: prefix, replacement: replacement})
	}
	sort.Slice(g.aliases, func(i, j int) bool {
		a, b := g.aliases[i], g.aliases[j]
		if len(a.prefix) != len(b.prefix) {
			return len(a.prefix) > len(b.prefix)
		}
		return a.prefix < b.prefix
	})
	return g
}

// AddFragment records one file's analysis output. Fragments may arrive in
// any order; the merge is finalized deterministically in Seal.
func (g *Graph) AddFragment(f *jsx.Fragment) {
	g.fragments[f.Path] = f
	g.sealed = false
}

// AddError records a per-file parse failure. The file stays out of
// resolution but is reported.
func (g *Graph) AddError(path string, err error) {
	g.errors[path] = err
}

// Seal finalizes the module index. Merge order is the sorted file path, so
// "first resolver wins" ties (e.g. src/a.ts vs src/a.tsx both claiming
// module src/a) are reproducible regardless of arrival order.
func (g *Graph) Seal() {
	g.modules = make(map[string]string, len(g.fragments)*2)
	g.order = g.order[:0]
	for p := range g.fragments {
		g.order = append(g.order, p)
	}
	sort.Strings(g.order)

	for _, p := range g.order {
		m := modulePath(p)
		if _, ok := g.modules[m]; !ok {
			g.modules[m] = p
		}
		if strings.HasSuffix(m, "/index") {
			dir := strings.TrimSuffix(m, "/index")
			if _, ok := g.modules[dir]; !ok {
				g.modules[dir] = p
			}
		}
	}
	g.sealed = true
}

// Fragment returns the fragment for a file path, if present.
func (g *Graph) Fragment(path string) (*jsx.Fragment, bool) {
	f, ok := g.fragments[path]
	return f, ok
}

// Errors returns the per-file parse errors keyed by path.
func (g *Graph) Errors() map[string]error { return g.errors }

// FileCount returns the number of merged fragments.
func (g *Graph) FileCount() int { return len(g.fragments) }

// SiteCount returns the total number of usage sites in the graph.
func (g *Graph) SiteCount() int {
	n := 0
	for _, f := range g.fragments {
		n += len(f.Sites)
	}
	return n
}

// ResolveAll resolves every site of every fragment in sorted-path order.
func (g *Graph) ResolveAll() []Resolved {
	if !g.sealed {
		g.Seal()
	}
	var out []Resolved
	for _, p := range g.order {
		for _, site := range g.fragments[p].Sites {
			out = append(out, g.Resolve(site))
		}
	}
	return out
}

// ResolveFile resolves the sites of a single file.
func (g *Graph) ResolveFile(path string) []Resolved {
	if !g.sealed {
		g.Seal()
	}
	f, ok := g.fragments[path]
	if !ok {
		return nil
	}
	out := make([]Resolved, 0, len(f.Sites))
	for _, site := range f.Sites {
		out = append(out, g.Resolve(site))
	}
	return out
}

// Resolve maps one site's local name back to its canonical
// (package, exported symbol) pair.
func (g *Graph) Resolve(site jsx.Site) Resolved {
	if !g.sealed {
		g.Seal()
	}

	base, member, hasMember := splitMember(site.LocalName)

	rec := g.importOf(site.FilePath, base)
	if rec == nil {
		// Not imported: a component defined in this file. Canonical is the
		// file's own module path so project-local rule sets can target it.
		return Resolved{Site: site, Package: modulePath(site.FilePath), Exported: base}
	}

	visited := make(map[chaseKey]bool)
	var res Resolved
	switch rec.Kind {
	case jsx.ImportNamespace:
		if !hasMember {
			return unresolved(site, "namespace import used without member access")
		}
		res = g.chase(site, site.FilePath, rec.Package, member, visited, 0)

	case jsx.ImportDefault:
		res = g.chase(site, site.FilePath, rec.Package, "default", visited, 0)

	case jsx.ImportNamed:
		res = g.chase(site, site.FilePath, rec.Package, rec.ImportedName, visited, 0)

	default:
		return unresolved(site, "side-effect import has no bindings")
	}
	res.ImportKind = rec.Kind
	return res
}

type chaseKey struct {
	module string
	name   string
}

// chase follows a (specifier, name) pair through re-export chains until it
// terminates at an external package or a local declaration. A visited set
// guards against cycles; depth is capped at maxResolveDepth.
func (g *Graph) chase(site jsx.Site, fromFile, spec, name string, visited map[chaseKey]bool, depth int) Resolved {
	if depth > maxResolveDepth {
		return unresolved(site, "re-export chain exceeds depth cap")
	}

	module, external := g.normalize(spec, path.Dir(fromFile))
	if external {
		return Resolved{Site: site, Package: module, Exported: name}
	}

	key := chaseKey{module: module, name: name}
	if visited[key] {
		return unresolved(site, "re-export cycle through "+module)
	}
	visited[key] = true

	filePath, ok := g.modules[module]
	if !ok {
		return unresolved(site, "module "+module+" not found in project")
	}
	frag := g.fragments[filePath]

	// Direct export record, first declared wins.
	for _, rec := range frag.Exports {
		if rec.Name != name {
			continue
		}
		if rec.Star {
			// export * as ns from './x': the name is a whole-module
			// namespace, not a single symbol.
			return unresolved(site, "namespace re-export of "+rec.Source)
		}
		if rec.Source != "" {
			sourceName := rec.SourceName
			if sourceName == "" {
				sourceName = name
			}
			return g.chase(site, filePath, rec.Source, sourceName, visited, depth+1)
		}
		return Resolved{Site: site, Package: module, Exported: name}
	}

	// Star re-exports in declaration order; the first chain that resolves
	// the name wins.
	for _, rec := range frag.Exports {
		if !rec.Star || rec.Name != "" {
			continue
		}
		r := g.chase(site, filePath, rec.Source, name, visited, depth+1)
		if !r.Unresolved {
			return r
		}
	}

	return unresolved(site, "no export "+name+" in "+module)
}

// importOf looks up the per-file symbol table entry for a local name.
func (g *Graph) importOf(filePath, localName string) *jsx.ImportRecord {
	frag, ok := g.fragments[filePath]
	if !ok {
		return nil
	}
	for i := range frag.Imports {
		if frag.Imports[i].LocalName == localName {
			return &frag.Imports[i]
		}
	}
	return nil
}

// normalize resolves a specifier written in fileDir to either a
// project-relative module path (external=false) or an external package
// specifier (external=true). tsconfig path aliases are applied first.
func (g *Graph) normalize(spec, fileDir string) (string, bool) {
	for _, a := range g.aliases {
		if strings.HasPrefix(spec, a.prefix) {
			rest := strings.TrimPrefix(spec, a.prefix)
			return path.Clean(a.replacement + rest), false
		}
	}

	if strings.HasPrefix(spec, ".") {
		return path.Clean(path.Join(fileDir, spec)), false
	}

	// Everything else is external (react, @mui/material, old-ui, ...).
	return spec, true
}

func unresolved(site jsx.Site, reason string) Resolved {
	return Resolved{Site: site, Unresolved: true, Reason: reason}
}

// modulePath strips the source extension: src/ui/button.tsx -> src/ui/button.
func modulePath(filePath string) string {
	ext := path.Ext(filePath)
	switch strings.ToLower(ext) {
	case ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs":
		return strings.TrimSuffix(filePath, ext)
	}
	return filePath
}

// splitMember splits "NS.Button" into ("NS", "Button", true).
func splitMember(localName string) (base, member string, ok bool) {
	if i := strings.Index(localName, "."); i >= 0 {
		return localName[:i], localName[i+1:], true
	}
	return localName, "", false
}
