// Package apply turns a site's edit plan into byte-level patches against the
// original source and splices them in. Patches are applied right-to-left by
// source offset so pending offsets stay valid without re-parsing; every byte
// outside a changed range is guaranteed equal to the input byte.
package apply

import (
	"fmt"
	"sort"

	"github.com/migr8/migr8/internal/jsx"
	"github.com/migr8/migr8/internal/planner"
)

// Patch replaces one span of the original source with new text. A
// zero-length span is an insertion.
type Patch struct {
	Span jsx.Span
	Text string

	seq       int
	cancelled bool
}

// Change records one changed range of the output: the original span and the
// length of the replacement text.
type Change struct {
	Span   jsx.Span `json:"span"`
	NewLen int      `json:"new_len"`
}

// Result is the rewritten file content plus its changed ranges.
type Result struct {
	Text    []byte
	Changed []Change
}

// Apply computes and splices the patches for one site's plan.
func Apply(src []byte, site *jsx.Site, plan *planner.EditPlan) (Result, error) {
	patches, err := Patches(src, site, plan)
	if err != nil {
		return Result{}, err
	}
	return Splice(src, patches)
}

// vAttr tracks one attribute through the plan: either an original attribute
// (orig != nil) or one synthesized by an earlier SetAttr in the same plan.
type vAttr struct {
	orig       *jsx.Attr
	namePatch  *Patch // pending rename of an original attribute
	valuePatch *Patch // pending value rewrite of an original attribute
	insert     *Patch // the insertion patch of a synthesized attribute
	value      string // current value of a synthesized attribute
}

// Patches translates a plan's logical edits into physical patches. Edits
// later in the plan may target attributes renamed or inserted by earlier
// ones; patches on the same original span are coalesced rather than stacked.
func Patches(src []byte, site *jsx.Site, plan *planner.EditPlan) ([]Patch, error) {
	if plan == nil || len(plan.Edits) == 0 {
		return nil, nil
	}

	if plan.Terminal {
		return replacePatches(src, site, plan)
	}

	attrs := make(map[string]*vAttr, len(site.Attrs))
	for i := range site.Attrs {
		a := &site.Attrs[i]
		attrs[a.Name] = &vAttr{orig: a}
	}

	var patches []*Patch
	seq := 0
	newPatch := func(span jsx.Span, text string) *Patch {
		p := &Patch{Span: span, Text: text, seq: seq}
		seq++
		patches = append(patches, p)
		return p
	}

	for _, e := range plan.Edits {
		switch e.Kind {
		case planner.RemoveAttr:
			v, ok := attrs[e.Name]
			if !ok {
				continue
			}
			if v.orig != nil {
				start := extendOverWhitespace(src, v.orig.Span.Start, site.OpenSpan.Start)
				newPatch(jsx.Span{Start: start, End: v.orig.Span.End}, "")
				if v.namePatch != nil {
					v.namePatch.cancelled = true
				}
				if v.valuePatch != nil {
					v.valuePatch.cancelled = true
				}
			} else if v.insert != nil {
				v.insert.cancelled = true
			}
			delete(attrs, e.Name)

		case planner.RenameAttr:
			v, ok := attrs[e.Name]
			if !ok {
				continue
			}
			if v.orig != nil {
				if v.namePatch == nil {
					v.namePatch = newPatch(v.orig.NameSpan, e.NewName)
				} else {
					v.namePatch.Text = e.NewName
				}
			} else if v.insert != nil {
				v.insert.Text = fmt.Sprintf(" %s=%q", e.NewName, v.value)
			}
			delete(attrs, e.Name)
			attrs[e.NewName] = v

		case planner.SetAttr:
			v, ok := attrs[e.Name]
			switch {
			case ok && v.orig != nil && !v.orig.ValueSpan.IsZero():
				if v.valuePatch == nil {
					v.valuePatch = newPatch(v.orig.ValueSpan, fmt.Sprintf("%q", e.Value))
				} else {
					v.valuePatch.Text = fmt.Sprintf("%q", e.Value)
				}
			case ok && v.orig != nil:
				// Bare attribute gaining a value.
				if v.valuePatch == nil {
					at := jsx.Span{Start: v.orig.Span.End, End: v.orig.Span.End}
					v.valuePatch = newPatch(at, fmt.Sprintf("=%q", e.Value))
				} else {
					v.valuePatch.Text = fmt.Sprintf("=%q", e.Value)
				}
			case ok && v.insert != nil:
				v.value = e.Value
				v.insert.Text = fmt.Sprintf(" %s=%q", e.Name, e.Value)
			default:
				at := jsx.Span{Start: site.InsertOffset, End: site.InsertOffset}
				p := newPatch(at, fmt.Sprintf(" %s=%q", e.Name, e.Value))
				attrs[e.Name] = &vAttr{insert: p, value: e.Value}
			}

		case planner.ReplaceNode:
			return nil, fmt.Errorf("replace edit in non-terminal plan")
		}
	}

	out := make([]Patch, 0, len(patches))
	for _, p := range patches {
		if !p.cancelled {
			out = append(out, *p)
		}
	}
	return out, nil
}

// replacePatches renders the terminal replaceWith template into a single
// patch covering the full element span.
func replacePatches(src []byte, site *jsx.Site, plan *planner.EditPlan) ([]Patch, error) {
	e := plan.Edits[0]
	if e.Kind != planner.ReplaceNode || e.Replacement == nil {
		return nil, fmt.Errorf("terminal plan without replacement")
	}

	inner := make(map[string]bool, len(e.Replacement.InnerAttrs))
	for _, name := range e.Replacement.InnerAttrs {
		inner[name] = true
	}

	// Outer spread: every original attribute and spread not explicitly
	// consumed by the inner subset, in source order, verbatim.
	type frag struct {
		start int
		text  string
	}
	var outerFrags []frag
	for _, a := range site.Attrs {
		if inner[a.Name] {
			continue
		}
		outerFrags = append(outerFrags, frag{a.Span.Start, string(src[a.Span.Start:a.Span.End])})
	}
	for _, s := range site.Spreads {
		outerFrags = append(outerFrags, frag{s.Start, string(src[s.Start:s.End])})
	}
	sort.Slice(outerFrags, func(i, j int) bool { return outerFrags[i].start < outerFrags[j].start })

	outer := make([]string, len(outerFrags))
	for i, f := range outerFrags {
		outer[i] = f.text
	}

	// Inner spread: exactly the named subset, in declared order.
	var innerAttrs []string
	for _, name := range e.Replacement.InnerAttrs {
		if a, ok := site.Attr(name); ok {
			innerAttrs = append(innerAttrs, string(src[a.Span.Start:a.Span.End]))
		}
	}

	children := ""
	if !site.ChildrenSpan.IsZero() {
		children = string(src[site.ChildrenSpan.Start:site.ChildrenSpan.End])
	}

	text := e.Replacement.Template.Render(outer, innerAttrs, children)
	return []Patch{{Span: site.Span, Text: text}}, nil
}

// Splice validates the patches and applies them right-to-left. Overlapping
// or out-of-bounds spans are an error and leave the input untouched.
func Splice(src []byte, patches []Patch) (Result, error) {
	if len(patches) == 0 {
		return Result{Text: src}, nil
	}

	sorted := make([]Patch, len(patches))
	copy(sorted, patches)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Span.Start != sorted[j].Span.Start {
			return sorted[i].Span.Start < sorted[j].Span.Start
		}
		return sorted[i].seq < sorted[j].seq
	})

	prevEnd := 0
	for _, p := range sorted {
		if p.Span.Start < 0 || p.Span.End > len(src) || p.Span.Start > p.Span.End {
			return Result{}, fmt.Errorf("patch span [%d,%d) out of bounds (%d bytes)", p.Span.Start, p.Span.End, len(src))
		}
		if p.Span.Start < prevEnd {
			return Result{}, fmt.Errorf("overlapping patch at offset %d", p.Span.Start)
		}
		if p.Span.End > prevEnd {
			prevEnd = p.Span.End
		}
	}

	// Right-to-left application; for insertions at the same offset the
	// later-sequenced patch goes first so the final text keeps plan order.
	text := make([]byte, len(src))
	copy(text, src)
	var changed []Change
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		text = append(text[:p.Span.Start], append([]byte(p.Text), text[p.Span.End:]...)...)
		changed = append(changed, Change{Span: p.Span, NewLen: len(p.Text)})
	}

	// Report changes in ascending source order.
	for i, j := 0, len(changed)-1; i < j; i, j = i+1, j-1 {
		changed[i], changed[j] = changed[j], changed[i]
	}
	return Result{Text: text, Changed: changed}, nil
}

// extendOverWhitespace walks the deletion start backwards over the
// whitespace that separated the attribute from what precedes it, stopping
// at the opening tag.
func extendOverWhitespace(src []byte, start, floor int) int {
	for start > floor+1 {
		c := src[start-1]
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			break
		}
		start--
	}
	return start
}
