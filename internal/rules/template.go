package rules

import (
	"fmt"
	"strings"
)

// Placeholder tokens recognized in replaceWith templates.
const (
	tokenOuter    = "{...OUTER}"
	tokenInner    = "{...INNER}"
	tokenChildren = "{CHILDREN}"
)

type segKind int

const (
	segText segKind = iota
	segOuter
	segInner
	segChildren
)

type segment struct {
	kind segKind
	text string // literal text for segText
}

// Template is the placeholder-aware compiled form of a replaceWith
// template. It is built once at rule-set load time.
type Template struct {
	source   string
	segments []segment
}

// compileTemplate splits a template string on its placeholder tokens.
// Whitespace directly before a spread placeholder is folded into it so an
// empty expansion does not leave doubled spaces behind.
func compileTemplate(s string) (*Template, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty template")
	}
	if !strings.Contains(s, "<") {
		return nil, fmt.Errorf("template %q contains no element", s)
	}

	t := &Template{source: s}
	rest := s
	for rest != "" {
		idx, token, kind := nextToken(rest)
		if idx < 0 {
			t.segments = append(t.segments, segment{kind: segText, text: rest})
			break
		}
		lit := rest[:idx]
		if kind == segOuter || kind == segInner {
			lit = strings.TrimRight(lit, " \t")
		}
		if lit != "" {
			t.segments = append(t.segments, segment{kind: segText, text: lit})
		}
		t.segments = append(t.segments, segment{kind: kind})
		rest = rest[idx+len(token):]
	}
	return t, nil
}

// nextToken finds the earliest placeholder in s.
func nextToken(s string) (int, string, segKind) {
	best, bestToken, bestKind := -1, "", segText
	for _, cand := range []struct {
		token string
		kind  segKind
	}{
		{tokenOuter, segOuter},
		{tokenInner, segInner},
		{tokenChildren, segChildren},
	} {
		if i := strings.Index(s, cand.token); i >= 0 && (best < 0 || i < best) {
			best, bestToken, bestKind = i, cand.token, cand.kind
		}
	}
	return best, bestToken, bestKind
}

// Render expands the template. outer and inner carry verbatim attribute
// source fragments; children is the site's original child content.
func (t *Template) Render(outer, inner []string, children string) string {
	var sb strings.Builder
	for _, seg := range t.segments {
		switch seg.kind {
		case segText:
			sb.WriteString(seg.text)
		case segOuter:
			writeAttrs(&sb, outer)
		case segInner:
			writeAttrs(&sb, inner)
		case segChildren:
			sb.WriteString(children)
		}
	}
	return sb.String()
}

// writeAttrs emits a leading space per attribute so empty expansions
// contribute nothing.
func writeAttrs(sb *strings.Builder, attrs []string) {
	for _, a := range attrs {
		sb.WriteByte(' ')
		sb.WriteString(a)
	}
}

// Source returns the original template text.
func (t *Template) Source() string { return t.source }
