package rules

import (
	"fmt"
	"sort"

	"github.com/migr8/migr8/internal/report"
)

// Wildcard matches attribute presence regardless of value.
const Wildcard = "*"

// Rule is one compiled transform. Match is an OR of AND conjunctions over
// the site's current attribute set; an empty Match always fires.
type Rule struct {
	Order       int
	Match       []map[string]string
	Remove      []string
	Rename      map[string]string
	Set         map[string]string
	ReplaceWith *Replacement
}

// Replacement is a compiled terminal replaceWith.
type Replacement struct {
	InnerAttrs []string
	Template   *Template
}

// Target names the component a rule set migrates to.
type Target struct {
	Package    string
	Component  string
	ImportKind string
}

// RuleSet is a named, ordered collection of rules scoped to one source
// component/package pair. Rules is sorted ascending by Order; declaration
// order breaks ties.
type RuleSet struct {
	Name            string
	SourcePackage   string
	SourceComponent string
	ImportKind      string
	Target          Target
	Rules           []Rule
}

// AppliesTo reports whether the set targets the given canonical pair.
func (rs *RuleSet) AppliesTo(pkg, exported string) bool {
	return rs.SourcePackage == pkg && rs.SourceComponent == exported
}

// MatchesImportKind reports whether the set accepts a site bound through
// the given import kind. An unset ImportKind accepts every binding.
func (rs *RuleSet) MatchesImportKind(kind string) bool {
	return rs.ImportKind == "" || rs.ImportKind == kind
}

// Compile validates and compiles every rule set of a document. A malformed
// rule set is skipped and reported as a RuleError; the remaining sets are
// returned and continue to apply.
func Compile(doc *Document) ([]*RuleSet, []error) {
	var sets []*RuleSet
	var errs []error

	for _, rd := range doc.Rules {
		rs, err := compileSet(rd)
		if err != nil {
			errs = append(errs, &report.RuleError{RuleSet: setName(rd), Err: err})
			continue
		}
		sets = append(sets, rs)
	}
	return sets, errs
}

func compileSet(rd RuleSetDoc) (*RuleSet, error) {
	if rd.SourcePackage == "" || rd.SourceComponent == "" {
		return nil, fmt.Errorf("missing sourcePackage or sourceComponent")
	}

	rs := &RuleSet{
		Name:            setName(rd),
		SourcePackage:   rd.SourcePackage,
		SourceComponent: rd.SourceComponent,
		ImportKind:      rd.ImportKind,
		Target: Target{
			Package:    rd.Target.Package,
			Component:  rd.Target.Component,
			ImportKind: rd.Target.ImportKind,
		},
	}

	for i, td := range rd.Transforms {
		if err := checkRenameCycle(td.Rename); err != nil {
			return nil, fmt.Errorf("transform %d (order %d): %w", i, td.Order, err)
		}

		rule := Rule{
			Order:  td.Order,
			Match:  td.Match,
			Remove: td.Remove,
			Rename: td.Rename,
			Set:    td.Set,
		}
		if td.ReplaceWith != nil {
			tmpl, err := compileTemplate(td.ReplaceWith.Template)
			if err != nil {
				return nil, fmt.Errorf("transform %d (order %d): %w", i, td.Order, err)
			}
			rule.ReplaceWith = &Replacement{
				InnerAttrs: td.ReplaceWith.InnerAttrs,
				Template:   tmpl,
			}
		}
		rs.Rules = append(rs.Rules, rule)
	}

	// Declared order controls sequencing, not document position. The sort
	// is stable so equal orders keep first-declared-wins semantics.
	sort.SliceStable(rs.Rules, func(i, j int) bool {
		return rs.Rules[i].Order < rs.Rules[j].Order
	})
	return rs, nil
}

// checkRenameCycle rejects rename maps that chain back onto themselves
// (a->b with b->a, or a->a). Renames within one rule are simultaneous over
// the current attribute set, so a cycle has no consistent outcome.
func checkRenameCycle(rename map[string]string) error {
	for start := range rename {
		cur, steps := start, 0
		for {
			next, ok := rename[cur]
			if !ok {
				break
			}
			if next == start {
				return fmt.Errorf("cyclic rename through %q", start)
			}
			cur = next
			steps++
			if steps > len(rename) {
				return fmt.Errorf("cyclic rename through %q", start)
			}
		}
	}
	return nil
}

func setName(rd RuleSetDoc) string {
	if rd.Name != "" {
		return rd.Name
	}
	return fmt.Sprintf("%s/%s -> %s/%s",
		rd.SourcePackage, rd.SourceComponent, rd.Target.Package, rd.Target.Component)
}
