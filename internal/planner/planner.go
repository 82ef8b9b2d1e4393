// Package planner is the rule-matching engine. Plan is a pure fold of an
// ordered rule set over one resolved site: it evaluates each rule against
// the evolving attribute state and emits the edit plan the applier executes.
package planner

import (
	"sort"

	"github.com/migr8/migr8/internal/graph"
	"github.com/migr8/migr8/internal/rules"
)

// EditKind tags the edit variants.
type EditKind int

const (
	RemoveAttr EditKind = iota
	RenameAttr
	SetAttr
	ReplaceNode
)

// Edit is one atomic transformation of a site. Exactly the fields relevant
// to the kind are set.
type Edit struct {
	Kind    EditKind
	Name    string // attribute name (RemoveAttr, RenameAttr, SetAttr)
	NewName string // RenameAttr
	Value   string // SetAttr literal

	Replacement *rules.Replacement // ReplaceNode
	Target      rules.Target       // ReplaceNode
}

// EditPlan is the ordered edit list for one site, folded from all matching
// rules ascending by order. It is a pure function of (site, rule set) and
// is never persisted independently of its inputs.
type EditPlan struct {
	Edits    []Edit
	Fired    []int // orders of the rules that fired, for diagnostics
	Terminal bool  // a replaceWith rule fired
}

// attrState tracks the evolving attribute set during planning. Order is
// preserved; literals may be nil for opaque expression values.
type attrState struct {
	names    []string
	literals map[string]*string
}

func newAttrState(site *graph.Resolved) *attrState {
	st := &attrState{literals: make(map[string]*string, len(site.Site.Attrs))}
	for _, a := range site.Site.Attrs {
		st.names = append(st.names, a.Name)
		st.literals[a.Name] = a.Literal
	}
	return st
}

func (st *attrState) has(name string) bool {
	_, ok := st.literals[name]
	return ok
}

func (st *attrState) literal(name string) (*string, bool) {
	lit, ok := st.literals[name]
	return lit, ok
}

func (st *attrState) remove(name string) {
	delete(st.literals, name)
	for i, n := range st.names {
		if n == name {
			st.names = append(st.names[:i], st.names[i+1:]...)
			break
		}
	}
}

func (st *attrState) rename(old, new string) {
	lit := st.literals[old]
	delete(st.literals, old)
	st.literals[new] = lit
	for i, n := range st.names {
		if n == old {
			st.names[i] = new
			break
		}
	}
}

func (st *attrState) set(name, value string) {
	v := value
	if _, ok := st.literals[name]; !ok {
		st.names = append(st.names, name)
	}
	st.literals[name] = &v
}

// Plan evaluates rs against site and returns the folded edit plan.
// The second return is false when no rule fired (NoMatch): the site is left
// untouched. Unresolved sites never match.
func Plan(site *graph.Resolved, rs *rules.RuleSet) (*EditPlan, bool) {
	if site.Unresolved || !rs.AppliesTo(site.Package, site.Exported) {
		return nil, false
	}
	if !rs.MatchesImportKind(site.ImportKind) {
		return nil, false
	}

	plan := &EditPlan{}
	state := newAttrState(site)

	for i := range rs.Rules {
		rule := &rs.Rules[i]
		if !matches(rule, state) {
			continue
		}

		if rule.ReplaceWith != nil {
			// Terminal: the plan collapses to a single ReplaceNode edit and
			// no later rule is evaluated.
			plan.Edits = []Edit{{
				Kind:        ReplaceNode,
				Replacement: rule.ReplaceWith,
				Target:      rs.Target,
			}}
			plan.Fired = append(plan.Fired, rule.Order)
			plan.Terminal = true
			return plan, true
		}

		edits := effectiveEdits(rule, state)
		if len(edits) == 0 {
			// All operations folded to no-ops against the current state;
			// the rule did not fire. This is what keeps re-runs at NoMatch.
			continue
		}

		for _, e := range edits {
			switch e.Kind {
			case RemoveAttr:
				state.remove(e.Name)
			case RenameAttr:
				state.rename(e.Name, e.NewName)
			case SetAttr:
				state.set(e.Name, e.Value)
			}
		}
		plan.Edits = append(plan.Edits, edits...)
		plan.Fired = append(plan.Fired, rule.Order)
	}

	if len(plan.Edits) == 0 {
		return nil, false
	}
	return plan, true
}

// matches evaluates the rule's predicates against the current attribute
// state: OR across conjunctions, AND within one. A value of "*" requires
// mere presence; any other value requires a literal match. An empty match
// list always fires.
func matches(rule *rules.Rule, state *attrState) bool {
	if len(rule.Match) == 0 {
		return true
	}
	for _, conj := range rule.Match {
		if matchesConjunction(conj, state) {
			return true
		}
	}
	return false
}

func matchesConjunction(conj map[string]string, state *attrState) bool {
	for name, want := range conj {
		lit, ok := state.literal(name)
		if !ok {
			return false
		}
		if want == rules.Wildcard {
			continue
		}
		if lit == nil || *lit != want {
			return false
		}
	}
	return true
}

// effectiveEdits computes the rule's edits against the current state,
// dropping no-ops: removing or renaming an absent attribute, and setting an
// attribute to the literal it already holds.
func effectiveEdits(rule *rules.Rule, state *attrState) []Edit {
	var edits []Edit

	for _, name := range rule.Remove {
		if state.has(name) {
			edits = append(edits, Edit{Kind: RemoveAttr, Name: name})
		}
	}

	// Renames apply in the site's current attribute order so map iteration
	// order never leaks into the plan.
	for _, name := range append([]string(nil), state.names...) {
		newName, ok := rule.Rename[name]
		if !ok || removedAbove(edits, name) {
			continue
		}
		if state.has(newName) && newName != name {
			// Last write wins: the rename displaces an existing attribute.
			edits = append(edits, Edit{Kind: RemoveAttr, Name: newName})
		}
		edits = append(edits, Edit{Kind: RenameAttr, Name: name, NewName: newName})
	}

	for _, name := range sortedKeys(rule.Set) {
		value := rule.Set[name]
		if lit, ok := state.literal(name); ok && lit != nil && *lit == value && !removedAbove(edits, name) {
			continue
		}
		edits = append(edits, Edit{Kind: SetAttr, Name: name, Value: value})
	}

	return edits
}

func removedAbove(edits []Edit, name string) bool {
	for _, e := range edits {
		if e.Kind == RemoveAttr && e.Name == name {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
