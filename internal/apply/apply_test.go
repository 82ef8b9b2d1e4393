package apply

import (
	"strings"
	"testing"

	"github.com/migr8/migr8/internal/graph"
	"github.com/migr8/migr8/internal/jsx"
	"github.com/migr8/migr8/internal/planner"
	"github.com/migr8/migr8/internal/rules"
)

// --- helpers ---

// compileSet compiles a single rule-set document and fails the test on any
// validation error.
func compileSet(t *testing.T, rd rules.RuleSetDoc) *rules.RuleSet {
	t.Helper()
	sets, errs := rules.Compile(&rules.Document{Rules: []rules.RuleSetDoc{rd}})
	if len(errs) != 0 {
		t.Fatalf("Compile: %v", errs)
	}
	return sets[0]
}

// migrateSource runs the parse → resolve → plan → apply pipeline over one
// in-memory file and returns the rewritten text. The second return is false
// when no rule fired anywhere in the file.
func migrateSource(t *testing.T, src string, rs *rules.RuleSet) (string, bool) {
	t.Helper()

	frag, err := jsx.Parse([]byte(src), "src/app.tsx")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	g := graph.New(nil)
	g.AddFragment(frag)
	g.Seal()

	var patches []Patch
	fired := false
	for _, resolved := range g.ResolveFile("src/app.tsx") {
		plan, ok := planner.Plan(&resolved, rs)
		if !ok {
			continue
		}
		fired = true
		pp, err := Patches([]byte(src), &resolved.Site, plan)
		if err != nil {
			t.Fatalf("Patches: %v", err)
		}
		patches = append(patches, pp...)
	}
	if !fired {
		return src, false
	}

	res, err := Splice([]byte(src), patches)
	if err != nil {
		t.Fatalf("Splice: %v", err)
	}
	return string(res.Text), true
}

func transformSet(transforms ...rules.TransformDoc) rules.RuleSetDoc {
	return rules.RuleSetDoc{
		SourcePackage:   "old-ui",
		SourceComponent: "Button",
		Target:          rules.TargetDoc{Package: "new-ui", Component: "Button"},
		Transforms:      transforms,
	}
}

const header = "import { Button } from 'old-ui';\nconst App = () => "

// --- attribute edits ---

func TestApply_RenameAttribute(t *testing.T) {
	src := header + `<Button onPress={go} variant="primary" />;` + "\n"
	rs := compileSet(t, transformSet(rules.TransformDoc{Order: 1, Rename: map[string]string{"onPress": "onClick"}}))

	got, fired := migrateSource(t, src, rs)
	if !fired {
		t.Fatal("rule did not fire")
	}
	want := header + `<Button onClick={go} variant="primary" />;` + "\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestApply_MatchedRenameKeepsValue(t *testing.T) {
	src := header + `<Button variant="contained" />;` + "\n"
	rs := compileSet(t, transformSet(rules.TransformDoc{
		Order:  1,
		Match:  []map[string]string{{"variant": "contained"}},
		Rename: map[string]string{"variant": "mode"},
	}))

	got, fired := migrateSource(t, src, rs)
	if !fired {
		t.Fatal("rule did not fire")
	}
	want := header + `<Button mode="contained" />;` + "\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}

	// An element whose variant differs is left alone.
	other := header + `<Button variant="text" />;` + "\n"
	if _, fired := migrateSource(t, other, rs); fired {
		t.Error("rule fired for a non-matching literal")
	}
}

func TestApply_RemoveAttributeEatsWhitespace(t *testing.T) {
	src := header + `<Button legacy variant="primary" />;` + "\n"
	rs := compileSet(t, transformSet(rules.TransformDoc{Order: 1, Remove: []string{"legacy"}}))

	got, _ := migrateSource(t, src, rs)
	want := header + `<Button variant="primary" />;` + "\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestApply_SetVariants(t *testing.T) {
	rs := compileSet(t, transformSet(rules.TransformDoc{Order: 1, Set: map[string]string{"tone": "bold"}}))

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"replace existing value",
			`<Button tone="soft" />;`,
			`<Button tone="bold" />;`,
		},
		{
			"bare attribute gains value",
			`<Button tone />;`,
			`<Button tone="bold" />;`,
		},
		{
			"insert new attribute after existing ones",
			`<Button href="/x" />;`,
			`<Button href="/x" tone="bold" />;`,
		},
		{
			"insert on attributeless element",
			`<Button />;`,
			`<Button tone="bold" />;`,
		},
	}
	for _, c := range cases {
		got, fired := migrateSource(t, header+c.in+"\n", rs)
		if !fired {
			t.Errorf("%s: rule did not fire", c.name)
			continue
		}
		if got != header+c.want+"\n" {
			t.Errorf("%s:\n got %q\nwant %q", c.name, got, header+c.want+"\n")
		}
	}
}

func TestApply_InsertionsKeepPlanOrder(t *testing.T) {
	src := header + `<Button />;` + "\n"
	rs := compileSet(t, transformSet(
		rules.TransformDoc{Order: 10, Set: map[string]string{"alpha": "1"}},
		rules.TransformDoc{Order: 20, Set: map[string]string{"beta": "2"}},
	))

	got, _ := migrateSource(t, src, rs)
	want := header + `<Button alpha="1" beta="2" />;` + "\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestApply_RenameThenRemoveLeavesNoResidue(t *testing.T) {
	// A later rule removes the attribute an earlier rule renamed; the
	// coalesced patches must drop the attribute entirely.
	src := header + `<Button onPress={go} href="/x" />;` + "\n"
	rs := compileSet(t, transformSet(
		rules.TransformDoc{Order: 10, Rename: map[string]string{"onPress": "onClick"}},
		rules.TransformDoc{Order: 20, Remove: []string{"onClick"}},
	))

	got, _ := migrateSource(t, src, rs)
	want := header + `<Button href="/x" />;` + "\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestApply_SetThenRenameSynthesizedAttr(t *testing.T) {
	src := header + `<Button />;` + "\n"
	rs := compileSet(t, transformSet(
		rules.TransformDoc{Order: 10, Set: map[string]string{"tone": "bold"}},
		rules.TransformDoc{Order: 20, Rename: map[string]string{"tone": "weight"}},
	))

	got, _ := migrateSource(t, src, rs)
	want := header + `<Button weight="bold" />;` + "\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

// --- replaceWith ---

func TestApply_ReplaceWithNestedWrapper(t *testing.T) {
	src := header + `<Button href="/x" onClick={f}>Text</Button>;` + "\n"
	rs := compileSet(t, transformSet(rules.TransformDoc{
		Order: 1,
		ReplaceWith: &rules.ReplaceDoc{
			InnerAttrs: []string{"href"},
			Template:   `<New {...OUTER}><Inner {...INNER}>{CHILDREN}</Inner></New>`,
		},
	}))

	got, _ := migrateSource(t, src, rs)
	want := header + `<New onClick={f}><Inner href="/x">Text</Inner></New>;` + "\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestApply_ReplaceWithKeepsSpreadsInOuter(t *testing.T) {
	src := header + `<Button a="1" {...rest} b="2" />;` + "\n"
	rs := compileSet(t, transformSet(rules.TransformDoc{
		Order: 1,
		ReplaceWith: &rules.ReplaceDoc{
			InnerAttrs: []string{"b"},
			Template:   `<New {...OUTER}><Inner {...INNER} /></New>`,
		},
	}))

	// OUTER preserves source order of the surviving attributes and spreads.
	got, _ := migrateSource(t, src, rs)
	want := header + `<New a="1" {...rest}><Inner b="2" /></New>;` + "\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

// --- invariants ---

func TestApply_BytesOutsideChangesPreserved(t *testing.T) {
	src := "import { Button } from 'old-ui';\n// © weird bytes \t\u00a0 stay put\nconst App = () => <Button tone=\"soft\" />;\n"
	rs := compileSet(t, transformSet(rules.TransformDoc{Order: 1, Set: map[string]string{"tone": "bold"}}))

	frag, err := jsx.Parse([]byte(src), "src/app.tsx")
	if err != nil {
		t.Fatal(err)
	}
	site := frag.Sites[0]
	plan, ok := planner.Plan(&graph.Resolved{Site: site, Package: "old-ui", Exported: "Button"}, rs)
	if !ok {
		t.Fatal("plan did not fire")
	}
	res, err := Apply([]byte(src), &site, plan)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Changed) != 1 {
		t.Fatalf("len(Changed) = %d, want 1", len(res.Changed))
	}

	ch := res.Changed[0]
	if got := src[:ch.Span.Start]; got != string(res.Text[:ch.Span.Start]) {
		t.Error("bytes before the change differ")
	}
	tailOld := src[ch.Span.End:]
	tailNew := string(res.Text[ch.Span.Start+ch.NewLen:])
	if tailOld != tailNew {
		t.Error("bytes after the change differ")
	}
}

func TestSplice_RejectsOverlap(t *testing.T) {
	src := []byte("0123456789")
	patches := []Patch{
		{Span: jsx.Span{Start: 2, End: 6}, Text: "x"},
		{Span: jsx.Span{Start: 4, End: 8}, Text: "y"},
	}
	if _, err := Splice(src, patches); err == nil {
		t.Fatal("overlapping patches accepted")
	}
	if string(src) != "0123456789" {
		t.Error("input mutated by failed splice")
	}
}

func TestSplice_RejectsOutOfBounds(t *testing.T) {
	src := []byte("short")
	if _, err := Splice(src, []Patch{{Span: jsx.Span{Start: 2, End: 99}, Text: "x"}}); err == nil {
		t.Fatal("out-of-bounds patch accepted")
	}
}

func TestSplice_Empty(t *testing.T) {
	src := []byte("unchanged")
	res, err := Splice(src, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Text) != "unchanged" || len(res.Changed) != 0 {
		t.Errorf("Splice(nil) = %q, %v", res.Text, res.Changed)
	}
}

// --- idempotence ---

func TestApply_SecondRunIsNoMatch(t *testing.T) {
	src := header + `<Button onPress={go} legacy size="sm" />;` + "\n"
	rs := compileSet(t, transformSet(
		rules.TransformDoc{Order: 10, Rename: map[string]string{"onPress": "onClick"}},
		rules.TransformDoc{Order: 20, Remove: []string{"legacy"}},
		rules.TransformDoc{Order: 30, Set: map[string]string{"size": "md"}},
	))

	once, fired := migrateSource(t, src, rs)
	if !fired {
		t.Fatal("first run did not fire")
	}
	if !strings.Contains(once, `onClick={go} size="md"`) {
		t.Fatalf("first run output unexpected:\n%s", once)
	}

	twice, fired := migrateSource(t, once, rs)
	if fired {
		t.Fatal("second run fired; migration is not idempotent")
	}
	if twice != once {
		t.Error("second run changed the text")
	}
}

func TestApply_ReplaceWithSecondRunIsNoMatch(t *testing.T) {
	src := header + `<Button href="/x">Go</Button>;` + "\n"
	rs := compileSet(t, transformSet(rules.TransformDoc{
		Order: 1,
		ReplaceWith: &rules.ReplaceDoc{
			InnerAttrs: []string{"href"},
			Template:   `<New {...OUTER}><Inner {...INNER}>{CHILDREN}</Inner></New>`,
		},
	}))

	once, _ := migrateSource(t, src, rs)
	if _, fired := migrateSource(t, once, rs); fired {
		t.Fatal("replaced element matched again on the second run")
	}
}
