package jsx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// --- helpers ---

func parseFile(t *testing.T, path, src string) *Fragment {
	t.Helper()
	frag, err := Parse([]byte(src), path)
	if err != nil {
		t.Fatalf("Parse(%s): %v", path, err)
	}
	return frag
}

func findImport(frag *Fragment, local string) (ImportRecord, bool) {
	for _, r := range frag.Imports {
		if r.LocalName == local {
			return r, true
		}
	}
	return ImportRecord{}, false
}

func findExport(frag *Fragment, name string) (ExportRecord, bool) {
	for _, r := range frag.Exports {
		if r.Name == name {
			return r, true
		}
	}
	return ExportRecord{}, false
}

func findSite(frag *Fragment, local string) (Site, bool) {
	for _, s := range frag.Sites {
		if s.LocalName == local {
			return s, true
		}
	}
	return Site{}, false
}

// --- imports ---

func TestParse_ImportForms(t *testing.T) {
	src := `import Button from 'old-ui';
import { Card as C, Panel } from 'old-ui';
import * as Icons from './icons';
import type { Props } from 'old-ui';
import './styles.css';
`
	frag := parseFile(t, "src/app.tsx", src)

	btn, ok := findImport(frag, "Button")
	if !ok {
		t.Fatal("default import Button not extracted")
	}
	if btn.Kind != ImportDefault || btn.Package != "old-ui" || btn.ImportedName != "default" {
		t.Errorf("Button = %+v, want default import of old-ui", btn)
	}

	card, ok := findImport(frag, "C")
	if !ok {
		t.Fatal("aliased named import C not extracted")
	}
	if card.Kind != ImportNamed || card.ImportedName != "Card" {
		t.Errorf("C = %+v, want named import of Card", card)
	}

	panel, ok := findImport(frag, "Panel")
	if !ok || panel.ImportedName != "Panel" {
		t.Errorf("Panel = %+v, want named import Panel", panel)
	}

	icons, ok := findImport(frag, "Icons")
	if !ok {
		t.Fatal("namespace import Icons not extracted")
	}
	if icons.Kind != ImportNamespace || icons.Package != "./icons" {
		t.Errorf("Icons = %+v, want namespace import of ./icons", icons)
	}

	props, ok := findImport(frag, "Props")
	if !ok {
		t.Fatal("type-only import Props not extracted")
	}
	if !props.TypeOnly {
		t.Errorf("Props.TypeOnly = false, want true")
	}

	sideEffect := false
	for _, r := range frag.Imports {
		if r.Kind == ImportSideEffect && r.Package == "./styles.css" {
			sideEffect = true
		}
	}
	if !sideEffect {
		t.Error("side-effect import ./styles.css not extracted")
	}
}

func TestParse_InlineTypeSpecifier(t *testing.T) {
	frag := parseFile(t, "src/x.tsx", `import { type Props, Button } from 'old-ui';`)

	props, ok := findImport(frag, "Props")
	if !ok || !props.TypeOnly {
		t.Errorf("Props = %+v, want type-only named import", props)
	}
	btn, ok := findImport(frag, "Button")
	if !ok || btn.TypeOnly {
		t.Errorf("Button = %+v, want value named import", btn)
	}
}

// --- exports ---

func TestParse_ExportForms(t *testing.T) {
	src := `export const Button = () => null;
export { Button as PrimaryButton };
export { Card } from './card';
export { Panel as Box } from './panel';
export * from './icons';
export * as widgets from './widgets';
export default Button;
`
	frag := parseFile(t, "src/ui/index.ts", src)

	local, ok := findExport(frag, "Button")
	if !ok || local.LocalName != "Button" || local.Source != "" {
		t.Errorf("Button = %+v, want local export", local)
	}

	renamed, ok := findExport(frag, "PrimaryButton")
	if !ok || renamed.LocalName != "Button" {
		t.Errorf("PrimaryButton = %+v, want rename of local Button", renamed)
	}

	reexport, ok := findExport(frag, "Card")
	if !ok || reexport.Source != "./card" || reexport.SourceName != "Card" {
		t.Errorf("Card = %+v, want re-export from ./card", reexport)
	}

	renamedRe, ok := findExport(frag, "Box")
	if !ok || renamedRe.Source != "./panel" || renamedRe.SourceName != "Panel" {
		t.Errorf("Box = %+v, want renamed re-export of Panel", renamedRe)
	}

	bareStar := false
	for _, r := range frag.Exports {
		if r.Star && r.Name == "" && r.Source == "./icons" {
			bareStar = true
		}
	}
	if !bareStar {
		t.Error("export * from './icons' not extracted")
	}

	nsStar, ok := findExport(frag, "widgets")
	if !ok || !nsStar.Star || nsStar.Source != "./widgets" {
		t.Errorf("widgets = %+v, want namespace star export", nsStar)
	}

	def, ok := findExport(frag, "default")
	if !ok || def.LocalName != "Button" {
		t.Errorf("default = %+v, want default export of Button", def)
	}
}

func TestParse_ExportDeclarations(t *testing.T) {
	src := `export function Header() { return null; }
export class Footer {}
export const A = 1, B = 2;
`
	frag := parseFile(t, "src/parts.tsx", src)

	for _, name := range []string{"Header", "Footer", "A", "B"} {
		if _, ok := findExport(frag, name); !ok {
			t.Errorf("export %s not extracted", name)
		}
	}
}

// --- usage sites ---

func TestExtractSites_Attributes(t *testing.T) {
	src := `import Button from 'old-ui';
const App = () => <Button href="/home" onClick={go} disabled>Go</Button>;
`
	frag := parseFile(t, "src/app.tsx", src)

	site, ok := findSite(frag, "Button")
	if !ok {
		t.Fatal("site Button not extracted")
	}
	if len(site.Attrs) != 3 {
		t.Fatalf("len(Attrs) = %d, want 3", len(site.Attrs))
	}

	href := site.Attrs[0]
	if href.Name != "href" || href.Literal == nil || *href.Literal != "/home" {
		t.Errorf("href = %+v, want literal /home", href)
	}
	if got := src[href.Span.Start:href.Span.End]; got != `href="/home"` {
		t.Errorf("href span text = %q", got)
	}
	if got := src[href.NameSpan.Start:href.NameSpan.End]; got != "href" {
		t.Errorf("href name span text = %q", got)
	}
	if got := src[href.ValueSpan.Start:href.ValueSpan.End]; got != `"/home"` {
		t.Errorf("href value span text = %q", got)
	}

	onClick := site.Attrs[1]
	if onClick.Literal != nil {
		t.Errorf("onClick.Literal = %v, want nil for expression value", *onClick.Literal)
	}
	if got := src[onClick.ValueSpan.Start:onClick.ValueSpan.End]; got != "{go}" {
		t.Errorf("onClick value span text = %q", got)
	}

	disabled := site.Attrs[2]
	if !disabled.Bare || !disabled.ValueSpan.IsZero() {
		t.Errorf("disabled = %+v, want bare attribute", disabled)
	}

	if !site.HasChildren {
		t.Error("HasChildren = false, want true")
	}
	if got := src[site.ChildrenSpan.Start:site.ChildrenSpan.End]; got != "Go" {
		t.Errorf("children span text = %q, want Go", got)
	}
	if got := src[site.Span.Start:site.Span.End]; !strings.HasPrefix(got, "<Button") || !strings.HasSuffix(got, "</Button>") {
		t.Errorf("site span text = %q", got)
	}
}

func TestExtractSites_SelfClosingAndSpread(t *testing.T) {
	src := `import { Card } from 'old-ui';
const App = (props) => <Card title="x" {...props} />;
`
	frag := parseFile(t, "src/app.tsx", src)

	site, ok := findSite(frag, "Card")
	if !ok {
		t.Fatal("site Card not extracted")
	}
	if !site.HasSpread || len(site.Spreads) != 1 {
		t.Fatalf("HasSpread = %v, spreads = %d, want one spread", site.HasSpread, len(site.Spreads))
	}
	if got := src[site.Spreads[0].Start:site.Spreads[0].End]; got != "{...props}" {
		t.Errorf("spread span text = %q", got)
	}
	if site.HasChildren || !site.ChildrenSpan.IsZero() {
		t.Error("self-closing element must have no children span")
	}
	// InsertOffset sits after the last attribute or spread.
	if got := src[:site.InsertOffset]; !strings.HasSuffix(got, "{...props}") {
		t.Errorf("InsertOffset does not follow the spread: ...%q", got[len(got)-20:])
	}
}

func TestExtractSites_MemberAndIntrinsic(t *testing.T) {
	src := `import * as UI from 'old-ui';
const App = () => <div><UI.Button /><span>x</span></div>;
`
	frag := parseFile(t, "src/app.tsx", src)

	if _, ok := findSite(frag, "UI.Button"); !ok {
		t.Error("member site UI.Button not extracted")
	}
	if _, ok := findSite(frag, "div"); ok {
		t.Error("intrinsic element div must not be a site")
	}
	if _, ok := findSite(frag, "span"); ok {
		t.Error("intrinsic element span must not be a site")
	}
}

func TestExtractSites_Nested(t *testing.T) {
	src := `import { Outer, Inner } from 'old-ui';
const App = () => <Outer><Inner a="1" /></Outer>;
`
	frag := parseFile(t, "src/app.tsx", src)

	if len(frag.Sites) != 2 {
		t.Fatalf("len(Sites) = %d, want 2", len(frag.Sites))
	}
	outer, _ := findSite(frag, "Outer")
	inner, _ := findSite(frag, "Inner")
	if inner.Span.Start < outer.Span.Start || inner.Span.End > outer.Span.End {
		t.Error("inner site span must nest inside outer site span")
	}
}

func TestParse_SyntaxError(t *testing.T) {
	if _, err := Parse([]byte(`import { from 'broken`), "src/broken.tsx"); err == nil {
		t.Fatal("Parse of broken source returned nil error")
	}
}

func TestParse_PlainTSUsesTypescriptGrammar(t *testing.T) {
	// `<T>` casts are only valid under the plain TypeScript grammar.
	src := "const n = <number>JSON.parse('1');\n"
	if _, err := Parse([]byte(src), "src/cast.ts"); err != nil {
		t.Fatalf("Parse(.ts with cast): %v", err)
	}
}

func TestIsSourceFile(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"src/app.tsx", true},
		{"src/app.ts", true},
		{"lib/x.jsx", true},
		{"lib/x.mjs", true},
		{"README.md", false},
		{"styles.css", false},
	}
	for _, c := range cases {
		if got := IsSourceFile(c.path); got != c.want {
			t.Errorf("IsSourceFile(%s) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestParsePathAliases(t *testing.T) {
	root := t.TempDir()
	tsconfig := `{
  "compilerOptions": {
    "paths": {
      "@/*": ["./src/*"],
      "~ui/*": ["packages/ui/*"],
      "exact": ["./src/exact.ts"]
    }
  }
}`
	if err := os.WriteFile(filepath.Join(root, "tsconfig.json"), []byte(tsconfig), 0o644); err != nil {
		t.Fatal(err)
	}

	aliases := ParsePathAliases(root)
	if got := aliases["@/"]; got != "src/" {
		t.Errorf("@/ = %q, want src/", got)
	}
	if got := aliases["~ui/"]; got != "packages/ui/" {
		t.Errorf("~ui/ = %q, want packages/ui/", got)
	}
	// Non-wildcard mappings are not prefix aliases.
	if _, ok := aliases["exact"]; ok {
		t.Error("exact mapping treated as a prefix alias")
	}

	// A project without tsconfig.json yields an empty alias map.
	if got := ParsePathAliases(t.TempDir()); len(got) != 0 {
		t.Errorf("aliases without tsconfig = %v, want empty", got)
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("x"))
	b := ContentHash([]byte("x"))
	c := ContentHash([]byte("y"))
	if a != b {
		t.Error("hash of identical content differs")
	}
	if a == c {
		t.Error("hash of different content collides")
	}
}
