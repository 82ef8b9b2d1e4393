package jsx

// Span is a half-open byte range [Start, End) into the original source.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// IsZero reports whether the span is unset.
func (s Span) IsZero() bool { return s.Start == 0 && s.End == 0 }

// Import kinds.
const (
	ImportDefault    = "default"
	ImportNamed      = "named"
	ImportNamespace  = "namespace"
	ImportSideEffect = "sideEffect"
)

// ImportRecord is one normalized import binding. LocalName is unique per
// file scope; side-effect imports carry no local name.
type ImportRecord struct {
	FilePath     string `json:"file_path"`
	Package      string `json:"package"` // specifier as written in source
	Kind         string `json:"kind"`
	LocalName    string `json:"local_name,omitempty"`
	ImportedName string `json:"imported_name,omitempty"`
	TypeOnly     bool   `json:"type_only,omitempty"`
}

// ExportRecord is one export binding of a file. Re-exports carry a Source
// specifier; Star marks `export * from`. For a local export, LocalName is
// the in-file binding published under Name.
type ExportRecord struct {
	Name       string `json:"name,omitempty"` // exported name; empty for bare star exports
	LocalName  string `json:"local_name,omitempty"`
	Source     string `json:"source,omitempty"`
	SourceName string `json:"source_name,omitempty"`
	Star       bool   `json:"star,omitempty"`
}

// Attr is one static attribute of a component site. Literal is nil when the
// value is a non-literal expression (treated as an opaque token span) and
// also for bare attributes with no value.
type Attr struct {
	Name      string  `json:"name"`
	Literal   *string `json:"literal,omitempty"`
	Bare      bool    `json:"bare,omitempty"`
	Span      Span    `json:"span"`       // full attribute, name through value
	NameSpan  Span    `json:"name_span"`  // just the attribute name
	ValueSpan Span    `json:"value_span"` // value including quotes/braces; zero when bare
}

// Site is one component-instantiation occurrence. It is an immutable
// snapshot created once per analysis pass; spans index into the file's
// original bytes so edits can be applied without re-parsing.
type Site struct {
	FilePath    string `json:"file_path"`
	LocalName   string `json:"local_name"` // "Button" or "NS.Button"
	Attrs       []Attr `json:"attrs"`
	Spreads     []Span `json:"spreads,omitempty"`
	HasSpread   bool   `json:"has_spread"`
	HasChildren bool   `json:"has_children"`
	Line        int    `json:"line"`

	Span         Span `json:"span"`      // opening tag through matching closing tag
	OpenSpan     Span `json:"open_span"` // just the opening tag
	InsertOffset int  `json:"insert_offset"`
	ChildrenSpan Span `json:"children_span"` // zero for self-closing elements
}

// Attr returns the site attribute with the given name, if present.
func (s *Site) Attr(name string) (Attr, bool) {
	for _, a := range s.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}

// Fragment is the per-file analysis output merged into the usage graph.
type Fragment struct {
	Path    string         `json:"path"`
	Hash    string         `json:"hash"`
	Imports []ImportRecord `json:"imports,omitempty"`
	Exports []ExportRecord `json:"exports,omitempty"`
	Sites   []Site         `json:"sites,omitempty"`
}
