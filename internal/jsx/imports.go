package jsx

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractModuleRecords walks the top-level statements of a file and fills
// the fragment's import and export records. All declaration forms are
// normalized: default, named (with alias), namespace, side-effect and
// type-only imports; local, renamed, re-export and star-export exports.
func extractModuleRecords(root *sitter.Node, src []byte, path string, frag *Fragment) {
	for i := range root.ChildCount() {
		child := root.Child(i)
		switch child.Kind() {
		case "import_statement":
			frag.Imports = append(frag.Imports, extractImport(child, src, path)...)
		case "export_statement":
			frag.Exports = append(frag.Exports, extractExport(child, src)...)
		}
	}
}

func extractImport(stmt *sitter.Node, src []byte, path string) []ImportRecord {
	source := stmt.ChildByFieldName("source")
	if source == nil {
		source = findChildByKind(stmt, "string")
	}
	if source == nil {
		return nil
	}
	pkg := unquote(nodeText(source, src))

	// `import type { X } from ...` puts a bare "type" token on the statement.
	stmtTypeOnly := hasChildOfKind(stmt, "type")

	clause := findChildByKind(stmt, "import_clause")
	if clause == nil {
		// import './side-effect'
		return []ImportRecord{{FilePath: path, Package: pkg, Kind: ImportSideEffect}}
	}

	var records []ImportRecord
	for i := range clause.ChildCount() {
		c := clause.Child(i)
		switch c.Kind() {
		case "identifier":
			records = append(records, ImportRecord{
				FilePath:     path,
				Package:      pkg,
				Kind:         ImportDefault,
				LocalName:    nodeText(c, src),
				ImportedName: "default",
				TypeOnly:     stmtTypeOnly,
			})

		case "namespace_import":
			if name := findChildByKind(c, "identifier"); name != nil {
				records = append(records, ImportRecord{
					FilePath:  path,
					Package:   pkg,
					Kind:      ImportNamespace,
					LocalName: nodeText(name, src),
					TypeOnly:  stmtTypeOnly,
				})
			}

		case "named_imports":
			for j := range c.ChildCount() {
				spec := c.Child(j)
				if spec.Kind() != "import_specifier" {
					continue
				}
				name := spec.ChildByFieldName("name")
				if name == nil {
					continue
				}
				imported := unquote(nodeText(name, src))
				local := imported
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = nodeText(alias, src)
				}
				records = append(records, ImportRecord{
					FilePath:     path,
					Package:      pkg,
					Kind:         ImportNamed,
					LocalName:    local,
					ImportedName: imported,
					TypeOnly:     stmtTypeOnly || hasChildOfKind(spec, "type"),
				})
			}
		}
	}
	return records
}

func extractExport(stmt *sitter.Node, src []byte) []ExportRecord {
	var records []ExportRecord

	sourceNode := stmt.ChildByFieldName("source")
	if sourceNode == nil {
		sourceNode = findChildByKind(stmt, "string")
	}
	source := ""
	if sourceNode != nil {
		source = unquote(nodeText(sourceNode, src))
	}

	// export * from './x'  /  export * as ns from './x'
	if ns := findChildByKind(stmt, "namespace_export"); ns != nil && source != "" {
		name := ""
		if id := findChildByKind(ns, "identifier"); id != nil {
			name = nodeText(id, src)
		}
		return []ExportRecord{{Name: name, Source: source, Star: true}}
	}
	if hasChildOfKind(stmt, "*") && source != "" {
		return []ExportRecord{{Source: source, Star: true}}
	}

	// export { A, B as C } [from './x']
	if clause := findChildByKind(stmt, "export_clause"); clause != nil {
		for i := range clause.ChildCount() {
			spec := clause.Child(i)
			if spec.Kind() != "export_specifier" {
				continue
			}
			name := spec.ChildByFieldName("name")
			if name == nil {
				continue
			}
			orig := unquote(nodeText(name, src))
			exported := orig
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				exported = unquote(nodeText(alias, src))
			}
			rec := ExportRecord{Name: exported}
			if source != "" {
				rec.Source = source
				rec.SourceName = orig
			} else {
				rec.LocalName = orig
			}
			records = append(records, rec)
		}
		return records
	}

	// export default <expr> / export default function Name() {}
	if hasChildOfKind(stmt, "default") {
		rec := ExportRecord{Name: "default"}
		if decl := stmt.ChildByFieldName("declaration"); decl != nil {
			rec.LocalName = declarationName(decl, src)
		} else if v := stmt.ChildByFieldName("value"); v != nil && v.Kind() == "identifier" {
			rec.LocalName = nodeText(v, src)
		}
		records = append(records, rec)
		return records
	}

	// export function X / export const X = ... / export class X
	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		for _, name := range declarationNames(decl, src) {
			records = append(records, ExportRecord{Name: name, LocalName: name})
		}
	}
	return records
}

// declarationName returns the single identifier a declaration binds, or "".
func declarationName(decl *sitter.Node, src []byte) string {
	names := declarationNames(decl, src)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// declarationNames returns the identifiers bound by a declaration node.
func declarationNames(decl *sitter.Node, src []byte) []string {
	switch decl.Kind() {
	case "function_declaration", "generator_function_declaration":
		if name := findChildByKind(decl, "identifier"); name != nil {
			return []string{nodeText(name, src)}
		}
	case "class_declaration", "interface_declaration", "type_alias_declaration", "enum_declaration", "abstract_class_declaration":
		if name := findChildByKind(decl, "type_identifier"); name != nil {
			return []string{nodeText(name, src)}
		}
		if name := findChildByKind(decl, "identifier"); name != nil {
			return []string{nodeText(name, src)}
		}
	case "lexical_declaration", "variable_declaration":
		var names []string
		for i := range decl.ChildCount() {
			d := decl.Child(i)
			if d.Kind() != "variable_declarator" {
				continue
			}
			if name := findChildByKind(d, "identifier"); name != nil {
				names = append(names, nodeText(name, src))
			}
		}
		return names
	}
	return nil
}
