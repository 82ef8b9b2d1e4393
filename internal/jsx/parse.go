// Package jsx parses TypeScript/JSX source with tree-sitter and extracts the
// normalized import, export, and component-usage records the usage graph is
// built from. Extraction keeps original byte spans per node so the edit
// applier can patch files right-to-left without re-parsing.
package jsx

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// IsSourceFile reports whether path has a JS/TS extension we can parse.
func IsSourceFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs":
		return true
	}
	return false
}

// Parse analyzes one file and returns its fragment. A syntactically broken
// file returns an error; the caller records it per file and continues.
func Parse(src []byte, path string) (*Fragment, error) {
	// The TSX grammar accepts JSX in .tsx/.jsx/.js; plain .ts files must use
	// the TypeScript grammar because `<T>` casts conflict with JSX.
	lang := typescript.LanguageTSX()
	if strings.ToLower(filepath.Ext(path)) == ".ts" {
		lang = typescript.LanguageTypescript()
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(sitter.NewLanguage(lang))

	tree := parser.Parse(src, nil)
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("syntax error in %s", path)
	}

	frag := &Fragment{Path: path, Hash: ContentHash(src)}
	extractModuleRecords(root, src, path, frag)
	frag.Sites = extractSites(root, src, path)
	return frag, nil
}

// ContentHash returns the SHA-256 hex digest of src, used as the parse
// cache key alongside the file path.
func ContentHash(src []byte) string {
	h := sha256.Sum256(src)
	return hex.EncodeToString(h[:])
}

func findChildByKind(node *sitter.Node, kind string) *sitter.Node {
	for i := range node.ChildCount() {
		child := node.Child(i)
		if child.Kind() == kind {
			return child
		}
	}
	return nil
}

func hasChildOfKind(node *sitter.Node, kind string) bool {
	return findChildByKind(node, kind) != nil
}

func nodeText(node *sitter.Node, src []byte) string {
	return string(src[node.StartByte():node.EndByte()])
}

func nodeSpan(node *sitter.Node) Span {
	return Span{Start: int(node.StartByte()), End: int(node.EndByte())}
}

func unquote(s string) string {
	return strings.Trim(s, `"'`)
}
