package jsx

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractSites walks the whole tree and returns every component
// instantiation found, including elements nested inside other elements.
// Lower-case intrinsic elements (div, span) are not component sites.
func extractSites(root *sitter.Node, src []byte, path string) []Site {
	var sites []Site
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		switch node.Kind() {
		case "jsx_element":
			if site, ok := siteFromElement(node, src, path); ok {
				sites = append(sites, site)
			}
		case "jsx_self_closing_element":
			if site, ok := siteFromOpening(node, node, src, path); ok {
				sites = append(sites, site)
			}
		}
		for i := range node.ChildCount() {
			walk(node.Child(i))
		}
	}
	walk(root)
	return sites
}

// siteFromElement handles `<X ...>children</X>`.
func siteFromElement(node *sitter.Node, src []byte, path string) (Site, bool) {
	opening := findChildByKind(node, "jsx_opening_element")
	closing := findChildByKind(node, "jsx_closing_element")
	if opening == nil || closing == nil {
		return Site{}, false
	}

	site, ok := siteFromOpening(node, opening, src, path)
	if !ok {
		return Site{}, false
	}

	site.ChildrenSpan = Span{Start: int(opening.EndByte()), End: int(closing.StartByte())}
	content := src[site.ChildrenSpan.Start:site.ChildrenSpan.End]
	site.HasChildren = strings.TrimSpace(string(content)) != ""
	return site, true
}

// siteFromOpening extracts the shared opening-tag fields. For self-closing
// elements the element node and the opening node are the same.
func siteFromOpening(element, opening *sitter.Node, src []byte, path string) (Site, bool) {
	name := opening.ChildByFieldName("name")
	if name == nil {
		return Site{}, false
	}
	localName := nodeText(name, src)
	if !isComponentName(localName) {
		return Site{}, false
	}

	site := Site{
		FilePath:     path,
		LocalName:    localName,
		Line:         int(element.StartPosition().Row) + 1,
		Span:         nodeSpan(element),
		OpenSpan:     nodeSpan(opening),
		InsertOffset: int(name.EndByte()),
	}

	for i := range opening.ChildCount() {
		child := opening.Child(i)
		switch child.Kind() {
		case "jsx_attribute":
			if attr, ok := attrFromNode(child, src); ok {
				site.Attrs = append(site.Attrs, attr)
				site.InsertOffset = int(child.EndByte())
			}

		case "jsx_expression", "jsx_spread_attribute":
			// {...props} in attribute position
			if child.Kind() == "jsx_spread_attribute" || hasChildOfKind(child, "spread_element") {
				site.Spreads = append(site.Spreads, nodeSpan(child))
				site.HasSpread = true
				site.InsertOffset = int(child.EndByte())
			}
		}
	}

	return site, true
}

func attrFromNode(node *sitter.Node, src []byte) (Attr, bool) {
	nameNode := node.Child(0)
	if nameNode == nil {
		return Attr{}, false
	}

	attr := Attr{
		Name:     nodeText(nameNode, src),
		Span:     nodeSpan(node),
		NameSpan: nodeSpan(nameNode),
	}

	// A bare attribute (`<X disabled />`) has only the name child.
	if node.ChildCount() == 1 {
		attr.Bare = true
		return attr, true
	}

	value := node.Child(node.ChildCount() - 1)
	attr.ValueSpan = nodeSpan(value)
	if value.Kind() == "string" {
		lit := unquote(nodeText(value, src))
		attr.Literal = &lit
	}
	// Any other value kind ({expr}, template, element) is an opaque span.
	return attr, true
}

// isComponentName reports whether a JSX tag name refers to a component:
// upper-case first letter, or namespace member access like `UI.Button`.
func isComponentName(name string) bool {
	if name == "" {
		return false
	}
	if strings.Contains(name, ".") {
		return true
	}
	c := name[0]
	return c >= 'A' && c <= 'Z'
}
