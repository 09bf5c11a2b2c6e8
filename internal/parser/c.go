package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

// newCParser creates a tree-sitter parser configured for C.
func newCParser() (*sitter.Parser, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(c.GetLanguage())
	return parser, nil
}

// CDeclaratorTypes lists the tree-sitter node types that can appear in the
// declarator position of a declaration, parameter or function definition.
// The value is true for wrapper kinds that carry an inner declarator.
var CDeclaratorTypes = map[string]bool{
	"identifier":               false,
	"pointer_declarator":       true,
	"function_declarator":      true,
	"array_declarator":         true,
	"parenthesized_declarator": true,
	"attributed_declarator":    true,
	"init_declarator":          true,

	"abstract_pointer_declarator":       true,
	"abstract_function_declarator":      true,
	"abstract_array_declarator":         true,
	"abstract_parenthesized_declarator": true,
}

// IsCDeclaratorNode reports whether node sits in a declarator position.
func IsCDeclaratorNode(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	_, ok := CDeclaratorTypes[node.Type()]
	return ok
}

// InnerDeclarator returns the declarator wrapped by a pointer, function,
// array, parenthesized, attributed or init declarator. It returns nil for
// identifiers, abstract declarators without an inner part and other nodes.
func InnerDeclarator(node *sitter.Node) *sitter.Node {
	if node == nil || !CDeclaratorTypes[node.Type()] {
		return nil
	}
	if inner := node.ChildByFieldName("declarator"); inner != nil {
		return inner
	}
	// parenthesized and attributed declarators have no field name for the
	// wrapped declarator.
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if IsCDeclaratorNode(child) {
			return child
		}
	}
	return nil
}
