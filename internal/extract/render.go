package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// droppedNodeTypes never contribute to a rendered type: storage classes and
// function specifiers live on the declaration, not on its type.
var droppedNodeTypes = map[string]bool{
	"comment":                 true,
	"storage_class_specifier": true,
	"attribute_specifier":     true,
	"attribute_declaration":   true,
	"ms_declspec_modifier":    true,
	"gnu_asm_expression":      true,
}

// functionSpecifiers parse as type qualifiers but belong to the function,
// like inline.
var functionSpecifiers = map[string]bool{
	"_Noreturn": true,
	"noreturn":  true,
}

// renderer turns a sequence of nodes back into declaration text.
type renderer struct {
	source []byte
	cut    *sitter.Node
	tokens []string
}

// renderDecl renders specifiers followed by a declarator. Type qualifiers are
// moved in front of the other specifiers. The cut node, if any, is rendered
// as nothing: it is how names and function declarators get left out.
func renderDecl(source []byte, specifiers []*sitter.Node, declarator, cut *sitter.Node) string {
	r := &renderer{source: source, cut: cut}
	for _, spec := range specifiers {
		if spec.Type() == "type_qualifier" {
			r.emit(spec)
		}
	}
	for _, spec := range specifiers {
		if spec.Type() != "type_qualifier" {
			r.emit(spec)
		}
	}
	r.emit(declarator)
	return joinTokens(r.tokens)
}

func (r *renderer) emit(node *sitter.Node) {
	if node == nil || droppedNodeTypes[node.Type()] || r.isFunctionSpecifier(node) {
		return
	}
	if r.cut != nil && sameNode(node, r.cut) {
		return
	}
	if node.ChildCount() == 0 {
		if tok := strings.TrimSpace(node.Content(r.source)); tok != "" {
			r.tokens = append(r.tokens, tok)
		}
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		r.emit(node.Child(i))
	}
}

func (r *renderer) isFunctionSpecifier(node *sitter.Node) bool {
	if node.Type() != "type_qualifier" && node.ChildCount() != 0 {
		return false
	}
	return functionSpecifiers[strings.TrimSpace(node.Content(r.source))]
}

// joinTokens joins tokens with single spaces, the way a C pretty-printer
// lays out an abstract declarator: "int (*)(void *, int)", "char [8]".
func joinTokens(tokens []string) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 && spaceBetween(tokens[i-1], tok) {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}
	return b.String()
}

func spaceBetween(prev, next string) bool {
	switch prev {
	case "(", "[":
		return false
	}
	switch next {
	case ")", "]", ",":
		return false
	case "(", "[":
		return prev != ")" && prev != "]"
	}
	return true
}

// Cleanup removes the spaces around every '*' until none are left, so that
// "int *", "int* " and "int  *  " all become "int*".
func Cleanup(text string) string {
	for {
		next := strings.ReplaceAll(text, " *", "*")
		next = strings.ReplaceAll(next, "* ", "*")
		if next == text {
			return next
		}
		text = next
	}
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() &&
		a.EndByte() == b.EndByte() &&
		a.Type() == b.Type()
}
