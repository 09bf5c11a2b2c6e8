package extract

import (
	"context"

	"github.com/pyapi/csig/internal/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// Options controls how signatures are extracted from C source.
type Options struct {
	// Lenient keeps going when the tree contains syntax errors instead of
	// failing with the first one.
	Lenient bool
	// Unique drops exact duplicate signatures, e.g. repeated prototypes.
	Unique bool
}

// SignatureExtractor extracts function signatures from a parsed C AST.
type SignatureExtractor struct {
	result *parser.ParseResult
	sigs   []Signature
}

// NewSignatureExtractor creates an extractor for the given C parse result.
func NewSignatureExtractor(result *parser.ParseResult) *SignatureExtractor {
	return &SignatureExtractor{
		result: result,
	}
}

// ExtractSource parses C source and returns its function signatures, sorted.
// Unless opts.Lenient is set, a syntax error anywhere in the source is
// returned as a *parser.ParseError.
func ExtractSource(ctx context.Context, source []byte, opts Options) ([]Signature, error) {
	p, err := parser.NewParser()
	if err != nil {
		return nil, err
	}
	defer p.Close()

	result, err := p.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	return extractResult(result, opts)
}

// ExtractFile is ExtractSource for a file on disk.
func ExtractFile(ctx context.Context, path string, opts Options) ([]Signature, error) {
	p, err := parser.NewParser()
	if err != nil {
		return nil, err
	}
	defer p.Close()

	result, err := p.ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	return extractResult(result, opts)
}

// unreadScopes are the node types whose contents never reach a signature.
// GNU C that the grammar rejects, such as unnamed bitfields in struct bodies
// and statement expressions in inline function bodies, is tolerated there.
var unreadScopes = []string{"compound_statement", "field_declaration_list"}

func extractResult(result *parser.ParseResult, opts Options) ([]Signature, error) {
	if !opts.Lenient {
		if pe := result.FirstErrorOutside(unreadScopes...); pe != nil {
			return nil, pe
		}
	}

	sigs, err := NewSignatureExtractor(result).Extract()
	if err != nil {
		return nil, err
	}
	Sort(sigs)
	if opts.Unique {
		sigs = Dedupe(sigs)
	}
	return sigs, nil
}

// Extract returns one signature per function declarator, in source order.
// Declarations at any depth are considered, including block-scope prototypes
// inside function bodies. Declarations of anything other than a function
// are skipped; struct members are field declarations and never match.
func (e *SignatureExtractor) Extract() ([]Signature, error) {
	e.sigs = nil

	for _, node := range e.declarationNodes() {
		switch node.Type() {
		case "declaration":
			specs := specifierNodes(node)
			for _, decl := range declaratorNodes(node) {
				e.visitDeclarator(specs, decl)
			}
		case "function_definition":
			e.visitDeclarator(specifierNodes(node), node.ChildByFieldName("declarator"))
		}
	}
	return e.sigs, nil
}

// declarationNodes returns every declaration and function definition in
// document order. K&R parameter declarations belong to a function definition
// and are left out.
func (e *SignatureExtractor) declarationNodes() []*sitter.Node {
	return e.result.FindNodes(func(node *sitter.Node) bool {
		switch node.Type() {
		case "function_definition":
			return true
		case "declaration":
			parent := node.Parent()
			return parent == nil || parent.Type() != "function_definition"
		}
		return false
	})
}

// visitDeclarator records a signature if decl declares a function.
func (e *SignatureExtractor) visitDeclarator(specs []*sitter.Node, decl *sitter.Node) {
	fd, name := functionDeclarator(decl)
	if fd == nil {
		return
	}

	src := e.result.Source
	sig := Signature{
		Name:       e.result.NodeText(name),
		ReturnType: Cleanup(renderDecl(src, specs, decl, fd)),
		Params:     e.params(fd),
	}
	e.sigs = append(e.sigs, sig)
}

// params renders the parameters of a function declarator with their names
// left out. "()" and "(void)" give no parameters.
func (e *SignatureExtractor) params(fd *sitter.Node) []string {
	list := fd.ChildByFieldName("parameters")
	if list == nil {
		return nil
	}

	src := e.result.Source
	var params []string
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		switch p.Type() {
		case "parameter_declaration":
			decl := p.ChildByFieldName("declarator")
			params = append(params, Cleanup(renderDecl(src, specifierNodes(p), decl, declaredName(decl))))
		case "variadic_parameter":
			params = append(params, "...")
		case "comment":
		default:
			// K&R identifier lists and anything unexpected render as written.
			params = append(params, Cleanup(renderDecl(src, nil, p, nil)))
		}
	}

	if len(params) == 1 && params[0] == "void" {
		return nil
	}
	return params
}

// functionDeclarator unwraps decl down to its identifier. If the wrapper
// closest to the identifier is a function declarator, that declarator and the
// identifier are returned; otherwise decl does not declare a function.
func functionDeclarator(decl *sitter.Node) (fd, name *sitter.Node) {
	var nearest *sitter.Node
	for cur := decl; cur != nil; cur = parser.InnerDeclarator(cur) {
		switch cur.Type() {
		case "identifier":
			if nearest != nil && nearest.Type() == "function_declarator" {
				return nearest, cur
			}
			return nil, nil
		case "parenthesized_declarator", "attributed_declarator":
			// Grouping only; does not change what is declared.
		default:
			nearest = cur
		}
	}
	return nil, nil
}

// declaredName returns the identifier a (possibly abstract) declarator
// declares, or nil if it declares none.
func declaredName(decl *sitter.Node) *sitter.Node {
	for cur := decl; cur != nil; cur = parser.InnerDeclarator(cur) {
		if cur.Type() == "identifier" {
			return cur
		}
	}
	return nil
}

// specifierNodes returns the declaration specifiers of node: every named
// child that is not a declarator, a body or a K&R parameter declaration.
func specifierNodes(node *sitter.Node) []*sitter.Node {
	var specs []*sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if parser.IsCDeclaratorNode(child) {
			continue
		}
		switch child.Type() {
		case "compound_statement", "declaration", "comment":
			continue
		}
		specs = append(specs, child)
	}
	return specs
}

// declaratorNodes returns every declarator of a declaration, e.g. both a and
// b in "int a(void), b(int);".
func declaratorNodes(node *sitter.Node) []*sitter.Node {
	var decls []*sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if parser.IsCDeclaratorNode(child) {
			decls = append(decls, child)
		}
	}
	return decls
}
