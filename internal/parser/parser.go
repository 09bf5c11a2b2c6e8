// Package parser provides tree-sitter based parsing of preprocessed C source.
//
// The parser package wraps the tree-sitter library and its C grammar. It
// produces a ParseResult that owns the tree and the source bytes, and offers
// the small set of traversal helpers the extractor needs.
package parser

import (
	"context"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parser wraps tree-sitter for C parsing.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed AST and metadata.
type ParseResult struct {
	// Tree is the complete tree-sitter parse tree.
	Tree *sitter.Tree
	// Root is the root node of the AST (a translation_unit).
	Root *sitter.Node
	// Source is the source code that was parsed.
	Source []byte
	// FilePath is the path to the source file (empty for in-memory parsing).
	FilePath string
}

// NewParser creates a parser configured for C.
func NewParser() (*Parser, error) {
	p, err := newCParser()
	if err != nil {
		return nil, err
	}
	return &Parser{parser: p}, nil
}

// Parse parses source code and returns the AST.
// Syntax errors do not fail the parse; use HasErrors or FirstError to check.
func (p *Parser) Parse(ctx context.Context, source []byte) (*ParseResult, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, &ParseError{
			Message: err.Error(),
		}
	}

	return &ParseResult{
		Tree:   tree,
		Root:   tree.RootNode(),
		Source: source,
	}, nil
}

// ParseFile parses a file from disk.
func (p *Parser) ParseFile(ctx context.Context, path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}

	result, err := p.Parse(ctx, source)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.File = path
		}
		return nil, err
	}

	result.FilePath = path
	return result, nil
}

// Close releases parser resources.
// After calling Close, the parser should not be used.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
}

// Close releases the parse tree resources.
func (r *ParseResult) Close() {
	if r.Tree != nil {
		r.Tree.Close()
		r.Tree = nil
		r.Root = nil
	}
}

// HasErrors returns true if the parse tree contains syntax errors.
func (r *ParseResult) HasErrors() bool {
	if r.Root == nil {
		return false
	}
	return r.Root.HasError()
}

// FirstError returns a ParseError describing the first ERROR or MISSING node
// in document order, or nil if the tree is clean.
func (r *ParseResult) FirstError() *ParseError {
	return r.FirstErrorOutside()
}

// FirstErrorOutside is FirstError with every subtree rooted at one of the
// given node types left out. It returns nil when all errors sit inside such
// subtrees.
func (r *ParseResult) FirstErrorOutside(skipTypes ...string) *ParseError {
	if !r.HasErrors() {
		return nil
	}

	skip := make(map[string]bool, len(skipTypes))
	for _, t := range skipTypes {
		skip[t] = true
	}

	var bad *sitter.Node
	r.WalkNodes(func(node *sitter.Node) bool {
		if bad != nil || skip[node.Type()] {
			return false
		}
		if node.IsError() || node.IsMissing() {
			bad = node
			return false
		}
		// Only descend into subtrees that contain the error.
		return node.HasError()
	})

	pe := &ParseError{File: r.FilePath, Message: "syntax error"}
	if bad == nil {
		if len(skip) > 0 {
			return nil
		}
		return pe
	}

	pos := bad.StartPoint()
	pe.Line = pos.Row + 1
	pe.Column = pos.Column + 1
	if bad.IsMissing() {
		pe.Message = "missing " + bad.Type()
	} else if text := firstLine(r.NodeText(bad)); text != "" {
		pe.Message = "syntax error near " + quoteShort(text)
	}
	return pe
}

// WalkNodes traverses the AST depth-first, calling the visitor function
// for each node. If the visitor returns false, the node's children are skipped.
func (r *ParseResult) WalkNodes(visitor func(*sitter.Node) bool) {
	if r.Root == nil {
		return
	}
	walkNode(r.Root, visitor)
}

func walkNode(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if !visitor(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkNode(node.Child(i), visitor)
	}
}

// FindNodes returns all nodes matching the given predicate.
func (r *ParseResult) FindNodes(predicate func(*sitter.Node) bool) []*sitter.Node {
	var nodes []*sitter.Node
	r.WalkNodes(func(node *sitter.Node) bool {
		if predicate(node) {
			nodes = append(nodes, node)
		}
		return true
	})
	return nodes
}

// NodeText returns the source text for a node.
func (r *ParseResult) NodeText(node *sitter.Node) string {
	if node == nil || r.Source == nil {
		return ""
	}
	return node.Content(r.Source)
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			return s[:i]
		}
	}
	return s
}

func quoteShort(s string) string {
	if len(s) > 40 {
		s = s[:37] + "..."
	}
	return "\"" + s + "\""
}
