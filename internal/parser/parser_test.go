package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
)

const testCSource = `typedef struct _object PyObject;

struct point {
    int x;
    int y;
};

PyObject *PyLong_FromLong(long v);
int Py_IsInitialized(void);
static int cache_size = 16;
`

func parseTestSource(t *testing.T, src string) *ParseResult {
	t.Helper()
	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser failed: %v", err)
	}
	defer p.Close()

	result, err := p.Parse(context.Background(), []byte(src))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return result
}

func TestParser_Parse(t *testing.T) {
	t.Run("parses valid C source", func(t *testing.T) {
		result := parseTestSource(t, testCSource)
		defer result.Close()

		if result.Root == nil {
			t.Fatal("expected non-nil root node")
		}
		if result.Root.Type() != "translation_unit" {
			t.Errorf("expected root type 'translation_unit', got %q", result.Root.Type())
		}
		if result.HasErrors() {
			t.Errorf("expected no errors, got %v", result.FirstError())
		}
		if result.FirstError() != nil {
			t.Error("FirstError should be nil for a clean tree")
		}
	})

	t.Run("preserves source", func(t *testing.T) {
		result := parseTestSource(t, testCSource)
		defer result.Close()

		if string(result.Source) != testCSource {
			t.Error("source was not preserved")
		}
	})
}

func TestParser_ParseFile(t *testing.T) {
	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser failed: %v", err)
	}
	defer p.Close()

	t.Run("records file path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "api.h")
		if err := os.WriteFile(path, []byte(testCSource), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}

		result, err := p.ParseFile(context.Background(), path)
		if err != nil {
			t.Fatalf("ParseFile failed: %v", err)
		}
		defer result.Close()

		if result.FilePath != path {
			t.Errorf("FilePath = %q, want %q", result.FilePath, path)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := p.ParseFile(context.Background(), filepath.Join(t.TempDir(), "nope.h"))
		if err == nil {
			t.Fatal("expected error for missing file")
		}
		var fre *FileReadError
		if !errors.As(err, &fre) {
			t.Fatalf("expected FileReadError, got %T", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Error("FileReadError should unwrap to os.ErrNotExist")
		}
	})
}

func TestParseResult_FirstError(t *testing.T) {
	src := "int ok(void);\nint broken(int a,;\n"
	result := parseTestSource(t, src)
	defer result.Close()

	if !result.HasErrors() {
		t.Fatal("expected syntax errors")
	}

	pe := result.FirstError()
	if pe == nil {
		t.Fatal("expected a ParseError")
	}
	if pe.Line != 2 {
		t.Errorf("error line = %d, want 2", pe.Line)
	}
	if pe.Column == 0 {
		t.Error("expected a column")
	}
	if !strings.Contains(pe.Error(), "2:") {
		t.Errorf("error string %q should carry the line", pe.Error())
	}
}

func TestParseResult_FirstErrorOutside(t *testing.T) {
	// An unnamed bitfield is valid C that the grammar reports as a missing
	// field name inside the struct body.
	src := "struct timex { int tai; int :32; };\nint add(int a, int b);\n"
	result := parseTestSource(t, src)
	defer result.Close()

	if result.FirstError() == nil {
		t.Fatal("expected the bitfield to be reported without skipped scopes")
	}
	if pe := result.FirstErrorOutside("field_declaration_list"); pe != nil {
		t.Errorf("errors inside the struct body should be skipped, got %v", pe)
	}

	broken := parseTestSource(t, "struct s { int :1; };\nint broken(int a,;\n")
	defer broken.Close()

	pe := broken.FirstErrorOutside("field_declaration_list")
	if pe == nil {
		t.Fatal("expected the top-level error to be reported")
	}
	if pe.Line != 2 {
		t.Errorf("error line = %d, want 2", pe.Line)
	}
}

func TestParseResult_FindNodes(t *testing.T) {
	result := parseTestSource(t, testCSource)
	defer result.Close()

	t.Run("finds declarations", func(t *testing.T) {
		decls := nodesOfType(result, "declaration")
		if len(decls) != 3 {
			t.Errorf("expected 3 declarations, got %d", len(decls))
		}
	})

	t.Run("finds typedefs", func(t *testing.T) {
		if n := len(nodesOfType(result, "type_definition")); n != 1 {
			t.Errorf("expected 1 type_definition, got %d", n)
		}
	})

	t.Run("finds function declarators", func(t *testing.T) {
		names := make(map[string]bool)
		for _, fd := range nodesOfType(result, "function_declarator") {
			names[result.NodeText(fd.ChildByFieldName("declarator"))] = true
		}
		if !names["PyLong_FromLong"] || !names["Py_IsInitialized"] {
			t.Errorf("unexpected function declarators: %v", names)
		}
	})
}

func TestParseResult_WalkNodes(t *testing.T) {
	result := parseTestSource(t, testCSource)
	defer result.Close()

	t.Run("visits all nodes", func(t *testing.T) {
		count := 0
		result.WalkNodes(func(node *sitter.Node) bool {
			count++
			return true
		})
		if count == 0 {
			t.Error("expected to visit some nodes")
		}
	})

	t.Run("skips children when visitor returns false", func(t *testing.T) {
		sawField := false
		result.WalkNodes(func(node *sitter.Node) bool {
			if node.Type() == "field_declaration" {
				sawField = true
			}
			return node.Type() != "struct_specifier"
		})
		if sawField {
			t.Error("expected struct members to be skipped")
		}
	})
}

func TestInnerDeclarator(t *testing.T) {
	result := parseTestSource(t, "int (*handlers[4])(void);\n")
	defer result.Close()

	decl := nodesOfType(result, "declaration")[0]
	node := decl.ChildByFieldName("declarator")

	var kinds []string
	for node != nil {
		kinds = append(kinds, node.Type())
		node = InnerDeclarator(node)
	}

	want := []string{
		"function_declarator",
		"parenthesized_declarator",
		"pointer_declarator",
		"array_declarator",
		"identifier",
	}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Errorf("declarator chain = %v, want %v", kinds, want)
	}
}

func nodesOfType(result *ParseResult, nodeType string) []*sitter.Node {
	return result.FindNodes(func(node *sitter.Node) bool {
		return node.Type() == nodeType
	})
}
