package preprocess

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pyapi/csig/internal/extract"
)

func requireCPP(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath(DefaultCommand); err != nil {
		t.Skipf("%s not available: %v", DefaultCommand, err)
	}
}

// writeHeaders creates the four headers the preamble includes. Python.h gets
// the given body, the others stay empty.
func writeHeaders(t *testing.T, pythonH string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"Python.h":       pythonH,
		"frameobject.h":  "",
		"datetime.h":     "",
		"structmember.h": "",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func assertTempDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestPreamble(t *testing.T) {
	text := Preamble()

	var defines, includes int
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "#define "):
			defines++
		case strings.HasPrefix(line, "#include "):
			includes++
		}
	}
	if defines != 4 || includes != 4 {
		t.Errorf("preamble has %d defines and %d includes, want 4 and 4", defines, includes)
	}
	for _, h := range []string{"<Python.h>", "<frameobject.h>", "<datetime.h>", "<structmember.h>"} {
		if !strings.Contains(text, h) {
			t.Errorf("preamble does not include %s", h)
		}
	}
}

func TestCommandArgs(t *testing.T) {
	p := &Preprocessor{
		Command:     "cpp",
		Args:        []string{"-P"},
		IncludeDirs: []string{"/opt/fake_libc"},
	}

	got := p.CommandArgs("/tmp/in.c", "/usr/include/python3.12")
	want := []string{"-P", "-I", "/opt/fake_libc", "-I", "/usr/include/python3.12", "/tmp/in.c"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("CommandArgs() = %v, want %v", got, want)
	}

	line := p.CommandLine("/tmp/in.c", "/inc")
	if line != "cpp -P -I /opt/fake_libc -I /inc /tmp/in.c" {
		t.Errorf("CommandLine() = %q", line)
	}

	p.StubLibc = true
	line = p.CommandLine("/tmp/in.c", "/inc")
	if line != "cpp -P -I <stub libc> -I /opt/fake_libc -I /inc /tmp/in.c" {
		t.Errorf("CommandLine() with stub libc = %q", line)
	}
}

func TestNewUsesStubLibc(t *testing.T) {
	if !New().StubLibc {
		t.Error("New() should enable the stub libc")
	}
}

func TestRunMissingIncludePath(t *testing.T) {
	p := New()
	_, err := p.RunPreamble(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected an error for a missing include path")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestRunCommandNotFound(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	p := &Preprocessor{Command: "csig-no-such-preprocessor"}
	_, err := p.RunPreamble(context.Background(), writeHeaders(t, ""))
	if err == nil {
		t.Fatal("expected an error")
	}

	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if pe.Command != "csig-no-such-preprocessor" {
		t.Errorf("Command = %q", pe.Command)
	}
	assertTempDirEmpty(t, tmp)
}

func TestRunPreamble(t *testing.T) {
	requireCPP(t)

	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	headers := writeHeaders(t, "int add(int a, int b);\n")
	out, err := New().RunPreamble(context.Background(), headers)
	if err != nil {
		t.Fatalf("RunPreamble failed: %v", err)
	}
	assertTempDirEmpty(t, tmp)

	sigs, err := extract.ExtractSource(context.Background(), out, extract.Options{})
	if err != nil {
		t.Fatalf("ExtractSource failed: %v", err)
	}
	lines := extract.Lines(sigs)
	if len(lines) != 1 || lines[0] != "add;int;int|int" {
		t.Errorf("signatures = %q, want [add;int;int|int]", lines)
	}
}

func TestRunPreambleNeutralizesAttributes(t *testing.T) {
	requireCPP(t)

	body := `#ifndef Py_BUILD_CORE
#error Py_BUILD_CORE must be defined
#endif
__attribute__((visibility("default"))) int Py_IsInitialized(void);
`
	out, err := New().RunPreamble(context.Background(), writeHeaders(t, body))
	if err != nil {
		t.Fatalf("RunPreamble failed: %v", err)
	}
	if strings.Contains(string(out), "__attribute__") {
		t.Errorf("attributes survived preprocessing:\n%s", out)
	}

	sigs, err := extract.ExtractSource(context.Background(), out, extract.Options{})
	if err != nil {
		t.Fatalf("ExtractSource failed: %v", err)
	}
	if lines := extract.Lines(sigs); len(lines) != 1 || lines[0] != "Py_IsInitialized;int;" {
		t.Errorf("signatures = %q", lines)
	}
}

func TestRunPreambleHeaderNotFound(t *testing.T) {
	requireCPP(t)

	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	// An include directory without Python.h makes cpp fail.
	_, err := New().RunPreamble(context.Background(), t.TempDir())
	if err == nil {
		t.Fatal("expected an error")
	}
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !strings.Contains(pe.Stderr, "Python.h") {
		t.Errorf("stderr should mention Python.h, got %q", pe.Stderr)
	}
	assertTempDirEmpty(t, tmp)
}

// pythonWithLibc includes the system headers real Python.h pulls in, then
// declares things that the system's own headers would make unparsable.
const pythonWithLibc = `#include <stddef.h>
#include <stdio.h>
#include <time.h>
#include <assert.h>
#include <sys/types.h>

struct timex_like { int tai; int :32; int :32; };

typedef struct _object { size_t ob_refcnt; } PyObject;

static inline int Py_check(PyObject *op) {
    assert(op != NULL);
    return op->ob_refcnt > 0;
}

int PyObject_Print(PyObject *op, FILE *fp, int flags);
time_t Py_Time(void);
`

func TestRunPreambleStubLibc(t *testing.T) {
	requireCPP(t)

	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	out, err := New().RunPreamble(context.Background(), writeHeaders(t, pythonWithLibc))
	if err != nil {
		t.Fatalf("RunPreamble failed: %v", err)
	}
	assertTempDirEmpty(t, tmp)

	sigs, err := extract.ExtractSource(context.Background(), out, extract.Options{})
	if err != nil {
		t.Fatalf("strict extraction failed: %v", err)
	}
	want := []string{
		"PyObject_Print;int;PyObject*|FILE*|int",
		"Py_Time;time_t;",
		"Py_check;int;PyObject*",
	}
	if got := extract.Lines(sigs); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("signatures = %q, want %q", got, want)
	}
}
