// Package preprocess runs the C preprocessor over the fixed preamble that
// pulls in a Python-compatible runtime's C API headers.
package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// preamble neutralizes compiler attributes that the C grammar has no use
// for, then includes the public API headers.
const preamble = `#define __attribute__(x)
#define __extension__
#define _POSIX_THREADS
#define Py_BUILD_CORE

#include <Python.h>
#include <frameobject.h>
#include <datetime.h>
#include <structmember.h>
`

// Preamble returns the fixed translation unit that csig preprocesses.
func Preamble() string {
	return preamble
}

// DefaultCommand is the preprocessor used when none is configured.
const DefaultCommand = "cpp"

// DefaultArgs suppresses line markers, which tree-sitter's C grammar does not
// understand.
var DefaultArgs = []string{"-P"}

// Preprocessor invokes an external C preprocessor.
type Preprocessor struct {
	// Command is the preprocessor executable, e.g. "cpp" or "clang".
	Command string
	// Args are passed before the include flags.
	Args []string
	// IncludeDirs are searched before the include path given to Run.
	IncludeDirs []string
	// StubLibc puts a generated stub C library ahead of every include
	// directory, so headers such as <stdio.h> and <time.h> never expand to
	// the system's GNU C.
	StubLibc bool
}

// stubLibcPlaceholder stands in for the stub libc directory in CommandArgs,
// since that directory only exists while Run is executing.
const stubLibcPlaceholder = "<stub libc>"

// New returns a Preprocessor using DefaultCommand and DefaultArgs with the
// stub libc enabled.
func New() *Preprocessor {
	return &Preprocessor{
		Command:  DefaultCommand,
		Args:     append([]string(nil), DefaultArgs...),
		StubLibc: true,
	}
}

// Error is returned when the preprocessor cannot be started or exits with a
// failure status.
type Error struct {
	Command string
	Stderr  string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("preprocessor %s failed: %v", e.Command, e.Err)
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// RunPreamble preprocesses the fixed preamble against includePath.
func (p *Preprocessor) RunPreamble(ctx context.Context, includePath string) ([]byte, error) {
	return p.Run(ctx, preamble, includePath)
}

// Run writes source to a temporary file, preprocesses it with includePath
// appended to the include search path and returns the output. The temporary
// file and the stub libc directory are removed before Run returns.
func (p *Preprocessor) Run(ctx context.Context, source, includePath string) ([]byte, error) {
	if includePath != "" {
		info, err := os.Stat(includePath)
		if err != nil {
			return nil, fmt.Errorf("include path: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("include path %s is not a directory", includePath)
		}
	}

	var stubDir string
	if p.StubLibc {
		dir, err := os.MkdirTemp("", "csig-libc-*")
		if err != nil {
			return nil, fmt.Errorf("create stub libc: %w", err)
		}
		defer os.RemoveAll(dir)
		if err := WriteStubLibc(dir); err != nil {
			return nil, err
		}
		stubDir = dir
	}

	tmp, err := os.CreateTemp("", "csig-*.c")
	if err != nil {
		return nil, fmt.Errorf("create preamble file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(source); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write preamble file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("write preamble file: %w", err)
	}

	command := p.Command
	if command == "" {
		command = DefaultCommand
	}
	args := p.commandArgs(stubDir, tmp.Name(), includePath)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &Error{
			Command: command,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return stdout.Bytes(), nil
}

// CommandArgs returns the arguments Run passes to the preprocessor for the
// given input file. The stub libc directory, when enabled, is shown as
// "<stub libc>".
func (p *Preprocessor) CommandArgs(inputFile, includePath string) []string {
	stubDir := ""
	if p.StubLibc {
		stubDir = stubLibcPlaceholder
	}
	return p.commandArgs(stubDir, inputFile, includePath)
}

func (p *Preprocessor) commandArgs(stubDir, inputFile, includePath string) []string {
	args := append([]string(nil), p.Args...)
	if stubDir != "" {
		args = append(args, "-I", stubDir)
	}
	for _, dir := range p.IncludeDirs {
		args = append(args, "-I", dir)
	}
	if includePath != "" {
		args = append(args, "-I", includePath)
	}
	return append(args, inputFile)
}

// CommandLine renders the invocation for diagnostics.
func (p *Preprocessor) CommandLine(inputFile, includePath string) string {
	command := p.Command
	if command == "" {
		command = DefaultCommand
	}
	return strings.Join(append([]string{command}, p.CommandArgs(inputFile, includePath)...), " ")
}
