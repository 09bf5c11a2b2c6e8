// Package sigdiff compares two signature listings of a C API.
//
// Signatures are matched by function name. A name present only in the new
// listing is an addition, one present only in the old listing is a removal,
// and a name whose set of distinct signature lines differs is a signature
// change. Removals and signature changes are breaking.
package sigdiff

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pyapi/csig/internal/extract"
)

// ChangeType classifies the kind of change.
type ChangeType string

const (
	// ChangeAdded indicates a new function was declared.
	ChangeAdded ChangeType = "added"
	// ChangeRemoved indicates a function is no longer declared.
	ChangeRemoved ChangeType = "removed"
	// ChangeSignature indicates the function's signature changed.
	ChangeSignature ChangeType = "signature_change"
)

// Change is a single difference between two listings.
type Change struct {
	// Name is the function name.
	Name string `yaml:"name" json:"name"`
	// ChangeType classifies the change.
	ChangeType ChangeType `yaml:"change_type" json:"change_type"`
	// Breaking is true for removals and signature changes.
	Breaking bool `yaml:"breaking" json:"breaking"`
	// Old holds the distinct old signature lines (empty for additions).
	Old []string `yaml:"old,omitempty" json:"old,omitempty"`
	// New holds the distinct new signature lines (empty for removals).
	New []string `yaml:"new,omitempty" json:"new,omitempty"`
}

// Summary contains aggregate statistics about a comparison.
type Summary struct {
	TotalChanges     int `yaml:"total_changes" json:"total_changes"`
	BreakingChanges  int `yaml:"breaking_changes" json:"breaking_changes"`
	Added            int `yaml:"added" json:"added"`
	Removed          int `yaml:"removed" json:"removed"`
	SignatureChanges int `yaml:"signature_changes" json:"signature_changes"`
}

// Report is the result of Compare.
type Report struct {
	Summary Summary  `yaml:"summary" json:"summary"`
	Changes []Change `yaml:"changes" json:"changes"`
}

// Empty reports whether the two listings were equivalent.
func (r *Report) Empty() bool {
	return len(r.Changes) == 0
}

// Compare returns the changes needed to go from oldSigs to newSigs, sorted
// by function name.
func Compare(oldSigs, newSigs []extract.Signature) *Report {
	oldByName := groupByName(oldSigs)
	newByName := groupByName(newSigs)

	names := make(map[string]bool, len(oldByName)+len(newByName))
	for name := range oldByName {
		names[name] = true
	}
	for name := range newByName {
		names[name] = true
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	changes := []Change{}
	for _, name := range sorted {
		before, inOld := oldByName[name]
		after, inNew := newByName[name]

		switch {
		case !inOld:
			changes = append(changes, Change{Name: name, ChangeType: ChangeAdded, New: after})
		case !inNew:
			changes = append(changes, Change{Name: name, ChangeType: ChangeRemoved, Breaking: true, Old: before})
		case strings.Join(before, "\n") != strings.Join(after, "\n"):
			changes = append(changes, Change{Name: name, ChangeType: ChangeSignature, Breaking: true, Old: before, New: after})
		}
	}

	return &Report{
		Summary: buildSummary(changes),
		Changes: changes,
	}
}

// groupByName maps each function name to its distinct signature lines, sorted.
func groupByName(sigs []extract.Signature) map[string][]string {
	seen := make(map[string]map[string]bool)
	for _, s := range sigs {
		if seen[s.Name] == nil {
			seen[s.Name] = make(map[string]bool)
		}
		seen[s.Name][s.String()] = true
	}

	out := make(map[string][]string, len(seen))
	for name, lines := range seen {
		list := make([]string, 0, len(lines))
		for line := range lines {
			list = append(list, line)
		}
		sort.Strings(list)
		out[name] = list
	}
	return out
}

func buildSummary(changes []Change) Summary {
	summary := Summary{
		TotalChanges: len(changes),
	}

	for _, c := range changes {
		if c.Breaking {
			summary.BreakingChanges++
		}

		switch c.ChangeType {
		case ChangeAdded:
			summary.Added++
		case ChangeRemoved:
			summary.Removed++
		case ChangeSignature:
			summary.SignatureChanges++
		}
	}

	return summary
}

// Read parses a listing in the name;return_type;params line format.
// Blank lines are ignored.
func Read(r io.Reader) ([]extract.Signature, error) {
	var sigs []extract.Signature

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		sig, err := extract.ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		sigs = append(sigs, sig)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sigs, nil
}

// LoadFile reads a listing from a file.
func LoadFile(path string) ([]extract.Signature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sigs, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sigs, nil
}
