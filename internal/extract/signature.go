// Package extract finds function declarations in a parsed C translation unit
// and turns each one into a canonical signature record.
package extract

import (
	"fmt"
	"sort"
	"strings"
)

// Signature is the canonical description of one C function declaration.
type Signature struct {
	Name       string   `yaml:"name" json:"name"`
	ReturnType string   `yaml:"return_type" json:"return_type"`
	Params     []string `yaml:"params" json:"params"`
}

// String renders the signature as name;return_type;param1|param2.
func (s Signature) String() string {
	return s.Name + ";" + s.ReturnType + ";" + strings.Join(s.Params, "|")
}

// ParseLine parses a line produced by Signature.String.
func ParseLine(line string) (Signature, error) {
	parts := strings.SplitN(line, ";", 3)
	if len(parts) != 3 {
		return Signature{}, fmt.Errorf("malformed signature %q: expected name;return_type;params", line)
	}
	if parts[0] == "" {
		return Signature{}, fmt.Errorf("malformed signature %q: empty function name", line)
	}

	sig := Signature{Name: parts[0], ReturnType: parts[1]}
	if parts[2] != "" {
		sig.Params = strings.Split(parts[2], "|")
	}
	return sig, nil
}

// Sort orders signatures by their string form, byte-wise.
func Sort(sigs []Signature) {
	sort.SliceStable(sigs, func(i, j int) bool {
		return sigs[i].String() < sigs[j].String()
	})
}

// Dedupe drops adjacent signatures with identical string forms.
// The input must already be sorted.
func Dedupe(sigs []Signature) []Signature {
	if len(sigs) < 2 {
		return sigs
	}
	out := sigs[:1]
	for _, s := range sigs[1:] {
		if s.String() != out[len(out)-1].String() {
			out = append(out, s)
		}
	}
	return out
}

// Lines returns the string form of every signature, sorted.
func Lines(sigs []Signature) []string {
	lines := make([]string, len(sigs))
	for i, s := range sigs {
		lines[i] = s.String()
	}
	sort.Strings(lines)
	return lines
}
