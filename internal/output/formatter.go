package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/pyapi/csig/internal/cache"
	"github.com/pyapi/csig/internal/extract"
	"github.com/pyapi/csig/internal/sigdiff"
)

// Formatter is the interface for formatting output in different formats.
type Formatter interface {
	// Format formats a value and returns the formatted string.
	Format(v interface{}) (string, error)

	// FormatToWriter writes formatted output directly to a writer.
	FormatToWriter(w io.Writer, v interface{}) error
}

// GetFormatter returns the formatter for the given format.
func GetFormatter(format Format) (Formatter, error) {
	switch format {
	case FormatText:
		return NewTextFormatter(), nil
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatYAML:
		return NewYAMLFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// TextFormatter writes signatures one per line in the name;return_type;params
// form, and diff reports as +/- lines.
type TextFormatter struct{}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// Format formats a value as text.
func (f *TextFormatter) Format(v interface{}) (string, error) {
	var buf bytes.Buffer
	if err := f.FormatToWriter(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatToWriter writes text output to a writer.
func (f *TextFormatter) FormatToWriter(w io.Writer, v interface{}) error {
	switch val := v.(type) {
	case []extract.Signature:
		for _, line := range extract.Lines(val) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	case *sigdiff.Report:
		return writeReport(w, val)
	case []cache.Snapshot:
		for _, s := range val {
			if _, err := fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.Name, s.SignatureCount,
				s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), s.IncludePath); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("text format does not support %T", v)
	}
}

func writeReport(w io.Writer, r *sigdiff.Report) error {
	for _, c := range r.Changes {
		for _, line := range c.Old {
			if _, err := fmt.Fprintf(w, "- %s\n", line); err != nil {
				return err
			}
		}
		for _, line := range c.New {
			if _, err := fmt.Fprintf(w, "+ %s\n", line); err != nil {
				return err
			}
		}
	}
	s := r.Summary
	_, err := fmt.Fprintf(w, "%d added, %d removed, %d changed (%d breaking)\n",
		s.Added, s.Removed, s.SignatureChanges, s.BreakingChanges)
	return err
}

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Format formats a value as YAML.
func (f *YAMLFormatter) Format(v interface{}) (string, error) {
	var buf bytes.Buffer
	if err := f.FormatToWriter(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatToWriter writes YAML output to a writer.
func (f *YAMLFormatter) FormatToWriter(w io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(structured(v))
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format formats a value as JSON.
func (f *JSONFormatter) Format(v interface{}) (string, error) {
	var buf bytes.Buffer
	if err := f.FormatToWriter(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatToWriter writes JSON output to a writer.
func (f *JSONFormatter) FormatToWriter(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(structured(v))
}

// SignatureListing is the structured form of a signature listing.
type SignatureListing struct {
	Count      int                 `yaml:"count" json:"count"`
	Signatures []extract.Signature `yaml:"signatures" json:"signatures"`
}

// structured wraps bare signature slices so that structured output carries a
// count and never encodes a nil list or nil params as null.
func structured(v interface{}) interface{} {
	sigs, ok := v.([]extract.Signature)
	if !ok {
		return v
	}

	out := make([]extract.Signature, len(sigs))
	for i, s := range sigs {
		if s.Params == nil {
			s.Params = []string{}
		}
		out[i] = s
	}
	extract.Sort(out)
	return SignatureListing{Count: len(out), Signatures: out}
}
