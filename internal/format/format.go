// Package format renders CLI output as JSON or aligned key/value lines.
package format

import (
	"encoding/json"
	"io"
	"strings"
)

// Formatter abstracts output formatting.
type Formatter interface {
	Write(w io.Writer, payload any) error
}

// JSONFormatter writes JSON output. A non-empty Indent pretty-prints.
type JSONFormatter struct {
	Indent string
}

// Write writes JSON payload to a writer.
func (f JSONFormatter) Write(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	if f.Indent != "" {
		enc.SetIndent("", f.Indent)
	}
	return enc.Encode(payload)
}

// KV is one labelled value of plain output.
type KV struct {
	Key   string
	Value string
}

// Field builds a KV.
func Field(key, value string) KV {
	return KV{Key: key, Value: value}
}

// Lines renders fields as "key: value", padding keys to a common width.
// Fields with an empty value are skipped.
func Lines(fields ...KV) string {
	width := 0
	for _, f := range fields {
		if f.Value != "" && len(f.Key) > width {
			width = len(f.Key)
		}
	}

	var b strings.Builder
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Key)
		b.WriteByte(':')
		b.WriteString(strings.Repeat(" ", width-len(f.Key)+1))
		b.WriteString(f.Value)
	}
	return b.String()
}
