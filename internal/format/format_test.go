package format

import (
	"bytes"
	"testing"
)

func TestLines(t *testing.T) {
	got := Lines(Field("hash", "abc"), Field("skipped_long_key", ""), Field("access_count", "3"))
	want := "hash:         abc\naccess_count: 3"
	if got != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", got, want)
	}
	if Lines(Field("empty", "")) != "" {
		t.Fatal("expected empty output when every value is empty")
	}
}

func TestJSONFormatter(t *testing.T) {
	var compact, indented bytes.Buffer
	payload := map[string]int{"total": 2}

	if err := (JSONFormatter{}).Write(&compact, payload); err != nil {
		t.Fatalf("write compact: %v", err)
	}
	if compact.String() != "{\"total\":2}\n" {
		t.Fatalf("unexpected compact output %q", compact.String())
	}

	if err := (JSONFormatter{Indent: "  "}).Write(&indented, payload); err != nil {
		t.Fatalf("write indented: %v", err)
	}
	if indented.String() != "{\n  \"total\": 2\n}\n" {
		t.Fatalf("unexpected indented output %q", indented.String())
	}
}
