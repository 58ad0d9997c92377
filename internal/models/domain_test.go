package models

import (
	"strings"
	"testing"
	"time"
)

func TestIsValidHash(t *testing.T) {
	valid := strings.Repeat("ab", 32)
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "valid", value: valid, want: true},
		{name: "uppercase", value: strings.ToUpper(valid), want: false},
		{name: "short", value: valid[:63], want: false},
		{name: "non hex", value: strings.Repeat("zz", 32), want: false},
		{name: "md5 length", value: strings.Repeat("a", 32), want: false},
		{name: "empty", value: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidHash(tt.value); got != tt.want {
				t.Fatalf("IsValidHash(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestNormalizeHash(t *testing.T) {
	raw := " " + strings.Repeat("AB", 32) + " "
	got, err := NormalizeHash(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != strings.Repeat("ab", 32) {
		t.Fatalf("unexpected normalized hash %q", got)
	}
	if _, err := NormalizeHash("../etc/passwd"); err == nil {
		t.Fatal("expected invalid hash error")
	}
}

func TestBlobRecordExpired(t *testing.T) {
	created := time.Unix(1_700_000_000, 0).UTC()
	rec := BlobRecord{CreatedAt: created}
	retention := 50 * time.Second

	if rec.Expired(retention, created.Add(retention)) {
		t.Fatal("record at exactly the retention boundary should not be expired")
	}
	if !rec.Expired(retention, created.Add(retention+time.Second)) {
		t.Fatal("record past the retention boundary should be expired")
	}
	if got := rec.ExpiresAt(retention); !got.Equal(created.Add(retention)) {
		t.Fatalf("unexpected expiry %v", got)
	}
}
