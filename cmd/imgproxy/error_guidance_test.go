package main

import (
	"context"
	"fmt"
	"net"
	"testing"

	"imgproxy/internal/api"
)

func TestFormatCLIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		hint string
	}{
		{
			name: "network",
			err:  &net.DNSError{Err: "dial tcp: connection refused", Name: "127.0.0.1", IsTemporary: true},
			hint: "hint: start a server with: imgproxy srv",
		},
		{
			name: "unknown service",
			err:  &api.APIError{Status: 404, Message: "api error: 404 Not Found"},
			hint: "hint: verify client.api_url points to an imgproxy server.",
		},
		{
			name: "credentials",
			err:  &api.APIError{Status: 403, Code: "forbidden", Message: "access denied"},
			hint: "hint: verify client.username and client.password (or IMGPROXY_USERNAME / IMGPROXY_PASSWORD).",
		},
		{
			name: "expired",
			err:  fmt.Errorf("a.png: %w", &api.APIError{Status: 410, Code: "expired", Message: "image expired"}),
			hint: "hint: the image is past its retention window; upload it again for a new link.",
		},
		{
			name: "internal",
			err:  &api.APIError{Status: 500, Code: "internal", Message: "internal error"},
			hint: "hint: server returned an internal error; check server logs for details.",
		},
		{
			name: "timeout",
			err:  context.DeadlineExceeded,
			hint: "hint: request timed out; check server health or increase IMGPROXY_HTTP_TIMEOUT.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := formatCLIError(tt.err)
			if len(lines) == 0 || lines[0] != tt.err.Error() {
				t.Fatalf("expected error message first, got %v", lines)
			}
			if !containsLine(lines, tt.hint) {
				t.Fatalf("expected %q in %v", tt.hint, lines)
			}
		})
	}
}

func TestFormatCLIErrorNil(t *testing.T) {
	if lines := formatCLIError(nil); lines != nil {
		t.Fatalf("expected nil, got %v", lines)
	}
}

func containsLine(lines []string, expected string) bool {
	for _, line := range lines {
		if line == expected {
			return true
		}
	}
	return false
}
