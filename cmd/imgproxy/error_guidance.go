package main

import (
	"context"
	"errors"
	"net"

	"imgproxy/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized", "forbidden":
			lines = append(lines, "hint: verify client.username and client.password (or IMGPROXY_USERNAME / IMGPROXY_PASSWORD).")
		case "resource_exhausted":
			lines = append(lines, "hint: rate limited; wait for the Retry-After interval before retrying.")
		case "expired":
			lines = append(lines, "hint: the image is past its retention window; upload it again for a new link.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify client.api_url points to an imgproxy server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase IMGPROXY_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure an imgproxy server is running at client.api_url (IMGPROXY_API_URL).",
			"hint: start a server with: imgproxy srv",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
