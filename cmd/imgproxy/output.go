package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"imgproxy/internal/api"
	"imgproxy/internal/format"
)

var outputFormatter format.Formatter = format.JSONFormatter{Indent: "  "}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeImage(img api.ImageResponse) error {
	return writePlain("%s\n", format.Lines(
		format.Field("status", img.Status),
		format.Field("hash", img.Hash),
		format.Field("name", img.Name),
		format.Field("media_type", img.MediaType),
		format.Field("size", sizeOrEmpty(img.FileSize)),
		format.Field("dimensions", dimensions(img.Width, img.Height)),
		format.Field("access_count", fmt.Sprint(img.AccessCount)),
		format.Field("expire_at", formatUnix(img.ExpireAt)),
		format.Field("url", img.URL),
	))
}

func dimensions(width, height int) string {
	if width == 0 && height == 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", width, height)
}

func sizeOrEmpty(n int64) string {
	if n <= 0 {
		return ""
	}
	return humanize.IBytes(uint64(n))
}

func formatUnix(sec int64) string {
	if sec <= 0 {
		return ""
	}
	return formatTime(time.Unix(sec, 0))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
