// Package validate checks uploaded image bytes before they reach storage.
package validate

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	_ "golang.org/x/image/webp"

	"imgproxy/internal/models"
)

const maxNameLength = 255

var safeNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.\- ]+$`)

// Options configures a Validator.
type Options struct {
	MaxBytes     int64
	AllowedTypes []string
}

// Validator applies size, name and content-type rules to upload candidates.
type Validator struct {
	maxBytes int64
	allowed  map[string]struct{}
}

// Result is the outcome of one validation. Every rule runs, so Reasons
// lists all failures rather than the first.
type Result struct {
	MediaType string
	Width     int
	Height    int
	Reasons   []string
}

// OK reports whether no rule failed.
func (r Result) OK() bool {
	return len(r.Reasons) == 0
}

// Error joins the failure reasons.
func (r Result) Error() string {
	return strings.Join(r.Reasons, "; ")
}

// New builds a Validator. An empty allow-list falls back to the default image types.
func New(opts Options) (*Validator, error) {
	if opts.MaxBytes <= 0 {
		return nil, fmt.Errorf("max bytes must be > 0")
	}
	types := opts.AllowedTypes
	if len(types) == 0 {
		types = models.DefaultAllowedMediaTypes()
	}
	allowed := make(map[string]struct{}, len(types))
	for _, raw := range types {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid allowed type %q: %w", raw, err)
		}
		allowed[strings.ToLower(mediaType)] = struct{}{}
	}
	return &Validator{maxBytes: opts.MaxBytes, allowed: allowed}, nil
}

// MaxBytes returns the configured size ceiling.
func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

// AllowedTypes returns the sorted allow-list.
func (v *Validator) AllowedTypes() []string {
	out := make([]string, 0, len(v.allowed))
	for mediaType := range v.allowed {
		out = append(out, mediaType)
	}
	sort.Strings(out)
	return out
}

// Validate checks data and declaredName. The declared name is display-only:
// it is never used to infer type and never becomes a filesystem path.
func (v *Validator) Validate(data []byte, declaredName string) Result {
	var res Result

	size := int64(len(data))
	if size == 0 {
		res.Reasons = append(res.Reasons, "file is empty")
	}
	if size > v.maxBytes {
		res.Reasons = append(res.Reasons, fmt.Sprintf("file size %s exceeds limit of %s",
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(v.maxBytes))))
	}

	if reason := checkName(declaredName); reason != "" {
		res.Reasons = append(res.Reasons, reason)
	}

	if size > 0 {
		res.MediaType = SniffMediaType(data)
		if _, ok := v.allowed[res.MediaType]; !ok {
			res.Reasons = append(res.Reasons, fmt.Sprintf("content type %s is not allowed", res.MediaType))
		}
	}

	if res.OK() {
		res.Width, res.Height = Dimensions(data)
	}
	return res
}

// SniffMediaType classifies data by its leading magic bytes only.
func SniffMediaType(data []byte) string {
	if isWebP(data) {
		return models.MediaTypeWebP
	}
	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "application/octet-stream"
	}
	return strings.ToLower(mediaType)
}

// Dimensions decodes the image header and returns width and height, or 0, 0
// when the format is not decodable.
func Dimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func checkName(name string) string {
	switch {
	case strings.TrimSpace(name) == "":
		return "file name is required"
	case len(name) > maxNameLength:
		return fmt.Sprintf("file name longer than %d characters", maxNameLength)
	case strings.Contains(name, ".."), strings.ContainsAny(name, `/\`):
		return "file name contains path components"
	case !safeNamePattern.MatchString(name):
		return "file name contains disallowed characters"
	}
	return ""
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP"))
}
