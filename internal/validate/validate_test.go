package validate

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"imgproxy/internal/models"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func testValidator(t *testing.T, maxBytes int64) *Validator {
	t.Helper()
	v, err := New(Options{MaxBytes: maxBytes})
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	return v
}

func hasReason(res Result, fragment string) bool {
	for _, reason := range res.Reasons {
		if strings.Contains(reason, fragment) {
			return true
		}
	}
	return false
}

func TestValidateSizeBoundary(t *testing.T) {
	data := pngBytes(t)

	atLimit := testValidator(t, int64(len(data))).Validate(data, "cat.png")
	if !atLimit.OK() {
		t.Fatalf("expected file at exactly the limit to pass, got %v", atLimit.Reasons)
	}

	overLimit := testValidator(t, int64(len(data)-1)).Validate(data, "cat.png")
	if overLimit.OK() {
		t.Fatal("expected file one byte over the limit to fail")
	}
	if !hasReason(overLimit, "exceeds limit") {
		t.Fatalf("expected size reason, got %v", overLimit.Reasons)
	}
}

func TestValidateSniffsContentIgnoringName(t *testing.T) {
	res := testValidator(t, 1<<20).Validate(pngBytes(t), "notes.txt")
	if !res.OK() {
		t.Fatalf("expected png named .txt to pass, got %v", res.Reasons)
	}
	if res.MediaType != models.MediaTypePNG {
		t.Fatalf("expected %s, got %s", models.MediaTypePNG, res.MediaType)
	}
	if res.Width != 4 || res.Height != 3 {
		t.Fatalf("expected 4x3, got %dx%d", res.Width, res.Height)
	}
}

func TestValidateFormats(t *testing.T) {
	var jpegBuf, gifBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, testImage(), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	if err := gif.Encode(&gifBuf, testImage(), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	webp := append([]byte("RIFF\x1a\x00\x00\x00WEBPVP8 "), make([]byte, 16)...)

	tests := []struct {
		name     string
		data     []byte
		want     string
		wantDims bool
	}{
		{name: "jpeg", data: jpegBuf.Bytes(), want: models.MediaTypeJPEG, wantDims: true},
		{name: "gif", data: gifBuf.Bytes(), want: models.MediaTypeGIF, wantDims: true},
		{name: "webp header", data: webp, want: models.MediaTypeWebP},
	}
	v := testValidator(t, 1<<20)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.data, "image file")
			if !res.OK() {
				t.Fatalf("expected pass, got %v", res.Reasons)
			}
			if res.MediaType != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, res.MediaType)
			}
			if tt.wantDims && (res.Width != 4 || res.Height != 3) {
				t.Fatalf("expected 4x3, got %dx%d", res.Width, res.Height)
			}
			if !tt.wantDims && (res.Width != 0 || res.Height != 0) {
				t.Fatalf("expected undetectable dimensions to be 0x0, got %dx%d", res.Width, res.Height)
			}
		})
	}
}

func TestValidateRejectsUnsafeNames(t *testing.T) {
	data := pngBytes(t)
	v := testValidator(t, 1<<20)
	for _, name := range []string{
		"",
		"   ",
		"../etc/passwd",
		"a..b.png",
		"dir/cat.png",
		`dir\cat.png`,
		"cat\x00.png",
		"café.png",
		strings.Repeat("a", maxNameLength+1),
	} {
		res := v.Validate(data, name)
		if res.OK() {
			t.Fatalf("expected name %q to be rejected", name)
		}
	}

	for _, name := range []string{"cat.png", "my photo_01-final.JPG"} {
		if res := v.Validate(data, name); !res.OK() {
			t.Fatalf("expected name %q to pass, got %v", name, res.Reasons)
		}
	}
}

func TestValidateAccumulatesReasons(t *testing.T) {
	data := []byte(strings.Repeat("plain text body ", 8))
	res := testValidator(t, 16).Validate(data, "../x.txt")
	if len(res.Reasons) != 3 {
		t.Fatalf("expected size, name and type reasons, got %v", res.Reasons)
	}
	if !hasReason(res, "text/plain") {
		t.Fatalf("expected type reason to name the sniffed type, got %v", res.Reasons)
	}
	if res.Error() == "" {
		t.Fatal("expected joined error text")
	}
}

func TestValidateEmptyFile(t *testing.T) {
	res := testValidator(t, 1024).Validate(nil, "empty.png")
	if !hasReason(res, "empty") {
		t.Fatalf("expected empty reason, got %v", res.Reasons)
	}
}

func TestNewValidatorOptions(t *testing.T) {
	if _, err := New(Options{MaxBytes: 0}); err == nil {
		t.Fatal("expected error for zero max bytes")
	}
	if _, err := New(Options{MaxBytes: 1, AllowedTypes: []string{"not a type;;"}}); err == nil {
		t.Fatal("expected error for malformed allowed type")
	}

	v, err := New(Options{MaxBytes: 1 << 20, AllowedTypes: []string{"IMAGE/PNG"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := v.AllowedTypes(); len(got) != 1 || got[0] != models.MediaTypePNG {
		t.Fatalf("unexpected allow-list %v", got)
	}

	var gifBuf bytes.Buffer
	if err := gif.Encode(&gifBuf, testImage(), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	if res := v.Validate(gifBuf.Bytes(), "a.gif"); res.OK() {
		t.Fatal("expected gif to be rejected by a png-only allow-list")
	}
}
