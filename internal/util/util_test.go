package util

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		fmt  string
		mime string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "JPEG", "image/jpeg"},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}, "PNG", "image/png"},
		{"gif", []byte("GIF89a...."), "GIF", "image/gif"},
		{"bmp", []byte("BM\x00\x00"), "BMP", "image/bmp"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "WEBP", "image/webp"},
		{"text", []byte("hello"), "", "application/octet-stream"},
		{"empty", nil, "", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SniffImageFormat(tt.in); got != tt.fmt {
				t.Errorf("SniffImageFormat() = %q, want %q", got, tt.fmt)
			}
			if got := SniffMimeHTTP(tt.in); got != tt.mime {
				t.Errorf("SniffMimeHTTP() = %q, want %q", got, tt.mime)
			}
		})
	}
}

func TestPickMIME(t *testing.T) {
	jpg := []byte{0xFF, 0xD8, 0xFF}
	if got := PickMIME("image/png", "image/gif", jpg); got != "image/png" {
		t.Errorf("explicit: %q", got)
	}
	if got := PickMIME("", "image/gif", jpg); got != "image/gif" {
		t.Errorf("hint: %q", got)
	}
	if got := PickMIME("", "application/octet-stream", jpg); got != "image/jpeg" {
		t.Errorf("sniffed: %q", got)
	}
	if got := PickMIME("", "", nil); got != "image/jpeg" {
		t.Errorf("fallback: %q", got)
	}
}

func TestIsImageName(t *testing.T) {
	for name, want := range map[string]bool{
		"images/street.jpg":                    true,
		"https://example.com/a.PNG?sig=abc":    true,
		"https://example.com/page.html":        false,
		"https://example.com/img.webp#section": true,
		"notes.txt":                            false,
	} {
		if got := IsImageName(name); got != want {
			t.Errorf("IsImageName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestDownload(t *testing.T) {
	body := pngBytes(t, 4, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	got, ct, err := Download(context.Background(), srv.Client(), srv.URL+"/a.png")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !bytes.Equal(got, body) || ct != "image/png" {
		t.Errorf("Download() = %d bytes, %q", len(got), ct)
	}
	if _, _, err := Download(context.Background(), srv.Client(), srv.URL+"/missing.jpg"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestDownloadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, MaxDownloadBytes+1))
	}))
	defer srv.Close()

	_, _, err := Download(context.Background(), srv.Client(), srv.URL)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

func TestReadImageFile(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "a.png")
	txt := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(img, pngBytes(t, 2, 2), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(txt, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadImageFile(img); err != nil {
		t.Errorf("ReadImageFile(png) error = %v", err)
	}
	if _, err := ReadImageFile(txt); err == nil {
		t.Error("ReadImageFile(txt) should fail")
	}
}

func TestDownscaleBytes(t *testing.T) {
	big := pngBytes(t, 400, 200)
	out, err := DownscaleBytes(big, 100)
	if err != nil {
		t.Fatalf("DownscaleBytes() error = %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" || cfg.Width != 100 || cfg.Height != 50 {
		t.Errorf("got %s %dx%d, want png 100x50", format, cfg.Width, cfg.Height)
	}

	small := pngBytes(t, 50, 50)
	same, err := DownscaleBytes(small, 100)
	if err != nil || !bytes.Equal(same, small) {
		t.Errorf("small image should pass through unchanged")
	}
}

func TestStripCodeFences(t *testing.T) {
	if got := StripCodeFences("```text\nsky, tree\n```"); got != "sky, tree" {
		t.Errorf("StripCodeFences() = %q", got)
	}
	if got := Truncate("abcdef", 3); got != "abc…" {
		t.Errorf("Truncate() = %q", got)
	}
}
