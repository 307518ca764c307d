package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vision-lab/internal/imageanalysis"
	"vision-lab/internal/invoker"
)

const readResponse = `{"readResult": {"blocks": [{"lines": [
  {"text": "Four score", "boundingPolygon": [{"x": 1, "y": 1}, {"x": 30, "y": 1}, {"x": 30, "y": 8}, {"x": 1, "y": 8}],
   "words": [{"text": "Four", "confidence": 0.99, "boundingPolygon": [{"x": 1, "y": 1}, {"x": 12, "y": 1}, {"x": 12, "y": 8}, {"x": 1, "y": 8}]}]},
  {"text": "and seven", "boundingPolygon": [{"x": 1, "y": 12}, {"x": 30, "y": 12}, {"x": 30, "y": 20}, {"x": 1, "y": 20}]}
]}]}}`

func TestReadTextPrintsEachLineOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, readResponse)
	}))
	defer srv.Close()

	dir := t.TempDir()
	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 40, 24))); err != nil {
		t.Fatal(err)
	}
	in := filepath.Join(dir, "note.png")
	if err := os.WriteFile(in, img.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "text.jpg")

	var buf bytes.Buffer
	an := imageanalysis.NewAnalyzer(invoker.NewWithHTTPClient(srv.Client()), srv.URL, "vk")
	readText(context.Background(), &buf, an, in, out)

	got := buf.String()
	for _, line := range []string{"Four score", "and seven"} {
		if n := strings.Count(got, line); n != 1 {
			t.Errorf("%q printed %d times:\n%s", line, n, got)
		}
	}
	if !strings.HasSuffix(got, "Results saved in "+out+"\n") {
		t.Errorf("output:\n%s", got)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("text.jpg not written: %v", err)
	}
}
