package imageanalysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"vision-lab/internal/invoker"
)

const segmentAPIVersion = "2023-02-01-preview"

type Mode string

const (
	// ModeBackgroundRemoval returns the foreground on a transparent background.
	ModeBackgroundRemoval Mode = "backgroundRemoval"
	// ModeForegroundMatting returns a greyscale alpha matte.
	ModeForegroundMatting Mode = "foregroundMatting"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeBackgroundRemoval, ModeForegroundMatting:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown segmentation mode %q (want %s or %s)", s, ModeBackgroundRemoval, ModeForegroundMatting)
}

// OutputName is the file a segmentation result in this mode is saved or sent as.
func (m Mode) OutputName() string {
	if m == ModeForegroundMatting {
		return "matte.png"
	}
	return "background.png"
}

type Segmenter struct {
	inv      *invoker.Client
	endpoint string
	key      string
}

func NewSegmenter(inv *invoker.Client, endpoint, key string) *Segmenter {
	return &Segmenter{inv: inv, endpoint: endpoint, key: key}
}

// SegmentURL returns the PNG the service renders for imageURL.
func (s *Segmenter) SegmentURL(ctx context.Context, imageURL string, mode Mode) ([]byte, error) {
	return s.segment(ctx, "segment url", invoker.ImageURL(imageURL), mode)
}

// SegmentImage returns the PNG the service renders for img.
func (s *Segmenter) SegmentImage(ctx context.Context, img []byte, mode Mode) ([]byte, error) {
	return s.segment(ctx, "segment image", invoker.RawBytes(img), mode)
}

func (s *Segmenter) segment(ctx context.Context, op string, payload invoker.Payload, mode Mode) ([]byte, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, &invoker.Fault{Kind: invoker.KindConfiguration, Op: op, Err: err}
	}
	resp, err := s.inv.Invoke(ctx, invoker.Request{
		Op:         op,
		Endpoint:   invoker.JoinEndpoint(s.endpoint, "computervision/imageanalysis:segment"),
		AuthHeader: subscriptionKeyHeader,
		AuthValue:  s.key,
		Payload:    payload,
		Query: map[string][]string{
			"api-version": {segmentAPIVersion},
			"mode":        {string(mode)},
		},
		Accept: "image/png",
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, invoker.DecodeFault(op, fmt.Errorf("empty image body"))
	}
	return resp.Body, nil
}

// SaveBinary writes body to path exactly as received.
func SaveBinary(path string, body []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, body, 0o644)
}
