package util

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
)

// MaxDownloadBytes caps Download; the vision services reject images above 20 MB anyway.
const MaxDownloadBytes = 20 << 20

var ErrTooLarge = errors.New("image exceeds size limit")

// Download fetches url with c (http.DefaultClient when nil) and returns the body and its Content-Type.
func Download(ctx context.Context, c *http.Client, url string) ([]byte, string, error) {
	if c == nil {
		c = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	res, err := c.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if res.StatusCode/100 != 2 {
		return nil, "", fmt.Errorf("download %s: %s", url, res.Status)
	}
	b, err := io.ReadAll(io.LimitReader(res.Body, MaxDownloadBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(b) > MaxDownloadBytes {
		return nil, "", fmt.Errorf("download %s: %w", url, ErrTooLarge)
	}
	return b, res.Header.Get("Content-Type"), nil
}

// ReadImageFile reads a local image, refusing files that are not a known image format.
func ReadImageFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !IsImage(b) {
		return nil, fmt.Errorf("%s: not a JPEG, PNG, GIF, BMP or WEBP image", path)
	}
	return b, nil
}
