package util

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Downscale shrinks img so its longer side is at most maxDim, keeping aspect ratio.
// Images already within bounds, and maxDim <= 0, return img unchanged.
func Downscale(img image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return img
	}
	return resize.Thumbnail(uint(maxDim), uint(maxDim), img, resize.Lanczos3)
}

// DownscaleBytes decodes data, downscales it and re-encodes in the original container
// (PNG stays PNG, everything else becomes JPEG). Data that is small enough is returned as is.
func DownscaleBytes(data []byte, maxDim int) ([]byte, error) {
	if maxDim <= 0 {
		return data, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= maxDim && cfg.Height <= maxDim {
		return data, nil
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	small := Downscale(img, maxDim)
	var buf bytes.Buffer
	if format == "png" {
		err = png.Encode(&buf, small)
	} else {
		err = jpeg.Encode(&buf, small, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
