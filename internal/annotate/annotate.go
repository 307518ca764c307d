// Package annotate draws detection boxes, text polygons and labels onto images and saves the result.
package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

var (
	Cyan       = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	LightGreen = color.RGBA{R: 144, G: 238, B: 144, A: 255}
	Magenta    = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Black      = color.RGBA{A: 255}
)

// DefaultWidth is the stroke width of boxes and polygons in pixels.
const DefaultWidth = 3

// Decode reads any image format registered by this package (JPEG, PNG, GIF, BMP, WEBP).
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Canvas is a mutable RGBA copy of a source image.
type Canvas struct {
	img *image.RGBA
}

func NewCanvas(src image.Image) *Canvas {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return &Canvas{img: dst}
}

// DecodeCanvas is Decode followed by NewCanvas.
func DecodeCanvas(data []byte) (*Canvas, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return NewCanvas(img), nil
}

func (c *Canvas) Image() *image.RGBA { return c.img }

func (c *Canvas) Bounds() image.Rectangle { return c.img.Bounds() }

// Rect outlines r with a stroke of width pixels drawn inside r. Parts outside the canvas are clipped.
func (c *Canvas) Rect(r image.Rectangle, col color.Color, width int) {
	if width <= 0 {
		width = DefaultWidth
	}
	r = r.Canon()
	u := image.NewUniform(col)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(c.img, e.Intersect(c.img.Bounds()), u, image.Point{}, draw.Over)
	}
}

// Polygon strokes the closed path through pts.
func (c *Canvas) Polygon(pts []image.Point, col color.Color, width int) {
	if len(pts) < 2 {
		return
	}
	for i := range pts {
		c.Line(pts[i], pts[(i+1)%len(pts)], col, width)
	}
}

// Line draws a segment with a square brush of width pixels (Bresenham).
func (c *Canvas) Line(a, b image.Point, col color.Color, width int) {
	if width <= 0 {
		width = DefaultWidth
	}
	u := image.NewUniform(col)
	half := width / 2
	dx, dy := abs(b.X-a.X), -abs(b.Y-a.Y)
	sx, sy := sign(b.X-a.X), sign(b.Y-a.Y)
	e := dx + dy
	x, y := a.X, a.Y
	for {
		brush := image.Rect(x-half, y-half, x-half+width, y-half+width)
		draw.Draw(c.img, brush.Intersect(c.img.Bounds()), u, image.Point{}, draw.Over)
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

// Label writes text with its top-left corner at pt on a filled background.
func (c *Canvas) Label(pt image.Point, text string, fg, bg color.Color) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: c.img, Src: image.NewUniform(fg), Face: face}
	w := d.MeasureString(text).Ceil()
	m := face.Metrics()
	h := (m.Ascent + m.Descent).Ceil()
	box := image.Rect(pt.X, pt.Y, pt.X+w+4, pt.Y+h+2)
	// keep the label on the canvas when the box touches the top edge
	if box.Min.Y < 0 {
		box = box.Add(image.Pt(0, -box.Min.Y))
	}
	if bg != nil {
		draw.Draw(c.img, box.Intersect(c.img.Bounds()), image.NewUniform(bg), image.Point{}, draw.Over)
	}
	d.Dot = fixed.Point26_6{X: fixed.I(box.Min.X + 2), Y: fixed.I(box.Min.Y+1) + m.Ascent}
	d.DrawString(text)
}

// Box outlines r and, when label is not empty, writes it just above the box.
func (c *Canvas) Box(r image.Rectangle, label string, col color.Color) {
	c.Rect(r, col, DefaultWidth)
	if label != "" {
		c.Label(image.Pt(r.Min.X, r.Min.Y-15), label, Black, col)
	}
}

// SaveJPEG writes img to path, creating parent directories.
func SaveJPEG(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return err
	}
	return write(path, buf.Bytes())
}

func write(path string, b []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0o644)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
