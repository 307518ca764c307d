package annotate

import (
	"image"
	"math"
)

// XYWH converts a pixel box given as origin and size.
func XYWH(x, y, w, h int) image.Rectangle {
	return image.Rect(x, y, x+w, y+h)
}

// Normalized maps a box with coordinates in [0,1] of the image onto pixels of bounds.
func Normalized(bounds image.Rectangle, left, top, width, height float64) image.Rectangle {
	fw, fh := float64(bounds.Dx()), float64(bounds.Dy())
	x0 := bounds.Min.X + int(math.Round(left*fw))
	y0 := bounds.Min.Y + int(math.Round(top*fh))
	x1 := bounds.Min.X + int(math.Round((left+width)*fw))
	y1 := bounds.Min.Y + int(math.Round((top+height)*fh))
	return image.Rect(x0, y0, x1, y1)
}
