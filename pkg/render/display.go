package render

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/region-tensor/pkg/types"
)

// SelectionColor is the outline colour of the selection overlay
var SelectionColor = color.NRGBA{0, 170, 255, 255}

// RenderDisplay scales src to w x h for the selection surface and, when sel is
// non-nil, outlines the display-space selection on top. The source image is
// never modified.
func RenderDisplay(src image.Image, w, h int, sel *types.Rect, stroke int) *image.NRGBA {
	var dst *image.NRGBA
	b := src.Bounds()
	if b.Dx() == w && b.Dy() == h {
		dst = imaging.Clone(src)
	} else {
		dst = imaging.Resize(src, w, h, imaging.Linear)
	}

	if sel != nil {
		drawRect(dst, *sel, SelectionColor, max(stroke, 1))
	}
	return dst
}

// drawRect outlines r, stroking inward from its edges
func drawRect(img *image.NRGBA, r types.Rect, c color.NRGBA, stroke int) {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	x1 := int(math.Round(r.X + r.W))
	y1 := int(math.Round(r.Y + r.H))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}

	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c)
		drawHLine(img, y1-1-s, x0, x1, c)
		drawVLine(img, x0+s, y0, y1, c)
		drawVLine(img, x1-1-s, y0, y1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if y < 0 || y >= h {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0, x1 = max(x0, 0), min(x1, w)
	if x0 >= x1 {
		return
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if x < 0 || x >= w {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	y0, y1 = max(y0, 0), min(y1, h)
	if y0 >= y1 {
		return
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
