package render

import (
	"fmt"
	"image"
	"math"

	"github.com/menta2k/region-tensor/pkg/types"
)

// Renderer turns fixed-size model output tensors into grayscale bitmaps
type Renderer struct {
	side int
}

// New creates a Renderer for the canonical side length
func New() *Renderer {
	return &Renderer{side: types.Side}
}

// NewWithSide creates a Renderer for a custom side length
func NewWithSide(side int) *Renderer {
	if side <= 0 {
		side = types.Side
	}
	return &Renderer{side: side}
}

// Render maps tensor index row*side+col to pixel (col,row). RGB carry the
// de-normalized sample and alpha is opaque. Any length other than side*side
// fails with ErrShapeMismatch.
func (r *Renderer) Render(t types.Tensor) (*image.NRGBA, error) {
	want := r.side * r.side
	if len(t) != want {
		return nil, fmt.Errorf("%w: got %d samples, want %d", types.ErrShapeMismatch, len(t), want)
	}

	img := image.NewNRGBA(image.Rect(0, 0, r.side, r.side))
	for i, v := range t {
		p := Denormalize(v)
		o := i * 4
		img.Pix[o+0] = p
		img.Pix[o+1] = p
		img.Pix[o+2] = p
		img.Pix[o+3] = 255
	}
	return img, nil
}

// Denormalize returns round(clamp(v,0,1)*255). NaN renders as black.
func Denormalize(v float32) uint8 {
	f := float64(v)
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return uint8(math.Round(f * 255))
}
