package cropper

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/region-tensor/pkg/types"
)

// Cropper extracts full-resolution regions from a decoded source image
type Cropper struct {
	config CropConfig
}

// CropConfig holds configuration for region extraction
type CropConfig struct {
	// MinSize is the smallest accepted output width and height in pixels
	MinSize int
}

// New creates a new Cropper with default configuration
func New() *Cropper {
	return &Cropper{
		config: CropConfig{
			MinSize: 1,
		},
	}
}

// NewWithConfig creates a new Cropper with custom configuration
func NewWithConfig(config CropConfig) *Cropper {
	if config.MinSize < 1 {
		config.MinSize = 1
	}
	return &Cropper{config: config}
}

// CropResult contains the result of a cropping operation
type CropResult struct {
	Image  *image.NRGBA
	Region image.Rectangle
}

// Crop copies the pixels of rect out of the original source image. rect is in
// source space relative to the image origin and is expected to be clamped
// already; it is resolved to whole pixels and clipped once more here.
func (c *Cropper) Crop(img image.Image, rect types.SourceRect) (CropResult, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return CropResult{}, fmt.Errorf("invalid image dimensions")
	}

	region, err := c.Resolve(rect, bounds)
	if err != nil {
		return CropResult{}, err
	}

	return CropResult{
		Image:  imaging.Crop(img, region),
		Region: region,
	}, nil
}

// Resolve converts a fractional source rect into the integer pixel rectangle
// that will be copied, in the coordinate system of bounds. The origin is
// floored and the far edge raised to the next whole pixel, so every source
// pixel the rect touches is kept; the result is clipped to bounds.
func (c *Cropper) Resolve(rect types.SourceRect, bounds image.Rectangle) (image.Rectangle, error) {
	if rect.Empty() {
		return image.Rectangle{}, fmt.Errorf("%w: %.2fx%.2f", types.ErrEmptyCrop, rect.W, rect.H)
	}

	x0 := int(math.Floor(rect.X))
	y0 := int(math.Floor(rect.Y))
	x1 := int(math.Ceil(rect.X + rect.W))
	y1 := int(math.Ceil(rect.Y + rect.H))

	region := image.Rect(x0, y0, x1, y1).
		Add(bounds.Min).
		Intersect(bounds)

	if region.Dx() < c.config.MinSize || region.Dy() < c.config.MinSize {
		return image.Rectangle{}, fmt.Errorf("%w: resolved to %dx%d", types.ErrEmptyCrop, region.Dx(), region.Dy())
	}

	return region, nil
}
