// Package geometry converts between display space (the scaled surface the user
// draws on) and source space (pixels of the original decoded image).
package geometry

import (
	"fmt"
	"math"

	"github.com/menta2k/region-tensor/pkg/types"
)

// DisplayTransform holds the source/display ratios for each axis.
// ScaleX = sourceWidth / displayWidth, ScaleY likewise. Both are > 0.
type DisplayTransform struct {
	ScaleX float64 `json:"scale_x"`
	ScaleY float64 `json:"scale_y"`
}

// NewDisplayTransform computes the transform for a source shown at the given display size
func NewDisplayTransform(srcW, srcH, dispW, dispH int) (DisplayTransform, error) {
	if srcW <= 0 || srcH <= 0 {
		return DisplayTransform{}, fmt.Errorf("invalid source dimensions: %dx%d", srcW, srcH)
	}
	if dispW <= 0 || dispH <= 0 {
		return DisplayTransform{}, fmt.Errorf("invalid display dimensions: %dx%d", dispW, dispH)
	}
	return DisplayTransform{
		ScaleX: float64(srcW) / float64(dispW),
		ScaleY: float64(srcH) / float64(dispH),
	}, nil
}

// ToSource maps a display-space point into source space.
// Scale factors must be non-zero; this is not checked.
func ToSource(pt types.Point, t DisplayTransform) types.Point {
	return types.Point{X: pt.X * t.ScaleX, Y: pt.Y * t.ScaleY}
}

// ToDisplay maps a source-space point into display space
func ToDisplay(pt types.Point, t DisplayTransform) types.Point {
	return types.Point{X: pt.X / t.ScaleX, Y: pt.Y / t.ScaleY}
}

// MapToSource maps a normalized display rect into source space and clamps it
// so that x' >= 0, y' >= 0, x'+w' <= srcW and y'+h' <= srcH.
func MapToSource(r types.Rect, t DisplayTransform, srcW, srcH int) types.SourceRect {
	fw, fh := float64(srcW), float64(srcH)

	x := clamp(r.X*t.ScaleX, 0, fw-1)
	y := clamp(r.Y*t.ScaleY, 0, fh-1)
	w := math.Min(r.W*t.ScaleX, fw-x)
	h := math.Min(r.H*t.ScaleY, fh-y)

	return types.SourceRect{
		X: x,
		Y: y,
		W: math.Max(w, 0),
		H: math.Max(h, 0),
	}
}

// FitDisplay returns the largest size with the source aspect ratio that fits
// inside maxW x maxH. The source is never enlarged and each side is at least 1.
func FitDisplay(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0
	}

	scale := math.Min(float64(maxW)/float64(srcW), float64(maxH)/float64(srcH))
	if scale > 1 {
		scale = 1
	}

	w := int(math.Round(float64(srcW) * scale))
	h := int(math.Round(float64(srcH) * scale))
	return max(min(w, maxW), 1), max(min(h, maxH), 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
