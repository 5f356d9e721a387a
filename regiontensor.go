// Package regiontensor turns a user-selected region of an image into the
// canonical 256x256 single-channel tensor a model consumes, and renders the
// model's output tensor back into a grayscale image.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		regiontensor "github.com/menta2k/region-tensor"
//		"github.com/menta2k/region-tensor/pkg/imageio"
//		"github.com/menta2k/region-tensor/pkg/model"
//		"github.com/menta2k/region-tensor/pkg/types"
//	)
//
//	func main() {
//		data, mime, err := imageio.LoadFile("photo.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//		img, _, err := imageio.Decode(data, mime)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		rt := regiontensor.New()
//
//		// Selection drawn on an 800x600 thumbnail of the photo
//		region, err := rt.ProcessRegion(img, 800, 600, types.Rect{X: 100, Y: 80, W: 300, H: 200})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		out, err := rt.Run(context.Background(), model.Invert, region.Tensor)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		if err := imageio.Save(out, "result.png", "png", 90, false); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package is a thin layer over its components:
//
// 1. Geometry (pkg/geometry): display/source coordinate mapping
// 2. Selector (pkg/selector): the drag gesture state machine
// 3. Cropper (pkg/cropper): full-resolution region extraction
// 4. Preprocess (pkg/preprocess): resampling, luma and normalization
// 5. Render (pkg/render): tensor to image, display overlay
// 6. Pipeline (pkg/pipeline): the interactive Session tying them together
//
// Model backends live in pkg/model (built-ins), pkg/onnx (ONNX Runtime) and
// pkg/remote (HTTP JSON inference server).
package regiontensor

import (
	"context"
	"fmt"
	"image"

	"github.com/menta2k/region-tensor/pkg/cropper"
	"github.com/menta2k/region-tensor/pkg/geometry"
	"github.com/menta2k/region-tensor/pkg/model"
	"github.com/menta2k/region-tensor/pkg/preprocess"
	"github.com/menta2k/region-tensor/pkg/render"
	"github.com/menta2k/region-tensor/pkg/types"
)

// Version of the region-tensor library
const Version = "1.0.0"

// RegionTensor provides a one-shot interface over the pipeline stages
type RegionTensor struct {
	cropper  *cropper.Cropper
	pre      *preprocess.Preprocessor
	renderer *render.Renderer
}

// Region is the outcome of processing one selection
type Region struct {
	SourceRect types.SourceRect `json:"source_rect"`
	Crop       *image.NRGBA     `json:"-"`
	Gray       *image.NRGBA     `json:"-"`
	Tensor     types.Tensor     `json:"-"`
}

// New creates a RegionTensor with default configuration
func New() *RegionTensor {
	return &RegionTensor{
		cropper:  cropper.New(),
		pre:      preprocess.New(),
		renderer: render.New(),
	}
}

// NewWithConfig creates a RegionTensor with custom configuration
func NewWithConfig(cropConfig cropper.CropConfig, preConfig preprocess.Config) (*RegionTensor, error) {
	pre, err := preprocess.NewWithConfig(preConfig)
	if err != nil {
		return nil, err
	}

	return &RegionTensor{
		cropper:  cropper.NewWithConfig(cropConfig),
		pre:      pre,
		renderer: render.NewWithSide(preConfig.Side),
	}, nil
}

// ProcessRegion maps a display-space selection made on a dispW x dispH
// rendering of img back to source space, crops it at full resolution and
// preprocesses it.
func (rt *RegionTensor) ProcessRegion(img image.Image, dispW, dispH int, sel types.Rect) (Region, error) {
	b := img.Bounds()
	t, err := geometry.NewDisplayTransform(b.Dx(), b.Dy(), dispW, dispH)
	if err != nil {
		return Region{}, err
	}

	rect := geometry.MapToSource(sel, t, b.Dx(), b.Dy())
	return rt.ProcessSourceRect(img, rect)
}

// ProcessSourceRect crops and preprocesses a source-space rect
func (rt *RegionTensor) ProcessSourceRect(img image.Image, rect types.SourceRect) (Region, error) {
	crop, err := rt.cropper.Crop(img, rect)
	if err != nil {
		return Region{}, fmt.Errorf("crop failed: %w", err)
	}

	res, err := rt.pre.Process(crop.Image)
	if err != nil {
		return Region{}, fmt.Errorf("preprocess failed: %w", err)
	}

	return Region{
		SourceRect: rect,
		Crop:       crop.Image,
		Gray:       res.Gray,
		Tensor:     res.Tensor,
	}, nil
}

// Render converts a model output tensor into an opaque grayscale image
func (rt *RegionTensor) Render(t types.Tensor) (*image.NRGBA, error) {
	return rt.renderer.Render(t)
}

// Run sends a tensor through m and renders the output. The input is not
// modified.
func (rt *RegionTensor) Run(ctx context.Context, m model.Model, t types.Tensor) (*image.NRGBA, error) {
	out, err := m.Infer(ctx, t.Clone())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrModelFailure, err)
	}
	return rt.renderer.Render(out)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
