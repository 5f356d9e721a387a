// Package pipeline sequences selection, cropping, preprocessing, inference and
// result rendering for one loaded image at a time.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/region-tensor/pkg/cropper"
	"github.com/menta2k/region-tensor/pkg/geometry"
	"github.com/menta2k/region-tensor/pkg/imageio"
	"github.com/menta2k/region-tensor/pkg/model"
	"github.com/menta2k/region-tensor/pkg/preprocess"
	"github.com/menta2k/region-tensor/pkg/render"
	"github.com/menta2k/region-tensor/pkg/selector"
	"github.com/menta2k/region-tensor/pkg/types"
)

// Config holds configuration for a Session
type Config struct {
	Preprocess          preprocess.Config
	Crop                cropper.CropConfig
	DegenerateThreshold float64
	OverlayStroke       int
}

// DefaultConfig returns the default session configuration
func DefaultConfig() Config {
	return Config{
		Preprocess:          preprocess.DefaultConfig(),
		Crop:                cropper.CropConfig{MinSize: 1},
		DegenerateThreshold: selector.DefaultThreshold,
		OverlayStroke:       2,
	}
}

// Session is the orchestrator for one interactive user. It exclusively owns
// the current image, selection and every derived buffer; each replaces its
// predecessor wholesale. Methods are safe to call from multiple goroutines,
// and at most one inference runs at a time.
type Session struct {
	mu sync.Mutex

	config   Config
	logger   *logrus.Logger
	model    model.Model
	surfaces Surfaces
	cropper  *cropper.Cropper
	pre      *preprocess.Preprocessor
	renderer *render.Renderer

	decode func(data []byte, mimeType string) (image.Image, string, error)

	loadSeq   uint64 // loads started
	loadedSeq uint64 // load currently shown
	gen       uint64

	src    image.Image
	format string

	containerW, containerH int
	dispW, dispH           int
	transform              geometry.DisplayTransform
	ready                  bool
	displayBase            *image.NRGBA

	sel        selector.Selector
	selected   bool
	sourceRect types.SourceRect
	crop       *image.NRGBA
	prepared   *preprocess.Result
	result     *image.NRGBA

	inferring bool
	status    string
}

// New creates a Session with default configuration and no output surfaces
func New(m model.Model) *Session {
	s, _ := NewWithConfig(DefaultConfig(), m, Surfaces{}, nil)
	return s
}

// NewWithConfig creates a Session. A nil logger discards log output.
func NewWithConfig(config Config, m model.Model, surfaces Surfaces, logger *logrus.Logger) (*Session, error) {
	if m == nil {
		return nil, fmt.Errorf("model must not be nil")
	}

	pre, err := preprocess.NewWithConfig(config.Preprocess)
	if err != nil {
		return nil, fmt.Errorf("invalid preprocess config: %w", err)
	}

	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if config.OverlayStroke < 1 {
		config.OverlayStroke = 1
	}

	return &Session{
		config:   config,
		logger:   logger,
		model:    m,
		surfaces: surfaces.withDefaults(),
		cropper:  cropper.NewWithConfig(config.Crop),
		pre:      pre,
		renderer: render.NewWithSide(config.Preprocess.Side),
		decode:   imageio.Decode,
		sel:      selector.NewWithThreshold(config.DegenerateThreshold),
		status:   "Load an image to begin",
	}, nil
}

// Load decodes raw upload bytes and makes them the current image. Invalid
// types, undecodable data and cancelled loads are reported and leave the
// session unchanged. When loads overlap, the one started last that succeeds
// wins; an older load finishing after it returns ErrLoadSuperseded.
func (s *Session) Load(ctx context.Context, data []byte, mimeType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := imageio.CheckType(data, mimeType); err != nil {
		s.mu.Lock()
		s.reportLocked("Could not load image", err)
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.loadSeq++
	seq := s.loadSeq
	s.mu.Unlock()

	img, format, err := s.decode(data, mimeType)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.loadedSeq {
		s.logger.WithField("load", seq).Debug("Discarding superseded image load")
		return types.ErrLoadSuperseded
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.reportLocked("Could not load image", err)
		return err
	}

	s.loadedSeq = seq
	info := imageio.GetImageInfo(img)
	s.src = img
	s.format = format
	s.discardDerivedLocked()
	s.ready = false

	if s.containerW > 0 && s.containerH > 0 {
		if err := s.layoutLocked(); err != nil {
			s.reportLocked("Could not lay out display", err)
			return err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"width":  info.Width,
		"height": info.Height,
		"format": format,
		"bytes":  len(data),
	}).Info("Image loaded")
	s.status = fmt.Sprintf("Loaded %dx%d %s image. Drag to select a region.", info.Width, info.Height, format)
	return nil
}

// SurfaceReady is the host's signal that the display container has been laid
// out at containerW x containerH. The display size and transform are derived
// from it; an in-progress gesture is abandoned.
func (s *Session) SurfaceReady(containerW, containerH int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if containerW <= 0 || containerH <= 0 {
		return fmt.Errorf("%w: container %dx%d", types.ErrSurfaceNotReady, containerW, containerH)
	}

	s.containerW, s.containerH = containerW, containerH
	s.sel = s.sel.Cancel()

	if s.src == nil {
		return nil
	}
	return s.layoutLocked()
}

// PointerDown starts a selection gesture at a display-space point
func (s *Session) PointerDown(p types.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return
	}
	s.sel = s.sel.Begin(p)
	s.drawDisplayLocked()
}

// PointerMove updates an in-progress gesture and redraws the overlay
func (s *Session) PointerMove(p types.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var redraw bool
	s.sel, redraw = s.sel.Move(p)
	if redraw {
		s.drawDisplayLocked()
	}
}

// PointerUp ends the gesture. It reports whether a new region was cropped and
// preprocessed. Degenerate selections and empty crops are dropped silently
// and keep the previous crop and result.
func (s *Session) PointerUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, rect, ok := s.sel.End()
	wasDragging := s.sel.State() == selector.Dragging
	s.sel = next

	if !ok {
		if wasDragging {
			s.logger.Debug("Ignoring degenerate selection")
			s.drawDisplayLocked()
		}
		return false
	}
	return s.commitLocked(rect) == nil
}

// CancelGesture abandons an in-progress gesture without committing
func (s *Session) CancelGesture() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sel.State() != selector.Dragging {
		return
	}
	s.sel = s.sel.Cancel()
	s.drawDisplayLocked()
}

// Select commits a normalized display-space rect without a pointer gesture.
// It returns ErrDegenerateSelection or ErrEmptyCrop when the rect is dropped.
func (s *Session) Select(r types.Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src == nil {
		return types.ErrNoImage
	}
	if !s.ready {
		return types.ErrSurfaceNotReady
	}
	if selector.IsDegenerate(r, s.sel.Threshold()) {
		s.logger.WithField("rect", r).Debug("Ignoring degenerate selection")
		return fmt.Errorf("%w: %.0fx%.0f", types.ErrDegenerateSelection, r.W, r.H)
	}

	s.sel = s.sel.Cancel()
	return s.commitLocked(r)
}

// CanInfer reports whether the inference trigger is enabled
func (s *Session) CanInfer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prepared != nil && !s.inferring
}

// Infer sends the current tensor to the model and renders the output. The
// session stays usable while the model runs; a second Infer during that time
// fails with ErrInferenceInFlight. If the image or selection changes before
// the model returns, the output is dropped with ErrResultDiscarded.
func (s *Session) Infer(ctx context.Context) error {
	s.mu.Lock()
	if s.inferring {
		s.mu.Unlock()
		return types.ErrInferenceInFlight
	}
	if s.prepared == nil {
		err := types.ErrNoTensor
		s.reportLocked("Select a region first", err)
		s.mu.Unlock()
		return err
	}
	s.inferring = true
	gen := s.gen
	input := s.prepared.Tensor.Clone()
	s.status = "Running inference..."
	s.mu.Unlock()

	start := time.Now()
	out, err := s.model.Infer(ctx, input)
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inferring = false

	if err != nil {
		s.logger.WithError(err).WithField("duration", elapsed).Error("Inference failed")
		s.status = fmt.Sprintf("Inference failed: %v", err)
		return fmt.Errorf("%w: %w", types.ErrModelFailure, err)
	}

	if gen != s.gen {
		s.logger.WithField("duration", elapsed).Info("Discarding inference result for a stale selection")
		return types.ErrResultDiscarded
	}

	img, err := s.renderer.Render(out)
	if err != nil {
		s.reportLocked("Unexpected model output", err)
		return err
	}

	s.result = img
	s.surfaces.Result.Draw(img)
	s.logger.WithFields(logrus.Fields{
		"duration": elapsed,
		"samples":  len(out),
	}).Info("Inference complete")
	s.status = fmt.Sprintf("Inference complete in %s", elapsed.Round(time.Millisecond))
	return nil
}

// Reset discards the selection, crop, tensor and result and shows the full
// original image without an overlay.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.discardDerivedLocked()
	if s.src != nil && s.ready {
		s.drawDisplayLocked()
	}
	s.logger.Debug("Session reset")
	s.status = "Selection cleared"
}

// Status returns the human-readable status line
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Image returns the current source image, or nil
func (s *Session) Image() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

// DisplaySize returns the size of the selection surface
func (s *Session) DisplaySize() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispW, s.dispH
}

// Transform returns the display transform and whether one is established
func (s *Session) Transform() (geometry.DisplayTransform, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transform, s.ready
}

// SourceRect returns the clamped source-space rect of the committed selection
func (s *Session) SourceRect() (types.SourceRect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceRect, s.selected
}

// Crop returns the full-resolution crop of the committed selection, or nil
func (s *Session) Crop() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crop
}

// Preprocessed returns the luma bitmap and tensor of the committed selection
func (s *Session) Preprocessed() (preprocess.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prepared == nil {
		return preprocess.Result{}, false
	}
	return *s.prepared, true
}

// Result returns the last rendered model output, or nil
func (s *Session) Result() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// SelectorState returns the gesture state
func (s *Session) SelectorState() selector.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.State()
}

func (s *Session) layoutLocked() error {
	b := s.src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()

	dispW, dispH := geometry.FitDisplay(srcW, srcH, s.containerW, s.containerH)
	transform, err := geometry.NewDisplayTransform(srcW, srcH, dispW, dispH)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrSurfaceNotReady, err)
	}

	s.dispW, s.dispH = dispW, dispH
	s.transform = transform
	s.ready = true
	s.displayBase = render.RenderDisplay(s.src, dispW, dispH, nil, 1)

	s.logger.WithFields(logrus.Fields{
		"display_width":  dispW,
		"display_height": dispH,
		"scale_x":        transform.ScaleX,
		"scale_y":        transform.ScaleY,
	}).Debug("Display surface laid out")

	s.drawDisplayLocked()
	return nil
}

func (s *Session) commitLocked(r types.Rect) error {
	b := s.src.Bounds()
	rect := geometry.MapToSource(r, s.transform, b.Dx(), b.Dy())

	crop, err := s.cropper.Crop(s.src, rect)
	if err != nil {
		s.logger.WithError(err).WithField("source_rect", rect).Debug("Dropping empty crop")
		s.drawDisplayLocked()
		return err
	}

	prepared, err := s.pre.Process(crop.Image)
	if err != nil {
		s.logger.WithError(err).Debug("Dropping crop that could not be preprocessed")
		s.drawDisplayLocked()
		return err
	}

	s.gen++
	s.selected = true
	s.sourceRect = rect
	s.crop = crop.Image
	s.prepared = &prepared

	s.surfaces.Preprocessed.Draw(prepared.Gray)
	s.drawDisplayLocked()

	s.logger.WithFields(logrus.Fields{
		"display_rect": r,
		"source_rect":  rect,
		"crop_width":   crop.Region.Dx(),
		"crop_height":  crop.Region.Dy(),
	}).Info("Region selected")
	s.status = fmt.Sprintf("Selected %dx%d region at (%d,%d). Ready to run the model.",
		crop.Region.Dx(), crop.Region.Dy(), crop.Region.Min.X-b.Min.X, crop.Region.Min.Y-b.Min.Y)
	return nil
}

// drawDisplayLocked paints the scaled source with the in-progress gesture or,
// failing that, the committed selection mapped back into display space.
func (s *Session) drawDisplayLocked() {
	if !s.ready || s.displayBase == nil {
		return
	}

	var overlay *types.Rect
	if cur, ok := s.sel.Current(); ok {
		overlay = &cur
	} else if s.selected {
		tl := geometry.ToDisplay(types.Point{X: s.sourceRect.X, Y: s.sourceRect.Y}, s.transform)
		br := geometry.ToDisplay(types.Point{X: s.sourceRect.X + s.sourceRect.W, Y: s.sourceRect.Y + s.sourceRect.H}, s.transform)
		overlay = &types.Rect{X: tl.X, Y: tl.Y, W: br.X - tl.X, H: br.Y - tl.Y}
	}

	s.surfaces.Display.Draw(render.RenderDisplay(s.displayBase, s.dispW, s.dispH, overlay, s.config.OverlayStroke))
}

func (s *Session) discardDerivedLocked() {
	s.gen++
	s.sel = s.sel.Cancel()
	s.selected = false
	s.sourceRect = types.SourceRect{}
	s.crop = nil
	s.prepared = nil
	s.result = nil
	s.surfaces.Preprocessed.Clear()
	s.surfaces.Result.Clear()
}

func (s *Session) reportLocked(msg string, err error) {
	s.logger.WithError(err).Warn(msg)
	s.status = fmt.Sprintf("%s: %v", msg, err)
}
