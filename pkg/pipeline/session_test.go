package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/menta2k/region-tensor/pkg/imageio"
	"github.com/menta2k/region-tensor/pkg/model"
	"github.com/menta2k/region-tensor/pkg/selector"
	"github.com/menta2k/region-tensor/pkg/types"
)

// encodePNG builds a w x h PNG whose pixels encode their own position
func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type fixture struct {
	session      *Session
	display      *MemorySurface
	preprocessed *MemorySurface
	result       *MemorySurface
}

func newFixture(t *testing.T, m model.Model, mutate func(*Config)) *fixture {
	t.Helper()
	f := &fixture{
		display:      NewMemorySurface(),
		preprocessed: NewMemorySurface(),
		result:       NewMemorySurface(),
	}
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewWithConfig(cfg, m, Surfaces{
		Display:      f.display,
		Preprocessed: f.preprocessed,
		Result:       f.result,
	}, nil)
	if err != nil {
		t.Fatalf("NewWithConfig failed: %v", err)
	}
	f.session = s
	return f
}

// loaded returns a fixture with a 1000x500 image laid out at 500x250
func loaded(t *testing.T, m model.Model) *fixture {
	t.Helper()
	f := newFixture(t, m, nil)
	if err := f.session.Load(context.Background(), encodePNG(t, 1000, 500), "image/png"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := f.session.SurfaceReady(500, 250); err != nil {
		t.Fatalf("SurfaceReady failed: %v", err)
	}
	return f
}

func drag(s *Session, x0, y0, x1, y1 float64) bool {
	s.PointerDown(types.Point{X: x0, Y: y0})
	s.PointerMove(types.Point{X: (x0 + x1) / 2, Y: (y0 + y1) / 2})
	s.PointerMove(types.Point{X: x1, Y: y1})
	return s.PointerUp()
}

func TestNewWithConfigRejectsNilModel(t *testing.T) {
	if _, err := NewWithConfig(DefaultConfig(), nil, Surfaces{}, nil); err == nil {
		t.Error("Expected error for nil model")
	}
}

func TestLoadAndLayout(t *testing.T) {
	f := loaded(t, model.Identity)
	s := f.session

	w, h := s.DisplaySize()
	if w != 500 || h != 250 {
		t.Errorf("Expected display 500x250, got %dx%d", w, h)
	}

	tr, ok := s.Transform()
	if !ok || tr.ScaleX != 2 || tr.ScaleY != 2 {
		t.Errorf("Expected transform (2,2), got %+v ready=%v", tr, ok)
	}

	disp, ok := f.display.Image().(*image.NRGBA)
	if !ok || disp.Bounds().Dx() != 500 || disp.Bounds().Dy() != 250 {
		t.Fatalf("Display surface not painted at display size")
	}
	if s.CanInfer() {
		t.Error("Inference should be disabled before a selection")
	}
}

func TestLoadBeforeSurfaceReady(t *testing.T) {
	f := newFixture(t, model.Identity, nil)
	s := f.session

	if err := s.Load(context.Background(), encodePNG(t, 100, 50), ""); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := s.Transform(); ok {
		t.Error("Transform should not be established before the surface is ready")
	}
	if err := s.Select(types.Rect{X: 0, Y: 0, W: 50, H: 20}); !errors.Is(err, types.ErrSurfaceNotReady) {
		t.Errorf("Expected ErrSurfaceNotReady, got %v", err)
	}

	if err := s.SurfaceReady(400, 400); err != nil {
		t.Fatalf("SurfaceReady failed: %v", err)
	}
	w, h := s.DisplaySize()
	if w != 100 || h != 50 {
		t.Errorf("Small images should not be enlarged, got %dx%d", w, h)
	}
}

func TestSurfaceReadyRejectsEmptyContainer(t *testing.T) {
	f := newFixture(t, model.Identity, nil)
	if err := f.session.SurfaceReady(0, 100); !errors.Is(err, types.ErrSurfaceNotReady) {
		t.Errorf("Expected ErrSurfaceNotReady, got %v", err)
	}
}

func TestLoadInvalidKeepsState(t *testing.T) {
	f := loaded(t, model.Identity)
	s := f.session
	before := s.Image()

	err := s.Load(context.Background(), []byte("hello"), "text/plain")
	if !errors.Is(err, types.ErrInvalidFileType) {
		t.Fatalf("Expected ErrInvalidFileType, got %v", err)
	}
	if s.Image() != before {
		t.Error("Invalid upload should not replace the current image")
	}

	err = s.Load(context.Background(), []byte("not really a png"), "image/png")
	if !errors.Is(err, types.ErrDecodeFailure) {
		t.Fatalf("Expected ErrDecodeFailure, got %v", err)
	}
	if s.Image() != before {
		t.Error("Undecodable upload should not replace the current image")
	}
	if s.Status() == "" {
		t.Error("Expected a status message after a failed load")
	}
}

func TestLoadCancelledContext(t *testing.T) {
	f := newFixture(t, model.Identity, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.session.Load(ctx, encodePNG(t, 10, 10), "image/png"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if f.session.Image() != nil {
		t.Error("Cancelled load should not set an image")
	}
}

// holdDecoder blocks decoding of one payload until released
type holdDecoder struct {
	held    []byte
	started chan struct{}
	release chan struct{}
}

func newHoldDecoder(held []byte) *holdDecoder {
	return &holdDecoder{held: held, started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (d *holdDecoder) decode(data []byte, mimeType string) (image.Image, string, error) {
	if bytes.Equal(data, d.held) {
		d.started <- struct{}{}
		<-d.release
	}
	return imageio.Decode(data, mimeType)
}

func TestOverlappingLoads(t *testing.T) {
	tests := []struct {
		name     string
		second   func(s *Session, next []byte) error
		wantErr  error
		wantSlow error
		wantSize int
	}{
		{
			name: "newer load wins",
			second: func(s *Session, next []byte) error {
				return s.Load(context.Background(), next, "image/png")
			},
			wantSlow: types.ErrLoadSuperseded,
			wantSize: 30,
		},
		{
			name: "invalid type does not supersede",
			second: func(s *Session, next []byte) error {
				return s.Load(context.Background(), []byte("hello"), "text/plain")
			},
			wantErr:  types.ErrInvalidFileType,
			wantSize: 20,
		},
		{
			name: "undecodable data does not supersede",
			second: func(s *Session, next []byte) error {
				return s.Load(context.Background(), []byte("garbage"), "image/png")
			},
			wantErr:  types.ErrDecodeFailure,
			wantSize: 20,
		},
		{
			name: "cancelled load does not supersede",
			second: func(s *Session, next []byte) error {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return s.Load(ctx, next, "image/png")
			},
			wantErr:  context.Canceled,
			wantSize: 20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slow := encodePNG(t, 20, 20)
			next := encodePNG(t, 30, 30)

			d := newHoldDecoder(slow)
			f := newFixture(t, model.Identity, nil)
			s := f.session
			s.decode = d.decode

			done := make(chan error, 1)
			go func() { done <- s.Load(context.Background(), slow, "image/png") }()
			<-d.started

			if err := tt.second(s, next); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected second load error %v, got %v", tt.wantErr, err)
			}

			close(d.release)
			select {
			case err := <-done:
				if !errors.Is(err, tt.wantSlow) {
					t.Fatalf("Expected first load error %v, got %v", tt.wantSlow, err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("First load did not return")
			}

			img := s.Image()
			if img == nil || img.Bounds().Dx() != tt.wantSize {
				t.Fatalf("Expected the %dpx image to be current, got %v", tt.wantSize, img)
			}
		})
	}
}

func TestGestureCommitsScaledSelection(t *testing.T) {
	f := loaded(t, model.Identity)
	s := f.session

	if !drag(s, 300, 150, 100, 50) {
		t.Fatal("Expected the gesture to commit")
	}

	rect, ok := s.SourceRect()
	if !ok {
		t.Fatal("Expected a committed selection")
	}
	if rect != (types.SourceRect{X: 200, Y: 100, W: 400, H: 200}) {
		t.Errorf("Unexpected source rect %+v", rect)
	}

	crop := s.Crop()
	if crop.Bounds().Dx() != 400 || crop.Bounds().Dy() != 200 {
		t.Errorf("Expected 400x200 crop, got %v", crop.Bounds())
	}

	prepared, ok := s.Preprocessed()
	if !ok || len(prepared.Tensor) != types.TensorLen {
		t.Fatalf("Expected a %d sample tensor", types.TensorLen)
	}
	if f.preprocessed.Image() == nil {
		t.Error("Preprocessed surface should be painted")
	}
	if !s.CanInfer() {
		t.Error("Inference should be enabled after a selection")
	}
	if s.SelectorState() != selector.Idle {
		t.Error("Selector should be idle after the gesture")
	}
}

func TestScaledSelectionMapsExactly(t *testing.T) {
	f := loaded(t, model.Identity)
	s := f.session

	if err := s.Select(types.Rect{X: 100, Y: 50, W: 100, H: 50}); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	rect, _ := s.SourceRect()
	if rect != (types.SourceRect{X: 200, Y: 100, W: 200, H: 100}) {
		t.Errorf("Expected {200 100 200 100}, got %+v", rect)
	}

	src := s.Image()
	crop := s.Crop()
	for _, p := range []image.Point{{0, 0}, {199, 0}, {0, 99}, {199, 99}, {57, 31}} {
		got := crop.NRGBAAt(p.X, p.Y)
		want := color.NRGBAModel.Convert(src.At(200+p.X, 100+p.Y)).(color.NRGBA)
		if got != want {
			t.Errorf("Crop pixel %v = %v, want %v", p, got, want)
		}
	}
}

func TestFractionalScaleKeepsPartialPixels(t *testing.T) {
	f := newFixture(t, model.Identity, nil)
	s := f.session
	if err := s.Load(context.Background(), encodePNG(t, 1000, 500), "image/png"); err != nil {
		t.Fatal(err)
	}
	if err := s.SurfaceReady(800, 600); err != nil {
		t.Fatal(err)
	}

	if !drag(s, 100, 50, 109.9, 60) {
		t.Fatal("Expected the gesture to commit")
	}

	rect, _ := s.SourceRect()
	crop := s.Crop()
	wantW := int(math.Ceil(rect.X+rect.W)) - int(math.Floor(rect.X))
	wantH := int(math.Ceil(rect.Y+rect.H)) - int(math.Floor(rect.Y))
	if crop.Bounds().Dx() != wantW || crop.Bounds().Dy() != wantH {
		t.Errorf("Source rect %+v: expected %dx%d crop, got %v", rect, wantW, wantH, crop.Bounds())
	}
	if float64(crop.Bounds().Dx()) < rect.W || float64(crop.Bounds().Dy()) < rect.H {
		t.Errorf("Crop %v is smaller than the selection %+v", crop.Bounds(), rect)
	}
}

func TestDegenerateGestureIgnored(t *testing.T) {
	f := loaded(t, model.Identity)
	s := f.session

	if drag(s, 10, 10, 14, 100) {
		t.Error("Narrow gesture should not commit")
	}
	if _, ok := s.SourceRect(); ok {
		t.Error("No selection expected")
	}
	if s.CanInfer() {
		t.Error("Inference should stay disabled")
	}

	if err := s.Select(types.Rect{X: 0, Y: 0, W: 100, H: 5}); !errors.Is(err, types.ErrDegenerateSelection) {
		t.Errorf("Expected ErrDegenerateSelection, got %v", err)
	}
}

func TestDegenerateGestureKeepsPreviousSelection(t *testing.T) {
	f := loaded(t, model.Invert)
	s := f.session

	if !drag(s, 0, 0, 100, 100) {
		t.Fatal("Expected first gesture to commit")
	}
	if err := s.Infer(context.Background()); err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	first, _ := s.SourceRect()
	result := s.Result()

	drag(s, 200, 200, 203, 203)

	rect, ok := s.SourceRect()
	if !ok || rect != first {
		t.Errorf("Previous selection should survive, got %+v", rect)
	}
	if s.Result() != result {
		t.Error("Previous result should survive a degenerate gesture")
	}
}

func TestEmptyCropKeepsState(t *testing.T) {
	f := newFixture(t, model.Identity, func(c *Config) { c.Crop.MinSize = 100 })
	s := f.session
	if err := s.Load(context.Background(), encodePNG(t, 400, 400), "image/png"); err != nil {
		t.Fatal(err)
	}
	if err := s.SurfaceReady(400, 400); err != nil {
		t.Fatal(err)
	}

	if err := s.Select(types.Rect{X: 0, Y: 0, W: 200, H: 200}); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	first, _ := s.SourceRect()

	if err := s.Select(types.Rect{X: 10, Y: 10, W: 20, H: 20}); !errors.Is(err, types.ErrEmptyCrop) {
		t.Fatalf("Expected ErrEmptyCrop, got %v", err)
	}
	if rect, _ := s.SourceRect(); rect != first {
		t.Errorf("Empty crop should keep the previous selection, got %+v", rect)
	}
}

func TestGesturePaintsOverlay(t *testing.T) {
	f := loaded(t, model.Identity)
	s := f.session

	draws := f.display.Draws()
	s.PointerDown(types.Point{X: 10, Y: 10})
	s.PointerMove(types.Point{X: 60, Y: 60})
	if s.SelectorState() != selector.Dragging {
		t.Fatal("Expected dragging state")
	}
	if f.display.Draws() <= draws {
		t.Error("Moving should repaint the display")
	}

	s.CancelGesture()
	if s.SelectorState() != selector.Idle {
		t.Error("Cancel should return to idle")
	}
	if _, ok := s.SourceRect(); ok {
		t.Error("Cancelled gesture should not commit")
	}
}

func TestPointerIgnoredWithoutImage(t *testing.T) {
	f := newFixture(t, model.Identity, nil)
	s := f.session

	if drag(s, 0, 0, 100, 100) {
		t.Error("Gesture without an image should not commit")
	}
	if f.display.Draws() != 0 {
		t.Error("Nothing should be painted without an image")
	}
}

func TestInferIdentityAndInvert(t *testing.T) {
	tests := []struct {
		name  string
		model model.Model
		check func(gray, result uint8) bool
	}{
		{"identity", model.Identity, func(g, r uint8) bool { return g == r }},
		{"invert", model.Invert, func(g, r uint8) bool { return int(g)+int(r) == 255 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := loaded(t, tt.model)
			s := f.session

			if err := s.Select(types.Rect{X: 20, Y: 20, W: 200, H: 100}); err != nil {
				t.Fatal(err)
			}
			if err := s.Infer(context.Background()); err != nil {
				t.Fatalf("Infer failed: %v", err)
			}

			prepared, _ := s.Preprocessed()
			result := s.Result()
			if result == nil || f.result.Image() == nil {
				t.Fatal("Expected a rendered result")
			}
			if result.Bounds().Dx() != types.Side || result.Bounds().Dy() != types.Side {
				t.Fatalf("Unexpected result bounds %v", result.Bounds())
			}

			for _, p := range []image.Point{{0, 0}, {128, 64}, {255, 255}} {
				g := prepared.Gray.NRGBAAt(p.X, p.Y).R
				r := result.NRGBAAt(p.X, p.Y)
				if !tt.check(g, r.R) || r.A != 255 {
					t.Errorf("At %v: gray %d result %v", p, g, r)
				}
			}
			if s.CanInfer() != true {
				t.Error("Inference should be re-enabled afterwards")
			}
		})
	}
}

func TestInferWithoutSelection(t *testing.T) {
	f := loaded(t, model.Identity)
	if err := f.session.Infer(context.Background()); !errors.Is(err, types.ErrNoTensor) {
		t.Errorf("Expected ErrNoTensor, got %v", err)
	}
}

func TestInferModelFailureAllowsRetry(t *testing.T) {
	calls := 0
	flaky := model.Func(func(ctx context.Context, in types.Tensor) (types.Tensor, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("backend unavailable")
		}
		return in.Clone(), nil
	})

	f := loaded(t, flaky)
	s := f.session
	if err := s.Select(types.Rect{X: 0, Y: 0, W: 100, H: 100}); err != nil {
		t.Fatal(err)
	}

	err := s.Infer(context.Background())
	if !errors.Is(err, types.ErrModelFailure) {
		t.Fatalf("Expected ErrModelFailure, got %v", err)
	}
	if s.Result() != nil {
		t.Error("Failed inference should not produce a result")
	}
	if !s.CanInfer() {
		t.Error("Retry should be possible after a failure")
	}

	if err := s.Infer(context.Background()); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if s.Result() == nil {
		t.Error("Expected a result after retry")
	}
}

func TestInferShapeMismatchKeepsResult(t *testing.T) {
	short := false
	m := model.Func(func(ctx context.Context, in types.Tensor) (types.Tensor, error) {
		if short {
			return in[:100], nil
		}
		return in.Clone(), nil
	})

	f := loaded(t, m)
	s := f.session
	if err := s.Select(types.Rect{X: 0, Y: 0, W: 100, H: 100}); err != nil {
		t.Fatal(err)
	}
	if err := s.Infer(context.Background()); err != nil {
		t.Fatal(err)
	}
	previous := s.Result()

	short = true
	if err := s.Infer(context.Background()); !errors.Is(err, types.ErrShapeMismatch) {
		t.Fatalf("Expected ErrShapeMismatch, got %v", err)
	}
	if s.Result() != previous {
		t.Error("Shape mismatch should leave the previous result in place")
	}
}

func TestInferDoesNotMutateTensor(t *testing.T) {
	m := model.Func(func(ctx context.Context, in types.Tensor) (types.Tensor, error) {
		for i := range in {
			in[i] = 0
		}
		return in, nil
	})

	f := loaded(t, m)
	s := f.session
	if err := s.Select(types.Rect{X: 0, Y: 0, W: 100, H: 100}); err != nil {
		t.Fatal(err)
	}
	before, _ := s.Preprocessed()
	want := before.Tensor.Clone()

	if err := s.Infer(context.Background()); err != nil {
		t.Fatal(err)
	}

	after, _ := s.Preprocessed()
	for i := range want {
		if after.Tensor[i] != want[i] {
			t.Fatalf("Tensor sample %d changed from %v to %v", i, want[i], after.Tensor[i])
		}
	}
}

// blockingModel waits for release before echoing its input
type blockingModel struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingModel() *blockingModel {
	return &blockingModel{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingModel) Infer(ctx context.Context, in types.Tensor) (types.Tensor, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
		return in.Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestInferInFlight(t *testing.T) {
	m := newBlockingModel()
	f := loaded(t, m)
	s := f.session
	if err := s.Select(types.Rect{X: 0, Y: 0, W: 100, H: 100}); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Infer(context.Background()) }()
	<-m.started

	if s.CanInfer() {
		t.Error("Inference should be disabled while running")
	}
	if err := s.Infer(context.Background()); !errors.Is(err, types.ErrInferenceInFlight) {
		t.Errorf("Expected ErrInferenceInFlight, got %v", err)
	}
	if s.Status() == "" {
		t.Error("Expected a running status")
	}

	close(m.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Infer failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Infer did not return")
	}
	if s.Result() == nil {
		t.Error("Expected a result")
	}
}

func TestStaleResultDiscarded(t *testing.T) {
	m := newBlockingModel()
	f := loaded(t, m)
	s := f.session
	if err := s.Select(types.Rect{X: 0, Y: 0, W: 100, H: 100}); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Infer(context.Background()) }()
	<-m.started

	if err := s.Select(types.Rect{X: 200, Y: 100, W: 100, H: 100}); err != nil {
		t.Fatalf("Selecting during inference failed: %v", err)
	}
	close(m.release)

	if err := <-done; !errors.Is(err, types.ErrResultDiscarded) {
		t.Fatalf("Expected ErrResultDiscarded, got %v", err)
	}
	if s.Result() != nil {
		t.Error("Stale result should not be rendered")
	}
	if f.result.Image() != nil {
		t.Error("Result surface should stay empty")
	}
}

func TestReset(t *testing.T) {
	f := loaded(t, model.Invert)
	s := f.session
	if err := s.Select(types.Rect{X: 0, Y: 0, W: 100, H: 100}); err != nil {
		t.Fatal(err)
	}
	if err := s.Infer(context.Background()); err != nil {
		t.Fatal(err)
	}

	s.Reset()

	if _, ok := s.SourceRect(); ok {
		t.Error("Reset should clear the selection")
	}
	if s.Crop() != nil || s.Result() != nil {
		t.Error("Reset should clear derived buffers")
	}
	if _, ok := s.Preprocessed(); ok {
		t.Error("Reset should clear the tensor")
	}
	if f.preprocessed.Image() != nil || f.result.Image() != nil {
		t.Error("Reset should clear the output surfaces")
	}
	if f.display.Image() == nil {
		t.Error("Display should still show the image")
	}
	if s.Image() == nil {
		t.Error("Reset should keep the source image")
	}
	if s.CanInfer() {
		t.Error("Inference should be disabled after reset")
	}
}

func TestNewImageClearsDerivedState(t *testing.T) {
	f := loaded(t, model.Identity)
	s := f.session
	if err := s.Select(types.Rect{X: 0, Y: 0, W: 100, H: 100}); err != nil {
		t.Fatal(err)
	}
	if err := s.Infer(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := s.Load(context.Background(), encodePNG(t, 300, 300), "image/png"); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.SourceRect(); ok {
		t.Error("A new image should clear the selection")
	}
	if s.Result() != nil || f.result.Image() != nil {
		t.Error("A new image should clear the result")
	}
	w, h := s.DisplaySize()
	if w != 250 || h != 250 {
		t.Errorf("Expected relayout to 250x250, got %dx%d", w, h)
	}
}

func TestResizeKeepsCommittedSelection(t *testing.T) {
	f := loaded(t, model.Identity)
	s := f.session
	if err := s.Select(types.Rect{X: 100, Y: 50, W: 100, H: 50}); err != nil {
		t.Fatal(err)
	}
	before, _ := s.SourceRect()

	if err := s.SurfaceReady(250, 125); err != nil {
		t.Fatal(err)
	}

	after, ok := s.SourceRect()
	if !ok || after != before {
		t.Errorf("Resize should keep the source selection, got %+v", after)
	}
	tr, _ := s.Transform()
	if tr.ScaleX != 4 {
		t.Errorf("Expected scale 4 after resize, got %v", tr.ScaleX)
	}
}

func TestNew(t *testing.T) {
	s := New(model.Identity)
	if s == nil {
		t.Fatal("New returned nil")
	}
	if s.Status() == "" {
		t.Error("Expected an initial status")
	}
}

func BenchmarkSelect(b *testing.B) {
	img := image.NewNRGBA(image.Rect(0, 0, 2000, 1500))
	var buf bytes.Buffer
	png.Encode(&buf, img)

	s := New(model.Identity)
	s.Load(context.Background(), buf.Bytes(), "image/png")
	s.SurfaceReady(800, 600)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Select(types.Rect{X: 10, Y: 10, W: 400, H: 300})
	}
}
