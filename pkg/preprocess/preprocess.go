// Package preprocess turns an arbitrary-size crop into the canonical model
// input: a SIDE x SIDE luma bitmap and the matching normalized tensor.
package preprocess

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ollama/ollama/model/imageproc"

	"github.com/menta2k/region-tensor/pkg/types"
)

// Luma weights (ITU-R BT.601)
const (
	WeightR = 0.299
	WeightG = 0.587
	WeightB = 0.114
)

// Config holds configuration for preprocessing
type Config struct {
	Side         int
	Filter       string
	FlattenAlpha bool
}

// Preprocessor resamples crops and converts them to luma tensors
type Preprocessor struct {
	config Config
	filter imaging.ResampleFilter
}

// Result holds both outputs of preprocessing. Tensor[i] == Gray R channel at pixel i / 255.
type Result struct {
	Gray   *image.NRGBA
	Tensor types.Tensor
}

// DefaultConfig returns the default preprocessing configuration
func DefaultConfig() Config {
	return Config{
		Side:   types.Side,
		Filter: "catmullrom",
	}
}

// New creates a Preprocessor with default configuration
func New() *Preprocessor {
	p, _ := NewWithConfig(DefaultConfig())
	return p
}

// NewWithConfig creates a Preprocessor with custom configuration
func NewWithConfig(config Config) (*Preprocessor, error) {
	if config.Side <= 0 {
		return nil, fmt.Errorf("side must be positive, got %d", config.Side)
	}
	filter, err := ParseFilter(config.Filter)
	if err != nil {
		return nil, err
	}
	return &Preprocessor{config: config, filter: filter}, nil
}

// Side returns the canonical output edge length
func (p *Preprocessor) Side() int {
	return p.config.Side
}

// ParseFilter maps a filter name to an imaging resample filter. Nearest
// neighbour is refused because it aliases badly on large downscales.
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "catmullrom", "bicubic":
		return imaging.CatmullRom, nil
	case "lanczos":
		return imaging.Lanczos, nil
	case "box", "area":
		return imaging.Box, nil
	case "linear", "bilinear":
		return imaging.Linear, nil
	case "mitchell":
		return imaging.MitchellNetravali, nil
	case "nearest", "nearestneighbor":
		return imaging.ResampleFilter{}, fmt.Errorf("resample filter %q is not allowed", name)
	default:
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resample filter: %s", name)
	}
}

// Process resamples img to Side x Side and converts it to luma
func (p *Preprocessor) Process(img image.Image) (Result, error) {
	if img == nil || img.Bounds().Empty() {
		return Result{}, fmt.Errorf("%w: nothing to preprocess", types.ErrEmptyCrop)
	}
	return p.ToLuma(p.Resample(img)), nil
}

// Resample scales img to exactly Side x Side
func (p *Preprocessor) Resample(img image.Image) *image.NRGBA {
	if p.config.FlattenAlpha {
		img = imageproc.Composite(img)
	}
	return imaging.Resize(img, p.config.Side, p.config.Side, p.filter)
}

// ToLuma writes the luma of every pixel into R, G and B of a new bitmap,
// keeping alpha, and emits the row-major tensor of luma/255.
func (p *Preprocessor) ToLuma(src *image.NRGBA) Result {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	gray := image.NewNRGBA(image.Rect(0, 0, w, h))
	tensor := make(types.Tensor, w*h)

	for y := 0; y < h; y++ {
		si := src.PixOffset(b.Min.X, b.Min.Y+y)
		di := y * gray.Stride
		for x := 0; x < w; x++ {
			l := Luma(src.Pix[si], src.Pix[si+1], src.Pix[si+2])

			gray.Pix[di+0] = l
			gray.Pix[di+1] = l
			gray.Pix[di+2] = l
			gray.Pix[di+3] = src.Pix[si+3]

			tensor[y*w+x] = Normalize(l)

			si += 4
			di += 4
		}
	}

	return Result{Gray: gray, Tensor: tensor}
}

// Luma returns the rounded weighted sum of the RGB samples
func Luma(r, g, b uint8) uint8 {
	v := math.Round(WeightR*float64(r) + WeightG*float64(g) + WeightB*float64(b))
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Normalize maps an 8-bit sample to [0,1]
func Normalize(v uint8) float32 {
	return float32(float64(v) / 255.0)
}
