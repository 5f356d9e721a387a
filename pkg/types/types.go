package types

// Side is the edge length of the canonical model input and output
const Side = 256

// TensorLen is the number of samples in a canonical tensor
const TensorLen = Side * Side

// Point is a position in display or source space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a normalized display-space selection: non-negative width and height
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// SourceRect is a selection mapped into source space and clamped to the image
type SourceRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Empty reports whether the rectangle has no area
func (r SourceRect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Tensor is a flat row-major single-channel sample buffer with values in [0,1]
type Tensor []float32

// Clone returns an independent copy of the tensor
func (t Tensor) Clone() Tensor {
	if t == nil {
		return nil
	}
	out := make(Tensor, len(t))
	copy(out, t)
	return out
}
