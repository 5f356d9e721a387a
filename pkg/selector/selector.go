package selector

import (
	"math"

	"github.com/menta2k/region-tensor/pkg/types"
)

// DefaultThreshold is the minimum width and height, in display pixels, a
// selection must exceed to be committed.
const DefaultThreshold = 5.0

// State is the gesture state of a Selector
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Selector tracks one rectangular selection gesture in display space.
// It is a value: every transition returns the next Selector and leaves the
// receiver unchanged.
type Selector struct {
	state     State
	start     types.Point
	end       types.Point
	threshold float64
}

// New creates an idle Selector with the default degeneracy threshold
func New() Selector {
	return Selector{threshold: DefaultThreshold}
}

// NewWithThreshold creates an idle Selector with a custom degeneracy threshold
func NewWithThreshold(threshold float64) Selector {
	return Selector{threshold: math.Max(threshold, 0)}
}

// State returns the current gesture state
func (s Selector) State() State {
	return s.state
}

// Threshold returns the degeneracy threshold in display pixels
func (s Selector) Threshold() float64 {
	return s.threshold
}

// Begin anchors a new gesture at p. Beginning while already dragging restarts
// the gesture from p.
func (s Selector) Begin(p types.Point) Selector {
	s.state = Dragging
	s.start = p
	s.end = p
	return s
}

// Move updates the free corner of an in-progress gesture. The boolean reports
// whether the overlay needs a redraw; it is false when idle.
func (s Selector) Move(p types.Point) (Selector, bool) {
	if s.state != Dragging {
		return s, false
	}
	s.end = p
	return s, true
}

// End finishes the gesture. The rect and true are returned only when the
// normalized selection is larger than the threshold in both dimensions.
func (s Selector) End() (Selector, types.Rect, bool) {
	if s.state != Dragging {
		return s, types.Rect{}, false
	}

	rect := Normalize(s.start, s.end)
	next := Selector{threshold: s.threshold}
	if IsDegenerate(rect, s.threshold) {
		return next, types.Rect{}, false
	}
	return next, rect, true
}

// Cancel abandons an in-progress gesture without committing
func (s Selector) Cancel() Selector {
	return Selector{threshold: s.threshold}
}

// Current returns the normalized rect of the in-progress gesture
func (s Selector) Current() (types.Rect, bool) {
	if s.state != Dragging {
		return types.Rect{}, false
	}
	return Normalize(s.start, s.end), true
}

// Normalize builds a rect with non-negative extent from two corners in any order
func Normalize(a, b types.Point) types.Rect {
	return types.Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(b.X - a.X),
		H: math.Abs(b.Y - a.Y),
	}
}

// IsDegenerate reports whether either dimension is at or below threshold
func IsDegenerate(r types.Rect, threshold float64) bool {
	return r.W <= threshold || r.H <= threshold
}
