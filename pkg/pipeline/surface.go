package pipeline

import (
	"image"
	"sync"
)

// Surface is an output target the session paints into. Implementations must
// not call back into the Session.
type Surface interface {
	Draw(img image.Image)
	Clear()
}

// Surfaces groups the three output targets of a session
type Surfaces struct {
	Display      Surface // scaled source with selection overlay
	Preprocessed Surface // SIDE x SIDE luma crop
	Result       Surface // SIDE x SIDE model output
}

func (s Surfaces) withDefaults() Surfaces {
	if s.Display == nil {
		s.Display = nopSurface{}
	}
	if s.Preprocessed == nil {
		s.Preprocessed = nopSurface{}
	}
	if s.Result == nil {
		s.Result = nopSurface{}
	}
	return s
}

type nopSurface struct{}

func (nopSurface) Draw(image.Image) {}
func (nopSurface) Clear()           {}

// MemorySurface keeps the last image drawn into it
type MemorySurface struct {
	mu    sync.Mutex
	img   image.Image
	draws int
}

// NewMemorySurface creates an empty MemorySurface
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{}
}

// Draw replaces the current image
func (m *MemorySurface) Draw(img image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.img = img
	m.draws++
}

// Clear removes the current image
func (m *MemorySurface) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.img = nil
}

// Image returns the last image drawn, or nil after Clear
func (m *MemorySurface) Image() image.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.img
}

// Draws returns how many times Draw has been called
func (m *MemorySurface) Draws() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draws
}
