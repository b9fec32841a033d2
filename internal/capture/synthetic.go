package capture

import (
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"
)

// Synthetic is a Camera that draws a white square on a black background and
// moves it Step pixels to the right on every frame. A zero Step produces a
// still scene. It stands in for a device in tests and demos.
type Synthetic struct {
	mu     sync.Mutex
	width  int
	height int
	size   int
	step   int
	x      int
	open   bool
	fps    int
}

// NewSynthetic creates a synthetic camera.
func NewSynthetic(width, height, step int) *Synthetic {
	return &Synthetic{
		width:  width,
		height: height,
		size:   height / 4,
		step:   step,
		fps:    DefaultFPS,
	}
}

// Open implements Camera.
func (s *Synthetic) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	s.x = 0
	return nil
}

// Close implements Camera.
func (s *Synthetic) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

// ReadFrame implements Camera.
func (s *Synthetic) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMatWithSize(s.height, s.width, gocv.MatTypeCV8UC3)
	x := s.x % (s.width - s.size)
	y := (s.height - s.size) / 2
	gocv.Rectangle(&mat, image.Rect(x, y, x+s.size, y+s.size), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	s.x += s.step

	return &mat, nil
}

// SetStep changes how far the square moves per frame.
func (s *Synthetic) SetStep(step int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = step
}

// SetFPS implements Camera.
func (s *Synthetic) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fps = fps
}

// FPS implements Camera.
func (s *Synthetic) FPS() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

// IsOpen implements Camera.
func (s *Synthetic) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}
