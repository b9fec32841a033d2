package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Frame differencing parameters.
const (
	// BlurSize is the Gaussian kernel size used to suppress sensor noise.
	BlurSize = 21
	// DiffThreshold is the per-pixel intensity change counted as motion.
	DiffThreshold = 25
	// DefaultMotionThreshold is the percentage of changed pixels that counts
	// as motion.
	DefaultMotionThreshold = 0.5
	// DefaultHoldOpen is how many still frames pass the gate after motion.
	DefaultHoldOpen = 45
)

// MotionGate decides which camera frames are worth sending to pose
// estimation. It opens on motion and stays open for HoldOpen frames after the
// scene becomes still, so a person holding a pose keeps being tracked.
type MotionGate struct {
	mu        sync.Mutex
	threshold float64
	holdOpen  int
	idle      int
	open      bool
	prev      gocv.Mat
	hasPrev   bool
}

// NewMotionGate creates a gate. threshold is the percentage of changed pixels
// that counts as motion; holdOpen is the number of still frames let through
// after the last motion.
func NewMotionGate(threshold float64, holdOpen int) *MotionGate {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	if holdOpen < 0 {
		holdOpen = 0
	}
	return &MotionGate{
		threshold: threshold,
		holdOpen:  holdOpen,
		prev:      gocv.NewMat(),
	}
}

// Pass reports whether frame should be processed, along with the percentage
// of pixels that changed since the previous frame. The first frame always
// passes.
func (g *MotionGate) Pass(frame *gocv.Mat) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: BlurSize, Y: BlurSize}, 0, 0, gocv.BorderDefault)

	if !g.hasPrev {
		g.replacePrev(blurred)
		g.open = true
		g.idle = 0
		return true, 0
	}

	changed := changedPercent(blurred, g.prev)
	g.replacePrev(blurred)

	if changed > g.threshold {
		g.open = true
		g.idle = 0
		return true, changed
	}
	if g.open {
		g.idle++
		if g.idle > g.holdOpen {
			g.open = false
		}
	}
	return g.open, changed
}

// IsOpen reports whether the gate is currently letting frames through.
func (g *MotionGate) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// Reset forgets the previous frame and closes the gate.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dropPrev()
	g.open = false
	g.idle = 0
}

// Close releases the retained frame.
func (g *MotionGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dropPrev()
}

// replacePrev takes ownership of m.
func (g *MotionGate) replacePrev(m gocv.Mat) {
	g.prev.Close()
	g.prev = m
	g.hasPrev = true
}

func (g *MotionGate) dropPrev() {
	g.prev.Close()
	g.prev = gocv.NewMat()
	g.hasPrev = false
}

// changedPercent returns the percentage of pixels whose intensity differs by
// more than DiffThreshold.
func changedPercent(a, b gocv.Mat) float64 {
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, DiffThreshold, 255, gocv.ThresholdBinary)

	total := mask.Rows() * mask.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(total) * 100
}
