package capture

import (
	"testing"
)

func TestNewMotionGate_Defaults(t *testing.T) {
	g := NewMotionGate(0, -1)
	defer g.Close()

	if g.threshold != DefaultMotionThreshold {
		t.Errorf("threshold = %v, want %v", g.threshold, DefaultMotionThreshold)
	}
	if g.holdOpen != 0 {
		t.Errorf("holdOpen = %d, want 0", g.holdOpen)
	}
	if g.IsOpen() {
		t.Error("gate should start closed")
	}
}

func TestMotionGate_FirstFramePasses(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(1.0, 2)
	defer g.Close()

	cam := NewSynthetic(160, 120, 0)
	cam.Open()
	frame, _ := cam.ReadFrame()
	defer frame.Close()

	if pass, _ := g.Pass(frame); !pass {
		t.Error("first frame should pass")
	}
}

func TestMotionGate_HoldsOpenAfterMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	const hold = 3
	g := NewMotionGate(1.0, hold)
	defer g.Close()

	cam := NewSynthetic(160, 120, 20)
	cam.Open()
	read := func() bool {
		frame, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() error = %v", err)
		}
		defer frame.Close()
		pass, _ := g.Pass(frame)
		return pass
	}

	read() // baseline
	if !read() {
		t.Fatal("moving square should pass the gate")
	}

	cam.SetStep(0)
	read() // last frame still differs from the moved one
	for i := 0; i < hold; i++ {
		if !read() {
			t.Fatalf("still frame %d should pass while held open", i+1)
		}
	}
	if read() {
		t.Error("gate should close after the hold period")
	}

	cam.SetStep(20)
	read() // drawn at the old position; the step applies from the next frame
	if !read() {
		t.Error("motion should reopen the gate")
	}
}

func TestMotionGate_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	g := NewMotionGate(1.0, 0)
	defer g.Close()

	cam := NewSynthetic(160, 120, 0)
	cam.Open()
	for i := 0; i < 3; i++ {
		f, _ := cam.ReadFrame()
		g.Pass(f)
		f.Close()
	}
	if g.IsOpen() {
		t.Fatal("still scene with no hold should close the gate")
	}

	g.Reset()
	f, _ := cam.ReadFrame()
	defer f.Close()
	if pass, _ := g.Pass(f); !pass {
		t.Error("first frame after Reset should pass")
	}
}
