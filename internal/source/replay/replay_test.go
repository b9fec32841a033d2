package replay

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/skeleton"
	"github.com/ayusman/mudra/internal/source"
)

type collector struct {
	frames  []skeleton.Frame
	lost    []uint64
	errs    []error
	ready   int
	onFrame func(n int)
}

func (c *collector) OnFrame(f skeleton.Frame) {
	c.frames = append(c.frames, f)
	if c.onFrame != nil {
		c.onFrame(len(c.frames))
	}
}

func (c *collector) OnSourceReady(string) { c.ready++ }

func (c *collector) OnSourceLost(_ string, id uint64) { c.lost = append(c.lost, id) }

func (c *collector) OnSourceError(_ string, err error) { c.errs = append(c.errs, err) }

func writeSession(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.mudra")
	rec, err := Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	start := time.Unix(1700000000, 0)
	for i := 1; i <= n; i++ {
		f := skeleton.NeutralPose().
			With(skeleton.HandRight, 0.2+float64(i)*0.01, 1.3, 2.0).
			Frame(skeleton.FrameInfo{Seq: uint64(i), BodyID: 4, Timestamp: start.Add(time.Duration(i) * 10 * time.Millisecond)})
		rec.OnFrame(f)
	}
	rec.OnSourceError("cam", errors.New("dropped packet"))
	rec.OnSourceLost("cam", 4)

	if rec.Frames() != n {
		t.Errorf("Frames() = %d, want %d", rec.Frames(), n)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return path
}

func TestReplay_PlaysRecordedSession(t *testing.T) {
	path := writeSession(t, 5)

	src, err := source.Open(source.Config{Kind: Kind, Name: "desk", Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	var c collector
	if err := src.Run(context.Background(), &c); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if c.ready != 1 {
		t.Errorf("ready = %d, want 1", c.ready)
	}
	if len(c.frames) != 5 {
		t.Fatalf("frames = %d, want 5", len(c.frames))
	}
	for i, f := range c.frames {
		if f.Seq() != uint64(i+1) || f.BodyID() != 4 || f.Source() != "desk" {
			t.Errorf("frame %d info = %+v", i, f.Info())
		}
	}
	pos, ok := c.frames[4].Position(skeleton.HandRight, false)
	if !ok || pos.X < 0.2499 || pos.X > 0.2501 {
		t.Errorf("hand-right = %v, %v", pos, ok)
	}
	if len(c.errs) != 1 || c.errs[0].Error() != "dropped packet" {
		t.Errorf("errors = %v", c.errs)
	}
	if len(c.lost) != 1 || c.lost[0] != 4 {
		t.Errorf("lost = %v", c.lost)
	}

	if err := src.Run(context.Background(), &c); !errors.Is(err, source.ErrSourceClosed) {
		t.Errorf("second Run() error = %v, want ErrSourceClosed", err)
	}
}

func TestReplay_LoopKeepsSequenceIncreasing(t *testing.T) {
	path := writeSession(t, 3)
	src := New("loop", path, Options{Loop: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := collector{onFrame: func(n int) {
		if n == 7 {
			cancel()
		}
	}}

	err := src.Run(ctx, &c)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if len(c.frames) != 7 {
		t.Fatalf("frames = %d, want 7", len(c.frames))
	}
	for i := 1; i < len(c.frames); i++ {
		if c.frames[i].Seq() <= c.frames[i-1].Seq() {
			t.Fatalf("sequence went backwards at %d: %d after %d", i, c.frames[i].Seq(), c.frames[i-1].Seq())
		}
	}
}

func TestReplay_Realtime(t *testing.T) {
	path := writeSession(t, 4)
	src := New("rt", path, Options{Realtime: true})

	var c collector
	start := time.Now()
	if err := src.Run(context.Background(), &c); err != nil {
		t.Fatal(err)
	}
	// Three 10ms gaps between four frames.
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("realtime playback took %v, want at least 30ms", elapsed)
	}
}

func TestOpen_Unavailable(t *testing.T) {
	_, err := source.Open(source.Config{Kind: Kind, Path: filepath.Join(t.TempDir(), "missing")})
	if !errors.Is(err, source.ErrSourceUnavailable) {
		t.Errorf("error = %v, want ErrSourceUnavailable", err)
	}
	if _, err := Open(source.Config{Kind: Kind}); !errors.Is(err, source.ErrSourceUnavailable) {
		t.Errorf("error without path = %v, want ErrSourceUnavailable", err)
	}
}
