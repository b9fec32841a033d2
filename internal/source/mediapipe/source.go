// Package mediapipe is a camera pose backend: frames are captured with GoCV
// and passed through a MediaPipe Pose subprocess.
package mediapipe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/skeleton"
	"github.com/ayusman/mudra/internal/source"
)

// Kind is the registry name of the camera backend.
const Kind = "mediapipe"

// MaxConsecutiveErrors stops the source after this many failed estimates in
// a row.
const MaxConsecutiveErrors = 10

func init() {
	source.Register(Kind, Open)
}

// Options configures a Source.
type Options struct {
	FPS int
	// Depth is the assumed camera to hip distance in meters.
	Depth           float64
	MotionThreshold float64
	HoldOpen        int
	Logger          *slog.Logger
}

// Source produces skeleton frames from a camera.
type Source struct {
	name      string
	camera    capture.Camera
	estimator Estimator
	gate      *capture.MotionGate
	opts      Options
	logger    *slog.Logger
	once      source.Once

	seq     uint64
	present map[uint64]bool
}

// Open implements source.Opener. The source is unavailable when the pose
// service script or its interpreter cannot be found. The camera itself is
// opened by Run.
func Open(cfg source.Config) (source.Source, error) {
	est, err := NewSubprocess(cfg.Python, cfg.Script, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrSourceUnavailable, err)
	}
	return New(cfg.DisplayName(), capture.NewCamera(cfg.Device), est, Options{FPS: cfg.FPS}), nil
}

// New creates a camera source from its parts.
func New(name string, cam capture.Camera, est Estimator, opts Options) *Source {
	if opts.FPS <= 0 {
		opts.FPS = capture.DefaultFPS
	}
	if opts.Depth <= 0 {
		opts.Depth = DefaultDepth
	}
	if opts.HoldOpen == 0 {
		opts.HoldOpen = capture.DefaultHoldOpen
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		name:      name,
		camera:    cam,
		estimator: est,
		opts:      opts,
		logger:    logger.With("component", "camera-source", "source", name),
		present:   make(map[uint64]bool),
	}
}

// Name implements source.Source.
func (s *Source) Name() string { return s.name }

// Capabilities implements source.Source.
func (s *Source) Capabilities() source.Capabilities {
	return source.Capabilities{Skeleton: true, Color: true, MultiBody: true, MaxBodies: 2}
}

// Run implements source.Source.
func (s *Source) Run(ctx context.Context, sink source.Sink) error {
	if err := s.once.Start(); err != nil {
		return err
	}

	s.camera.SetFPS(s.opts.FPS)
	if err := s.camera.Open(); err != nil {
		return fmt.Errorf("%w: %v", source.ErrSourceUnavailable, err)
	}
	defer s.camera.Close()
	defer s.estimator.Close()

	s.gate = capture.NewMotionGate(s.opts.MotionThreshold, s.opts.HoldOpen)
	defer s.gate.Close()

	sink.OnSourceReady(s.name)
	s.logger.Info("camera source started", "fps", s.opts.FPS)

	ticker := time.NewTicker(time.Second / time.Duration(s.opts.FPS))
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		err := s.step(sink)
		if err == nil {
			failures = 0
			continue
		}
		failures++
		sink.OnSourceError(s.name, err)
		if failures >= MaxConsecutiveErrors {
			return fmt.Errorf("camera source stopped after %d consecutive errors: %w", failures, err)
		}
	}
}

// step captures and processes one camera frame.
func (s *Source) step(sink source.Sink) error {
	mat, err := s.camera.ReadFrame()
	if err != nil {
		return fmt.Errorf("read frame: %w", err)
	}
	defer mat.Close()

	if pass, _ := s.gate.Pass(mat); !pass {
		return nil
	}

	poses, err := s.estimator.Estimate(mat)
	if err != nil {
		return fmt.Errorf("estimate pose: %w", err)
	}
	s.deliver(sink, poses, time.Now())
	return nil
}

// deliver emits one frame per detected pose and reports bodies that are no
// longer detected. MediaPipe does not track identities, so bodies are
// numbered by detection order starting at 1.
func (s *Source) deliver(sink source.Sink, poses []Pose, now time.Time) {
	seen := make(map[uint64]bool, len(poses))
	for i, p := range poses {
		joints := p.Joints(s.opts.Depth)
		if len(joints) == 0 {
			continue
		}
		id := uint64(i + 1)
		s.seq++
		seen[id] = true
		s.present[id] = true
		sink.OnFrame(skeleton.NewFrame(skeleton.FrameInfo{
			Seq:       s.seq,
			Timestamp: now,
			BodyID:    id,
			Source:    s.name,
		}, joints))
	}

	for id := range s.present {
		if !seen[id] {
			delete(s.present, id)
			sink.OnSourceLost(s.name, id)
		}
	}
}
