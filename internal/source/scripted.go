package source

import (
	"context"
	"time"

	"github.com/ayusman/mudra/internal/skeleton"
)

// Step is one scripted event: a frame, a lost body or an error.
type Step struct {
	Frame  *skeleton.Frame
	Lost   bool
	BodyID uint64
	Err    error
}

// FrameStep delivers f.
func FrameStep(f skeleton.Frame) Step { return Step{Frame: &f} }

// LostStep reports bodyID as lost.
func LostStep(bodyID uint64) Step { return Step{Lost: true, BodyID: bodyID} }

// ErrorStep reports err.
func ErrorStep(err error) Step { return Step{Err: err} }

// Scripted replays a fixed list of steps. It is used in tests and demos.
type Scripted struct {
	name  string
	caps  Capabilities
	steps []Step
	once  Once

	// Interval is the delay between steps. Zero delivers as fast as the sink
	// accepts them.
	Interval time.Duration
}

// NewScripted creates a scripted source.
func NewScripted(name string, steps ...Step) *Scripted {
	return &Scripted{
		name:  name,
		caps:  Capabilities{Skeleton: true, MultiBody: true},
		steps: steps,
	}
}

// Name implements Source.
func (s *Scripted) Name() string { return s.name }

// Capabilities implements Source.
func (s *Scripted) Capabilities() Capabilities { return s.caps }

// Run implements Source.
func (s *Scripted) Run(ctx context.Context, sink Sink) error {
	if err := s.once.Start(); err != nil {
		return err
	}

	sink.OnSourceReady(s.name)

	var ticker *time.Ticker
	if s.Interval > 0 {
		ticker = time.NewTicker(s.Interval)
		defer ticker.Stop()
	}

	for _, step := range s.steps {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		switch {
		case step.Frame != nil:
			f := *step.Frame
			if f.Source() == "" {
				info := f.Info()
				info.Source = s.name
				f = f.WithInfo(info)
			}
			sink.OnFrame(f)
		case step.Lost:
			sink.OnSourceLost(s.name, step.BodyID)
		case step.Err != nil:
			sink.OnSourceError(s.name, step.Err)
		}
	}
	return nil
}
