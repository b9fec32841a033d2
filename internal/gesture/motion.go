package gesture

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/skeleton"
)

// Displacement requires a joint to travel at least Distance along Axis in
// Direction within Window frames of the first frame it was seen.
//
// Travel against Direction beyond Tolerance fails the segment. Frames where
// the joint is not usable neither count towards the window nor fail it.
type Displacement struct {
	Joint         skeleton.JointType
	Axis          skeleton.Axis
	Direction     Direction
	Distance      float64
	Window        int
	Tolerance     float64
	AllowInferred bool

	baseline    r3.Vec
	hasBaseline bool
	elapsed     int
}

// Evaluate implements Segment.
func (s *Displacement) Evaluate(f skeleton.Frame) Outcome {
	pos, ok := f.Position(s.Joint, s.AllowInferred)
	if !ok {
		return Pending
	}

	if !s.hasBaseline {
		s.baseline = pos
		s.hasBaseline = true
		s.elapsed = 0
		return Pending
	}

	s.elapsed++
	travel := Comparison{Axis: s.Axis, Direction: s.Direction}.offset(pos, s.baseline)

	switch {
	case travel >= s.Distance:
		return Matched
	case travel < -s.Tolerance:
		return Failed
	case s.Window > 0 && s.elapsed >= s.Window:
		return Failed
	default:
		return Pending
	}
}

// Reset implements Segment.
func (s *Displacement) Reset() {
	s.baseline = r3.Vec{}
	s.hasBaseline = false
	s.elapsed = 0
}

// Clone implements Segment.
func (s *Displacement) Clone() Segment {
	c := *s
	c.Reset()
	return &c
}

// Stillness requires a joint to stay within Radius of where it was first seen
// for Hold frames.
type Stillness struct {
	Joint         skeleton.JointType
	Radius        float64
	Hold          int
	AllowInferred bool

	anchor    r3.Vec
	hasAnchor bool
	held      int
}

// Evaluate implements Segment.
func (s *Stillness) Evaluate(f skeleton.Frame) Outcome {
	pos, ok := f.Position(s.Joint, s.AllowInferred)
	if !ok {
		return Pending
	}

	if !s.hasAnchor {
		s.anchor = pos
		s.hasAnchor = true
	} else if r3.Norm(r3.Sub(pos, s.anchor)) > s.Radius {
		return Failed
	}

	s.held++
	if s.held >= s.Hold {
		return Matched
	}
	return Pending
}

// Reset implements Segment.
func (s *Stillness) Reset() {
	s.anchor = r3.Vec{}
	s.hasAnchor = false
	s.held = 0
}

// Clone implements Segment.
func (s *Stillness) Clone() Segment {
	c := *s
	c.Reset()
	return &c
}

// Either matches as soon as any of its options matches and fails only once
// every option has failed on the same frame. An option that fails on its own
// restarts on the next frame.
type Either struct {
	Options []Segment
}

// Evaluate implements Segment.
func (s *Either) Evaluate(f skeleton.Frame) Outcome {
	if len(s.Options) == 0 {
		return Failed
	}

	failed := 0
	matched := false
	for _, opt := range s.Options {
		switch opt.Evaluate(f) {
		case Matched:
			matched = true
		case Failed:
			failed++
			opt.Reset()
		}
	}

	switch {
	case matched:
		return Matched
	case failed == len(s.Options):
		return Failed
	default:
		return Pending
	}
}

// Reset implements Segment.
func (s *Either) Reset() {
	for _, opt := range s.Options {
		opt.Reset()
	}
}

// Clone implements Segment.
func (s *Either) Clone() Segment {
	c := &Either{Options: make([]Segment, len(s.Options))}
	for i, opt := range s.Options {
		c.Options[i] = opt.Clone()
	}
	return c
}
