package gesture

import (
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/skeleton"
)

// RecognitionEvent reports a completed gesture.
type RecognitionEvent struct {
	Gesture   string
	BodyID    uint64
	Seq       uint64
	Timestamp time.Time
}

// Matcher tracks progress through one gesture's ordered segments.
//
// The cursor is the index of the segment being evaluated. Reaching the end
// fires OnRecognized and restarts the gesture. A Matcher is not safe for
// concurrent use; the Engine serializes access.
type Matcher struct {
	name     string
	segments []Segment
	cursor   int
	waited   int

	// Timeout abandons an attempt whose current segment stays pending for
	// more than Timeout consecutive frames after the first segment matched.
	// Zero disables it.
	Timeout int

	// OnRecognized is called synchronously when the last segment matches.
	OnRecognized func(RecognitionEvent)
}

// NewMatcher creates a matcher for the given segments.
// It returns ErrInvalidDefinition if there are no segments or one is nil.
func NewMatcher(name string, segments ...Segment) (*Matcher, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: gesture %q has no segments", ErrInvalidDefinition, name)
	}
	for i, s := range segments {
		if s == nil {
			return nil, fmt.Errorf("%w: gesture %q segment %d is nil", ErrInvalidDefinition, name, i)
		}
	}

	return &Matcher{
		name:     name,
		segments: append([]Segment(nil), segments...),
	}, nil
}

// Name returns the gesture name.
func (m *Matcher) Name() string { return m.name }

// Cursor returns the index of the segment currently being evaluated.
func (m *Matcher) Cursor() int { return m.cursor }

// Len returns the number of segments.
func (m *Matcher) Len() int { return len(m.segments) }

// Update evaluates the current segment against f and moves the cursor.
func (m *Matcher) Update(f skeleton.Frame) {
	if m.cursor >= len(m.segments) {
		m.Reset()
	}

	seg := m.segments[m.cursor]
	switch seg.Evaluate(f) {
	case Matched:
		seg.Reset()
		m.cursor++
		m.waited = 0
		if m.cursor == len(m.segments) {
			m.fire(f)
			m.Reset()
		}

	case Failed:
		m.Reset()

	case Pending:
		m.waited++
		if m.Timeout > 0 && m.cursor > 0 && m.waited > m.Timeout {
			m.Reset()
		}
	}
}

func (m *Matcher) fire(f skeleton.Frame) {
	if m.OnRecognized == nil {
		return
	}
	m.OnRecognized(RecognitionEvent{
		Gesture:   m.name,
		BodyID:    f.BodyID(),
		Seq:       f.Seq(),
		Timestamp: f.Timestamp(),
	})
}

// Reset moves the cursor back to the first segment and clears all segment progress.
func (m *Matcher) Reset() {
	m.cursor = 0
	m.waited = 0
	for _, s := range m.segments {
		s.Reset()
	}
}

// clone returns an independent matcher with freshly cloned segments.
// The callback is not copied.
func (m *Matcher) clone() *Matcher {
	segs := make([]Segment, len(m.segments))
	for i, s := range m.segments {
		segs[i] = s.Clone()
	}
	return &Matcher{
		name:     m.name,
		segments: segs,
		Timeout:  m.Timeout,
	}
}
