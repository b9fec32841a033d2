package gesture

import (
	"time"

	"github.com/ayusman/mudra/internal/skeleton"
)

// stubSegment returns whatever outcome the test sets in next.
type stubSegment struct {
	next   Outcome
	calls  int
	resets int
}

func (s *stubSegment) Evaluate(skeleton.Frame) Outcome {
	s.calls++
	return s.next
}

func (s *stubSegment) Reset() { s.resets++ }

func (s *stubSegment) Clone() Segment { return &stubSegment{next: s.next} }

const rightShoulderX = 0.20

// handFrame returns a neutral frame with the right hand raised and offset dx
// along X from the right shoulder.
func handFrame(seq, body uint64, dx float64) skeleton.Frame {
	return skeleton.NeutralPose().
		With(skeleton.HandRight, rightShoulderX+dx, 1.30, 2.0).
		Frame(skeleton.FrameInfo{Seq: seq, BodyID: body, Timestamp: time.Unix(0, int64(seq)*int64(33*time.Millisecond))})
}

// untrackedFrame returns a frame in which the right hand is not tracked.
func untrackedFrame(seq, body uint64) skeleton.Frame {
	return skeleton.NeutralPose().
		WithState(skeleton.HandRight, skeleton.NotTracked).
		Frame(skeleton.FrameInfo{Seq: seq, BodyID: body})
}

// waveSegments builds the two-part wave: hand right of the shoulder for three
// frames, then left of it for three frames.
func waveSegments() []Segment {
	return []Segment{
		NewRelativePosition(skeleton.HandRight, skeleton.ShoulderRight, 3,
			Comparison{Axis: skeleton.AxisX, Direction: Positive, Min: 0.15}),
		NewRelativePosition(skeleton.HandRight, skeleton.ShoulderRight, 3,
			Comparison{Axis: skeleton.AxisX, Direction: Negative, Min: 0.15}),
	}
}

// frameFeed hands out frames with increasing sequence numbers.
type frameFeed struct {
	seq  uint64
	body uint64
}

func (f *frameFeed) hand(dx float64) skeleton.Frame {
	f.seq++
	return handFrame(f.seq, f.body, dx)
}

func (f *frameFeed) untracked() skeleton.Frame {
	f.seq++
	return untrackedFrame(f.seq, f.body)
}

// recorder collects recognitions from a matcher or engine.
type recorder struct {
	events []RecognitionEvent
}

func (r *recorder) onRecognized(ev RecognitionEvent) {
	r.events = append(r.events, ev)
}

func (r *recorder) onEvent(ev Event) {
	if ev.Kind == EventRecognized {
		r.events = append(r.events, ev.Recognition)
	}
}

func (r *recorder) names() []string {
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Gesture
	}
	return out
}
