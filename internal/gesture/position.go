package gesture

import "github.com/ayusman/mudra/internal/skeleton"

// RelativePosition checks where a joint sits relative to a reference joint.
//
// All Conditions must hold for Hold consecutive frames. A frame that breaks a
// condition fails the segment, unless Guards are set and all of them still
// hold: the body is then between poses and the segment stays pending with its
// hold counter restarted.
type RelativePosition struct {
	Joint         skeleton.JointType
	Reference     skeleton.JointType
	Conditions    []Comparison
	Guards        []Relation
	Hold          int
	AllowInferred bool

	held int
}

// NewRelativePosition returns a segment requiring joint to satisfy every
// condition relative to reference for hold frames.
func NewRelativePosition(joint, reference skeleton.JointType, hold int, conditions ...Comparison) *RelativePosition {
	return &RelativePosition{
		Joint:      joint,
		Reference:  reference,
		Conditions: conditions,
		Hold:       hold,
	}
}

// Evaluate implements Segment.
func (s *RelativePosition) Evaluate(f skeleton.Frame) Outcome {
	j, jok := f.Position(s.Joint, s.AllowInferred)
	ref, rok := f.Position(s.Reference, s.AllowInferred)
	if !jok || !rok {
		return Pending
	}

	for _, c := range s.Conditions {
		if !c.Holds(j, ref) {
			return s.broken(f)
		}
	}

	s.held++
	if s.held >= s.Hold {
		return Matched
	}
	return Pending
}

func (s *RelativePosition) broken(f skeleton.Frame) Outcome {
	s.held = 0
	if len(s.Guards) == 0 {
		return Failed
	}
	for _, g := range s.Guards {
		holds, ok := g.Check(f, s.AllowInferred)
		if !ok {
			return Pending
		}
		if !holds {
			return Failed
		}
	}
	return Pending
}

// Reset implements Segment.
func (s *RelativePosition) Reset() {
	s.held = 0
}

// Clone implements Segment.
func (s *RelativePosition) Clone() Segment {
	c := *s
	c.Conditions = append([]Comparison(nil), s.Conditions...)
	c.Guards = append([]Relation(nil), s.Guards...)
	c.held = 0
	return &c
}
