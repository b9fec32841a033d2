// Package gesture recognizes named gestures by matching ordered sequences of
// relative-motion segments against a stream of skeleton frames.
package gesture

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/skeleton"
)

// ErrInvalidDefinition is returned when a gesture cannot be registered.
var ErrInvalidDefinition = errors.New("invalid gesture definition")

// Outcome is the result of evaluating one segment against one frame.
type Outcome int

const (
	// Pending means the segment needs more frames. The matcher keeps its cursor.
	Pending Outcome = iota
	// Matched means the segment condition is satisfied. The matcher advances.
	Matched
	// Failed means the current attempt cannot succeed. The matcher restarts.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// Segment is one atomic rule of a gesture.
//
// A segment may keep private progress (elapsed frames, a remembered baseline)
// but never mutates the frame. Every matcher owns its own segment instances;
// Clone returns a fresh instance with the same configuration and no progress.
type Segment interface {
	Evaluate(f skeleton.Frame) Outcome
	Reset()
	Clone() Segment
}

// Direction is the sign of a comparison along an axis.
type Direction int

const (
	Positive Direction = 1
	Negative Direction = -1
)

func (d Direction) String() string {
	if d == Negative {
		return "negative"
	}
	return "positive"
}

// ParseDirection parses "positive"/"negative" and the "+"/"-" shorthands.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "+", "pos", "":
		return Positive, nil
	case "negative", "-", "neg":
		return Negative, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

// Comparison requires the signed offset of a joint from a reference, along
// Axis, to be at least Min.
type Comparison struct {
	Axis      skeleton.Axis
	Direction Direction
	Min       float64
}

// Holds reports whether the comparison is satisfied for the two positions.
func (c Comparison) Holds(joint, reference r3.Vec) bool {
	return c.offset(joint, reference) >= c.Min
}

func (c Comparison) offset(joint, reference r3.Vec) float64 {
	dir := c.Direction
	if dir == 0 {
		dir = Positive
	}
	return float64(dir) * c.Axis.Component(r3.Sub(joint, reference))
}

// Relation is a comparison between two named joints.
type Relation struct {
	Joint     skeleton.JointType
	Reference skeleton.JointType
	Comparison
}

// Check evaluates the relation. ok is false when either joint is unusable.
func (r Relation) Check(f skeleton.Frame, allowInferred bool) (holds, ok bool) {
	j, jok := f.Position(r.Joint, allowInferred)
	ref, rok := f.Position(r.Reference, allowInferred)
	if !jok || !rok {
		return false, false
	}
	return r.Holds(j, ref), true
}
