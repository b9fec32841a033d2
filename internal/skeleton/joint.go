// Package skeleton provides the joint and pose frame types shared by every pose source
// and the gesture engine.
package skeleton

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// JointType identifies a body landmark.
// The set follows the 25-joint body model used by depth sensors.
type JointType int

const (
	SpineBase JointType = iota
	SpineMid
	Neck
	Head
	ShoulderLeft
	ElbowLeft
	WristLeft
	HandLeft
	ShoulderRight
	ElbowRight
	WristRight
	HandRight
	HipLeft
	KneeLeft
	AnkleLeft
	FootLeft
	HipRight
	KneeRight
	AnkleRight
	FootRight
	SpineShoulder
	HandTipLeft
	ThumbLeft
	HandTipRight
	ThumbRight
	NumJoints
)

var jointNames = [NumJoints]string{
	SpineBase:     "spine-base",
	SpineMid:      "spine-mid",
	Neck:          "neck",
	Head:          "head",
	ShoulderLeft:  "shoulder-left",
	ElbowLeft:     "elbow-left",
	WristLeft:     "wrist-left",
	HandLeft:      "hand-left",
	ShoulderRight: "shoulder-right",
	ElbowRight:    "elbow-right",
	WristRight:    "wrist-right",
	HandRight:     "hand-right",
	HipLeft:       "hip-left",
	KneeLeft:      "knee-left",
	AnkleLeft:     "ankle-left",
	FootLeft:      "foot-left",
	HipRight:      "hip-right",
	KneeRight:     "knee-right",
	AnkleRight:    "ankle-right",
	FootRight:     "foot-right",
	SpineShoulder: "spine-shoulder",
	HandTipLeft:   "hand-tip-left",
	ThumbLeft:     "thumb-left",
	HandTipRight:  "hand-tip-right",
	ThumbRight:    "thumb-right",
}

// String returns the kebab-case name of the joint, e.g. "hand-right".
func (t JointType) String() string {
	if t < 0 || t >= NumJoints {
		return fmt.Sprintf("joint(%d)", int(t))
	}
	return jointNames[t]
}

// Valid reports whether t names a known joint.
func (t JointType) Valid() bool {
	return t >= 0 && t < NumJoints
}

// ParseJointType parses a joint name as produced by String.
// Underscores and case differences are accepted.
func ParseJointType(name string) (JointType, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	for i, n := range jointNames {
		if n == key {
			return JointType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown joint %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t JointType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid joint %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *JointType) UnmarshalText(text []byte) error {
	parsed, err := ParseJointType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TrackingState describes how confident the sensor is about a joint position.
type TrackingState int

const (
	// NotTracked means the sensor has no position for the joint.
	NotTracked TrackingState = iota
	// Inferred means the position was estimated from neighbouring joints.
	Inferred
	// Tracked means the joint was directly observed.
	Tracked
)

func (s TrackingState) String() string {
	switch s {
	case Tracked:
		return "tracked"
	case Inferred:
		return "inferred"
	default:
		return "not-tracked"
	}
}

// ParseTrackingState parses the output of TrackingState.String.
// Unknown values map to NotTracked.
func ParseTrackingState(s string) TrackingState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tracked":
		return Tracked
	case "inferred":
		return Inferred
	default:
		return NotTracked
	}
}

// Joint is a single body landmark captured at one instant.
type Joint struct {
	Type     JointType
	Position r3.Vec
	State    TrackingState
}

// Usable reports whether the joint position can be used for evaluation.
// Inferred joints are usable only when allowInferred is set.
func (j Joint) Usable(allowInferred bool) bool {
	switch j.State {
	case Tracked:
		return true
	case Inferred:
		return allowInferred
	default:
		return false
	}
}

// Axis selects one component of a 3D position.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// ParseAxis parses "x", "y" or "z".
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	default:
		return 0, fmt.Errorf("unknown axis %q", s)
	}
}

// Component returns the coordinate of v along a.
func (a Axis) Component(v r3.Vec) float64 {
	switch a {
	case AxisY:
		return v.Y
	case AxisZ:
		return v.Z
	default:
		return v.X
	}
}
