package skeleton

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// Frame is an immutable snapshot of one tracked body at one instant.
// Use NewFrame to construct it; the joint map is copied and never exposed.
type Frame struct {
	seq       uint64
	timestamp time.Time
	bodyID    uint64
	source    string
	joints    map[JointType]Joint
}

// FrameInfo carries the metadata of a frame.
type FrameInfo struct {
	Seq       uint64
	Timestamp time.Time
	BodyID    uint64
	Source    string
}

// NewFrame creates a frame from the given joints.
// Joints with an invalid type are dropped. When a type appears more than once
// the last entry wins.
func NewFrame(info FrameInfo, joints []Joint) Frame {
	m := make(map[JointType]Joint, len(joints))
	for _, j := range joints {
		if !j.Type.Valid() {
			continue
		}
		m[j.Type] = j
	}
	return Frame{
		seq:       info.Seq,
		timestamp: info.Timestamp,
		bodyID:    info.BodyID,
		source:    info.Source,
		joints:    m,
	}
}

// Seq returns the frame sequence number.
func (f Frame) Seq() uint64 { return f.seq }

// Timestamp returns the capture time.
func (f Frame) Timestamp() time.Time { return f.timestamp }

// BodyID returns the body tracking identifier.
func (f Frame) BodyID() uint64 { return f.bodyID }

// Source returns the name of the pose source that produced the frame.
func (f Frame) Source() string { return f.source }

// Info returns the frame metadata.
func (f Frame) Info() FrameInfo {
	return FrameInfo{Seq: f.seq, Timestamp: f.timestamp, BodyID: f.bodyID, Source: f.source}
}

// Len returns the number of joints present in the frame.
func (f Frame) Len() int { return len(f.joints) }

// Joint returns the joint of the given type.
// A missing joint is reported as NotTracked with ok set to false.
func (f Frame) Joint(t JointType) (Joint, bool) {
	j, ok := f.joints[t]
	if !ok {
		return Joint{Type: t, State: NotTracked}, false
	}
	return j, true
}

// Position returns the position of a joint if it is usable.
func (f Frame) Position(t JointType, allowInferred bool) (r3.Vec, bool) {
	j, ok := f.joints[t]
	if !ok || !j.Usable(allowInferred) {
		return r3.Vec{}, false
	}
	return j.Position, true
}

// Joints returns a copy of the frame's joints ordered by joint type.
func (f Frame) Joints() []Joint {
	out := make([]Joint, 0, len(f.joints))
	for t := JointType(0); t < NumJoints; t++ {
		if j, ok := f.joints[t]; ok {
			out = append(out, j)
		}
	}
	return out
}

// WithInfo returns a copy of f with different metadata.
// The joint map is shared, which is safe because frames are never mutated.
func (f Frame) WithInfo(info FrameInfo) Frame {
	f.seq = info.Seq
	f.timestamp = info.Timestamp
	f.bodyID = info.BodyID
	f.source = info.Source
	return f
}
