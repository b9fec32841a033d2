package skeleton

import "gonum.org/v1/gonum/spatial/r3"

// Pose is a mutable set of joints used to build frames.
// Sources and tests assemble a Pose and freeze it with Frame.
type Pose map[JointType]Joint

// With returns a copy of the pose with joint t tracked at (x, y, z).
func (p Pose) With(t JointType, x, y, z float64) Pose {
	return p.WithJoint(Joint{Type: t, Position: r3.Vec{X: x, Y: y, Z: z}, State: Tracked})
}

// WithState returns a copy of the pose with the tracking state of t replaced.
func (p Pose) WithState(t JointType, s TrackingState) Pose {
	j := p[t]
	j.Type = t
	j.State = s
	return p.WithJoint(j)
}

// WithJoint returns a copy of the pose with j set.
func (p Pose) WithJoint(j Joint) Pose {
	out := make(Pose, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out[j.Type] = j
	return out
}

// Frame freezes the pose into an immutable frame.
func (p Pose) Frame(info FrameInfo) Frame {
	joints := make([]Joint, 0, len(p))
	for _, j := range p {
		joints = append(joints, j)
	}
	return NewFrame(info, joints)
}

// NeutralPose returns a standing body facing the sensor with both arms down.
// Units are meters in sensor space: X to the body's right as seen by the
// sensor, Y up, Z away from the sensor.
func NeutralPose() Pose {
	p := Pose{}
	set := func(t JointType, x, y, z float64) {
		p[t] = Joint{Type: t, Position: r3.Vec{X: x, Y: y, Z: z}, State: Tracked}
	}

	set(Head, 0, 1.65, 2.0)
	set(Neck, 0, 1.50, 2.0)
	set(SpineShoulder, 0, 1.42, 2.0)
	set(SpineMid, 0, 1.15, 2.0)
	set(SpineBase, 0, 0.90, 2.0)

	set(ShoulderLeft, -0.20, 1.40, 2.0)
	set(ElbowLeft, -0.24, 1.12, 2.0)
	set(WristLeft, -0.25, 0.90, 2.0)
	set(HandLeft, -0.25, 0.82, 2.0)
	set(HandTipLeft, -0.25, 0.74, 2.0)
	set(ThumbLeft, -0.22, 0.80, 1.98)

	set(ShoulderRight, 0.20, 1.40, 2.0)
	set(ElbowRight, 0.24, 1.12, 2.0)
	set(WristRight, 0.25, 0.90, 2.0)
	set(HandRight, 0.25, 0.82, 2.0)
	set(HandTipRight, 0.25, 0.74, 2.0)
	set(ThumbRight, 0.22, 0.80, 1.98)

	set(HipLeft, -0.10, 0.88, 2.0)
	set(KneeLeft, -0.11, 0.48, 2.0)
	set(AnkleLeft, -0.11, 0.08, 2.0)
	set(FootLeft, -0.11, 0.02, 1.92)

	set(HipRight, 0.10, 0.88, 2.0)
	set(KneeRight, 0.11, 0.48, 2.0)
	set(AnkleRight, 0.11, 0.08, 2.0)
	set(FootRight, 0.11, 0.02, 1.92)

	return p
}
