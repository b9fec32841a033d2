package mediapipe

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/skeleton"
)

// Pose landmark indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// Visibility thresholds for tracking states.
const (
	TrackedVisibility  = 0.65
	InferredVisibility = 0.3
)

// DefaultDepth is the assumed distance in meters between the camera and the
// hips. MediaPipe world landmarks are centered on the hips.
const DefaultDepth = 2.0

// Landmark is one MediaPipe world landmark in meters. X grows to the image
// right, Y grows down and Z grows towards the camera's far side.
type Landmark struct {
	X          float64 `msgpack:"x"`
	Y          float64 `msgpack:"y"`
	Z          float64 `msgpack:"z"`
	Visibility float64 `msgpack:"v"`
}

// Pose is the set of landmarks for one detected person.
type Pose struct {
	Landmarks []Landmark `msgpack:"landmarks"`
}

// direct maps skeleton joints observed directly by MediaPipe.
var direct = map[skeleton.JointType]int{
	skeleton.Head:          Nose,
	skeleton.ShoulderLeft:  LeftShoulder,
	skeleton.ShoulderRight: RightShoulder,
	skeleton.ElbowLeft:     LeftElbow,
	skeleton.ElbowRight:    RightElbow,
	skeleton.WristLeft:     LeftWrist,
	skeleton.WristRight:    RightWrist,
	skeleton.HandTipLeft:   LeftIndex,
	skeleton.HandTipRight:  RightIndex,
	skeleton.ThumbLeft:     LeftThumb,
	skeleton.ThumbRight:    RightThumb,
	skeleton.HipLeft:       LeftHip,
	skeleton.HipRight:      RightHip,
	skeleton.KneeLeft:      LeftKnee,
	skeleton.KneeRight:     RightKnee,
	skeleton.AnkleLeft:     LeftAnkle,
	skeleton.AnkleRight:    RightAnkle,
	skeleton.FootLeft:      LeftFootIndex,
	skeleton.FootRight:     RightFootIndex,
}

// derived maps skeleton joints MediaPipe lacks to the centroid of landmarks.
var derived = map[skeleton.JointType][]int{
	skeleton.HandLeft:      {LeftWrist, LeftPinky, LeftIndex},
	skeleton.HandRight:     {RightWrist, RightPinky, RightIndex},
	skeleton.SpineBase:     {LeftHip, RightHip},
	skeleton.SpineShoulder: {LeftShoulder, RightShoulder},
	skeleton.SpineMid:      {LeftHip, RightHip, LeftShoulder, RightShoulder},
	skeleton.Neck:          {LeftShoulder, RightShoulder, Nose},
}

// Joints converts the landmarks into skeleton joints in sensor space:
// X to the body's right as seen by the camera, Y up and Z away from the
// camera, with the hips depth meters away. A pose with too few landmarks
// yields no joints.
func (p Pose) Joints(depth float64) []skeleton.Joint {
	if len(p.Landmarks) < NumLandmarks {
		return nil
	}

	joints := make([]skeleton.Joint, 0, len(direct)+len(derived))
	for t, i := range direct {
		joints = append(joints, p.joint(t, depth, i))
	}
	for t, idx := range derived {
		joints = append(joints, p.joint(t, depth, idx...))
	}
	return joints
}

// joint averages the given landmarks. The least visible one decides the
// tracking state.
func (p Pose) joint(t skeleton.JointType, depth float64, idx ...int) skeleton.Joint {
	var sum r3.Vec
	vis := 1.0
	for _, i := range idx {
		lm := p.Landmarks[i]
		sum = r3.Add(sum, r3.Vec{X: -lm.X, Y: -lm.Y, Z: depth + lm.Z})
		vis = min(vis, lm.Visibility)
	}
	return skeleton.Joint{
		Type:     t,
		Position: r3.Scale(1/float64(len(idx)), sum),
		State:    state(vis),
	}
}

func state(visibility float64) skeleton.TrackingState {
	switch {
	case visibility >= TrackedVisibility:
		return skeleton.Tracked
	case visibility >= InferredVisibility:
		return skeleton.Inferred
	default:
		return skeleton.NotTracked
	}
}
