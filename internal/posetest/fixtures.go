// Package posetest provides scripted pose sequences for tests and demos.
package posetest

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/ayusman/mudra/internal/skeleton"
	"github.com/ayusman/mudra/internal/source"
	"github.com/ayusman/mudra/internal/source/wire"
)

// FrameInterval is the gap between fixture frames, about 30 fps.
const FrameInterval = 33 * time.Millisecond

// Epoch is the timestamp of the first fixture frame.
var Epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

const rightShoulderX = 0.20

// Sequence builds frames for body from the given right-hand positions. Each
// position is an X offset from the right shoulder and a height.
func Sequence(body uint64, positions ...[2]float64) []skeleton.Frame {
	frames := make([]skeleton.Frame, len(positions))
	for i, p := range positions {
		frames[i] = skeleton.NeutralPose().
			With(skeleton.HandRight, rightShoulderX+p[0], p[1], 2.0).
			Frame(skeleton.FrameInfo{
				Seq:       uint64(i + 1),
				BodyID:    body,
				Timestamp: Epoch.Add(time.Duration(i) * FrameInterval),
			})
	}
	return frames
}

// Wave returns one right-hand wave held below the elbow, which the bundled
// "wave" gesture recognizes on the sixth frame.
func Wave(body uint64) []skeleton.Frame {
	const y = 1.05
	return Sequence(body,
		[2]float64{0.25, y}, [2]float64{0.25, y}, [2]float64{0.25, y},
		[2]float64{-0.25, y}, [2]float64{-0.25, y}, [2]float64{-0.25, y},
	)
}

// SwipeLeft returns a raised right hand sweeping 0.45m to the left, which the
// bundled "swipe-left" gesture recognizes on the last frame.
func SwipeLeft(body uint64) []skeleton.Frame {
	const y = 1.30
	return Sequence(body,
		[2]float64{0.3, y}, [2]float64{0.3, y}, [2]float64{0.3, y},
		[2]float64{0.15, y}, [2]float64{0.0, y}, [2]float64{-0.15, y},
	)
}

// Idle returns n frames of a neutral body with arms down.
func Idle(body uint64, n int) []skeleton.Frame {
	positions := make([][2]float64, n)
	for i := range positions {
		positions[i] = [2]float64{0, 0.82}
	}
	return Sequence(body, positions...)
}

// Steps converts frames into scripted source steps.
func Steps(frames []skeleton.Frame) []source.Step {
	steps := make([]source.Step, len(frames))
	for i, f := range frames {
		steps[i] = source.FrameStep(f)
	}
	return steps
}

// WriteSession writes frames to a session file readable by the replay
// source, followed by a tracking-lost record for every body seen.
func WriteSession(path string, frames []skeleton.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	seen := make(map[uint64]bool)
	var bodies []uint64
	for _, fr := range frames {
		if err := wire.WriteRecord(w, wire.FromFrame(fr)); err != nil {
			return err
		}
		if !seen[fr.BodyID()] {
			seen[fr.BodyID()] = true
			bodies = append(bodies, fr.BodyID())
		}
	}
	for _, id := range bodies {
		if err := wire.WriteRecord(w, wire.Lost(id)); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
