// Package wire defines the serialized form of pose frames shared by the
// replay files, the network client and the camera subprocess.
//
// Records are encoded as msgpack on disk and over stdio, framed with a
// 4-byte big-endian length prefix, and as JSON over WebSocket.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/skeleton"
)

// Record types.
const (
	TypeFrame = "frame"
	TypeLost  = "lost"
	TypeError = "error"
)

// MaxRecordSize bounds a single framed record.
const MaxRecordSize = 1 << 20

// ErrRecordTooLarge is returned when a length prefix exceeds MaxRecordSize.
var ErrRecordTooLarge = errors.New("wire: record too large")

// Joint is one serialized joint. Type uses the kebab-case joint name and an
// empty State means tracked.
type Joint struct {
	Type  string  `msgpack:"type" json:"type"`
	X     float64 `msgpack:"x" json:"x"`
	Y     float64 `msgpack:"y" json:"y"`
	Z     float64 `msgpack:"z" json:"z"`
	State string  `msgpack:"state,omitempty" json:"state,omitempty"`
}

// Record is one message in a pose stream.
type Record struct {
	Type      string    `msgpack:"type" json:"type"`
	Seq       uint64    `msgpack:"seq,omitempty" json:"seq,omitempty"`
	Timestamp time.Time `msgpack:"ts,omitempty" json:"ts,omitempty"`
	BodyID    uint64    `msgpack:"body" json:"body"`
	Joints    []Joint   `msgpack:"joints,omitempty" json:"joints,omitempty"`
	Message   string    `msgpack:"message,omitempty" json:"message,omitempty"`
}

// FromFrame serializes a frame.
func FromFrame(f skeleton.Frame) Record {
	joints := f.Joints()
	r := Record{
		Type:      TypeFrame,
		Seq:       f.Seq(),
		Timestamp: f.Timestamp(),
		BodyID:    f.BodyID(),
		Joints:    make([]Joint, len(joints)),
	}
	for i, j := range joints {
		r.Joints[i] = Joint{
			Type: j.Type.String(),
			X:    j.Position.X,
			Y:    j.Position.Y,
			Z:    j.Position.Z,
		}
		if j.State != skeleton.Tracked {
			r.Joints[i].State = j.State.String()
		}
	}
	return r
}

// Lost returns a record reporting that bodyID is no longer tracked.
func Lost(bodyID uint64) Record {
	return Record{Type: TypeLost, BodyID: bodyID}
}

// Frame converts a frame record back into a skeleton frame stamped with source.
// Unknown joint names are an error.
func (r Record) Frame(source string) (skeleton.Frame, error) {
	if r.Type != TypeFrame {
		return skeleton.Frame{}, fmt.Errorf("wire: record type %q is not a frame", r.Type)
	}
	joints := make([]skeleton.Joint, 0, len(r.Joints))
	for _, j := range r.Joints {
		t, err := skeleton.ParseJointType(j.Type)
		if err != nil {
			return skeleton.Frame{}, fmt.Errorf("wire: %w", err)
		}
		state := skeleton.Tracked
		if j.State != "" {
			state = skeleton.ParseTrackingState(j.State)
		}
		joints = append(joints, skeleton.Joint{
			Type:     t,
			Position: r3.Vec{X: j.X, Y: j.Y, Z: j.Z},
			State:    state,
		})
	}
	return skeleton.NewFrame(skeleton.FrameInfo{
		Seq:       r.Seq,
		Timestamp: r.Timestamp,
		BodyID:    r.BodyID,
		Source:    source,
	}, joints), nil
}

// WriteRecord writes one length-prefixed msgpack record.
func WriteRecord(w io.Writer, r Record) error {
	data, err := msgpack.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(data)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// ReadRecord reads one length-prefixed msgpack record. It returns io.EOF at a
// clean end of stream and io.ErrUnexpectedEOF for a truncated record.
func ReadRecord(rd io.Reader) (Record, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(rd, prefix[:]); err != nil {
		return Record{}, err
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if n > MaxRecordSize {
		return Record{}, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, n)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(rd, data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Record{}, err
	}
	var r Record
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return r, nil
}
