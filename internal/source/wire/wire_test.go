package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/skeleton"
)

func TestRecord_FrameRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := skeleton.NeutralPose().
		With(skeleton.HandRight, 0.5, 1.3, 1.9).
		WithState(skeleton.HandLeft, skeleton.Inferred).
		Frame(skeleton.FrameInfo{Seq: 42, Timestamp: ts, BodyID: 3})

	var buf bytes.Buffer
	if err := WriteRecord(&buf, FromFrame(f)); err != nil {
		t.Fatalf("WriteRecord() error = %v", err)
	}
	r, err := ReadRecord(&buf)
	if err != nil {
		t.Fatalf("ReadRecord() error = %v", err)
	}
	got, err := r.Frame("replay")
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}

	if got.Seq() != 42 || got.BodyID() != 3 || got.Source() != "replay" || !got.Timestamp().Equal(ts) {
		t.Errorf("info = %+v", got.Info())
	}
	if got.Len() != f.Len() {
		t.Errorf("Len() = %d, want %d", got.Len(), f.Len())
	}
	hand, _ := got.Joint(skeleton.HandRight)
	if hand.Position.X != 0.5 || hand.State != skeleton.Tracked {
		t.Errorf("hand-right = %+v", hand)
	}
	left, _ := got.Joint(skeleton.HandLeft)
	if left.State != skeleton.Inferred {
		t.Errorf("hand-left state = %v, want inferred", left.State)
	}

	if _, err := ReadRecord(&buf); !errors.Is(err, io.EOF) {
		t.Errorf("ReadRecord() at end = %v, want io.EOF", err)
	}
}

func TestReadRecord_Truncated(t *testing.T) {
	var buf bytes.Buffer
	WriteRecord(&buf, Lost(9))
	data := buf.Bytes()[:buf.Len()-1]

	if _, err := ReadRecord(bytes.NewReader(data)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestReadRecord_TooLarge(t *testing.T) {
	data := []byte{0xff, 0xff, 0xff, 0xff}
	if _, err := ReadRecord(bytes.NewReader(data)); !errors.Is(err, ErrRecordTooLarge) {
		t.Errorf("error = %v, want ErrRecordTooLarge", err)
	}
}

func TestRecord_JSON(t *testing.T) {
	payload := `{"type":"frame","seq":7,"body":2,"joints":[{"type":"hand_right","x":0.1,"y":1.2,"z":2},{"type":"head","x":0,"y":1.6,"z":2,"state":"not-tracked"}]}`

	var r Record
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		t.Fatal(err)
	}
	f, err := r.Frame("net")
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if _, ok := f.Position(skeleton.HandRight, false); !ok {
		t.Error("hand-right should be usable")
	}
	if _, ok := f.Position(skeleton.Head, true); ok {
		t.Error("head is not tracked")
	}
}

func TestRecord_FrameErrors(t *testing.T) {
	if _, err := Lost(1).Frame("x"); err == nil {
		t.Error("expected error converting a lost record")
	}
	bad := Record{Type: TypeFrame, Joints: []Joint{{Type: "tail"}}}
	if _, err := bad.Frame("x"); err == nil {
		t.Error("expected error for unknown joint")
	}
}
