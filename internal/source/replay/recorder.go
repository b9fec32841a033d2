package replay

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ayusman/mudra/internal/skeleton"
	"github.com/ayusman/mudra/internal/source/wire"
)

// Recorder is a source.Sink that writes everything it receives to a session
// file. Write errors are kept and returned by Close.
type Recorder struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	frames int
	err    error
}

// Create creates or truncates a session file.
func Create(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create session file: %w", err)
	}
	return NewRecorder(f), nil
}

// NewRecorder writes to w. If w is an io.Closer it is closed by Close.
func NewRecorder(w io.Writer) *Recorder {
	r := &Recorder{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	return r
}

// Frames returns how many frames were written.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// OnFrame implements source.Sink.
func (r *Recorder) OnFrame(f skeleton.Frame) {
	if r.write(wire.FromFrame(f)) {
		r.mu.Lock()
		r.frames++
		r.mu.Unlock()
	}
}

// OnSourceReady implements source.Sink.
func (r *Recorder) OnSourceReady(string) {}

// OnSourceLost implements source.Sink.
func (r *Recorder) OnSourceLost(_ string, bodyID uint64) {
	r.write(wire.Lost(bodyID))
}

// OnSourceError implements source.Sink.
func (r *Recorder) OnSourceError(_ string, err error) {
	r.write(wire.Record{Type: wire.TypeError, Message: err.Error()})
}

func (r *Recorder) write(rec wire.Record) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false
	}
	r.err = wire.WriteRecord(r.w, rec)
	return r.err == nil
}

// Close flushes buffered records and closes the underlying file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.err
	if ferr := r.w.Flush(); err == nil {
		err = ferr
	}
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
