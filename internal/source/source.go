// Package source normalizes pose backends into one stream of skeleton frames.
//
// A Source pushes frames and lifecycle signals into a Sink. The gesture engine
// is a Sink; a Mux serializes several sources into one.
package source

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/ayusman/mudra/internal/skeleton"
)

var (
	// ErrSourceUnavailable is returned when a backend cannot be initialized,
	// for example because its camera, runtime or peer is missing.
	ErrSourceUnavailable = errors.New("pose source unavailable")

	// ErrSourceClosed is returned by Run on a source that has already run.
	// Sources are not restartable; open a new one instead.
	ErrSourceClosed = errors.New("pose source already consumed")

	// ErrUnknownKind is returned by Open for an unregistered backend kind.
	ErrUnknownKind = errors.New("unknown pose source kind")
)

// Sink receives frames and lifecycle signals from a Source.
type Sink interface {
	// OnFrame delivers one frame. Frames from one source arrive in order.
	OnFrame(f skeleton.Frame)
	// OnSourceReady reports that the source is producing frames.
	OnSourceReady(source string)
	// OnSourceLost reports that a tracked body disappeared.
	OnSourceLost(source string, bodyID uint64)
	// OnSourceError reports a problem. It is informational; the source
	// decides whether to keep running.
	OnSourceError(source string, err error)
}

// Capabilities describes what a backend can provide.
type Capabilities struct {
	Skeleton  bool `json:"skeleton"`
	Color     bool `json:"color"`
	Depth     bool `json:"depth"`
	MultiBody bool `json:"multi_body"`
	MaxBodies int  `json:"max_bodies"`
}

// Source is a backend producing skeleton frames.
type Source interface {
	// Name identifies the source in frames and events.
	Name() string
	// Capabilities reports what the backend provides.
	Capabilities() Capabilities
	// Run streams into sink until the stream ends or ctx is cancelled.
	// A cancelled context is not an error. Calling Run a second time
	// returns ErrSourceClosed.
	Run(ctx context.Context, sink Sink) error
}

// Once guards a source against being run twice.
type Once struct {
	used atomic.Bool
}

// Start marks the source as consumed. It returns ErrSourceClosed if it already was.
func (o *Once) Start() error {
	if !o.used.CompareAndSwap(false, true) {
		return ErrSourceClosed
	}
	return nil
}

// Canceled reports whether err only signals that ctx was cancelled.
func Canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
