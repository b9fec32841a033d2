package source

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ayusman/mudra/internal/skeleton"
)

// ErrMuxRunning is returned by Mux.Run when the mux is already running.
var ErrMuxRunning = errors.New("mux already running")

// DefaultQueueSize is the queue length used when MuxOptions.QueueSize is zero.
const DefaultQueueSize = 256

type msgKind int

const (
	msgFrame msgKind = iota
	msgReady
	msgLost
	msgError
	msgEnd
)

type message struct {
	kind   msgKind
	index  int
	source string
	frame  skeleton.Frame
	bodyID uint64
	err    error
}

// Stats are the counters of one source attached to a Mux.
type Stats struct {
	Name         string       `json:"name"`
	Capabilities Capabilities `json:"capabilities"`
	Running      bool         `json:"running"`
	Frames       uint64       `json:"frames"`
	Lost         uint64       `json:"lost"`
	Errors       uint64       `json:"errors"`
	LastError    string       `json:"last_error,omitempty"`
}

type sourceState struct {
	src     Source
	running atomic.Bool
	frames  atomic.Uint64
	lost    atomic.Uint64
	errors  atomic.Uint64
	lastErr atomic.Value // string

	// bodies seen and not yet lost; consumer goroutine only.
	bodies map[uint64]struct{}
}

// MuxOptions configures a Mux.
type MuxOptions struct {
	QueueSize int
	Logger    *slog.Logger
}

// Mux runs several sources and delivers everything they produce to one sink
// from a single goroutine. Per-source order is preserved, and the sink is
// never called concurrently.
//
// Producers block when the queue is full rather than dropping frames, since a
// missing frame changes what a gesture matcher sees.
type Mux struct {
	sink    Sink
	logger  *slog.Logger
	queue   chan message
	running atomic.Bool

	mu      sync.RWMutex
	sources []*sourceState
}

// NewMux creates a mux delivering into sink.
func NewMux(sink Sink, opts MuxOptions) *Mux {
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Mux{
		sink:   sink,
		logger: logger.With("component", "source-mux"),
		queue:  make(chan message, size),
	}
}

// Add attaches a source. Sources must be added before Run.
func (m *Mux) Add(src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, &sourceState{src: src, bodies: make(map[uint64]struct{})})
}

// Stats returns the counters of every attached source in the order added.
// Safe to call from any goroutine.
func (m *Mux) Stats() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Stats, len(m.sources))
	for i, s := range m.sources {
		st := Stats{
			Name:         s.src.Name(),
			Capabilities: s.src.Capabilities(),
			Running:      s.running.Load(),
			Frames:       s.frames.Load(),
			Lost:         s.lost.Load(),
			Errors:       s.errors.Load(),
		}
		if v, ok := s.lastErr.Load().(string); ok {
			st.LastError = v
		}
		out[i] = st
	}
	return out
}

// Run starts every source and drains the queue until all sources have ended or
// ctx is cancelled. When a source ends, or on cancellation, OnSourceLost is
// delivered for every body it was still tracking. After cancellation no
// further frames are delivered.
func (m *Mux) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrMuxRunning
	}
	defer m.running.Store(false)

	m.mu.RLock()
	states := make([]*sourceState, len(m.sources))
	copy(states, m.sources)
	m.mu.RUnlock()

	if len(states) == 0 {
		m.logger.Warn("no pose sources attached")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i, s := range states {
		wg.Add(1)
		s.running.Store(true)
		go func(i int, s *sourceState) {
			defer wg.Done()
			name := s.src.Name()
			err := s.src.Run(ctx, &muxSink{index: i, name: name, mux: m, ctx: ctx})
			if Canceled(ctx, err) {
				err = nil
			}
			m.enqueue(ctx, message{kind: msgEnd, index: i, source: name, err: err})
		}(i, s)
	}

	active := len(states)
	for active > 0 {
		select {
		case <-ctx.Done():
			wg.Wait()
			for _, s := range states {
				s.running.Store(false)
				m.loseAll(s)
			}
			m.logger.Debug("mux stopped")
			return nil
		case msg := <-m.queue:
			if ctx.Err() != nil {
				continue
			}
			if m.dispatch(states[msg.index], msg) {
				active--
			}
		}
	}

	wg.Wait()
	return nil
}

// dispatch delivers one message. It reports whether the source has ended.
func (m *Mux) dispatch(s *sourceState, msg message) bool {
	switch msg.kind {
	case msgFrame:
		s.frames.Add(1)
		s.bodies[msg.frame.BodyID()] = struct{}{}
		m.sink.OnFrame(msg.frame)
	case msgReady:
		m.sink.OnSourceReady(msg.source)
	case msgLost:
		s.lost.Add(1)
		delete(s.bodies, msg.bodyID)
		m.sink.OnSourceLost(msg.source, msg.bodyID)
	case msgError:
		m.recordError(s, msg.err)
		m.sink.OnSourceError(msg.source, msg.err)
	case msgEnd:
		s.running.Store(false)
		if msg.err != nil {
			m.recordError(s, msg.err)
			m.sink.OnSourceError(msg.source, msg.err)
		}
		m.loseAll(s)
		m.logger.Info("pose source ended", "source", msg.source)
		return true
	}
	return false
}

func (m *Mux) recordError(s *sourceState, err error) {
	s.errors.Add(1)
	s.lastErr.Store(err.Error())
}

func (m *Mux) loseAll(s *sourceState) {
	name := s.src.Name()
	for id := range s.bodies {
		delete(s.bodies, id)
		s.lost.Add(1)
		m.sink.OnSourceLost(name, id)
	}
}

func (m *Mux) enqueue(ctx context.Context, msg message) {
	select {
	case m.queue <- msg:
	case <-ctx.Done():
	}
}

// muxSink is the Sink handed to one source.
type muxSink struct {
	index int
	name  string
	mux   *Mux
	ctx   context.Context
}

func (s *muxSink) OnFrame(f skeleton.Frame) {
	if f.Source() != s.name {
		info := f.Info()
		info.Source = s.name
		f = f.WithInfo(info)
	}
	s.mux.enqueue(s.ctx, message{kind: msgFrame, index: s.index, source: s.name, frame: f})
}

func (s *muxSink) OnSourceReady(string) {
	s.mux.enqueue(s.ctx, message{kind: msgReady, index: s.index, source: s.name})
}

func (s *muxSink) OnSourceLost(_ string, bodyID uint64) {
	s.mux.enqueue(s.ctx, message{kind: msgLost, index: s.index, source: s.name, bodyID: bodyID})
}

func (s *muxSink) OnSourceError(_ string, err error) {
	s.mux.enqueue(s.ctx, message{kind: msgError, index: s.index, source: s.name, err: err})
}
