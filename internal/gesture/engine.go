package gesture

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/skeleton"
)

// Mode selects how the engine handles frames from several bodies.
type Mode int

const (
	// SingleBody follows one body at a time. A frame from a different body
	// resets every matcher before it is evaluated.
	SingleBody Mode = iota
	// MultiBody keeps an independent set of matchers per body.
	MultiBody
)

// ParseMode parses "single" or "multi". The empty string is SingleBody.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "", "single":
		return SingleBody, true
	case "multi":
		return MultiBody, true
	default:
		return SingleBody, false
	}
}

// EventKind identifies what an Event reports.
type EventKind int

const (
	EventRecognized EventKind = iota + 1
	EventTrackingLost
	EventSourceReady
	EventSourceError
)

func (k EventKind) String() string {
	switch k {
	case EventRecognized:
		return "recognized"
	case EventTrackingLost:
		return "tracking-lost"
	case EventSourceReady:
		return "source-ready"
	case EventSourceError:
		return "source-error"
	default:
		return "unknown"
	}
}

// Event is delivered to engine listeners.
// Recognition is only set for EventRecognized, Err only for EventSourceError.
type Event struct {
	Kind        EventKind
	Recognition RecognitionEvent
	BodyID      uint64
	Source      string
	Err         error
}

// Options configures an Engine.
type Options struct {
	Mode Mode
	// Timeout is the default Matcher.Timeout for registered gestures.
	Timeout int
	Logger  *slog.Logger
}

type subscription struct {
	id string
	fn func(Event)
}

// Engine fans frames out to every registered gesture and republishes
// completions to its listeners.
//
// When any gesture completes on a frame, every matcher following that body is
// reset after the frame, so only one gesture context is active at a time.
// Frames must be delivered from a single goroutine in arrival order; the
// engine guards its state with a mutex so configuration and subscription
// calls may come from anywhere.
type Engine struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	gestures []*Matcher
	bodies   map[uint64][]*Matcher
	current  uint64
	hasBody  bool
	enabled  bool
	fired    []RecognitionEvent

	subMu sync.RWMutex
	subs  []subscription
}

// NewEngine creates an engine with no gestures.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		opts:    opts,
		logger:  logger.With("component", "gesture-engine"),
		bodies:  make(map[uint64][]*Matcher),
		enabled: true,
	}
}

// Mode returns the body handling mode.
func (e *Engine) Mode() Mode { return e.opts.Mode }

// AddGesture registers a gesture built from the given segments.
// The segments are owned by the engine afterwards. Gestures added while frames
// are flowing take part from the next frame on.
func (e *Engine) AddGesture(name string, segments ...Segment) error {
	m, err := NewMatcher(name, segments...)
	if err != nil {
		return err
	}
	m.Timeout = e.opts.Timeout
	e.addMatcher(m)
	return nil
}

func (e *Engine) addMatcher(m *Matcher) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m.OnRecognized = e.collect
	e.gestures = append(e.gestures, m)
	for id, ms := range e.bodies {
		e.bodies[id] = append(ms, e.cloneMatcher(m))
	}
	e.logger.Debug("gesture registered", "name", m.Name(), "segments", m.Len())
}

// RemoveGesture unregisters every gesture with the given name and returns how
// many were removed.
func (e *Engine) RemoveGesture(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	keep := make([]bool, len(e.gestures))
	removed := 0
	for i, m := range e.gestures {
		keep[i] = m.Name() != name
		if !keep[i] {
			removed++
		}
	}
	if removed == 0 {
		return 0
	}

	e.gestures = filterMatchers(e.gestures, keep)
	for id, ms := range e.bodies {
		e.bodies[id] = filterMatchers(ms, keep)
	}
	return removed
}

func filterMatchers(ms []*Matcher, keep []bool) []*Matcher {
	out := ms[:0]
	for i, m := range ms {
		if keep[i] {
			out = append(out, m)
		}
	}
	for i := len(out); i < len(ms); i++ {
		ms[i] = nil
	}
	return out
}

// Gestures returns the registered gesture names in registration order.
func (e *Engine) Gestures() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, len(e.gestures))
	for i, m := range e.gestures {
		names[i] = m.Name()
	}
	return names
}

// SetEnabled turns frame processing on or off. Disabling clears all progress.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.enabled = enabled
	if !enabled {
		e.resetLocked()
	}
}

// Enabled reports whether frames are being processed.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Reset clears the progress of every matcher for every body.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	for _, m := range e.gestures {
		m.Reset()
	}
	e.hasBody = false
	e.bodies = make(map[uint64][]*Matcher)
}

// UpdateAllGestures evaluates f against every registered gesture in
// registration order. Recognitions are published after all matchers have seen
// the frame and have been reset.
func (e *Engine) UpdateAllGestures(f skeleton.Frame) {
	e.mu.Lock()
	if !e.enabled {
		e.mu.Unlock()
		return
	}

	matchers := e.matchersFor(f.BodyID())
	for _, m := range matchers {
		m.Update(f)
	}

	fired := e.fired
	e.fired = nil
	if len(fired) > 0 {
		for _, m := range matchers {
			m.Reset()
		}
	}
	e.mu.Unlock()

	for _, r := range fired {
		e.logger.Info("gesture recognized", "gesture", r.Gesture, "body", r.BodyID, "seq", r.Seq)
		e.publish(Event{
			Kind:        EventRecognized,
			Recognition: r,
			BodyID:      r.BodyID,
			Source:      f.Source(),
		})
	}
}

// matchersFor returns the live matchers for a body. Callers hold e.mu.
func (e *Engine) matchersFor(bodyID uint64) []*Matcher {
	if e.opts.Mode == MultiBody {
		ms, ok := e.bodies[bodyID]
		if !ok {
			ms = make([]*Matcher, len(e.gestures))
			for i, m := range e.gestures {
				ms[i] = e.cloneMatcher(m)
			}
			e.bodies[bodyID] = ms
			e.logger.Debug("tracking new body", "body", bodyID)
		}
		return ms
	}

	if !e.hasBody || e.current != bodyID {
		if e.hasBody {
			e.logger.Debug("tracked body changed", "from", e.current, "to", bodyID)
		}
		for _, m := range e.gestures {
			m.Reset()
		}
		e.current = bodyID
		e.hasBody = true
	}
	return e.gestures
}

func (e *Engine) cloneMatcher(m *Matcher) *Matcher {
	c := m.clone()
	c.OnRecognized = e.collect
	return c
}

// collect records a recognition during UpdateAllGestures. Callers hold e.mu.
func (e *Engine) collect(r RecognitionEvent) {
	e.fired = append(e.fired, r)
}

// OnFrame implements source.Sink.
func (e *Engine) OnFrame(f skeleton.Frame) {
	e.UpdateAllGestures(f)
}

// OnSourceReady implements source.Sink.
func (e *Engine) OnSourceReady(source string) {
	e.logger.Info("pose source ready", "source", source)
	e.publish(Event{Kind: EventSourceReady, Source: source})
}

// OnSourceLost implements source.Sink. Progress for the body is discarded.
func (e *Engine) OnSourceLost(source string, bodyID uint64) {
	e.mu.Lock()
	if e.opts.Mode == MultiBody {
		delete(e.bodies, bodyID)
	} else if e.hasBody && e.current == bodyID {
		for _, m := range e.gestures {
			m.Reset()
		}
		e.hasBody = false
	}
	e.mu.Unlock()

	e.logger.Debug("tracking lost", "source", source, "body", bodyID)
	e.publish(Event{Kind: EventTrackingLost, BodyID: bodyID, Source: source})
}

// OnSourceError implements source.Sink. Errors are reported, never fatal.
func (e *Engine) OnSourceError(source string, err error) {
	e.logger.Warn("pose source error", "source", source, "error", err)
	e.publish(Event{Kind: EventSourceError, Source: source, Err: err})
}

// Subscribe registers a listener and returns a handle for Unsubscribe.
// Listeners are called synchronously, in subscription order, on the
// goroutine delivering frames. They may call back into the engine.
func (e *Engine) Subscribe(fn func(Event)) string {
	id := uuid.NewString()

	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subs = append(e.subs, subscription{id: id, fn: fn})
	return id
}

// Unsubscribe removes a listener. It reports whether the handle was known.
func (e *Engine) Unsubscribe(id string) bool {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	for i, s := range e.subs {
		if s.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return true
		}
	}
	return false
}

func (e *Engine) publish(ev Event) {
	e.subMu.RLock()
	subs := make([]subscription, len(e.subs))
	copy(subs, e.subs)
	e.subMu.RUnlock()

	for _, s := range subs {
		if s.fn != nil {
			s.fn(ev)
		}
	}
}
