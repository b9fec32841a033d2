// Package app wires pose sources, the gesture engine, the store and the action
// plugins into the running mudra service.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/source"
	"github.com/ayusman/mudra/internal/store"
)

// DefaultActionQueue is the number of pending action runs kept before new
// ones are dropped.
const DefaultActionQueue = 32

// ErrRunning is returned by Run when the app is already running.
var ErrRunning = errors.New("app is already running")

// Options configures an App.
type Options struct {
	Store    *store.Store
	Plugins  *plugin.Manager
	Executor *plugin.Executor
	Engine   gesture.Options

	// Sources are opened by Run through the source registry.
	Sources []source.Config
	// GestureFiles are YAML gesture libraries upserted by LoadGestures.
	GestureFiles []string
	// Builtin seeds the bundled gestures into an empty store.
	Builtin bool
	// Retention prunes the recognition log. Zero keeps everything.
	Retention time.Duration

	// QueueSize is the source mux queue length.
	QueueSize int
	// ActionQueue is the pending action buffer. Zero uses DefaultActionQueue.
	ActionQueue int

	Logger *slog.Logger
}

// App is the running service: frames flow from the sources through the mux
// into the engine, and recognitions are logged and dispatched to plugins.
type App struct {
	opts   Options
	logger *slog.Logger
	engine *gesture.Engine
	exec   *plugin.Executor
	jobs   chan job

	mu        sync.RWMutex
	extra     []source.Source
	mux       *source.Mux
	available []source.Availability
	last      *gesture.RecognitionEvent
	running   bool
}

// New creates an App. The engine starts enabled unless the store remembers
// it being switched off.
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Engine.Logger == nil {
		opts.Engine.Logger = logger
	}
	size := opts.ActionQueue
	if size <= 0 {
		size = DefaultActionQueue
	}
	exec := opts.Executor
	if exec == nil {
		exec = plugin.NewExecutor(plugin.DefaultTimeout)
	}

	a := &App{
		opts:   opts,
		logger: logger.With("component", "app"),
		engine: gesture.NewEngine(opts.Engine),
		exec:   exec,
		jobs:   make(chan job, size),
	}
	if opts.Store != nil {
		a.engine.SetEnabled(opts.Store.Settings().Bool(store.SettingEngineEnabled, true))
	}
	a.engine.Subscribe(a.onEvent)
	return a
}

// Engine returns the gesture engine.
func (a *App) Engine() *gesture.Engine {
	return a.engine
}

// Store returns the store, which may be nil.
func (a *App) Store() *store.Store {
	return a.opts.Store
}

// Plugins returns the plugin manager, which may be nil.
func (a *App) Plugins() *plugin.Manager {
	return a.opts.Plugins
}

// DiscoverPlugins rescans the plugin directory.
func (a *App) DiscoverPlugins() error {
	if a.opts.Plugins == nil {
		return nil
	}
	return a.opts.Plugins.Discover()
}

// LoadGestures seeds the bundled gestures, applies the gesture files and
// registers every enabled stored gesture with the engine. Without a store the
// bundled gestures and files go straight into the engine.
func (a *App) LoadGestures() error {
	var files []gesture.Definition
	for _, path := range a.opts.GestureFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read gesture file: %w", err)
		}
		defs, err := gesture.ParseDefinitions(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		files = append(files, defs...)
	}

	if a.opts.Store == nil {
		var defs []gesture.Definition
		if a.opts.Builtin {
			defs = gesture.Builtin()
		}
		for _, d := range append(defs, files...) {
			a.engine.RemoveGesture(d.Name)
			if err := a.engine.AddDefinition(d); err != nil {
				return err
			}
		}
		a.logger.Info("gestures loaded", "count", len(a.engine.Gestures()))
		return nil
	}

	repo := a.opts.Store.Gestures()
	if a.opts.Builtin {
		if err := a.seedBuiltin(repo); err != nil {
			return err
		}
	}
	for _, d := range files {
		if _, err := repo.Upsert(d); err != nil {
			return fmt.Errorf("store gesture %q: %w", d.Name, err)
		}
	}

	gestures, err := repo.ListEnabled()
	if err != nil {
		return fmt.Errorf("list gestures: %w", err)
	}
	for _, g := range gestures {
		a.engine.RemoveGesture(g.Name())
		if err := a.engine.AddDefinition(g.Definition); err != nil {
			a.logger.Warn("skipping stored gesture", "gesture", g.Name(), "error", err)
		}
	}
	a.logger.Info("gestures loaded", "count", len(a.engine.Gestures()))
	return nil
}

func (a *App) seedBuiltin(repo *store.GestureRepository) error {
	for _, d := range gesture.Builtin() {
		_, err := repo.GetByName(d.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		g := &store.Gesture{ID: builtinID(d.Name), Definition: d, Builtin: true, Enabled: true}
		if err := repo.Create(g); err != nil {
			return fmt.Errorf("seed gesture %q: %w", d.Name, err)
		}
		a.logger.Debug("seeded bundled gesture", "gesture", d.Name)
	}
	return nil
}

func builtinID(name string) string {
	return "builtin-" + name
}

// ApplyGesture brings the engine in line with a stored gesture after it was
// created or updated. previous is the gesture's old name, if it was renamed.
func (a *App) ApplyGesture(g *store.Gesture, previous string) error {
	if previous != "" && previous != g.Name() {
		a.engine.RemoveGesture(previous)
	}
	a.engine.RemoveGesture(g.Name())
	if !g.Enabled {
		return nil
	}
	return a.engine.AddDefinition(g.Definition)
}

// RemoveGesture unregisters a gesture from the engine.
func (a *App) RemoveGesture(name string) int {
	return a.engine.RemoveGesture(name)
}

// AddSource attaches an already opened source. It must be called before Run.
func (a *App) AddSource(src source.Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.extra = append(a.extra, src)
}

// Availability reports the outcome of opening the configured sources during
// the last Run.
func (a *App) Availability() []source.Availability {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]source.Availability(nil), a.available...)
}

// SourceStats returns the per-source counters of the running mux.
func (a *App) SourceStats() []source.Stats {
	a.mu.RLock()
	mux := a.mux
	a.mu.RUnlock()
	if mux == nil {
		return nil
	}
	return mux.Stats()
}

// SetEnabled switches recognition on or off and remembers the choice.
func (a *App) SetEnabled(enabled bool) error {
	a.engine.SetEnabled(enabled)
	a.logger.Info("recognition toggled", "enabled", enabled)
	if a.opts.Store == nil {
		return nil
	}
	return a.opts.Store.Settings().SetBool(store.SettingEngineEnabled, enabled)
}

// Enabled reports whether recognition is on.
func (a *App) Enabled() bool {
	return a.engine.Enabled()
}

// LastRecognition returns the most recent recognition, if any.
func (a *App) LastRecognition() (gesture.RecognitionEvent, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return gesture.RecognitionEvent{}, false
	}
	return *a.last, true
}

// onEvent runs on the mux goroutine for every engine event.
func (a *App) onEvent(ev gesture.Event) {
	switch ev.Kind {
	case gesture.EventRecognized:
		r := ev.Recognition
		a.mu.Lock()
		a.last = &r
		a.mu.Unlock()

		a.record(ev)
		a.enqueue(job{event: ev})
	case gesture.EventSourceError:
		a.logger.Debug("source error event", "source", ev.Source, "error", ev.Err)
	}
}

func (a *App) record(ev gesture.Event) {
	if a.opts.Store == nil {
		return
	}
	rec := &store.Recognition{
		Gesture:      ev.Recognition.Gesture,
		BodyID:       ev.Recognition.BodyID,
		Source:       ev.Source,
		Seq:          ev.Recognition.Seq,
		RecognizedAt: ev.Recognition.Timestamp,
	}
	if err := a.opts.Store.Recognitions().Add(rec); err != nil {
		a.logger.Error("failed to log recognition", "gesture", rec.Gesture, "error", err)
	}
}
