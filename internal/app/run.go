package app

import (
	"context"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/source"
)

// PruneInterval is how often the recognition log is pruned while running.
const PruneInterval = time.Hour

// job is one recognition waiting for its bound actions to run.
type job struct {
	event gesture.Event
}

// Run opens the configured sources and feeds them to the engine until every
// source has ended or ctx is cancelled. Sources that cannot be opened are
// reported by Availability and skipped. Pending actions are finished before
// Run returns.
func (a *App) Run(ctx context.Context) error {
	sources, available := source.Discover(a.opts.Sources)
	for _, av := range available {
		if !av.Available {
			a.logger.Warn("pose source unavailable", "kind", av.Kind, "name", av.Name, "reason", av.Reason)
		}
	}

	mux := source.NewMux(a.engine, source.MuxOptions{QueueSize: a.opts.QueueSize, Logger: a.logger})

	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrRunning
	}
	a.running = true
	a.available = available
	for _, src := range append(sources, a.extra...) {
		mux.Add(src)
	}
	a.mux = mux
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	done := make(chan struct{})
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		a.runActions(ctx, done)
	}()
	go a.runPrune(ctx, done)

	a.logger.Info("recognition started", "sources", len(mux.Stats()), "gestures", len(a.engine.Gestures()))
	err := mux.Run(ctx)
	close(done)
	<-workerDone
	a.logger.Info("recognition stopped")
	return err
}

func (a *App) enqueue(j job) {
	select {
	case a.jobs <- j:
	default:
		a.logger.Warn("action queue full, dropping recognition", "gesture", j.event.Recognition.Gesture)
	}
}

// runActions executes queued jobs until done is closed, then drains what is
// left. Jobs outlive ctx so that recognitions queued before shutdown still
// run, each bounded by the executor timeout.
func (a *App) runActions(ctx context.Context, done <-chan struct{}) {
	ctx = context.WithoutCancel(ctx)
	for {
		select {
		case j := <-a.jobs:
			a.dispatch(ctx, j)
		case <-done:
			for {
				select {
				case j := <-a.jobs:
					a.dispatch(ctx, j)
				default:
					return
				}
			}
		}
	}
}

// dispatch runs every enabled action bound to the recognized gesture in the
// order they were created. A failing action does not stop the others.
func (a *App) dispatch(ctx context.Context, j job) {
	if a.opts.Store == nil || a.opts.Plugins == nil {
		return
	}
	r := j.event.Recognition

	g, err := a.opts.Store.Gestures().GetByName(r.Gesture)
	if err != nil {
		a.logger.Warn("recognized gesture not in store", "gesture", r.Gesture, "error", err)
		return
	}
	actions, err := a.opts.Store.Actions().ListByGesture(g.ID)
	if err != nil {
		a.logger.Error("failed to list actions", "gesture", r.Gesture, "error", err)
		return
	}

	for _, act := range actions {
		p, err := a.opts.Plugins.Resolve(act.PluginName, act.ActionName)
		if err != nil {
			a.logger.Warn("action skipped", "gesture", r.Gesture, "plugin", act.PluginName, "action", act.ActionName, "error", err)
			continue
		}
		req := &plugin.Request{
			Action:    act.ActionName,
			Gesture:   r.Gesture,
			BodyID:    r.BodyID,
			Source:    j.event.Source,
			Seq:       r.Seq,
			Timestamp: r.Timestamp,
			Config:    act.Config,
		}

		start := time.Now()
		resp, err := a.exec.Execute(ctx, p, req)
		logger := a.logger.With("gesture", r.Gesture, "plugin", act.PluginName, "action", act.ActionName, "duration", time.Since(start))
		switch {
		case err != nil:
			logger.Error("action failed", "error", err)
		case !resp.Success:
			logger.Warn("action reported failure", "error", resp.Error)
		default:
			logger.Info("action executed")
		}
	}
}

// runPrune deletes recognition log entries older than the retention period.
func (a *App) runPrune(ctx context.Context, done <-chan struct{}) {
	if a.opts.Store == nil || a.opts.Retention <= 0 {
		return
	}
	prune := func() {
		n, err := a.opts.Store.Recognitions().Prune(time.Now().Add(-a.opts.Retention))
		if err != nil {
			a.logger.Error("failed to prune recognition log", "error", err)
			return
		}
		if n > 0 {
			a.logger.Debug("pruned recognition log", "removed", n)
		}
	}

	prune()
	ticker := time.NewTicker(PruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			prune()
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}
