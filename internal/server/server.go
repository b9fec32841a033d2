// Package server provides the HTTP API of the mudra service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// ShutdownTimeout bounds a graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	// App enables the engine, source, plugin and event endpoints. Its store is
	// used when Store is nil.
	App    *app.App
	Logger *slog.Logger
}

// Server is the HTTP front end of the service.
type Server struct {
	config Config
	logger *slog.Logger
	mux    *http.ServeMux
	start  time.Time
	events *EventsHandler
	subID  string
}

// New creates a Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Store == nil && config.App != nil {
		config.Store = config.App.Store()
	}

	s := &Server{
		config: config,
		logger: logger.With("component", "server"),
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	a := s.config.App
	if s.config.Store != nil {
		var syncer api.GestureSyncer
		if a != nil {
			syncer = a
		}
		gestures := api.NewGestureHandler(s.config.Store, syncer)
		s.mux.Handle("/api/gestures", gestures)
		s.mux.Handle("/api/gestures/", gestures)

		actions := api.NewActionHandler(s.config.Store, nil)
		if a != nil {
			actions = api.NewActionHandler(s.config.Store, a.Plugins())
		}
		s.mux.Handle("/api/actions", actions)
		s.mux.Handle("/api/actions/", actions)

		s.mux.Handle("/api/recognitions", api.NewRecognitionHandler(s.config.Store))
	}

	if a != nil {
		s.mux.Handle("/api/sources", api.NewSourcesHandler(a))
		s.mux.Handle("/api/engine", api.NewEngineHandler(a))
		if a.Plugins() != nil {
			plugins := api.NewPluginsHandler(a.Plugins())
			s.mux.Handle("/api/plugins", plugins)
			s.mux.Handle("/api/plugins/", plugins)
		}

		s.events = NewEventsHandler(s.logger)
		s.subID = a.Engine().Subscribe(s.events.Publish)
		s.mux.Handle("/api/events", s.events)
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	}
	if a := s.config.App; a != nil {
		response["enabled"] = a.Enabled()
		response["gestures"] = len(a.Engine().Gestures())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// Close detaches the server from the engine and disconnects event clients.
func (s *Server) Close() {
	if s.events == nil {
		return
	}
	s.config.App.Engine().Unsubscribe(s.subID)
	s.events.Close()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
