package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

var (
	serveAddr   string
	serveNoTray bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run recognition, actions and the HTTP API",
	Long: `Open the configured sources, recognize gestures, run the plugin actions
bound to them and serve the REST API, the /api/events WebSocket feed and the
dashboard.

With "tray: true" in the config a system tray menu toggles recognition.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveNoTray, "no-tray", false, "do not show the system tray icon")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	if err := ensureParent(cfg.Database); err != nil {
		return err
	}
	st, err := store.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	a := newApp(cfg, st, logger)
	if err := a.DiscoverPlugins(); err != nil {
		logger.Warn("plugin discovery failed", "dir", cfg.Plugins.Dir, "error", err)
	}
	if err := a.LoadGestures(); err != nil {
		return err
	}

	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		logger.Info("serving static files", "dir", webDir)
	}

	srv := server.New(server.Config{StaticDir: webDir, App: a, Logger: logger})
	defer srv.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	var (
		wg      sync.WaitGroup
		errMu   sync.Mutex
		errs    []error
		collect = func(err error) {
			if err != nil && !errors.Is(err, context.Canceled) {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
		}
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		logger.Info("starting server", "addr", cfg.Server.Addr)
		err := srv.ListenAndServe(ctx, cfg.Server.Addr)
		collect(err)
		if err != nil {
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		collect(a.Run(ctx))
	}()

	if cfg.Tray && !serveNoTray {
		t := tray.New(tray.Options{
			Controller:   a,
			Engine:       a.Engine(),
			DashboardURL: dashboardURL(cfg.Server.Addr),
			OnQuit:       cancel,
			Logger:       logger,
		})
		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		t.Run()
	}

	wg.Wait()
	return errors.Join(errs...)
}

// newApp wires the engine, plugins and sources described by cfg. st may be
// nil for commands that do not persist anything.
func newApp(cfg *config.Config, st *store.Store, logger *slog.Logger) *app.App {
	return app.New(app.Options{
		Store:        st,
		Plugins:      plugin.NewManager(cfg.Plugins.Dir, logger),
		Executor:     plugin.NewExecutor(cfg.Plugins.Timeout),
		Engine:       cfg.EngineOptions(logger),
		Sources:      cfg.Sources,
		GestureFiles: cfg.GestureFiles,
		Builtin:      cfg.Engine.Builtin,
		Retention:    cfg.Retention,
		Logger:       logger,
	})
}

// dashboardURL turns a listen address into a browsable URL.
func dashboardURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// findWebDir searches for the dashboard directory in common locations.
// It checks "web", "../web", "../../web" and ~/.mudra/web, and returns the
// first existing directory or the empty string.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeWebDir := filepath.Join(config.BaseDir(), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
