package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/config"

	// Source backends register themselves with the source registry.
	_ "github.com/ayusman/mudra/internal/source/mediapipe"
	_ "github.com/ayusman/mudra/internal/source/replay"
	_ "github.com/ayusman/mudra/internal/source/wsclient"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "mudra",
	Short: "Skeletal gesture recognition",
	Long: `mudra - recognizes body gestures in skeleton pose streams and runs
plugin actions bound to them.

Pose data comes from configured sources: a camera through a MediaPipe pose
service, a WebSocket pose feed, or a recorded session file.

Configuration is read from ~/.mudra/config.yaml unless --config is given.
A missing file means defaults.

Examples:
  # Run recognition with the dashboard and API on :8080
  mudra serve

  # Print events while replaying a recorded session
  mudra watch session.mpk

  # Export the stored gesture library
  mudra gestures export -o gestures.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.mudra/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(gesturesCmd)
	rootCmd.AddCommand(sourcesCmd)
}

// loadConfig reads the configuration and builds the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.Log.NewLogger(os.Stderr, verbose)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// ensureParent creates the directory holding path.
func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
