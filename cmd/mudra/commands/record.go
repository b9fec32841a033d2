package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/source"
	"github.com/ayusman/mudra/internal/source/replay"
)

var (
	recordSources  []string
	recordDuration time.Duration
)

var recordCmd = &cobra.Command{
	Use:   "record <session-file>",
	Short: "Record a pose session for replay",
	Long: `Record frames from the configured sources into a session file that the
replay source and "mudra watch" can play back.

Recording stops on Ctrl-C, after --duration, or when every source ends.

Examples:
  # Record the camera source for ten seconds
  mudra record --source camera --duration 10s wave.mpk`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringSliceVarP(&recordSources, "source", "s", nil, "record only the named sources")
	recordCmd.Flags().DurationVarP(&recordDuration, "duration", "d", 0, "stop after this long")
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	cfgs, err := selectSources(cfg.Sources, recordSources)
	if err != nil {
		return err
	}
	sources, available := source.Discover(cfgs)
	for _, av := range available {
		if !av.Available {
			logger.Warn("pose source unavailable", "kind", av.Kind, "name", av.Name, "reason", av.Reason)
		}
	}
	if len(sources) == 0 {
		return errors.New("no pose source available to record")
	}

	rec, err := replay.Create(args[0])
	if err != nil {
		return err
	}

	mux := source.NewMux(rec, source.MuxOptions{Logger: logger})
	for _, src := range sources {
		mux.Add(src)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	if recordDuration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, recordDuration)
		defer stop()
	}

	logger.Info("recording", "file", args[0], "sources", len(sources))
	runErr := mux.Run(ctx)
	if err := rec.Close(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	logger.Info("recording finished", "file", args[0], "frames", rec.Frames())
	return runErr
}

// selectSources returns the configured sources with the given names, or all
// of them when names is empty.
func selectSources(cfgs []source.Config, names []string) ([]source.Config, error) {
	if len(names) == 0 {
		return cfgs, nil
	}
	byName := make(map[string]source.Config, len(cfgs))
	for _, c := range cfgs {
		byName[c.DisplayName()] = c
	}
	selected := make([]source.Config, 0, len(names))
	for _, name := range names {
		c, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("no configured source named %q", name)
		}
		selected = append(selected, c)
	}
	return selected, nil
}
