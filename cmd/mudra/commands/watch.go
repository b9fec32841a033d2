package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/source/replay"
)

var (
	watchJSON     bool
	watchJQ       string
	watchRealtime bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [session-file...]",
	Short: "Print engine events",
	Long: `Run the engine without actions or persistence and print every event.

Session files given as arguments are replayed instead of the configured
sources. Gestures are the bundled set plus the configured gesture files.

Examples:
  # Watch the configured camera or network sources
  mudra watch

  # Replay a session at its recorded speed
  mudra watch --realtime session.mpk

  # Only print the gesture names
  mudra watch --jq 'select(.kind == "recognized") | .gesture' session.mpk`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "print events as JSON lines")
	watchCmd.Flags().StringVar(&watchJQ, "jq", "", "jq expression applied to each JSON event")
	watchCmd.Flags().BoolVar(&watchRealtime, "realtime", false, "pace replayed sessions by their timestamps")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	printer, err := newEventPrinter(cmd.OutOrStdout(), watchJSON, watchJQ)
	if err != nil {
		return err
	}

	opts := app.Options{
		Engine:       cfg.EngineOptions(logger),
		Sources:      cfg.Sources,
		GestureFiles: cfg.GestureFiles,
		Builtin:      true,
		Logger:       logger,
	}
	if len(args) > 0 {
		opts.Sources = nil
	}
	a := app.New(opts)
	for _, path := range args {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		a.AddSource(replay.New(name, path, replay.Options{Realtime: watchRealtime, Logger: logger}))
	}
	if err := a.LoadGestures(); err != nil {
		return err
	}
	a.Engine().Subscribe(printer.Print)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	return a.Run(ctx)
}

var (
	styleTime       = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
	styleRecognized = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	styleLost       = lipgloss.NewStyle().Foreground(lipgloss.Color("#e3b341"))
	styleReady      = lipgloss.NewStyle().Foreground(lipgloss.Color("#58a6ff"))
	styleError      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f85149"))
)

// eventPrinter writes engine events as styled text, JSON lines or jq
// results.
type eventPrinter struct {
	mu    sync.Mutex
	w     io.Writer
	json  bool
	query *gojq.Query
}

func newEventPrinter(w io.Writer, asJSON bool, expr string) (*eventPrinter, error) {
	p := &eventPrinter{w: w, json: asJSON}
	if expr != "" {
		query, err := gojq.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
		}
		p.query = query
	}
	return p, nil
}

// Print writes one event.
func (p *eventPrinter) Print(ev gesture.Event) {
	msg := server.NewEventMessage(ev)

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.query != nil:
		if err := p.runQuery(msg); err != nil {
			fmt.Fprintln(os.Stderr, styleError.Render(err.Error()))
		}
	case p.json:
		data, err := json.Marshal(msg)
		if err != nil {
			return
		}
		fmt.Fprintln(p.w, string(data))
	default:
		fmt.Fprintln(p.w, formatEvent(msg, time.Now()))
	}
}

func (p *eventPrinter) runQuery(msg server.EventMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return err
	}

	iter := p.query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := v.(error); ok {
			return fmt.Errorf("jq error: %w", err)
		}
		if s, ok := v.(string); ok {
			fmt.Fprintln(p.w, s)
			continue
		}
		out, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal jq result: %w", err)
		}
		fmt.Fprintln(p.w, string(out))
	}
}

// formatEvent renders one event line. Recognitions use their frame
// timestamp; other events use now.
func formatEvent(msg server.EventMessage, now time.Time) string {
	ts := now
	if !msg.Timestamp.IsZero() {
		ts = msg.Timestamp
	}
	prefix := styleTime.Render(ts.Format("15:04:05.000"))

	switch msg.Kind {
	case gesture.EventRecognized.String():
		return fmt.Sprintf("%s %s body=%d source=%s seq=%d", prefix,
			styleRecognized.Render(msg.Gesture), msg.BodyID, msg.Source, msg.Seq)
	case gesture.EventTrackingLost.String():
		return fmt.Sprintf("%s %s body=%d source=%s", prefix, styleLost.Render("tracking lost"), msg.BodyID, msg.Source)
	case gesture.EventSourceReady.String():
		return fmt.Sprintf("%s %s %s", prefix, styleReady.Render("source ready"), msg.Source)
	case gesture.EventSourceError.String():
		return fmt.Sprintf("%s %s %s: %s", prefix, styleError.Render("source error"), msg.Source, msg.Error)
	default:
		return fmt.Sprintf("%s %s", prefix, msg.Kind)
	}
}
