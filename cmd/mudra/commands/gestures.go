package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

var (
	exportOutput   string
	exportDisabled bool
)

var gesturesCmd = &cobra.Command{
	Use:   "gestures",
	Short: "Manage stored gesture definitions",
	Long: `List, import and export the gesture definitions kept in the database.

The bundled gestures are added to the database the first time it is opened.`,
}

var gesturesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored gestures",
	Args:  cobra.NoArgs,
	RunE:  runGesturesList,
}

var gesturesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored gestures as a YAML library",
	Long: `Write the enabled stored gestures as a YAML gesture library, to stdout or
the file given with -o. The output can be used in gesture_files or imported
with "mudra gestures import".`,
	Args: cobra.NoArgs,
	RunE: runGesturesExport,
}

var gesturesImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Add or replace gestures from YAML libraries",
	Long: `Validate every definition in the given files and store them. A gesture
with the same name as a stored one replaces its definition and keeps its
enabled state.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGesturesImport,
}

func init() {
	gesturesExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	gesturesExportCmd.Flags().BoolVar(&exportDisabled, "all", false, "include disabled gestures")

	gesturesCmd.AddCommand(gesturesListCmd)
	gesturesCmd.AddCommand(gesturesExportCmd)
	gesturesCmd.AddCommand(gesturesImportCmd)
}

// openStore opens the configured database with the bundled gestures seeded.
func openStore(cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	if err := ensureParent(cfg.Database); err != nil {
		return nil, err
	}
	st, err := store.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := app.New(app.Options{Store: st, Builtin: cfg.Engine.Builtin, Logger: logger})
	if err := a.LoadGestures(); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func runGesturesList(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	gestures, err := st.Gestures().List()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), gestureTable(gestures))
	return nil
}

func gestureTable(gestures []*store.Gesture) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "SEGMENTS", "ENABLED", "BUILTIN", "DESCRIPTION")
	for _, g := range gestures {
		t.Row(
			g.Name(),
			strconv.Itoa(len(g.Definition.Segments)),
			strconv.FormatBool(g.Enabled),
			strconv.FormatBool(g.Builtin),
			g.Definition.Description,
		)
	}
	return t.Render()
}

func runGesturesExport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	list := st.Gestures().ListEnabled
	if exportDisabled {
		list = st.Gestures().List
	}
	gestures, err := list()
	if err != nil {
		return err
	}
	defs := make([]gesture.Definition, 0, len(gestures))
	for _, g := range gestures {
		defs = append(defs, g.Definition)
	}
	data, err := gesture.MarshalDefinitions(defs)
	if err != nil {
		return err
	}

	if exportOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(exportOutput, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", exportOutput, err)
	}
	logger.Info("gestures exported", "file", exportOutput, "count", len(defs))
	return nil
}

func runGesturesImport(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	var defs []gesture.Definition
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		parsed, err := gesture.ParseDefinitions(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		defs = append(defs, parsed...)
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, d := range defs {
		if _, err := st.Gestures().Upsert(d); err != nil {
			return fmt.Errorf("store gesture %q: %w", d.Name, err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d gestures\n", len(defs))
	return nil
}
