package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show source backends and configured sources",
	Long: `List the compiled-in source backends, then try to open every configured
source and report whether it is available and why not.`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	_, available := source.Discover(cfg.Sources)
	printSources(cmd.OutOrStdout(), source.Kinds(), available)
	return nil
}

func printSources(w io.Writer, kinds []string, available []source.Availability) {
	fmt.Fprintf(w, "Backends: %s\n", strings.Join(kinds, ", "))
	if len(available) == 0 {
		fmt.Fprintln(w, "No sources configured.")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "KIND", "STATUS", "CAPABILITIES")
	for _, a := range available {
		status := "available"
		if !a.Available {
			status = "unavailable: " + a.Reason
		}
		t.Row(a.Name, a.Kind, status, capabilityList(a.Capabilities))
	}
	fmt.Fprintln(w, t.Render())
}

func capabilityList(c source.Capabilities) string {
	var caps []string
	if c.Skeleton {
		caps = append(caps, "skeleton")
	}
	if c.MultiBody {
		caps = append(caps, "multi-body")
	}
	if c.Color {
		caps = append(caps, "color")
	}
	if c.Depth {
		caps = append(caps, "depth")
	}
	if c.MaxBodies > 0 {
		caps = append(caps, fmt.Sprintf("max-bodies=%d", c.MaxBodies))
	}
	if len(caps) == 0 {
		return "-"
	}
	return strings.Join(caps, ",")
}
