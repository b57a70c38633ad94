package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/wiremockctl/wiremockctl/internal/mappings"
	"github.com/wiremockctl/wiremockctl/internal/wiremock"
)

var resetCmd = &cobra.Command{
	Use:   "reset [session-id]",
	Short: "Reset stub mappings to the ones on disk",
	Long: `Reset the server's stub mappings, discarding those added over the admin API
and reloading the files under <path>/mappings, and report how many files are there.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReset,
}

var saveCmd = &cobra.Command{
	Use:   "save [session-id]",
	Short: "Persist in-memory stub mappings to disk",
	Long: `Ask the server to write its in-memory stub mappings to <path>/mappings and
print which mapping files changed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSave,
}

var delayCmd = &cobra.Command{
	Use:   "delay <milliseconds> [session-id]",
	Short: "Add a fixed delay to every stubbed response",
	Long: `Set a global fixed delay, in milliseconds, applied to every response the
server returns. The value is sent as given; the server decides what it accepts.

Examples:
  wiremockctl delay 500
  wiremockctl delay 0 3f2a9c1d
  wiremockctl delay -- -1`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDelay,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(delayCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(args)
	if err != nil {
		return err
	}

	if err := t.ctl.Reset(cmd.Context()); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Mappings reset on %s\n", t.ctl.BaseURL())

	dir := filepath.Join(t.ctl.StandalonePath(), wiremock.MappingsDir)
	files, err := mappings.List(dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d mapping file(s) in %s\n", len(files), dir)
	for _, f := range files {
		Debug("Mapping file: %s", f)
	}
	return nil
}

func runSave(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(args)
	if err != nil {
		return err
	}

	dir := filepath.Join(t.ctl.StandalonePath(), wiremock.MappingsDir)
	pre, err := mappings.Take(dir)
	if err != nil {
		return fmt.Errorf("failed to snapshot %s: %w", dir, err)
	}

	if err := t.ctl.Save(cmd.Context()); err != nil {
		return err
	}

	post, err := mappings.Take(dir)
	if err != nil {
		return fmt.Errorf("failed to snapshot %s: %w", dir, err)
	}

	mappings.PrintSummary(cmd.OutOrStdout(), dir, mappings.Diff(pre, post))
	return nil
}

func runDelay(cmd *cobra.Command, args []string) error {
	ms, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid delay %q: must be a whole number of milliseconds", args[0])
	}

	t, err := resolveTarget(args[1:])
	if err != nil {
		return err
	}

	if err := t.ctl.AddFixedDelay(cmd.Context(), ms); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Fixed delay of %dms set on %s\n", ms, t.ctl.BaseURL())
	return nil
}
