package cmd

import (
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/wiremockctl/wiremockctl/internal/artifacts"
	"github.com/wiremockctl/wiremockctl/internal/session"
)

var (
	pruneAll       bool
	pruneArtifacts bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Clean up stopped sessions and downloads",
	Long: `Clean up session records and their logs.

This command removes:
  - Stopped sessions and their log files
  - All session records (with --all; running servers are left alone)
  - The downloaded standalone jar for the configured version (with --artifacts)`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	pruneCmd.Flags().BoolVarP(&pruneAll, "all", "a", false, "remove all session records (including running)")
	pruneCmd.Flags().BoolVar(&pruneArtifacts, "artifacts", false, "also remove the downloaded standalone jar")
}

func runPrune(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	store, err := session.NewStore()
	if err != nil {
		return fmt.Errorf("failed to access session store: %w", err)
	}

	sessions, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	refreshStatus(store, sessions)

	doomed := lo.Filter(sessions, func(s *session.Session, _ int) bool {
		return pruneAll || s.Status == session.StatusStopped
	})

	removedCount := 0
	for _, sess := range doomed {
		if err := store.Delete(sess.ID); err != nil {
			_, _ = fmt.Fprintf(out, "Warning: failed to delete session %s: %v\n", sess.ID, err)
			continue
		}
		_, _ = fmt.Fprintf(out, "Removed session: %s\n", sess.ID)
		removedCount++
	}

	if removedCount == 0 {
		_, _ = fmt.Fprintln(out, "No sessions to remove.")
	} else {
		_, _ = fmt.Fprintf(out, "Removed %d session(s) from %s.\n", removedCount, store.Dir())
	}

	if pruneArtifacts {
		wcfg, err := baseConfig()
		if err != nil {
			return err
		}
		mgr := artifacts.NewManager(wcfg.StandalonePath, cfg.DownloadURL, slog.Default())
		if err := mgr.RemoveJar(wcfg.Version); err != nil {
			return fmt.Errorf("failed to remove jar: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Removed %s\n", mgr.JarPath(wcfg.Version))
	}

	return nil
}
