package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wiremockctl/wiremockctl/internal/session"
	"github.com/wiremockctl/wiremockctl/internal/wiremock"
)

var killForce bool

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Remove mock server sessions",
	Long: `Remove mock server sessions from the system.

By default, only removes sessions with status "created" (never started).
Use --force to also kill the server process of running sessions and remove them.

Note: Stopped sessions are handled by 'wiremockctl prune'.`,
	Args: cobra.NoArgs,
	RunE: runKill,
}

func init() {
	rootCmd.AddCommand(killCmd)
	killCmd.Flags().BoolVarP(&killForce, "force", "f", false, "also kill and remove running sessions")
}

func runKill(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	store, err := session.NewStore()
	if err != nil {
		return fmt.Errorf("failed to access session store: %w", err)
	}

	sessions, err := store.ListByStatus(session.StatusCreated, session.StatusRunning)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	removedCount := 0
	skippedRunning := 0

	for _, sess := range sessions {
		switch sess.Status {
		case session.StatusCreated:
			if err := store.Delete(sess.ID); err != nil {
				_, _ = fmt.Fprintf(out, "Warning: failed to delete session %s: %v\n", sess.ID, err)
			} else {
				_, _ = fmt.Fprintf(out, "Removed session: %s (created)\n", sess.ID)
				removedCount++
			}

		case session.StatusRunning:
			if !killForce {
				skippedRunning++
				continue
			}
			action := "Killed and removed"
			if p, err := wiremock.FindProcess(sess.PID, sess.PIDCreateTime); err == nil {
				if err := p.Kill(); err != nil {
					_, _ = fmt.Fprintf(out, "Warning: failed to kill session %s (pid %d): %v\n", sess.ID, sess.PID, err)
				}
			} else {
				// Gone, or the PID now belongs to another process
				Debug("Session %s process not killed: %v", sess.ID, err)
				action = "Removed"
			}
			// Session metadata goes even if the kill failed
			if err := store.Delete(sess.ID); err != nil {
				_, _ = fmt.Fprintf(out, "Warning: failed to delete session %s: %v\n", sess.ID, err)
			} else {
				_, _ = fmt.Fprintf(out, "%s session: %s (running)\n", action, sess.ID)
				removedCount++
			}
		}
	}

	if skippedRunning > 0 {
		_, _ = fmt.Fprintf(out, "Skipped %d running session(s). Use --force to remove them.\n", skippedRunning)
	}

	if removedCount == 0 {
		_, _ = fmt.Fprintln(out, "No sessions to remove.")
	} else {
		_, _ = fmt.Fprintf(out, "Removed %d session(s).\n", removedCount)
	}

	return nil
}
