package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/wiremockctl/wiremockctl/internal/session"
	"github.com/wiremockctl/wiremockctl/internal/wiremock"
)

var psAll bool

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List mock server sessions",
	Long: `List mock server sessions started by wiremockctl.

Running sessions whose process has exited are marked stopped. Use --all to
include stopped sessions.`,
	Args: cobra.NoArgs,
	RunE: runPs,
}

func init() {
	psCmd.Flags().BoolVarP(&psAll, "all", "a", false, "include stopped sessions")
	rootCmd.AddCommand(psCmd)
}

func runPs(cmd *cobra.Command, args []string) error {
	store, err := session.NewStore()
	if err != nil {
		return fmt.Errorf("failed to access session store: %w", err)
	}

	sessions, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	refreshStatus(store, sessions)

	out := cmd.OutOrStdout()
	shown := 0
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPORT\tPID\tSTATUS\tSTARTED\tPATH")
	_, _ = fmt.Fprintln(w, "--\t----\t---\t------\t-------\t----")

	for _, sess := range sessions {
		if !psAll && sess.Status == session.StatusStopped {
			continue
		}
		status := sess.Status
		if sess.ExitReason != "" {
			status += " (" + sess.ExitReason + ")"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			sess.ID,
			sess.Port,
			sess.PID,
			status,
			humanize.Time(sess.StartedAt),
			sess.StandalonePath,
		)
		shown++
	}

	if shown == 0 {
		_, _ = fmt.Fprintln(out, "No running sessions.")
		return nil
	}

	return w.Flush()
}

// refreshStatus marks running sessions whose process no longer exists,
// including those whose PID now belongs to another process
func refreshStatus(store *session.Store, sessions []*session.Session) {
	for _, sess := range sessions {
		if sess.Status != session.StatusRunning || sess.PID <= 0 {
			continue
		}
		_, err := wiremock.FindProcess(sess.PID, sess.PIDCreateTime)
		if !processGone(err) {
			continue
		}
		Debug("Session %s process %d is gone: %v", sess.ID, sess.PID, err)
		sess.MarkStopped("gone")
		if err := store.Save(sess); err != nil {
			Debug("Failed to save session %s: %v", sess.ID, err)
		}
	}
}

// processGone reports whether a FindProcess error means the recorded server
// process is no longer running
func processGone(err error) bool {
	return errors.Is(err, wiremock.ErrProcessNotFound) || errors.Is(err, wiremock.ErrProcessMismatch)
}
