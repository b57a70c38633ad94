package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wiremockctl/wiremockctl/internal/wiremock"
)

var stopCmd = &cobra.Command{
	Use:   "stop [session-id]",
	Short: "Shut down a mock server",
	Long: `Shut down a mock server through its admin API.

Without a session ID the most recent running session is stopped, or the server
on --port. A recorded server process that does not exit after the shutdown
request is killed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(args)
	if err != nil {
		return err
	}

	if err := t.ctl.Stop(cmd.Context()); err != nil {
		if t.sess != nil && t.ctl.State() == wiremock.StateStopped {
			// The shutdown request failed but the recorded process was killed
			t.sess.MarkStopped("killed")
			t.save()
		}
		return fmt.Errorf("failed to stop %s: %w", t.ctl.BaseURL(), err)
	}

	if t.sess != nil {
		t.sess.MarkStopped("normal")
		t.save()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Session %s stopped.\n", t.sess.ID)
		return nil
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Server on %s stopped.\n", t.ctl.BaseURL())
	return nil
}
