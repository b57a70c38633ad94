package cmd

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

var getParams []string

var getCmd = &cobra.Command{
	Use:   "get <path> [session-id]",
	Short: "Send a GET request to the mock server",
	Long: `Send a GET request to a path on the mock server and print the response body.
The status line goes to stderr.

Examples:
  wiremockctl get /__admin/mappings
  wiremockctl get /foo --param q=1 --param q=2`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

func init() {
	getCmd.Flags().StringArrayVar(&getParams, "param", nil, "query parameter as key=value (repeatable)")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	params, err := parseParams(getParams)
	if err != nil {
		return err
	}

	t, err := resolveTarget(args[1:])
	if err != nil {
		return err
	}

	resp, err := t.ctl.Get(cmd.Context(), args[0], params)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), resp.Status)
	if _, err := io.Copy(cmd.OutOrStdout(), resp.Body); err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	return nil
}

func parseParams(pairs []string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", p)
		}
		params.Add(k, v)
	}
	return params, nil
}
