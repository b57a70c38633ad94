package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	mappingMethod   string
	mappingURL      string
	mappingStatus   int
	mappingHeaders  []string
	mappingBody     string
	mappingBodyJSON string
	mappingFile     string
)

var mappingCmd = &cobra.Command{
	Use:   "mapping [session-id]",
	Short: "Write a stub mapping file",
	Long: `Write a stub mapping file into <path>/mappings. The server picks it up on the
next "wiremockctl reset".

An existing file with the same name is overwritten.

Examples:
  wiremockctl mapping --url /foo --body hello
  wiremockctl mapping --method POST --url /users --status 201 \
      --header Content-Type=application/json --body-json '{"id": 1}' --file users.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMapping,
}

func init() {
	mappingCmd.Flags().StringVar(&mappingMethod, "method", "GET", "request method to match")
	mappingCmd.Flags().StringVar(&mappingURL, "url", "", "request URL to match")
	mappingCmd.Flags().IntVar(&mappingStatus, "status", 200, "response status code")
	mappingCmd.Flags().StringArrayVar(&mappingHeaders, "header", nil, "response header as name=value (repeatable)")
	mappingCmd.Flags().StringVar(&mappingBody, "body", "", "response body as a string")
	mappingCmd.Flags().StringVar(&mappingBodyJSON, "body-json", "", "response body as a JSON value")
	mappingCmd.Flags().StringVar(&mappingFile, "file", "", "mapping file name (default mapping.json)")
	_ = mappingCmd.MarkFlagRequired("url")
	mappingCmd.MarkFlagsMutuallyExclusive("body", "body-json")

	rootCmd.AddCommand(mappingCmd)
}

func runMapping(cmd *cobra.Command, args []string) error {
	headers, err := parseHeaders(mappingHeaders)
	if err != nil {
		return err
	}

	var body any = mappingBody
	if cmd.Flags().Changed("body-json") {
		if body, err = parseJSONBody(mappingBodyJSON); err != nil {
			return err
		}
	}

	t, err := resolveTarget(args)
	if err != nil {
		return err
	}

	path, err := t.ctl.CreateMappingFile(mappingMethod, mappingURL, headers, mappingStatus, body, mappingFile)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Mapping written to %s\n", path)
	return nil
}

// parseHeaders returns nil when no headers are given so the mapping
// serializes them as null.
func parseHeaders(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	headers := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid header %q: expected name=value", p)
		}
		headers[k] = v
	}
	return headers, nil
}

func parseJSONBody(s string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid --body-json: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid --body-json: trailing data")
	}
	return v, nil
}
