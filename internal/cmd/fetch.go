package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/wiremockctl/wiremockctl/internal/artifacts"
)

var (
	fetchVersion string
	fetchForce   bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the WireMock standalone jar",
	Long: `Download the WireMock standalone jar into the standalone path and create the
mappings and __files directories the server reads from.

The jar is fetched from download_url (Maven Central by default).`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchVersion, "version", "", "WireMock version (default from config)")
	fetchCmd.Flags().BoolVarP(&fetchForce, "force", "f", false, "download again even if the jar exists")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	wcfg, err := baseConfig()
	if err != nil {
		return err
	}
	version := wcfg.Version
	if fetchVersion != "" {
		version = fetchVersion
	}

	mgr := artifacts.NewManager(wcfg.StandalonePath, cfg.DownloadURL, slog.Default())
	if fetchForce {
		if err := mgr.RemoveJar(version); err != nil {
			return err
		}
	}

	path, err := mgr.EnsureJar(cmd.Context(), version)
	if err != nil {
		return err
	}
	if err := mgr.EnsureLayout(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "WireMock %s ready at %s\n", version, path)
	return nil
}
