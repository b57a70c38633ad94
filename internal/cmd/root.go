package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/wiremockctl/wiremockctl/internal/config"
	"github.com/wiremockctl/wiremockctl/internal/metrics"
)

var (
	cfgFile  string
	debug    bool
	portFlag string
	pathFlag string

	// cfg is loaded before every command runs
	cfg *config.Config

	registry = prometheus.NewRegistry()
	mtr      = metrics.New(registry)
)

// Debug logs a message if debug mode is enabled
func Debug(format string, args ...interface{}) {
	slog.Debug(fmt.Sprintf(format, args...))
}

var rootCmd = &cobra.Command{
	Use:   "wiremockctl",
	Short: "wiremockctl - run and drive WireMock standalone servers",
	Long: `wiremockctl launches WireMock standalone servers and drives their admin API.

Start a server:
  wiremockctl start
  wiremockctl start --port 9090 --path ~/mocks/

Configure it:
  wiremockctl mapping --url /foo --body hello
  wiremockctl delay 500
  wiremockctl reset

Manage sessions:
  wiremockctl ps
  wiremockctl stop <session-id>
  wiremockctl prune`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogger()

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		Debug("Config loaded: port=%s path=%s version=%s", cfg.Port, cfg.StandalonePath, cfg.Version)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if debug {
			_ = metrics.Dump(os.Stderr, registry)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.wiremockctl/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&portFlag, "port", "", "mock server port (default from config)")
	rootCmd.PersistentFlags().StringVar(&pathFlag, "path", "", "standalone directory holding the jar and mappings (default from config)")
}

func initLogger() {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
