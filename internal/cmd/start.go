package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/wiremockctl/wiremockctl/internal/artifacts"
	"github.com/wiremockctl/wiremockctl/internal/session"
	"github.com/wiremockctl/wiremockctl/internal/wiremock"
	"golang.org/x/term"
)

var (
	startVersion string
	startArgs    string
	startJava    string
	startBanner  bool
	startWait    bool
	startTimeout time.Duration
	startFetch   bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a WireMock standalone server",
	Long: `Start a WireMock standalone server in the background and record it as a session.

The server runs:
  java -jar <path>/wiremock-<version>-standalone.jar --port <port> <args>

When --args is not given, <args> is "--root-dir <path>". Server output goes to
~/.wiremockctl/sessions/<id>.log.

Examples:
  wiremockctl start
  wiremockctl start --port 9090 --path ~/mocks/ --fetch
  wiremockctl start --args "--verbose --root-dir ./wiremock"`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&startVersion, "version", "", "WireMock version (default from config)")
	startCmd.Flags().StringVar(&startArgs, "args", "", "extra server arguments, shell quoted (replaces the default --root-dir)")
	startCmd.Flags().StringVar(&startJava, "java", "", "java executable (default from config)")
	startCmd.Flags().BoolVar(&startBanner, "banner", term.IsTerminal(int(os.Stdout.Fd())), "print the startup banner")
	startCmd.Flags().BoolVar(&startWait, "wait", true, "wait for the server to answer before returning")
	startCmd.Flags().DurationVar(&startTimeout, "timeout", 0, "how long to wait for the server (default from config)")
	startCmd.Flags().BoolVar(&startFetch, "fetch", false, "download the standalone jar if missing")

	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	wcfg, err := baseConfig()
	if err != nil {
		return err
	}
	if startVersion != "" {
		wcfg.Version = startVersion
	}
	if startJava != "" {
		wcfg.JavaPath = startJava
	}
	if cmd.Flags().Changed("args") {
		parsed, err := wiremock.ParseArguments(startArgs)
		if err != nil {
			return err
		}
		wcfg.Arguments = parsed
	}

	if startFetch {
		mgr := artifacts.NewManager(wcfg.StandalonePath, cfg.DownloadURL, slog.Default())
		if _, err := mgr.EnsureJar(cmd.Context(), wcfg.Version); err != nil {
			return err
		}
		if err := mgr.EnsureLayout(); err != nil {
			return err
		}
	}

	store, err := session.NewStore()
	if err != nil {
		return fmt.Errorf("failed to access session store: %w", err)
	}

	id := uuid.NewString()[:8]
	logPath := store.LogPath(id)
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("failed to create session log: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	wcfg.Output = logFile
	wcfg.Out = cmd.OutOrStdout()
	ctl := wiremock.New(wcfg)

	sess := &session.Session{
		ID:             id,
		Port:           ctl.Port(),
		StandalonePath: ctl.StandalonePath(),
		Version:        wcfg.Version,
		Arguments:      ctl.Arguments(),
		Command:        ctl.CommandLine(),
		Status:         session.StatusCreated,
		StartedAt:      time.Now(),
		LogFile:        logPath,
	}
	if err := store.Save(sess); err != nil {
		return err
	}
	Debug("Session %s created: %s", id, sess.Command)

	if err := ctl.Start(startBanner); err != nil {
		sess.MarkStopped("failed")
		_ = store.Save(sess)
		return fmt.Errorf("failed to start session %s: %w", id, err)
	}

	sess.PID = ctl.Process().PID()
	sess.PIDCreateTime = ctl.Process().CreateTime()
	sess.Status = session.StatusRunning
	if err := store.Save(sess); err != nil {
		return err
	}

	if startWait {
		timeout := startTimeout
		if timeout == 0 {
			timeout = cfg.ReadyTimeout
		}
		Debug("Waiting up to %s for %s", timeout, ctl.BaseURL())

		if err := ctl.WaitReady(cmd.Context(), timeout); err != nil {
			_ = ctl.Close()
			sess.MarkStopped("failed")
			_ = store.Save(sess)
			return fmt.Errorf("session %s did not become ready (output in %s): %w", id, logPath, err)
		}
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Session %s | %s | pid %d\n", id, ctl.BaseURL(), sess.PID)
	return nil
}
