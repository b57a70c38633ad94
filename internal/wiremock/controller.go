package wiremock

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kballard/go-shellquote"
	"github.com/wiremockctl/wiremockctl/internal/banner"
	"github.com/wiremockctl/wiremockctl/internal/metrics"
)

// Admin endpoints, relative to the base URL
const (
	ShutdownPath      = "/__admin/shutdown"
	ResetMappingsPath = "/__admin/mappings/reset"
	SaveMappingsPath  = "/__admin/mappings/save"
	SocketDelayPath   = "/__admin/socket-delay"
	MappingsPath      = "/__admin/mappings"
)

// Defaults used when a Config field is left empty
const (
	DefaultPort           = "8080"
	DefaultStandalonePath = "./wiremock/"
	DefaultVersion        = "1.57"
	DefaultJavaPath       = "java"
	DefaultStopTimeout    = 10 * time.Second
)

var (
	// ErrAlreadyStarted is returned by Start while the server process is running
	ErrAlreadyStarted = errors.New("mock server already started")
	// ErrNotReady is returned by WaitReady when the server never answered
	ErrNotReady = errors.New("mock server not ready")
)

// State is the lifecycle state of a Controller
type State int

const (
	StateUnstarted State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// HTTPClient is the subset of *http.Client the controller needs
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config describes one mock server. It is copied by New and never changes afterwards.
type Config struct {
	Port           string
	StandalonePath string
	Version        string
	// Arguments are appended after --port. nil means "--root-dir <StandalonePath>";
	// a non-nil empty slice passes no extra arguments.
	Arguments []string
	JavaPath  string

	// StopTimeout bounds how long Stop waits for a tracked process to exit
	// after the shutdown request before killing it.
	StopTimeout time.Duration

	HTTPClient HTTPClient
	Logger     *slog.Logger
	// Out receives the startup banner. Defaults to os.Stdout.
	Out io.Writer
	// Output receives the server's standard output. When nil it is captured
	// in memory and available through Controller.Output.
	Output  io.Writer
	Metrics *metrics.Metrics
}

// Controller launches a WireMock standalone server and drives its admin API
type Controller struct {
	cfg     Config
	baseURL string
	argv    []string

	client  HTTPClient
	logger  *slog.Logger
	out     io.Writer
	output  io.Writer
	capture *syncBuffer
	metrics *metrics.Metrics

	state   State
	process *Process
}

// New builds a controller. Nothing is launched and no input is validated;
// a bad path or port surfaces when Start or an admin call fails.
func New(cfg Config) *Controller {
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if cfg.StandalonePath == "" {
		cfg.StandalonePath = DefaultStandalonePath
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.JavaPath == "" {
		cfg.JavaPath = DefaultJavaPath
	}
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if cfg.Arguments == nil {
		cfg.Arguments = []string{"--root-dir", cfg.StandalonePath}
	} else {
		cfg.Arguments = append([]string{}, cfg.Arguments...)
	}

	c := &Controller{
		cfg:     cfg,
		baseURL: fmt.Sprintf("http://localhost:%s", cfg.Port),
		client:  cfg.HTTPClient,
		logger:  cfg.Logger,
		out:     cfg.Out,
		output:  cfg.Output,
		metrics: cfg.Metrics,
	}

	c.argv = append([]string{
		cfg.JavaPath, "-jar", filepath.Join(cfg.StandalonePath, JarName(cfg.Version)),
		"--port", cfg.Port,
	}, cfg.Arguments...)

	if c.client == nil {
		c.client = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	if c.output == nil {
		c.capture = &syncBuffer{}
		c.output = c.capture
	}

	return c
}

// JarName returns the standalone jar file name for a WireMock version
func JarName(version string) string {
	return fmt.Sprintf("wiremock-%s-standalone.jar", version)
}

// ParseArguments splits an argument string using shell quoting rules
func ParseArguments(s string) ([]string, error) {
	args, err := shellquote.Split(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse arguments %q: %w", s, err)
	}
	if args == nil {
		args = []string{}
	}
	return args, nil
}

// BaseURL returns http://localhost:<port>
func (c *Controller) BaseURL() string {
	return c.baseURL
}

// Port returns the configured port
func (c *Controller) Port() string {
	return c.cfg.Port
}

// StandalonePath returns the directory holding the jar and the mappings directory
func (c *Controller) StandalonePath() string {
	return c.cfg.StandalonePath
}

// Args returns a copy of the argv used to launch the server
func (c *Controller) Args() []string {
	return append([]string{}, c.argv...)
}

// Arguments returns the extra arguments passed after --port, defaults applied
func (c *Controller) Arguments() []string {
	return append([]string{}, c.cfg.Arguments...)
}

// CommandLine returns the launch command as a single shell-quoted string
func (c *Controller) CommandLine() string {
	return shellquote.Join(c.argv...)
}

// State returns the lifecycle state
func (c *Controller) State() State {
	return c.state
}

// Process returns the tracked process handle, or nil
func (c *Controller) Process() *Process {
	return c.process
}

// Output returns the server output captured so far. It is empty when
// Config.Output was set.
func (c *Controller) Output() string {
	if c.capture == nil {
		return ""
	}
	return c.capture.String()
}

// Start launches the server process and returns without waiting for it to
// accept requests; use WaitReady for that. When printBanner is set the
// command line, logo and port are written to Config.Out.
func (c *Controller) Start(printBanner bool) error {
	if c.state == StateRunning && c.process != nil && c.process.Running() {
		return ErrAlreadyStarted
	}

	cmd := exec.Command(c.argv[0], c.argv[1:]...)
	cmd.Stdout = c.output
	detach(cmd)

	c.logger.Debug("launching mock server", "command", c.CommandLine())

	proc, err := startProcess(cmd)
	if err != nil {
		c.metrics.ObserveLaunch(metrics.OutcomeError)
		return fmt.Errorf("failed to start mock server: %w", err)
	}
	c.metrics.ObserveLaunch(metrics.OutcomeOK)

	c.process = proc
	c.state = StateRunning
	c.logger.Info("mock server launched", "pid", proc.PID(), "port", c.cfg.Port)

	if printBanner {
		banner.Print(c.out, c.CommandLine(), c.cfg.Port)
	}

	return nil
}

// Adopt tracks a server process started elsewhere, so Stop and Close can
// terminate it.
func (c *Controller) Adopt(p *Process) {
	c.process = p
	if p.Running() {
		c.state = StateRunning
	}
}

// WaitReady polls the admin API with exponential backoff until the server
// answers or timeout elapses. It fails early if the tracked process exits.
func (c *Controller) WaitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 0

	var lastErr error
	attempts := 0
	probe := func() error {
		attempts++
		if c.process != nil && !c.process.Running() {
			exitErr := c.process.ExitErr()
			if exitErr == nil {
				exitErr = errors.New("exited")
			}
			return backoff.Permanent(fmt.Errorf("process %d: %w", c.process.PID(), exitErr))
		}

		resp, err := c.Get(ctx, MappingsPath, nil)
		if err != nil {
			lastErr = err
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil
	}

	if err := backoff.Retry(probe, backoff.WithContext(bo, ctx)); err != nil {
		if lastErr != nil && errors.Is(err, ctx.Err()) {
			return fmt.Errorf("%w after %d attempts: %w", ErrNotReady, attempts, lastErr)
		}
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}

	c.logger.Debug("mock server ready", "attempts", attempts, "url", c.baseURL)
	return nil
}

// Stop asks the server to shut down. When a process is tracked it then waits
// up to StopTimeout for it to exit and kills it if it does not, or kills it
// straight away when the shutdown request itself fails. The request error is
// returned either way.
func (c *Controller) Stop(ctx context.Context) error {
	postErr := c.post(ctx, ShutdownPath, nil)

	if c.process == nil {
		if postErr != nil {
			return postErr
		}
		c.state = StateStopped
		c.logger.Info("session terminated", "port", c.cfg.Port)
		return nil
	}

	defer func() { c.state = StateStopped }()
	pid := c.process.PID()

	if postErr != nil {
		c.logger.Warn("shutdown request failed, killing process", "pid", pid, "error", postErr)
		if err := c.process.Kill(); err != nil {
			return errors.Join(postErr, err)
		}
		return postErr
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.StopTimeout)
	defer cancel()
	if err := c.process.Wait(waitCtx); err != nil {
		c.logger.Warn("process still running after shutdown, killing", "pid", pid, "timeout", c.cfg.StopTimeout)
		if err := c.process.Kill(); err != nil {
			return err
		}
	}

	c.logger.Info("session terminated", "port", c.cfg.Port, "pid", pid)
	return nil
}

// Close kills the tracked process if it is still running
func (c *Controller) Close() error {
	if c.process == nil || !c.process.Running() {
		return nil
	}
	defer func() { c.state = StateStopped }()
	return c.process.Kill()
}

// Reset clears the stub mappings held in the server's memory
func (c *Controller) Reset(ctx context.Context) error {
	return c.post(ctx, ResetMappingsPath, nil)
}

// Save asks the server to persist its in-memory mappings to disk
func (c *Controller) Save(ctx context.Context) error {
	return c.post(ctx, SaveMappingsPath, nil)
}

// AddFixedDelay configures a fixed socket delay, in milliseconds, on every response
func (c *Controller) AddFixedDelay(ctx context.Context, delayMS int) error {
	return c.post(ctx, SocketDelayPath, map[string]int{"fixedDelay": delayMS})
}

// Get issues a GET to the base URL plus path and returns the response as is,
// whatever its status. The caller must close the body.
func (c *Controller) Get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

// post sends an admin request. A non-2xx response is an error.
func (c *Controller) post(ctx context.Context, endpoint string, body any) error {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s body: %w", endpoint, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.ObserveAdmin(endpoint, metrics.OutcomeError, time.Since(start))
		return fmt.Errorf("failed to post %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.ObserveAdmin(endpoint, metrics.OutcomeHTTPError, time.Since(start))
		return fmt.Errorf("failed to post %s: HTTP %d", endpoint, resp.StatusCode)
	}

	c.metrics.ObserveAdmin(endpoint, metrics.OutcomeOK, time.Since(start))
	c.logger.Debug("admin request sent", "endpoint", endpoint, "status", resp.StatusCode)
	return nil
}

// syncBuffer is a bytes.Buffer safe for the process output copier and readers
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
