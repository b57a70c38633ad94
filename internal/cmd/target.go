package cmd

import (
	"fmt"
	"log/slog"

	"github.com/wiremockctl/wiremockctl/internal/session"
	"github.com/wiremockctl/wiremockctl/internal/wiremock"
)

// target is the mock server a command acts on
type target struct {
	store *session.Store
	sess  *session.Session // nil when the server was not launched by wiremockctl
	ctl   *wiremock.Controller
}

// save persists the target's session record, if any
func (t *target) save() {
	if t.sess == nil {
		return
	}
	if err := t.store.Save(t.sess); err != nil {
		Debug("Failed to save session %s: %v", t.sess.ID, err)
	}
}

// baseConfig builds a controller config from the loaded config and global flags
func baseConfig() (wiremock.Config, error) {
	wcfg := wiremock.Config{
		Port:           cfg.Port,
		StandalonePath: cfg.StandalonePath,
		Version:        cfg.Version,
		JavaPath:       cfg.JavaPath,
		StopTimeout:    cfg.StopTimeout,
		Logger:         slog.Default(),
		Metrics:        mtr,
	}

	if portFlag != "" {
		wcfg.Port = portFlag
	}
	if pathFlag != "" {
		wcfg.StandalonePath = pathFlag
	}
	if cfg.Arguments != "" {
		args, err := wiremock.ParseArguments(cfg.Arguments)
		if err != nil {
			return wcfg, err
		}
		wcfg.Arguments = args
	}

	return wcfg, nil
}

// resolveTarget picks the server to act on: the session named by args[0],
// else the configured port when --port is given, else the most recent running
// session, else the configured port.
func resolveTarget(args []string) (*target, error) {
	store, err := session.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to access session store: %w", err)
	}

	t := &target{store: store}

	switch {
	case len(args) > 0:
		sess, err := store.Load(args[0])
		if err != nil {
			return nil, err
		}
		t.sess = sess
	case portFlag == "":
		sess, err := store.LatestRunning()
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		t.sess = sess
	}

	wcfg, err := baseConfig()
	if err != nil {
		return nil, err
	}

	if t.sess != nil {
		Debug("Targeting session %s on port %s", t.sess.ID, t.sess.Port)
		wcfg.Port = t.sess.Port
		wcfg.StandalonePath = t.sess.StandalonePath
		wcfg.Version = t.sess.Version
		wcfg.Arguments = t.sess.Arguments
	}

	t.ctl = wiremock.New(wcfg)

	if t.sess != nil && t.sess.PID > 0 && t.sess.Status == session.StatusRunning {
		p, err := wiremock.FindProcess(t.sess.PID, t.sess.PIDCreateTime)
		switch {
		case err == nil:
			t.ctl.Adopt(p)
		case processGone(err):
			// Never adopt a PID the OS may have given to another process
			Debug("Session %s process is gone: %v", t.sess.ID, err)
			t.sess.MarkStopped("gone")
			t.save()
		default:
			Debug("Session %s process not adopted: %v", t.sess.ID, err)
		}
	}

	return t, nil
}
