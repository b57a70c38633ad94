package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wiremockctl/wiremockctl/internal/session"
	"github.com/wiremockctl/wiremockctl/internal/wiremock"
)

// withHome points the home directory, and so the session store and config, at a temp dir
func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	return home
}

// execute runs the root command with args and returns what it printed to stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, debug, portFlag, pathFlag = "", false, "", ""

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func serverPort(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return port
}

func closedPort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())
	return port
}

// bystander starts a long running process that is not a mock server and
// returns its PID and a channel closed when it exits
func bystander(t *testing.T) (int, <-chan struct{}) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX sleep")
	}
	cmd := exec.Command("sleep", "60")
	require.NoError(t, cmd.Start())

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		<-exited
	})
	return cmd.Process.Pid, exited
}

func alive(exited <-chan struct{}) bool {
	select {
	case <-exited:
		return false
	case <-time.After(300 * time.Millisecond):
		return true
	}
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"q=1", "q=2", "empty="})
	require.NoError(t, err)
	assert.Equal(t, url.Values{"q": {"1", "2"}, "empty": {""}}, params)

	params, err = parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, params)

	_, err = parseParams([]string{"novalue"})
	assert.Error(t, err)
}

func TestParseHeaders(t *testing.T) {
	headers, err := parseHeaders([]string{"Content-Type=text/plain", "X-Eq=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Content-Type": "text/plain", "X-Eq": "a=b"}, headers)

	headers, err = parseHeaders(nil)
	require.NoError(t, err)
	assert.Nil(t, headers)

	_, err = parseHeaders([]string{"=x"})
	assert.Error(t, err)
}

func TestParseJSONBody(t *testing.T) {
	v, err := parseJSONBody(`{"id": 12345678901234567890, "ok": true}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": json.Number("12345678901234567890"), "ok": true}, v)

	_, err = parseJSONBody(`{"a": 1} {"b": 2}`)
	assert.Error(t, err)

	_, err = parseJSONBody(`{`)
	assert.Error(t, err)
}

func TestMappingCommand(t *testing.T) {
	withHome(t)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, wiremock.MappingsDir), 0755))

	out, err := execute(t, "mapping", "--path", dir+"/", "--port", "1",
		"--method", "POST", "--url", "/users", "--status", "201",
		"--header", "Content-Type=application/json", "--body-json", `{"id": 1}`)
	require.NoError(t, err)

	path := filepath.Join(dir, wiremock.MappingsDir, wiremock.DefaultMappingFile)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	expected := `{
    "request": {
        "method": "POST",
        "url": "/users"
    },
    "response": {
        "body": {
            "id": 1
        },
        "headers": {
            "Content-Type": "application/json"
        },
        "status": 201
    }
}`
	assert.Equal(t, expected, string(data))
}

func TestStopCommand_Session(t *testing.T) {
	withHome(t)

	var shutdowns int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == wiremock.ShutdownPath {
			shutdowns++
		}
	}))
	defer srv.Close()

	store, err := session.NewStore()
	require.NoError(t, err)
	require.NoError(t, store.Save(&session.Session{
		ID:        "abc12345",
		Port:      serverPort(t, srv),
		Status:    session.StatusRunning,
		StartedAt: time.Now(),
	}))

	out, err := execute(t, "stop")
	require.NoError(t, err)
	assert.Contains(t, out, "Session abc12345 stopped.")
	assert.Equal(t, 1, shutdowns)

	sess, err := store.Load("abc12345")
	require.NoError(t, err)
	assert.Equal(t, session.StatusStopped, sess.Status)
	assert.Equal(t, "normal", sess.ExitReason)
}

func TestStopCommand_Unreachable(t *testing.T) {
	withHome(t)

	_, err := execute(t, "stop", "--port", closedPort(t))
	assert.Error(t, err)
}

func TestResolveTarget(t *testing.T) {
	withHome(t)
	_, err := execute(t, "ps") // loads config
	require.NoError(t, err)
	portFlag = ""

	store, err := session.NewStore()
	require.NoError(t, err)
	older := &session.Session{ID: "old", Port: "9001", Status: session.StatusRunning, StartedAt: time.Now().Add(-time.Hour)}
	newer := &session.Session{ID: "new", Port: "9002", StandalonePath: "/srv/mocks/", Version: "2.0", Status: session.StatusStopped, StartedAt: time.Now()}
	require.NoError(t, store.Save(older))
	require.NoError(t, store.Save(newer))

	t.Run("most recent running session", func(t *testing.T) {
		tgt, err := resolveTarget(nil)
		require.NoError(t, err)
		require.NotNil(t, tgt.sess)
		assert.Equal(t, "old", tgt.sess.ID)
		assert.Equal(t, "http://localhost:9001", tgt.ctl.BaseURL())
	})

	t.Run("named session", func(t *testing.T) {
		tgt, err := resolveTarget([]string{"new"})
		require.NoError(t, err)
		assert.Equal(t, "9002", tgt.ctl.Port())
		assert.Equal(t, "/srv/mocks/", tgt.ctl.StandalonePath())
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := resolveTarget([]string{"missing"})
		assert.Error(t, err)
	})

	t.Run("port flag skips sessions", func(t *testing.T) {
		portFlag = "9999"
		t.Cleanup(func() { portFlag = "" })

		tgt, err := resolveTarget(nil)
		require.NoError(t, err)
		assert.Nil(t, tgt.sess)
		assert.Equal(t, "9999", tgt.ctl.Port())
	})
}

func TestPsCommand_MarksGoneSessions(t *testing.T) {
	withHome(t)

	store, err := session.NewStore()
	require.NoError(t, err)
	// PIDs this large are never allocated
	require.NoError(t, store.Save(&session.Session{ID: "ghost", Port: "9003", PID: 1 << 30, Status: session.StatusRunning, StartedAt: time.Now()}))

	out, err := execute(t, "ps", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "ghost")
	assert.Contains(t, out, "stopped (gone)")

	sess, err := store.Load("ghost")
	require.NoError(t, err)
	assert.Equal(t, "gone", sess.ExitReason)
}

func TestStopCommand_LeavesReusedPIDAlone(t *testing.T) {
	withHome(t)
	pid, exited := bystander(t)

	store, err := session.NewStore()
	require.NoError(t, err)
	// The recorded server died and its PID went to an unrelated process
	require.NoError(t, store.Save(&session.Session{
		ID:            "reused01",
		Port:          closedPort(t),
		PID:           pid,
		PIDCreateTime: 1,
		Status:        session.StatusRunning,
		StartedAt:     time.Now(),
	}))

	_, err = execute(t, "stop")
	require.Error(t, err)
	assert.True(t, alive(exited), "stop killed a process it did not start")

	sess, err := store.Load("reused01")
	require.NoError(t, err)
	assert.Equal(t, session.StatusStopped, sess.Status)
	assert.Equal(t, "gone", sess.ExitReason)
}

func TestKillCommand_ForceLeavesReusedPIDAlone(t *testing.T) {
	withHome(t)
	pid, exited := bystander(t)

	store, err := session.NewStore()
	require.NoError(t, err)
	require.NoError(t, store.Save(&session.Session{
		ID:        "reused02",
		Port:      closedPort(t),
		PID:       pid,
		Status:    session.StatusRunning, // no start time recorded
		StartedAt: time.Now(),
	}))

	out, err := execute(t, "kill", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed session: reused02 (running)")
	assert.True(t, alive(exited), "kill --force killed a process it did not start")

	_, err = store.Load("reused02")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestDelayCommand_PassesValueThrough(t *testing.T) {
	withHome(t)

	bodies := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies <- string(data)
	}))
	defer srv.Close()

	_, err := execute(t, "delay", "--port", serverPort(t, srv), "--", "-5")
	require.NoError(t, err)
	assert.JSONEq(t, `{"fixedDelay": -5}`, <-bodies)

	_, err = execute(t, "delay", "--port", serverPort(t, srv), "soon")
	assert.ErrorContains(t, err, "invalid delay")
}

func TestResetCommand_CountsMappingFiles(t *testing.T) {
	withHome(t)
	dir := t.TempDir()
	mappingsDir := filepath.Join(dir, wiremock.MappingsDir)
	require.NoError(t, os.MkdirAll(mappingsDir, 0755))
	for _, name := range []string{"a.json", "b.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(mappingsDir, name), []byte("{}"), 0644))
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	out, err := execute(t, "reset", "--port", serverPort(t, srv), "--path", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Mappings reset on")
	assert.Contains(t, out, "2 mapping file(s) in "+mappingsDir)
}

func TestPruneCommand_RemovesStoppedSessions(t *testing.T) {
	withHome(t)

	store, err := session.NewStore()
	require.NoError(t, err)
	done := &session.Session{ID: "done0001", Port: "9004", StartedAt: time.Now()}
	done.MarkStopped("normal")
	require.NoError(t, store.Save(done))
	require.NoError(t, store.Save(&session.Session{ID: "fresh001", Port: "9005", Status: session.StatusCreated, StartedAt: time.Now()}))

	out, err := execute(t, "prune")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed session: done0001")
	assert.Contains(t, out, "Removed 1 session(s) from "+store.Dir())

	_, err = store.Load("fresh001")
	assert.NoError(t, err)
}
