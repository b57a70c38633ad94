package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/samber/lo"
)

// ErrNotFound is returned by Load for an unknown session ID
var ErrNotFound = errors.New("session not found")

const recordExt = ".json"

// Store keeps one JSON record and one server log per session under
// ~/.wiremockctl/sessions/
type Store struct {
	dir string
}

// NewStore opens the session store in the user's home directory
func NewStore() (*Store, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	return NewStoreAt(filepath.Join(home, ".wiremockctl", "sessions"))
}

// NewStoreAt opens a session store rooted at dir, creating it if needed
func NewStoreAt(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &Store{dir: dir}, nil
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, id+recordExt)
}

// Save writes the session record, replacing it atomically
func (s *Store) Save(sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", sess.ID, err)
	}

	tmp := s.recordPath(sess.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write session %s: %w", sess.ID, err)
	}
	if err := os.Rename(tmp, s.recordPath(sess.ID)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write session %s: %w", sess.ID, err)
	}

	return nil
}

// Load reads the session record for id. An unknown id wraps ErrNotFound.
func (s *Store) Load(id string) (*Session, error) {
	data, err := os.ReadFile(s.recordPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", id, err)
	}

	return &sess, nil
}

// List returns every readable session, most recently started first.
// Unparseable records are skipped.
func (s *Store) List() ([]*Session, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []*Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	sessions := []*Session{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		sess, err := s.Load(strings.TrimSuffix(name, recordExt))
		if err != nil {
			continue
		}
		sessions = append(sessions, sess)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})

	return sessions, nil
}

// ListByStatus returns the sessions in any of the given statuses, newest first
func (s *Store) ListByStatus(statuses ...string) ([]*Session, error) {
	sessions, err := s.List()
	if err != nil {
		return nil, err
	}
	return lo.Filter(sessions, func(sess *Session, _ int) bool {
		return lo.Contains(statuses, sess.Status)
	}), nil
}

// LatestRunning returns the most recently started running session, or nil
func (s *Store) LatestRunning() (*Session, error) {
	running, err := s.ListByStatus(StatusRunning)
	if err != nil {
		return nil, err
	}
	if len(running) == 0 {
		return nil, nil
	}
	return running[0], nil
}

// Delete removes the session record and its log. Missing files are ignored.
func (s *Store) Delete(id string) error {
	for _, path := range []string{s.recordPath(id), s.LogPath(id)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// LogPath returns where the server output of session id is written
func (s *Store) LogPath(id string) string {
	return filepath.Join(s.dir, id+".log")
}

// Dir returns the session storage directory
func (s *Store) Dir() string {
	return s.dir
}
