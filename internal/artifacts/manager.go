package artifacts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/wiremockctl/wiremockctl/internal/wiremock"
)

// FilesDir is the directory, relative to the standalone path, WireMock serves body files from
const FilesDir = "__files"

// Manager handles the WireMock standalone jar and directory layout in a standalone path
type Manager struct {
	dir     string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewManager creates a new artifact manager for dir, downloading from baseURL
func NewManager(dir, baseURL string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  http.DefaultClient,
		logger:  logger,
	}
}

// JarPath returns the path to the standalone jar for version
func (m *Manager) JarPath(version string) string {
	return filepath.Join(m.dir, wiremock.JarName(version))
}

// JarURL returns where the standalone jar for version is downloaded from
func (m *Manager) JarURL(version string) string {
	return fmt.Sprintf("%s/%s/%s", m.baseURL, version, wiremock.JarName(version))
}

// EnsureJar downloads the standalone jar for version if missing and returns its path
func (m *Manager) EnsureJar(ctx context.Context, version string) (string, error) {
	path := m.JarPath(version)
	if _, err := os.Stat(path); err == nil {
		return path, nil // Already exists
	}

	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create standalone directory: %w", err)
	}

	if err := m.download(ctx, m.JarURL(version), path, "wiremock "+version); err != nil {
		return "", err
	}
	return path, nil
}

// EnsureLayout creates the mappings and __files directories the server reads from
func (m *Manager) EnsureLayout() error {
	for _, name := range []string{wiremock.MappingsDir, FilesDir} {
		if err := os.MkdirAll(filepath.Join(m.dir, name), 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", name, err)
		}
	}
	return nil
}

// RemoveJar deletes the standalone jar for version
func (m *Manager) RemoveJar(version string) error {
	if err := os.Remove(m.JarPath(version)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove jar: %w", err)
	}
	return nil
}

func (m *Manager) download(ctx context.Context, url, destPath, name string) error {
	m.logger.Info("downloading", "artifact", name, "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", name, err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: HTTP %d", name, resp.StatusCode)
	}

	// Create temp file for atomic write
	tmpPath := destPath + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	written, err := io.Copy(file, resp.Body)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", name, err)
	}

	// Rename to final path (atomic)
	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize %s: %w", name, err)
	}

	m.logger.Info("downloaded", "artifact", name, "bytes", written, "path", destPath)
	return nil
}
