// Package endpoints manages the hot-reloadable endpoints file.
//
// The submission service URL and the reachability probe URL are operational
// parameters: a blocked probe endpoint or a relocated server must be
// swappable in the field without restarting the agent. The daemon watches a
// small JSON file and applies changes as they land.
package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Endpoints holds the remote URLs the agent talks to.
type Endpoints struct {
	ServerURL string `json:"server_url"`
	ProbeURL  string `json:"probe_url"`
}

// Manager loads an endpoints file and notifies a callback on changes.
type Manager struct {
	log  *slog.Logger
	path string

	mu       sync.RWMutex
	current  Endpoints
	onChange func(Endpoints)
}

// New returns a Manager for the endpoints file at path.
// onChange is invoked after every successful Load, including the first.
func New(l *slog.Logger, path string, onChange func(Endpoints)) *Manager {
	return &Manager{log: l, path: path, onChange: onChange}
}

// Current returns the last successfully loaded endpoints.
func (m *Manager) Current() Endpoints {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Load reads the endpoints file and applies it. Missing fields keep their
// previous value, so a file carrying only probe_url leaves the server URL
// untouched.
func (m *Manager) Load() error {
	file, err := os.Open(m.path)
	if err != nil {
		return fmt.Errorf("opening endpoints file: %w", err)
	}
	defer file.Close()

	m.mu.Lock()
	next := m.current
	m.mu.Unlock()

	if err := json.NewDecoder(file).Decode(&next); err != nil {
		return fmt.Errorf("decoding endpoints JSON: %w", err)
	}

	m.mu.Lock()
	m.current = next
	m.mu.Unlock()

	m.log.Info("Endpoints loaded", "server_url", next.ServerURL, "probe_url", next.ProbeURL)
	if m.onChange != nil {
		m.onChange(next)
	}
	return nil
}

// Watch reloads the endpoints file whenever it is written or recreated,
// until ctx is cancelled. Reload failures are logged and the previous
// endpoints stay in effect.
func (m *Manager) Watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.log.Warn("Failed to create endpoints watcher", "error", err)
		return
	}
	defer watcher.Close()

	dir, _ := filepath.Split(m.path)
	if dir == "" {
		dir = "."
	}
	if err := watcher.Add(dir); err != nil {
		m.log.Warn("Failed to watch endpoints directory", "dir", dir, "error", err)
		return
	}

	m.log.Debug("Watching endpoints file", "file", m.path)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != m.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			m.log.Debug("Endpoints file changed, reloading")
			if err := m.Load(); err != nil {
				m.log.Warn("Error reloading endpoints file", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.log.Warn("Endpoints watcher error", "error", err)
		}
	}
}
