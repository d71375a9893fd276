// Package identity manages the reporter identity profile.
//
// The external identity provider issues a stable user identifier at sign-in;
// the profile caches it, together with the display name, so that reports can
// be attributed while offline.
package identity

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/ubuntu/decorate"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/constants"
)

// ErrProfileNotFound is returned when no reporter profile has been saved yet.
var ErrProfileNotFound = errors.New("reporter profile not found")

// Manager loads and stores the reporter profile.
type Manager struct {
	path string

	log *slog.Logger
}

// Profile identifies the field worker submitting reports.
type Profile struct {
	UserID      string `toml:"user_id"`
	DisplayName string `toml:"display_name"`
}

// New returns a new identity Manager.
// path is the folder the profile is stored into.
func New(l *slog.Logger, path string) *Manager {
	return &Manager{log: l, path: path}
}

// Get returns the saved reporter profile.
// If no profile has been saved, ErrProfileNotFound is returned.
func (m Manager) Get() (p Profile, err error) {
	defer func() {
		var pe *os.PathError
		if errors.As(err, &pe) && errors.Is(pe.Err, os.ErrNotExist) {
			err = errors.Join(ErrProfileNotFound, err)
		}
	}()

	_, err = toml.DecodeFile(m.file(), &p)
	if err != nil {
		return Profile{}, err
	}
	m.log.Debug("Read reporter profile", "user", p.UserID)

	return p, nil
}

// Set saves the reporter profile, replacing any previous one.
func (m Manager) Set(p Profile) (err error) {
	defer decorate.OnError(&err, "could not save reporter profile")

	if p.UserID == "" {
		return errors.New("user ID cannot be empty")
	}

	return m.write(p)
}

func (m Manager) file() string {
	return filepath.Join(m.path, constants.ReporterProfileFileName)
}

// write writes the profile atomically, replacing it if it already exists.
// Not atomic on Windows. Makes dir if it does not exist.
func (m Manager) write(p Profile) error {
	path := m.file()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("could not create directory: %v", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "reporter-*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary file: %v", err)
	}
	defer func() {
		_ = tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			m.log.Warn("Failed to remove temporary file when writing reporter profile", "file", tmp.Name(), "error", err)
		}
	}()

	if err := toml.NewEncoder(tmp).Encode(p); err != nil {
		return fmt.Errorf("could not encode reporter profile: %v", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close temporary file: %v", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("could not rename temporary file: %v", err)
	}
	m.log.Debug("Wrote reporter profile", "file", path, "user", p.UserID)

	return nil
}
