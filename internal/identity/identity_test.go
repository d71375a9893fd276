package identity_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/identity"
)

func TestGetWithoutProfile(t *testing.T) {
	t.Parallel()

	m := identity.New(slog.Default(), t.TempDir())
	_, err := m.Get()
	require.ErrorIs(t, err, identity.ErrProfileNotFound)
}

func TestSetGetRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := identity.New(slog.Default(), dir)

	in := identity.Profile{UserID: "chw-017", DisplayName: "R. Gurung"}
	require.NoError(t, m.Set(in))

	got, err := m.Get()
	require.NoError(t, err)
	assert.Equal(t, in, got)

	// A second Manager over the same folder sees the same profile.
	got, err = identity.New(slog.Default(), dir).Get()
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestSetReplacesProfile(t *testing.T) {
	t.Parallel()

	m := identity.New(slog.Default(), t.TempDir())
	require.NoError(t, m.Set(identity.Profile{UserID: "chw-017", DisplayName: "R. Gurung"}), "Setup: first profile should save")

	in := identity.Profile{UserID: "chw-042"}
	require.NoError(t, m.Set(in))

	got, err := m.Get()
	require.NoError(t, err)
	assert.Equal(t, in, got, "second Set should fully replace the profile")
}

func TestSetEmptyUserID(t *testing.T) {
	t.Parallel()

	m := identity.New(slog.Default(), t.TempDir())
	require.Error(t, m.Set(identity.Profile{DisplayName: "R. Gurung"}))
}

func TestSetCreatesProfileDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "profile")
	m := identity.New(slog.Default(), dir)
	require.NoError(t, m.Set(identity.Profile{UserID: "chw-017"}))

	got, err := m.Get()
	require.NoError(t, err)
	assert.Equal(t, "chw-017", got.UserID)
}

func TestGetCorruptProfile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reporter.toml"), []byte("not = [valid"), 0600), "Setup: could not write corrupt profile")

	_, err := identity.New(slog.Default(), dir).Get()
	require.Error(t, err)
	require.NotErrorIs(t, err, identity.ErrProfileNotFound, "a corrupt profile is not a missing profile")
}
