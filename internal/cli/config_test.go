package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/cli"
)

func newTestCmd(t *testing.T) *cobra.Command {
	t.Helper()

	cmd := &cobra.Command{Use: "test", RunE: func(cmd *cobra.Command, args []string) error { return nil }}
	cli.InstallConfigFlag(cmd)
	return cmd
}

func TestInitViperConfigWithoutFile(t *testing.T) {
	cmd := newTestCmd(t)
	require.NoError(t, cli.InitViperConfig("epinova-sync-test", cmd, viper.New()),
		"a missing configuration file is not an error")
}

func TestInitViperConfigExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server-url: https://example.com\nmax-attempts: 7\n"), 0600),
		"Setup: could not write config file")

	cmd := newTestCmd(t)
	require.NoError(t, cmd.PersistentFlags().Set("config", path), "Setup: could not set config flag")

	vip := viper.New()
	require.NoError(t, cli.InitViperConfig("epinova-sync-test", cmd, vip))

	assert.Equal(t, "https://example.com", vip.GetString("server-url"))
	assert.Equal(t, 7, vip.GetInt("max-attempts"))
}

func TestInitViperConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server-url: [unclosed"), 0600),
		"Setup: could not write config file")

	cmd := newTestCmd(t)
	require.NoError(t, cmd.PersistentFlags().Set("config", path), "Setup: could not set config flag")

	require.Error(t, cli.InitViperConfig("epinova-sync-test", cmd, viper.New()))
}

func TestInitViperConfigBindsEnv(t *testing.T) {
	t.Setenv("EPINOVA_SYNC_TEST_SERVER_URL", "https://env.example.com")

	cmd := newTestCmd(t)
	vip := viper.New()
	require.NoError(t, cli.InitViperConfig("epinova-sync-test", cmd, vip))

	assert.Equal(t, "https://env.example.com", vip.GetString("server.url"))
}
