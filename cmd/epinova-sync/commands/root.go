// Package commands implements the epinova-sync command line interface.
package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/cli"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/constants"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/service"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/syncer"
)

// App represents the application.
type App struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	config appConfig
}

// appConfig holds the configuration for the application.
type appConfig struct {
	Verbosity int  `mapstructure:"verbose"`
	JSONLogs  bool `mapstructure:"json-logs"`

	ServerURL     string `mapstructure:"server-url"`
	ProbeURL      string `mapstructure:"probe-url"`
	DBPath        string `mapstructure:"db-path"`
	EndpointsFile string `mapstructure:"endpoints-file"`
	ProfileDir    string `mapstructure:"profile-dir"`

	SyncInterval        time.Duration `mapstructure:"sync-interval"`
	MaxAttempts         int           `mapstructure:"max-attempts"`
	BaseRetryPeriod     time.Duration `mapstructure:"base-retry-period"`
	ProbeTimeout        time.Duration `mapstructure:"probe-timeout"`
	PreflightTimeout    time.Duration `mapstructure:"preflight-timeout"`
	QuarantineThreshold int           `mapstructure:"quarantine-threshold"`

	Submit submitConfig
	Status statusConfig
}

// New creates a new App instance with default values.
func New() (*App, error) {
	a := App{}

	a.cmd = &cobra.Command{
		Use:   constants.CmdName + " [COMMAND]",
		Short: "Offline-first sync agent for EpiNova disease reports",
		Long: `Offline-first sync agent for EpiNova disease reports.

Reports submitted in the field are persisted locally and opportunistically
delivered to the central service whenever the network actually works.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.cmd.SilenceUsage = true
			cli.SetVerbosity(a.config.Verbosity) // Set verbosity before loading config
			if err := cli.InitViperConfig(constants.CmdName, a.cmd, a.viper); err != nil {
				return err
			}
			if err := a.viper.Unmarshal(&a.config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			))); err != nil {
				return fmt.Errorf("unable to strictly decode configuration into struct: %w", err)
			}
			slog.Debug("Got app config", "config", a.config)

			cli.SetSlog(a.config.Verbosity, a.config.JSONLogs)
			return nil
		},
	}
	a.viper = viper.New()
	a.cmd.CompletionOptions.HiddenDefaultCmd = true

	installRootCmd(&a)
	cli.InstallConfigFlag(a.cmd)

	if err := a.viper.BindPFlags(a.cmd.PersistentFlags()); err != nil {
		return nil, err
	}

	installRunCmd(&a)
	installSubmitCmd(&a)
	installSyncCmd(&a)
	installStatusCmd(&a)
	installQuarantineCmd(&a)
	installIdentityCmd(&a)
	a.installVersion()

	return &a, nil
}

func installRootCmd(app *App) {
	cmd := app.cmd

	cmd.PersistentFlags().CountVarP(&app.config.Verbosity, "verbose", "v", "issue INFO (-v), DEBUG (-vv)")
	cmd.PersistentFlags().BoolVar(&app.config.JSONLogs, "json-logs", false, "emit logs in JSON format")

	cmd.PersistentFlags().StringVar(&app.config.ServerURL, "server-url", constants.DefaultServerURL, "base URL of the submission service")
	cmd.PersistentFlags().StringVar(&app.config.ProbeURL, "probe-url", constants.DefaultProbeURL, "URL of the reachability probe endpoint")
	cmd.PersistentFlags().StringVar(&app.config.DBPath, "db-path", constants.DefaultDBPath(), "path of the pending reports database")
	cmd.PersistentFlags().StringVar(&app.config.EndpointsFile, "endpoints-file", "", "path of a hot-reloadable endpoints file")
	cmd.PersistentFlags().StringVar(&app.config.ProfileDir, "profile-dir", constants.DefaultConfigPath, "directory of the reporter identity profile")

	cmd.PersistentFlags().DurationVar(&app.config.SyncInterval, "sync-interval", constants.DefaultSyncInterval, "period of the automatic sync timer while online")
	cmd.PersistentFlags().IntVar(&app.config.MaxAttempts, "max-attempts", constants.DefaultMaxAttempts, "per-record delivery attempts within one sync pass")
	cmd.PersistentFlags().DurationVar(&app.config.BaseRetryPeriod, "base-retry-period", constants.DefaultBaseRetryPeriod, "base delay of the per-record retry backoff")
	cmd.PersistentFlags().DurationVar(&app.config.ProbeTimeout, "probe-timeout", constants.DefaultProbeTimeout, "reachability probe timeout before a sync pass")
	cmd.PersistentFlags().DurationVar(&app.config.PreflightTimeout, "preflight-timeout", constants.DefaultPreflightTimeout, "reachability probe timeout before each delivery attempt")
	cmd.PersistentFlags().IntVar(&app.config.QuarantineThreshold, "quarantine-threshold", constants.DefaultQuarantineThreshold, "permanent rejections before a report is quarantined, 0 disables quarantine")

	if err := cmd.MarkPersistentFlagFilename("db-path"); err != nil {
		// This should never happen.
		panic(fmt.Sprintf("failed to mark db-path flag as filename: %v", err))
	}
	if err := cmd.MarkPersistentFlagFilename("endpoints-file"); err != nil {
		// This should never happen.
		panic(fmt.Sprintf("failed to mark endpoints-file flag as filename: %v", err))
	}
	if err := cmd.MarkPersistentFlagDirname("profile-dir"); err != nil {
		// This should never happen.
		panic(fmt.Sprintf("failed to mark profile-dir flag as dirname: %v", err))
	}
}

// Run executes the command and associated process, returning an error if any.
func (a *App) Run() error {
	return a.cmd.Execute()
}

// UsageError returns if the error is a command parsing or runtime one.
func (a *App) UsageError() bool {
	return !a.cmd.SilenceUsage
}

// RootCmd returns the root command.
func (a *App) RootCmd() cobra.Command {
	return *a.cmd
}

func (a *App) syncConfig() syncer.Config {
	return syncer.Config{
		SyncInterval:        a.config.SyncInterval,
		MaxAttempts:         a.config.MaxAttempts,
		BaseRetryPeriod:     a.config.BaseRetryPeriod,
		ProbeTimeout:        a.config.ProbeTimeout,
		PreflightTimeout:    a.config.PreflightTimeout,
		QuarantineThreshold: a.config.QuarantineThreshold,
	}
}

func (a *App) serviceConfig() service.Config {
	return service.Config{
		DBPath:        a.config.DBPath,
		ServerURL:     a.config.ServerURL,
		ProbeURL:      a.config.ProbeURL,
		EndpointsFile: a.config.EndpointsFile,
		Sync:          a.syncConfig(),
	}
}
