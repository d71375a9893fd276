// Package constants defines the constants used across the application,
// and provides the default configuration and cache paths.
package constants

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	// CmdName is the name of the command line tool.
	CmdName = "epinova-sync"

	// DefaultAppFolder is the name of the default root folder.
	DefaultAppFolder = "epinova-sync"

	// DefaultDBFileName is the base name of the pending reports database.
	DefaultDBFileName = "pending.db"

	// DefaultServerURL is the base URL of the submission service.
	DefaultServerURL = "https://epinova.onrender.com"

	// SubmitPath is the path of the disease report submission endpoint,
	// relative to the server base URL.
	SubmitPath = "/api/disease-reports"

	// DefaultProbeURL is a well-known, low-cost endpoint used to confirm that
	// DNS resolution and HTTP routing actually work before a sync pass.
	// It is an operational parameter, not a protocol dependency: any fast,
	// cache-proof URL works, and it can be swapped at runtime through the
	// endpoints file.
	DefaultProbeURL = "https://clients3.google.com/generate_204"

	// DefaultSyncInterval is the period of the automatic sync timer while the
	// device is online.
	DefaultSyncInterval = 30 * time.Second

	// DefaultMaxAttempts is the per-record delivery attempt budget within one
	// sync pass.
	DefaultMaxAttempts = 4

	// DefaultBaseRetryPeriod is the base delay of the per-record exponential
	// backoff between delivery attempts.
	DefaultBaseRetryPeriod = 500 * time.Millisecond

	// DefaultProbeTimeout is the reachability probe timeout used before a
	// sync pass starts.
	DefaultProbeTimeout = 3 * time.Second

	// DefaultPreflightTimeout is the shorter probe timeout used before each
	// individual delivery attempt.
	DefaultPreflightTimeout = 2 * time.Second

	// DefaultQuarantineThreshold is the number of permanent rejections a
	// record may accumulate before it is quarantined.
	DefaultQuarantineThreshold = 3

	// ReporterProfileFileName is the name of the reporter identity profile
	// file in the config directory.
	ReporterProfileFileName = "reporter.toml"

	// DefaultLogLevel is the default log level selected without any verbosity flags.
	DefaultLogLevel = slog.LevelWarn
)

var (
	// Version is the version of the application.
	Version = "Dev"

	// DefaultConfigPath is the default app user configuration path. It's overridden when imported.
	DefaultConfigPath = DefaultAppFolder
	// DefaultCachePath is the default app user cache path. It's overridden when imported.
	DefaultCachePath = DefaultAppFolder
)

func init() {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		panic(fmt.Sprintf("Could not fetch config directory: %v", err))
	}
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		panic(fmt.Sprintf("Could not fetch cache directory: %v", err))
	}

	DefaultConfigPath = filepath.Join(userConfigDir, DefaultConfigPath)
	DefaultCachePath = filepath.Join(userCacheDir, DefaultCachePath)
}

// DefaultDBPath returns the default path of the pending reports database.
func DefaultDBPath() string {
	return filepath.Join(DefaultCachePath, DefaultDBFileName)
}
