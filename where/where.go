// Package where implements a cross-platform resolver for application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/melodeck/melodeck/constant"
	"github.com/melodeck/melodeck/filesystem"
	"github.com/samber/lo"
)

// EnvConfigPath is the environment variable identifier used to override the default configuration directory.
const EnvConfigPath = "MELODECK_CONFIG_PATH"

// ensureDir guarantees the existence of a directory at the specified path, creating it if necessary.
func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the absolute path to the primary application configuration directory.
// The path resolution can be explicitly specified via the MELODECK_CONFIG_PATH environment variable.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.App))
}

// Cache resolves the absolute path to the application's persistent cache directory.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.App))
}

// Logs resolves the absolute path to the directory used for application diagnostic logs.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// History resolves the path to the listening history file.
func History() string {
	return filepath.Join(Config(), "history.json")
}

// Playlists resolves the path to the playlist store.
func Playlists() string {
	return filepath.Join(Config(), "playlists.json")
}

// Queries resolves the absolute path to the localized search query suggestion registry.
func Queries() string {
	return filepath.Join(Cache(), "queries.json")
}

// Temp resolves a volatile directory for transient application artifacts.
func Temp() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.App))
}

// Socket returns the default control-socket address for the player process:
// a named pipe on Windows, a filesystem socket elsewhere.
func Socket() string {
	if runtime.GOOS == constant.Windows {
		return `\\.\pipe\` + constant.App
	}
	return filepath.Join(os.TempDir(), constant.App+".sock")
}
