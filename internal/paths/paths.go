// Package paths resolves where doireg keeps its configuration and its
// registry data.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "doireg"

// Directory names used relative to the working directory.
const (
	DefaultConfigDirName = ".doireg"
	DefaultDataDirName   = ".doireg-db"
)

// Environment overrides.
const (
	EnvConfigDir = "DOIREG_CONFIG_DIR"
	EnvDataDir   = "DOIREG_DATA_DIR"
)

// platformDir is swapped out in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform configuration directory for doireg.
//
// Linux:   $XDG_CONFIG_HOME/doireg (fallback ~/.config/doireg)
// Others:  os.UserConfigDir()/doireg
func DefaultConfigDir() (string, error) {
	return platformPath("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory for doireg.
//
// Linux:   $XDG_DATA_HOME/doireg (fallback ~/.local/share/doireg)
// Others:  os.UserConfigDir()/doireg
func DefaultDataDir() (string, error) {
	return platformPath("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func platformPath(xdgVar, homeRel string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, appName), nil
}

// ResolveConfigDir picks the configuration directory: flag, then
// DOIREG_CONFIG_DIR, then DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir picks the data directory: flag, then the data_dir value
// from config.yaml, then DOIREG_DATA_DIR, then .doireg-db under the
// working directory.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, v := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}
