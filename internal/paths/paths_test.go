package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformDirs_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name   string
		envVar string
		envVal string
		fn     func() (string, error)
		want   string
	}{
		{"config from XDG", "XDG_CONFIG_HOME", "/tmp/xdg-config", DefaultConfigDir, "/tmp/xdg-config/doireg"},
		{"config fallback", "XDG_CONFIG_HOME", "", DefaultConfigDir, filepath.Join(home, ".config", "doireg")},
		{"data from XDG", "XDG_DATA_HOME", "/tmp/xdg-data", DefaultDataDir, "/tmp/xdg-data/doireg"},
		{"data fallback", "XDG_DATA_HOME", "", DefaultDataDir, filepath.Join(home, ".local", "share", "doireg")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envVar, tt.envVal)
			got, err := tt.fn()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultConfigDir_HomeError(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}
	orig := platformDir.homeDir
	t.Cleanup(func() { platformDir.homeDir = orig })
	platformDir.homeDir = func() (string, error) { return "", errors.New("no home") }
	t.Setenv("XDG_CONFIG_HOME", "")

	_, err := DefaultConfigDir()
	assert.EqualError(t, err, "no home")
}

func TestResolveConfigDir(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		envVal  string
		wantSub string
	}{
		{"flag wins over env", "/explicit/config", "/env/config", "/explicit/config"},
		{"env wins when flag empty", "", "/env/config", "/env/config"},
		{"platform default", "", "", "doireg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.envVal)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Contains(t, got, tt.wantSub)
			assert.True(t, filepath.IsAbs(got))
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name        string
		flag        string
		configValue string
		envVal      string
		want        string
	}{
		{"flag wins over all", "/flag/data", "/config/data", "/env/data", "/flag/data"},
		{"config wins over env", "", "/config/data", "/env/data", "/config/data"},
		{"env when flag and config empty", "", "", "/env/data", "/env/data"},
		{"working directory default", "", "", "", filepath.Join(cwd, DefaultDataDirName)},
		{"relative flag made absolute", "rel/data", "", "", filepath.Join(cwd, "rel", "data")},
		{"relative config made absolute", "", "rel/config", "", filepath.Join(cwd, "rel", "config")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.envVal)
			got, err := ResolveDataDir(tt.flag, tt.configValue)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
