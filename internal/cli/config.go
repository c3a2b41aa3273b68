package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/doireg/internal/codec/citation"
	"github.com/mesh-intelligence/doireg/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "DOIREG"
)

// defaultConfig is written to config.yaml on first run and backs every key
// that the file leaves out.
var defaultConfig = types.Config{
	Backend:      types.BackendSQLite,
	SyncStrategy: types.SyncImmediate,
	Log:          types.LogConfig{Mode: types.LogModeDevelopment, Level: "warn"},
	Citation:     types.CitationConfig{Style: citation.DefaultStyle, Locale: citation.DefaultLocale},
}

func configPath(configDir string) string {
	return filepath.Join(configDir, configFileName+"."+configFileType)
}

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file on first run. Keys can be overridden by DOIREG_* variables,
// with dots replaced by underscores (DOIREG_LOG_LEVEL).
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	if err := writeConfigIfMissing(configPath(configDir)); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}

	v := viper.New()
	v.SetDefault("backend", defaultConfig.Backend)
	v.SetDefault("data_dir", "")
	v.SetDefault("postgres_url", "")
	v.SetDefault("sync_strategy", defaultConfig.SyncStrategy)
	v.SetDefault("log.mode", defaultConfig.Log.Mode)
	v.SetDefault("log.level", defaultConfig.Log.Level)
	v.SetDefault("citation.style", defaultConfig.Citation.Style)
	v.SetDefault("citation.locale", defaultConfig.Citation.Locale)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func decodeConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// writeConfigIfMissing leaves an existing file alone.
func writeConfigIfMissing(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	data, err := yaml.Marshal(&defaultConfig)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# doireg configuration. DOIREG_* environment variables override these keys.\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
