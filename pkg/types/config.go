package types

import "errors"

// Config holds backend selection and runtime parameters.
type Config struct {
	Backend      string         `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir      string         `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	PostgresURL  string         `json:"postgres_url,omitempty" yaml:"postgres_url,omitempty" mapstructure:"postgres_url"`
	SyncStrategy string         `json:"sync_strategy,omitempty" yaml:"sync_strategy,omitempty" mapstructure:"sync_strategy"`
	Log          LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
	Citation     CitationConfig `json:"citation" yaml:"citation" mapstructure:"citation"`
}

// LogConfig selects the logger build.
type LogConfig struct {
	Mode  string `json:"mode" yaml:"mode" mapstructure:"mode"`
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

// CitationConfig sets the fallback style and locale for citation text.
type CitationConfig struct {
	Style  string `json:"style" yaml:"style" mapstructure:"style"`
	Locale string `json:"locale" yaml:"locale" mapstructure:"locale"`
}

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Sync strategies for the SQLite backend's JSONL files.
const (
	SyncImmediate = "immediate"
	SyncOnClose   = "on_close"
)

// Log modes.
const (
	LogModeDevelopment = "development"
	LogModeProduction  = "production"
)

// Config validation errors.
var (
	ErrBackendEmpty        = errors.New("backend must not be empty")
	ErrBackendUnknown      = errors.New("unknown backend")
	ErrSyncStrategyUnknown = errors.New("unknown sync strategy")
	ErrPostgresURLEmpty    = errors.New("postgres backend requires postgres_url")
	ErrLogModeUnknown      = errors.New("unknown log mode")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendPostgres: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.SyncStrategy {
	case "", SyncImmediate, SyncOnClose:
	default:
		return ErrSyncStrategyUnknown
	}
	if c.Backend == BackendPostgres && c.PostgresURL == "" {
		return ErrPostgresURLEmpty
	}
	switch c.Log.Mode {
	case "", LogModeDevelopment, LogModeProduction:
	default:
		return ErrLogModeUnknown
	}
	return nil
}

// EffectiveSyncStrategy returns the configured strategy or immediate.
func (c Config) EffectiveSyncStrategy() string {
	if c.SyncStrategy == "" {
		return SyncImmediate
	}
	return c.SyncStrategy
}
