package am

// Config represents the entityhub configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database" toml:"database"`
	Yard       YardConfig       `mapstructure:"yard" toml:"yard"`
	Converters ConvertersConfig `mapstructure:"converters" toml:"converters"`
	Log        LogConfig        `mapstructure:"log" toml:"log"`
}

// DatabaseConfig configures the SQLite database holding every yard's graph
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// YardConfig configures the yard opened by the CLI
type YardConfig struct {
	ID          string `mapstructure:"id" toml:"id"`
	Name        string `mapstructure:"name" toml:"name"`
	Description string `mapstructure:"description" toml:"description"`

	// GraphName overrides the derived backing graph name (urn:entityhub:yard:<id>)
	GraphName string `mapstructure:"graph_name" toml:"graph_name"`

	// Result bounds for find/find-references: 0 max = uncapped
	DefaultQueryResults int `mapstructure:"default_query_results" toml:"default_query_results"`
	MaxQueryResults     int `mapstructure:"max_query_results" toml:"max_query_results"`

	ReadOnly  bool `mapstructure:"read_only" toml:"read_only"`
	CacheSize int  `mapstructure:"cache_size" toml:"cache_size"` // 0 = no read cache

	// AccessMode is one of online, tolerated, offline
	AccessMode string `mapstructure:"access_mode" toml:"access_mode"`
	// FallbackID names the yard read when the primary is unavailable
	FallbackID string `mapstructure:"fallback_id" toml:"fallback_id"`
}

// ConvertersConfig configures the value converter registry
type ConvertersConfig struct {
	// DurationNullAsZero makes the Duration converter map a nil input to 0s
	DurationNullAsZero bool `mapstructure:"duration_null_as_zero" toml:"duration_null_as_zero"`
}

// LogConfig configures logging output
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json"`
}

// Access modes accepted in yard.access_mode
const (
	AccessModeOnline    = "online"
	AccessModeTolerated = "tolerated"
	AccessModeOffline   = "offline"
)

// GraphNamePrefix prefixes the derived graph name of every yard
const GraphNamePrefix = "urn:entityhub:yard:"

// DefaultDirPermissions for ~/.entityhub
const DefaultDirPermissions = 0750
