package am

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "entityhub.db")

	v.SetDefault("yard.id", "default")
	v.SetDefault("yard.name", "Default Yard")
	v.SetDefault("yard.default_query_results", 100)
	v.SetDefault("yard.max_query_results", 1000)
	v.SetDefault("yard.read_only", false)
	v.SetDefault("yard.cache_size", 256)
	v.SetDefault("yard.access_mode", AccessModeOnline)

	v.SetDefault("converters.duration_null_as_zero", false)

	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars explicitly binds configuration that is commonly
// overridden per environment
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "ENTITYHUB_DATABASE_PATH")
	v.BindEnv("yard.id", "ENTITYHUB_YARD_ID")
}

// GetDatabasePath returns the database path, falling back to the default
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "entityhub.db"
	}
	return c.Database.Path
}

// GraphName returns the backing graph name of the configured yard.
// Derived deterministically from the yard id so a reopened yard reattaches
// to its persisted graph.
func (c *Config) GraphName() string {
	if c.Yard.GraphName != "" {
		return c.Yard.GraphName
	}
	return GraphNamePrefix + c.Yard.ID
}
