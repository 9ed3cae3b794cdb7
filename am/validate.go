package am

import "github.com/teranos/entityhub/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Database path is optional - empty falls back to entityhub.db

	if c.Yard.ID == "" {
		return errors.NewConfigurationError("yard.id cannot be empty")
	}

	// Result bounds: 0 max = uncapped, negative = invalid
	if c.Yard.DefaultQueryResults < 0 {
		return errors.NewConfigurationError("yard.default_query_results must be >= 0, got %d", c.Yard.DefaultQueryResults)
	}
	if c.Yard.MaxQueryResults < 0 {
		return errors.NewConfigurationError("yard.max_query_results must be >= 0, got %d", c.Yard.MaxQueryResults)
	}
	if c.Yard.MaxQueryResults > 0 && c.Yard.DefaultQueryResults > c.Yard.MaxQueryResults {
		return errors.NewConfigurationError("yard.default_query_results (%d) exceeds yard.max_query_results (%d)",
			c.Yard.DefaultQueryResults, c.Yard.MaxQueryResults)
	}

	if c.Yard.CacheSize < 0 {
		return errors.NewConfigurationError("yard.cache_size must be >= 0, got %d", c.Yard.CacheSize)
	}

	switch c.Yard.AccessMode {
	case "", AccessModeOnline:
	case AccessModeTolerated, AccessModeOffline:
		if c.Yard.FallbackID == "" {
			return errors.WithHint(
				errors.NewConfigurationError("yard.access_mode %q requires yard.fallback_id", c.Yard.AccessMode),
				"set yard.fallback_id to the id of a yard in the same database")
		}
		if c.Yard.FallbackID == c.Yard.ID {
			return errors.NewConfigurationError("yard.fallback_id cannot be the yard itself (%q)", c.Yard.ID)
		}
	default:
		return errors.NewConfigurationError("yard.access_mode must be one of online, tolerated, offline; got %q", c.Yard.AccessMode)
	}

	return nil
}
