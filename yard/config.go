package yard

import (
	"strings"

	"github.com/teranos/entityhub/am"
	"github.com/teranos/entityhub/errors"
)

// AccessMode selects where reads are served from
type AccessMode int

const (
	// Online reads from the yard's own graph only
	Online AccessMode = iota
	// Tolerated reads from the yard's graph and falls back on storage failures
	Tolerated
	// Offline reads from the fallback only
	Offline
)

func (m AccessMode) String() string {
	switch m {
	case Tolerated:
		return am.AccessModeTolerated
	case Offline:
		return am.AccessModeOffline
	}
	return am.AccessModeOnline
}

// ParseAccessMode parses online, tolerated or offline. An empty string is
// Online.
func ParseAccessMode(s string) (AccessMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", am.AccessModeOnline:
		return Online, nil
	case am.AccessModeTolerated:
		return Tolerated, nil
	case am.AccessModeOffline:
		return Offline, nil
	}
	return Online, errors.NewConfigurationError("unknown access mode %q", s)
}

// Config describes one yard
type Config struct {
	ID          string
	Name        string
	Description string

	// GraphName overrides the graph derived from ID
	GraphName string

	DefaultQueryResults int
	MaxQueryResults     int

	ReadOnly   bool
	CacheSize  int
	AccessMode AccessMode

	DurationNullAsZero bool
}

// Graph returns the name of the backing graph
func (c Config) Graph() string {
	if c.GraphName != "" {
		return c.GraphName
	}
	return am.GraphNamePrefix + c.ID
}

// FromAm derives the yard configuration from the loaded am configuration
func FromAm(cfg *am.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.NewConfigurationError("no configuration loaded")
	}
	mode, err := ParseAccessMode(cfg.Yard.AccessMode)
	if err != nil {
		return Config{}, err
	}
	return Config{
		ID:                  cfg.Yard.ID,
		Name:                cfg.Yard.Name,
		Description:         cfg.Yard.Description,
		GraphName:           cfg.GraphName(),
		DefaultQueryResults: cfg.Yard.DefaultQueryResults,
		MaxQueryResults:     cfg.Yard.MaxQueryResults,
		ReadOnly:            cfg.Yard.ReadOnly,
		CacheSize:           cfg.Yard.CacheSize,
		AccessMode:          mode,
		DurationNullAsZero:  cfg.Converters.DurationNullAsZero,
	}, nil
}

// FallbackConfig derives the configuration of the read-only yard named by
// yard.fallback_id. ok is false when none is configured.
func FallbackConfig(cfg *am.Config) (Config, bool) {
	if cfg == nil || cfg.Yard.FallbackID == "" {
		return Config{}, false
	}
	return Config{
		ID:                  cfg.Yard.FallbackID,
		Name:                cfg.Yard.FallbackID,
		DefaultQueryResults: cfg.Yard.DefaultQueryResults,
		MaxQueryResults:     cfg.Yard.MaxQueryResults,
		ReadOnly:            true,
		CacheSize:           cfg.Yard.CacheSize,
		DurationNullAsZero:  cfg.Converters.DurationNullAsZero,
	}, true
}

func (c Config) validate() error {
	if c.ID == "" {
		return errors.NewConfigurationError("yard id must not be empty")
	}
	if c.DefaultQueryResults < 0 || c.MaxQueryResults < 0 {
		return errors.NewConfigurationError("yard %s: query result bounds must not be negative", c.ID)
	}
	if c.CacheSize < 0 {
		return errors.NewConfigurationError("yard %s: cache size must not be negative", c.ID)
	}
	return nil
}
