package am

import (
	"github.com/BurntSushi/toml"

	"github.com/teranos/entityhub/errors"
)

// CheckResult reports the outcome of a strict decode of one config file
type CheckResult struct {
	Path string
	// UnknownKeys lists keys present in the file that no Config field consumes
	UnknownKeys []string
}

// CheckFile decodes a config file strictly and reports keys that Load would
// silently ignore (typos such as yard.max_query_result).
func CheckFile(path string) (*CheckResult, error) {
	var config Config
	meta, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}

	result := &CheckResult{Path: path}
	for _, key := range meta.Undecoded() {
		result.UnknownKeys = append(result.UnknownKeys, key.String())
	}

	if err := config.Validate(); err != nil {
		// Only fields set in the file are validated; unset ones come from defaults at load time
		if meta.IsDefined("yard") {
			return result, errors.Wrapf(err, "invalid %s", path)
		}
	}
	return result, nil
}
