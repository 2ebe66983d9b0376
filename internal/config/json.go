package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// parseJson overlays cfg with the values present in the JSON file at path.
// Keys missing from the file keep their current values. An empty path is a
// no-op.
func parseJson(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}
