package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Writes the effective configuration as YAML.
func Dump(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(cfg)
	if err != nil {
		return fmt.Errorf("could not encode config: %w", err)
	}

	return enc.Close()
}
