// internal/config/load.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tamzrod/handler-simulator/internal/handler"
)

// Load reads a YAML configuration file.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration bytes onto the engine defaults, so an
// omitted key keeps its default and an explicit zero stays zero.
func Parse(raw []byte) (*Config, error) {
	cfg := seed()

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return cfg, nil
}

// seed returns a Config holding the defaults of the fields whose zero value
// is itself meaningful: 0 devices stops at once, 0 ms disables the delay.
func seed() *Config {
	cfg := &Config{}
	cfg.Simulator.Handler.DevicesToTest = handler.ContinuousTesting
	cfg.Simulator.Handler.HandlingDelayMs = DefaultHandlingDelayMs
	return cfg
}
