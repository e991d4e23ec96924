package cli

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds optional defaults loaded from a YAML file via --config.
// Flags given on the command line win over config values.
type Config struct {
	// Unsafe disables runtime predicate and cleanliness assertions.
	Unsafe bool `yaml:"unsafe,omitempty"`

	// MaxSteps overrides the default step quota when positive.
	MaxSteps int64 `yaml:"max_steps,omitempty"`

	// Journal is a SQLite path; when set, executions are traced to it.
	Journal string `yaml:"journal,omitempty"`
}

// LoadConfig reads a config file. Unknown fields are rejected so typos fail
// loudly rather than silently running with defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &c, nil
}
