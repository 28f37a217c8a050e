// Package config loads YAML configuration on top of caller-supplied
// defaults, with environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load decodes a YAML file into target after expanding $VAR, ${VAR} and
// ${VAR:-default} references. Fields missing from the file keep the values
// target already holds. A target implementing Validator is validated.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal([]byte(Expand(string(data))), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return validate(target)
}

// LoadOptional is Load for a file that may be absent. A missing file leaves
// target at its defaults, which are still validated; found reports whether
// the file was read.
func LoadOptional[T any](filename string, target *T) (found bool, err error) {
	if _, statErr := os.Stat(filename); errors.Is(statErr, os.ErrNotExist) {
		return false, validate(target)
	}
	return true, Load(filename, target)
}

func validate[T any](target *T) error {
	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

// Expand replaces environment references in s. ${VAR:-default} yields
// default when VAR is unset or empty.
func Expand(s string) string {
	return os.Expand(s, func(name string) string {
		key, def, hasDef := strings.Cut(name, ":-")
		if v := os.Getenv(key); v != "" || !hasDef {
			return v
		}
		return def
	})
}
