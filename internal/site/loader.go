package site

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Source yields a site configuration. The builder asks for a fresh one on
// every build so edits to the site file are picked up while serving.
type Source interface {
	Load() (Config, error)
}

// Loader reads a YAML site file layered over Default().
type Loader struct {
	filePath     string
	allowMissing bool
}

// NewLoader creates a loader for filePath. With allowMissing a missing file
// yields the defaults instead of an error.
func NewLoader(filePath string, allowMissing bool) *Loader {
	return &Loader{filePath: filePath, allowMissing: allowMissing}
}

// Path returns the site file location.
func (l *Loader) Path() string { return l.filePath }

// Load reads, normalizes and validates the site file.
func (l *Loader) Load() (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(l.filePath)
	switch {
	case err == nil:
		if err := decode(expandEnv(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse site file %s: %w", l.filePath, err)
		}
	case errors.Is(err, fs.ErrNotExist) && l.allowMissing:
		// built-in defaults
	default:
		return Config{}, fmt.Errorf("failed to read site file: %w", err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Static is a Source returning a fixed configuration.
type Static Config

// Load normalizes and validates the wrapped configuration.
func (s Static) Load() (Config, error) {
	cfg := Config(s)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv substitutes ${VAR} references with the environment value.
// Unset variables expand to the empty string.
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envRef.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}
