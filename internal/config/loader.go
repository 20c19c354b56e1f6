package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STATEBUS_"

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result. An empty path yields the defaults
// with environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if cfg, err = decode(path, data); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg, os.LookupEnv)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML data, applies defaults and validates the result.
// Environment overrides are not consulted.
func Parse(data []byte) (Config, error) {
	cfg, err := decode("<bytes>", data)
	if err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode parses YAML strictly: unknown fields are errors.
func decode(source string, data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, &ParseError{Path: source, Err: err}
	}
	return cfg, nil
}

// envMapping maps environment variables to the fields they override.
var envMapping = map[string]func(*Config, string){
	EnvPrefix + "LOG_LEVEL":            func(c *Config, v string) { c.Log.Level = strings.ToLower(v) },
	EnvPrefix + "BUS_NAME":             func(c *Config, v string) { c.Bus.Name = v },
	EnvPrefix + "BUS_DEFAULT_EXECUTOR": func(c *Config, v string) { c.Bus.DefaultExecutor = v },
}

// applyEnv applies environment overrides. Empty values count as set.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	for name, set := range envMapping {
		if v, ok := lookup(name); ok {
			set(cfg, v)
		}
	}
}
