// Package config loads the server's configuration from a YAML file and
// layers CLI flags on top of it, following the same "file below, flags
// above" convention as the rest of the example stack this server draws on.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReplicaOf names the primary a replica should stream from.
type ReplicaOf struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Config is the full set of knobs the server binary accepts, from either
// the optional YAML file or the CLI flags that can override it.
type Config struct {
	Host           string     `yaml:"host"`
	Port           int        `yaml:"port"`
	MaxConnections int        `yaml:"max_connections"`
	AOFPath        string     `yaml:"aof_path"`
	FsyncPolicy    string     `yaml:"fsync_policy"`
	ReplicaOf      *ReplicaOf `yaml:"replica_of"`
	MetricsAddr    string     `yaml:"metrics_addr"`
	LogLevel       string     `yaml:"log_level"`
	LogFormat      string     `yaml:"log_format"`
}

// Defaults returns the built-in configuration, matching spec.md's stated
// CLI defaults (127.0.0.1:6399, 1024 connections, everysec fsync).
func Defaults() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           6399,
		MaxConnections: 1024,
		FsyncPolicy:    "everysec",
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// LoadFile reads and parses a YAML config file. A missing path is not an
// error: the caller gets the zero Config back and keeps running on
// defaults plus flags.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Merge overlays any non-zero field of override onto base, used to layer a
// config file's values on top of the built-in defaults before flags get
// their turn to override both.
func Merge(base, override Config) Config {
	out := base
	if override.Host != "" {
		out.Host = override.Host
	}
	if override.Port != 0 {
		out.Port = override.Port
	}
	if override.MaxConnections != 0 {
		out.MaxConnections = override.MaxConnections
	}
	if override.AOFPath != "" {
		out.AOFPath = override.AOFPath
	}
	if override.FsyncPolicy != "" {
		out.FsyncPolicy = override.FsyncPolicy
	}
	if override.ReplicaOf != nil {
		out.ReplicaOf = override.ReplicaOf
	}
	if override.MetricsAddr != "" {
		out.MetricsAddr = override.MetricsAddr
	}
	if override.LogLevel != "" {
		out.LogLevel = override.LogLevel
	}
	if override.LogFormat != "" {
		out.LogFormat = override.LogFormat
	}
	return out
}
