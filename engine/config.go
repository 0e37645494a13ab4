package engine

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config configures an Engine
type Config struct {
	// CacheCapacity is the maximum number of compiled units kept in memory. 0 means unbounded.
	CacheCapacity int `yaml:"cache_capacity"`

	// MaxConcurrentCompiles bounds the number of units built by the backend at once.
	MaxConcurrentCompiles int64 `yaml:"max_concurrent_compiles"`

	// WorkDir is where the plugin backend writes plans and build artifacts.
	WorkDir string `yaml:"work_dir"`

	// BackendCommand is the compiler command run by the plugin backend, split on whitespace.
	// It is only used when no Backend is given in Params.
	BackendCommand string `yaml:"backend_command"`

	// LogLevel is one of trace, debug, info, warn, error or fatal.
	LogLevel string `yaml:"log_level"`
}

// RegisterFlags registers the flags for c with f
func (c *Config) RegisterFlags(f *flag.FlagSet) {
	c.RegisterFlagsWithPrefix("fuse.", f)
}

// RegisterFlagsWithPrefix registers the flags for c with f, each name prefixed with prefix
func (c *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.IntVar(&c.CacheCapacity, prefix+"cache-capacity", 0, "Maximum number of compiled units kept in memory. 0 means unbounded.")
	f.Int64Var(&c.MaxConcurrentCompiles, prefix+"max-concurrent-compiles", 1, "Maximum number of units built at once.")
	f.StringVar(&c.WorkDir, prefix+"work-dir", os.TempDir(), "Directory for plans and build artifacts of the plugin backend.")
	f.StringVar(&c.BackendCommand, prefix+"backend-command", "", "Compiler command which turns a plan into a Go plugin.")
	f.StringVar(&c.LogLevel, prefix+"log-level", "info", "Log level: trace, debug, info, warn, error or fatal.")
}

// LoadConfig reads a yaml Config from path. Fields missing from the file keep the values of base.
func LoadConfig(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	conf := base
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return base, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return conf, nil
}
