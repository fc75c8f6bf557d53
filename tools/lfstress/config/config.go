// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the settings of the lfstress tool.
//
// Settings come from three layers, later ones winning: Default, an optional
// TOML or YAML file chosen by extension, and command-line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"gvisor.dev/lockfree/pkg/log"
)

// Config is the configuration of a stress run.
type Config struct {
	// Goroutines is the number of concurrent workers.
	Goroutines int `toml:"goroutines" yaml:"goroutines"`

	// Rounds is the number of fresh cells raced in the cell scenario.
	Rounds int `toml:"rounds" yaml:"rounds"`

	// Iterations is the number of attempts each worker makes in the mutex
	// and oncemut scenarios.
	Iterations int `toml:"iterations" yaml:"iterations"`

	// Statics is the number of statics declared by the statics scenario.
	Statics int `toml:"statics" yaml:"statics"`

	// Blocking makes workers wait for contended locks with backoff instead
	// of counting a refusal.
	Blocking bool `toml:"blocking" yaml:"blocking"`

	// Timeout bounds the whole run.
	Timeout time.Duration `toml:"timeout" yaml:"timeout"`

	// LogLevel is one of "warning", "info" or "debug".
	LogLevel string `toml:"log_level" yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Goroutines: 8,
		Rounds:     1000,
		Iterations: 10000,
		Statics:    32,
		Timeout:    time.Minute,
		LogLevel:   "info",
	}
}

// Load returns Default overlaid with the file at path. An empty path returns
// Default.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config file %q: unknown extension %q, want .toml, .yaml or .yml", path, ext)
	}
	return c, nil
}

// Validate checks that c describes a runnable configuration.
func (c *Config) Validate() error {
	var errs error
	if c.Goroutines < 1 {
		errs = multierror.Append(errs, fmt.Errorf("goroutines must be positive, got %d", c.Goroutines))
	}
	if c.Rounds < 1 {
		errs = multierror.Append(errs, fmt.Errorf("rounds must be positive, got %d", c.Rounds))
	}
	if c.Iterations < 1 {
		errs = multierror.Append(errs, fmt.Errorf("iterations must be positive, got %d", c.Iterations))
	}
	if c.Statics < 1 {
		errs = multierror.Append(errs, fmt.Errorf("statics must be positive, got %d", c.Statics))
	}
	if c.Timeout <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("timeout must be positive, got %v", c.Timeout))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errs
}

// Level returns the parsed log level. c must be valid.
func (c *Config) Level() log.Level {
	l, _ := log.ParseLevel(c.LogLevel)
	return l
}

// RegisterFlags registers a flag for every setting on fs. The flag defaults
// are only shown in help; ApplyFlags copies the flags that were set.
func RegisterFlags(fs *flag.FlagSet) {
	d := Default()
	fs.Int("goroutines", d.Goroutines, "number of concurrent workers.")
	fs.Int("rounds", d.Rounds, "number of fresh cells raced by the cell scenario.")
	fs.Int("iterations", d.Iterations, "attempts per worker in the mutex and oncemut scenarios.")
	fs.Int("statics", d.Statics, "number of statics declared by the statics scenario.")
	fs.Bool("blocking", d.Blocking, "wait for contended locks with backoff instead of counting refusals.")
	fs.Duration("timeout", d.Timeout, "bound on the whole run.")
	fs.String("log-level", d.LogLevel, "log level: warning, info or debug.")
}

// ApplyFlags overrides c with every flag registered by RegisterFlags that was
// explicitly set on fs.
func ApplyFlags(fs *flag.FlagSet, c *Config) {
	fs.Visit(func(f *flag.Flag) {
		getter, ok := f.Value.(flag.Getter)
		if !ok {
			return
		}
		switch v := getter.Get(); f.Name {
		case "goroutines":
			c.Goroutines = v.(int)
		case "rounds":
			c.Rounds = v.(int)
		case "iterations":
			c.Iterations = v.(int)
		case "statics":
			c.Statics = v.(int)
		case "blocking":
			c.Blocking = v.(bool)
		case "timeout":
			c.Timeout = v.(time.Duration)
		case "log-level":
			c.LogLevel = v.(string)
		}
	})
}
