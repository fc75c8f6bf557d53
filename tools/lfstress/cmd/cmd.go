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

// Package cmd holds implementations of the lfstress commands.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/google/subcommands"

	"gvisor.dev/lockfree/pkg/log"
	"gvisor.dev/lockfree/tools/lfstress/config"
	"gvisor.dev/lockfree/tools/lfstress/stress"
)

// Globals carries the top-level flags and outputs into every command. It is
// passed as the first argument of subcommands.Execute.
type Globals struct {
	// ConfigPath is the optional TOML or YAML configuration file.
	ConfigPath string

	// Format is the report format, "text" or "prometheus".
	Format string

	// Debug forces the debug log level regardless of the configuration.
	Debug bool

	// Out receives the report.
	Out io.Writer
}

// Scenario implements subcommands.Command for one stress scenario.
type Scenario struct {
	name     string
	synopsis string
	usage    string
}

// Commands returns the lfstress commands: one per scenario, plus "all".
func Commands() []subcommands.Command {
	return []subcommands.Command{
		&Scenario{
			name:     "cell",
			synopsis: "race Set, SetWith and GetOrInit on fresh OnceCells",
			usage:    "cell [flags] - checks that each cell is won by exactly one writer and never read torn.\n",
		},
		&Scenario{
			name:     "mutex",
			synopsis: "hammer a Mutex with TryLock",
			usage:    "mutex [flags] - checks mutual exclusion and that no increment is lost.\n",
		},
		&Scenario{
			name:     "oncemut",
			synopsis: "race initialization and exclusive borrows of a OnceMut",
			usage:    "oncemut [flags] - checks single initialization, exclusive borrows and permanent borrows.\n",
		},
		&Scenario{
			name:     "statics",
			synopsis: "race InitAll on a registry of statics",
			usage:    "statics [flags] - checks that each static is constructed once, surviving a panicking constructor.\n",
		},
		&All{},
	}
}

// Name implements subcommands.Command.Name.
func (s *Scenario) Name() string {
	return s.name
}

// Synopsis implements subcommands.Command.Synopsis.
func (s *Scenario) Synopsis() string {
	return s.synopsis
}

// Usage implements subcommands.Command.Usage.
func (s *Scenario) Usage() string {
	return s.usage
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Scenario) SetFlags(f *flag.FlagSet) {
	config.RegisterFlags(f)
}

// Execute implements subcommands.Command.Execute.
func (s *Scenario) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return run(ctx, f, args[0].(*Globals), s.name)
}

// All implements subcommands.Command for the "all" command.
type All struct{}

// Name implements subcommands.Command.Name.
func (*All) Name() string {
	return "all"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*All) Synopsis() string {
	return "run every scenario"
}

// Usage implements subcommands.Command.Usage.
func (*All) Usage() string {
	return "all [flags] - runs every scenario in turn and reports them together.\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (*All) SetFlags(f *flag.FlagSet) {
	config.RegisterFlags(f)
}

// Execute implements subcommands.Command.Execute.
func (*All) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return run(ctx, f, args[0].(*Globals), stress.Names()...)
}

// Load builds the configuration of a run from the configuration file and the
// flags set on f.
func Load(f *flag.FlagSet, g *Globals) (*config.Config, error) {
	conf, err := config.Load(g.ConfigPath)
	if err != nil {
		return nil, err
	}
	config.ApplyFlags(f, conf)
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return conf, nil
}

// run runs the named scenarios and writes their report.
func run(ctx context.Context, f *flag.FlagSet, g *Globals, names ...string) subcommands.ExitStatus {
	conf, err := Load(f, g)
	if err != nil {
		log.Warningf("%v", err)
		return subcommands.ExitUsageError
	}
	if g.Debug {
		log.SetLevel(log.Debug)
	} else {
		log.SetLevel(conf.Level())
	}
	log.Debugf("Configuration: %+v", *conf)

	// Starving workers can report often; keep the log readable.
	l := log.RateLimitedLogger(log.Log(), time.Second, 10)
	defer func() {
		if n := l.Suppressed(); n > 0 {
			log.Infof("Suppressed %d log messages", n)
		}
	}()

	var (
		results []stress.Result
		failed  bool
	)
	for _, name := range names {
		r, err := stress.Run(ctx, name, conf, l)
		results = append(results, r)
		if err != nil {
			failed = true
			if !errors.Is(err, stress.ErrViolation) {
				// Canceled or timed out: later scenarios would be too.
				break
			}
		}
	}
	if err := stress.Write(g.Out, g.Format, results); err != nil {
		log.Warningf("Writing report: %v", err)
		return subcommands.ExitFailure
	}
	if failed {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
