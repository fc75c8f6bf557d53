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

// Binary lfstress stress-tests the lock-free primitives and checks their
// invariants under contention.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/google/subcommands"

	"gvisor.dev/lockfree/pkg/cleanup"
	"gvisor.dev/lockfree/pkg/log"
	"gvisor.dev/lockfree/tools/lfstress/cmd"
)

var (
	configPath = flag.String("config", "", "TOML or YAML configuration file; flags override its values.")
	logPattern = flag.String("log", "", "file to also write logs to. %COMMAND%, %TIMESTAMP% and %PID% are replaced.")
	logFormat  = flag.String("log-format", "text", "log format: text or json.")
	debug      = flag.Bool("debug", false, "enable debug logging.")
	format     = flag.String("format", "text", "report format: text or prometheus.")
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	for _, c := range cmd.Commands() {
		subcommands.Register(c, "stress")
	}
	subcommands.ImportantFlag("config")
	subcommands.ImportantFlag("format")
	flag.Parse()

	os.Exit(int(run()))
}

func run() subcommands.ExitStatus {
	cu, err := setupLogging(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "lfstress: %v\n", err)
		clean(&cu, os.Stderr)
		return subcommands.ExitUsageError
	}
	defer clean(&cu, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g := &cmd.Globals{
		ConfigPath: *configPath,
		Format:     *format,
		Debug:      *debug,
		Out:        os.Stdout,
	}
	return subcommands.Execute(ctx, g)
}

// clean runs cu and reports its error, if any, on w.
func clean(cu *cleanup.Cleanup, w io.Writer) {
	if err := cu.Clean(); err != nil {
		fmt.Fprintf(w, "lfstress: closing logs: %v\n", err)
	}
}

// setupLogging points the global logger at stderr and, if requested, at a log
// file. The returned Cleanup closes the file.
func setupLogging(command string) (cleanup.Cleanup, error) {
	cu := cleanup.Make(nil)
	stderr, err := log.EmitterFor(*logFormat, &log.Writer{Next: os.Stderr})
	if err != nil {
		return cu, err
	}
	emitters := log.MultiEmitter{stderr}

	f, err := log.OpenFile(*logPattern, log.FilePattern{Command: command, Start: time.Now()})
	if err != nil {
		return cu, err
	}
	if f != nil {
		cu.AddCloser(f)
		e, err := log.EmitterFor(*logFormat, &log.Writer{Next: f})
		if err != nil {
			return cu, err
		}
		emitters = append(emitters, e)
	}
	log.SetTarget(&emitters)
	if *debug {
		log.SetLevel(log.Debug)
	}
	return cu, nil
}
