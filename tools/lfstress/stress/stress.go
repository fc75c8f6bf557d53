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

// Package stress runs concurrent workloads against the lock-free primitives
// and checks their invariants while doing so.
package stress

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sys/cpu"

	"gvisor.dev/lockfree/pkg/log"
	"gvisor.dev/lockfree/tools/lfstress/config"
)

// ErrViolation is wrapped by every error that reports a broken invariant, as
// opposed to a run that was canceled or misconfigured.
var ErrViolation = errors.New("invariant violated")

func violation(format string, v ...any) error {
	return fmt.Errorf("%w: %s", ErrViolation, fmt.Sprintf(format, v...))
}

// Result summarizes one scenario run.
type Result struct {
	// Scenario is the name the scenario is registered under.
	Scenario string

	// Goroutines is the number of concurrent workers.
	Goroutines int

	// Attempts counts operations tried.
	Attempts uint64

	// Successes counts operations that won: a published value, an acquired
	// lock, an initialized static.
	Successes uint64

	// Refusals counts operations refused without effect.
	Refusals uint64

	// Elapsed is the wall time of the run.
	Elapsed time.Duration
}

// workerStats are the counters of one worker. Each worker writes only its
// own entry, and the entries are padded so that they do not share cache
// lines.
type workerStats struct {
	attempts  uint64
	successes uint64
	refusals  uint64
	_         cpu.CacheLinePad
}

type stats []workerStats

// addTo accumulates s into r. It must only be called once all workers are
// done.
func (s stats) addTo(r *Result) {
	for i := range s {
		r.Attempts += s[i].attempts
		r.Successes += s[i].successes
		r.Refusals += s[i].refusals
	}
}

// Func runs a scenario.
type Func func(ctx context.Context, c *config.Config, l log.Logger) (Result, error)

var scenarios = map[string]Func{
	"cell":    RunCell,
	"mutex":   RunMutex,
	"oncemut": RunOnceMut,
	"statics": RunStatics,
}

// Lookup returns the scenario registered under name.
func Lookup(name string) (Func, bool) {
	f, ok := scenarios[name]
	return f, ok
}

// Names returns the registered scenario names, sorted.
func Names() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run runs the named scenario under c's timeout and fills in the fields of
// the result common to all scenarios.
func Run(ctx context.Context, name string, c *config.Config, l log.Logger) (Result, error) {
	f, ok := Lookup(name)
	if !ok {
		return Result{}, fmt.Errorf("unknown scenario %q", name)
	}
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	l.Infof("Running scenario %q with %d goroutines", name, c.Goroutines)
	start := time.Now()
	r, err := f(ctx, c, l)
	r.Scenario = name
	r.Goroutines = c.Goroutines
	r.Elapsed = time.Since(start)
	if err != nil {
		l.Warningf("Scenario %q failed after %v: %v", name, r.Elapsed, err)
		return r, err
	}
	l.Infof("Scenario %q done in %v: %d attempts, %d successes, %d refusals", name, r.Elapsed, r.Attempts, r.Successes, r.Refusals)
	return r, nil
}
