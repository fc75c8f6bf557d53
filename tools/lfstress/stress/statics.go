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

package stress

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"gvisor.dev/lockfree/pkg/lockfree"
	"gvisor.dev/lockfree/pkg/log"
	"gvisor.dev/lockfree/tools/lfstress/config"
)

// errFlaky is the panic value of the first constructor call of the flaky
// static.
var errFlaky = errors.New("flaky constructor")

// flakyStatic is the name of the static whose first construction panics.
const flakyStatic = "static-000"

// RunStatics declares a registry of statics and races InitAll from every
// worker. Every static must be constructed exactly once, including the one
// whose first constructor call panics.
func RunStatics(ctx context.Context, c *config.Config, l log.Logger) (Result, error) {
	var (
		r      Result
		built  = make([]atomic.Int32, c.Statics)
		failed atomic.Bool
	)
	reg := lockfree.NewRegistry()
	for i := 0; i < c.Statics; i++ {
		name := fmt.Sprintf("static-%03d", i)
		build := func() []int {
			if name == flakyStatic && failed.CompareAndSwap(false, true) {
				panic(errFlaky)
			}
			built[i].Add(1)
			return make([]int, i)
		}
		var err error
		if i%2 == 0 {
			_, err = lockfree.Declare(reg, name, build)
		} else {
			_, err = lockfree.DeclareMut(reg, name, build)
		}
		if err != nil {
			return r, err
		}
	}

	var (
		initialized atomic.Uint64
		panics      atomic.Uint64
		calls       atomic.Uint64
	)
	initAll := func() error {
		calls.Add(1)
		n, err := reg.InitAll()
		initialized.Add(uint64(n))
		if err == nil {
			return nil
		}
		var merr *multierror.Error
		if !errors.As(err, &merr) {
			return err
		}
		for _, e := range merr.Errors {
			var ie *lockfree.InitError
			if !errors.As(e, &ie) || ie.Name != flakyStatic || !errors.Is(ie, errFlaky) {
				return fmt.Errorf("unexpected InitAll error: %w", e)
			}
			panics.Add(1)
			l.Debugf("Static %q panicked as expected", ie.Name)
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	start := make(chan struct{})
	for i := 0; i < c.Goroutines; i++ {
		g.Go(func() error {
			select {
			case <-start:
			case <-ctx.Done():
				return ctx.Err()
			}
			return initAll()
		})
	}
	close(start)
	if err := g.Wait(); err != nil {
		return r, err
	}
	// Statics that were contended by a concurrent, failing initializer are
	// picked up here.
	if err := initAll(); err != nil {
		return r, err
	}

	r.Attempts = calls.Load()
	r.Successes = initialized.Load()
	r.Refusals = panics.Load()
	if got := panics.Load(); got != 1 {
		return r, violation("flaky constructor panicked %d times", got)
	}
	if got := r.Successes; got != uint64(c.Statics) {
		return r, violation("%d statics initialized, want %d", got, c.Statics)
	}
	for _, name := range reg.Names() {
		s, _ := reg.Lookup(name)
		if st := s.State(); st != lockfree.StateInitialized {
			return r, violation("static %q is %v after InitAll", name, st)
		}
	}
	for i := range built {
		if n := built[i].Load(); n != 1 {
			return r, violation("static %d constructed %d times", i, n)
		}
	}
	return r, nil
}
