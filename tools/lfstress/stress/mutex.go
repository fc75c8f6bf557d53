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
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"gvisor.dev/lockfree/pkg/lockfree"
	"gvisor.dev/lockfree/pkg/log"
	"gvisor.dev/lockfree/pkg/trywait"
	"gvisor.dev/lockfree/tools/lfstress/config"
)

// refusalStreak is the number of consecutive refusals after which a worker
// reports that it is starving.
const refusalStreak = 10000

// exclusion checks that at most one worker is inside a critical section.
type exclusion struct {
	inside atomic.Int32
}

func (e *exclusion) enter() error {
	if n := e.inside.Add(1); n != 1 {
		return violation("%d holders at once", n)
	}
	return nil
}

func (e *exclusion) exit() {
	e.inside.Add(-1)
}

// RunMutex has every worker repeatedly lock a Mutex and increment the
// counter it protects. The final counter must equal the number of
// successful acquisitions, and no two holders may overlap.
func RunMutex(ctx context.Context, c *config.Config, l log.Logger) (Result, error) {
	var (
		m  = lockfree.MakeMutex(uint64(0))
		ex exclusion
		r  Result
	)
	st := make(stats, c.Goroutines)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.Goroutines; i++ {
		g.Go(func() error {
			ws := &st[i]
			streak := 0
			for j := 0; j < c.Iterations; j++ {
				if j%1024 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				ws.attempts++
				var (
					guard lockfree.Guard[uint64]
					ok    bool
				)
				if c.Blocking {
					var err error
					if guard, err = trywait.Lock(ctx, &m, nil); err != nil {
						return err
					}
					ok = true
				} else {
					guard, ok = m.TryLock()
				}
				if !ok {
					ws.refusals++
					if streak++; streak == refusalStreak {
						l.Warningf("worker %d refused %d times in a row", i, streak)
					}
					runtime.Gosched()
					continue
				}
				streak = 0
				if err := ex.enter(); err != nil {
					guard.Unlock()
					return err
				}
				*guard.Get()++
				ex.exit()
				guard.Unlock()
				ws.successes++
			}
			return nil
		})
	}
	err := g.Wait()
	st.addTo(&r)
	if err != nil {
		return r, err
	}
	if m.IsLocked() {
		return r, violation("mutex still locked after all workers finished")
	}
	if got := m.IntoInner(); got != r.Successes {
		return r, violation("counter is %d after %d acquisitions", got, r.Successes)
	}
	return r, nil
}

// RunOnceMut is RunMutex against a OnceMut that the workers race to
// initialize with LockOrInit. At the end, a permanent borrow must lock out
// every later caller.
func RunOnceMut(ctx context.Context, c *config.Config, l log.Logger) (Result, error) {
	var (
		cell  lockfree.OnceMut[uint64]
		ex    exclusion
		inits atomic.Int32
		r     Result
	)
	initCounter := func() uint64 {
		inits.Add(1)
		return 0
	}
	st := make(stats, c.Goroutines)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.Goroutines; i++ {
		g.Go(func() error {
			ws := &st[i]
			for j := 0; j < c.Iterations; j++ {
				if j%1024 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				ws.attempts++
				var (
					guard lockfree.Guard[uint64]
					err   error
				)
				if c.Blocking && cell.State() == lockfree.StateInitialized {
					guard, err = trywait.Borrow(ctx, &cell, nil)
				} else {
					guard, err = cell.LockOrInit(initCounter)
				}
				switch {
				case err == nil:
				case errors.Is(err, lockfree.ErrAlreadyBorrowed), errors.Is(err, lockfree.ErrContended):
					ws.refusals++
					runtime.Gosched()
					continue
				default:
					return err
				}
				if err := ex.enter(); err != nil {
					guard.Unlock()
					return err
				}
				*guard.Get()++
				ex.exit()
				guard.Unlock()
				ws.successes++
			}
			return nil
		})
	}
	err := g.Wait()
	st.addTo(&r)
	if err != nil {
		return r, err
	}
	if n := inits.Load(); n != 1 {
		return r, violation("OnceMut initialized %d times", n)
	}
	v, err := cell.GetMut()
	if err != nil {
		return r, violation("permanent borrow refused: %v", err)
	}
	if *v != r.Successes {
		return r, violation("counter is %d after %d borrows", *v, r.Successes)
	}
	if _, err := cell.Lock(); !errors.Is(err, lockfree.ErrAlreadyBorrowed) {
		return r, violation("Lock after a permanent borrow returned %v", err)
	}
	l.Debugf("OnceMut counter reached %d", *v)
	return r, nil
}
