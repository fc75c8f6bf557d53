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

package lockfree

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"

	"gvisor.dev/lockfree/pkg/sync"
)

func TestMutexTryLock(t *testing.T) {
	m := MakeMutex(123)

	g, ok := m.TryLock()
	if !ok {
		t.Fatalf("TryLock failed on unlocked mutex")
	}
	if got := *g.Get(); got != 123 {
		t.Errorf("*Get() = %d, want 123", got)
	}
	if _, ok := m.TryLock(); ok {
		t.Fatalf("TryLock succeeded on locked mutex")
	}
	if !m.IsLocked() {
		t.Errorf("IsLocked() = false while guard is held")
	}
	*g.Get() = 321
	g.Unlock()

	if m.IsLocked() {
		t.Errorf("IsLocked() = true after Unlock")
	}
	g, ok = m.TryLock()
	if !ok {
		t.Fatalf("TryLock failed after Unlock")
	}
	if got := *g.Get(); got != 321 {
		t.Errorf("*Get() = %d, want 321", got)
	}
	g.Unlock()
}

func TestMutexZeroValue(t *testing.T) {
	var m Mutex[string]
	if !m.TryWith(func(v *string) { *v = "set" }) {
		t.Fatalf("TryWith failed on zero mutex")
	}
	if got := m.IntoInner(); got != "set" {
		t.Errorf("IntoInner() = %q, want set", got)
	}
}

func TestMutexLeak(t *testing.T) {
	m := MakeMutex(123)
	g, ok := m.TryLock()
	if !ok {
		t.Fatalf("TryLock failed on unlocked mutex")
	}
	v := g.Leak()
	if *v != 123 {
		t.Errorf("*Leak() = %d, want 123", *v)
	}
	for i := 0; i < 1000; i++ {
		if _, ok := m.TryLock(); ok {
			t.Fatalf("TryLock succeeded after Leak (attempt %d)", i)
		}
	}
	*v = 321
	if *v != 321 {
		t.Errorf("*v = %d, want 321", *v)
	}
	if g.Held() {
		t.Errorf("Held() = true on leaked guard")
	}
	mustPanic(t, "Unlock of leaked guard", g.Unlock)
	mustPanic(t, "Get of leaked guard", func() { g.Get() })
	mustPanic(t, "GetMut on leaked mutex", func() { m.GetMut() })
	if !m.lock.leaked() {
		t.Errorf("lock word not in leaked state")
	}
}

func TestGuardMisuse(t *testing.T) {
	m := MakeMutex(1)

	var zero Guard[int]
	if zero.Held() {
		t.Errorf("zero Guard reports Held")
	}
	mustPanic(t, "Unlock of zero guard", zero.Unlock)
	mustPanic(t, "Leak of zero guard", func() { zero.Leak() })

	g, _ := m.TryLock()
	stale := g
	g.Unlock()
	mustPanic(t, "double Unlock", g.Unlock)

	g2, ok := m.TryLock()
	if !ok {
		t.Fatalf("TryLock failed after Unlock")
	}
	// The copy refers to the previous generation and must not touch the
	// new holder's lock.
	if stale.Held() {
		t.Errorf("stale copy reports Held")
	}
	mustPanic(t, "Unlock of stale copy", stale.Unlock)
	mustPanic(t, "Leak of stale copy", func() { stale.Leak() })
	if !g2.Held() {
		t.Fatalf("current guard lost its lock to a stale copy")
	}
	g2.Unlock()
}

func TestMutexTryWithPanic(t *testing.T) {
	m := MakeMutex(0)
	mustPanic(t, "TryWith", func() {
		m.TryWith(func(v *int) {
			*v = 1
			panic("boom")
		})
	})
	if m.IsLocked() {
		t.Fatalf("mutex still locked after panic in TryWith")
	}
	if got := *m.GetMut(); got != 1 {
		t.Errorf("*GetMut() = %d, want 1", got)
	}
}

func TestMutexTryWithContended(t *testing.T) {
	m := MakeMutex(0)
	g, _ := m.TryLock()
	if m.TryWith(func(*int) { t.Errorf("TryWith ran while locked") }) {
		t.Errorf("TryWith succeeded while locked")
	}
	mustPanic(t, "GetMut while locked", func() { m.GetMut() })
	mustPanic(t, "IntoInner while locked", func() { m.IntoInner() })
	g.Unlock()
}

func TestMutexMutualExclusion(t *testing.T) {
	// Each goroutine increments v only when TryLock succeeds. If at the end
	// v does not equal the number of successful acquisitions, two goroutines
	// were inside the critical section at the same time.
	const (
		gr    = 64
		iters = 2000
	)
	var (
		m      Mutex[int]
		inside atomic.Int32
		total  atomic.Int64
		wg     sync.WaitGroupErr
	)
	for i := 0; i < gr; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := int64(0)
			for j := 0; j < iters; j++ {
				g, ok := m.TryLock()
				if !ok {
					runtime.Gosched()
					continue
				}
				if n := inside.Add(1); n != 1 {
					wg.ReportError(fmt.Errorf("%d holders inside the critical section", n))
				}
				*g.Get()++
				inside.Add(-1)
				g.Unlock()
				local++
			}
			total.Add(local)
		}()
	}
	if err := wg.Error(); err != nil {
		t.Fatal(err)
	}
	if got, want := int64(m.IntoInner()), total.Load(); got != want {
		t.Fatalf("Bad count: got %v, want %v", got, want)
	}
}

// BenchmarkMutexTryLock measures uncontended and contended TryLock/Unlock
// pairs, with the number of goroutines doubling up to 4*GOMAXPROCS.
func BenchmarkMutexTryLock(b *testing.B) {
	for n, max := 1, 4*runtime.GOMAXPROCS(0); n > 0 && n <= max; n *= 2 {
		b.Run(fmt.Sprintf("%d", n), func(b *testing.B) {
			var m Mutex[int]

			var ready sync.WaitGroup
			begin := make(chan struct{})
			var end sync.WaitGroup
			for i := 0; i < n; i++ {
				ready.Add(1)
				end.Add(1)
				go func() {
					ready.Done()
					<-begin
					for j := 0; j < b.N; j++ {
						if g, ok := m.TryLock(); ok {
							g.Unlock()
						}
					}
					end.Done()
				}()
			}

			ready.Wait()
			b.ResetTimer()
			close(begin)
			end.Wait()
		})
	}
}

// BenchmarkSyncMutexTryLock is equivalent to BenchmarkMutexTryLock, but uses
// sync.Mutex as a comparison point.
func BenchmarkSyncMutexTryLock(b *testing.B) {
	for n, max := 1, 4*runtime.GOMAXPROCS(0); n > 0 && n <= max; n *= 2 {
		b.Run(fmt.Sprintf("%d", n), func(b *testing.B) {
			var m sync.Mutex

			var ready sync.WaitGroup
			begin := make(chan struct{})
			var end sync.WaitGroup
			for i := 0; i < n; i++ {
				ready.Add(1)
				end.Add(1)
				go func() {
					ready.Done()
					<-begin
					for j := 0; j < b.N; j++ {
						if m.TryLock() {
							m.Unlock()
						}
					}
					end.Done()
				}()
			}

			ready.Wait()
			b.ResetTimer()
			close(begin)
			end.Wait()
		})
	}
}
