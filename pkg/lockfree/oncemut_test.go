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
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"

	"gvisor.dev/lockfree/pkg/sync"
)

func TestOnceMutLock(t *testing.T) {
	var m OnceMut[int]
	if _, err := m.Lock(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Lock() on empty cell = %v, want %v", err, ErrNotInitialized)
	}
	if m.IsBorrowed() {
		t.Fatalf("IsBorrowed() = true after failed Lock")
	}
	if err := m.Set(123); err != nil {
		t.Fatalf("Set(123) = %v", err)
	}

	g, err := m.Lock()
	if err != nil {
		t.Fatalf("Lock() = %v", err)
	}
	if got := *g.Get(); got != 123 {
		t.Errorf("*Get() = %d, want 123", got)
	}
	if _, err := m.Lock(); !errors.Is(err, ErrAlreadyBorrowed) {
		t.Errorf("second Lock() = %v, want %v", err, ErrAlreadyBorrowed)
	}
	*g.Get() = 321
	g.Unlock()

	g, err = m.Lock()
	if err != nil {
		t.Fatalf("Lock() after Unlock = %v", err)
	}
	if got := *g.Get(); got != 321 {
		t.Errorf("*Get() = %d, want 321", got)
	}
	g.Unlock()
}

func TestOnceMutGetMut(t *testing.T) {
	var m OnceMut[int]
	if _, err := m.GetMut(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("GetMut() on empty cell = %v, want %v", err, ErrNotInitialized)
	}
	m.Set(123)
	v, err := m.GetMut()
	if err != nil {
		t.Fatalf("GetMut() = %v", err)
	}
	if *v != 123 {
		t.Errorf("*GetMut() = %d, want 123", *v)
	}
	if _, err := m.GetMut(); !errors.Is(err, ErrAlreadyBorrowed) {
		t.Errorf("second GetMut() = %v, want %v", err, ErrAlreadyBorrowed)
	}
	if _, err := m.Lock(); !errors.Is(err, ErrAlreadyBorrowed) {
		t.Errorf("Lock() after GetMut = %v, want %v", err, ErrAlreadyBorrowed)
	}
	*v = 321
	if *v != 321 {
		t.Errorf("*v = %d, want 321", *v)
	}
}

func TestOnceMutLockOrInit(t *testing.T) {
	var m OnceMut[[]string]
	g, err := m.LockOrInit(func() []string { return []string{"a"} })
	if err != nil {
		t.Fatalf("LockOrInit = %v", err)
	}
	*g.Get() = append(*g.Get(), "b")
	if _, err := m.LockOrInit(func() []string {
		t.Errorf("LockOrInit called its factory while borrowed")
		return nil
	}); !errors.Is(err, ErrAlreadyBorrowed) {
		t.Errorf("LockOrInit while borrowed = %v, want %v", err, ErrAlreadyBorrowed)
	}
	g.Unlock()

	v, err := m.GetMutOrInit(func() []string {
		t.Errorf("GetMutOrInit called its factory on initialized cell")
		return nil
	})
	if err != nil {
		t.Fatalf("GetMutOrInit = %v", err)
	}
	if len(*v) != 2 || (*v)[1] != "b" {
		t.Errorf("*GetMutOrInit() = %v, want [a b]", *v)
	}
}

func TestOnceMutLockOrInitPanic(t *testing.T) {
	var m OnceMut[int]
	mustPanic(t, "LockOrInit", func() {
		m.LockOrInit(func() int { panic("boom") })
	})
	if m.IsBorrowed() {
		t.Fatalf("borrow still held after panicking initializer")
	}
	if got := m.State(); got != StateEmpty {
		t.Fatalf("State() = %v, want %v", got, StateEmpty)
	}
	g, err := m.LockOrInit(func() int { return 7 })
	if err != nil {
		t.Fatalf("LockOrInit after panic = %v", err)
	}
	if got := *g.Get(); got != 7 {
		t.Errorf("*Get() = %d, want 7", got)
	}
	g.Unlock()
}

func TestOnceMutLockOrInitContended(t *testing.T) {
	var m OnceMut[int]
	err := m.SetWith(func() int {
		if _, err := m.LockOrInit(func() int { return 2 }); !errors.Is(err, ErrContended) {
			t.Errorf("LockOrInit during initialization = %v, want %v", err, ErrContended)
		}
		if m.IsBorrowed() {
			t.Errorf("failed LockOrInit left the borrow held")
		}
		return 1
	})
	if err != nil {
		t.Fatalf("SetWith = %v", err)
	}
}

func TestOnceMutTakeIgnoresBorrow(t *testing.T) {
	var live atomic.Int32
	var m OnceMut[counted]
	m.Set(newCounted(&live))
	if _, err := m.GetMut(); err != nil {
		t.Fatalf("GetMut() = %v", err)
	}
	v, ok := m.Take()
	if !ok {
		t.Fatalf("Take() failed on borrowed cell")
	}
	v.Close()
	if err := m.Set(newCounted(&live)); err != nil {
		t.Fatalf("Set after Take = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close = %v", err)
	}
	if got := live.Load(); got != 0 {
		t.Errorf("live = %d, want 0", got)
	}
	if _, ok := m.IntoInner(); ok {
		t.Errorf("IntoInner() after Close succeeded")
	}
}

func TestOnceMutExclusiveBorrow(t *testing.T) {
	const (
		gr    = 64
		iters = 1000
	)
	var (
		m        OnceMut[int]
		inside   atomic.Int32
		acquired atomic.Int64
		wg       sync.WaitGroupErr
	)
	m.Set(0)
	for i := 0; i < gr; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				g, err := m.Lock()
				if err != nil {
					if !errors.Is(err, ErrAlreadyBorrowed) {
						wg.ReportError(err)
						return
					}
					runtime.Gosched()
					continue
				}
				if n := inside.Add(1); n != 1 {
					wg.ReportError(fmt.Errorf("%d borrowers at once", n))
				}
				*g.Get()++
				inside.Add(-1)
				g.Unlock()
				acquired.Add(1)
			}
		}()
	}
	if err := wg.Error(); err != nil {
		t.Fatal(err)
	}
	v, _ := m.IntoInner()
	if got, want := int64(v), acquired.Load(); got != want {
		t.Fatalf("Bad count: got %v, want %v", got, want)
	}
}

func TestOnceMutSingleGetMutWinner(t *testing.T) {
	for round := 0; round < 100; round++ {
		var (
			m    OnceMut[int]
			wins atomic.Int32
			wg   sync.WaitGroup
		)
		m.Set(round)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := m.GetMut(); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		if got := wins.Load(); got != 1 {
			t.Fatalf("round %d: %d callers got the permanent borrow, want 1", round, got)
		}
	}
}

func TestOnceMutLockEmptyNeverBorrowed(t *testing.T) {
	const (
		gr    = 32
		iters = 2000
	)
	var (
		m  OnceMut[int]
		wg sync.WaitGroupErr
	)
	for i := 0; i < gr; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				if _, err := m.Lock(); !errors.Is(err, ErrNotInitialized) {
					wg.ReportError(fmt.Errorf("Lock() on empty cell = %v, want %v", err, ErrNotInitialized))
					return
				}
			}
		}()
	}
	if err := wg.Error(); err != nil {
		t.Fatal(err)
	}
	if m.IsBorrowed() {
		t.Errorf("IsBorrowed() = true after Lock calls on an empty cell")
	}
}
