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
	"io"

	"gvisor.dev/lockfree/pkg/atomicbitops"
	"gvisor.dev/lockfree/pkg/sync"
)

// slot is storage for one possibly-uninitialized T and the flags that
// publish it.
//
// The write lock is taken by exactly one caller (writing: false -> true).
// That caller stores the value and then publishes it (ready: false -> true).
// Readers look at ready only; a reader that observes ready also observes the
// complete value, because the store to ready is sequenced after the store to
// value and sync/atomic operations are sequentially consistent.
//
// take and close reset the slot and rely on the owning type's caller to
// guarantee that nobody else is using it.
type slot[T any] struct {
	_ sync.NoCopy

	// writing is set by the caller that won the right to initialize value.
	writing atomicbitops.Bool

	// ready is set once value is published. It never goes back to false
	// except through take.
	ready atomicbitops.Bool

	// value is written once by the winner of writing, and read by anyone
	// that observed ready.
	value T
}

// refusal classifies a lost race on the write lock.
func (s *slot[T]) refusal() error {
	if s.ready.Load() {
		return ErrAlreadyInitialized
	}
	return ErrContended
}

// trySet stores v and publishes it if the slot is empty.
func (s *slot[T]) trySet(v T) error {
	if s.writing.Swap(true) {
		return s.refusal()
	}
	s.value = v
	s.ready.Store(true)
	return nil
}

// trySetWith is like trySet, but the value is produced by f, which is called
// only if this call wins the write lock.
//
// If f panics or calls runtime.Goexit, the write lock is released before the
// unwinding continues and the slot stays empty.
func (s *slot[T]) trySetWith(f func() T) error {
	if s.writing.Swap(true) {
		return s.refusal()
	}
	s.publishWith(f)
	return nil
}

// publishWith runs f and publishes its result. The caller must hold the write
// lock.
func (s *slot[T]) publishWith(f func() T) {
	published := false
	defer func() {
		if !published {
			s.writing.Store(false)
		}
	}()
	v := f()
	s.value = v
	s.ready.Store(true)
	published = true
}

// ptr returns a pointer to the value, or nil if it is not published.
func (s *slot[T]) ptr() *T {
	if !s.ready.Load() {
		return nil
	}
	return &s.value
}

// ptrOrInit returns a pointer to the published value, initializing it with f
// if the slot is empty. It fails with ErrContended if another initializer is
// in flight; f is not called in that case.
func (s *slot[T]) ptrOrInit(f func() T) (*T, error) {
	if p := s.ptr(); p != nil {
		return p, nil
	}
	if s.writing.Swap(true) {
		// Lost the race; the winner may have published by now.
		if p := s.ptr(); p != nil {
			return p, nil
		}
		return nil, ErrContended
	}
	s.publishWith(f)
	return &s.value, nil
}

// take moves the value out and returns the slot to empty. The caller must
// have exclusive access to the slot.
func (s *slot[T]) take() (T, bool) {
	var zero T
	// Racy accessors are fine here: the caller excludes every other user.
	if !s.ready.RacyLoad() {
		return zero, false
	}
	v := s.value
	s.value = zero
	s.ready.RacyStore(false)
	s.writing.RacyStore(false)
	return v, true
}

// close drops any resident value. If the value implements io.Closer, it is
// closed; a value that was taken is not touched. The caller must have
// exclusive access to the slot.
func (s *slot[T]) close() error {
	v, ok := s.take()
	if !ok {
		return nil
	}
	if c, ok := any(v).(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// state returns the current state of the slot.
func (s *slot[T]) state() State {
	switch {
	case s.ready.Load():
		return StateInitialized
	case s.writing.Load():
		return StateWriting
	default:
		return StateEmpty
	}
}
