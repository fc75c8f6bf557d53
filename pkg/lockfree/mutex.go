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
	"gvisor.dev/lockfree/pkg/sync"
)

// Mutex guards a value with a try-lock. It has no waiting mechanism: TryLock
// either acquires the lock immediately or fails.
//
// The zero value is an unlocked Mutex holding the zero T.
type Mutex[T any] struct {
	_     sync.NoCopy
	lock  lockWord
	value T
}

// MakeMutex returns an unlocked Mutex holding v.
func MakeMutex[T any](v T) Mutex[T] {
	return Mutex[T]{value: v}
}

// TryLock attempts to acquire the lock without waiting. It returns false if
// the lock is held, or was leaked.
func (m *Mutex[T]) TryLock() (Guard[T], bool) {
	token, ok := m.lock.tryAcquire()
	if !ok {
		return Guard[T]{}, false
	}
	return Guard[T]{lock: &m.lock, value: &m.value, token: token}, true
}

// TryWith runs f with the value if the lock can be acquired without waiting,
// and returns whether f ran. The lock is released when f returns, panics or
// calls runtime.Goexit.
func (m *Mutex[T]) TryWith(f func(v *T)) bool {
	g, ok := m.TryLock()
	if !ok {
		return false
	}
	defer g.Unlock()
	f(g.Get())
	return true
}

// IsLocked returns true if the lock is currently held or was leaked.
func (m *Mutex[T]) IsLocked() bool {
	return m.lock.locked()
}

// GetMut returns the value. The caller must own m exclusively; no other
// goroutine may use m while the pointer is live.
//
// Precondition: the lock is not held.
func (m *Mutex[T]) GetMut() *T {
	if m.lock.racyLocked() {
		panic("lockfree: GetMut on a locked Mutex")
	}
	return &m.value
}

// IntoInner returns the value. m must not be used afterwards.
//
// Precondition: the lock is not held.
func (m *Mutex[T]) IntoInner() T {
	if m.lock.racyLocked() {
		panic("lockfree: IntoInner on a locked Mutex")
	}
	v := m.value
	var zero T
	m.value = zero
	return v
}
