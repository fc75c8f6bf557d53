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
	"gvisor.dev/lockfree/pkg/atomicbitops"
)

const (
	// lockedBit is set in the state of a held lockWord.
	lockedBit = 1

	// leakedState is the state of a lockWord whose guard was leaked. It is
	// odd, so the word reads as locked, and no token can release it.
	leakedState = ^uint64(0)
)

// lockWord is a try-lock whose state is a generation counter.
//
// An even state is unlocked. Acquiring moves the state from g to g+1 with a
// single CompareAndSwap, and g+1 becomes the holder's token. Releasing moves
// it from token to token+1 and leaking moves it from token to leakedState,
// again with a single CompareAndSwap each. A guard therefore only ever
// affects the lock generation it acquired: a stale or copied guard fails its
// CompareAndSwap instead of releasing somebody else's lock.
//
// The generation is 64 bits wide and does not wrap in practice.
type lockWord struct {
	state atomicbitops.Uint64
}

// tryAcquire attempts to take the lock without waiting.
func (l *lockWord) tryAcquire() (token uint64, ok bool) {
	s := l.state.Load()
	if s&lockedBit != 0 {
		return 0, false
	}
	if !l.state.CompareAndSwap(s, s+1) {
		return 0, false
	}
	return s + 1, true
}

// release unlocks the generation identified by token.
func (l *lockWord) release(token uint64) bool {
	return l.state.CompareAndSwap(token, token+1)
}

// leak keeps the generation identified by token locked forever.
func (l *lockWord) leak(token uint64) bool {
	return l.state.CompareAndSwap(token, leakedState)
}

// heldBy returns true if token identifies the current holder.
func (l *lockWord) heldBy(token uint64) bool {
	return token&lockedBit != 0 && token != leakedState && l.state.Load() == token
}

// locked returns true if the lock is held or leaked.
func (l *lockWord) locked() bool {
	return l.state.Load()&lockedBit != 0
}

// racyLocked is locked for callers that own the lock word exclusively.
func (l *lockWord) racyLocked() bool {
	return l.state.RacyLoad()&lockedBit != 0
}

// leaked returns true if the lock is held forever.
func (l *lockWord) leaked() bool {
	return l.state.Load() == leakedState
}

// Guard is the scoped permission to mutate a value held by a Mutex or
// OnceMut. At most one Guard holds a given lock at a time.
//
// The lock is released by Unlock, or converted into a permanent borrow by
// Leak. Guards are values; copying one does not duplicate the permission,
// only the first Unlock or Leak of a generation succeeds and every other use
// panics.
type Guard[T any] struct {
	lock  *lockWord
	value *T
	token uint64
}

// Held returns true if g still holds its lock.
func (g *Guard[T]) Held() bool {
	return g.lock != nil && g.lock.heldBy(g.token)
}

// Get returns the guarded value. The pointer must not be used after the
// guard is unlocked.
//
// Precondition: g.Held().
func (g *Guard[T]) Get() *T {
	if !g.Held() {
		panic("lockfree: use of a guard that does not hold its lock")
	}
	return g.value
}

// Unlock releases the lock, allowing the next TryLock or Lock to succeed.
//
// Unlocking a zero, already unlocked, leaked or stale guard panics.
func (g *Guard[T]) Unlock() {
	if g.lock == nil || !g.lock.release(g.token) {
		panic("lockfree: unlock of a guard that does not hold its lock")
	}
	g.lock = nil
	g.value = nil
}

// Leak consumes the guard and returns the value. The lock stays held
// forever: every later TryLock or Lock fails, and the returned pointer is the
// only way to reach the value.
//
// Leaking a guard that does not hold its lock panics.
func (g *Guard[T]) Leak() *T {
	if g.lock == nil || !g.lock.leak(g.token) {
		panic("lockfree: leak of a guard that does not hold its lock")
	}
	v := g.value
	g.lock = nil
	g.value = nil
	return v
}
