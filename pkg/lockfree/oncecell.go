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

// OnceCell is a cell that can be written at most once. After it is written,
// any number of goroutines may read the value concurrently without copying
// it.
//
// The zero value is an empty cell.
type OnceCell[T any] struct {
	slot slot[T]
}

// Set stores v if the cell is empty.
//
// It returns ErrAlreadyInitialized if a value is already published, and
// ErrContended if another caller is initializing the cell right now. In
// both cases v is not stored. On success the value is visible to every later
// Get, from any goroutine.
func (c *OnceCell[T]) Set(v T) error {
	return c.slot.trySet(v)
}

// SetWith is like Set, but the value is produced by f. f is called only if
// this call wins the right to initialize the cell.
//
// If f panics, the panic propagates to the caller and the cell remains
// empty, so a later Set or SetWith may still succeed.
func (c *OnceCell[T]) SetWith(f func() T) error {
	return c.slot.trySetWith(f)
}

// Get returns the value, or false if the cell is empty or its initializer is
// still running.
//
// Readers must not modify the value through the returned pointer.
func (c *OnceCell[T]) Get() (*T, bool) {
	p := c.slot.ptr()
	return p, p != nil
}

// GetOrInit returns the value, initializing the cell with f if it is empty.
//
// If another caller's initializer is running, GetOrInit returns ErrContended
// immediately and f is not called. It never waits: retrying, polling or
// reporting the contention is up to the caller.
//
// If f panics, the panic propagates and the cell remains empty.
func (c *OnceCell[T]) GetOrInit(f func() T) (*T, error) {
	return c.slot.ptrOrInit(f)
}

// GetMut returns the value for modification, or false if the cell is empty.
// The caller must own c exclusively while the pointer is live.
func (c *OnceCell[T]) GetMut() (*T, bool) {
	return c.Get()
}

// Take moves the value out of the cell and returns it to the empty state. It
// returns false if the cell was empty. The caller must own c exclusively.
func (c *OnceCell[T]) Take() (T, bool) {
	return c.slot.take()
}

// IntoInner returns the value, or false if the cell is empty. c must not be
// used afterwards.
func (c *OnceCell[T]) IntoInner() (T, bool) {
	return c.slot.take()
}

// State returns the initialization state of the cell.
func (c *OnceCell[T]) State() State {
	return c.slot.state()
}

// Close drops the value, if any. If the value implements io.Closer, its Close
// method is called and its error returned. A value moved out by Take is not
// closed again. The caller must own c exclusively.
func (c *OnceCell[T]) Close() error {
	return c.slot.close()
}
