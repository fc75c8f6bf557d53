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

// OnceMut is a OnceCell whose value is handed out for modification to at
// most one holder at a time.
//
// The borrow is taken with Lock, which returns a Guard. Unlocking the guard
// lets the next caller borrow the value; leaking it hands the value out for
// good. Initialization (Set, SetWith) is independent of the borrow.
//
// The zero value is an empty, unborrowed cell.
type OnceMut[T any] struct {
	cell   OnceCell[T]
	borrow lockWord
}

// Set stores v if the cell is empty. See OnceCell.Set.
func (m *OnceMut[T]) Set(v T) error {
	return m.cell.Set(v)
}

// SetWith stores the value returned by f if the cell is empty. See
// OnceCell.SetWith.
func (m *OnceMut[T]) SetWith(f func() T) error {
	return m.cell.SetWith(f)
}

// Lock borrows the value without waiting.
//
// It returns ErrNotInitialized if the cell is empty, whatever the borrow
// state, and ErrAlreadyBorrowed if a guard is outstanding (or was leaked).
func (m *OnceMut[T]) Lock() (Guard[T], error) {
	// An empty cell is refused without touching the borrow.
	if m.cell.slot.ptr() == nil {
		return Guard[T]{}, ErrNotInitialized
	}
	token, ok := m.borrow.tryAcquire()
	if !ok {
		return Guard[T]{}, ErrAlreadyBorrowed
	}
	p := m.cell.slot.ptr()
	if p == nil {
		m.borrow.release(token)
		return Guard[T]{}, ErrNotInitialized
	}
	return Guard[T]{lock: &m.borrow, value: p, token: token}, nil
}

// LockOrInit borrows the value, initializing the cell with f first if it is
// empty.
//
// It returns ErrAlreadyBorrowed if a guard is outstanding, and ErrContended
// if another initializer is running; f is not called in either case. If f
// panics, the borrow is released and the cell stays empty.
func (m *OnceMut[T]) LockOrInit(f func() T) (Guard[T], error) {
	token, ok := m.borrow.tryAcquire()
	if !ok {
		return Guard[T]{}, ErrAlreadyBorrowed
	}
	acquired := false
	defer func() {
		if !acquired {
			m.borrow.release(token)
		}
	}()
	p, err := m.cell.slot.ptrOrInit(f)
	if err != nil {
		return Guard[T]{}, err
	}
	acquired = true
	return Guard[T]{lock: &m.borrow, value: p, token: token}, nil
}

// GetMut borrows the value permanently. It is Lock followed by Guard.Leak:
// on success, every later Lock or GetMut fails.
func (m *OnceMut[T]) GetMut() (*T, error) {
	g, err := m.Lock()
	if err != nil {
		return nil, err
	}
	return g.Leak(), nil
}

// GetMutOrInit is LockOrInit followed by Guard.Leak.
func (m *OnceMut[T]) GetMutOrInit(f func() T) (*T, error) {
	g, err := m.LockOrInit(f)
	if err != nil {
		return nil, err
	}
	return g.Leak(), nil
}

// IsBorrowed returns true if a guard is outstanding or was leaked.
func (m *OnceMut[T]) IsBorrowed() bool {
	return m.borrow.locked()
}

// Take moves the value out and returns the cell to the empty state,
// irrespective of the borrow. The caller must own m exclusively, so no guard
// can be in use.
func (m *OnceMut[T]) Take() (T, bool) {
	return m.cell.Take()
}

// IntoInner returns the value, or false if the cell is empty. m must not be
// used afterwards.
func (m *OnceMut[T]) IntoInner() (T, bool) {
	return m.cell.IntoInner()
}

// State returns the initialization state of the cell.
func (m *OnceMut[T]) State() State {
	return m.cell.State()
}

// Close drops the value as OnceCell.Close does. The caller must own m
// exclusively.
func (m *OnceMut[T]) Close() error {
	return m.cell.Close()
}
