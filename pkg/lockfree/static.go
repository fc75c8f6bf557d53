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

// Static pairs a OnceCell with the constructor of its value, for
// process-wide singletons.
//
// A Static is not initialized on first use: initialization can panic, so it
// happens only when Init is called, at a point the application chooses. Until
// then Get reports the cell as empty.
//
// Typical use:
//
//	var table = lockfree.MakeStatic(buildTable)
//
//	func main() {
//		table.Init()
//		...
//		t, ok := table.Get()
//	}
type Static[T any] struct {
	OnceCell[T]
	ctor func() T
}

// MakeStatic returns an uninitialized Static that is initialized by ctor.
func MakeStatic[T any](ctor func() T) Static[T] {
	return Static[T]{ctor: ctor}
}

// Init initializes the cell by calling the constructor. It returns true if
// this call initialized the cell, and false if the cell was initialized, or
// is being initialized, by someone else; the constructor is not called then.
//
// A panic in the constructor propagates and leaves the cell empty.
func (s *Static[T]) Init() bool {
	return s.SetWith(s.ctor) == nil
}

// StaticMut pairs a OnceMut with the constructor of its value. See Static.
type StaticMut[T any] struct {
	OnceMut[T]
	ctor func() T
}

// MakeStaticMut returns an uninitialized StaticMut that is initialized by
// ctor.
func MakeStaticMut[T any](ctor func() T) StaticMut[T] {
	return StaticMut[T]{ctor: ctor}
}

// Init initializes the cell by calling the constructor. See Static.Init.
func (s *StaticMut[T]) Init() bool {
	return s.SetWith(s.ctor) == nil
}
