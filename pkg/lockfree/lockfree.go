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

// Package lockfree provides non-blocking cells for publishing a value once,
// borrowing it exclusively, and guarding it with a try-lock.
//
// None of the types in this package park, spin or allocate. Every operation
// completes in a bounded number of atomic instructions and reports
// contention by failing immediately; callers that want to wait must layer
// their own retry policy on top (see package trywait).
//
// The types are:
//
//   - OnceCell: written at most once, then read concurrently without copying.
//   - OnceMut: a OnceCell whose value is handed out to at most one holder at
//     a time, through a Guard.
//   - Mutex: a value guarded by a try-lock.
//   - Static and StaticMut: a cell paired with its constructor for
//     process-wide singletons that are initialized explicitly.
//
// All of them must not be copied after first use.
package lockfree

// State is the initialization state of a OnceCell or OnceMut.
type State int

const (
	// StateEmpty means no value is present and no write is in progress.
	StateEmpty State = iota

	// StateWriting means a writer won the right to initialize the cell and
	// has not yet published the value.
	StateWriting

	// StateInitialized means the value is published.
	StateInitialized
)

// String implements fmt.Stringer.String.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateWriting:
		return "writing"
	case StateInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}
