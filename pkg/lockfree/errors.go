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
)

// Refusals returned by the cells. They are ordinary outcomes of contention
// or ordering and leave the cell unchanged.
var (
	// ErrAlreadyInitialized is returned by Set and SetWith when the cell
	// already holds a published value.
	ErrAlreadyInitialized = errors.New("cell already initialized")

	// ErrContended is returned when another caller's initializer is still
	// running. The rejected factory was not called.
	ErrContended = errors.New("cell initialization in progress")

	// ErrNotInitialized is returned when a value is requested from an empty
	// cell.
	ErrNotInitialized = errors.New("cell not initialized")

	// ErrAlreadyBorrowed is returned when an exclusive borrow is already
	// outstanding.
	ErrAlreadyBorrowed = errors.New("value already borrowed")
)

// Registry errors.
var (
	// ErrEmptyName is returned when registering a static without a name.
	ErrEmptyName = errors.New("static name is empty")

	// ErrDuplicateName is returned when a name is registered twice.
	ErrDuplicateName = errors.New("static name already registered")
)

// InitError reports a static whose constructor panicked during
// Registry.InitAll. The static was left empty and may be initialized again.
type InitError struct {
	// Name is the registered name of the static.
	Name string

	// Panic is the value the constructor panicked with.
	Panic any
}

// Error implements error.Error.
func (e *InitError) Error() string {
	return fmt.Sprintf("static %q: constructor panicked: %v", e.Name, e.Panic)
}

// Unwrap returns the panic value if it is an error.
func (e *InitError) Unwrap() error {
	if err, ok := e.Panic.(error); ok {
		return err
	}
	return nil
}
