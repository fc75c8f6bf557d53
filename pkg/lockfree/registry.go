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

	"github.com/hashicorp/go-multierror"
)

// Initializer is implemented by *Static and *StaticMut.
type Initializer interface {
	// Init initializes the value and returns true if this call did it.
	Init() bool

	// State returns the initialization state.
	State() State
}

// Registry is an ordered set of named statics that are initialized together.
//
// A Registry is built by the application's root before any goroutine uses
// the statics in it: Register, Declare and DeclareMut must not be called
// concurrently with each other or with InitAll. InitAll itself may run
// concurrently with other InitAll calls and with readers of the statics.
type Registry struct {
	entries []registryEntry
	index   map[string]int
}

type registryEntry struct {
	name   string
	static Initializer
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds s under name.
func (r *Registry) Register(name string, s Initializer) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, ok := r.index[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	r.index[name] = len(r.entries)
	r.entries = append(r.entries, registryEntry{name: name, static: s})
	return nil
}

// Declare creates a Static initialized by ctor and registers it under name.
func Declare[T any](r *Registry, name string, ctor func() T) (*Static[T], error) {
	s := &Static[T]{ctor: ctor}
	if err := r.Register(name, s); err != nil {
		return nil, err
	}
	return s, nil
}

// DeclareMut creates a StaticMut initialized by ctor and registers it under
// name.
func DeclareMut[T any](r *Registry, name string, ctor func() T) (*StaticMut[T], error) {
	s := &StaticMut[T]{ctor: ctor}
	if err := r.Register(name, s); err != nil {
		return nil, err
	}
	return s, nil
}

// MustDeclare is like Declare, but panics on error. It is intended for
// package-level declarations.
func MustDeclare[T any](r *Registry, name string, ctor func() T) *Static[T] {
	s, err := Declare(r, name, ctor)
	if err != nil {
		panic(err)
	}
	return s
}

// MustDeclareMut is like DeclareMut, but panics on error.
func MustDeclareMut[T any](r *Registry, name string, ctor func() T) *StaticMut[T] {
	s, err := DeclareMut(r, name, ctor)
	if err != nil {
		panic(err)
	}
	return s
}

// Lookup returns the static registered under name.
func (r *Registry) Lookup(name string) (Initializer, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.entries[i].static, true
}

// Names returns the registered names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.name)
	}
	return names
}

// InitAll initializes every registered static in declaration order and
// returns how many this call initialized.
//
// A constructor panic is recovered and reported as an *InitError; that
// static stays empty and the remaining statics are still initialized. All
// such errors are returned together.
func (r *Registry) InitAll() (int, error) {
	var (
		n    int
		merr error
	)
	for _, e := range r.entries {
		ok, err := initEntry(e)
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		if ok {
			n++
		}
	}
	return n, merr
}

// initEntry runs one initializer, converting a panic into an *InitError.
func initEntry(e registryEntry) (ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			ok = false
			err = &InitError{Name: e.name, Panic: p}
		}
	}()
	return e.static.Init(), nil
}
