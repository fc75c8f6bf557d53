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

// Package cleanup provides utilities to clean "stuff" on defers.
package cleanup

import (
	"io"

	"github.com/hashicorp/go-multierror"
)

// Cleanup allows defers to be aborted when cleanup needs to happen
// conditionally. Usage:
//
//	cu := cleanup.Make(func() { f.Close() })
//	defer cu.Clean() // failure before release is called will close the file.
//	...
//	cu.Add(func() { f2.Close() })  // Adds another cleanup function
//	...
//	cu.Release() // on success, aborts closing the file.
//	return f
type Cleanup struct {
	cleaners []func() error
}

// Make creates a new Cleanup object.
func Make(f func()) Cleanup {
	c := Cleanup{}
	c.Add(f)
	return c
}

// Add adds a new function to be called on Clean(). Functions run in reverse
// order of addition. A nil f is ignored.
func (c *Cleanup) Add(f func()) {
	if f == nil {
		return
	}
	c.AddErr(func() error {
		f()
		return nil
	})
}

// AddErr adds a function whose error is reported by Clean.
func (c *Cleanup) AddErr(f func() error) {
	if f != nil {
		c.cleaners = append(c.cleaners, f)
	}
}

// AddCloser adds cl.Close.
func (c *Cleanup) AddCloser(cl io.Closer) {
	c.AddErr(cl.Close)
}

// Clean calls all cleanup functions in reverse order and returns their
// errors combined. Every function runs even if an earlier one failed.
func (c *Cleanup) Clean() error {
	cleaners := c.cleaners
	c.cleaners = nil
	var merr error
	for i := len(cleaners) - 1; i >= 0; i-- {
		if err := cleaners[i](); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr
}

// Release releases the cleanup from its duties, i.e. cleanup functions are not
// called after this point. Returns a function that calls all registered
// functions in case the caller has use for them.
func (c *Cleanup) Release() func() error {
	old := Cleanup{cleaners: c.cleaners}
	c.cleaners = nil
	return old.Clean
}
