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

// Package sync provides synchronization helpers shared by the lock-free
// packages: a no-copy marker for types whose address is their identity, and
// aliases of the standard library types used next to them.
package sync

// NoCopy may be embedded into structs which must not be copied after first
// use. go vet's copylocks check reports copies of any struct containing it.
//
// See https://golang.org/issues/8005#issuecomment-190753527 for details.
//
// NoCopy has no size, so adding it never changes the layout of the
// enclosing struct beyond its alignment.
type NoCopy struct{}

// Lock is a no-op used by go vet's copylocks checker.
func (*NoCopy) Lock() {}

// Unlock is a no-op used by go vet's copylocks checker.
func (*NoCopy) Unlock() {}
