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

// Package trywait provides waiting helpers for callers that can afford to
// block on the non-blocking primitives in package lockfree.
//
// Every helper retries the underlying Try operation under a backoff policy
// until it succeeds, the operation fails permanently, or the context ends.
// The primitives themselves never block; all waiting happens here.
package trywait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"

	"gvisor.dev/lockfree/pkg/lockfree"
)

// errLocked is the retryable refusal reported by Lock.
var errLocked = errors.New("mutex is locked")

// DefaultBackOff returns the policy used when a nil backoff.BackOff is
// passed. It has no elapsed-time cap; the context bounds the wait.
func DefaultBackOff() backoff.BackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     time.Millisecond,
		RandomizationFactor: 0.1,
		Multiplier:          1.5,
		MaxInterval:         100 * time.Millisecond,
		Clock:               backoff.SystemClock,
	}
}

// minWait is the shortest wait deadlineBackOff shrinks to before it lets the
// context end the retries.
const minWait = time.Millisecond

// deadlineBackOff is a backoff.BackOffContext that retries until ctx is done.
//
// Unlike backoff.WithContext, it does not stop when the next interval would
// cross the deadline. It waits half of the remaining time instead, so that
// the last attempts land just before the deadline and the retries end with
// ctx done.
type deadlineBackOff struct {
	backoff.BackOff
	ctx context.Context
}

// Context implements backoff.BackOffContext.Context.
func (b *deadlineBackOff) Context() context.Context {
	return b.ctx
}

// NextBackOff implements backoff.BackOff.NextBackOff.
func (b *deadlineBackOff) NextBackOff() time.Duration {
	if b.ctx.Err() != nil {
		return backoff.Stop
	}
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if deadline, ok := b.ctx.Deadline(); ok {
		if left := time.Until(deadline); left < next {
			next = max(left/2, minWait)
		}
	}
	return next
}

// retry runs op under b until it returns nil or a permanent error, or ctx is
// done. op reports a retryable refusal by returning a non-permanent error.
func retry(ctx context.Context, b backoff.BackOff, op func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b == nil {
		b = DefaultBackOff()
	}
	err := backoff.Retry(op, &deadlineBackOff{BackOff: b, ctx: ctx})
	if err == nil {
		return nil
	}
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w (last refusal: %w)", cerr, err)
	}
	return err
}

// Lock acquires m, waiting while it is held.
//
// Lock returns an error if ctx is done before m could be acquired, or if b
// gives up. A leaked mutex is never acquired, so Lock waits until then.
func Lock[T any](ctx context.Context, m *lockfree.Mutex[T], b backoff.BackOff) (lockfree.Guard[T], error) {
	var g lockfree.Guard[T]
	err := retry(ctx, b, func() error {
		var ok bool
		if g, ok = m.TryLock(); !ok {
			return errLocked
		}
		return nil
	})
	return g, err
}

// Borrow borrows the value in c, waiting while it is borrowed by someone
// else or not yet initialized.
func Borrow[T any](ctx context.Context, c *lockfree.OnceMut[T], b backoff.BackOff) (lockfree.Guard[T], error) {
	var g lockfree.Guard[T]
	err := retry(ctx, b, func() error {
		var err error
		g, err = c.Lock()
		return err
	})
	return g, err
}

// Get waits until a value is published in c and returns it.
func Get[T any](ctx context.Context, c *lockfree.OnceCell[T], b backoff.BackOff) (*T, error) {
	var v *T
	err := retry(ctx, b, func() error {
		var ok bool
		if v, ok = c.Get(); !ok {
			return lockfree.ErrNotInitialized
		}
		return nil
	})
	return v, err
}

// GetOrInit returns the value in c, initializing it with f if c is empty. If
// another initializer is running, GetOrInit waits for it to finish. If that
// initializer panics, f may end up being called instead.
//
// A panic in f propagates to the caller.
func GetOrInit[T any](ctx context.Context, c *lockfree.OnceCell[T], f func() T, b backoff.BackOff) (*T, error) {
	var v *T
	err := retry(ctx, b, func() error {
		var err error
		v, err = c.GetOrInit(f)
		if err != nil && !errors.Is(err, lockfree.ErrContended) {
			return backoff.Permanent(err)
		}
		return err
	})
	return v, err
}
