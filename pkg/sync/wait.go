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

package sync

import "fmt"

// WaitGroupErr is similar to WaitGroup but allows goroutines to report
// errors. Only the first error is retained; later reports are counted.
//
// Example usage:
//
//	wg := WaitGroupErr{}
//	wg.Add(1)
//	go func() {
//		defer wg.Done()
//		if got := cell.Get(); got != want {
//			wg.ReportError(fmt.Errorf("got %v, want %v", got, want))
//			return
//		}
//	}()
//	return wg.Error()
type WaitGroupErr struct {
	WaitGroup

	// mu protects firstErr and dropped.
	mu Mutex

	// firstErr holds the first error reported. nil if no error occurred.
	firstErr error

	// dropped counts errors reported after firstErr.
	dropped int
}

// ReportError reports an error. Note it does not call Done().
func (w *WaitGroupErr) ReportError(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.firstErr == nil {
		w.firstErr = err
		return
	}
	w.dropped++
}

// Error waits for the counter to reach 0 and returns the first reported error
// if any. If more errors were reported, their count is appended.
func (w *WaitGroupErr) Error() error {
	w.Wait()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.firstErr != nil && w.dropped > 0 {
		return fmt.Errorf("%w (and %d more errors)", w.firstErr, w.dropped)
	}
	return w.firstErr
}
