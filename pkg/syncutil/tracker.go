/*
Copyright 2013 The Camlistore Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package syncutil

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// ContentionTracker wraps a sync.Mutex and counts how many goroutines are
// currently waiting to acquire it or holding it. pkg/locktab uses one per BlockId so a
// transaction that blocks for longer than LogThreshold while waiting on a
// contended block gets a diagnostic line instead of silently stalling;
// coredb has no deadlock detector, so this is the only visibility into why
// a transaction is slow to acquire a lock.
type ContentionTracker struct {
	mu      sync.Mutex
	waiting int32
}

// LogThreshold is how long Lock will wait before logging that it is still
// waiting. Tests may lower it.
var LogThreshold = 2 * time.Second

// Lock blocks until the tracker is acquired, logging once if the wait
// exceeds LogThreshold.
func (t *ContentionTracker) Lock(block any) {
	n := atomic.AddInt32(&t.waiting, 1)
	if n > 1 {
		done := make(chan struct{})
		timer := time.AfterFunc(LogThreshold, func() {
			log.Printf("locktab: still waiting on %v after %v (%d waiters)", block, LogThreshold, n)
		})
		defer func() {
			timer.Stop()
			close(done)
		}()
	}
	t.mu.Lock()
}

// Unlock releases the tracker.
func (t *ContentionTracker) Unlock() {
	atomic.AddInt32(&t.waiting, -1)
	t.mu.Unlock()
}

// Waiting reports how many goroutines are currently blocked in Lock,
// plus one while the tracker is held (the count drops only in Unlock).
func (t *ContentionTracker) Waiting() int {
	return int(atomic.LoadInt32(&t.waiting))
}
