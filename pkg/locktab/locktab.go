/*
Copyright 2013 The Camlistore Authors.

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

// Package locktab implements block-granularity two-phase locking: a
// single process-wide table of shared/exclusive locks keyed by
// BlockId, and a per-transaction ConcurrencyManager that caches which
// locks a transaction already holds so it never asks the table twice
// for the same block.
package locktab

import (
	"errors"
	"sync"
	"time"

	"coredb.dev/pkg/file"
	"coredb.dev/pkg/syncutil"
)

// ErrLockConflict is returned when a lock cannot be acquired within
// the table's configured wait time. Callers should roll their
// transaction back and retry.
var ErrLockConflict = errors.New("coredb: lock conflict, transaction must abort")

const exclusive = -1

// Table is the shared lock table for every block in the database.
// A value of 0 in locks means unlocked, a positive value is the
// number of shared lock holders, and exclusive (-1) means one
// transaction holds it for writing.
type Table struct {
	mu      sync.Mutex
	cond    *sync.Cond
	locks   map[file.BlockId]int
	maxWait time.Duration

	trackMu  sync.Mutex
	trackers map[file.BlockId]*syncutil.ContentionTracker
}

// NewTable creates a lock table. maxWait bounds how long SLock/XLock
// block on a conflicting lock before giving up with ErrLockConflict.
func NewTable(maxWait time.Duration) *Table {
	t := &Table{
		locks:    make(map[file.BlockId]int),
		maxWait:  maxWait,
		trackers: make(map[file.BlockId]*syncutil.ContentionTracker),
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// trackerFor returns the contention tracker for blk, creating it on
// first use. Every requester for a given block funnels through its
// tracker before touching the shared lock state, so a transaction
// that blocks for a long time waiting its turn on a hot block is
// logged instead of stalling invisibly.
func (t *Table) trackerFor(blk file.BlockId) *syncutil.ContentionTracker {
	t.trackMu.Lock()
	defer t.trackMu.Unlock()
	ct, ok := t.trackers[blk]
	if !ok {
		ct = &syncutil.ContentionTracker{}
		t.trackers[blk] = ct
	}
	return ct
}

// SLock grants a shared lock on blk, waiting out any exclusive holder.
func (t *Table) SLock(blk file.BlockId) error {
	tr := t.trackerFor(blk)
	tr.Lock(blk)
	defer tr.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	deadline := time.Now().Add(t.maxWait)
	for t.hasXLockLocked(blk) {
		if !t.waitUntil(deadline) {
			return ErrLockConflict
		}
	}
	t.locks[blk] = t.locks[blk] + 1
	return nil
}

// XLock upgrades or grants an exclusive lock on blk. It waits until
// no other transaction holds any lock on the block at all: a caller
// that already holds the sole shared lock (count == 1) passes through
// immediately, implementing the S-to-X upgrade the concurrency
// manager relies on.
func (t *Table) XLock(blk file.BlockId) error {
	tr := t.trackerFor(blk)
	tr.Lock(blk)
	defer tr.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	deadline := time.Now().Add(t.maxWait)
	for t.hasOtherSLocksLocked(blk) {
		if !t.waitUntil(deadline) {
			return ErrLockConflict
		}
	}
	t.locks[blk] = exclusive
	return nil
}

// Unlock releases one lock (shared or exclusive) on blk.
func (t *Table) Unlock(blk file.BlockId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	val := t.locks[blk]
	if val > 1 {
		t.locks[blk] = val - 1
	} else {
		delete(t.locks, blk)
		t.cond.Broadcast()
	}
}

func (t *Table) hasXLockLocked(blk file.BlockId) bool {
	return t.locks[blk] == exclusive
}

func (t *Table) hasOtherSLocksLocked(blk file.BlockId) bool {
	val := t.locks[blk]
	return val > 1 || val == exclusive
}

func (t *Table) waitUntil(deadline time.Time) bool {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return false
	}
	timer := time.AfterFunc(remaining, func() {
		t.mu.Lock()
		t.cond.Broadcast()
		t.mu.Unlock()
	})
	defer timer.Stop()
	t.cond.Wait()
	return time.Now().Before(deadline)
}
