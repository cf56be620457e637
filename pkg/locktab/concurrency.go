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

package locktab

import "coredb.dev/pkg/file"

const (
	lockNone = iota
	lockShared
	lockExclusive
)

// ConcurrencyManager enforces two-phase locking for a single
// transaction: it caches which lock mode the transaction already
// holds on each block so repeated reads of the same block never ask
// the shared Table twice, and it upgrades a shared lock to exclusive
// only on the first write to a block the transaction has already
// read.
type ConcurrencyManager struct {
	table *Table
	locks map[file.BlockId]int
}

// NewConcurrencyManager creates a per-transaction lock cache backed
// by the shared table.
func NewConcurrencyManager(table *Table) *ConcurrencyManager {
	return &ConcurrencyManager{
		table: table,
		locks: make(map[file.BlockId]int),
	}
}

// SLock ensures the transaction holds at least a shared lock on blk.
func (cm *ConcurrencyManager) SLock(blk file.BlockId) error {
	if cm.locks[blk] != lockNone {
		return nil
	}
	if err := cm.table.SLock(blk); err != nil {
		return err
	}
	cm.locks[blk] = lockShared
	return nil
}

// XLock ensures the transaction holds an exclusive lock on blk,
// upgrading from shared if necessary.
func (cm *ConcurrencyManager) XLock(blk file.BlockId) error {
	if cm.locks[blk] == lockExclusive {
		return nil
	}
	// XLock the first time always goes through SLock, matching the
	// table's upgrade precondition (it waits for "no other shared
	// holders", which is only safe to check once this tx holds one).
	if err := cm.SLock(blk); err != nil {
		return err
	}
	if err := cm.table.XLock(blk); err != nil {
		return err
	}
	cm.locks[blk] = lockExclusive
	return nil
}

// Release drops every lock this transaction holds. Called once, at
// commit or rollback, implementing the "release" half of two-phase
// locking.
func (cm *ConcurrencyManager) Release() {
	for blk := range cm.locks {
		cm.table.Unlock(blk)
	}
	cm.locks = make(map[file.BlockId]int)
}
