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

import (
	"testing"
	"time"

	"coredb.dev/pkg/file"
)

func TestSharedLocksDoNotConflict(t *testing.T) {
	tbl := NewTable(100 * time.Millisecond)
	blk := file.BlockId{Filename: "t.tbl", Blknum: 0}
	if err := tbl.SLock(blk); err != nil {
		t.Fatal(err)
	}
	if err := tbl.SLock(blk); err != nil {
		t.Fatal(err)
	}
}

func TestExclusiveConflictsWithShared(t *testing.T) {
	tbl := NewTable(80 * time.Millisecond)
	blk := file.BlockId{Filename: "t.tbl", Blknum: 0}
	// Two shared holders: another transaction's plus the requester's
	// own. A count of 1 would be the requester's sole S lock, which
	// XLock upgrades instead of rejecting.
	if err := tbl.SLock(blk); err != nil {
		t.Fatal(err)
	}
	if err := tbl.SLock(blk); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- tbl.XLock(blk) }()

	select {
	case err := <-done:
		if err != ErrLockConflict {
			t.Fatalf("XLock against held SLock = %v, want ErrLockConflict", err)
		}
	case <-time.After(time.Second):
		t.Fatal("XLock never returned")
	}
}

func TestUnlockWakesWaiter(t *testing.T) {
	tbl := NewTable(2 * time.Second)
	blk := file.BlockId{Filename: "t.tbl", Blknum: 0}
	if err := tbl.XLock(blk); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- tbl.SLock(blk) }()

	time.Sleep(50 * time.Millisecond)
	tbl.Unlock(blk)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("SLock after unlock = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("SLock never woke up after Unlock")
	}
}

func TestConcurrencyManagerUpgrade(t *testing.T) {
	tbl := NewTable(time.Second)
	blk := file.BlockId{Filename: "t.tbl", Blknum: 0}
	cm := NewConcurrencyManager(tbl)

	if err := cm.SLock(blk); err != nil {
		t.Fatal(err)
	}
	if err := cm.XLock(blk); err != nil {
		t.Fatalf("upgrade to XLock failed: %v", err)
	}
	cm.Release()

	// After release, a fresh manager must be able to get the lock.
	cm2 := NewConcurrencyManager(tbl)
	if err := cm2.XLock(blk); err != nil {
		t.Fatalf("XLock after release = %v", err)
	}
}
