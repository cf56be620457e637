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

package buffer

import (
	"testing"
	"time"

	"coredb.dev/pkg/file"
	"coredb.dev/pkg/page"
	"coredb.dev/pkg/walog"
)

func newTestPool(t *testing.T, numbuffs int) (*Pool, *file.Mgr) {
	t.Helper()
	fm, err := file.NewMgr(t.TempDir(), 400)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { fm.Close() })
	lm, err := walog.NewMgr(fm, "log.txt")
	if err != nil {
		t.Fatal(err)
	}
	return NewPool(fm, lm, numbuffs, 2*time.Second), fm
}

// TestBufferReuse reproduces pinning four blocks through a
// three-frame pool: the fourth pin must evict the first block after
// it is unpinned, and re-pinning that block must read back exactly
// what was written before eviction.
func TestBufferReuse(t *testing.T) {
	pool, fm := newTestPool(t, 3)

	var blocks []file.BlockId
	for i := 0; i < 4; i++ {
		blk, err := fm.Append("t.tbl")
		if err != nil {
			t.Fatal(err)
		}
		blocks = append(blocks, blk)
	}

	buf0, err := pool.Pin(blocks[0])
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Pin(blocks[1]); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Pin(blocks[2]); err != nil {
		t.Fatal(err)
	}

	buf0.Contents().SetInt(80, 123)
	buf0.Contents().SetString(140, "hello buffer manager")
	buf0.SetModified(1, -1)

	pool.Unpin(buf0)

	buf3, err := pool.Pin(blocks[3])
	if err != nil {
		t.Fatalf("Pin of 4th block failed: %v", err)
	}
	// Free the frame again so block 0 can be read back into it.
	pool.Unpin(buf3)

	buf0again, err := pool.Pin(blocks[0])
	if err != nil {
		t.Fatal(err)
	}
	if got := buf0again.Contents().GetInt(80); got != 123 {
		t.Errorf("GetInt(80) after reuse = %d, want 123", got)
	}
	if got := buf0again.Contents().GetString(140); got != "hello buffer manager" {
		t.Errorf("GetString(140) after reuse = %q, want %q", got, "hello buffer manager")
	}

	// The evicting Pin must have written buf0's dirty contents back to
	// disk before reassigning its frame; confirm the file itself agrees.
	p := page.New(400)
	if err := fm.Read(blocks[0], p); err != nil {
		t.Fatal(err)
	}
	if got := p.GetInt(80); got != 123 {
		t.Errorf("file bytes GetInt(80) = %d, want 123", got)
	}
}

func TestAllBuffersPinnedTimesOut(t *testing.T) {
	pool, fm := newTestPool(t, 1)
	blkA, err := fm.Append("t.tbl")
	if err != nil {
		t.Fatal(err)
	}
	blkB, err := fm.Append("t.tbl")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Pin(blkA); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Pin(blkB); err != ErrBuffersPinned {
		t.Fatalf("Pin on exhausted pool = %v, want ErrBuffersPinned", err)
	}
}

func TestAvailableCount(t *testing.T) {
	pool, fm := newTestPool(t, 2)
	if pool.Available() != 2 {
		t.Fatalf("Available = %d, want 2", pool.Available())
	}
	blk, err := fm.Append("t.tbl")
	if err != nil {
		t.Fatal(err)
	}
	b, err := pool.Pin(blk)
	if err != nil {
		t.Fatal(err)
	}
	if pool.Available() != 1 {
		t.Fatalf("Available after pin = %d, want 1", pool.Available())
	}
	pool.Unpin(b)
	if pool.Available() != 2 {
		t.Fatalf("Available after unpin = %d, want 2", pool.Available())
	}
}
