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

package tx

import (
	"testing"
	"time"

	"coredb.dev/pkg/buffer"
	"coredb.dev/pkg/file"
	"coredb.dev/pkg/locktab"
	"coredb.dev/pkg/walog"
)

type testEnv struct {
	fm *file.Mgr
	lm *walog.Mgr
	bm *buffer.Pool
	lt *locktab.Table
}

func newTestEnv(t *testing.T, dir string, numbuffs int) *testEnv {
	t.Helper()
	fm, err := file.NewMgr(dir, 400)
	if err != nil {
		t.Fatal(err)
	}
	lm, err := walog.NewMgr(fm, "log.txt")
	if err != nil {
		t.Fatal(err)
	}
	bm := buffer.NewPool(fm, lm, numbuffs, 2*time.Second)
	lt := locktab.NewTable(2 * time.Second)
	return &testEnv{fm: fm, lm: lm, bm: bm, lt: lt}
}

func TestSetAndGetRoundTrip(t *testing.T) {
	env := newTestEnv(t, t.TempDir(), 8)
	transaction, err := New(env.fm, env.lm, env.bm, env.lt, 1)
	if err != nil {
		t.Fatal(err)
	}
	blk, err := transaction.Append("t.tbl")
	if err != nil {
		t.Fatal(err)
	}
	if err := transaction.Pin(blk); err != nil {
		t.Fatal(err)
	}
	if err := transaction.SetInt(blk, 0, 42, true); err != nil {
		t.Fatal(err)
	}
	if err := transaction.SetString(blk, 8, "hi", true); err != nil {
		t.Fatal(err)
	}
	got, err := transaction.GetInt(blk, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 {
		t.Errorf("GetInt = %d, want 42", got)
	}
	if err := transaction.Commit(); err != nil {
		t.Fatal(err)
	}
}

func TestRollbackUndoesWrites(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, dir, 8)

	tx1, err := New(env.fm, env.lm, env.bm, env.lt, 1)
	if err != nil {
		t.Fatal(err)
	}
	blk, err := tx1.Append("t.tbl")
	if err != nil {
		t.Fatal(err)
	}
	if err := tx1.Pin(blk); err != nil {
		t.Fatal(err)
	}
	if err := tx1.SetInt(blk, 0, 99, true); err != nil {
		t.Fatal(err)
	}
	if err := tx1.Rollback(); err != nil {
		t.Fatal(err)
	}

	tx2, err := New(env.fm, env.lm, env.bm, env.lt, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx2.Pin(blk); err != nil {
		t.Fatal(err)
	}
	got, err := tx2.GetInt(blk, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("GetInt after rollback = %d, want 0 (undone)", got)
	}
}

func TestRecoverUndoesUncommittedAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, dir, 8)

	tx1, err := New(env.fm, env.lm, env.bm, env.lt, 1)
	if err != nil {
		t.Fatal(err)
	}
	blk, err := tx1.Append("t.tbl")
	if err != nil {
		t.Fatal(err)
	}
	if err := tx1.Pin(blk); err != nil {
		t.Fatal(err)
	}
	if err := tx1.SetInt(blk, 0, 1, true); err != nil {
		t.Fatal(err)
	}
	if err := tx1.Commit(); err != nil {
		t.Fatal(err)
	}

	tx2, err := New(env.fm, env.lm, env.bm, env.lt, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx2.Pin(blk); err != nil {
		t.Fatal(err)
	}
	if err := tx2.SetInt(blk, 0, 2, true); err != nil {
		t.Fatal(err)
	}
	// No commit: simulate a crash by simply discarding tx2 and the
	// in-memory buffer pool state, then reopening from disk.

	fm2, err := file.NewMgr(dir, 400)
	if err != nil {
		t.Fatal(err)
	}
	lm2, err := walog.NewMgr(fm2, "log.txt")
	if err != nil {
		t.Fatal(err)
	}
	bm2 := buffer.NewPool(fm2, lm2, 8, 2*time.Second)
	lt2 := locktab.NewTable(2 * time.Second)

	recoveryTx, err := New(fm2, lm2, bm2, lt2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := recoveryTx.Recover(); err != nil {
		t.Fatal(err)
	}

	checkTx, err := New(fm2, lm2, bm2, lt2, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := checkTx.Pin(blk); err != nil {
		t.Fatal(err)
	}
	got, err := checkTx.GetInt(blk, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Fatalf("GetInt after recover = %d, want 1 (committed value, uncommitted write undone)", got)
	}
}
