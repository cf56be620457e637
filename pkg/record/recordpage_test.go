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

package record

import (
	"testing"
	"time"

	"coredb.dev/pkg/buffer"
	"coredb.dev/pkg/file"
	"coredb.dev/pkg/locktab"
	"coredb.dev/pkg/tx"
	"coredb.dev/pkg/walog"
)

func newTestTx(t *testing.T) *tx.Transaction {
	t.Helper()
	fm, err := file.NewMgr(t.TempDir(), 400)
	if err != nil {
		t.Fatal(err)
	}
	lm, err := walog.NewMgr(fm, "log.txt")
	if err != nil {
		t.Fatal(err)
	}
	bm := buffer.NewPool(fm, lm, 8, 2*time.Second)
	lt := locktab.NewTable(2 * time.Second)
	transaction, err := tx.New(fm, lm, bm, lt, 1)
	if err != nil {
		t.Fatal(err)
	}
	return transaction
}

func TestFormatThenInsertAndRead(t *testing.T) {
	transaction := newTestTx(t)
	sch := NewSchema()
	sch.AddIntField("a")
	sch.AddStringField("b", 9)
	layout := NewLayout(sch)

	blk, err := transaction.Append("t.tbl")
	if err != nil {
		t.Fatal(err)
	}
	rp, err := NewPage(transaction, blk, layout)
	if err != nil {
		t.Fatal(err)
	}
	defer rp.Close()
	if err := rp.Format(); err != nil {
		t.Fatal(err)
	}

	slot, err := rp.InsertAfter(-1)
	if err != nil {
		t.Fatal(err)
	}
	if slot != 0 {
		t.Fatalf("first InsertAfter(-1) = %d, want 0", slot)
	}
	if err := rp.SetInt(slot, "a", 42); err != nil {
		t.Fatal(err)
	}
	if err := rp.SetString(slot, "b", "hi"); err != nil {
		t.Fatal(err)
	}

	a, err := rp.GetInt(slot, "a")
	if err != nil {
		t.Fatal(err)
	}
	if a != 42 {
		t.Errorf("GetInt(a) = %d, want 42", a)
	}
	b, err := rp.GetString(slot, "b")
	if err != nil {
		t.Fatal(err)
	}
	if b != "hi" {
		t.Errorf("GetString(b) = %q, want %q", b, "hi")
	}

	next, err := rp.NextAfter(slot)
	if err != nil {
		t.Fatal(err)
	}
	if next != -1 {
		t.Errorf("NextAfter(%d) = %d, want -1 (only one record inserted)", slot, next)
	}

	if err := rp.Delete(slot); err != nil {
		t.Fatal(err)
	}
	reused, err := rp.InsertAfter(-1)
	if err != nil {
		t.Fatal(err)
	}
	if reused != slot {
		t.Errorf("InsertAfter after delete reused slot %d, want %d", reused, slot)
	}
}
