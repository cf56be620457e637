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

package table

import (
	"testing"
	"time"

	"coredb.dev/pkg/buffer"
	"coredb.dev/pkg/file"
	"coredb.dev/pkg/locktab"
	"coredb.dev/pkg/record"
	"coredb.dev/pkg/tx"
	"coredb.dev/pkg/walog"
)

func newTestTx(t *testing.T, dir string, numbuffs int) *tx.Transaction {
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
	transaction, err := tx.New(fm, lm, bm, lt, 1)
	if err != nil {
		t.Fatal(err)
	}
	return transaction
}

func TestInsertManyThenScanAll(t *testing.T) {
	transaction := newTestTx(t, t.TempDir(), 8)
	sch := record.NewSchema()
	sch.AddIntField("x")
	sch.AddIntField("y")
	layout := record.NewLayout(sch)

	ts, err := New(transaction, "t", layout)
	if err != nil {
		t.Fatal(err)
	}

	const n = 50
	for i := 0; i < n; i++ {
		if err := ts.Insert(); err != nil {
			t.Fatal(err)
		}
		if err := ts.SetInt("x", int32(i)); err != nil {
			t.Fatal(err)
		}
		if err := ts.SetInt("y", int32(i*10)); err != nil {
			t.Fatal(err)
		}
	}
	ts.Close()

	ts2, err := New(transaction, "t", layout)
	if err != nil {
		t.Fatal(err)
	}
	if err := ts2.BeforeFirst(); err != nil {
		t.Fatal(err)
	}
	count := 0
	for {
		has, err := ts2.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !has {
			break
		}
		x, err := ts2.GetInt("x")
		if err != nil {
			t.Fatal(err)
		}
		y, err := ts2.GetInt("y")
		if err != nil {
			t.Fatal(err)
		}
		if y != x*10 {
			t.Errorf("record %d: y=%d, want %d", x, y, x*10)
		}
		count++
	}
	ts2.Close()
	if count != n {
		t.Fatalf("scanned %d records, want %d", count, n)
	}
	if err := transaction.Commit(); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteThenScanSeesGap(t *testing.T) {
	transaction := newTestTx(t, t.TempDir(), 8)
	sch := record.NewSchema()
	sch.AddIntField("x")
	layout := record.NewLayout(sch)

	ts, err := New(transaction, "t", layout)
	if err != nil {
		t.Fatal(err)
	}
	defer ts.Close()

	var ids []record.ID
	for i := 0; i < 5; i++ {
		if err := ts.Insert(); err != nil {
			t.Fatal(err)
		}
		if err := ts.SetInt("x", int32(i)); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, ts.RecordId())
	}

	if err := ts.MoveToRecordId(ids[2]); err != nil {
		t.Fatal(err)
	}
	if err := ts.Delete(); err != nil {
		t.Fatal(err)
	}

	if err := ts.BeforeFirst(); err != nil {
		t.Fatal(err)
	}
	count := 0
	for {
		has, err := ts.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !has {
			break
		}
		count++
	}
	if count != 4 {
		t.Fatalf("scanned %d records after delete, want 4", count)
	}
}
