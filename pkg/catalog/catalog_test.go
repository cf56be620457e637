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

package catalog

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

// TestBootstrapAndCreateTable reproduces creating
// users(id INTEGER, name VARCHAR(9), age INTEGER) against a fresh
// database and checks the resulting layout matches the offsets a
// 4-byte flag + 4-byte int + 9-char varchar + 4-byte int demands.
func TestBootstrapAndCreateTable(t *testing.T) {
	transaction := newTestTx(t)
	mgr, err := NewManager(true, transaction)
	if err != nil {
		t.Fatal(err)
	}

	sch := record.NewSchema()
	sch.AddIntField("id")
	sch.AddStringField("name", 9)
	sch.AddIntField("age")

	if err := mgr.CreateTable("users", sch, transaction); err != nil {
		t.Fatal(err)
	}

	layout, err := mgr.LayoutOf("users", transaction)
	if err != nil {
		t.Fatal(err)
	}
	if got := layout.Offset("id"); got != 4 {
		t.Errorf("offset(id) = %d, want 4", got)
	}
	if got := layout.Offset("name"); got != 8 {
		t.Errorf("offset(name) = %d, want 8", got)
	}
	if got := layout.Offset("age"); got != 48 {
		t.Errorf("offset(age) = %d, want 48", got)
	}
	if got := layout.SlotSize(); got != 52 {
		t.Errorf("slotsize = %d, want 52", got)
	}

	exists, err := mgr.ExistsTable("users", transaction)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("ExistsTable(users) = false, want true")
	}
	exists, err = mgr.ExistsTable("ghosts", transaction)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("ExistsTable(ghosts) = true, want false")
	}

	hasField, err := mgr.ExistsField("users", "age", transaction)
	if err != nil {
		t.Fatal(err)
	}
	if !hasField {
		t.Error("ExistsField(users, age) = false, want true")
	}
}

func TestLayoutOfUnknownTable(t *testing.T) {
	transaction := newTestTx(t)
	mgr, err := NewManager(true, transaction)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.LayoutOf("nope", transaction); err != ErrTableNotFound {
		t.Fatalf("LayoutOf(nope) = %v, want ErrTableNotFound", err)
	}
}
