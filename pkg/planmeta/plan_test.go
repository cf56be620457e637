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

package planmeta

import (
	"testing"
	"time"

	"coredb.dev/pkg/buffer"
	"coredb.dev/pkg/catalog"
	"coredb.dev/pkg/file"
	"coredb.dev/pkg/locktab"
	"coredb.dev/pkg/query"
	"coredb.dev/pkg/record"
	"coredb.dev/pkg/statcache"
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

func setup(t *testing.T) (*tx.Transaction, *catalog.Manager, *statcache.Manager) {
	t.Helper()
	transaction := newTestTx(t)
	cat, err := catalog.NewManager(true, transaction)
	if err != nil {
		t.Fatal(err)
	}
	stats, err := statcache.NewManager(nil, cat, transaction)
	if err != nil {
		t.Fatal(err)
	}

	sch := record.NewSchema()
	sch.AddIntField("sid")
	sch.AddStringField("sname", 10)
	sch.AddIntField("majorid")
	if err := cat.CreateTable("student", sch, transaction); err != nil {
		t.Fatal(err)
	}
	return transaction, cat, stats
}

func insertStudent(t *testing.T, transaction *tx.Transaction, tp *TablePlan, sid int32, sname string, majorid int32) {
	t.Helper()
	s, err := tp.Open(transaction)
	if err != nil {
		t.Fatal(err)
	}
	us := s.(query.UpdateScan)
	defer us.Close()
	if err := us.Insert(); err != nil {
		t.Fatal(err)
	}
	if err := us.SetInt("sid", sid); err != nil {
		t.Fatal(err)
	}
	if err := us.SetString("sname", sname); err != nil {
		t.Fatal(err)
	}
	if err := us.SetInt("majorid", majorid); err != nil {
		t.Fatal(err)
	}
}

func TestTablePlanSchemaAndOpen(t *testing.T) {
	transaction, cat, stats := setup(t)

	tp, err := NewTablePlan("student", transaction, cat, stats)
	if err != nil {
		t.Fatal(err)
	}
	if !tp.Schema().HasField("sname") {
		t.Fatal("expected student.sname in schema")
	}

	insertStudent(t, transaction, tp, 1, "joe", 10)
	insertStudent(t, transaction, tp, 2, "amy", 20)

	if got := tp.RecordsOutput(); got < 1 {
		t.Errorf("RecordsOutput() = %d, want at least 1", got)
	}
}

func TestSelectPlanNarrowsDistinctValues(t *testing.T) {
	transaction, cat, stats := setup(t)
	tp, err := NewTablePlan("student", transaction, cat, stats)
	if err != nil {
		t.Fatal(err)
	}
	insertStudent(t, transaction, tp, 1, "joe", 10)
	insertStudent(t, transaction, tp, 2, "amy", 10)
	insertStudent(t, transaction, tp, 3, "max", 20)

	pred := query.NewPredicateFromTerm(query.Term{
		Lhs: query.FieldName("majorid"),
		Rhs: query.Constant(record.IntValue(10)),
	})
	sp := NewSelectPlan(tp, pred)
	if got := sp.DistinctValues("majorid"); got != 1 {
		t.Errorf("DistinctValues(majorid) = %d, want 1 (equated with a constant)", got)
	}

	s, err := sp.Open(transaction)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.BeforeFirst(); err != nil {
		t.Fatal(err)
	}
	count := 0
	for {
		has, err := s.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !has {
			break
		}
		count++
	}
	if count != 2 {
		t.Errorf("got %d matching rows, want 2", count)
	}
}

func TestProjectPlanRestrictsSchema(t *testing.T) {
	transaction, cat, stats := setup(t)
	tp, err := NewTablePlan("student", transaction, cat, stats)
	if err != nil {
		t.Fatal(err)
	}
	pp := NewProjectPlan(tp, []string{"sname"})
	if pp.Schema().HasField("sid") {
		t.Fatal("projected schema should not expose sid")
	}
	if !pp.Schema().HasField("sname") {
		t.Fatal("projected schema should expose sname")
	}
	if pp.BlocksAccessed() != tp.BlocksAccessed() {
		t.Errorf("projection changed BlocksAccessed: got %d, want %d", pp.BlocksAccessed(), tp.BlocksAccessed())
	}
}

func TestProductPlanJoinsSchemasAndCost(t *testing.T) {
	transaction, cat, stats := setup(t)

	sch := record.NewSchema()
	sch.AddIntField("deptid")
	sch.AddStringField("dname", 10)
	if err := cat.CreateTable("dept", sch, transaction); err != nil {
		t.Fatal(err)
	}

	studentPlan, err := NewTablePlan("student", transaction, cat, stats)
	if err != nil {
		t.Fatal(err)
	}
	deptPlan, err := NewTablePlan("dept", transaction, cat, stats)
	if err != nil {
		t.Fatal(err)
	}

	prod := NewProductPlan(studentPlan, deptPlan)
	if !prod.Schema().HasField("sname") || !prod.Schema().HasField("dname") {
		t.Fatal("product schema should contain fields from both sides")
	}
	want := studentPlan.BlocksAccessed() + studentPlan.RecordsOutput()*deptPlan.BlocksAccessed()
	if got := prod.BlocksAccessed(); got != want {
		t.Errorf("BlocksAccessed() = %d, want %d", got, want)
	}
	if got := prod.RecordsOutput(); got != studentPlan.RecordsOutput()*deptPlan.RecordsOutput() {
		t.Errorf("RecordsOutput() = %d, want %d", got, studentPlan.RecordsOutput()*deptPlan.RecordsOutput())
	}
}
