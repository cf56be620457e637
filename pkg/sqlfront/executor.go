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

package sqlfront

import (
	"fmt"

	"coredb.dev/pkg/catalog"
	"coredb.dev/pkg/planmeta"
	"coredb.dev/pkg/record"
	"coredb.dev/pkg/statcache"
	"coredb.dev/pkg/table"
	"coredb.dev/pkg/tx"
)

// Row is one output record of a SELECT, keyed by field name.
type Row map[string]record.Value

// Result is what Execute returns: for a SELECT, every matching row
// (already materialized, so the transaction's scans are all closed
// by the time the caller sees it); for an INSERT, just a count.
type Result struct {
	Fields       []string
	Rows         []Row
	RowsAffected int
}

// Execute parses sql and runs it to completion against transaction,
// using cat and stats to plan table access and to price each join.
// It wires the parsed statement directly into TableScan / SelectScan
// / ProjectScan / ProductScan through pkg/planmeta, exactly matching
// component M's "wire SQL to plans" charter: no cost-based plan
// selection, the FROM list's order is the join order.
func Execute(transaction *tx.Transaction, cat *catalog.Manager, stats *statcache.Manager, sql string) (Result, error) {
	stmt, err := NewParser(sql).Parse()
	if err != nil {
		return Result{}, err
	}
	switch s := stmt.(type) {
	case *SelectStmt:
		return executeSelect(transaction, cat, stats, s)
	case *InsertStmt:
		return executeInsert(transaction, cat, s)
	default:
		return Result{}, fmt.Errorf("sqlfront: unrecognized statement %T", stmt)
	}
}

func buildTablePlan(transaction *tx.Transaction, cat *catalog.Manager, stats *statcache.Manager, tables []string) (planmeta.Plan, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("sqlfront: FROM clause names no tables")
	}
	plan, err := planmeta.NewTablePlan(tables[0], transaction, cat, stats)
	if err != nil {
		return nil, err
	}
	var joined planmeta.Plan = plan
	for _, t := range tables[1:] {
		next, err := planmeta.NewTablePlan(t, transaction, cat, stats)
		if err != nil {
			return nil, err
		}
		joined = planmeta.NewProductPlan(joined, next)
	}
	return joined, nil
}

func executeSelect(transaction *tx.Transaction, cat *catalog.Manager, stats *statcache.Manager, stmt *SelectStmt) (Result, error) {
	plan, err := buildTablePlan(transaction, cat, stats, stmt.Tables)
	if err != nil {
		return Result{}, err
	}
	filtered := planmeta.NewSelectPlan(plan, stmt.Pred)
	projected := planmeta.NewProjectPlan(filtered, stmt.Fields)

	s, err := projected.Open(transaction)
	if err != nil {
		return Result{}, err
	}
	defer s.Close()

	var rows []Row
	if err := s.BeforeFirst(); err != nil {
		return Result{}, err
	}
	for {
		has, err := s.Next()
		if err != nil {
			return Result{}, err
		}
		if !has {
			break
		}
		row := make(Row, len(stmt.Fields))
		for _, f := range stmt.Fields {
			v, err := s.GetVal(f)
			if err != nil {
				return Result{}, err
			}
			row[f] = v
		}
		rows = append(rows, row)
	}
	return Result{Fields: stmt.Fields, Rows: rows}, nil
}

func executeInsert(transaction *tx.Transaction, cat *catalog.Manager, stmt *InsertStmt) (Result, error) {
	layout, err := cat.LayoutOf(stmt.Table, transaction)
	if err != nil {
		return Result{}, err
	}
	us, err := table.New(transaction, stmt.Table, layout)
	if err != nil {
		return Result{}, err
	}
	defer us.Close()

	if err := us.Insert(); err != nil {
		return Result{}, err
	}
	for i, f := range stmt.Fields {
		if err := us.SetVal(f, stmt.Vals[i]); err != nil {
			return Result{}, err
		}
	}
	return Result{RowsAffected: 1}, nil
}
