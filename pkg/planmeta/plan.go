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

// Package planmeta wraps pkg/query's scan operators in a Plan tree
// that also carries a schema and cost estimates (blocks accessed,
// records output, distinct values per field) pulled from pkg/catalog
// and pkg/statcache. It stops short of ever choosing between plans:
// there is no join reordering and no plan-selection search here,
// just the metadata a planner (or a human reading query output)
// would need to make that decision elsewhere.
package planmeta

import (
	"fmt"

	"coredb.dev/pkg/catalog"
	"coredb.dev/pkg/query"
	"coredb.dev/pkg/record"
	"coredb.dev/pkg/statcache"
	"coredb.dev/pkg/table"
	"coredb.dev/pkg/tx"
)

// Plan is a node in a query plan tree: it knows the schema its scan
// will produce and can estimate the scan's cost without running it.
type Plan interface {
	Open(transaction *tx.Transaction) (query.Scan, error)
	Schema() *record.Schema
	BlocksAccessed() int
	RecordsOutput() int
	DistinctValues(fieldname string) int
}

// TablePlan is a leaf plan over one heap table, priced from the
// catalog's layout and the stat cache's cardinality estimate.
type TablePlan struct {
	tblname string
	layout  *record.Layout
	stat    statcache.StatInfo
}

// NewTablePlan builds a TablePlan for tblname, looking up its layout
// in cat and its cardinality estimate in stats.
func NewTablePlan(tblname string, transaction *tx.Transaction, cat *catalog.Manager, stats *statcache.Manager) (*TablePlan, error) {
	layout, err := cat.LayoutOf(tblname, transaction)
	if err != nil {
		return nil, err
	}
	si, err := stats.GetStatInfo(tblname, layout, transaction)
	if err != nil {
		return nil, err
	}
	return &TablePlan{tblname: tblname, layout: layout, stat: si}, nil
}

func (p *TablePlan) Open(transaction *tx.Transaction) (query.Scan, error) {
	return table.New(transaction, p.tblname, p.layout)
}

func (p *TablePlan) Schema() *record.Schema { return p.layout.Schema() }
func (p *TablePlan) BlocksAccessed() int    { return p.stat.BlocksAccessed() }
func (p *TablePlan) RecordsOutput() int     { return p.stat.RecordsOutput() }
func (p *TablePlan) DistinctValues(fieldname string) int {
	return p.stat.DistinctValues(fieldname)
}

// SelectPlan narrows an underlying plan to the records satisfying
// pred. Opening one requires the underlying scan to be an
// query.UpdateScan (true of every TablePlan and, transitively, every
// SelectPlan over one), since SelectScan passes mutation calls
// through.
type SelectPlan struct {
	p    Plan
	pred *query.Predicate
}

// NewSelectPlan wraps p, filtering to the records pred accepts.
func NewSelectPlan(p Plan, pred *query.Predicate) *SelectPlan {
	return &SelectPlan{p: p, pred: pred}
}

func (p *SelectPlan) Open(transaction *tx.Transaction) (query.Scan, error) {
	s, err := p.p.Open(transaction)
	if err != nil {
		return nil, err
	}
	us, ok := s.(query.UpdateScan)
	if !ok {
		return nil, fmt.Errorf("planmeta: select plan requires an updatable underlying scan, got %T", s)
	}
	return query.NewSelectScan(us, p.pred), nil
}

func (p *SelectPlan) Schema() *record.Schema { return p.p.Schema() }
func (p *SelectPlan) BlocksAccessed() int    { return p.p.BlocksAccessed() }

// RecordsOutput applies the classic equality-predicate reduction: one
// term divides the estimate by the larger side's distinct-value
// count, each additional conjoined term compounds it.
func (p *SelectPlan) RecordsOutput() int {
	factor := p.pred.ReductionFactor(p.p)
	if factor <= 0 {
		factor = 1
	}
	out := p.p.RecordsOutput() / factor
	if out < 1 {
		out = 1
	}
	return out
}

func (p *SelectPlan) DistinctValues(fieldname string) int {
	if _, ok := p.pred.EquatesWithConstant(fieldname); ok {
		return 1
	}
	if other, ok := p.pred.EquatesWithField(fieldname); ok {
		return min(p.p.DistinctValues(fieldname), p.p.DistinctValues(other))
	}
	return p.p.DistinctValues(fieldname)
}

// ProjectPlan restricts an underlying plan's schema to fieldlist,
// without changing its cost estimates: projection is free, it just
// hides columns on the way out.
type ProjectPlan struct {
	p      Plan
	schema *record.Schema
}

// NewProjectPlan wraps p, exposing only fieldlist.
func NewProjectPlan(p Plan, fieldlist []string) *ProjectPlan {
	sch := record.NewSchema()
	for _, f := range fieldlist {
		sch.Add(f, p.Schema())
	}
	return &ProjectPlan{p: p, schema: sch}
}

func (p *ProjectPlan) Open(transaction *tx.Transaction) (query.Scan, error) {
	s, err := p.p.Open(transaction)
	if err != nil {
		return nil, err
	}
	return query.NewProjectScan(s, p.schema.Fields()), nil
}

func (p *ProjectPlan) Schema() *record.Schema { return p.schema }
func (p *ProjectPlan) BlocksAccessed() int    { return p.p.BlocksAccessed() }
func (p *ProjectPlan) RecordsOutput() int     { return p.p.RecordsOutput() }
func (p *ProjectPlan) DistinctValues(fieldname string) int {
	return p.p.DistinctValues(fieldname)
}

// ProductPlan is the cross product of two plans, priced the classic
// way: every block of p1 is read once, and for each of p1's output
// records the whole of p2 is rescanned.
type ProductPlan struct {
	p1, p2 Plan
	schema *record.Schema
}

// NewProductPlan builds the cross product of p1 and p2.
func NewProductPlan(p1, p2 Plan) *ProductPlan {
	sch := record.NewSchema()
	sch.AddAll(p1.Schema())
	sch.AddAll(p2.Schema())
	return &ProductPlan{p1: p1, p2: p2, schema: sch}
}

func (p *ProductPlan) Open(transaction *tx.Transaction) (query.Scan, error) {
	s1, err := p.p1.Open(transaction)
	if err != nil {
		return nil, err
	}
	s2, err := p.p2.Open(transaction)
	if err != nil {
		s1.Close()
		return nil, err
	}
	return query.NewProductScan(s1, s2)
}

func (p *ProductPlan) Schema() *record.Schema { return p.schema }

func (p *ProductPlan) BlocksAccessed() int {
	return p.p1.BlocksAccessed() + p.p1.RecordsOutput()*p.p2.BlocksAccessed()
}

func (p *ProductPlan) RecordsOutput() int {
	return p.p1.RecordsOutput() * p.p2.RecordsOutput()
}

func (p *ProductPlan) DistinctValues(fieldname string) int {
	if p.p1.Schema().HasField(fieldname) {
		return p.p1.DistinctValues(fieldname)
	}
	return p.p2.DistinctValues(fieldname)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
