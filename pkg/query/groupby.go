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

package query

import "coredb.dev/pkg/record"

// AggregationFn accumulates one aggregate value (MAX, currently the
// only one this engine implements) over a run of records that share
// the same group key.
type AggregationFn interface {
	// ProcessFirst resets the aggregate to the first record of a
	// new group.
	ProcessFirst(s Scan) error
	// ProcessNext folds in another record of the same group.
	ProcessNext(s Scan) error
	// FieldName is the name the aggregate's result is exposed under,
	// e.g. "maxofv" for MAX(v).
	FieldName() string
	// Value returns the aggregate's current value.
	Value() record.Value
}

// MaxFn computes MAX(fieldname).
type MaxFn struct {
	fieldname string
	val       record.Value
}

// NewMaxFn returns an aggregation function computing MAX(fieldname).
func NewMaxFn(fieldname string) *MaxFn {
	return &MaxFn{fieldname: fieldname}
}

func (f *MaxFn) ProcessFirst(s Scan) error {
	v, err := s.GetVal(f.fieldname)
	if err != nil {
		return err
	}
	f.val = v
	return nil
}

func (f *MaxFn) ProcessNext(s Scan) error {
	v, err := s.GetVal(f.fieldname)
	if err != nil {
		return err
	}
	cmp, err := v.Compare(f.val)
	if err != nil {
		return err
	}
	if cmp > 0 {
		f.val = v
	}
	return nil
}

func (f *MaxFn) FieldName() string   { return "maxof" + f.fieldname }
func (f *MaxFn) Value() record.Value { return f.val }

// GroupByScan groups consecutive records of an already-sorted scan by
// groupfields and exposes one output record per group, carrying the
// group key plus every aggregate's final value. The caller is
// responsible for having sorted src by groupfields first (see Sort);
// GroupByScan itself only ever looks at runs of adjacent records.
type GroupByScan struct {
	s           Scan
	groupfields []string
	aggfns      []AggregationFn
	groupval    map[string]record.Value
	moregroups  bool
}

// NewGroupByScan wraps src (must already be sorted by groupfields).
func NewGroupByScan(src Scan, groupfields []string, aggfns []AggregationFn) (*GroupByScan, error) {
	g := &GroupByScan{s: src, groupfields: groupfields, aggfns: aggfns}
	if err := g.BeforeFirst(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *GroupByScan) BeforeFirst() error {
	if err := g.s.BeforeFirst(); err != nil {
		return err
	}
	has, err := g.s.Next()
	if err != nil {
		return err
	}
	g.moregroups = has
	return nil
}

func (g *GroupByScan) getGroupVal() (map[string]record.Value, error) {
	vals := make(map[string]record.Value, len(g.groupfields))
	for _, f := range g.groupfields {
		v, err := g.s.GetVal(f)
		if err != nil {
			return nil, err
		}
		vals[f] = v
	}
	return vals, nil
}

func sameGroup(a, b map[string]record.Value) bool {
	for f, av := range a {
		if !av.Equals(b[f]) {
			return false
		}
	}
	return true
}

func (g *GroupByScan) Next() (bool, error) {
	if !g.moregroups {
		return false, nil
	}
	for _, fn := range g.aggfns {
		if err := fn.ProcessFirst(g.s); err != nil {
			return false, err
		}
	}
	groupval, err := g.getGroupVal()
	if err != nil {
		return false, err
	}
	g.groupval = groupval

	for {
		has, err := g.s.Next()
		if err != nil {
			return false, err
		}
		g.moregroups = has
		if !has {
			break
		}
		newgroupval, err := g.getGroupVal()
		if err != nil {
			return false, err
		}
		if !sameGroup(groupval, newgroupval) {
			break
		}
		for _, fn := range g.aggfns {
			if err := fn.ProcessNext(g.s); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

func (g *GroupByScan) GetVal(field string) (record.Value, error) {
	if v, ok := g.groupval[field]; ok {
		return v, nil
	}
	for _, fn := range g.aggfns {
		if fn.FieldName() == field {
			return fn.Value(), nil
		}
	}
	return record.Value{}, ErrFieldNotProjected
}

func (g *GroupByScan) GetInt(field string) (int32, error) {
	v, err := g.GetVal(field)
	if err != nil {
		return 0, err
	}
	return v.Int(), nil
}

func (g *GroupByScan) GetString(field string) (string, error) {
	v, err := g.GetVal(field)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (g *GroupByScan) HasField(field string) bool {
	if _, ok := g.groupval[field]; ok {
		return true
	}
	for _, fn := range g.aggfns {
		if fn.FieldName() == field {
			return true
		}
	}
	return false
}

func (g *GroupByScan) Close() { g.s.Close() }
