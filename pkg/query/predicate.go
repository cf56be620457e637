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

// Expression is either a field reference or a constant; evaluating it
// against a scan's current record produces a Value.
type Expression interface {
	Evaluate(s Scan) (record.Value, error)
	IsFieldName() bool
	AsFieldName() string
	AsConstant() record.Value
}

type fieldExpr struct{ name string }

// FieldName builds an expression that reads fieldname from the
// current record of whatever scan it's evaluated against.
func FieldName(fieldname string) Expression { return fieldExpr{fieldname} }

func (f fieldExpr) Evaluate(s Scan) (record.Value, error) { return s.GetVal(f.name) }
func (f fieldExpr) IsFieldName() bool                     { return true }
func (f fieldExpr) AsFieldName() string                   { return f.name }
func (f fieldExpr) AsConstant() record.Value               { return record.Value{} }

type constExpr struct{ val record.Value }

// Constant builds an expression that always evaluates to val.
func Constant(val record.Value) Expression { return constExpr{val} }

func (c constExpr) Evaluate(s Scan) (record.Value, error) { return c.val, nil }
func (c constExpr) IsFieldName() bool                     { return false }
func (c constExpr) AsFieldName() string                   { return "" }
func (c constExpr) AsConstant() record.Value               { return c.val }

// Term is one equality comparison between two expressions.
type Term struct {
	Lhs, Rhs Expression
}

// IsSatisfied reports whether both sides of the term evaluate equal
// against s's current record.
func (t Term) IsSatisfied(s Scan) (bool, error) {
	lv, err := t.Lhs.Evaluate(s)
	if err != nil {
		return false, err
	}
	rv, err := t.Rhs.Evaluate(s)
	if err != nil {
		return false, err
	}
	return lv.Equals(rv), nil
}

// Predicate is a conjunction of terms: every clause a SQL WHERE can
// express in this engine joins equality comparisons with implicit
// AND.
type Predicate struct {
	terms []Term
}

// NewPredicate returns an empty predicate, which is satisfied by
// every record (the WHERE-less case).
func NewPredicate() *Predicate {
	return &Predicate{}
}

// NewPredicateFromTerm returns a predicate containing a single term.
func NewPredicateFromTerm(t Term) *Predicate {
	return &Predicate{terms: []Term{t}}
}

// ConjoinWith ANDs another predicate's terms into this one.
func (p *Predicate) ConjoinWith(other *Predicate) {
	p.terms = append(p.terms, other.terms...)
}

// IsSatisfied reports whether every term holds against s's current
// record.
func (p *Predicate) IsSatisfied(s Scan) (bool, error) {
	for _, t := range p.terms {
		ok, err := t.IsSatisfied(s)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// DistinctValuer is satisfied by anything that can estimate how many
// distinct values a field holds; pkg/planmeta's Plan types implement
// it. Kept as a narrow interface here, rather than importing
// pkg/planmeta, to avoid a cycle between the two packages.
type DistinctValuer interface {
	DistinctValues(fieldname string) int
}

// EquatesWithConstant reports whether this predicate has a term
// equating fieldname with a literal constant, and if so returns it.
func (p *Predicate) EquatesWithConstant(fieldname string) (record.Value, bool) {
	for _, t := range p.terms {
		if v, ok := t.equatesWithConstant(fieldname); ok {
			return v, true
		}
	}
	return record.Value{}, false
}

// EquatesWithField reports whether this predicate has a term
// equating fieldname with another field, and if so returns its name.
func (p *Predicate) EquatesWithField(fieldname string) (string, bool) {
	for _, t := range p.terms {
		if f, ok := t.equatesWithField(fieldname); ok {
			return f, true
		}
	}
	return "", false
}

// ReductionFactor estimates, for a plan whose output this predicate
// will filter, the divisor to apply to its record count: each
// conjoined term narrows the result independently, so the factors
// multiply.
func (p *Predicate) ReductionFactor(dv DistinctValuer) int {
	factor := 1
	for _, t := range p.terms {
		factor *= t.reductionFactor(dv)
	}
	return factor
}

func (t Term) equatesWithConstant(fieldname string) (record.Value, bool) {
	switch {
	case t.Lhs.IsFieldName() && t.Lhs.AsFieldName() == fieldname && !t.Rhs.IsFieldName():
		return t.Rhs.AsConstant(), true
	case t.Rhs.IsFieldName() && t.Rhs.AsFieldName() == fieldname && !t.Lhs.IsFieldName():
		return t.Lhs.AsConstant(), true
	default:
		return record.Value{}, false
	}
}

func (t Term) equatesWithField(fieldname string) (string, bool) {
	switch {
	case t.Lhs.IsFieldName() && t.Lhs.AsFieldName() == fieldname && t.Rhs.IsFieldName():
		return t.Rhs.AsFieldName(), true
	case t.Rhs.IsFieldName() && t.Rhs.AsFieldName() == fieldname && t.Lhs.IsFieldName():
		return t.Lhs.AsFieldName(), true
	default:
		return "", false
	}
}

func (t Term) reductionFactor(dv DistinctValuer) int {
	if t.Lhs.IsFieldName() && t.Rhs.IsFieldName() {
		lf, rf := t.Lhs.AsFieldName(), t.Rhs.AsFieldName()
		ld, rd := dv.DistinctValues(lf), dv.DistinctValues(rf)
		if ld > rd {
			return ld
		}
		return rd
	}
	if t.Lhs.IsFieldName() {
		return dv.DistinctValues(t.Lhs.AsFieldName())
	}
	if t.Rhs.IsFieldName() {
		return dv.DistinctValues(t.Rhs.AsFieldName())
	}
	return 1
}
