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

	"coredb.dev/pkg/query"
	"coredb.dev/pkg/record"
)

// Parser is a recursive-descent parser over the grammar spec.md §6
// names: SELECT/FROM/WHERE for queries, INSERT INTO/VALUES for
// inserts. Predicates are conjunctions of equality terms; each side
// of "=" is either a field reference or a constant.
type Parser struct {
	l *lexer
}

// NewParser returns a parser positioned at the start of sql.
func NewParser(sql string) *Parser {
	return &Parser{l: newLexer(sql)}
}

func (p *Parser) tok() token { return p.l.tok }

func (p *Parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s (near %q)", ErrBadSyntax, fmt.Sprintf(format, args...), p.tok().text)
}

func (p *Parser) eatKeyword(kw string) error {
	if p.tok().kind != tokKeyword || p.tok().text != kw {
		return p.errorf("expected %q", kw)
	}
	p.l.advance()
	return nil
}

func (p *Parser) eatDelim(d string) error {
	if p.tok().kind != tokDelim || p.tok().text != d {
		return p.errorf("expected %q", d)
	}
	p.l.advance()
	return nil
}

func (p *Parser) eatID() (string, error) {
	if p.tok().kind != tokID {
		return "", p.errorf("expected identifier")
	}
	s := p.tok().text
	p.l.advance()
	return s, nil
}

// Parse dispatches on the leading keyword and returns either a
// *SelectStmt or an *InsertStmt.
func (p *Parser) Parse() (any, error) {
	switch {
	case p.tok().kind == tokKeyword && p.tok().text == "select":
		return p.parseSelect()
	case p.tok().kind == tokKeyword && p.tok().text == "insert":
		return p.parseInsert()
	default:
		return nil, p.errorf("expected SELECT or INSERT")
	}
}

func (p *Parser) parseFieldList() ([]string, error) {
	var fields []string
	for {
		f, err := p.eatID()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
		if p.tok().kind == tokDelim && p.tok().text == "," {
			p.l.advance()
			continue
		}
		break
	}
	return fields, nil
}

func (p *Parser) parseConstant() (record.Value, error) {
	switch p.tok().kind {
	case tokIntLit:
		v := record.IntValue(p.tok().ival)
		p.l.advance()
		return v, nil
	case tokStringLit:
		v := record.StringValue(p.tok().text)
		p.l.advance()
		return v, nil
	default:
		return record.Value{}, p.errorf("expected constant")
	}
}

func (p *Parser) parseExpression() (query.Expression, error) {
	if p.tok().kind == tokID {
		f, err := p.eatID()
		if err != nil {
			return nil, err
		}
		return query.FieldName(f), nil
	}
	c, err := p.parseConstant()
	if err != nil {
		return nil, err
	}
	return query.Constant(c), nil
}

func (p *Parser) parseTerm() (query.Term, error) {
	lhs, err := p.parseExpression()
	if err != nil {
		return query.Term{}, err
	}
	if err := p.eatDelim("="); err != nil {
		return query.Term{}, err
	}
	rhs, err := p.parseExpression()
	if err != nil {
		return query.Term{}, err
	}
	return query.Term{Lhs: lhs, Rhs: rhs}, nil
}

func (p *Parser) parsePredicate() (*query.Predicate, error) {
	pred := query.NewPredicate()
	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	pred.ConjoinWith(query.NewPredicateFromTerm(term))
	for p.tok().kind == tokKeyword && p.tok().text == "and" {
		p.l.advance()
		term, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		pred.ConjoinWith(query.NewPredicateFromTerm(term))
	}
	return pred, nil
}

func (p *Parser) parseTableList() ([]string, error) {
	var tables []string
	for {
		t, err := p.eatID()
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
		if p.tok().kind == tokDelim && p.tok().text == "," {
			p.l.advance()
			continue
		}
		break
	}
	return tables, nil
}

func (p *Parser) parseSelect() (*SelectStmt, error) {
	if err := p.eatKeyword("select"); err != nil {
		return nil, err
	}
	fields, err := p.parseFieldList()
	if err != nil {
		return nil, err
	}
	if err := p.eatKeyword("from"); err != nil {
		return nil, err
	}
	tables, err := p.parseTableList()
	if err != nil {
		return nil, err
	}
	stmt := &SelectStmt{Fields: fields, Tables: tables, Pred: query.NewPredicate()}
	if p.tok().kind == tokKeyword && p.tok().text == "where" {
		p.l.advance()
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		stmt.Pred = pred
	}
	if p.tok().kind != tokEOF {
		return nil, p.errorf("unexpected trailing input")
	}
	return stmt, nil
}

func (p *Parser) parseConstantList() ([]record.Value, error) {
	var vals []record.Value
	for {
		v, err := p.parseConstant()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		if p.tok().kind == tokDelim && p.tok().text == "," {
			p.l.advance()
			continue
		}
		break
	}
	return vals, nil
}

func (p *Parser) parseInsert() (*InsertStmt, error) {
	if err := p.eatKeyword("insert"); err != nil {
		return nil, err
	}
	if err := p.eatKeyword("into"); err != nil {
		return nil, err
	}
	table, err := p.eatID()
	if err != nil {
		return nil, err
	}
	if err := p.eatDelim("("); err != nil {
		return nil, err
	}
	fields, err := p.parseFieldList()
	if err != nil {
		return nil, err
	}
	if err := p.eatDelim(")"); err != nil {
		return nil, err
	}
	if err := p.eatKeyword("values"); err != nil {
		return nil, err
	}
	if err := p.eatDelim("("); err != nil {
		return nil, err
	}
	vals, err := p.parseConstantList()
	if err != nil {
		return nil, err
	}
	if err := p.eatDelim(")"); err != nil {
		return nil, err
	}
	if len(vals) != len(fields) {
		return nil, p.errorf("field list has %d entries but value list has %d", len(fields), len(vals))
	}
	if p.tok().kind != tokEOF {
		return nil, p.errorf("unexpected trailing input")
	}
	return &InsertStmt{Table: table, Fields: fields, Vals: vals}, nil
}
