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

// ProductScan is the cross product of two scans: for every record of
// s1, every record of s2. It's the only join operator this engine
// has; a WHERE clause over the product narrows it down afterward.
type ProductScan struct {
	s1, s2 Scan
	has1   bool // s1 is positioned on a record
}

// NewProductScan builds the cross product of s1 and s2.
func NewProductScan(s1, s2 Scan) (*ProductScan, error) {
	p := &ProductScan{s1: s1, s2: s2}
	if err := p.BeforeFirst(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *ProductScan) BeforeFirst() error {
	if err := p.s1.BeforeFirst(); err != nil {
		return err
	}
	has1, err := p.s1.Next()
	if err != nil {
		return err
	}
	p.has1 = has1
	return p.s2.BeforeFirst()
}

func (p *ProductScan) Next() (bool, error) {
	if !p.has1 {
		return false, nil
	}
	has2, err := p.s2.Next()
	if err != nil {
		return false, err
	}
	if has2 {
		return true, nil
	}
	if err := p.s2.BeforeFirst(); err != nil {
		return false, err
	}
	has1, err := p.s1.Next()
	if err != nil {
		return false, err
	}
	p.has1 = has1
	if !has1 {
		return false, nil
	}
	return p.s2.Next()
}

func (p *ProductScan) GetInt(field string) (int32, error) {
	if p.s1.HasField(field) {
		return p.s1.GetInt(field)
	}
	return p.s2.GetInt(field)
}

func (p *ProductScan) GetString(field string) (string, error) {
	if p.s1.HasField(field) {
		return p.s1.GetString(field)
	}
	return p.s2.GetString(field)
}

func (p *ProductScan) GetVal(field string) (record.Value, error) {
	if p.s1.HasField(field) {
		return p.s1.GetVal(field)
	}
	return p.s2.GetVal(field)
}

func (p *ProductScan) HasField(field string) bool {
	return p.s1.HasField(field) || p.s2.HasField(field)
}

func (p *ProductScan) Close() {
	p.s1.Close()
	p.s2.Close()
}
