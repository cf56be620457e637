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

import (
	"errors"

	"coredb.dev/pkg/record"
)

// ErrFieldNotProjected is returned when a caller asks a ProjectScan
// for a field that isn't in its projection list.
var ErrFieldNotProjected = errors.New("coredb: field not in projection")

// ProjectScan restricts an underlying scan to a chosen subset of its
// fields; it's read-only even when the underlying scan supports
// updates, since a projected record rarely carries a full row.
type ProjectScan struct {
	s         Scan
	fieldlist map[string]bool
}

// NewProjectScan wraps s, exposing only the fields named in fieldlist.
func NewProjectScan(s Scan, fieldlist []string) *ProjectScan {
	set := make(map[string]bool, len(fieldlist))
	for _, f := range fieldlist {
		set[f] = true
	}
	return &ProjectScan{s: s, fieldlist: set}
}

func (p *ProjectScan) BeforeFirst() error     { return p.s.BeforeFirst() }
func (p *ProjectScan) Next() (bool, error)    { return p.s.Next() }
func (p *ProjectScan) Close()                 { p.s.Close() }
func (p *ProjectScan) HasField(field string) bool { return p.fieldlist[field] }

func (p *ProjectScan) GetInt(field string) (int32, error) {
	if !p.fieldlist[field] {
		return 0, ErrFieldNotProjected
	}
	return p.s.GetInt(field)
}

func (p *ProjectScan) GetString(field string) (string, error) {
	if !p.fieldlist[field] {
		return "", ErrFieldNotProjected
	}
	return p.s.GetString(field)
}

func (p *ProjectScan) GetVal(field string) (record.Value, error) {
	if !p.fieldlist[field] {
		return record.Value{}, ErrFieldNotProjected
	}
	return p.s.GetVal(field)
}
