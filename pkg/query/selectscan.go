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

// SelectScan filters an underlying scan down to the records that
// satisfy a predicate, without copying any data: it just skips
// forward past rejected records.
type SelectScan struct {
	s    UpdateScan
	pred *Predicate
}

// NewSelectScan wraps s, exposing only the records that satisfy pred.
func NewSelectScan(s UpdateScan, pred *Predicate) *SelectScan {
	return &SelectScan{s: s, pred: pred}
}

func (sc *SelectScan) BeforeFirst() error { return sc.s.BeforeFirst() }

func (sc *SelectScan) Next() (bool, error) {
	for {
		has, err := sc.s.Next()
		if err != nil || !has {
			return has, err
		}
		ok, err := sc.pred.IsSatisfied(sc.s)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
}

func (sc *SelectScan) GetInt(fieldname string) (int32, error)    { return sc.s.GetInt(fieldname) }
func (sc *SelectScan) GetString(fieldname string) (string, error) { return sc.s.GetString(fieldname) }
func (sc *SelectScan) GetVal(fieldname string) (record.Value, error) {
	return sc.s.GetVal(fieldname)
}
func (sc *SelectScan) HasField(fieldname string) bool { return sc.s.HasField(fieldname) }
func (sc *SelectScan) Close()                         { sc.s.Close() }

func (sc *SelectScan) SetInt(fieldname string, val int32) error { return sc.s.SetInt(fieldname, val) }
func (sc *SelectScan) SetString(fieldname string, val string) error {
	return sc.s.SetString(fieldname, val)
}
func (sc *SelectScan) SetVal(fieldname string, val record.Value) error {
	return sc.s.SetVal(fieldname, val)
}
func (sc *SelectScan) Insert() error           { return sc.s.Insert() }
func (sc *SelectScan) Delete() error           { return sc.s.Delete() }
func (sc *SelectScan) RecordId() record.ID     { return sc.s.RecordId() }
func (sc *SelectScan) MoveToRecordId(id record.ID) error {
	return sc.s.MoveToRecordId(id)
}
