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

// Package query implements the scan operators that a plan compiles
// into: table scans are composed with select, project, product, sort
// and group-by to answer a query without any operator needing to
// know how the others are implemented.
package query

import "coredb.dev/pkg/record"

// Scan is a read-only cursor over a stream of records, satisfied by
// table scans and every operator built on top of them.
type Scan interface {
	BeforeFirst() error
	Next() (bool, error)
	GetInt(fieldname string) (int32, error)
	GetString(fieldname string) (string, error)
	GetVal(fieldname string) (record.Value, error)
	HasField(fieldname string) bool
	Close()
}

// UpdateScan is a Scan that also supports mutation and identifies its
// current record, satisfied by table scans and operators (like
// Select) that pass updates through to one.
type UpdateScan interface {
	Scan
	SetInt(fieldname string, val int32) error
	SetString(fieldname string, val string) error
	SetVal(fieldname string, val record.Value) error
	Insert() error
	Delete() error
	RecordId() record.ID
	MoveToRecordId(id record.ID) error
}
