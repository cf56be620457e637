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
	"coredb.dev/pkg/query"
	"coredb.dev/pkg/record"
)

// SelectStmt is the parsed form of
// "SELECT <fields> FROM <tables> [WHERE <predicate>]".
type SelectStmt struct {
	Fields []string
	Tables []string
	Pred   *query.Predicate
}

// InsertStmt is the parsed form of
// "INSERT INTO <table> (<fields>) VALUES (<constants>)".
type InsertStmt struct {
	Table  string
	Fields []string
	Vals   []record.Value
}
