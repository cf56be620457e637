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

// Package record implements the slotted record layout that every
// heap file page uses: a Schema describes a table's fields, a Layout
// turns that schema into byte offsets within a fixed-size slot, and
// Page reads and writes individual slots through a Transaction.
package record

// Field type tags, also used verbatim as the field_type column of
// the field catalog (see pkg/catalog).
const (
	Integer = 0
	Varchar = 1
)

type fieldInfo struct {
	Type   int
	Length int // only meaningful for Varchar
}

// Schema describes the ordered set of fields in a table, independent
// of how those fields are packed into bytes.
type Schema struct {
	fields []string
	info   map[string]fieldInfo
}

// NewSchema returns an empty schema ready to have fields added.
func NewSchema() *Schema {
	return &Schema{info: make(map[string]fieldInfo)}
}

// AddField adds a field of the given type and length (length is
// ignored for Integer fields).
func (s *Schema) AddField(field string, typ, length int) {
	s.fields = append(s.fields, field)
	s.info[field] = fieldInfo{Type: typ, Length: length}
}

// AddIntField adds a 32-bit integer field.
func (s *Schema) AddIntField(field string) {
	s.AddField(field, Integer, 0)
}

// AddStringField adds a variable-length string field bounded at
// length characters.
func (s *Schema) AddStringField(field string, length int) {
	s.AddField(field, Varchar, length)
}

// Add copies the definition of field from sch into this schema.
func (s *Schema) Add(field string, sch *Schema) {
	s.AddField(field, sch.Type(field), sch.Length(field))
}

// AddAll copies every field from sch into this schema.
func (s *Schema) AddAll(sch *Schema) {
	for _, f := range sch.Fields() {
		s.Add(f, sch)
	}
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []string {
	return s.fields
}

// HasField reports whether field is part of this schema.
func (s *Schema) HasField(field string) bool {
	_, ok := s.info[field]
	return ok
}

// Type returns field's type tag (Integer or Varchar).
func (s *Schema) Type(field string) int {
	return s.info[field].Type
}

// Length returns field's declared character length. Meaningless for
// Integer fields.
func (s *Schema) Length(field string) int {
	return s.info[field].Length
}
