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

package record

import "coredb.dev/pkg/page"

// Layout maps a Schema's fields to byte offsets within a fixed-size
// slot. Offset 0 is reserved for the slot's empty/used flag, so the
// first field always starts at offset 4.
type Layout struct {
	schema   *Schema
	offsets  map[string]int
	slotsize int
}

// NewLayout computes a fresh layout for schema, packing fields in
// declaration order after the 4-byte flag.
func NewLayout(schema *Schema) *Layout {
	offsets := make(map[string]int)
	pos := 4
	for _, f := range schema.Fields() {
		offsets[f] = pos
		pos += lengthInBytes(schema, f)
	}
	return &Layout{schema: schema, offsets: offsets, slotsize: pos}
}

// NewLayoutFromCatalog reconstructs a layout whose offsets and slot
// size were already computed once (at table-creation time) and
// persisted in the field/table catalogs, so later opens of the same
// table don't need to recompute anything.
func NewLayoutFromCatalog(schema *Schema, offsets map[string]int, slotsize int) *Layout {
	return &Layout{schema: schema, offsets: offsets, slotsize: slotsize}
}

func lengthInBytes(schema *Schema, field string) int {
	if schema.Type(field) == Integer {
		return 4
	}
	return page.MaxLength(schema.Length(field))
}

// Schema returns the schema this layout was built from.
func (l *Layout) Schema() *Schema {
	return l.schema
}

// Offset returns the byte offset of field within a slot.
func (l *Layout) Offset(field string) int {
	return l.offsets[field]
}

// SlotSize returns the total size in bytes of one slot, flag included.
func (l *Layout) SlotSize() int {
	return l.slotsize
}
