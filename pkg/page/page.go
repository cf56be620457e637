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

// Package page implements the fixed-size in-memory buffer that every
// block read from or written to disk passes through. A Page carries
// no knowledge of how its bytes are laid out; callers (pkg/file,
// pkg/walog, pkg/record) supply the offsets.
package page

import "encoding/binary"

// New returns a zeroed page sized to blockSize bytes.
func New(blockSize int) *Page {
	return &Page{buf: make([]byte, blockSize)}
}

// NewFromBytes wraps an existing byte slice as a page without copying.
// The caller must not mutate buf through any other reference afterward.
func NewFromBytes(buf []byte) *Page {
	return &Page{buf: buf}
}

// Page is a fixed-size mutable byte buffer with typed accessors.
// All integers are big-endian; strings are length-prefixed UTF-8.
type Page struct {
	buf []byte
}

// Contents returns the page's underlying byte slice. Callers that
// write directly into it (pkg/file on read) bypass the typed
// accessors; that's intentional, it's how a block gets loaded.
func (p *Page) Contents() []byte {
	return p.buf
}

// Len returns the size of the page in bytes.
func (p *Page) Len() int {
	return len(p.buf)
}

// GetInt reads a big-endian 32-bit integer at offset.
func (p *Page) GetInt(offset int) int32 {
	return int32(binary.BigEndian.Uint32(p.buf[offset : offset+4]))
}

// SetInt writes a big-endian 32-bit integer at offset.
func (p *Page) SetInt(offset int, val int32) {
	binary.BigEndian.PutUint32(p.buf[offset:offset+4], uint32(val))
}

// GetBytes reads a length-prefixed byte vector at offset.
func (p *Page) GetBytes(offset int) []byte {
	n := int(p.GetInt(offset))
	start := offset + 4
	b := make([]byte, n)
	copy(b, p.buf[start:start+n])
	return b
}

// SetBytes writes b as a length-prefixed byte vector at offset.
func (p *Page) SetBytes(offset int, b []byte) {
	p.SetInt(offset, int32(len(b)))
	copy(p.buf[offset+4:offset+4+len(b)], b)
}

// GetString reads a length-prefixed UTF-8 string at offset.
func (p *Page) GetString(offset int) string {
	return string(p.GetBytes(offset))
}

// SetString writes s as a length-prefixed UTF-8 string at offset.
func (p *Page) SetString(offset int, s string) {
	p.SetBytes(offset, []byte(s))
}

// MaxLength returns the worst-case number of bytes a string of
// strLen characters can occupy once encoded: a 4-byte length prefix
// plus 4 bytes per character, to cover multi-byte UTF-8 in the
// length-bound case.
func MaxLength(strLen int) int {
	return 4 + 4*strLen
}
