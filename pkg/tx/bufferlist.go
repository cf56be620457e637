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

package tx

import (
	"coredb.dev/pkg/buffer"
	"coredb.dev/pkg/file"
)

// bufferList tracks the blocks one transaction currently has pinned.
// A block pinned twice by the same transaction (e.g. a record scan
// that also consults the catalog) stays resident until every pin is
// matched by an unpin; each pin and unpin is passed through to the
// pool, so the pool counts every one of them.
type bufferList struct {
	pool    *buffer.Pool
	buffers map[file.BlockId]*buffer.Buffer
	pins    []file.BlockId
}

func newBufferList(pool *buffer.Pool) *bufferList {
	return &bufferList{
		pool:    pool,
		buffers: make(map[file.BlockId]*buffer.Buffer),
	}
}

func (bl *bufferList) getBuffer(blk file.BlockId) *buffer.Buffer {
	return bl.buffers[blk]
}

func (bl *bufferList) pin(blk file.BlockId) error {
	buf, err := bl.pool.Pin(blk)
	if err != nil {
		return err
	}
	bl.buffers[blk] = buf
	bl.pins = append(bl.pins, blk)
	return nil
}

func (bl *bufferList) unpin(blk file.BlockId) {
	buf, ok := bl.buffers[blk]
	if !ok {
		return
	}
	bl.pool.Unpin(buf)
	for i, b := range bl.pins {
		if b == blk {
			bl.pins = append(bl.pins[:i], bl.pins[i+1:]...)
			break
		}
	}
	if !bl.contains(blk) {
		delete(bl.buffers, blk)
	}
}

func (bl *bufferList) contains(blk file.BlockId) bool {
	for _, b := range bl.pins {
		if b == blk {
			return true
		}
	}
	return false
}

func (bl *bufferList) unpinAll() {
	for _, blk := range bl.pins {
		if buf, ok := bl.buffers[blk]; ok {
			bl.pool.Unpin(buf)
		}
	}
	bl.buffers = make(map[file.BlockId]*buffer.Buffer)
	bl.pins = nil
}
