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

// Package buffer implements the pinning buffer pool: a fixed set of
// in-memory frames, each holding one disk block, shared by every
// transaction in the process.
package buffer

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"coredb.dev/pkg/file"
	"coredb.dev/pkg/page"
	"coredb.dev/pkg/walog"
)

// ErrBuffersPinned is returned by Pool.Pin when no frame became
// available within the configured wait time. Callers should roll
// their transaction back and retry.
var ErrBuffersPinned = errors.New("coredb: buffer pool exhausted, all buffers pinned")

// Buffer is one frame of the pool: a page plus the bookkeeping needed
// to know whether it is dirty, who dirtied it, and how many
// transactions currently have it pinned.
type Buffer struct {
	fm *file.Mgr
	lm *walog.Mgr

	contents *page.Page
	blk      file.BlockId
	assigned bool
	pins     int
	txnum    int
	lsn      int
}

func newBuffer(fm *file.Mgr, lm *walog.Mgr) *Buffer {
	return &Buffer{
		fm:       fm,
		lm:       lm,
		contents: page.New(fm.BlockSize()),
		txnum:    -1,
		lsn:      -1,
	}
}

// Contents returns the page backing this frame.
func (b *Buffer) Contents() *page.Page {
	return b.contents
}

// Block returns the block currently resident in this frame.
func (b *Buffer) Block() file.BlockId {
	return b.blk
}

// SetModified records that txnum modified this buffer, generating a
// log record with lsn. A negative lsn means the modification didn't
// need a log record (not used by coredb's undo-only scheme, kept for
// symmetry with the teacher's interface).
func (b *Buffer) SetModified(txnum, lsn int) {
	b.txnum = txnum
	if lsn >= 0 {
		b.lsn = lsn
	}
}

// IsPinned reports whether any transaction currently holds this frame.
func (b *Buffer) IsPinned() bool {
	return b.pins > 0
}

// ModifyingTx returns the tx number that last modified this buffer,
// or -1 if it is clean.
func (b *Buffer) ModifyingTx() int {
	return b.txnum
}

func (b *Buffer) pin() {
	b.pins++
}

func (b *Buffer) unpin() {
	b.pins--
}

// flush writes the buffer back to disk if it's dirty, forcing the
// log to durability first so the WAL record for the change is never
// outrun by the data page that depends on it.
func (b *Buffer) flush() error {
	if b.txnum < 0 {
		return nil
	}
	if err := b.lm.Flush(b.lsn); err != nil {
		return err
	}
	if err := b.fm.Write(b.blk, b.contents); err != nil {
		return err
	}
	b.txnum = -1
	return nil
}

// assignToBlock flushes whatever this frame currently holds, then
// loads blk into it.
func (b *Buffer) assignToBlock(blk file.BlockId) error {
	if err := b.flush(); err != nil {
		return err
	}
	b.blk = blk
	if err := b.fm.Read(blk, b.contents); err != nil {
		return err
	}
	b.assigned = true
	b.pins = 0
	return nil
}

// Pool is the shared, fixed-size set of buffer frames. Availability is
// gated by a weighted semaphore sized to the frame count: pinning a
// previously-unpinned frame acquires one unit, unpinning the last pin
// on a frame releases it, so a Pin that finds every frame busy blocks
// on the semaphore instead of spinning.
type Pool struct {
	mu        sync.Mutex
	sem       *semaphore.Weighted
	buffers   []*Buffer
	available int
	maxWait   time.Duration
}

// NewPool allocates numbuffs frames, each sized to fm's block size.
// maxWait bounds how long Pin will wait for a frame to free up before
// giving up with ErrBuffersPinned.
func NewPool(fm *file.Mgr, lm *walog.Mgr, numbuffs int, maxWait time.Duration) *Pool {
	p := &Pool{
		buffers:   make([]*Buffer, numbuffs),
		available: numbuffs,
		sem:       semaphore.NewWeighted(int64(numbuffs)),
		maxWait:   maxWait,
	}
	for i := range p.buffers {
		p.buffers[i] = newBuffer(fm, lm)
	}
	return p
}

// Available returns the number of unpinned frames.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// FlushAll writes back every buffer last modified by txnum.
func (p *Pool) FlushAll(txnum int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range p.buffers {
		if b.ModifyingTx() == txnum {
			if err := b.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Unpin releases one pin held on b. A frame that drops to zero pins
// becomes eligible for eviction and releases one unit back to the
// pool's semaphore, waking a goroutine blocked in Pin if one exists.
func (p *Pool) Unpin(b *Buffer) {
	p.mu.Lock()
	b.unpin()
	freed := !b.IsPinned()
	if freed {
		p.available++
	}
	p.mu.Unlock()
	if freed {
		p.sem.Release(1)
	}
}

// Pin returns a frame holding blk, pinning it there. If blk is
// already resident in some frame that frame is reused; otherwise the
// first unpinned frame is evicted (flushing it first if dirty) and
// reassigned. Pin blocks up to the pool's maxWait for a frame to free
// up, returning ErrBuffersPinned on timeout.
func (p *Pool) Pin(blk file.BlockId) (*Buffer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.maxWait)
	defer cancel()

	for {
		p.mu.Lock()
		if b := p.findExistingBuffer(blk); b != nil && b.IsPinned() {
			b.pin()
			p.mu.Unlock()
			return b, nil
		}
		p.mu.Unlock()

		if err := p.sem.Acquire(ctx, 1); err != nil {
			return nil, ErrBuffersPinned
		}

		p.mu.Lock()
		if b := p.findExistingBuffer(blk); b != nil && b.IsPinned() {
			// Someone else pinned it first while we waited; the
			// permit we just took wasn't needed for this reuse.
			b.pin()
			p.mu.Unlock()
			p.sem.Release(1)
			return b, nil
		}
		b := p.tryToPinWithPermit(blk)
		p.mu.Unlock()
		if b == nil {
			p.sem.Release(1)
			continue
		}
		return b, nil
	}
}

// tryToPinWithPermit assumes the caller already holds one semaphore
// unit reserved for a frame transitioning from unpinned to pinned. It
// must be called with p.mu held.
func (p *Pool) tryToPinWithPermit(blk file.BlockId) *Buffer {
	b := p.findExistingBuffer(blk)
	if b == nil {
		b = p.chooseUnpinnedBuffer()
		if b == nil {
			return nil
		}
		if err := b.assignToBlock(blk); err != nil {
			return nil
		}
	}
	p.available--
	b.pin()
	return b
}

func (p *Pool) findExistingBuffer(blk file.BlockId) *Buffer {
	for _, b := range p.buffers {
		if b.assigned && b.blk == blk {
			return b
		}
	}
	return nil
}

func (p *Pool) chooseUnpinnedBuffer() *Buffer {
	for _, b := range p.buffers {
		if !b.IsPinned() {
			return b
		}
	}
	return nil
}
