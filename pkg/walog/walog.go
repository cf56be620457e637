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

// Package walog implements the append-only write-ahead log that
// backs undo-only crash recovery. Records are packed into fixed-size
// blocks from the high end down; a 4-byte "boundary" at offset 0 of
// each block marks where the packed records begin, so the log can be
// replayed newest-record-first without an index.
package walog

import (
	"sync"

	"coredb.dev/pkg/file"
	"coredb.dev/pkg/page"
)

// Mgr is the write-ahead log manager for a single log file.
type Mgr struct {
	fm      *file.Mgr
	logfile string

	mu           sync.Mutex
	logpage      *page.Page
	currentblk   file.BlockId
	latestLSN    int
	lastSavedLSN int
}

// NewMgr opens (or creates) the log file logfile under fm, positioning
// at its last block so appends continue from where a prior process
// left off.
func NewMgr(fm *file.Mgr, logfile string) (*Mgr, error) {
	m := &Mgr{
		fm:      fm,
		logfile: logfile,
		logpage: page.New(fm.BlockSize()),
	}
	size, err := fm.Length(logfile)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		blk, err := m.appendNewBlock()
		if err != nil {
			return nil, err
		}
		m.currentblk = blk
	} else {
		m.currentblk = file.BlockId{Filename: logfile, Blknum: size - 1}
		if err := fm.Read(m.currentblk, m.logpage); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// appendNewBlock allocates a fresh block and initializes its boundary
// to point past the end, meaning "no records yet".
func (m *Mgr) appendNewBlock() (file.BlockId, error) {
	blk, err := m.fm.Append(m.logfile)
	if err != nil {
		return file.BlockId{}, err
	}
	m.logpage.SetInt(0, int32(m.fm.BlockSize()))
	if err := m.fm.Write(blk, m.logpage); err != nil {
		return file.BlockId{}, err
	}
	return blk, nil
}

// Append packs logrec into the current block, rolling to a new block
// first if it doesn't fit, and returns the LSN assigned to the
// record. The record is not guaranteed durable until Flush(lsn).
func (m *Mgr) Append(logrec []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	boundary := int(m.logpage.GetInt(0))
	recsize := len(logrec)
	bytesNeeded := recsize + 4
	if boundary-bytesNeeded < 4 {
		if err := m.flushLocked(); err != nil {
			return 0, err
		}
		blk, err := m.appendNewBlock()
		if err != nil {
			return 0, err
		}
		m.currentblk = blk
		boundary = int(m.logpage.GetInt(0))
	}
	recpos := boundary - bytesNeeded
	m.logpage.SetBytes(recpos, logrec)
	m.logpage.SetInt(0, int32(recpos))
	m.latestLSN++
	return m.latestLSN, nil
}

// Flush guarantees that every record up to and including lsn is
// durable on disk, flushing the in-memory page only if it hasn't
// already been saved.
func (m *Mgr) Flush(lsn int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lsn >= m.lastSavedLSN {
		return m.flushLocked()
	}
	return nil
}

// FlushAll forces the current page to disk regardless of lsn.
func (m *Mgr) FlushAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushLocked()
}

func (m *Mgr) flushLocked() error {
	if err := m.fm.Write(m.currentblk, m.logpage); err != nil {
		return err
	}
	m.lastSavedLSN = m.latestLSN
	return nil
}

// LatestLSN returns the LSN of the most recently appended record.
func (m *Mgr) LatestLSN() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestLSN
}

// Iterator returns an iterator over every durable record, newest
// first. Flush is called first so the iterator never misses a record
// that Append returned an LSN for.
func (m *Mgr) Iterator() (*Iterator, error) {
	m.mu.Lock()
	if err := m.flushLocked(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	blk := m.currentblk
	m.mu.Unlock()
	return newIterator(m.fm, blk)
}

// Iterator walks the log from newest record to oldest.
type Iterator struct {
	fm         *file.Mgr
	blk        file.BlockId
	p          *page.Page
	currentpos int
	boundary   int
}

func newIterator(fm *file.Mgr, blk file.BlockId) (*Iterator, error) {
	it := &Iterator{
		fm:  fm,
		blk: blk,
		p:   page.New(fm.BlockSize()),
	}
	if err := it.moveToBlock(blk); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *Iterator) moveToBlock(blk file.BlockId) error {
	if err := it.fm.Read(blk, it.p); err != nil {
		return err
	}
	it.boundary = int(it.p.GetInt(0))
	it.currentpos = it.boundary
	it.blk = blk
	return nil
}

// HasNext reports whether another record remains to be visited.
func (it *Iterator) HasNext() bool {
	return it.currentpos < it.fm.BlockSize() || it.blk.Blknum > 0
}

// Next returns the next record, in newest-to-oldest order.
func (it *Iterator) Next() ([]byte, error) {
	if it.currentpos == it.fm.BlockSize() {
		prev := file.BlockId{Filename: it.blk.Filename, Blknum: it.blk.Blknum - 1}
		if err := it.moveToBlock(prev); err != nil {
			return nil, err
		}
	}
	rec := it.p.GetBytes(it.currentpos)
	it.currentpos += 4 + len(rec)
	return rec, nil
}
