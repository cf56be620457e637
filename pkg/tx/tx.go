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

// Package tx implements transactions: the unit of work that owns a
// private set of pinned buffers and a private lock cache, and that
// generates the undo log records needed to make its writes
// recoverable. Every read of a page acquires a shared lock first;
// every write acquires exclusive and logs the value being overwritten.
package tx

import (
	"coredb.dev/pkg/buffer"
	"coredb.dev/pkg/file"
	"coredb.dev/pkg/locktab"
	"coredb.dev/pkg/walog"
)

// endOfFile is the dummy block number used to take a lock on "the
// length of this file", serializing concurrent Size/Append calls
// against the same file without needing a lock type of its own.
const endOfFile = -1

// Transaction is the client's handle for one unit of work: a
// sequence of block reads and writes that either all survive a crash
// (after Commit) or none do (after Rollback, or after a crash that
// Recover undoes).
type Transaction struct {
	fm      *file.Mgr
	bm      *buffer.Pool
	cm      *locktab.ConcurrencyManager
	rm      *recoveryMgr
	buffers *bufferList
	txnum   int
}

// New starts a transaction numbered txnum against the given shared
// engine state. txnum must be unique among all transactions that are
// concurrently live; the engine is responsible for allocating it.
func New(fm *file.Mgr, lm *walog.Mgr, bm *buffer.Pool, lt *locktab.Table, txnum int) (*Transaction, error) {
	tx := &Transaction{
		fm:      fm,
		bm:      bm,
		cm:      locktab.NewConcurrencyManager(lt),
		buffers: newBufferList(bm),
		txnum:   txnum,
	}
	rm, err := newRecoveryMgr(tx, txnum, lm, bm)
	if err != nil {
		return nil, err
	}
	tx.rm = rm
	return tx, nil
}

// TxNumber returns this transaction's unique number.
func (tx *Transaction) TxNumber() int {
	return tx.txnum
}

// Pin brings blk into the buffer pool (if it isn't already) and
// marks it as in use by this transaction.
func (tx *Transaction) Pin(blk file.BlockId) error {
	return tx.buffers.pin(blk)
}

// Unpin releases this transaction's hold on blk.
func (tx *Transaction) Unpin(blk file.BlockId) {
	tx.buffers.unpin(blk)
}

// GetInt returns the integer at offset in blk, which must already be
// pinned. It acquires a shared lock on blk first.
func (tx *Transaction) GetInt(blk file.BlockId, offset int) (int32, error) {
	if err := tx.cm.SLock(blk); err != nil {
		return 0, err
	}
	buf := tx.buffers.getBuffer(blk)
	return buf.Contents().GetInt(offset), nil
}

// GetString returns the string at offset in blk, which must already
// be pinned. It acquires a shared lock on blk first.
func (tx *Transaction) GetString(blk file.BlockId, offset int) (string, error) {
	if err := tx.cm.SLock(blk); err != nil {
		return "", err
	}
	buf := tx.buffers.getBuffer(blk)
	return buf.Contents().GetString(offset), nil
}

// SetInt writes val at offset in blk, which must already be pinned.
// It acquires an exclusive lock on blk first. When okToLog is true
// (the normal case; false only during undo, to avoid logging an
// undo's own write) it logs the value being overwritten before
// changing it.
func (tx *Transaction) SetInt(blk file.BlockId, offset int, val int32, okToLog bool) error {
	if err := tx.cm.XLock(blk); err != nil {
		return err
	}
	buf := tx.buffers.getBuffer(blk)
	lsn := -1
	if okToLog {
		var err error
		lsn, err = tx.rm.setInt(buf, offset)
		if err != nil {
			return err
		}
	}
	buf.Contents().SetInt(offset, val)
	buf.SetModified(tx.txnum, lsn)
	return nil
}

// SetString writes val at offset in blk, which must already be
// pinned. See SetInt for the meaning of okToLog.
func (tx *Transaction) SetString(blk file.BlockId, offset int, val string, okToLog bool) error {
	if err := tx.cm.XLock(blk); err != nil {
		return err
	}
	buf := tx.buffers.getBuffer(blk)
	lsn := -1
	if okToLog {
		var err error
		lsn, err = tx.rm.setString(buf, offset)
		if err != nil {
			return err
		}
	}
	buf.Contents().SetString(offset, val)
	buf.SetModified(tx.txnum, lsn)
	return nil
}

// Size returns the number of blocks in filename, under a lock that
// serializes against concurrent Append calls on the same file.
func (tx *Transaction) Size(filename string) (int, error) {
	dummy := file.BlockId{Filename: filename, Blknum: endOfFile}
	if err := tx.cm.SLock(dummy); err != nil {
		return 0, err
	}
	return tx.fm.Length(filename)
}

// Append extends filename by one block and returns its BlockId, under
// the same lock Size uses.
func (tx *Transaction) Append(filename string) (file.BlockId, error) {
	dummy := file.BlockId{Filename: filename, Blknum: endOfFile}
	if err := tx.cm.XLock(dummy); err != nil {
		return file.BlockId{}, err
	}
	return tx.fm.Append(filename)
}

// BlockSize returns the fixed block size of the underlying files.
func (tx *Transaction) BlockSize() int {
	return tx.fm.BlockSize()
}

// AvailableBuffs returns the number of unpinned frames left in the
// shared buffer pool.
func (tx *Transaction) AvailableBuffs() int {
	return tx.bm.Available()
}

// Commit makes every change this transaction made durable and
// releases all of its locks and pins. The transaction must not be
// used again afterward.
func (tx *Transaction) Commit() error {
	if err := tx.rm.commit(); err != nil {
		return err
	}
	tx.cm.Release()
	tx.buffers.unpinAll()
	return nil
}

// Rollback undoes every change this transaction made and releases all
// of its locks and pins. The transaction must not be used again
// afterward.
func (tx *Transaction) Rollback() error {
	if err := tx.rm.rollback(); err != nil {
		return err
	}
	tx.cm.Release()
	tx.buffers.unpinAll()
	return nil
}

// Recover undoes every change made by transactions that were still
// active when the process last stopped. It is meant to be called
// once, by a dedicated transaction, immediately after the engine
// opens an existing database directory.
func (tx *Transaction) Recover() error {
	if err := tx.bm.FlushAll(tx.txnum); err != nil {
		return err
	}
	return tx.rm.recover()
}
