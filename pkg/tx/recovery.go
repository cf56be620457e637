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
	"coredb.dev/pkg/walog"
)

// recoveryMgr implements undo-only crash recovery for one
// transaction. It has no notion of redo: every committed change is
// guaranteed to already be on disk by the time commit's flush
// returns, so there's nothing left to replay forward.
type recoveryMgr struct {
	lm     *walog.Mgr
	bm     *buffer.Pool
	tx     *Transaction
	txnum  int
}

func newRecoveryMgr(tx *Transaction, txnum int, lm *walog.Mgr, bm *buffer.Pool) (*recoveryMgr, error) {
	if _, err := writeStartRecord(lm, txnum); err != nil {
		return nil, err
	}
	return &recoveryMgr{lm: lm, bm: bm, tx: tx, txnum: txnum}, nil
}

// commit flushes every buffer this transaction dirtied, then writes
// and durably flushes a COMMIT record. The buffer flush must happen
// first: once COMMIT is durable, recovery treats the transaction as
// finished and will never look at its SETxxx records again.
func (rm *recoveryMgr) commit() error {
	if err := rm.bm.FlushAll(rm.txnum); err != nil {
		return err
	}
	lsn, err := writeCommitRecord(rm.lm, rm.txnum)
	if err != nil {
		return err
	}
	return rm.lm.Flush(lsn)
}

// rollback undoes every change this transaction made, then records
// that it never committed.
func (rm *recoveryMgr) rollback() error {
	if err := rm.doRollback(); err != nil {
		return err
	}
	if err := rm.bm.FlushAll(rm.txnum); err != nil {
		return err
	}
	lsn, err := writeRollbackRecord(rm.lm, rm.txnum)
	if err != nil {
		return err
	}
	return rm.lm.Flush(lsn)
}

// recover undoes every change made by every transaction that was
// still active when the process last stopped, then checkpoints so a
// future recovery doesn't have to scan past this point.
func (rm *recoveryMgr) recover() error {
	if err := rm.doRecover(); err != nil {
		return err
	}
	if err := rm.bm.FlushAll(rm.txnum); err != nil {
		return err
	}
	lsn, err := writeCheckpointRecord(rm.lm)
	if err != nil {
		return err
	}
	return rm.lm.Flush(lsn)
}

// setInt logs the pre-image of a write-in-progress and returns the
// LSN of that log record, which the caller tags onto the dirtied
// buffer so Buffer.flush knows how far the log must be durable
// before the page itself may be written back.
func (rm *recoveryMgr) setInt(buf *buffer.Buffer, offset int) (int, error) {
	oldval := buf.Contents().GetInt(offset)
	return writeSetIntRecord(rm.lm, rm.txnum, buf.Block(), offset, oldval)
}

func (rm *recoveryMgr) setString(buf *buffer.Buffer, offset int) (int, error) {
	oldval := buf.Contents().GetString(offset)
	return writeSetStringRecord(rm.lm, rm.txnum, buf.Block(), offset, oldval)
}

func (rm *recoveryMgr) doRollback() error {
	it, err := rm.lm.Iterator()
	if err != nil {
		return err
	}
	for it.HasNext() {
		bytes, err := it.Next()
		if err != nil {
			return err
		}
		rec := createLogRecord(bytes)
		if rec.txNumber() != rm.txnum {
			continue
		}
		if rec.op() == opStart {
			return nil
		}
		if err := rec.undo(rm.tx); err != nil {
			return err
		}
	}
	return nil
}

func (rm *recoveryMgr) doRecover() error {
	finished := make(map[int]bool)
	it, err := rm.lm.Iterator()
	if err != nil {
		return err
	}
	for it.HasNext() {
		bytes, err := it.Next()
		if err != nil {
			return err
		}
		rec := createLogRecord(bytes)
		if rec.op() == opCheckpoint {
			break
		}
		if rec.op() == opCommit || rec.op() == opRollback {
			finished[rec.txNumber()] = true
			continue
		}
		if !finished[rec.txNumber()] {
			if err := rec.undo(rm.tx); err != nil {
				return err
			}
		}
	}
	return nil
}
