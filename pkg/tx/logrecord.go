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
	"fmt"

	"coredb.dev/pkg/file"
	"coredb.dev/pkg/page"
	"coredb.dev/pkg/walog"
)

// Log record kinds. These values are part of the on-disk log format;
// changing them breaks recovery of an existing log file.
const (
	opCheckpoint = 0
	opStart      = 1
	opCommit     = 2
	opRollback   = 3
	opSetInt     = 4
	opSetString  = 5
)

// logRecord is one parsed entry from the write-ahead log. Only
// setInt/setString carry enough information to undo themselves;
// every other kind exists to delimit a transaction's boundaries.
type logRecord interface {
	op() int
	txNumber() int
	undo(tx *Transaction) error
}

func createLogRecord(rec []byte) logRecord {
	p := page.NewFromBytes(rec)
	switch int(p.GetInt(0)) {
	case opCheckpoint:
		return checkpointRecord{}
	case opStart:
		return startRecord{txnum: int(p.GetInt(4))}
	case opCommit:
		return commitRecord{txnum: int(p.GetInt(4))}
	case opRollback:
		return rollbackRecord{txnum: int(p.GetInt(4))}
	case opSetInt:
		return parseSetIntRecord(p)
	case opSetString:
		return parseSetStringRecord(p)
	default:
		panic(fmt.Sprintf("coredb: unknown log record kind %d", p.GetInt(0)))
	}
}

type checkpointRecord struct{}

func (checkpointRecord) op() int                     { return opCheckpoint }
func (checkpointRecord) txNumber() int                { return -1 }
func (checkpointRecord) undo(tx *Transaction) error   { return nil }

func writeCheckpointRecord(lm *walog.Mgr) (int, error) {
	rec := make([]byte, 4)
	page.NewFromBytes(rec).SetInt(0, opCheckpoint)
	return lm.Append(rec)
}

type startRecord struct{ txnum int }

func (r startRecord) op() int                   { return opStart }
func (r startRecord) txNumber() int             { return r.txnum }
func (r startRecord) undo(tx *Transaction) error { return nil }

func writeStartRecord(lm *walog.Mgr, txnum int) (int, error) {
	rec := make([]byte, 8)
	p := page.NewFromBytes(rec)
	p.SetInt(0, opStart)
	p.SetInt(4, int32(txnum))
	return lm.Append(rec)
}

type commitRecord struct{ txnum int }

func (r commitRecord) op() int                   { return opCommit }
func (r commitRecord) txNumber() int             { return r.txnum }
func (r commitRecord) undo(tx *Transaction) error { return nil }

func writeCommitRecord(lm *walog.Mgr, txnum int) (int, error) {
	rec := make([]byte, 8)
	p := page.NewFromBytes(rec)
	p.SetInt(0, opCommit)
	p.SetInt(4, int32(txnum))
	return lm.Append(rec)
}

type rollbackRecord struct{ txnum int }

func (r rollbackRecord) op() int                   { return opRollback }
func (r rollbackRecord) txNumber() int             { return r.txnum }
func (r rollbackRecord) undo(tx *Transaction) error { return nil }

func writeRollbackRecord(lm *walog.Mgr, txnum int) (int, error) {
	rec := make([]byte, 8)
	p := page.NewFromBytes(rec)
	p.SetInt(0, opRollback)
	p.SetInt(4, int32(txnum))
	return lm.Append(rec)
}

// setIntRecord undoes a SetInt by writing the pre-image value back,
// without generating a new log record for that write.
type setIntRecord struct {
	txnum  int
	blk    file.BlockId
	offset int
	val    int32
}

func (r setIntRecord) op() int       { return opSetInt }
func (r setIntRecord) txNumber() int { return r.txnum }

func (r setIntRecord) undo(tx *Transaction) error {
	if err := tx.Pin(r.blk); err != nil {
		return err
	}
	defer tx.Unpin(r.blk)
	return tx.SetInt(r.blk, r.offset, r.val, false)
}

func parseSetIntRecord(p *page.Page) setIntRecord {
	txnum := int(p.GetInt(4))
	filename := p.GetString(8)
	bpos := 8 + page.MaxLength(len(filename))
	blknum := int(p.GetInt(bpos))
	offset := int(p.GetInt(bpos + 4))
	val := p.GetInt(bpos + 8)
	return setIntRecord{
		txnum:  txnum,
		blk:    file.BlockId{Filename: filename, Blknum: blknum},
		offset: offset,
		val:    val,
	}
}

func writeSetIntRecord(lm *walog.Mgr, txnum int, blk file.BlockId, offset int, val int32) (int, error) {
	fpos := 8
	bpos := fpos + page.MaxLength(len(blk.Filename))
	opos := bpos + 4
	vpos := opos + 4
	rec := make([]byte, vpos+4)
	p := page.NewFromBytes(rec)
	p.SetInt(0, opSetInt)
	p.SetInt(4, int32(txnum))
	p.SetString(fpos, blk.Filename)
	p.SetInt(bpos, int32(blk.Blknum))
	p.SetInt(opos, int32(offset))
	p.SetInt(vpos, val)
	return lm.Append(rec)
}

// setStringRecord undoes a SetString the same way setIntRecord does
// for integers.
type setStringRecord struct {
	txnum  int
	blk    file.BlockId
	offset int
	val    string
}

func (r setStringRecord) op() int       { return opSetString }
func (r setStringRecord) txNumber() int { return r.txnum }

func (r setStringRecord) undo(tx *Transaction) error {
	if err := tx.Pin(r.blk); err != nil {
		return err
	}
	defer tx.Unpin(r.blk)
	return tx.SetString(r.blk, r.offset, r.val, false)
}

func parseSetStringRecord(p *page.Page) setStringRecord {
	txnum := int(p.GetInt(4))
	filename := p.GetString(8)
	bpos := 8 + page.MaxLength(len(filename))
	blknum := int(p.GetInt(bpos))
	offset := int(p.GetInt(bpos + 4))
	val := p.GetString(bpos + 8)
	return setStringRecord{
		txnum:  txnum,
		blk:    file.BlockId{Filename: filename, Blknum: blknum},
		offset: offset,
		val:    val,
	}
}

func writeSetStringRecord(lm *walog.Mgr, txnum int, blk file.BlockId, offset int, val string) (int, error) {
	fpos := 8
	bpos := fpos + page.MaxLength(len(blk.Filename))
	opos := bpos + 4
	vpos := opos + 4
	rec := make([]byte, vpos+page.MaxLength(len(val)))
	p := page.NewFromBytes(rec)
	p.SetInt(0, opSetString)
	p.SetInt(4, int32(txnum))
	p.SetString(fpos, blk.Filename)
	p.SetInt(bpos, int32(blk.Blknum))
	p.SetInt(opos, int32(offset))
	p.SetString(vpos, val)
	return lm.Append(rec)
}
