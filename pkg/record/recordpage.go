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

import (
	"coredb.dev/pkg/file"
	"coredb.dev/pkg/tx"
)

// Slot flags, stored in the first 4 bytes of every slot.
const (
	flagEmpty = 0
	flagUsed  = 1
)

// Page manages one block's worth of slotted records. Every accessor
// goes through a Transaction, so reads and writes against the slots
// are subject to the same locking and logging as any other page
// access.
type Page struct {
	tx     *tx.Transaction
	blk    file.BlockId
	layout *Layout
}

// NewPage pins blk (through tx) and returns a record page over it.
// The caller must Close it when done to release the pin.
func NewPage(transaction *tx.Transaction, blk file.BlockId, layout *Layout) (*Page, error) {
	if err := transaction.Pin(blk); err != nil {
		return nil, err
	}
	return &Page{tx: transaction, blk: blk, layout: layout}, nil
}

// Close unpins the underlying block.
func (rp *Page) Close() {
	rp.tx.Unpin(rp.blk)
}

// Block returns the block this page manages.
func (rp *Page) Block() file.BlockId {
	return rp.blk
}

func (rp *Page) slotOffset(slot int) int {
	return slot * rp.layout.SlotSize()
}

// GetInt returns the value of an integer field in slot.
func (rp *Page) GetInt(slot int, fieldname string) (int32, error) {
	off := rp.slotOffset(slot) + rp.layout.Offset(fieldname)
	return rp.tx.GetInt(rp.blk, off)
}

// SetInt sets the value of an integer field in slot.
func (rp *Page) SetInt(slot int, fieldname string, val int32) error {
	off := rp.slotOffset(slot) + rp.layout.Offset(fieldname)
	return rp.tx.SetInt(rp.blk, off, val, true)
}

// GetString returns the value of a string field in slot.
func (rp *Page) GetString(slot int, fieldname string) (string, error) {
	off := rp.slotOffset(slot) + rp.layout.Offset(fieldname)
	return rp.tx.GetString(rp.blk, off)
}

// SetString sets the value of a string field in slot.
func (rp *Page) SetString(slot int, fieldname string, val string) error {
	off := rp.slotOffset(slot) + rp.layout.Offset(fieldname)
	return rp.tx.SetString(rp.blk, off, val, true)
}

// Delete marks slot empty, without touching the field bytes.
func (rp *Page) Delete(slot int) error {
	return rp.setFlag(slot, flagEmpty)
}

// Format zeroes every slot in the block and marks each one empty.
// Called exactly once, when a block is first appended to a heap file.
func (rp *Page) Format() error {
	slot := 0
	for rp.isValidSlot(slot) {
		if err := rp.tx.SetInt(rp.blk, rp.slotOffset(slot), flagEmpty, false); err != nil {
			return err
		}
		sch := rp.layout.Schema()
		for _, field := range sch.Fields() {
			fldpos := rp.slotOffset(slot) + rp.layout.Offset(field)
			if sch.Type(field) == Integer {
				if err := rp.tx.SetInt(rp.blk, fldpos, 0, false); err != nil {
					return err
				}
			} else {
				if err := rp.tx.SetString(rp.blk, fldpos, "", false); err != nil {
					return err
				}
			}
		}
		slot++
	}
	return nil
}

// NextAfter returns the slot number of the next used slot strictly
// after slot, or -1 if there isn't one in this block.
func (rp *Page) NextAfter(slot int) (int, error) {
	return rp.searchAfter(slot, flagUsed)
}

// InsertAfter finds the next empty slot strictly after slot, marks it
// used, and returns its number, or -1 if the block is full.
func (rp *Page) InsertAfter(slot int) (int, error) {
	newslot, err := rp.searchAfter(slot, flagEmpty)
	if err != nil || newslot < 0 {
		return newslot, err
	}
	if err := rp.setFlag(newslot, flagUsed); err != nil {
		return -1, err
	}
	return newslot, nil
}

func (rp *Page) searchAfter(slot int, flag int32) (int, error) {
	slot++
	for rp.isValidSlot(slot) {
		f, err := rp.tx.GetInt(rp.blk, rp.slotOffset(slot))
		if err != nil {
			return -1, err
		}
		if f == flag {
			return slot, nil
		}
		slot++
	}
	return -1, nil
}

func (rp *Page) setFlag(slot int, flag int32) error {
	return rp.tx.SetInt(rp.blk, rp.slotOffset(slot), flag, true)
}

func (rp *Page) isValidSlot(slot int) bool {
	return rp.slotOffset(slot+1) <= rp.tx.BlockSize()
}
