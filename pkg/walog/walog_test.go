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

package walog

import (
	"bytes"
	"testing"

	"coredb.dev/pkg/file"
)

func TestAppendAndIterateNewestFirst(t *testing.T) {
	fm, err := file.NewMgr(t.TempDir(), 400)
	if err != nil {
		t.Fatal(err)
	}
	defer fm.Close()
	lm, err := NewMgr(fm, "log.txt")
	if err != nil {
		t.Fatal(err)
	}

	records := [][]byte{[]byte("rec1"), []byte("rec2"), []byte("rec3")}
	for _, r := range records {
		if _, err := lm.Append(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := lm.FlushAll(); err != nil {
		t.Fatal(err)
	}

	it, err := lm.Iterator()
	if err != nil {
		t.Fatal(err)
	}
	var got [][]byte
	for it.HasNext() {
		rec, err := it.Next()
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, rec)
	}
	want := [][]byte{[]byte("rec3"), []byte("rec2"), []byte("rec1")}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("record %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIteratorSpansBlocks(t *testing.T) {
	fm, err := file.NewMgr(t.TempDir(), 64)
	if err != nil {
		t.Fatal(err)
	}
	defer fm.Close()
	lm, err := NewMgr(fm, "log.txt")
	if err != nil {
		t.Fatal(err)
	}

	const n = 20
	for i := 0; i < n; i++ {
		if _, err := lm.Append([]byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	it, err := lm.Iterator()
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for it.HasNext() {
		if _, err := it.Next(); err != nil {
			t.Fatal(err)
		}
		count++
	}
	if count != n {
		t.Fatalf("iterated %d records, want %d", count, n)
	}
}

func TestReopenContinuesFromLastBlock(t *testing.T) {
	dir := t.TempDir()
	fm, err := file.NewMgr(dir, 400)
	if err != nil {
		t.Fatal(err)
	}
	lm, err := NewMgr(fm, "log.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := lm.Append([]byte("persisted")); err != nil {
		t.Fatal(err)
	}
	if err := lm.FlushAll(); err != nil {
		t.Fatal(err)
	}
	fm.Close()

	fm2, err := file.NewMgr(dir, 400)
	if err != nil {
		t.Fatal(err)
	}
	defer fm2.Close()
	lm2, err := NewMgr(fm2, "log.txt")
	if err != nil {
		t.Fatal(err)
	}
	it, err := lm2.Iterator()
	if err != nil {
		t.Fatal(err)
	}
	if !it.HasNext() {
		t.Fatal("expected reopened log to still contain the persisted record")
	}
	rec, err := it.Next()
	if err != nil {
		t.Fatal(err)
	}
	if string(rec) != "persisted" {
		t.Fatalf("record = %q, want %q", rec, "persisted")
	}
}
