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

package file

import (
	"os"
	"path/filepath"
	"testing"

	"coredb.dev/pkg/page"
)

func TestAppendWriteRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "testdb")
	mgr, err := NewMgr(dir, 400)
	if err != nil {
		t.Fatal(err)
	}
	defer mgr.Close()
	if !mgr.IsNew() {
		t.Fatal("expected fresh directory to report IsNew")
	}

	blk, err := mgr.Append("t.tbl")
	if err != nil {
		t.Fatal(err)
	}
	if blk.Blknum != 0 {
		t.Fatalf("first appended block = %d, want 0", blk.Blknum)
	}

	p := page.New(400)
	p.SetInt(80, 123)
	p.SetString(140, "hello buffer manager")
	if err := mgr.Write(blk, p); err != nil {
		t.Fatal(err)
	}

	p2 := page.New(400)
	if err := mgr.Read(blk, p2); err != nil {
		t.Fatal(err)
	}
	if got := p2.GetInt(80); got != 123 {
		t.Errorf("GetInt(80) = %d, want 123", got)
	}
	if got := p2.GetString(140); got != "hello buffer manager" {
		t.Errorf("GetString(140) = %q, want %q", got, "hello buffer manager")
	}
}

func TestReopenIsNotNew(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewMgr(dir, 400)
	if err != nil {
		t.Fatal(err)
	}
	mgr.Close()

	mgr2, err := NewMgr(dir, 400)
	if err != nil {
		t.Fatal(err)
	}
	defer mgr2.Close()
	if mgr2.IsNew() {
		t.Fatal("expected reopened directory to not report IsNew")
	}
}

func TestTempFilesSweptOnOpen(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "temp123"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	mgr, err := NewMgr(dir, 400)
	if err != nil {
		t.Fatal(err)
	}
	defer mgr.Close()
	if _, err := os.Stat(filepath.Join(dir, "temp123")); !os.IsNotExist(err) {
		t.Fatal("expected leftover temp file to be removed on open")
	}
}

func TestLength(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewMgr(dir, 400)
	if err != nil {
		t.Fatal(err)
	}
	defer mgr.Close()

	for i := 0; i < 3; i++ {
		if _, err := mgr.Append("x.tbl"); err != nil {
			t.Fatal(err)
		}
	}
	n, err := mgr.Length("x.tbl")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("Length = %d, want 3", n)
	}
}
