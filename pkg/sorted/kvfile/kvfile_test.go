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

package kvfile

import (
	"os"
	"path/filepath"
	"testing"

	"coredb.dev/pkg/sorted/kvtest"
)

func TestKVFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "coredb-kvfile_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)
	kv, err := NewStorage(filepath.Join(tmpDir, "testdb.kv"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	defer kv.Close()
	kvtest.TestSorted(t, kv)
}
