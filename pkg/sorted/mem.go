/*
Copyright 2011 Google Inc.

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

package sorted

import (
	"errors"
	"sort"
	"sync"

	"coredb.dev/pkg/jsonconfig"
)

// NewMemoryKeyValue returns a KeyValue implementation that's backed only
// by memory. It's mostly useful for tests and small planner experiments
// where a persistent statistics cache isn't worth the setup cost.
func NewMemoryKeyValue() KeyValue {
	return &memKeys{
		vals: make(map[string]string),
	}
}

// memKeys is a naive in-memory implementation of KeyValue for test &
// development purposes only. It keeps keys sorted in a slice, which makes
// Find O(log n) to seek and O(1) per step; inserts are O(n) due to the
// slice shift, which is fine for a stats cache with a few hundred entries
// per table.
type memKeys struct {
	mu   sync.Mutex
	keys []string // sorted
	vals map[string]string
}

func (mk *memKeys) search(key string) int {
	return sort.Search(len(mk.keys), func(i int) bool { return mk.keys[i] >= key })
}

func (mk *memKeys) Get(key string) (string, error) {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	v, ok := mk.vals[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (mk *memKeys) setLocked(key, value string) {
	if _, exists := mk.vals[key]; !exists {
		i := mk.search(key)
		mk.keys = append(mk.keys, "")
		copy(mk.keys[i+1:], mk.keys[i:])
		mk.keys[i] = key
	}
	mk.vals[key] = value
}

func (mk *memKeys) deleteLocked(key string) {
	if _, exists := mk.vals[key]; !exists {
		return
	}
	delete(mk.vals, key)
	i := mk.search(key)
	mk.keys = append(mk.keys[:i], mk.keys[i+1:]...)
}

func (mk *memKeys) Set(key, value string) error {
	if err := CheckSizes(key, value); err != nil {
		return err
	}
	mk.mu.Lock()
	defer mk.mu.Unlock()
	mk.setLocked(key, value)
	return nil
}

func (mk *memKeys) Delete(key string) error {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	mk.deleteLocked(key)
	return nil
}

func (mk *memKeys) Find(start, end string) Iterator {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	i := mk.search(start)
	keys := make([]string, 0, len(mk.keys)-i)
	vals := make([]string, 0, len(mk.keys)-i)
	for ; i < len(mk.keys); i++ {
		if end != "" && mk.keys[i] >= end {
			break
		}
		keys = append(keys, mk.keys[i])
		vals = append(vals, mk.vals[mk.keys[i]])
	}
	return &memIter{keys: keys, vals: vals, pos: -1}
}

func (mk *memKeys) BeginBatch() BatchMutation {
	return &batch{}
}

func (mk *memKeys) CommitBatch(bm BatchMutation) error {
	b, ok := bm.(*batch)
	if !ok {
		return errors.New("invalid batch type; not an instance returned by BeginBatch")
	}
	mk.mu.Lock()
	defer mk.mu.Unlock()
	for _, m := range b.Mutations() {
		if m.IsDelete() {
			mk.deleteLocked(m.Key())
			continue
		}
		if err := CheckSizes(m.Key(), m.Value()); err != nil {
			return err
		}
		mk.setLocked(m.Key(), m.Value())
	}
	return nil
}

func (mk *memKeys) Wipe() error {
	mk.mu.Lock()
	defer mk.mu.Unlock()
	mk.keys = nil
	mk.vals = make(map[string]string)
	return nil
}

func (mk *memKeys) Close() error { return nil }

// memIter iterates over a snapshot of keys/values taken at Find time.
type memIter struct {
	keys, vals []string
	pos        int
}

func (it *memIter) Next() bool {
	it.pos++
	return it.pos < len(it.keys)
}

func (it *memIter) Key() string   { return it.keys[it.pos] }
func (it *memIter) Value() string { return it.vals[it.pos] }

func (it *memIter) Close() error {
	it.keys, it.vals = nil, nil
	return nil
}

func init() {
	RegisterKeyValue("memory", func(cfg jsonconfig.Obj) (KeyValue, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return NewMemoryKeyValue(), nil
	})
}
