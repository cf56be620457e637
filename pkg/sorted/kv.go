/*
Copyright 2013 The Camlistore Authors

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

// Package sorted provides a KeyValue interface and constructor registry
// for small sorted key/value stores. coredb uses it to back the planner's
// statistics cache (pkg/statcache): table cardinalities and per-field
// distinct-value counts, never the heap data itself, which always lives
// in coredb's own page format (pkg/page, pkg/file).
package sorted

import (
	"errors"
	"fmt"

	"coredb.dev/pkg/jsonconfig"
)

// ErrNotFound is returned by Get when a key has no entry.
var ErrNotFound = errors.New("sorted: key not found")

// ErrKeyTooLarge is returned when a key exceeds MaxKeySize.
var ErrKeyTooLarge = errors.New("sorted: key too large")

// ErrValueTooLarge is returned when a value exceeds MaxValueSize.
var ErrValueTooLarge = errors.New("sorted: value too large")

// Size limits shared by all backends; the SQL-backed ones size their
// columns from these constants.
const (
	MaxKeySize   = 1024
	MaxValueSize = 1024
)

// CheckSizes returns an error if key or value exceed the limits backends
// are expected to enforce.
func CheckSizes(key, value string) error {
	if len(key) > MaxKeySize {
		return ErrKeyTooLarge
	}
	if len(value) > MaxValueSize {
		return ErrValueTooLarge
	}
	return nil
}

// KeyValue is a sorted, enumerable key-value interface supporting
// batch mutations.
type KeyValue interface {
	// Get gets the value for the given key. It returns ErrNotFound if the DB
	// does not contain the key.
	Get(key string) (string, error)

	Set(key, value string) error
	Delete(key string) error

	BeginBatch() BatchMutation
	CommitBatch(b BatchMutation) error

	// Find returns an iterator over all key/value pairs with start <= key.
	// If end is non-empty, the iterator stops before the first key >= end.
	//
	// Any error encountered will be implicitly returned via the iterator. An
	// error-iterator will yield no key/value pairs and closing that iterator
	// will return that error.
	Find(start, end string) Iterator

	// Close is a polite way for the server to shut down the storage.
	// Implementations should never lose data after a Set, Delete,
	// or CommitBatch, though.
	Close() error
}

// Wiper is implemented by backends that can drop all of their contents
// and start fresh, e.g. when a stats cache is suspected stale.
type Wiper interface {
	Wipe() error
}

// Iterator iterates over an index KeyValue's key/value pairs in key order.
//
// An iterator must be closed after use, but it is not necessary to read an
// iterator until exhaustion.
type Iterator interface {
	// Next moves the iterator to the next key/value pair.
	// It returns false when the iterator is exhausted.
	Next() bool

	// Key returns the key of the current key/value pair.
	// Only valid after a call to Next returns true.
	Key() string

	// Value returns the value of the current key/value pair.
	// Only valid after a call to Next returns true.
	Value() string

	// Close closes the iterator and returns any accumulated error. It is
	// valid to call Close multiple times.
	Close() error
}

type BatchMutation interface {
	Set(key, value string)
	Delete(key string)
}

type Mutation interface {
	Key() string
	Value() string
	IsDelete() bool
}

type mutation struct {
	key    string
	value  string // used if !delete
	delete bool   // if to be deleted
}

func (m mutation) Key() string    { return m.key }
func (m mutation) Value() string  { return m.value }
func (m mutation) IsDelete() bool { return m.delete }

func NewBatchMutation() BatchMutation {
	return &batch{}
}

type batch struct {
	m []Mutation
}

func (b *batch) Mutations() []Mutation { return b.m }

func (b *batch) Delete(key string) {
	b.m = append(b.m, mutation{key: key, delete: true})
}

func (b *batch) Set(key, value string) {
	b.m = append(b.m, mutation{key: key, value: value})
}

var ctors = make(map[string]func(jsonconfig.Obj) (KeyValue, error))

// RegisterKeyValue adds a constructor to the registry of available stat
// cache backends. It is meant to be called from init() in each backend
// package (mem, kvfile, leveldb, sqlite, postgres, mysql).
func RegisterKeyValue(typ string, fn func(jsonconfig.Obj) (KeyValue, error)) {
	if typ == "" || fn == nil {
		panic("zero type or func")
	}
	if _, dup := ctors[typ]; dup {
		panic("duplicate registration of type " + typ)
	}
	ctors[typ] = fn
}

// NewKeyValue builds a KeyValue backend from a jsonconfig.Obj whose
// "type" key names one of the registered backends.
func NewKeyValue(cfg jsonconfig.Obj) (KeyValue, error) {
	typ := cfg.RequiredString("type")
	ctor, ok := ctors[typ]
	if typ != "" && !ok {
		return nil, fmt.Errorf("sorted: unknown key-value storage type %q", typ)
	}
	var (
		kv  KeyValue
		err error
	)
	if ok {
		kv, err = ctor(cfg)
		if err != nil {
			return nil, err
		}
	}
	if verr := cfg.Validate(); verr != nil {
		return nil, verr
	}
	return kv, nil
}
