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

// Package engine ties the whole storage stack together into a single
// value: one FileManager, one LogManager, one BufferPool, one
// LockTable, a bootstrapped Catalog, and a StatManager, all owned by
// value (or by a shared pointer handed to transactions) rather than
// spread across mutually-referencing singletons. Opening a database
// directory either bootstraps the catalog (first-ever open) or runs
// undo recovery (every later open) before handing control back to the
// caller.
package engine

import (
	"path/filepath"
	"sync/atomic"
	"time"

	"coredb.dev/pkg/buffer"
	"coredb.dev/pkg/catalog"
	"coredb.dev/pkg/file"
	"coredb.dev/pkg/jsonconfig"
	"coredb.dev/pkg/locktab"
	"coredb.dev/pkg/sorted"
	"coredb.dev/pkg/sorted/kvfile"
	"coredb.dev/pkg/statcache"
	"coredb.dev/pkg/tx"
	"coredb.dev/pkg/walog"

	// Blank-imported so their init() funcs register with
	// pkg/sorted's constructor registry: without this, a statCache
	// config naming "leveldb", "sqlite", "postgres", or "mysql"
	// would fail with "unknown key-value storage type" even though
	// the backend package itself compiles fine.
	_ "coredb.dev/pkg/sorted/leveldb"
	_ "coredb.dev/pkg/sorted/mysql"
	_ "coredb.dev/pkg/sorted/postgres"
	_ "coredb.dev/pkg/sorted/sqlite"
)

// Defaults match the source system: 400-byte blocks, a small fixed
// buffer pool, and a 2s wait before a lock conflict or buffer
// exhaustion is surfaced to the caller as a retryable error.
const (
	DefaultBlockSize   = 400
	DefaultBufferCount = 8
	DefaultLogFile     = "log.txt"
	DefaultLockWait    = 2 * time.Second
	DefaultBufferWait  = 2 * time.Second

	// DefaultStatCacheFile is the modernc.org/kv file a statCache
	// persists to when cfg omits "statCache" entirely: planner
	// statistics survive restarts by default instead of only when a
	// caller opts in.
	DefaultStatCacheFile = "statcache.kv"
)

// Engine is the single owner of a database directory's durable
// state. It is safe to call from multiple goroutines; each caller
// should own its own *tx.Transaction rather than share one.
type Engine struct {
	fm *file.Mgr
	lm *walog.Mgr
	bm *buffer.Pool
	lt *locktab.Table

	cat       *catalog.Manager
	stats     *statcache.Manager
	statCache sorted.KeyValue

	nextTxNum   atomic.Int64
	nextTempNum atomic.Int64
}

// Open opens (creating if necessary) the database directory named by
// cfg's "dataDir" key, bootstrapping the catalog on first open or
// running crash recovery on every later one. cfg follows the
// teacher's RequiredString/OptionalInt/Validate idiom:
//
//	dataDir           (required) directory holding every table's heap file
//	blockSize         (optional, default 400)
//	bufferPoolSize    (optional, default 8)
//	logFile           (optional, default "log.txt")
//	lockWaitMillis    (optional, default 2000)
//	bufferWaitMillis  (optional, default 2000)
//	statCache         (optional object) a sorted.NewKeyValue config
//	                  (a "type" key naming "memory", "kv", "leveldb",
//	                  "sqlite", "postgres", or "mysql", plus that
//	                  backend's own keys) for persisting planner
//	                  statistics across restarts; omitted entirely,
//	                  Open defaults to a modernc.org/kv file alongside
//	                  dataDir's other files (see DefaultStatCacheFile).
func Open(cfg jsonconfig.Obj) (*Engine, error) {
	dataDir := cfg.RequiredString("dataDir")
	blockSize := cfg.OptionalInt("blockSize", DefaultBlockSize)
	numBuffers := cfg.OptionalInt("bufferPoolSize", DefaultBufferCount)
	logFile := cfg.OptionalString("logFile", DefaultLogFile)
	lockWaitMillis := cfg.OptionalInt("lockWaitMillis", int(DefaultLockWait/time.Millisecond))
	bufferWaitMillis := cfg.OptionalInt("bufferWaitMillis", int(DefaultBufferWait/time.Millisecond))
	statCacheCfg := cfg.OptionalObject("statCache")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fm, err := file.NewMgr(dataDir, blockSize)
	if err != nil {
		return nil, err
	}
	lm, err := walog.NewMgr(fm, logFile)
	if err != nil {
		return nil, err
	}
	bm := buffer.NewPool(fm, lm, numBuffers, time.Duration(bufferWaitMillis)*time.Millisecond)
	lt := locktab.NewTable(time.Duration(lockWaitMillis) * time.Millisecond)

	e := &Engine{fm: fm, lm: lm, bm: bm, lt: lt}

	initTx, err := e.newTx()
	if err != nil {
		return nil, err
	}
	// An existing directory without a table_catalog heap file has
	// never held a database either, so it is bootstrapped the same way.
	isNew := fm.IsNew()
	if !isNew {
		n, err := fm.Length("table_catalog.tbl")
		if err != nil {
			return nil, err
		}
		isNew = n == 0
	}
	if isNew {
		// Nothing to recover: this is the first time this directory
		// has ever been opened.
	} else if err := initTx.Recover(); err != nil {
		return nil, err
	}

	cat, err := catalog.NewManager(isNew, initTx)
	if err != nil {
		return nil, err
	}
	e.cat = cat

	var cache sorted.KeyValue
	if len(statCacheCfg) > 0 {
		cache, err = sorted.NewKeyValue(statCacheCfg)
		if err != nil {
			return nil, err
		}
	} else {
		cache, err = kvfile.NewStorage(filepath.Join(dataDir, DefaultStatCacheFile))
		if err != nil {
			return nil, err
		}
	}
	e.statCache = cache
	stats, err := statcache.NewManager(cache, cat, initTx)
	if err != nil {
		return nil, err
	}
	e.stats = stats

	if err := initTx.Commit(); err != nil {
		return nil, err
	}
	return e, nil
}

// newTx allocates the next unique transaction number and starts a
// transaction against this engine's shared state.
func (e *Engine) newTx() (*tx.Transaction, error) {
	txnum := int(e.nextTxNum.Add(1))
	return tx.New(e.fm, e.lm, e.bm, e.lt, txnum)
}

// NewTx starts a fresh transaction. The caller owns it and must end
// it with exactly one Commit or Rollback.
func (e *Engine) NewTx() (*tx.Transaction, error) {
	return e.newTx()
}

// Catalog returns the engine's table manager.
func (e *Engine) Catalog() *catalog.Manager {
	return e.cat
}

// Stats returns the engine's planner statistics manager.
func (e *Engine) Stats() *statcache.Manager {
	return e.stats
}

// NextTempTableNum returns a process-unique integer suitable as a
// temp table's name suffix (see pkg/query.TempTable). It's engine
// state, not a package-level global, so two Engines in the same
// process (as in tests) never collide.
func (e *Engine) NextTempTableNum() int {
	return int(e.nextTempNum.Add(1))
}

// BlockSize returns the block size this engine's files were opened
// with.
func (e *Engine) BlockSize() int {
	return e.fm.BlockSize()
}

// Close releases the engine's open file handles, including its
// statCache backend if one is open. Intended for tests; a live engine
// keeps them open for the process lifetime.
func (e *Engine) Close() error {
	if e.statCache != nil {
		if err := e.statCache.Close(); err != nil {
			return err
		}
	}
	return e.fm.Close()
}
