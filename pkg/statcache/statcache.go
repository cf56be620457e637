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

// Package statcache estimates per-table cardinalities for the query
// planner, and persists those estimates in a pkg/sorted.KeyValue so a
// freshly opened database doesn't have to rescan every heap file
// before it can plan a single query.
//
// Refresh is a blunt, whole-database recompute (no incremental
// maintenance, no cost-based re-estimation policy) triggered every
// refreshInterval calls to GetStatInfo.
package statcache

import (
	"fmt"
	"strconv"
	"sync"

	"coredb.dev/pkg/catalog"
	"coredb.dev/pkg/record"
	"coredb.dev/pkg/sorted"
	"coredb.dev/pkg/table"
	"coredb.dev/pkg/tx"
)

// refreshInterval is how many GetStatInfo calls a Manager serves
// before recomputing every table's statistics from scratch.
const refreshInterval = 100

// StatInfo summarizes one table: how many blocks its heap file
// occupies and how many records it held as of the last refresh.
type StatInfo struct {
	numBlocks  int
	numRecords int
}

// BlocksAccessed estimates the cost, in block reads, of a full scan.
func (s StatInfo) BlocksAccessed() int { return s.numBlocks }

// RecordsOutput estimates the number of records a full scan returns.
func (s StatInfo) RecordsOutput() int { return s.numRecords }

// DistinctValues estimates the number of distinct values a field
// holds. Lacking a histogram, this uses the classic rule of thumb of
// one distinct value per three records, floor one.
func (s StatInfo) DistinctValues(fieldname string) int {
	return 1 + s.numRecords/3
}

// Manager serves StatInfo for the tables in cat, backed by an
// in-memory map that's refreshed from (and persisted back to) cache.
// cache may be nil, in which case statistics are always recomputed by
// scanning and never persisted across restarts.
type Manager struct {
	cat   *catalog.Manager
	cache sorted.KeyValue

	mu         sync.Mutex
	tablestats map[string]StatInfo
	numcalls   int
}

// NewManager builds a Manager over cat, loading whatever statistics
// the cache already has and computing the rest by scanning.
func NewManager(cache sorted.KeyValue, cat *catalog.Manager, transaction *tx.Transaction) (*Manager, error) {
	m := &Manager{cat: cat, cache: cache, tablestats: make(map[string]StatInfo)}
	if err := m.refreshStatistics(transaction); err != nil {
		return nil, err
	}
	return m, nil
}

// GetStatInfo returns tblname's statistics, triggering a full refresh
// first if this Manager has served refreshInterval calls since the
// last one, or computing them for the first time if tblname hasn't
// been seen yet.
func (m *Manager) GetStatInfo(tblname string, layout *record.Layout, transaction *tx.Transaction) (StatInfo, error) {
	m.mu.Lock()
	m.numcalls++
	needsRefresh := m.numcalls > refreshInterval
	m.mu.Unlock()

	if needsRefresh {
		if err := m.refreshStatistics(transaction); err != nil {
			return StatInfo{}, err
		}
	}

	m.mu.Lock()
	si, ok := m.tablestats[tblname]
	m.mu.Unlock()
	if ok {
		return si, nil
	}

	si, err := m.calcTableStats(tblname, layout, transaction)
	if err != nil {
		return StatInfo{}, err
	}
	m.mu.Lock()
	m.tablestats[tblname] = si
	m.mu.Unlock()
	m.persist(tblname, si)
	return si, nil
}

// refreshStatistics recomputes every table's StatInfo from scratch
// and resets the call counter. It's the only place that walks every
// table in the catalog; GetStatInfo's per-table fallback only scans
// the one table it was asked about.
func (m *Manager) refreshStatistics(transaction *tx.Transaction) error {
	names, err := m.cat.ListTables(transaction)
	if err != nil {
		return err
	}

	stats := make(map[string]StatInfo, len(names))
	for _, name := range names {
		if cached, ok := m.loadCached(name); ok {
			stats[name] = cached
			continue
		}
		layout, err := m.cat.LayoutOf(name, transaction)
		if err != nil {
			return err
		}
		si, err := m.calcTableStats(name, layout, transaction)
		if err != nil {
			return err
		}
		stats[name] = si
		m.persist(name, si)
	}

	m.mu.Lock()
	m.tablestats = stats
	m.numcalls = 0
	m.mu.Unlock()
	return nil
}

// calcTableStats scans tblname once, counting its records and
// recording the block count its heap file occupies.
func (m *Manager) calcTableStats(tblname string, layout *record.Layout, transaction *tx.Transaction) (StatInfo, error) {
	ts, err := table.New(transaction, tblname, layout)
	if err != nil {
		return StatInfo{}, err
	}
	defer ts.Close()

	records := 0
	if err := ts.BeforeFirst(); err != nil {
		return StatInfo{}, err
	}
	for {
		has, err := ts.Next()
		if err != nil {
			return StatInfo{}, err
		}
		if !has {
			break
		}
		records++
	}

	blocks, err := transaction.Size(tblname + ".tbl")
	if err != nil {
		return StatInfo{}, err
	}
	return StatInfo{numBlocks: blocks, numRecords: records}, nil
}

func cacheKey(tblname, field string) string {
	return "statcache:" + tblname + ":" + field
}

func (m *Manager) loadCached(tblname string) (StatInfo, bool) {
	if m.cache == nil {
		return StatInfo{}, false
	}
	blocksStr, err := m.cache.Get(cacheKey(tblname, "blocks"))
	if err != nil {
		return StatInfo{}, false
	}
	recordsStr, err := m.cache.Get(cacheKey(tblname, "records"))
	if err != nil {
		return StatInfo{}, false
	}
	blocks, err1 := strconv.Atoi(blocksStr)
	records, err2 := strconv.Atoi(recordsStr)
	if err1 != nil || err2 != nil {
		return StatInfo{}, false
	}
	return StatInfo{numBlocks: blocks, numRecords: records}, true
}

func (m *Manager) persist(tblname string, si StatInfo) {
	if m.cache == nil {
		return
	}
	_ = m.cache.Set(cacheKey(tblname, "blocks"), strconv.Itoa(si.numBlocks))
	_ = m.cache.Set(cacheKey(tblname, "records"), strconv.Itoa(si.numRecords))
}

// Wipe drops every entry this Manager has ever persisted, forcing the
// next refresh to recompute everything by scanning. Only available
// when the backend supports it (see sorted.Wiper); callers that pass
// a nil or non-wiping cache get an error naming the backend type.
func (m *Manager) Wipe() error {
	w, ok := m.cache.(sorted.Wiper)
	if !ok {
		return fmt.Errorf("statcache: backend %T does not support Wipe", m.cache)
	}
	if err := w.Wipe(); err != nil {
		return err
	}
	m.mu.Lock()
	m.tablestats = make(map[string]StatInfo)
	m.numcalls = 0
	m.mu.Unlock()
	return nil
}
