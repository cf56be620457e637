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

package query

import (
	"coredb.dev/pkg/record"
	"coredb.dev/pkg/tx"
)

// comparator orders two records by a sequence of fields, the way a
// multi-column ORDER BY would: ties on the first field fall through
// to the next.
type comparator struct {
	fields []string
}

func (c comparator) compare(s1, s2 Scan) (int, error) {
	for _, f := range c.fields {
		v1, err := s1.GetVal(f)
		if err != nil {
			return 0, err
		}
		v2, err := s2.GetVal(f)
		if err != nil {
			return 0, err
		}
		cmp, err := v1.Compare(v2)
		if err != nil {
			return 0, err
		}
		if cmp != 0 {
			return cmp, nil
		}
	}
	return 0, nil
}

// Sort materializes src into runs already ordered by sortfields, then
// repeatedly merges pairs of runs until a single, fully sorted temp
// table remains, and returns a scan over it. It's an external
// merge sort: at no point does it need more than two runs' worth of
// records resident at once.
func Sort(transaction *tx.Transaction, src Scan, sch *record.Schema, sortfields []string, nextTableNum func() int) (Scan, error) {
	cmp := comparator{sortfields}
	runs, err := splitIntoRuns(transaction, src, sch, cmp, nextTableNum)
	if err != nil {
		return nil, err
	}
	for len(runs) > 2 {
		runs, err = doAMergeIteration(transaction, runs, sch, cmp, nextTableNum)
		if err != nil {
			return nil, err
		}
	}
	switch len(runs) {
	case 0:
		tt := NewTempTable(sch, nextTableNum)
		return tt.Open(transaction)
	case 1:
		return runs[0].Open(transaction)
	default:
		merged, err := mergeTwoRuns(transaction, runs[0], runs[1], sch, cmp, nextTableNum)
		if err != nil {
			return nil, err
		}
		return merged.Open(transaction)
	}
}

func splitIntoRuns(transaction *tx.Transaction, src Scan, sch *record.Schema, cmp comparator, nextTableNum func() int) ([]*TempTable, error) {
	if err := src.BeforeFirst(); err != nil {
		return nil, err
	}
	has, err := src.Next()
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}

	var temps []*TempTable
	currenttemp := NewTempTable(sch, nextTableNum)
	temps = append(temps, currenttemp)
	currentscan, err := currenttemp.Open(transaction)
	if err != nil {
		return nil, err
	}
	if err := copyRecord(src, currentscan, sch); err != nil {
		return nil, err
	}

	for {
		has, err = src.Next()
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		c, err := cmp.compare(currentscan, src)
		if err != nil {
			return nil, err
		}
		if c > 0 {
			currentscan.Close()
			currenttemp = NewTempTable(sch, nextTableNum)
			temps = append(temps, currenttemp)
			currentscan, err = currenttemp.Open(transaction)
			if err != nil {
				return nil, err
			}
		}
		if err := copyRecord(src, currentscan, sch); err != nil {
			return nil, err
		}
	}
	currentscan.Close()
	return temps, nil
}

func doAMergeIteration(transaction *tx.Transaction, runs []*TempTable, sch *record.Schema, cmp comparator, nextTableNum func() int) ([]*TempTable, error) {
	var result []*TempTable
	for len(runs) > 1 {
		merged, err := mergeTwoRuns(transaction, runs[0], runs[1], sch, cmp, nextTableNum)
		if err != nil {
			return nil, err
		}
		result = append(result, merged)
		runs = runs[2:]
	}
	if len(runs) == 1 {
		result = append(result, runs[0])
	}
	return result, nil
}

func mergeTwoRuns(transaction *tx.Transaction, t1, t2 *TempTable, sch *record.Schema, cmp comparator, nextTableNum func() int) (*TempTable, error) {
	src1, err := t1.Open(transaction)
	if err != nil {
		return nil, err
	}
	defer src1.Close()
	src2, err := t2.Open(transaction)
	if err != nil {
		return nil, err
	}
	defer src2.Close()

	result := NewTempTable(sch, nextTableNum)
	dest, err := result.Open(transaction)
	if err != nil {
		return nil, err
	}
	defer dest.Close()

	has1, err := src1.Next()
	if err != nil {
		return nil, err
	}
	has2, err := src2.Next()
	if err != nil {
		return nil, err
	}

	for has1 && has2 {
		c, err := cmp.compare(src1, src2)
		if err != nil {
			return nil, err
		}
		if c < 0 {
			if err := copyRecord(src1, dest, sch); err != nil {
				return nil, err
			}
			has1, err = src1.Next()
			if err != nil {
				return nil, err
			}
		} else {
			if err := copyRecord(src2, dest, sch); err != nil {
				return nil, err
			}
			has2, err = src2.Next()
			if err != nil {
				return nil, err
			}
		}
	}
	for has1 {
		if err := copyRecord(src1, dest, sch); err != nil {
			return nil, err
		}
		has1, err = src1.Next()
		if err != nil {
			return nil, err
		}
	}
	for has2 {
		if err := copyRecord(src2, dest, sch); err != nil {
			return nil, err
		}
		has2, err = src2.Next()
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
