// Package models defines the data structures exchanged by workbook tools.
package models

import (
	"encoding/json"
	"fmt"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is one tabular row keyed by column header. Header insertion order is
// preserved and decides the column order on write.
type Record = *orderedmap.OrderedMap[string, any]

// NewRecord returns an empty record.
func NewRecord() Record {
	return orderedmap.New[string, any]()
}

// RecordKeys returns the headers of r in insertion order.
func RecordKeys(r Record) []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, r.Len())
	for pair := r.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// RecordFromMap builds a record whose keys follow order first; keys of m not
// named in order are appended in sorted order. Names in order missing from m
// are skipped.
func RecordFromMap(m map[string]any, order []string) Record {
	r := orderedmap.New[string, any](orderedmap.WithCapacity[string, any](len(m)))
	for _, k := range order {
		if v, ok := m[k]; ok {
			r.Set(k, v)
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if _, ok := r.Get(k); !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		r.Set(k, m[k])
	}
	return r
}

// DecodeRecords decodes a JSON array of objects keeping each object's key order.
func DecodeRecords(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	for i, r := range records {
		if r == nil {
			return nil, fmt.Errorf("decode records: element %d is not an object", i)
		}
	}
	return records, nil
}
