package local

import (
	"github.com/cespare/xxhash/v2"
	"github.com/go-sif/fuse/internal/partition"
	"github.com/go-sif/fuse/schema"
)

// normalizeValue converts a value of Schema s into the layout of s.Normalize(),
// which is what UDFs were typed against
func normalizeValue(s schema.Schema, v interface{}) interface{} {
	switch s.Kind() {
	case schema.Tuple:
		vals, ok := v.([]interface{})
		if !ok {
			return v
		}
		if s.NumFields() == 1 && s.Field(0).IsTuple() && len(vals) == 1 {
			return normalizeValue(s.Field(0), vals[0])
		}
		out := make([]interface{}, len(vals))
		for i := range vals {
			out[i] = normalizeValue(s.Field(i), vals[i])
		}
		return out
	case schema.Array:
		vals, ok := v.([]interface{})
		if !ok {
			return v
		}
		out := make([]interface{}, len(vals))
		for i := range vals {
			out[i] = normalizeValue(s.Elem(), vals[i])
		}
		return out
	default:
		return v
	}
}

// denormalizeValue is the inverse of normalizeValue
func denormalizeValue(s schema.Schema, v interface{}) interface{} {
	switch s.Kind() {
	case schema.Tuple:
		if s.NumFields() == 1 && s.Field(0).IsTuple() {
			return []interface{}{denormalizeValue(s.Field(0), v)}
		}
		vals, ok := v.([]interface{})
		if !ok {
			return v
		}
		out := make([]interface{}, len(vals))
		for i := range vals {
			if i < s.NumFields() {
				out[i] = denormalizeValue(s.Field(i), vals[i])
			} else {
				out[i] = vals[i]
			}
		}
		return out
	case schema.Array:
		vals, ok := v.([]interface{})
		if !ok {
			return v
		}
		out := make([]interface{}, len(vals))
		for i := range vals {
			out[i] = denormalizeValue(s.Elem(), vals[i])
		}
		return out
	default:
		return v
	}
}

// columns returns the top-level fields of a row of Schema s
func columns(s schema.Schema, v interface{}) []interface{} {
	if s.IsTuple() {
		vals, _ := v.([]interface{})
		return vals
	}
	return []interface{}{v}
}

// flattenValue returns the leaves of a row of Schema s, with nested tuples flattened
func flattenValue(s schema.Schema, v interface{}) []interface{} {
	if !s.IsTuple() {
		return []interface{}{v}
	}
	vals, _ := v.([]interface{})
	out := make([]interface{}, 0, len(vals))
	for i, f := range s.Fields() {
		if i < len(vals) {
			out = append(out, flattenValue(f, vals[i])...)
		}
	}
	return out
}

// keyOf returns the packed bytes of a key value, and their hash
func keyOf(s schema.Schema, v interface{}) (string, uint64, error) {
	data, err := partition.Encode(s, []interface{}{v})
	if err != nil {
		return "", 0, err
	}
	return string(data), xxhash.Sum64(data), nil
}

// keyIndex is a hash table of packed keys to insertion-ordered values
type keyIndex struct {
	buckets map[uint64][]*keyEntry
	order   []*keyEntry
}

type keyEntry struct {
	key    string
	value  interface{}   // the decoded key
	values []interface{} // rows or aggregates stored under the key
}

func newKeyIndex() *keyIndex {
	return &keyIndex{buckets: make(map[uint64][]*keyEntry)}
}

// get returns the entry for key, creating it if create is true
func (idx *keyIndex) get(key string, hash uint64, value interface{}, create bool) *keyEntry {
	for _, e := range idx.buckets[hash] {
		if e.key == key {
			return e
		}
	}
	if !create {
		return nil
	}
	e := &keyEntry{key: key, value: value}
	idx.buckets[hash] = append(idx.buckets[hash], e)
	idx.order = append(idx.order, e)
	return e
}
