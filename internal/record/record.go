// Package record defines the data carried by resource collections and the
// exact-match query filter applied when listing them.
package record

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// IDField is the name of the mandatory identifier field on every record.
const IDField = "id"

// Record is a single addressable data item. Values are restricted to the JSON
// variant: string, float64, bool, nil, map[string]any and []any.
type Record map[string]any

// Query maps field names to the value a record must hold for that field.
type Query map[string]any

// ID returns the record's identifier, or "" when it has none.
func (r Record) ID() string {
	id, _ := r[IDField].(string)
	return id
}

// Normalize returns a deep copy of data with every value converted to the
// JSON variant (integers become float64, structs become maps). Values that
// cannot be represented as JSON are rejected.
func Normalize(data map[string]any) (Record, error) {
	if data == nil {
		return Record{}, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("record is not representable as JSON: %w", err)
	}
	var out Record
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if out == nil {
		out = Record{}
	}
	return out, nil
}

// NormalizeQuery is Normalize for queries.
func NormalizeQuery(q map[string]any) (Query, error) {
	r, err := Normalize(q)
	if err != nil {
		return nil, err
	}
	return Query(r), nil
}

// Clone returns a deep copy of r. r must already be normalized.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

// WithID returns a copy of r whose id field is set to id, overwriting any
// value the caller supplied.
func (r Record) WithID(id string) Record {
	out := r.Clone()
	if out == nil {
		out = Record{}
	}
	out[IDField] = id
	return out
}

// Merge shallow-merges patch over r and re-asserts r's id. Fields of r not
// present in patch are preserved.
func (r Record) Merge(patch Record) Record {
	id := r.ID()
	out := r.Clone()
	if out == nil {
		out = Record{}
	}
	for k, v := range patch {
		out[k] = cloneValue(v)
	}
	out[IDField] = id
	return out
}

// Matches reports whether every query field is present on r with a strictly
// equal value. Values of different dynamic types never match.
func (r Record) Matches(q Query) bool {
	for key, want := range q {
		got, ok := r[key]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// Filter returns the records matching q, preserving order. An empty query
// returns records unchanged.
func Filter(records []Record, q Query) []Record {
	if len(q) == 0 {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Matches(q) {
			out = append(out, r)
		}
	}
	return out
}
