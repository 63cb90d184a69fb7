package record

import (
	"reflect"
	"testing"
)

func mustNormalize(t *testing.T, data map[string]any) Record {
	t.Helper()
	r, err := Normalize(data)
	if err != nil {
		t.Fatalf("Normalize(%v) returned error: %v", data, err)
	}
	return r
}

func TestNormalize(t *testing.T) {
	r := mustNormalize(t, map[string]any{
		"name":   "Alice",
		"age":    25,
		"active": true,
		"tags":   []string{"a", "b"},
		"nested": map[string]int{"x": 1},
		"none":   nil,
	})

	if _, ok := r["age"].(float64); !ok {
		t.Errorf("Expected age to normalize to float64, got %T", r["age"])
	}
	if tags, ok := r["tags"].([]any); !ok || len(tags) != 2 {
		t.Errorf("Expected tags to normalize to []any, got %T", r["tags"])
	}
	if nested, ok := r["nested"].(map[string]any); !ok || nested["x"] != float64(1) {
		t.Errorf("Expected nested map, got %#v", r["nested"])
	}
	if v, ok := r["none"]; !ok || v != nil {
		t.Errorf("Expected explicit nil to be kept, got %#v", v)
	}
}

func TestNormalizeNil(t *testing.T) {
	r := mustNormalize(t, nil)
	if r == nil || len(r) != 0 {
		t.Errorf("Expected empty record, got %#v", r)
	}
}

func TestNormalizeRejectsNonJSON(t *testing.T) {
	if _, err := Normalize(map[string]any{"ch": make(chan int)}); err == nil {
		t.Error("Expected error for a channel value")
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := mustNormalize(t, map[string]any{"nested": map[string]any{"x": "y"}, "list": []any{"a"}})
	c := r.Clone()

	c["nested"].(map[string]any)["x"] = "changed"
	c["list"].([]any)[0] = "changed"

	if r["nested"].(map[string]any)["x"] != "y" || r["list"].([]any)[0] != "a" {
		t.Error("Mutating the clone changed the original")
	}
}

func TestWithIDOverwritesCallerID(t *testing.T) {
	r := mustNormalize(t, map[string]any{"id": "caller", "name": "x"})
	got := r.WithID("generated")

	if got.ID() != "generated" {
		t.Errorf("Expected generated id to win, got %q", got.ID())
	}
	if r.ID() != "caller" {
		t.Error("WithID must not mutate the receiver")
	}
}

func TestMerge(t *testing.T) {
	existing := Record{"id": "u1", "name": "Alice", "age": float64(25)}
	patch := Record{"age": float64(26), "city": "Paris", "id": "hijack"}

	got := existing.Merge(patch)
	want := Record{"id": "u1", "name": "Alice", "age": float64(26), "city": "Paris"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %#v, want %#v", got, want)
	}
	if existing["age"] != float64(25) {
		t.Error("Merge must not mutate the receiver")
	}
}

func TestMatches(t *testing.T) {
	r := Record{
		"id":     "u1",
		"name":   "Alice",
		"age":    float64(25),
		"active": true,
		"tags":   []any{"a"},
		"nil":    nil,
	}

	tests := []struct {
		name  string
		query Query
		want  bool
	}{
		{"empty query", Query{}, true},
		{"string match", Query{"name": "Alice"}, true},
		{"number match", Query{"age": float64(25)}, true},
		{"multiple fields", Query{"name": "Alice", "age": float64(25)}, true},
		{"value mismatch", Query{"name": "Bob"}, false},
		{"missing key", Query{"email": "a@b"}, false},
		{"no coercion string vs number", Query{"age": "25"}, false},
		{"no coercion bool vs string", Query{"active": "true"}, false},
		{"bool match", Query{"active": true}, true},
		{"nested sequence", Query{"tags": []any{"a"}}, true},
		{"explicit nil", Query{"nil": nil}, true},
		{"one of two mismatch", Query{"name": "Alice", "age": float64(30)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Matches(tt.query); got != tt.want {
				t.Errorf("Matches(%v) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	records := []Record{
		{"id": "u1", "name": "Alice", "age": float64(25)},
		{"id": "u2", "name": "Bob", "age": float64(30)},
		{"id": "u3", "name": "Charlie", "age": float64(25)},
	}

	got := Filter(records, Query{"age": float64(25)})
	if len(got) != 2 || got[0].ID() != "u1" || got[1].ID() != "u3" {
		t.Errorf("Expected [u1 u3] in insertion order, got %v", got)
	}

	got = Filter(records, Query{"name": "Bob"})
	if len(got) != 1 || got[0].ID() != "u2" {
		t.Errorf("Expected [u2], got %v", got)
	}

	if got := Filter(records, nil); len(got) != 3 {
		t.Errorf("Expected nil query to be identity, got %d records", len(got))
	}
	if got := Filter(records, Query{"name": "Nobody"}); got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil result, got %#v", got)
	}
}
