package recordstore

import "strings"

// Well-known record fields managed by the store.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Record is a single row: field name to JSON-compatible value.
type Record map[string]any

// Tables maps table names to their records in insertion order.
type Tables map[string][]Record

// ID returns the record's id when it is a non-empty string.
func (r Record) ID() (string, bool) {
	id, ok := r[FieldID].(string)
	return id, ok && id != ""
}

// String returns the field as a string, or "" if absent or not a string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Filter maps field names to substrings for Select.
type Filter map[string]string

// Match reports whether at least one filter field contains its term,
// ignoring case. Absent or non-string fields never match. An empty filter
// matches every record.
func (f Filter) Match(r Record) bool {
	if len(f) == 0 {
		return true
	}
	for field, term := range f {
		value, ok := r[field].(string)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(value), strings.ToLower(term)) {
			return true
		}
	}
	return false
}

func indexOf(records []Record, id string) int {
	for i, r := range records {
		if rid, ok := r.ID(); ok && rid == id {
			return i
		}
	}
	return -1
}
