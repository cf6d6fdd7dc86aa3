// Package records defines the raw row representation shared by the CSV
// parser and the per-dataset normalizers.
package records

// Record is one source row keyed by column name. Values are the raw strings
// read from the source; empty cells are stored as nil.
type Record map[string]any

// String returns the value for key as a string, or "" when the field is
// missing, nil, or not a string.
func (r Record) String(key string) string {
	if v, ok := r[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Has reports whether key is present with a non-nil value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}
