// Package normalize converts raw extract records into the typed canonical
// rows the store persists. Field rules follow the source conventions: the
// HHS extracts use -999999 as a numeric sentinel for "not reported", ship
// geocodes as WKT-style POINT strings, and the CMS file spells unknown
// ratings as "Not Available".
package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shreyapatchala18/HHS-and-CMS-Data-Pipeline/internal/schema"
)

// ErrInvalidDate marks a date field that failed to parse as YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date")

// sentinel is the HHS "not reported" marker. It must never reach the store
// as a literal number.
const sentinel = -999999

// Float parses a 7-day-average metric. The sentinel, not-a-number markers,
// and anything unparseable all normalize to absent.
func Float(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if f == sentinel {
		return nil
	}
	return &f
}

// Date parses a YYYY-MM-DD field. Malformed input fails with ErrInvalidDate;
// whether that kills the record or the file is the caller's policy.
func Date(s string) (time.Time, error) {
	t, err := time.Parse(schema.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// YesNo reports whether the field is the literal "yes", case-insensitively.
// Everything else, including empty, is false.
func YesNo(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "yes")
}

// Rating parses a 1-5 overall quality rating. Out-of-range integers,
// non-numeric values, and "Not Available" normalize to absent.
func Rating(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 5 {
		return nil
	}
	return &n
}

// GeoPoint parses a "POINT (lon lat)" geocode, tolerating an "SRID=####;"
// prefix. On any parse failure both coordinates are absent; a bad geocode
// never fails the record.
func GeoPoint(s string) (lon, lat *float64) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ';'); i >= 0 && strings.HasPrefix(strings.ToUpper(s), "SRID=") {
		s = strings.TrimSpace(s[i+1:])
	}
	if !strings.HasPrefix(strings.ToUpper(s), "POINT") {
		return nil, nil
	}
	open := strings.IndexByte(s, '(')
	end := strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return nil, nil
	}
	parts := strings.Fields(s[open+1 : end])
	if len(parts) != 2 {
		return nil, nil
	}
	x, errX := strconv.ParseFloat(parts[0], 64)
	y, errY := strconv.ParseFloat(parts[1], 64)
	if errX != nil || errY != nil {
		return nil, nil
	}
	return &x, &y
}

// str returns a pointer to the trimmed string, or nil when empty.
func str(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
