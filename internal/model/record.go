package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is a single stored object: a mapping of field name to value.
// Records are opaque to the store apart from the key field, the timestamp
// fields and whatever the declared indexes read.
type Record map[string]any

// Field names managed by the store.
const (
	FieldID        = "id"
	FieldKey       = "key"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Clone returns a deep copy of r so callers never share maps with the store.
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
	switch x := v.(type) {
	case map[string]any:
		return map[string]any(Record(x).Clone())
	case Record:
		return x.Clone()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// String returns the field as a string. Non-string scalars are formatted;
// a missing field yields "".
func (r Record) String(field string) string {
	s, _ := r.Text(field)
	return s
}

// Text returns the string form of a field and whether the value is
// "present" in the loose sense used by search: nil, "", false and 0 are
// treated as absent.
func (r Record) Text(field string) (string, bool) {
	switch v := r[field].(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case bool:
		if !v {
			return "", false
		}
		return "true", true
	case float64:
		if v == 0 {
			return "", false
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), v != 0
	case int64:
		return strconv.FormatInt(v, 10), v != 0
	case json.Number:
		return v.String(), v.String() != "0"
	default:
		return fmt.Sprint(v), true
	}
}

// Number returns the field as a float64. Missing or non-numeric values are
// zero.
func (r Record) Number(field string) float64 {
	switch v := r[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Time parses a date or date-time field. Values without a zone are read in
// loc.
func (r Record) Time(field string, loc *time.Location) (time.Time, bool) {
	s, ok := r[field].(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	return ParseTime(s, loc)
}

// ParseTime accepts the date formats the application writes: ISO dates,
// ISO date-times with or without a zone.
func ParseTime(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Day truncates t to midnight of its calendar date in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Month returns the "YYYY-MM" bucket of a date field, or "" when the field
// is missing or unparseable.
func (r Record) Month(field string, loc *time.Location) string {
	t, ok := r.Time(field, loc)
	if !ok {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("2006-01")
}
