package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Clone_IsDeep(t *testing.T) {
	r := Record{
		"tags":   []any{"a", map[string]any{"k": "v"}},
		"nested": map[string]any{"court": "x"},
	}
	c := r.Clone()
	c["tags"].([]any)[0] = "changed"
	c["tags"].([]any)[1].(map[string]any)["k"] = "changed"
	c["nested"].(map[string]any)["court"] = "changed"

	assert.Equal(t, "a", r["tags"].([]any)[0])
	assert.Equal(t, "v", r["tags"].([]any)[1].(map[string]any)["k"])
	assert.Equal(t, "x", r["nested"].(map[string]any)["court"])
}

func TestRecord_Clone_Nil(t *testing.T) {
	var r Record
	assert.Nil(t, r.Clone())
}

func TestRecord_Text(t *testing.T) {
	r := Record{
		"s":     "hello",
		"empty": "",
		"zero":  float64(0),
		"num":   float64(12.5),
		"int":   int64(7),
		"no":    false,
		"yes":   true,
		"jnum":  json.Number("42"),
	}
	tests := []struct {
		field string
		want  string
		ok    bool
	}{
		{"s", "hello", true},
		{"empty", "", false},
		{"zero", "", false},
		{"num", "12.5", true},
		{"int", "7", true},
		{"no", "", false},
		{"yes", "true", true},
		{"jnum", "42", true},
		{"missing", "", false},
	}
	for _, tt := range tests {
		got, ok := r.Text(tt.field)
		assert.Equal(t, tt.want, got, tt.field)
		assert.Equal(t, tt.ok, ok, tt.field)
	}
}

func TestRecord_Number(t *testing.T) {
	r := Record{"f": 1.5, "i": 3, "s": " 250 ", "bad": "abc", "b": true}
	assert.Equal(t, 1.5, r.Number("f"))
	assert.Equal(t, 3.0, r.Number("i"))
	assert.Equal(t, 250.0, r.Number("s"))
	assert.Zero(t, r.Number("bad"))
	assert.Zero(t, r.Number("b"))
	assert.Zero(t, r.Number("missing"))
}

func TestParseTime_Layouts(t *testing.T) {
	loc := time.FixedZone("AST", 3*60*60)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-03-15", time.Date(2026, 3, 15, 0, 0, 0, 0, loc)},
		{"2026-03-15T09:30", time.Date(2026, 3, 15, 9, 30, 0, 0, loc)},
		{"2026-03-15 09:30:10", time.Date(2026, 3, 15, 9, 30, 10, 0, loc)},
		{"2026-03-15T06:30:00.000Z", time.Date(2026, 3, 15, 6, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, ok := ParseTime(tt.in, loc)
		require.True(t, ok, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %v", tt.in, got)
	}

	_, ok := ParseTime("15/03/2026", loc)
	assert.False(t, ok)
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("AST", 3*60*60)
	// 22:00 UTC is 01:00 the next day in loc.
	d := Day(time.Date(2026, 3, 15, 22, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, loc), d)
}

func TestRecord_Month(t *testing.T) {
	r := Record{"createdAt": "2026-03-31T22:30:00.000Z", "bad": "soon"}
	assert.Equal(t, "2026-03", r.Month("createdAt", time.UTC))
	assert.Equal(t, "2026-04", r.Month("createdAt", time.FixedZone("AST", 3*60*60)))
	assert.Equal(t, "", r.Month("bad", time.UTC))
	assert.Equal(t, "", r.Month("missing", time.UTC))
}

func TestIsClosedCase(t *testing.T) {
	assert.True(t, IsClosedCase(CaseStatusClosed))
	assert.False(t, IsClosedCase(CaseStatusOngoing))
	assert.False(t, IsClosedCase(""))
}

func TestBackup_Count(t *testing.T) {
	b := &Backup{Data: map[string][]Record{"cases": {{}, {}}}}
	assert.Equal(t, 2, b.Count("cases"))
	assert.Zero(t, b.Count("clients"))
}
