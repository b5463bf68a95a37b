package store

import (
	"context"
	"strings"

	"github.com/seastarlegal/seastar/internal/model"
)

// Search scans a collection and returns the records where any of fields
// contains term, case-insensitively. It reads every record; declared
// indexes are not consulted.
func (s *Store) Search(ctx context.Context, collection, term string, fields ...string) ([]model.Record, error) {
	all, err := s.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(term)
	results := []model.Record{}
	for _, rec := range all {
		for _, f := range fields {
			if matchesQuery(q, rec, f) {
				results = append(results, rec)
				break
			}
		}
	}
	return results, nil
}

func matchesQuery(q string, rec model.Record, field string) bool {
	text, ok := rec.Text(field)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(text), q)
}

// Snippet returns up to 40 characters of context around the first match of
// term in text, for result listings.
func Snippet(text, term string) string {
	runes := []rune(text)
	lower := []rune(strings.ToLower(text))
	q := []rune(strings.ToLower(term))
	idx := indexRunes(lower, q)
	if idx < 0 || len(lower) != len(runes) {
		return ""
	}
	start := max(idx-40, 0)
	end := min(idx+len(q)+40, len(runes))
	s := string(runes[start:end])
	if start > 0 {
		s = "..." + s
	}
	if end < len(runes) {
		s = s + "..."
	}
	return strings.ReplaceAll(s, "\n", " ")
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}
