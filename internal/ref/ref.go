// Package ref parses record references of the form "collection/key".
package ref

import (
	"fmt"
	"strings"
)

type Ref struct {
	Collection string
	Key        string
}

func (r Ref) String() string {
	return r.Collection + "/" + r.Key
}

// Parse splits "cases/12" into its collection and key. Keys may contain
// further slashes ("settings/ui/theme" has key "ui/theme").
func Parse(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	idx := strings.Index(s, "/")
	if idx < 0 {
		return Ref{}, fmt.Errorf("invalid reference %q: want collection/key", s)
	}
	r := Ref{Collection: s[:idx], Key: s[idx+1:]}
	if r.Collection == "" {
		return Ref{}, fmt.Errorf("invalid reference %q: missing collection", s)
	}
	if r.Key == "" {
		return Ref{}, fmt.Errorf("invalid reference %q: missing key", s)
	}
	return r, nil
}

// Format builds a reference from a collection and a key of any type.
func Format(collection string, key any) string {
	if f, ok := key.(float64); ok && f == float64(int64(f)) {
		key = int64(f)
	}
	return Ref{Collection: collection, Key: fmt.Sprint(key)}.String()
}

// FileName is the checkout file name for a reference.
func (r Ref) FileName() string {
	return r.Collection + "-" + strings.ReplaceAll(r.Key, "/", "_") + ".md"
}
