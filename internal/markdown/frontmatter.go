package markdown

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/seastarlegal/seastar/internal/model"
	"gopkg.in/yaml.v3"
)

// BodyField is the record field edited as the markdown body of a record
// file.
const BodyField = "notes"

// ParseRecord reads a record file: YAML frontmatter for the fields and the
// markdown body for the notes. An empty body removes the notes field.
func ParseRecord(r io.Reader) (model.Record, error) {
	meta := map[string]any{}
	body, err := frontmatter.Parse(r, &meta)
	if err != nil {
		return nil, fmt.Errorf("parsing frontmatter: %w", err)
	}
	rec := make(model.Record, len(meta)+1)
	for k, v := range meta {
		rec[k] = normalize(v)
	}
	if notes := strings.TrimSpace(string(body)); notes != "" {
		rec[BodyField] = notes
	} else {
		delete(rec, BodyField)
	}
	return rec, nil
}

// MarshalRecord writes rec as a record file. String notes become the body;
// every other field goes into the frontmatter.
func MarshalRecord(rec model.Record) ([]byte, error) {
	meta := make(map[string]any, len(rec))
	var body string
	for k, v := range rec {
		if s, ok := v.(string); ok && k == BodyField {
			body = s
			continue
		}
		meta[k] = v
	}
	yamlBytes, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(yamlBytes)
	buf.WriteString("---\n")
	if body != "" {
		buf.WriteString("\n")
		buf.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			buf.WriteString("\n")
		}
	}
	return buf.Bytes(), nil
}

// normalize turns YAML-specific values into what the JSON store holds.
func normalize(v any) any {
	switch x := v.(type) {
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 && x.Location() == time.UTC {
			return x.Format("2006-01-02")
		}
		return x.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}
