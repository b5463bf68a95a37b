package store

import (
	"context"

	"github.com/seastarlegal/seastar/internal/model"
)

// GetSettings returns every setting as a key to value map.
func (s *Store) GetSettings(ctx context.Context) (map[string]any, error) {
	records, err := s.GetAll(ctx, Settings)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(records))
	for _, r := range records {
		out[r.String(model.FieldKey)] = r["value"]
	}
	return out, nil
}

// UpdateSetting stores value under key, creating the setting if needed.
func (s *Store) UpdateSetting(ctx context.Context, key string, value any) error {
	_, err := s.Update(ctx, Settings, model.Record{model.FieldKey: key, "value": value})
	return err
}

// Setting returns a single setting value and whether it exists.
func (s *Store) Setting(ctx context.Context, key string) (any, bool, error) {
	rec, err := s.Get(ctx, Settings, key)
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return rec["value"], true, nil
}
