package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateSetting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateSetting(ctx, "theme", "dark"))
	require.NoError(t, s.UpdateSetting(ctx, "fontSize", 14))

	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dark", settings["theme"])
	assert.Equal(t, float64(14), settings["fontSize"])
	assert.Len(t, settings, 5)

	rec, err := s.Get(ctx, Settings, "theme")
	require.NoError(t, err)
	assert.NotContains(t, rec, "createdAt", "settings carry no timestamps")
}

func TestSetting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, ok, err := s.Setting(ctx, "autoSync")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, true, v)

	_, ok, err = s.Setting(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
