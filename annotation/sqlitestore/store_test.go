package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/spectro/annotation"
	"github.com/gogpu/spectro/annotation/storetest"
	"github.com/gogpu/spectro/geometry"
)

func openTemp(t *testing.T, opts ...annotation.Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "annotations.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, clock *storetest.Clock) annotation.Store {
		return openTemp(t, annotation.WithClock(clock.Now))
	})
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "annotations.db")

	s, err := Open(path)
	require.NoError(t, err)
	a := &annotation.Annotation{
		RecordingID: "rec-1",
		Geometry:    geometry.Point{Coordinates: geometry.Pos(1, 2)},
	}
	require.NoError(t, s.Create(ctx, a))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Geometry, got.Geometry)
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt))
}
