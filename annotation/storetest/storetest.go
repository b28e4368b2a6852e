// Package storetest runs a conformance suite against annotation.Store
// implementations.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/spectro/annotation"
	"github.com/gogpu/spectro/geometry"
)

// Clock is a manually advanced time source.
type Clock struct {
	t time.Time
}

// NewClock returns a clock starting at a fixed UTC instant.
func NewClock() *Clock {
	return &Clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current time and advances the clock by one second.
func (c *Clock) Now() time.Time {
	now := c.t
	c.t = c.t.Add(time.Second)
	return now
}

// Factory builds an empty store using the given clock.
type Factory func(t *testing.T, clock *Clock) annotation.Store

// Run exercises every Store operation.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateGet", func(t *testing.T) { testCreateGet(t, newStore) })
	t.Run("EveryKind", func(t *testing.T) { testEveryKind(t, newStore) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore) })
	t.Run("ListByRecording", func(t *testing.T) { testList(t, newStore) })
	t.Run("Invalid", func(t *testing.T) { testInvalid(t, newStore) })
}

func box() geometry.Geometry {
	return geometry.BoundingBox{Coordinates: [4]float64{1, 200, 3, 800}}
}

func testCreateGet(t *testing.T, newStore Factory) {
	ctx := context.Background()
	clock := NewClock()
	s := newStore(t, clock)

	a := &annotation.Annotation{RecordingID: "rec-1", Geometry: box(), Tags: []string{"bird"}}
	require.NoError(t, s.Create(ctx, a))
	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.False(t, a.CreatedAt.IsZero())
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	// The store keeps its own copy.
	got.Tags[0] = "frog"
	again, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bird"}, again.Tags)

	_, err = s.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, annotation.ErrNotFound)
}

func testEveryKind(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, NewClock())

	shapes := []geometry.Geometry{
		geometry.TimeStamp{Coordinates: 1.5},
		geometry.TimeInterval{Coordinates: [2]float64{1, 2}},
		box(),
		geometry.Point{Coordinates: geometry.Pos(1, 100)},
		geometry.MultiPoint{Coordinates: []geometry.Position{geometry.Pos(1, 100), geometry.Pos(2, 200)}},
		geometry.LineString{Coordinates: []geometry.Position{geometry.Pos(1, 100), geometry.Pos(2, 200)}},
		geometry.MultiLineString{Coordinates: [][]geometry.Position{{geometry.Pos(1, 100), geometry.Pos(2, 200)}}},
		geometry.Polygon{Coordinates: [][]geometry.Position{
			{geometry.Pos(1, 100), geometry.Pos(2, 100), geometry.Pos(2, 200), geometry.Pos(1, 100)},
		}},
		geometry.MultiPolygon{Coordinates: [][][]geometry.Position{{
			{geometry.Pos(1, 100), geometry.Pos(2, 100), geometry.Pos(2, 200), geometry.Pos(1, 100)},
		}}},
	}
	for _, g := range shapes {
		a := &annotation.Annotation{RecordingID: "rec-1", Geometry: g}
		require.NoError(t, s.Create(ctx, a), g.Kind())
		got, err := s.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, g, got.Geometry, g.Kind())
	}
}

func testUpdate(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, NewClock())

	a := &annotation.Annotation{RecordingID: "rec-1", Geometry: box()}
	require.NoError(t, s.Create(ctx, a))
	created := a.CreatedAt

	a.Geometry = geometry.Point{Coordinates: geometry.Pos(2, 400)}
	a.Tags = []string{"edited"}
	require.NoError(t, s.Update(ctx, a))
	assert.Equal(t, created, a.CreatedAt)
	assert.True(t, a.UpdatedAt.After(created))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	missing := &annotation.Annotation{ID: uuid.New(), RecordingID: "rec-1", Geometry: box()}
	assert.ErrorIs(t, s.Update(ctx, missing), annotation.ErrNotFound)
}

func testDelete(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, NewClock())

	a := &annotation.Annotation{RecordingID: "rec-1", Geometry: box()}
	require.NoError(t, s.Create(ctx, a))
	require.NoError(t, s.Delete(ctx, a.ID))

	_, err := s.Get(ctx, a.ID)
	assert.ErrorIs(t, err, annotation.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, a.ID), annotation.ErrNotFound)
}

func testList(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, NewClock())

	var want []uuid.UUID
	for i := range 3 {
		a := &annotation.Annotation{
			RecordingID: "rec-1",
			Geometry:    geometry.TimeStamp{Coordinates: float64(i)},
		}
		require.NoError(t, s.Create(ctx, a))
		want = append(want, a.ID)
	}
	require.NoError(t, s.Create(ctx, &annotation.Annotation{RecordingID: "rec-2", Geometry: box()}))

	list, err := s.ListByRecording(ctx, "rec-1")
	require.NoError(t, err)
	var got []uuid.UUID
	for _, a := range list {
		got = append(got, a.ID)
	}
	assert.Equal(t, want, got)

	empty, err := s.ListByRecording(ctx, "rec-3")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testInvalid(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, NewClock())

	err := s.Create(ctx, &annotation.Annotation{Geometry: box()})
	assert.ErrorIs(t, err, annotation.ErrInvalid)

	err = s.Create(ctx, &annotation.Annotation{
		RecordingID: "rec-1",
		Geometry:    geometry.LineString{Coordinates: []geometry.Position{geometry.Pos(1, 1)}},
	})
	assert.ErrorIs(t, err, annotation.ErrInvalid)
	assert.ErrorIs(t, err, geometry.ErrInvalid)
}
