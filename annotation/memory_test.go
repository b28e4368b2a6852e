package annotation_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/spectro"
	"github.com/gogpu/spectro/annotation"
	"github.com/gogpu/spectro/annotation/storetest"
	"github.com/gogpu/spectro/geometry"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, clock *storetest.Clock) annotation.Store {
		return annotation.NewMemoryStore(annotation.WithClock(clock.Now))
	})
}

func TestAnnotationJSON(t *testing.T) {
	clock := storetest.NewClock()
	a := annotation.Annotation{
		RecordingID: "rec-1",
		Geometry:    geometry.TimeInterval{Coordinates: [2]float64{1, 2}},
		Tags:        []string{"bird"},
	}
	require.NoError(t, annotation.PrepareCreate(&a, clock.Now()))

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"geometry":{"type":"TimeInterval","coordinates":[1,2]}`)

	var back annotation.Annotation
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, a, back)
}

func TestVisible(t *testing.T) {
	in := &annotation.Annotation{Geometry: geometry.Point{Coordinates: geometry.Pos(2, 100)}}
	out := &annotation.Annotation{Geometry: geometry.Point{Coordinates: geometry.Pos(9, 100)}}

	got := annotation.Visible([]*annotation.Annotation{in, out}, spectro.Win(0, 5, 0, 1000))
	assert.Equal(t, []*annotation.Annotation{in}, got)
}
