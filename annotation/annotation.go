// Package annotation holds sound event annotations and the Store interface
// through which they are persisted.
//
// Only data-space geometries cross the Store boundary. Pixel-space
// geometries used while editing are never stored.
package annotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/gogpu/spectro"
	"github.com/gogpu/spectro/geometry"
)

// Errors returned by stores.
var (
	ErrNotFound = errors.New("annotation: not found")
	ErrInvalid  = errors.New("annotation: invalid")
)

// Annotation is a geometry drawn over a recording, with optional tags.
type Annotation struct {
	ID          uuid.UUID
	RecordingID string
	Geometry    geometry.Geometry
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type wireAnnotation struct {
	ID          uuid.UUID       `json:"uuid"`
	RecordingID string          `json:"recording_uuid"`
	Geometry    json.RawMessage `json:"geometry"`
	Tags        []string        `json:"tags"`
	CreatedAt   time.Time       `json:"created_on"`
	UpdatedAt   time.Time       `json:"updated_on"`
}

// MarshalJSON encodes the geometry in its {"type","coordinates"} form.
func (a Annotation) MarshalJSON() ([]byte, error) {
	g, err := geometry.Marshal(a.Geometry)
	if err != nil {
		return nil, err
	}
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(wireAnnotation{
		ID:          a.ID,
		RecordingID: a.RecordingID,
		Geometry:    g,
		Tags:        tags,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	var w wireAnnotation
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	g, err := geometry.Unmarshal(w.Geometry)
	if err != nil {
		return err
	}
	*a = Annotation{
		ID:          w.ID,
		RecordingID: w.RecordingID,
		Geometry:    g,
		Tags:        w.Tags,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
	return nil
}

// Clone returns a deep copy of a.
func (a *Annotation) Clone() *Annotation {
	if a == nil {
		return nil
	}
	c := *a
	c.Geometry = geometry.Clone(a.Geometry)
	c.Tags = slices.Clone(a.Tags)
	return &c
}

// Validate checks that a can be stored.
func (a *Annotation) Validate() error {
	if a.RecordingID == "" {
		return fmt.Errorf("%w: missing recording id", ErrInvalid)
	}
	if err := geometry.Validate(a.Geometry); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Store persists annotations.
type Store interface {
	// Create assigns an ID when a.ID is zero, sets the timestamps and
	// stores a copy of a.
	Create(ctx context.Context, a *Annotation) error
	Get(ctx context.Context, id uuid.UUID) (*Annotation, error)
	// Update replaces an existing annotation and refreshes UpdatedAt.
	Update(ctx context.Context, a *Annotation) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByRecording returns the annotations of a recording ordered by
	// creation time.
	ListByRecording(ctx context.Context, recordingID string) ([]*Annotation, error)
}

// Visible returns the annotations whose geometry intersects window, in
// their original order.
func Visible(anns []*Annotation, window spectro.Window) []*Annotation {
	var out []*Annotation
	for _, a := range anns {
		if geometry.Intersects(a.Geometry, window) {
			out = append(out, a)
		}
	}
	return out
}

// Options configures a store.
type Options struct {
	Now func() time.Time
}

// Option configures a store.
type Option func(*Options)

// WithClock sets the time source for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) Options {
	o := Options{Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// PrepareCreate validates a and fills in its ID and timestamps.
func PrepareCreate(a *Annotation, now time.Time) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}
