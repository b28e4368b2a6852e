package annotation

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	opts Options

	mu   sync.RWMutex
	byID map[uuid.UUID]*Annotation
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		opts: NewOptions(opts...),
		byID: make(map[uuid.UUID]*Annotation),
	}
}

func (s *MemoryStore) Create(_ context.Context, a *Annotation) error {
	if err := PrepareCreate(a, s.opts.Now().UTC()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[a.ID]; ok {
		return fmt.Errorf("annotation: duplicate id %s", a.ID)
	}
	s.byID[a.ID] = a.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, a *Annotation) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byID[a.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, a.ID)
	}
	a.CreatedAt = old.CreatedAt
	a.UpdatedAt = s.opts.Now().UTC()
	s.byID[a.ID] = a.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.byID, id)
	return nil
}

func (s *MemoryStore) ListByRecording(_ context.Context, recordingID string) ([]*Annotation, error) {
	s.mu.RLock()
	var out []*Annotation
	for _, a := range s.byID {
		if a.RecordingID == recordingID {
			out = append(out, a.Clone())
		}
	}
	s.mu.RUnlock()
	SortByCreation(out)
	return out, nil
}

// SortByCreation orders anns by CreatedAt, breaking ties by ID.
func SortByCreation(anns []*Annotation) {
	slices.SortFunc(anns, func(a, b *Annotation) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
}
