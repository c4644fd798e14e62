package datasource

import (
	"context"
	"slices"
	"sync"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
)

// StaticSource is an in-memory DataSource. It is safe for concurrent use.
type StaticSource struct {
	data    map[entities.DataID][]byte
	mu      sync.RWMutex
	current entities.DataID
}

// NewStaticSource creates a StaticSource holding a copy of data.
func NewStaticSource(data map[entities.DataID][]byte) *StaticSource {
	s := &StaticSource{data: make(map[entities.DataID][]byte, len(data))}
	for id, v := range data {
		s.data[id] = slices.Clone(v)
	}
	return s
}

// Name implements the source label used in errors and metrics.
func (s *StaticSource) Name() string { return "static" }

// Set stores value under id.
func (s *StaticSource) Set(id entities.DataID, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = slices.Clone(value)
}

// SetCurrent sets the id returned by CurrentDataID.
func (s *StaticSource) SetCurrent(id entities.DataID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
}

// Fetch returns a copy of the value stored under id, or errors.ErrDataNotFound.
func (s *StaticSource) Fetch(_ context.Context, id entities.DataID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[id]
	if !ok {
		return nil, domainerrors.ErrDataNotFound
	}
	return slices.Clone(v), nil
}

// CurrentDataID returns the id set by SetCurrent.
func (s *StaticSource) CurrentDataID(context.Context) (entities.DataID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}
