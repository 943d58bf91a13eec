package engine

import (
	"time"

	"binwatch-backend/internal/models"
)

// binRecord is the only mutable per-bin data. Status is never stored.
type binRecord struct {
	fillLevel     int
	lastEmptiedAt *time.Time
}

// stateStore holds fill levels for the registry bins, indexed by registry
// position. It is not synchronized; Engine serializes access.
type stateStore struct {
	registry *Registry
	seed     []int
	records  []binRecord
}

func newStateStore(registry *Registry, seed map[int]int) *stateStore {
	s := &stateStore{
		registry: registry,
		seed:     make([]int, registry.Len()),
		records:  make([]binRecord, registry.Len()),
	}
	for id, level := range seed {
		if i, ok := registry.position(id); ok {
			s.seed[i] = models.ClampFillLevel(level)
		}
	}
	s.reset()
	return s
}

// applyReading stores a clamped fill level and returns the new state.
func (s *stateStore) applyReading(binID, level int) (models.BinState, error) {
	i, ok := s.registry.position(binID)
	if !ok {
		return models.BinState{}, &NotFoundError{BinID: binID}
	}
	s.records[i].fillLevel = models.ClampFillLevel(level)
	return s.stateAt(i), nil
}

func (s *stateStore) read(binID int) (models.BinState, error) {
	i, ok := s.registry.position(binID)
	if !ok {
		return models.BinState{}, &NotFoundError{BinID: binID}
	}
	return s.stateAt(i), nil
}

// readAll returns every bin in registry order.
func (s *stateStore) readAll() []models.BinState {
	out := make([]models.BinState, len(s.records))
	for i := range s.records {
		out[i] = s.stateAt(i)
	}
	return out
}

func (s *stateStore) emptyBin(binID int, now time.Time) (models.BinState, error) {
	i, ok := s.registry.position(binID)
	if !ok {
		return models.BinState{}, &NotFoundError{BinID: binID}
	}
	t := now
	s.records[i].fillLevel = 0
	s.records[i].lastEmptiedAt = &t
	return s.stateAt(i), nil
}

// emptyAll empties every bin holding waste and returns the ids it touched.
func (s *stateStore) emptyAll(now time.Time) []int {
	var ids []int
	for i, b := range s.registry.bins {
		if s.records[i].fillLevel == 0 {
			continue
		}
		t := now
		s.records[i].fillLevel = 0
		s.records[i].lastEmptiedAt = &t
		ids = append(ids, b.ID)
	}
	return ids
}

func (s *stateStore) reset() {
	for i := range s.records {
		s.records[i] = binRecord{fillLevel: s.seed[i]}
	}
}

func (s *stateStore) stateAt(i int) models.BinState {
	b := s.registry.bins[i]
	r := s.records[i]
	st := models.BinState{
		BinID:          b.ID,
		Name:           b.Name,
		Color:          b.Color,
		CapacityLiters: b.CapacityLiters,
		FillLevel:      r.fillLevel,
		Status:         models.StatusFor(r.fillLevel),
		VolumeLiters:   models.VolumeLiters(r.fillLevel, b.CapacityLiters),
	}
	if r.lastEmptiedAt != nil {
		t := *r.lastEmptiedAt
		st.LastEmptiedAt = &t
	}
	return st
}
