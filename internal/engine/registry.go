package engine

import (
	"fmt"

	"binwatch-backend/internal/models"
)

var defaultBins = []models.Bin{
	{ID: 1, Name: "General Waste", CapacityLiters: models.DefaultCapacityLiters, Color: "gray"},
	{ID: 2, Name: "Recycling", CapacityLiters: models.DefaultCapacityLiters, Color: "blue"},
	{ID: 3, Name: "Organic", CapacityLiters: models.DefaultCapacityLiters, Color: "green"},
	{ID: 4, Name: "Glass", CapacityLiters: models.DefaultCapacityLiters, Color: "amber"},
}

// Registry is the fixed, ordered set of bins the engine tracks.
type Registry struct {
	bins  []models.Bin
	index map[int]int
}

// NewRegistry validates bins and fixes their order. Ids must be unique and
// ascending; capacity must be positive.
func NewRegistry(bins []models.Bin) (*Registry, error) {
	if len(bins) == 0 {
		return nil, fmt.Errorf("registry needs at least one bin")
	}

	r := &Registry{
		bins:  make([]models.Bin, len(bins)),
		index: make(map[int]int, len(bins)),
	}
	for i, b := range bins {
		if _, dup := r.index[b.ID]; dup {
			return nil, fmt.Errorf("duplicate bin id %d", b.ID)
		}
		if i > 0 && b.ID <= bins[i-1].ID {
			return nil, fmt.Errorf("bin ids must be ascending: %d after %d", b.ID, bins[i-1].ID)
		}
		if b.CapacityLiters <= 0 {
			return nil, fmt.Errorf("bin %d: capacity must be positive", b.ID)
		}
		r.bins[i] = b
		r.index[b.ID] = i
	}
	return r, nil
}

// DefaultRegistry returns the four-bin deployment registry.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultBins)
	if err != nil {
		panic(err)
	}
	return r
}

// RegistryWithNames returns the default registry with display names
// replaced. names must have exactly one entry per default bin.
func RegistryWithNames(names []string) (*Registry, error) {
	if len(names) != len(defaultBins) {
		return nil, fmt.Errorf("expected %d bin names, got %d", len(defaultBins), len(names))
	}
	bins := make([]models.Bin, len(defaultBins))
	copy(bins, defaultBins)
	for i, n := range names {
		if n == "" {
			return nil, fmt.Errorf("bin %d: empty name", bins[i].ID)
		}
		bins[i].Name = n
	}
	return NewRegistry(bins)
}

// Bins returns the bins in canonical order.
func (r *Registry) Bins() []models.Bin {
	out := make([]models.Bin, len(r.bins))
	copy(out, r.bins)
	return out
}

func (r *Registry) Len() int { return len(r.bins) }

// Lookup returns the bin with the given id.
func (r *Registry) Lookup(id int) (models.Bin, bool) {
	i, ok := r.index[id]
	if !ok {
		return models.Bin{}, false
	}
	return r.bins[i], true
}

func (r *Registry) position(id int) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}
