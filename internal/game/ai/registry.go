package ai

import (
	"fmt"
	"sort"
)

// Registry indexes Profiles by ID.
//
// Invariant: each profile ID is registered at most once.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]*Profile)}
}

// Register stores profile.
//
// Precondition: profile must not be nil.
// Postcondition: returns error on ID collision or invalid profile.
func (r *Registry) Register(profile *Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if _, exists := r.profiles[profile.ID]; exists {
		return fmt.Errorf("ai.Registry: profile %q already registered", profile.ID)
	}
	r.profiles[profile.ID] = profile
	return nil
}

// ProfileFor returns the Profile for id, or false if not registered.
func (r *Registry) ProfileFor(id string) (*Profile, bool) {
	p, ok := r.profiles[id]
	return p, ok
}

// IDs returns the registered profile IDs in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
