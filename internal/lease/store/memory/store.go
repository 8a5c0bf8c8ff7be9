// Package memory is an in-process property repository used by tests and by
// the server when no database is configured.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"leasehold/internal/lease/models"
	id "leasehold/pkg/domain"
	"leasehold/pkg/platform/sentinel"
)

// Store keeps snapshots in a map. Snapshots are cloned on the way in and out so
// callers never share mutable state with the store.
type Store struct {
	mu         sync.RWMutex
	properties map[id.PropertyID]models.PropertySnapshot
}

func New() *Store {
	return &Store{properties: make(map[id.PropertyID]models.PropertySnapshot)}
}

func (s *Store) GetSnapshot(_ context.Context, propertyID id.PropertyID) (*models.PropertySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.properties[propertyID]
	if !ok {
		return nil, nil
	}
	c := snap.Clone()
	return &c, nil
}

// GetAllProperties returns snapshots ordered by internal name so sweeps are deterministic.
func (s *Store) GetAllProperties(_ context.Context) ([]models.PropertySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PropertySnapshot, 0, len(s.properties))
	for _, snap := range s.properties {
		out = append(out, snap.Clone())
	}
	sortByName(out)
	return out, nil
}

func (s *Store) ListByArea(_ context.Context, areaTag string) ([]models.PropertySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.PropertySnapshot
	for _, snap := range s.properties {
		if snap.Definition.AreaTag == areaTag {
			out = append(out, snap.Clone())
		}
	}
	sortByName(out)
	return out, nil
}

func (s *Store) PersistRental(_ context.Context, snapshot models.PropertySnapshot) (models.PropertySnapshot, error) {
	if err := snapshot.Validate(); err != nil {
		return snapshot, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.properties[snapshot.ID()]
	if !ok {
		return snapshot, fmt.Errorf("property %s: %w", snapshot.ID(), sentinel.ErrNotFound)
	}
	if current.Version != snapshot.Version {
		return snapshot, fmt.Errorf("property %s at version %d, write based on %d: %w",
			snapshot.ID(), current.Version, snapshot.Version, sentinel.ErrConflict)
	}

	stored := snapshot.Clone()
	stored.Version = current.Version + 1
	s.properties[stored.ID()] = stored
	return stored.Clone(), nil
}

func (s *Store) CreateIfAbsent(_ context.Context, snapshot models.PropertySnapshot) (bool, error) {
	if err := snapshot.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.properties[snapshot.ID()]; ok {
		return false, nil
	}
	s.properties[snapshot.ID()] = snapshot.Clone()
	return true, nil
}

// Put stores snapshot as-is, bypassing validation and version checks. Tests use
// it to set up states that normal writes reject.
func (s *Store) Put(snapshot models.PropertySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[snapshot.ID()] = snapshot.Clone()
}

func sortByName(snaps []models.PropertySnapshot) {
	slices.SortFunc(snaps, func(a, b models.PropertySnapshot) int {
		return cmp.Or(
			strings.Compare(a.Definition.InternalName, b.Definition.InternalName),
			strings.Compare(a.ID().String(), b.ID().String()),
		)
	})
}
