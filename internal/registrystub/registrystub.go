// Package registrystub provides a minimal, in-memory cache.Source and
// cache.Encoder so cmd/hydradiscovery can run standalone.
//
// spec.md §1 names the instance-registry data store and serialization
// codecs as external collaborators ResponseCache never implements; a
// real deployment replaces this package with one backed by whatever
// registry storage and wire codec the embedding application already
// has. This plays the same "external state the core never owns" role
// the teacher's internal/database plays for HydraDNS's zone records,
// scaled down to the bare contract cache.Source/cache.Encoder require.
package registrystub

import (
	"encoding/json"
	"sync"

	"github.com/hydradiscovery/hydradiscovery/internal/cache"
)

// Store is a goroutine-safe, process-local instance registry. It has no
// durability: restarting the process empties it, matching spec.md §6's
// "Persisted state: none" for the discovery core itself.
type Store struct {
	mu   sync.RWMutex
	apps map[string][]cache.Instance
}

// New builds an empty Store.
func New() *Store {
	return &Store{apps: map[string][]cache.Instance{}}
}

// Put registers instance under appName, replacing any prior instance
// with the same ID.
func (s *Store) Put(appName string, inst cache.Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.apps[appName]
	for i, e := range existing {
		if e.ID == inst.ID {
			existing[i] = inst
			return
		}
	}
	s.apps[appName] = append(existing, inst)
}

// Remove drops the instance identified by (appName, id), if present.
func (s *Store) Remove(appName, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.apps[appName]
	for i, e := range existing {
		if e.ID == id {
			s.apps[appName] = append(existing[:i], existing[i+1:]...)
			return
		}
	}
}

// AllApplications implements cache.Source. regions is accepted for
// interface conformance but unused: this stub keeps no per-instance
// region metadata.
func (s *Store) AllApplications(regions []string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(map[string][]cache.Instance, len(s.apps))
	for name, instances := range s.apps {
		snapshot[name] = append([]cache.Instance(nil), instances...)
	}
	return snapshot, nil
}

// Delta implements cache.Source. This stub has no incremental log, so a
// delta request returns the same full snapshot AllApplications would.
func (s *Store) Delta(regions []string) (any, error) {
	return s.AllApplications(regions)
}

// Application implements cache.Source.
func (s *Store) Application(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	instances, ok := s.apps[name]
	if !ok {
		return nil, false
	}
	return append([]cache.Instance(nil), instances...), true
}

// Instances implements cache.Source.
func (s *Store) Instances() ([]cache.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []cache.Instance
	for _, instances := range s.apps {
		all = append(all, instances...)
	}
	return all, nil
}

// JSONEncoder implements cache.Encoder with plain encoding/json,
// ignoring contentType/level beyond what the caller already filtered
// into v. A real deployment swaps this for whatever XML/JSON codec its
// client population negotiates.
type JSONEncoder struct{}

// Encode implements cache.Encoder.
func (JSONEncoder) Encode(contentType string, level cache.AcceptLevel, v any) ([]byte, error) {
	return json.Marshal(v)
}
