package monitor

import (
	"context"
	"sort"
	"sync"
)

// ResultStore keeps the latest published result per zone. It backs the HTTP
// read surface and doubles as the in-process Publisher.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]ZoneResult
}

// NewResultStore creates an empty ResultStore.
func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]ZoneResult)}
}

// Publish stores the result, replacing any previous one for the zone.
func (s *ResultStore) Publish(_ context.Context, result ZoneResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.Zone] = result
	return nil
}

// Get returns the latest result for a zone, if one has been published.
func (s *ResultStore) Get(zone string) (ZoneResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[zone]
	return res, ok
}

// List returns all stored results sorted by zone name.
func (s *ResultStore) List() []ZoneResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ZoneResult, 0, len(s.results))
	for _, res := range s.results {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Zone < out[j].Zone })
	return out
}

// MultiPublisher fans a result out to several publishers in order. The
// first failure aborts the fanout and fails the cycle, so earlier
// publishers may see a result again when the cycle retries.
type MultiPublisher []Publisher

// Publish implements Publisher.
func (m MultiPublisher) Publish(ctx context.Context, result ZoneResult) error {
	for _, p := range m {
		if err := p.Publish(ctx, result); err != nil {
			return err
		}
	}
	return nil
}
