package plan

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long an unexecuted plan is kept.
const DefaultTTL = 15 * time.Minute

// Store holds plans between creation and execution.
type Store interface {
	Save(ctx context.Context, p *Plan) error
	// Get returns a copy of the plan without removing it.
	Get(ctx context.Context, id string) (*Plan, error)
	// Take removes and returns the plan. Only one caller can take a plan.
	Take(ctx context.Context, id string) (*Plan, error)
	Delete(ctx context.Context, id string) error
}

type storedPlan struct {
	plan      *Plan
	expiresAt time.Time
}

// MemoryStore is an in-process Store with expiry.
//
// Expired plans are invisible to Get and Take immediately and are removed
// from memory by Sweep, which Run calls periodically.
type MemoryStore struct {
	mu    sync.Mutex
	plans map[string]storedPlan
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryStore creates a store. A non-positive ttl uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		plans: make(map[string]storedPlan),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Save stores a copy of p, replacing any plan with the same ID.
func (s *MemoryStore) Save(_ context.Context, p *Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = storedPlan{plan: p.Clone(), expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.live(id)
	if !ok {
		return nil, ErrPlanNotFound
	}
	return sp.plan.Clone(), nil
}

// Take implements Store.
func (s *MemoryStore) Take(_ context.Context, id string) (*Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.live(id)
	if !ok {
		return nil, ErrPlanNotFound
	}
	delete(s.plans, id)
	return sp.plan, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(id); !ok {
		return ErrPlanNotFound
	}
	delete(s.plans, id)
	return nil
}

// live must be called with mu held.
func (s *MemoryStore) live(id string) (storedPlan, bool) {
	sp, ok := s.plans[id]
	if !ok || !s.now().Before(sp.expiresAt) {
		return storedPlan{}, false
	}
	return sp, true
}

// Len returns the number of stored plans, expired ones included until swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.plans)
}

// Sweep removes expired plans and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, sp := range s.plans {
		if !now.Before(sp.expiresAt) {
			delete(s.plans, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
