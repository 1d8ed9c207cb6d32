package cart

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	cart    Cart
	touched time.Time
}

// MemStore keeps carts in process memory. A cart not written for ttl reads
// as empty and is dropped; ttl <= 0 keeps carts until they are cleared.
type MemStore struct {
	mu        sync.Mutex
	carts     map[string]memEntry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewMemStore(ttl time.Duration) *MemStore {
	return &MemStore{carts: make(map[string]memEntry), ttl: ttl, now: time.Now}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Get(ctx context.Context, sessionID string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(sessionID, s.now()).Clone(), nil
}

func (s *MemStore) Update(ctx context.Context, sessionID string, op Op) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	next := Apply(s.live(sessionID, now), op)
	s.put(sessionID, next, now)
	s.sweep(now)
	return next.Clone(), nil
}

func (s *MemStore) Take(ctx context.Context, sessionID string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	before := s.live(sessionID, now)
	delete(s.carts, sessionID)
	s.sweep(now)
	if before == nil {
		before = Cart{}
	}
	return before, nil
}

// Sessions reports how many sessions currently hold a live, non-empty cart.
func (s *MemStore) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, e := range s.carts {
		if !s.expired(e, now) {
			n++
		}
	}
	return n
}

// live returns the stored cart, dropping it first when it has expired.
func (s *MemStore) live(sessionID string, now time.Time) Cart {
	e, ok := s.carts[sessionID]
	if !ok {
		return nil
	}
	if s.expired(e, now) {
		delete(s.carts, sessionID)
		return nil
	}
	return e.cart
}

func (s *MemStore) put(sessionID string, c Cart, now time.Time) {
	if len(c) == 0 {
		delete(s.carts, sessionID)
		return
	}
	s.carts[sessionID] = memEntry{cart: c, touched: now}
}

func (s *MemStore) expired(e memEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.touched) >= s.ttl
}

// sweep drops abandoned carts at most once per ttl.
func (s *MemStore) sweep(now time.Time) {
	if s.ttl <= 0 || now.Sub(s.lastSweep) < s.ttl {
		return
	}
	s.lastSweep = now
	for id, e := range s.carts {
		if s.expired(e, now) {
			delete(s.carts, id)
		}
	}
}
