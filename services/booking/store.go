package booking

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"corvex/models"

	"github.com/go-redis/redis/v8"
)

const bookingKeyPrefix = "booking:state:"

// RedisBookingStore keeps modal state in Redis so a page reload mid-flow
// does not lose the loaded slots.
type RedisBookingStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisBookingStore(client *redis.Client, ttl time.Duration) *RedisBookingStore {
	return &RedisBookingStore{client: client, ttl: ttl}
}

func (s *RedisBookingStore) Get(ctx context.Context, sessionID string) (*models.BookingState, error) {
	data, err := s.client.Get(ctx, bookingKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state models.BookingState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *RedisBookingStore) Set(ctx context.Context, state *models.BookingState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, bookingKeyPrefix+state.SessionID, b, s.ttl).Err()
}

func (s *RedisBookingStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, bookingKeyPrefix+sessionID).Err()
}

// MemoryBookingStore is the in-process counterpart used by tests.
type MemoryBookingStore struct {
	mu     sync.RWMutex
	states map[string]models.BookingState
}

func NewMemoryBookingStore() *MemoryBookingStore {
	return &MemoryBookingStore{states: make(map[string]models.BookingState)}
}

func (s *MemoryBookingStore) Get(ctx context.Context, sessionID string) (*models.BookingState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sessionID]
	if !ok {
		return nil, nil
	}
	cp := state
	cp.Slots = append([]models.DateSlot(nil), state.Slots...)
	if state.Selection != nil {
		sel := *state.Selection
		cp.Selection = &sel
	}
	return &cp, nil
}

func (s *MemoryBookingStore) Set(ctx context.Context, state *models.BookingState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *state
	cp.Slots = append([]models.DateSlot(nil), state.Slots...)
	if state.Selection != nil {
		sel := *state.Selection
		cp.Selection = &sel
	}
	s.states[state.SessionID] = cp
	return nil
}

func (s *MemoryBookingStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sessionID)
	return nil
}
