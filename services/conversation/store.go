package conversation

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"corvex/models"

	"github.com/go-redis/redis/v8"
)

const (
	sessionKeyPrefix = "chat:session:"
	activeKeyPrefix  = "chat:active:"
)

// RedisSessionStore keeps chat session state in Redis with a TTL, so idle
// sessions age out on their own.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*models.ChatSessionState, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state models.ChatSessionState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *RedisSessionStore) Set(ctx context.Context, state *models.ChatSessionState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKeyPrefix+state.SessionID, b, s.ttl).Err()
}

func (s *RedisSessionStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, sessionKeyPrefix+sessionID).Err()
}

func (s *RedisSessionStore) ActiveID(ctx context.Context, clientKey string) (string, error) {
	id, err := s.client.Get(ctx, activeKeyPrefix+clientKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *RedisSessionStore) SetActiveID(ctx context.Context, clientKey, sessionID string) error {
	if sessionID == "" {
		return s.client.Del(ctx, activeKeyPrefix+clientKey).Err()
	}
	return s.client.Set(ctx, activeKeyPrefix+clientKey, sessionID, s.ttl).Err()
}

// MemorySessionStore is a process-local store used in tests and local
// development runs without Redis.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.ChatSessionState
	active   map[string]string
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]models.ChatSessionState),
		active:   make(map[string]string),
	}
}

func (s *MemorySessionStore) Get(ctx context.Context, sessionID string) (*models.ChatSessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := state
	cp.Messages = append([]models.Message(nil), state.Messages...)
	return &cp, nil
}

func (s *MemorySessionStore) Set(ctx context.Context, state *models.ChatSessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *state
	cp.Messages = append([]models.Message(nil), state.Messages...)
	s.sessions[state.SessionID] = cp
	return nil
}

func (s *MemorySessionStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemorySessionStore) ActiveID(ctx context.Context, clientKey string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[clientKey], nil
}

func (s *MemorySessionStore) SetActiveID(ctx context.Context, clientKey, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sessionID == "" {
		delete(s.active, clientKey)
		return nil
	}
	s.active[clientKey] = sessionID
	return nil
}
