package features

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/velora-tech/fraudsight/pkg/errors"
	"github.com/velora-tech/fraudsight/pkg/models"
)

const (
	stateKeyPrefix = "fraudsight:userstate:"
	// Rolling state expires after the behavioral lookback window.
	stateTTL = 30 * 24 * time.Hour
)

// UserState is the rolling per-user aggregate consulted during realtime
// scoring. Amount statistics use Welford accumulation.
type UserState struct {
	Count        int64     `json:"count"`
	Mean         float64   `json:"mean"`
	M2           float64   `json:"m2"`
	LastSeen     time.Time `json:"last_seen"`
	LastLocation string    `json:"last_location"`
	LastDevice   string    `json:"last_device"`
	LastCategory string    `json:"last_category"`
}

// Observe folds one transaction into the rolling aggregate.
func (s *UserState) Observe(t *models.Transaction) {
	amount := t.AmountFloat()
	s.Count++
	delta := amount - s.Mean
	s.Mean += delta / float64(s.Count)
	s.M2 += delta * (amount - s.Mean)
	if t.Timestamp.After(s.LastSeen) {
		s.LastSeen = t.Timestamp
		s.LastLocation = t.Location
		s.LastDevice = t.DeviceID
		s.LastCategory = t.MerchantCategory
	}
}

// Std returns the sample standard deviation of observed amounts.
func (s *UserState) Std() float64 {
	if s.Count < 2 {
		return 0
	}
	return math.Sqrt(s.M2 / float64(s.Count-1))
}

// StateStore persists rolling user state between scoring calls. Get returns
// (nil, nil) for users without state.
type StateStore interface {
	Get(ctx context.Context, userID string) (*UserState, error)
	Put(ctx context.Context, userID string, state *UserState) error
}

// MemoryStateStore keeps user state in process memory. It backs tests and
// deployments without redis.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]UserState
}

// NewMemoryStateStore builds an empty in-memory store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]UserState)}
}

// Get implements StateStore.
func (m *MemoryStateStore) Get(_ context.Context, userID string) (*UserState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[userID]
	if !ok {
		return nil, nil
	}
	out := s
	return &out, nil
}

// Put implements StateStore.
func (m *MemoryStateStore) Put(_ context.Context, userID string, state *UserState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[userID] = *state
	return nil
}

// Len returns the number of users with stored state.
func (m *MemoryStateStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}

// RedisStateStore keeps user state in redis so multiple scorer instances
// share it.
type RedisStateStore struct {
	client redis.UniversalClient
}

// NewRedisStateStore builds a store over an existing redis client.
func NewRedisStateStore(client redis.UniversalClient) *RedisStateStore {
	return &RedisStateStore{client: client}
}

// Get implements StateStore.
func (r *RedisStateStore) Get(ctx context.Context, userID string) (*UserState, error) {
	raw, err := r.client.Get(ctx, stateKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewWithKind(errors.KindStorage, "load user state").Wrap(err)
	}
	var state UserState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, errors.NewWithKind(errors.KindStorage, "decode user state").Wrap(err)
	}
	return &state, nil
}

// Put implements StateStore.
func (r *RedisStateStore) Put(ctx context.Context, userID string, state *UserState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return errors.New("encode user state").Wrap(err)
	}
	if err := r.client.Set(ctx, stateKeyPrefix+userID, raw, stateTTL).Err(); err != nil {
		return errors.NewWithKind(errors.KindStorage, "store user state").Wrap(err)
	}
	return nil
}
