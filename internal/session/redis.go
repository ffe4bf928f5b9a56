package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"example.com/ecoguard/internal/cache"
	"example.com/ecoguard/internal/models"

	pkgerrors "github.com/pkg/errors"
)

const keyPrefix = "ecoguard:session:"

// RedisStore keeps sessions in Redis so they survive restarts and are shared
// between replicas. Expiry is delegated to the key TTL.
type RedisStore struct {
	client cache.RedisClient
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a store backed by client. A zero ttl disables expiry.
func NewRedisStore(client cache.RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func (r *RedisStore) Create(ctx context.Context, username string, role models.Role) (*Session, error) {
	s := newSession(username, role, r.now(), r.ttl)

	data, err := json.Marshal(s)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "encode session")
	}
	if err := r.client.Set(ctx, keyPrefix+s.Token, string(data), r.ttl); err != nil {
		return nil, pkgerrors.Wrap(err, "store session")
	}
	return s, nil
}

func (r *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	raw, err := r.client.Get(ctx, keyPrefix+token)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load session")
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, pkgerrors.Wrap(err, "decode session")
	}
	if s.Expired(r.now()) {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *RedisStore) Invalidate(ctx context.Context, token string) error {
	return pkgerrors.Wrap(r.client.Delete(ctx, keyPrefix+token), "delete session")
}

// Sweep is a no-op; Redis expires keys on its own.
func (r *RedisStore) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}

// Close leaves the shared Redis client open; its owner closes it.
func (r *RedisStore) Close() error {
	return nil
}
