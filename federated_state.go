package learnauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// federatedStateStore keeps outstanding OAuth2 state tokens in Redis. Each
// token is single use; Consume removes it atomically so a replayed callback
// cannot succeed.
type federatedStateStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func newFederatedStateStore(redisClient redis.UniversalClient, prefix string, ttl time.Duration) *federatedStateStore {
	if prefix == "" {
		prefix = defaultSessionPrefix
	}
	return &federatedStateStore{redis: redisClient, prefix: prefix, ttl: ttl}
}

func (s *federatedStateStore) key(state string) string {
	return s.prefix + ":fst:" + state
}

// Save registers a freshly minted state token. The stored value records when
// the round trip began, useful when inspecting stuck flows by hand.
func (s *federatedStateStore) Save(ctx context.Context, state string) error {
	if err := s.redis.Set(ctx, s.key(state), time.Now().Unix(), s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Consume validates and deletes a state token in one round trip. It returns
// ErrProviderStateInvalid for unknown, expired or already consumed tokens.
func (s *federatedStateStore) Consume(ctx context.Context, state string) error {
	if state == "" {
		return ErrProviderStateInvalid
	}

	err := s.redis.GetDel(ctx, s.key(state)).Err()
	if errors.Is(err, redis.Nil) {
		return ErrProviderStateInvalid
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
