package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps connectivity failures to the session backend.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store persists session records in Redis. One record per session id plus
// one index key per principal; the index is what enforces the
// zero-or-one-live-session rule.
type Store struct {
	redis         redis.UniversalClient
	prefix        string
	singleSession bool
}

// NewStore creates a Store. When singleSession is true, saving a session
// for a principal destroys that principal's previous session first.
func NewStore(redisClient redis.UniversalClient, prefix string, singleSession bool) *Store {
	if prefix == "" {
		prefix = "la"
	}
	return &Store{
		redis:         redisClient,
		prefix:        prefix,
		singleSession: singleSession,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) principalKey(principalID string) string {
	return s.prefix + ":p:" + principalID
}

// Save writes the session record and its principal index entry with the
// given TTL. Under single-session mode it displaces any live session the
// principal already has.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	if s.singleSession {
		previous, err := s.redis.Get(ctx, s.principalKey(sess.PrincipalID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if previous != "" && previous != sess.SessionID {
			if err := s.redis.Del(ctx, s.key(previous)).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.SessionID), data, ttl)
		pipe.Set(ctx, s.principalKey(sess.PrincipalID), sess.SessionID, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get retrieves a session by id. Missing, expired, and unreadable sessions
// all return redis.Nil; an expired or corrupt record found before its TTL
// fired is deleted on the spot.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		// A record that no longer decodes cannot authenticate anyone.
		// Remove it and report the session as gone.
		if delErr := s.redis.Del(ctx, s.key(sessionID)).Err(); delErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, delErr)
		}
		return nil, redis.Nil
	}
	sess.SessionID = sessionID

	if time.Now().Unix() >= sess.ExpiresAt {
		if err := s.deleteSessionAndIndex(ctx, sess); err != nil {
			return nil, err
		}
		return nil, redis.Nil
	}

	return sess, nil
}

// Delete destroys a session. Deleting a session that no longer exists is
// not an error; logout must be idempotent.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		// Corrupt blob: still remove the key so the session cannot linger.
		if delErr := s.redis.Del(ctx, s.key(sessionID)).Err(); delErr != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, delErr)
		}
		return nil
	}
	sess.SessionID = sessionID

	return s.deleteSessionAndIndex(ctx, sess)
}

// DeleteForPrincipal destroys the principal's live session, if any.
func (s *Store) DeleteForPrincipal(ctx context.Context, principalID string) error {
	sessionID, err := s.redis.Get(ctx, s.principalKey(principalID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(sessionID))
		pipe.Del(ctx, s.principalKey(principalID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Ping verifies connectivity to the backing store.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) deleteSessionAndIndex(ctx context.Context, sess *Session) error {
	if err := s.redis.Del(ctx, s.key(sess.SessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Only clear the index when it still points at this session; a newer
	// login may have replaced it already.
	current, err := s.redis.Get(ctx, s.principalKey(sess.PrincipalID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if current == sess.SessionID {
		if err := s.redis.Del(ctx, s.principalKey(sess.PrincipalID)).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return nil
}
