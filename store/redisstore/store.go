package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	learnauth "github.com/czhexg/learn-auth"
)

const (
	fieldIdentifier  = "identifier"
	fieldCredential  = "credential"
	fieldFederatedID = "federated_id"
	fieldDisplayName = "display_name"
	fieldSecret      = "secret"
)

// Store implements learnauth.PrincipalStore on Redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a Store. prefix namespaces all keys and defaults to "lau".
func New(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "lau"
	}
	return &Store{redis: redisClient, prefix: prefix}
}

func (s *Store) principalKey(id string) string {
	return s.prefix + ":p:" + id
}

func (s *Store) identifierKey(identifier string) string {
	return s.prefix + ":ident:" + identifier
}

func (s *Store) federatedKey(federatedID string) string {
	return s.prefix + ":fed:" + federatedID
}

func wrapUnavailable(err error) error {
	return fmt.Errorf("%w: %v", learnauth.ErrStoreUnavailable, err)
}

func (s *Store) load(ctx context.Context, id string) (learnauth.Principal, error) {
	fields, err := s.redis.HGetAll(ctx, s.principalKey(id)).Result()
	if err != nil {
		return learnauth.Principal{}, wrapUnavailable(err)
	}
	if len(fields) == 0 {
		return learnauth.Principal{}, learnauth.ErrPrincipalNotFound
	}
	return learnauth.Principal{
		ID:          id,
		Identifier:  fields[fieldIdentifier],
		Credential:  fields[fieldCredential],
		FederatedID: fields[fieldFederatedID],
		DisplayName: fields[fieldDisplayName],
		Secret:      fields[fieldSecret],
	}, nil
}

// FindByID looks up a principal by its id.
func (s *Store) FindByID(ctx context.Context, id string) (learnauth.Principal, error) {
	if id == "" {
		return learnauth.Principal{}, learnauth.ErrPrincipalNotFound
	}
	return s.load(ctx, id)
}

func (s *Store) findByIndex(ctx context.Context, indexKey string) (learnauth.Principal, error) {
	id, err := s.redis.Get(ctx, indexKey).Result()
	if errors.Is(err, redis.Nil) {
		return learnauth.Principal{}, learnauth.ErrPrincipalNotFound
	}
	if err != nil {
		return learnauth.Principal{}, wrapUnavailable(err)
	}
	return s.load(ctx, id)
}

// FindByIdentifier looks up a principal by its unique identifier.
func (s *Store) FindByIdentifier(ctx context.Context, identifier string) (learnauth.Principal, error) {
	if identifier == "" {
		return learnauth.Principal{}, learnauth.ErrPrincipalNotFound
	}
	return s.findByIndex(ctx, s.identifierKey(identifier))
}

// FindByFederatedID looks up a principal by its federated identity.
func (s *Store) FindByFederatedID(ctx context.Context, federatedID string) (learnauth.Principal, error) {
	if federatedID == "" {
		return learnauth.Principal{}, learnauth.ErrPrincipalNotFound
	}
	return s.findByIndex(ctx, s.federatedKey(federatedID))
}

func (s *Store) writePrincipal(ctx context.Context, id string, input learnauth.CreatePrincipalInput) error {
	fields := map[string]any{
		fieldIdentifier:  input.Identifier,
		fieldCredential:  input.Credential,
		fieldFederatedID: input.FederatedID,
		fieldDisplayName: input.DisplayName,
	}
	if err := s.redis.HSet(ctx, s.principalKey(id), fields).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// Create inserts a new principal. The identifier index is claimed first
// with SETNX; a lost claim means the identifier is taken.
func (s *Store) Create(ctx context.Context, input learnauth.CreatePrincipalInput) (learnauth.Principal, error) {
	id := uuid.NewString()

	if input.Identifier != "" {
		ok, err := s.redis.SetNX(ctx, s.identifierKey(input.Identifier), id, 0).Result()
		if err != nil {
			return learnauth.Principal{}, wrapUnavailable(err)
		}
		if !ok {
			return learnauth.Principal{}, learnauth.ErrDuplicateIdentifier
		}
	}

	if input.FederatedID != "" {
		ok, err := s.redis.SetNX(ctx, s.federatedKey(input.FederatedID), id, 0).Result()
		if err != nil {
			return learnauth.Principal{}, wrapUnavailable(err)
		}
		if !ok {
			// Roll back the identifier claim before reporting.
			if input.Identifier != "" {
				if delErr := s.redis.Del(ctx, s.identifierKey(input.Identifier)).Err(); delErr != nil {
					return learnauth.Principal{}, wrapUnavailable(delErr)
				}
			}
			return learnauth.Principal{}, learnauth.ErrDuplicateFederatedID
		}
	}

	if err := s.writePrincipal(ctx, id, input); err != nil {
		return learnauth.Principal{}, err
	}

	return learnauth.Principal{
		ID:          id,
		Identifier:  input.Identifier,
		Credential:  input.Credential,
		FederatedID: input.FederatedID,
		DisplayName: input.DisplayName,
	}, nil
}

// UpdateCredential replaces the sealed credential.
func (s *Store) UpdateCredential(ctx context.Context, principalID, sealed string) error {
	return s.updateField(ctx, principalID, fieldCredential, sealed)
}

// UpdateProtectedSecret replaces the protected value.
func (s *Store) UpdateProtectedSecret(ctx context.Context, principalID, secret string) error {
	return s.updateField(ctx, principalID, fieldSecret, secret)
}

func (s *Store) updateField(ctx context.Context, principalID, field, value string) error {
	exists, err := s.redis.Exists(ctx, s.principalKey(principalID)).Result()
	if err != nil {
		return wrapUnavailable(err)
	}
	if exists == 0 {
		return learnauth.ErrPrincipalNotFound
	}
	if err := s.redis.HSet(ctx, s.principalKey(principalID), field, value).Err(); err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// UpdateFederatedID attaches a federated identity to an existing principal.
// The federated index is claimed with SETNX so two principals can never
// share one identity.
func (s *Store) UpdateFederatedID(ctx context.Context, principalID, federatedID string) error {
	exists, err := s.redis.Exists(ctx, s.principalKey(principalID)).Result()
	if err != nil {
		return wrapUnavailable(err)
	}
	if exists == 0 {
		return learnauth.ErrPrincipalNotFound
	}

	ok, err := s.redis.SetNX(ctx, s.federatedKey(federatedID), principalID, 0).Result()
	if err != nil {
		return wrapUnavailable(err)
	}
	if !ok {
		owner, getErr := s.redis.Get(ctx, s.federatedKey(federatedID)).Result()
		if getErr != nil {
			return wrapUnavailable(getErr)
		}
		if owner != principalID {
			return learnauth.ErrDuplicateFederatedID
		}
	}

	return s.updateField(ctx, principalID, fieldFederatedID, federatedID)
}

// FindOrCreateByFederatedID resolves a federated identity to a principal,
// creating one on first login. Concurrent first logins race on SETNX; the
// loser reads the winner's principal.
func (s *Store) FindOrCreateByFederatedID(ctx context.Context, federatedID string, seed learnauth.CreatePrincipalInput) (learnauth.Principal, error) {
	if federatedID == "" {
		return learnauth.Principal{}, learnauth.ErrPrincipalNotFound
	}

	id := uuid.NewString()
	ok, err := s.redis.SetNX(ctx, s.federatedKey(federatedID), id, 0).Result()
	if err != nil {
		return learnauth.Principal{}, wrapUnavailable(err)
	}
	if !ok {
		// Lost the claim. The winner may not have written its hash yet, so
		// tolerate a short window where the index exists but the principal
		// does not.
		var p learnauth.Principal
		for attempt := 0; attempt < 40; attempt++ {
			p, err = s.findByIndex(ctx, s.federatedKey(federatedID))
			if !errors.Is(err, learnauth.ErrPrincipalNotFound) {
				break
			}
			select {
			case <-ctx.Done():
				return learnauth.Principal{}, wrapUnavailable(ctx.Err())
			case <-time.After(5 * time.Millisecond):
			}
		}
		return p, err
	}

	seed.FederatedID = federatedID

	// The seed identifier is best effort. A taken identifier does not block
	// federated principal creation; the principal just has no local login.
	if seed.Identifier != "" {
		claimed, err := s.redis.SetNX(ctx, s.identifierKey(seed.Identifier), id, 0).Result()
		if err != nil {
			return learnauth.Principal{}, wrapUnavailable(err)
		}
		if !claimed {
			seed.Identifier = ""
		}
	}

	if err := s.writePrincipal(ctx, id, seed); err != nil {
		return learnauth.Principal{}, err
	}

	return learnauth.Principal{
		ID:          id,
		Identifier:  seed.Identifier,
		FederatedID: federatedID,
		DisplayName: seed.DisplayName,
	}, nil
}
