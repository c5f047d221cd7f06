package learnauth

import "context"

// Principal is a registered identity. A principal is reachable through at
// least one lookup key: Identifier (local login) or FederatedID (provider
// login). A principal with neither a sealed credential nor a federated id
// cannot authenticate and is inert.
type Principal struct {
	// ID is assigned by the store at creation and never changes.
	ID string
	// Identifier is the local login key (email/username), unique in the store.
	// Empty for provider-only principals.
	Identifier string
	// Credential is the sealed secret in the tagged format produced by
	// credential.Codec.Seal. Empty for principals without local login.
	Credential string
	// FederatedID is the stable external id asserted by the identity
	// provider. At most one provider binding per principal.
	FederatedID string
	// DisplayName is a non-secret attribute suitable for session display.
	DisplayName string
	// Secret is the protected resource the application guards, owned
	// exclusively by this principal.
	Secret string
}

// CreatePrincipalInput is the input for [PrincipalStore.Create] and the seed
// for [PrincipalStore.FindOrCreateByFederatedID].
type CreatePrincipalInput struct {
	Identifier  string
	Credential  string
	FederatedID string
	DisplayName string
}

// PrincipalStore is the persistence interface callers implement to integrate
// learnauth with their database. Lookup misses are [ErrPrincipalNotFound];
// uniqueness violations are [ErrDuplicateIdentifier] or
// [ErrDuplicateFederatedID], never a silent overwrite; connectivity failures
// wrap [ErrStoreUnavailable].
type PrincipalStore interface {
	FindByID(ctx context.Context, id string) (Principal, error)
	FindByIdentifier(ctx context.Context, identifier string) (Principal, error)
	FindByFederatedID(ctx context.Context, federatedID string) (Principal, error)
	Create(ctx context.Context, input CreatePrincipalInput) (Principal, error)
	UpdateCredential(ctx context.Context, principalID, sealed string) error
	UpdateFederatedID(ctx context.Context, principalID, federatedID string) error
	UpdateProtectedSecret(ctx context.Context, principalID, secret string) error

	// FindOrCreateByFederatedID looks up the principal bound to federatedID
	// and creates one from seed when absent. Concurrent creations for the
	// same federatedID must converge on a single stored principal: the
	// losing caller receives the winner's record, not an error. A seed
	// Identifier already held by another principal is either dropped from
	// the created record or reported as [ErrDuplicateIdentifier]; the
	// engine retries with an empty identifier in the latter case.
	FindOrCreateByFederatedID(ctx context.Context, federatedID string, seed CreatePrincipalInput) (Principal, error)
}

// AuthResult is returned by [Engine.Authenticate]. It identifies the
// authenticated principal for the duration of one request.
type AuthResult struct {
	PrincipalID string
	DisplayName string
	// Federated reports whether the session was minted through the
	// federated broker rather than local credentials.
	Federated bool
	// SessionID is the opaque server-side session identifier, needed for
	// logout-by-result flows.
	SessionID string
}

// RegisterRequest is the input for [Engine.Register].
type RegisterRequest struct {
	Identifier  string
	Secret      string
	DisplayName string
}

// RegisterResult is returned by [Engine.Register]. SessionToken is set only
// when [AccountConfig.AutoLogin] is enabled.
type RegisterResult struct {
	PrincipalID  string
	SessionToken string
}

// FederatedProfile is the normalized profile extracted from the provider's
// profile endpoint during federated login.
type FederatedProfile struct {
	// ExternalID is the provider's stable subject identifier.
	ExternalID string
	// Email is used for local account linking when present.
	Email string
	// Name is a display attribute; never relied on for identity.
	Name string
}
