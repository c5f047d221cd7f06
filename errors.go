package learnauth

import "errors"

var (
	// ErrPrincipalNotFound is returned by [PrincipalStore] implementations when
	// no principal exists for the given lookup key.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrInvalidCredentials is the collapsed login failure surfaced to callers
	// for both "unknown identifier" and "secret mismatch".
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrVerificationFailed indicates the verifier could not reach a match
	// decision at all, e.g. a wrong encryption key or a corrupt sealed value.
	ErrVerificationFailed = errors.New("credential verification failed")
	// ErrDuplicateIdentifier is returned by [PrincipalStore.Create] when the
	// identifier is already registered.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	// ErrDuplicateFederatedID is returned by [PrincipalStore] operations when
	// the federated id is already bound to another principal.
	ErrDuplicateFederatedID = errors.New("duplicate federated id")
	// ErrIdentifierTaken is the user-visible registration outcome for a
	// duplicate identifier.
	ErrIdentifierTaken = errors.New("identifier already registered")
	// ErrRegistrationDisabled is returned by Register when account creation is
	// switched off in config.
	ErrRegistrationDisabled = errors.New("registration disabled")
	// ErrLoginRateLimited is returned when the login attempt budget for an
	// identifier or IP is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrInvalidSession covers every authenticate failure: malformed token,
	// bad signature, expired or destroyed session, principal mismatch.
	// Callers must treat it as "not authenticated", never as a hard failure.
	ErrInvalidSession = errors.New("invalid session")
	// ErrSessionCreationFailed is returned when the session backing store
	// rejected the write after successful credential verification.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrFederatedDisabled is returned by the federated login operations when
	// no provider is configured.
	ErrFederatedDisabled = errors.New("federated login disabled")
	// ErrProviderDenied is returned when the callback carries no authorization
	// code, i.e. the user denied the request at the provider.
	ErrProviderDenied = errors.New("federated provider denied authorization")
	// ErrProviderStateInvalid is returned when the callback state is unknown,
	// expired, or replayed.
	ErrProviderStateInvalid = errors.New("federated state invalid")
	// ErrProviderExchange is returned when the code exchange or profile fetch
	// failed; retryable, no partial state change.
	ErrProviderExchange = errors.New("federated exchange failed")
	// ErrStoreUnavailable is returned when the persistence backend is
	// unreachable; retryable, no partial state change.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEngineNotReady is returned when an Engine method is called on an
	// engine missing a required collaborator.
	ErrEngineNotReady = errors.New("engine not initialized")
)
