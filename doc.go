// Package learnauth provides the credential-authentication and session-identity
// core of the login/secrets application: pluggable credential verification,
// Redis-backed server-side sessions with signed client tokens, and federated
// (OAuth2 authorization-code) login with local account linking.
//
// The package is designed for concurrent server workloads: Engine methods are safe
// to call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// learnauth is the public surface. It exposes [Engine], [Builder], [Config], the
// [PrincipalStore] integration interface, and value types (AuthResult, Principal,
// MetricsSnapshot, etc.). Credential sealing lives in credential/, session
// encoding and storage in session/, client-token signing in jwt/, and HTTP
// enforcement in middleware/. None of those subpackages import learnauth back
// except middleware, which only translates HTTP semantics into Engine calls.
//
// # What this package must NOT do
//
//   - Render views or own any markup; outcome pages are the caller's concern.
//   - Expose Redis clients or session encoding details in its public API.
//   - Store or transport a provider password during federated login; the broker
//     trusts the provider's identity assertion only.
//   - Reveal whether a login failure was "unknown identifier" or "wrong secret"
//     to the caller; that distinction exists only in audit events and metrics.
package learnauth
