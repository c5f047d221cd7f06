package session

// Session is the server-side record binding a session id to a principal.
//
// Session instances are created at login, read on every guarded request,
// and destroyed at logout or expiry. PrincipalID is a lookup key into the
// principal store, not ownership; deleting the session never touches the
// principal.
type Session struct {
	SessionID   string
	PrincipalID string

	// DisplayName is a non-secret attribute carried for profile display.
	// Credentials are never stored in a session.
	DisplayName string

	// Federated reports whether the session was minted by the federated
	// broker rather than local credential verification.
	Federated bool

	CreatedAt int64
	ExpiresAt int64
}
