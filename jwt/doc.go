// Package jwt mints and parses the signed session tokens handed to clients.
//
// A token is an HS256 JWT carrying only the session id, the principal id
// (subject), and an optional non-secret display name. It never embeds a
// credential: possession of the token plus a live server-side session is
// the whole proof of authentication. Compromise of the signing secret
// therefore compromises all live sessions, which is why the secret must be
// supplied externally and is rejected when shorter than 32 bytes.
//
// Parsing pins the signing algorithm; tokens signed with any other method,
// including "none", are rejected before key lookup.
package jwt
