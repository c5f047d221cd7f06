// Package session implements the server-side half of the session manager:
// a compact binary encoding of the session record and a Redis-backed store
// with lazy expiry and a single-live-session-per-principal rule.
//
// The client never sees these records. What the browser holds is a signed
// token minted by the jwt package that references a [Session] by id; the
// authoritative state (who the session belongs to, when it expires) lives
// here and is consulted on every authenticated request.
//
// Expiry is checked at read time: an expired record found by [Store.Get] is
// deleted and reported as missing. No background sweep is required for
// correctness; Redis TTLs reclaim storage.
package session
