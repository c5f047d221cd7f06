// Package credential seals and verifies login secrets using one of four
// interchangeable strategies: plaintext compare, fast unsalted hashing,
// adaptive (bcrypt) hashing, and symmetric encryption at rest.
//
// Stored values are self-describing: every sealed credential carries a kind
// tag, so [Codec.Verify] dispatches on what is actually stored, not on the
// strategy currently configured for writes. That is what lets a deployment
// migrate between strategies one login at a time (see [Codec.NeedsReseal]).
//
// # Outcome taxonomy
//
// Verify distinguishes three outcomes and callers must not conflate them:
//
//   - (true, nil): the presented secret matches.
//   - (false, nil): the presented secret does not match.
//   - (false, err): no decision was possible (corrupt sealed value, wrong
//     encryption key, unknown kind tag). In particular, a decryption failure
//     under [KindEncrypted] is an error, never a silent no-match.
//
// # Known weakness, on purpose
//
// [KindFastHash] is deterministic and unsalted: two principals with the same
// secret store identical digests. The strategy exists to model that exact
// weakness; it is not a bug to fix here.
package credential
