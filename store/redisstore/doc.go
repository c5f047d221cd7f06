// Package redisstore is a Redis-backed PrincipalStore.
//
// Each principal is a hash keyed by id. Identifier and federated-id
// uniqueness is enforced with SETNX index keys pointing back at the id, so
// concurrent creates settle to exactly one winner without transactions.
//
// The package exists so the examples and tests have a working store; real
// deployments usually implement learnauth.PrincipalStore over their own
// user table instead.
package redisstore
