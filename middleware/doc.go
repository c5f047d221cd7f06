// Package middleware provides net/http access guards backed by a learnauth
// Engine.
//
// Guard protects browser-facing pages: it redirects unauthenticated callers
// to a login path and marks every response, allowed or refused, as
// uncacheable so shared caches never serve a protected page. Require is the
// API variant returning 401 instead of redirecting.
//
// Both guards inject the authenticated result into the request context;
// handlers read it back with PrincipalFromContext.
package middleware
