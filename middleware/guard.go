package middleware

import (
	"context"
	"errors"
	"net/http"

	learnauth "github.com/czhexg/learn-auth"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "la_session"

type contextKey string

const principalContextKey contextKey = "middleware.principal"

// PrincipalFromContext returns the authenticated result injected by Guard
// or Require. The second return is false for unguarded requests.
func PrincipalFromContext(ctx context.Context) (*learnauth.AuthResult, bool) {
	auth, ok := ctx.Value(principalContextKey).(*learnauth.AuthResult)
	return auth, ok
}

// setNoStore marks the response uncacheable. It must run before the auth
// decision so refused and allowed responses carry the same headers.
func setNoStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
}

func authenticateRequest(engine *learnauth.Engine, r *http.Request) (*learnauth.AuthResult, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, learnauth.ErrInvalidSession
	}

	ctx := learnauth.WithClientIP(r.Context(), clientIP(r))
	ctx = learnauth.WithUserAgent(ctx, r.UserAgent())
	return engine.Authenticate(ctx, cookie.Value)
}

// Guard wraps next so only requests with a live session reach it. Failures
// get a 303 redirect to loginPath. The authenticated result is injected
// into the request context.
func Guard(engine *learnauth.Engine, loginPath string, next http.Handler) http.Handler {
	if loginPath == "" {
		loginPath = "/login"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setNoStore(w)

		auth, err := authenticateRequest(engine, r)
		if err != nil {
			// A backend outage is retryable; it says nothing about whether
			// the caller is authenticated.
			if errors.Is(err, learnauth.ErrStoreUnavailable) {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, auth)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require is the API variant of Guard. Failures get a plain 401 with no
// body detail.
func Require(engine *learnauth.Engine, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setNoStore(w)

		auth, err := authenticateRequest(engine, r)
		if err != nil {
			if errors.Is(err, learnauth.ErrStoreUnavailable) {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, auth)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP extracts the caller address, trusting X-Forwarded-For when
// present.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host := r.RemoteAddr
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host[:i]
		}
	}
	return host
}
