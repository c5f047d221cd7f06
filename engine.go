package learnauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/czhexg/learn-auth/credential"
	"github.com/czhexg/learn-auth/internal"
	"github.com/czhexg/learn-auth/internal/rate"
	"github.com/czhexg/learn-auth/jwt"
	"github.com/czhexg/learn-auth/session"
)

// Engine is the authentication core. It verifies credentials, mints and
// validates sessions, and brokers federated logins. All fields are wired by
// [Builder.Build] and immutable afterwards.
type Engine struct {
	config   Config
	redis    redis.UniversalClient
	store    PrincipalStore
	codec    *credential.Codec
	tokens   *jwt.Manager
	sessions *session.Store
	limiter  *rate.Limiter
	oauth    *oauth2.Config
	states   *federatedStateStore
	audit    *auditDispatcher
	metrics  *Metrics

	ready     bool
	closeOnce sync.Once
}

func (e *Engine) metricInc(id MetricID) {
	if e != nil {
		e.metrics.Inc(id)
	}
}

// Register creates a principal from an identifier and secret, sealing the
// secret with the configured strategy. On success with auto-login enabled,
// the result carries a session token.
//
// Uniqueness violations surface as ErrIdentifierTaken regardless of which
// store-level duplicate error caused them.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if e == nil || !e.ready {
		return nil, ErrEngineNotReady
	}
	if !e.config.Account.Enabled {
		return nil, ErrRegistrationDisabled
	}

	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Secret == "" {
		e.emitAudit(ctx, auditEventRegistrationFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "empty_fields"}
		})
		return nil, ErrInvalidCredentials
	}

	sealed, err := e.codec.Seal(req.Secret)
	if err != nil {
		e.emitAudit(ctx, auditEventRegistrationFailure, false, "", "", err, nil)
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	principal, err := e.store.Create(ctx, CreatePrincipalInput{
		Identifier:  identifier,
		Credential:  sealed,
		DisplayName: req.DisplayName,
	})
	switch {
	case errors.Is(err, ErrDuplicateIdentifier), errors.Is(err, ErrIdentifierTaken):
		e.metricInc(MetricRegistrationDuplicate)
		e.emitAudit(ctx, auditEventRegistrationDuplicate, false, "", "", ErrIdentifierTaken, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		return nil, ErrIdentifierTaken
	case err != nil:
		e.emitAudit(ctx, auditEventRegistrationFailure, false, "", "", err, nil)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricRegistrationSuccess)

	result := &RegisterResult{PrincipalID: principal.ID}

	if e.config.Account.AutoLogin {
		token, sid, err := e.createSession(ctx, principal, false)
		if err != nil {
			// The principal exists; the caller can still log in normally.
			log.Printf("learnauth: auto-login after registration failed: %v", err)
			e.emitAudit(ctx, auditEventRegistrationSuccess, true, principal.ID, "", nil, func() map[string]string {
				return map[string]string{"auto_login": "failed"}
			})
			return result, nil
		}
		result.SessionToken = token
		e.emitAudit(ctx, auditEventRegistrationSuccess, true, principal.ID, sid, nil, nil)
		return result, nil
	}

	e.emitAudit(ctx, auditEventRegistrationSuccess, true, principal.ID, "", nil, nil)
	return result, nil
}

// Login verifies an identifier and secret and mints a session. Unknown
// identifiers and wrong secrets both return ErrInvalidCredentials; only the
// audit trail distinguishes them.
func (e *Engine) Login(ctx context.Context, identifier, secret string) (string, *AuthResult, error) {
	if e == nil || !e.ready {
		return "", nil, ErrEngineNotReady
	}

	identifier = strings.TrimSpace(identifier)
	ip := clientIPFromContext(ctx)

	if e.limiter != nil {
		err := e.limiter.CheckLogin(ctx, identifier, ip)
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitRateLimit(ctx, "login", func() map[string]string {
				return map[string]string{"identifier": identifier}
			})
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, nil)
			return "", nil, ErrLoginRateLimited
		}
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if identifier == "" || secret == "" {
		return "", nil, e.failLogin(ctx, identifier, ip, "", "empty_fields")
	}

	principal, err := e.store.FindByIdentifier(ctx, identifier)
	if errors.Is(err, ErrPrincipalNotFound) {
		e.metricInc(MetricLoginNotFound)
		return "", nil, e.failLogin(ctx, identifier, ip, "", "principal_not_found")
	}
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if principal.Credential == "" {
		// Federated-only principal with no local secret. Treated as a
		// mismatch so enumeration reveals nothing.
		e.metricInc(MetricLoginMismatch)
		return "", nil, e.failLogin(ctx, identifier, ip, principal.ID, "no_local_credential")
	}

	match, err := e.codec.Verify(secret, principal.Credential)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, principal.ID, "", ErrVerificationFailed, func() map[string]string {
			return map[string]string{"reason": "verification_error"}
		})
		return "", nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	if !match {
		e.metricInc(MetricLoginMismatch)
		return "", nil, e.failLogin(ctx, identifier, ip, principal.ID, "secret_mismatch")
	}

	if e.config.Credential.ResealOnLogin && e.codec.NeedsReseal(principal.Credential) {
		e.resealCredential(ctx, principal.ID, secret)
	}

	token, sid, err := e.createSession(ctx, principal, false)
	if err != nil {
		e.emitAudit(ctx, auditEventLoginFailure, false, principal.ID, "", ErrSessionCreationFailed, nil)
		return "", nil, err
	}

	if e.limiter != nil {
		if err := e.limiter.ResetLogin(ctx, identifier, ip); err != nil {
			log.Printf("learnauth: login counter reset failed: %v", err)
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, principal.ID, sid, nil, nil)

	return token, &AuthResult{
		PrincipalID: principal.ID,
		DisplayName: principal.DisplayName,
		SessionID:   sid,
	}, nil
}

// failLogin records a failed attempt, increments throttle counters and
// returns the collapsed ErrInvalidCredentials.
func (e *Engine) failLogin(ctx context.Context, identifier, ip, principalID, reason string) error {
	e.metricInc(MetricLoginFailure)

	if e.limiter != nil && identifier != "" {
		err := e.limiter.IncrementLogin(ctx, identifier, ip)
		if err != nil && !errors.Is(err, rate.ErrRateLimited) {
			log.Printf("learnauth: login counter increment failed: %v", err)
		}
	}

	e.emitAudit(ctx, auditEventLoginFailure, false, principalID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return ErrInvalidCredentials
}

func (e *Engine) resealCredential(ctx context.Context, principalID, secret string) {
	sealed, err := e.codec.Seal(secret)
	if err != nil {
		log.Printf("learnauth: credential reseal failed: %v", err)
		return
	}
	if err := e.store.UpdateCredential(ctx, principalID, sealed); err != nil {
		log.Printf("learnauth: credential reseal write failed: %v", err)
		return
	}
	e.metricInc(MetricCredentialResealed)
}

// createSession mints a server-side session record and its signed token.
func (e *Engine) createSession(ctx context.Context, principal Principal, federated bool) (token, sessionID string, err error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}
	sessionID = sid.String()

	now := time.Now()
	sess := &session.Session{
		SessionID:   sessionID,
		PrincipalID: principal.ID,
		DisplayName: principal.DisplayName,
		Federated:   federated,
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(e.config.Session.TTL).Unix(),
	}

	if err := e.sessions.Save(ctx, sess, e.config.Session.TTL); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	token, err = e.tokens.Mint(sessionID, principal.ID, principal.DisplayName)
	if err != nil {
		// Keep Redis consistent with the failed mint.
		if delErr := e.sessions.Delete(ctx, sessionID); delErr != nil {
			log.Printf("learnauth: orphan session cleanup failed: %v", delErr)
		}
		return "", "", fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	e.metricInc(MetricSessionCreated)
	return token, sessionID, nil
}

// Authenticate resolves a session token to its live session. Every defect,
// bad signature, unknown claims, missing or expired record, collapses to
// ErrInvalidSession.
func (e *Engine) Authenticate(ctx context.Context, token string) (*AuthResult, error) {
	if e == nil || !e.ready {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	result, err := e.authenticate(ctx, token)

	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	}
	return result, err
}

func (e *Engine) authenticate(ctx context.Context, token string) (*AuthResult, error) {
	claims, err := e.tokens.Parse(token)
	if err != nil {
		e.metricInc(MetricInvalidSession)
		e.emitAudit(ctx, auditEventSessionRejected, false, "", "", ErrInvalidSession, func() map[string]string {
			return map[string]string{"reason": "token_invalid"}
		})
		return nil, ErrInvalidSession
	}

	// Shape check before touching Redis; a signed token with a malformed
	// sid claim is still a bad token.
	if _, err := internal.ParseSessionID(claims.SID); err != nil {
		e.metricInc(MetricInvalidSession)
		e.emitAudit(ctx, auditEventSessionRejected, false, claims.Subject, "", ErrInvalidSession, func() map[string]string {
			return map[string]string{"reason": "session_id_malformed"}
		})
		return nil, ErrInvalidSession
	}

	sess, err := e.sessions.Get(ctx, claims.SID)
	if errors.Is(err, redis.Nil) {
		e.metricInc(MetricInvalidSession)
		e.emitAudit(ctx, auditEventSessionRejected, false, claims.Subject, claims.SID, ErrInvalidSession, func() map[string]string {
			return map[string]string{"reason": "session_not_found"}
		})
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// A token replayed against a session that now belongs to someone else
	// is a defect, not a race to tolerate.
	if sess.PrincipalID != claims.Subject {
		e.metricInc(MetricInvalidSession)
		e.emitAudit(ctx, auditEventSessionRejected, false, claims.Subject, claims.SID, ErrInvalidSession, func() map[string]string {
			return map[string]string{"reason": "principal_mismatch"}
		})
		return nil, ErrInvalidSession
	}

	return &AuthResult{
		PrincipalID: sess.PrincipalID,
		DisplayName: sess.DisplayName,
		Federated:   sess.Federated,
		SessionID:   sess.SessionID,
	}, nil
}

// Logout destroys the session referenced by the token. Logging out an
// already dead or malformed token is not an error.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil || !e.ready {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(token)
	if err != nil {
		return nil
	}

	if err := e.sessions.Delete(ctx, claims.SID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventLogoutSession, true, claims.Subject, claims.SID, nil, nil)
	return nil
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}, Histograms: map[MetricID][]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were shed by a saturated
// dispatch queue.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close drains the audit dispatcher. The engine must not be used after
// Close. Safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		if e.audit != nil {
			e.audit.Close()
		}
	})
}
