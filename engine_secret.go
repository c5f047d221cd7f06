package learnauth

import (
	"context"
	"errors"
	"fmt"
)

// Secret returns the protected value belonging to the session's principal.
// The token must resolve to a live session; the value is fetched from the
// principal store, never from the session record.
func (e *Engine) Secret(ctx context.Context, token string) (string, error) {
	if e == nil || !e.ready {
		return "", ErrEngineNotReady
	}

	auth, err := e.Authenticate(ctx, token)
	if err != nil {
		return "", err
	}

	principal, err := e.store.FindByID(ctx, auth.PrincipalID)
	if errors.Is(err, ErrPrincipalNotFound) {
		// Session outlived the principal. Kill it rather than serve a
		// dangling identity.
		if delErr := e.sessions.Delete(ctx, auth.SessionID); delErr != nil {
			return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, delErr)
		}
		e.metricInc(MetricSessionInvalidated)
		return "", ErrInvalidSession
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return principal.Secret, nil
}

// UpdateSecret replaces the protected value belonging to the session's
// principal. An empty value is allowed; it clears the secret.
func (e *Engine) UpdateSecret(ctx context.Context, token, value string) error {
	if e == nil || !e.ready {
		return ErrEngineNotReady
	}

	auth, err := e.Authenticate(ctx, token)
	if err != nil {
		return err
	}

	if err := e.store.UpdateProtectedSecret(ctx, auth.PrincipalID, value); err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return ErrInvalidSession
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricSecretUpdated)
	e.emitAudit(ctx, auditEventSecretUpdate, true, auth.PrincipalID, auth.SessionID, nil, nil)
	return nil
}
