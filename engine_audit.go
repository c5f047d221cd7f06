package learnauth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess           = "login_success"
	auditEventLoginFailure           = "login_failure"
	auditEventLoginRateLimited       = "login_rate_limited"
	auditEventRegistrationSuccess    = "registration_success"
	auditEventRegistrationFailure    = "registration_failure"
	auditEventRegistrationDuplicate  = "registration_duplicate"
	auditEventLogoutSession          = "logout_session"
	auditEventSessionRejected        = "session_rejected"
	auditEventFederatedLoginStart    = "federated_login_start"
	auditEventFederatedLoginSuccess  = "federated_login_success"
	auditEventFederatedLoginFailure  = "federated_login_failure"
	auditEventFederatedLinkEstablish = "federated_link_established"
	auditEventSecretUpdate           = "secret_update"
	auditEventRateLimitTriggered     = "rate_limit_triggered"
)

// AuditErrorCode is the stable short form of an error recorded in audit
// events, decoupled from error message wording.
type AuditErrorCode string

const (
	auditErrInvalidCredentials    AuditErrorCode = "invalid_credentials"
	auditErrPrincipalNotFound     AuditErrorCode = "principal_not_found"
	auditErrVerificationFailed    AuditErrorCode = "verification_failed"
	auditErrRateLimited           AuditErrorCode = "rate_limited"
	auditErrDuplicate             AuditErrorCode = "duplicate"
	auditErrInvalidSession        AuditErrorCode = "invalid_session"
	auditErrSessionCreationFailed AuditErrorCode = "session_creation_failed"
	auditErrProviderDenied        AuditErrorCode = "provider_denied"
	auditErrProviderState         AuditErrorCode = "provider_state_invalid"
	auditErrProviderExchange      AuditErrorCode = "provider_exchange_failed"
	auditErrUnavailable           AuditErrorCode = "backend_unavailable"
	auditErrInternal              AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrPrincipalNotFound):
		return auditErrPrincipalNotFound
	case errors.Is(err, ErrVerificationFailed):
		return auditErrVerificationFailed
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrDuplicateIdentifier),
		errors.Is(err, ErrDuplicateFederatedID),
		errors.Is(err, ErrIdentifierTaken):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidSession):
		return auditErrInvalidSession
	case errors.Is(err, ErrSessionCreationFailed):
		return auditErrSessionCreationFailed
	case errors.Is(err, ErrProviderDenied):
		return auditErrProviderDenied
	case errors.Is(err, ErrProviderStateInvalid):
		return auditErrProviderState
	case errors.Is(err, ErrProviderExchange):
		return auditErrProviderExchange
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	principalID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["user_agent"] = ua
	}

	event := AuditEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		PrincipalID: principalID,
		SessionID:   sessionID,
		IP:          clientIPFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope string, metadataBuilder func() map[string]string) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", "", nil, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}
