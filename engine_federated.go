package learnauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/czhexg/learn-auth/internal"
)

const maxProfileBodySize = 1 << 20

// FederatedLoginURL mints a one-shot state token and returns the provider
// authorization URL the caller should redirect to.
func (e *Engine) FederatedLoginURL(ctx context.Context) (string, error) {
	if e == nil || !e.ready {
		return "", ErrEngineNotReady
	}
	if e.oauth == nil {
		return "", ErrFederatedDisabled
	}

	state, err := internal.NewStateToken()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderStateInvalid, err)
	}
	if err := e.states.Save(ctx, state); err != nil {
		return "", err
	}

	e.emitAudit(ctx, auditEventFederatedLoginStart, true, "", "", nil, nil)
	return e.oauth.AuthCodeURL(state), nil
}

// CompleteFederatedLogin consumes a provider callback. providerError is the
// provider's error query parameter; when non-empty the flow is treated as
// denied without touching the state store, so the token stays unusable past
// its TTL only.
//
// On success the federated identity is resolved to a principal, linking to
// an existing local account by email when configured, and a session is
// minted for it.
func (e *Engine) CompleteFederatedLogin(ctx context.Context, state, code, providerError string) (string, *AuthResult, error) {
	if e == nil || !e.ready {
		return "", nil, ErrEngineNotReady
	}
	if e.oauth == nil {
		return "", nil, ErrFederatedDisabled
	}

	// A callback with a failure indicator, or with no code at all, means
	// the user or provider declined the grant.
	if providerError != "" || code == "" {
		e.metricInc(MetricFederatedLoginFailure)
		e.emitAudit(ctx, auditEventFederatedLoginFailure, false, "", "", ErrProviderDenied, func() map[string]string {
			return map[string]string{"provider_error": providerError}
		})
		return "", nil, ErrProviderDenied
	}

	if err := e.states.Consume(ctx, state); err != nil {
		if errors.Is(err, ErrProviderStateInvalid) {
			e.metricInc(MetricFederatedLoginFailure)
			e.emitAudit(ctx, auditEventFederatedLoginFailure, false, "", "", ErrProviderStateInvalid, nil)
		}
		return "", nil, err
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, e.config.Federated.ExchangeTimeout)
	defer cancel()

	oauthToken, err := e.oauth.Exchange(exchangeCtx, code)
	if err != nil {
		e.metricInc(MetricFederatedLoginFailure)
		e.emitAudit(ctx, auditEventFederatedLoginFailure, false, "", "", ErrProviderExchange, func() map[string]string {
			return map[string]string{"stage": "exchange"}
		})
		return "", nil, fmt.Errorf("%w: %v", ErrProviderExchange, err)
	}

	profile, err := e.fetchProfile(exchangeCtx, oauthToken.AccessToken)
	if err != nil {
		e.metricInc(MetricFederatedLoginFailure)
		e.emitAudit(ctx, auditEventFederatedLoginFailure, false, "", "", ErrProviderExchange, func() map[string]string {
			return map[string]string{"stage": "profile"}
		})
		return "", nil, err
	}

	principal, err := e.resolveFederatedPrincipal(ctx, profile)
	if err != nil {
		e.metricInc(MetricFederatedLoginFailure)
		e.emitAudit(ctx, auditEventFederatedLoginFailure, false, "", "", err, nil)
		return "", nil, err
	}

	token, sid, err := e.createSession(ctx, principal, true)
	if err != nil {
		e.metricInc(MetricFederatedLoginFailure)
		e.emitAudit(ctx, auditEventFederatedLoginFailure, false, principal.ID, "", ErrSessionCreationFailed, nil)
		return "", nil, err
	}

	e.metricInc(MetricFederatedLoginSuccess)
	e.emitAudit(ctx, auditEventFederatedLoginSuccess, true, principal.ID, sid, nil, func() map[string]string {
		return map[string]string{"external_id": profile.ExternalID}
	})

	return token, &AuthResult{
		PrincipalID: principal.ID,
		DisplayName: principal.DisplayName,
		Federated:   true,
		SessionID:   sid,
	}, nil
}

// fetchProfile retrieves the provider's profile document and extracts the
// configured fields. A missing external id is a hard failure; email and
// name are optional.
func (e *Engine) fetchProfile(ctx context.Context, accessToken string) (FederatedProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.Federated.ProfileURL, nil)
	if err != nil {
		return FederatedProfile{}, fmt.Errorf("%w: %v", ErrProviderExchange, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return FederatedProfile{}, fmt.Errorf("%w: %v", ErrProviderExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FederatedProfile{}, fmt.Errorf("%w: profile endpoint returned %d", ErrProviderExchange, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBodySize))
	if err != nil {
		return FederatedProfile{}, fmt.Errorf("%w: %v", ErrProviderExchange, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return FederatedProfile{}, fmt.Errorf("%w: malformed profile document", ErrProviderExchange)
	}

	profile := FederatedProfile{
		ExternalID: stringField(doc, e.config.Federated.IDField),
		Email:      stringField(doc, e.config.Federated.EmailField),
		Name:       stringField(doc, e.config.Federated.NameField),
	}
	if profile.ExternalID == "" {
		return FederatedProfile{}, fmt.Errorf("%w: profile document missing id field", ErrProviderExchange)
	}
	return profile, nil
}

// stringField reads a JSON value as a string, rendering numbers so
// providers that serve numeric ids still work.
func stringField(doc map[string]any, key string) string {
	switch v := doc[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

// resolveFederatedPrincipal maps a provider profile to a local principal.
// Link-by-email runs first when enabled; otherwise the store's atomic
// find-or-create settles concurrent first logins to a single principal.
func (e *Engine) resolveFederatedPrincipal(ctx context.Context, profile FederatedProfile) (Principal, error) {
	if e.config.Federated.LinkByIdentifier && profile.Email != "" {
		local, err := e.store.FindByIdentifier(ctx, profile.Email)
		switch {
		case err == nil:
			if local.FederatedID == "" {
				if err := e.store.UpdateFederatedID(ctx, local.ID, profile.ExternalID); err != nil {
					if errors.Is(err, ErrDuplicateFederatedID) {
						return Principal{}, ErrDuplicateFederatedID
					}
					return Principal{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
				}
				local.FederatedID = profile.ExternalID
				e.metricInc(MetricFederatedPrincipalLinked)
				e.emitAudit(ctx, auditEventFederatedLinkEstablish, true, local.ID, "", nil, func() map[string]string {
					return map[string]string{"external_id": profile.ExternalID}
				})
				return local, nil
			}
			if local.FederatedID == profile.ExternalID {
				return local, nil
			}
			// Same email, different federated identity. Fall through to
			// find-or-create so the two identities stay distinct.
			log.Printf("learnauth: federated id conflict for identifier, creating separate principal")
		case !errors.Is(err, ErrPrincipalNotFound):
			return Principal{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	existing, err := e.store.FindByFederatedID(ctx, profile.ExternalID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrPrincipalNotFound) {
		return Principal{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	seed := CreatePrincipalInput{
		Identifier:  profile.Email,
		FederatedID: profile.ExternalID,
		DisplayName: profile.Name,
	}
	created, err := e.store.FindOrCreateByFederatedID(ctx, profile.ExternalID, seed)
	if errors.Is(err, ErrDuplicateIdentifier) {
		// The profile email is already held by an unlinked local account.
		// The federated principal stays distinct and provider-only.
		seed.Identifier = ""
		created, err = e.store.FindOrCreateByFederatedID(ctx, profile.ExternalID, seed)
	}
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricFederatedPrincipalCreated)
	return created, nil
}
