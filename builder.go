package learnauth

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/czhexg/learn-auth/credential"
	"github.com/czhexg/learn-auth/internal/rate"
	"github.com/czhexg/learn-auth/jwt"
	"github.com/czhexg/learn-auth/session"
)

// Builder assembles an [Engine] step by step. Call New, chain the With
// methods, then Build. A Builder is single use.
type Builder struct {
	config    Config
	hasConfig bool
	redis     redis.UniversalClient
	store     PrincipalStore
	sink      AuditSink
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// WithConfig replaces the default configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	b.hasConfig = true
	return b
}

// WithRedis supplies the client used for sessions, throttling and federated
// state. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPrincipalStore supplies the caller-owned principal store. Required.
func (b *Builder) WithPrincipalStore(store PrincipalStore) *Builder {
	b.store = store
	return b
}

// WithAuditSink supplies the destination for audit events. When omitted and
// auditing is enabled, events go to a [NoOpSink].
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// Build validates the configuration, wires every component and returns a
// ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.redis == nil {
		return nil, errors.New("build: redis client required")
	}
	if b.store == nil {
		return nil, errors.New("build: principal store required")
	}

	cfg := b.config
	if !b.hasConfig {
		cfg = DefaultConfig()
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codec, err := credential.New(credential.Config{
		Kind:          cfg.Credential.Strategy,
		BcryptCost:    cfg.Credential.BcryptCost,
		EncryptionKey: cfg.Credential.EncryptionKey,
	})
	if err != nil {
		return nil, fmt.Errorf("build: credential codec: %w", err)
	}

	tokens, err := jwt.NewManager(jwt.Config{
		TTL:    cfg.Session.TTL,
		Secret: cfg.Session.SigningSecret,
		Issuer: cfg.Session.Issuer,
		Leeway: cfg.Session.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("build: token manager: %w", err)
	}

	e := &Engine{
		config:   cfg,
		redis:    b.redis,
		store:    b.store,
		codec:    codec,
		tokens:   tokens,
		sessions: session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.SingleSession),
		metrics:  NewMetrics(cfg.Metrics),
	}

	if cfg.Security.EnableLoginThrottle {
		e.limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}

	if cfg.Federated.Enabled {
		e.oauth = &oauth2.Config{
			ClientID:     cfg.Federated.ClientID,
			ClientSecret: cfg.Federated.ClientSecret,
			RedirectURL:  cfg.Federated.RedirectURL,
			Scopes:       cfg.Federated.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.Federated.AuthURL,
				TokenURL: cfg.Federated.TokenURL,
			},
		}
		e.states = newFederatedStateStore(b.redis, cfg.Session.RedisPrefix, cfg.Federated.StateTTL)
	}

	if cfg.Audit.Enabled {
		sink := b.sink
		if sink == nil {
			sink = NoOpSink{}
		}
		e.audit = newAuditDispatcher(cfg.Audit, sink)
	}

	e.ready = true
	return e, nil
}
