package learnauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/czhexg/learn-auth/credential"
)

// CredentialConfig selects the write-time sealing strategy and its
// parameters. The verifier always accepts every recognized stored format
// regardless of the configured strategy.
type CredentialConfig struct {
	// Strategy is the format applied when sealing new or resealed secrets.
	Strategy credential.Kind
	// BcryptCost applies to the adaptive strategy. Zero selects the
	// library default.
	BcryptCost int
	// EncryptionKey is the 32-byte AES key for the encrypted strategy.
	EncryptionKey []byte
	// ResealOnLogin upgrades stored values to the configured strategy when
	// a login presents the matching secret.
	ResealOnLogin bool
}

// SessionConfig controls server-side session records and the signed tokens
// that reference them.
type SessionConfig struct {
	// RedisPrefix namespaces all session keys. Defaults to "la".
	RedisPrefix string
	// TTL bounds both the Redis record and the token lifetime.
	TTL time.Duration
	// SigningSecret is the HS256 key for session tokens, at least 32 bytes.
	SigningSecret []byte
	Issuer        string
	// Leeway tolerates small clock skew during token validation.
	Leeway time.Duration
	// SingleSession enforces at most one live session per principal. A new
	// login displaces the previous session.
	SingleSession bool
}

// FederatedConfig describes one OAuth2 authorization-code provider. The
// provider is generic; endpoints and profile field names are configuration,
// not code.
type FederatedConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	// ProfileURL is fetched with the bearer token after exchange.
	ProfileURL string
	Scopes     []string
	// IDField, EmailField and NameField name the JSON keys in the profile
	// document. IDField defaults to "id", EmailField to "email", NameField
	// to "name".
	IDField    string
	EmailField string
	NameField  string
	// LinkByIdentifier attaches the federated identity to an existing local
	// principal whose identifier equals the profile email.
	LinkByIdentifier bool
	// StateTTL bounds the round trip to the provider. Defaults to 10
	// minutes.
	StateTTL time.Duration
	// ExchangeTimeout bounds the code exchange and profile fetch. Defaults
	// to 10 seconds.
	ExchangeTimeout time.Duration
}

// SecurityConfig controls login throttling.
type SecurityConfig struct {
	EnableLoginThrottle bool
	// EnableIPThrottle additionally counts attempts per caller IP when the
	// context carries one.
	EnableIPThrottle bool
	// MaxLoginAttempts is the failed-attempt budget per window. Defaults
	// to 5.
	MaxLoginAttempts int
	// LoginCooldownDuration is the fixed counting window. Defaults to 15
	// minutes.
	LoginCooldownDuration time.Duration
}

// AccountConfig controls local registration.
type AccountConfig struct {
	// Enabled gates Register. Federated principal creation is independent
	// of this flag.
	Enabled bool
	// AutoLogin mints a session as part of successful registration.
	AutoLogin bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled bool
	// BufferSize is the dispatch queue depth. Defaults to 256.
	BufferSize int
	// DropIfFull sheds events instead of blocking login paths when the
	// queue is saturated. Dropped counts are observable via AuditDropped.
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled bool
	// EnableLatencyHistograms additionally records authenticate-path
	// latency buckets.
	EnableLatencyHistograms bool
}

// Config aggregates all engine settings. Zero values are filled with
// defaults during Build; Validate rejects combinations that cannot work.
type Config struct {
	Credential CredentialConfig
	Session    SessionConfig
	Federated  FederatedConfig
	Security   SecurityConfig
	Account    AccountConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

const (
	defaultSessionPrefix   = "la"
	defaultSessionTTL      = 24 * time.Hour
	defaultMaxAttempts     = 5
	defaultCooldown        = 15 * time.Minute
	defaultAuditBuffer     = 256
	defaultStateTTL        = 10 * time.Minute
	defaultExchangeTimeout = 10 * time.Second
)

// DefaultConfig returns a Config with local registration, auto-login,
// throttling and auditing enabled, sealing with the adaptive strategy.
func DefaultConfig() Config {
	return Config{
		Credential: CredentialConfig{
			Strategy:      credential.KindAdaptive,
			ResealOnLogin: true,
		},
		Session: SessionConfig{
			RedisPrefix:   defaultSessionPrefix,
			TTL:           defaultSessionTTL,
			SingleSession: true,
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   true,
			MaxLoginAttempts:      defaultMaxAttempts,
			LoginCooldownDuration: defaultCooldown,
		},
		Account: AccountConfig{
			Enabled:   true,
			AutoLogin: true,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: defaultAuditBuffer,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func (c *Config) applyDefaults() {
	if c.Session.RedisPrefix == "" {
		c.Session.RedisPrefix = defaultSessionPrefix
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = defaultSessionTTL
	}
	if c.Security.MaxLoginAttempts <= 0 {
		c.Security.MaxLoginAttempts = defaultMaxAttempts
	}
	if c.Security.LoginCooldownDuration <= 0 {
		c.Security.LoginCooldownDuration = defaultCooldown
	}
	if c.Audit.BufferSize <= 0 {
		c.Audit.BufferSize = defaultAuditBuffer
	}
	if c.Federated.StateTTL <= 0 {
		c.Federated.StateTTL = defaultStateTTL
	}
	if c.Federated.ExchangeTimeout <= 0 {
		c.Federated.ExchangeTimeout = defaultExchangeTimeout
	}
	if c.Federated.IDField == "" {
		c.Federated.IDField = "id"
	}
	if c.Federated.EmailField == "" {
		c.Federated.EmailField = "email"
	}
	if c.Federated.NameField == "" {
		c.Federated.NameField = "name"
	}
}

// Validate checks cross-field consistency. It assumes defaults have been
// applied.
func (c *Config) Validate() error {
	if len(c.Session.SigningSecret) < 32 {
		return errors.New("config: session signing secret must be at least 32 bytes")
	}
	if c.Credential.Strategy == credential.KindEncrypted && len(c.Credential.EncryptionKey) != 32 {
		return errors.New("config: encrypted strategy requires a 32-byte encryption key")
	}
	if c.Credential.BcryptCost < 0 {
		return errors.New("config: bcrypt cost must not be negative")
	}
	if c.Federated.Enabled {
		switch {
		case c.Federated.ClientID == "":
			return errors.New("config: federated client id required")
		case c.Federated.ClientSecret == "":
			return errors.New("config: federated client secret required")
		case c.Federated.RedirectURL == "":
			return errors.New("config: federated redirect url required")
		case c.Federated.AuthURL == "":
			return errors.New("config: federated auth url required")
		case c.Federated.TokenURL == "":
			return errors.New("config: federated token url required")
		case c.Federated.ProfileURL == "":
			return errors.New("config: federated profile url required")
		}
	}
	if c.Security.EnableIPThrottle && !c.Security.EnableLoginThrottle {
		return fmt.Errorf("config: ip throttle requires login throttle")
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.Session.SigningSecret = append([]byte(nil), c.Session.SigningSecret...)
	out.Credential.EncryptionKey = append([]byte(nil), c.Credential.EncryptionKey...)
	out.Federated.Scopes = append([]string(nil), c.Federated.Scopes...)
	return out
}
