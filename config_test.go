package learnauth

import (
	"testing"

	"github.com/czhexg/learn-auth/credential"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Session.SigningSecret = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsShortSigningSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Session.SigningSecret = []byte("short")
	cfg.applyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for short signing secret")
	}
}

func TestValidateEncryptedStrategyNeedsKey(t *testing.T) {
	cfg := validConfig()
	cfg.Credential.Strategy = credential.KindEncrypted
	cfg.applyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing encryption key")
	}

	cfg.Credential.EncryptionKey = make([]byte, 32)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate with key: %v", err)
	}
}

func TestValidateFederatedRequiresEndpoints(t *testing.T) {
	cfg := validConfig()
	cfg.Federated.Enabled = true
	cfg.applyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for incomplete federated config")
	}

	cfg.Federated.ClientID = "id"
	cfg.Federated.ClientSecret = "secret"
	cfg.Federated.RedirectURL = "http://localhost/cb"
	cfg.Federated.AuthURL = "http://provider/auth"
	cfg.Federated.TokenURL = "http://provider/token"
	cfg.Federated.ProfileURL = "http://provider/profile"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate complete federated: %v", err)
	}
}

func TestValidateIPThrottleRequiresLoginThrottle(t *testing.T) {
	cfg := validConfig()
	cfg.Security.EnableLoginThrottle = false
	cfg.Security.EnableIPThrottle = true
	cfg.applyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for ip throttle without login throttle")
	}
}

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	if cfg.Session.RedisPrefix != defaultSessionPrefix {
		t.Fatalf("prefix = %q", cfg.Session.RedisPrefix)
	}
	if cfg.Session.TTL != defaultSessionTTL {
		t.Fatalf("ttl = %v", cfg.Session.TTL)
	}
	if cfg.Security.MaxLoginAttempts != defaultMaxAttempts {
		t.Fatalf("attempts = %d", cfg.Security.MaxLoginAttempts)
	}
	if cfg.Federated.IDField != "id" || cfg.Federated.EmailField != "email" || cfg.Federated.NameField != "name" {
		t.Fatalf("profile fields = %q %q %q", cfg.Federated.IDField, cfg.Federated.EmailField, cfg.Federated.NameField)
	}
}

func TestCloneConfigIsDeep(t *testing.T) {
	cfg := validConfig()
	cfg.Federated.Scopes = []string{"email"}

	clone := cloneConfig(cfg)
	clone.Session.SigningSecret[0] = 'X'
	clone.Federated.Scopes[0] = "mutated"

	if cfg.Session.SigningSecret[0] == 'X' {
		t.Fatal("signing secret shared between clone and original")
	}
	if cfg.Federated.Scopes[0] != "email" {
		t.Fatal("scopes shared between clone and original")
	}
}
