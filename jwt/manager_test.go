package jwt

import (
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		TTL:    time.Hour,
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		Issuer: "learnauth-test",
	}
}

func TestMintParseRoundTrip(t *testing.T) {
	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m.Mint("sid-1", "principal-1", "Alice")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.SID != "sid-1" {
		t.Fatalf("SID = %q", claims.SID)
	}
	if claims.Subject != "principal-1" {
		t.Fatalf("Subject = %q", claims.Subject)
	}
	if claims.Name != "Alice" {
		t.Fatalf("Name = %q", claims.Name)
	}
}

func TestNewManagerValidation(t *testing.T) {
	cfg := testConfig()
	cfg.Secret = []byte("too-short")
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected error for short secret")
	}

	cfg = testConfig()
	cfg.TTL = 0
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected error for zero TTL")
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m.Mint("sid-1", "principal-1", "")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	// Flip one character in the payload segment.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d segments", len(parts))
	}
	payload := []byte(parts[1])
	if payload[3] == 'A' {
		payload[3] = 'B'
	} else {
		payload[3] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := m.Parse(tampered); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	m1, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cfg := testConfig()
	cfg.Secret = []byte("ffffffffffffffffffffffffffffffff")
	m2, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m1.Mint("sid-1", "principal-1", "")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if _, err := m2.Parse(token); err == nil {
		t.Fatal("expected token signed with another key to be rejected")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.TTL = time.Millisecond
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, err := m.Mint("sid-1", "principal-1", "")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestMintRequiresIdentifiers(t *testing.T) {
	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m.Mint("", "principal-1", ""); err == nil {
		t.Fatal("expected error for empty session id")
	}
	if _, err := m.Mint("sid-1", "", ""); err == nil {
		t.Fatal("expected error for empty principal id")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	m, err := NewManager(testConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m.Parse("not-a-token"); err == nil {
		t.Fatal("expected garbage to be rejected")
	}
	if _, err := m.Parse(""); err == nil {
		t.Fatal("expected empty string to be rejected")
	}
}
