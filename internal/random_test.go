package internal

import "testing"

func TestSessionIDRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}

	parsed, err := ParseSessionID(sid.String())
	if err != nil {
		t.Fatalf("ParseSessionID: %v", err)
	}
	if parsed != sid {
		t.Fatal("round trip mismatch")
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		sid, err := NewSessionID()
		if err != nil {
			t.Fatalf("NewSessionID: %v", err)
		}
		s := sid.String()
		if seen[s] {
			t.Fatalf("duplicate session id %q", s)
		}
		seen[s] = true
	}
}

func TestParseSessionIDRejectsBadInput(t *testing.T) {
	if _, err := ParseSessionID("not base64!!"); err == nil {
		t.Fatal("expected error for invalid encoding")
	}
	if _, err := ParseSessionID("c2hvcnQ"); err == nil {
		t.Fatal("expected error for wrong size")
	}
	if _, err := ParseSessionID(""); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestNewStateToken(t *testing.T) {
	a, err := NewStateToken()
	if err != nil {
		t.Fatalf("NewStateToken: %v", err)
	}
	b, err := NewStateToken()
	if err != nil {
		t.Fatalf("NewStateToken: %v", err)
	}
	if a == b {
		t.Fatal("state tokens must be unique")
	}
	if len(a) < 40 {
		t.Fatalf("state token too short: %d chars", len(a))
	}
}
