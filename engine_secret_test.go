package learnauth

import (
	"context"
	"errors"
	"testing"
)

func TestSecretRoundTrip(t *testing.T) {
	engine, _ := newTestEngine(t, testEngineConfig())
	ctx := context.Background()

	reg, err := engine.Register(ctx, RegisterRequest{Identifier: "alice@example.com", Secret: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Fresh principal has no protected value.
	value, err := engine.Secret(ctx, reg.SessionToken)
	if err != nil {
		t.Fatalf("Secret: %v", err)
	}
	if value != "" {
		t.Fatalf("expected empty secret, got %q", value)
	}

	if err := engine.UpdateSecret(ctx, reg.SessionToken, "the launch codes"); err != nil {
		t.Fatalf("UpdateSecret: %v", err)
	}

	value, err = engine.Secret(ctx, reg.SessionToken)
	if err != nil {
		t.Fatalf("Secret after update: %v", err)
	}
	if value != "the launch codes" {
		t.Fatalf("Secret = %q", value)
	}

	// Empty value clears it.
	if err := engine.UpdateSecret(ctx, reg.SessionToken, ""); err != nil {
		t.Fatalf("UpdateSecret clear: %v", err)
	}
	value, err = engine.Secret(ctx, reg.SessionToken)
	if err != nil {
		t.Fatalf("Secret after clear: %v", err)
	}
	if value != "" {
		t.Fatalf("expected cleared secret, got %q", value)
	}
}

func TestSecretRequiresLiveSession(t *testing.T) {
	engine, _ := newTestEngine(t, testEngineConfig())
	ctx := context.Background()

	reg, err := engine.Register(ctx, RegisterRequest{Identifier: "alice@example.com", Secret: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := engine.Logout(ctx, reg.SessionToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, err := engine.Secret(ctx, reg.SessionToken); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if err := engine.UpdateSecret(ctx, reg.SessionToken, "x"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestSecretDanglingPrincipalKillsSession(t *testing.T) {
	engine, store := newTestEngine(t, testEngineConfig())
	ctx := context.Background()

	reg, err := engine.Register(ctx, RegisterRequest{Identifier: "alice@example.com", Secret: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Principal removed out from under a live session.
	store.mu.Lock()
	delete(store.byID, reg.PrincipalID)
	store.mu.Unlock()

	if _, err := engine.Secret(ctx, reg.SessionToken); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	// The session itself was destroyed, not just the request refused.
	if _, err := engine.Authenticate(ctx, reg.SessionToken); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected dead session, got %v", err)
	}
}

func TestUpdateSecretEmitsAudit(t *testing.T) {
	sink := NewChannelSink(16)
	engine, err := New().
		WithConfig(testEngineConfig()).
		WithRedis(newTestRedis(t)).
		WithPrincipalStore(newMockStore()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ctx := context.Background()

	reg, err := engine.Register(ctx, RegisterRequest{Identifier: "alice@example.com", Secret: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := engine.UpdateSecret(ctx, reg.SessionToken, "v"); err != nil {
		t.Fatalf("UpdateSecret: %v", err)
	}

	engine.Close()

	found := false
	for drained := false; !drained; {
		select {
		case event := <-sink.Events():
			if event.EventType == auditEventSecretUpdate && event.PrincipalID == reg.PrincipalID {
				found = true
			}
		default:
			drained = true
		}
	}
	if !found {
		t.Fatal("no secret_update audit event recorded")
	}
}
