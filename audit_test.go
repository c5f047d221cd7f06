package learnauth

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// blockingSink holds every Emit until released, for saturating the
// dispatcher queue.
type blockingSink struct {
	release chan struct{}
	once    sync.Once
}

func newBlockingSink() *blockingSink {
	return &blockingSink{release: make(chan struct{})}
}

func (s *blockingSink) Emit(ctx context.Context, _ AuditEvent) {
	select {
	case <-s.release:
	case <-ctx.Done():
	}
}

func (s *blockingSink) Release() {
	s.once.Do(func() { close(s.release) })
}

func TestDispatcherDeliversEvents(t *testing.T) {
	sink := NewChannelSink(8)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 8}, sink)

	d.Emit(context.Background(), AuditEvent{EventType: "test_event"})
	d.Close()

	select {
	case event := <-sink.Events():
		if event.EventType != "test_event" {
			t.Fatalf("EventType = %q", event.EventType)
		}
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestDispatcherDropsWhenSaturated(t *testing.T) {
	sink := newBlockingSink()
	defer sink.Release()

	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// One event occupies the worker, one fills the buffer, the rest must
	// be shed without blocking.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "flood"})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected dropped events under saturation")
	}

	sink.Release()
	d.Close()
}

func TestDispatcherCloseDrains(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "drain_me"})
	}
	d.Close()

	delivered := 0
	for drained := false; !drained; {
		select {
		case <-sink.Events():
			delivered++
		default:
			drained = true
		}
	}
	if delivered != 5 {
		t.Fatalf("delivered = %d, want 5", delivered)
	}

	// Close is idempotent.
	d.Close()
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: "login_success",
		Success:   true,
		Metadata:  map[string]string{"reason": "test"},
	})

	var decoded AuditEvent
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.EventType != "login_success" || !decoded.Success {
		t.Fatalf("decoded = %+v", decoded)
	}
	if decoded.Metadata["reason"] != "test" {
		t.Fatalf("metadata = %v", decoded.Metadata)
	}
}

func TestAuditErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		code AuditErrorCode
	}{
		{ErrInvalidCredentials, auditErrInvalidCredentials},
		{ErrPrincipalNotFound, auditErrPrincipalNotFound},
		{ErrLoginRateLimited, auditErrRateLimited},
		{ErrInvalidSession, auditErrInvalidSession},
		{ErrProviderDenied, auditErrProviderDenied},
		{ErrProviderStateInvalid, auditErrProviderState},
		{ErrProviderExchange, auditErrProviderExchange},
		{ErrStoreUnavailable, auditErrUnavailable},
		{nil, ""},
	}

	for _, tc := range cases {
		if got := auditErrorCode(tc.err); got != tc.code {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.code)
		}
	}
}
