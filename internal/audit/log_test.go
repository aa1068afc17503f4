package audit

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"kinship.dev/internal/identity"
	"kinship.dev/internal/obs"
)

func TestLogEvent(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	obs.SetLogger(zap.New(core))
	defer obs.SetLogger(zap.NewNop())

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = identity.ContextWithPrincipal(ctx, identity.Principal{
		Kind:           identity.KindUser,
		Subject:        "user-42",
		OrganizationID: "org-1",
	})

	if err := LogEvent(ctx, "auth.login", map[string]any{"device_id": "d1"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["type"] != "audit" {
		t.Fatalf("unexpected type: %v", fields["type"])
	}
	if fields["event"] != "auth.login" {
		t.Fatalf("unexpected event: %v", fields["event"])
	}
	if fields["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", fields["request_id"])
	}
	if fields["user_id"] != "user-42" {
		t.Fatalf("unexpected user id: %v", fields["user_id"])
	}
	if fields["organization_id"] != "org-1" {
		t.Fatalf("unexpected organization id: %v", fields["organization_id"])
	}
	nested, ok := fields["fields"].(map[string]any)
	if !ok || nested["device_id"] != "d1" {
		t.Fatalf("fields missing or incorrect: %v", fields["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event name")
	}
}
