package telephony

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"voicegate/internal/audit"
	"voicegate/internal/calls"
	"voicegate/internal/routing"
	"voicegate/internal/tenants"
)

func newTestAdapter(t *testing.T) (*AsteriskAdapter, *calls.MemoryRepo, *audit.MemoryRepo) {
	t.Helper()
	dir := tenants.NewMemoryRepo()
	ctx := context.Background()
	if err := dir.InsertNumber(ctx, tenants.PhoneNumber{ID: "pn-1", TenantID: "t1", DIDNumber: "+15559876543", IsActive: true}); err != nil {
		t.Fatalf("seed active number: %v", err)
	}
	if err := dir.InsertNumber(ctx, tenants.PhoneNumber{ID: "pn-2", TenantID: "t2", DIDNumber: "+15550001111", IsActive: false}); err != nil {
		t.Fatalf("seed inactive number: %v", err)
	}
	repo := calls.NewMemoryRepo()
	auditRepo := audit.NewMemoryRepo()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAsteriskAdapter(routing.NewDIDResolver(dir), repo, audit.NewService(auditRepo), log), repo, auditRepo
}

func inbound(called, providerCallID string) CallMetadata {
	return CallMetadata{
		CallerNumber:   "+15551230000",
		CalledNumber:   called,
		ProviderCallID: providerCallID,
		OccurredAt:     time.Now().UTC(),
	}
}

func TestOnInboundCall_KnownActiveDID(t *testing.T) {
	adapter, repo, _ := newTestAdapter(t)

	ev := adapter.OnInboundCall(context.Background(), inbound("+1 (555) 987-6543", "pbx-100"))
	if ev.Type != EventInitiated {
		t.Fatalf("expected initiated, got %s (%s)", ev.Type, ev.Detail)
	}
	if ev.TenantID != "t1" || ev.PhoneNumberID != "pn-1" || ev.CallRecordID == "" {
		t.Fatalf("unexpected resolution: %+v", ev)
	}
	rec, ok, err := repo.FindByProviderCallID(context.Background(), "pbx-100")
	if err != nil || !ok {
		t.Fatalf("call record missing: ok=%v err=%v", ok, err)
	}
	if rec.Status != calls.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", rec.Status)
	}
	if rec.CalledNumber != "+15559876543" {
		t.Fatalf("expected canonical DID on record, got %s", rec.CalledNumber)
	}
}

func TestOnInboundCall_UnknownDIDFailsClosed(t *testing.T) {
	adapter, repo, auditRepo := newTestAdapter(t)

	ev := adapter.OnInboundCall(context.Background(), inbound("+15557770000", "pbx-101"))
	if ev.Type != EventFailed {
		t.Fatalf("expected failed, got %s", ev.Type)
	}
	if ev.Detail != "number not configured" {
		t.Fatalf("unexpected detail %q", ev.Detail)
	}
	if ev.TenantID != "" || ev.CallRecordID != "" {
		t.Fatalf("failure event must not carry a resolution: %+v", ev)
	}
	if repo.Len() != 0 {
		t.Fatalf("no record should exist for an unknown DID")
	}
	evs := auditRepo.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeCallRejected {
		t.Fatalf("expected one call_rejected audit event, got %+v", evs)
	}
}

func TestOnInboundCall_InactiveDIDFailsClosed(t *testing.T) {
	adapter, repo, _ := newTestAdapter(t)

	ev := adapter.OnInboundCall(context.Background(), inbound("+15550001111", "pbx-102"))
	if ev.Type != EventFailed {
		t.Fatalf("expected failed, got %s", ev.Type)
	}
	if ev.Detail != "number not active" {
		t.Fatalf("unexpected detail %q", ev.Detail)
	}
	if repo.Len() != 0 {
		t.Fatalf("no record should exist for an inactive DID")
	}
}

func TestOnInboundCall_RedeliveryIsIdempotent(t *testing.T) {
	adapter, repo, _ := newTestAdapter(t)

	md := inbound("+15559876543", "pbx-103")
	first := adapter.OnInboundCall(context.Background(), md)
	second := adapter.OnInboundCall(context.Background(), md)

	if first.Type != EventInitiated || second.Type != EventInitiated {
		t.Fatalf("expected initiated on both deliveries: %s / %s", first.Type, second.Type)
	}
	if first.CallRecordID != second.CallRecordID {
		t.Fatalf("redelivery created a new record: %s vs %s", first.CallRecordID, second.CallRecordID)
	}
	if repo.Len() != 1 {
		t.Fatalf("expected exactly one record, got %d", repo.Len())
	}
}

func TestOnInboundCall_InvalidMetadata(t *testing.T) {
	adapter, repo, _ := newTestAdapter(t)

	md := inbound("+15559876543", "pbx-104")
	md.CallerNumber = ""
	ev := adapter.OnInboundCall(context.Background(), md)
	if ev.Type != EventFailed || ev.Detail != "invalid call metadata" {
		t.Fatalf("expected metadata failure, got %s %q", ev.Type, ev.Detail)
	}
	if repo.Len() != 0 {
		t.Fatalf("invalid metadata must not create a record")
	}
}

func TestRegisterNumber_Unsupported(t *testing.T) {
	adapter, _, _ := newTestAdapter(t)

	if _, err := adapter.RegisterNumber(context.Background(), "t1", "pn-1", "+15559876543"); err != ErrUnsupported {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if _, err := adapter.UnregisterNumber(context.Background(), "t1", "pn-1", "+15559876543"); err != ErrUnsupported {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
