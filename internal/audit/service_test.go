package audit

import (
	"context"
	"testing"
)

func TestService_ValidationRules(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{TenantID: "t1"}); err != ErrInvalidEvent {
		t.Fatalf("expected ErrInvalidEvent for missing type, got %v", err)
	}
	if err := svc.Append(context.Background(), Event{Type: EventTypeNumberChanged}); err != ErrInvalidEvent {
		t.Fatalf("expected ErrInvalidEvent for missing tenant, got %v", err)
	}
	// Rejections on unknown DIDs are the one tenant-less case.
	if err := svc.Append(context.Background(), Event{Type: EventTypeCallRejected, DIDNumber: "+15550000000"}); err != nil {
		t.Fatalf("tenant-less rejection should be accepted: %v", err)
	}
}

func TestService_LogCallRejected(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogCallRejected(context.Background(), "", "+15550000000", "pbx-1", "number not configured"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	e := evs[0]
	if e.Type != EventTypeCallRejected || e.DIDNumber != "+15550000000" || e.CallID != "pbx-1" {
		t.Fatalf("unexpected event: %+v", e)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be filled in: %+v", e)
	}
}
