package routing

import (
	"context"
	"errors"
	"testing"

	"voicegate/internal/tenants"
)

func seededDirectory(t *testing.T) *tenants.MemoryRepo {
	t.Helper()
	repo := tenants.NewMemoryRepo()
	ctx := context.Background()
	if err := repo.InsertNumber(ctx, tenants.PhoneNumber{ID: "pn-1", TenantID: "T1", DIDNumber: "+15559876543", IsActive: true}); err != nil {
		t.Fatalf("seed active number: %v", err)
	}
	if err := repo.InsertNumber(ctx, tenants.PhoneNumber{ID: "pn-2", TenantID: "T2", DIDNumber: "+15550001111", IsActive: false}); err != nil {
		t.Fatalf("seed inactive number: %v", err)
	}
	return repo
}

func TestResolve_ActiveDID(t *testing.T) {
	r := NewDIDResolver(seededDirectory(t))

	res, err := r.Resolve(context.Background(), "+15559876543")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.TenantID != "T1" || res.PhoneNumberID != "pn-1" {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolve_NormalizesBeforeLookup(t *testing.T) {
	r := NewDIDResolver(seededDirectory(t))

	res, err := r.Resolve(context.Background(), "+1 (555) 987-6543")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.TenantID != "T1" {
		t.Fatalf("expected T1, got %q", res.TenantID)
	}
}

func TestResolve_UnknownDIDFailsClosed(t *testing.T) {
	r := NewDIDResolver(seededDirectory(t))

	_, err := r.Resolve(context.Background(), "+19998887777")
	if !errors.Is(err, ErrUnknownDID) {
		t.Fatalf("expected ErrUnknownDID, got %v", err)
	}
}

func TestResolve_InactiveDIDDistinctError(t *testing.T) {
	r := NewDIDResolver(seededDirectory(t))

	_, err := r.Resolve(context.Background(), "+15550001111")
	if !errors.Is(err, ErrInactiveDID) {
		t.Fatalf("expected ErrInactiveDID, got %v", err)
	}
}

func TestResolve_EmptyDID(t *testing.T) {
	r := NewDIDResolver(seededDirectory(t))

	_, err := r.Resolve(context.Background(), "   ")
	if !errors.Is(err, ErrUnknownDID) {
		t.Fatalf("expected ErrUnknownDID for blank input, got %v", err)
	}
}
