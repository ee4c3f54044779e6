package tenants

import (
	"context"
	"testing"
)

func TestNormalizeDID(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"+1 (555) 987-6543", "+15559876543"},
		{"  +15559876543 ", "+15559876543"},
		{"15559876543", "15559876543"},
	}
	for _, c := range cases {
		if got := NormalizeDID(c.in); got != c.want {
			t.Fatalf("NormalizeDID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestInsertNumber_DuplicateDIDRejected(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()

	if err := r.InsertNumber(ctx, PhoneNumber{TenantID: "t1", DIDNumber: "+15559876543", IsActive: true}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	// Same DID in a different format for a different tenant must still collide.
	err := r.InsertNumber(ctx, PhoneNumber{TenantID: "t2", DIDNumber: "+1 555 987 6543"})
	if err != ErrDuplicateDID {
		t.Fatalf("expected ErrDuplicateDID, got %v", err)
	}
}

func TestSetDefaultProfile_SwapsSingleDefault(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()

	if err := r.InsertProfile(ctx, AIProfile{ID: "p1", TenantID: "t1", Role: AIRoleReceptionist, SystemPrompt: "a", IsDefault: true}); err != nil {
		t.Fatalf("insert p1: %v", err)
	}
	if err := r.InsertProfile(ctx, AIProfile{ID: "p2", TenantID: "t1", Role: AIRoleSupport, SystemPrompt: "b"}); err != nil {
		t.Fatalf("insert p2: %v", err)
	}

	if err := r.SetDefaultProfile(ctx, "t1", "p2"); err != nil {
		t.Fatalf("set default: %v", err)
	}

	def, ok, err := r.FindDefaultProfile(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("expected default profile, ok=%v err=%v", ok, err)
	}
	if def.ID != "p2" {
		t.Fatalf("expected p2 default, got %s", def.ID)
	}
	p1, _, _ := r.FindProfile(ctx, "t1", "p1")
	if p1.IsDefault {
		t.Fatalf("expected previous default cleared")
	}
}

func TestSetDefaultProfile_CrossTenantRejected(t *testing.T) {
	r := NewMemoryRepo()
	ctx := context.Background()

	if err := r.InsertProfile(ctx, AIProfile{ID: "p1", TenantID: "t1", SystemPrompt: "a"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := r.SetDefaultProfile(ctx, "t2", "p1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for foreign tenant, got %v", err)
	}
}
