package tenants

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepo is a simple in-memory repository useful for tests and early
// development. Semantics mirror PostgresRepo, including the unique DID
// constraint and the single-default-profile swap.
//
// NOTE: This is not intended for production.
type MemoryRepo struct {
	mu       sync.RWMutex
	Tenants  map[string]Tenant
	Numbers  map[string]PhoneNumber // keyed by id
	Profiles map[string]AIProfile   // keyed by id
	Business map[string]BusinessProfile
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		Tenants:  make(map[string]Tenant),
		Numbers:  make(map[string]PhoneNumber),
		Profiles: make(map[string]AIProfile),
		Business: make(map[string]BusinessProfile),
	}
}

func (r *MemoryRepo) FindTenant(ctx context.Context, tenantID string) (Tenant, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.Tenants[tenantID]
	return t, ok, nil
}

func (r *MemoryRepo) FindNumberByDID(ctx context.Context, didNumber string) (PhoneNumber, bool, error) {
	_ = ctx
	did := NormalizeDID(didNumber)
	if did == "" {
		return PhoneNumber{}, false, ErrInvalidArgument
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, pn := range r.Numbers {
		if pn.DIDNumber == did {
			return pn, true, nil
		}
	}
	return PhoneNumber{}, false, nil
}

func (r *MemoryRepo) InsertNumber(ctx context.Context, pn PhoneNumber) error {
	_ = ctx
	if pn.TenantID == "" || NormalizeDID(pn.DIDNumber) == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	did := NormalizeDID(pn.DIDNumber)
	for _, existing := range r.Numbers {
		if existing.DIDNumber == did {
			return ErrDuplicateDID
		}
	}
	if pn.ID == "" {
		pn.ID = uuid.NewString()
	}
	pn.DIDNumber = did
	r.Numbers[pn.ID] = pn
	return nil
}

func (r *MemoryRepo) SetNumberActive(ctx context.Context, tenantID, phoneNumberID string, active bool) error {
	_ = ctx
	if tenantID == "" || phoneNumberID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	pn, ok := r.Numbers[phoneNumberID]
	if !ok || pn.TenantID != tenantID {
		return ErrNotFound
	}
	pn.IsActive = active
	r.Numbers[phoneNumberID] = pn
	return nil
}

func (r *MemoryRepo) FindProfile(ctx context.Context, tenantID, profileID string) (AIProfile, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.Profiles[profileID]
	if !ok || p.TenantID != tenantID {
		return AIProfile{}, false, nil
	}
	return p, true, nil
}

func (r *MemoryRepo) FindDefaultProfile(ctx context.Context, tenantID string) (AIProfile, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.Profiles {
		if p.TenantID == tenantID && p.IsDefault {
			return p, true, nil
		}
	}
	return AIProfile{}, false, nil
}

func (r *MemoryRepo) InsertProfile(ctx context.Context, p AIProfile) error {
	_ = ctx
	if p.TenantID == "" || strings.TrimSpace(p.SystemPrompt) == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	r.Profiles[p.ID] = p
	return nil
}

func (r *MemoryRepo) SetDefaultProfile(ctx context.Context, tenantID, profileID string) error {
	_ = ctx
	if tenantID == "" || profileID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.Profiles[profileID]
	if !ok || target.TenantID != tenantID {
		return ErrNotFound
	}
	for id, p := range r.Profiles {
		if p.TenantID == tenantID && p.IsDefault && id != profileID {
			p.IsDefault = false
			r.Profiles[id] = p
		}
	}
	target.IsDefault = true
	r.Profiles[profileID] = target
	return nil
}

func (r *MemoryRepo) FindBusinessProfile(ctx context.Context, tenantID string) (BusinessProfile, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	bp, ok := r.Business[tenantID]
	return bp, ok, nil
}
