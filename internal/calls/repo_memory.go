package calls

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo mirrors PostgresRepo semantics for tests: provider_call_id
// uniqueness and the terminal-once Finish rule.
type MemoryRepo struct {
	mu    sync.Mutex
	byID  map[string]Call
	byPCI map[string]string // provider_call_id -> id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:  make(map[string]Call),
		byPCI: make(map[string]string),
	}
}

func (r *MemoryRepo) CreateIfAbsent(ctx context.Context, c Call) (Call, bool, error) {
	_ = ctx
	if c.TenantID == "" || c.PhoneNumberID == "" || c.ProviderCallID == "" {
		return Call{}, false, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byPCI[c.ProviderCallID]; ok {
		return r.byID[id], false, nil
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = StatusInProgress
	}
	if c.StartedAt.IsZero() {
		c.StartedAt = time.Now().UTC()
	}
	r.byID[c.ID] = c
	r.byPCI[c.ProviderCallID] = c.ID
	return c, true, nil
}

func (r *MemoryRepo) FindByProviderCallID(ctx context.Context, providerCallID string) (Call, bool, error) {
	_ = ctx
	if providerCallID == "" {
		return Call{}, false, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPCI[providerCallID]
	if !ok {
		return Call{}, false, nil
	}
	return r.byID[id], true, nil
}

func (r *MemoryRepo) Finish(ctx context.Context, callID string, status CallStatus, endedAt time.Time) (bool, error) {
	_ = ctx
	if callID == "" || !status.Terminal() {
		return false, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[callID]
	if !ok {
		return false, ErrNotFound
	}
	if c.Status != StatusInProgress {
		return false, nil
	}
	ended := endedAt.UTC()
	c.Status = status
	c.EndedAt = &ended
	r.byID[callID] = c
	return true, nil
}

func (r *MemoryRepo) ListByTenant(ctx context.Context, tenantID string, from, to time.Time) ([]Call, error) {
	_ = ctx
	if tenantID == "" {
		return nil, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.byID {
		if c.TenantID != tenantID {
			continue
		}
		if c.StartedAt.Before(from) || !c.StartedAt.Before(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Len reports the number of stored calls. Test helper.
func (r *MemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
