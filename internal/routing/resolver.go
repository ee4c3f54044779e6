package routing

import (
	"context"
	"errors"

	"voicegate/internal/tenants"
)

// Resolution is the only output of DID routing: the owning tenant and the
// phone number row that proved ownership. Nothing else (in particular no
// caller-supplied field) may ever substitute for it.
type Resolution struct {
	TenantID      string `json:"tenant_id"`
	PhoneNumberID string `json:"phone_number_id"`
	DIDNumber     string `json:"did_number"`
}

// Routing fails closed: an unknown and an inactive DID both refuse the call.
// The two are distinct error kinds only so operators can tell configuration
// drift (unknown) from a deliberately disabled number (inactive).
var (
	ErrUnknownDID  = errors.New("routing: did not configured")
	ErrInactiveDID = errors.New("routing: did not active")
)

// Resolver maps a dialed number to exactly one active tenant.
//
// This is the single source of truth for inbound routing. All telephony
// adapters must use it; none may guess, default, or fall back.
type Resolver interface {
	Resolve(ctx context.Context, didNumber string) (Resolution, error)
}

// NumberDirectory is the minimal read surface the resolver needs.
// tenants.Repository satisfies it.
type NumberDirectory interface {
	FindNumberByDID(ctx context.Context, didNumber string) (tenants.PhoneNumber, bool, error)
}

// DIDResolver resolves DIDs with an exact-match indexed lookup.
// Side effects: none. Pure read.
type DIDResolver struct {
	numbers NumberDirectory
}

func NewDIDResolver(numbers NumberDirectory) *DIDResolver {
	return &DIDResolver{numbers: numbers}
}

func (r *DIDResolver) Resolve(ctx context.Context, didNumber string) (Resolution, error) {
	if r.numbers == nil {
		return Resolution{}, errors.New("routing: number directory not configured")
	}
	did := tenants.NormalizeDID(didNumber)
	if did == "" {
		return Resolution{}, ErrUnknownDID
	}

	pn, ok, err := r.numbers.FindNumberByDID(ctx, did)
	if err != nil {
		return Resolution{}, err
	}
	if !ok {
		return Resolution{}, ErrUnknownDID
	}
	if !pn.IsActive {
		return Resolution{}, ErrInactiveDID
	}

	return Resolution{
		TenantID:      pn.TenantID,
		PhoneNumberID: pn.ID,
		DIDNumber:     pn.DIDNumber,
	}, nil
}
