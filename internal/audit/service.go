package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only; there are no update or delete methods.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}
	// Rejected calls on unknown DIDs have no tenant to attribute; everything
	// else must be tenant-scoped.
	if e.TenantID == "" && e.Type != EventTypeCallRejected {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogCallRejected records a call the router refused. tenantID may be empty
// for DIDs that resolved to no tenant.
func (s *Service) LogCallRejected(ctx context.Context, tenantID, didNumber, providerCallID, reason string) error {
	return s.Append(ctx, Event{
		TenantID:  tenantID,
		Type:      EventTypeCallRejected,
		DIDNumber: didNumber,
		CallID:    providerCallID,
		Message:   reason,
	})
}

// LogNumberChanged records provisioning changes to a phone number.
func (s *Service) LogNumberChanged(ctx context.Context, tenantID, actorUserID, actorRole, ip, phoneNumberID, didNumber, message string) error {
	return s.Append(ctx, Event{
		TenantID:      tenantID,
		Type:          EventTypeNumberChanged,
		ActorUserID:   actorUserID,
		ActorRole:     actorRole,
		IPAddress:     ip,
		PhoneNumberID: phoneNumberID,
		DIDNumber:     didNumber,
		Message:       message,
	})
}

// LogProfileChanged records AI profile changes.
func (s *Service) LogProfileChanged(ctx context.Context, tenantID, actorUserID, actorRole, ip, profileID, message string) error {
	return s.Append(ctx, Event{
		TenantID:    tenantID,
		Type:        EventTypeProfileChanged,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		ProfileID:   profileID,
		Message:     message,
	})
}
