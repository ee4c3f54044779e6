package telephony

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"voicegate/internal/audit"
	"voicegate/internal/calls"
	"voicegate/internal/routing"
)

// AsteriskAdapter drives an Asterisk gateway fronted by a SIP trunk. Numbers
// are provisioned manually in pjsip, so Register/Unregister return
// ErrUnsupported; the adapter's real job is the inbound hot path.
type AsteriskAdapter struct {
	resolver routing.Resolver
	calls    calls.Repository
	audit    *audit.Service
	log      *slog.Logger

	now func() time.Time
}

func NewAsteriskAdapter(resolver routing.Resolver, repo calls.Repository, auditor *audit.Service, log *slog.Logger) *AsteriskAdapter {
	return &AsteriskAdapter{
		resolver: resolver,
		calls:    repo,
		audit:    auditor,
		log:      log,
		now:      time.Now,
	}
}

func (a *AsteriskAdapter) Name() string { return "asterisk" }

func (a *AsteriskAdapter) RegisterNumber(ctx context.Context, tenantID, phoneNumberID, didNumber string) (Registration, error) {
	return Registration{}, ErrUnsupported
}

func (a *AsteriskAdapter) UnregisterNumber(ctx context.Context, tenantID, phoneNumberID, didNumber string) (Registration, error) {
	return Registration{}, ErrUnsupported
}

// OnInboundCall validates the gateway payload, resolves the called DID to a
// tenant and ensures exactly one call record exists for the provider call id.
// Redelivered events for a known call return the existing record rather than
// a duplicate.
func (a *AsteriskAdapter) OnInboundCall(ctx context.Context, md CallMetadata) CallEvent {
	if err := md.Validate(); err != nil {
		a.log.Warn("inbound call rejected", "reason", "invalid metadata", "provider_call_id", md.ProviderCallID)
		return a.reject(ctx, md, "", "invalid call metadata")
	}

	res, err := a.resolver.Resolve(ctx, md.CalledNumber)
	if err != nil {
		switch {
		case errors.Is(err, routing.ErrUnknownDID):
			a.log.Warn("inbound call rejected", "reason", "unknown did", "called_number", md.CalledNumber, "provider_call_id", md.ProviderCallID)
			return a.reject(ctx, md, "", "number not configured")
		case errors.Is(err, routing.ErrInactiveDID):
			a.log.Warn("inbound call rejected", "reason", "inactive did", "called_number", md.CalledNumber, "provider_call_id", md.ProviderCallID)
			return a.reject(ctx, md, "", "number not active")
		default:
			a.log.Error("did resolution failed", "error", err, "provider_call_id", md.ProviderCallID)
			return a.failed(md, "routing unavailable")
		}
	}

	direction := md.Direction
	if direction == "" {
		direction = calls.DirectionInbound
	}
	rec, created, err := a.calls.CreateIfAbsent(ctx, calls.Call{
		TenantID:       res.TenantID,
		PhoneNumberID:  res.PhoneNumberID,
		ProviderCallID: md.ProviderCallID,
		CallerNumber:   md.CallerNumber,
		CalledNumber:   res.DIDNumber,
		Direction:      direction,
		StartedAt:      md.OccurredAt,
	})
	if err != nil {
		a.log.Error("call record create failed", "error", err, "tenant_id", res.TenantID, "provider_call_id", md.ProviderCallID)
		return a.failed(md, "call setup failed")
	}
	if !created {
		a.log.Info("inbound event redelivered", "call_id", rec.ID, "provider_call_id", md.ProviderCallID)
	}

	typ := EventInitiated
	if md.Answered {
		typ = EventAnswered
	}
	return CallEvent{
		Type:          typ,
		Metadata:      md,
		TenantID:      rec.TenantID,
		PhoneNumberID: rec.PhoneNumberID,
		CallRecordID:  rec.ID,
		Timestamp:     a.now().UTC(),
	}
}

// reject audit-logs a refused call. tenantID is empty when the DID resolved
// to no tenant. Audit failures only log; the event still goes out.
func (a *AsteriskAdapter) reject(ctx context.Context, md CallMetadata, tenantID, detail string) CallEvent {
	if a.audit != nil {
		if err := a.audit.LogCallRejected(ctx, tenantID, md.CalledNumber, md.ProviderCallID, detail); err != nil {
			a.log.Warn("audit append failed", "error", err)
		}
	}
	return a.failed(md, detail)
}

func (a *AsteriskAdapter) failed(md CallMetadata, detail string) CallEvent {
	return CallEvent{
		Type:      EventFailed,
		Metadata:  md,
		Timestamp: a.now().UTC(),
		Detail:    detail,
	}
}
