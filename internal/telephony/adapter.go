package telephony

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnsupported marks operations a provider does not implement. Callers
	// treat it as a normal outcome, not an incident.
	ErrUnsupported = errors.New("telephony: operation not supported by provider")

	// ErrProviderUnavailable is returned when the gateway cannot be reached.
	ErrProviderUnavailable = errors.New("telephony: provider unavailable")
)

// Registration is the outcome of a number provisioning request.
type Registration struct {
	Provider     string    `json:"provider"`
	DIDNumber    string    `json:"did_number"`
	Detail       string    `json:"detail,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Adapter abstracts a telephony provider. One adapter instance serves all
// tenants; per-call state lives in the events it emits, never in the adapter.
type Adapter interface {
	Name() string

	// RegisterNumber asks the provider to start delivering calls for a DID.
	// Providers without a provisioning API return ErrUnsupported.
	RegisterNumber(ctx context.Context, tenantID, phoneNumberID, didNumber string) (Registration, error)

	// UnregisterNumber reverses RegisterNumber, with the same ErrUnsupported
	// contract.
	UnregisterNumber(ctx context.Context, tenantID, phoneNumberID, didNumber string) (Registration, error)

	// OnInboundCall runs the hot path for a new call: validate, resolve the
	// DID, create the call record. It never returns an error; every failure
	// comes back as a typed EventFailed.
	OnInboundCall(ctx context.Context, md CallMetadata) CallEvent
}

var (
	// ErrChannelClosed is returned by media operations after the far end hung up.
	ErrChannelClosed = errors.New("telephony: media channel closed")

	// ErrNoAudio is returned by Capture when the window elapsed without speech.
	ErrNoAudio = errors.New("telephony: no audio captured")
)

// MediaChannel is the per-call audio path. All methods honour ctx
// cancellation; after the caller hangs up every method returns
// ErrChannelClosed.
type MediaChannel interface {
	// Capture blocks until one caller utterance is available or the window
	// passed via ctx expires. Silence is reported as ErrNoAudio.
	Capture(ctx context.Context) ([]byte, error)

	// Play streams synthesized audio to the caller.
	Play(ctx context.Context, audio []byte) error

	// Hangup tears the call down from our side. Idempotent.
	Hangup(ctx context.Context) error
}

// MediaDialer attaches to the audio path of an in-progress call.
type MediaDialer interface {
	Attach(ctx context.Context, providerCallID string) (MediaChannel, error)
}
