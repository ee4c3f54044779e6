package telephony

import (
	"errors"
	"time"

	"voicegate/internal/calls"
)

// CallMetadata is the provider-agnostic description of an inbound call as
// reported by the gateway. Caller identity is informational only; routing is
// decided exclusively from CalledNumber.
type CallMetadata struct {
	CallerNumber string `json:"caller_number"`
	CalledNumber string `json:"called_number"`

	// ProviderCallID is the gateway's unique id for this call and the
	// idempotency key for record creation.
	ProviderCallID string `json:"provider_call_id"`

	Direction  calls.Direction `json:"direction"`
	OccurredAt time.Time       `json:"occurred_at"`

	// Answered is set when the gateway reports the call as already picked up.
	Answered bool `json:"answered,omitempty"`
}

var ErrInvalidMetadata = errors.New("telephony: invalid call metadata")

// Validate checks the fields every provider must supply.
func (m CallMetadata) Validate() error {
	if m.CallerNumber == "" || m.CalledNumber == "" || m.ProviderCallID == "" || m.OccurredAt.IsZero() {
		return ErrInvalidMetadata
	}
	return nil
}

// EventType is a call lifecycle state. The machine is
// INITIATED -> RINGING -> ANSWERED -> {ENDED | FAILED}; FAILED is reachable
// from any non-terminal state, ENDED also directly from INITIATED (immediate
// hangup). No state is revisited.
type EventType string

const (
	EventInitiated EventType = "initiated"
	EventRinging   EventType = "ringing"
	EventAnswered  EventType = "answered"
	EventEnded     EventType = "ended"
	EventFailed    EventType = "failed"
)

func (t EventType) Terminal() bool {
	return t == EventEnded || t == EventFailed
}

// CanTransition reports whether the lifecycle permits moving from one state
// to another.
func CanTransition(from, to EventType) bool {
	if from.Terminal() {
		return false
	}
	if to == EventFailed {
		return true
	}
	switch from {
	case EventInitiated:
		return to == EventRinging || to == EventAnswered || to == EventEnded
	case EventRinging:
		return to == EventAnswered
	case EventAnswered:
		return to == EventEnded
	default:
		return false
	}
}

// CallEvent is the state-machine output of processing one gateway event.
// Failure events carry a safe, non-identifying Detail; internals stay in logs.
type CallEvent struct {
	Type     EventType    `json:"type"`
	Metadata CallMetadata `json:"metadata"`

	// Set once the DID has been resolved and a record created.
	TenantID      string `json:"tenant_id,omitempty"`
	PhoneNumberID string `json:"phone_number_id,omitempty"`
	CallRecordID  string `json:"call_record_id,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}
