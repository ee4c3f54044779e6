package calls

import "time"

// Call represents a tenant-scoped phone call.
//
// Multi-tenant invariant: TenantID is required on every row and is fixed at
// routing time; no later stage may change it.
//
// ProviderCallID is the gateway's unique call identifier and doubles as the
// idempotency key: delivering the same inbound event twice must not create
// two rows.
type Call struct {
	ID            string `json:"id" db:"id"`
	TenantID      string `json:"tenant_id" db:"tenant_id"`
	PhoneNumberID string `json:"phone_number_id" db:"phone_number_id"`

	ProviderCallID string `json:"provider_call_id" db:"provider_call_id"`

	CallerNumber string `json:"caller_number" db:"caller_number"`
	CalledNumber string `json:"called_number" db:"called_number"`

	Direction Direction  `json:"direction" db:"direction"`
	Status    CallStatus `json:"status" db:"status"`

	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type CallStatus string

const (
	StatusInProgress  CallStatus = "in_progress"
	StatusCompleted   CallStatus = "completed"
	StatusFailed      CallStatus = "failed"
	StatusTransferred CallStatus = "transferred"
)

// Terminal reports whether the status may never change again.
func (s CallStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTransferred:
		return true
	default:
		return false
	}
}
