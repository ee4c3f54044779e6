package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - tenant_id is required except for call rejections on DIDs that resolved
//   to no tenant; those carry the dialed number instead.
// - Actor and IP capture are best-effort; never block call handling on audit
//   failures.
//
// Storage recommendation (Postgres):
// - Table audit_events with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE.
// - Optional: partition by time for retention.

type Event struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id,omitempty" db:"tenant_id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event (if applicable).
	// Call-path events have no actor.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress should capture the original client IP when available.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers (optional, depending on the event type).
	CallID        string `json:"call_id,omitempty" db:"call_id"`
	PhoneNumberID string `json:"phone_number_id,omitempty" db:"phone_number_id"`
	DIDNumber     string `json:"did_number,omitempty" db:"did_number"`
	ProfileID     string `json:"profile_id,omitempty" db:"profile_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	// EventTypeCallRejected records a call that failed routing: unknown or
	// inactive DID, bad payload, or a tenant over its concurrency cap.
	EventTypeCallRejected EventType = "call_rejected"

	EventTypeNumberChanged  EventType = "number_changed"
	EventTypeProfileChanged EventType = "profile_changed"
	EventTypeAdminAction    EventType = "admin_action"
)
