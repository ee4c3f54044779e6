// Package session holds per-call conversation state. State is keyed by the
// internal call record id, bounded by a turn cap and a TTL, and removed
// explicitly when a call finishes; the TTL is the safety net for crashed
// workers.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("session: not found")
	ErrExists   = errors.New("session: already exists")

	// ErrLimitReached signals the turn cap was hit; the attempted turn was
	// not appended.
	ErrLimitReached = errors.New("session: turn limit reached")
)

// ExitReason records why a conversation ended.
type ExitReason string

const (
	ReasonCompleted     ExitReason = "completed"
	ReasonTurnLimit     ExitReason = "max_turns_reached"
	ReasonDurationLimit ExitReason = "max_duration_reached"
	ReasonSilence       ExitReason = "silence"
	ReasonHangup        ExitReason = "caller_hangup"
	ReasonError         ExitReason = "error"
)

// Turn is one counted exchange: what the caller said and what the assistant
// answered. The opening greeting is not a turn; it lives on the State.
type Turn struct {
	CallerText    string    `json:"caller_text"`
	AssistantText string    `json:"assistant_text"`
	Language      string    `json:"language"`
	At            time.Time `json:"at"`
}

// State is the live conversation snapshot for a call.
type State struct {
	CallID   string `json:"call_id"`
	TenantID string `json:"tenant_id"`

	StartedAt time.Time `json:"started_at"`

	// Greeting is the assistant's opening line, kept for LLM context.
	Greeting string `json:"greeting,omitempty"`

	MaxTurns  int    `json:"max_turns"`
	TurnCount int    `json:"turn_count"`
	Turns     []Turn `json:"turns"`

	// DetectedLanguage is the last detection result; SpeakingLanguage is
	// what the assistant actually answers in. Once LanguageLocked is set,
	// SpeakingLanguage never changes again.
	DetectedLanguage string `json:"detected_language"`
	SpeakingLanguage string `json:"speaking_language"`
	LanguageLocked   bool   `json:"language_locked"`

	SilenceCount int        `json:"silence_count"`
	ExitReason   ExitReason `json:"exit_reason,omitempty"`
}

// Store is the conversation session store. Every write refreshes the TTL.
type Store interface {
	// Create installs a fresh session. ErrExists when the call already has one.
	Create(ctx context.Context, s State) error

	Get(ctx context.Context, callID string) (State, error)

	// AppendTurn atomically appends one turn and bumps the counter, resetting
	// the silence counter. When the cap is already reached it returns
	// ErrLimitReached and appends nothing. The returned count is the new
	// turn_count.
	AppendTurn(ctx context.Context, callID string, t Turn) (int, error)

	// SetLanguage updates detected and speaking language, optionally locking
	// the choice. Returns false without changing anything when the language
	// is already locked.
	SetLanguage(ctx context.Context, callID, lang string, lock bool) (bool, error)

	// RecordSilence increments the silence counter and returns it.
	RecordSilence(ctx context.Context, callID string) (int, error)

	// Finish stamps the exit reason. The state stays readable until Expire
	// (or the TTL) removes it.
	Finish(ctx context.Context, callID string, reason ExitReason) error

	// Expire deletes the session immediately.
	Expire(ctx context.Context, callID string) error
}
