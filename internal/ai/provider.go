// Package ai wraps the speech and language providers behind small capability
// interfaces so the conversation loop never sees a vendor SDK.
package ai

import "context"

// Message is one entry of LLM conversation context.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Transcriber turns one caller utterance into text. The language hint is a
// BCP-47 primary tag ("en", "hi") or empty for auto-detection.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}

// Responder produces the assistant's reply given the system prompt and the
// conversation so far.
type Responder interface {
	Respond(ctx context.Context, messages []Message) (string, error)
}

// Synthesizer renders reply text as playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}
