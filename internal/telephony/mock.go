package telephony

import (
	"context"
	"sync"
	"time"
)

// MockAdapter is a fully supported in-memory provider for tests and local
// development. It records every provisioning request.
type MockAdapter struct {
	mu         sync.Mutex
	registered map[string]bool
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{registered: make(map[string]bool)}
}

func (m *MockAdapter) Name() string { return "mock" }

func (m *MockAdapter) RegisterNumber(ctx context.Context, tenantID, phoneNumberID, didNumber string) (Registration, error) {
	m.mu.Lock()
	m.registered[didNumber] = true
	m.mu.Unlock()
	return Registration{Provider: "mock", DIDNumber: didNumber, RegisteredAt: time.Now().UTC()}, nil
}

func (m *MockAdapter) UnregisterNumber(ctx context.Context, tenantID, phoneNumberID, didNumber string) (Registration, error) {
	m.mu.Lock()
	delete(m.registered, didNumber)
	m.mu.Unlock()
	return Registration{Provider: "mock", DIDNumber: didNumber, RegisteredAt: time.Now().UTC()}, nil
}

func (m *MockAdapter) OnInboundCall(ctx context.Context, md CallMetadata) CallEvent {
	return CallEvent{Type: EventInitiated, Metadata: md, Timestamp: time.Now().UTC()}
}

func (m *MockAdapter) Registered(didNumber string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registered[didNumber]
}

// MockMediaChannel replays a script of capture outcomes and records what was
// played. A nil step means silence; after the script runs out, or after
// CloseAfter steps, capture reports a hangup.
type MockMediaChannel struct {
	mu     sync.Mutex
	script [][]byte
	step   int
	played [][]byte
	closed bool
	hungUp bool
}

func NewMockMediaChannel(script ...[]byte) *MockMediaChannel {
	return &MockMediaChannel{script: script}
}

func (m *MockMediaChannel) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrChannelClosed
	}
	if m.step >= len(m.script) {
		m.closed = true
		return nil, ErrChannelClosed
	}
	utterance := m.script[m.step]
	m.step++
	if utterance == nil {
		return nil, ErrNoAudio
	}
	return utterance, nil
}

func (m *MockMediaChannel) Play(ctx context.Context, audio []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrChannelClosed
	}
	m.played = append(m.played, audio)
	return nil
}

func (m *MockMediaChannel) Hangup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.hungUp = true
	return nil
}

// Close simulates the caller hanging up.
func (m *MockMediaChannel) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *MockMediaChannel) Played() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.played))
	copy(out, m.played)
	return out
}

func (m *MockMediaChannel) HungUp() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hungUp
}

// MockMediaDialer hands out pre-built channels keyed by provider call id.
type MockMediaDialer struct {
	mu       sync.Mutex
	channels map[string]*MockMediaChannel
}

func NewMockMediaDialer() *MockMediaDialer {
	return &MockMediaDialer{channels: make(map[string]*MockMediaChannel)}
}

func (d *MockMediaDialer) Add(providerCallID string, ch *MockMediaChannel) {
	d.mu.Lock()
	d.channels[providerCallID] = ch
	d.mu.Unlock()
}

func (d *MockMediaDialer) Attach(ctx context.Context, providerCallID string) (MediaChannel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.channels[providerCallID]
	if !ok {
		return nil, ErrChannelClosed
	}
	return ch, nil
}
