package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"voicegate/internal/ai"
	"voicegate/internal/calls"
	"voicegate/internal/session"
	"voicegate/internal/telephony"
	"voicegate/internal/tenants"
)

type stubSTT struct {
	fn func(audio []byte) (string, error)
}

func (s *stubSTT) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.fn(audio)
}

type stubLLM struct {
	fn func(msgs []ai.Message) (string, error)
}

func (s *stubLLM) Respond(ctx context.Context, msgs []ai.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.fn(msgs)
}

// stubTTS returns the text itself, so played audio is assertable as strings.
type stubTTS struct{}

func (stubTTS) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	return []byte(text), nil
}

type harness struct {
	orch     *Orchestrator
	dir      *tenants.MemoryRepo
	sessions *session.MemoryStore
	calls    *calls.MemoryRepo
	channel  *telephony.MockMediaChannel
	ev       telephony.CallEvent
}

func echoLLM(msgs []ai.Message) (string, error) { return "noted", nil }

func newHarness(t *testing.T, opts Options, script [][]byte, sttFn func([]byte) (string, error), llmFn func([]ai.Message) (string, error)) *harness {
	t.Helper()
	ctx := context.Background()

	dir := tenants.NewMemoryRepo()
	dir.Tenants["t1"] = tenants.Tenant{ID: "t1", Name: "Shree Dental", Status: tenants.TenantStatusActive, PrimaryLanguage: "en"}
	if err := dir.InsertProfile(ctx, tenants.AIProfile{ID: "p1", TenantID: "t1", Role: tenants.AIRoleReceptionist, SystemPrompt: "Be brief.", IsDefault: true}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	callRepo := calls.NewMemoryRepo()
	rec, _, err := callRepo.CreateIfAbsent(ctx, calls.Call{
		TenantID:       "t1",
		PhoneNumberID:  "pn-1",
		ProviderCallID: "pbx-1",
		CallerNumber:   "+15551230000",
		CalledNumber:   "+15559876543",
		Direction:      calls.DirectionInbound,
		StartedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed call: %v", err)
	}

	sessions := session.NewMemoryStore(time.Hour)
	channel := telephony.NewMockMediaChannel(script...)
	dialer := telephony.NewMockMediaDialer()
	dialer.Add("pbx-1", channel)

	if opts.CaptureWindow == 0 {
		opts.CaptureWindow = 100 * time.Millisecond
	}
	if opts.RetryInitialInterval == 0 {
		opts.RetryInitialInterval = time.Millisecond
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := New(sessions, callRepo, dir, NewMemoryLimiter(5), dialer,
		&stubSTT{fn: sttFn}, &stubLLM{fn: llmFn}, stubTTS{}, opts, log)

	return &harness{
		orch:     orch,
		dir:      dir,
		sessions: sessions,
		calls:    callRepo,
		channel:  channel,
		ev: telephony.CallEvent{
			Type:          telephony.EventInitiated,
			Metadata:      telephony.CallMetadata{ProviderCallID: "pbx-1", CallerNumber: "+15551230000", CalledNumber: "+15559876543", OccurredAt: time.Now()},
			TenantID:      "t1",
			PhoneNumberID: "pn-1",
			CallRecordID:  rec.ID,
		},
	}
}

func (h *harness) callStatus(t *testing.T) calls.CallStatus {
	t.Helper()
	rec, ok, err := h.calls.FindByProviderCallID(context.Background(), "pbx-1")
	if err != nil || !ok {
		t.Fatalf("call record lookup: ok=%v err=%v", ok, err)
	}
	return rec.Status
}

func TestRun_CallerHangupCompletesCall(t *testing.T) {
	h := newHarness(t, Options{MaxTurns: 5},
		[][]byte{[]byte("audio-1")},
		func([]byte) (string, error) { return "I want to book a cleaning", nil },
		echoLLM)

	h.orch.Run(context.Background(), h.ev)

	if got := h.callStatus(t); got != calls.StatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
	st, err := h.sessions.Get(context.Background(), h.ev.CallRecordID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if st.TurnCount != 1 || st.ExitReason != session.ReasonHangup {
		t.Fatalf("unexpected session state: count=%d reason=%s", st.TurnCount, st.ExitReason)
	}
	played := h.channel.Played()
	if len(played) < 2 || string(played[0]) != ai.Greeting("en") || string(played[1]) != "noted" {
		t.Fatalf("unexpected playback: %q", played)
	}
}

func TestRun_TurnCapEndsCall(t *testing.T) {
	h := newHarness(t, Options{MaxTurns: 2},
		[][]byte{[]byte("a1"), []byte("a2"), []byte("a3")},
		func(audio []byte) (string, error) { return "more about " + string(audio), nil },
		echoLLM)

	h.orch.Run(context.Background(), h.ev)

	st, _ := h.sessions.Get(context.Background(), h.ev.CallRecordID)
	if st.TurnCount != 2 {
		t.Fatalf("expected exactly 2 turns, got %d", st.TurnCount)
	}
	if st.ExitReason != session.ReasonTurnLimit {
		t.Fatalf("expected turn limit exit, got %s", st.ExitReason)
	}
	if got := h.callStatus(t); got != calls.StatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
	// The third utterance was never processed into a turn and the call
	// closed with a goodbye.
	played := h.channel.Played()
	if string(played[len(played)-1]) != goodbyeLines[ai.LangEnglish] {
		t.Fatalf("expected goodbye last, got %q", played[len(played)-1])
	}
}

func TestRun_TranscriptionFallbackKeepsTurnBudget(t *testing.T) {
	attempts := 0
	h := newHarness(t, Options{MaxTurns: 5, MaxRetries: 1},
		[][]byte{[]byte("garbled")},
		func([]byte) (string, error) {
			attempts++
			return "", &ai.Error{Stage: "stt", Kind: ai.KindTimeout, Err: errors.New("deadline")}
		},
		echoLLM)

	h.orch.Run(context.Background(), h.ev)

	if attempts != 2 {
		t.Fatalf("expected 2 transcription attempts, got %d", attempts)
	}
	st, _ := h.sessions.Get(context.Background(), h.ev.CallRecordID)
	if st.TurnCount != 0 {
		t.Fatalf("failed transcription must not consume a turn, got %d", st.TurnCount)
	}
	var sawRepeat bool
	for _, p := range h.channel.Played() {
		if string(p) == repeatLines[ai.LangEnglish] {
			sawRepeat = true
		}
	}
	if !sawRepeat {
		t.Fatalf("expected the repeat prompt to be played: %q", h.channel.Played())
	}
	if got := h.callStatus(t); got != calls.StatusCompleted {
		t.Fatalf("hangup after fallback should complete the call, got %s", got)
	}
}

func TestRun_SilenceDiscipline(t *testing.T) {
	h := newHarness(t, Options{MaxTurns: 5},
		[][]byte{nil, nil},
		func([]byte) (string, error) { return "never", nil },
		echoLLM)

	h.orch.Run(context.Background(), h.ev)

	st, _ := h.sessions.Get(context.Background(), h.ev.CallRecordID)
	if st.ExitReason != session.ReasonSilence {
		t.Fatalf("expected silence exit, got %s", st.ExitReason)
	}
	played := h.channel.Played()
	if len(played) != 3 { // greeting, still-there prompt, goodbye
		t.Fatalf("unexpected playback sequence: %q", played)
	}
	if string(played[1]) != stillThereLines[ai.LangEnglish] {
		t.Fatalf("expected still-there prompt after first silence, got %q", played[1])
	}
}

func TestRun_LLMFailurePlaysApology(t *testing.T) {
	h := newHarness(t, Options{MaxTurns: 5},
		[][]byte{[]byte("audio")},
		func([]byte) (string, error) { return "hello", nil },
		func([]ai.Message) (string, error) {
			return "", &ai.Error{Stage: "llm", Kind: ai.KindInvalidResponse, Err: errors.New("empty completion")}
		})

	h.orch.Run(context.Background(), h.ev)

	if got := h.callStatus(t); got != calls.StatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	st, _ := h.sessions.Get(context.Background(), h.ev.CallRecordID)
	if st.ExitReason != session.ReasonError {
		t.Fatalf("expected error exit, got %s", st.ExitReason)
	}
	played := h.channel.Played()
	if string(played[len(played)-1]) != apologyLines[ai.LangEnglish] {
		t.Fatalf("expected apology last, got %q", played[len(played)-1])
	}
}

func TestRun_FarewellCompletes(t *testing.T) {
	h := newHarness(t, Options{MaxTurns: 5},
		[][]byte{[]byte("audio")},
		func([]byte) (string, error) { return "okay bye", nil },
		echoLLM)

	h.orch.Run(context.Background(), h.ev)

	st, _ := h.sessions.Get(context.Background(), h.ev.CallRecordID)
	if st.ExitReason != session.ReasonCompleted {
		t.Fatalf("expected completed exit, got %s", st.ExitReason)
	}
	if st.TurnCount != 0 {
		t.Fatalf("farewell should not run the LLM, got %d turns", st.TurnCount)
	}
}

func TestRun_ExplicitSwitchLocksLanguage(t *testing.T) {
	h := newHarness(t, Options{MaxTurns: 5},
		[][]byte{[]byte("a1"), []byte("a2")},
		func(audio []byte) (string, error) {
			if string(audio) == "a1" {
				return "aap hindi me bolo na", nil
			}
			return "what are the opening hours please", nil
		},
		echoLLM)

	h.orch.Run(context.Background(), h.ev)

	st, _ := h.sessions.Get(context.Background(), h.ev.CallRecordID)
	if st.SpeakingLanguage != ai.LangHindi || !st.LanguageLocked {
		t.Fatalf("expected locked Hindi, got %s locked=%v", st.SpeakingLanguage, st.LanguageLocked)
	}
	if st.TurnCount != 2 {
		t.Fatalf("expected 2 turns, got %d", st.TurnCount)
	}
	if st.Turns[1].Language != ai.LangHindi {
		t.Fatalf("locked language must hold for later turns, got %s", st.Turns[1].Language)
	}
}

func TestRun_ConcurrencyCapRejects(t *testing.T) {
	h := newHarness(t, Options{MaxTurns: 5},
		[][]byte{[]byte("audio")},
		func([]byte) (string, error) { return "hello", nil },
		echoLLM)
	h.orch.limiter = NewMemoryLimiter(0)

	h.orch.Run(context.Background(), h.ev)

	if got := h.callStatus(t); got != calls.StatusFailed {
		t.Fatalf("expected failed on cap rejection, got %s", got)
	}
	if _, err := h.sessions.Get(context.Background(), h.ev.CallRecordID); err != session.ErrNotFound {
		t.Fatalf("no session should exist for a rejected call, got %v", err)
	}
}

func TestRun_NoDefaultProfileFailsCall(t *testing.T) {
	h := newHarness(t, Options{MaxTurns: 5},
		[][]byte{[]byte("audio")},
		func([]byte) (string, error) { return "hello", nil },
		echoLLM)
	delete(h.dir.Profiles, "p1")

	h.orch.Run(context.Background(), h.ev)

	if got := h.callStatus(t); got != calls.StatusFailed {
		t.Fatalf("expected failed without a default profile, got %s", got)
	}
	if _, err := h.sessions.Get(context.Background(), h.ev.CallRecordID); err != session.ErrNotFound {
		t.Fatalf("no session should exist, got %v", err)
	}
	if len(h.channel.Played()) != 0 {
		t.Fatalf("nothing should be spoken without a profile: %q", h.channel.Played())
	}
}

func TestRun_SuspendedTenantFailsCall(t *testing.T) {
	h := newHarness(t, Options{MaxTurns: 5},
		[][]byte{[]byte("audio")},
		func([]byte) (string, error) { return "hello", nil },
		echoLLM)
	tn := h.dir.Tenants["t1"]
	tn.Status = tenants.TenantStatusSuspended
	h.dir.Tenants["t1"] = tn

	h.orch.Run(context.Background(), h.ev)

	if got := h.callStatus(t); got != calls.StatusFailed {
		t.Fatalf("expected failed for suspended tenant, got %s", got)
	}
	if len(h.channel.Played()) != 0 {
		t.Fatalf("suspended tenant call must not speak: %q", h.channel.Played())
	}
}

func TestRun_DuplicateLaunchSkipped(t *testing.T) {
	h := newHarness(t, Options{MaxTurns: 5},
		[][]byte{[]byte("audio")},
		func([]byte) (string, error) { return "hello", nil },
		echoLLM)
	if err := h.sessions.Create(context.Background(), session.State{CallID: h.ev.CallRecordID, TenantID: "t1", MaxTurns: 5, StartedAt: time.Now()}); err != nil {
		t.Fatalf("pre-create session: %v", err)
	}

	h.orch.Run(context.Background(), h.ev)

	// The first orchestrator owns the record; the duplicate must not touch it.
	if got := h.callStatus(t); got != calls.StatusInProgress {
		t.Fatalf("duplicate launch must not finish the call, got %s", got)
	}
	if len(h.channel.Played()) != 0 {
		t.Fatalf("duplicate launch must not speak: %q", h.channel.Played())
	}
}

func TestRun_MaxDurationEndsCall(t *testing.T) {
	h := newHarness(t, Options{MaxTurns: 5, MaxDuration: time.Minute},
		[][]byte{[]byte("audio")},
		func([]byte) (string, error) { return "hello", nil },
		echoLLM)
	base := time.Now()
	first := true
	h.orch.now = func() time.Time {
		if first {
			first = false
			return base
		}
		return base.Add(2 * time.Minute)
	}

	h.orch.Run(context.Background(), h.ev)

	st, _ := h.sessions.Get(context.Background(), h.ev.CallRecordID)
	if st.ExitReason != session.ReasonDurationLimit {
		t.Fatalf("expected duration limit exit, got %s", st.ExitReason)
	}
	if st.TurnCount != 0 {
		t.Fatalf("no turn should run past the duration cap, got %d", st.TurnCount)
	}
}

func TestRunner_LaunchAfterShutdown(t *testing.T) {
	h := newHarness(t, Options{MaxTurns: 5},
		[][]byte{},
		func([]byte) (string, error) { return "", nil },
		echoLLM)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRunner(h.orch, log)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); err != nil {
		t.Fatalf("idle shutdown: %v", err)
	}
	if err := r.Launch(h.ev); err != ErrShuttingDown {
		t.Fatalf("expected ErrShuttingDown, got %v", err)
	}
}
