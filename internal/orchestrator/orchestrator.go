// Package orchestrator runs the per-call AI conversation loop: capture,
// transcribe, respond, synthesize, play, bounded by the turn cap and the
// call duration cap. One goroutine per live call; all cross-call state lives
// in the session store.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"voicegate/internal/ai"
	"voicegate/internal/calls"
	"voicegate/internal/session"
	"voicegate/internal/telephony"
	"voicegate/internal/tenants"
)

// TenantDirectory is the slice of tenant data the loop needs.
type TenantDirectory interface {
	FindTenant(ctx context.Context, tenantID string) (tenants.Tenant, bool, error)
	FindDefaultProfile(ctx context.Context, tenantID string) (tenants.AIProfile, bool, error)
	FindBusinessProfile(ctx context.Context, tenantID string) (tenants.BusinessProfile, bool, error)
}

// Options bound a single conversation.
type Options struct {
	MaxTurns      int
	MaxDuration   time.Duration
	CaptureWindow time.Duration

	STTTimeout time.Duration
	LLMTimeout time.Duration
	TTSTimeout time.Duration

	// MaxRetries is the number of additional attempts per stage after the
	// first, transient failures only.
	MaxRetries           int
	RetryInitialInterval time.Duration
}

func (o Options) withDefaults() Options {
	out := o
	if out.MaxTurns <= 0 {
		out.MaxTurns = 20
	}
	if out.MaxDuration <= 0 {
		out.MaxDuration = 5 * time.Minute
	}
	if out.CaptureWindow <= 0 {
		out.CaptureWindow = 8 * time.Second
	}
	if out.STTTimeout <= 0 {
		out.STTTimeout = 10 * time.Second
	}
	if out.LLMTimeout <= 0 {
		out.LLMTimeout = 15 * time.Second
	}
	if out.TTSTimeout <= 0 {
		out.TTSTimeout = 10 * time.Second
	}
	if out.MaxRetries < 0 {
		out.MaxRetries = 0
	}
	if out.RetryInitialInterval <= 0 {
		out.RetryInitialInterval = 300 * time.Millisecond
	}
	return out
}

type Orchestrator struct {
	sessions session.Store
	calls    calls.Repository
	tenants  TenantDirectory
	limiter  Limiter
	dialer   telephony.MediaDialer

	stt      ai.Transcriber
	llm      ai.Responder
	tts      ai.Synthesizer
	detector *ai.Detector

	opts Options
	log  *slog.Logger
	now  func() time.Time
}

func New(
	sessions session.Store,
	callRepo calls.Repository,
	dir TenantDirectory,
	limiter Limiter,
	dialer telephony.MediaDialer,
	stt ai.Transcriber,
	llm ai.Responder,
	tts ai.Synthesizer,
	opts Options,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		calls:    callRepo,
		tenants:  dir,
		limiter:  limiter,
		dialer:   dialer,
		stt:      stt,
		llm:      llm,
		tts:      tts,
		detector: ai.NewDetector(),
		opts:     opts.withDefaults(),
		log:      log,
		now:      time.Now,
	}
}

// Run orchestrates one call to completion. It owns the call record's
// terminal transition: whatever happens, the record leaves in_progress
// exactly once.
func (o *Orchestrator) Run(ctx context.Context, ev telephony.CallEvent) {
	log := o.log.With("call_id", ev.CallRecordID, "tenant_id", ev.TenantID)

	release, ok, err := o.limiter.Acquire(ctx, ev.TenantID)
	if err != nil {
		log.Error("concurrency cap check failed", "error", err)
		o.finishCall(ctx, log, ev.CallRecordID, calls.StatusFailed)
		return
	}
	if !ok {
		log.Warn("concurrency cap reached, rejecting call")
		o.finishCall(ctx, log, ev.CallRecordID, calls.StatusFailed)
		return
	}
	defer release()

	tenant, found, err := o.tenants.FindTenant(ctx, ev.TenantID)
	if err != nil {
		log.Error("tenant lookup failed", "error", err)
		o.finishCall(ctx, log, ev.CallRecordID, calls.StatusFailed)
		return
	}
	if !found || tenant.Status != tenants.TenantStatusActive {
		log.Warn("tenant missing or not active, failing call", "status", string(tenant.Status))
		o.finishCall(ctx, log, ev.CallRecordID, calls.StatusFailed)
		return
	}
	profile, found, err := o.tenants.FindDefaultProfile(ctx, ev.TenantID)
	if err != nil {
		log.Error("profile lookup failed", "error", err)
		o.finishCall(ctx, log, ev.CallRecordID, calls.StatusFailed)
		return
	}
	if !found {
		// A conversation needs a prompt; a tenant without a default profile
		// cannot take AI calls.
		log.Warn("no default ai profile, failing call")
		o.finishCall(ctx, log, ev.CallRecordID, calls.StatusFailed)
		return
	}
	biz, _, err := o.tenants.FindBusinessProfile(ctx, ev.TenantID)
	if err != nil {
		log.Error("business profile lookup failed", "error", err)
		o.finishCall(ctx, log, ev.CallRecordID, calls.StatusFailed)
		return
	}

	speaking := tenant.PrimaryLanguage
	if _, ok := ai.SupportedLanguages[speaking]; !ok {
		speaking = ai.LangEnglish
	}
	st := session.State{
		CallID:           ev.CallRecordID,
		TenantID:         ev.TenantID,
		StartedAt:        o.now().UTC(),
		Greeting:         ai.Greeting(speaking),
		MaxTurns:         o.opts.MaxTurns,
		DetectedLanguage: speaking,
		SpeakingLanguage: speaking,
	}
	if err := o.sessions.Create(ctx, st); err != nil {
		if errors.Is(err, session.ErrExists) {
			log.Info("session already active, skipping duplicate launch")
			return
		}
		log.Error("session create failed", "error", err)
		o.finishCall(ctx, log, ev.CallRecordID, calls.StatusFailed)
		return
	}

	ch, err := o.dialer.Attach(ctx, ev.Metadata.ProviderCallID)
	if err != nil {
		log.Error("media attach failed", "error", err)
		o.wrapUp(ctx, log, ev.CallRecordID, nil, session.ReasonError)
		return
	}

	reason := o.converse(ctx, log, ch, profile, biz, st)
	o.wrapUp(ctx, log, ev.CallRecordID, ch, reason)
}

// converse runs the turn loop and returns the exit reason.
func (o *Orchestrator) converse(
	ctx context.Context,
	log *slog.Logger,
	ch telephony.MediaChannel,
	profile tenants.AIProfile,
	biz tenants.BusinessProfile,
	st session.State,
) session.ExitReason {
	callID := st.CallID
	speaking := st.SpeakingLanguage

	if err := o.speak(ctx, log, ch, st.Greeting, speaking); errors.Is(err, telephony.ErrChannelClosed) {
		return session.ReasonHangup
	}

	for {
		if ctx.Err() != nil {
			log.Warn("conversation canceled", "error", ctx.Err())
			return session.ReasonError
		}
		elapsed := o.now().Sub(st.StartedAt)
		if elapsed >= o.opts.MaxDuration {
			o.sayGoodbye(ctx, log, ch, speaking)
			return session.ReasonDurationLimit
		}
		window := o.opts.CaptureWindow
		if remaining := o.opts.MaxDuration - elapsed; remaining < window {
			window = remaining
		}

		cctx, cancel := context.WithTimeout(ctx, window)
		audio, err := ch.Capture(cctx)
		cancel()
		switch {
		case err == nil:
		case errors.Is(err, telephony.ErrChannelClosed):
			return session.ReasonHangup
		case ctx.Err() != nil:
			log.Warn("conversation canceled", "error", ctx.Err())
			return session.ReasonError
		case errors.Is(err, telephony.ErrNoAudio), errors.Is(err, context.DeadlineExceeded):
			if done, reason := o.handleSilence(ctx, log, ch, callID, speaking); done {
				return reason
			}
			continue
		default:
			log.Error("capture failed", "error", err)
			return session.ReasonError
		}

		text, err := o.transcribe(ctx, audio, speaking)
		if err != nil {
			if ai.Retryable(err) {
				// Transient even after retries: ask the caller to repeat and
				// keep the turn budget untouched.
				log.Warn("transcription unavailable, asking caller to repeat", "error", err)
				if perr := o.speak(ctx, log, ch, line(repeatLines, speaking), speaking); errors.Is(perr, telephony.ErrChannelClosed) {
					return session.ReasonHangup
				}
				continue
			}
			log.Error("transcription failed", "error", err)
			_ = o.speak(ctx, log, ch, line(apologyLines, speaking), speaking)
			return session.ReasonError
		}
		if text == "" {
			if done, reason := o.handleSilence(ctx, log, ch, callID, speaking); done {
				return reason
			}
			continue
		}

		if isFarewell(text) {
			o.sayGoodbye(ctx, log, ch, speaking)
			return session.ReasonCompleted
		}

		if lang, ok := o.detector.DetectSwitch(text); ok {
			if changed, err := o.sessions.SetLanguage(ctx, callID, lang, true); err == nil && changed {
				speaking = lang
				log.Info("language switched by caller", "language", lang)
			}
		} else if det := o.detector.Detect(text); det.Confidence >= ai.ConfidenceThreshold && det.Language != speaking {
			if changed, err := o.sessions.SetLanguage(ctx, callID, det.Language, false); err == nil && changed {
				speaking = det.Language
				log.Info("language detected", "language", det.Language, "confidence", det.Confidence)
			}
		}

		current, err := o.sessions.Get(ctx, callID)
		if err != nil {
			log.Error("session read failed", "error", err)
			return session.ReasonError
		}
		reply, err := o.respond(ctx, buildMessages(profile, biz, speaking, current, text))
		if err != nil {
			log.Error("llm failed", "error", err)
			_ = o.speak(ctx, log, ch, line(apologyLines, speaking), speaking)
			return session.ReasonError
		}

		n, err := o.sessions.AppendTurn(ctx, callID, session.Turn{
			CallerText:    text,
			AssistantText: reply,
			Language:      speaking,
			At:            o.now().UTC(),
		})
		if errors.Is(err, session.ErrLimitReached) {
			o.sayGoodbye(ctx, log, ch, speaking)
			return session.ReasonTurnLimit
		}
		if err != nil {
			log.Error("turn append failed", "error", err)
			return session.ReasonError
		}

		if err := o.speak(ctx, log, ch, reply, speaking); errors.Is(err, telephony.ErrChannelClosed) {
			return session.ReasonHangup
		}
		if n >= st.MaxTurns {
			o.sayGoodbye(ctx, log, ch, speaking)
			return session.ReasonTurnLimit
		}
	}
}

// handleSilence prompts once and ends the call on the second consecutive
// silent window.
func (o *Orchestrator) handleSilence(ctx context.Context, log *slog.Logger, ch telephony.MediaChannel, callID, speaking string) (bool, session.ExitReason) {
	n, err := o.sessions.RecordSilence(ctx, callID)
	if err != nil {
		log.Error("silence record failed", "error", err)
		return true, session.ReasonError
	}
	if n >= 2 {
		o.sayGoodbye(ctx, log, ch, speaking)
		return true, session.ReasonSilence
	}
	if err := o.speak(ctx, log, ch, line(stillThereLines, speaking), speaking); errors.Is(err, telephony.ErrChannelClosed) {
		return true, session.ReasonHangup
	}
	return false, ""
}

func (o *Orchestrator) transcribe(ctx context.Context, audio []byte, lang string) (string, error) {
	var text string
	err := o.withRetry(ctx, o.opts.STTTimeout, func(sctx context.Context) error {
		var err error
		text, err = o.stt.Transcribe(sctx, audio, lang)
		return err
	})
	return strings.TrimSpace(text), err
}

func (o *Orchestrator) respond(ctx context.Context, msgs []ai.Message) (string, error) {
	var reply string
	err := o.withRetry(ctx, o.opts.LLMTimeout, func(sctx context.Context) error {
		var err error
		reply, err = o.llm.Respond(sctx, msgs)
		return err
	})
	return reply, err
}

// speak synthesizes and plays one line. Synthesis failure skips playback and
// the conversation carries on; only a closed channel is surfaced.
func (o *Orchestrator) speak(ctx context.Context, log *slog.Logger, ch telephony.MediaChannel, text, lang string) error {
	if text == "" {
		return nil
	}
	var audio []byte
	err := o.withRetry(ctx, o.opts.TTSTimeout, func(sctx context.Context) error {
		var err error
		audio, err = o.tts.Synthesize(sctx, text, lang)
		return err
	})
	if err != nil {
		log.Warn("synthesis failed, skipping playback", "error", err)
		return nil
	}
	if err := ch.Play(ctx, audio); err != nil {
		if errors.Is(err, telephony.ErrChannelClosed) {
			return err
		}
		log.Warn("playback failed", "error", err)
	}
	return nil
}

func (o *Orchestrator) sayGoodbye(ctx context.Context, log *slog.Logger, ch telephony.MediaChannel, lang string) {
	_ = o.speak(ctx, log, ch, line(goodbyeLines, lang), lang)
}

// withRetry runs fn with a per-attempt timeout, retrying transient failures
// up to MaxRetries extra attempts.
func (o *Orchestrator) withRetry(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	op := func() error {
		sctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := fn(sctx); err != nil {
			if ai.Retryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = o.opts.RetryInitialInterval
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(o.opts.MaxRetries)), ctx))
}

// wrapUp records the exit reason and drives the call record to its terminal
// status, surviving cancellation of the call context.
func (o *Orchestrator) wrapUp(ctx context.Context, log *slog.Logger, callID string, ch telephony.MediaChannel, reason session.ExitReason) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := o.sessions.Finish(fctx, callID, reason); err != nil && !errors.Is(err, session.ErrNotFound) {
		log.Error("session finish failed", "error", err)
	}
	status := calls.StatusCompleted
	if reason == session.ReasonError {
		status = calls.StatusFailed
	}
	o.finishCall(fctx, log, callID, status)
	if ch != nil {
		if err := ch.Hangup(fctx); err != nil && !errors.Is(err, telephony.ErrChannelClosed) {
			log.Warn("hangup failed", "error", err)
		}
	}
	log.Info("call finished", "exit_reason", string(reason), "status", string(status))
}

func (o *Orchestrator) finishCall(ctx context.Context, log *slog.Logger, callID string, status calls.CallStatus) {
	ok, err := o.calls.Finish(ctx, callID, status, o.now().UTC())
	if err != nil {
		log.Error("call finish failed", "error", err)
		return
	}
	if !ok {
		log.Info("call already terminal")
	}
}

// buildMessages assembles LLM context: system prompt, greeting, the
// exchanges so far, then the caller's current utterance.
func buildMessages(profile tenants.AIProfile, biz tenants.BusinessProfile, speaking string, st session.State, userText string) []ai.Message {
	msgs := make([]ai.Message, 0, 2*len(st.Turns)+3)
	msgs = append(msgs, ai.Message{Role: ai.RoleSystem, Content: ai.BuildSystemPrompt(profile, biz, speaking)})
	if st.Greeting != "" {
		msgs = append(msgs, ai.Message{Role: ai.RoleAssistant, Content: st.Greeting})
	}
	for _, t := range st.Turns {
		msgs = append(msgs, ai.Message{Role: ai.RoleUser, Content: t.CallerText})
		msgs = append(msgs, ai.Message{Role: ai.RoleAssistant, Content: t.AssistantText})
	}
	msgs = append(msgs, ai.Message{Role: ai.RoleUser, Content: userText})
	return msgs
}

var farewells = map[string]struct{}{
	"bye":     {},
	"goodbye": {},
	"bye-bye": {},
	"alvida":  {},
	"avjo":    {},
}

// isFarewell matches whole words only, so "maybe" never ends a call.
func isFarewell(text string) bool {
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?;:\"'")
		if _, ok := farewells[tok]; ok {
			return true
		}
	}
	return false
}
