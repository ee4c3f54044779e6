package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"voicegate/internal/telephony"
)

var ErrShuttingDown = errors.New("orchestrator: shutting down")

// Runner owns the goroutine per live call. Call contexts descend from the
// runner's base context, not from the webhook request, so a conversation
// outlives the HTTP exchange that started it.
type Runner struct {
	orch *Orchestrator
	log  *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
	active int
}

func NewRunner(orch *Orchestrator, log *slog.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{orch: orch, log: log, baseCtx: ctx, cancel: cancel}
}

// Launch starts orchestrating a call. ErrShuttingDown after Shutdown began.
func (r *Runner) Launch(ev telephony.CallEvent) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrShuttingDown
	}
	r.wg.Add(1)
	r.active++
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			r.active--
			r.mu.Unlock()
			r.wg.Done()
		}()
		r.orch.Run(r.baseCtx, ev)
	}()
	return nil
}

// Active reports the number of live conversations.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Shutdown stops accepting calls and drains active conversations. Calls
// still running when ctx expires are cancelled; their orchestrators finish
// the call records on the way out.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	n := r.active
	r.mu.Unlock()
	if n > 0 {
		r.log.Info("draining active calls", "count", n)
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.log.Warn("drain timed out, cancelling remaining calls", "count", r.Active())
		r.cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			r.log.Error("calls still running after cancel")
		}
		return ctx.Err()
	}
}
