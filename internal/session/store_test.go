package session

import (
	"context"
	"testing"
	"time"
)

func newSession(t *testing.T, store *MemoryStore, maxTurns int) string {
	t.Helper()
	st := State{
		CallID:           "c1",
		TenantID:         "t1",
		StartedAt:        time.Now().UTC(),
		MaxTurns:         maxTurns,
		SpeakingLanguage: "en",
	}
	if err := store.Create(context.Background(), st); err != nil {
		t.Fatalf("create: %v", err)
	}
	return st.CallID
}

func TestAppendTurn_CapEnforced(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	id := newSession(t, store, 2)
	ctx := context.Background()

	turn := Turn{CallerText: "hello", AssistantText: "hi there", Language: "en", At: time.Now().UTC()}
	if n, err := store.AppendTurn(ctx, id, turn); err != nil || n != 1 {
		t.Fatalf("turn 1: n=%d err=%v", n, err)
	}
	if n, err := store.AppendTurn(ctx, id, turn); err != nil || n != 2 {
		t.Fatalf("turn 2: n=%d err=%v", n, err)
	}
	if _, err := store.AppendTurn(ctx, id, turn); err != ErrLimitReached {
		t.Fatalf("turn 3: expected ErrLimitReached, got %v", err)
	}

	st, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if st.TurnCount != 2 || len(st.Turns) != 2 {
		t.Fatalf("rejected turn leaked into state: count=%d turns=%d", st.TurnCount, len(st.Turns))
	}
}

func TestCreate_DuplicateRejected(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	newSession(t, store, 5)

	err := store.Create(context.Background(), State{CallID: "c1", MaxTurns: 5})
	if err != ErrExists {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestSetLanguage_LockIsFinal(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	id := newSession(t, store, 5)
	ctx := context.Background()

	if ok, err := store.SetLanguage(ctx, id, "hi", false); err != nil || !ok {
		t.Fatalf("unlocked update: ok=%v err=%v", ok, err)
	}
	if ok, err := store.SetLanguage(ctx, id, "en", true); err != nil || !ok {
		t.Fatalf("locking update: ok=%v err=%v", ok, err)
	}
	// Locked: further detections must not move the speaking language.
	if ok, err := store.SetLanguage(ctx, id, "mr", false); err != nil || ok {
		t.Fatalf("locked update should be a no-op: ok=%v err=%v", ok, err)
	}

	st, _ := store.Get(ctx, id)
	if st.SpeakingLanguage != "en" || !st.LanguageLocked {
		t.Fatalf("speaking language moved after lock: %+v", st)
	}
}

func TestRecordSilence_ResetByTurn(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	id := newSession(t, store, 5)
	ctx := context.Background()

	if n, _ := store.RecordSilence(ctx, id); n != 1 {
		t.Fatalf("expected silence 1, got %d", n)
	}
	if _, err := store.AppendTurn(ctx, id, Turn{CallerText: "hi", AssistantText: "hello"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if n, _ := store.RecordSilence(ctx, id); n != 1 {
		t.Fatalf("turn should reset silence counter, got %d", n)
	}
}

func TestTTLExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	base := time.Now()
	store.SetClock(func() time.Time { return base })
	id := newSession(t, store, 5)

	store.SetClock(func() time.Time { return base.Add(2 * time.Minute) })
	if _, err := store.Get(context.Background(), id); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}

func TestFinishAndExpire(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	id := newSession(t, store, 5)
	ctx := context.Background()

	if err := store.Finish(ctx, id, ReasonTurnLimit); err != nil {
		t.Fatalf("finish: %v", err)
	}
	st, _ := store.Get(ctx, id)
	if st.ExitReason != ReasonTurnLimit {
		t.Fatalf("expected exit reason recorded, got %q", st.ExitReason)
	}

	if err := store.Expire(ctx, id); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if _, err := store.Get(ctx, id); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after expire, got %v", err)
	}
}
