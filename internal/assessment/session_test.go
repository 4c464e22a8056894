package assessment_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unilearn/unilearn-portal/internal/assessment"
)

// fakeSessionStore records writes and can be told to fail them.
type fakeSessionStore struct {
	mu       sync.Mutex
	ops      []string // "upsert:<qid>" and "complete" in arrival order
	payloads map[string][]assessment.AnswerPayload
	failSave bool
	failSub  error
	subFails int // transient completion failures before success
	attempt  assessment.Attempt
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{payloads: map[string][]assessment.AnswerPayload{}}
}

func (f *fakeSessionStore) UpsertAnswer(_ context.Context, _, questionID string, p assessment.AnswerPayload) (assessment.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave {
		return assessment.Answer{}, errors.New("store down")
	}
	f.ops = append(f.ops, "upsert:"+questionID)
	f.payloads[questionID] = append(f.payloads[questionID], p)
	return assessment.Answer{QuestionID: questionID}, nil
}

func (f *fakeSessionStore) CompleteAttempt(_ context.Context, _ string, autoSubmitted bool) (assessment.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSub != nil {
		return assessment.Attempt{}, f.failSub
	}
	if f.subFails > 0 {
		f.subFails--
		return assessment.Attempt{}, errors.New("store briefly down")
	}
	f.ops = append(f.ops, "complete")
	a := f.attempt
	a.Status = assessment.AttemptSubmitted
	a.AutoSubmitted = autoSubmitted
	return a, nil
}

func (f *fakeSessionStore) opLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func (f *fakeSessionStore) saves(questionID string) []assessment.AnswerPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]assessment.AnswerPayload(nil), f.payloads[questionID]...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSessionDebounceCollapsesEdits(t *testing.T) {
	st := newFakeSessionStore()
	s := assessment.NewSession(st, assessment.Attempt{ID: "at-1"}, assessment.SessionConfig{
		Debounce: 40 * time.Millisecond,
	})
	defer s.Close()

	s.Edit("q1", assessment.AnswerPayload{Text: "dra"})
	time.Sleep(10 * time.Millisecond)
	s.Edit("q1", assessment.AnswerPayload{Text: "draft"})

	waitFor(t, "debounced save", func() bool { return len(st.saves("q1")) > 0 })
	time.Sleep(80 * time.Millisecond) // long enough for a second timer, were one alive

	saves := st.saves("q1")
	if len(saves) != 1 {
		t.Fatalf("got %d saves, want 1 (debounce should collapse)", len(saves))
	}
	if saves[0].Text != "draft" {
		t.Fatalf("saved %q, want latest edit", saves[0].Text)
	}
	if got := s.Status(); got != assessment.SaveSaved {
		t.Fatalf("status = %q, want saved", got)
	}
}

func TestSessionQuestionsDebounceIndependently(t *testing.T) {
	st := newFakeSessionStore()
	s := assessment.NewSession(st, assessment.Attempt{ID: "at-1"}, assessment.SessionConfig{
		Debounce: 50 * time.Millisecond,
	})
	defer s.Close()

	s.Edit("q1", assessment.AnswerPayload{Selected: []int{0}})
	time.Sleep(30 * time.Millisecond)
	// editing q2 must not reset q1's timer
	s.Edit("q2", assessment.AnswerPayload{Selected: []int{1}})

	waitFor(t, "q1 save", func() bool { return len(st.saves("q1")) == 1 })
	if len(st.saves("q2")) != 0 {
		t.Fatalf("q2 saved before its own quiet period elapsed")
	}
	waitFor(t, "q2 save", func() bool { return len(st.saves("q2")) == 1 })
}

func TestSessionSaveFailureRetries(t *testing.T) {
	st := newFakeSessionStore()
	st.failSave = true
	s := assessment.NewSession(st, assessment.Attempt{ID: "at-1"}, assessment.SessionConfig{
		Debounce: 20 * time.Millisecond,
	})
	defer s.Close()

	s.Edit("q1", assessment.AnswerPayload{Text: "keep me"})
	waitFor(t, "error status", func() bool { return s.Status() == assessment.SaveError })

	st.mu.Lock()
	st.failSave = false
	st.mu.Unlock()

	waitFor(t, "retried save", func() bool { return len(st.saves("q1")) == 1 })
	waitFor(t, "recovered status", func() bool { return s.Status() == assessment.SaveSaved })
	if got := st.saves("q1")[0].Text; got != "keep me" {
		t.Fatalf("retry lost the payload: %q", got)
	}
}

func TestSessionSubmitFlushesFirst(t *testing.T) {
	st := newFakeSessionStore()
	st.attempt = assessment.Attempt{ID: "at-1"}
	s := assessment.NewSession(st, st.attempt, assessment.SessionConfig{
		Debounce: time.Hour, // never fires on its own
	})

	s.Edit("q1", assessment.AnswerPayload{Text: "unsaved essay"})
	s.Edit("q2", assessment.AnswerPayload{Selected: []int{2}})

	at, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if at.Status != assessment.AttemptSubmitted || at.AutoSubmitted {
		t.Fatalf("submitted attempt: %+v", at)
	}

	ops := st.opLog()
	if len(ops) != 3 || ops[2] != "complete" {
		t.Fatalf("op order %v, want both upserts before complete", ops)
	}
	// a session is single-use once completed
	if err := s.Edit("q1", assessment.AnswerPayload{Text: "late"}); !errors.Is(err, assessment.ErrAttemptNotActive) {
		t.Fatalf("edit after submit: got %v, want ErrAttemptNotActive", err)
	}
}

func TestSessionSubmitFailureSurfaced(t *testing.T) {
	st := newFakeSessionStore()
	st.failSub = assessment.ErrInvalidState
	s := assessment.NewSession(st, assessment.Attempt{ID: "at-1"}, assessment.SessionConfig{
		Debounce: time.Hour,
	})
	defer s.Close()

	if _, err := s.Submit(context.Background()); !errors.Is(err, assessment.ErrInvalidState) {
		t.Fatalf("got %v, want ErrInvalidState passed through", err)
	}
}

// A completion hiccup is retried; submit reports success only once the
// store acknowledges, and exactly one completion lands.
func TestSessionSubmitRetriesTransientFailure(t *testing.T) {
	st := newFakeSessionStore()
	st.subFails = 2
	st.attempt = assessment.Attempt{ID: "at-1"}
	s := assessment.NewSession(st, st.attempt, assessment.SessionConfig{
		Debounce:     time.Hour,
		TickInterval: 10 * time.Millisecond, // retry backoff
		MaxSubmitTry: 3,
	})

	at, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit after transient failures: %v", err)
	}
	if at.Status != assessment.AttemptSubmitted {
		t.Fatalf("submitted attempt: %+v", at)
	}

	completes := 0
	for _, op := range st.opLog() {
		if op == "complete" {
			completes++
		}
	}
	if completes != 1 {
		t.Fatalf("store acked %d completions, want exactly 1", completes)
	}
}

func TestSessionSubmitGivesUpAfterMaxTries(t *testing.T) {
	st := newFakeSessionStore()
	st.subFails = 10
	s := assessment.NewSession(st, assessment.Attempt{ID: "at-1"}, assessment.SessionConfig{
		Debounce:     time.Hour,
		TickInterval: 5 * time.Millisecond,
		MaxSubmitTry: 3,
	})
	defer s.Close()

	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatalf("submit should surface a persistent store failure")
	}
	// never reported submitted, so editing must still work
	if err := s.Edit("q1", assessment.AnswerPayload{Text: "still here"}); err != nil {
		t.Fatalf("edit after failed submit: %v", err)
	}
}

func TestSessionCountdownAutoSubmits(t *testing.T) {
	st := newFakeSessionStore()
	rem := int64(2)
	st.attempt = assessment.Attempt{ID: "at-1", RemainingSec: &rem}

	done := make(chan assessment.Attempt, 1)
	var ticks []int64
	var mu sync.Mutex

	s := assessment.NewSession(st, st.attempt, assessment.SessionConfig{
		Debounce:     5 * time.Millisecond,
		TickInterval: 10 * time.Millisecond,
		OnTick: func(r int64) {
			mu.Lock()
			ticks = append(ticks, r)
			mu.Unlock()
		},
		OnComplete: func(a assessment.Attempt, err error) {
			if err != nil {
				t.Errorf("auto-submit: %v", err)
			}
			done <- a
		},
	})
	defer s.Close()

	s.Edit("q1", assessment.AnswerPayload{Text: "racing the clock"})

	var at assessment.Attempt
	select {
	case at = <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("countdown never auto-submitted")
	}
	if !at.AutoSubmitted {
		t.Fatalf("auto_submitted not set on deadline submit")
	}

	// the pending edit was flushed before completion
	ops := st.opLog()
	if len(ops) == 0 || ops[len(ops)-1] != "complete" {
		t.Fatalf("op order %v, want complete last", ops)
	}
	found := false
	for _, op := range ops {
		if op == "upsert:q1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("pending answer lost on auto-submit: %v", ops)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ticks) == 0 || ticks[len(ticks)-1] > 0 {
		t.Fatalf("ticks %v, want countdown reaching zero", ticks)
	}
}

// Resuming an attempt must not restart the clock: the countdown follows
// the wall-clock deadline, not the stale stored budget.
func TestSessionResumeUsesDeadlineNotStaleBudget(t *testing.T) {
	st := newFakeSessionStore()
	rem := int64(600) // as persisted at start
	st.attempt = assessment.Attempt{
		ID:           "at-1",
		RemainingSec: &rem,
		Deadline:     time.Now().Unix() + 1, // almost out of time
	}
	done := make(chan assessment.Attempt, 1)
	s := assessment.NewSession(st, st.attempt, assessment.SessionConfig{
		Debounce:     time.Hour,
		TickInterval: 10 * time.Millisecond,
		OnComplete: func(a assessment.Attempt, err error) {
			if err != nil {
				t.Errorf("auto-submit: %v", err)
			}
			done <- a
		},
	})
	defer s.Close()

	if got := s.Remaining(); got > 1 {
		t.Fatalf("resumed remaining = %d, want deadline-derived (<=1)", got)
	}
	select {
	case at := <-done:
		if !at.AutoSubmitted {
			t.Fatalf("deadline expiry must auto-submit")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("resumed session never expired at the wall-clock deadline")
	}
}

func TestSessionCloseStopsWithoutCompleting(t *testing.T) {
	st := newFakeSessionStore()
	rem := int64(600)
	s := assessment.NewSession(st, assessment.Attempt{ID: "at-1", RemainingSec: &rem}, assessment.SessionConfig{
		Debounce:     time.Hour,
		TickInterval: 10 * time.Millisecond,
	})

	s.Edit("q1", assessment.AnswerPayload{Text: "draft"})
	s.Close()
	time.Sleep(50 * time.Millisecond)

	for _, op := range st.opLog() {
		if op == "complete" {
			t.Fatalf("closed session must not submit the attempt")
		}
	}
	if err := s.Edit("q1", assessment.AnswerPayload{}); !errors.Is(err, assessment.ErrAttemptNotActive) {
		t.Fatalf("edit after close: got %v, want ErrAttemptNotActive", err)
	}
}
