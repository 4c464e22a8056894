package assessment

import (
	"context"
	"errors"
	"sync"
	"time"
)

// SessionStore is the slice of Store the autosave session needs.
type SessionStore interface {
	UpsertAnswer(ctx context.Context, attemptID, questionID string, p AnswerPayload) (Answer, error)
	CompleteAttempt(ctx context.Context, attemptID string, autoSubmitted bool) (Attempt, error)
}

// SaveStatus is the caller-visible autosave indicator.
type SaveStatus string

const (
	SaveSaved  SaveStatus = "saved"
	SaveSaving SaveStatus = "saving"
	SaveError  SaveStatus = "error"
)

type SessionConfig struct {
	Debounce     time.Duration // quiet period before a changed answer is persisted (default 2s)
	TickInterval time.Duration // countdown resolution (default 1s)
	MaxSubmitTry int           // completion retries before surfacing a hard failure (default 3)

	OnStatus   func(SaveStatus)
	OnTick     func(remainingSec int64)
	OnComplete func(Attempt, error) // fires on deadline-driven auto-submit
}

// Session owns the client-side concurrency of one attempt: a per-second
// countdown plus one cancellable debounced write per question. Each question
// debounces independently; a fresh edit resets only that question's timer.
// All timers die together when the attempt completes.
type Session struct {
	store   SessionStore
	attempt Attempt
	cfg     SessionConfig

	mu        sync.Mutex
	pending   map[string]*pendingWrite
	seq       uint64
	remaining int64
	timed     bool
	status    SaveStatus
	completed bool
	closed    bool
	stop      chan struct{}
	stopOnce  sync.Once
}

type pendingWrite struct {
	payload AnswerPayload
	seq     uint64
	timer   *time.Timer
}

func NewSession(store SessionStore, attempt Attempt, cfg SessionConfig) *Session {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.MaxSubmitTry <= 0 {
		cfg.MaxSubmitTry = 3
	}
	s := &Session{
		store:   store,
		attempt: attempt,
		cfg:     cfg,
		pending: map[string]*pendingWrite{},
		status:  SaveSaved,
		stop:    make(chan struct{}),
	}
	if attempt.RemainingSec != nil {
		s.timed = true
		s.remaining = *attempt.RemainingSec
		// On resume the stored budget is stale; the wall-clock deadline
		// kept ticking while the client was away.
		if attempt.Deadline > 0 {
			if left := attempt.Deadline - time.Now().Unix(); left < s.remaining {
				s.remaining = left
			}
		}
		go s.countdown()
	}
	return s
}

func (s *Session) Status() SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Remaining() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Edit records a changed answer and (re)starts that question's debounce
// timer. Rapid keystrokes collapse into one write per quiet period.
func (s *Session) Edit(questionID string, p AnswerPayload) error {
	s.mu.Lock()
	if s.completed || s.closed {
		s.mu.Unlock()
		return ErrAttemptNotActive
	}
	pw := s.pending[questionID]
	if pw == nil {
		pw = &pendingWrite{}
		s.pending[questionID] = pw
	} else if pw.timer != nil {
		pw.timer.Stop()
	}
	s.seq++
	pw.payload = p
	pw.seq = s.seq
	seq := pw.seq
	pw.timer = time.AfterFunc(s.cfg.Debounce, func() {
		s.flushQuestion(questionID, seq)
	})
	s.mu.Unlock()
	return nil
}

// flushQuestion persists one debounced write. A failed write keeps the
// payload pending and reschedules itself; editing stays unblocked.
func (s *Session) flushQuestion(questionID string, seq uint64) {
	s.mu.Lock()
	pw := s.pending[questionID]
	if pw == nil || pw.seq != seq || s.completed {
		s.mu.Unlock()
		return
	}
	payload := pw.payload
	s.setStatusLocked(SaveSaving)
	s.mu.Unlock()

	_, err := s.store.UpsertAnswer(context.Background(), s.attempt.ID, questionID, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	pw = s.pending[questionID]
	if err != nil {
		s.setStatusLocked(SaveError)
		if pw != nil && pw.seq == seq && !s.completed && !s.closed {
			pw.timer = time.AfterFunc(s.cfg.Debounce, func() {
				s.flushQuestion(questionID, seq)
			})
		}
		return
	}
	if pw != nil && pw.seq == seq {
		delete(s.pending, questionID)
	}
	if len(s.pending) == 0 {
		s.setStatusLocked(SaveSaved)
	}
}

// Flush synchronously persists every pending write. Writes that fail stay
// pending; the first error is returned.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	type item struct {
		questionID string
		payload    AnswerPayload
		seq        uint64
	}
	var items []item
	for qid, pw := range s.pending {
		if pw.timer != nil {
			pw.timer.Stop()
		}
		items = append(items, item{qid, pw.payload, pw.seq})
	}
	if len(items) > 0 {
		s.setStatusLocked(SaveSaving)
	}
	s.mu.Unlock()

	var firstErr error
	for _, it := range items {
		_, err := s.store.UpsertAnswer(ctx, s.attempt.ID, it.questionID, it.payload)
		s.mu.Lock()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.setStatusLocked(SaveError)
		} else if pw := s.pending[it.questionID]; pw != nil && pw.seq == it.seq {
			delete(s.pending, it.questionID)
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	if len(s.pending) == 0 && firstErr == nil {
		s.setStatusLocked(SaveSaved)
	}
	s.mu.Unlock()
	return firstErr
}

// Submit is the student-driven completion: flush everything, then complete.
// The caller must not report "submitted" unless this returns nil.
func (s *Session) Submit(ctx context.Context) (Attempt, error) {
	if err := s.Flush(ctx); err != nil {
		return Attempt{}, err
	}
	return s.complete(ctx, false)
}

func (s *Session) complete(ctx context.Context, autoSubmitted bool) (Attempt, error) {
	var a Attempt
	var err error
	for try := 0; try < s.cfg.MaxSubmitTry; try++ {
		a, err = s.store.CompleteAttempt(ctx, s.attempt.ID, autoSubmitted)
		if err == nil {
			break
		}
		// A stale-state rejection means someone else already completed it;
		// retrying cannot help.
		if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrAttemptNotFound) {
			return Attempt{}, err
		}
		select {
		case <-ctx.Done():
			return Attempt{}, ctx.Err()
		case <-time.After(s.cfg.TickInterval):
		}
	}
	if err != nil {
		return Attempt{}, err
	}
	s.mu.Lock()
	s.completed = true
	s.cancelTimersLocked()
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.stop) })
	return a, nil
}

func (s *Session) countdown() {
	t := time.NewTicker(s.cfg.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.mu.Lock()
			if s.completed || s.closed {
				s.mu.Unlock()
				return
			}
			s.remaining--
			rem := s.remaining
			s.mu.Unlock()
			if s.cfg.OnTick != nil {
				s.cfg.OnTick(rem)
			}
			if rem <= 0 {
				s.expire()
				return
			}
		}
	}
}

// expire fires when the countdown hits zero: flush pending writes, then
// auto-submit.
func (s *Session) expire() {
	ctx := context.Background()
	_ = s.Flush(ctx)
	a, err := s.complete(ctx, true)
	if s.cfg.OnComplete != nil {
		s.cfg.OnComplete(a, err)
	}
}

// Close stops all timers without completing the attempt (tab close). The
// attempt stays in_progress server-side until resumed or reaped.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.cancelTimersLocked()
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Session) cancelTimersLocked() {
	for _, pw := range s.pending {
		if pw.timer != nil {
			pw.timer.Stop()
		}
	}
}

func (s *Session) setStatusLocked(st SaveStatus) {
	if s.status == st {
		return
	}
	s.status = st
	if s.cfg.OnStatus != nil {
		go s.cfg.OnStatus(st)
	}
}
