package assessment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unilearn/unilearn-portal/internal/grading"
)

// MemoryStore keeps everything in process. Used offline/dev and in tests;
// the SQL store is the production implementation.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments map[string]Assessment
	attempts    map[string]Attempt
	answers     map[string]map[string]Answer // attemptID -> questionID -> Answer
	grades      map[string]Grade

	grader   grading.Grader
	scale    grading.Scale
	graceSec int64
	now      func() time.Time
}

func NewMemoryStore(grader grading.Grader, scale grading.Scale) *MemoryStore {
	return &MemoryStore{
		assessments: map[string]Assessment{},
		attempts:    map[string]Attempt{},
		answers:     map[string]map[string]Answer{},
		grades:      map[string]Grade{},
		grader:      grader,
		scale:       scale,
		graceSec:    30,
		now:         time.Now,
	}
}

// WithClock overrides the store clock, for tests.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) PutAssessment(_ context.Context, a Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.CreatedAt == 0 {
		a.CreatedAt = m.now().Unix()
	}
	m.assessments[a.ID] = a
	return nil
}

func (m *MemoryStore) GetAssessment(_ context.Context, id string) (Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assessments[id]
	if !ok {
		return Assessment{}, ErrAssessmentNotFound
	}
	return stripKeys(a), nil
}

func (m *MemoryStore) GetAssessmentAuthor(_ context.Context, id string) (Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assessments[id]
	if !ok {
		return Assessment{}, ErrAssessmentNotFound
	}
	return a, nil
}

func (m *MemoryStore) StartAttempt(_ context.Context, assessmentID, studentID string) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	as, ok := m.assessments[assessmentID]
	if !ok {
		return Attempt{}, ErrAssessmentNotFound
	}

	// Idempotent resume: double-clicks and reconnects land on the same row.
	prior := 0
	for _, a := range m.attempts {
		if a.AssessmentID != assessmentID || a.StudentID != studentID {
			continue
		}
		if a.Status == AttemptInProgress {
			return a, nil
		}
		prior++
	}
	if as.MaxAttempts > 0 && prior+1 > as.MaxAttempts {
		return Attempt{}, ErrAttemptLimitExceeded
	}

	now := m.now().Unix()
	a := Attempt{
		ID:           uuid.NewString(),
		AssessmentID: assessmentID,
		StudentID:    studentID,
		Number:       prior + 1,
		Status:       AttemptInProgress,
		StartedAt:    now,
	}
	if as.DurationSec > 0 {
		rem := int64(as.DurationSec)
		a.RemainingSec = &rem
		a.Deadline = now + rem
	}
	m.attempts[a.ID] = a
	return a, nil
}

func (m *MemoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, nil
}

func (m *MemoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Attempt
	for _, a := range m.attempts {
		if opts.AssessmentID != "" && a.AssessmentID != opts.AssessmentID {
			continue
		}
		if opts.StudentID != "" && a.StudentID != opts.StudentID {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		out = append(out, a)
	}
	if opts.Sort == "submitted_at" {
		sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt > out[j].SubmittedAt })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].StartedAt > out[j].StartedAt })
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MemoryStore) UpsertAnswer(_ context.Context, attemptID, questionID string, p AnswerPayload) (Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.attempts[attemptID]
	if !ok {
		return Answer{}, ErrAttemptNotFound
	}
	if at.Status != AttemptInProgress {
		return Answer{}, ErrAttemptNotActive
	}
	now := m.now().Unix()
	if at.Deadline > 0 && now > at.Deadline+m.graceSec {
		return Answer{}, ErrDeadlinePassed
	}
	as := m.assessments[at.AssessmentID]
	if questionByID(as.Questions, questionID) == nil {
		return Answer{}, ErrQuestionNotFound
	}

	a := Answer{
		AttemptID:    attemptID,
		QuestionID:   questionID,
		Text:         p.Text,
		Selected:     append([]int(nil), p.Selected...),
		TimeSpentSec: p.TimeSpentSec,
		AnsweredAt:   now,
	}
	if m.answers[attemptID] == nil {
		m.answers[attemptID] = map[string]Answer{}
	}
	m.answers[attemptID][questionID] = a
	return a, nil
}

func (m *MemoryStore) CompleteAttempt(_ context.Context, attemptID string, autoSubmitted bool) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	if at.Status != AttemptInProgress {
		return Attempt{}, ErrInvalidState
	}
	as := m.assessments[at.AssessmentID]

	if m.answers[attemptID] == nil {
		m.answers[attemptID] = map[string]Answer{}
	}
	m.autoGradeLocked(as, attemptID)

	at.SubmittedAt = m.now().Unix()
	at.Completed = true
	at.AutoSubmitted = autoSubmitted
	at.Status = AttemptSubmitted

	g := aggregateGrade(attemptID, as.Questions, m.answers[attemptID], m.scale)
	if g.Status == GradeCompleted {
		at.Status = AttemptGraded
	}
	m.grades[attemptID] = g
	m.attempts[attemptID] = at
	return at, nil
}

// autoGradeLocked scores every objective question of the attempt, creating
// zero-point answers for unanswered ones. Points placed by manual grading
// are never overwritten.
func (m *MemoryStore) autoGradeLocked(as Assessment, attemptID string) {
	answers := m.answers[attemptID]
	for _, q := range as.Questions {
		if !q.Objective() {
			continue
		}
		a := answers[q.ID]
		if a.ManuallyGraded() {
			continue
		}
		a.AttemptID = attemptID
		a.QuestionID = q.ID
		res := m.grader.Score(
			grading.Q{Type: q.Type, Points: q.Points, CorrectSet: q.CorrectSet()},
			grading.Response{Text: a.Text, Selected: a.Selected},
		)
		correct := res.Correct
		a.PointsEarned = res.Points
		a.Correct = &correct
		a.AutoGraded = true
		answers[q.ID] = a
	}
}

func (m *MemoryStore) GetAttemptItems(_ context.Context, attemptID string) ([]AttemptItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	at, ok := m.attempts[attemptID]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	as := m.assessments[at.AssessmentID]
	qs := append([]Question(nil), as.Questions...)
	sort.Slice(qs, func(i, j int) bool { return qs[i].Position < qs[j].Position })

	items := make([]AttemptItem, 0, len(qs))
	for _, q := range qs {
		item := AttemptItem{Question: q}
		if a, ok := m.answers[attemptID][q.ID]; ok {
			ans := a
			item.Answer = &ans
		}
		items = append(items, item)
	}
	return items, nil
}

func (m *MemoryStore) GradeAnswer(_ context.Context, attemptID, questionID string, in ManualGradeInput) (Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.attempts[attemptID]
	if !ok {
		return Answer{}, ErrAttemptNotFound
	}
	if at.Status == AttemptInProgress || at.Status == AttemptAbandoned {
		return Answer{}, ErrInvalidState
	}
	if g, ok := m.grades[attemptID]; ok && g.Status == GradeCompleted {
		return Answer{}, ErrGradeFinal
	}
	as := m.assessments[at.AssessmentID]
	q := questionByID(as.Questions, questionID)
	if q == nil {
		return Answer{}, ErrQuestionNotFound
	}
	if in.Points < 0 || in.Points > q.Points {
		return Answer{}, ErrGradingRange
	}

	if m.answers[attemptID] == nil {
		m.answers[attemptID] = map[string]Answer{}
	}
	a := m.answers[attemptID][questionID]
	a.AttemptID = attemptID
	a.QuestionID = questionID
	a.PointsEarned = in.Points
	a.Feedback = in.Feedback
	a.GradedBy = in.GraderID
	a.GradedAt = m.now().Unix()
	a.AutoGraded = false // an override is a manual edit, not auto-grading
	if q.Objective() {
		correct := in.Points == q.Points
		a.Correct = &correct
	} else {
		a.Correct = nil
	}
	m.answers[attemptID][questionID] = a

	g := aggregateGrade(attemptID, as.Questions, m.answers[attemptID], m.scale)
	m.grades[attemptID] = g
	if g.Status == GradeCompleted && at.Status == AttemptSubmitted {
		at.Status = AttemptGraded
		m.attempts[attemptID] = at
	}
	return a, nil
}

func (m *MemoryStore) GetGrade(_ context.Context, attemptID string) (Grade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.grades[attemptID]
	if !ok {
		return Grade{}, ErrGradeNotFound
	}
	return g, nil
}

func (m *MemoryStore) AbandonExpired(_ context.Context, now int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, a := range m.attempts {
		if a.Status == AttemptInProgress && a.Deadline > 0 && now > a.Deadline+m.graceSec {
			a.Status = AttemptAbandoned
			m.attempts[id] = a
			n++
		}
	}
	return n, nil
}

func questionByID(qs []Question, id string) *Question {
	for i := range qs {
		if qs[i].ID == id {
			return &qs[i]
		}
	}
	return nil
}

// stripKeys hides choice correctness when serving the bank to students.
func stripKeys(a Assessment) Assessment {
	qs := make([]Question, len(a.Questions))
	copy(qs, a.Questions)
	for i := range qs {
		if len(qs[i].Choices) == 0 {
			continue
		}
		cs := make([]Choice, len(qs[i].Choices))
		copy(cs, qs[i].Choices)
		for j := range cs {
			cs[j].Correct = false
		}
		qs[i].Choices = cs
	}
	a.Questions = qs
	return a
}
