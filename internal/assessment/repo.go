package assessment

import "context"

type AttemptListOpts struct {
	AssessmentID string
	StudentID    string
	Status       string // optional: in_progress|submitted|graded|abandoned
	Limit        int
	Offset       int
	Sort         string // started_at|submitted_at desc (default: started_at desc)
}

// ManualGradeInput carries one grader decision for one answer.
type ManualGradeInput struct {
	Points   float64 `json:"points"`
	Feedback string  `json:"feedback,omitempty"`
	GraderID string  `json:"-"`
}

type Store interface {
	PutAssessment(ctx context.Context, a Assessment) error
	GetAssessment(ctx context.Context, id string) (Assessment, error)       // student-safe (correct flags stripped)
	GetAssessmentAuthor(ctx context.Context, id string) (Assessment, error) // full bank, for authors/graders

	// StartAttempt resumes an existing in_progress attempt unchanged, or
	// creates the next numbered attempt for the (assessment, student) pair.
	StartAttempt(ctx context.Context, assessmentID, studentID string) (Attempt, error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)

	// UpsertAnswer is keyed by (attemptID, questionID): last write wins,
	// so autosave retries are safe.
	UpsertAnswer(ctx context.Context, attemptID, questionID string, p AnswerPayload) (Answer, error)

	// CompleteAttempt auto-grades objective answers, stamps submission and
	// derives the grade. Only valid while the attempt is in_progress.
	CompleteAttempt(ctx context.Context, attemptID string, autoSubmitted bool) (Attempt, error)

	GetAttemptItems(ctx context.Context, attemptID string) ([]AttemptItem, error)
	GradeAnswer(ctx context.Context, attemptID, questionID string, in ManualGradeInput) (Answer, error)
	GetGrade(ctx context.Context, attemptID string) (Grade, error)

	// AbandonExpired marks in_progress attempts whose deadline (plus grace)
	// has passed as abandoned. Driven by the reaper, not the attempt itself.
	AbandonExpired(ctx context.Context, now int64) (int, error)
}
