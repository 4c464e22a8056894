package assessment

import "errors"

var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrGradeNotFound      = errors.New("grade not found")

	// ErrAttemptLimitExceeded: a new attempt would exceed the assessment's
	// configured maximum. Not retryable without institutional override.
	ErrAttemptLimitExceeded = errors.New("attempt limit exceeded")

	// ErrInvalidState: completion requested against a non-in_progress
	// attempt. Indicates a stale client; re-submission is rejected, not
	// silently accepted.
	ErrInvalidState = errors.New("attempt already submitted")

	// ErrAttemptNotActive: answer write against an attempt that has left
	// in_progress.
	ErrAttemptNotActive = errors.New("attempt is not active")

	// ErrGradingRange: manual points outside [0, question point value].
	ErrGradingRange = errors.New("points outside question range")

	// ErrGradeFinal: the grade reached completed and is immutable.
	ErrGradeFinal = errors.New("grade already completed")

	// ErrDeadlinePassed: answer write after the persisted attempt deadline.
	ErrDeadlinePassed = errors.New("attempt deadline passed")
)
