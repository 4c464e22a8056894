package gradesync

import "context"

// Attempt is the minimal attempt view the syncer needs.
type Attempt struct {
	ID           string
	AssessmentID string
	StudentID    string
	Status       string
	SubmittedAt  int64
}

// Grade is the minimal grade view the syncer needs.
type Grade struct {
	AttemptID    string
	PointsEarned float64
	PointsMax    float64
	Percent      float64
	Letter       string
	Passed       bool
	Status       string
	GradedAt     int64
}

// RecordEntry is what the institution's records system receives for one
// completed attempt.
type RecordEntry struct {
	AttemptID    string  `json:"attempt_id"`
	AssessmentID string  `json:"assessment_id"`
	StudentID    string  `json:"student_id"`
	PointsEarned float64 `json:"points_earned"`
	PointsMax    float64 `json:"points_max"`
	Percent      float64 `json:"percent"`
	Letter       string  `json:"letter"`
	Passed       bool    `json:"passed"`
	SubmittedAt  int64   `json:"submitted_at"`
	GradedAt     int64   `json:"graded_at"`
	SyncedAt     int64   `json:"synced_at"`
}

// Store is the slice of persistence the syncer depends on.
type Store interface {
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	GetGrade(ctx context.Context, attemptID string) (Grade, error)
	MarkSyncPending(ctx context.Context, attemptID string) error
	MarkSyncOK(ctx context.Context, attemptID string) error
	MarkSyncFailed(ctx context.Context, attemptID, lastErr string) error
}

// Client posts entries to the records system.
type Client interface {
	PostRecord(ctx context.Context, e RecordEntry) error
}
