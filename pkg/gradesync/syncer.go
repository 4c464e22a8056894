package gradesync

import (
	"context"
	"fmt"
	"time"
)

// Syncer pushes one completed grade at a time to the records system and
// tracks per-attempt sync state (pending/ok/failed).
type Syncer struct {
	store  Store
	client Client
	now    func() time.Time
}

func New(store Store, client Client, now func() time.Time) *Syncer {
	if now == nil {
		now = time.Now
	}
	return &Syncer{store: store, client: client, now: now}
}

// SyncAttempt posts the attempt's completed grade. Grades that have not
// reached completed are rejected; a failed post records the error and can
// be retried later.
func (s *Syncer) SyncAttempt(ctx context.Context, attemptID string) error {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("load attempt: %w", err)
	}
	g, err := s.store.GetGrade(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("load grade: %w", err)
	}
	if g.Status != "completed" {
		return fmt.Errorf("grade for attempt %s not completed (status %s)", attemptID, g.Status)
	}

	if err := s.store.MarkSyncPending(ctx, attemptID); err != nil {
		return err
	}
	entry := RecordEntry{
		AttemptID:    a.ID,
		AssessmentID: a.AssessmentID,
		StudentID:    a.StudentID,
		PointsEarned: g.PointsEarned,
		PointsMax:    g.PointsMax,
		Percent:      g.Percent,
		Letter:       g.Letter,
		Passed:       g.Passed,
		SubmittedAt:  a.SubmittedAt,
		GradedAt:     g.GradedAt,
		SyncedAt:     s.now().Unix(),
	}
	if err := s.client.PostRecord(ctx, entry); err != nil {
		_ = s.store.MarkSyncFailed(ctx, attemptID, err.Error())
		return fmt.Errorf("post record: %w", err)
	}
	return s.store.MarkSyncOK(ctx, attemptID)
}
