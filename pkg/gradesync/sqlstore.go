package gradesync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLStore reads attempts/grades and tracks sync state in the grade_sync
// table. Works over the same database the gateway uses.
type SQLStore struct{ db *sql.DB }

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, assessment_id, student_id, status, submitted_at FROM attempts WHERE id=$1`, id)
	var a Attempt
	var submitted sql.NullInt64
	if err := row.Scan(&a.ID, &a.AssessmentID, &a.StudentID, &a.Status, &submitted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, fmt.Errorf("attempt %q not found", id)
		}
		return Attempt{}, err
	}
	if submitted.Valid {
		a.SubmittedAt = submitted.Int64
	}
	return a, nil
}

func (s *SQLStore) GetGrade(ctx context.Context, attemptID string) (Grade, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT attempt_id, points_earned, points_possible, percent, letter, passed, status, graded_at
		 FROM grades WHERE attempt_id=$1`, attemptID)
	var g Grade
	var gradedAt sql.NullInt64
	if err := row.Scan(&g.AttemptID, &g.PointsEarned, &g.PointsMax, &g.Percent, &g.Letter, &g.Passed, &g.Status, &gradedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Grade{}, fmt.Errorf("grade for attempt %q not found", attemptID)
		}
		return Grade{}, err
	}
	if gradedAt.Valid {
		g.GradedAt = gradedAt.Int64
	}
	return g, nil
}

func (s *SQLStore) MarkSyncPending(ctx context.Context, attemptID string) error {
	return s.markSync(ctx, attemptID, "pending", "", false)
}

func (s *SQLStore) MarkSyncOK(ctx context.Context, attemptID string) error {
	return s.markSync(ctx, attemptID, "ok", "", false)
}

func (s *SQLStore) MarkSyncFailed(ctx context.Context, attemptID, lastErr string) error {
	return s.markSync(ctx, attemptID, "failed", lastErr, true)
}

func (s *SQLStore) markSync(ctx context.Context, attemptID, status, lastErr string, bumpRetries bool) error {
	bump := 0
	if bumpRetries {
		bump = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO grade_sync (attempt_id, status, last_error, retries, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (attempt_id) DO UPDATE SET
			status=EXCLUDED.status, last_error=EXCLUDED.last_error,
			retries=grade_sync.retries+$4, updated_at=EXCLUDED.updated_at`,
		attemptID, status, lastErr, bump, time.Now().Unix())
	return err
}
