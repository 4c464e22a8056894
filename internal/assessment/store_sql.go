package assessment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unilearn/unilearn-portal/internal/grading"
	syncx "github.com/unilearn/unilearn-portal/internal/sync"
)

// SQLStore is the production Store over sqlite or postgres.
type SQLStore struct {
	db       *sql.DB
	grader   grading.Grader
	scale    grading.Scale
	graceSec int64
	events   *syncx.EventRepo
	now      func() time.Time
}

func NewSQLStore(db *sql.DB, grader grading.Grader, scale grading.Scale) *SQLStore {
	return &SQLStore{
		db:       db,
		grader:   grader,
		scale:    scale,
		graceSec: 30,
		now:      time.Now,
	}
}

// WithEvents enables audit rows in the event log for attempt transitions.
func (s *SQLStore) WithEvents(r *syncx.EventRepo) *SQLStore {
	s.events = r
	return s
}

// WithClock overrides the store clock, for tests.
func (s *SQLStore) WithClock(now func() time.Time) *SQLStore {
	s.now = now
	return s
}

func (s *SQLStore) PutAssessment(ctx context.Context, a Assessment) error {
	qj, err := json.Marshal(a.Questions)
	if err != nil {
		return err
	}
	if a.CreatedAt == 0 {
		a.CreatedAt = s.now().Unix()
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO assessments (id,title,duration_sec,max_attempts,questions_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, duration_sec=EXCLUDED.duration_sec,
			max_attempts=EXCLUDED.max_attempts, questions_json=EXCLUDED.questions_json`,
		a.ID, a.Title, a.DurationSec, a.MaxAttempts, string(qj), a.CreatedAt)
	return err
}

func (s *SQLStore) GetAssessment(ctx context.Context, id string) (Assessment, error) {
	a, err := s.getAssessment(ctx, s.db, id)
	if err != nil {
		return Assessment{}, err
	}
	return stripKeys(a), nil
}

func (s *SQLStore) GetAssessmentAuthor(ctx context.Context, id string) (Assessment, error) {
	return s.getAssessment(ctx, s.db, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *SQLStore) getAssessment(ctx context.Context, q querier, id string) (Assessment, error) {
	row := q.QueryRowContext(ctx, `SELECT id,title,duration_sec,max_attempts,questions_json,created_at FROM assessments WHERE id=$1`, id)
	var a Assessment
	var qjson string
	if err := row.Scan(&a.ID, &a.Title, &a.DurationSec, &a.MaxAttempts, &qjson, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Assessment{}, ErrAssessmentNotFound
		}
		return Assessment{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &a.Questions); err != nil {
		return Assessment{}, fmt.Errorf("decode questions: %w", err)
	}
	return a, nil
}

func (s *SQLStore) StartAttempt(ctx context.Context, assessmentID, studentID string) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	var durationSec, maxAttempts int
	err = tx.QueryRowContext(ctx, `SELECT duration_sec, max_attempts FROM assessments WHERE id=$1`, assessmentID).
		Scan(&durationSec, &maxAttempts)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAssessmentNotFound
	}
	if err != nil {
		return Attempt{}, err
	}

	// Idempotent resume of an open attempt.
	row := tx.QueryRowContext(ctx, attemptCols+` FROM attempts
		WHERE assessment_id=$1 AND student_id=$2 AND status=$3`,
		assessmentID, studentID, AttemptInProgress)
	if a, err := scanAttempt(row); err == nil {
		return a, tx.Commit()
	} else if !errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, err
	}

	var prior int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts WHERE assessment_id=$1 AND student_id=$2`,
		assessmentID, studentID).Scan(&prior); err != nil {
		return Attempt{}, err
	}
	if maxAttempts > 0 && prior+1 > maxAttempts {
		return Attempt{}, ErrAttemptLimitExceeded
	}

	now := s.now().Unix()
	a := Attempt{
		ID:           uuid.NewString(),
		AssessmentID: assessmentID,
		StudentID:    studentID,
		Number:       prior + 1,
		Status:       AttemptInProgress,
		StartedAt:    now,
	}
	var remaining sql.NullInt64
	if durationSec > 0 {
		rem := int64(durationSec)
		a.RemainingSec = &rem
		a.Deadline = now + rem
		remaining = sql.NullInt64{Int64: rem, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO attempts
		(id,assessment_id,student_id,num,status,started_at,remaining_sec,deadline,completed,auto_submitted)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.AssessmentID, a.StudentID, a.Number, a.Status, a.StartedAt, remaining, a.Deadline, false, false)
	if err != nil {
		// idx_attempts_open: a concurrent start won the insert; resume its row.
		if isUniqueViolation(err) {
			tx.Rollback()
			row := s.db.QueryRowContext(ctx, attemptCols+` FROM attempts
				WHERE assessment_id=$1 AND student_id=$2 AND status=$3`,
				assessmentID, studentID, AttemptInProgress)
			if open, scanErr := scanAttempt(row); scanErr == nil {
				return open, nil
			}
		}
		return Attempt{}, err
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	s.appendEvent(ctx, syncx.EventAttemptStarted, a.ID, a)
	return a, nil
}

// isUniqueViolation matches both backends: sqlite reports
// "UNIQUE constraint failed", postgres "duplicate key value violates
// unique constraint".
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

const attemptCols = `SELECT id,assessment_id,student_id,num,status,started_at,submitted_at,remaining_sec,deadline,completed,auto_submitted`

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var submitted, remaining sql.NullInt64
	if err := row.Scan(&a.ID, &a.AssessmentID, &a.StudentID, &a.Number, &a.Status,
		&a.StartedAt, &submitted, &remaining, &a.Deadline, &a.Completed, &a.AutoSubmitted); err != nil {
		return Attempt{}, err
	}
	if submitted.Valid {
		a.SubmittedAt = submitted.Int64
	}
	if remaining.Valid {
		rem := remaining.Int64
		a.RemainingSec = &rem
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, attemptCols+` FROM attempts WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	q := attemptCols + ` FROM attempts WHERE 1=1`
	var args []interface{}
	n := 0
	arg := func(v interface{}) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}
	if opts.AssessmentID != "" {
		q += ` AND assessment_id=` + arg(opts.AssessmentID)
	}
	if opts.StudentID != "" {
		q += ` AND student_id=` + arg(opts.StudentID)
	}
	if opts.Status != "" {
		q += ` AND status=` + arg(opts.Status)
	}
	if opts.Sort == "submitted_at" {
		q += ` ORDER BY submitted_at DESC`
	} else {
		q += ` ORDER BY started_at DESC`
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	q += ` LIMIT ` + arg(limit) + ` OFFSET ` + arg(opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpsertAnswer(ctx context.Context, attemptID, questionID string, p AnswerPayload) (Answer, error) {
	at, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return Answer{}, err
	}
	if at.Status != AttemptInProgress {
		return Answer{}, ErrAttemptNotActive
	}
	now := s.now().Unix()
	// Store-side deadline enforcement, independent of the client countdown.
	if at.Deadline > 0 && now > at.Deadline+s.graceSec {
		return Answer{}, ErrDeadlinePassed
	}
	as, err := s.getAssessment(ctx, s.db, at.AssessmentID)
	if err != nil {
		return Answer{}, err
	}
	if questionByID(as.Questions, questionID) == nil {
		return Answer{}, ErrQuestionNotFound
	}

	sel, err := json.Marshal(p.Selected)
	if err != nil {
		return Answer{}, err
	}
	// Keyed upsert: repeated autosaves replace the payload whole. Grading
	// columns are left alone; they are only written after submission, when
	// this path is already rejected.
	_, err = s.db.ExecContext(ctx, `INSERT INTO answers
		(attempt_id,question_id,body,selected_json,time_spent_sec,answered_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (attempt_id,question_id) DO UPDATE SET
			body=EXCLUDED.body, selected_json=EXCLUDED.selected_json,
			time_spent_sec=EXCLUDED.time_spent_sec, answered_at=EXCLUDED.answered_at`,
		attemptID, questionID, p.Text, string(sel), p.TimeSpentSec, now)
	if err != nil {
		return Answer{}, err
	}
	return Answer{
		AttemptID:    attemptID,
		QuestionID:   questionID,
		Text:         p.Text,
		Selected:     append([]int(nil), p.Selected...),
		TimeSpentSec: p.TimeSpentSec,
		AnsweredAt:   now,
	}, nil
}

func (s *SQLStore) CompleteAttempt(ctx context.Context, attemptID string, autoSubmitted bool) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, attemptCols+` FROM attempts WHERE id=$1`, attemptID)
	at, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	if err != nil {
		return Attempt{}, err
	}
	if at.Status != AttemptInProgress {
		return Attempt{}, ErrInvalidState
	}

	as, err := s.getAssessment(ctx, tx, at.AssessmentID)
	if err != nil {
		return Attempt{}, err
	}
	answers, err := s.loadAnswers(ctx, tx, attemptID)
	if err != nil {
		return Attempt{}, err
	}

	// Auto-grade objective questions; unanswered ones get zero-point rows.
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
		res := s.grader.Score(
			grading.Q{Type: q.Type, Points: q.Points, CorrectSet: q.CorrectSet()},
			grading.Response{Text: a.Text, Selected: a.Selected},
		)
		correct := res.Correct
		a.PointsEarned = res.Points
		a.Correct = &correct
		a.AutoGraded = true
		answers[q.ID] = a
		if err := writeAnswer(ctx, tx, a); err != nil {
			return Attempt{}, err
		}
	}

	at.SubmittedAt = s.now().Unix()
	at.Completed = true
	at.AutoSubmitted = autoSubmitted
	at.Status = AttemptSubmitted

	g := aggregateGrade(attemptID, as.Questions, answers, s.scale)
	if g.Status == GradeCompleted {
		at.Status = AttemptGraded
	}
	if _, err := tx.ExecContext(ctx, `UPDATE attempts SET status=$1, submitted_at=$2, completed=$3, auto_submitted=$4 WHERE id=$5`,
		at.Status, at.SubmittedAt, at.Completed, at.AutoSubmitted, attemptID); err != nil {
		return Attempt{}, err
	}
	if err := writeGrade(ctx, tx, g); err != nil {
		return Attempt{}, err
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	s.appendEvent(ctx, syncx.EventAttemptSubmitted, attemptID, at)
	if g.Status == GradeCompleted {
		s.appendEvent(ctx, syncx.EventGradeCompleted, attemptID, g)
	}
	return at, nil
}

func (s *SQLStore) GetAttemptItems(ctx context.Context, attemptID string) ([]AttemptItem, error) {
	at, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	as, err := s.getAssessment(ctx, s.db, at.AssessmentID)
	if err != nil {
		return nil, err
	}
	answers, err := s.loadAnswers(ctx, s.db, attemptID)
	if err != nil {
		return nil, err
	}
	qs := append([]Question(nil), as.Questions...)
	sort.Slice(qs, func(i, j int) bool { return qs[i].Position < qs[j].Position })

	items := make([]AttemptItem, 0, len(qs))
	for _, q := range qs {
		item := AttemptItem{Question: q}
		if a, ok := answers[q.ID]; ok {
			ans := a
			item.Answer = &ans
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *SQLStore) GradeAnswer(ctx context.Context, attemptID, questionID string, in ManualGradeInput) (Answer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Answer{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, attemptCols+` FROM attempts WHERE id=$1`, attemptID)
	at, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Answer{}, ErrAttemptNotFound
	}
	if err != nil {
		return Answer{}, err
	}
	if at.Status == AttemptInProgress || at.Status == AttemptAbandoned {
		return Answer{}, ErrInvalidState
	}
	var gradeStatus string
	err = tx.QueryRowContext(ctx, `SELECT status FROM grades WHERE attempt_id=$1`, attemptID).Scan(&gradeStatus)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Answer{}, err
	}
	if gradeStatus == GradeCompleted {
		return Answer{}, ErrGradeFinal
	}

	as, err := s.getAssessment(ctx, tx, at.AssessmentID)
	if err != nil {
		return Answer{}, err
	}
	q := questionByID(as.Questions, questionID)
	if q == nil {
		return Answer{}, ErrQuestionNotFound
	}
	if in.Points < 0 || in.Points > q.Points {
		return Answer{}, ErrGradingRange
	}

	answers, err := s.loadAnswers(ctx, tx, attemptID)
	if err != nil {
		return Answer{}, err
	}
	a := answers[questionID]
	a.AttemptID = attemptID
	a.QuestionID = questionID
	a.PointsEarned = in.Points
	a.Feedback = in.Feedback
	a.GradedBy = in.GraderID
	a.GradedAt = s.now().Unix()
	a.AutoGraded = false // an override is a manual edit, not auto-grading
	if q.Objective() {
		correct := in.Points == q.Points
		a.Correct = &correct
	} else {
		a.Correct = nil
	}
	answers[questionID] = a
	if err := writeAnswer(ctx, tx, a); err != nil {
		return Answer{}, err
	}

	g := aggregateGrade(attemptID, as.Questions, answers, s.scale)
	if err := writeGrade(ctx, tx, g); err != nil {
		return Answer{}, err
	}
	if g.Status == GradeCompleted && at.Status == AttemptSubmitted {
		if _, err := tx.ExecContext(ctx, `UPDATE attempts SET status=$1 WHERE id=$2`, AttemptGraded, attemptID); err != nil {
			return Answer{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Answer{}, err
	}
	s.appendEvent(ctx, syncx.EventAnswerGraded, attemptID, a)
	if g.Status == GradeCompleted {
		s.appendEvent(ctx, syncx.EventGradeCompleted, attemptID, g)
	}
	return a, nil
}

func (s *SQLStore) GetGrade(ctx context.Context, attemptID string) (Grade, error) {
	row := s.db.QueryRowContext(ctx, `SELECT attempt_id,points_possible,points_earned,percent,letter,passed,
		auto_points,manual_points,status,graded_by,graded_at,feedback FROM grades WHERE attempt_id=$1`, attemptID)
	var g Grade
	var gradedAt sql.NullInt64
	if err := row.Scan(&g.AttemptID, &g.PointsPossible, &g.PointsEarned, &g.Percent, &g.Letter, &g.Passed,
		&g.AutoPoints, &g.ManualPoints, &g.Status, &g.GradedBy, &gradedAt, &g.Feedback); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Grade{}, ErrGradeNotFound
		}
		return Grade{}, err
	}
	if gradedAt.Valid {
		g.GradedAt = gradedAt.Int64
	}
	return g, nil
}

func (s *SQLStore) AbandonExpired(ctx context.Context, now int64) (int, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE attempts SET status=$1
		WHERE status=$2 AND deadline > 0 AND deadline + $3 < $4`,
		AttemptAbandoned, AttemptInProgress, s.graceSec, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 && s.events != nil {
		s.appendEvent(ctx, syncx.EventAttemptAbandoned, "", map[string]int64{"count": n, "at": now})
	}
	return int(n), nil
}

type execQuerier interface {
	querier
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *SQLStore) loadAnswers(ctx context.Context, q execQuerier, attemptID string) (map[string]Answer, error) {
	rows, err := q.QueryContext(ctx, `SELECT attempt_id,question_id,body,selected_json,points_earned,correct,
		auto_graded,feedback,graded_by,graded_at,time_spent_sec,answered_at FROM answers WHERE attempt_id=$1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]Answer{}
	for rows.Next() {
		var a Answer
		var sel string
		var correct sql.NullBool
		var gradedAt, answeredAt sql.NullInt64
		if err := rows.Scan(&a.AttemptID, &a.QuestionID, &a.Text, &sel, &a.PointsEarned, &correct,
			&a.AutoGraded, &a.Feedback, &a.GradedBy, &gradedAt, &a.TimeSpentSec, &answeredAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sel), &a.Selected); err != nil {
			a.Selected = nil
		}
		if correct.Valid {
			c := correct.Bool
			a.Correct = &c
		}
		if gradedAt.Valid {
			a.GradedAt = gradedAt.Int64
		}
		if answeredAt.Valid {
			a.AnsweredAt = answeredAt.Int64
		}
		out[a.QuestionID] = a
	}
	return out, rows.Err()
}

func writeAnswer(ctx context.Context, q execQuerier, a Answer) error {
	sel, err := json.Marshal(a.Selected)
	if err != nil {
		return err
	}
	var correct sql.NullBool
	if a.Correct != nil {
		correct = sql.NullBool{Bool: *a.Correct, Valid: true}
	}
	var gradedAt, answeredAt sql.NullInt64
	if a.GradedAt != 0 {
		gradedAt = sql.NullInt64{Int64: a.GradedAt, Valid: true}
	}
	if a.AnsweredAt != 0 {
		answeredAt = sql.NullInt64{Int64: a.AnsweredAt, Valid: true}
	}
	_, err = q.ExecContext(ctx, `INSERT INTO answers
		(attempt_id,question_id,body,selected_json,points_earned,correct,auto_graded,feedback,graded_by,graded_at,time_spent_sec,answered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (attempt_id,question_id) DO UPDATE SET
			body=EXCLUDED.body, selected_json=EXCLUDED.selected_json, points_earned=EXCLUDED.points_earned,
			correct=EXCLUDED.correct, auto_graded=EXCLUDED.auto_graded, feedback=EXCLUDED.feedback,
			graded_by=EXCLUDED.graded_by, graded_at=EXCLUDED.graded_at,
			time_spent_sec=EXCLUDED.time_spent_sec, answered_at=EXCLUDED.answered_at`,
		a.AttemptID, a.QuestionID, a.Text, string(sel), a.PointsEarned, correct, a.AutoGraded,
		a.Feedback, a.GradedBy, gradedAt, a.TimeSpentSec, answeredAt)
	return err
}

func writeGrade(ctx context.Context, q execQuerier, g Grade) error {
	var gradedAt sql.NullInt64
	if g.GradedAt != 0 {
		gradedAt = sql.NullInt64{Int64: g.GradedAt, Valid: true}
	}
	_, err := q.ExecContext(ctx, `INSERT INTO grades
		(attempt_id,points_possible,points_earned,percent,letter,passed,auto_points,manual_points,status,graded_by,graded_at,feedback)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (attempt_id) DO UPDATE SET
			points_possible=EXCLUDED.points_possible, points_earned=EXCLUDED.points_earned,
			percent=EXCLUDED.percent, letter=EXCLUDED.letter, passed=EXCLUDED.passed,
			auto_points=EXCLUDED.auto_points, manual_points=EXCLUDED.manual_points,
			status=EXCLUDED.status, graded_by=EXCLUDED.graded_by, graded_at=EXCLUDED.graded_at,
			feedback=EXCLUDED.feedback`,
		g.AttemptID, g.PointsPossible, g.PointsEarned, g.Percent, g.Letter, g.Passed,
		g.AutoPoints, g.ManualPoints, g.Status, g.GradedBy, gradedAt, g.Feedback)
	return err
}

func (s *SQLStore) appendEvent(ctx context.Context, typ, key string, payload interface{}) {
	if s.events == nil {
		return
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = s.events.Append(ctx, syncx.Event{Type: typ, Key: key, DataJSON: string(buf)})
}
