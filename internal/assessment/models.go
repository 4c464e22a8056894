package assessment

// Question types supported by the attempt engine.
const (
	QuestionMCQ         = "mcq"
	QuestionTrueFalse   = "true_false"
	QuestionShortAnswer = "short_answer"
	QuestionEssay       = "essay"
)

// Attempt statuses. in_progress -> submitted -> graded; in_progress -> abandoned.
const (
	AttemptInProgress = "in_progress"
	AttemptSubmitted  = "submitted"
	AttemptGraded     = "graded"
	AttemptAbandoned  = "abandoned"
)

// Grade statuses.
const (
	GradePending      = "pending"
	GradeAutoGraded   = "auto_graded"
	GradeManualReview = "manual_review"
	GradeCompleted    = "completed"
)

type Choice struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct,omitempty"`
}

type Question struct {
	ID        string   `json:"id"`
	Position  int      `json:"position"`
	Type      string   `json:"type"`
	Text      string   `json:"text"`
	Points    float64  `json:"points"`
	Choices   []Choice `json:"choices,omitempty"`    // choice types only
	WordLimit int      `json:"word_limit,omitempty"` // essay only
	Required  bool     `json:"required"`
}

// CorrectSet returns the indices of the correct choices.
func (q Question) CorrectSet() []int {
	var out []int
	for i, c := range q.Choices {
		if c.Correct {
			out = append(out, i)
		}
	}
	return out
}

// Objective reports whether the question type is auto-gradable.
func (q Question) Objective() bool {
	return q.Type == QuestionMCQ || q.Type == QuestionTrueFalse
}

type Assessment struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	DurationSec int        `json:"duration_sec"` // 0 = untimed
	MaxAttempts int        `json:"max_attempts"` // 0 = unlimited
	Questions   []Question `json:"questions"`
	CreatedAt   int64      `json:"created_at,omitempty"`
}

// TotalPoints sums the point values of every question.
func (a Assessment) TotalPoints() float64 {
	var t float64
	for _, q := range a.Questions {
		t += q.Points
	}
	return t
}

type Attempt struct {
	ID            string `json:"id"`
	AssessmentID  string `json:"assessment_id"`
	StudentID     string `json:"student_id"`
	Number        int    `json:"number"` // 1-based per (assessment, student)
	Status        string `json:"status"`
	StartedAt     int64  `json:"started_at"`
	SubmittedAt   int64  `json:"submitted_at,omitempty"`
	RemainingSec  *int64 `json:"remaining_sec,omitempty"` // nil = untimed
	Deadline      int64  `json:"deadline,omitempty"`      // unix seconds, 0 = untimed
	Completed     bool   `json:"completed"`
	AutoSubmitted bool   `json:"auto_submitted"`
}

// AnswerPayload is the client-supplied content of one answer write.
// Repeated writes for the same (attempt, question) replace each other whole;
// there is no merging of partial payloads.
type AnswerPayload struct {
	Text         string `json:"text,omitempty"`
	Selected     []int  `json:"selected,omitempty"`
	TimeSpentSec int64  `json:"time_spent_sec,omitempty"`
}

type Answer struct {
	AttemptID    string  `json:"attempt_id"`
	QuestionID   string  `json:"question_id"`
	Text         string  `json:"text,omitempty"`
	Selected     []int   `json:"selected,omitempty"`
	PointsEarned float64 `json:"points_earned"`
	Correct      *bool   `json:"correct,omitempty"` // nil until graded
	AutoGraded   bool    `json:"auto_graded"`
	Feedback     string  `json:"feedback,omitempty"`
	GradedBy     string  `json:"graded_by,omitempty"`
	GradedAt     int64   `json:"graded_at,omitempty"`
	TimeSpentSec int64   `json:"time_spent_sec,omitempty"`
	AnsweredAt   int64   `json:"answered_at,omitempty"`
}

// ManuallyGraded reports whether a grader has placed this answer's points.
// Manual points are never overwritten by auto-grading.
func (a Answer) ManuallyGraded() bool { return a.GradedBy != "" }

// Graded reports whether the answer carries a final score.
func (a Answer) Graded() bool { return a.AutoGraded || a.GradedBy != "" }

// Grade is derived from an attempt's answers; it has no state of its own
// beyond what the answers currently hold.
type Grade struct {
	AttemptID      string  `json:"attempt_id"`
	PointsPossible float64 `json:"points_possible"`
	PointsEarned   float64 `json:"points_earned"`
	Percent        float64 `json:"percent"`
	Letter         string  `json:"letter"`
	Passed         bool    `json:"passed"`
	AutoPoints     float64 `json:"auto_points"`
	ManualPoints   float64 `json:"manual_points"`
	Status         string  `json:"status"`
	GradedBy       string  `json:"graded_by,omitempty"`
	GradedAt       int64   `json:"graded_at,omitempty"`
	Feedback       string  `json:"feedback,omitempty"`
}

// AttemptItem pairs a question with the student's answer (if any) for the
// grader review view.
type AttemptItem struct {
	Question Question `json:"question"`
	Answer   *Answer  `json:"answer,omitempty"`
}
