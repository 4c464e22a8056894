package assessment

import (
	"strings"

	"github.com/unilearn/unilearn-portal/internal/grading"
)

// aggregateGrade derives the Grade for one attempt from the current
// question bank and answer set. It is a pure recompute: safe to call
// repeatedly, with no memory beyond what the answers hold.
func aggregateGrade(attemptID string, questions []Question, answers map[string]Answer, scale grading.Scale) Grade {
	g := Grade{AttemptID: attemptID}

	var (
		total, earned   float64
		autoPts, manual float64
		objTotal, objGr int
		subGr           int
		gradedCount     int
		feedback        []string
		lastGrader      string
		lastGradedAt    int64
	)

	for _, q := range questions {
		total += q.Points
		a, ok := answers[q.ID]
		graded := ok && a.Graded()
		if ok {
			earned += a.PointsEarned
			switch {
			case a.ManuallyGraded():
				manual += a.PointsEarned
				if a.GradedAt >= lastGradedAt {
					lastGradedAt = a.GradedAt
					lastGrader = a.GradedBy
				}
			case a.AutoGraded:
				autoPts += a.PointsEarned
			}
			if a.Feedback != "" {
				feedback = append(feedback, a.Feedback)
			}
		}
		if graded {
			gradedCount++
		}
		if q.Objective() {
			objTotal++
			if graded {
				objGr++
			}
		} else if graded {
			subGr++
		}
	}

	g.PointsPossible = total
	g.PointsEarned = earned
	g.AutoPoints = autoPts
	g.ManualPoints = manual
	if total > 0 {
		g.Percent = earned / total * 100
	}
	g.Letter = scale.Letter(g.Percent)
	g.Passed = scale.Passed(g.Percent)
	g.Feedback = strings.Join(feedback, "\n")
	g.GradedBy = lastGrader
	g.GradedAt = lastGradedAt

	switch {
	case gradedCount > 0 && gradedCount == len(questions):
		g.Status = GradeCompleted
	case gradedCount == 0:
		g.Status = GradePending
	case objGr == objTotal && subGr == 0:
		g.Status = GradeAutoGraded
	default:
		g.Status = GradeManualReview
	}
	return g
}
