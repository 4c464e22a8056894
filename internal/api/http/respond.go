package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/unilearn/unilearn-portal/internal/assessment"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// errStatus maps domain errors onto HTTP statuses.
func errStatus(err error) int {
	switch {
	case errors.Is(err, assessment.ErrAssessmentNotFound),
		errors.Is(err, assessment.ErrAttemptNotFound),
		errors.Is(err, assessment.ErrQuestionNotFound),
		errors.Is(err, assessment.ErrGradeNotFound):
		return http.StatusNotFound
	case errors.Is(err, assessment.ErrAttemptLimitExceeded),
		errors.Is(err, assessment.ErrInvalidState),
		errors.Is(err, assessment.ErrAttemptNotActive),
		errors.Is(err, assessment.ErrDeadlinePassed),
		errors.Is(err, assessment.ErrGradeFinal):
		return http.StatusConflict
	case errors.Is(err, assessment.ErrGradingRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
