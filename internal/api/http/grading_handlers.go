package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/unilearn/unilearn-portal/internal/assessment"
	authmw "github.com/unilearn/unilearn-portal/internal/auth/middleware"
)

// GET /attempts/{attemptID}/grading
// Every answer next to its question; objective rows carry the auto outcome.
func GetAttemptItemsHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		if attemptID == "" {
			http.Error(w, "attemptID required", http.StatusBadRequest)
			return
		}
		items, err := store.GetAttemptItems(r.Context(), attemptID)
		if err != nil {
			http.Error(w, "grading items: "+err.Error(), errStatus(err))
			return
		}
		writeJSON(w, items)
	}
}

type gradeAnswerReq struct {
	Points   float64 `json:"points"`
	Feedback string  `json:"feedback,omitempty"`
}

// POST /attempts/{attemptID}/grading/{questionID}
func GradeAnswerHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := strings.TrimSpace(chi.URLParam(r, "attemptID"))
		questionID := strings.TrimSpace(chi.URLParam(r, "questionID"))
		if attemptID == "" || questionID == "" {
			http.Error(w, "attemptID and questionID required", http.StatusBadRequest)
			return
		}
		var req gradeAnswerReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		graderID := authmw.SubjectFromContext(r.Context())
		a, err := store.GradeAnswer(r.Context(), attemptID, questionID, assessment.ManualGradeInput{
			Points:   req.Points,
			Feedback: req.Feedback,
			GraderID: graderID,
		})
		if err != nil {
			http.Error(w, "grade answer: "+err.Error(), errStatus(err))
			return
		}
		writeJSON(w, a)
	}
}
