package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unilearn/unilearn-portal/internal/assessment"
	authmw "github.com/unilearn/unilearn-portal/internal/auth/middleware"
	"github.com/unilearn/unilearn-portal/internal/rbac"
)

// POST /attempts {"assessment_id": "..."}
// Starting is idempotent: an open attempt is resumed, not duplicated.
func StartAttemptHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AssessmentID string `json:"assessment_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.AssessmentID == "" {
			http.Error(w, "assessment_id required", http.StatusBadRequest)
			return
		}
		studentID := authmw.SubjectFromContext(r.Context())
		if studentID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		a, err := store.StartAttempt(r.Context(), req.AssessmentID, studentID)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		writeJSON(w, a)
	}
}

// PUT /attempts/{attemptID}/answers/{questionID}
func UpsertAnswerHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		questionID := chi.URLParam(r, "questionID")
		if !ownsAttempt(store, r, attemptID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var p assessment.AnswerPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		a, err := store.UpsertAnswer(r.Context(), attemptID, questionID, p)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		writeJSON(w, a)
	}
}

// POST /attempts/{attemptID}/submit {"auto_submitted": false}
func SubmitAttemptHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		if !ownsAttempt(store, r, attemptID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var req struct {
			AutoSubmitted bool `json:"auto_submitted"`
		}
		// body optional: plain manual submit
		_ = json.NewDecoder(r.Body).Decode(&req)
		a, err := store.CompleteAttempt(r.Context(), attemptID, req.AutoSubmitted)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		writeJSON(w, a)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		a, err := store.GetAttempt(r.Context(), attemptID)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		if !viewerCanSee(r, a.StudentID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, a)
	}
}

// GET /attempts/{attemptID}/grade
func GetGradeHandler(store assessment.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		a, err := store.GetAttempt(r.Context(), attemptID)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		if !viewerCanSee(r, a.StudentID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		g, err := store.GetGrade(r.Context(), attemptID)
		if err != nil {
			http.Error(w, err.Error(), errStatus(err))
			return
		}
		writeJSON(w, g)
	}
}

// ownsAttempt restricts attempt mutation to the student who started it.
func ownsAttempt(store assessment.Store, r *http.Request, attemptID string) bool {
	sub := authmw.SubjectFromContext(r.Context())
	if sub == "" {
		return false
	}
	a, err := store.GetAttempt(r.Context(), attemptID)
	if err != nil {
		// let the handler surface the not-found
		return true
	}
	return a.StudentID == sub
}

// viewerCanSee allows the owner plus any role with attempt:view-all.
func viewerCanSee(r *http.Request, studentID string) bool {
	sub := authmw.SubjectFromContext(r.Context())
	if sub != "" && sub == studentID {
		return true
	}
	role := rbac.RoleFromContext(r.Context())
	return rbac.NewChecker(nil).Has(role, "attempt:view-all")
}
