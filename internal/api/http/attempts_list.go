package http

import (
	"net/http"
	"strings"

	"github.com/unilearn/unilearn-portal/internal/assessment"
	authmw "github.com/unilearn/unilearn-portal/internal/auth/middleware"
	"github.com/unilearn/unilearn-portal/internal/rbac"
)

// GET /attempts?assessment_id=...&student_id=...&status=...&limit=50&offset=0&sort=started_at
// RBAC:
// - role with attempt:view-all can list any filters
// - role with attempt:view-own only sees their own rows (student_id is forced to subject)
func ListAttemptsHandler(store assessment.Store) http.HandlerFunc {
	checker := rbac.NewChecker(nil)
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := authmw.SubjectFromContext(r.Context())
		if role == "" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		assessmentID := strings.TrimSpace(r.URL.Query().Get("assessment_id"))
		studentID := strings.TrimSpace(r.URL.Query().Get("student_id"))
		status := strings.TrimSpace(r.URL.Query().Get("status"))
		sort := strings.TrimSpace(r.URL.Query().Get("sort"))
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
		offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

		if !checker.Has(role, "attempt:view-all") {
			studentID = sub
		}

		list, err := store.ListAttempts(r.Context(), assessment.AttemptListOpts{
			AssessmentID: assessmentID,
			StudentID:    studentID,
			Status:       status,
			Limit:        limit,
			Offset:       offset,
			Sort:         sort,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, list)
	}
}
