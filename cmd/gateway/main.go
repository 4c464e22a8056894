package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/unilearn/unilearn-portal/internal/api/http"
	"github.com/unilearn/unilearn-portal/internal/assessment"
	auth "github.com/unilearn/unilearn-portal/internal/auth/middleware"
	"github.com/unilearn/unilearn-portal/internal/config"
	"github.com/unilearn/unilearn-portal/internal/db"
	"github.com/unilearn/unilearn-portal/internal/grading"
	"github.com/unilearn/unilearn-portal/internal/rbac"
	syncx "github.com/unilearn/unilearn-portal/internal/sync"
	"github.com/unilearn/unilearn-portal/pkg/gradesync"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	scale, err := grading.ParseScale(cfg.GradeScale, cfg.PassPercent)
	if err != nil {
		log.Fatalf("grade scale: %v", err)
	}
	grader := grading.NewDefaultGrader()
	events := syncx.NewEventRepo(dbh)
	store := assessment.NewSQLStore(dbh, grader, scale).WithEvents(events)

	// --- Auth (local JWT) ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Records sync (optional) ---
	var syncer *gradesync.Syncer
	if cfg.RecordsURL != "" {
		syncer = gradesync.New(
			gradesync.NewSQLStore(dbh),
			gradesync.NewHTTPClient(cfg.RecordsURL, cfg.RecordsToken),
			time.Now,
		)
	}

	// --- Reaper for abandoned attempts (optional) ---
	if cfg.ReaperEnable {
		reaper := assessment.NewReaper(store, time.Duration(cfg.ReaperIntervalSec)*time.Second)
		go reaper.Run(context.Background())
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))
	}
	r.Get("/client-config", api.ClientConfigHandler(cfg.AutosaveDebounceMS))

	// Protected API (JWT -> subject/role in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Lecturer: author assessments
		pr.With(rbac.Require("assessment:create")).
			Post("/assessments", api.UploadAssessmentHandler(store))
		pr.With(rbac.Require("assessment:view")).
			Get("/assessments/{assessmentID}", api.GetAssessmentHandler(store))
		pr.With(rbac.Require("assessment:author")).
			Get("/assessments/{assessmentID}/full", api.GetAssessmentAuthorHandler(store))

		// Student flow
		pr.With(rbac.Require("attempt:create")).
			Post("/attempts", api.StartAttemptHandler(store))
		pr.With(rbac.Require("attempt:save")).
			Put("/attempts/{attemptID}/answers/{questionID}", api.UpsertAnswerHandler(store))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(store))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(store))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(store))
		pr.With(rbac.RequireAny("grade:view-own", "grade:view-all")).
			Get("/attempts/{attemptID}/grade", api.GetGradeHandler(store))

		// Grader flow
		pr.With(rbac.Require("attempt:grade")).
			Get("/attempts/{attemptID}/grading", api.GetAttemptItemsHandler(store))
		pr.With(rbac.Require("attempt:grade")).
			Post("/attempts/{attemptID}/grading/{questionID}", api.GradeAnswerHandler(store))
		pr.With(rbac.Require("grade:sync")).
			Post("/attempts/{attemptID}/gradesync", api.SyncGradeHandler(syncer))

		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
