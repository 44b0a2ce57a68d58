package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	authmw "github.com/mind-engage/drivequiz/internal/auth/middleware"
	"github.com/mind-engage/drivequiz/internal/quiz"
	"github.com/mind-engage/drivequiz/internal/rbac"
)

// Users is what the router needs from the account store.
type Users interface {
	authmw.Authenticator
	authmw.RoleSource
	UserUpserter
}

type Deps struct {
	Store       quiz.Store
	Users       Users
	Auth        *authmw.AuthService
	CORSOrigins []string
	LocalAuth   bool
	// RoleClaimFallback keeps the token's role when the users table lookup fails.
	RoleClaimFallback bool
}

func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.LocalAuth {
		r.Post("/auth/login", authmw.LoginHandler(d.Auth, d.Users))
	}

	// Protected API (JWT -> role in context -> RBAC)
	r.Route("/api", func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth))
		pr.Use(authmw.AttachRoleFromDB(d.Users, d.RoleClaimFallback))

		pr.With(rbac.Require("quiz:view")).Get("/quizzes", ListQuizzesHandler(d.Store))
		pr.With(rbac.Require("quiz:view")).Get("/quizzes/{quizID}", GetQuizHandler(d.Store))
		pr.With(rbac.Require("quiz:create")).Post("/quizzes", UploadQuizHandler(d.Store))

		pr.With(rbac.Require("attempt:submit")).
			Post("/quizzes/{quizID}/attempt", SubmitAttemptHandler(d.Store))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/quizzes/{quizID}/attempts", ListAttemptsHandler(d.Store))

		pr.With(rbac.Require("users:upsert")).Post("/users", BulkUpsertUsersHandler(d.Users))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
