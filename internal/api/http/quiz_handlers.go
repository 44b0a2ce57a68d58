package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mind-engage/drivequiz/internal/quiz"
	"github.com/mind-engage/drivequiz/internal/rbac"
)

// GET /api/quizzes?course_type=...&limit=50&offset=0
// Callers without quiz:create only see active quizzes, without answer keys.
func ListQuizzesHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		author := rbac.Allowed(r.Context(), "quiz:create")
		list, err := store.ListQuizzes(r.Context(), quiz.ListOpts{
			CourseType: strings.TrimSpace(r.URL.Query().Get("course_type")),
			ActiveOnly: !author,
			Limit:      parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:     parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !author {
			for i := range list {
				list[i] = list[i].StudentView()
			}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/quizzes/{quizID}
// The full quiz, answer keys included: clients score attempts locally so they
// can finish one without a connection. Inactive quizzes are hidden from students.
func GetQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := store.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
		if errors.Is(err, quiz.ErrNotFound) {
			http.Error(w, "quiz not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		author := rbac.Allowed(r.Context(), "quiz:create")
		if !q.IsActive && !author {
			http.Error(w, "quiz not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// POST /api/quizzes (teacher/manager). A missing id is generated; quizzes are
// active unless the body says otherwise.
func UploadQuizHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := quiz.Quiz{IsActive: true}
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(q.ID) == "" {
			q.ID = uuid.NewString()
		}
		if err := store.PutQuiz(r.Context(), q); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": q.ID})
	}
}

// POST /api/quizzes/{quizID}/attempt  { "answers": { "<question id>": "<option>" } }
func SubmitAttemptHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers quiz.Answers `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Answers == nil {
			http.Error(w, "answers required", http.StatusBadRequest)
			return
		}
		userID := rbac.SubjectFromContext(r.Context())
		a, err := store.SubmitAttempt(r.Context(), chi.URLParam(r, "quizID"), userID, req.Answers)
		if errors.Is(err, quiz.ErrNotFound) {
			http.Error(w, "quiz not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Printf("submit attempt: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /api/quizzes/{quizID}/attempts?user_id=...&limit=50&offset=0
// Without attempt:view-all the listing is forced to the caller's own attempts.
func ListAttemptsHandler(store quiz.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if !rbac.Allowed(r.Context(), "attempt:view-all") {
			userID = rbac.SubjectFromContext(r.Context())
		}
		list, err := store.ListAttempts(r.Context(), quiz.AttemptListOpts{
			QuizID: chi.URLParam(r, "quizID"),
			UserID: userID,
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
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
