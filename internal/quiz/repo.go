package quiz

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

type ListOpts struct {
	CourseType string
	ActiveOnly bool
	Limit      int
	Offset     int
}

type AttemptListOpts struct {
	QuizID string // filter by quiz
	UserID string // filter by student
	Limit  int
	Offset int
}

// Store is the backend's system of record for quizzes and attempts.
type Store interface {
	PutQuiz(ctx context.Context, q Quiz) error
	GetQuiz(ctx context.Context, id string) (Quiz, error) // full quiz, including answer keys
	ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error)

	// SubmitAttempt scores answers against the stored key and records the attempt.
	SubmitAttempt(ctx context.Context, quizID, userID string, answers Answers) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
