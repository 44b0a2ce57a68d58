package quiz

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu       sync.RWMutex
	quizzes  map[string]Quiz
	attempts []Attempt
}

func NewInMemoryStore() Store {
	return &memoryStore{
		quizzes: map[string]Quiz{},
	}
}

func (m *memoryStore) PutQuiz(_ context.Context, q Quiz) error {
	if err := q.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.CreatedAt == 0 {
		q.CreatedAt = time.Now().Unix()
	}
	m.quizzes[q.ID] = q
	return nil
}

func (m *memoryStore) GetQuiz(_ context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, fmt.Errorf("quiz %s: %w", id, ErrNotFound)
	}
	return q, nil
}

func (m *memoryStore) ListQuizzes(_ context.Context, opts ListOpts) ([]Quiz, error) {
	m.mu.RLock()
	out := make([]Quiz, 0, len(m.quizzes))
	for _, q := range m.quizzes {
		if opts.ActiveOnly && !q.IsActive {
			continue
		}
		if opts.CourseType != "" && q.CourseType != opts.CourseType {
			continue
		}
		out = append(out, q)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	limit, offset := clampPage(opts.Limit, opts.Offset)
	if offset >= len(out) {
		return []Quiz{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) SubmitAttempt(_ context.Context, quizID, userID string, answers Answers) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[quizID]
	if !ok {
		return Attempt{}, fmt.Errorf("quiz %s: %w", quizID, ErrNotFound)
	}
	score, _ := Score(q, answers)
	a := Attempt{
		ID:          uuid.NewString(),
		QuizID:      quizID,
		UserID:      userID,
		Answers:     answers.Clone(),
		Score:       score,
		Passed:      Passed(score, q.PassingScore),
		SubmittedAt: time.Now().Unix(),
	}
	m.attempts = append(m.attempts, a)
	return a, nil
}

func (m *memoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	// newest first
	for i := len(m.attempts) - 1; i >= 0; i-- {
		a := m.attempts[i]
		if opts.QuizID != "" && a.QuizID != opts.QuizID {
			continue
		}
		if opts.UserID != "" && a.UserID != opts.UserID {
			continue
		}
		out = append(out, a)
	}
	limit, offset := clampPage(opts.Limit, opts.Offset)
	if offset >= len(out) {
		return []Attempt{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
