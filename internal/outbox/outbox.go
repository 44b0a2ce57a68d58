// Package outbox holds finished quiz results that have not yet been accepted by
// the backend. An entry leaves the outbox only through Remove, which callers
// invoke after a confirmed successful submission for that id.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mind-engage/drivequiz/internal/quiz"
)

var (
	ErrNotFound  = errors.New("outbox: entry not found")
	ErrDuplicate = errors.New("outbox: duplicate id")
)

// Result is a completed attempt waiting for delivery.
type Result struct {
	ID          string       `json:"id"`
	QuizID      string       `json:"quiz_id"`
	Answers     quiz.Answers `json:"answers"`
	Score       int          `json:"score"`
	Passed      bool         `json:"passed"`
	CompletedAt time.Time    `json:"completed_at"`
	TimeTaken   int          `json:"time_taken"` // seconds
	Offline     bool         `json:"offline"`
}

// FromOutcome converts a finished session into a deliverable result.
func FromOutcome(o quiz.Outcome) Result {
	return Result{
		ID:          NewID(o.CompletedAt),
		QuizID:      o.QuizID,
		Answers:     o.Answers.Clone(),
		Score:       o.Score,
		Passed:      o.Passed,
		CompletedAt: o.CompletedAt,
		TimeTaken:   int(o.TimeTaken / time.Second),
	}
}

type Outbox interface {
	Append(ctx context.Context, r Result) error
	List(ctx context.Context) ([]Result, error) // oldest first
	Remove(ctx context.Context, id string) error
	Len(ctx context.Context) (int, error)
}

var idSeq atomic.Uint32

// NewID returns a timestamp based id. The millisecond timestamp is suffixed with
// a process-wide counter so ids minted in the same millisecond stay distinct.
func NewID(now time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	n := idSeq.Add(1)
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + fmt.Sprintf("%04d", n%10000)
}

func validate(r Result) error {
	if r.ID == "" {
		return errors.New("outbox: result has no id")
	}
	if r.QuizID == "" {
		return fmt.Errorf("outbox: result %s has no quiz id", r.ID)
	}
	return nil
}

// Memory is a process-local outbox.
type Memory struct {
	mu      sync.Mutex
	entries []Result
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Append(_ context.Context, r Result) error {
	if err := validate(r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == r.ID {
			return fmt.Errorf("%w: %s", ErrDuplicate, r.ID)
		}
	}
	r.Answers = r.Answers.Clone()
	m.entries = append(m.entries, r)
	return nil
}

func (m *Memory) List(_ context.Context) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Result, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *Memory) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.entries {
		if r.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}
