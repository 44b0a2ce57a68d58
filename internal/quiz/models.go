package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// QuestionID identifies a question inside a quiz. The backend stores numeric ids
// but answers are keyed by the id's string form, so both JSON shapes decode.
type QuestionID string

func (id *QuestionID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return errors.New("question id: null")
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = QuestionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("question id: %w", err)
	}
	*id = QuestionID(n.String())
	return nil
}

type Question struct {
	ID            QuestionID `json:"id"`
	Prompt        string     `json:"question"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correct_answer,omitempty"` // option string; omitted in list views
	Explanation   string     `json:"explanation,omitempty"`
}

// CorrectIndex returns the position of the correct option, or -1.
func (q Question) CorrectIndex() int {
	for i, o := range q.Options {
		if o == q.CorrectAnswer {
			return i
		}
	}
	return -1
}

type Quiz struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Questions        []Question `json:"questions"`
	TimeLimitMinutes int        `json:"time_limit_minutes"`
	PassingScore     float64    `json:"passing_score"` // percentage 0-100
	Difficulty       string     `json:"difficulty,omitempty"`
	CourseType       string     `json:"course_type,omitempty"`
	IsActive         bool       `json:"is_active"`

	CreatedAt int64 `json:"created_at,omitempty"`
}

// TimeLimit is the attempt duration.
func (q Quiz) TimeLimit() time.Duration {
	return time.Duration(q.TimeLimitMinutes) * time.Minute
}

// Validate checks the fields every consumer relies on. Responses that fail it are
// rejected rather than patched with defaults.
func (q Quiz) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return errors.New("quiz: missing id")
	}
	if q.TimeLimitMinutes <= 0 {
		return fmt.Errorf("quiz %s: time_limit_minutes must be positive", q.ID)
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return fmt.Errorf("quiz %s: passing_score %v out of range", q.ID, q.PassingScore)
	}
	seen := make(map[QuestionID]struct{}, len(q.Questions))
	for i, qq := range q.Questions {
		if qq.ID == "" {
			return fmt.Errorf("quiz %s: question %d has no id", q.ID, i)
		}
		if _, dup := seen[qq.ID]; dup {
			return fmt.Errorf("quiz %s: duplicate question id %s", q.ID, qq.ID)
		}
		seen[qq.ID] = struct{}{}
		if len(qq.Options) == 0 {
			return fmt.Errorf("quiz %s: question %s has no options", q.ID, qq.ID)
		}
	}
	return nil
}

// StudentView returns a copy with correct answers and explanations removed.
func (q Quiz) StudentView() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, qq := range q.Questions {
		qq.Options = append([]string(nil), qq.Options...)
		qq.CorrectAnswer = ""
		qq.Explanation = ""
		out.Questions[i] = qq
	}
	return out
}

// Answers maps a question to the selected option string.
type Answers map[QuestionID]string

func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Attempt is a scored submission held by the backend.
type Attempt struct {
	ID          string  `json:"id"`
	QuizID      string  `json:"quiz_id"`
	UserID      string  `json:"user_id"`
	Answers     Answers `json:"answers"`
	Score       int     `json:"score"`
	Passed      bool    `json:"passed"`
	SubmittedAt int64   `json:"submitted_at"`
}
