package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLStore works against sqlite and postgres alike; both accept $n placeholders.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutQuiz(ctx context.Context, q Quiz) error {
	if err := q.Validate(); err != nil {
		return err
	}
	qj, err := json.Marshal(q.Questions)
	if err != nil {
		return err
	}
	if q.CreatedAt == 0 {
		q.CreatedAt = time.Now().Unix()
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes
		(id,title,description,questions_json,time_limit_minutes,passing_score,difficulty,course_type,is_active,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title,
			description=EXCLUDED.description,
			questions_json=EXCLUDED.questions_json,
			time_limit_minutes=EXCLUDED.time_limit_minutes,
			passing_score=EXCLUDED.passing_score,
			difficulty=EXCLUDED.difficulty,
			course_type=EXCLUDED.course_type,
			is_active=EXCLUDED.is_active`,
		q.ID, q.Title, q.Description, string(qj), q.TimeLimitMinutes, q.PassingScore,
		q.Difficulty, q.CourseType, q.IsActive, q.CreatedAt)
	return err
}

const quizColumns = `id,title,description,questions_json,time_limit_minutes,passing_score,difficulty,course_type,is_active,created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuiz(row rowScanner) (Quiz, error) {
	var q Quiz
	var qjson string
	if err := row.Scan(&q.ID, &q.Title, &q.Description, &qjson, &q.TimeLimitMinutes,
		&q.PassingScore, &q.Difficulty, &q.CourseType, &q.IsActive, &q.CreatedAt); err != nil {
		return Quiz{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &q.Questions); err != nil {
		return Quiz{}, fmt.Errorf("quiz %s questions: %w", q.ID, err)
	}
	return q, nil
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	q, err := scanQuiz(s.db.QueryRowContext(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, fmt.Errorf("quiz %s: %w", id, ErrNotFound)
	}
	return q, err
}

func (s *SQLStore) ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)

	var (
		where []string
		args  []any
	)
	if opts.ActiveOnly {
		args = append(args, true)
		where = append(where, fmt.Sprintf("is_active=$%d", len(args)))
	}
	if opts.CourseType != "" {
		args = append(args, opts.CourseType)
		where = append(where, fmt.Sprintf("course_type=$%d", len(args)))
	}
	q := `SELECT ` + quizColumns + ` FROM quizzes`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	q += fmt.Sprintf(" ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Quiz{}
	for rows.Next() {
		qz, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, qz)
	}
	return out, rows.Err()
}

func (s *SQLStore) SubmitAttempt(ctx context.Context, quizID, userID string, answers Answers) (Attempt, error) {
	// load full quiz WITH keys for scoring
	q, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, err
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
	buf, err := json.Marshal(a.Answers)
	if err != nil {
		return Attempt{}, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quiz_attempts (id,quiz_id,user_id,answers_json,score,passed,submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.QuizID, a.UserID, string(buf), a.Score, a.Passed, a.SubmittedAt)
	if err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)

	var (
		where []string
		args  []any
	)
	if opts.QuizID != "" {
		args = append(args, opts.QuizID)
		where = append(where, fmt.Sprintf("quiz_id=$%d", len(args)))
	}
	if opts.UserID != "" {
		args = append(args, opts.UserID)
		where = append(where, fmt.Sprintf("user_id=$%d", len(args)))
	}
	q := `SELECT id,quiz_id,user_id,answers_json,score,passed,submitted_at FROM quiz_attempts`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	q += fmt.Sprintf(" ORDER BY submitted_at DESC, id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		var a Attempt
		var ajson string
		if err := rows.Scan(&a.ID, &a.QuizID, &a.UserID, &ajson, &a.Score, &a.Passed, &a.SubmittedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ajson), &a.Answers); err != nil {
			return nil, fmt.Errorf("attempt %s answers: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
