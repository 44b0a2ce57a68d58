package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/mind-engage/drivequiz/internal/quiz"
)

// StatusError is returned for any non-2xx backend response.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: %d %s: %s", e.Op, e.Status, http.StatusText(e.Status), e.Body)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

type Client struct {
	base string
	http *http.Client
}

type Config struct {
	BaseURL string
	Token   string // bearer token; empty sends no Authorization header
	Timeout time.Duration
}

func New(cfg Config) *Client {
	var h *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
		h = oauth2.NewClient(context.Background(), ts)
	} else {
		h = &http.Client{}
	}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &Client{base: strings.TrimSuffix(cfg.BaseURL, "/"), http: h}
}

// SubmitAttempt posts answers to /api/quizzes/{quizID}/attempt. Any 2xx is success.
func (c *Client) SubmitAttempt(ctx context.Context, quizID string, answers quiz.Answers) error {
	if answers == nil {
		answers = quiz.Answers{}
	}
	body, err := json.Marshal(map[string]any{"answers": answers})
	if err != nil {
		return err
	}
	u := c.base + "/api/quizzes/" + url.PathEscape(quizID) + "/attempt"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return statusError("submit attempt", res)
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}

// GetQuiz fetches one quiz and rejects responses that do not validate.
func (c *Client) GetQuiz(ctx context.Context, id string) (quiz.Quiz, error) {
	var q quiz.Quiz
	if err := c.getJSON(ctx, "get quiz", "/api/quizzes/"+url.PathEscape(id), &q); err != nil {
		return quiz.Quiz{}, err
	}
	if err := q.Validate(); err != nil {
		return quiz.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	return q, nil
}

func (c *Client) ListQuizzes(ctx context.Context) ([]quiz.Quiz, error) {
	var list []quiz.Quiz
	if err := c.getJSON(ctx, "list quizzes", "/api/quizzes", &list); err != nil {
		return nil, err
	}
	for _, q := range list {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("list quizzes: %w", err)
		}
	}
	return list, nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return "", statusError("login", res)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if out.AccessToken == "" {
		return "", errors.New("login: response has no access_token")
	}
	return out.AccessToken, nil
}

// Ping reports whether the backend health endpoint answers 2xx.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/healthz", nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	if res.StatusCode/100 != 2 {
		return &StatusError{Op: "healthz", Status: res.StatusCode}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return statusError(op, res)
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}

func statusError(op string, res *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return &StatusError{Op: op, Status: res.StatusCode, Body: strings.TrimSpace(string(b))}
}
