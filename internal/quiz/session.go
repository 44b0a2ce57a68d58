package quiz

import (
	"sync"
	"time"
)

type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
)

// Outcome is the finalized result of one attempt.
type Outcome struct {
	QuizID      string
	Answers     Answers
	Score       int
	Correct     int
	Total       int
	Passed      bool
	TimedOut    bool
	CompletedAt time.Time
	TimeTaken   time.Duration
}

type SessionOption func(*Session)

// WithTicker replaces the one-second countdown ticker.
func WithTicker(f TickerFunc) SessionOption { return func(s *Session) { s.newTicker = f } }

// WithClock replaces time.Now for completion timestamps.
func WithClock(now func() time.Time) SessionOption { return func(s *Session) { s.now = now } }

// OnComplete registers a hook run once per attempt, after scoring, outside the lock.
func OnComplete(fn func(Outcome)) SessionOption { return func(s *Session) { s.onComplete = fn } }

// Session runs one quiz attempt at a time: idle -> running -> completed.
// A countdown tick and a user submit race through the same finalize path,
// so scoring runs at most once per attempt.
type Session struct {
	mu sync.Mutex

	quiz      Quiz
	state     State
	answers   Answers
	index     int
	remaining int // seconds
	gen       int
	stop      chan struct{}
	ticker    Ticker
	outcome   Outcome

	newTicker  TickerFunc
	now        func() time.Time
	onComplete func(Outcome)
}

func NewSession(q Quiz, opts ...SessionOption) *Session {
	s := &Session{
		quiz:      q,
		state:     StateIdle,
		answers:   Answers{},
		newTicker: NewRealTicker,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) Quiz() Quiz { return s.quiz }

// Start begins a fresh attempt. From completed it acts as a retry; from running it
// discards the attempt in progress.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarmLocked()
	s.gen++
	s.answers = Answers{}
	s.index = 0
	s.remaining = int(s.quiz.TimeLimit() / time.Second)
	s.outcome = Outcome{}
	s.state = StateRunning

	if s.remaining <= 0 {
		return
	}
	s.ticker = s.newTicker(time.Second)
	s.stop = make(chan struct{})
	go s.loop(s.gen, s.ticker, s.stop)
}

func (s *Session) loop(gen int, t Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			if s.tick(gen) {
				return
			}
		}
	}
}

// Tick advances the countdown by one second and reports whether the attempt is
// over. At zero the attempt is submitted.
func (s *Session) Tick() bool {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	return s.tick(gen)
}

func (s *Session) tick(gen int) bool {
	s.mu.Lock()
	if s.gen != gen || s.state != StateRunning {
		s.mu.Unlock()
		return true
	}
	s.remaining--
	if s.remaining > 0 {
		s.mu.Unlock()
		return false
	}
	s.remaining = 0
	out := s.finalizeLocked(true)
	cb := s.onComplete
	s.mu.Unlock()

	if cb != nil {
		cb(out)
	}
	return true
}

// SelectAnswer records option for the question, replacing any earlier choice.
// The option is not checked against the question's options.
func (s *Session) SelectAnswer(id QuestionID, option string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return
	}
	s.answers[id] = option
}

// Navigate moves the current question pointer by delta. Moves that would leave
// [0, last] are ignored.
func (s *Session) Navigate(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.index + delta
	if next < 0 || next > len(s.quiz.Questions)-1 {
		return s.index
	}
	s.index = next
	return s.index
}

// Submit finalizes a running attempt. ok is false when there was nothing to
// finalize; the returned Outcome is then the previous one, if any.
func (s *Session) Submit() (out Outcome, ok bool) {
	s.mu.Lock()
	if s.state != StateRunning {
		out = s.outcome
		s.mu.Unlock()
		return out, false
	}
	out = s.finalizeLocked(false)
	cb := s.onComplete
	s.mu.Unlock()

	if cb != nil {
		cb(out)
	}
	return out, true
}

func (s *Session) finalizeLocked(timedOut bool) Outcome {
	s.disarmLocked()
	score, correct := Score(s.quiz, s.answers)
	limit := s.quiz.TimeLimitMinutes * 60
	s.outcome = Outcome{
		QuizID:      s.quiz.ID,
		Answers:     s.answers.Clone(),
		Score:       score,
		Correct:     correct,
		Total:       len(s.quiz.Questions),
		Passed:      Passed(score, s.quiz.PassingScore),
		TimedOut:    timedOut,
		CompletedAt: s.now(),
		TimeTaken:   time.Duration(limit-s.remaining) * time.Second,
	}
	s.state = StateCompleted
	return s.outcome
}

func (s *Session) disarmLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

// Close stops the countdown without finalizing the attempt.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarmLocked()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Current returns the question under the pointer.
func (s *Session) Current() (Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index < 0 || s.index >= len(s.quiz.Questions) {
		return Question{}, false
	}
	return s.quiz.Questions[s.index], true
}

func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.remaining) * time.Second
}

// Elapsed is the time spent in the current or finished attempt.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return 0
	}
	return time.Duration(s.quiz.TimeLimitMinutes*60-s.remaining) * time.Second
}

func (s *Session) Answers() Answers {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.Clone()
}

func (s *Session) Outcome() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.state == StateCompleted
}
