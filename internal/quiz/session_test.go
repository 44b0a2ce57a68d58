package quiz_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mind-engage/drivequiz/internal/quiz"
)

/* ---------------- fake ticker ---------------- */

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { f.stopped.Store(true) }

type tickerFactory struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (tf *tickerFactory) New(time.Duration) quiz.Ticker {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time)}
	tf.tickers = append(tf.tickers, t)
	return t
}

func (tf *tickerFactory) last() *fakeTicker {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return tf.tickers[len(tf.tickers)-1]
}

func oneMinuteQuiz() quiz.Quiz {
	q := fourQuestionQuiz()
	q.TimeLimitMinutes = 1
	return q
}

func newTestSession(t *testing.T, q quiz.Quiz) (*quiz.Session, *tickerFactory, *[]quiz.Outcome) {
	t.Helper()
	tf := &tickerFactory{}
	var mu sync.Mutex
	outs := &[]quiz.Outcome{}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := quiz.NewSession(q,
		quiz.WithTicker(tf.New),
		quiz.WithClock(func() time.Time { return fixed }),
		quiz.OnComplete(func(o quiz.Outcome) {
			mu.Lock()
			*outs = append(*outs, o)
			mu.Unlock()
		}),
	)
	t.Cleanup(s.Close)
	return s, tf, outs
}

/* ---------------- tests ---------------- */

func TestSession_StartResetsState(t *testing.T) {
	s, _, _ := newTestSession(t, oneMinuteQuiz())
	if s.State() != quiz.StateIdle {
		t.Fatalf("expected idle before start, got %s", s.State())
	}
	s.Start()
	if s.State() != quiz.StateRunning {
		t.Fatalf("expected running, got %s", s.State())
	}
	if s.Remaining() != time.Minute {
		t.Fatalf("expected 1m remaining, got %s", s.Remaining())
	}
	if s.Index() != 0 || len(s.Answers()) != 0 {
		t.Fatalf("expected fresh attempt, index=%d answers=%v", s.Index(), s.Answers())
	}
}

func TestSession_TimerExpirySubmitsOnce(t *testing.T) {
	s, _, outs := newTestSession(t, oneMinuteQuiz())
	s.Start()
	s.SelectAnswer("1", "Stop")
	s.SelectAnswer("2", "Yield")

	for i := 0; i < 59; i++ {
		if s.Tick() {
			t.Fatalf("attempt ended early at tick %d", i+1)
		}
	}
	if s.Remaining() != time.Second {
		t.Fatalf("expected 1s remaining, got %s", s.Remaining())
	}
	if !s.Tick() {
		t.Fatalf("expected last tick to end the attempt")
	}
	if s.State() != quiz.StateCompleted {
		t.Fatalf("expected completed, got %s", s.State())
	}
	if len(*outs) != 1 {
		t.Fatalf("expected 1 completion, got %d", len(*outs))
	}
	o := (*outs)[0]
	if !o.TimedOut || o.Score != 50 || o.Passed || o.TimeTaken != time.Minute {
		t.Fatalf("unexpected outcome: %+v", o)
	}

	// further ticks and submits are no-ops
	s.Tick()
	if _, ok := s.Submit(); ok {
		t.Fatalf("submit after completion should report nothing to finalize")
	}
	if len(*outs) != 1 {
		t.Fatalf("expected still 1 completion, got %d", len(*outs))
	}
}

func TestSession_ManualAndTimedScoreAlike(t *testing.T) {
	answers := quiz.Answers{"1": "Stop", "2": "Yield", "3": "Warning", "4": "Allowed"}

	manual, _, _ := newTestSession(t, oneMinuteQuiz())
	manual.Start()
	for id, a := range answers {
		manual.SelectAnswer(id, a)
	}
	m, ok := manual.Submit()
	if !ok {
		t.Fatalf("manual submit did not finalize")
	}

	timed, _, _ := newTestSession(t, oneMinuteQuiz())
	timed.Start()
	for id, a := range answers {
		timed.SelectAnswer(id, a)
	}
	for !timed.Tick() {
	}
	tm, _ := timed.Outcome()

	if m.Score != 75 || tm.Score != 75 || m.Passed != tm.Passed || m.Correct != tm.Correct {
		t.Fatalf("manual %+v and timed %+v disagree", m, tm)
	}
	if m.TimedOut || !tm.TimedOut {
		t.Fatalf("TimedOut flags wrong: manual=%v timed=%v", m.TimedOut, tm.TimedOut)
	}
}

func TestSession_TickerGoroutineDrivesCountdown(t *testing.T) {
	tf := &tickerFactory{}
	done := make(chan quiz.Outcome, 1)
	s := quiz.NewSession(oneMinuteQuiz(), quiz.WithTicker(tf.New), quiz.OnComplete(func(o quiz.Outcome) { done <- o }))
	defer s.Close()
	s.Start()

	ft := tf.last()
	for i := 0; i < 60; i++ {
		select {
		case ft.ch <- time.Now():
		case <-time.After(2 * time.Second):
			t.Fatalf("ticker loop stopped receiving at tick %d", i)
		}
	}
	select {
	case o := <-done:
		if !o.TimedOut || o.Score != 0 {
			t.Fatalf("unexpected outcome: %+v", o)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no completion after the countdown ran out")
	}
	if !ft.stopped.Load() {
		t.Fatalf("ticker was not stopped")
	}
}

func TestSession_ConcurrentSubmitAndExpiryFinalizeOnce(t *testing.T) {
	for round := 0; round < 50; round++ {
		s, _, outs := newTestSession(t, oneMinuteQuiz())
		s.Start()
		for i := 0; i < 59; i++ {
			s.Tick()
		}

		var wg sync.WaitGroup
		var submitted atomic.Int32
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Tick()
		}()
		go func() {
			defer wg.Done()
			if _, ok := s.Submit(); ok {
				submitted.Add(1)
			}
		}()
		wg.Wait()

		if len(*outs) != 1 {
			t.Fatalf("round %d: expected exactly 1 completion, got %d", round, len(*outs))
		}
		if submitted.Load() == 1 && (*outs)[0].TimedOut {
			t.Fatalf("round %d: submit won but outcome says timed out", round)
		}
	}
}

func TestSession_NavigateClamps(t *testing.T) {
	s, _, _ := newTestSession(t, oneMinuteQuiz())
	s.Start()

	if got := s.Navigate(-1); got != 0 {
		t.Fatalf("navigate before first: got %d", got)
	}
	s.Navigate(1)
	s.Navigate(1)
	if got := s.Navigate(1); got != 3 {
		t.Fatalf("expected index 3, got %d", got)
	}
	if got := s.Navigate(1); got != 3 {
		t.Fatalf("navigate past last should stay at 3, got %d", got)
	}
	if got := s.Navigate(-5); got != 3 {
		t.Fatalf("out of range jump should be ignored, got %d", got)
	}
	cur, ok := s.Current()
	if !ok || cur.ID != "4" {
		t.Fatalf("unexpected current question %+v", cur)
	}
}

func TestSession_SelectAnswerOverwritesAndLocksAfterSubmit(t *testing.T) {
	s, _, _ := newTestSession(t, oneMinuteQuiz())
	s.SelectAnswer("1", "Stop") // idle: ignored
	if len(s.Answers()) != 0 {
		t.Fatalf("answer recorded before start")
	}

	s.Start()
	s.SelectAnswer("1", "Yield")
	s.SelectAnswer("1", "Stop")
	if got := s.Answers()["1"]; got != "Stop" {
		t.Fatalf("expected overwrite to Stop, got %q", got)
	}
	o, _ := s.Submit()
	s.SelectAnswer("2", "Yield")
	if _, ok := s.Answers()["2"]; ok {
		t.Fatalf("answer recorded after submit")
	}
	if o.Score != 25 {
		t.Fatalf("expected 25, got %d", o.Score)
	}
}

func TestSession_RetryStartsFreshAttempt(t *testing.T) {
	s, tf, outs := newTestSession(t, oneMinuteQuiz())
	s.Start()
	first := tf.last()
	s.SelectAnswer("1", "Stop")
	for i := 0; i < 10; i++ {
		s.Tick()
	}
	if s.Elapsed() != 10*time.Second {
		t.Fatalf("expected 10s elapsed, got %s", s.Elapsed())
	}
	o, _ := s.Submit()
	if o.TimeTaken != 10*time.Second {
		t.Fatalf("expected 10s taken, got %s", o.TimeTaken)
	}
	if !first.stopped.Load() {
		t.Fatalf("first ticker not stopped on submit")
	}

	s.Start()
	if tf.last() == first {
		t.Fatalf("retry did not arm a new ticker")
	}
	if s.State() != quiz.StateRunning || len(s.Answers()) != 0 || s.Remaining() != time.Minute {
		t.Fatalf("retry did not reset: state=%s answers=%v remaining=%s", s.State(), s.Answers(), s.Remaining())
	}
	if _, done := s.Outcome(); done {
		t.Fatalf("outcome should be cleared while running")
	}
	s.Submit()
	if len(*outs) != 2 {
		t.Fatalf("expected 2 completions across attempts, got %d", len(*outs))
	}
}

func TestSession_RestartWhileRunningDiscardsAttempt(t *testing.T) {
	s, tf, outs := newTestSession(t, oneMinuteQuiz())
	s.Start()
	first := tf.last()
	s.SelectAnswer("1", "Stop")
	s.Start()
	if !first.stopped.Load() {
		t.Fatalf("old ticker still armed after restart")
	}
	if len(s.Answers()) != 0 || len(*outs) != 0 {
		t.Fatalf("restart should discard without finalizing")
	}
}
