// Package delivery hands finished quiz results to the backend, queueing them in an
// outbox whenever the backend cannot be reached or refuses them.
package delivery

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/mind-engage/drivequiz/internal/connectivity"
	"github.com/mind-engage/drivequiz/internal/outbox"
	"github.com/mind-engage/drivequiz/internal/quiz"
)

// Backend is the subset of the REST client the submitter needs.
type Backend interface {
	SubmitAttempt(ctx context.Context, quizID string, answers quiz.Answers) error
}

type Status string

const (
	StatusDelivered Status = "delivered"
	StatusQueued    Status = "queued"
)

// SyncStatus is the informational indicator shown to the student.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncSyncing SyncStatus = "syncing"
	SyncSynced  SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

type FlushReport struct {
	Delivered []string
	Failed    map[string]error
}

type Submitter struct {
	Backend Backend
	Outbox  outbox.Outbox
	Monitor connectivity.Monitor

	mu       sync.Mutex
	status   SyncStatus
	flushing bool
}

func New(b Backend, ob outbox.Outbox, m connectivity.Monitor) *Submitter {
	return &Submitter{Backend: b, Outbox: ob, Monitor: m, status: SyncIdle}
}

func (s *Submitter) SyncStatus() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == "" {
		return SyncIdle
	}
	return s.status
}

func (s *Submitter) setStatus(st SyncStatus) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// Deliver submits r once when online. A failed submission, or being offline,
// queues r in the outbox. Only a failure to queue is returned as an error.
func (s *Submitter) Deliver(ctx context.Context, r outbox.Result) (Status, error) {
	online := s.Monitor.Online()
	if online {
		s.setStatus(SyncSyncing)
		err := s.Backend.SubmitAttempt(ctx, r.QuizID, r.Answers)
		if err == nil {
			s.setStatus(SyncSynced)
			return StatusDelivered, nil
		}
		log.Printf("delivery: submit %s (quiz %s) failed, queueing: %v", r.ID, r.QuizID, err)
		s.setStatus(SyncError)
	}
	r.Offline = !online
	if err := s.Outbox.Append(ctx, r); err != nil {
		return "", fmt.Errorf("queue result %s: %w", r.ID, err)
	}
	return StatusQueued, nil
}

// FlushQueue tries every queued result once. Delivered entries are removed by
// id; failed ones stay for a later flush. One failure does not stop the rest.
func (s *Submitter) FlushQueue(ctx context.Context) (FlushReport, error) {
	rep := FlushReport{Failed: map[string]error{}}

	s.mu.Lock()
	if s.flushing {
		s.mu.Unlock()
		return rep, nil
	}
	s.flushing = true
	s.status = SyncSyncing
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.flushing = false
		s.mu.Unlock()
	}()

	pending, err := s.Outbox.List(ctx)
	if err != nil {
		s.setStatus(SyncError)
		return rep, fmt.Errorf("list outbox: %w", err)
	}
	for _, r := range pending {
		if err := ctx.Err(); err != nil {
			s.setStatus(SyncError)
			return rep, err
		}
		if err := s.Backend.SubmitAttempt(ctx, r.QuizID, r.Answers); err != nil {
			log.Printf("delivery: sync %s (quiz %s) failed: %v", r.ID, r.QuizID, err)
			rep.Failed[r.ID] = err
			continue
		}
		if err := s.Outbox.Remove(ctx, r.ID); err != nil {
			// delivered but still queued; a later flush will resend it
			log.Printf("delivery: remove %s after sync: %v", r.ID, err)
			rep.Failed[r.ID] = err
			continue
		}
		rep.Delivered = append(rep.Delivered, r.ID)
	}

	if len(rep.Failed) > 0 {
		s.setStatus(SyncError)
	} else {
		s.setStatus(SyncSynced)
	}
	return rep, nil
}

// Run flushes the outbox each time the monitor reports offline -> online while
// the submitter is idle. It returns when ctx is done.
func (s *Submitter) Run(ctx context.Context) {
	s.Start(ctx)()
}

// Start subscribes before returning, so no transition after the call is missed,
// and handles events in the background. The returned func blocks until the loop
// has exited and the subscription is torn down.
func (s *Submitter) Start(ctx context.Context) (wait func()) {
	events, cancel := s.Monitor.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Online {
					s.FlushIfOnline(ctx)
				}
			}
		}
	}()
	return func() { <-done }
}

// FlushIfOnline runs one FlushQueue when the monitor reports online, nothing is
// being submitted, and the outbox is not empty. It reports whether a flush ran.
// Start calls it on every offline -> online transition; callers also use it once
// at startup, when the backend may already be reachable.
func (s *Submitter) FlushIfOnline(ctx context.Context) bool {
	if !s.Monitor.Online() {
		return false
	}
	s.mu.Lock()
	busy := s.flushing || s.status == SyncSyncing
	s.mu.Unlock()
	if busy {
		return false
	}
	n, err := s.Outbox.Len(ctx)
	if err != nil {
		log.Printf("delivery: outbox len: %v", err)
		return false
	}
	if n == 0 {
		return false
	}
	rep, err := s.FlushQueue(ctx)
	if err != nil {
		log.Printf("delivery: flush: %v", err)
		return true
	}
	log.Printf("delivery: flush delivered=%d failed=%d", len(rep.Delivered), len(rep.Failed))
	return true
}
