package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mind-engage/drivequiz/internal/config"
	"github.com/mind-engage/drivequiz/internal/connectivity"
	"github.com/mind-engage/drivequiz/internal/delivery"
	"github.com/mind-engage/drivequiz/internal/outbox"
	"github.com/mind-engage/drivequiz/internal/quiz"
)

func runTake(ctx context.Context, cfg config.Config, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("take", flag.ExitOnError)
	quizID := fs.String("quiz", "", "quiz id to fetch from the backend")
	file := fs.String("file", "", "take a quiz from a local JSON file instead")
	offline := fs.Bool("offline", false, "do not contact the backend; queue the result")
	_ = fs.Parse(args)

	cl := newClient(cfg)
	ob, closeFn, err := outbox.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	var q quiz.Quiz
	switch {
	case *file != "":
		list, err := quiz.LoadFile(*file)
		if err != nil {
			return err
		}
		q, err = pickQuiz(list, *quizID)
		if err != nil {
			return err
		}
	case *quizID != "" && !*offline:
		if q, err = cl.GetQuiz(ctx, *quizID); err != nil {
			return fmt.Errorf("load quiz %s: %w", *quizID, err)
		}
	default:
		return errors.New("take: need -quiz ID (online) or -file PATH")
	}

	var monitor connectivity.Monitor
	if *offline {
		monitor = connectivity.NewManual(false)
	} else {
		prober := connectivity.NewProber(cl, cfg.ProbeInterval)
		prober.Probe(ctx)
		go prober.Run(ctx)
		monitor = prober
	}
	sub := delivery.New(cl, ob, monitor)
	loopCtx, stopLoop := context.WithCancel(ctx)
	wait := sub.Start(loopCtx)
	defer func() {
		stopLoop()
		wait()
	}()
	// results queued by earlier runs go out now if the backend is already up
	sub.FlushIfOnline(ctx)

	outcome, err := play(ctx, q, in, out)
	if err != nil {
		return err
	}
	printOutcome(out, q, outcome)

	res := outbox.FromOutcome(outcome)
	st, err := sub.Deliver(ctx, res)
	if err != nil {
		return err
	}
	switch st {
	case delivery.StatusDelivered:
		fmt.Fprintln(out, "Result submitted.")
	case delivery.StatusQueued:
		n, _ := ob.Len(ctx)
		fmt.Fprintf(out, "Your result is saved offline and will sync when you're back online (%d pending).\n", n)
	}
	return nil
}

func pickQuiz(list []quiz.Quiz, id string) (quiz.Quiz, error) {
	if id == "" {
		if len(list) == 1 {
			return list[0], nil
		}
		return quiz.Quiz{}, fmt.Errorf("file holds %d quizzes; choose one with -quiz", len(list))
	}
	for _, q := range list {
		if q.ID == id {
			return q, nil
		}
	}
	return quiz.Quiz{}, fmt.Errorf("quiz %s not in file", id)
}

// play runs one attempt against in/out. Commands: 1-4 answer, n next, p previous,
// s submit, t time left.
func play(ctx context.Context, q quiz.Quiz, in io.Reader, out io.Writer) (quiz.Outcome, error) {
	done := make(chan quiz.Outcome, 1)
	s := quiz.NewSession(q, quiz.OnComplete(func(o quiz.Outcome) { done <- o }))
	defer s.Close()

	lines := make(chan string)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-quit:
				return
			}
		}
	}()

	fmt.Fprintf(out, "%s\n%s\n%d questions, %d minutes, pass mark %.0f%%\n\n",
		q.Title, q.Description, len(q.Questions), q.TimeLimitMinutes, q.PassingScore)
	s.Start()
	showQuestion(out, s)

	for {
		select {
		case <-ctx.Done():
			return quiz.Outcome{}, ctx.Err()
		case o := <-done:
			if o.TimedOut {
				fmt.Fprintln(out, "\nTime is up.")
			}
			return o, nil
		case line, ok := <-lines:
			if !ok {
				// stdin closed: finish with what has been answered
				lines = nil
				s.Submit()
				continue
			}
			handleCommand(out, s, line)
		}
	}
}

func handleCommand(out io.Writer, s *quiz.Session, line string) {
	switch line {
	case "n", "next":
		s.Navigate(1)
	case "p", "prev":
		s.Navigate(-1)
	case "s", "submit":
		s.Submit()
		return
	case "t", "time":
		fmt.Fprintf(out, "time left: %s\n", formatClock(s.Remaining()))
		return
	case "":
		return
	default:
		n, err := strconv.Atoi(line)
		cur, ok := s.Current()
		if err != nil || !ok || n < 1 || n > len(cur.Options) {
			fmt.Fprintln(out, "enter an option number, n, p, s or t")
			return
		}
		s.SelectAnswer(cur.ID, cur.Options[n-1])
	}
	showQuestion(out, s)
}

func showQuestion(out io.Writer, s *quiz.Session) {
	cur, ok := s.Current()
	if !ok {
		fmt.Fprintln(out, "this quiz has no questions; type s to finish")
		return
	}
	total := len(s.Quiz().Questions)
	selected := s.Answers()[cur.ID]
	fmt.Fprintf(out, "[%d/%d  %s left] %s\n", s.Index()+1, total, formatClock(s.Remaining()), cur.Prompt)
	for i, o := range cur.Options {
		mark := " "
		if o == selected {
			mark = "*"
		}
		fmt.Fprintf(out, "  %s %d) %s\n", mark, i+1, o)
	}
}

func printOutcome(out io.Writer, q quiz.Quiz, o quiz.Outcome) {
	verdict := "FAILED"
	if o.Passed {
		verdict = "PASSED"
	}
	fmt.Fprintf(out, "\nScore: %d%% (%d/%d correct) - %s, pass mark %.0f%%, time %s\n",
		o.Score, o.Correct, o.Total, verdict, q.PassingScore, formatClock(o.TimeTaken))
	for _, qq := range q.Questions {
		got, answered := o.Answers[qq.ID]
		if answered && got == qq.CorrectAnswer {
			continue
		}
		if qq.CorrectAnswer == "" {
			continue
		}
		fmt.Fprintf(out, "- %s\n  correct: %s\n", qq.Prompt, qq.CorrectAnswer)
		if qq.Explanation != "" {
			fmt.Fprintf(out, "  %s\n", qq.Explanation)
		}
	}
}

func formatClock(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
