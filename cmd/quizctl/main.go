// Command quizctl takes driving-theory quizzes from a terminal and keeps results
// that could not be delivered in a local outbox until the backend is reachable.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mind-engage/drivequiz/internal/client"
	"github.com/mind-engage/drivequiz/internal/config"
	"github.com/mind-engage/drivequiz/internal/connectivity"
	"github.com/mind-engage/drivequiz/internal/delivery"
	"github.com/mind-engage/drivequiz/internal/outbox"
)

const usage = `usage: quizctl <command> [flags]

commands:
  login    -u USER -p PASS     print an access token for AUTH_TOKEN
  list                         list available quizzes
  take     -quiz ID | -file F  take a quiz (add -offline to skip the backend)
  pending                      show results waiting to sync
  flush                        try to deliver every pending result once
  watch                        sync pending results whenever the backend comes back
`

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("quizctl: ")

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "login":
		err = runLogin(ctx, cfg, args)
	case "list":
		err = runList(ctx, cfg)
	case "take":
		err = runTake(ctx, cfg, args, os.Stdin, os.Stdout)
	case "pending":
		err = runPending(ctx, cfg)
	case "flush":
		err = runFlush(ctx, cfg)
	case "watch":
		err = runWatch(ctx, cfg)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func newClient(cfg config.Config) *client.Client {
	return client.New(client.Config{BaseURL: cfg.BackendURL, Token: cfg.AuthToken, Timeout: cfg.HTTPTimeout})
}

func runLogin(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	user := fs.String("u", "", "username")
	pass := fs.String("p", "", "password")
	_ = fs.Parse(args)
	tok, err := newClient(cfg).Login(ctx, *user, *pass)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func runList(ctx context.Context, cfg config.Config) error {
	list, err := newClient(cfg).ListQuizzes(ctx)
	if err != nil {
		return err
	}
	for _, q := range list {
		fmt.Printf("%-24s %-8s %-6s %2d questions  %3d min  pass %.0f%%  %s\n",
			q.ID, q.CourseType, q.Difficulty, len(q.Questions), q.TimeLimitMinutes, q.PassingScore, q.Title)
	}
	return nil
}

func runPending(ctx context.Context, cfg config.Config) error {
	ob, closeFn, err := outbox.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	list, err := ob.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("nothing waiting to sync")
		return nil
	}
	for _, r := range list {
		fmt.Printf("%s  quiz=%s  score=%d%%  passed=%t  completed=%s  offline=%t\n",
			r.ID, r.QuizID, r.Score, r.Passed, r.CompletedAt.Format("2006-01-02 15:04:05"), r.Offline)
	}
	return nil
}

func runFlush(ctx context.Context, cfg config.Config) error {
	ob, closeFn, err := outbox.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	cl := newClient(cfg)
	sub := delivery.New(cl, ob, connectivity.NewManual(true))
	rep, err := sub.FlushQueue(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("delivered %d, still pending %d\n", len(rep.Delivered), len(rep.Failed))
	return nil
}

func runWatch(ctx context.Context, cfg config.Config) error {
	ob, closeFn, err := outbox.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	cl := newClient(cfg)
	prober := connectivity.NewProber(cl, cfg.ProbeInterval)
	sub := delivery.New(cl, ob, prober)

	wait := sub.Start(ctx)
	log.Printf("watching %s every %s", cfg.BackendURL, cfg.ProbeInterval)
	prober.Run(ctx)
	wait()
	return nil
}
