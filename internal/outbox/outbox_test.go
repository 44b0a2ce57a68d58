package outbox_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/drivequiz/internal/config"
	"github.com/mind-engage/drivequiz/internal/db"
	"github.com/mind-engage/drivequiz/internal/outbox"
	"github.com/mind-engage/drivequiz/internal/quiz"
)

func result(id, quizID string) outbox.Result {
	return outbox.Result{
		ID:          id,
		QuizID:      quizID,
		Answers:     quiz.Answers{"1": "Stop", "2": "Yield"},
		Score:       50,
		CompletedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		TimeTaken:   125,
		Offline:     true,
	}
}

func impls(t *testing.T) map[string]outbox.Outbox {
	t.Helper()
	ctx := context.Background()

	f, err := outbox.NewFileOutbox(filepath.Join(t.TempDir(), "nested", "offline_quiz_results.json"))
	if err != nil {
		t.Fatalf("file outbox: %v", err)
	}
	s, err := outbox.OpenSQL(ctx, db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("sql outbox: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	out := map[string]outbox.Outbox{
		"memory": outbox.NewMemory(),
		"file":   f,
		"sqlite": s,
	}
	// Redis needs a live server; set REDIS_URL to include it.
	if url := os.Getenv("REDIS_URL"); url != "" {
		r, err := outbox.OpenRedis(ctx, url, "drivequiz-test:"+uuid.NewString())
		if err != nil {
			t.Fatalf("redis outbox: %v", err)
		}
		t.Cleanup(func() {
			list, _ := r.List(ctx)
			for _, e := range list {
				_ = r.Remove(ctx, e.ID)
			}
			_ = r.Close()
		})
		out["redis"] = r
	}
	return out
}

func TestOutbox_AppendAddsExactlyOne(t *testing.T) {
	ctx := context.Background()
	for name, ob := range impls(t) {
		t.Run(name, func(t *testing.T) {
			if n, _ := ob.Len(ctx); n != 0 {
				t.Fatalf("expected empty outbox, got %d", n)
			}
			r := result("1700000000000-0001", "road-signs-basics")
			if err := ob.Append(ctx, r); err != nil {
				t.Fatalf("append: %v", err)
			}
			list, err := ob.List(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(list))
			}
			got := list[0]
			if got.ID != r.ID || got.QuizID != r.QuizID || got.Score != 50 || got.TimeTaken != 125 || !got.Offline {
				t.Fatalf("unexpected entry: %+v", got)
			}
			if got.Answers["2"] != "Yield" || !got.CompletedAt.Equal(r.CompletedAt) {
				t.Fatalf("answers or timestamp lost: %+v", got)
			}
		})
	}
}

func TestOutbox_RemoveOnlyTarget(t *testing.T) {
	ctx := context.Background()
	for name, ob := range impls(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"a", "b", "c"} {
				if err := ob.Append(ctx, result(id, "q")); err != nil {
					t.Fatalf("append %s: %v", id, err)
				}
			}
			if err := ob.Remove(ctx, "b"); err != nil {
				t.Fatalf("remove: %v", err)
			}
			list, _ := ob.List(ctx)
			if len(list) != 2 || list[0].ID != "a" || list[1].ID != "c" {
				t.Fatalf("expected [a c] in order, got %+v", list)
			}
			if err := ob.Remove(ctx, "b"); !errors.Is(err, outbox.ErrNotFound) {
				t.Fatalf("expected ErrNotFound removing twice, got %v", err)
			}
			if n, _ := ob.Len(ctx); n != 2 {
				t.Fatalf("expected len 2, got %d", n)
			}
		})
	}
}

func TestOutbox_RejectsIncomplete(t *testing.T) {
	ctx := context.Background()
	for name, ob := range impls(t) {
		t.Run(name, func(t *testing.T) {
			if err := ob.Append(ctx, result("", "q")); err == nil {
				t.Fatalf("expected error for missing id")
			}
			if err := ob.Append(ctx, result("x", "")); err == nil {
				t.Fatalf("expected error for missing quiz id")
			}
			if n, _ := ob.Len(ctx); n != 0 {
				t.Fatalf("rejected results were stored: %d", n)
			}
		})
	}
}

func TestFileOutbox_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "offline_quiz_results.json")

	first, err := outbox.NewFileOutbox(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Append(ctx, result("r1", "q")); err != nil {
		t.Fatalf("append: %v", err)
	}

	second, _ := outbox.NewFileOutbox(path)
	list, err := second.List(ctx)
	if err != nil || len(list) != 1 || list[0].ID != "r1" {
		t.Fatalf("reopened outbox: %v %+v", err, list)
	}

	// no temp files left behind
	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("stray temp file %s", e.Name())
		}
	}
}

func TestFileOutbox_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offline_quiz_results.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, _ := outbox.NewFileOutbox(path)
	if _, err := f.List(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
	// the corrupt file must not be overwritten by an append
	if err := f.Append(context.Background(), result("r", "q")); err == nil {
		t.Fatalf("append over a corrupt file should fail")
	}
}

func TestNewID_Distinct(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		id := outbox.NewID(now)
		if !strings.HasPrefix(id, "1700000000123-") {
			t.Fatalf("unexpected id %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestFromOutcome(t *testing.T) {
	done := time.UnixMilli(1700000000999)
	o := quiz.Outcome{
		QuizID:      "q",
		Answers:     quiz.Answers{"1": "a"},
		Score:       100,
		Passed:      true,
		CompletedAt: done,
		TimeTaken:   90 * time.Second,
	}
	r := outbox.FromOutcome(o)
	if r.QuizID != "q" || r.Score != 100 || !r.Passed || r.TimeTaken != 90 || r.Offline {
		t.Fatalf("unexpected result: %+v", r)
	}
	if !strings.HasPrefix(r.ID, "1700000000999-") {
		t.Fatalf("id not derived from completion time: %q", r.ID)
	}
	o.Answers["1"] = "changed"
	if r.Answers["1"] != "a" {
		t.Fatalf("answers not copied")
	}
}

func TestOpen_SelectsDriver(t *testing.T) {
	ctx := context.Background()
	cases := map[string]config.Config{
		"memory": {OutboxDriver: "memory"},
		"file":   {OutboxDriver: "file", OutboxPath: filepath.Join(t.TempDir(), "o.json")},
		"sqlite": {OutboxDriver: "sqlite", OutboxDSN: ":memory:"},
	}
	for name, cfg := range cases {
		ob, closeFn, err := outbox.Open(ctx, cfg)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if err := ob.Append(ctx, result("x", "q")); err != nil {
			t.Fatalf("%s append: %v", name, err)
		}
		if err := closeFn(); err != nil {
			t.Fatalf("%s close: %v", name, err)
		}
	}
	if _, closeFn, err := outbox.Open(ctx, config.Config{OutboxDriver: "kafka"}); err == nil || closeFn == nil {
		t.Fatalf("expected error and non-nil close for unknown driver")
	}
}

func TestOutbox_RejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	for name, ob := range impls(t) {
		t.Run(name, func(t *testing.T) {
			first := result("same", "q1")
			if err := ob.Append(ctx, first); err != nil {
				t.Fatalf("append: %v", err)
			}
			second := result("same", "q2")
			if err := ob.Append(ctx, second); !errors.Is(err, outbox.ErrDuplicate) {
				t.Fatalf("expected ErrDuplicate, got %v", err)
			}
			list, _ := ob.List(ctx)
			if len(list) != 1 || list[0].QuizID != "q1" {
				t.Fatalf("first result must survive unchanged, got %+v", list)
			}
		})
	}
}
