package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/mind-engage/drivequiz/internal/api/http"
	"github.com/mind-engage/drivequiz/internal/auth"
	authmw "github.com/mind-engage/drivequiz/internal/auth/middleware"
	"github.com/mind-engage/drivequiz/internal/config"
	"github.com/mind-engage/drivequiz/internal/db"
	"github.com/mind-engage/drivequiz/internal/quiz"
)

func main() {
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	driver := db.Normalize(cfg.DBDriver)
	dbh, err := db.Open(openCtx, driver, cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	store := quiz.NewSQLStore(dbh)
	users := auth.NewUserStore(dbh)

	if cfg.SeedUsers {
		seedUsers(ctx, users)
	}
	if cfg.SampleQuizzes != "" {
		loadQuizzes(ctx, store, cfg.SampleQuizzes)
	}

	r := api.NewRouter(api.Deps{
		Store:             store,
		Users:             users,
		Auth:              authmw.NewAuthService(cfg.AuthHMACSecret),
		CORSOrigins:       cfg.CORSOrigins,
		LocalAuth:         cfg.EnableLocalAuth,
		RoleClaimFallback: cfg.Mode == config.ModeOffline,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, driver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// seedUsers creates one account per role whose password equals the username (dev only).
func seedUsers(ctx context.Context, users *auth.UserStore) {
	for _, role := range []string{"student", "teacher", "manager"} {
		if _, err := users.Upsert(ctx, role, role, role); err != nil {
			log.Printf("seed user %s: %v", role, err)
		}
	}
}

func loadQuizzes(ctx context.Context, store quiz.Store, path string) {
	list, err := quiz.LoadFile(path)
	if err != nil {
		log.Printf("sample quizzes: %v", err)
		return
	}
	for _, q := range list {
		if err := store.PutQuiz(ctx, q); err != nil {
			log.Printf("sample quiz %s: %v", q.ID, err)
		}
	}
	log.Printf("loaded %d quizzes from %s", len(list), path)
}
