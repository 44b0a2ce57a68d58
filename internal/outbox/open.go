package outbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/mind-engage/drivequiz/internal/config"
	"github.com/mind-engage/drivequiz/internal/db"
)

// Open builds the outbox selected by cfg.OutboxDriver. The returned close func is
// never nil.
func Open(ctx context.Context, cfg config.Config) (Outbox, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(cfg.OutboxDriver)) {
	case "", "file":
		f, err := NewFileOutbox(cfg.OutboxPath)
		if err != nil {
			return nil, noop, err
		}
		return f, noop, nil
	case "memory":
		return NewMemory(), noop, nil
	case "sqlite", "sqlite3", "postgres", "postgresql", "pgx":
		s, err := OpenSQL(ctx, db.Normalize(cfg.OutboxDriver), cfg.OutboxDSN)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case "redis":
		r, err := OpenRedis(ctx, cfg.RedisURL, "")
		if err != nil {
			return nil, noop, err
		}
		return r, r.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown outbox driver %q", cfg.OutboxDriver)
}
