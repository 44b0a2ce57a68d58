package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisOutbox keeps results in a hash (id -> JSON) and their queue order in a
// sorted set scored by an increasing sequence.
type RedisOutbox struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisOutbox(rdb *redis.Client, prefix string) *RedisOutbox {
	if prefix == "" {
		prefix = "drivequiz:outbox"
	}
	return &RedisOutbox{rdb: rdb, prefix: prefix}
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url, prefix string) (*RedisOutbox, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisOutbox(rdb, prefix), nil
}

// appendScript stores the result only if its id is new, then gives it the next
// queue position. KEYS: data, order, seq. ARGV: id, json.
var appendScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 0 then
  return 0
end
local seq = redis.call('INCR', KEYS[3])
redis.call('ZADD', KEYS[2], seq, ARGV[1])
return 1
`)

func (o *RedisOutbox) dataKey() string  { return o.prefix + ":data" }
func (o *RedisOutbox) orderKey() string { return o.prefix + ":order" }
func (o *RedisOutbox) seqKey() string   { return o.prefix + ":seq" }

func (o *RedisOutbox) Append(ctx context.Context, r Result) error {
	if err := validate(r); err != nil {
		return err
	}
	buf, err := json.Marshal(r)
	if err != nil {
		return err
	}
	added, err := appendScript.Run(ctx, o.rdb,
		[]string{o.dataKey(), o.orderKey(), o.seqKey()}, r.ID, string(buf)).Int()
	if err != nil {
		return err
	}
	if added == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, r.ID)
	}
	return nil
}

func (o *RedisOutbox) List(ctx context.Context) ([]Result, error) {
	ids, err := o.rdb.ZRange(ctx, o.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Result{}, nil
	}
	vals, err := o.rdb.HMGet(ctx, o.dataKey(), ids...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// order entry without data; skip it
			continue
		}
		var r Result
		if err := json.Unmarshal([]byte(s), &r); err != nil {
			return nil, fmt.Errorf("pending result %s: %w", ids[i], err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (o *RedisOutbox) Remove(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := o.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		del = p.HDel(ctx, o.dataKey(), id)
		p.ZRem(ctx, o.orderKey(), id)
		return nil
	})
	if err != nil {
		return err
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (o *RedisOutbox) Len(ctx context.Context) (int, error) {
	n, err := o.rdb.HLen(ctx, o.dataKey()).Result()
	return int(n), err
}

func (o *RedisOutbox) Close() error { return o.rdb.Close() }
