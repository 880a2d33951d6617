package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"regime-signal-bot/internal/types"
)

// RedisStore writes one key per symbol. Keys expire with the entry TTL so
// stale scores disappear on their own.
type RedisStore struct {
	cli    redis.Cmdable
	prefix string
}

func NewRedisStore(cli redis.Cmdable, prefix string) *RedisStore {
	return &RedisStore{cli: cli, prefix: prefix}
}

func (r *RedisStore) key(symbol string) string {
	return r.prefix + ":sentiment:" + strings.ToUpper(symbol)
}

func (r *RedisStore) Get(ctx context.Context, symbol string) (types.SentimentEntry, bool, error) {
	b, err := r.cli.Get(ctx, r.key(symbol)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.SentimentEntry{}, false, nil
		}
		return types.SentimentEntry{}, false, err
	}
	var e types.SentimentEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return types.SentimentEntry{}, false, err
	}
	return e, true, nil
}

func (r *RedisStore) Put(ctx context.Context, entry types.SentimentEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.cli.Set(ctx, r.key(entry.Symbol), b, entry.TTL).Err()
}
