package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"regime-signal-bot/internal/fsutil"
	"regime-signal-bot/internal/logger"
)

// TaskDigest is the periodic sentiment digest.
const TaskDigest = "sentiment_digest"

// ClockStore persists the last run time of periodic tasks.
type ClockStore interface {
	LastRun(ctx context.Context, task string) (time.Time, bool, error)
	SetLastRun(ctx context.Context, task string, t time.Time) error
}

// Gate decides whether a periodic task is due.
type Gate struct {
	store    ClockStore
	interval time.Duration
	now      func() time.Time
}

func NewGate(store ClockStore, interval time.Duration) *Gate {
	return &Gate{store: store, interval: interval, now: time.Now}
}

// Due reports whether at least one interval has passed since the task last
// ran. A task that never ran is treated as having run one day ago. An
// unreadable clock counts as due.
func (g *Gate) Due(ctx context.Context, task string) bool {
	last, ok, err := g.store.LastRun(ctx, task)
	if err != nil {
		logger.Warn(ctx, "Clock read failed, treating task as due", "task", task, "error", err)
		return true
	}
	if !ok {
		last = g.now().Add(-24 * time.Hour)
	}
	return g.now().Sub(last) >= g.interval
}

// Mark records that the task ran now. Write failures are logged only.
func (g *Gate) Mark(ctx context.Context, task string) {
	if err := g.store.SetLastRun(ctx, task, g.now()); err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist task clock", err, "task", task)
	}
}

// FileClockStore keeps all task clocks in one JSON document.
type FileClockStore struct {
	mu   sync.Mutex
	path string
}

func NewFileClockStore(path string) *FileClockStore {
	return &FileClockStore{path: path}
}

func (f *FileClockStore) LastRun(_ context.Context, task string) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return time.Time{}, false, err
	}
	t, ok := doc[task]
	return t, ok, nil
}

func (f *FileClockStore) SetLastRun(_ context.Context, task string, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		doc = make(map[string]time.Time)
	}
	doc[task] = t.UTC()

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(f.path, b)
}

func (f *FileClockStore) load() (map[string]time.Time, error) {
	doc := make(map[string]time.Time)
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read clock file: %w", err)
	}
	if len(b) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode clock file: %w", err)
	}
	return doc, nil
}

// RedisClockStore stores one RFC3339 timestamp per task.
type RedisClockStore struct {
	cli    redis.Cmdable
	prefix string
}

func NewRedisClockStore(cli redis.Cmdable, prefix string) *RedisClockStore {
	return &RedisClockStore{cli: cli, prefix: prefix}
}

func (r *RedisClockStore) key(task string) string {
	return r.prefix + ":clock:" + task
}

func (r *RedisClockStore) LastRun(ctx context.Context, task string) (time.Time, bool, error) {
	s, err := r.cli.Get(ctx, r.key(task)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse clock %s: %w", task, err)
	}
	return t, true, nil
}

func (r *RedisClockStore) SetLastRun(ctx context.Context, task string, t time.Time) error {
	return r.cli.Set(ctx, r.key(task), t.UTC().Format(time.RFC3339Nano), 0).Err()
}
