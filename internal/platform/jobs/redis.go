package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisTaskPrefix = "janitor:task:"
	redisTaskIndex  = "janitor:tasks"
	redisRunningKey = "janitor:running"

	// DefaultLockTTL bounds how long a crashed replica can block admission.
	DefaultLockTTL = 6 * time.Hour
)

// releaseScript deletes the running lock only while it still names the task.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore shares the task registry between replicas. A single lock key
// taken with SET NX admits at most one running task.
type RedisStore struct {
	rdb       redis.UniversalClient
	retention time.Duration
	lockTTL   time.Duration
}

// NewRedisStore wraps a connected client. A zero retention keeps finished
// tasks forever.
func NewRedisStore(rdb redis.UniversalClient, retention, lockTTL time.Duration) *RedisStore {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &RedisStore{rdb: rdb, retention: retention, lockTTL: lockTTL}
}

// NewRedisClient parses url (redis://...) and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func taskKey(id string) string { return redisTaskPrefix + id }

func (s *RedisStore) Admit(ctx context.Context, task *Task) error {
	ok, err := s.rdb.SetNX(ctx, redisRunningKey, task.ID, s.lockTTL).Result()
	if err != nil {
		return fmt.Errorf("acquire running lock: %w", err)
	}
	if !ok {
		return ErrConflict
	}

	task.Status = StatusRunning
	if task.StartedAt.IsZero() {
		task.StartedAt = time.Now().UTC()
	}
	if err := s.write(ctx, task); err != nil {
		releaseScript.Run(ctx, s.rdb, []string{redisRunningKey}, task.ID)
		return err
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Task, error) {
	raw, err := s.rdb.Get(ctx, taskKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	var t Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return &t, nil
}

// Set stores task. Writing a terminal status releases the running lock and
// starts the retention countdown.
func (s *RedisStore) Set(ctx context.Context, task *Task) error {
	n, err := s.rdb.Exists(ctx, taskKey(task.ID)).Result()
	if err != nil {
		return fmt.Errorf("check task %s: %w", task.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if err := s.write(ctx, task); err != nil {
		return err
	}
	if task.Terminal() {
		if err := releaseScript.Run(ctx, s.rdb, []string{redisRunningKey}, task.ID).Err(); err != nil {
			return fmt.Errorf("release running lock: %w", err)
		}
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]*Task, error) {
	ids, err := s.rdb.SMembers(ctx, redisTaskIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("list task ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = taskKey(id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	out := make([]*Task, 0, len(vals))
	var expired []any
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var t Task
		if err := json.Unmarshal([]byte(str), &t); err != nil {
			return nil, fmt.Errorf("decode task %s: %w", ids[i], err)
		}
		out = append(out, &t)
	}
	if len(expired) > 0 {
		s.rdb.SRem(ctx, redisTaskIndex, expired...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (s *RedisStore) write(ctx context.Context, task *Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", task.ID, err)
	}
	var ttl time.Duration
	if task.Terminal() {
		ttl = s.retention
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, taskKey(task.ID), raw, ttl)
		pipe.SAdd(ctx, redisTaskIndex, task.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store task %s: %w", task.ID, err)
	}
	return nil
}
