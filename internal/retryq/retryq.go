// Package retryq is the durable redelivery queue. Tasks live in Redis: a JSON
// record per task plus a sorted set scored by the next attempt time, so due
// tasks come out with one range query.
package retryq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ReminderScheduler/internal/models"
)

const (
	scheduleKey     = "retry:schedule"
	taskKeyPrefix   = "retry:task:"
	recordKeyPrefix = "retry:record:"
)

func recordKey(recordRef int64) string {
	return recordKeyPrefix + strconv.FormatInt(recordRef, 10)
}

// Exponential backoff, indexed by attempt count.
var backoffDelays = []time.Duration{
	30 * time.Second,
	time.Minute,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

// BackoffDelay returns the wait before the next attempt. Attempts past the
// table use the last entry; callers discard tasks before that matters.
func BackoffDelay(attemptCount int) time.Duration {
	if attemptCount >= len(backoffDelays) {
		return backoffDelays[len(backoffDelays)-1]
	}
	return backoffDelays[attemptCount]
}

// NewTask builds a self-contained retry task for a failed delivery.
func NewTask(recordRef int64, ownerKey, payload string, now time.Time) models.RetryTask {
	return models.RetryTask{
		ID:            uuid.New().String(),
		RecordRef:     recordRef,
		OwnerKey:      ownerKey,
		Payload:       payload,
		AttemptCount:  0,
		NextAttemptAt: now.Add(BackoffDelay(0)),
		CreatedAt:     now,
	}
}

type Queue struct {
	rdb *redis.Client
}

func Declare(options redis.Options) *Queue {
	rdb := redis.NewClient(&options)
	return &Queue{rdb: rdb}
}

// Close redis connection
func (q *Queue) Close() error {
	return q.rdb.Close()
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

func (q *Queue) Enqueue(ctx context.Context, task models.RetryTask) error {
	return q.put(ctx, task)
}

// Update persists a mutated task (attempt count, next attempt time).
func (q *Queue) Update(ctx context.Context, task models.RetryTask) error {
	return q.put(ctx, task)
}

func (q *Queue) put(ctx context.Context, task models.RetryTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal retry task: %w", err)
	}

	pipe := q.rdb.TxPipeline()
	pipe.Set(ctx, taskKeyPrefix+task.ID, data, 0)
	pipe.Set(ctx, recordKey(task.RecordRef), task.ID, 0)
	pipe.ZAdd(ctx, scheduleKey, redis.Z{
		Score:  float64(task.NextAttemptAt.Unix()),
		Member: task.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist retry task %s: %w", task.ID, err)
	}
	return nil
}

// HasPending reports whether the record already has a queued retry task. The
// scheduler skips dispatching such records until the task resolves.
func (q *Queue) HasPending(ctx context.Context, recordRef int64) (bool, error) {
	id, err := q.rdb.Get(ctx, recordKey(recordRef)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check pending retry for record %d: %w", recordRef, err)
	}

	exists, err := q.rdb.Exists(ctx, taskKeyPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("check retry task %s: %w", id, err)
	}
	if exists == 0 {
		// Stale index entry, the task itself is gone.
		q.rdb.Del(ctx, recordKey(recordRef))
		return false, nil
	}
	return true, nil
}

// DequeueDue returns every task whose next attempt time has passed.
// Tasks stay queued until explicitly deleted or updated.
func (q *Queue) DequeueDue(ctx context.Context, now time.Time) ([]models.RetryTask, error) {
	ids, err := q.rdb.ZRangeByScore(ctx, scheduleKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range due retries: %w", err)
	}

	tasks := make([]models.RetryTask, 0, len(ids))
	for _, id := range ids {
		data, err := q.rdb.Get(ctx, taskKeyPrefix+id).Result()
		if errors.Is(err, redis.Nil) {
			// Record gone but still scheduled: drop the orphan entry.
			q.rdb.ZRem(ctx, scheduleKey, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load retry task %s: %w", id, err)
		}

		task, ok := decodeTask(data)
		if !ok {
			// One unreadable record must not starve the rest of the batch.
			q.dropEntry(ctx, id)
			continue
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

func (q *Queue) Delete(ctx context.Context, task models.RetryTask) error {
	pipe := q.rdb.TxPipeline()
	pipe.ZRem(ctx, scheduleKey, task.ID)
	pipe.Del(ctx, taskKeyPrefix+task.ID)
	pipe.Del(ctx, recordKey(task.RecordRef))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete retry task %s: %w", task.ID, err)
	}
	return nil
}

// dropEntry removes a schedule member and its record without touching the
// record index; used for entries whose payload cannot be read back.
func (q *Queue) dropEntry(ctx context.Context, id string) {
	pipe := q.rdb.TxPipeline()
	pipe.ZRem(ctx, scheduleKey, id)
	pipe.Del(ctx, taskKeyPrefix+id)
	pipe.Exec(ctx)
}

// decodeTask parses a stored task record. A payload that does not decode to a
// task with an id is unreadable.
func decodeTask(data string) (models.RetryTask, bool) {
	var task models.RetryTask
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return models.RetryTask{}, false
	}
	if task.ID == "" {
		return models.RetryTask{}, false
	}
	return task, true
}

// SweepOlderThan deletes tasks created before now-age regardless of attempt
// count. Leak guard for owners that stay unreachable forever.
func (q *Queue) SweepOlderThan(ctx context.Context, age time.Duration, now time.Time) (int, error) {
	ids, err := q.rdb.ZRange(ctx, scheduleKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("range retry schedule: %w", err)
	}

	cutoff := now.Add(-age)
	deleted := 0
	for _, id := range ids {
		data, err := q.rdb.Get(ctx, taskKeyPrefix+id).Result()
		if errors.Is(err, redis.Nil) {
			q.rdb.ZRem(ctx, scheduleKey, id)
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("load retry task %s: %w", id, err)
		}

		task, ok := decodeTask(data)
		if !ok {
			q.dropEntry(ctx, id)
			continue
		}
		if task.CreatedAt.Before(cutoff) {
			if err := q.Delete(ctx, task); err != nil {
				return deleted, err
			}
			deleted++
		}
	}

	return deleted, nil
}
