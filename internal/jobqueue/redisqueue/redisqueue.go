// Package redisqueue is the optional Redis-backed Job Supervisor queue,
// grounded directly on the teacher's internal/queue/queue.go (BLPop
// dequeue loop, typed job envelope), adapted from a fixed set of named
// work queues to a single pollable-job queue.
package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/productionorchestrator/orchestrator/internal/jobqueue"
	"github.com/productionorchestrator/orchestrator/internal/orcherr"
)

const queueKey = "orchestrator:pollable_jobs"

type envelope struct {
	ID          string    `json:"id"`
	ProviderTag string    `json:"provider_tag"`
	Deadline    time.Time `json:"deadline"`
}

// Queue pushes job envelopes onto a Redis list and pops them with
// BLPop, exactly as the teacher's Queue.Enqueue/Dequeue do.
type Queue struct {
	client *redis.Client
	local  map[string]*jobqueue.Job
	poller *jobPoller
}

type jobPoller struct {
	minInterval time.Duration
	maxInterval time.Duration
}

// New parses redisURL and verifies the connection, mirroring the
// teacher's queue.New.
func New(ctx context.Context, redisURL string) (*Queue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, orcherr.New(orcherr.InputInvalid, "redisqueue.new", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, orcherr.New(orcherr.ProviderTransient, "redisqueue.new", err)
	}
	return &Queue{client: client, local: map[string]*jobqueue.Job{}}, nil
}

func (q *Queue) Submit(job *jobqueue.Job) <-chan error {
	done := make(chan error, 1)
	job2 := *job
	job2.Done = done
	q.local[job.ID] = &job2

	env := envelope{ID: job.ID, ProviderTag: job.ProviderTag, Deadline: job.Deadline}
	data, err := json.Marshal(env)
	if err != nil {
		done <- orcherr.New(orcherr.InputInvalid, "redisqueue.submit", err)
		return done
	}
	if err := q.client.RPush(context.Background(), queueKey, data).Err(); err != nil {
		done <- orcherr.New(orcherr.ProviderTransient, "redisqueue.submit", err)
	}
	return done
}

// Run drains the queue with BLPop, dispatching each popped envelope to
// its locally-registered Job for polling — mirrors the teacher's
// processQueue loop (ctx.Done vs timed Dequeue).
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := q.client.BLPop(ctx, 5*time.Second, queueKey).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		if len(res) < 2 {
			continue
		}

		var env envelope
		if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
			continue
		}
		job, ok := q.local[env.ID]
		if !ok {
			continue
		}
		go func() {
			job.Done <- q.driveOne(ctx, job)
		}()
	}
}

func (q *Queue) driveOne(ctx context.Context, job *jobqueue.Job) error {
	interval := job.MinInterval
	if interval <= 0 {
		interval = 4 * time.Second
	}
	maxInterval := job.MaxInterval
	if maxInterval <= 0 {
		maxInterval = 20 * time.Second
	}
	for {
		if !job.Deadline.IsZero() && time.Now().After(job.Deadline) {
			return orcherr.New(orcherr.PollTimeout, "redisqueue.drive", fmt.Errorf("job %s timed out", job.ID))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		done, err := job.Poll(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		interval = time.Duration(float64(interval) * 1.5)
		if interval > maxInterval {
			interval = maxInterval
		}
	}
}
