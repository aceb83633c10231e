// Package inmemqueue is the default in-process Job Supervisor queue: a
// buffered channel of pollable jobs drained by a fixed pool of
// goroutines, each applying the exponential-backoff polling policy from
// §4.2 (floor 3-5s, ceiling the job's own deadline).
package inmemqueue

import (
	"context"
	"time"

	"github.com/productionorchestrator/orchestrator/internal/jobqueue"
	"github.com/productionorchestrator/orchestrator/internal/orcherr"
)

type Queue struct {
	submissions chan *jobqueue.Job
	workers     int
}

func New(workers int) *Queue {
	if workers <= 0 {
		workers = 4
	}
	return &Queue{submissions: make(chan *jobqueue.Job, 256), workers: workers}
}

func (q *Queue) Submit(job *jobqueue.Job) <-chan error {
	done := make(chan error, 1)
	job2 := *job
	job2.Done = done
	q.submissions <- &job2
	return done
}

func (q *Queue) Run(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		go q.worker(ctx)
	}
	<-ctx.Done()
}

func (q *Queue) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.submissions:
			job.Done <- q.drive(ctx, job)
		}
	}
}

func (q *Queue) drive(ctx context.Context, job *jobqueue.Job) error {
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
			return orcherr.New(orcherr.PollTimeout, "jobqueue.drive", nil).WithDetail("job_id", job.ID)
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
