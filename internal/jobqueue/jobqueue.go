// Package jobqueue implements the central "job supervisor" design note
// from §9: a single loop driving all outstanding pollable provider
// jobs, replacing scattered sleep/poll call sites. Individual callers
// submit a poll function and wait on a completion channel.
package jobqueue

import (
	"context"
	"time"
)

// Job is one outstanding pollable unit of work. Poll is called
// repeatedly until it returns done=true or an error.
type Job struct {
	ID          string
	ProviderTag string
	Poll        func(ctx context.Context) (done bool, err error)
	MinInterval time.Duration
	MaxInterval time.Duration
	Deadline    time.Time
	Done        chan error
}

// Queue is the supervisor's submission surface. Implementations:
// inmemqueue (default, in-process channel) and redisqueue (optional,
// grounded on the teacher's internal/queue BLPop dequeue loop).
type Queue interface {
	// Submit enqueues a job and returns a channel that receives exactly
	// one value (nil on success, an error otherwise) when the job
	// reaches a terminal state.
	Submit(job *Job) <-chan error
	// Run drives the supervisor loop until ctx is cancelled.
	Run(ctx context.Context)
}
