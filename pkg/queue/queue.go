// Package queue is the ingestion job queue: documents enter PENDING and
// are pushed onto a Redis list for a worker process to pop and run through
// the ingestion pipeline. Grounded on the original worker's RQ-backed
// "documents" queue (worker.py) — the list-based push/blocking-pop shape
// here is go-redis's idiomatic stand-in for RQ's job queue.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SaintWyss/rag-corp-sub001/pkg/logging"
)

const DefaultQueueName = "documents"

// Job is one unit of ingestion work: a single document to run through the
// pipeline.
type Job struct {
	DocumentID  int64 `json:"document_id"`
	WorkspaceID int64 `json:"workspace_id"`
}

type Queue struct {
	rdb  *redis.Client
	name string
}

func New(rdb *redis.Client, queueName string) *Queue {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	return &Queue{rdb: rdb, name: queueName}
}

// Enqueue pushes a job onto the queue's head; workers pop from the tail,
// so jobs are processed in the order they were enqueued.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("queue: enqueue: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout waiting for a job, returning (Job{}, false,
// nil) on a timeout with nothing queued.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (Job, bool, error) {
	result, err := q.rdb.BRPop(ctx, timeout, q.name).Result()
	if err == redis.Nil {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, fmt.Errorf("queue: dequeue: %w", err)
	}
	// BRPop returns [key, value]; the payload is the second element.
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return Job{}, false, fmt.Errorf("queue: unmarshal job: %w", err)
	}
	return job, true, nil
}

// JobHandler processes one job, returning an error the Run loop logs but
// does not retry — the ingestion pipeline's own status transitions are the
// source of truth for whether a document needs reprocessing.
type JobHandler func(ctx context.Context, job Job) error

// Run polls the queue until ctx is cancelled, dispatching each popped job
// to handler synchronously.
func (q *Queue) Run(ctx context.Context, pollTimeout time.Duration, handler JobHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, ok, err := q.Dequeue(ctx, pollTimeout)
		if err != nil {
			logging.Errorf("queue: dequeue failed: %v", err)
			continue
		}
		if !ok {
			continue
		}

		if err := handler(ctx, job); err != nil {
			logging.With(logging.Fields{"document_id": job.DocumentID, "workspace_id": job.WorkspaceID}).
				Errorf("queue: job handler failed: %v", err)
		}
	}
}
