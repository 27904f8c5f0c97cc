package queue

import (
	"sync"

	"github.com/imyashkale/mcpcatalog/internal/logger"
)

// JobKind identifies what a queued job runs.
type JobKind string

// Job kinds the catalog service knows how to run
const (
	JobScan    JobKind = "scan"
	JobSync    JobKind = "sync"
	JobRestore JobKind = "restore"
)

// Job represents one queued catalog run
type Job struct {
	ID   string
	Kind JobKind
}

// JobQueue manages the job queue with a channel-based system
type JobQueue struct {
	jobs   chan *Job
	mu     sync.Mutex
	closed bool
}

// NewJobQueue creates a new job queue with the specified buffer size
func NewJobQueue(bufferSize int) *JobQueue {
	return &JobQueue{
		jobs: make(chan *Job, bufferSize),
	}
}

// Enqueue adds a job to the queue. The closed check and the send happen
// under the same lock that Close takes, so a send can never race the
// channel close.
func (jq *JobQueue) Enqueue(job *Job) error {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	if jq.closed {
		logger.WithFields(map[string]interface{}{
			"job_id": job.ID,
			"kind":   string(job.Kind),
		}).Warn("Failed to enqueue job: queue is closed")
		return ErrQueueClosed
	}

	select {
	case jq.jobs <- job:
		logger.WithFields(map[string]interface{}{
			"job_id": job.ID,
			"kind":   string(job.Kind),
		}).Info("Job enqueued")
		return nil
	default:
		logger.WithFields(map[string]interface{}{
			"job_id": job.ID,
			"kind":   string(job.Kind),
		}).Warn("Failed to enqueue job: queue is full")
		return ErrQueueFull
	}
}

// Close closes the queue. Already-queued jobs are still drained by the
// workers; further Enqueue calls return ErrQueueClosed.
func (jq *JobQueue) Close() {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	if jq.closed {
		return
	}
	jq.closed = true
	close(jq.jobs)
}

// WorkerPool manages workers processing jobs. The catalog service runs it
// with exactly one worker so discovery, sync and restore runs never
// execute concurrently against the same store.
type WorkerPool struct {
	queue   *JobQueue
	workers int
	jobs    chan *Job
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(queue *JobQueue, numWorkers int) *WorkerPool {
	return &WorkerPool{
		queue:   queue,
		workers: numWorkers,
		jobs:    queue.jobs,
	}
}

// Start starts all workers
func (wp *WorkerPool) Start(handler func(*Job) error) {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(handler)
	}
}

// worker processes jobs from the queue until it is closed and drained
func (wp *WorkerPool) worker(handler func(*Job) error) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		if job == nil {
			continue
		}

		logger.WithFields(map[string]interface{}{
			"job_id": job.ID,
			"kind":   string(job.Kind),
		}).Info("Worker processing job")

		if err := handler(job); err != nil {
			logger.WithFields(map[string]interface{}{
				"job_id": job.ID,
				"kind":   string(job.Kind),
				"error":  err.Error(),
			}).Error("Worker failed to process job")
		} else {
			logger.WithFields(map[string]interface{}{
				"job_id": job.ID,
				"kind":   string(job.Kind),
			}).Info("Worker completed job")
		}
	}

	logger.Debug("Worker exiting: queue closed")
}

// Wait waits for all workers to finish
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}
