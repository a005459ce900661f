// Package inmemory runs import jobs on goroutines inside the API process and
// keeps their state in memory for polling.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/goaltracker/internal/jobs"
	"github.com/dvloznov/goaltracker/internal/logger"
	"github.com/google/uuid"
)

// ErrQueueClosed is returned when publishing to or starting a stopped queue.
var ErrQueueClosed = errors.New("queue is closed")

// errStopped is recorded on jobs that were still waiting when the queue stopped.
const errStopped = "queue stopped before the job ran"

// Queue hands ImportJobs to a fixed set of workers over a buffered channel.
// Jobs run at most once; a failed job stays failed until the user resubmits.
type Queue struct {
	pending  chan *jobs.ImportJob
	stopped  chan struct{}
	once     sync.Once
	inFlight sync.WaitGroup

	mu      sync.RWMutex // guards closed and started
	closed  bool
	started bool

	store   jobs.JobStore
	workers int
	now     func() time.Time
}

// NewQueue creates a queue holding up to bufferSize waiting jobs. workers is
// the number of jobs processed concurrently; one keeps imports for the same
// user strictly ordered.
func NewQueue(bufferSize, workers int, store jobs.JobStore) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		pending: make(chan *jobs.ImportJob, bufferSize),
		stopped: make(chan struct{}),
		store:   store,
		workers: workers,
		now:     time.Now,
	}
}

// PublishImport records job as pending and enqueues it. It blocks while the
// buffer is full.
func (q *Queue) PublishImport(ctx context.Context, job *jobs.ImportJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	job.Status = jobs.JobStatusPending
	if job.CreatedAt.IsZero() {
		job.CreatedAt = q.now()
	}
	if err := q.persist(ctx, job); err != nil {
		return fmt.Errorf("PublishImport: %w", err)
	}

	select {
	case q.pending <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.stopped:
		return ErrQueueClosed
	}
}

// Start launches the workers and returns. They run handler for each job
// until ctx is cancelled or Stop is called.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if q.started {
		return fmt.Errorf("queue already started")
	}
	q.started = true

	for i := 0; i < q.workers; i++ {
		q.inFlight.Add(1)
		go func(worker int) {
			defer q.inFlight.Done()
			wctx := logger.WithContext(ctx, logger.FromContext(ctx).With().Int("worker", worker).Logger())
			for {
				select {
				case <-ctx.Done():
					return
				case <-q.stopped:
					return
				case job := <-q.pending:
					q.run(wctx, job, handler)
				}
			}
		}(i)
	}
	return nil
}

// run executes one job and stores its outcome. A panicking handler fails
// the job instead of the process.
func (q *Queue) run(ctx context.Context, job *jobs.ImportJob, handler jobs.JobHandler) {
	log := logger.FromContext(ctx).With().
		Str("job_id", job.JobID).
		Str("user_id", job.UserID).
		Logger()
	ctx = logger.WithContext(ctx, log)

	startedAt := q.now()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &startedAt
	q.record(ctx, job)

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return handler(ctx, job)
	}()

	completedAt := q.now()
	job.CompletedAt = &completedAt
	if err != nil {
		job.Status = jobs.JobStatusFailed
		job.Error = err.Error()
		log.Error().Err(err).Msg("Import job failed")
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		log.Debug().Dur("took", completedAt.Sub(startedAt)).Msg("Import job completed")
	}
	q.record(ctx, job)
}

func (q *Queue) persist(ctx context.Context, job *jobs.ImportJob) error {
	if q.store == nil {
		return nil
	}
	return q.store.SaveJob(ctx, job)
}

// record saves job state; a store failure only costs the client its poll result.
func (q *Queue) record(ctx context.Context, job *jobs.ImportJob) {
	if err := q.persist(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to save job state")
	}
}

// Stop refuses new jobs, fails the ones still waiting and waits for running
// jobs to finish or ctx to expire.
func (q *Queue) Stop(ctx context.Context) error {
	q.once.Do(func() { close(q.stopped) })

	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.drain(ctx)

	done := make(chan struct{})
	go func() {
		q.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) drain(ctx context.Context) {
	log := logger.FromContext(ctx)
	for {
		select {
		case job := <-q.pending:
			if q.store == nil {
				continue
			}
			if err := q.store.UpdateJobStatus(ctx, job.JobID, jobs.JobStatusFailed, errStopped); err != nil {
				log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to mark dropped job")
			}
		default:
			return
		}
	}
}

// Close stops the queue without a deadline.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var (
	_ jobs.Publisher = (*Queue)(nil)
	_ jobs.Consumer  = (*Queue)(nil)
)
