package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"shortcast/internal/config"
	"shortcast/internal/logging"
	"shortcast/internal/notifications"
	"shortcast/internal/pipeline"
	"shortcast/internal/queue"
)

// Processor runs one video processing attempt.
type Processor interface {
	Process(ctx context.Context, videoFile string) (pipeline.Result, error)
}

// Publisher uploads a processed file and returns the external id and URL.
type Publisher interface {
	Publish(ctx context.Context, filePath, title, description string, tags []string) (string, string, error)
}

// Orchestrator claims jobs from the store and executes them on a worker
// pool. Each claimed job ends in a persisted terminal job status; video
// mutations happen only here.
type Orchestrator struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	notifier  notifications.Service
	processor Processor
	publisher Publisher

	pollInterval      time.Duration
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	workers           int

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewOrchestrator wires the orchestrator against its collaborators.
// A nil notifier disables notifications.
func NewOrchestrator(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service, processor Processor, publisher Publisher) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	workers := cfg.Workflow.Workers
	if workers <= 0 {
		workers = 2
	}
	poll := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}
	heartbeat := time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	timeout := time.Duration(cfg.Workflow.HeartbeatTimeout) * time.Second
	if timeout <= heartbeat {
		timeout = 8 * heartbeat
	}
	return &Orchestrator{
		cfg:               cfg,
		store:             store,
		logger:            logger.With(logging.String(logging.FieldComponent, "orchestrator")),
		notifier:          notifier,
		processor:         processor,
		publisher:         publisher,
		pollInterval:      poll,
		heartbeatInterval: heartbeat,
		heartbeatTimeout:  timeout,
		workers:           workers,
	}
}

// Start launches the worker pool and the stale-job reclaimer. Safe to
// call once; Stop must be called to shut down.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started {
		return
	}
	o.started = true

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		go func(worker int) {
			defer o.wg.Done()
			o.workerLoop(runCtx, worker)
		}(i)
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.reclaimLoop(runCtx)
	}()

	o.logger.InfoContext(ctx, "orchestrator started", logging.Int("workers", o.workers))
}

// Stop cancels all workers and waits for in-flight jobs to finish their
// current persistence step.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel := o.cancel
	o.cancel = nil
	o.started = false
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.wg.Wait()
}

func (o *Orchestrator) workerLoop(ctx context.Context, worker int) {
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := o.store.ClaimNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			o.logger.ErrorContext(ctx, "claim next job", logging.Error(err), logging.Int("worker", worker))
			if !o.sleep(ctx, o.pollInterval) {
				return
			}
			continue
		}
		if job == nil {
			if !o.sleep(ctx, o.pollInterval) {
				return
			}
			continue
		}
		o.RunJob(ctx, job)
	}
}

// reclaimLoop periodically returns running jobs with expired heartbeats
// to the queue so work claimed by a crashed worker is re-delivered.
func (o *Orchestrator) reclaimLoop(ctx context.Context) {
	ticker := time.NewTicker(o.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-o.heartbeatTimeout)
			reclaimed, err := o.store.ReclaimStaleJobs(ctx, cutoff)
			if err != nil {
				o.logger.ErrorContext(ctx, "reclaim stale jobs", logging.Error(err))
				continue
			}
			if reclaimed > 0 {
				o.logger.WarnContext(ctx, "reclaimed stale jobs", logging.Int64("count", reclaimed))
			}
		}
	}
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
