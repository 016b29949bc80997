package importapp

import (
	"context"
	"sync"
	"time"

	"github.com/catalogsync/backend/internal/domain/bulk"
	"github.com/catalogsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchProcessor is the work a Worker runs on every tick
type BatchProcessor interface {
	ProcessNext(ctx context.Context) (bool, error)
	ReclaimStale(ctx context.Context) (bulk.ReleaseOutcome, error)
}

// WorkerConfig holds configuration for the import worker
type WorkerConfig struct {
	// Enabled determines if the worker polls at all
	Enabled bool

	// PollInterval is the wait between ticks
	PollInterval time.Duration

	// LeaseKey names the lease shared by every replica
	LeaseKey string

	// LeaseTTL bounds how long a crashed holder blocks other replicas.
	// A live holder renews the lease every third of it.
	LeaseTTL time.Duration
}

// DefaultWorkerConfig returns default configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Enabled:      true,
		PollInterval: 5 * time.Second,
		LeaseKey:     "import-worker",
		LeaseTTL:     2 * time.Minute,
	}
}

// Worker polls for pending batches. Each tick it takes the worker lease,
// requeues stale batches and drains at most one batch.
type Worker struct {
	processor BatchProcessor
	leases    shared.LeaseStore
	holder    string
	logger    *zap.Logger
	config    WorkerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewWorker creates a worker. leases may be nil for a single-process deployment.
func NewWorker(processor BatchProcessor, leases shared.LeaseStore, logger *zap.Logger, config WorkerConfig) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultWorkerConfig().PollInterval
	}
	if config.LeaseKey == "" {
		config.LeaseKey = DefaultWorkerConfig().LeaseKey
	}
	if config.LeaseTTL <= 0 {
		config.LeaseTTL = DefaultWorkerConfig().LeaseTTL
	}
	return &Worker{
		processor: processor,
		leases:    leases,
		holder:    uuid.NewString(),
		logger:    logger,
		config:    config,
	}
}

// Start starts the polling loop
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return nil
	}
	if !w.config.Enabled {
		w.mu.Unlock()
		w.logger.Info("Import worker is disabled")
		return nil
	}
	w.isRunning = true
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("Import worker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.String("holder", w.holder),
	)
	return nil
}

// Stop cancels the loop and waits for the current tick to finish
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Import worker stopped gracefully")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Import worker stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Import worker loop stopping")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one poll cycle. It reports whether a batch was processed.
func (w *Worker) Tick(ctx context.Context) bool {
	if w.leases != nil {
		acquired, err := w.leases.TryAcquire(ctx, w.config.LeaseKey, w.holder, w.config.LeaseTTL)
		if err != nil {
			w.logger.Warn("Failed to acquire worker lease", zap.Error(err))
			return false
		}
		if !acquired {
			w.logger.Debug("Worker lease held by another replica")
			return false
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := w.leases.Release(releaseCtx, w.config.LeaseKey, w.holder); err != nil {
				w.logger.Warn("Failed to release worker lease", zap.Error(err))
			}
		}()

		var stop func()
		ctx, stop = w.holdLease(ctx)
		defer stop()
	}

	if _, err := w.processor.ReclaimStale(ctx); err != nil {
		w.logger.Error("Stale batch reclaim failed", zap.Error(err))
	}

	processed, err := w.processor.ProcessNext(ctx)
	if err != nil {
		w.logger.Error("Import batch processing failed", zap.Error(err))
	}
	return processed
}

// holdLease renews the worker lease until the returned stop func is called.
// The returned context is cancelled when the lease is lost to another holder.
func (w *Worker) holdLease(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(w.config.LeaseTTL / 3)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				held, err := w.leases.Renew(ctx, w.config.LeaseKey, w.holder, w.config.LeaseTTL)
				if err != nil {
					w.logger.Warn("Failed to renew worker lease", zap.Error(err))
					continue
				}
				if !held {
					w.logger.Error("Worker lease lost, abandoning current batch")
					cancel()
					return
				}
			}
		}
	}()

	return ctx, func() {
		cancel()
		<-done
	}
}
