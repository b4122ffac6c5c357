package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"frameloop/internal/catalog"
	"frameloop/internal/config"
	"frameloop/internal/converter"
	"frameloop/internal/facade"
	"frameloop/internal/logging"
	"frameloop/internal/tracker"
)

// Pipeline coordinates the conversion workers.
type Pipeline struct {
	cfg    *config.Config
	svc    *facade.Service
	client converter.Client
	logger *slog.Logger

	workers      int
	pollInterval time.Duration
	jobTimeout   time.Duration
	kick         chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a pipeline over the facade and converter client.
func New(cfg *config.Config, svc *facade.Service, client converter.Client, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Converter.Workers
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		cfg:          cfg,
		svc:          svc,
		client:       client,
		logger:       logging.WithComponent(logger, "pipeline"),
		workers:      workers,
		pollInterval: time.Duration(cfg.Workflow.PollInterval) * time.Second,
		jobTimeout:   time.Duration(cfg.Converter.TimeoutSeconds) * time.Second,
		kick:         make(chan struct{}, 1),
	}
}

// Start launches the worker pool. The facade is wired to kick the
// pool whenever new work appears.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("pipeline already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(p.workers)
	p.mu.Unlock()

	p.svc.SetNotifier(p.Kick)
	for i := 0; i < p.workers; i++ {
		go p.runWorker(runCtx, i)
	}
	p.logger.Info("pipeline started", logging.Int("workers", p.workers))
	return nil
}

// Stop terminates the workers and waits for in-flight jobs to report.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// Kick wakes sleeping workers without waiting for the next poll.
func (p *Pipeline) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *Pipeline) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	logger := p.logger.With(logging.Int("worker", id))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		token, record, err := p.claimNext(ctx)
		if err != nil {
			logger.Error("failed to scan for pending media", logging.Error(err))
			p.waitForWork(ctx, time.Duration(p.cfg.Workflow.ErrorRetryInterval)*time.Second)
			continue
		}
		if token == nil {
			p.waitForWork(ctx, p.pollInterval)
			continue
		}

		p.runJob(ctx, logger, token, record)
	}
}

// claimNext walks the pending slugs until a claim sticks. Losing a
// race for one slug just moves on to the next.
func (p *Pipeline) claimNext(ctx context.Context) (*tracker.Token, *catalog.MediaRecord, error) {
	slugs, err := p.svc.PendingSlugs(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, slug := range slugs {
		token, record, err := p.svc.BeginProcessing(ctx, slug)
		if err == nil {
			return token, record, nil
		}
		if errors.Is(err, catalog.ErrAlreadyInFlight) ||
			errors.Is(err, catalog.ErrNotFound) ||
			errors.Is(err, catalog.ErrValidation) {
			continue
		}
		return nil, nil, err
	}
	return nil, nil, nil
}

func (p *Pipeline) waitForWork(ctx context.Context, wait time.Duration) {
	if wait <= 0 {
		wait = time.Second
	}
	select {
	case <-ctx.Done():
	case <-p.kick:
	case <-time.After(wait):
	}
}

func (p *Pipeline) runJob(ctx context.Context, logger *slog.Logger, token *tracker.Token, record *catalog.MediaRecord) {
	jobLogger := logger.With(
		logging.String(logging.FieldSlug, token.Slug()),
		logging.String(logging.FieldJobID, token.JobID()),
	)
	jobLogger.Info("conversion started", logging.String("input", record.RawPath))

	jobCtx := ctx
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	started := time.Now()
	result, err := p.client.Convert(jobCtx, converter.Request{
		Slug:      record.Slug,
		Kind:      record.Kind,
		InputPath: record.RawPath,
		OutputDir: p.cfg.Paths.ProcessedDir,
	})

	// Outcomes are recorded on a fresh context so a shutdown that
	// cancels the job still lands the bookkeeping commit.
	finishCtx, finishCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer finishCancel()

	if err != nil {
		reason := err.Error()
		if ctx.Err() != nil {
			reason = "interrupted by shutdown"
		} else if jobCtx.Err() != nil {
			reason = "conversion timeout exceeded"
		}
		if markErr := p.svc.MarkFailed(finishCtx, token, reason); markErr != nil {
			jobLogger.Error("failed to record conversion failure", logging.Error(markErr))
		}
		jobLogger.Warn("conversion failed",
			logging.String("reason", reason),
			logging.Duration("elapsed", time.Since(started)))
		return
	}

	if markErr := p.svc.MarkReady(finishCtx, token, result.OutputPath, result.Metadata); markErr != nil {
		jobLogger.Error("failed to record conversion result", logging.Error(markErr))
		return
	}
	jobLogger.Info("conversion finished",
		logging.String("artifact", result.OutputPath),
		logging.Duration("elapsed", time.Since(started)))
}
