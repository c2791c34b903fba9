package outbox

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Publisher delivers a relayed event to the message broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
}

// RepositorySource hands out the outbox repository for a datastore alias.
type RepositorySource interface {
	For(alias string) Repository
}

// ProcessorConfig holds configuration for the outbox relay.
type ProcessorConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	MaxRetries       int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
	RetentionPeriod  time.Duration
	CleanupInterval  time.Duration
}

// DefaultProcessorConfig returns sensible defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:     200 * time.Millisecond,
		BatchSize:        100,
		MaxRetries:       5,
		RetryBackoffBase: 1 * time.Second,
		RetryBackoffMax:  1 * time.Minute,
		RetentionPeriod:  7 * 24 * time.Hour,
		CleanupInterval:  1 * time.Hour,
	}
}

// Stats reports relay counters.
type Stats struct {
	IsRunning      bool
	PublishedCount uint64
	FailedCount    uint64
	DeadCount      uint64
	LastError      string
	LastErrorAt    *time.Time
}

// Processor polls the outbox tables of every registered datastore and
// publishes pending records to the broker. Publish failures are retried with
// exponential backoff; records that exhaust their retries are dead-lettered
// and left in the table for inspection.
type Processor struct {
	manager   RepositorySource
	aliases   []string
	publisher Publisher
	config    ProcessorConfig
	logger    *slog.Logger

	wg       sync.WaitGroup
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex

	statsMu sync.Mutex
	stats   Stats
}

// NewProcessor creates a relay over the outbox tables of the given aliases.
func NewProcessor(manager RepositorySource, aliases []string, publisher Publisher, config ProcessorConfig, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		manager:   manager,
		aliases:   aliases,
		publisher: publisher,
		config:    config,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the polling loop in a goroutine.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopChan = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(ctx)

	p.logger.Info("outbox processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize,
		"aliases", p.aliases,
	)
	return nil
}

// Stop gracefully stops the processor.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("outbox processor stopped")
}

// IsRunning returns true if the processor is running.
func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	cleanupInterval := p.config.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}
	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			if err := p.ProcessOnce(ctx); err != nil {
				p.logger.Error("failed to process outbox batch", "error", err)
			}
		case <-cleanup.C:
			p.cleanupOld(ctx)
		}
	}
}

// ProcessOnce processes a single batch for every alias synchronously.
func (p *Processor) ProcessOnce(ctx context.Context) error {
	var firstErr error
	for _, alias := range p.aliases {
		if err := p.processBatch(ctx, alias); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Processor) processBatch(ctx context.Context, alias string) error {
	repo := p.manager.For(alias)
	records, err := repo.GetUnprocessed(ctx, p.config.BatchSize)
	if err != nil {
		p.recordError(err)
		return err
	}

	for _, rec := range records {
		if err := p.publisher.Publish(ctx, rec.RoutingKey(), rec.Payload); err != nil {
			p.logger.Warn("failed to publish outbox event",
				"id", rec.ID,
				"alias", alias,
				"routing_key", rec.RoutingKey(),
				"retry_count", rec.RetryCount,
				"error", err,
			)
			p.handlePublishFailure(ctx, repo, rec, err)
			continue
		}

		if err := repo.MarkProcessed(ctx, rec.ID); err != nil {
			p.logger.Error("failed to mark outbox event processed",
				"id", rec.ID,
				"alias", alias,
				"error", err,
			)
		} else {
			p.recordPublished()
		}
	}
	return nil
}

func (p *Processor) handlePublishFailure(ctx context.Context, repo Repository, rec *Record, pubErr error) {
	errStr := pubErr.Error()
	if !rec.CanRetry(p.config.MaxRetries - 1) {
		p.recordDead(pubErr)
		if err := repo.MarkDead(ctx, rec.ID, errStr); err != nil {
			p.logger.Error("failed to dead-letter outbox event", "id", rec.ID, "error", err)
		}
		return
	}

	p.recordFailed(pubErr)
	nextRetryAt := time.Now().Add(p.retryBackoff(rec.RetryCount + 1))
	if err := repo.MarkFailed(ctx, rec.ID, errStr, nextRetryAt); err != nil {
		p.logger.Error("failed to mark outbox event failed", "id", rec.ID, "error", err)
	}
}

func (p *Processor) cleanupOld(ctx context.Context) {
	if p.config.RetentionPeriod <= 0 {
		return
	}
	for _, alias := range p.aliases {
		deleted, err := p.manager.For(alias).DeleteOld(ctx, p.config.RetentionPeriod)
		if err != nil {
			p.logger.Warn("failed to clean up processed outbox events", "alias", alias, "error", err)
			continue
		}
		if deleted > 0 {
			p.logger.Info("cleaned up processed outbox events", "alias", alias, "deleted", deleted)
		}
	}
}

func (p *Processor) retryBackoff(nextRetryCount int) time.Duration {
	base := p.config.RetryBackoffBase
	if base <= 0 {
		base = time.Second
	}
	maxBackoff := p.config.RetryBackoffMax
	if maxBackoff <= 0 {
		maxBackoff = time.Minute
	}
	if nextRetryCount < 1 {
		nextRetryCount = 1
	}
	shift := nextRetryCount - 1
	if shift > 20 {
		shift = 20
	}

	backoff := base * time.Duration(1<<uint(shift))
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}

// GetStats returns current relay statistics.
func (p *Processor) GetStats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	stats := p.stats
	stats.IsRunning = p.IsRunning()
	return stats
}

func (p *Processor) recordPublished() {
	p.statsMu.Lock()
	p.stats.PublishedCount++
	p.statsMu.Unlock()
}

func (p *Processor) recordFailed(err error) {
	now := time.Now()
	p.statsMu.Lock()
	p.stats.FailedCount++
	p.stats.LastError = err.Error()
	p.stats.LastErrorAt = &now
	p.statsMu.Unlock()
}

func (p *Processor) recordDead(err error) {
	now := time.Now()
	p.statsMu.Lock()
	p.stats.DeadCount++
	p.stats.LastError = err.Error()
	p.stats.LastErrorAt = &now
	p.statsMu.Unlock()
}

func (p *Processor) recordError(err error) {
	now := time.Now()
	p.statsMu.Lock()
	p.stats.LastError = err.Error()
	p.stats.LastErrorAt = &now
	p.statsMu.Unlock()
}
