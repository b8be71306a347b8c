package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/propman/backend/internal/application/automation"
	"go.uber.org/zap"
)

// RuleEngineScheduler runs the automation engine's evaluation pass on a fixed
// tick. A failing pass logs and waits for the next tick; it never stops the
// loop.
type RuleEngineScheduler struct {
	engine    *automation.Engine
	logger    *zap.Logger
	config    RuleEngineSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// RuleEngineSchedulerConfig holds configuration for the rule engine scheduler
type RuleEngineSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// TickInterval is the time between evaluation passes
	TickInterval time.Duration

	// PassTimeout is the maximum time for one evaluation pass
	PassTimeout time.Duration
}

// DefaultRuleEngineSchedulerConfig returns default configuration
func DefaultRuleEngineSchedulerConfig() RuleEngineSchedulerConfig {
	return RuleEngineSchedulerConfig{
		Enabled:      true,
		TickInterval: time.Minute,
		PassTimeout:  30 * time.Second,
	}
}

// NewRuleEngineScheduler creates a new rule engine scheduler
func NewRuleEngineScheduler(
	engine *automation.Engine,
	logger *zap.Logger,
	config RuleEngineSchedulerConfig,
) *RuleEngineScheduler {
	if config.TickInterval <= 0 {
		config.TickInterval = time.Minute
	}
	if config.PassTimeout <= 0 {
		config.PassTimeout = 30 * time.Second
	}
	return &RuleEngineScheduler{
		engine: engine,
		logger: logger,
		config: config,
	}
}

// Start starts the evaluation loop
func (s *RuleEngineScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Rule engine scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Rule engine scheduler started",
		zap.Duration("tick_interval", s.config.TickInterval),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *RuleEngineScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Rule engine scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Rule engine scheduler stop timed out")
		return ctx.Err()
	}
}

// TriggerImmediatePass runs one evaluation pass outside the tick cadence
func (s *RuleEngineScheduler) TriggerImmediatePass(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Triggering immediate rule evaluation pass")

	go func() {
		defer s.wg.Done()
		s.executePass(ctx)
	}()
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *RuleEngineScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *RuleEngineScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Rule evaluation loop stopping")
			return
		case <-ticker.C:
			s.executePass(ctx)
		}
	}
}

func (s *RuleEngineScheduler) executePass(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, s.config.PassTimeout)
	defer cancel()

	startTime := time.Now()
	stats := s.engine.EvaluatePass(passCtx)
	duration := time.Since(startTime)

	if stats.Errors > 0 {
		s.logger.Warn("Rule evaluation pass completed with errors",
			zap.Duration("duration", duration),
			zap.Int("evaluated", stats.Evaluated),
			zap.Int("fired", stats.Fired),
			zap.Int("skipped", stats.Skipped),
			zap.Int("errors", stats.Errors),
		)
		return
	}

	s.logger.Debug("Rule evaluation pass completed",
		zap.Duration("duration", duration),
		zap.Int("evaluated", stats.Evaluated),
		zap.Int("fired", stats.Fired),
		zap.Int("skipped", stats.Skipped),
	)
}
