package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotorlab/rotor/internal/tracing"
	"github.com/rotorlab/rotor/pkg/message"
	"github.com/rotorlab/rotor/pkg/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Executor dispatches batches of tool invocations. Up to MaxParallel tools
// run concurrently; result order always matches request order.
type Executor struct {
	registry    *Registry
	maxParallel int
	logger      zerolog.Logger
	metrics     *telemetry.EventLoopMetrics
}

// ExecutorConfig holds executor construction options.
type ExecutorConfig struct {
	Registry    *Registry
	MaxParallel int
	Logger      zerolog.Logger
	Metrics     *telemetry.EventLoopMetrics
}

// NewExecutor validates the configuration and builds an executor. A
// concurrency ceiling below 1 is an invalid configuration.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if cfg.MaxParallel < 1 {
		return nil, fmt.Errorf("max parallel tools must be at least 1, got %d", cfg.MaxParallel)
	}
	return &Executor{
		registry:    cfg.Registry,
		maxParallel: cfg.MaxParallel,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}, nil
}

// MaxParallel returns the configured concurrency ceiling.
func (e *Executor) MaxParallel() int { return e.maxParallel }

// Registry returns the registry the executor dispatches against.
func (e *Executor) Registry() *Registry { return e.registry }

// Execute runs the requested tool invocations and returns their results in
// request order regardless of completion order. A tool's own failure is
// converted into an error-status result and never aborts its siblings; only
// an infrastructure failure of the dispatch itself returns an error.
func (e *Executor) Execute(ctx context.Context, uses []message.ToolUse) ([]message.ToolResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tool dispatch aborted: %w", err)
	}
	if len(uses) == 0 {
		return nil, nil
	}

	results := make([]message.ToolResult, len(uses))
	sem := make(chan struct{}, e.maxParallel)
	var wg sync.WaitGroup

	for i, use := range uses {
		wg.Add(1)
		go func(i int, use message.ToolUse) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = e.invoke(ctx, use)
		}(i, use)
	}

	wg.Wait()
	return results, nil
}

// invoke runs a single tool invocation, converting every failure mode into
// an error-status result.
func (e *Executor) invoke(ctx context.Context, use message.ToolUse) (result message.ToolResult) {
	ctx, span := tracing.StartSpan(
		ctx,
		"rotor.tools",
		"tool."+use.Name,
		attribute.String("tool.name", use.Name),
		attribute.String("tool.use_id", use.ID),
	)
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, e.logger).With().Str("tool", use.Name).Logger()
	start := time.Now()

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error().Interface("panic", recovered).Msg("Tool panicked")
			result = message.ErrorResult(use.ID, fmt.Sprintf("tool %s panicked: %v", use.Name, recovered))
			span.SetStatus(codes.Error, result.Content[0].Text)
		}
		e.record(use.Name, time.Since(start), result.Status == message.ToolResultSuccess)
	}()

	tool := e.registry.Get(use.Name)
	if tool == nil {
		logger.Warn().Msg("Tool not found")
		span.SetStatus(codes.Error, "tool not found")
		return message.ErrorResult(use.ID, fmt.Sprintf("tool not found: %s", use.Name))
	}

	if err := e.registry.Validate(use.Name, use.Input); err != nil {
		logger.Warn().Err(err).Msg("Tool input rejected")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return message.ErrorResult(use.ID, err.Error())
	}

	content, err := tool.Invoke(ctx, use.Input)
	if err != nil {
		logger.Warn().Err(err).Msg("Tool failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return message.ErrorResult(use.ID, err.Error())
	}

	logger.Debug().Dur("duration", time.Since(start)).Msg("Tool completed")
	return message.ToolResult{
		ToolUseID: use.ID,
		Status:    message.ToolResultSuccess,
		Content:   content,
	}
}

func (e *Executor) record(name string, latency time.Duration, success bool) {
	if e.metrics != nil {
		e.metrics.RecordToolCall(name, latency, success)
	}
}
