// Package eventloop implements the execution cycle: one provider call,
// streamed delta assembly, tool rounds, overflow-triggered retry, and span
// lifecycle. It decides how to execute a bounded number of provider/tool
// round trips, never what to do.
package eventloop

import (
	"context"
	"fmt"
	"time"

	"github.com/rotorlab/rotor/internal/tracing"
	"github.com/rotorlab/rotor/pkg/conversation"
	"github.com/rotorlab/rotor/pkg/events"
	"github.com/rotorlab/rotor/pkg/message"
	"github.com/rotorlab/rotor/pkg/provider"
	"github.com/rotorlab/rotor/pkg/telemetry"
	"github.com/rotorlab/rotor/pkg/tools"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxOverflowAttempts bounds capacity-overflow retries per invoking step.
// A fixed constant: history size shrinks monotonically under reduction but
// may plateau, so the bound must not depend on message count.
const maxOverflowAttempts = 3

// DefaultMaxToolRounds bounds tool-use recursion within one cycle.
const DefaultMaxToolRounds = 10

// StopSignalKey is the request-state key a cooperating tool sets to true to
// ask the loop to stop after the current tool round.
const StopSignalKey = "stop_event_loop"

// Params carries everything one cycle needs.
type Params struct {
	Provider     provider.Provider
	SystemPrompt string
	Messages     []message.Message
	Registry     *tools.Registry
	Executor     *tools.Executor
	Manager      conversation.Manager
	Emitter      *events.Emitter
	Metrics      *telemetry.EventLoopMetrics
	RequestState map[string]any
	// Attributes is caller-forwarded context included in the init event.
	Attributes    map[string]any
	Logger        zerolog.Logger
	MaxToolRounds int
}

// Result is the terminal outcome of a successful cycle.
type Result struct {
	StopReason   message.StopReason
	Message      message.Message
	Messages     []message.Message
	RequestState map[string]any
}

// Run executes one cycle: invoke the provider, assemble the streamed
// response, dispatch any requested tools, fold their results back in, and
// loop until the provider signals a final answer. Capacity overflows are
// recovered by conversation reduction within a fixed attempt bound; all
// other faults wrap into *Error.
func Run(ctx context.Context, p Params) (*Result, error) {
	if p.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if p.Registry == nil || p.Executor == nil {
		return nil, fmt.Errorf("tool registry and executor are required")
	}
	if p.Manager == nil {
		p.Manager = conversation.NewNullManager()
	}
	if p.Emitter == nil {
		p.Emitter = events.NewEmitter(nil)
	}
	if p.Metrics == nil {
		p.Metrics = telemetry.NewEventLoopMetrics()
	}
	if p.MaxToolRounds < 1 {
		p.MaxToolRounds = DefaultMaxToolRounds
	}

	cycleID := tracing.NewCycleID()
	ctx = tracing.WithCycleID(ctx, cycleID)

	requestState := tools.NewRequestState(p.RequestState)
	ctx = tools.WithRequestState(ctx, requestState)

	ctx, span := tracing.StartSpan(
		ctx,
		"rotor.eventloop",
		"event_loop.cycle",
		attribute.String("cycle_id", cycleID),
	)
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, p.Logger)
	p.Metrics.RecordCycle()

	p.Emitter.Emit(events.InitEvent{CycleID: cycleID, Attributes: p.Attributes})

	// Steady-state trimming runs once per top-level invocation, before the
	// first invoking step; overflow retries get reduction instead.
	msgs := p.Manager.ApplyManagement(p.Messages)

	result, err := run(ctx, &p, cycle{
		id:           cycleID,
		messages:     msgs,
		requestState: requestState,
		logger:       logger,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

// cycle is the mutable state threaded through one Run.
type cycle struct {
	id           string
	messages     []message.Message
	requestState *tools.RequestState
	logger       zerolog.Logger
}

func run(ctx context.Context, p *Params, c cycle) (*Result, error) {
	for round := 0; round < p.MaxToolRounds; round++ {
		asm, err := invokeWithRecovery(ctx, p, &c)
		if err != nil {
			return nil, err
		}

		c.messages = append(c.messages, asm.message)
		p.Emitter.Emit(events.MessageEvent{Message: asm.message})

		if asm.stopReason != message.StopToolUse || !asm.message.HasToolUse() {
			return terminal(asm, &c), nil
		}

		results, err := p.Executor.Execute(ctx, asm.message.ToolUses())
		if err != nil {
			return nil, &Error{Cause: err, RequestState: c.requestState.Values()}
		}

		p.Emitter.Emit(events.ToolResultEvent{CycleID: c.id, Results: results})

		blocks := make([]message.ContentBlock, len(results))
		for i, result := range results {
			blocks[i] = message.ToolResultBlock(result)
		}
		c.messages = append(c.messages, message.NewUser(blocks...))

		if stop, _ := c.requestState.Get(StopSignalKey); stop == true {
			c.logger.Debug().Msg("Tool requested event loop stop")
			return terminal(asm, &c), nil
		}
	}

	return nil, &Error{
		Cause:        fmt.Errorf("maximum tool rounds (%d) exceeded", p.MaxToolRounds),
		RequestState: c.requestState.Values(),
	}
}

// invokeWithRecovery performs one invoking step, recovering from capacity
// overflows by reducing the conversation and retrying within the fixed
// attempt bound. Exhausting the bound surfaces the original overflow cause,
// not a wrapper.
func invokeWithRecovery(ctx context.Context, p *Params, c *cycle) (*assembly, error) {
	var overflow error

	for attempt := 0; attempt < maxOverflowAttempts; attempt++ {
		asm, err := invoke(ctx, p, c, attempt)
		if err == nil {
			return asm, nil
		}

		if !provider.IsContextOverflow(err) {
			return nil, &Error{Cause: err, RequestState: c.requestState.Values()}
		}

		overflow = err
		p.Metrics.RecordOverflow()
		if attempt == maxOverflowAttempts-1 {
			break
		}
		c.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Context overflow, reducing conversation")

		reduced, reduceErr := p.Manager.ReduceContext(c.messages, err)
		if reduceErr != nil {
			// The manager could not shrink further; surface the original
			// overflow cause.
			return nil, reduceErr
		}
		c.messages = reduced
	}

	return nil, overflow
}

// invoke performs a single provider call and assembles its stream. Each
// attempt gets its own child span, closed with the outcome.
func invoke(ctx context.Context, p *Params, c *cycle, attempt int) (*assembly, error) {
	ctx, span := tracing.StartSpan(
		ctx,
		"rotor.eventloop",
		"event_loop.invoke_model",
		attribute.String("provider", p.Provider.Name()),
		attribute.Int("attempt", attempt),
	)
	defer span.End()

	start := time.Now()

	// The tool configuration is rebuilt from the registry on every
	// invoking step, so mid-run registry changes take effect.
	stream, err := p.Provider.Stream(ctx, provider.Request{
		Messages:     c.messages,
		ToolSpecs:    p.Registry.Specs(),
		SystemPrompt: p.SystemPrompt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	spanCtx := trace.SpanContextFromContext(ctx)
	a := &assembler{
		emitter:      p.Emitter,
		cycleID:      c.id,
		traceID:      spanCtx.TraceID().String(),
		spanID:       spanCtx.SpanID().String(),
		requestState: c.requestState,
	}

	asm, err := a.consume(stream)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	p.Metrics.RecordInvocation(asm.usage, time.Since(start))
	return asm, nil
}

func terminal(asm *assembly, c *cycle) *Result {
	return &Result{
		StopReason:   asm.stopReason,
		Message:      asm.message,
		Messages:     c.messages,
		RequestState: c.requestState.Values(),
	}
}
