package eventloop

import (
	"context"

	"github.com/rotorlab/rotor/internal/tracing"
	"github.com/rotorlab/rotor/pkg/events"
	"github.com/rotorlab/rotor/pkg/message"
	"github.com/rotorlab/rotor/pkg/provider"
	"github.com/rotorlab/rotor/pkg/telemetry"
	"github.com/rotorlab/rotor/pkg/tools"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AssembleOnce performs a single provider invocation and assembles the
// streamed response, without tool dispatch or overflow recovery. Used for
// one-shot extraction flows that bypass the full cycle.
func AssembleOnce(ctx context.Context, p provider.Provider, req provider.Request, emitter *events.Emitter) (message.Message, message.StopReason, telemetry.Usage, error) {
	if emitter == nil {
		emitter = events.NewEmitter(nil)
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"rotor.eventloop",
		"event_loop.invoke_model",
		attribute.String("provider", p.Name()),
	)
	defer span.End()

	stream, err := p.Stream(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return message.Message{}, "", telemetry.Usage{}, err
	}

	spanCtx := trace.SpanContextFromContext(ctx)
	a := &assembler{
		emitter:      emitter,
		cycleID:      tracing.GetCycleID(ctx),
		traceID:      spanCtx.TraceID().String(),
		spanID:       spanCtx.SpanID().String(),
		requestState: tools.NewRequestState(nil),
	}

	asm, err := a.consume(stream)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return message.Message{}, "", telemetry.Usage{}, err
	}
	return asm.message, asm.stopReason, asm.usage, nil
}
