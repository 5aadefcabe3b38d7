// Package agent is the entry point of the SDK: it owns the conversation
// and the agent state, wires tools, conversation management, events,
// metrics, and tracing into the event loop, and exposes synchronous calls,
// asynchronous streaming, direct tool invocation, and structured-output
// extraction.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rotorlab/rotor/internal/logger"
	"github.com/rotorlab/rotor/internal/tracing"
	"github.com/rotorlab/rotor/pkg/conversation"
	"github.com/rotorlab/rotor/pkg/eventloop"
	"github.com/rotorlab/rotor/pkg/events"
	"github.com/rotorlab/rotor/pkg/message"
	"github.com/rotorlab/rotor/pkg/provider"
	"github.com/rotorlab/rotor/pkg/session"
	"github.com/rotorlab/rotor/pkg/state"
	"github.com/rotorlab/rotor/pkg/telemetry"
	"github.com/rotorlab/rotor/pkg/tools"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultMaxParallelTools bounds concurrent tool execution when the caller
// does not configure a ceiling.
const DefaultMaxParallelTools = 4

// Config holds agent construction options. Provider is required; every
// other field has a usable default.
type Config struct {
	Provider     provider.Provider
	SystemPrompt string
	Tools        []tools.Tool
	Messages     []message.Message
	Manager      conversation.Manager
	Callback     events.Callback

	// MaxParallelTools is the concurrency ceiling for one tool round.
	// Values below 1 are rejected.
	MaxParallelTools int
	MaxToolRounds    int

	// RecordDirectToolCall controls whether direct tool invocations
	// append an audit message to the conversation. Defaults to true.
	RecordDirectToolCall *bool

	// State seeds the agent state; every value must be JSON-serializable.
	State map[string]any

	// Store and SessionID enable conversation persistence.
	Store     session.Store
	SessionID string

	IDGenerator tools.IDGenerator
	Logger      *zerolog.Logger
	Metrics     *telemetry.EventLoopMetrics

	// TraceAttributes is caller context forwarded into spans and the
	// cycle init event.
	TraceAttributes map[string]any
}

// Agent drives conversations against one provider. The conversation has a
// single logical writer at any instant: Call, Stream, and ToolCall
// serialize on an internal mutex.
type Agent struct {
	mu sync.Mutex

	provider     provider.Provider
	systemPrompt string
	registry     *tools.Registry
	executor     *tools.Executor
	manager      conversation.Manager
	callback     events.Callback
	messages     []message.Message
	state        *state.AgentState
	store        session.Store
	sessionID    string
	idgen        tools.IDGenerator
	logger       zerolog.Logger
	metrics      *telemetry.EventLoopMetrics

	traceAttributes      map[string]any
	recordDirectToolCall bool
	maxToolRounds        int
}

// New validates the configuration and builds an agent. Invalid
// configuration (a non-positive concurrency ceiling, non-serializable
// state, duplicate tool names) is rejected here, before any cycle runs.
func New(cfg Config) (*Agent, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}

	agentState, err := state.New(cfg.State)
	if err != nil {
		return nil, fmt.Errorf("invalid initial state: %w", err)
	}

	registry := tools.NewRegistry()
	for _, tool := range cfg.Tools {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}

	maxParallel := cfg.MaxParallelTools
	if maxParallel == 0 {
		maxParallel = DefaultMaxParallelTools
	}

	log := logger.Default()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewEventLoopMetrics()
	}

	executor, err := tools.NewExecutor(tools.ExecutorConfig{
		Registry:    registry,
		MaxParallel: maxParallel,
		Logger:      log,
		Metrics:     metrics,
	})
	if err != nil {
		return nil, err
	}

	manager := cfg.Manager
	if manager == nil {
		manager = conversation.NewSlidingWindow(conversation.DefaultWindowSize, true)
	}

	idgen := cfg.IDGenerator
	if idgen == nil {
		idgen = tools.DefaultIDGenerator
	}

	record := true
	if cfg.RecordDirectToolCall != nil {
		record = *cfg.RecordDirectToolCall
	}

	messages := message.CloneAll(cfg.Messages)
	if cfg.Store != nil && cfg.SessionID != "" {
		stored, err := cfg.Store.Load(context.Background(), cfg.SessionID)
		if err != nil {
			return nil, fmt.Errorf("loading session %s: %w", cfg.SessionID, err)
		}
		messages = append(stored, messages...)
	}

	return &Agent{
		provider:             cfg.Provider,
		systemPrompt:         cfg.SystemPrompt,
		registry:             registry,
		executor:             executor,
		manager:              manager,
		callback:             cfg.Callback,
		messages:             messages,
		state:                agentState,
		store:                cfg.Store,
		sessionID:            cfg.SessionID,
		idgen:                idgen,
		logger:               log,
		metrics:              metrics,
		traceAttributes:      cfg.TraceAttributes,
		recordDirectToolCall: record,
		maxToolRounds:        cfg.MaxToolRounds,
	}, nil
}

// Result is the outcome of one top-level invocation.
type Result struct {
	StopReason   message.StopReason
	Message      message.Message
	Metrics      telemetry.Snapshot
	RequestState map[string]any
}

// String returns the concatenated text content of the final message.
func (r *Result) String() string {
	var b strings.Builder
	for _, block := range r.Message.Content {
		if block.Text != nil {
			b.WriteString(*block.Text)
		}
	}
	return b.String()
}

// Call runs one synchronous invocation: the prompt is appended to the
// conversation and cycles run until the provider signals a final answer.
// Failures raise directly.
func (a *Agent) Call(ctx context.Context, prompt string) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	emitter := events.NewEmitter(a.callback)
	result, err := a.run(ctx, prompt, emitter)
	emitter.CloseWithError(err)
	return result, err
}

// Stream runs one invocation asynchronously and returns the pull side of
// its event stream. Events produced before a failure are delivered; the
// failure itself is returned by the stream after them. The final
// MessageEvent carries the finished message.
func (a *Agent) Stream(ctx context.Context, prompt string) *events.Stream {
	emitter := events.NewEmitter(a.callback)
	stream := emitter.Stream()

	go func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		_, err := a.run(ctx, prompt, emitter)
		emitter.CloseWithError(err)
	}()

	return stream
}

// run executes one top-level invocation under the conversation lock.
func (a *Agent) run(ctx context.Context, prompt string, emitter *events.Emitter) (*Result, error) {
	if tracing.GetTraceID(ctx) == "" {
		ctx = tracing.NewRequestContext(ctx)
	}
	if a.sessionID != "" {
		ctx = tracing.WithSessionID(ctx, a.sessionID)
	}

	attrs := []attribute.KeyValue{attribute.String("provider", a.provider.Name())}
	for key, value := range a.traceAttributes {
		attrs = append(attrs, attribute.String(key, fmt.Sprintf("%v", value)))
	}
	ctx, span := tracing.StartSpan(ctx, "rotor.agent", "agent.call", attrs...)
	defer span.End()

	log := tracing.LoggerFromContext(ctx, a.logger)

	a.messages = append(a.messages, message.NewUser(message.TextBlock(prompt)))

	result, err := eventloop.Run(ctx, eventloop.Params{
		Provider:      a.provider,
		SystemPrompt:  a.systemPrompt,
		Messages:      a.messages,
		Registry:      a.registry,
		Executor:      a.executor,
		Manager:       a.manager,
		Emitter:       emitter,
		Metrics:       a.metrics,
		Attributes:    a.traceAttributes,
		Logger:        log,
		MaxToolRounds: a.maxToolRounds,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	a.messages = result.Messages
	a.persist(ctx, log)

	return &Result{
		StopReason:   result.StopReason,
		Message:      result.Message,
		Metrics:      a.metrics.Snapshot(),
		RequestState: result.RequestState,
	}, nil
}

// persist saves the conversation when a store is configured. Persistence
// failures are logged, not raised: the in-memory conversation is the
// source of truth for the running agent.
func (a *Agent) persist(ctx context.Context, log zerolog.Logger) {
	if a.store == nil || a.sessionID == "" {
		return
	}
	if err := a.store.Save(ctx, a.sessionID, a.messages); err != nil {
		log.Warn().Err(err).Str("session_id", a.sessionID).Msg("Failed to persist conversation")
	}
}

// Messages returns a copy of the conversation.
func (a *Agent) Messages() []message.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return message.CloneAll(a.messages)
}

// State returns the agent's state container.
func (a *Agent) State() *state.AgentState {
	return a.state
}

// Metrics returns a point-in-time snapshot of the accumulated metrics.
func (a *Agent) Metrics() telemetry.Snapshot {
	return a.metrics.Snapshot()
}

// ToolNames returns the registered tool names, sorted.
func (a *Agent) ToolNames() []string {
	return a.registry.Names()
}

// AddTool registers an additional tool. The tool configuration sent to the
// provider is rebuilt on every invoking step, so the change takes effect
// even mid-run.
func (a *Agent) AddTool(tool tools.Tool) error {
	return a.registry.Register(tool)
}
