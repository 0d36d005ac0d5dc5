package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/advisim/advisim/internal/adapters/metrics"
	"github.com/advisim/advisim/internal/domain"
	"github.com/advisim/advisim/internal/domain/models"
	"github.com/advisim/advisim/internal/ports"
)

var tracer = otel.Tracer("advisim/agents")

const (
	// maxIterations bounds the tool-resolution loop so a run that never
	// leaves requires_action cannot spin forever.
	maxIterations = 20

	// idlePollInterval is the fixed delay between run-status checks while
	// the remote service is still working. The iteration bound caps total
	// wall-clock exposure, so no exponential backoff is needed here.
	idlePollInterval = 1 * time.Second
)

// Definition declares one agent specialization: its durable remote name,
// instruction set and tool manifest.
type Definition struct {
	Name         string
	Instructions string
	Tools        []ports.ToolDefinition
}

// ToolCallRecord is one entry in the per-turn tool invocation log.
type ToolCallRecord struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Result    any            `json:"result"`
}

// Metadata carries diagnostics about a completed turn.
type Metadata struct {
	RunID      string `json:"runId"`
	Iterations int    `json:"iterations"`
}

// Response is the aggregated outcome of one turn. Chat never propagates
// an error: failures come back as Success=false with the error text in
// Message and whatever tool-call log accumulated before the failure.
type Response struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message"`
	ToolCalls []ToolCallRecord `json:"toolCalls"`
	Metadata  *Metadata        `json:"metadata,omitempty"`
}

// Agent drives conversational turns against a reasoning service,
// resolving tool calls through its registry along the way. One Agent may
// serve concurrent turns: each turn owns a fresh thread/run pair, and the
// identity cache and registry are read-only after initialization.
type Agent struct {
	def      Definition
	svc      ports.ReasoningService
	model    string
	registry *Registry

	mu          sync.Mutex
	assistantID string
}

// New builds an agent from its definition. register populates the tool
// registry once, at construction; the orchestration core itself holds no
// built-in tools.
func New(def Definition, svc ports.ReasoningService, model string, register func(*Registry)) *Agent {
	registry := NewRegistry()
	if register != nil {
		register(registry)
	}
	return &Agent{
		def:      def,
		svc:      svc,
		model:    model,
		registry: registry,
	}
}

// Name returns the agent's remote identity name.
func (a *Agent) Name() string {
	return a.def.Name
}

// Initialize resolves the durable remote assistant identity: it looks for
// a previously registered assistant with this agent's name and registers
// a new one if absent. The result is memoized; subsequent calls are
// no-ops until Teardown. Failure here is a hard failure for the turn that
// triggered it.
func (a *Agent) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.assistantID != "" {
		return nil
	}

	slog.Info("agent: initializing", "agent", a.def.Name)

	assistants, err := a.svc.ListAssistants(ctx)
	if err != nil {
		return fmt.Errorf("list assistants: %w", err)
	}

	for _, assistant := range assistants {
		if assistant.Name == a.def.Name {
			slog.Info("agent: found existing assistant", "agent", a.def.Name, "id", assistant.ID)
			a.assistantID = assistant.ID
			return nil
		}
	}

	created, err := a.svc.CreateAssistant(ctx, ports.AssistantSpec{
		Name:         a.def.Name,
		Model:        a.model,
		Instructions: a.def.Instructions,
		Tools:        a.def.Tools,
	})
	if err != nil {
		return fmt.Errorf("create assistant: %w", err)
	}

	slog.Info("agent: created assistant", "agent", a.def.Name, "id", created.ID)
	a.assistantID = created.ID
	return nil
}

// Teardown drops the memoized identity so the next turn re-resolves it.
func (a *Agent) Teardown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.assistantID = ""
}

// Initialized reports whether the remote identity has been resolved.
func (a *Agent) Initialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.assistantID != ""
}

func (a *Agent) ensureInitialized(ctx context.Context) (string, error) {
	a.mu.Lock()
	id := a.assistantID
	a.mu.Unlock()
	if id != "" {
		return id, nil
	}
	if err := a.Initialize(ctx); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.assistantID, nil
}

// Chat runs one synchronous turn: it creates a thread from the supplied
// messages (system entries filtered out, simCtx appended as a trailing
// context message), drives the run to a terminal state resolving tool
// calls along the way, and returns the assistant's reply. It never
// returns an error; failures yield Success=false with the partial
// tool-call log preserved.
func (a *Agent) Chat(ctx context.Context, messages []models.Message, simCtx map[string]any) *Response {
	ctx, span := tracer.Start(ctx, "agent.chat")
	span.SetAttributes(attribute.String("agent.name", a.def.Name))
	defer span.End()

	resp, log, err := a.runTurn(ctx, messages, simCtx, nil)
	if err != nil {
		slog.Error("agent: chat failed", "agent", a.def.Name, "error", err)
		metrics.AgentRunsTotal.WithLabelValues(a.def.Name, "error").Inc()
		return &Response{
			Success:   false,
			Message:   err.Error(),
			ToolCalls: log,
		}
	}
	metrics.AgentRunsTotal.WithLabelValues(a.def.Name, "success").Inc()
	return resp
}

// ChatStream runs one streaming turn. It returns a channel carrying each
// phase transition as it happens, terminated by exactly one complete or
// error event, after which the channel is closed. Cancelling ctx is the
// consumer's detach signal: the producer stops emitting and finishes its
// in-flight remote call before cleaning up.
func (a *Agent) ChatStream(ctx context.Context, messages []models.Message, simCtx map[string]any) <-chan StreamEvent {
	events := make(chan StreamEvent, 8)

	go func() {
		defer close(events)

		ctx, span := tracer.Start(ctx, "agent.chat_stream")
		span.SetAttributes(attribute.String("agent.name", a.def.Name))
		defer span.End()

		emit := func(ev StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		resp, _, err := a.runTurn(ctx, messages, simCtx, emit)
		if err != nil {
			metrics.AgentRunsTotal.WithLabelValues(a.def.Name, "error").Inc()
			emit(errorEvent(err))
			return
		}
		metrics.AgentRunsTotal.WithLabelValues(a.def.Name, "success").Inc()
		emit(completeEvent(resp))
	}()

	return events
}

// runTurn is the shared turn state machine behind Chat and ChatStream.
// emit is nil for the synchronous variant; when set, it reports each
// phase transition and returns false once the consumer has detached (the
// turn still finishes its in-flight work, it just stops narrating).
func (a *Agent) runTurn(
	ctx context.Context,
	messages []models.Message,
	simCtx map[string]any,
	emit func(StreamEvent) bool,
) (*Response, []ToolCallRecord, error) {
	notify := func(ev StreamEvent) {
		if emit != nil {
			emit(ev)
		}
	}

	toolLog := []ToolCallRecord{}

	assistantID, err := a.ensureInitialized(ctx)
	if err != nil {
		return nil, toolLog, err
	}

	notify(statusEvent("creating_thread", "Starting conversation..."))

	threadID, err := a.svc.CreateThread(ctx)
	if err != nil {
		return nil, toolLog, fmt.Errorf("create thread: %w", err)
	}
	// The turn outcome is decided before cleanup runs; a failed delete is
	// logged, never surfaced.
	defer func() {
		if delErr := a.svc.DeleteThread(context.WithoutCancel(ctx), threadID); delErr != nil {
			slog.Warn("agent: thread cleanup failed", "agent", a.def.Name, "thread", threadID, "error", delErr)
		}
	}()

	for _, msg := range messages {
		if msg.IsSystem() {
			continue
		}
		if err := a.svc.CreateMessage(ctx, threadID, string(msg.Role), msg.Content); err != nil {
			return nil, toolLog, fmt.Errorf("append message: %w", err)
		}
	}

	if simCtx != nil {
		encoded, err := json.Marshal(simCtx)
		if err != nil {
			return nil, toolLog, fmt.Errorf("encode context: %w", err)
		}
		if err := a.svc.CreateMessage(ctx, threadID, string(models.RoleUser), "[CONTEXT]: "+string(encoded)); err != nil {
			return nil, toolLog, fmt.Errorf("append context: %w", err)
		}
	}

	notify(statusEvent("running", "Processing..."))

	run, err := a.svc.CreateRunAndPoll(ctx, threadID, assistantID)
	if err != nil {
		return nil, toolLog, fmt.Errorf("start run: %w", err)
	}

	iteration := 0
	for run.Status == ports.RunRequiresAction && iteration < maxIterations {
		notify(thinkingEvent(iteration))

		if run.RequiredAction != nil && len(run.RequiredAction.ToolCalls) > 0 {
			outputs, records := a.resolveToolCalls(ctx, run.RequiredAction.ToolCalls, notify)
			toolLog = append(toolLog, records...)

			run, err = a.svc.SubmitToolOutputs(ctx, threadID, run.ID, outputs)
			if err != nil {
				return nil, toolLog, fmt.Errorf("submit tool outputs: %w", err)
			}
		} else {
			select {
			case <-ctx.Done():
				return nil, toolLog, ctx.Err()
			case <-time.After(idlePollInterval):
			}
			run, err = a.svc.GetRun(ctx, threadID, run.ID)
			if err != nil {
				return nil, toolLog, fmt.Errorf("poll run: %w", err)
			}
		}

		iteration++
	}

	metrics.AgentRunIterations.WithLabelValues(a.def.Name).Observe(float64(iteration))

	if iteration >= maxIterations {
		return nil, toolLog, domain.ErrMaxIterations
	}

	if run.Status == ports.RunFailed || run.Status == ports.RunExpired {
		msg := "Unknown error"
		if run.LastError != nil && run.LastError.Message != "" {
			msg = run.LastError.Message
		}
		return nil, toolLog, fmt.Errorf("%w: %s", domain.ErrRunFailed, msg)
	}

	reply, err := a.extractReply(ctx, threadID)
	if err != nil {
		return nil, toolLog, err
	}

	return &Response{
		Success:   true,
		Message:   reply,
		ToolCalls: toolLog,
		Metadata:  &Metadata{RunID: run.ID, Iterations: iteration},
	}, toolLog, nil
}

// resolveToolCalls executes one requires_action batch. Every tool call
// produces exactly one output and one log record: handler errors and
// unknown tool names become structured error payloads rather than
// aborting the batch, and the full batch is returned for a single atomic
// submission.
func (a *Agent) resolveToolCalls(
	ctx context.Context,
	calls []ports.ToolCall,
	notify func(StreamEvent),
) ([]ports.ToolOutput, []ToolCallRecord) {
	outputs := make([]ports.ToolOutput, 0, len(calls))
	records := make([]ToolCallRecord, 0, len(calls))

	for _, call := range calls {
		args := map[string]any{}
		parseErr := json.Unmarshal([]byte(call.Arguments), &args)

		notify(toolCallEvent(call.Name, args))

		var result any
		switch {
		case parseErr != nil:
			slog.Error("agent: bad tool arguments", "agent", a.def.Name, "tool", call.Name, "error", parseErr)
			metrics.ToolCallsTotal.WithLabelValues(call.Name, "error").Inc()
			result = map[string]any{"error": fmt.Sprintf("invalid tool arguments: %v", parseErr)}
		default:
			result = a.invokeTool(ctx, call.Name, args)
		}

		notify(toolResultEvent(call.ID, result))

		records = append(records, ToolCallRecord{
			Name:      call.Name,
			Arguments: args,
			Result:    result,
		})

		encoded, err := json.Marshal(result)
		if err != nil {
			encoded = []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
		}
		outputs = append(outputs, ports.ToolOutput{
			ToolCallID: call.ID,
			Output:     string(encoded),
		})
	}

	return outputs, records
}

// invokeTool dispatches one call through the registry. A missing handler
// or a handler failure is recovered into an error payload; a single bad
// tool must never take down the batch or the run.
func (a *Agent) invokeTool(ctx context.Context, name string, args map[string]any) (result any) {
	handler, ok := a.registry.Get(name)
	if !ok {
		metrics.ToolCallsTotal.WithLabelValues(name, "unknown").Inc()
		return map[string]any{"error": "Unknown tool: " + name}
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("agent: tool panicked", "agent", a.def.Name, "tool", name, "panic", r)
			metrics.ToolCallsTotal.WithLabelValues(name, "error").Inc()
			result = map[string]any{"error": fmt.Sprintf("tool panicked: %v", r)}
		}
	}()

	slog.Debug("agent: executing tool", "agent", a.def.Name, "tool", name)

	out, err := handler(ctx, args)
	if err != nil {
		slog.Error("agent: tool failed", "agent", a.def.Name, "tool", name, "error", err)
		metrics.ToolCallsTotal.WithLabelValues(name, "error").Inc()
		return map[string]any{"error": err.Error()}
	}
	metrics.ToolCallsTotal.WithLabelValues(name, "success").Inc()
	return out
}

// extractReply scans the thread (newest first) for the most recent
// assistant message and returns its first text content block.
func (a *Agent) extractReply(ctx context.Context, threadID string) (string, error) {
	threadMessages, err := a.svc.ListMessages(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}

	for _, msg := range threadMessages {
		if msg.Role != string(models.RoleAssistant) {
			continue
		}
		for _, content := range msg.Content {
			if content.Type == "text" && strings.TrimSpace(content.Text) != "" {
				return content.Text, nil
			}
		}
	}

	return "", nil
}
