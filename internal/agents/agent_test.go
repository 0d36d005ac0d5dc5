package agents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/advisim/advisim/internal/domain/models"
	"github.com/advisim/advisim/internal/ports"
)

func newTestAgent(svc ports.ReasoningService, register func(*Registry)) *Agent {
	return New(Definition{
		Name:         "test-agent",
		Instructions: "You are a test agent.",
	}, svc, "gpt-test", register)
}

func TestChatNoTools(t *testing.T) {
	svc := newFakeReasoning(completedRun("run_1"))

	agent := newTestAgent(svc, nil)
	resp := agent.Chat(context.Background(), []models.Message{
		models.UserMessage("Hi"),
	}, nil)

	if !resp.Success {
		t.Fatalf("expected success, got message %q", resp.Message)
	}
	if resp.Message != "Hello there." {
		t.Errorf("expected assistant reply, got %q", resp.Message)
	}
	if len(resp.ToolCalls) != 0 {
		t.Errorf("expected no tool calls, got %d", len(resp.ToolCalls))
	}
	if resp.Metadata == nil || resp.Metadata.Iterations != 0 {
		t.Errorf("expected 0 iterations, got %+v", resp.Metadata)
	}
	if len(svc.deletedThreads) != 1 {
		t.Errorf("expected thread cleanup, deleted %d", len(svc.deletedThreads))
	}
}

func TestChatFiltersSystemMessages(t *testing.T) {
	svc := newFakeReasoning(completedRun("run_1"))

	agent := newTestAgent(svc, nil)
	agent.Chat(context.Background(), []models.Message{
		models.SystemMessage("internal prompt"),
		models.UserMessage("first"),
		models.AssistantMessage("second"),
		models.UserMessage("third"),
	}, map[string]any{"sessionId": "ss_1"})

	created := svc.messages["thread_1"]
	if len(created) != 4 {
		t.Fatalf("expected 3 conversation messages plus context, got %d", len(created))
	}
	for _, msg := range created {
		if msg.role == "system" {
			t.Error("system message reached the thread")
		}
	}
	if created[0].content != "first" || created[1].content != "second" || created[2].content != "third" {
		t.Errorf("message order not preserved: %+v", created)
	}

	last := created[len(created)-1]
	if last.role != "user" || !strings.HasPrefix(last.content, "[CONTEXT]: ") {
		t.Fatalf("expected trailing context message, got %+v", last)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(strings.TrimPrefix(last.content, "[CONTEXT]: ")), &decoded); err != nil {
		t.Fatalf("context payload is not JSON: %v", err)
	}
	if decoded["sessionId"] != "ss_1" {
		t.Errorf("context payload lost data: %v", decoded)
	}
}

func TestChatSingleToolRoundTrip(t *testing.T) {
	svc := newFakeReasoning(
		actionRun("run_1", ports.ToolCall{ID: "call_1", Name: "echo", Arguments: `{"value":"ping"}`}),
		completedRun("run_1"),
	)

	agent := newTestAgent(svc, func(r *Registry) {
		r.Register("echo", func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"echo": args["value"]}, nil
		})
	})

	resp := agent.Chat(context.Background(), []models.Message{models.UserMessage("Hi")}, nil)

	if !resp.Success {
		t.Fatalf("expected success, got %q", resp.Message)
	}
	if resp.Metadata.Iterations != 1 {
		t.Errorf("expected 1 iteration, got %d", resp.Metadata.Iterations)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call record, got %d", len(resp.ToolCalls))
	}
	record := resp.ToolCalls[0]
	if record.Name != "echo" || record.Arguments["value"] != "ping" {
		t.Errorf("unexpected record %+v", record)
	}

	if len(svc.submissions) != 1 || len(svc.submissions[0]) != 1 {
		t.Fatalf("expected one submission with one output, got %+v", svc.submissions)
	}
	output := svc.submissions[0][0]
	if output.ToolCallID != "call_1" {
		t.Errorf("output not correlated to call: %+v", output)
	}
	if !strings.Contains(output.Output, "ping") {
		t.Errorf("output payload missing result: %q", output.Output)
	}
}

func TestChatUnknownToolStillCompletes(t *testing.T) {
	svc := newFakeReasoning(
		actionRun("run_1", ports.ToolCall{ID: "call_1", Name: "missing", Arguments: `{}`}),
		completedRun("run_1"),
	)

	agent := newTestAgent(svc, nil)
	resp := agent.Chat(context.Background(), []models.Message{models.UserMessage("Hi")}, nil)

	if !resp.Success {
		t.Fatalf("unknown tool must not fail the run, got %q", resp.Message)
	}
	if len(svc.submissions) != 1 || len(svc.submissions[0]) != 1 {
		t.Fatalf("expected one output for the unknown call, got %+v", svc.submissions)
	}
	if svc.submissions[0][0].Output != `{"error":"Unknown tool: missing"}` {
		t.Errorf("unexpected unknown-tool payload: %q", svc.submissions[0][0].Output)
	}
}

func TestChatBatchOutputCompleteness(t *testing.T) {
	svc := newFakeReasoning(
		actionRun("run_1",
			ports.ToolCall{ID: "call_ok", Name: "ok", Arguments: `{}`},
			ports.ToolCall{ID: "call_fail", Name: "fail", Arguments: `{}`},
			ports.ToolCall{ID: "call_panic", Name: "panic", Arguments: `{}`},
			ports.ToolCall{ID: "call_missing", Name: "missing", Arguments: `{}`},
		),
		completedRun("run_1"),
	)

	agent := newTestAgent(svc, func(r *Registry) {
		r.Register("ok", func(ctx context.Context, args map[string]any) (any, error) {
			return "fine", nil
		})
		r.Register("fail", func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("boom")
		})
		r.Register("panic", func(ctx context.Context, args map[string]any) (any, error) {
			panic("blew up")
		})
	})

	resp := agent.Chat(context.Background(), []models.Message{models.UserMessage("Hi")}, nil)

	if !resp.Success {
		t.Fatalf("batch with failures must still complete, got %q", resp.Message)
	}
	if len(svc.submissions) != 1 {
		t.Fatalf("expected a single batch submission, got %d", len(svc.submissions))
	}
	outputs := svc.submissions[0]
	if len(outputs) != 4 {
		t.Fatalf("every tool call needs exactly one output, got %d", len(outputs))
	}
	if len(resp.ToolCalls) != 4 {
		t.Fatalf("every tool call needs exactly one log entry, got %d", len(resp.ToolCalls))
	}

	byID := map[string]string{}
	for _, out := range outputs {
		byID[out.ToolCallID] = out.Output
	}
	if byID["call_fail"] != `{"error":"boom"}` {
		t.Errorf("handler error not surfaced: %q", byID["call_fail"])
	}
	if !strings.Contains(byID["call_panic"], "blew up") {
		t.Errorf("panic not recovered into output: %q", byID["call_panic"])
	}
	if !strings.Contains(byID["call_missing"], "Unknown tool") {
		t.Errorf("unknown tool not surfaced: %q", byID["call_missing"])
	}
}

func TestChatIterationBound(t *testing.T) {
	// A run that never leaves requires_action must be abandoned after the
	// bound, not polled forever.
	svc := newFakeReasoning(
		actionRun("run_1", ports.ToolCall{ID: "call_1", Name: "loop", Arguments: `{}`}),
	)

	agent := newTestAgent(svc, func(r *Registry) {
		r.Register("loop", func(ctx context.Context, args map[string]any) (any, error) {
			return "again", nil
		})
	})

	resp := agent.Chat(context.Background(), []models.Message{models.UserMessage("Hi")}, nil)

	if resp.Success {
		t.Fatal("expected failure after iteration bound")
	}
	if !strings.Contains(resp.Message, "maximum iterations") {
		t.Errorf("unexpected failure message %q", resp.Message)
	}
	if len(svc.submissions) != maxIterations {
		t.Errorf("expected %d submissions before giving up, got %d", maxIterations, len(svc.submissions))
	}
	if len(resp.ToolCalls) != maxIterations {
		t.Errorf("partial tool log should be preserved, got %d entries", len(resp.ToolCalls))
	}
	if len(svc.deletedThreads) != 1 {
		t.Error("thread must be cleaned up on failure")
	}
}

func TestChatRunFailed(t *testing.T) {
	svc := newFakeReasoning(failedRun("run_1", "model exploded"))

	agent := newTestAgent(svc, nil)
	resp := agent.Chat(context.Background(), []models.Message{models.UserMessage("Hi")}, nil)

	if resp.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(resp.Message, "model exploded") {
		t.Errorf("remote error lost: %q", resp.Message)
	}
	if len(svc.deletedThreads) != 1 {
		t.Error("thread must be cleaned up on failure")
	}
}

func TestChatRunFailedWithoutDetail(t *testing.T) {
	svc := newFakeReasoning(failedRun("run_1", ""))

	agent := newTestAgent(svc, nil)
	resp := agent.Chat(context.Background(), []models.Message{models.UserMessage("Hi")}, nil)

	if resp.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(resp.Message, "Unknown error") {
		t.Errorf("expected unknown-error fallback, got %q", resp.Message)
	}
}

func TestInitializeFindsExisting(t *testing.T) {
	svc := newFakeReasoning(completedRun("run_1"))
	svc.assistants = []ports.Assistant{{ID: "asst_existing", Name: "test-agent"}}

	agent := newTestAgent(svc, nil)
	if err := agent.Initialize(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.createCalls != 0 {
		t.Errorf("existing identity must be reused, created %d", svc.createCalls)
	}
	if !agent.Initialized() {
		t.Error("agent should report initialized")
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	svc := newFakeReasoning(completedRun("run_1"))

	agent := newTestAgent(svc, nil)

	agent.Chat(context.Background(), []models.Message{models.UserMessage("one")}, nil)
	agent.Chat(context.Background(), []models.Message{models.UserMessage("two")}, nil)

	if svc.listCalls != 1 {
		t.Errorf("identity must be resolved once, listed %d times", svc.listCalls)
	}
	if svc.createCalls != 1 {
		t.Errorf("identity must be created once, created %d times", svc.createCalls)
	}
}

func TestInitializeFailurePropagates(t *testing.T) {
	svc := newFakeReasoning(completedRun("run_1"))
	svc.listErr = errors.New("service down")

	agent := newTestAgent(svc, nil)
	resp := agent.Chat(context.Background(), []models.Message{models.UserMessage("Hi")}, nil)

	if resp.Success {
		t.Fatal("initialization failure must fail the turn")
	}
	if len(svc.createdThreads) != 0 {
		t.Error("no thread should be created when initialization fails")
	}
}

func TestChatStreamTerminatesWithComplete(t *testing.T) {
	svc := newFakeReasoning(
		actionRun("run_1", ports.ToolCall{ID: "call_1", Name: "echo", Arguments: `{"value":"x"}`}),
		completedRun("run_1"),
	)

	agent := newTestAgent(svc, func(r *Registry) {
		r.Register("echo", func(ctx context.Context, args map[string]any) (any, error) {
			return args["value"], nil
		})
	})

	var events []StreamEvent
	for ev := range agent.ChatStream(context.Background(), []models.Message{models.UserMessage("Hi")}, nil) {
		events = append(events, ev)
	}

	if len(events) == 0 {
		t.Fatal("expected events")
	}
	terminal := 0
	for i, ev := range events {
		if ev.IsTerminal() {
			terminal++
			if i != len(events)-1 {
				t.Errorf("terminal event at position %d of %d", i, len(events))
			}
		}
	}
	if terminal != 1 {
		t.Fatalf("expected exactly one terminal event, got %d", terminal)
	}
	last := events[len(events)-1]
	if last.Type != EventComplete {
		t.Fatalf("expected complete, got %s", last.Type)
	}
	if last.Data["response"] != "Hello there." {
		t.Errorf("complete event missing reply: %v", last.Data)
	}

	var sawToolCall, sawToolResult bool
	for _, ev := range events {
		switch ev.Type {
		case EventToolCall:
			sawToolCall = true
		case EventToolResult:
			sawToolResult = true
		}
	}
	if !sawToolCall || !sawToolResult {
		t.Errorf("expected tool_call and tool_result events, got %+v", events)
	}
}

func TestChatStreamTerminatesWithError(t *testing.T) {
	svc := newFakeReasoning(failedRun("run_1", "bad day"))

	agent := newTestAgent(svc, nil)

	var events []StreamEvent
	for ev := range agent.ChatStream(context.Background(), []models.Message{models.UserMessage("Hi")}, nil) {
		events = append(events, ev)
	}

	if len(events) == 0 {
		t.Fatal("expected events")
	}
	last := events[len(events)-1]
	if last.Type != EventError {
		t.Fatalf("expected error terminal, got %s", last.Type)
	}
	for _, ev := range events[:len(events)-1] {
		if ev.IsTerminal() {
			t.Error("terminal event before end of stream")
		}
	}
}

func TestFormatSSE(t *testing.T) {
	frame := FormatSSE(statusEvent("running", "Processing..."))
	if !strings.HasPrefix(frame, "event: status\ndata: ") {
		t.Errorf("bad frame prefix: %q", frame)
	}
	if !strings.HasSuffix(frame, "\n\n") {
		t.Errorf("frame must end with a blank line: %q", frame)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("a", func(ctx context.Context, args map[string]any) (any, error) { return 1, nil })
	r.Register("b", func(ctx context.Context, args map[string]any) (any, error) { return 2, nil })

	if _, ok := r.Get("a"); !ok {
		t.Error("registered handler not found")
	}
	if _, ok := r.Get("c"); ok {
		t.Error("unregistered handler found")
	}
	if len(r.Names()) != 2 {
		t.Errorf("expected 2 names, got %v", r.Names())
	}
}
