package assistants

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/advisim/advisim/internal/ports"
)

func TestListAssistantsSendsAuth(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "asst_1", "name": "simulation-client"},
				{"id": "asst_2", "name": "evaluation"},
			},
		})
	}))
	defer server.Close()

	svc := New(server.URL, "secret-key")
	assistants, err := svc.ListAssistants(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer secret-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if len(assistants) != 2 || assistants[0].ID != "asst_1" {
		t.Errorf("unexpected assistants %+v", assistants)
	}
}

func TestCreateAssistantEncodesToolManifest(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assistants" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]any{"id": "asst_new", "name": body["name"]})
	}))
	defer server.Close()

	svc := New(server.URL, "")
	created, err := svc.CreateAssistant(context.Background(), ports.AssistantSpec{
		Name:         "test-agent",
		Model:        "gpt-test",
		Instructions: "Be helpful.",
		Tools: []ports.ToolDefinition{
			{
				Name:        "echo",
				Description: "Echo the input",
				Parameters:  map[string]any{"type": "object"},
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "asst_new" {
		t.Errorf("created = %+v", created)
	}

	tools := body["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("tool manifest lost: %v", body)
	}
	tool := tools[0].(map[string]any)
	if tool["type"] != "function" {
		t.Errorf("tool type = %v", tool["type"])
	}
	fn := tool["function"].(map[string]any)
	if fn["name"] != "echo" || fn["description"] != "Echo the input" {
		t.Errorf("function payload = %v", fn)
	}
}

func TestThreadLifecycle(t *testing.T) {
	var deleted string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/threads":
			json.NewEncoder(w).Encode(map[string]any{"id": "thread_abc"})
		case r.Method == http.MethodDelete:
			deleted = r.URL.Path
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	svc := New(server.URL, "")
	id, err := svc.CreateThread(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "thread_abc" {
		t.Errorf("thread id = %q", id)
	}

	if err := svc.DeleteThread(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != "/threads/thread_abc" {
		t.Errorf("delete path = %q", deleted)
	}
}

func TestListMessagesMapsContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("order") != "desc" {
			t.Error("messages must be requested newest first")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"role": "assistant",
					"content": []map[string]any{
						{"type": "text", "text": map[string]any{"value": "the reply"}},
					},
				},
				{
					"role": "user",
					"content": []map[string]any{
						{"type": "text", "text": map[string]any{"value": "the question"}},
					},
				},
			},
		})
	}))
	defer server.Close()

	svc := New(server.URL, "")
	messages, err := svc.ListMessages(context.Background(), "thread_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != "assistant" || messages[0].Content[0].Text != "the reply" {
		t.Errorf("mapping wrong: %+v", messages[0])
	}
}

func TestCreateRunAndPollSettles(t *testing.T) {
	var polls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/threads/thread_1/runs":
			json.NewEncoder(w).Encode(map[string]any{"id": "run_1", "status": "queued"})
		case r.Method == http.MethodGet && r.URL.Path == "/threads/thread_1/runs/run_1":
			if atomic.AddInt32(&polls, 1) < 2 {
				json.NewEncoder(w).Encode(map[string]any{"id": "run_1", "status": "in_progress"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"id":     "run_1",
				"status": "requires_action",
				"required_action": map[string]any{
					"submit_tool_outputs": map[string]any{
						"tool_calls": []map[string]any{
							{"id": "call_1", "function": map[string]any{"name": "echo", "arguments": `{"a":1}`}},
						},
					},
				},
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	svc := New(server.URL, "")
	run, err := svc.CreateRunAndPoll(context.Background(), "thread_1", "asst_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.Status != ports.RunRequiresAction {
		t.Fatalf("run did not settle on requires_action: %+v", run)
	}
	if run.RequiredAction == nil || len(run.RequiredAction.ToolCalls) != 1 {
		t.Fatalf("tool calls not mapped: %+v", run.RequiredAction)
	}
	call := run.RequiredAction.ToolCalls[0]
	if call.ID != "call_1" || call.Name != "echo" || call.Arguments != `{"a":1}` {
		t.Errorf("tool call mapping wrong: %+v", call)
	}
}

func TestSubmitToolOutputsPayload(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/threads/thread_1/runs/run_1/submit_tool_outputs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]any{"id": "run_1", "status": "completed"})
	}))
	defer server.Close()

	svc := New(server.URL, "")
	run, err := svc.SubmitToolOutputs(context.Background(), "thread_1", "run_1", []ports.ToolOutput{
		{ToolCallID: "call_1", Output: `{"ok":true}`},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Status != ports.RunCompleted {
		t.Errorf("run status = %s", run.Status)
	}

	outputs := body["tool_outputs"].([]any)
	out := outputs[0].(map[string]any)
	if out["tool_call_id"] != "call_1" || out["output"] != `{"ok":true}` {
		t.Errorf("output payload = %v", out)
	}
}

func TestRunErrorMapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "run_1",
			"status": "failed",
			"last_error": map[string]any{
				"code":    "rate_limit_exceeded",
				"message": "try later",
			},
		})
	}))
	defer server.Close()

	svc := New(server.URL, "")
	run, err := svc.GetRun(context.Background(), "thread_1", "run_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.LastError == nil || run.LastError.Message != "try later" {
		t.Errorf("last error not mapped: %+v", run.LastError)
	}
}
