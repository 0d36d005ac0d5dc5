package agents

import (
	"context"
	"fmt"
	"sync"

	"github.com/advisim/advisim/internal/ports"
)

// fakeReasoning is a scripted ReasoningService. Each call that can settle
// a run (CreateRunAndPoll, SubmitToolOutputs, GetRun) pops the next run
// from the script; when the script is exhausted the last entry repeats.
type fakeReasoning struct {
	mu sync.Mutex

	assistants []ports.Assistant
	script     []*ports.Run
	scriptPos  int

	reply []ports.ThreadMessage

	listCalls      int
	createCalls    int
	threadSeq      int
	createdThreads []string
	deletedThreads []string
	messages       map[string][]fakeMessage
	submissions    [][]ports.ToolOutput

	listErr      error
	createRunErr error
}

type fakeMessage struct {
	role    string
	content string
}

func newFakeReasoning(script ...*ports.Run) *fakeReasoning {
	return &fakeReasoning{
		script:   script,
		messages: make(map[string][]fakeMessage),
		reply: []ports.ThreadMessage{
			{Role: "assistant", Content: []ports.MessageContent{{Type: "text", Text: "Hello there."}}},
		},
	}
}

func (f *fakeReasoning) nextRun() *ports.Run {
	if f.scriptPos >= len(f.script) {
		return f.script[len(f.script)-1]
	}
	run := f.script[f.scriptPos]
	f.scriptPos++
	return run
}

func (f *fakeReasoning) ListAssistants(ctx context.Context) ([]ports.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.assistants, nil
}

func (f *fakeReasoning) CreateAssistant(ctx context.Context, spec ports.AssistantSpec) (*ports.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	assistant := ports.Assistant{ID: fmt.Sprintf("asst_%d", f.createCalls), Name: spec.Name}
	f.assistants = append(f.assistants, assistant)
	return &assistant, nil
}

func (f *fakeReasoning) CreateThread(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadSeq++
	id := fmt.Sprintf("thread_%d", f.threadSeq)
	f.createdThreads = append(f.createdThreads, id)
	return id, nil
}

func (f *fakeReasoning) DeleteThread(ctx context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedThreads = append(f.deletedThreads, threadID)
	return nil
}

func (f *fakeReasoning) CreateMessage(ctx context.Context, threadID, role, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[threadID] = append(f.messages[threadID], fakeMessage{role: role, content: content})
	return nil
}

func (f *fakeReasoning) ListMessages(ctx context.Context, threadID string) ([]ports.ThreadMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reply, nil
}

func (f *fakeReasoning) CreateRunAndPoll(ctx context.Context, threadID, assistantID string) (*ports.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createRunErr != nil {
		return nil, f.createRunErr
	}
	return f.nextRun(), nil
}

func (f *fakeReasoning) GetRun(ctx context.Context, threadID, runID string) (*ports.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextRun(), nil
}

func (f *fakeReasoning) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ports.ToolOutput) (*ports.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions = append(f.submissions, outputs)
	return f.nextRun(), nil
}

func completedRun(id string) *ports.Run {
	return &ports.Run{ID: id, Status: ports.RunCompleted}
}

func actionRun(id string, calls ...ports.ToolCall) *ports.Run {
	return &ports.Run{
		ID:             id,
		Status:         ports.RunRequiresAction,
		RequiredAction: &ports.RequiredAction{ToolCalls: calls},
	}
}

func failedRun(id, message string) *ports.Run {
	run := &ports.Run{ID: id, Status: ports.RunFailed}
	if message != "" {
		run.LastError = &ports.RunError{Code: "server_error", Message: message}
	}
	return run
}
