package ports

import "context"

// RunStatus is the state of one remote run.
type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCompleted      RunStatus = "completed"
	RunFailed         RunStatus = "failed"
	RunExpired        RunStatus = "expired"
)

// IsTerminal reports whether the run can no longer advance.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunExpired
}

// ToolCall is a request from the reasoning service for local computation.
// Arguments is the raw JSON string the service produced.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// RequiredAction carries the batch of tool calls a run is blocked on.
type RequiredAction struct {
	ToolCalls []ToolCall
}

// RunError is the remote-reported failure detail, when available.
type RunError struct {
	Code    string
	Message string
}

// Run is one remote "process this thread" job.
type Run struct {
	ID             string
	Status         RunStatus
	RequiredAction *RequiredAction
	LastError      *RunError
}

// ToolOutput resolves exactly one ToolCall. Output is a JSON-encoded
// result string.
type ToolOutput struct {
	ToolCallID string
	Output     string
}

// Assistant is a durable remote agent identity.
type Assistant struct {
	ID   string
	Name string
}

// ToolDefinition declares one tool in an assistant's manifest. Parameters
// is a JSON-schema object describing the arguments.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// AssistantSpec is the registration payload for a new assistant identity.
type AssistantSpec struct {
	Name         string
	Model        string
	Instructions string
	Tools        []ToolDefinition
}

// MessageContent is one content block of a thread message.
type MessageContent struct {
	Type string
	Text string
}

// ThreadMessage is a message as stored in a remote thread.
type ThreadMessage struct {
	Role    string
	Content []MessageContent
}

// ReasoningService abstracts any provider exposing the asynchronous
// "submit work, poll, resolve pending tool calls, retrieve result"
// pattern. The orchestration state machine depends only on this interface.
//
// CreateRunAndPoll and SubmitToolOutputs both block until the run settles
// out of queued/in_progress, collapsing the provider's poller objects into
// a single call.
type ReasoningService interface {
	ListAssistants(ctx context.Context) ([]Assistant, error)
	CreateAssistant(ctx context.Context, spec AssistantSpec) (*Assistant, error)

	CreateThread(ctx context.Context) (string, error)
	DeleteThread(ctx context.Context, threadID string) error

	CreateMessage(ctx context.Context, threadID, role, content string) error
	// ListMessages returns the thread's messages newest first.
	ListMessages(ctx context.Context, threadID string) ([]ThreadMessage, error)

	CreateRunAndPoll(ctx context.Context, threadID, assistantID string) (*Run, error)
	GetRun(ctx context.Context, threadID, runID string) (*Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*Run, error)
}
