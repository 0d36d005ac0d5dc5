package assistants

import (
	"context"
	"fmt"
	"time"

	"github.com/advisim/advisim/internal/adapters/circuitbreaker"
	"github.com/advisim/advisim/internal/ports"
)

const (
	// pollInterval is the delay between status checks while a freshly
	// created or resumed run is still queued or in progress.
	pollInterval = 1 * time.Second

	// runSettleTimeout caps how long a single blocking call waits for a
	// run to leave queued/in_progress.
	runSettleTimeout = 2 * time.Minute
)

// Service implements ports.ReasoningService against an
// OpenAI-assistants-style REST API. Outbound calls share one circuit
// breaker so a dead upstream fails fast instead of tying up turns.
type Service struct {
	client  *client
	breaker *circuitbreaker.CircuitBreaker
}

func New(baseURL, apiKey string) *Service {
	return &Service{
		client:  newClient(baseURL, apiKey),
		breaker: circuitbreaker.New(5, 30*time.Second),
	}
}

type assistantDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type listDTO[T any] struct {
	Data []T `json:"data"`
}

type toolDTO struct {
	Type     string      `json:"type"`
	Function functionDTO `json:"function"`
}

type functionDTO struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type threadDTO struct {
	ID string `json:"id"`
}

type runDTO struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	RequiredAction *struct {
		SubmitToolOutputs struct {
			ToolCalls []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"submit_tool_outputs"`
	} `json:"required_action"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error"`
}

type messageDTO struct {
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text struct {
			Value string `json:"value"`
		} `json:"text"`
	} `json:"content"`
}

func (r runDTO) toRun() *ports.Run {
	run := &ports.Run{
		ID:     r.ID,
		Status: ports.RunStatus(r.Status),
	}
	if r.RequiredAction != nil {
		action := &ports.RequiredAction{}
		for _, call := range r.RequiredAction.SubmitToolOutputs.ToolCalls {
			action.ToolCalls = append(action.ToolCalls, ports.ToolCall{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			})
		}
		run.RequiredAction = action
	}
	if r.LastError != nil {
		run.LastError = &ports.RunError{Code: r.LastError.Code, Message: r.LastError.Message}
	}
	return run
}

func (s *Service) ListAssistants(ctx context.Context) ([]ports.Assistant, error) {
	var list listDTO[assistantDTO]
	err := s.breaker.Execute(func() error {
		return s.client.getJSON(ctx, "/assistants", &list)
	})
	if err != nil {
		return nil, fmt.Errorf("list assistants: %w", err)
	}

	assistants := make([]ports.Assistant, 0, len(list.Data))
	for _, a := range list.Data {
		assistants = append(assistants, ports.Assistant{ID: a.ID, Name: a.Name})
	}
	return assistants, nil
}

func (s *Service) CreateAssistant(ctx context.Context, spec ports.AssistantSpec) (*ports.Assistant, error) {
	tools := make([]toolDTO, 0, len(spec.Tools))
	for _, tool := range spec.Tools {
		tools = append(tools, toolDTO{
			Type: "function",
			Function: functionDTO{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	payload := map[string]any{
		"name":         spec.Name,
		"model":        spec.Model,
		"instructions": spec.Instructions,
		"tools":        tools,
	}

	var created assistantDTO
	err := s.breaker.Execute(func() error {
		return s.client.postJSON(ctx, "/assistants", payload, &created)
	})
	if err != nil {
		return nil, fmt.Errorf("create assistant: %w", err)
	}
	return &ports.Assistant{ID: created.ID, Name: created.Name}, nil
}

func (s *Service) CreateThread(ctx context.Context) (string, error) {
	var thread threadDTO
	err := s.breaker.Execute(func() error {
		return s.client.postJSON(ctx, "/threads", map[string]any{}, &thread)
	})
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return thread.ID, nil
}

func (s *Service) DeleteThread(ctx context.Context, threadID string) error {
	err := s.breaker.Execute(func() error {
		return s.client.delete(ctx, "/threads/"+threadID)
	})
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	return nil
}

func (s *Service) CreateMessage(ctx context.Context, threadID, role, content string) error {
	payload := map[string]any{"role": role, "content": content}
	err := s.breaker.Execute(func() error {
		return s.client.postJSON(ctx, "/threads/"+threadID+"/messages", payload, nil)
	})
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (s *Service) ListMessages(ctx context.Context, threadID string) ([]ports.ThreadMessage, error) {
	var list listDTO[messageDTO]
	err := s.breaker.Execute(func() error {
		return s.client.getJSON(ctx, "/threads/"+threadID+"/messages?order=desc", &list)
	})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	messages := make([]ports.ThreadMessage, 0, len(list.Data))
	for _, m := range list.Data {
		msg := ports.ThreadMessage{Role: m.Role}
		for _, block := range m.Content {
			msg.Content = append(msg.Content, ports.MessageContent{Type: block.Type, Text: block.Text.Value})
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *Service) CreateRunAndPoll(ctx context.Context, threadID, assistantID string) (*ports.Run, error) {
	payload := map[string]any{"assistant_id": assistantID}

	var dto runDTO
	err := s.breaker.Execute(func() error {
		return s.client.postJSON(ctx, "/threads/"+threadID+"/runs", payload, &dto)
	})
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return s.pollUntilSettled(ctx, threadID, dto.toRun())
}

func (s *Service) GetRun(ctx context.Context, threadID, runID string) (*ports.Run, error) {
	var dto runDTO
	err := s.breaker.Execute(func() error {
		return s.client.getJSON(ctx, "/threads/"+threadID+"/runs/"+runID, &dto)
	})
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return dto.toRun(), nil
}

func (s *Service) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ports.ToolOutput) (*ports.Run, error) {
	toolOutputs := make([]map[string]any, 0, len(outputs))
	for _, out := range outputs {
		toolOutputs = append(toolOutputs, map[string]any{
			"tool_call_id": out.ToolCallID,
			"output":       out.Output,
		})
	}
	payload := map[string]any{"tool_outputs": toolOutputs}

	var dto runDTO
	err := s.breaker.Execute(func() error {
		return s.client.postJSON(ctx, "/threads/"+threadID+"/runs/"+runID+"/submit_tool_outputs", payload, &dto)
	})
	if err != nil {
		return nil, fmt.Errorf("submit tool outputs: %w", err)
	}
	return s.pollUntilSettled(ctx, threadID, dto.toRun())
}

// pollUntilSettled re-reads the run until it leaves queued/in_progress.
// requires_action counts as settled: resolving it is the caller's job.
func (s *Service) pollUntilSettled(ctx context.Context, threadID string, run *ports.Run) (*ports.Run, error) {
	ctx, cancel := context.WithTimeout(ctx, runSettleTimeout)
	defer cancel()

	for run.Status == ports.RunQueued || run.Status == ports.RunInProgress {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("run %s did not settle: %w", run.ID, ctx.Err())
		case <-time.After(pollInterval):
		}

		var err error
		run, err = s.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return nil, err
		}
	}
	return run, nil
}
