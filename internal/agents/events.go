package agents

import (
	"encoding/json"
	"fmt"
)

// EventType is the closed set of stream event kinds a streaming turn can
// emit.
type EventType string

const (
	EventStatus     EventType = "status"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventThinking   EventType = "thinking"
	EventComplete   EventType = "complete"
	EventError      EventType = "error"
)

// StreamEvent is one entry in the live event sequence of a streaming turn.
// A stream carries zero or more non-terminal events followed by exactly
// one EventComplete or EventError.
type StreamEvent struct {
	Type EventType      `json:"type"`
	Data map[string]any `json:"data"`
}

// IsTerminal reports whether no further events follow this one.
func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

func statusEvent(status, message string) StreamEvent {
	return StreamEvent{Type: EventStatus, Data: map[string]any{"status": status, "message": message}}
}

func thinkingEvent(iteration int) StreamEvent {
	return StreamEvent{Type: EventThinking, Data: map[string]any{"status": "thinking", "iteration": iteration}}
}

func toolCallEvent(name string, args map[string]any) StreamEvent {
	return StreamEvent{Type: EventToolCall, Data: map[string]any{"tool": name, "arguments": args}}
}

func toolResultEvent(toolCallID string, result any) StreamEvent {
	return StreamEvent{Type: EventToolResult, Data: map[string]any{"toolCallId": toolCallID, "result": result}}
}

func completeEvent(resp *Response) StreamEvent {
	return StreamEvent{Type: EventComplete, Data: map[string]any{
		"response":  resp.Message,
		"toolCalls": resp.ToolCalls,
		"metadata":  resp.Metadata,
	}}
}

func errorEvent(err error) StreamEvent {
	return StreamEvent{Type: EventError, Data: map[string]any{"error": err.Error()}}
}

// FormatSSE renders an event as a server-sent-events text frame:
// "event: <type>\ndata: <JSON>\n\n".
func FormatSSE(ev StreamEvent) string {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		data = []byte(`{}`)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, data)
}
