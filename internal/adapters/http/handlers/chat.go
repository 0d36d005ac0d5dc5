package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/advisim/advisim/internal/agents"
	"github.com/advisim/advisim/internal/domain/models"
)

// Chatter is one orchestrated agent turn, sync or streaming.
type Chatter interface {
	Chat(ctx context.Context, messages []models.Message, simCtx map[string]any) *agents.Response
	ChatStream(ctx context.Context, messages []models.Message, simCtx map[string]any) <-chan agents.StreamEvent
}

// ChatHandler drives direct agent conversations. When the request names a
// live session its context rides along with the turn.
type ChatHandler struct {
	agent Chatter
	store *agents.ContextStore
}

func NewChatHandler(agent Chatter, store *agents.ContextStore) *ChatHandler {
	return &ChatHandler{agent: agent, store: store}
}

type chatRequest struct {
	SessionID string           `json:"session_id,omitempty"`
	Messages  []models.Message `json:"messages"`
}

// Create handles POST /api/v1/chat.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		respondError(w, "messages are required", http.StatusBadRequest)
		return
	}

	resp := h.agent.Chat(r.Context(), req.Messages, h.sessionContext(req.SessionID))
	respondJSON(w, resp, http.StatusOK)
}

// Stream handles POST /api/v1/chat/stream. Events are framed as SSE and
// flushed as they arrive; the stream always ends with a terminal event.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		respondError(w, "messages are required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range h.agent.ChatStream(r.Context(), req.Messages, h.sessionContext(req.SessionID)) {
		if _, err := w.Write([]byte(agents.FormatSSE(ev))); err != nil {
			return
		}
		flusher.Flush()
	}
}

// sessionContext condenses the stored session context into the map form
// the orchestrator serializes into the thread.
func (h *ChatHandler) sessionContext(sessionID string) map[string]any {
	if sessionID == "" || h.store == nil {
		return nil
	}
	simCtx, ok := h.store.Get(sessionID)
	if !ok {
		return nil
	}

	raw, err := json.Marshal(simCtx)
	if err != nil {
		return nil
	}
	condensed := map[string]any{}
	if err := json.Unmarshal(raw, &condensed); err != nil {
		return nil
	}
	return condensed
}
