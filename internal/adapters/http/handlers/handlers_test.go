package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/advisim/advisim/internal/agents"
	"github.com/advisim/advisim/internal/domain"
	"github.com/advisim/advisim/internal/domain/models"
	"github.com/advisim/advisim/internal/services"
)

type fakeSimulation struct {
	startResult *services.StartResult
	startErr    error
	messageResp *agents.ClientResponse
	messageErr  error
	endResult   *agents.ReviewResult
	endErr      error
}

func (f *fakeSimulation) Start(_ context.Context, _ services.StartRequest) (*services.StartResult, error) {
	return f.startResult, f.startErr
}

func (f *fakeSimulation) Message(_ context.Context, _ string, _ []models.Message) (*agents.ClientResponse, error) {
	return f.messageResp, f.messageErr
}

func (f *fakeSimulation) End(_ context.Context, _ string, _ []models.Message) (*agents.ReviewResult, error) {
	return f.endResult, f.endErr
}

func (f *fakeSimulation) Guidance(_ context.Context, _, _ string, _ []models.Message) (*agents.Response, error) {
	return &agents.Response{Success: true, Message: "Ask open questions."}, nil
}

func (f *fakeSimulation) Sessions(_ context.Context, _ string, _, _ int) ([]*models.SimulationSession, error) {
	return nil, nil
}

type fakeChatter struct {
	resp    *agents.Response
	events  []agents.StreamEvent
	lastCtx map[string]any
}

func (f *fakeChatter) Chat(_ context.Context, _ []models.Message, simCtx map[string]any) *agents.Response {
	f.lastCtx = simCtx
	return f.resp
}

func (f *fakeChatter) ChatStream(_ context.Context, _ []models.Message, simCtx map[string]any) <-chan agents.StreamEvent {
	f.lastCtx = simCtx
	ch := make(chan agents.StreamEvent, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch
}

func TestSimulationStartValidation(t *testing.T) {
	h := NewSimulationHandler(&fakeSimulation{})

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest("POST", "/api/v1/simulation/start", strings.NewReader(`{"industry":"insurance"}`)))
	if rec.Code != 400 {
		t.Errorf("missing difficulty: status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest("POST", "/api/v1/simulation/start", strings.NewReader(`not json`)))
	if rec.Code != 400 {
		t.Errorf("bad body: status = %d, want 400", rec.Code)
	}
}

func TestSimulationStartReturnsProfile(t *testing.T) {
	profile := &agents.GeneratedProfile{Name: "Miguel Torres", Age: 37}
	h := NewSimulationHandler(&fakeSimulation{
		startResult: &services.StartResult{SessionID: "sim_1", Profile: profile},
	})

	rec := httptest.NewRecorder()
	h.Start(rec, httptest.NewRequest("POST", "/api/v1/simulation/start",
		strings.NewReader(`{"industry":"insurance","difficulty":"beginner"}`)))
	if rec.Code != 201 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp startSimulationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.SessionID != "sim_1" || resp.Profile.Name != "Miguel Torres" {
		t.Errorf("response = %+v", resp)
	}
}

func TestSimulationMessageUnknownSession(t *testing.T) {
	h := NewSimulationHandler(&fakeSimulation{messageErr: domain.ErrSessionNotFound})

	rec := httptest.NewRecorder()
	h.Message(rec, httptest.NewRequest("POST", "/api/v1/simulation/message",
		strings.NewReader(`{"session_id":"sim_x","messages":[{"role":"user","content":"hi"}]}`)))
	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSimulationEndReturnsReview(t *testing.T) {
	h := NewSimulationHandler(&fakeSimulation{
		endResult: &agents.ReviewResult{
			Response: &agents.Response{Success: true},
			Review:   &models.PerformanceReview{OverallScore: 8.0},
		},
	})

	rec := httptest.NewRecorder()
	h.End(rec, httptest.NewRequest("POST", "/api/v1/simulation/end",
		strings.NewReader(`{"session_id":"sim_1","transcript":[]}`)))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"overallScore":8`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestChatSyncTurn(t *testing.T) {
	chatter := &fakeChatter{resp: &agents.Response{Success: true, Message: "Hello there."}}
	store := agents.NewContextStore()
	store.Set("sim_1", &models.SimulationContext{
		SessionID:     "sim_1",
		ClientProfile: models.ClientProfile{Name: "Dana Whitfield"},
	})
	h := NewChatHandler(chatter, store)

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest("POST", "/api/v1/chat",
		strings.NewReader(`{"session_id":"sim_1","messages":[{"role":"user","content":"hi"}]}`)))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Hello there.") {
		t.Errorf("body = %s", rec.Body.String())
	}

	if chatter.lastCtx == nil {
		t.Fatal("session context not forwarded")
	}
	profile, _ := chatter.lastCtx["client_profile"].(map[string]any)
	if profile["name"] != "Dana Whitfield" {
		t.Errorf("context = %+v", chatter.lastCtx)
	}
}

func TestChatStreamFramesSSE(t *testing.T) {
	chatter := &fakeChatter{events: []agents.StreamEvent{
		{Type: agents.EventStatus, Data: map[string]any{"status": "starting"}},
		{Type: agents.EventComplete, Data: map[string]any{"response": "Done."}},
	}}
	h := NewChatHandler(chatter, nil)

	rec := httptest.NewRecorder()
	h.Stream(rec, httptest.NewRequest("POST", "/api/v1/chat/stream",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`)))

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: status\n") {
		t.Errorf("missing status frame: %s", body)
	}
	if !strings.Contains(body, "event: complete\n") {
		t.Errorf("missing terminal frame: %s", body)
	}
	if !strings.HasSuffix(body, "\n\n") {
		t.Errorf("frames must end with a blank line: %q", body)
	}
}

func TestChatRejectsEmptyMessages(t *testing.T) {
	h := NewChatHandler(&fakeChatter{}, nil)

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader(`{"messages":[]}`)))
	if rec.Code != 400 {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
