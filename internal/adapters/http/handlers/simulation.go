package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/advisim/advisim/internal/agents"
	"github.com/advisim/advisim/internal/domain"
	"github.com/advisim/advisim/internal/domain/models"
	"github.com/advisim/advisim/internal/services"
)

// SimulationAPI is the session lifecycle the handler exposes.
type SimulationAPI interface {
	Start(ctx context.Context, req services.StartRequest) (*services.StartResult, error)
	Message(ctx context.Context, sessionID string, messages []models.Message) (*agents.ClientResponse, error)
	End(ctx context.Context, sessionID string, transcript []models.Message) (*agents.ReviewResult, error)
	Guidance(ctx context.Context, sessionID, question string, transcript []models.Message) (*agents.Response, error)
	Sessions(ctx context.Context, userID string, limit, offset int) ([]*models.SimulationSession, error)
}

type SimulationHandler struct {
	svc SimulationAPI
}

func NewSimulationHandler(svc SimulationAPI) *SimulationHandler {
	return &SimulationHandler{svc: svc}
}

type startSimulationRequest struct {
	Industry         string   `json:"industry"`
	Subcategory      string   `json:"subcategory,omitempty"`
	Difficulty       string   `json:"difficulty"`
	Competencies     []string `json:"competencies,omitempty"`
	ExistingProfiles []string `json:"existing_profiles,omitempty"`
}

type startSimulationResponse struct {
	SessionID string                    `json:"session_id"`
	Profile   *agents.GeneratedProfile  `json:"profile"`
	Session   *models.SimulationSession `json:"session,omitempty"`
}

// Start handles POST /api/v1/simulation/start.
func (h *SimulationHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Industry == "" || req.Difficulty == "" {
		respondError(w, "industry and difficulty are required", http.StatusBadRequest)
		return
	}

	result, err := h.svc.Start(r.Context(), services.StartRequest{
		UserID:           UserIDFromContext(r.Context()),
		Industry:         req.Industry,
		Subcategory:      req.Subcategory,
		Difficulty:       req.Difficulty,
		Competencies:     req.Competencies,
		ExistingProfiles: req.ExistingProfiles,
	})
	if err != nil {
		respondError(w, err.Error(), http.StatusBadGateway)
		return
	}

	respondJSON(w, startSimulationResponse{
		SessionID: result.SessionID,
		Profile:   result.Profile,
		Session:   result.Session,
	}, http.StatusCreated)
}

type simulationMessageRequest struct {
	SessionID string           `json:"session_id"`
	Messages  []models.Message `json:"messages"`
}

// Message handles POST /api/v1/simulation/message.
func (h *SimulationHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req simulationMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		respondError(w, "session_id is required", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		respondError(w, "messages are required", http.StatusBadRequest)
		return
	}

	resp, err := h.svc.Message(r.Context(), req.SessionID, req.Messages)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, resp, http.StatusOK)
}

type endSimulationRequest struct {
	SessionID  string           `json:"session_id"`
	Transcript []models.Message `json:"transcript"`
}

// End handles POST /api/v1/simulation/end.
func (h *SimulationHandler) End(w http.ResponseWriter, r *http.Request) {
	var req endSimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		respondError(w, "session_id is required", http.StatusBadRequest)
		return
	}

	review, err := h.svc.End(r.Context(), req.SessionID, req.Transcript)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, review, http.StatusOK)
}

type guidanceRequest struct {
	SessionID  string           `json:"session_id"`
	Question   string           `json:"question"`
	Transcript []models.Message `json:"transcript,omitempty"`
}

// Guidance handles POST /api/v1/simulation/guidance.
func (h *SimulationHandler) Guidance(w http.ResponseWriter, r *http.Request) {
	var req guidanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" || req.Question == "" {
		respondError(w, "session_id and question are required", http.StatusBadRequest)
		return
	}

	resp, err := h.svc.Guidance(r.Context(), req.SessionID, req.Question, req.Transcript)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			respondError(w, err.Error(), http.StatusNotFound)
			return
		}
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, resp, http.StatusOK)
}

// List handles GET /api/v1/simulation/sessions.
func (h *SimulationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	sessions, err := h.svc.Sessions(r.Context(), UserIDFromContext(r.Context()), limit, offset)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []*models.SimulationSession{}
	}
	respondJSON(w, map[string]any{"sessions": sessions}, http.StatusOK)
}
