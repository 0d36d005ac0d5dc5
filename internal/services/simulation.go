package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/advisim/advisim/internal/adapters/metrics"
	"github.com/advisim/advisim/internal/agents"
	"github.com/advisim/advisim/internal/domain"
	"github.com/advisim/advisim/internal/domain/models"
	"github.com/advisim/advisim/internal/ports"
)

// ProfileGenerator produces a client persona for a scenario.
type ProfileGenerator interface {
	GenerateProfile(ctx context.Context, req agents.ProfileRequest) *agents.ProfileResult
}

// ClientResponder produces the simulated client's next turn.
type ClientResponder interface {
	GenerateResponse(ctx context.Context, messages []models.Message, simCtx *models.SimulationContext) *agents.ClientResponse
}

// Reviewer scores a finished transcript.
type Reviewer interface {
	GenerateReview(ctx context.Context, req agents.EvaluationRequest) *agents.ReviewResult
}

// Adviser answers coaching questions about a live session.
type Adviser interface {
	GenerateGuidance(ctx context.Context, sessionID, question string, transcript []models.Message) *agents.Response
}

// SimulationService runs the training session lifecycle: profile
// generation at start, client turns while the session is live, evaluation
// at the end.
type SimulationService struct {
	ids          ports.IDGenerator
	sessions     ports.SessionRepository
	competencies ports.CompetencyRepository
	store        *agents.ContextStore

	profiles  ProfileGenerator
	client    ClientResponder
	evaluator Reviewer
	adviser   Adviser
}

func NewSimulationService(
	ids ports.IDGenerator,
	sessions ports.SessionRepository,
	competencies ports.CompetencyRepository,
	store *agents.ContextStore,
	profiles ProfileGenerator,
	client ClientResponder,
	evaluator Reviewer,
	adviser Adviser,
) *SimulationService {
	return &SimulationService{
		ids:          ids,
		sessions:     sessions,
		competencies: competencies,
		store:        store,
		profiles:     profiles,
		client:       client,
		evaluator:    evaluator,
		adviser:      adviser,
	}
}

// StartRequest selects the scenario for a new session.
type StartRequest struct {
	UserID           string
	Industry         string
	Subcategory      string
	Difficulty       string
	Competencies     []string
	ExistingProfiles []string
}

// StartResult is the started session plus the generated persona.
type StartResult struct {
	SessionID string
	Profile   *agents.GeneratedProfile
	Session   *models.SimulationSession
}

// Start generates a persona, persists the session record and primes the
// context store. The session is live once Start returns.
func (svc *SimulationService) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	result := svc.profiles.GenerateProfile(ctx, agents.ProfileRequest{
		Industry:         req.Industry,
		Subcategory:      req.Subcategory,
		Difficulty:       req.Difficulty,
		ExistingProfiles: req.ExistingProfiles,
	})
	if result.Profile == nil {
		return nil, fmt.Errorf("profile generation failed: %s", result.Message)
	}
	profile := result.Profile

	sessionID := svc.ids.GenerateSessionID()
	session := models.NewSimulationSession(sessionID, req.UserID, req.Industry, req.Difficulty)
	if svc.sessions != nil {
		if err := svc.sessions.Create(ctx, session); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
	}

	state := models.DefaultEmotionalState()
	svc.store.Set(sessionID, &models.SimulationContext{
		SessionID: sessionID,
		ClientProfile: models.ClientProfile{
			Name:       profile.Name,
			Age:        profile.Age,
			Occupation: profile.Occupation,
			Income:     profile.Income,
			Family:     profile.Family,
			Assets:     profile.Assets,
			Debts:      profile.Debts,
			Goals:      profile.Goals,
			Traits:     profile.Personality.Traits,
		},
		PersonalitySettings: models.PersonalitySettings{
			Mood:               profile.Personality.Mood,
			Archetype:          profile.Personality.Archetype,
			Traits:             profile.Personality.Traits,
			CommunicationStyle: profile.Personality.CommunicationStyle,
		},
		SimulationSettings: models.SimulationSettings{
			Industry:     req.Industry,
			Subcategory:  req.Subcategory,
			Difficulty:   req.Difficulty,
			Competencies: req.Competencies,
		},
		EmotionalState: &state,
	})

	metrics.SessionsActive.Inc()
	slog.Info("simulation started", "session_id", sessionID, "industry", req.Industry, "difficulty", req.Difficulty)

	return &StartResult{SessionID: sessionID, Profile: profile, Session: session}, nil
}

// Message produces the client's reply to the advisor's latest turn.
func (svc *SimulationService) Message(ctx context.Context, sessionID string, messages []models.Message) (*agents.ClientResponse, error) {
	simCtx, ok := svc.store.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return svc.client.GenerateResponse(ctx, messages, simCtx), nil
}

// End scores the transcript, closes the session record and evicts the
// session context. The review is returned even when persisting the score
// fails; the failure is logged.
func (svc *SimulationService) End(ctx context.Context, sessionID string, transcript []models.Message) (*agents.ReviewResult, error) {
	simCtx, ok := svc.store.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	var competencies []*models.Competency
	if svc.competencies != nil {
		stored, err := svc.competencies.List(ctx, simCtx.SimulationSettings.Competencies)
		if err != nil {
			slog.Warn("competency lookup failed for evaluation", "session_id", sessionID, "error", err)
		} else {
			competencies = stored
		}
	}

	review := svc.evaluator.GenerateReview(ctx, agents.EvaluationRequest{
		Messages:     transcript,
		Competencies: competencies,
		Difficulty:   simCtx.SimulationSettings.Difficulty,
	})

	if svc.sessions != nil && review.Review != nil {
		if session, err := svc.sessions.GetByID(ctx, sessionID); err != nil {
			slog.Warn("session lookup failed at end", "session_id", sessionID, "error", err)
		} else if session != nil {
			session.Complete(review.Review.OverallScore)
			if err := svc.sessions.Update(ctx, session); err != nil {
				slog.Warn("session update failed at end", "session_id", sessionID, "error", err)
			}
		}
	}

	svc.store.Delete(sessionID)
	metrics.SessionsActive.Dec()
	slog.Info("simulation ended", "session_id", sessionID, "scored", review.Review != nil)

	return review, nil
}

// Guidance answers an advisor's coaching question about a live session.
func (svc *SimulationService) Guidance(ctx context.Context, sessionID, question string, transcript []models.Message) (*agents.Response, error) {
	if _, ok := svc.store.Get(sessionID); !ok {
		return nil, domain.ErrSessionNotFound
	}
	return svc.adviser.GenerateGuidance(ctx, sessionID, question, transcript), nil
}

// Sessions lists a user's past sessions.
func (svc *SimulationService) Sessions(ctx context.Context, userID string, limit, offset int) ([]*models.SimulationSession, error) {
	if svc.sessions == nil {
		return nil, nil
	}
	return svc.sessions.ListByUserID(ctx, userID, limit, offset)
}
