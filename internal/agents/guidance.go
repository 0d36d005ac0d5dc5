package agents

import (
	"context"

	"github.com/advisim/advisim/internal/domain/models"
	"github.com/advisim/advisim/internal/ports"
)

const expertGuidanceInstructions = `You are an expert financial advisor trainer providing guidance to an advisor in a training simulation. Your role is to help advisors improve their skills and succeed in their client interactions.

GUIDANCE PRINCIPLES:
1. Be supportive and encouraging while being honest
2. Provide specific, actionable advice
3. Reference the actual conversation when giving suggestions
4. Consider the client's profile and personality when advising
5. Help advisors develop transferable skills

RESPONSE STYLE:
- Keep responses focused and practical
- Prioritize the most important advice first
- Suggest specific phrases or approaches when helpful
- Consider the difficulty level and adjust expectations accordingly

TOOL USAGE:
- Use get_objectives to understand current progress and goals
- Use get_context to retrieve simulation details and client info

Remember: You are helping the ADVISOR, not the client. Your goal is to improve their advisory skills.`

type getContextArgs struct {
	SessionID      string `json:"session_id" jsonschema:"required,description=The simulation session ID"`
	IncludeHistory bool   `json:"include_history" jsonschema:"description=Whether to include conversation history"`
}

// ExpertGuidanceAgent coaches the advisor mid-simulation. It reads from
// the same context store the simulation client writes into, so guidance
// reflects live objective progress.
type ExpertGuidanceAgent struct {
	*Agent
	store *ContextStore
}

func NewExpertGuidanceAgent(svc ports.ReasoningService, model, scope string, store *ContextStore) *ExpertGuidanceAgent {
	agent := &ExpertGuidanceAgent{store: store}

	def := Definition{
		Name:         scopedName(scope, "expert-guidance"),
		Instructions: expertGuidanceInstructions,
		Tools: []ports.ToolDefinition{
			{
				Name:        "get_objectives",
				Description: "Retrieve current simulation objectives and progress",
				Parameters:  SchemaFor(&sessionArgs{}),
			},
			{
				Name:        "get_context",
				Description: "Get the simulation context including client profile and settings",
				Parameters:  SchemaFor(&getContextArgs{}),
			},
		},
	}

	agent.Agent = New(def, svc, model, func(r *Registry) {
		r.Register("get_objectives", agent.handleGetObjectives)
		r.Register("get_context", agent.handleGetContext)
	})
	return agent
}

func (a *ExpertGuidanceAgent) handleGetObjectives(_ context.Context, args map[string]any) (any, error) {
	progress, _ := a.store.Objectives(stringArg(args, "session_id"))

	objectives := []map[string]any{
		{"name": "Building Rapport", "progress": progress.Rapport},
		{"name": "Needs Assessment", "progress": progress.Needs},
		{"name": "Handling Objections", "progress": progress.Objections},
		{"name": "Providing Recommendations", "progress": progress.Recommendations},
	}
	overall := float64(progress.Rapport+progress.Needs+progress.Objections+progress.Recommendations) / 4

	return map[string]any{"objectives": objectives, "overall_progress": overall}, nil
}

func (a *ExpertGuidanceAgent) handleGetContext(_ context.Context, args map[string]any) (any, error) {
	sessionID := stringArg(args, "session_id")
	simCtx, ok := a.store.Get(sessionID)
	if !ok {
		return map[string]any{"error": "Session not found: " + sessionID}, nil
	}

	return map[string]any{
		"industry":     simCtx.SimulationSettings.Industry,
		"subcategory":  simCtx.SimulationSettings.Subcategory,
		"difficulty":   simCtx.SimulationSettings.Difficulty,
		"competencies": simCtx.SimulationSettings.Competencies,
		"client": map[string]any{
			"name":       simCtx.ClientProfile.Name,
			"occupation": simCtx.ClientProfile.Occupation,
			"goals":      simCtx.ClientProfile.Goals,
		},
	}, nil
}

// GenerateGuidance answers one advisor question against the live session
// state.
func (a *ExpertGuidanceAgent) GenerateGuidance(ctx context.Context, sessionID, question string, transcript []models.Message) *Response {
	messages := make([]models.Message, 0, len(transcript)+1)
	messages = append(messages, transcript...)
	messages = append(messages, models.UserMessage("[ADVISOR QUESTION]: "+question))

	simCtx := map[string]any{"sessionId": sessionID}
	if stored, ok := a.store.Get(sessionID); ok {
		simCtx["difficulty"] = stored.SimulationSettings.Difficulty
		simCtx["industry"] = stored.SimulationSettings.Industry
		simCtx["clientName"] = stored.ClientProfile.Name
	}

	return a.Chat(ctx, messages, simCtx)
}
