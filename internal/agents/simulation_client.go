package agents

import (
	"context"
	"strings"

	"github.com/advisim/advisim/internal/domain/models"
	"github.com/advisim/advisim/internal/ports"
)

const simulationClientInstructions = `You are an AI client in a training simulation. Your role is to behave as a realistic client with the personality traits, background, and needs specified in your context.

CORE BEHAVIORS:
- Respond naturally and conversationally, avoiding robotic language or self-references as an AI
- Include occasional filler words and vary your sentence structure to sound human-like
- You may use physical gesture cues in [brackets] for short gestures or (parentheses) for longer descriptions
- IMPORTANT: You are the CLIENT, not the advisor. Respond as if you are seeking financial advice, not giving it

PERSONALITY INTEGRATION:
- Use the tools provided to understand your client profile, emotional state, and objectives
- Stay in character based on your personality traits and current emotional state
- Adjust your responses based on difficulty level (be more guarded at higher difficulties)
- React appropriately to the advisor's behavior (professional or unprofessional)

RESPONDING TO INAPPROPRIATE BEHAVIOR:
If the advisor makes inappropriate comments, insults you, uses profanity, or makes threatening statements:
- For mild inappropriate comments: Express discomfort and redirect the conversation
- For moderate inappropriate comments: Show clear disapproval and question the advisor's professionalism
- For severe inappropriate comments: Express that you're offended and consider ending the conversation
- NEVER ignore or brush off highly inappropriate comments - respond as a real person would

TOOL USAGE:
- Use get_client_profile to retrieve your current profile details
- Use get_emotional_state to understand your emotional context
- Use track_objectives to update progress based on the conversation
- Generate your response based on all this context`

type sessionArgs struct {
	SessionID string `json:"session_id" jsonschema:"required,description=The simulation session ID"`
}

type trackObjectivesArgs struct {
	SessionID       string `json:"session_id" jsonschema:"required,description=The simulation session ID"`
	Rapport         int    `json:"rapport" jsonschema:"required,description=Rapport building progress 0-100"`
	Needs           int    `json:"needs" jsonschema:"required,description=Needs assessment progress 0-100"`
	Objections      int    `json:"objections" jsonschema:"required,description=Objection handling progress 0-100"`
	Recommendations int    `json:"recommendations" jsonschema:"required,description=Recommendation progress 0-100"`
	Explanation     string `json:"explanation" jsonschema:"description=Short reasoning for the scores"`
}

// SimulationClientAgent plays the client persona in training
// conversations. Its tools read and mutate the session's simulation
// context, so the same store the HTTP layer writes into must be passed
// here.
type SimulationClientAgent struct {
	*Agent
	store *ContextStore
}

func NewSimulationClientAgent(svc ports.ReasoningService, model, scope string, store *ContextStore) *SimulationClientAgent {
	agent := &SimulationClientAgent{store: store}

	def := Definition{
		Name:         scopedName(scope, "simulation-client"),
		Instructions: simulationClientInstructions,
		Tools: []ports.ToolDefinition{
			{
				Name:        "get_client_profile",
				Description: "Retrieve the client profile for the current session",
				Parameters:  SchemaFor(&sessionArgs{}),
			},
			{
				Name:        "get_emotional_state",
				Description: "Retrieve the client's current emotional state",
				Parameters:  SchemaFor(&sessionArgs{}),
			},
			{
				Name:        "track_objectives",
				Description: "Record advisor progress against the training objectives",
				Parameters:  SchemaFor(&trackObjectivesArgs{}),
			},
		},
	}

	agent.Agent = New(def, svc, model, func(r *Registry) {
		r.Register("get_client_profile", agent.handleGetClientProfile)
		r.Register("get_emotional_state", agent.handleGetEmotionalState)
		r.Register("track_objectives", agent.handleTrackObjectives)
	})
	return agent
}

func (a *SimulationClientAgent) handleGetClientProfile(_ context.Context, args map[string]any) (any, error) {
	sessionID := stringArg(args, "session_id")
	simCtx, ok := a.store.Get(sessionID)
	if !ok {
		return map[string]any{"error": "Session not found: " + sessionID}, nil
	}
	return simCtx.ClientProfile, nil
}

func (a *SimulationClientAgent) handleGetEmotionalState(_ context.Context, args map[string]any) (any, error) {
	simCtx, ok := a.store.Get(stringArg(args, "session_id"))
	if !ok || simCtx.EmotionalState == nil {
		return models.DefaultEmotionalState(), nil
	}
	return *simCtx.EmotionalState, nil
}

func (a *SimulationClientAgent) handleTrackObjectives(_ context.Context, args map[string]any) (any, error) {
	objectives := models.ObjectiveProgress{
		Rapport:         intArg(args, "rapport"),
		Needs:           intArg(args, "needs"),
		Objections:      intArg(args, "objections"),
		Recommendations: intArg(args, "recommendations"),
		Explanation:     stringArg(args, "explanation"),
	}

	a.store.UpdateObjectives(stringArg(args, "session_id"), objectives)

	return map[string]any{"success": true, "objectives": objectives}, nil
}

// ClientResponse is a client turn plus any objective progress the run
// recorded along the way.
type ClientResponse struct {
	*Response
	ObjectiveProgress *models.ObjectiveProgress
}

// GenerateResponse produces the client's next turn. The simulation
// context is put in the store first so the tools can reach it during the
// run, then passed to the model in condensed form.
func (a *SimulationClientAgent) GenerateResponse(ctx context.Context, messages []models.Message, simCtx *models.SimulationContext) *ClientResponse {
	a.store.Set(simCtx.SessionID, simCtx)

	enhanced := map[string]any{
		"sessionId":            simCtx.SessionID,
		"clientProfile":        simCtx.ClientProfile,
		"personality":          simCtx.PersonalitySettings,
		"industry":             simCtx.SimulationSettings.Industry,
		"subcategory":          simCtx.SimulationSettings.Subcategory,
		"difficulty":           simCtx.SimulationSettings.Difficulty,
		"emotionalState":       simCtx.EmotionalState,
		"difficultyGuidelines": difficultyGuidelines(simCtx.SimulationSettings.Difficulty),
	}

	resp := a.Chat(ctx, messages, enhanced)

	var progress *models.ObjectiveProgress
	for _, call := range resp.ToolCalls {
		if call.Name != "track_objectives" {
			continue
		}
		if result, ok := call.Result.(map[string]any); ok {
			if obj, ok := result["objectives"].(models.ObjectiveProgress); ok {
				progress = &obj
			}
		}
	}
	if progress == nil {
		if recorded, ok := a.store.Objectives(simCtx.SessionID); ok {
			progress = &recorded
		}
	}

	return &ClientResponse{Response: resp, ObjectiveProgress: progress}
}

func difficultyGuidelines(difficulty string) string {
	switch strings.ToLower(difficulty) {
	case "beginner":
		return "Be friendly, cooperative, and open. Provide information readily when asked. You have basic financial knowledge but need explanations for industry-specific concepts. Share your financial details, family situation, and goals when asked directly."
	case "intermediate":
		return "Be somewhat reserved and hesitant to share all information immediately. Some financial details and goals should only be revealed when asked specifically or when trust is established. You have moderate financial knowledge. Do not volunteer detailed financial information unless specifically asked."
	case "advanced":
		return "Be skeptical, challenging, and resistant initially. Question recommendations, raise objections, and only reveal sensitive information after significant trust-building. You have substantial financial knowledge but may have misconceptions that need correction. Be very guarded with information and require the advisor to demonstrate expertise before opening up."
	default:
		return "Be friendly and cooperative, with a balanced approach to sharing information."
	}
}
