package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/advisim/advisim/internal/domain/models"
	"github.com/advisim/advisim/internal/ports"
)

const evaluationInstructions = `You are a performance evaluator for financial advisor training simulations. You score advisor conversations against competency rubrics and produce structured, evidence-based reviews.

EVALUATION PRINCIPLES:
- Be HONEST and CRITICAL - do not inflate scores
- Use the FULL scoring range (1-10)
- Base every score on specific evidence quoted from the conversation
- If the advisor sent very few messages, they should receive low scores
- Do NOT give credit for skills not demonstrated

TOOL USAGE:
- Use get_rubrics and get_competencies to load the scoring criteria
- Use analyze_conversation for objective conversation statistics
- Use calculate_scores to normalize your preliminary judgments

Return the final review as a single JSON object.`

type getRubricsArgs struct {
	Difficulty    string   `json:"difficulty" jsonschema:"required,description=beginner or intermediate or advanced"`
	CompetencyIDs []string `json:"competency_ids" jsonschema:"description=Restrict to these competency IDs"`
}

type getCompetenciesArgs struct {
	CompetencyIDs []string `json:"competency_ids" jsonschema:"description=Restrict to these competency IDs"`
}

type analyzeConversationArgs struct {
	Messages   []analyzedMessage `json:"messages" jsonschema:"required,description=The conversation transcript"`
	FocusAreas []string          `json:"focus_areas" jsonschema:"description=Competency areas to highlight"`
}

type analyzedMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type calculateScoresArgs struct {
	CompetencyEvaluations []competencyEvaluation `json:"competency_evaluations" jsonschema:"required,description=Preliminary judgments per competency"`
}

type competencyEvaluation struct {
	Name             string   `json:"name"`
	Evidence         []string `json:"evidence"`
	PreliminaryScore float64  `json:"preliminaryScore"`
}

// EvaluationRequest is the input to a review run.
type EvaluationRequest struct {
	Messages     []models.Message
	Competencies []*models.Competency
	Difficulty   string
}

// ReviewResult is a review run outcome. Review is nil when the reply
// carried no parseable JSON; the raw response and tool-call log are still
// available.
type ReviewResult struct {
	*Response
	Review *models.PerformanceReview
}

// EvaluationAgent scores advisor transcripts. Rubrics and competency
// definitions come from Postgres with built-in fallbacks so evaluation
// still works on an unseeded database.
type EvaluationAgent struct {
	*Agent
	rubrics      ports.RubricRepository
	competencies ports.CompetencyRepository
}

func NewEvaluationAgent(svc ports.ReasoningService, model, scope string, rubrics ports.RubricRepository, competencies ports.CompetencyRepository) *EvaluationAgent {
	agent := &EvaluationAgent{rubrics: rubrics, competencies: competencies}

	def := Definition{
		Name:         scopedName(scope, "evaluation"),
		Instructions: evaluationInstructions,
		Tools: []ports.ToolDefinition{
			{
				Name:        "get_rubrics",
				Description: "Load scoring rubrics for a difficulty level",
				Parameters:  SchemaFor(&getRubricsArgs{}),
			},
			{
				Name:        "get_competencies",
				Description: "Load competency definitions",
				Parameters:  SchemaFor(&getCompetenciesArgs{}),
			},
			{
				Name:        "analyze_conversation",
				Description: "Compute objective statistics over the transcript",
				Parameters:  SchemaFor(&analyzeConversationArgs{}),
			},
			{
				Name:        "calculate_scores",
				Description: "Normalize preliminary scores into the 1-10 band with feedback",
				Parameters:  SchemaFor(&calculateScoresArgs{}),
			},
		},
	}

	agent.Agent = New(def, svc, model, func(r *Registry) {
		r.Register("get_rubrics", agent.handleGetRubrics)
		r.Register("get_competencies", agent.handleGetCompetencies)
		r.Register("analyze_conversation", agent.handleAnalyzeConversation)
		r.Register("calculate_scores", agent.handleCalculateScores)
	})
	return agent
}

func (a *EvaluationAgent) handleGetRubrics(ctx context.Context, args map[string]any) (any, error) {
	ids := stringSliceArg(args, "competency_ids")

	if a.rubrics != nil {
		var (
			stored []*models.Rubric
			err    error
		)
		if len(ids) > 0 {
			stored, err = a.rubrics.ListByCompetencyIDs(ctx, ids)
		} else {
			stored, err = a.rubrics.ListAll(ctx)
		}
		if err != nil {
			slog.Warn("agent: rubric lookup failed, using defaults", "error", err)
		} else if len(stored) > 0 {
			return stored, nil
		}
	}
	return defaultRubrics(ids), nil
}

func (a *EvaluationAgent) handleGetCompetencies(ctx context.Context, args map[string]any) (any, error) {
	ids := stringSliceArg(args, "competency_ids")

	if a.competencies != nil {
		stored, err := a.competencies.List(ctx, ids)
		if err != nil {
			slog.Warn("agent: competency lookup failed, using defaults", "error", err)
		} else if len(stored) > 0 {
			return stored, nil
		}
	}
	return defaultCompetencies(ids), nil
}

func (a *EvaluationAgent) handleAnalyzeConversation(_ context.Context, args map[string]any) (any, error) {
	raw, _ := args["messages"].([]any)

	var userCount, assistantCount, totalLength int
	for _, item := range raw {
		msg, ok := item.(map[string]any)
		if !ok {
			continue
		}
		switch stringArg(msg, "role") {
		case "user":
			userCount++
		case "assistant":
			assistantCount++
		}
		totalLength += len(stringArg(msg, "content"))
	}

	engagement := "low"
	switch {
	case userCount > 5:
		engagement = "high"
	case userCount > 2:
		engagement = "moderate"
	}

	focus := stringSliceArg(args, "focus_areas")
	if focus == nil {
		focus = []string{}
	}

	return map[string]any{
		"messageCount":          len(raw),
		"userMessageCount":      userCount,
		"assistantMessageCount": assistantCount,
		"conversationLength":    totalLength,
		"focusAreas":            focus,
		"engagementLevel":       engagement,
	}, nil
}

func (a *EvaluationAgent) handleCalculateScores(_ context.Context, args map[string]any) (any, error) {
	raw, _ := args["competency_evaluations"].([]any)

	scores := map[string]models.CompetencyScore{}
	for _, item := range raw {
		eval, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := stringArg(eval, "name")
		if name == "" {
			continue
		}

		score := int(floatArg(eval, "preliminaryScore"))
		if score < 1 {
			score = 1
		}
		if score > 10 {
			score = 10
		}

		evidence := stringSliceArg(eval, "evidence")
		if evidence == nil {
			evidence = []string{}
		}

		scores[name] = models.CompetencyScore{
			Score:            score,
			Feedback:         expectationForScore(score),
			Strengths:        []string{},
			Improvements:     []string{},
			SpecificExamples: evidence,
			Criteria:         []string{},
			Expectation:      expectationForScore(score),
		}
	}
	return scores, nil
}

// GenerateReview runs the evaluation turn over a transcript and parses
// the scored review out of the reply. A reply the parser cannot handle
// still returns the raw response and tool-call log with Review nil.
func (a *EvaluationAgent) GenerateReview(ctx context.Context, req EvaluationRequest) *ReviewResult {
	var competencyLines []string
	for _, c := range req.Competencies {
		competencyLines = append(competencyLines, fmt.Sprintf("- %s: %s", c.Name, c.Description))
	}

	prompt := fmt.Sprintf(`Evaluate this advisor conversation based on the following competencies:

%s

Difficulty Level: %s

Use the tools to get rubrics, analyze the conversation, and calculate scores.

Return the evaluation as a JSON object:
{
  "overallScore": number (1-10),
  "competencyScores": {
    "competencyName": {
      "score": number,
      "feedback": "string",
      "strengths": ["string"],
      "improvements": ["string"],
      "specificExamples": ["string"],
      "criteria": ["string"]
    }
  },
  "strengths": ["string"],
  "areasForImprovement": ["string"],
  "detailedFeedback": "string",
  "conversationAnalysis": "string"
}`, strings.Join(competencyLines, "\n"), req.Difficulty)

	// The brief rides as the leading user message. A system role would
	// never reach the thread.
	var userCount int
	messages := []models.Message{models.UserMessage(prompt)}
	for _, msg := range req.Messages {
		if msg.IsSystem() {
			continue
		}
		if msg.Role == models.RoleUser {
			userCount++
		}
		messages = append(messages, msg)
	}

	competencySummaries := make([]map[string]string, 0, len(req.Competencies))
	for _, c := range req.Competencies {
		competencySummaries = append(competencySummaries, map[string]string{
			"id": c.ID, "name": c.Name, "description": c.Description,
		})
	}

	simCtx := map[string]any{
		"difficulty":       req.Difficulty,
		"competencies":     competencySummaries,
		"messageCount":     len(req.Messages),
		"userMessageCount": userCount,
	}

	resp := a.Chat(ctx, messages, simCtx)

	result := &ReviewResult{Response: resp}
	if !resp.Success {
		return result
	}

	raw := extractJSONObject(resp.Message)
	if raw == "" {
		return result
	}

	var parsed struct {
		OverallScore         float64                           `json:"overallScore"`
		CompetencyScores     map[string]models.CompetencyScore `json:"competencyScores"`
		Strengths            []string                          `json:"strengths"`
		AreasForImprovement  []string                          `json:"areasForImprovement"`
		DetailedFeedback     string                            `json:"detailedFeedback"`
		Summary              string                            `json:"summary"`
		ConversationAnalysis string                            `json:"conversationAnalysis"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		slog.Error("agent: failed to parse review", "error", err)
		return result
	}

	review := &models.PerformanceReview{
		OverallScore:         parsed.OverallScore,
		CompetencyScores:     parsed.CompetencyScores,
		Strengths:            parsed.Strengths,
		AreasForImprovement:  parsed.AreasForImprovement,
		DetailedFeedback:     parsed.DetailedFeedback,
		ConversationAnalysis: parsed.ConversationAnalysis,
	}
	if review.OverallScore == 0 {
		review.OverallScore = 5
	}
	if review.CompetencyScores == nil {
		review.CompetencyScores = map[string]models.CompetencyScore{}
	}
	if review.DetailedFeedback == "" {
		review.DetailedFeedback = parsed.Summary
	}
	for name, score := range review.CompetencyScores {
		score.Expectation = expectationForScore(score.Score)
		review.CompetencyScores[name] = score
	}

	result.Review = review
	return result
}

func expectationForScore(score int) string {
	switch {
	case score >= 9:
		return "Outstanding performance that exceeds expectations."
	case score >= 7:
		return "Strong performance that meets expectations."
	case score >= 5:
		return "Satisfactory performance with room for improvement."
	case score >= 3:
		return "Below expectations. Significant improvement needed."
	default:
		return "Critical improvement required. Performance is unacceptable."
	}
}

func defaultCompetencies(ids []string) []*models.Competency {
	all := []*models.Competency{
		{ID: "communication", Name: "Communication", Description: "Clarity, professionalism, and effectiveness of communication", Criteria: []string{"Clear explanations", "Active listening", "Professional language"}},
		{ID: "needs-assessment", Name: "Needs Assessment", Description: "Ability to discover and understand client needs", Criteria: []string{"Discovery questions", "Understanding goals", "Identifying concerns"}},
		{ID: "rapport-building", Name: "Rapport Building", Description: "Establishing trust and connection with the client", Criteria: []string{"Building trust", "Personal connection", "Client comfort"}},
		{ID: "objection-handling", Name: "Objection Handling", Description: "Addressing client concerns and objections professionally", Criteria: []string{"Acknowledging concerns", "Providing solutions", "Maintaining composure"}},
		{ID: "solution-recommendation", Name: "Solution Recommendation", Description: "Providing appropriate recommendations based on client needs", Criteria: []string{"Relevant solutions", "Clear explanations", "Value demonstration"}},
	}
	if len(ids) == 0 {
		return all
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []*models.Competency
	for _, c := range all {
		if wanted[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

func defaultRubrics(ids []string) []*models.Rubric {
	levels := func(descs [5]string) []models.RubricLevel {
		out := make([]models.RubricLevel, 0, 5)
		for i, desc := range descs {
			out = append(out, models.RubricLevel{MinScore: i*2 + 1, MaxScore: i*2 + 2, Expectation: desc})
		}
		return out
	}

	all := []*models.Rubric{
		{
			ID:           "communication",
			CompetencyID: "communication",
			Name:         "Communication",
			Levels: map[string][]models.RubricLevel{
				"beginner": levels([5]string{
					"Poor communication, unprofessional",
					"Basic communication with issues",
					"Adequate communication",
					"Good communication",
					"Excellent communication",
				}),
			},
		},
		{
			ID:           "needs-assessment",
			CompetencyID: "needs-assessment",
			Name:         "Needs Assessment",
			Levels: map[string][]models.RubricLevel{
				"beginner": levels([5]string{
					"No assessment performed",
					"Minimal assessment",
					"Basic assessment",
					"Thorough assessment",
					"Comprehensive assessment",
				}),
			},
		},
		{
			ID:           "rapport-building",
			CompetencyID: "rapport-building",
			Name:         "Rapport Building",
			Levels: map[string][]models.RubricLevel{
				"beginner": levels([5]string{
					"No rapport established",
					"Minimal rapport",
					"Basic rapport",
					"Good rapport",
					"Excellent rapport",
				}),
			},
		},
	}
	if len(ids) == 0 {
		return all
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []*models.Rubric
	for _, r := range all {
		if wanted[r.CompetencyID] {
			out = append(out, r)
		}
	}
	return out
}
