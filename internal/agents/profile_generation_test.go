package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/advisim/advisim/internal/domain/models"
	"github.com/advisim/advisim/internal/ports"
)

type stubParameterRepo struct {
	industry   *models.IndustrySetting
	difficulty *models.DifficultySetting
	err        error
}

func (s *stubParameterRepo) GetIndustrySetting(ctx context.Context, industry string) (*models.IndustrySetting, error) {
	return s.industry, s.err
}

func (s *stubParameterRepo) GetDifficultySetting(ctx context.Context, difficulty string) (*models.DifficultySetting, error) {
	return s.difficulty, s.err
}

func TestIndustrySettingsPreferRepository(t *testing.T) {
	repo := &stubParameterRepo{
		industry: &models.IndustrySetting{Industry: "insurance", Products: []string{"custom product"}},
	}
	agent := NewProfileGenerationAgent(newFakeReasoning(completedRun("run_1")), "gpt-test", "", repo)

	result, err := agent.handleGetIndustrySettings(context.Background(), map[string]any{"industry": "insurance"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	setting := result.(*models.IndustrySetting)
	if setting.Products[0] != "custom product" {
		t.Errorf("repository setting ignored: %+v", setting)
	}
}

func TestIndustrySettingsFallBackOnError(t *testing.T) {
	repo := &stubParameterRepo{err: errors.New("db down")}
	agent := NewProfileGenerationAgent(newFakeReasoning(completedRun("run_1")), "gpt-test", "", repo)

	result, err := agent.handleGetIndustrySettings(context.Background(), map[string]any{"industry": "wealth-management"})
	if err != nil {
		t.Fatalf("fallback must not error: %v", err)
	}
	setting := result.(*models.IndustrySetting)
	if setting.Industry != "wealth-management" || len(setting.CommonNeeds) == 0 {
		t.Errorf("fallback setting wrong: %+v", setting)
	}
}

func TestDifficultySettingsFallback(t *testing.T) {
	agent := NewProfileGenerationAgent(newFakeReasoning(completedRun("run_1")), "gpt-test", "", nil)

	result, _ := agent.handleGetDifficultySettings(context.Background(), map[string]any{"difficulty": "Advanced"})
	setting := result.(*models.DifficultySetting)
	if setting.Difficulty != "advanced" || setting.ObjectionRate <= 0.5 {
		t.Errorf("advanced calibration wrong: %+v", setting)
	}

	result, _ = agent.handleGetDifficultySettings(context.Background(), map[string]any{"difficulty": "nonsense"})
	if result.(*models.DifficultySetting).Difficulty != "beginner" {
		t.Error("unknown difficulty must default to beginner")
	}
}

func TestGenerateDiversityParamsAvoidsRecent(t *testing.T) {
	agent := NewProfileGenerationAgent(newFakeReasoning(completedRun("run_1")), "gpt-test", "", nil)

	result, err := agent.handleGenerateDiversityParams(context.Background(), map[string]any{
		"recent_profiles": []any{"age:25", "age:30", "occupation:teacher"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	params := result.(map[string]any)

	age := params["suggestedAge"].(int)
	if age == 25 || age == 30 {
		t.Errorf("recently used age suggested: %d", age)
	}
	if params["suggestedOccupation"] == "teacher" {
		t.Error("recently used occupation suggested")
	}
	if len(params["avoidRepeating"].([]string)) != 3 {
		t.Errorf("avoidRepeating wrong: %v", params["avoidRepeating"])
	}
}

func TestValidateProfile(t *testing.T) {
	agent := NewProfileGenerationAgent(newFakeReasoning(completedRun("run_1")), "gpt-test", "", nil)

	valid := map[string]any{
		"name": "Dana", "age": float64(42), "occupation": "engineer",
		"income": "$90,000", "family": "single",
		"goals":    []any{"retirement"},
		"concerns": []any{"market risk"},
		"personality": map[string]any{
			"traits":    map[string]any{"openness": float64(60)},
			"archetype": "Cautious Investor",
		},
	}

	result, _ := agent.handleValidateProfile(context.Background(), map[string]any{"profile": valid})
	verdict := result.(map[string]any)
	if verdict["valid"] != true {
		t.Errorf("complete profile rejected: %+v", verdict)
	}

	broken := map[string]any{"age": float64(150)}
	result, _ = agent.handleValidateProfile(context.Background(), map[string]any{"profile": broken})
	verdict = result.(map[string]any)
	if verdict["valid"] != false {
		t.Error("broken profile accepted")
	}
	errs := verdict["errors"].([]string)
	found := false
	for _, e := range errs {
		if e == "Age must be between 18 and 100" {
			found = true
		}
	}
	if !found {
		t.Errorf("age range not enforced: %v", errs)
	}
}

func TestGenerateProfileParsesJSON(t *testing.T) {
	svc := newFakeReasoning(completedRun("run_1"))
	svc.reply = []ports.ThreadMessage{
		{Role: "assistant", Content: []ports.MessageContent{{Type: "text", Text: `Profile below.
{
  "name": "Miguel Torres",
  "age": 38,
  "occupation": "nurse",
  "income": "$78,000",
  "family": "married",
  "assets": ["home"],
  "debts": ["mortgage"],
  "goals": ["college fund"],
  "personality": {
    "traits": {"openness": 55},
    "archetype": "Busy Professional",
    "mood": "Neutral",
    "communicationStyle": "direct"
  },
  "background": "Works night shifts.",
  "concerns": ["time"]
}`}}},
	}

	agent := NewProfileGenerationAgent(svc, "gpt-test", "", nil)
	result := agent.GenerateProfile(context.Background(), ProfileRequest{
		Industry:   "insurance",
		Difficulty: "intermediate",
	})

	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if result.Profile == nil {
		t.Fatal("profile not parsed")
	}
	if result.Profile.Name != "Miguel Torres" || result.Profile.Personality.Archetype != "Busy Professional" {
		t.Errorf("profile fields wrong: %+v", result.Profile)
	}
}

func TestGuidanceToolsReadLiveContext(t *testing.T) {
	store := NewContextStore()
	simCtx := testSimulationContext("ss_1")
	simCtx.Objectives = &models.ObjectiveProgress{Rapport: 80, Needs: 60, Objections: 40, Recommendations: 20}
	store.Set("ss_1", simCtx)

	agent := NewExpertGuidanceAgent(newFakeReasoning(completedRun("run_1")), "gpt-test", "", store)

	result, err := agent.handleGetObjectives(context.Background(), map[string]any{"session_id": "ss_1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload := result.(map[string]any)
	if payload["overall_progress"] != float64(50) {
		t.Errorf("overall progress = %v", payload["overall_progress"])
	}

	result, _ = agent.handleGetContext(context.Background(), map[string]any{"session_id": "ss_1"})
	ctxPayload := result.(map[string]any)
	if ctxPayload["industry"] != "insurance" {
		t.Errorf("context payload wrong: %+v", ctxPayload)
	}
	client := ctxPayload["client"].(map[string]any)
	if client["name"] != "Dana Whitfield" {
		t.Errorf("client detail wrong: %+v", client)
	}

	missing, _ := agent.handleGetContext(context.Background(), map[string]any{"session_id": "ss_gone"})
	if missing.(map[string]any)["error"] != "Session not found: ss_gone" {
		t.Errorf("missing session payload wrong: %+v", missing)
	}
}
