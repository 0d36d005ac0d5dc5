package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/advisim/advisim/internal/domain/models"
	"github.com/advisim/advisim/internal/ports"
)

const profileGenerationInstructions = `You are a client profile generator for financial advisor training simulations. Your role is to create diverse, realistic client personas tailored to the requested industry and difficulty.

GENERATION PRINCIPLES:
- Every profile must be internally consistent: age, occupation, income, family situation, assets, debts and goals must plausibly fit together
- Vary demographics across generations; avoid repeating the ages, occupations and family situations listed as recently used
- Match the client's guardedness and objection tendency to the requested difficulty
- Ground the profile in the industry's typical clients, products and common needs

TOOL USAGE:
- Use get_industry_settings to learn the industry's typical clients and goals
- Use get_difficulty_settings to calibrate personality and behavior
- Use generate_diversity_params for suggested demographics that avoid repetition
- Use validate_profile on your draft before returning it

Return the final profile as a single JSON object.`

type industrySettingsArgs struct {
	Industry    string `json:"industry" jsonschema:"required,description=The industry vertical"`
	Subcategory string `json:"subcategory" jsonschema:"description=Optional industry subcategory"`
}

type difficultySettingsArgs struct {
	Difficulty string `json:"difficulty" jsonschema:"required,description=beginner or intermediate or advanced"`
	Industry   string `json:"industry" jsonschema:"description=Optional industry for calibration"`
}

type diversityParamsArgs struct {
	RecentProfiles []string `json:"recent_profiles" jsonschema:"description=Demographic markers of recently generated profiles"`
}

type validateProfileArgs struct {
	Profile map[string]any `json:"profile" jsonschema:"required,description=The draft profile to validate"`
}

// GeneratedProfile is the structured persona a generation run produces.
type GeneratedProfile struct {
	Name        string `json:"name"`
	Age         int    `json:"age"`
	Occupation  string `json:"occupation"`
	Income      string `json:"income"`
	Family      string `json:"family"`
	Assets      []string `json:"assets"`
	Debts       []string `json:"debts"`
	Goals       []string `json:"goals"`
	Personality struct {
		Traits             map[string]float64 `json:"traits"`
		Archetype          string             `json:"archetype"`
		Mood               string             `json:"mood"`
		CommunicationStyle string             `json:"communicationStyle"`
	} `json:"personality"`
	Background       string   `json:"background"`
	Concerns         []string `json:"concerns"`
	HiddenObjections []string `json:"hiddenObjections,omitempty"`
}

// ProfileRequest selects the scenario a new profile is generated for.
type ProfileRequest struct {
	Industry         string
	Subcategory      string
	Difficulty       string
	ExistingProfiles []string
}

// ProfileGenerationAgent creates client personas. Industry and difficulty
// parameters come from the parameter repository with built-in fallbacks,
// so profile generation keeps working when the database has no row for a
// combination.
type ProfileGenerationAgent struct {
	*Agent
	params ports.ParameterRepository
}

func NewProfileGenerationAgent(svc ports.ReasoningService, model, scope string, params ports.ParameterRepository) *ProfileGenerationAgent {
	agent := &ProfileGenerationAgent{params: params}

	def := Definition{
		Name:         scopedName(scope, "profile-generation"),
		Instructions: profileGenerationInstructions,
		Tools: []ports.ToolDefinition{
			{
				Name:        "get_industry_settings",
				Description: "Look up typical clients, goals and products for an industry",
				Parameters:  SchemaFor(&industrySettingsArgs{}),
			},
			{
				Name:        "get_difficulty_settings",
				Description: "Look up client behavior calibration for a difficulty level",
				Parameters:  SchemaFor(&difficultySettingsArgs{}),
			},
			{
				Name:        "generate_diversity_params",
				Description: "Suggest demographics that avoid recently used profiles",
				Parameters:  SchemaFor(&diversityParamsArgs{}),
			},
			{
				Name:        "validate_profile",
				Description: "Check a draft profile for missing or implausible fields",
				Parameters:  SchemaFor(&validateProfileArgs{}),
			},
		},
	}

	agent.Agent = New(def, svc, model, func(r *Registry) {
		r.Register("get_industry_settings", agent.handleGetIndustrySettings)
		r.Register("get_difficulty_settings", agent.handleGetDifficultySettings)
		r.Register("generate_diversity_params", agent.handleGenerateDiversityParams)
		r.Register("validate_profile", agent.handleValidateProfile)
	})
	return agent
}

func (a *ProfileGenerationAgent) handleGetIndustrySettings(ctx context.Context, args map[string]any) (any, error) {
	industry := stringArg(args, "industry")

	if a.params != nil {
		setting, err := a.params.GetIndustrySetting(ctx, industry)
		if err == nil && setting != nil {
			return setting, nil
		}
		if err != nil {
			slog.Warn("agent: industry setting lookup failed, using defaults", "industry", industry, "error", err)
		}
	}
	return defaultIndustrySetting(industry), nil
}

func (a *ProfileGenerationAgent) handleGetDifficultySettings(ctx context.Context, args map[string]any) (any, error) {
	difficulty := strings.ToLower(stringArg(args, "difficulty"))

	if a.params != nil {
		setting, err := a.params.GetDifficultySetting(ctx, difficulty)
		if err == nil && setting != nil {
			return setting, nil
		}
		if err != nil {
			slog.Warn("agent: difficulty setting lookup failed, using defaults", "difficulty", difficulty, "error", err)
		}
	}
	return defaultDifficultyProfile(difficulty), nil
}

func (a *ProfileGenerationAgent) handleGenerateDiversityParams(_ context.Context, args map[string]any) (any, error) {
	recent := stringSliceArg(args, "recent_profiles")

	ages := []int{25, 30, 35, 40, 45, 50, 55, 60, 65, 70}
	familyStatuses := []string{"single", "married", "married with children", "divorced", "widowed"}
	occupations := []string{
		"teacher", "engineer", "doctor", "lawyer", "small business owner",
		"nurse", "accountant", "sales manager", "retired", "entrepreneur",
		"consultant", "government employee", "executive", "artist", "technician",
	}

	used := make(map[string]bool, len(recent))
	for _, marker := range recent {
		used[marker] = true
	}

	unusedAges := make([]int, 0, len(ages))
	for _, age := range ages {
		if !used[fmt.Sprintf("age:%d", age)] {
			unusedAges = append(unusedAges, age)
		}
	}
	if len(unusedAges) == 0 {
		unusedAges = ages
	}

	unusedOccupations := make([]string, 0, len(occupations))
	for _, occ := range occupations {
		if !used["occupation:"+occ] {
			unusedOccupations = append(unusedOccupations, occ)
		}
	}
	if len(unusedOccupations) == 0 {
		unusedOccupations = occupations
	}

	avoid := recent
	if len(avoid) > 5 {
		avoid = avoid[:5]
	}

	return map[string]any{
		"suggestedAge":          unusedAges[rand.Intn(len(unusedAges))],
		"suggestedFamilyStatus": familyStatuses[rand.Intn(len(familyStatuses))],
		"suggestedOccupation":   unusedOccupations[rand.Intn(len(unusedOccupations))],
		"avoidRepeating":        avoid,
	}, nil
}

func (a *ProfileGenerationAgent) handleValidateProfile(_ context.Context, args map[string]any) (any, error) {
	profile, _ := args["profile"].(map[string]any)
	if profile == nil {
		return map[string]any{"valid": false, "errors": []string{"Missing profile"}, "warnings": []string{}}, nil
	}

	var errs, warnings []string

	if stringArg(profile, "name") == "" {
		errs = append(errs, "Missing name")
	}
	age := intArg(profile, "age")
	if age == 0 {
		errs = append(errs, "Invalid or missing age")
	} else if age < 18 || age > 100 {
		errs = append(errs, "Age must be between 18 and 100")
	}
	if stringArg(profile, "occupation") == "" {
		errs = append(errs, "Missing occupation")
	}
	if stringArg(profile, "income") == "" {
		errs = append(errs, "Missing income")
	}
	if stringArg(profile, "family") == "" {
		errs = append(errs, "Missing family status")
	}

	if len(stringSliceArg(profile, "goals")) == 0 {
		warnings = append(warnings, "No goals specified")
	}
	if len(stringSliceArg(profile, "concerns")) == 0 {
		warnings = append(warnings, "No concerns specified")
	}

	if personality, ok := profile["personality"].(map[string]any); !ok {
		errs = append(errs, "Missing personality")
	} else {
		if personality["traits"] == nil {
			warnings = append(warnings, "Missing personality traits")
		}
		if stringArg(personality, "archetype") == "" {
			warnings = append(warnings, "Missing archetype")
		}
	}

	if errs == nil {
		errs = []string{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	return map[string]any{"valid": len(errs) == 0, "errors": errs, "warnings": warnings}, nil
}

// ProfileResult is the generation outcome. Profile is nil when the reply
// carried no parseable JSON; the raw response is still available.
type ProfileResult struct {
	*Response
	Profile *GeneratedProfile
}

// GenerateProfile runs one generation turn and parses the profile out of
// the reply.
func (a *ProfileGenerationAgent) GenerateProfile(ctx context.Context, req ProfileRequest) *ProfileResult {
	prompt := fmt.Sprintf("Generate a realistic client profile for a %s", req.Industry)
	if req.Subcategory != "" {
		prompt += fmt.Sprintf(" (%s)", req.Subcategory)
	}
	prompt += fmt.Sprintf(" simulation at %s difficulty.\n\nUse the tools to get industry settings, difficulty settings, and diversity parameters, then generate a complete profile. Validate it before returning it.\n\nReturn the profile as a single JSON object.", req.Difficulty)

	simCtx := map[string]any{
		"industry":         req.Industry,
		"subcategory":      req.Subcategory,
		"difficulty":       req.Difficulty,
		"existingProfiles": req.ExistingProfiles,
	}

	resp := a.Chat(ctx, []models.Message{models.UserMessage(prompt)}, simCtx)

	result := &ProfileResult{Response: resp}
	if !resp.Success {
		return result
	}

	raw := extractJSONObject(resp.Message)
	if raw == "" {
		return result
	}
	var profile GeneratedProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		slog.Error("agent: failed to parse generated profile", "error", err)
		return result
	}
	result.Profile = &profile
	return result
}

func defaultIndustrySetting(industry string) *models.IndustrySetting {
	switch industry {
	case "wealth-management":
		return &models.IndustrySetting{
			Industry:    industry,
			CommonNeeds: []string{"wealth preservation", "retirement planning", "tax optimization", "legacy planning"},
			Products:    []string{"managed portfolios", "trusts", "retirement accounts"},
		}
	case "securities":
		return &models.IndustrySetting{
			Industry:    industry,
			CommonNeeds: []string{"portfolio growth", "diversification", "income generation", "retirement funding"},
			Products:    []string{"equities", "bonds", "mutual funds", "ETFs"},
		}
	default:
		return &models.IndustrySetting{
			Industry:      "insurance",
			Subcategories: []string{"life-health", "property-casualty"},
			CommonNeeds:   []string{"protect family income", "estate planning", "healthcare coverage", "disability protection"},
			Products:      []string{"term life", "whole life", "disability insurance", "health plans"},
		}
	}
}

func defaultDifficultyProfile(difficulty string) *models.DifficultySetting {
	switch difficulty {
	case "advanced":
		return &models.DifficultySetting{Difficulty: difficulty, ObjectionRate: 0.8, PatienceLevel: 2, DetailDemand: 9, TrustThreshold: 80}
	case "intermediate":
		return &models.DifficultySetting{Difficulty: difficulty, ObjectionRate: 0.5, PatienceLevel: 5, DetailDemand: 6, TrustThreshold: 60}
	default:
		return &models.DifficultySetting{Difficulty: "beginner", ObjectionRate: 0.2, PatienceLevel: 8, DetailDemand: 3, TrustThreshold: 40}
	}
}
