package models

import "time"

// Competency is one skill dimension the advisor is scored on.
type Competency struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Criteria    []string   `json:"criteria,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// RubricLevel describes what a score band looks like for one competency at
// one difficulty.
type RubricLevel struct {
	MinScore    int    `json:"min_score"`
	MaxScore    int    `json:"max_score"`
	Expectation string `json:"expectation"`
}

// Rubric is the scoring guide for a competency. Levels are keyed by
// difficulty ("beginner", "intermediate", "advanced").
type Rubric struct {
	ID           string                   `json:"id"`
	CompetencyID string                   `json:"competency_id"`
	Name         string                   `json:"name"`
	Levels       map[string][]RubricLevel `json:"levels"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
	DeletedAt    *time.Time               `json:"deleted_at,omitempty"`
}

// CompetencyScore is the evaluation outcome for one competency.
type CompetencyScore struct {
	Score            int      `json:"score"`
	Feedback         string   `json:"feedback"`
	Strengths        []string `json:"strengths"`
	Improvements     []string `json:"improvements"`
	SpecificExamples []string `json:"specificExamples"`
	Criteria         []string `json:"criteria"`
	Expectation      string   `json:"expectation,omitempty"`
}

// PerformanceReview is the full scored evaluation of one session
// transcript.
type PerformanceReview struct {
	OverallScore         float64                    `json:"overallScore"`
	CompetencyScores     map[string]CompetencyScore `json:"competencyScores"`
	Strengths            []string                   `json:"strengths"`
	AreasForImprovement  []string                   `json:"areasForImprovement"`
	DetailedFeedback     string                     `json:"detailedFeedback"`
	ConversationAnalysis string                     `json:"conversationAnalysis,omitempty"`
}

// IndustrySetting captures industry-specific simulation parameters.
type IndustrySetting struct {
	Industry      string   `json:"industry"`
	Subcategories []string `json:"subcategories,omitempty"`
	Regulations   []string `json:"regulations,omitempty"`
	CommonNeeds   []string `json:"common_needs,omitempty"`
	Products      []string `json:"products,omitempty"`
}

// DifficultySetting calibrates how demanding the simulated client is.
type DifficultySetting struct {
	Difficulty     string  `json:"difficulty"`
	ObjectionRate  float64 `json:"objection_rate"`
	PatienceLevel  int     `json:"patience_level"`
	DetailDemand   int     `json:"detail_demand"`
	TrustThreshold int     `json:"trust_threshold"`
}
