package models

import "time"

// ClientProfile describes the simulated client persona the advisor talks to.
type ClientProfile struct {
	Name       string             `json:"name"`
	Age        int                `json:"age"`
	Occupation string             `json:"occupation"`
	Income     string             `json:"income"`
	Family     string             `json:"family"`
	Assets     []string           `json:"assets,omitempty"`
	Debts      []string           `json:"debts,omitempty"`
	Goals      []string           `json:"goals,omitempty"`
	Traits     map[string]float64 `json:"traits,omitempty"`
}

// EmotionalState tracks how the simulated client currently feels about the
// conversation. All values are 0-100.
type EmotionalState struct {
	Trust       int `json:"trust"`
	Frustration int `json:"frustration"`
	Openness    int `json:"openness"`
	Engagement  int `json:"engagement"`
}

// DefaultEmotionalState is the neutral starting state for a fresh session.
func DefaultEmotionalState() EmotionalState {
	return EmotionalState{Trust: 50, Frustration: 0, Openness: 50, Engagement: 50}
}

// ObjectiveProgress tracks advisor progress against the four training
// objectives, 0-100 each.
type ObjectiveProgress struct {
	Rapport         int    `json:"rapport"`
	Needs           int    `json:"needs"`
	Objections      int    `json:"objections"`
	Recommendations int    `json:"recommendations"`
	Explanation     string `json:"explanation,omitempty"`
}

// PersonalitySettings shape how the simulated client communicates.
type PersonalitySettings struct {
	Mood               string             `json:"mood"`
	Archetype          string             `json:"archetype"`
	Traits             map[string]float64 `json:"traits,omitempty"`
	Influence          string             `json:"influence,omitempty"`
	CommunicationStyle string             `json:"communication_style,omitempty"`
}

// SimulationSettings select the scenario for a training session.
type SimulationSettings struct {
	Industry     string   `json:"industry"`
	Subcategory  string   `json:"subcategory,omitempty"`
	Difficulty   string   `json:"difficulty"`
	Competencies []string `json:"competencies,omitempty"`
}

// SimulationContext is everything the client agent needs to stay in
// character for one session. It lives in the context store for the
// session's lifetime.
type SimulationContext struct {
	SessionID           string              `json:"session_id"`
	ClientProfile       ClientProfile       `json:"client_profile"`
	PersonalitySettings PersonalitySettings `json:"personality_settings"`
	SimulationSettings  SimulationSettings  `json:"simulation_settings"`
	EmotionalState      *EmotionalState     `json:"emotional_state,omitempty"`
	Objectives          *ObjectiveProgress  `json:"objectives,omitempty"`
}

// SessionStatus tracks the lifecycle of a stored simulation session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAbandoned SessionStatus = "abandoned"
)

// SimulationSession is the persisted record of one training run.
type SimulationSession struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	Industry     string        `json:"industry"`
	Difficulty   string        `json:"difficulty"`
	Status       SessionStatus `json:"status"`
	OverallScore *float64      `json:"overall_score,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	EndedAt      *time.Time    `json:"ended_at,omitempty"`
}

func NewSimulationSession(id, userID, industry, difficulty string) *SimulationSession {
	now := time.Now()
	return &SimulationSession{
		ID:         id,
		UserID:     userID,
		Industry:   industry,
		Difficulty: difficulty,
		Status:     SessionStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Complete marks the session finished and records the overall score.
func (s *SimulationSession) Complete(overallScore float64) {
	now := time.Now()
	s.Status = SessionStatusCompleted
	s.OverallScore = &overallScore
	s.EndedAt = &now
	s.UpdatedAt = now
}

func (s *SimulationSession) IsActive() bool {
	return s.Status == SessionStatusActive
}
