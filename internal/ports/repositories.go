package ports

import (
	"context"

	"github.com/advisim/advisim/internal/domain/models"
)

// RubricRepository provides scoring rubrics for the evaluation tools.
type RubricRepository interface {
	Create(ctx context.Context, rubric *models.Rubric) error
	GetByID(ctx context.Context, id string) (*models.Rubric, error)
	ListByCompetencyIDs(ctx context.Context, competencyIDs []string) ([]*models.Rubric, error)
	ListAll(ctx context.Context) ([]*models.Rubric, error)
	Delete(ctx context.Context, id string) error
}

// CompetencyRepository provides competency definitions.
type CompetencyRepository interface {
	Create(ctx context.Context, competency *models.Competency) error
	GetByID(ctx context.Context, id string) (*models.Competency, error)
	List(ctx context.Context, ids []string) ([]*models.Competency, error)
	Delete(ctx context.Context, id string) error
}

// ParameterRepository provides industry and difficulty settings for
// profile generation.
type ParameterRepository interface {
	GetIndustrySetting(ctx context.Context, industry string) (*models.IndustrySetting, error)
	GetDifficultySetting(ctx context.Context, difficulty string) (*models.DifficultySetting, error)
}

// SessionRepository persists simulation sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.SimulationSession) error
	GetByID(ctx context.Context, id string) (*models.SimulationSession, error)
	Update(ctx context.Context, session *models.SimulationSession) error
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.SimulationSession, error)
}
