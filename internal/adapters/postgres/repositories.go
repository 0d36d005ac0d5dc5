package postgres

import (
	"context"

	"github.com/advisim/advisim/internal/domain/models"
)

// The repository ports use overlapping method names (Create, GetByID),
// so each one gets a thin view over the shared store.

type RubricRepository struct{ store *Store }

func NewRubricRepository(store *Store) *RubricRepository {
	return &RubricRepository{store: store}
}

func (r *RubricRepository) Create(ctx context.Context, rubric *models.Rubric) error {
	return r.store.CreateRubric(ctx, rubric)
}

func (r *RubricRepository) GetByID(ctx context.Context, id string) (*models.Rubric, error) {
	return r.store.GetRubricByID(ctx, id)
}

func (r *RubricRepository) ListByCompetencyIDs(ctx context.Context, competencyIDs []string) ([]*models.Rubric, error) {
	return r.store.ListRubricsByCompetencyIDs(ctx, competencyIDs)
}

func (r *RubricRepository) ListAll(ctx context.Context) ([]*models.Rubric, error) {
	return r.store.ListAllRubrics(ctx)
}

func (r *RubricRepository) Delete(ctx context.Context, id string) error {
	return r.store.DeleteRubric(ctx, id)
}

type CompetencyRepository struct{ store *Store }

func NewCompetencyRepository(store *Store) *CompetencyRepository {
	return &CompetencyRepository{store: store}
}

func (r *CompetencyRepository) Create(ctx context.Context, competency *models.Competency) error {
	return r.store.CreateCompetency(ctx, competency)
}

func (r *CompetencyRepository) GetByID(ctx context.Context, id string) (*models.Competency, error) {
	return r.store.GetCompetencyByID(ctx, id)
}

func (r *CompetencyRepository) List(ctx context.Context, ids []string) ([]*models.Competency, error) {
	return r.store.ListCompetencies(ctx, ids)
}

func (r *CompetencyRepository) Delete(ctx context.Context, id string) error {
	return r.store.DeleteCompetency(ctx, id)
}

type SessionRepository struct{ store *Store }

func NewSessionRepository(store *Store) *SessionRepository {
	return &SessionRepository{store: store}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.SimulationSession) error {
	return r.store.CreateSession(ctx, session)
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.SimulationSession, error) {
	return r.store.GetSessionByID(ctx, id)
}

func (r *SessionRepository) Update(ctx context.Context, session *models.SimulationSession) error {
	return r.store.UpdateSession(ctx, session)
}

func (r *SessionRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.SimulationSession, error) {
	return r.store.ListSessionsByUserID(ctx, userID, limit, offset)
}
