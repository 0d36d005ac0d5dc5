package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/advisim/advisim/internal/domain/models"
)

const rubricColumns = `id, competency_id, name, levels, created_at, updated_at`

func (s *Store) CreateRubric(ctx context.Context, rubric *models.Rubric) error {
	query := `
		INSERT INTO rubrics (id, competency_id, name, levels, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	levels, err := json.Marshal(rubric.Levels)
	if err != nil {
		return fmt.Errorf("marshal levels: %w", err)
	}

	_, err = s.conn(ctx).Exec(ctx, query,
		rubric.ID, rubric.CompetencyID, rubric.Name, levels,
		rubric.CreatedAt, rubric.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create rubric: %w", err)
	}
	return nil
}

func (s *Store) GetRubricByID(ctx context.Context, id string) (*models.Rubric, error) {
	query := `
		SELECT ` + rubricColumns + `
		FROM rubrics
		WHERE id = $1 AND deleted_at IS NULL`

	return scanRubric(s.conn(ctx).QueryRow(ctx, query, id))
}

func (s *Store) ListRubricsByCompetencyIDs(ctx context.Context, competencyIDs []string) ([]*models.Rubric, error) {
	query := `
		SELECT ` + rubricColumns + `
		FROM rubrics
		WHERE competency_id = ANY($1) AND deleted_at IS NULL
		ORDER BY competency_id, name`

	return s.queryRubrics(ctx, query, competencyIDs)
}

func (s *Store) ListAllRubrics(ctx context.Context) ([]*models.Rubric, error) {
	query := `
		SELECT ` + rubricColumns + `
		FROM rubrics
		WHERE deleted_at IS NULL
		ORDER BY competency_id, name`

	return s.queryRubrics(ctx, query)
}

func (s *Store) DeleteRubric(ctx context.Context, id string) error {
	query := `UPDATE rubrics SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	tag, err := s.conn(ctx).Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("delete rubric: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("rubric not found")
	}
	return nil
}

func (s *Store) queryRubrics(ctx context.Context, query string, args ...any) ([]*models.Rubric, error) {
	rows, err := s.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rubrics: %w", err)
	}
	defer rows.Close()

	var rubrics []*models.Rubric
	for rows.Next() {
		r, err := scanRubric(rows)
		if err != nil {
			return nil, err
		}
		rubrics = append(rubrics, r)
	}
	return rubrics, rows.Err()
}

func scanRubric(row pgx.Row) (*models.Rubric, error) {
	r := &models.Rubric{}
	var levels []byte
	err := row.Scan(&r.ID, &r.CompetencyID, &r.Name, &levels, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan rubric: %w", err)
	}
	if len(levels) > 0 {
		if err := json.Unmarshal(levels, &r.Levels); err != nil {
			return nil, fmt.Errorf("unmarshal levels: %w", err)
		}
	}
	return r, nil
}
