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

func (s *Store) CreateCompetency(ctx context.Context, competency *models.Competency) error {
	query := `
		INSERT INTO competencies (id, name, description, criteria, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	criteria, err := json.Marshal(competency.Criteria)
	if err != nil {
		return fmt.Errorf("marshal criteria: %w", err)
	}

	_, err = s.conn(ctx).Exec(ctx, query,
		competency.ID, competency.Name, competency.Description, criteria,
		competency.CreatedAt, competency.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create competency: %w", err)
	}
	return nil
}

func (s *Store) GetCompetencyByID(ctx context.Context, id string) (*models.Competency, error) {
	query := `
		SELECT id, name, description, criteria, created_at, updated_at
		FROM competencies
		WHERE id = $1 AND deleted_at IS NULL`

	return scanCompetency(s.conn(ctx).QueryRow(ctx, query, id))
}

// ListCompetencies returns the competencies with the given IDs, or all
// live competencies when ids is empty.
func (s *Store) ListCompetencies(ctx context.Context, ids []string) ([]*models.Competency, error) {
	query := `
		SELECT id, name, description, criteria, created_at, updated_at
		FROM competencies
		WHERE deleted_at IS NULL
		ORDER BY name`
	args := []any{}
	if len(ids) > 0 {
		query = `
		SELECT id, name, description, criteria, created_at, updated_at
		FROM competencies
		WHERE id = ANY($1) AND deleted_at IS NULL
		ORDER BY name`
		args = append(args, ids)
	}

	rows, err := s.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list competencies: %w", err)
	}
	defer rows.Close()

	var competencies []*models.Competency
	for rows.Next() {
		c, err := scanCompetency(rows)
		if err != nil {
			return nil, err
		}
		competencies = append(competencies, c)
	}
	return competencies, rows.Err()
}

func (s *Store) DeleteCompetency(ctx context.Context, id string) error {
	query := `UPDATE competencies SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	tag, err := s.conn(ctx).Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("delete competency: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("competency not found")
	}
	return nil
}

func scanCompetency(row pgx.Row) (*models.Competency, error) {
	c := &models.Competency{}
	var criteria []byte
	err := row.Scan(&c.ID, &c.Name, &c.Description, &criteria, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan competency: %w", err)
	}
	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &c.Criteria); err != nil {
			return nil, fmt.Errorf("unmarshal criteria: %w", err)
		}
	}
	return c, nil
}
