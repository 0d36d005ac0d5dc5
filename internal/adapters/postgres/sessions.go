package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/advisim/advisim/internal/domain/models"
)

const sessionColumns = `id, user_id, industry, difficulty, status, overall_score, created_at, updated_at, ended_at`

func (s *Store) CreateSession(ctx context.Context, session *models.SimulationSession) error {
	query := `
		INSERT INTO simulation_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.conn(ctx).Exec(ctx, query,
		session.ID, session.UserID, session.Industry, session.Difficulty,
		session.Status, session.OverallScore,
		session.CreatedAt, session.UpdatedAt, session.EndedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) GetSessionByID(ctx context.Context, id string) (*models.SimulationSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM simulation_sessions
		WHERE id = $1`

	return scanSession(s.conn(ctx).QueryRow(ctx, query, id))
}

func (s *Store) UpdateSession(ctx context.Context, session *models.SimulationSession) error {
	query := `
		UPDATE simulation_sessions
		SET status = $1, overall_score = $2, updated_at = $3, ended_at = $4
		WHERE id = $5`

	tag, err := s.conn(ctx).Exec(ctx, query,
		session.Status, session.OverallScore, session.UpdatedAt, session.EndedAt, session.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("session not found")
	}
	return nil
}

func (s *Store) ListSessionsByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.SimulationSession, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT ` + sessionColumns + `
		FROM simulation_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.conn(ctx).Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.SimulationSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*models.SimulationSession, error) {
	session := &models.SimulationSession{}
	err := row.Scan(
		&session.ID, &session.UserID, &session.Industry, &session.Difficulty,
		&session.Status, &session.OverallScore,
		&session.CreatedAt, &session.UpdatedAt, &session.EndedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return session, nil
}
