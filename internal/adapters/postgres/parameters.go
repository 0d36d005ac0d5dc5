package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/advisim/advisim/internal/domain/models"
)

func (s *Store) GetIndustrySetting(ctx context.Context, industry string) (*models.IndustrySetting, error) {
	query := `
		SELECT industry, subcategories, regulations, common_needs, products
		FROM industry_settings
		WHERE industry = $1`

	setting := &models.IndustrySetting{}
	var subcategories, regulations, needs, products []byte
	err := s.conn(ctx).QueryRow(ctx, query, industry).Scan(
		&setting.Industry, &subcategories, &regulations, &needs, &products)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get industry setting: %w", err)
	}

	for _, pair := range []struct {
		raw  []byte
		dest *[]string
	}{
		{subcategories, &setting.Subcategories},
		{regulations, &setting.Regulations},
		{needs, &setting.CommonNeeds},
		{products, &setting.Products},
	} {
		if len(pair.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.raw, pair.dest); err != nil {
			return nil, fmt.Errorf("unmarshal industry setting: %w", err)
		}
	}
	return setting, nil
}

func (s *Store) GetDifficultySetting(ctx context.Context, difficulty string) (*models.DifficultySetting, error) {
	query := `
		SELECT difficulty, objection_rate, patience_level, detail_demand, trust_threshold
		FROM difficulty_settings
		WHERE difficulty = $1`

	setting := &models.DifficultySetting{}
	err := s.conn(ctx).QueryRow(ctx, query, difficulty).Scan(
		&setting.Difficulty, &setting.ObjectionRate, &setting.PatienceLevel,
		&setting.DetailDemand, &setting.TrustThreshold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get difficulty setting: %w", err)
	}
	return setting, nil
}
