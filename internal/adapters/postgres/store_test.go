package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/advisim/advisim/internal/domain/models"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool failed: %v", err)
	}
	t.Cleanup(mock.Close)
	return New(mock), mock
}

func TestGetRubricByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM rubrics").
		WithArgs("rub_missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "competency_id", "name", "levels", "created_at", "updated_at"}))

	rubric, err := store.GetRubricByID(context.Background(), "rub_missing")
	if err != nil {
		t.Fatalf("GetRubricByID failed: %v", err)
	}
	if rubric != nil {
		t.Errorf("expected nil for missing rubric, got %+v", rubric)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListRubricsByCompetencyIDs(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	levels := []byte(`{"beginner":[{"min_score":1,"max_score":5,"expectation":"basic effort"}]}`)
	mock.ExpectQuery("SELECT (.+) FROM rubrics").
		WithArgs([]string{"comp_1"}).
		WillReturnRows(pgxmock.
			NewRows([]string{"id", "competency_id", "name", "levels", "created_at", "updated_at"}).
			AddRow("rub_1", "comp_1", "Communication Rubric", levels, now, now))

	rubrics, err := store.ListRubricsByCompetencyIDs(context.Background(), []string{"comp_1"})
	if err != nil {
		t.Fatalf("ListRubricsByCompetencyIDs failed: %v", err)
	}
	if len(rubrics) != 1 {
		t.Fatalf("got %d rubrics, want 1", len(rubrics))
	}
	bands := rubrics[0].Levels["beginner"]
	if len(bands) != 1 || bands[0].MaxScore != 5 || bands[0].Expectation != "basic effort" {
		t.Errorf("levels not decoded: %+v", rubrics[0].Levels)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestListCompetenciesFiltersAndDecodes(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM competencies").
		WithArgs([]string{"comp_1", "comp_2"}).
		WillReturnRows(pgxmock.
			NewRows([]string{"id", "name", "description", "criteria", "created_at", "updated_at"}).
			AddRow("comp_1", "Communication", "Clear explanations", []byte(`["active listening"]`), now, now).
			AddRow("comp_2", "Rapport Building", "Trust and connection", []byte(`[]`), now, now))

	competencies, err := store.ListCompetencies(context.Background(), []string{"comp_1", "comp_2"})
	if err != nil {
		t.Fatalf("ListCompetencies failed: %v", err)
	}
	if len(competencies) != 2 {
		t.Fatalf("got %d competencies, want 2", len(competencies))
	}
	if len(competencies[0].Criteria) != 1 || competencies[0].Criteria[0] != "active listening" {
		t.Errorf("criteria not decoded: %+v", competencies[0].Criteria)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	store, mock := newMockStore(t)

	session := models.NewSimulationSession("sim_1", "user_1", "insurance", "beginner")
	mock.ExpectExec("INSERT INTO simulation_sessions").
		WithArgs(session.ID, session.UserID, session.Industry, session.Difficulty,
			session.Status, session.OverallScore,
			session.CreatedAt, session.UpdatedAt, session.EndedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	mock.ExpectQuery("SELECT (.+) FROM simulation_sessions").
		WithArgs("sim_1").
		WillReturnRows(pgxmock.
			NewRows([]string{"id", "user_id", "industry", "difficulty", "status", "overall_score", "created_at", "updated_at", "ended_at"}).
			AddRow("sim_1", "user_1", "insurance", "beginner", models.SessionStatusActive, (*float64)(nil), session.CreatedAt, session.UpdatedAt, (*time.Time)(nil)))

	got, err := store.GetSessionByID(context.Background(), "sim_1")
	if err != nil {
		t.Fatalf("GetSessionByID failed: %v", err)
	}
	if got == nil || got.UserID != "user_1" || got.Status != models.SessionStatusActive {
		t.Errorf("session = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdateSessionNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	session := models.NewSimulationSession("sim_gone", "user_1", "banking", "advanced")
	mock.ExpectExec("UPDATE simulation_sessions").
		WithArgs(session.Status, session.OverallScore, session.UpdatedAt, session.EndedAt, session.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := store.UpdateSession(context.Background(), session); err == nil {
		t.Fatal("expected error for missing session")
	}
}

func TestGetDifficultySetting(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM difficulty_settings").
		WithArgs("advanced").
		WillReturnRows(pgxmock.
			NewRows([]string{"difficulty", "objection_rate", "patience_level", "detail_demand", "trust_threshold"}).
			AddRow("advanced", 0.8, 2, 9, 80))

	setting, err := store.GetDifficultySetting(context.Background(), "advanced")
	if err != nil {
		t.Fatalf("GetDifficultySetting failed: %v", err)
	}
	if setting.ObjectionRate != 0.8 || setting.TrustThreshold != 80 {
		t.Errorf("setting = %+v", setting)
	}
}

func TestGetIndustrySettingNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM industry_settings").
		WithArgs("mining").
		WillReturnRows(pgxmock.NewRows([]string{"industry", "subcategories", "regulations", "common_needs", "products"}))

	setting, err := store.GetIndustrySetting(context.Background(), "mining")
	if err != nil {
		t.Fatalf("GetIndustrySetting failed: %v", err)
	}
	if setting != nil {
		t.Errorf("expected nil for unknown industry, got %+v", setting)
	}
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE competencies SET deleted_at").
		WithArgs(pgxmock.AnyArg(), "comp_1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(ctx context.Context) error {
		return store.DeleteCompetency(ctx, "comp_1")
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.WithTx(context.Background(), func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
