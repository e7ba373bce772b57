package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadintel/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetCompany_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, client_id, name, industry, employee_count`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetCompany(context.Background(), "nonexistent")
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertCompany(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO companies`).
		WithArgs("c-1", "client-1", "テスト株式会社", "IT", 120, "東京都港区",
			"https://example.co.jp", pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	now := time.Now().UTC()
	err := s.UpsertCompany(context.Background(), &model.Company{
		ID: "c-1", ClientID: "client-1", Name: "テスト株式会社", Industry: "IT",
		EmployeeCount: 120, Location: "東京都港区", Website: "https://example.co.jp",
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveFitResult_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE companies`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.SaveFitResult(context.Background(), "ghost", model.FitResult{Score: 70, Rank: model.RankA}, time.Now())
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveIntentProfile_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO intent_profiles`).
		WithArgs("c-1", pgxmock.AnyArg(), 55, "warm", "consideration",
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveIntentProfile(context.Background(), &model.IntentProfile{
		CompanyID: "c-1", Score: 55, Level: model.IntentWarm,
		BuyingStage: model.StageConsideration, Summary: "採用活発",
		AnalyzedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetEngagement_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT company_id, project_id, call_score`).
		WithArgs("c-x", "p-x").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetEngagement(context.Background(), "c-x", "p-x")
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutEngagement_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO engagement_scores`).
		WithArgs("c-1", "p-1", 10, 35, 0, 0, 45, "rising", "medium",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	now := time.Now().UTC()
	err := s.PutEngagement(context.Background(), &model.EngagementScore{
		CompanyID: "c-1", ProjectID: "p-1",
		CallScore: 10, DocumentScore: 35, TotalScore: 45,
		Trend: model.TrendRising, AlertLevel: model.AlertMedium,
		LastActivityAt: now, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CallStats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("p-1").
		WillReturnRows(pgxmock.NewRows([]string{"count", "appointments", "rejections"}).
			AddRow(60, 20, 30))

	stats, err := s.CallStats(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, 60, stats.TotalCalls)
	assert.Equal(t, 20, stats.Appointments)
	assert.Equal(t, 30, stats.Rejections)
	assert.InDelta(t, 33.33, stats.AppointmentRate(), 0.01)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordCallOutcome(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO call_outcomes`).
		WithArgs(pgxmock.AnyArg(), "p-1", "c-1", "rejected", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordCallOutcome(context.Background(), "p-1", "c-1", "rejected", time.Now())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetPivotAlertStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE pivot_alerts`).
		WithArgs("acknowledged", pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.SetPivotAlertStatus(context.Background(), "ghost", model.AlertAcknowledged, time.Now())
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListEngagementAbove_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT company_id, project_id, call_score`).
		WithArgs("p-1", 40).
		WillReturnRows(pgxmock.NewRows([]string{
			"company_id", "project_id", "call_score", "document_score",
			"web_activity_score", "social_score", "total_score", "trend",
			"alert_level", "last_activity_at", "created_at", "updated_at",
		}))

	got, err := s.ListEngagementAbove(context.Background(), "p-1", 40)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolLimits(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *PoolConfig
		wantMax int32
		wantMin int32
	}{
		{"nil config", nil, 10, 2},
		{"zero values", &PoolConfig{}, 10, 2},
		{"custom values", &PoolConfig{MaxConns: 25, MinConns: 5}, 25, 5},
		{"max only", &PoolConfig{MaxConns: 4}, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMax, gotMin := poolLimits(tt.cfg)
			assert.Equal(t, tt.wantMax, gotMax)
			assert.Equal(t, tt.wantMin, gotMin)
		})
	}
}
