package crosssell

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadintel/internal/config"
	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/store"
)

func testCrossSellConfig() config.CrossSellConfig {
	return config.CrossSellConfig{
		MaxRejectedCompanies: 50,
		MinScore:             60,
	}
}

func newTestRecommender(t *testing.T) (*Recommender, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, st.UpsertProject(ctx, &model.Project{
		ID: "p-src", Name: "テレアポ案件", Status: model.ProjectActive,
		CreatedAt: created,
	}))
	require.NoError(t, st.UpsertProject(ctx, &model.Project{
		ID: "p-it", Name: "IT企業向けSaaS案件",
		Description: "IT企業向けの営業支援SaaS導入提案",
		Status:      model.ProjectActive, CreatedAt: created.Add(time.Hour),
	}))
	return New(st, testCrossSellConfig()), st
}

func seedRejected(t *testing.T, st store.Store, id, industry, location string, employees int, at time.Time) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.UpsertCompany(ctx, &model.Company{
		ID: id, Name: id, Industry: industry, Location: location,
		EmployeeCount: employees, CreatedAt: at, UpdatedAt: at,
	}))
	require.NoError(t, st.RecordCallOutcome(ctx, "p-src", id, "rejected", at))
}

func TestRun_FullMatchScoring(t *testing.T) {
	r, st := newTestRecommender(t)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// 40 base + 25 industry-in-description + 10 employees + 10 Tokyo + 5 = 90.
	seedRejected(t, st, "c-1", "IT", "東京都渋谷区", 80, at)

	recs, err := r.Run(context.Background(), "p-src")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, 90, rec.MatchScore)
	assert.Equal(t, "p-it", rec.TargetProjectID)
	assert.Equal(t, "c-1", rec.CompanyID)
	assert.Equal(t, model.RecSuggested, rec.Status)
	assert.Len(t, rec.Reasons, 4)
}

func TestRun_BelowMinScoreDropped(t *testing.T) {
	r, st := newTestRecommender(t)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// 40 base + 10 employees + 5 = 55 < 60.
	seedRejected(t, st, "c-low", "小売", "福岡県", 120, at)

	recs, err := r.Run(context.Background(), "p-src")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRun_OsakaCountsAsReachable(t *testing.T) {
	r, st := newTestRecommender(t)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// 40 base + 10 employees + 10 Osaka + 5 = 65.
	seedRejected(t, st, "c-osaka", "小売", "大阪府大阪市", 60, at)

	recs, err := r.Run(context.Background(), "p-src")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 65, recs[0].MatchScore)
}

func TestRun_SourceProjectExcluded(t *testing.T) {
	r, st := newTestRecommender(t)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedRejected(t, st, "c-1", "IT", "東京都", 80, at)

	recs, err := r.Run(context.Background(), "p-src")
	require.NoError(t, err)
	for _, rec := range recs {
		assert.NotEqual(t, "p-src", rec.TargetProjectID)
	}
}

func TestRun_RejectedCompanyCap(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.UpsertProject(ctx, &model.Project{
		ID: "p-src", Name: "テレアポ案件", Status: model.ProjectActive, CreatedAt: created,
	}))
	require.NoError(t, st.UpsertProject(ctx, &model.Project{
		ID: "p-it", Name: "IT案件", Description: "IT企業向け",
		Status: model.ProjectActive, CreatedAt: created.Add(time.Hour),
	}))

	cfg := testCrossSellConfig()
	cfg.MaxRejectedCompanies = 3
	r := New(st, cfg)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedRejected(t, st, fmt.Sprintf("c-%d", i), "IT", "東京都", 100, at.Add(time.Duration(i)*time.Minute))
	}

	recs, err := r.Run(ctx, "p-src")
	require.NoError(t, err)
	// Only the three earliest rejections are considered.
	require.Len(t, recs, 3)
	assert.Equal(t, "c-0", recs[0].CompanyID)
	assert.Equal(t, "c-2", recs[2].CompanyID)
}

func TestRun_RerunRefreshesWithoutDuplicates(t *testing.T) {
	r, st := newTestRecommender(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedRejected(t, st, "c-1", "IT", "東京都", 80, at)

	_, err := r.Run(ctx, "p-src")
	require.NoError(t, err)
	_, err = r.Run(ctx, "p-src")
	require.NoError(t, err)

	list, err := st.ListRecommendations(ctx, "p-it")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRun_UnknownSourceProject(t *testing.T) {
	r, _ := newTestRecommender(t)

	_, err := r.Run(context.Background(), "no-such-project")
	require.Error(t, err)
}
