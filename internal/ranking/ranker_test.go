package ranking

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedCompany(t *testing.T, st store.Store, id, name, industry, location string, employees int) {
	t.Helper()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.UpsertCompany(context.Background(), &model.Company{
		ID: id, Name: name, Industry: industry, Location: location,
		EmployeeCount: employees, CreatedAt: now, UpdatedAt: now,
	}))
}

func seedIntent(t *testing.T, st store.Store, companyID string, score int, level model.IntentLevel, stage model.BuyingStage) {
	t.Helper()
	require.NoError(t, st.SaveIntentProfile(context.Background(), &model.IntentProfile{
		CompanyID: companyID, Score: score, Level: level, BuyingStage: stage,
		AnalyzedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}))
}

func TestPriorityFor_Cascade(t *testing.T) {
	tests := []struct {
		name     string
		combined int
		intent   model.IntentLevel
		match    model.MatchLevel
		want     model.Rank
	}{
		{"combined 80 alone", 80, model.IntentCold, model.MatchLow, model.RankS},
		{"hot and excellent below 80", 55, model.IntentHot, model.MatchExcellent, model.RankS},
		{"hot lifts low combined to A", 55, model.IntentHot, model.MatchLow, model.RankA},
		{"excellent lifts low combined to A", 55, model.IntentCold, model.MatchExcellent, model.RankA},
		{"combined 60 alone", 60, model.IntentCold, model.MatchLow, model.RankA},
		{"warm lifts to B", 30, model.IntentWarm, model.MatchLow, model.RankB},
		{"good match lifts to B", 30, model.IntentCold, model.MatchGood, model.RankB},
		{"combined 40 alone", 40, model.IntentCold, model.MatchLow, model.RankB},
		{"nothing qualifies", 39, model.IntentCold, model.MatchLow, model.RankC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, priorityFor(tt.combined, tt.intent, tt.match))
		})
	}
}

func TestRank_IntentOnlyWithoutProduct(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedCompany(t, st, "c-1", "アルファ商事", "IT", "東京都", 100)
	seedIntent(t, st, "c-1", 55, model.IntentHot, model.StageConsideration)

	page, err := New(st).Rank(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, page.Leads, 1)

	lead := page.Leads[0]
	// Without a scoped product the combined score is the intent score.
	assert.Equal(t, 55, lead.CombinedScore)
	assert.Equal(t, 0, lead.MatchScore)
	// Hot intent outranks the combined-score tier.
	assert.Equal(t, model.RankA, lead.Priority)
	assert.Contains(t, lead.Actions, "検討意欲が高いうちに商談を打診")
}

func TestRank_CombinedScoreWithProduct(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertProduct(ctx, &model.Product{
		ID: "prod-1", Name: "営業支援SaaS",
		TargetIndustries: []string{"IT"},
		MinEmployees:     50, MaxEmployees: 500,
		TargetLocations: []string{"東京"},
	}))
	// Full product match: 50+20+15+10 = 95.
	seedCompany(t, st, "c-1", "アルファ商事", "IT", "東京都港区", 100)
	seedIntent(t, st, "c-1", 73, model.IntentHot, model.StageConsideration)

	page, err := New(st).Rank(ctx, Filter{ProductID: "prod-1"})
	require.NoError(t, err)
	require.Len(t, page.Leads, 1)

	lead := page.Leads[0]
	assert.Equal(t, 95, lead.MatchScore)
	assert.Equal(t, model.MatchExcellent, lead.MatchLevel)
	// round(0.5*73 + 0.5*95) = 84
	assert.Equal(t, 84, lead.CombinedScore)
	assert.Equal(t, model.RankS, lead.Priority)
	assert.Contains(t, lead.Actions, "最優先で架電アプローチ")
	assert.Contains(t, lead.Actions, "製品提案資料を送付")
}

func TestRank_CompanyWithoutIntentProfile(t *testing.T) {
	st := newTestStore(t)
	seedCompany(t, st, "c-1", "ベータ工業", "製造業", "愛知県", 40)

	page, err := New(st).Rank(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, page.Leads, 1)
	assert.Equal(t, 0, page.Leads[0].IntentScore)
	assert.Equal(t, model.IntentCold, page.Leads[0].IntentLevel)
	assert.Equal(t, model.StageUnknown, page.Leads[0].BuyingStage)
	assert.Equal(t, model.RankC, page.Leads[0].Priority)
}

func TestRank_SortAndTieBreak(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedCompany(t, st, "c-b", "会社B", "IT", "東京都", 100)
	seedCompany(t, st, "c-a", "会社A", "IT", "東京都", 100)
	seedCompany(t, st, "c-c", "会社C", "IT", "東京都", 100)
	seedIntent(t, st, "c-b", 50, model.IntentWarm, model.StageAwareness)
	seedIntent(t, st, "c-a", 50, model.IntentWarm, model.StageAwareness)
	seedIntent(t, st, "c-c", 70, model.IntentHot, model.StageConsideration)

	page, err := New(st).Rank(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, page.Leads, 3)
	assert.Equal(t, "c-c", page.Leads[0].Company.ID)
	// Equal scores break ties by company ID ascending.
	assert.Equal(t, "c-a", page.Leads[1].Company.ID)
	assert.Equal(t, "c-b", page.Leads[2].Company.ID)

	page, err = New(st).Rank(ctx, Filter{SortBy: SortByIntentScore, SortAsc: true})
	require.NoError(t, err)
	assert.Equal(t, "c-a", page.Leads[0].Company.ID)
	assert.Equal(t, "c-b", page.Leads[1].Company.ID)
	assert.Equal(t, "c-c", page.Leads[2].Company.ID)

	page, err = New(st).Rank(ctx, Filter{SortBy: SortByCompanyName})
	require.NoError(t, err)
	assert.Equal(t, "会社A", page.Leads[0].Company.Name)
}

func TestRank_PostFiltersAndPagination(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedCompany(t, st, "c-1", "東京IT", "IT", "東京都", 100)
	seedCompany(t, st, "c-2", "大阪IT", "IT", "大阪府", 100)
	seedCompany(t, st, "c-3", "福岡IT", "IT", "福岡県", 100)
	seedIntent(t, st, "c-1", 80, model.IntentHot, model.StageConsideration)
	seedIntent(t, st, "c-2", 60, model.IntentWarm, model.StageAwareness)
	seedIntent(t, st, "c-3", 30, model.IntentCold, model.StageUnknown)

	page, err := New(st).Rank(ctx, Filter{Locations: []string{"東京", "大阪"}})
	require.NoError(t, err)
	require.Len(t, page.Leads, 2)

	page, err = New(st).Rank(ctx, Filter{IntentLevels: []model.IntentLevel{model.IntentHot}})
	require.NoError(t, err)
	require.Len(t, page.Leads, 1)
	assert.Equal(t, "c-1", page.Leads[0].Company.ID)

	page, err = New(st).Rank(ctx, Filter{MinIntentScore: 50, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page.Leads, 1)
	assert.Equal(t, "c-2", page.Leads[0].Company.ID)
	// Summary covers the filtered set, not just the returned page.
	assert.Equal(t, 2, page.Summary.Total)

	page, err = New(st).Rank(ctx, Filter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Leads)
	assert.Equal(t, 3, page.Summary.Total)
}

func TestRank_Summary(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedCompany(t, st, "c-1", "東京IT", "IT", "東京都", 100)
	seedCompany(t, st, "c-2", "大阪IT", "IT", "大阪府", 100)
	seedCompany(t, st, "c-3", "名古屋製造", "製造業", "愛知県", 200)
	seedIntent(t, st, "c-1", 80, model.IntentHot, model.StageConsideration)
	seedIntent(t, st, "c-2", 60, model.IntentWarm, model.StageAwareness)
	seedIntent(t, st, "c-3", 40, model.IntentCold, model.StageUnknown)

	page, err := New(st).Rank(ctx, Filter{})
	require.NoError(t, err)

	s := page.Summary
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.ByIntentLevel[model.IntentHot])
	assert.Equal(t, 1, s.ByIntentLevel[model.IntentWarm])
	assert.Equal(t, 1, s.ByIntentLevel[model.IntentCold])
	assert.Equal(t, 1, s.ByBuyingStage[model.StageConsideration])
	assert.Equal(t, 1, s.ByPriority[model.RankS])
	assert.InDelta(t, 60.0, s.AvgIntentScore, 0.001)
	assert.InDelta(t, 60.0, s.AvgCombinedScore, 0.001)
	require.NotEmpty(t, s.TopIndustries)
	assert.Equal(t, "IT", s.TopIndustries[0].Industry)
	assert.Equal(t, 2, s.TopIndustries[0].Count)
}

func TestRank_DecliningEngagementAddsReengageAction(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, st.UpsertProject(ctx, &model.Project{
		ID: "p-1", Name: "新規開拓Q1", Status: model.ProjectActive, CreatedAt: now,
	}))
	seedCompany(t, st, "c-1", "東京IT", "IT", "東京都", 100)
	seedIntent(t, st, "c-1", 60, model.IntentWarm, model.StageAwareness)
	require.NoError(t, st.PutEngagement(ctx, &model.EngagementScore{
		CompanyID: "c-1", ProjectID: "p-1", CallScore: 30, TotalScore: 30,
		Trend: model.TrendDeclining, AlertLevel: model.AlertLow,
		LastActivityAt: now, CreatedAt: now, UpdatedAt: now,
	}))

	page, err := New(st).Rank(ctx, Filter{ProjectID: "p-1"})
	require.NoError(t, err)
	require.Len(t, page.Leads, 1)
	assert.Contains(t, page.Leads[0].Actions, "エンゲージメント低下のため再アプローチ")
}
