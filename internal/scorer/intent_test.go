package scorer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadintel/internal/model"
)

var analyzedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newsAt(daysAgo int, title string) model.NewsItem {
	return model.NewsItem{
		Title:       title,
		PublishedAt: analyzedAt.AddDate(0, 0, -daysAgo),
	}
}

func TestAnalyzeIntentNilSnapshot(t *testing.T) {
	p := AnalyzeIntent("c1", nil, analyzedAt)

	assert.Equal(t, 30, p.Score)
	assert.Equal(t, model.IntentCold, p.Level)
	assert.Equal(t, model.StageUnknown, p.BuyingStage)
	assert.Empty(t, p.Signals)
}

func TestAnalyzeIntentHiringUrgency(t *testing.T) {
	tests := []struct {
		name       string
		postings   int
		wantScore  int
		wantLevel  model.IntentLevel
		wantStage  model.BuyingStage
		wantWeight int
	}{
		{"low urgency", 1, 38, model.IntentCold, model.StageUnknown, 8},
		{"medium urgency", 5, 45, model.IntentWarm, model.StageUnknown, 15},
		{"high urgency", 10, 55, model.IntentWarm, model.StageConsideration, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &model.ScrapeSnapshot{
				Hiring: &model.HiringSignals{ActivelyHiring: true, JobPostingCount: tt.postings},
			}
			p := AnalyzeIntent("c1", snap, analyzedAt)
			assert.Equal(t, tt.wantScore, p.Score)
			assert.Equal(t, tt.wantLevel, p.Level)
			assert.Equal(t, tt.wantStage, p.BuyingStage)
			require.Len(t, p.Signals, 1)
			assert.Equal(t, model.SignalHiring, p.Signals[0].Type)
			assert.Equal(t, tt.wantWeight, p.Signals[0].Weight)
		})
	}
}

func TestAnalyzeIntentNotHiring(t *testing.T) {
	snap := &model.ScrapeSnapshot{
		Hiring: &model.HiringSignals{ActivelyHiring: false, JobPostingCount: 20},
	}
	p := AnalyzeIntent("c1", snap, analyzedAt)
	assert.Equal(t, 30, p.Score)
	assert.Empty(t, p.Signals)
}

func TestAnalyzeIntentNewsClassification(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		wantScore int
	}{
		{"funding without amount", "シリーズB資金調達を実施", 50},
		{"funding with amount", "10億円の資金調達を発表", 65},
		{"expansion", "大阪に新拠点を開設し事業拡大", 45},
		{"product", "新サービスの提供開始", 42},
		{"partnership", "大手商社と業務提携", 40},
		{"other", "代表取締役交代のお知らせ", 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &model.ScrapeSnapshot{News: []model.NewsItem{newsAt(1, tt.title)}}
			p := AnalyzeIntent("c1", snap, analyzedAt)
			assert.Equal(t, tt.wantScore, p.Score)
			require.Len(t, p.Signals, 1)
			assert.Equal(t, model.SignalNews, p.Signals[0].Type)
		})
	}
}

func TestAnalyzeIntentFundingNewsSetsConsideration(t *testing.T) {
	snap := &model.ScrapeSnapshot{News: []model.NewsItem{newsAt(2, "資金調達のお知らせ")}}
	p := AnalyzeIntent("c1", snap, analyzedAt)
	assert.Equal(t, model.StageConsideration, p.BuyingStage)
}

func TestAnalyzeIntentFundingAmountCountedOnce(t *testing.T) {
	snap := &model.ScrapeSnapshot{News: []model.NewsItem{
		newsAt(1, "5億円を調達"),
		newsAt(2, "追加で3億円の資金調達"),
	}}
	p := AnalyzeIntent("c1", snap, analyzedAt)
	// 30 + 20 + 15 (amount, once) + 20 = 85
	assert.Equal(t, 85, p.Score)
	assert.Equal(t, model.IntentHot, p.Level)
}

func TestAnalyzeIntentFundingAmountOnOlderItem(t *testing.T) {
	// The most recent funding item has no amount; the amount bump must still
	// apply when an older item in the window carries one.
	snap := &model.ScrapeSnapshot{News: []model.NewsItem{
		newsAt(1, "シリーズBの資金調達を実施"),
		newsAt(5, "10億円の資金調達を完了"),
	}}
	p := AnalyzeIntent("c1", snap, analyzedAt)
	// 30 + 20 + 20 + 15 (amount) = 85
	assert.Equal(t, 85, p.Score)
	assert.Equal(t, model.IntentHot, p.Level)
}

func TestAnalyzeIntentOnlyThreeMostRecentNews(t *testing.T) {
	snap := &model.ScrapeSnapshot{News: []model.NewsItem{
		newsAt(40, "古い提携ニュース"),
		newsAt(1, "業務提携を発表"),
		newsAt(2, "協業の開始"),
		newsAt(3, "パートナー契約"),
	}}
	p := AnalyzeIntent("c1", snap, analyzedAt)
	// Three partnership items at +10 each; the 40-day-old one is dropped.
	assert.Equal(t, 60, p.Score)
	assert.Len(t, p.Signals, 3)
}

func TestAnalyzeIntentSocialSignalHasNoWeight(t *testing.T) {
	snap := &model.ScrapeSnapshot{
		Hiring: &model.HiringSignals{ActivelyHiring: true, JobPostingCount: 2},
		Social: &model.SocialSignals{Active: true, PostsPerWeek: 3},
	}
	p := AnalyzeIntent("c1", snap, analyzedAt)

	assert.Equal(t, 38, p.Score)
	require.Len(t, p.Signals, 2)
	assert.Equal(t, 0, p.Signals[1].Weight)
	// Two signals promote the stage to awareness.
	assert.Equal(t, model.StageAwareness, p.BuyingStage)
}

func TestAnalyzeIntentClampsAt100(t *testing.T) {
	snap := &model.ScrapeSnapshot{
		Hiring: &model.HiringSignals{ActivelyHiring: true, JobPostingCount: 30},
		News: []model.NewsItem{
			newsAt(1, "20億円の資金調達"),
			newsAt(2, "新製品をリリース"),
			newsAt(3, "海外進出で事業拡大"),
		},
	}
	p := AnalyzeIntent("c1", snap, analyzedAt)
	assert.Equal(t, 100, p.Score)
	assert.Equal(t, model.IntentHot, p.Level)
}

func TestAnalyzeIntentIdempotent(t *testing.T) {
	snap := &model.ScrapeSnapshot{
		Hiring: &model.HiringSignals{ActivelyHiring: true, JobPostingCount: 7},
		News:   []model.NewsItem{newsAt(1, "新サービス提供開始")},
		Social: &model.SocialSignals{Active: true, PostsPerWeek: 5},
	}
	first := AnalyzeIntent("c1", snap, analyzedAt)
	second := AnalyzeIntent("c1", snap, analyzedAt)
	assert.Equal(t, first, second)
}

func TestHiringUrgencyFor(t *testing.T) {
	assert.Equal(t, UrgencyNone, HiringUrgencyFor(0))
	assert.Equal(t, UrgencyLow, HiringUrgencyFor(1))
	assert.Equal(t, UrgencyMedium, HiringUrgencyFor(5))
	assert.Equal(t, UrgencyMedium, HiringUrgencyFor(9))
	assert.Equal(t, UrgencyHigh, HiringUrgencyFor(10))
}
