package narrative

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadintel/internal/model"
)

func TestAlertPrompt(t *testing.T) {
	alert := model.PivotAlert{
		AlertType: model.AlertLowRate,
		Severity:  model.SeverityCritical,
		CurrentMetrics: map[string]float64{
			"appointment_rate": 33.33,
		},
		ThresholdMetrics: map[string]float64{
			"min_appointment_rate": 50,
		},
		Suggestions: []string{"ターゲット条件の見直し", "トークスクリプトの改訂"},
	}
	stats := model.CallStats{TotalCalls: 60, Appointments: 20, Rejections: 30}

	prompt := alertPrompt(alert, stats)
	assert.Contains(t, prompt, "low_rate")
	assert.Contains(t, prompt, "critical")
	assert.Contains(t, prompt, "架電数: 60、アポイント: 20、拒否: 30")
	assert.Contains(t, prompt, "appointment_rate: 33.33")
	assert.Contains(t, prompt, "min_appointment_rate: 50.00")
	assert.Contains(t, prompt, "ターゲット条件の見直し / トークスクリプトの改訂")
}

func TestAlertPromptMetricOrderIsStable(t *testing.T) {
	alert := model.PivotAlert{
		AlertType: model.AlertHighRejection,
		Severity:  model.SeverityWarning,
		CurrentMetrics: map[string]float64{
			"rejection_ratio":  0.80,
			"appointment_rate": 10,
			"total_calls":      40,
		},
	}
	stats := model.CallStats{TotalCalls: 40, Appointments: 4, Rejections: 32}

	first := alertPrompt(alert, stats)
	for range 20 {
		assert.Equal(t, first, alertPrompt(alert, stats))
	}
	// Keys come out sorted, not in map iteration order.
	assert.Less(t, strings.Index(first, "appointment_rate"), strings.Index(first, "rejection_ratio"))
	assert.Less(t, strings.Index(first, "rejection_ratio"), strings.Index(first, "total_calls"))
}

func TestRecommendationPrompt(t *testing.T) {
	rec := model.CrossSellRecommendation{
		MatchScore: 90,
		Reasons:    []string{"従業員50名以上", "接触履歴あり"},
	}
	company := model.Company{
		Name: "アルファ商事", Industry: "IT",
		EmployeeCount: 80, Location: "東京都渋谷区",
	}

	prompt := recommendationPrompt(rec, company)
	assert.Contains(t, prompt, "アルファ商事")
	assert.Contains(t, prompt, "従業員: 80名")
	assert.Contains(t, prompt, "マッチスコア: 90")
	assert.Contains(t, prompt, "従業員50名以上 / 接触履歴あり")
}

func TestNewDrafter(t *testing.T) {
	d := NewDrafter("claude-haiku-4-5-20251001", "test-key")
	assert.NotNil(t, d)
}
