// Package narrative drafts short human-readable notes for alerts and
// recommendations. It is an optional collaborator: scoring and detection
// never depend on it, and numeric results are computed before any draft.
package narrative

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadintel/internal/model"
)

// Drafter produces short prose notes for human reviewers.
type Drafter interface {
	DraftAlertNote(ctx context.Context, alert model.PivotAlert, stats model.CallStats) (string, error)
	DraftRecommendationNote(ctx context.Context, rec model.CrossSellRecommendation, company model.Company) (string, error)
}

const systemPrompt = `あなたは営業支援ツールのアシスタントです。与えられた数値データをもとに、
営業マネージャー向けの簡潔なメモを日本語で2〜3文作成してください。数値は変更せず、
推測や誇張は避けてください。`

// sdkDrafter implements Drafter using the Anthropic Messages API.
type sdkDrafter struct {
	client    *sdk.Client
	model     string
	maxTokens int64
}

// NewDrafter creates a Drafter backed by the Anthropic API. The API key is
// read from the environment by the SDK unless provided explicitly.
func NewDrafter(modelID string, apiKey string) Drafter {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := sdk.NewClient(opts...)
	return &sdkDrafter{client: &client, model: modelID, maxTokens: 512}
}

func (d *sdkDrafter) DraftAlertNote(ctx context.Context, alert model.PivotAlert, stats model.CallStats) (string, error) {
	return d.draft(ctx, alertPrompt(alert, stats))
}

func (d *sdkDrafter) DraftRecommendationNote(ctx context.Context, rec model.CrossSellRecommendation, company model.Company) (string, error) {
	return d.draft(ctx, recommendationPrompt(rec, company))
}

func alertPrompt(alert model.PivotAlert, stats model.CallStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "プロジェクトのアラート種別: %s（重要度: %s）\n", alert.AlertType, alert.Severity)
	fmt.Fprintf(&b, "架電数: %d、アポイント: %d、拒否: %d\n", stats.TotalCalls, stats.Appointments, stats.Rejections)
	for _, k := range sortedKeys(alert.CurrentMetrics) {
		fmt.Fprintf(&b, "現在値 %s: %.2f\n", k, alert.CurrentMetrics[k])
	}
	for _, k := range sortedKeys(alert.ThresholdMetrics) {
		fmt.Fprintf(&b, "基準値 %s: %.2f\n", k, alert.ThresholdMetrics[k])
	}
	if len(alert.Suggestions) > 0 {
		fmt.Fprintf(&b, "改善案: %s\n", strings.Join(alert.Suggestions, " / "))
	}
	return b.String()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func recommendationPrompt(rec model.CrossSellRecommendation, company model.Company) string {
	var b strings.Builder
	fmt.Fprintf(&b, "クロスセル候補: %s（業界: %s、従業員: %d名、所在地: %s）\n",
		company.Name, company.Industry, company.EmployeeCount, company.Location)
	fmt.Fprintf(&b, "マッチスコア: %d\n", rec.MatchScore)
	if len(rec.Reasons) > 0 {
		fmt.Fprintf(&b, "根拠: %s\n", strings.Join(rec.Reasons, " / "))
	}
	return b.String()
}

// draft issues a single deterministic completion.
func (d *sdkDrafter) draft(ctx context.Context, input string) (string, error) {
	msg, err := d.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(d.model),
		MaxTokens:   d.maxTokens,
		Temperature: sdk.Float(0),
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(input)),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "narrative: create message")
	}

	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", eris.New("narrative: empty draft")
	}
	return text, nil
}
