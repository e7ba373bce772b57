package scorer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/textutil"
)

const (
	intentBaseScore   = 30
	maxNewsItems      = 3
	fundingAmountBump = 15
)

// HiringUrgency grades hiring pressure from the observed job-posting count.
type HiringUrgency string

const (
	UrgencyHigh   HiringUrgency = "high"
	UrgencyMedium HiringUrgency = "medium"
	UrgencyLow    HiringUrgency = "low"
	UrgencyNone   HiringUrgency = "none"
)

// newsCategory is the keyword classification of a news item.
type newsCategory string

const (
	newsFunding     newsCategory = "funding"
	newsExpansion   newsCategory = "expansion"
	newsProduct     newsCategory = "product"
	newsPartnership newsCategory = "partnership"
	newsOther       newsCategory = "other"
)

var newsCategoryPoints = map[newsCategory]int{
	newsFunding:     20,
	newsExpansion:   15,
	newsProduct:     12,
	newsPartnership: 10,
	newsOther:       10,
}

var newsKeywords = []struct {
	category newsCategory
	words    []string
}{
	{newsFunding, []string{"資金調達", "調達", "出資", "増資", "funding", "raised", "series "}},
	{newsExpansion, []string{"進出", "拡大", "新拠点", "支社", "expansion", "new office"}},
	{newsProduct, []string{"新製品", "新サービス", "リリース", "提供開始", "launch", "release"}},
	{newsPartnership, []string{"提携", "協業", "パートナー", "partnership", "alliance"}},
}

// fundingAmountRe detects a concrete raised amount, e.g. "10億円" or "$25M".
var fundingAmountRe = regexp.MustCompile(`([0-9０-９,.]+)\s*(億円|百万円|million|[mMbB]\b)|\$[0-9,.]+`)

// HiringUrgencyFor derives urgency from the job-posting count.
func HiringUrgencyFor(postings int) HiringUrgency {
	switch {
	case postings >= 10:
		return UrgencyHigh
	case postings >= 5:
		return UrgencyMedium
	case postings >= 1:
		return UrgencyLow
	default:
		return UrgencyNone
	}
}

// IntentLevelFor maps an intent score to its level.
func IntentLevelFor(score int) model.IntentLevel {
	switch {
	case score >= 70:
		return model.IntentHot
	case score >= 45:
		return model.IntentWarm
	default:
		return model.IntentCold
	}
}

// AnalyzeIntent derives a full IntentProfile from one scrape snapshot.
// The computation is wholesale: every run replaces the prior profile and
// nothing accumulates across runs. Absent signal categories contribute zero
// and never fail the computation.
func AnalyzeIntent(companyID string, snap *model.ScrapeSnapshot, now time.Time) model.IntentProfile {
	profile := model.IntentProfile{
		CompanyID:   companyID,
		Score:       intentBaseScore,
		BuyingStage: model.StageUnknown,
		AnalyzedAt:  now,
	}
	if snap == nil {
		profile.Level = IntentLevelFor(profile.Score)
		profile.Summary = "シグナルなし"
		return profile
	}

	var fundingSeen, amountSeen bool
	highUrgency := false

	if h := snap.Hiring; h != nil && h.ActivelyHiring {
		urgency := HiringUrgencyFor(h.JobPostingCount)
		var points int
		switch urgency {
		case UrgencyHigh:
			points = 25
			highUrgency = true
		case UrgencyMedium:
			points = 15
		case UrgencyLow:
			points = 8
		}
		if points > 0 {
			profile.Score += points
			profile.Signals = append(profile.Signals, model.Signal{
				Type:        model.SignalHiring,
				Description: fmt.Sprintf("採用求人%d件（緊急度: %s）", h.JobPostingCount, urgency),
				Weight:      points,
			})
		}
	}

	for _, item := range recentNews(snap.News, maxNewsItems) {
		category := classifyNews(item)
		points := newsCategoryPoints[category]
		profile.Score += points
		desc := fmt.Sprintf("ニュース[%s]: %s", category, item.Title)

		if category == newsFunding {
			fundingSeen = true
			// A detected concrete amount bumps the score once per snapshot,
			// regardless of which funding item carries it.
			if !amountSeen && hasFundingAmount(item) {
				amountSeen = true
				profile.Score += fundingAmountBump
				points += fundingAmountBump
				desc += "（調達額検出）"
			}
		}

		profile.Signals = append(profile.Signals, model.Signal{
			Type:        model.SignalNews,
			Description: desc,
			Weight:      points,
		})
	}

	if s := snap.Social; s != nil && s.Active {
		// Social activity carries no score weight; it only counts as a signal.
		profile.Signals = append(profile.Signals, model.Signal{
			Type:        model.SignalSocial,
			Description: fmt.Sprintf("SNS活動あり（週%d投稿）", s.PostsPerWeek),
			Weight:      0,
		})
	}

	if profile.Score > 100 {
		profile.Score = 100
	}
	profile.Level = IntentLevelFor(profile.Score)

	switch {
	case fundingSeen || highUrgency:
		profile.BuyingStage = model.StageConsideration
	case len(profile.Signals) >= 2:
		profile.BuyingStage = model.StageAwareness
	}

	profile.Summary = summarize(&profile)
	return profile
}

// recentNews returns up to limit items ordered newest first.
func recentNews(items []model.NewsItem, limit int) []model.NewsItem {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]model.NewsItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func classifyNews(item model.NewsItem) newsCategory {
	text := item.Title + " " + item.Summary
	for _, group := range newsKeywords {
		if _, ok := textutil.ContainsAnyFold(text, group.words); ok {
			return group.category
		}
	}
	return newsOther
}

func hasFundingAmount(item model.NewsItem) bool {
	return fundingAmountRe.MatchString(item.Title) || fundingAmountRe.MatchString(item.Summary)
}

func summarize(p *model.IntentProfile) string {
	if len(p.Signals) == 0 {
		return "シグナルなし"
	}
	var parts []string
	for _, s := range p.Signals {
		parts = append(parts, s.Description)
	}
	return fmt.Sprintf("スコア%d（%s・%s）: %s",
		p.Score, p.Level, p.BuyingStage, strings.Join(parts, " / "))
}
