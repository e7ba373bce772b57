// Package ranking combines intent and product-match signals into a single
// prioritized call list.
package ranking

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/scorer"
	"github.com/sells-group/leadintel/internal/store"
	"github.com/sells-group/leadintel/internal/textutil"
)

// Sort keys accepted by Filter.SortBy.
const (
	SortByIntentScore   = "intent_score"
	SortByCombinedScore = "combined_score"
	SortByMatchScore    = "match_score"
	SortByCompanyName   = "company_name"
)

// Filter narrows and orders the ranked lead list. Zero values mean "no
// constraint".
type Filter struct {
	ClientID       string              `json:"client_id,omitempty"`
	ProductID      string              `json:"product_id,omitempty"`
	ProjectID      string              `json:"project_id,omitempty"`
	IntentLevels   []model.IntentLevel `json:"intent_levels,omitempty"`
	BuyingStages   []model.BuyingStage `json:"buying_stages,omitempty"`
	MinIntentScore int                 `json:"min_intent_score,omitempty"`
	MinMatchScore  int                 `json:"min_match_score,omitempty"`
	Ranks          []model.Rank        `json:"ranks,omitempty"`
	Industries     []string            `json:"industries,omitempty"`
	MinEmployees   int                 `json:"min_employees,omitempty"`
	MaxEmployees   int                 `json:"max_employees,omitempty"`
	Locations      []string            `json:"locations,omitempty"`
	SortBy         string              `json:"sort_by,omitempty"`
	SortAsc        bool                `json:"sort_asc,omitempty"`
	Offset         int                 `json:"offset,omitempty"`
	Limit          int                 `json:"limit,omitempty"`
}

// RankedLead is one company with its combined prioritization verdict.
type RankedLead struct {
	Company       model.Company     `json:"company"`
	IntentScore   int               `json:"intent_score"`
	IntentLevel   model.IntentLevel `json:"intent_level"`
	BuyingStage   model.BuyingStage `json:"buying_stage"`
	MatchScore    int               `json:"match_score,omitempty"`
	MatchLevel    model.MatchLevel  `json:"match_level,omitempty"`
	CombinedScore int               `json:"combined_score"`
	Priority      model.Rank        `json:"priority"`
	Actions       []string          `json:"actions"`
}

// IndustryCount pairs an industry name with its lead count.
type IndustryCount struct {
	Industry string `json:"industry"`
	Count    int    `json:"count"`
}

// Summary aggregates the full filtered set, not just the returned page.
type Summary struct {
	Total            int                       `json:"total"`
	ByIntentLevel    map[model.IntentLevel]int `json:"by_intent_level"`
	ByBuyingStage    map[model.BuyingStage]int `json:"by_buying_stage"`
	ByPriority       map[model.Rank]int        `json:"by_priority"`
	AvgIntentScore   float64                   `json:"avg_intent_score"`
	AvgCombinedScore float64                   `json:"avg_combined_score"`
	TopIndustries    []IndustryCount           `json:"top_industries"`
}

// Page is one page of ranked leads plus the whole-set summary.
type Page struct {
	Leads   []RankedLead `json:"leads"`
	Summary Summary      `json:"summary"`
}

// Ranker builds prioritized lead lists from stored companies, intent
// profiles, and product definitions.
type Ranker struct {
	store store.Store
}

func New(st store.Store) *Ranker {
	return &Ranker{store: st}
}

// Rank computes the prioritized lead list for the given filter.
func (r *Ranker) Rank(ctx context.Context, filter Filter) (*Page, error) {
	companies, err := r.store.ListCompanies(ctx, store.CompanyFilter{
		ClientID:     filter.ClientID,
		Ranks:        filter.Ranks,
		Industries:   filter.Industries,
		MinEmployees: filter.MinEmployees,
		MaxEmployees: filter.MaxEmployees,
	})
	if err != nil {
		return nil, eris.Wrap(err, "ranking: list companies")
	}

	ids := make([]string, len(companies))
	for i, c := range companies {
		ids[i] = c.ID
	}
	profiles, err := r.store.ListIntentProfiles(ctx, ids)
	if err != nil {
		return nil, eris.Wrap(err, "ranking: list intent profiles")
	}

	var product *model.Product
	if filter.ProductID != "" {
		product, err = r.store.GetProduct(ctx, filter.ProductID)
		if err != nil {
			return nil, eris.Wrapf(err, "ranking: load product %s", filter.ProductID)
		}
	}

	// Engagement trend only informs recommended actions, and only when the
	// filter is scoped to a project.
	trends := map[string]model.Trend{}
	if filter.ProjectID != "" {
		scores, err := r.store.ListEngagementAbove(ctx, filter.ProjectID, 0)
		if err != nil {
			return nil, eris.Wrapf(err, "ranking: list engagement %s", filter.ProjectID)
		}
		for _, s := range scores {
			trends[s.CompanyID] = s.Trend
		}
	}

	leads := make([]RankedLead, 0, len(companies))
	for _, c := range companies {
		lead := RankedLead{
			Company:     c,
			IntentLevel: model.IntentCold,
			BuyingStage: model.StageUnknown,
		}
		if p, ok := profiles[c.ID]; ok {
			lead.IntentScore = p.Score
			lead.IntentLevel = p.Level
			lead.BuyingStage = p.BuyingStage
		}
		if product != nil {
			m := scorer.ScoreMatch(product, &c)
			lead.MatchScore = m.Score
			lead.MatchLevel = m.Level
			lead.CombinedScore = int(math.Round(0.5*float64(lead.IntentScore) + 0.5*float64(m.Score)))
		} else {
			lead.CombinedScore = lead.IntentScore
		}
		lead.Priority = priorityFor(lead.CombinedScore, lead.IntentLevel, lead.MatchLevel)
		lead.Actions = actionsFor(lead, trends[c.ID])
		leads = append(leads, lead)
	}

	leads = applyPostFilters(leads, filter)
	sortLeads(leads, filter)
	summary := summarize(leads)

	zap.L().Debug("ranked leads",
		zap.Int("total", summary.Total),
		zap.String("sort_by", filter.SortBy))

	return &Page{Leads: paginate(leads, filter.Offset, filter.Limit), Summary: summary}, nil
}

// priorityFor applies the priority cascade. Conditions are checked in order
// and the first match wins, so a hot lead with a weak product match still
// lands in A.
func priorityFor(combined int, intent model.IntentLevel, match model.MatchLevel) model.Rank {
	hot := intent == model.IntentHot
	warm := intent == model.IntentWarm
	excellent := match == model.MatchExcellent
	good := match == model.MatchGood

	switch {
	case combined >= 80 || (hot && excellent):
		return model.RankS
	case combined >= 60 || hot || excellent:
		return model.RankA
	case combined >= 40 || warm || good:
		return model.RankB
	default:
		return model.RankC
	}
}

func actionsFor(lead RankedLead, trend model.Trend) []string {
	var actions []string
	switch lead.Priority {
	case model.RankS:
		actions = append(actions, "最優先で架電アプローチ", "担当営業による即日フォロー")
	case model.RankA:
		actions = append(actions, "今週中に架電アプローチ")
	case model.RankB:
		actions = append(actions, "ナーチャリング対象としてフォロー")
	default:
		actions = append(actions, "四半期ごとの状況確認")
	}
	if lead.IntentLevel == model.IntentHot {
		actions = append(actions, "検討意欲が高いうちに商談を打診")
	}
	if lead.MatchLevel == model.MatchExcellent {
		actions = append(actions, "製品提案資料を送付")
	}
	if trend == model.TrendDeclining {
		actions = append(actions, "エンゲージメント低下のため再アプローチ")
	}
	return actions
}

func applyPostFilters(leads []RankedLead, filter Filter) []RankedLead {
	out := leads[:0]
	for _, l := range leads {
		if len(filter.IntentLevels) > 0 && !containsLevel(filter.IntentLevels, l.IntentLevel) {
			continue
		}
		if len(filter.BuyingStages) > 0 && !containsStage(filter.BuyingStages, l.BuyingStage) {
			continue
		}
		if filter.MinIntentScore > 0 && l.IntentScore < filter.MinIntentScore {
			continue
		}
		if filter.MinMatchScore > 0 && l.MatchScore < filter.MinMatchScore {
			continue
		}
		if len(filter.Locations) > 0 {
			if _, ok := textutil.ContainsAnyFold(l.Company.Location, filter.Locations); !ok {
				continue
			}
		}
		out = append(out, l)
	}
	return out
}

func sortLeads(leads []RankedLead, filter Filter) {
	key := filter.SortBy
	if key == "" {
		key = SortByCombinedScore
	}
	// Score keys default to descending, name to ascending; SortAsc flips
	// the primary key only. Ties always break by company ID ascending.
	cmp := func(a, b RankedLead) int {
		switch key {
		case SortByIntentScore:
			return b.IntentScore - a.IntentScore
		case SortByMatchScore:
			return b.MatchScore - a.MatchScore
		case SortByCompanyName:
			switch {
			case a.Company.Name < b.Company.Name:
				return -1
			case a.Company.Name > b.Company.Name:
				return 1
			}
			return 0
		default:
			return b.CombinedScore - a.CombinedScore
		}
	}
	sort.SliceStable(leads, func(i, j int) bool {
		c := cmp(leads[i], leads[j])
		if filter.SortAsc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return leads[i].Company.ID < leads[j].Company.ID
	})
}

func paginate(leads []RankedLead, offset, limit int) []RankedLead {
	if offset >= len(leads) {
		return []RankedLead{}
	}
	leads = leads[offset:]
	if limit > 0 && limit < len(leads) {
		leads = leads[:limit]
	}
	return leads
}

func summarize(leads []RankedLead) Summary {
	s := Summary{
		Total:         len(leads),
		ByIntentLevel: map[model.IntentLevel]int{},
		ByBuyingStage: map[model.BuyingStage]int{},
		ByPriority:    map[model.Rank]int{},
	}
	industries := map[string]int{}
	var intentSum, combinedSum int
	for _, l := range leads {
		s.ByIntentLevel[l.IntentLevel]++
		s.ByBuyingStage[l.BuyingStage]++
		s.ByPriority[l.Priority]++
		intentSum += l.IntentScore
		combinedSum += l.CombinedScore
		if l.Company.Industry != "" {
			industries[l.Company.Industry]++
		}
	}
	if len(leads) > 0 {
		s.AvgIntentScore = float64(intentSum) / float64(len(leads))
		s.AvgCombinedScore = float64(combinedSum) / float64(len(leads))
	}

	for ind, n := range industries {
		s.TopIndustries = append(s.TopIndustries, IndustryCount{Industry: ind, Count: n})
	}
	sort.Slice(s.TopIndustries, func(i, j int) bool {
		if s.TopIndustries[i].Count != s.TopIndustries[j].Count {
			return s.TopIndustries[i].Count > s.TopIndustries[j].Count
		}
		return s.TopIndustries[i].Industry < s.TopIndustries[j].Industry
	})
	if len(s.TopIndustries) > 5 {
		s.TopIndustries = s.TopIndustries[:5]
	}
	return s
}

func containsLevel(set []model.IntentLevel, v model.IntentLevel) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsStage(set []model.BuyingStage, v model.BuyingStage) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
