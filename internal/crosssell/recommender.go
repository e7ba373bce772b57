// Package crosssell finds second chances for companies a campaign rejected by
// matching them against the client's other active projects.
package crosssell

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadintel/internal/config"
	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/store"
	"github.com/sells-group/leadintel/internal/textutil"
)

const baseScore = 40

// reachableCities carry a small bonus: field teams cover them in person.
var reachableCities = []string{"東京", "大阪"}

// Recommender scores rejected companies against other active projects.
type Recommender struct {
	store store.Store
	cfg   config.CrossSellConfig
}

func New(st store.Store, cfg config.CrossSellConfig) *Recommender {
	return &Recommender{store: st, cfg: cfg}
}

// Run generates and persists recommendations from one source project's
// rejected companies to every other active project. Only combinations
// scoring at or above the configured minimum are kept.
func (r *Recommender) Run(ctx context.Context, sourceProjectID string) ([]model.CrossSellRecommendation, error) {
	if _, err := r.store.GetProject(ctx, sourceProjectID); err != nil {
		return nil, eris.Wrapf(err, "crosssell: load source project %s", sourceProjectID)
	}
	rejected, err := r.store.RejectedCompanies(ctx, sourceProjectID, r.cfg.MaxRejectedCompanies)
	if err != nil {
		return nil, eris.Wrapf(err, "crosssell: rejected companies %s", sourceProjectID)
	}
	projects, err := r.store.ListActiveProjects(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "crosssell: list active projects")
	}

	now := time.Now().UTC()
	var recs []model.CrossSellRecommendation
	for _, c := range rejected {
		for _, p := range projects {
			if p.ID == sourceProjectID {
				continue
			}
			score, reasons := scoreCombination(&p, &c)
			if score < r.cfg.MinScore {
				continue
			}
			recs = append(recs, model.CrossSellRecommendation{
				ID:              uuid.New().String(),
				SourceProjectID: sourceProjectID,
				TargetProjectID: p.ID,
				CompanyID:       c.ID,
				MatchScore:      score,
				Reasons:         reasons,
				Status:          model.RecSuggested,
				CreatedAt:       now,
			})
		}
	}

	if err := r.store.CreateRecommendations(ctx, recs); err != nil {
		return nil, eris.Wrapf(err, "crosssell: persist recommendations %s", sourceProjectID)
	}

	zap.L().Info("cross-sell run complete",
		zap.String("source_project_id", sourceProjectID),
		zap.Int("rejected_companies", len(rejected)),
		zap.Int("recommendations", len(recs)))
	return recs, nil
}

func scoreCombination(p *model.Project, c *model.Company) (int, []string) {
	score := baseScore
	var reasons []string

	if c.Industry != "" && textutil.ContainsFold(p.Description, c.Industry) {
		score += 25
		reasons = append(reasons, fmt.Sprintf("案件説明に業界「%s」が含まれる", c.Industry))
	}
	if c.EmployeeCount >= 50 {
		score += 10
		reasons = append(reasons, "従業員50名以上")
	}
	if city, ok := textutil.ContainsAnyFold(c.Location, reachableCities); ok {
		score += 10
		reasons = append(reasons, fmt.Sprintf("%s圏でアプローチ可能", city))
	}
	// Prior contact history carries over even after a rejection.
	score += 5
	reasons = append(reasons, "接触履歴あり")

	return score, reasons
}
