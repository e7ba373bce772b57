package scorer

import (
	"fmt"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/textutil"
)

const matchBaseScore = 50

// MatchLevelFor maps a product match score to its level.
func MatchLevelFor(score int) model.MatchLevel {
	switch {
	case score >= 80:
		return model.MatchExcellent
	case score >= 65:
		return model.MatchGood
	case score >= 50:
		return model.MatchFair
	default:
		return model.MatchLow
	}
}

// ScoreMatch rates how well a company fits a product's target profile.
// Target locations are matched by substring, not equality, since locations
// are free text.
func ScoreMatch(p *model.Product, c *model.Company) model.MatchResult {
	score := matchBaseScore
	var reasons []string

	if textutil.InSetFold(c.Industry, p.TargetIndustries) {
		score += 20
		reasons = append(reasons, fmt.Sprintf("ターゲット業界（%s）", c.Industry))
	}

	if c.EmployeeCount >= p.MinEmployees && (p.MaxEmployees == 0 || c.EmployeeCount <= p.MaxEmployees) {
		score += 15
		reasons = append(reasons, fmt.Sprintf("従業員規模が適合（%d名）", c.EmployeeCount))
	}

	if loc, ok := textutil.ContainsAnyFold(c.Location, p.TargetLocations); ok {
		score += 10
		reasons = append(reasons, fmt.Sprintf("対象エリア（%s）", loc))
	}

	return model.MatchResult{Score: score, Level: MatchLevelFor(score), Reasons: reasons}
}
