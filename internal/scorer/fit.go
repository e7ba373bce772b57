// Package scorer implements the deterministic scoring functions of the lead
// intelligence engine: static fit scoring, intent analysis, and product match
// scoring. All functions here are pure: identical inputs always produce
// identical outputs.
package scorer

import (
	"fmt"

	"github.com/sells-group/leadintel/internal/config"
	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/textutil"
)

const fitBaseScore = 50

// RankFor maps a fit score to its tier.
func RankFor(score int) model.Rank {
	switch {
	case score >= 80:
		return model.RankS
	case score >= 65:
		return model.RankA
	case score >= 50:
		return model.RankB
	default:
		return model.RankC
	}
}

// ScoreFit computes the static fit score for a company from its firmographic
// attributes and optional enrichment data. Reasons are appended in evaluation
// order so repeated runs reproduce the same list.
func ScoreFit(c *model.Company, cfg config.ScoringConfig) model.FitResult {
	score := fitBaseScore
	var reasons []string

	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	// Employee bands, first match only.
	switch {
	case c.EmployeeCount >= 500:
		add(25, fmt.Sprintf("従業員%d名の大企業", c.EmployeeCount))
	case c.EmployeeCount >= 100:
		add(15, fmt.Sprintf("従業員%d名の中堅企業", c.EmployeeCount))
	case c.EmployeeCount >= 50:
		add(10, fmt.Sprintf("従業員%d名", c.EmployeeCount))
	}

	if textutil.InSetFold(c.Industry, cfg.HighPotentialIndustries) {
		add(15, fmt.Sprintf("注力業界（%s）", c.Industry))
	}

	if city, ok := textutil.ContainsAnyFold(c.Location, cfg.PrimaryCities); ok {
		add(5, fmt.Sprintf("主要都市（%s）", city))
	} else if city, ok := textutil.ContainsAnyFold(c.Location, cfg.SecondaryCities); ok {
		add(3, fmt.Sprintf("地方中核都市（%s）", city))
	}

	if e := c.Enrichment; e != nil {
		// Bands are non-exclusive across fields; the order is part of the
		// reasons contract.
		if e.RevenueYen != nil {
			switch {
			case *e.RevenueYen >= cfg.RevenueHighBandYen:
				add(15, "売上高100億円以上")
			case *e.RevenueYen >= cfg.RevenueMidBandYen:
				add(10, "売上高10億円以上")
			}
		}
		if e.CapitalYen != nil && *e.CapitalYen >= cfg.CapitalBandYen {
			add(10, "資本金1億円以上")
		}
		if e.Listed != nil && *e.Listed {
			add(10, "上場企業")
		}
		switch e.CorporateGrade {
		case "A":
			add(7, "企業評価A")
		case "B":
			add(3, "企業評価B")
		}
	}

	if score > 100 {
		score = 100
	}

	return model.FitResult{Score: score, Rank: RankFor(score), Reasons: reasons}
}
