package model

import "time"

// RecommendationStatus is the lifecycle state of a cross-sell recommendation.
type RecommendationStatus string

const (
	RecSuggested RecommendationStatus = "suggested"
	RecAccepted  RecommendationStatus = "accepted"
	RecContacted RecommendationStatus = "contacted"
	RecConverted RecommendationStatus = "converted"
	RecDismissed RecommendationStatus = "dismissed"
)

// CrossSellRecommendation suggests re-targeting a lead rejected in one
// campaign toward a different active campaign.
type CrossSellRecommendation struct {
	ID              string               `json:"id"`
	SourceProjectID string               `json:"source_project_id"`
	TargetProjectID string               `json:"target_project_id"`
	CompanyID       string               `json:"company_id"`
	MatchScore      int                  `json:"match_score"`
	Reasons         []string             `json:"reasons"`
	Status          RecommendationStatus `json:"status"`
	CreatedAt       time.Time            `json:"created_at"`
}
