package model

import "time"

// Product is a client's offering with its target profile. The engine reads
// products as scoring input and never mutates them.
type Product struct {
	ID               string   `json:"id"`
	ClientID         string   `json:"client_id"`
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	TargetIndustries []string `json:"target_industries,omitempty"`
	MinEmployees     int      `json:"min_employees"`
	MaxEmployees     int      `json:"max_employees"`
	MinRevenueYen    int64    `json:"min_revenue_yen"`
	MaxRevenueYen    int64    `json:"max_revenue_yen"`
	TargetLocations  []string `json:"target_locations,omitempty"`
	Keywords         []string `json:"keywords,omitempty"`
	Benefits         []string `json:"benefits,omitempty"`
}

// MatchLevel classifies a product match score.
type MatchLevel string

const (
	MatchExcellent MatchLevel = "excellent"
	MatchGood      MatchLevel = "good"
	MatchFair      MatchLevel = "fair"
	MatchLow       MatchLevel = "low"
)

// MatchResult is the output of the product match scorer.
type MatchResult struct {
	Score   int        `json:"score"`
	Level   MatchLevel `json:"level"`
	Reasons []string   `json:"reasons"`
}

// ProjectStatus is the lifecycle state of a sales project (campaign).
type ProjectStatus string

const (
	ProjectActive ProjectStatus = "active"
	ProjectPaused ProjectStatus = "paused"
	ProjectClosed ProjectStatus = "closed"
)

// Project is a sales campaign run by a client against a set of companies.
type Project struct {
	ID                 string        `json:"id"`
	ClientID           string        `json:"client_id"`
	ProductID          string        `json:"product_id,omitempty"`
	Name               string        `json:"name"`
	Description        string        `json:"description,omitempty"`
	Status             ProjectStatus `json:"status"`
	MinAppointmentRate float64       `json:"min_appointment_rate"`
	CreatedAt          time.Time     `json:"created_at"`
}

// CallStats is the aggregated call-outcome snapshot for a project, supplied
// by the persistence collaborator from logged call outcomes.
type CallStats struct {
	ProjectID    string `json:"project_id"`
	TotalCalls   int    `json:"total_calls"`
	Appointments int    `json:"appointments"`
	Rejections   int    `json:"rejections"`
}

// AppointmentRate returns appointments as a percentage of total calls.
func (s CallStats) AppointmentRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.Appointments) / float64(s.TotalCalls) * 100
}

// RejectionRatio returns rejections as a fraction of total calls.
func (s CallStats) RejectionRatio() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.Rejections) / float64(s.TotalCalls)
}
