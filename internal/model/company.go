package model

import "time"

// Rank is the static attribute-based priority bucket for a company,
// independent of behavioral signals.
type Rank string

const (
	RankS Rank = "S"
	RankA Rank = "A"
	RankB Rank = "B"
	RankC Rank = "C"
)

// Company represents a prospect company owned by a client.
// Rank, Score, and Reasons are immutable once set until the company is
// explicitly re-scored.
type Company struct {
	ID            string      `json:"id"`
	ClientID      string      `json:"client_id"`
	Name          string      `json:"name"`
	Industry      string      `json:"industry"`
	EmployeeCount int         `json:"employee_count"`
	Location      string      `json:"location"`
	Website       string      `json:"website,omitempty"`
	Enrichment    *Enrichment `json:"enrichment,omitempty"`
	Rank          Rank        `json:"rank,omitempty"`
	Score         int         `json:"score"`
	Reasons       []string    `json:"reasons,omitempty"`
	ScoredAt      *time.Time  `json:"scored_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Enrichment holds externally sourced firmographic enrichment data.
// Every field is optional; absent fields contribute nothing to scoring.
type Enrichment struct {
	RevenueYen     *int64 `json:"revenue_yen,omitempty"`
	CapitalYen     *int64 `json:"capital_yen,omitempty"`
	Listed         *bool  `json:"listed,omitempty"`
	CorporateGrade string `json:"corporate_grade,omitempty"`
}

// FitResult is the output of the fit scorer for a single company.
type FitResult struct {
	Score   int      `json:"score"`
	Rank    Rank     `json:"rank"`
	Reasons []string `json:"reasons"`
}
