package model

import "time"

// IntentLevel classifies a company's buying-readiness from external signals.
type IntentLevel string

const (
	IntentHot  IntentLevel = "hot"
	IntentWarm IntentLevel = "warm"
	IntentCold IntentLevel = "cold"
)

// BuyingStage is the inferred position in the buying journey.
type BuyingStage string

const (
	StageAwareness     BuyingStage = "awareness"
	StageConsideration BuyingStage = "consideration"
	StageDecision      BuyingStage = "decision"
	StageUnknown       BuyingStage = "unknown"
)

// SignalType categorizes a derived intent signal.
type SignalType string

const (
	SignalHiring SignalType = "hiring"
	SignalNews   SignalType = "news"
	SignalSocial SignalType = "social"
)

// Signal is a single derived intent signal with its score contribution.
type Signal struct {
	Type        SignalType `json:"type"`
	Description string     `json:"description"`
	Weight      int        `json:"weight"`
}

// IntentProfile holds the derived buying-intent state for a company.
// It is recomputed wholesale from the latest scrape snapshot; runs never
// accumulate.
type IntentProfile struct {
	CompanyID   string      `json:"company_id"`
	Signals     []Signal    `json:"signals"`
	Score       int         `json:"score"`
	Level       IntentLevel `json:"level"`
	BuyingStage BuyingStage `json:"buying_stage"`
	Summary     string      `json:"summary"`
	AnalyzedAt  time.Time   `json:"analyzed_at"`
}

// ScrapeSnapshot is the signal bundle supplied by the external enrichment
// collaborator. Every category is independently optional.
type ScrapeSnapshot struct {
	Hiring      *HiringSignals `json:"hiring,omitempty"`
	News        []NewsItem     `json:"news,omitempty"`
	Social      *SocialSignals `json:"social,omitempty"`
	CollectedAt time.Time      `json:"collected_at"`
}

// HiringSignals describes job-posting activity observed for a company.
type HiringSignals struct {
	ActivelyHiring  bool     `json:"actively_hiring"`
	JobPostingCount int      `json:"job_posting_count"`
	Roles           []string `json:"roles,omitempty"`
}

// NewsItem is a single scraped news or press item, newest first.
type NewsItem struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// SocialSignals describes observed social media activity.
type SocialSignals struct {
	Active       bool `json:"active"`
	PostsPerWeek int  `json:"posts_per_week"`
}
