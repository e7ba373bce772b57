package model

import "time"

// EngagementEvent identifies a qualifying interaction event type.
type EngagementEvent string

const (
	EventCallConnected     EngagementEvent = "call_connected"
	EventCallAppointment   EngagementEvent = "call_appointment"
	EventDocumentSent      EngagementEvent = "document_sent"
	EventDocumentOpen      EngagementEvent = "document_open"
	EventDocumentPageView  EngagementEvent = "document_page_view"
	EventDocumentLinkClick EngagementEvent = "document_link_click"
	EventDocumentDownload  EngagementEvent = "document_download"
)

// Channel is the engagement channel an event accrues to.
type Channel string

const (
	ChannelCall     Channel = "call"
	ChannelDocument Channel = "document"
	ChannelWeb      Channel = "web"
	ChannelSocial   Channel = "social"
)

// Trend reflects the direction suggested by the most recently applied event.
type Trend string

const (
	TrendRising    Trend = "rising"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// AlertLevel is a step function of the total engagement score.
type AlertLevel string

const (
	AlertNone     AlertLevel = "none"
	AlertLow      AlertLevel = "low"
	AlertMedium   AlertLevel = "medium"
	AlertHigh     AlertLevel = "high"
	AlertCritical AlertLevel = "critical"
)

// Event is a single incoming engagement event, as delivered by a call log
// import or a document-tracking webhook.
type Event struct {
	CompanyID  string          `json:"company_id"`
	ProjectID  string          `json:"project_id"`
	Type       EngagementEvent `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// EngagementScore is the cumulative, channel-decomposed engagement state for
// one (company, project) pair. TotalScore always equals the sum of the four
// channel scores.
type EngagementScore struct {
	CompanyID        string     `json:"company_id"`
	ProjectID        string     `json:"project_id"`
	CallScore        int        `json:"call_score"`
	DocumentScore    int        `json:"document_score"`
	WebActivityScore int        `json:"web_activity_score"`
	SocialScore      int        `json:"social_score"`
	TotalScore       int        `json:"total_score"`
	Trend            Trend      `json:"trend"`
	AlertLevel       AlertLevel `json:"alert_level"`
	LastActivityAt   time.Time  `json:"last_activity_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ChannelSum returns the sum of the four channel scores.
func (e *EngagementScore) ChannelSum() int {
	return e.CallScore + e.DocumentScore + e.WebActivityScore + e.SocialScore
}

// AlertLevelFor maps a total engagement score to its alert level.
// Thresholds are re-evaluated on every mutation, in both directions.
func AlertLevelFor(total int) AlertLevel {
	switch {
	case total >= 80:
		return AlertCritical
	case total >= 60:
		return AlertHigh
	case total >= 40:
		return AlertMedium
	case total >= 20:
		return AlertLow
	default:
		return AlertNone
	}
}
