package model

import "time"

// AlertType identifies which pivot rule produced an alert.
type AlertType string

const (
	AlertLowRate       AlertType = "low_rate"
	AlertHighRejection AlertType = "high_rejection"
)

// Severity grades a pivot alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertStatus is the lifecycle state of a pivot alert. Transitions happen
// only through explicit acknowledgement operations, never by the detector.
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
	AlertDismissed    AlertStatus = "dismissed"
)

// PivotAlert is a threshold-triggered signal that a project's conversion
// metrics warrant a strategy change.
type PivotAlert struct {
	ID               string             `json:"id"`
	ProjectID        string             `json:"project_id"`
	AlertType        AlertType          `json:"alert_type"`
	Severity         Severity           `json:"severity"`
	CurrentMetrics   map[string]float64 `json:"current_metrics"`
	ThresholdMetrics map[string]float64 `json:"threshold_metrics"`
	Suggestions      []string           `json:"suggestions"`
	Status           AlertStatus        `json:"status"`
	Note             string             `json:"note,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	AcknowledgedAt   *time.Time         `json:"acknowledged_at,omitempty"`
}
