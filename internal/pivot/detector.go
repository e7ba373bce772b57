// Package pivot watches per-project call performance and raises alerts when
// a campaign's targeting has stopped working.
package pivot

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
)

var lowRateSuggestions = []string{
	"ターゲット条件（業界・企業規模）の見直し",
	"トークスクリプトの改訂",
	"架電時間帯の変更",
}

var highRejectionSuggestions = []string{
	"アプローチ対象リストの再選定",
	"訴求ポイントの変更",
}

// Detector evaluates call statistics against pivot rules.
type Detector struct {
	store store.Store
	cfg   config.PivotConfig
}

func NewDetector(st store.Store, cfg config.PivotConfig) *Detector {
	return &Detector{store: st, cfg: cfg}
}

// Detect runs both pivot rules for one project and persists any new alerts.
// A rule is skipped while an active alert of its type is still open, so
// repeated runs do not stack duplicates.
func (d *Detector) Detect(ctx context.Context, projectID string) ([]model.PivotAlert, error) {
	project, err := d.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, eris.Wrapf(err, "pivot: load project %s", projectID)
	}
	stats, err := d.store.CallStats(ctx, projectID)
	if err != nil {
		return nil, eris.Wrapf(err, "pivot: call stats %s", projectID)
	}
	active, err := d.store.ListPivotAlerts(ctx, projectID, model.AlertActive)
	if err != nil {
		return nil, eris.Wrapf(err, "pivot: list active alerts %s", projectID)
	}
	activeTypes := map[model.AlertType]bool{}
	for _, a := range active {
		activeTypes[a.AlertType] = true
	}

	minRate := project.MinAppointmentRate
	if minRate <= 0 {
		minRate = d.cfg.DefaultMinApptRate
	}

	now := time.Now().UTC()
	var alerts []model.PivotAlert

	if !activeTypes[model.AlertLowRate] &&
		stats.TotalCalls >= d.cfg.MinCallsLowRate &&
		stats.AppointmentRate() < minRate {
		alerts = append(alerts, model.PivotAlert{
			ID:        uuid.New().String(),
			ProjectID: projectID,
			AlertType: model.AlertLowRate,
			Severity:  model.SeverityCritical,
			CurrentMetrics: map[string]float64{
				"total_calls":      float64(stats.TotalCalls),
				"appointments":     float64(stats.Appointments),
				"appointment_rate": stats.AppointmentRate(),
			},
			ThresholdMetrics: map[string]float64{
				"min_calls":            float64(d.cfg.MinCallsLowRate),
				"min_appointment_rate": minRate,
			},
			Suggestions: lowRateSuggestions,
			Status:      model.AlertActive,
			CreatedAt:   now,
		})
	}

	if !activeTypes[model.AlertHighRejection] &&
		stats.TotalCalls >= d.cfg.MinCallsHighRejection &&
		stats.RejectionRatio() > d.cfg.RejectionThreshold {
		alerts = append(alerts, model.PivotAlert{
			ID:        uuid.New().String(),
			ProjectID: projectID,
			AlertType: model.AlertHighRejection,
			Severity:  model.SeverityWarning,
			CurrentMetrics: map[string]float64{
				"total_calls":     float64(stats.TotalCalls),
				"rejections":      float64(stats.Rejections),
				"rejection_ratio": stats.RejectionRatio(),
			},
			ThresholdMetrics: map[string]float64{
				"min_calls":           float64(d.cfg.MinCallsHighRejection),
				"rejection_threshold": d.cfg.RejectionThreshold,
			},
			Suggestions: highRejectionSuggestions,
			Status:      model.AlertActive,
			CreatedAt:   now,
		})
	}

	if len(alerts) == 0 {
		return nil, nil
	}
	if err := d.store.CreatePivotAlerts(ctx, alerts); err != nil {
		return nil, eris.Wrapf(err, "pivot: persist alerts %s", projectID)
	}

	for _, a := range alerts {
		zap.L().Info("pivot alert raised",
			zap.String("project_id", projectID),
			zap.String("type", string(a.AlertType)),
			zap.String("severity", string(a.Severity)))
	}
	return alerts, nil
}

// DetectAll runs detection for every active project and returns all newly
// raised alerts keyed by project.
func (d *Detector) DetectAll(ctx context.Context) (map[string][]model.PivotAlert, error) {
	projects, err := d.store.ListActiveProjects(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pivot: list active projects")
	}
	out := map[string][]model.PivotAlert{}
	for _, p := range projects {
		alerts, err := d.Detect(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if len(alerts) > 0 {
			out[p.ID] = alerts
		}
	}
	return out, nil
}

// Acknowledge marks an alert as seen.
func (d *Detector) Acknowledge(ctx context.Context, alertID string) error {
	return d.store.SetPivotAlertStatus(ctx, alertID, model.AlertAcknowledged, time.Now().UTC())
}

// Resolve closes an alert whose underlying issue was addressed.
func (d *Detector) Resolve(ctx context.Context, alertID string) error {
	return d.store.SetPivotAlertStatus(ctx, alertID, model.AlertResolved, time.Now().UTC())
}

// Dismiss closes an alert without action.
func (d *Detector) Dismiss(ctx context.Context, alertID string) error {
	return d.store.SetPivotAlertStatus(ctx, alertID, model.AlertDismissed, time.Now().UTC())
}

// Describe renders a short human-readable summary of an alert for CLI output.
func Describe(a model.PivotAlert) string {
	switch a.AlertType {
	case model.AlertLowRate:
		return fmt.Sprintf("アポ率 %.1f%% が目標 %.1f%% を下回っています（架電 %.0f件）",
			a.CurrentMetrics["appointment_rate"],
			a.ThresholdMetrics["min_appointment_rate"],
			a.CurrentMetrics["total_calls"])
	case model.AlertHighRejection:
		return fmt.Sprintf("拒否率 %.0f%% が基準を超えています（架電 %.0f件）",
			a.CurrentMetrics["rejection_ratio"]*100,
			a.CurrentMetrics["total_calls"])
	default:
		return string(a.AlertType)
	}
}
