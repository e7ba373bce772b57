// Package store persists engine records behind a generic keyed-store
// interface with Postgres and SQLite implementations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadintel/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

func newID() string { return uuid.New().String() }

// CompanyFilter specifies criteria for listing companies. Zero values mean
// "no constraint". Only scalar fields are filterable here; free-text
// location matching happens in the ranker.
type CompanyFilter struct {
	ClientID     string       `json:"client_id,omitempty"`
	Ranks        []model.Rank `json:"ranks,omitempty"`
	Industries   []string     `json:"industries,omitempty"`
	MinEmployees int          `json:"min_employees,omitempty"`
	MaxEmployees int          `json:"max_employees,omitempty"`
	MinScore     int          `json:"min_score,omitempty"`
	Limit        int          `json:"limit,omitempty"`
	Offset       int          `json:"offset,omitempty"`
}

// Store defines the persistence interface for the lead intelligence engine.
type Store interface {
	// Companies
	UpsertCompany(ctx context.Context, c *model.Company) error
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error)
	SaveFitResult(ctx context.Context, companyID string, fit model.FitResult, scoredAt time.Time) error

	// Intent profiles (wholesale replacement per company)
	SaveIntentProfile(ctx context.Context, p *model.IntentProfile) error
	GetIntentProfile(ctx context.Context, companyID string) (*model.IntentProfile, error)
	ListIntentProfiles(ctx context.Context, companyIDs []string) (map[string]model.IntentProfile, error)

	// Engagement scores, unique on (company, project)
	GetEngagement(ctx context.Context, companyID, projectID string) (*model.EngagementScore, error)
	PutEngagement(ctx context.Context, e *model.EngagementScore) error
	ListEngagementAbove(ctx context.Context, projectID string, minScore int) ([]model.EngagementScore, error)

	// Products and projects
	UpsertProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	UpsertProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListActiveProjects(ctx context.Context) ([]model.Project, error)

	// Call outcomes (telephony collaborator feed) and their aggregates
	RecordCallOutcome(ctx context.Context, projectID, companyID, outcome string, at time.Time) error
	CallStats(ctx context.Context, projectID string) (model.CallStats, error)
	RejectedCompanies(ctx context.Context, projectID string, limit int) ([]model.Company, error)

	// Pivot alerts
	CreatePivotAlerts(ctx context.Context, alerts []model.PivotAlert) error
	ListPivotAlerts(ctx context.Context, projectID string, status model.AlertStatus) ([]model.PivotAlert, error)
	SetPivotAlertStatus(ctx context.Context, alertID string, status model.AlertStatus, at time.Time) error

	// Cross-sell recommendations
	CreateRecommendations(ctx context.Context, recs []model.CrossSellRecommendation) error
	ListRecommendations(ctx context.Context, targetProjectID string) ([]model.CrossSellRecommendation, error)
	SetRecommendationStatus(ctx context.Context, id string, status model.RecommendationStatus) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
