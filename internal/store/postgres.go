package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadintel/internal/db"
	"github.com/sells-group/leadintel/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns, pgxCfg.MinConns = poolLimits(poolCfg)
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// poolLimits resolves pool sizing, falling back to defaults for nil or
// non-positive values.
func poolLimits(cfg *PoolConfig) (maxConns, minConns int32) {
	maxConns, minConns = 10, 2
	if cfg == nil {
		return maxConns, minConns
	}
	if cfg.MaxConns > 0 {
		maxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		minConns = cfg.MinConns
	}
	return maxConns, minConns
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id             TEXT PRIMARY KEY,
	client_id      TEXT NOT NULL DEFAULT '',
	name           TEXT NOT NULL,
	industry       TEXT NOT NULL DEFAULT '',
	employee_count INTEGER NOT NULL DEFAULT 0,
	location       TEXT NOT NULL DEFAULT '',
	website        TEXT NOT NULL DEFAULT '',
	enrichment     JSONB,
	rank           TEXT NOT NULL DEFAULT '',
	score          INTEGER NOT NULL DEFAULT 0,
	reasons        JSONB,
	scored_at      TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS intent_profiles (
	company_id   TEXT PRIMARY KEY REFERENCES companies(id),
	signals      JSONB,
	score        INTEGER NOT NULL DEFAULT 0,
	level        TEXT NOT NULL DEFAULT 'cold',
	buying_stage TEXT NOT NULL DEFAULT 'unknown',
	summary      TEXT NOT NULL DEFAULT '',
	analyzed_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS engagement_scores (
	company_id         TEXT NOT NULL,
	project_id         TEXT NOT NULL,
	call_score         INTEGER NOT NULL DEFAULT 0,
	document_score     INTEGER NOT NULL DEFAULT 0,
	web_activity_score INTEGER NOT NULL DEFAULT 0,
	social_score       INTEGER NOT NULL DEFAULT 0,
	total_score        INTEGER NOT NULL DEFAULT 0,
	trend              TEXT NOT NULL DEFAULT 'stable',
	alert_level        TEXT NOT NULL DEFAULT 'none',
	last_activity_at   TIMESTAMPTZ NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (company_id, project_id)
);

CREATE TABLE IF NOT EXISTS products (
	id                TEXT PRIMARY KEY,
	client_id         TEXT NOT NULL DEFAULT '',
	name              TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	target_industries JSONB,
	min_employees     INTEGER NOT NULL DEFAULT 0,
	max_employees     INTEGER NOT NULL DEFAULT 0,
	min_revenue_yen   BIGINT NOT NULL DEFAULT 0,
	max_revenue_yen   BIGINT NOT NULL DEFAULT 0,
	target_locations  JSONB,
	keywords          JSONB,
	benefits          JSONB
);

CREATE TABLE IF NOT EXISTS projects (
	id                   TEXT PRIMARY KEY,
	client_id            TEXT NOT NULL DEFAULT '',
	product_id           TEXT NOT NULL DEFAULT '',
	name                 TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	status               TEXT NOT NULL DEFAULT 'active',
	min_appointment_rate DOUBLE PRECISION NOT NULL DEFAULT 50,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS call_outcomes (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	company_id TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	called_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pivot_alerts (
	id                TEXT PRIMARY KEY,
	project_id        TEXT NOT NULL,
	alert_type        TEXT NOT NULL,
	severity          TEXT NOT NULL,
	current_metrics   JSONB,
	threshold_metrics JSONB,
	suggestions       JSONB,
	status            TEXT NOT NULL DEFAULT 'active',
	note              TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	acknowledged_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS cross_sell_recommendations (
	id                TEXT PRIMARY KEY,
	source_project_id TEXT NOT NULL,
	target_project_id TEXT NOT NULL,
	company_id        TEXT NOT NULL,
	match_score       INTEGER NOT NULL,
	reasons           JSONB,
	status            TEXT NOT NULL DEFAULT 'suggested',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source_project_id, target_project_id, company_id)
);

CREATE INDEX IF NOT EXISTS idx_companies_client ON companies(client_id);
CREATE INDEX IF NOT EXISTS idx_companies_rank ON companies(rank);
CREATE INDEX IF NOT EXISTS idx_engagement_project_total ON engagement_scores(project_id, total_score DESC);
CREATE INDEX IF NOT EXISTS idx_call_outcomes_project ON call_outcomes(project_id);
CREATE INDEX IF NOT EXISTS idx_pivot_alerts_project_status ON pivot_alerts(project_id, status);
CREATE INDEX IF NOT EXISTS idx_crosssell_target ON cross_sell_recommendations(target_project_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertCompany(ctx context.Context, c *model.Company) error {
	enrichment, err := marshalNullable(c.Enrichment)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enrichment")
	}
	reasons, err := marshalNullable(c.Reasons)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal reasons")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO companies
			(id, client_id, name, industry, employee_count, location, website,
			 enrichment, rank, score, reasons, scored_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			name = EXCLUDED.name,
			industry = EXCLUDED.industry,
			employee_count = EXCLUDED.employee_count,
			location = EXCLUDED.location,
			website = EXCLUDED.website,
			enrichment = EXCLUDED.enrichment,
			rank = EXCLUDED.rank,
			score = EXCLUDED.score,
			reasons = EXCLUDED.reasons,
			scored_at = EXCLUDED.scored_at,
			updated_at = EXCLUDED.updated_at`,
		c.ID, c.ClientID, c.Name, c.Industry, c.EmployeeCount, c.Location, c.Website,
		enrichment, string(c.Rank), c.Score, reasons, c.ScoredAt, c.CreatedAt, c.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert company %s", c.ID)
}

func (s *PostgresStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, client_id, name, industry, employee_count, location, website,
		       enrichment, rank, score, reasons, scored_at, created_at, updated_at
		FROM companies WHERE id = $1`, id)

	c, err := scanCompany(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get company %s", id)
	}
	return c, nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error) {
	query := `
		SELECT id, client_id, name, industry, employee_count, location, website,
		       enrichment, rank, score, reasons, scored_at, created_at, updated_at
		FROM companies WHERE 1=1`
	var args []any
	argNum := 1

	next := func(clause string, v any) {
		query += fmt.Sprintf(clause, argNum)
		args = append(args, v)
		argNum++
	}

	if filter.ClientID != "" {
		next(" AND client_id = $%d", filter.ClientID)
	}
	if len(filter.Ranks) > 0 {
		ranks := make([]string, len(filter.Ranks))
		for i, r := range filter.Ranks {
			ranks[i] = string(r)
		}
		next(" AND rank = ANY($%d)", ranks)
	}
	if len(filter.Industries) > 0 {
		next(" AND industry = ANY($%d)", filter.Industries)
	}
	if filter.MinEmployees > 0 {
		next(" AND employee_count >= $%d", filter.MinEmployees)
	}
	if filter.MaxEmployees > 0 {
		next(" AND employee_count <= $%d", filter.MaxEmployees)
	}
	if filter.MinScore > 0 {
		next(" AND score >= $%d", filter.MinScore)
	}

	// Primary persisted-store ordering: scalar fields only. Secondary sorts
	// on derived scores happen in memory in the ranker.
	query += " ORDER BY score DESC, id ASC"
	if filter.Limit > 0 {
		next(" LIMIT $%d", filter.Limit)
	}
	if filter.Offset > 0 {
		next(" OFFSET $%d", filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate companies")
}

func (s *PostgresStore) SaveFitResult(ctx context.Context, companyID string, fit model.FitResult, scoredAt time.Time) error {
	reasons, err := marshalNullable(fit.Reasons)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal reasons")
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE companies
		SET rank = $1, score = $2, reasons = $3, scored_at = $4, updated_at = $4
		WHERE id = $5`,
		string(fit.Rank), fit.Score, reasons, scoredAt, companyID)
	if err != nil {
		return eris.Wrapf(err, "postgres: save fit result for %s", companyID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SaveIntentProfile(ctx context.Context, p *model.IntentProfile) error {
	signals, err := marshalNullable(p.Signals)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal signals")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO intent_profiles
			(company_id, signals, score, level, buying_stage, summary, analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (company_id) DO UPDATE SET
			signals = EXCLUDED.signals,
			score = EXCLUDED.score,
			level = EXCLUDED.level,
			buying_stage = EXCLUDED.buying_stage,
			summary = EXCLUDED.summary,
			analyzed_at = EXCLUDED.analyzed_at`,
		p.CompanyID, signals, p.Score, string(p.Level), string(p.BuyingStage), p.Summary, p.AnalyzedAt)
	return eris.Wrapf(err, "postgres: save intent profile for %s", p.CompanyID)
}

func (s *PostgresStore) GetIntentProfile(ctx context.Context, companyID string) (*model.IntentProfile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT company_id, signals, score, level, buying_stage, summary, analyzed_at
		FROM intent_profiles WHERE company_id = $1`, companyID)

	p, err := scanIntentProfile(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get intent profile %s", companyID)
	}
	return p, nil
}

func (s *PostgresStore) ListIntentProfiles(ctx context.Context, companyIDs []string) (map[string]model.IntentProfile, error) {
	if len(companyIDs) == 0 {
		return map[string]model.IntentProfile{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT company_id, signals, score, level, buying_stage, summary, analyzed_at
		FROM intent_profiles WHERE company_id = ANY($1)`, companyIDs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list intent profiles")
	}
	defer rows.Close()

	out := make(map[string]model.IntentProfile, len(companyIDs))
	for rows.Next() {
		p, err := scanIntentProfile(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan intent profile")
		}
		out[p.CompanyID] = *p
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate intent profiles")
}

func (s *PostgresStore) GetEngagement(ctx context.Context, companyID, projectID string) (*model.EngagementScore, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT company_id, project_id, call_score, document_score, web_activity_score,
		       social_score, total_score, trend, alert_level, last_activity_at,
		       created_at, updated_at
		FROM engagement_scores WHERE company_id = $1 AND project_id = $2`,
		companyID, projectID)

	e, err := scanEngagement(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get engagement %s/%s", companyID, projectID)
	}
	return e, nil
}

// PutEngagement writes the full record in one statement so the channel-sum
// invariant can never be observed half-applied.
func (s *PostgresStore) PutEngagement(ctx context.Context, e *model.EngagementScore) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO engagement_scores
			(company_id, project_id, call_score, document_score, web_activity_score,
			 social_score, total_score, trend, alert_level, last_activity_at,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (company_id, project_id) DO UPDATE SET
			call_score = EXCLUDED.call_score,
			document_score = EXCLUDED.document_score,
			web_activity_score = EXCLUDED.web_activity_score,
			social_score = EXCLUDED.social_score,
			total_score = EXCLUDED.total_score,
			trend = EXCLUDED.trend,
			alert_level = EXCLUDED.alert_level,
			last_activity_at = EXCLUDED.last_activity_at,
			updated_at = EXCLUDED.updated_at`,
		e.CompanyID, e.ProjectID, e.CallScore, e.DocumentScore, e.WebActivityScore,
		e.SocialScore, e.TotalScore, string(e.Trend), string(e.AlertLevel),
		e.LastActivityAt, e.CreatedAt, e.UpdatedAt)
	return eris.Wrapf(err, "postgres: put engagement %s/%s", e.CompanyID, e.ProjectID)
}

func (s *PostgresStore) ListEngagementAbove(ctx context.Context, projectID string, minScore int) ([]model.EngagementScore, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT company_id, project_id, call_score, document_score, web_activity_score,
		       social_score, total_score, trend, alert_level, last_activity_at,
		       created_at, updated_at
		FROM engagement_scores
		WHERE project_id = $1 AND total_score >= $2
		ORDER BY total_score DESC, company_id ASC`,
		projectID, minScore)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list engagement")
	}
	defer rows.Close()

	var out []model.EngagementScore
	for rows.Next() {
		e, err := scanEngagement(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan engagement")
		}
		out = append(out, *e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate engagement")
}

func (s *PostgresStore) UpsertProduct(ctx context.Context, p *model.Product) error {
	industries, err := marshalNullable(p.TargetIndustries)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal target industries")
	}
	locations, err := marshalNullable(p.TargetLocations)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal target locations")
	}
	keywords, err := marshalNullable(p.Keywords)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal keywords")
	}
	benefits, err := marshalNullable(p.Benefits)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal benefits")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO products
			(id, client_id, name, description, target_industries, min_employees,
			 max_employees, min_revenue_yen, max_revenue_yen, target_locations,
			 keywords, benefits)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			target_industries = EXCLUDED.target_industries,
			min_employees = EXCLUDED.min_employees,
			max_employees = EXCLUDED.max_employees,
			min_revenue_yen = EXCLUDED.min_revenue_yen,
			max_revenue_yen = EXCLUDED.max_revenue_yen,
			target_locations = EXCLUDED.target_locations,
			keywords = EXCLUDED.keywords,
			benefits = EXCLUDED.benefits`,
		p.ID, p.ClientID, p.Name, p.Description, industries, p.MinEmployees,
		p.MaxEmployees, p.MinRevenueYen, p.MaxRevenueYen, locations, keywords, benefits)
	return eris.Wrapf(err, "postgres: upsert product %s", p.ID)
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, client_id, name, description, target_industries, min_employees,
		       max_employees, min_revenue_yen, max_revenue_yen, target_locations,
		       keywords, benefits
		FROM products WHERE id = $1`, id)

	var p model.Product
	var industries, locations, keywords, benefits []byte
	err := row.Scan(&p.ID, &p.ClientID, &p.Name, &p.Description, &industries,
		&p.MinEmployees, &p.MaxEmployees, &p.MinRevenueYen, &p.MaxRevenueYen,
		&locations, &keywords, &benefits)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get product %s", id)
	}
	if err := unmarshalNullable(industries, &p.TargetIndustries); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal target industries")
	}
	if err := unmarshalNullable(locations, &p.TargetLocations); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal target locations")
	}
	if err := unmarshalNullable(keywords, &p.Keywords); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal keywords")
	}
	if err := unmarshalNullable(benefits, &p.Benefits); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal benefits")
	}
	return &p, nil
}

func (s *PostgresStore) UpsertProject(ctx context.Context, p *model.Project) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO projects
			(id, client_id, product_id, name, description, status,
			 min_appointment_rate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			product_id = EXCLUDED.product_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			min_appointment_rate = EXCLUDED.min_appointment_rate`,
		p.ID, p.ClientID, p.ProductID, p.Name, p.Description, string(p.Status),
		p.MinAppointmentRate, p.CreatedAt)
	return eris.Wrapf(err, "postgres: upsert project %s", p.ID)
}

func (s *PostgresStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, client_id, product_id, name, description, status,
		       min_appointment_rate, created_at
		FROM projects WHERE id = $1`, id)

	p, err := scanProject(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get project %s", id)
	}
	return p, nil
}

func (s *PostgresStore) ListActiveProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, client_id, product_id, name, description, status,
		       min_appointment_rate, created_at
		FROM projects WHERE status = 'active' ORDER BY created_at ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list active projects")
	}
	defer rows.Close()

	var out []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan project")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate projects")
}

func (s *PostgresStore) RecordCallOutcome(ctx context.Context, projectID, companyID, outcome string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO call_outcomes (id, project_id, company_id, outcome, called_at)
		VALUES ($1, $2, $3, $4, $5)`,
		newID(), projectID, companyID, outcome, at)
	return eris.Wrapf(err, "postgres: record call outcome for %s", projectID)
}

func (s *PostgresStore) CallStats(ctx context.Context, projectID string) (model.CallStats, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE outcome = 'appointment'),
		       COUNT(*) FILTER (WHERE outcome = 'rejected')
		FROM call_outcomes WHERE project_id = $1`, projectID)

	stats := model.CallStats{ProjectID: projectID}
	if err := row.Scan(&stats.TotalCalls, &stats.Appointments, &stats.Rejections); err != nil {
		return stats, eris.Wrapf(err, "postgres: call stats for %s", projectID)
	}
	return stats, nil
}

func (s *PostgresStore) RejectedCompanies(ctx context.Context, projectID string, limit int) ([]model.Company, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.client_id, c.name, c.industry, c.employee_count, c.location,
		       c.website, c.enrichment, c.rank, c.score, c.reasons, c.scored_at,
		       c.created_at, c.updated_at
		FROM companies c
		JOIN (
			SELECT company_id, MIN(called_at) AS first_rejected
			FROM call_outcomes
			WHERE project_id = $1 AND outcome = 'rejected'
			GROUP BY company_id
		) r ON r.company_id = c.id
		ORDER BY r.first_rejected ASC
		LIMIT $2`, projectID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: rejected companies")
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan rejected company")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate rejected companies")
}

func (s *PostgresStore) CreatePivotAlerts(ctx context.Context, alerts []model.PivotAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	for _, a := range alerts {
		current, err := marshalNullable(a.CurrentMetrics)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal current metrics")
		}
		threshold, err := marshalNullable(a.ThresholdMetrics)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal threshold metrics")
		}
		suggestions, err := marshalNullable(a.Suggestions)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal suggestions")
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO pivot_alerts
				(id, project_id, alert_type, severity, current_metrics,
				 threshold_metrics, suggestions, status, note, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			a.ID, a.ProjectID, string(a.AlertType), string(a.Severity), current,
			threshold, suggestions, string(a.Status), a.Note, a.CreatedAt)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert pivot alert %s", a.ID)
		}
	}
	return nil
}

func (s *PostgresStore) ListPivotAlerts(ctx context.Context, projectID string, status model.AlertStatus) ([]model.PivotAlert, error) {
	query := `
		SELECT id, project_id, alert_type, severity, current_metrics,
		       threshold_metrics, suggestions, status, note, created_at, acknowledged_at
		FROM pivot_alerts WHERE project_id = $1`
	args := []any{projectID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pivot alerts")
	}
	defer rows.Close()

	var out []model.PivotAlert
	for rows.Next() {
		var a model.PivotAlert
		var current, threshold, suggestions []byte
		err := rows.Scan(&a.ID, &a.ProjectID, &a.AlertType, &a.Severity, &current,
			&threshold, &suggestions, &a.Status, &a.Note, &a.CreatedAt, &a.AcknowledgedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan pivot alert")
		}
		if err := unmarshalNullable(current, &a.CurrentMetrics); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal current metrics")
		}
		if err := unmarshalNullable(threshold, &a.ThresholdMetrics); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal threshold metrics")
		}
		if err := unmarshalNullable(suggestions, &a.Suggestions); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal suggestions")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate pivot alerts")
}

func (s *PostgresStore) SetPivotAlertStatus(ctx context.Context, alertID string, status model.AlertStatus, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pivot_alerts SET status = $1, acknowledged_at = $2 WHERE id = $3`,
		string(status), at, alertID)
	if err != nil {
		return eris.Wrapf(err, "postgres: set alert status %s", alertID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateRecommendations persists recommendations in bulk via the shared
// upsert helper; re-running the recommender refreshes scores in place.
func (s *PostgresStore) CreateRecommendations(ctx context.Context, recs []model.CrossSellRecommendation) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		reasons, err := marshalNullable(r.Reasons)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal reasons")
		}
		rows = append(rows, []any{
			r.ID, r.SourceProjectID, r.TargetProjectID, r.CompanyID,
			r.MatchScore, reasons, string(r.Status), r.CreatedAt,
		})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "cross_sell_recommendations",
		Columns: []string{
			"id", "source_project_id", "target_project_id", "company_id",
			"match_score", "reasons", "status", "created_at",
		},
		ConflictKeys: []string{"source_project_id", "target_project_id", "company_id"},
		UpdateCols:   []string{"match_score", "reasons"},
	}, rows)
	return eris.Wrap(err, "postgres: create recommendations")
}

func (s *PostgresStore) ListRecommendations(ctx context.Context, targetProjectID string) ([]model.CrossSellRecommendation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_project_id, target_project_id, company_id, match_score,
		       reasons, status, created_at
		FROM cross_sell_recommendations
		WHERE target_project_id = $1
		ORDER BY created_at ASC, id ASC`, targetProjectID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list recommendations")
	}
	defer rows.Close()

	var out []model.CrossSellRecommendation
	for rows.Next() {
		var r model.CrossSellRecommendation
		var reasons []byte
		err := rows.Scan(&r.ID, &r.SourceProjectID, &r.TargetProjectID, &r.CompanyID,
			&r.MatchScore, &reasons, &r.Status, &r.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan recommendation")
		}
		if err := unmarshalNullable(reasons, &r.Reasons); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal reasons")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate recommendations")
}

func (s *PostgresStore) SetRecommendationStatus(ctx context.Context, id string, status model.RecommendationStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE cross_sell_recommendations SET status = $1 WHERE id = $2`,
		string(status), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set recommendation status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for the shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (*model.Company, error) {
	var c model.Company
	var enrichment, reasons []byte
	err := row.Scan(&c.ID, &c.ClientID, &c.Name, &c.Industry, &c.EmployeeCount,
		&c.Location, &c.Website, &enrichment, &c.Rank, &c.Score, &reasons,
		&c.ScoredAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalNullable(enrichment, &c.Enrichment); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(reasons, &c.Reasons); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanIntentProfile(row rowScanner) (*model.IntentProfile, error) {
	var p model.IntentProfile
	var signals []byte
	err := row.Scan(&p.CompanyID, &signals, &p.Score, &p.Level, &p.BuyingStage,
		&p.Summary, &p.AnalyzedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalNullable(signals, &p.Signals); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanEngagement(row rowScanner) (*model.EngagementScore, error) {
	var e model.EngagementScore
	err := row.Scan(&e.CompanyID, &e.ProjectID, &e.CallScore, &e.DocumentScore,
		&e.WebActivityScore, &e.SocialScore, &e.TotalScore, &e.Trend, &e.AlertLevel,
		&e.LastActivityAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanProject(row rowScanner) (*model.Project, error) {
	var p model.Project
	err := row.Scan(&p.ID, &p.ClientID, &p.ProductID, &p.Name, &p.Description,
		&p.Status, &p.MinAppointmentRate, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// marshalNullable JSON-encodes v, returning nil for nil pointers and empty
// slices/maps so the column stays NULL.
func marshalNullable(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *model.Enrichment:
		if t == nil {
			return nil, nil
		}
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	case []model.Signal:
		if len(t) == 0 {
			return nil, nil
		}
	case map[string]float64:
		if len(t) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func unmarshalNullable(data []byte, out any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
