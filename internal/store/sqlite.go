package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadintel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the local and
// test driver; semantics mirror the Postgres store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id             TEXT PRIMARY KEY,
	client_id      TEXT NOT NULL DEFAULT '',
	name           TEXT NOT NULL,
	industry       TEXT NOT NULL DEFAULT '',
	employee_count INTEGER NOT NULL DEFAULT 0,
	location       TEXT NOT NULL DEFAULT '',
	website        TEXT NOT NULL DEFAULT '',
	enrichment     TEXT,
	rank           TEXT NOT NULL DEFAULT '',
	score          INTEGER NOT NULL DEFAULT 0,
	reasons        TEXT,
	scored_at      DATETIME,
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS intent_profiles (
	company_id   TEXT PRIMARY KEY,
	signals      TEXT,
	score        INTEGER NOT NULL DEFAULT 0,
	level        TEXT NOT NULL DEFAULT 'cold',
	buying_stage TEXT NOT NULL DEFAULT 'unknown',
	summary      TEXT NOT NULL DEFAULT '',
	analyzed_at  DATETIME NOT NULL
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
	last_activity_at   DATETIME NOT NULL,
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL,
	PRIMARY KEY (company_id, project_id)
);

CREATE TABLE IF NOT EXISTS products (
	id                TEXT PRIMARY KEY,
	client_id         TEXT NOT NULL DEFAULT '',
	name              TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	target_industries TEXT,
	min_employees     INTEGER NOT NULL DEFAULT 0,
	max_employees     INTEGER NOT NULL DEFAULT 0,
	min_revenue_yen   INTEGER NOT NULL DEFAULT 0,
	max_revenue_yen   INTEGER NOT NULL DEFAULT 0,
	target_locations  TEXT,
	keywords          TEXT,
	benefits          TEXT
);

CREATE TABLE IF NOT EXISTS projects (
	id                   TEXT PRIMARY KEY,
	client_id            TEXT NOT NULL DEFAULT '',
	product_id           TEXT NOT NULL DEFAULT '',
	name                 TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	status               TEXT NOT NULL DEFAULT 'active',
	min_appointment_rate REAL NOT NULL DEFAULT 50,
	created_at           DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS call_outcomes (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	company_id TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	called_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS pivot_alerts (
	id                TEXT PRIMARY KEY,
	project_id        TEXT NOT NULL,
	alert_type        TEXT NOT NULL,
	severity          TEXT NOT NULL,
	current_metrics   TEXT,
	threshold_metrics TEXT,
	suggestions       TEXT,
	status            TEXT NOT NULL DEFAULT 'active',
	note              TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL,
	acknowledged_at   DATETIME
);

CREATE TABLE IF NOT EXISTS cross_sell_recommendations (
	id                TEXT PRIMARY KEY,
	source_project_id TEXT NOT NULL,
	target_project_id TEXT NOT NULL,
	company_id        TEXT NOT NULL,
	match_score       INTEGER NOT NULL,
	reasons           TEXT,
	status            TEXT NOT NULL DEFAULT 'suggested',
	created_at        DATETIME NOT NULL,
	UNIQUE (source_project_id, target_project_id, company_id)
);

CREATE INDEX IF NOT EXISTS idx_companies_client ON companies(client_id);
CREATE INDEX IF NOT EXISTS idx_engagement_project ON engagement_scores(project_id, total_score);
CREATE INDEX IF NOT EXISTS idx_call_outcomes_project ON call_outcomes(project_id);
CREATE INDEX IF NOT EXISTS idx_pivot_alerts_project ON pivot_alerts(project_id, status);
CREATE INDEX IF NOT EXISTS idx_crosssell_target ON cross_sell_recommendations(target_project_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertCompany(ctx context.Context, c *model.Company) error {
	enrichment, err := marshalNullable(c.Enrichment)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal enrichment")
	}
	reasons, err := marshalNullable(c.Reasons)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal reasons")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO companies
			(id, client_id, name, industry, employee_count, location, website,
			 enrichment, rank, score, reasons, scored_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			client_id = excluded.client_id,
			name = excluded.name,
			industry = excluded.industry,
			employee_count = excluded.employee_count,
			location = excluded.location,
			website = excluded.website,
			enrichment = excluded.enrichment,
			rank = excluded.rank,
			score = excluded.score,
			reasons = excluded.reasons,
			scored_at = excluded.scored_at,
			updated_at = excluded.updated_at`,
		c.ID, c.ClientID, c.Name, c.Industry, c.EmployeeCount, c.Location, c.Website,
		nullBytes(enrichment), string(c.Rank), c.Score, nullBytes(reasons),
		nullTime(c.ScoredAt), c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	return eris.Wrapf(err, "sqlite: upsert company %s", c.ID)
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, client_id, name, industry, employee_count, location, website,
		       enrichment, rank, score, reasons, scored_at, created_at, updated_at
		FROM companies WHERE id = ?`, id)

	c, err := scanCompanySQLite(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get company %s", id)
	}
	return c, nil
}

func (s *SQLiteStore) ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error) {
	query := `
		SELECT id, client_id, name, industry, employee_count, location, website,
		       enrichment, rank, score, reasons, scored_at, created_at, updated_at
		FROM companies WHERE 1=1`
	var args []any

	if filter.ClientID != "" {
		query += " AND client_id = ?"
		args = append(args, filter.ClientID)
	}
	if len(filter.Ranks) > 0 {
		query += " AND rank IN (?" + strings.Repeat(", ?", len(filter.Ranks)-1) + ")"
		for _, r := range filter.Ranks {
			args = append(args, string(r))
		}
	}
	if len(filter.Industries) > 0 {
		query += " AND industry IN (?" + strings.Repeat(", ?", len(filter.Industries)-1) + ")"
		for _, ind := range filter.Industries {
			args = append(args, ind)
		}
	}
	if filter.MinEmployees > 0 {
		query += " AND employee_count >= ?"
		args = append(args, filter.MinEmployees)
	}
	if filter.MaxEmployees > 0 {
		query += " AND employee_count <= ?"
		args = append(args, filter.MaxEmployees)
	}
	if filter.MinScore > 0 {
		query += " AND score >= ?"
		args = append(args, filter.MinScore)
	}

	query += " ORDER BY score DESC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		c, err := scanCompanySQLite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate companies")
}

func (s *SQLiteStore) SaveFitResult(ctx context.Context, companyID string, fit model.FitResult, scoredAt time.Time) error {
	reasons, err := marshalNullable(fit.Reasons)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal reasons")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE companies SET rank = ?, score = ?, reasons = ?, scored_at = ?, updated_at = ?
		WHERE id = ?`,
		string(fit.Rank), fit.Score, nullBytes(reasons), scoredAt.UTC(), scoredAt.UTC(), companyID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save fit result for %s", companyID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SaveIntentProfile(ctx context.Context, p *model.IntentProfile) error {
	signals, err := marshalNullable(p.Signals)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal signals")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO intent_profiles
			(company_id, signals, score, level, buying_stage, summary, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (company_id) DO UPDATE SET
			signals = excluded.signals,
			score = excluded.score,
			level = excluded.level,
			buying_stage = excluded.buying_stage,
			summary = excluded.summary,
			analyzed_at = excluded.analyzed_at`,
		p.CompanyID, nullBytes(signals), p.Score, string(p.Level),
		string(p.BuyingStage), p.Summary, p.AnalyzedAt.UTC())
	return eris.Wrapf(err, "sqlite: save intent profile for %s", p.CompanyID)
}

func (s *SQLiteStore) GetIntentProfile(ctx context.Context, companyID string) (*model.IntentProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT company_id, signals, score, level, buying_stage, summary, analyzed_at
		FROM intent_profiles WHERE company_id = ?`, companyID)

	p, err := scanIntentProfileSQLite(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get intent profile %s", companyID)
	}
	return p, nil
}

func (s *SQLiteStore) ListIntentProfiles(ctx context.Context, companyIDs []string) (map[string]model.IntentProfile, error) {
	out := make(map[string]model.IntentProfile, len(companyIDs))
	if len(companyIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT company_id, signals, score, level, buying_stage, summary, analyzed_at
		FROM intent_profiles WHERE company_id IN (?` +
		strings.Repeat(", ?", len(companyIDs)-1) + ")"
	args := make([]any, len(companyIDs))
	for i, id := range companyIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list intent profiles")
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanIntentProfileSQLite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan intent profile")
		}
		out[p.CompanyID] = *p
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate intent profiles")
}

func (s *SQLiteStore) GetEngagement(ctx context.Context, companyID, projectID string) (*model.EngagementScore, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT company_id, project_id, call_score, document_score, web_activity_score,
		       social_score, total_score, trend, alert_level, last_activity_at,
		       created_at, updated_at
		FROM engagement_scores WHERE company_id = ? AND project_id = ?`,
		companyID, projectID)

	var e model.EngagementScore
	err := row.Scan(&e.CompanyID, &e.ProjectID, &e.CallScore, &e.DocumentScore,
		&e.WebActivityScore, &e.SocialScore, &e.TotalScore, &e.Trend, &e.AlertLevel,
		&e.LastActivityAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get engagement %s/%s", companyID, projectID)
	}
	return &e, nil
}

func (s *SQLiteStore) PutEngagement(ctx context.Context, e *model.EngagementScore) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO engagement_scores
			(company_id, project_id, call_score, document_score, web_activity_score,
			 social_score, total_score, trend, alert_level, last_activity_at,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (company_id, project_id) DO UPDATE SET
			call_score = excluded.call_score,
			document_score = excluded.document_score,
			web_activity_score = excluded.web_activity_score,
			social_score = excluded.social_score,
			total_score = excluded.total_score,
			trend = excluded.trend,
			alert_level = excluded.alert_level,
			last_activity_at = excluded.last_activity_at,
			updated_at = excluded.updated_at`,
		e.CompanyID, e.ProjectID, e.CallScore, e.DocumentScore, e.WebActivityScore,
		e.SocialScore, e.TotalScore, string(e.Trend), string(e.AlertLevel),
		e.LastActivityAt.UTC(), e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	return eris.Wrapf(err, "sqlite: put engagement %s/%s", e.CompanyID, e.ProjectID)
}

func (s *SQLiteStore) ListEngagementAbove(ctx context.Context, projectID string, minScore int) ([]model.EngagementScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT company_id, project_id, call_score, document_score, web_activity_score,
		       social_score, total_score, trend, alert_level, last_activity_at,
		       created_at, updated_at
		FROM engagement_scores
		WHERE project_id = ? AND total_score >= ?
		ORDER BY total_score DESC, company_id ASC`,
		projectID, minScore)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list engagement")
	}
	defer rows.Close()

	var out []model.EngagementScore
	for rows.Next() {
		var e model.EngagementScore
		err := rows.Scan(&e.CompanyID, &e.ProjectID, &e.CallScore, &e.DocumentScore,
			&e.WebActivityScore, &e.SocialScore, &e.TotalScore, &e.Trend, &e.AlertLevel,
			&e.LastActivityAt, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan engagement")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate engagement")
}

func (s *SQLiteStore) UpsertProduct(ctx context.Context, p *model.Product) error {
	industries, err := marshalNullable(p.TargetIndustries)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal target industries")
	}
	locations, err := marshalNullable(p.TargetLocations)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal target locations")
	}
	keywords, err := marshalNullable(p.Keywords)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal keywords")
	}
	benefits, err := marshalNullable(p.Benefits)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal benefits")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products
			(id, client_id, name, description, target_industries, min_employees,
			 max_employees, min_revenue_yen, max_revenue_yen, target_locations,
			 keywords, benefits)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			client_id = excluded.client_id,
			name = excluded.name,
			description = excluded.description,
			target_industries = excluded.target_industries,
			min_employees = excluded.min_employees,
			max_employees = excluded.max_employees,
			min_revenue_yen = excluded.min_revenue_yen,
			max_revenue_yen = excluded.max_revenue_yen,
			target_locations = excluded.target_locations,
			keywords = excluded.keywords,
			benefits = excluded.benefits`,
		p.ID, p.ClientID, p.Name, p.Description, nullBytes(industries), p.MinEmployees,
		p.MaxEmployees, p.MinRevenueYen, p.MaxRevenueYen, nullBytes(locations),
		nullBytes(keywords), nullBytes(benefits))
	return eris.Wrapf(err, "sqlite: upsert product %s", p.ID)
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, client_id, name, description, target_industries, min_employees,
		       max_employees, min_revenue_yen, max_revenue_yen, target_locations,
		       keywords, benefits
		FROM products WHERE id = ?`, id)

	var p model.Product
	var industries, locations, keywords, benefits sql.NullString
	err := row.Scan(&p.ID, &p.ClientID, &p.Name, &p.Description, &industries,
		&p.MinEmployees, &p.MaxEmployees, &p.MinRevenueYen, &p.MaxRevenueYen,
		&locations, &keywords, &benefits)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get product %s", id)
	}
	for _, pair := range []struct {
		src sql.NullString
		dst *[]string
	}{
		{industries, &p.TargetIndustries},
		{locations, &p.TargetLocations},
		{keywords, &p.Keywords},
		{benefits, &p.Benefits},
	} {
		if pair.src.Valid {
			if err := json.Unmarshal([]byte(pair.src.String), pair.dst); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal product field")
			}
		}
	}
	return &p, nil
}

func (s *SQLiteStore) UpsertProject(ctx context.Context, p *model.Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects
			(id, client_id, product_id, name, description, status,
			 min_appointment_rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			client_id = excluded.client_id,
			product_id = excluded.product_id,
			name = excluded.name,
			description = excluded.description,
			status = excluded.status,
			min_appointment_rate = excluded.min_appointment_rate`,
		p.ID, p.ClientID, p.ProductID, p.Name, p.Description, string(p.Status),
		p.MinAppointmentRate, p.CreatedAt.UTC())
	return eris.Wrapf(err, "sqlite: upsert project %s", p.ID)
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, client_id, product_id, name, description, status,
		       min_appointment_rate, created_at
		FROM projects WHERE id = ?`, id)

	var p model.Project
	err := row.Scan(&p.ID, &p.ClientID, &p.ProductID, &p.Name, &p.Description,
		&p.Status, &p.MinAppointmentRate, &p.CreatedAt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get project %s", id)
	}
	return &p, nil
}

func (s *SQLiteStore) ListActiveProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, product_id, name, description, status,
		       min_appointment_rate, created_at
		FROM projects WHERE status = 'active' ORDER BY created_at ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list active projects")
	}
	defer rows.Close()

	var out []model.Project
	for rows.Next() {
		var p model.Project
		err := rows.Scan(&p.ID, &p.ClientID, &p.ProductID, &p.Name, &p.Description,
			&p.Status, &p.MinAppointmentRate, &p.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan project")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate projects")
}

func (s *SQLiteStore) RecordCallOutcome(ctx context.Context, projectID, companyID, outcome string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO call_outcomes (id, project_id, company_id, outcome, called_at)
		VALUES (?, ?, ?, ?, ?)`,
		newID(), projectID, companyID, outcome, at.UTC())
	return eris.Wrapf(err, "sqlite: record call outcome for %s", projectID)
}

func (s *SQLiteStore) CallStats(ctx context.Context, projectID string) (model.CallStats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN outcome = 'appointment' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN outcome = 'rejected' THEN 1 ELSE 0 END), 0)
		FROM call_outcomes WHERE project_id = ?`, projectID)

	stats := model.CallStats{ProjectID: projectID}
	if err := row.Scan(&stats.TotalCalls, &stats.Appointments, &stats.Rejections); err != nil {
		return stats, eris.Wrapf(err, "sqlite: call stats for %s", projectID)
	}
	return stats, nil
}

func (s *SQLiteStore) RejectedCompanies(ctx context.Context, projectID string, limit int) ([]model.Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.client_id, c.name, c.industry, c.employee_count, c.location,
		       c.website, c.enrichment, c.rank, c.score, c.reasons, c.scored_at,
		       c.created_at, c.updated_at
		FROM companies c
		JOIN (
			SELECT company_id, MIN(called_at) AS first_rejected
			FROM call_outcomes
			WHERE project_id = ? AND outcome = 'rejected'
			GROUP BY company_id
		) r ON r.company_id = c.id
		ORDER BY r.first_rejected ASC
		LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rejected companies")
	}
	defer rows.Close()

	var out []model.Company
	for rows.Next() {
		c, err := scanCompanySQLite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rejected company")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate rejected companies")
}

func (s *SQLiteStore) CreatePivotAlerts(ctx context.Context, alerts []model.PivotAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, a := range alerts {
		current, err := marshalNullable(a.CurrentMetrics)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal current metrics")
		}
		threshold, err := marshalNullable(a.ThresholdMetrics)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal threshold metrics")
		}
		suggestions, err := marshalNullable(a.Suggestions)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal suggestions")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO pivot_alerts
				(id, project_id, alert_type, severity, current_metrics,
				 threshold_metrics, suggestions, status, note, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.ProjectID, string(a.AlertType), string(a.Severity),
			nullBytes(current), nullBytes(threshold), nullBytes(suggestions),
			string(a.Status), a.Note, a.CreatedAt.UTC())
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert pivot alert %s", a.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit pivot alerts")
}

func (s *SQLiteStore) ListPivotAlerts(ctx context.Context, projectID string, status model.AlertStatus) ([]model.PivotAlert, error) {
	query := `
		SELECT id, project_id, alert_type, severity, current_metrics,
		       threshold_metrics, suggestions, status, note, created_at, acknowledged_at
		FROM pivot_alerts WHERE project_id = ?`
	args := []any{projectID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pivot alerts")
	}
	defer rows.Close()

	var out []model.PivotAlert
	for rows.Next() {
		var a model.PivotAlert
		var current, threshold, suggestions sql.NullString
		var ackedAt sql.NullTime
		err := rows.Scan(&a.ID, &a.ProjectID, &a.AlertType, &a.Severity, &current,
			&threshold, &suggestions, &a.Status, &a.Note, &a.CreatedAt, &ackedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pivot alert")
		}
		if current.Valid {
			if err := json.Unmarshal([]byte(current.String), &a.CurrentMetrics); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal current metrics")
			}
		}
		if threshold.Valid {
			if err := json.Unmarshal([]byte(threshold.String), &a.ThresholdMetrics); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal threshold metrics")
			}
		}
		if suggestions.Valid {
			if err := json.Unmarshal([]byte(suggestions.String), &a.Suggestions); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal suggestions")
			}
		}
		if ackedAt.Valid {
			t := ackedAt.Time
			a.AcknowledgedAt = &t
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate pivot alerts")
}

func (s *SQLiteStore) SetPivotAlertStatus(ctx context.Context, alertID string, status model.AlertStatus, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pivot_alerts SET status = ?, acknowledged_at = ? WHERE id = ?`,
		string(status), at.UTC(), alertID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set alert status %s", alertID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CreateRecommendations(ctx context.Context, recs []model.CrossSellRecommendation) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, r := range recs {
		reasons, err := marshalNullable(r.Reasons)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal reasons")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cross_sell_recommendations
				(id, source_project_id, target_project_id, company_id, match_score,
				 reasons, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (source_project_id, target_project_id, company_id) DO UPDATE SET
				match_score = excluded.match_score,
				reasons = excluded.reasons`,
			r.ID, r.SourceProjectID, r.TargetProjectID, r.CompanyID, r.MatchScore,
			nullBytes(reasons), string(r.Status), r.CreatedAt.UTC())
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert recommendation %s", r.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit recommendations")
}

func (s *SQLiteStore) ListRecommendations(ctx context.Context, targetProjectID string) ([]model.CrossSellRecommendation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_project_id, target_project_id, company_id, match_score,
		       reasons, status, created_at
		FROM cross_sell_recommendations
		WHERE target_project_id = ?
		ORDER BY created_at ASC, id ASC`, targetProjectID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list recommendations")
	}
	defer rows.Close()

	var out []model.CrossSellRecommendation
	for rows.Next() {
		var r model.CrossSellRecommendation
		var reasons sql.NullString
		err := rows.Scan(&r.ID, &r.SourceProjectID, &r.TargetProjectID, &r.CompanyID,
			&r.MatchScore, &reasons, &r.Status, &r.CreatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan recommendation")
		}
		if reasons.Valid {
			if err := json.Unmarshal([]byte(reasons.String), &r.Reasons); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal reasons")
			}
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate recommendations")
}

func (s *SQLiteStore) SetRecommendationStatus(ctx context.Context, id string, status model.RecommendationStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cross_sell_recommendations SET status = ? WHERE id = ?`,
		string(status), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set recommendation status %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCompanySQLite(row rowScanner) (*model.Company, error) {
	var c model.Company
	var enrichment, reasons sql.NullString
	var scoredAt sql.NullTime
	err := row.Scan(&c.ID, &c.ClientID, &c.Name, &c.Industry, &c.EmployeeCount,
		&c.Location, &c.Website, &enrichment, &c.Rank, &c.Score, &reasons,
		&scoredAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if enrichment.Valid {
		if err := json.Unmarshal([]byte(enrichment.String), &c.Enrichment); err != nil {
			return nil, fmt.Errorf("unmarshal enrichment: %w", err)
		}
	}
	if reasons.Valid {
		if err := json.Unmarshal([]byte(reasons.String), &c.Reasons); err != nil {
			return nil, fmt.Errorf("unmarshal reasons: %w", err)
		}
	}
	if scoredAt.Valid {
		t := scoredAt.Time
		c.ScoredAt = &t
	}
	return &c, nil
}

func scanIntentProfileSQLite(row rowScanner) (*model.IntentProfile, error) {
	var p model.IntentProfile
	var signals sql.NullString
	err := row.Scan(&p.CompanyID, &signals, &p.Score, &p.Level, &p.BuyingStage,
		&p.Summary, &p.AnalyzedAt)
	if err != nil {
		return nil, err
	}
	if signals.Valid {
		if err := json.Unmarshal([]byte(signals.String), &p.Signals); err != nil {
			return nil, fmt.Errorf("unmarshal signals: %w", err)
		}
	}
	return &p, nil
}

// nullBytes converts a possibly-nil JSON blob to a driver-friendly value.
func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// nullTime converts a possibly-nil time pointer to a driver-friendly value.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
