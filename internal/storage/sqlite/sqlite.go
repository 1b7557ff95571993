// Package sqlite is the embedded fallback store: the same record surface as
// the PostgreSQL layer over a single local file. Used for local development
// and fast tests; the server picks it when no database URL is configured.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/takuto-ai/takuto/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS takt_metrics (
	timestamp INTEGER NOT NULL,
	work_package TEXT NOT NULL,
	planned_duration REAL NOT NULL,
	actual_duration REAL NOT NULL,
	variance REAL NOT NULL,
	bottleneck_factor REAL NOT NULL DEFAULT 0,
	project_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_takt_metrics_project_ts ON takt_metrics(project_id, timestamp);

CREATE TABLE IF NOT EXISTS resource_utilization (
	timestamp INTEGER NOT NULL,
	resource_type TEXT NOT NULL,
	planned REAL NOT NULL,
	actual REAL NOT NULL,
	efficiency REAL NOT NULL DEFAULT 0,
	project_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_resource_utilization_project_ts ON resource_utilization(project_id, timestamp);

CREATE TABLE IF NOT EXISTS risk_events (
	timestamp INTEGER NOT NULL,
	risk_type TEXT NOT NULL,
	probability REAL NOT NULL,
	impact REAL NOT NULL,
	status TEXT NOT NULL,
	mitigation_plan TEXT NOT NULL DEFAULT '',
	project_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_risk_events_project_ts ON risk_events(project_id, timestamp);
`

// Store is a file-backed record store. Timestamps are stored as Unix
// nanoseconds to keep range queries cheap and ordering exact.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database file. Pass ":memory:" for an
// ephemeral store in tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: set pragma %q: %w", stmt, err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the record tables. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: migrate schema: %w", err)
	}
	return nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InsertDuration appends a single duration record.
func (s *Store) InsertDuration(ctx context.Context, r model.DurationRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO takt_metrics (timestamp, work_package, planned_duration, actual_duration, variance, bottleneck_factor, project_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp.UnixNano(), r.WorkPackage, r.PlannedDuration, r.ActualDuration,
		r.Variance, r.BottleneckFactor, r.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert duration: %w", err)
	}
	return nil
}

// InsertDurations appends duration records one statement at a time inside a
// transaction. SQLite has no COPY; a transaction keeps the bulk path atomic.
func (s *Store) InsertDurations(ctx context.Context, records []model.DurationRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin durations: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO takt_metrics (timestamp, work_package, planned_duration, actual_duration, variance, bottleneck_factor, project_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.Timestamp.UnixNano(), r.WorkPackage, r.PlannedDuration, r.ActualDuration,
			r.Variance, r.BottleneckFactor, r.ProjectID,
		); err != nil {
			return 0, fmt.Errorf("sqlite: insert duration: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit durations: %w", err)
	}
	return int64(len(records)), nil
}

// QueryDurations returns the project's duration records in the inclusive
// window, oldest first with insertion order preserved within a timestamp.
func (s *Store) QueryDurations(ctx context.Context, projectID string, start, end time.Time) ([]model.DurationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, work_package, planned_duration, actual_duration, variance, bottleneck_factor, project_id
		 FROM takt_metrics
		 WHERE project_id = ? AND timestamp BETWEEN ? AND ?
		 ORDER BY timestamp ASC, rowid ASC`,
		projectID, start.UnixNano(), end.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query durations: %w", err)
	}
	defer rows.Close()

	var out []model.DurationRecord
	for rows.Next() {
		var r model.DurationRecord
		var ts int64
		if err := rows.Scan(&ts, &r.WorkPackage, &r.PlannedDuration, &r.ActualDuration,
			&r.Variance, &r.BottleneckFactor, &r.ProjectID); err != nil {
			return nil, fmt.Errorf("sqlite: scan duration: %w", err)
		}
		r.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertUtilization appends a single utilization record.
func (s *Store) InsertUtilization(ctx context.Context, r model.UtilizationRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resource_utilization (timestamp, resource_type, planned, actual, efficiency, project_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Timestamp.UnixNano(), r.ResourceType, r.Planned, r.Actual, r.Efficiency, r.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert utilization: %w", err)
	}
	return nil
}

// InsertUtilizations appends utilization records in one transaction.
func (s *Store) InsertUtilizations(ctx context.Context, records []model.UtilizationRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin utilizations: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO resource_utilization (timestamp, resource_type, planned, actual, efficiency, project_id)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.Timestamp.UnixNano(), r.ResourceType, r.Planned, r.Actual, r.Efficiency, r.ProjectID,
		); err != nil {
			return 0, fmt.Errorf("sqlite: insert utilization: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit utilizations: %w", err)
	}
	return int64(len(records)), nil
}

// QueryUtilization returns the project's utilization records in the
// inclusive window, oldest first.
func (s *Store) QueryUtilization(ctx context.Context, projectID string, start, end time.Time) ([]model.UtilizationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, resource_type, planned, actual, efficiency, project_id
		 FROM resource_utilization
		 WHERE project_id = ? AND timestamp BETWEEN ? AND ?
		 ORDER BY timestamp ASC, rowid ASC`,
		projectID, start.UnixNano(), end.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query utilization: %w", err)
	}
	defer rows.Close()

	var out []model.UtilizationRecord
	for rows.Next() {
		var r model.UtilizationRecord
		var ts int64
		if err := rows.Scan(&ts, &r.ResourceType, &r.Planned, &r.Actual, &r.Efficiency, &r.ProjectID); err != nil {
			return nil, fmt.Errorf("sqlite: scan utilization: %w", err)
		}
		r.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertRisks appends one validated risk snapshot atomically.
func (s *Store) InsertRisks(ctx context.Context, records []model.RiskRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("sqlite: insert risks: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin risk snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range records {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO risk_events (timestamp, risk_type, probability, impact, status, mitigation_plan, project_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.Timestamp.UnixNano(), r.RiskType, r.Probability, r.Impact, string(r.Status), r.MitigationPlan, r.ProjectID,
		); err != nil {
			return fmt.Errorf("sqlite: insert risk: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit risk snapshot: %w", err)
	}
	return nil
}

// LatestRisks returns all rows of the project's most recent risk snapshot.
func (s *Store) LatestRisks(ctx context.Context, projectID string) ([]model.RiskRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, risk_type, probability, impact, status, mitigation_plan, project_id
		 FROM risk_events
		 WHERE project_id = ?
		   AND timestamp = (SELECT MAX(timestamp) FROM risk_events WHERE project_id = ?)
		 ORDER BY risk_type ASC`,
		projectID, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: latest risks: %w", err)
	}
	defer rows.Close()

	var out []model.RiskRecord
	for rows.Next() {
		var r model.RiskRecord
		var ts int64
		var status string
		if err := rows.Scan(&ts, &r.RiskType, &r.Probability, &r.Impact, &status, &r.MitigationPlan, &r.ProjectID); err != nil {
			return nil, fmt.Errorf("sqlite: scan risk: %w", err)
		}
		r.Timestamp = time.Unix(0, ts).UTC()
		r.Status = model.RiskStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
