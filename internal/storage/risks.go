package storage

import (
	"context"
	"fmt"

	"github.com/takuto-ai/takuto/internal/model"
)

// InsertRisks appends one risk snapshot. Every record is validated before
// any row is written; a snapshot is all-or-nothing within one transaction.
func (db *DB) InsertRisks(ctx context.Context, records []model.RiskRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("storage: insert risks: %w", err)
		}
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("storage: begin risk snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, r := range records {
		if _, err := tx.Exec(ctx,
			`INSERT INTO risk_events (timestamp, risk_type, probability, impact, status, mitigation_plan, project_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.Timestamp, r.RiskType, r.Probability, r.Impact, string(r.Status), r.MitigationPlan, r.ProjectID,
		); err != nil {
			return fmt.Errorf("storage: insert risk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("storage: commit risk snapshot: %w", err)
	}
	return nil
}

// LatestRisks returns the most recent risk snapshot for the project: all
// rows carrying the project's maximum timestamp. A project with no risks
// yields an empty slice.
func (db *DB) LatestRisks(ctx context.Context, projectID string) ([]model.RiskRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT timestamp, risk_type, probability, impact, status, mitigation_plan, project_id
		 FROM risk_events
		 WHERE project_id = $1
		   AND timestamp = (SELECT MAX(timestamp) FROM risk_events WHERE project_id = $1)
		 ORDER BY risk_type ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: latest risks: %w", err)
	}
	defer rows.Close()

	var out []model.RiskRecord
	for rows.Next() {
		var r model.RiskRecord
		var status string
		if err := rows.Scan(&r.Timestamp, &r.RiskType, &r.Probability, &r.Impact, &status, &r.MitigationPlan, &r.ProjectID); err != nil {
			return nil, fmt.Errorf("storage: scan risk: %w", err)
		}
		r.Status = model.RiskStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
