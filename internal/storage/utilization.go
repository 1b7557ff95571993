package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/takuto-ai/takuto/internal/model"
)

// InsertUtilization appends a single resource utilization record.
func (db *DB) InsertUtilization(ctx context.Context, r model.UtilizationRecord) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO resource_utilization (timestamp, resource_type, planned, actual, efficiency, project_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.Timestamp, r.ResourceType, r.Planned, r.Actual, r.Efficiency, r.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("storage: insert utilization: %w", err)
	}
	return nil
}

// InsertUtilizations appends utilization records in bulk using COPY.
func (db *DB) InsertUtilizations(ctx context.Context, records []model.UtilizationRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	columns := []string{"timestamp", "resource_type", "planned", "actual", "efficiency", "project_id"}
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Timestamp, r.ResourceType, r.Planned, r.Actual, r.Efficiency, r.ProjectID}
	}

	count, err := db.pool.CopyFrom(ctx, pgx.Identifier{"resource_utilization"}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("storage: copy utilizations: %w", err)
	}
	return count, nil
}

// QueryUtilization returns the project's utilization records in the
// inclusive window, oldest first.
func (db *DB) QueryUtilization(ctx context.Context, projectID string, start, end time.Time) ([]model.UtilizationRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT timestamp, resource_type, planned, actual, efficiency, project_id
		 FROM resource_utilization
		 WHERE project_id = $1 AND timestamp BETWEEN $2 AND $3
		 ORDER BY timestamp ASC, ctid ASC`,
		projectID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: query utilization: %w", err)
	}
	defer rows.Close()

	var out []model.UtilizationRecord
	for rows.Next() {
		var r model.UtilizationRecord
		if err := rows.Scan(&r.Timestamp, &r.ResourceType, &r.Planned, &r.Actual, &r.Efficiency, &r.ProjectID); err != nil {
			return nil, fmt.Errorf("storage: scan utilization: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
