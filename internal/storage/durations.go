package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/takuto-ai/takuto/internal/model"
)

// InsertDuration appends a single duration record. Derived fields
// (variance, bottleneck_factor) are expected to be filled in already, as
// model.NewDurationRecord does.
func (db *DB) InsertDuration(ctx context.Context, r model.DurationRecord) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO takt_metrics (timestamp, work_package, planned_duration, actual_duration, variance, bottleneck_factor, project_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.Timestamp, r.WorkPackage, r.PlannedDuration, r.ActualDuration,
		r.Variance, r.BottleneckFactor, r.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("storage: insert duration: %w", err)
	}
	return nil
}

// InsertDurations appends duration records in bulk using the COPY protocol.
func (db *DB) InsertDurations(ctx context.Context, records []model.DurationRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	columns := []string{"timestamp", "work_package", "planned_duration", "actual_duration", "variance", "bottleneck_factor", "project_id"}
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{
			r.Timestamp, r.WorkPackage, r.PlannedDuration, r.ActualDuration,
			r.Variance, r.BottleneckFactor, r.ProjectID,
		}
	}

	count, err := db.pool.CopyFrom(ctx, pgx.Identifier{"takt_metrics"}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("storage: copy durations: %w", err)
	}
	return count, nil
}

// QueryDurations returns the project's duration records in the inclusive
// window, oldest first. Insertion order within a timestamp is preserved so
// metric computations see the records as they were recorded.
func (db *DB) QueryDurations(ctx context.Context, projectID string, start, end time.Time) ([]model.DurationRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT timestamp, work_package, planned_duration, actual_duration, variance, bottleneck_factor, project_id
		 FROM takt_metrics
		 WHERE project_id = $1 AND timestamp BETWEEN $2 AND $3
		 ORDER BY timestamp ASC, ctid ASC`,
		projectID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: query durations: %w", err)
	}
	defer rows.Close()

	var out []model.DurationRecord
	for rows.Next() {
		var r model.DurationRecord
		if err := rows.Scan(&r.Timestamp, &r.WorkPackage, &r.PlannedDuration, &r.ActualDuration,
			&r.Variance, &r.BottleneckFactor, &r.ProjectID); err != nil {
			return nil, fmt.Errorf("storage: scan duration: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
