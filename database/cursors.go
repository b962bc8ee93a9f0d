package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/help-netizen/twilio-front-integration-sub004/internal/apierror"
	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

// GetSyncCursor returns the persisted progress row for a reconciliation
// job. A job that has never run gets a zero-valued cursor, not an error.
func (d Datasource) GetSyncCursor(ctx context.Context, jobName string) (*model.SyncCursor, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT job_name, cursor, last_success_at, COALESCE(last_error, ''), last_error_at, updated_at
		FROM sync_cursors
		WHERE job_name = $1
	`, jobName)

	c := &model.SyncCursor{}
	err := row.Scan(&c.JobName, &c.Cursor, &c.LastSuccessAt, &c.LastError, &c.LastErrorAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return &model.SyncCursor{JobName: jobName}, nil
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve sync cursor", err)
	}
	return c, nil
}

// SaveSyncCursor advances the cursor and clears the error state. Callers
// only invoke this after every record of the page behind the cursor has
// been durably applied.
func (d Datasource) SaveSyncCursor(ctx context.Context, jobName, cursor string) error {
	now := time.Now()
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO sync_cursors (job_name, cursor, last_success_at, last_error, last_error_at, updated_at)
		VALUES ($1, $2, $3, NULL, NULL, $3)
		ON CONFLICT (job_name) DO UPDATE SET
			cursor = EXCLUDED.cursor,
			last_success_at = EXCLUDED.last_success_at,
			last_error = NULL,
			last_error_at = NULL,
			updated_at = EXCLUDED.updated_at
	`, jobName, cursor, now)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save sync cursor", err)
	}
	return nil
}

// RecordSyncError stamps a failed run. The cursor column is left exactly
// where it was so the next run retries the same page.
func (d Datasource) RecordSyncError(ctx context.Context, jobName, lastError string) error {
	now := time.Now()
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO sync_cursors (job_name, cursor, last_error, last_error_at, updated_at)
		VALUES ($1, '', $2, $3, $3)
		ON CONFLICT (job_name) DO UPDATE SET
			last_error = EXCLUDED.last_error,
			last_error_at = EXCLUDED.last_error_at,
			updated_at = EXCLUDED.updated_at
	`, jobName, lastError, now)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record sync error", err)
	}
	return nil
}
