package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/help-netizen/twilio-front-integration-sub004/internal/apierror"
	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

// InsertRawEvent appends an event to the journal if its key is absent. The
// bool result reports whether a row was written: false means the key
// already exists and the caller must treat the event as a duplicate. This
// single atomic insert is what every downstream component relies on for
// at-most-once application.
func (d Datasource) InsertRawEvent(ctx context.Context, evt *model.RawEvent) (bool, error) {
	ctx, span := otel.Tracer("inbox.database").Start(ctx, "Inserting raw event")
	defer span.End()

	payloadJSON, err := json.Marshal(evt.Payload)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal payload", err)
	}

	var id int64
	err = d.Conn.QueryRowContext(ctx, `
		INSERT INTO raw_events (event_key, source, call_sid, parent_call_sid, recording_sid, event_time, received_at, payload, processing_status)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9)
		ON CONFLICT (event_key) DO NOTHING
		RETURNING id
	`, evt.EventKey, evt.Source, evt.CallSid, evt.ParentCallSid, evt.RecordingSid, evt.EventTime, evt.ReceivedAt, payloadJSON, model.EventPending).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to insert raw event", err)
	}

	evt.ID = id
	evt.ProcessingStatus = model.EventPending
	return true, nil
}

func (d Datasource) GetRawEvent(ctx context.Context, eventKey string) (*model.RawEvent, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, event_key, source, call_sid, COALESCE(parent_call_sid, ''), COALESCE(recording_sid, ''), event_time, received_at, payload, processing_status, COALESCE(last_error, '')
		FROM raw_events
		WHERE event_key = $1
	`, eventKey)

	evt, err := scanRawEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Event with key '%s' not found", eventKey), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve raw event", err)
	}
	return evt, nil
}

// UpdateEventProcessingStatus moves an event through its lifecycle. Rows
// already completed or dead-lettered are left alone: those states are
// final.
func (d Datasource) UpdateEventProcessingStatus(ctx context.Context, eventKey, status, lastError string) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE raw_events
		SET processing_status = $2, last_error = NULLIF($3, '')
		WHERE event_key = $1 AND processing_status NOT IN ($4, $5)
	`, eventKey, status, lastError, model.EventCompleted, model.EventDeadLetter)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update event processing status", err)
	}
	return nil
}

// ResetEventForReplay returns a parked event to pending for manual replay.
// This is the one deliberate exception to the finality of completed and
// dead_letter.
func (d Datasource) ResetEventForReplay(ctx context.Context, eventKey string) error {
	res, err := d.Conn.ExecContext(ctx, `
		UPDATE raw_events SET processing_status = $2, last_error = NULL, attempts = 0 WHERE event_key = $1
	`, eventKey, model.EventPending)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to reset event for replay", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Event with key '%s' not found", eventKey), nil)
	}
	return nil
}

func (d Datasource) IncrementEventAttempts(ctx context.Context, eventKey string) (int, error) {
	var attempts int
	err := d.Conn.QueryRowContext(ctx, `
		UPDATE raw_events SET attempts = attempts + 1 WHERE event_key = $1 RETURNING attempts
	`, eventKey).Scan(&attempts)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to increment event attempts", err)
	}
	return attempts, nil
}

func (d Datasource) GetJournalByCall(ctx context.Context, callSid string, limit, offset int) ([]*model.RawEvent, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, event_key, source, call_sid, COALESCE(parent_call_sid, ''), COALESCE(recording_sid, ''), event_time, received_at, payload, processing_status, COALESCE(last_error, '')
		FROM raw_events
		WHERE call_sid = $1
		ORDER BY event_time ASC, id ASC
		LIMIT $2 OFFSET $3
	`, callSid, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve journal", err)
	}
	defer func() { _ = rows.Close() }()

	return collectRawEvents(rows)
}

func (d Datasource) GetDeadLetterEvents(ctx context.Context, limit, offset int) ([]*model.RawEvent, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, event_key, source, call_sid, COALESCE(parent_call_sid, ''), COALESCE(recording_sid, ''), event_time, received_at, payload, processing_status, COALESCE(last_error, '')
		FROM raw_events
		WHERE processing_status = $1
		ORDER BY received_at DESC
		LIMIT $2 OFFSET $3
	`, model.EventDeadLetter, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve dead letter events", err)
	}
	defer func() { _ = rows.Close() }()

	return collectRawEvents(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRawEvent(row rowScanner) (*model.RawEvent, error) {
	evt := &model.RawEvent{}
	var payloadJSON []byte
	err := row.Scan(&evt.ID, &evt.EventKey, &evt.Source, &evt.CallSid, &evt.ParentCallSid, &evt.RecordingSid, &evt.EventTime, &evt.ReceivedAt, &payloadJSON, &evt.ProcessingStatus, &evt.LastError)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payloadJSON, &evt.Payload); err != nil {
		return nil, err
	}
	return evt, nil
}

func collectRawEvents(rows *sql.Rows) ([]*model.RawEvent, error) {
	events := []*model.RawEvent{}
	for rows.Next() {
		evt, err := scanRawEvent(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan raw event", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate raw events", err)
	}
	return events, nil
}
