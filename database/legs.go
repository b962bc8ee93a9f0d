package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/help-netizen/twilio-front-integration-sub004/internal/apierror"
	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

const legColumns = `call_sid, interaction_sid, COALESCE(parent_call_sid, ''), status, direction,
	COALESCE(from_endpoint, ''), COALESCE(to_endpoint, ''), started_at, answered_at, ended_at, duration_sec,
	last_event_time, is_final, bridged, COALESCE(recording_sid, ''), COALESCE(recording_url, ''),
	COALESCE(transcription_sid, ''), COALESCE(transcription_text, ''), derived_status, created_at, updated_at`

func (d Datasource) GetLeg(ctx context.Context, callSid string) (*model.CallLeg, error) {
	row := d.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM call_legs WHERE call_sid = $1
	`, legColumns), callSid)

	l, err := scanLeg(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Call leg '%s' not found", callSid), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve call leg", err)
	}
	return l, nil
}

// SaveLeg upserts the snapshot for a call sid. All writes funnel through the
// per-interaction worker, so the upsert never races with itself for one
// leg.
func (d Datasource) SaveLeg(ctx context.Context, l *model.CallLeg) error {
	ctx, span := otel.Tracer("leg.database").Start(ctx, "Saving call leg snapshot")
	defer span.End()

	l.UpdatedAt = time.Now()
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO call_legs (call_sid, interaction_sid, parent_call_sid, status, direction, from_endpoint, to_endpoint,
			started_at, answered_at, ended_at, duration_sec, last_event_time, is_final, bridged,
			recording_sid, recording_url, transcription_sid, transcription_text, derived_status, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11, $12, $13, $14,
			NULLIF($15, ''), NULLIF($16, ''), NULLIF($17, ''), NULLIF($18, ''), $19, $20)
		ON CONFLICT (call_sid) DO UPDATE SET
			interaction_sid = EXCLUDED.interaction_sid,
			parent_call_sid = EXCLUDED.parent_call_sid,
			status = EXCLUDED.status,
			direction = EXCLUDED.direction,
			from_endpoint = EXCLUDED.from_endpoint,
			to_endpoint = EXCLUDED.to_endpoint,
			started_at = EXCLUDED.started_at,
			answered_at = EXCLUDED.answered_at,
			ended_at = EXCLUDED.ended_at,
			duration_sec = EXCLUDED.duration_sec,
			last_event_time = EXCLUDED.last_event_time,
			is_final = EXCLUDED.is_final,
			bridged = EXCLUDED.bridged,
			recording_sid = EXCLUDED.recording_sid,
			recording_url = EXCLUDED.recording_url,
			transcription_sid = EXCLUDED.transcription_sid,
			transcription_text = EXCLUDED.transcription_text,
			derived_status = EXCLUDED.derived_status,
			updated_at = EXCLUDED.updated_at
	`, l.CallSid, l.InteractionSid, l.ParentCallSid, l.Status, l.Direction, l.From, l.To,
		l.StartedAt, l.AnsweredAt, l.EndedAt, l.DurationSec, l.LastEventTime, l.IsFinal, l.Bridged,
		l.RecordingSid, l.RecordingURL, l.TranscriptionSid, l.TranscriptionTxt, l.DerivedStatus, l.UpdatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save call leg", err)
	}
	return nil
}

func (d Datasource) GetLegsByInteraction(ctx context.Context, interactionSid string) ([]*model.CallLeg, error) {
	rows, err := d.Conn.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM call_legs WHERE interaction_sid = $1 ORDER BY created_at ASC, id ASC
	`, legColumns), interactionSid)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve interaction legs", err)
	}
	defer func() { _ = rows.Close() }()

	legs := []*model.CallLeg{}
	for rows.Next() {
		l, err := scanLeg(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan call leg", err)
		}
		legs = append(legs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate call legs", err)
	}
	return legs, nil
}

func scanLeg(row rowScanner) (*model.CallLeg, error) {
	l := &model.CallLeg{}
	err := row.Scan(&l.CallSid, &l.InteractionSid, &l.ParentCallSid, &l.Status, &l.Direction,
		&l.From, &l.To, &l.StartedAt, &l.AnsweredAt, &l.EndedAt, &l.DurationSec,
		&l.LastEventTime, &l.IsFinal, &l.Bridged, &l.RecordingSid, &l.RecordingURL,
		&l.TranscriptionSid, &l.TranscriptionTxt, &l.DerivedStatus, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}
