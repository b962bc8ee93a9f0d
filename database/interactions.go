package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/help-netizen/twilio-front-integration-sub004/internal/apierror"
	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

func (d Datasource) GetInteraction(ctx context.Context, interactionSid string) (*model.Interaction, error) {
	cacheKey := fmt.Sprintf("interactions:detail:%s", interactionSid)

	cached := &model.Interaction{}
	if err := d.Cache.Get(ctx, cacheKey, cached); err == nil && cached.InteractionSid != "" {
		return cached, nil
	}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT interaction_sid, root_call_sid, COALESCE(winner_leg_sid, ''), outcome, attempts_total, status_counts, updated_at
		FROM interactions
		WHERE interaction_sid = $1
	`, interactionSid)

	i, err := scanInteraction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Interaction '%s' not found", interactionSid), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve interaction", err)
	}

	if err := d.Cache.Set(ctx, cacheKey, i, 5*time.Minute); err != nil {
		// Log the error, but don't return it as the main operation succeeded
		log.Printf("Failed to cache interaction: %v", err)
	}
	return i, nil
}

// UpsertInteraction replaces the aggregate row wholesale. The aggregator
// always recomputes from the full leg set, so a blind overwrite is correct.
func (d Datasource) UpsertInteraction(ctx context.Context, i *model.Interaction) error {
	ctx, span := otel.Tracer("interaction.database").Start(ctx, "Saving interaction aggregate")
	defer span.End()

	countsJSON, err := json.Marshal(i.StatusCounts)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal status counts", err)
	}

	i.UpdatedAt = time.Now()
	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO interactions (interaction_sid, root_call_sid, winner_leg_sid, outcome, attempts_total, status_counts, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
		ON CONFLICT (interaction_sid) DO UPDATE SET
			root_call_sid = EXCLUDED.root_call_sid,
			winner_leg_sid = EXCLUDED.winner_leg_sid,
			outcome = EXCLUDED.outcome,
			attempts_total = EXCLUDED.attempts_total,
			status_counts = EXCLUDED.status_counts,
			updated_at = EXCLUDED.updated_at
	`, i.InteractionSid, i.RootCallSid, i.WinnerLegSid, i.Outcome, i.AttemptsTotal, countsJSON, i.UpdatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to save interaction", err)
	}

	if err := d.Cache.Delete(ctx, fmt.Sprintf("interactions:detail:%s", i.InteractionSid)); err != nil {
		log.Printf("Failed to invalidate interaction cache: %v", err)
	}
	return nil
}

func (d Datasource) ListInteractions(ctx context.Context, filter InteractionFilter) ([]*model.Interaction, error) {
	query := `
		SELECT interaction_sid, root_call_sid, COALESCE(winner_leg_sid, ''), outcome, attempts_total, status_counts, updated_at
		FROM interactions
		WHERE 1=1`
	args := []interface{}{}

	if filter.Outcome != "" {
		args = append(args, filter.Outcome)
		query += fmt.Sprintf(" AND outcome = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND updated_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND updated_at < $%d", len(args))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to list interactions", err)
	}
	defer func() { _ = rows.Close() }()

	interactions := []*model.Interaction{}
	for rows.Next() {
		i, err := scanInteraction(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan interaction", err)
		}
		interactions = append(interactions, i)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate interactions", err)
	}
	return interactions, nil
}

func scanInteraction(row rowScanner) (*model.Interaction, error) {
	i := &model.Interaction{}
	var countsJSON []byte
	err := row.Scan(&i.InteractionSid, &i.RootCallSid, &i.WinnerLegSid, &i.Outcome, &i.AttemptsTotal, &countsJSON, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(countsJSON, &i.StatusCounts); err != nil {
		return nil, err
	}
	return i, nil
}
