/*
Copyright 2025 Help Netizen Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package callsync

import (
	"context"

	"github.com/help-netizen/twilio-front-integration-sub004/database"
	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

// ListInteractions returns one row per logical call, never per leg.
func (s *CallSync) ListInteractions(ctx context.Context, filter database.InteractionFilter) ([]*model.Interaction, error) {
	ctx, span := tracer.Start(ctx, "Listing Interactions")
	defer span.End()
	return s.datasource.ListInteractions(ctx, filter)
}

// GetInteractionDetail returns the aggregate plus every known leg for the
// detail view.
func (s *CallSync) GetInteractionDetail(ctx context.Context, interactionSid string) (*model.InteractionDetail, error) {
	ctx, span := tracer.Start(ctx, "Getting Interaction Detail")
	defer span.End()

	interaction, err := s.datasource.GetInteraction(ctx, interactionSid)
	if err != nil {
		return nil, err
	}
	legs, err := s.datasource.GetLegsByInteraction(ctx, interactionSid)
	if err != nil {
		return nil, err
	}
	return &model.InteractionDetail{Interaction: *interaction, Legs: legs}, nil
}

// GetJournal returns the full ordered event history for one call sid.
func (s *CallSync) GetJournal(ctx context.Context, callSid string, limit, offset int) ([]*model.RawEvent, error) {
	return s.datasource.GetJournalByCall(ctx, callSid, limit, offset)
}

// GetDeadLetterEvents lists events parked after exhausting retries.
func (s *CallSync) GetDeadLetterEvents(ctx context.Context, limit, offset int) ([]*model.RawEvent, error) {
	return s.datasource.GetDeadLetterEvents(ctx, limit, offset)
}

// ReconciliationStatus reports the cursor row of every pull job.
func (s *CallSync) ReconciliationStatus(ctx context.Context) ([]*model.SyncCursor, error) {
	jobs := []string{JobReconcileHot, JobReconcileWarm, JobReconcileCold}
	cursors := make([]*model.SyncCursor, 0, len(jobs))
	for _, job := range jobs {
		cursor, err := s.datasource.GetSyncCursor(ctx, job)
		if err != nil {
			return nil, err
		}
		cursors = append(cursors, cursor)
	}
	return cursors, nil
}
