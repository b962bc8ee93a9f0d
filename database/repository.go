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
package database

import (
	"context"
	"time"

	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	event       // Inbox and journal operations
	leg         // Call leg snapshot operations
	interaction // Interaction aggregate operations
	syncCursor  // Reconciliation cursor operations
}

// event defines methods for the inbox and the append-only journal.
type event interface {
	InsertRawEvent(ctx context.Context, evt *model.RawEvent) (bool, error)                              // Inserts if the event key is absent; false means duplicate
	GetRawEvent(ctx context.Context, eventKey string) (*model.RawEvent, error)                          // Retrieves one journaled event
	UpdateEventProcessingStatus(ctx context.Context, eventKey, status, lastError string) error          // Moves an event through its processing lifecycle
	ResetEventForReplay(ctx context.Context, eventKey string) error                                     // Returns a parked event to pending for manual replay
	IncrementEventAttempts(ctx context.Context, eventKey string) (int, error)                           // Bumps and returns the retry counter
	GetJournalByCall(ctx context.Context, callSid string, limit, offset int) ([]*model.RawEvent, error) // Full audit trail for one call
	GetDeadLetterEvents(ctx context.Context, limit, offset int) ([]*model.RawEvent, error)              // Events excluded from automatic retry
}

// leg defines methods for call leg snapshots.
type leg interface {
	GetLeg(ctx context.Context, callSid string) (*model.CallLeg, error) // Retrieves one leg by call sid
	SaveLeg(ctx context.Context, l *model.CallLeg) error                // Upserts the snapshot
	GetLegsByInteraction(ctx context.Context, interactionSid string) ([]*model.CallLeg, error)
}

// interaction defines methods for the aggregate read model.
type interaction interface {
	GetInteraction(ctx context.Context, interactionSid string) (*model.Interaction, error)
	UpsertInteraction(ctx context.Context, i *model.Interaction) error
	ListInteractions(ctx context.Context, filter InteractionFilter) ([]*model.Interaction, error)
}

// syncCursor defines methods for reconciliation progress rows.
type syncCursor interface {
	GetSyncCursor(ctx context.Context, jobName string) (*model.SyncCursor, error)
	SaveSyncCursor(ctx context.Context, jobName, cursor string) error     // Advances the cursor and stamps last_success_at
	RecordSyncError(ctx context.Context, jobName, lastError string) error // Records a failed run without advancing
}

// InteractionFilter narrows ListInteractions. Zero values mean "no filter".
type InteractionFilter struct {
	Outcome model.Outcome
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}
