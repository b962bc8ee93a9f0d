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
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

// IdempotencyHeader is the provider-supplied dedupe token. When present it
// is preferred over the composite event key.
const IdempotencyHeader = "I-Twilio-Idempotency-Token"

// IngestStatus is the intake verdict for one delivery attempt.
type IngestStatus string

const (
	IngestAccepted  IngestStatus = "accepted"
	IngestDuplicate IngestStatus = "duplicate"
	IngestRejected  IngestStatus = "rejected"
)

// IngestResult reports what the inbox did with a payload.
type IngestResult struct {
	Status   IngestStatus `json:"status"`
	EventKey string       `json:"event_key,omitempty"`
	Reason   string       `json:"reason,omitempty"`
}

// Ingest is the sole entry point for provider events, live or pulled. It
// journals the payload verbatim behind the atomic insert-if-absent gate and
// hands accepted events to the queue. The call itself stays fast: state
// application happens downstream, because the provider retries slow acks
// and every retry is more duplicate load.
func (s *CallSync) Ingest(ctx context.Context, source model.EventSource, payload map[string]string, headers http.Header) (IngestResult, error) {
	ctx, span := tracer.Start(ctx, "Ingesting Provider Event")
	defer span.End()

	if err := validateEventPayload(source, payload); err != nil {
		logrus.WithField("source", source).Warnf("rejected malformed payload: %v", err)
		return IngestResult{Status: IngestRejected, Reason: err.Error()}, nil
	}

	receivedAt := time.Now()
	eventTime := parseEventTime(payload, receivedAt)

	eventKey := ""
	if headers != nil {
		eventKey = headers.Get(IdempotencyHeader)
	}
	if eventKey == "" {
		eventKey = model.CompositeEventKey(source, payload["CallSid"], payload[statusField(source)], eventTime)
	}

	evt := &model.RawEvent{
		EventKey:      eventKey,
		Source:        source,
		CallSid:       payload["CallSid"],
		ParentCallSid: payload["ParentCallSid"],
		RecordingSid:  payload["RecordingSid"],
		EventTime:     eventTime,
		ReceivedAt:    receivedAt,
		Payload:       payload,
	}

	inserted, err := s.datasource.InsertRawEvent(ctx, evt)
	if err != nil {
		return IngestResult{}, err
	}
	if !inserted {
		// At-most-once is the contract here, not an error: the provider
		// retried, we already have the event.
		return IngestResult{Status: IngestDuplicate, EventKey: eventKey}, nil
	}

	interactionSid := payload["ParentCallSid"]
	if interactionSid == "" {
		interactionSid = payload["CallSid"]
	}
	if err := s.queue.Enqueue(ctx, evt, interactionSid); err != nil {
		// The event is journaled; reconciliation or replay will pick it up.
		logrus.Errorf("failed to enqueue accepted event %s: %v", eventKey, err)
	}

	return IngestResult{Status: IngestAccepted, EventKey: eventKey}, nil
}

// ProcessEvent is the single mutation path: decode, apply to the leg
// snapshot, recompute the interaction aggregate. The worker runs it once
// per queued event, serialized per interaction by queue routing.
func (s *CallSync) ProcessEvent(ctx context.Context, evt *model.RawEvent) error {
	ctx, span := tracer.Start(ctx, "Processing Event From Redis Queue")
	defer span.End()

	if err := s.datasource.UpdateEventProcessingStatus(ctx, evt.EventKey, model.EventProcessing, ""); err != nil {
		return err
	}

	event, err := s.DecodeCallEvent(evt)
	if err != nil {
		// Undecodable after acceptance means the journaled payload itself
		// is bad; retrying will not fix it.
		_ = s.datasource.UpdateEventProcessingStatus(ctx, evt.EventKey, model.EventDeadLetter, err.Error())
		return nil
	}

	leg, applied, err := s.Apply(ctx, event)
	if err != nil {
		_ = s.datasource.UpdateEventProcessingStatus(ctx, evt.EventKey, model.EventFailed, err.Error())
		return err
	}

	if applied {
		if _, err := s.Recompute(ctx, leg.InteractionSid); err != nil {
			_ = s.datasource.UpdateEventProcessingStatus(ctx, evt.EventKey, model.EventFailed, err.Error())
			return err
		}
	}

	return s.datasource.UpdateEventProcessingStatus(ctx, evt.EventKey, model.EventCompleted, "")
}

// MarkEventDeadLetter parks an event after the retry budget is spent. The
// row stays in the journal and remains available for manual replay.
func (s *CallSync) MarkEventDeadLetter(ctx context.Context, eventKey string, cause error) error {
	logrus.WithField("event_key", eventKey).Errorf("event moved to dead letter: %v", cause)
	return s.datasource.UpdateEventProcessingStatus(ctx, eventKey, model.EventDeadLetter, cause.Error())
}

// ReplayEvent re-runs a journaled event through the normal path, used for
// manual recovery of dead-lettered events.
func (s *CallSync) ReplayEvent(ctx context.Context, eventKey string) error {
	evt, err := s.datasource.GetRawEvent(ctx, eventKey)
	if err != nil {
		return err
	}
	if err := s.datasource.ResetEventForReplay(ctx, eventKey); err != nil {
		return err
	}

	interactionSid := evt.ParentCallSid
	if interactionSid == "" {
		interactionSid = evt.CallSid
	}
	return s.queue.Replay(ctx, evt, interactionSid)
}
