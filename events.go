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
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

// statusField returns the payload key carrying the status for a source.
// Reconcile sources reuse the voice schema: pulled call records are
// synthesized into the same shape as live status callbacks.
func statusField(source model.EventSource) string {
	switch source {
	case model.SourceDial:
		return "DialCallStatus"
	case model.SourceRecording:
		return "RecordingStatus"
	case model.SourceTranscription:
		return "TranscriptionStatus"
	default:
		return "CallStatus"
	}
}

// idField returns the payload key identifying the subject of the event.
func idField(source model.EventSource) string {
	switch source {
	case model.SourceRecording:
		return "RecordingSid"
	case model.SourceTranscription:
		return "TranscriptionSid"
	default:
		return "CallSid"
	}
}

// validateEventPayload checks the two identifying fields the source's
// schema requires: the subject id and a status. Anything else missing is
// tolerated; these two are not.
func validateEventPayload(source model.EventSource, payload map[string]string) error {
	if payload[idField(source)] == "" {
		return errors.Errorf("payload missing %s", idField(source))
	}
	if payload[statusField(source)] == "" {
		return errors.Errorf("payload missing %s", statusField(source))
	}
	if source == model.SourceRecording || source == model.SourceTranscription {
		if payload["CallSid"] == "" {
			return errors.New("payload missing CallSid")
		}
	}
	return nil
}

// parseEventTime reads the provider-attributed timestamp, falling back to
// the local receipt time when absent or unparseable.
func parseEventTime(payload map[string]string, receivedAt time.Time) time.Time {
	raw := payload["Timestamp"]
	if raw == "" {
		return receivedAt
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return receivedAt
}

// classifyEndpoint reads the endpoint-type hint the live webhook path
// carries in the identifier itself: client and SIP URIs are internal
// endpoints by construction. Plain numbers carry no hint here; they are
// resolved against the owned-number set later.
func classifyEndpoint(endpoint, sipDomain string) model.EndpointType {
	if endpoint == "" {
		return model.EndpointUnknown
	}
	if strings.HasPrefix(endpoint, "client:") || strings.HasPrefix(endpoint, "sip:") {
		return model.EndpointInternal
	}
	if sipDomain != "" && strings.Contains(endpoint, "@"+sipDomain) {
		return model.EndpointInternal
	}
	return model.EndpointUnknown
}

// DecodeCallEvent normalizes a journaled raw event into the single event
// shape the leg state machine applies. Every source funnels through here;
// there is no second decode path.
func (s *CallSync) DecodeCallEvent(evt *model.RawEvent) (*model.CallEvent, error) {
	if err := validateEventPayload(evt.Source, evt.Payload); err != nil {
		return nil, err
	}

	payload := evt.Payload
	event := &model.CallEvent{
		EventKey:      evt.EventKey,
		Source:        evt.Source,
		CallSid:       payload["CallSid"],
		ParentCallSid: payload["ParentCallSid"],
		Status:        payload[statusField(evt.Source)],
		From:          payload["From"],
		To:            payload["To"],
		EventTime:     evt.EventTime,
	}
	event.FromType = classifyEndpoint(event.From, s.sipDomain)
	event.ToType = classifyEndpoint(event.To, s.sipDomain)

	if raw := payload["CallDuration"]; raw != "" {
		if sec, err := strconv.Atoi(raw); err == nil {
			event.DurationSec = &sec
		}
	} else if raw := payload["Duration"]; raw != "" {
		if sec, err := strconv.Atoi(raw); err == nil {
			event.DurationSec = &sec
		}
	}

	switch evt.Source {
	case model.SourceDial:
		event.DialCallSid = payload["DialCallSid"]
		event.DialCallStatus = payload["DialCallStatus"]
		event.Bridged = payload["DialBridged"] == "true"
	case model.SourceRecording:
		event.RecordingSid = payload["RecordingSid"]
		event.RecordingURL = payload["RecordingUrl"]
	case model.SourceTranscription:
		event.TranscriptionSid = payload["TranscriptionSid"]
		event.TranscriptionTxt = payload["TranscriptionText"]
	}

	return event, nil
}
