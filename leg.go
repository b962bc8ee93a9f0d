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

	"github.com/sirupsen/logrus"

	"github.com/help-netizen/twilio-front-integration-sub004/internal/apierror"
	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

// Apply folds one normalized event into the snapshot of the leg it
// addresses. The returned bool reports whether the snapshot actually
// changed; events older than the snapshot's last_event_time stay in the
// journal but never regress state. Callers are serialized per interaction
// by queue routing, so load-modify-save here does not race.
func (s *CallSync) Apply(ctx context.Context, event *model.CallEvent) (*model.CallLeg, bool, error) {
	ctx, span := tracer.Start(ctx, "Applying Event To Leg Snapshot")
	defer span.End()

	targetSid := event.CallSid
	if event.Source == model.SourceDial && event.DialCallSid != "" {
		// The dial completion arrives on the root call but describes the
		// child leg that was dialed.
		targetSid = event.DialCallSid
	}

	leg, err := s.datasource.GetLeg(ctx, targetSid)
	if err != nil {
		apiErr, ok := err.(apierror.APIError)
		if !ok || apiErr.Code != apierror.ErrNotFound {
			return nil, false, err
		}
		leg = s.newLeg(targetSid, event)
	}

	if event.EventTime.Before(leg.LastEventTime) {
		logrus.WithFields(logrus.Fields{
			"call_sid":  targetSid,
			"event_key": event.EventKey,
		}).Info("stale event journaled without snapshot mutation")
		return leg, false, nil
	}

	changed := false
	switch event.Source {
	case model.SourceRecording, model.SourceTranscription:
		changed = applyEnrichment(leg, event)
	case model.SourceDial:
		changed = applyDialResult(leg, event)
	default:
		changed = s.applyVoiceStatus(leg, event)
	}

	if !changed {
		return leg, false, nil
	}

	leg.LastEventTime = event.EventTime
	if err := s.datasource.SaveLeg(ctx, leg); err != nil {
		return nil, false, err
	}
	return leg, true, nil
}

func (s *CallSync) newLeg(callSid string, event *model.CallEvent) *model.CallLeg {
	parent := event.ParentCallSid
	if event.Source == model.SourceDial && event.DialCallSid != "" {
		parent = event.CallSid
	}
	interactionSid := parent
	if interactionSid == "" {
		interactionSid = callSid
	}
	return &model.CallLeg{
		CallSid:        callSid,
		InteractionSid: interactionSid,
		ParentCallSid:  parent,
		Status:         model.LegQueued,
		Direction:      model.DirectionExternal,
		DerivedStatus:  model.AttemptUnknown,
	}
}

// applyVoiceStatus moves the leg through the provider's status lattice.
// Terminal statuses are absorbing: once final, later voice events are
// journal-only.
func (s *CallSync) applyVoiceStatus(leg *model.CallLeg, event *model.CallEvent) bool {
	if leg.IsFinal {
		return false
	}

	changed := false
	if event.From != "" && leg.From == "" {
		leg.From = event.From
		changed = true
	}
	if event.To != "" && leg.To == "" {
		leg.To = event.To
		changed = true
	}
	if dir := s.deriveDirection(leg, event); dir != leg.Direction {
		leg.Direction = dir
		changed = true
	}

	if event.Status != leg.Status {
		leg.Status = event.Status
		changed = true
	}

	switch event.Status {
	case model.LegRinging:
		if leg.StartedAt == nil {
			t := event.EventTime
			leg.StartedAt = &t
			changed = true
		}
	case model.LegInProgress:
		if leg.StartedAt == nil {
			t := event.EventTime
			leg.StartedAt = &t
			changed = true
		}
		if leg.AnsweredAt == nil {
			t := event.EventTime
			leg.AnsweredAt = &t
			changed = true
		}
	}

	if model.IsTerminalLegStatus(event.Status) {
		t := event.EventTime
		leg.EndedAt = &t
		leg.IsFinal = true
		if event.DurationSec != nil {
			leg.DurationSec = event.DurationSec
		}
		// A completed leg was connected even if the in-progress callback
		// never arrived; the pull API only ever shows the final status.
		if event.Status == model.LegCompleted && leg.AnsweredAt == nil {
			answered := event.EventTime
			if leg.StartedAt != nil {
				answered = *leg.StartedAt
			}
			leg.AnsweredAt = &answered
		}
		changed = true
	}

	return changed
}

// applyDialResult records the bridge signal on the child leg the dial verb
// reported on. This is the authoritative winner marker for the aggregator.
func applyDialResult(leg *model.CallLeg, event *model.CallEvent) bool {
	changed := false
	if event.Bridged && !leg.Bridged {
		leg.Bridged = true
		changed = true
	}
	if event.DialCallStatus == model.LegCompleted && leg.AnsweredAt == nil {
		t := event.EventTime
		leg.AnsweredAt = &t
		changed = true
	}
	return changed
}

// applyEnrichment updates purely informational fields. These land even on
// final legs: a recording callback routinely arrives after completion.
func applyEnrichment(leg *model.CallLeg, event *model.CallEvent) bool {
	changed := false
	if event.RecordingSid != "" && leg.RecordingSid != event.RecordingSid {
		leg.RecordingSid = event.RecordingSid
		changed = true
	}
	if event.RecordingURL != "" && leg.RecordingURL != event.RecordingURL {
		leg.RecordingURL = event.RecordingURL
		changed = true
	}
	if event.TranscriptionSid != "" && leg.TranscriptionSid != event.TranscriptionSid {
		leg.TranscriptionSid = event.TranscriptionSid
		changed = true
	}
	if event.TranscriptionTxt != "" && leg.TranscriptionTxt != event.TranscriptionTxt {
		leg.TranscriptionTxt = event.TranscriptionTxt
		changed = true
	}
	return changed
}

// deriveDirection resolves which way the leg points, in strict priority
// order. The live webhook path carries endpoint-type hints in the
// identifiers; the pull API only exposes raw numbers, so the owned-number
// set configured for the account is the second layer. A leg that resolved
// to external stays eligible for re-resolution when a later event carries
// more information.
func (s *CallSync) deriveDirection(leg *model.CallLeg, event *model.CallEvent) model.Direction {
	if leg.Direction != model.DirectionExternal && leg.Direction != "" {
		return leg.Direction
	}

	from := leg.From
	to := leg.To
	fromType := event.FromType
	toType := event.ToType
	if fromType == model.EndpointUnknown {
		fromType = classifyEndpoint(from, s.sipDomain)
	}
	if toType == model.EndpointUnknown {
		toType = classifyEndpoint(to, s.sipDomain)
	}

	fromInternal := fromType == model.EndpointInternal
	toInternal := toType == model.EndpointInternal
	fromOwned := fromInternal || s.isOwned(from)
	toOwned := toInternal || s.isOwned(to)

	switch {
	case fromInternal && !toInternal && !toOwned:
		return model.DirectionOutbound
	case toInternal && !fromInternal && !fromOwned:
		return model.DirectionInbound
	case fromOwned && toOwned:
		return model.DirectionInternal
	case fromOwned && !toOwned:
		return model.DirectionOutbound
	case toOwned && !fromOwned:
		return model.DirectionInbound
	default:
		return model.DirectionExternal
	}
}

func (s *CallSync) isOwned(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	_, ok := s.ownedNumbers[endpoint]
	return ok
}
