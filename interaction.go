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
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/help-netizen/twilio-front-integration-sub004/internal/apierror"
	"github.com/help-netizen/twilio-front-integration-sub004/internal/notification"
	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

// Recompute rebuilds the interaction aggregate from the full set of legs
// currently known. Nothing is patched incrementally: the same leg set
// always produces the same aggregate, which is what makes the whole
// pipeline idempotent and order-independent. Emits the change notification
// when the outcome or winner moved.
func (s *CallSync) Recompute(ctx context.Context, interactionSid string) (*model.Interaction, error) {
	ctx, span := tracer.Start(ctx, "Recomputing Interaction Aggregate")
	defer span.End()

	legs, err := s.datasource.GetLegsByInteraction(ctx, interactionSid)
	if err != nil {
		return nil, err
	}
	if len(legs) == 0 {
		return nil, errors.Errorf("no legs known for interaction %s", interactionSid)
	}

	aggregate := AggregateLegs(interactionSid, legs)

	previous, err := s.datasource.GetInteraction(ctx, interactionSid)
	if err != nil {
		apiErr, ok := err.(apierror.APIError)
		if !ok || apiErr.Code != apierror.ErrNotFound {
			return nil, err
		}
		previous = nil
	}

	if err := s.datasource.UpsertInteraction(ctx, aggregate); err != nil {
		return nil, err
	}
	for _, l := range legs {
		if err := s.datasource.SaveLeg(ctx, l); err != nil {
			return nil, err
		}
	}

	if previous == nil || previous.Outcome != aggregate.Outcome || previous.WinnerLegSid != aggregate.WinnerLegSid {
		s.notifyInteractionUpdated(aggregate)
	}

	return aggregate, nil
}

// AggregateLegs computes the aggregate for one interaction from its leg
// set. Pure: no storage, no clock beyond the updated_at stamp.
func AggregateLegs(interactionSid string, legs []*model.CallLeg) *model.Interaction {
	var root *model.CallLeg
	children := make([]*model.CallLeg, 0, len(legs))
	for _, l := range legs {
		if l.IsRoot() && l.CallSid == interactionSid {
			root = l
		} else {
			children = append(children, l)
		}
	}

	winner := resolveWinner(interactionSid, children)

	for _, l := range children {
		l.DerivedStatus = deriveAttemptStatus(l, winner)
	}
	if root != nil {
		// The root carries the customer, it is not a dial attempt.
		root.DerivedStatus = model.AttemptUnknown
	}

	counts := map[model.AttemptStatus]int{}
	for _, l := range children {
		counts[l.DerivedStatus]++
	}

	aggregate := &model.Interaction{
		InteractionSid: interactionSid,
		RootCallSid:    interactionSid,
		Outcome:        deriveOutcome(root, children, winner),
		AttemptsTotal:  len(children),
		StatusCounts:   counts,
		UpdatedAt:      time.Now(),
	}
	if winner != nil {
		aggregate.WinnerLegSid = winner.CallSid
	}
	return aggregate
}

// resolveWinner picks the leg actually bridged to the customer. The
// explicit bridge signal from the dial completion callback is
// authoritative; the max-duration fallback over answered legs is a
// heuristic, so any ambiguity it has to break is surfaced as a
// data-integrity alert rather than resolved silently.
func resolveWinner(interactionSid string, children []*model.CallLeg) *model.CallLeg {
	var bridged []*model.CallLeg
	for _, l := range children {
		if l.Bridged {
			bridged = append(bridged, l)
		}
	}

	if len(bridged) > 1 {
		notification.NotifyDataIntegrity(fmt.Sprintf(
			"interaction %s has %d legs claiming bridged status", interactionSid, len(bridged)))
	}
	if len(bridged) > 0 {
		return longestLeg(bridged)
	}

	var answered []*model.CallLeg
	for _, l := range children {
		if l.Answered() {
			answered = append(answered, l)
		}
	}
	if len(answered) == 0 {
		return nil
	}
	if len(answered) > 1 {
		notification.NotifyDataIntegrity(fmt.Sprintf(
			"interaction %s resolving winner by duration among %d answered legs", interactionSid, len(answered)))
	}
	return longestLeg(answered)
}

// longestLeg returns the leg with the greatest duration, breaking ties by
// call sid so the pick is deterministic across recomputes.
func longestLeg(legs []*model.CallLeg) *model.CallLeg {
	best := legs[0]
	for _, l := range legs[1:] {
		if legDuration(l) > legDuration(best) ||
			(legDuration(l) == legDuration(best) && l.CallSid < best.CallSid) {
			best = l
		}
	}
	return best
}

func legDuration(l *model.CallLeg) int {
	if l.DurationSec == nil {
		return 0
	}
	return *l.DurationSec
}

// deriveAttemptStatus classifies the role a dial attempt played. The
// central rule lives here: a completed leg that is not the winner is a
// lost race, never an independently successful call.
func deriveAttemptStatus(l *model.CallLeg, winner *model.CallLeg) model.AttemptStatus {
	if winner != nil && l.CallSid == winner.CallSid {
		return model.AttemptAnsweredByAgent
	}
	switch l.Status {
	case model.LegNoAnswer:
		return model.AttemptNoAnswerOrRejected
	case model.LegBusy:
		return model.AttemptBusy
	case model.LegFailed:
		return model.AttemptFailed
	case model.LegCanceled:
		return model.AttemptCanceledRace
	case model.LegCompleted:
		return model.AttemptRaceLostAfterAnswer
	default:
		return model.AttemptUnknown
	}
}

func deriveOutcome(root *model.CallLeg, children []*model.CallLeg, winner *model.CallLeg) model.Outcome {
	if winner != nil {
		return model.OutcomeAnswered
	}
	if len(children) > 0 {
		return model.OutcomeMissed
	}
	if root != nil && !root.IsFinal {
		return model.OutcomeInProgress
	}
	return model.OutcomeAbandoned
}

// notifyInteractionUpdated queues the change notification and drops the
// cached detail read for this interaction.
func (s *CallSync) notifyInteractionUpdated(aggregate *model.Interaction) {
	err := s.SendWebhook(NewWebhook{
		Event: "interaction.updated",
		Payload: model.InteractionUpdated{
			InteractionSid: aggregate.InteractionSid,
			Outcome:        aggregate.Outcome,
			WinnerLegSid:   aggregate.WinnerLegSid,
		},
	})
	if err != nil {
		logrus.Errorf("failed to queue interaction.updated for %s: %v", aggregate.InteractionSid, err)
	}
}
