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
package model

import "time"

// Outcome is the overall result of one logical customer interaction.
type Outcome string

const (
	OutcomeAnswered   Outcome = "answered"
	OutcomeMissed     Outcome = "missed"
	OutcomeAbandoned  Outcome = "abandoned"
	OutcomeInProgress Outcome = "in_progress"
)

// AttemptStatus classifies the role a leg played inside its interaction.
// It is distinct from the raw provider status: a completed leg that lost
// the answer race must never be surfaced as an independently successful
// call.
type AttemptStatus string

const (
	AttemptAnsweredByAgent     AttemptStatus = "answered_by_agent"
	AttemptNoAnswerOrRejected  AttemptStatus = "no_answer_or_rejected"
	AttemptBusy                AttemptStatus = "busy"
	AttemptFailed              AttemptStatus = "failed"
	AttemptCanceledRace        AttemptStatus = "canceled_race"
	AttemptRaceLostAfterAnswer AttemptStatus = "race_lost_after_answer"
	AttemptUnknown             AttemptStatus = "unknown"
)

// Interaction is the aggregate over all legs sharing one interaction sid.
// It is recomputed in full from the current leg set on every change, never
// patched incrementally; that is what makes it idempotent and
// order-independent.
type Interaction struct {
	ID             int64  `json:"-"`
	InteractionSid string `json:"interaction_sid"`
	RootCallSid    string `json:"root_call_sid"`

	// WinnerLegSid is the leg actually bridged to the customer. At most one
	// leg per interaction may hold this, and Outcome is answered exactly
	// when it is set.
	WinnerLegSid string  `json:"winner_leg_sid,omitempty"`
	Outcome      Outcome `json:"outcome"`

	AttemptsTotal int                   `json:"attempts_total"`
	StatusCounts  map[AttemptStatus]int `json:"status_counts"`

	UpdatedAt time.Time `json:"updated_at"`
}

// InteractionDetail is the full read-model row returned to the detail view:
// the aggregate plus every known leg.
type InteractionDetail struct {
	Interaction Interaction `json:"interaction"`
	Legs        []*CallLeg  `json:"legs"`
}

// InteractionUpdated is the change notification emitted whenever a
// recompute lands on a different outcome or winner than before.
type InteractionUpdated struct {
	InteractionSid string  `json:"interaction_sid"`
	Outcome        Outcome `json:"outcome"`
	WinnerLegSid   string  `json:"winner_leg_sid,omitempty"`
}
