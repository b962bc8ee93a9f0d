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

// Provider call statuses. Everything past in-progress is terminal.
const (
	LegQueued     = "queued"
	LegRinging    = "ringing"
	LegInProgress = "in-progress"
	LegCompleted  = "completed"
	LegBusy       = "busy"
	LegFailed     = "failed"
	LegNoAnswer   = "no-answer"
	LegCanceled   = "canceled"
)

// Direction of a call leg relative to the business.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
	DirectionInternal Direction = "internal"
	DirectionExternal Direction = "external"
)

// IsTerminalLegStatus reports whether status is absorbing: once recorded,
// later events may no longer change status, ended_at or duration.
func IsTerminalLegStatus(status string) bool {
	switch status {
	case LegCompleted, LegBusy, LegFailed, LegNoAnswer, LegCanceled:
		return true
	}
	return false
}

// CallLeg is the mutable snapshot of one physical call record, root or
// dial attempt. Legs are created on the first event for a call sid and are
// never deleted.
type CallLeg struct {
	ID             int64      `json:"-"`
	CallSid        string     `json:"call_sid"`
	InteractionSid string     `json:"interaction_sid"`
	ParentCallSid  string     `json:"parent_call_sid,omitempty"`
	Status         string     `json:"status"`
	Direction      Direction  `json:"direction"`
	From           string     `json:"from"`
	To             string     `json:"to"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	AnsweredAt     *time.Time `json:"answered_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	DurationSec    *int       `json:"duration_sec,omitempty"`

	// LastEventTime is the event_time of the newest event accepted into
	// this snapshot. It only moves forward; older events are journaled but
	// never mutate the snapshot.
	LastEventTime time.Time `json:"last_event_time"`
	IsFinal       bool      `json:"is_final"`

	// Bridged is set by the dial completion callback when this leg was the
	// one connected to the caller.
	Bridged bool `json:"bridged"`

	RecordingSid     string `json:"recording_sid,omitempty"`
	RecordingURL     string `json:"recording_url,omitempty"`
	TranscriptionSid string `json:"transcription_sid,omitempty"`
	TranscriptionTxt string `json:"transcription_text,omitempty"`

	DerivedStatus AttemptStatus `json:"derived_attempt_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRoot reports whether this leg is the root of its interaction.
func (l *CallLeg) IsRoot() bool {
	return l.ParentCallSid == "" || l.ParentCallSid == l.CallSid
}

// Answered reports whether an answer was ever recorded for this leg.
func (l *CallLeg) Answered() bool {
	return l.AnsweredAt != nil
}
