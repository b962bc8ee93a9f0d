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

import (
	"fmt"
	"time"
)

// EventSource identifies where a raw event entered the system.
type EventSource string

const (
	SourceVoice         EventSource = "voice"
	SourceDial          EventSource = "dial"
	SourceRecording     EventSource = "recording"
	SourceTranscription EventSource = "transcription"
	SourceReconcileHot  EventSource = "reconcile_hot"
	SourceReconcileWarm EventSource = "reconcile_warm"
	SourceReconcileCold EventSource = "reconcile_cold"
)

// Processing status values for a raw event. An event never leaves
// completed or dead_letter once it gets there.
const (
	EventPending    = "pending"
	EventProcessing = "processing"
	EventCompleted  = "completed"
	EventFailed     = "failed"
	EventDeadLetter = "dead_letter"
)

// RawEvent is one accepted provider event. The row is immutable except for
// ProcessingStatus; Payload is preserved verbatim so replays can
// reconstruct state byte for byte.
type RawEvent struct {
	ID               int64             `json:"-"`
	EventKey         string            `json:"event_key"`
	Source           EventSource       `json:"source"`
	CallSid          string            `json:"call_sid"`
	ParentCallSid    string            `json:"parent_call_sid,omitempty"`
	RecordingSid     string            `json:"recording_sid,omitempty"`
	EventTime        time.Time         `json:"event_time"`
	ReceivedAt       time.Time         `json:"received_at"`
	Payload          map[string]string `json:"payload"`
	ProcessingStatus string            `json:"processing_status"`
	LastError        string            `json:"last_error,omitempty"`
}

// EndpointType classifies one side of a call leg when the provider payload
// carries that metadata. The historical pull API only exposes raw numbers,
// so pulled events leave both sides as EndpointUnknown.
type EndpointType string

const (
	EndpointUnknown  EndpointType = ""
	EndpointInternal EndpointType = "internal"
	EndpointExternal EndpointType = "external"
)

// CallEvent is the normalized form every provider payload is decoded into
// before it reaches the leg state machine. There is exactly one of these
// per accepted RawEvent regardless of source.
type CallEvent struct {
	EventKey      string
	Source        EventSource
	CallSid       string
	ParentCallSid string
	Status        string
	From          string
	To            string
	FromType      EndpointType
	ToType        EndpointType
	EventTime     time.Time
	DurationSec   *int

	// Dial completion fields. DialCallSid names the child leg the dial verb
	// connected; Bridged reports whether it was bridged to the caller.
	DialCallSid    string
	DialCallStatus string
	Bridged        bool

	// Post-call enrichment fields, informational only.
	RecordingSid     string
	RecordingURL     string
	TranscriptionSid string
	TranscriptionTxt string
}

// InteractionSid returns the partition key grouping this event's leg with
// its siblings: the parent call sid when present, else the call sid itself.
func (e *CallEvent) InteractionSid() string {
	if e.ParentCallSid != "" {
		return e.ParentCallSid
	}
	return e.CallSid
}

// CompositeEventKey builds the fallback dedupe key used when the provider
// did not supply an idempotency token.
func CompositeEventKey(source EventSource, callSid, status string, eventTime time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%d", source, callSid, status, eventTime.UTC().Unix())
}
