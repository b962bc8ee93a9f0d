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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

func TestDecodeVoiceEvent(t *testing.T) {
	s := &CallSync{sipDomain: "agents.example.com"}

	evt := &model.RawEvent{
		EventKey:  "voice:CA123:completed:1700000000",
		Source:    model.SourceVoice,
		EventTime: time.Unix(1700000000, 0),
		Payload: map[string]string{
			"CallSid":       "CA123",
			"ParentCallSid": "CA_root",
			"CallStatus":    "completed",
			"From":          "+15551230001",
			"To":            "client:agent_42",
			"CallDuration":  "18",
		},
	}

	event, err := s.DecodeCallEvent(evt)
	assert.NoError(t, err)
	assert.Equal(t, "CA123", event.CallSid)
	assert.Equal(t, "CA_root", event.ParentCallSid)
	assert.Equal(t, "completed", event.Status)
	assert.Equal(t, model.EndpointUnknown, event.FromType)
	assert.Equal(t, model.EndpointInternal, event.ToType)
	assert.NotNil(t, event.DurationSec)
	assert.Equal(t, 18, *event.DurationSec)
	assert.Equal(t, "CA_root", event.InteractionSid())
}

func TestDecodeDialEvent(t *testing.T) {
	s := &CallSync{}

	evt := &model.RawEvent{
		EventKey:  "dial:CA_root:completed:1700000000",
		Source:    model.SourceDial,
		EventTime: time.Unix(1700000000, 0),
		Payload: map[string]string{
			"CallSid":        "CA_root",
			"DialCallSid":    "CA_child",
			"DialCallStatus": "completed",
			"DialBridged":    "true",
		},
	}

	event, err := s.DecodeCallEvent(evt)
	assert.NoError(t, err)
	assert.Equal(t, "CA_child", event.DialCallSid)
	assert.Equal(t, "completed", event.DialCallStatus)
	assert.True(t, event.Bridged)
}

func TestDecodeRecordingEvent(t *testing.T) {
	s := &CallSync{}

	evt := &model.RawEvent{
		EventKey:  "recording:RE99:completed:1700000000",
		Source:    model.SourceRecording,
		EventTime: time.Unix(1700000000, 0),
		Payload: map[string]string{
			"RecordingSid":    "RE99",
			"RecordingStatus": "completed",
			"CallSid":         "CA123",
			"RecordingUrl":    "https://api.twilio.com/recordings/RE99",
		},
	}

	event, err := s.DecodeCallEvent(evt)
	assert.NoError(t, err)
	assert.Equal(t, "RE99", event.RecordingSid)
	assert.Equal(t, "https://api.twilio.com/recordings/RE99", event.RecordingURL)
	assert.Equal(t, "CA123", event.CallSid)
}

func TestDecodeRejectsMissingIdentifiers(t *testing.T) {
	s := &CallSync{}

	_, err := s.DecodeCallEvent(&model.RawEvent{
		Source:  model.SourceVoice,
		Payload: map[string]string{"CallStatus": "ringing"},
	})
	assert.Error(t, err)

	_, err = s.DecodeCallEvent(&model.RawEvent{
		Source:  model.SourceVoice,
		Payload: map[string]string{"CallSid": "CA123"},
	})
	assert.Error(t, err)

	// Recording events must also carry the call they belong to.
	_, err = s.DecodeCallEvent(&model.RawEvent{
		Source:  model.SourceRecording,
		Payload: map[string]string{"RecordingSid": "RE99", "RecordingStatus": "completed"},
	})
	assert.Error(t, err)
}

func TestParseEventTimeFallsBackToReceipt(t *testing.T) {
	receivedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	parsed := parseEventTime(map[string]string{"Timestamp": "Mon, 02 Jan 2006 15:04:05 -0700"}, receivedAt)
	assert.Equal(t, 2006, parsed.Year())

	parsed = parseEventTime(map[string]string{"Timestamp": "2025-05-30T09:30:00Z"}, receivedAt)
	assert.Equal(t, 30, parsed.Day())

	parsed = parseEventTime(map[string]string{"Timestamp": "not-a-time"}, receivedAt)
	assert.Equal(t, receivedAt, parsed)

	parsed = parseEventTime(map[string]string{}, receivedAt)
	assert.Equal(t, receivedAt, parsed)
}

func TestCompositeEventKey(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	key := model.CompositeEventKey(model.SourceVoice, "CA123", "completed", ts)
	assert.Equal(t, "voice:CA123:completed:1700000000", key)

	// Reconcile sources never collide with live keys for the same state.
	reconciled := model.CompositeEventKey(model.SourceReconcileHot, "CA123", "completed", ts)
	assert.NotEqual(t, key, reconciled)
}

func TestClassifyEndpoint(t *testing.T) {
	assert.Equal(t, model.EndpointInternal, classifyEndpoint("client:agent_1", ""))
	assert.Equal(t, model.EndpointInternal, classifyEndpoint("sip:desk@pbx.local", ""))
	assert.Equal(t, model.EndpointInternal, classifyEndpoint("desk@agents.example.com", "agents.example.com"))
	assert.Equal(t, model.EndpointUnknown, classifyEndpoint("+15551230001", "agents.example.com"))
	assert.Equal(t, model.EndpointUnknown, classifyEndpoint("", "agents.example.com"))
}
