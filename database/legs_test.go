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
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/help-netizen/twilio-front-integration-sub004/internal/apierror"
	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

var callLegColumns = []string{
	"call_sid", "interaction_sid", "parent_call_sid", "status", "direction",
	"from_endpoint", "to_endpoint", "started_at", "answered_at", "ended_at", "duration_sec",
	"last_event_time", "is_final", "bridged", "recording_sid", "recording_url",
	"transcription_sid", "transcription_text", "derived_status", "created_at", "updated_at",
}

func TestSaveLeg(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()
	duration := 25

	leg := &model.CallLeg{
		CallSid:        "CA_child",
		InteractionSid: "CA_root",
		ParentCallSid:  "CA_root",
		Status:         "completed",
		Direction:      model.DirectionOutbound,
		From:           "+15551230001",
		To:             "+15559870002",
		StartedAt:      &now,
		AnsweredAt:     &now,
		EndedAt:        &now,
		DurationSec:    &duration,
		LastEventTime:  now,
		IsFinal:        true,
		Bridged:        true,
		DerivedStatus:  model.AttemptAnsweredByAgent,
	}

	mock.ExpectExec("INSERT INTO call_legs").
		WithArgs(leg.CallSid, leg.InteractionSid, leg.ParentCallSid, leg.Status, leg.Direction,
			leg.From, leg.To, leg.StartedAt, leg.AnsweredAt, leg.EndedAt, leg.DurationSec,
			leg.LastEventTime, leg.IsFinal, leg.Bridged, "", "", "", "", leg.DerivedStatus, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = ds.SaveLeg(context.Background(), leg)
	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now(), leg.UpdatedAt, time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLeg_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT (.+) FROM call_legs WHERE call_sid =").
		WithArgs("CA_missing").
		WillReturnError(sql.ErrNoRows)

	_, err = ds.GetLeg(context.Background(), "CA_missing")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestGetLegsByInteraction(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	rows := sqlmock.NewRows(callLegColumns).
		AddRow("CA_root", "CA_root", "", "completed", "inbound", "+1500", "+1600",
			now, nil, now, 60, now, true, false, "", "", "", "", "unknown", now, now).
		AddRow("CA_child", "CA_root", "CA_root", "completed", "outbound", "+1600", "client:agent_1",
			now, now, now, 42, now, true, true, "RE1", "https://recordings/RE1", "", "", "answered_by_agent", now, now)

	mock.ExpectQuery("SELECT (.+) FROM call_legs WHERE interaction_sid =").
		WithArgs("CA_root").
		WillReturnRows(rows)

	legs, err := ds.GetLegsByInteraction(context.Background(), "CA_root")
	assert.NoError(t, err)
	assert.Len(t, legs, 2)

	root, child := legs[0], legs[1]
	assert.True(t, root.IsRoot())
	assert.Nil(t, root.AnsweredAt)
	assert.Equal(t, model.AttemptUnknown, root.DerivedStatus)

	assert.False(t, child.IsRoot())
	assert.True(t, child.Bridged)
	assert.Equal(t, "RE1", child.RecordingSid)
	assert.NotNil(t, child.DurationSec)
	assert.Equal(t, 42, *child.DurationSec)
}
